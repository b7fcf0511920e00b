package domain

import "errors"

// Ошибки валидации элементов запроса.
var (
	// ErrInvalidURL — URL пустой или не парсится.
	ErrInvalidURL = errors.New("invalid url")

	// ErrMissingHostedZone — domainCheck=true без hostedZoneId.
	ErrMissingHostedZone = errors.New("domain check requested without hosted zone id")
)
