package dns

import "errors"

var (
	// ErrNoIPv4 — у хоста нет IPv4-адресов.
	ErrNoIPv4 = errors.New("no ipv4 address")

	// ErrPublicIP — не удалось получить публичный IP воркера.
	ErrPublicIP = errors.New("public ip unavailable")

	// ErrUpsert — провайдер DNS отклонил изменение.
	ErrUpsert = errors.New("dns upsert failed")

	// ErrSyncPending — изменение принято, но не дошло до INSYNC за отведённое время.
	ErrSyncPending = errors.New("dns change not in sync")

	// ErrNoCredentials — AWS credentials не найдены.
	ErrNoCredentials = errors.New("aws credentials unavailable")

	// ErrInvalidHost — из URL не удалось извлечь хост.
	ErrInvalidHost = errors.New("invalid host")
)
