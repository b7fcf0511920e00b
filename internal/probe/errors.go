package probe

import "errors"

var (
	// ErrRequest — HTTP-запрос не выполнен (нет ответа).
	ErrRequest = errors.New("http request failed")

	// ErrProbeCancelled — проверка отменена до отправки запроса.
	ErrProbeCancelled = errors.New("probe cancelled")
)
