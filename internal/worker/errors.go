package worker

import "errors"

// Ошибки воркера.
var (
	// ErrWorkerStopped — воркер остановлен.
	ErrWorkerStopped = errors.New("worker stopped")

	// ErrNotConfigured — не задан обязательный компонент.
	ErrNotConfigured = errors.New("worker not configured")
)
