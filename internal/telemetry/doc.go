// Package telemetry обеспечивает наблюдаемость воркера.
//
// Включает:
//   - logging.go — structured logging через slog (stdout и, опционально, файл с ротацией)
//   - metrics.go — Prometheus метрики проверок, batch и сверки DNS
//
// Метрики экспортируются на /metrics endpoint (см. internal/api).
package telemetry
