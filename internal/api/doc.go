// Package api — служебный HTTP сервер воркера.
//
// Endpoints:
//   - GET /healthz — процесс жив (всегда 200)
//   - GET /readyz  — соединение с брокером открыто и воркер не остановлен
//   - GET /metrics — Prometheus метрики
package api
