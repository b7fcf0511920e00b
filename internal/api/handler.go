package api

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler — обработчик служебных endpoints.
type Handler struct {
	ready   func() bool
	metrics http.Handler
	logger  *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	// Ready сообщает готовность воркера (nil — всегда готов).
	Ready func() bool

	// Gatherer — источник метрик (nil — prometheus.DefaultGatherer).
	Gatherer prometheus.Gatherer

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	ready := cfg.Ready
	if ready == nil {
		ready = func() bool { return true }
	}

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		ready:   ready,
		metrics: promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
		logger:  logger,
	}
}

// Healthz — liveness.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// Readyz — readiness.
func (h *Handler) Readyz(w http.ResponseWriter, _ *http.Request) {
	if !h.ready() {
		JSON(w, http.StatusServiceUnavailable, StatusResponse{Status: "not ready"})
		return
	}
	JSON(w, http.StatusOK, StatusResponse{Status: "ready"})
}
