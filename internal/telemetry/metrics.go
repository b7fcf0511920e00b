package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics — Prometheus метрики воркера.
//
// Все методы безопасны для nil-receiver: компоненты, созданные без метрик
// (например, в тестах), просто ничего не пишут.
type Metrics struct {
	probesTotal   *prometheus.CounterVec
	probeDuration prometheus.Histogram
	batchesTotal  *prometheus.CounterVec
	batchSize     prometheus.Histogram
	dnsReconciles *prometheus.CounterVec
	messagesTotal *prometheus.CounterVec
}

// NewMetrics регистрирует метрики в reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		probesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "health_check_probes_total",
				Help: "Total number of URL probes by response status",
			},
			[]string{"status"},
		),
		probeDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "health_check_probe_duration_seconds",
				Help:    "Duration of a single URL probe request",
				Buckets: prometheus.DefBuckets,
			},
		),
		batchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "health_check_batches_total",
				Help: "Total number of processed batches by event kind",
			},
			[]string{"kind"},
		),
		batchSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "health_check_batch_urls",
				Help:    "Number of URLs per batch",
				Buckets: prometheus.ExponentialBuckets(1, 2, 8),
			},
		),
		dnsReconciles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "health_check_dns_reconciliations_total",
				Help: "Total number of DNS reconciliations by outcome",
			},
			[]string{"outcome"},
		),
		messagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "health_check_messages_total",
				Help: "Total number of consumed messages by disposition",
			},
			[]string{"disposition"},
		),
	}
}

// RecordProbe учитывает одну проверку.
func (m *Metrics) RecordProbe(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.probesTotal.WithLabelValues(status).Inc()
	m.probeDuration.Observe(d.Seconds())
}

// RecordBatch учитывает обработанный batch.
func (m *Metrics) RecordBatch(kind string, urls int) {
	if m == nil {
		return
	}
	m.batchesTotal.WithLabelValues(kind).Inc()
	m.batchSize.Observe(float64(urls))
}

// RecordReconcile учитывает итог сверки DNS.
func (m *Metrics) RecordReconcile(outcome string) {
	if m == nil {
		return
	}
	m.dnsReconciles.WithLabelValues(outcome).Inc()
}

// RecordMessage учитывает судьбу сообщения: acked, rejected, requeued.
func (m *Metrics) RecordMessage(disposition string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(disposition).Inc()
}
