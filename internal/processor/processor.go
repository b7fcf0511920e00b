package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shaiso/hal-health-check/internal/dns"
	"github.com/shaiso/hal-health-check/internal/domain"
	"github.com/shaiso/hal-health-check/internal/probe"
	"github.com/shaiso/hal-health-check/internal/telemetry"
)

// Prober выполняет проверку одного URL.
type Prober interface {
	Probe(ctx context.Context, rawURL string) probe.Result
}

// Reconciler сверяет DNS-запись хоста URL.
type Reconciler interface {
	Reconcile(ctx context.Context, rawURL, zoneID string) dns.Outcome
}

// Outbound — результат обработки: тело и заголовки исходящего сообщения.
type Outbound struct {
	Body     []byte
	Headers  map[string]any
	Envelope domain.Envelope
	Response domain.CheckResponse
}

// Config — конфигурация Processor.
type Config struct {
	Prober     Prober
	Reconciler Reconciler // опционально; nil — сверка DNS пропускается

	Events domain.EventNames

	// Concurrency — лимит одновременных проверок в batch (0 — без лимита).
	Concurrency int

	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// Processor обрабатывает batch проверок.
type Processor struct {
	prober      Prober
	reconciler  Reconciler
	events      domain.EventNames
	concurrency int
	metrics     *telemetry.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

// New создаёт Processor.
func New(cfg Config) *Processor {
	events := cfg.Events
	if events.Success == "" || events.Error == "" {
		events = domain.DefaultEventNames()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	prober := cfg.Prober
	if prober == nil {
		prober = probe.New(probe.Config{})
	}

	return &Processor{
		prober:      prober,
		reconciler:  cfg.Reconciler,
		events:      events,
		concurrency: cfg.Concurrency,
		metrics:     cfg.Metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Process обрабатывает одно сообщение.
func (p *Processor) Process(ctx context.Context, body []byte, headers map[string]any) (*Outbound, error) {
	traceID := HeaderString(headers, domain.HeaderTraceID)
	logger := telemetry.WithTraceID(p.logger, traceID)

	// 1. Декодируем запрос
	req, err := Decode(body)
	if err != nil {
		return nil, err
	}

	logger.Info("batch started",
		"urls", len(req.URLs),
		"event", HeaderString(headers, domain.HeaderEvent),
	)

	// 2. Fan-out + join
	results := p.run(telemetry.WithLogger(ctx, logger), req.URLs)

	// 3. Агрегация
	resp := domain.CheckResponse{Results: results}
	kind := domain.EventKindError
	if resp.Succeeded() {
		kind = domain.EventKindSuccess
	}

	// 4. Envelope
	env := domain.Envelope{
		Kind:      kind,
		TraceID:   traceID,
		EmittedAt: p.now(),
	}

	// 5. Сериализация
	out, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}

	p.metrics.RecordBatch(string(kind), len(results))

	logger.Info("batch finished",
		"urls", len(results),
		"kind", kind,
	)

	return &Outbound{
		Body:     out,
		Headers:  env.Headers(p.events),
		Envelope: env,
		Response: resp,
	}, nil
}

// run запускает проверки конкурентно и ждёт завершения всех.
// Каждая горутина пишет только в results[i].
func (p *Processor) run(ctx context.Context, specs []domain.URLSpec) []domain.CheckResult {
	results := make([]domain.CheckResult, len(specs))

	var g errgroup.Group
	if p.concurrency > 0 {
		g.SetLimit(p.concurrency)
	}

	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			results[i] = p.check(ctx, spec)
			return nil
		})
	}

	// Задачи не возвращают ошибок: итог каждой — CheckResult.
	_ = g.Wait()

	return results
}

// check обрабатывает один URL: валидация, проверка, сверка DNS.
func (p *Processor) check(ctx context.Context, spec domain.URLSpec) domain.CheckResult {
	logger := telemetry.FromContext(ctx).With("url", spec.URL)

	if err := spec.Validate(); err != nil {
		logger.Warn("invalid url spec", "error", err)
		p.metrics.RecordProbe(domain.StatusUnreachable, 0)
		return domain.NewFailedResult(spec.URL, p.now(), err)
	}

	res := p.prober.Probe(ctx, spec.URL)
	p.metrics.RecordProbe(res.Status, res.Duration)

	if res.Err != nil {
		logger.Warn("probe failed", "error", res.Err, "duration", res.Duration)
	} else {
		logger.Debug("probe finished", "status", res.Status, "duration", res.Duration)
	}

	if spec.DomainCheck {
		p.reconcile(ctx, logger, spec)
	}

	return res.CheckResult
}

// reconcile выполняет сверку DNS. Итог не влияет на результат проверки.
func (p *Processor) reconcile(ctx context.Context, logger *slog.Logger, spec domain.URLSpec) {
	if p.reconciler == nil {
		logger.Warn("domain check requested, dns reconciler not configured")
		p.metrics.RecordReconcile(string(dns.OutcomeFailed))
		return
	}

	outcome := p.reconciler.Reconcile(ctx, spec.URL, spec.ZoneID())
	p.metrics.RecordReconcile(string(outcome))
}

// Decode декодирует тело сообщения в CheckRequest.
func Decode(body []byte) (*domain.CheckRequest, error) {
	var req domain.CheckRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(req.URLs) == 0 {
		return nil, fmt.Errorf("%w: urls is empty", ErrDecode)
	}
	return &req, nil
}

// HeaderString извлекает строковое значение заголовка.
// AMQP может доставить строку как string или []byte.
func HeaderString(headers map[string]any, key string) string {
	val, ok := headers[key]
	if !ok || val == nil {
		return ""
	}
	switch v := val.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
