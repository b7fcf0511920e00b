// Package probe выполняет HTTP-проверку доступности одного URL.
package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shaiso/hal-health-check/internal/domain"
)

const (
	defaultDelay   = time.Second
	defaultTimeout = 30 * time.Second

	// drainLimit ограничивает чтение тела ответа перед закрытием (для keep-alive).
	drainLimit = 64 << 10
)

// Result — результат проверки вместе с данными для метрик.
type Result struct {
	domain.CheckResult

	// Duration — длительность HTTP-запроса без учёта pre-delay.
	Duration time.Duration

	// Err — транспортная ошибка, если ответа не было.
	Err error
}

// Config — конфигурация Executor.
type Config struct {
	// Delay — пауза перед запросом (default: 1s).
	// Сглаживает одновременный старт множества проверок одного хоста.
	Delay time.Duration

	// Timeout — таймаут одного запроса (default: 30s).
	Timeout time.Duration

	// Client — HTTP-клиент (опционально).
	Client *http.Client
}

// Executor выполняет одну проверку: GET с Content-Type: application/json.
type Executor struct {
	client  *http.Client
	delay   time.Duration
	timeout time.Duration
	now     func() time.Time
}

// New создаёт Executor.
func New(cfg Config) *Executor {
	delay := cfg.Delay
	if delay <= 0 {
		delay = defaultDelay
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}

	return &Executor{
		client:  client,
		delay:   delay,
		timeout: timeout,
		now:     time.Now,
	}
}

// Probe выполняет проверку URL.
//
// Транспортная ошибка не возвращается отдельно: результат получает
// статус domain.StatusUnreachable и текст ошибки.
func (e *Executor) Probe(ctx context.Context, rawURL string) Result {
	// Context-aware ожидание
	select {
	case <-time.After(e.delay):
	case <-ctx.Done():
		return e.failed(rawURL, 0, fmt.Errorf("%w: %v", ErrProbeCancelled, ctx.Err()))
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return e.failed(rawURL, 0, fmt.Errorf("%w: create request: %v", ErrRequest, err))
	}
	req.Header.Set("Content-Type", "application/json")

	start := e.now()
	resp, err := e.client.Do(req)
	elapsed := e.now().Sub(start)
	if err != nil {
		return e.failed(rawURL, elapsed, fmt.Errorf("%w: %v", ErrRequest, err))
	}
	defer resp.Body.Close()

	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit)); err != nil {
		slog.Debug("drain response body", "url", rawURL, "error", err)
	}

	return Result{
		CheckResult: domain.CheckResult{
			URL:       rawURL,
			Status:    strconv.Itoa(resp.StatusCode),
			Timestamp: domain.FormatInstant(e.now()),
		},
		Duration: elapsed,
	}
}

func (e *Executor) failed(rawURL string, elapsed time.Duration, err error) Result {
	return Result{
		CheckResult: domain.NewFailedResult(rawURL, e.now(), err),
		Duration:    elapsed,
		Err:         err,
	}
}
