package dns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/shaiso/hal-health-check/internal/telemetry"
)

const (
	// DefaultTTL — TTL создаваемой A-записи в секундах.
	DefaultTTL int64 = 300

	defaultReconcileTimeout = 30 * time.Second
)

// Outcome — итог одной сверки. Используется только для логов и метрик.
type Outcome string

const (
	OutcomeNoRecord Outcome = "no_record"
	OutcomeInSync   Outcome = "in_sync"
	OutcomeUpdated  Outcome = "updated"
	OutcomeFailed   Outcome = "failed"
)

// Config — конфигурация Reconciler.
type Config struct {
	Resolver Resolver
	PublicIP PublicIPFetcher
	Upserter Upserter

	// TTL — TTL записи (default: 300).
	TTL int64

	// Timeout — общий таймаут одной сверки (default: 30s).
	Timeout time.Duration

	Logger *slog.Logger
}

// Reconciler приводит A-запись хоста к публичному IP воркера.
type Reconciler struct {
	resolver Resolver
	publicIP PublicIPFetcher
	upserter Upserter
	ttl      int64
	timeout  time.Duration
	logger   *slog.Logger
}

// NewReconciler создаёт Reconciler.
func NewReconciler(cfg Config) *Reconciler {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultReconcileTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	resolver := cfg.Resolver
	if resolver == nil {
		resolver = NewNetResolver(nil)
	}

	return &Reconciler{
		resolver: resolver,
		publicIP: cfg.PublicIP,
		upserter: cfg.Upserter,
		ttl:      ttl,
		timeout:  timeout,
		logger:   logger,
	}
}

// Reconcile сверяет DNS для хоста из rawURL и при расхождении обновляет запись.
// Ошибки не возвращаются: они логируются, итог отражается в Outcome.
func (r *Reconciler) Reconcile(ctx context.Context, rawURL, zoneID string) Outcome {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	logger := telemetry.FromContextOr(ctx, r.logger).With("url", rawURL, "zone_id", zoneID)

	host, err := hostOf(rawURL)
	if err != nil {
		logger.Warn("dns reconcile skipped", "error", err)
		return OutcomeFailed
	}
	logger = logger.With("host", host)

	// 1. Текущие адреса хоста
	ips, err := r.resolver.LookupIPv4(ctx, host)
	if err != nil {
		logger.Warn("dns resolve failed", "error", err)
		return OutcomeFailed
	}
	if len(ips) == 0 {
		logger.Info("dns reconcile skipped", "reason", ErrNoIPv4)
		return OutcomeNoRecord
	}

	// 2. Публичный IP воркера
	if r.publicIP == nil {
		logger.Warn("dns reconcile skipped", "reason", "public ip fetcher not configured")
		return OutcomeFailed
	}
	publicIP, err := r.publicIP.PublicIPv4(ctx)
	if err != nil {
		logger.Warn("public ip lookup failed", "error", err)
		return OutcomeFailed
	}

	// 3. Повторный резолв для сравнения
	current, err := r.resolver.LookupIPv4(ctx, host)
	if err != nil {
		logger.Warn("dns resolve failed", "error", err)
		return OutcomeFailed
	}
	if len(current) == 0 {
		logger.Info("dns reconcile skipped", "reason", ErrNoIPv4)
		return OutcomeNoRecord
	}

	currentIP := current[0]
	logger = logger.With("current_ip", currentIP.String(), "public_ip", publicIP.String())

	if currentIP.Equal(publicIP) {
		logger.Debug("dns record in sync")
		return OutcomeInSync
	}

	// 4. UPSERT
	if r.upserter == nil {
		logger.Warn("dns record stale, upserter not configured")
		return OutcomeFailed
	}

	changeID, err := r.upserter.UpsertARecord(ctx, zoneID, host+".", publicIP.String(), r.ttl)
	if err != nil && changeID != "" && errors.Is(err, ErrSyncPending) {
		// запись уже изменена, не дождались только распространения
		logger.Warn("dns record updated, change not in sync yet", "change_id", changeID, "error", err)
		return OutcomeUpdated
	}
	if err != nil {
		logger.Error("dns upsert failed", "error", err)
		return OutcomeFailed
	}

	logger.Info("dns record updated", "change_id", changeID, "ttl", r.ttl)
	return OutcomeUpdated
}

// hostOf извлекает хост из URL.
func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidHost, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidHost, rawURL)
	}
	return u.Hostname(), nil
}
