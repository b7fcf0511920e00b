package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/hal-health-check/internal/mq"
	"github.com/shaiso/hal-health-check/internal/processor"
	"github.com/shaiso/hal-health-check/internal/telemetry"
)

const defaultPublishTimeout = 30 * time.Second

// BatchProcessor обрабатывает одно сообщение.
type BatchProcessor interface {
	Process(ctx context.Context, body []byte, headers map[string]any) (*processor.Outbound, error)
}

// ResultPublisher публикует результат обработки.
type ResultPublisher interface {
	Publish(ctx context.Context, msg *mq.Message) error
}

// Worker потребляет запросы на проверку и публикует результаты.
type Worker struct {
	// MQ
	conn      *mq.Connection
	queue     string
	publisher ResultPublisher

	processor BatchProcessor

	publishTimeout time.Duration

	// Consumer
	consumer *mq.Consumer

	// Lifecycle
	logger     *slog.Logger
	metrics    *telemetry.Metrics
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	errCh      chan error
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	// MQ
	Conn      *mq.Connection
	Queue     string
	Publisher ResultPublisher

	Processor BatchProcessor

	// PublishTimeout — таймаут публикации результата (default: 30s).
	PublishTimeout time.Duration

	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	publishTimeout := cfg.PublishTimeout
	if publishTimeout <= 0 {
		publishTimeout = defaultPublishTimeout
	}

	queue := cfg.Queue
	if queue == "" {
		queue = string(mq.DefaultQueue)
	}

	return &Worker{
		conn:           cfg.Conn,
		queue:          queue,
		publisher:      cfg.Publisher,
		processor:      cfg.Processor,
		publishTimeout: publishTimeout,
		logger:         logger,
		metrics:        cfg.Metrics,
		errCh:          make(chan error, 1),
	}
}

// Start запускает потребление.
//
// Запускает:
//   - Consumer для входящей очереди
//   - Горутину, следящую за потерей соединения
func (w *Worker) Start(ctx context.Context) error {
	if w.IsStopped() {
		return ErrWorkerStopped
	}

	if w.conn == nil || w.processor == nil || w.publisher == nil {
		return fmt.Errorf("%w: connection, processor and publisher are required", ErrNotConfigured)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker", "queue", w.queue)

	w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
		Queue:    w.queue,
		Handler:  w.handleCheckRequest,
		Prefetch: 1,
		Observe: func(d mq.Disposition) {
			w.metrics.RecordMessage(string(d))
		},
	})

	// Запускаем consumer
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.fail(err)
		}
	}()

	// Следим за соединением
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		select {
		case <-ctx.Done():
		case <-w.conn.Lost():
			w.fail(w.conn.Err())
		}
	}()

	w.logger.Info("worker started")
	return nil
}

// fail сообщает о фатальной ошибке. Учитывается только первая.
func (w *Worker) fail(err error) {
	if err == nil {
		err = mq.ErrConnectionLost
	}
	w.logger.Error("worker failed", "error", err)

	select {
	case w.errCh <- err:
	default:
	}
}

// Err возвращает канал фатальных ошибок (потеря соединения с брокером).
func (w *Worker) Err() <-chan error {
	return w.errCh
}

// Stop останавливает Worker и ждёт завершения сообщения в работе.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	if w.stopped {
		w.stoppedMu.Unlock()
		return
	}
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.consumer != nil {
		w.consumer.Stop()
	}
	if w.cancelFunc != nil {
		w.cancelFunc()
	}

	// Ждём завершения горутин
	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}

// Ready — воркер запущен и соединение с брокером живо.
func (w *Worker) Ready() bool {
	if w.IsStopped() || w.conn == nil {
		return false
	}
	return w.conn.IsConnected()
}
