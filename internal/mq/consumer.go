package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler — функция обработки сообщения.
//
// nil — ack. Ошибка, обёрнутая в ErrReject, — nack без requeue.
// Любая другая ошибка — nack с requeue.
type Handler func(ctx context.Context, msg *Delivery) error

// Delivery — доставленное сообщение.
type Delivery struct {
	// Body — тело сообщения.
	Body []byte

	// Headers — заголовки AMQP.
	Headers map[string]any

	// Redelivered — сообщение доставлено повторно (после nack с requeue).
	Redelivered bool
}

// Disposition — что сделано с сообщением после обработки.
type Disposition string

const (
	DispositionAcked    Disposition = "acked"
	DispositionRejected Disposition = "rejected"
	DispositionRequeued Disposition = "requeued"
)

// acknowledger — подмножество amqp.Delivery для ack/nack (подменяется в тестах).
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Consumer потребляет сообщения из очереди RabbitMQ.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    string
	handler  Handler
	prefetch int
	observe  func(Disposition)

	mu         sync.Mutex
	cancelFunc context.CancelFunc
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	// Queue — имя очереди.
	Queue string

	// Handler — обработчик сообщений.
	Handler Handler

	// Prefetch — количество сообщений для предварительной загрузки (default: 1).
	Prefetch int

	// Observe — вызывается после ack/nack (опционально, для метрик).
	Observe func(Disposition)
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	if logger == nil {
		logger = slog.Default()
	}

	observe := cfg.Observe
	if observe == nil {
		observe = func(Disposition) {}
	}

	return &Consumer{
		conn:     conn,
		logger:   logger,
		queue:    cfg.Queue,
		handler:  cfg.Handler,
		prefetch: prefetch,
		observe:  observe,
	}
}

// Start запускает потребление и блокируется до отмены ctx или потери канала.
//
// Возвращает ctx.Err() при штатной остановке и ErrConnectionLost,
// если канал доставки закрылся.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancelFunc = cancel
	c.mu.Unlock()
	defer cancel()

	deliveries, err := c.setupConsume()
	if err != nil {
		return err
	}

	c.logger.Info("consumer started", "queue", c.queue, "prefetch", c.prefetch)

	return c.processDeliveries(ctx, deliveries)
}

// setupConsume настраивает канал и начинает потребление.
func (c *Consumer) setupConsume() (<-chan amqp.Delivery, error) {
	if c.conn == nil {
		return nil, ErrNoChannel
	}

	ch := c.conn.Channel()
	if ch == nil {
		return nil, ErrNoChannel
	}

	// Устанавливаем prefetch
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	// Начинаем потребление
	deliveries, err := ch.Consume(
		c.queue, // queue
		"",      // consumer tag (auto-generated)
		false,   // auto-ack (мы ack вручную)
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}

	return deliveries, nil
}

// processDeliveries обрабатывает сообщения из канала по одному.
func (c *Consumer) processDeliveries(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("%w: deliveries channel closed", ErrConnectionLost)
			}

			c.handleDelivery(ctx, &raw)
		}
	}
}

// handleDelivery обрабатывает одно сообщение.
func (c *Consumer) handleDelivery(ctx context.Context, raw *amqp.Delivery) {
	delivery := &Delivery{
		Body:        raw.Body,
		Headers:     map[string]any(raw.Headers),
		Redelivered: raw.Redelivered,
	}

	c.logger.Debug("received message",
		"queue", c.queue,
		"delivery_tag", raw.DeliveryTag,
		"redelivered", raw.Redelivered,
	)

	c.dispose(raw, raw.DeliveryTag, c.handler(ctx, delivery))
}

// dispose подтверждает или отклоняет сообщение по результату handler.
func (c *Consumer) dispose(ack acknowledger, tag uint64, err error) Disposition {
	var (
		disposition Disposition
		ackErr      error
	)

	switch {
	case err == nil:
		disposition = DispositionAcked
		ackErr = ack.Ack(false)

	case errors.Is(err, ErrReject):
		// Некорректное сообщение — в DLQ (или отбрасывается брокером)
		c.logger.Error("message rejected",
			"queue", c.queue,
			"delivery_tag", tag,
			"error", err,
		)
		disposition = DispositionRejected
		ackErr = ack.Nack(false, false)

	default:
		// Ошибка обработки — возвращаем в очередь
		c.logger.Error("handler failed, requeueing",
			"queue", c.queue,
			"delivery_tag", tag,
			"error", err,
		)
		disposition = DispositionRequeued
		ackErr = ack.Nack(false, true)
	}

	if ackErr != nil {
		c.logger.Error("failed to settle message",
			"queue", c.queue,
			"delivery_tag", tag,
			"disposition", disposition,
			"error", ackErr,
		)
	}

	c.observe(disposition)
	return disposition
}

// Stop останавливает consumer.
func (c *Consumer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
}
