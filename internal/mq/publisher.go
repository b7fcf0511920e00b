package mq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher публикует результаты в exchange.
type Publisher struct {
	conn     *Connection
	exchange Exchange
	logger   *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, exchange Exchange, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:     conn,
		exchange: exchange,
		logger:   logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// Body — JSON тело.
	Body []byte

	// Headers — заголовки (event, trace-id, date).
	Headers map[string]any

	// CorrelationID — trace-id входящего сообщения.
	CorrelationID string

	// Timestamp — время создания.
	Timestamp time.Time
}

// Publish публикует сообщение и ждёт подтверждения брокера.
func (p *Publisher) Publish(ctx context.Context, msg *Message) error {
	pub := buildPublishing(msg)

	return p.conn.WithPublishChannel(ctx, func(ch *amqp.Channel) error {
		confirm, err := ch.PublishWithDeferredConfirmWithContext(
			ctx,
			string(p.exchange), // exchange
			"",                 // routing key (headers exchange)
			false,              // mandatory
			false,              // immediate
			pub,
		)
		if err != nil {
			return fmt.Errorf("publish to %s: %w", p.exchange, err)
		}

		if confirm != nil {
			acked, err := confirm.WaitContext(ctx)
			if err != nil {
				return fmt.Errorf("wait confirm from %s: %w", p.exchange, err)
			}
			if !acked {
				return fmt.Errorf("%w: exchange %s", ErrPublishNotConfirmed, p.exchange)
			}
		}

		p.logger.Debug("published message",
			"exchange", p.exchange,
			"message_id", pub.MessageId,
			"correlation_id", pub.CorrelationId,
			"event", pub.Headers["event"],
		)

		return nil
	})
}

// buildPublishing собирает AMQP publishing из Message.
func buildPublishing(msg *Message) amqp.Publishing {
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return amqp.Publishing{
		Headers:       amqp.Table(msg.Headers),
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
		MessageId:     uuid.New().String(),
		CorrelationId: msg.CorrelationID,
		Timestamp:     ts,
		Body:          msg.Body,
	}
}
