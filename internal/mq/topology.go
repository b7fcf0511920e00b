package mq

import (
	"context"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// Имена по умолчанию.
const (
	DefaultQueue    Queue    = "hal-health-check"
	DefaultExchange Exchange = "hal-health-check-exchange"
)

// Topology — описание объектов брокера, которые использует воркер.
type Topology struct {
	// Queue — входящая очередь с запросами.
	Queue Queue

	// Exchange — headers exchange для результатов.
	Exchange Exchange

	// ResultsQueue — очередь, привязанная к Exchange (опционально).
	ResultsQueue Queue

	// DeadLetterExchange — куда уходят отклонённые сообщения (опционально).
	// Если задан, объявляется fanout exchange и очередь "<Queue>.dlq".
	DeadLetterExchange Exchange
}

// DeadLetterQueue возвращает имя DLQ.
func (t Topology) DeadLetterQueue() Queue {
	return t.Queue + ".dlq"
}

// SetupTopology объявляет exchanges, очереди и bindings.
func SetupTopology(ctx context.Context, conn *Connection, t Topology) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		return declare(ch, t)
	})
}

// channelDeclarer — подмножество amqp.Channel для объявления топологии.
type channelDeclarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

func declare(ch channelDeclarer, t Topology) error {
	// 1. Exchange для результатов
	if err := ch.ExchangeDeclare(
		string(t.Exchange), // name
		amqp.ExchangeHeaders,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return fmt.Errorf("declare exchange %s: %w", t.Exchange, err)
	}

	// 2. Dead letter
	var queueArgs amqp.Table
	if t.DeadLetterExchange != "" {
		if err := ch.ExchangeDeclare(string(t.DeadLetterExchange), amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", t.DeadLetterExchange, err)
		}
		if _, err := ch.QueueDeclare(string(t.DeadLetterQueue()), true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", t.DeadLetterQueue(), err)
		}
		if err := ch.QueueBind(string(t.DeadLetterQueue()), "", string(t.DeadLetterExchange), false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", t.DeadLetterQueue(), t.DeadLetterExchange, err)
		}
		queueArgs = amqp.Table{
			"x-dead-letter-exchange": string(t.DeadLetterExchange),
		}
	}

	// 3. Входящая очередь
	if _, err := ch.QueueDeclare(
		string(t.Queue), // name
		true,            // durable
		false,           // delete when unused
		false,           // exclusive
		false,           // no-wait
		queueArgs,       // arguments
	); err != nil {
		return fmt.Errorf("declare queue %s: %w", t.Queue, err)
	}

	// 4. Очередь результатов: x-match=all без заголовков — получает всё
	if t.ResultsQueue != "" {
		if _, err := ch.QueueDeclare(string(t.ResultsQueue), true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", t.ResultsQueue, err)
		}
		if err := ch.QueueBind(string(t.ResultsQueue), "", string(t.Exchange), false, amqp.Table{"x-match": "all"}); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", t.ResultsQueue, t.Exchange, err)
		}
	}

	return nil
}

// Info возвращает описание топологии для логирования.
func (t Topology) Info() string {
	var b strings.Builder
	fmt.Fprintf(&b, "queue %s → worker → %s (headers)", t.Queue, t.Exchange)
	if t.ResultsQueue != "" {
		fmt.Fprintf(&b, " → %s [x-match: all]", t.ResultsQueue)
	}
	if t.DeadLetterExchange != "" {
		fmt.Fprintf(&b, "; rejected → %s (fanout) → %s", t.DeadLetterExchange, t.DeadLetterQueue())
	}
	return b.String()
}
