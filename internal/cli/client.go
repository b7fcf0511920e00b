package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/hal-health-check/internal/domain"
	"github.com/shaiso/hal-health-check/internal/processor"
)

// StartedEvent — значение заголовка event у запроса.
const StartedEvent = "health-check:started"

var (
	// ErrResultTimeout — результат не пришёл за отведённое время.
	ErrResultTimeout = errors.New("result not received")

	// ErrReplyClosed — канал доставки ответов закрылся до получения результата.
	ErrReplyClosed = errors.New("reply channel closed")
)

// Result — полученный из очереди результатов ответ воркера.
type Result struct {
	Event    string               `json:"event"`
	TraceID  string               `json:"trace_id"`
	Date     string               `json:"date"`
	Response domain.CheckResponse `json:"response"`
}

// Client публикует запросы и читает результаты напрямую через AMQP.
type Client struct {
	url      string
	queue    string
	exchange string
}

// NewClient создаёт Client. exchange — headers exchange с результатами воркера.
func NewClient(url, queue, exchange string) *Client {
	return &Client{url: url, queue: queue, exchange: exchange}
}

// Check публикует запрос и, если wait, ждёт ответ с тем же trace-id.
// Без wait возвращает (nil, nil) сразу после публикации.
//
// Ответ приходит в exclusive очередь этого вызова, привязанную к exchange
// по заголовку trace-id: фильтрует брокер, чужие результаты сюда не попадают.
func (c *Client) Check(ctx context.Context, req domain.CheckRequest, traceID string, wait bool, timeout time.Duration) (*Result, error) {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	// Очередь ответа объявляется до публикации, иначе быстрый ответ потеряется
	var replies <-chan amqp.Delivery
	if wait {
		replies, err = c.subscribe(ch, traceID)
		if err != nil {
			return nil, err
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	err = ch.PublishWithContext(ctx, "", c.queue, false, false, amqp.Publishing{
		Headers: amqp.Table{
			domain.HeaderEvent:   StartedEvent,
			domain.HeaderTraceID: traceID,
			domain.HeaderDate:    domain.FormatInstant(time.Now()),
		},
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return nil, fmt.Errorf("publish to %s: %w", c.queue, err)
	}

	if !wait {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return await(ctx, replies, traceID)
}

// subscribe объявляет exclusive auto-delete очередь для ответа и начинает потребление.
func (c *Client) subscribe(ch *amqp.Channel, traceID string) (<-chan amqp.Delivery, error) {
	q, err := ch.QueueDeclare(
		"",    // name (генерирует брокер)
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("declare reply queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "", c.exchange, false, replyBinding(traceID)); err != nil {
		return nil, fmt.Errorf("bind reply queue to %s: %w", c.exchange, err)
	}

	// auto-ack: очередь принадлежит только этому вызову
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume reply queue: %w", err)
	}

	return deliveries, nil
}

// replyBinding — аргументы привязки, выбирающие результаты одного запроса.
func replyBinding(traceID string) amqp.Table {
	return amqp.Table{
		"x-match":            "all",
		domain.HeaderTraceID: traceID,
	}
}

// await ждёт доставку с нужным trace-id.
func await(ctx context.Context, deliveries <-chan amqp.Delivery, traceID string) (*Result, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: trace-id %s", ErrResultTimeout, traceID)

		case msg, ok := <-deliveries:
			if !ok {
				return nil, fmt.Errorf("%w: trace-id %s", ErrReplyClosed, traceID)
			}
			if processor.HeaderString(msg.Headers, domain.HeaderTraceID) != traceID {
				continue
			}
			return decodeResult(msg.Headers, msg.Body)
		}
	}
}

// decodeResult собирает Result из заголовков и тела.
func decodeResult(headers map[string]any, body []byte) (*Result, error) {
	var resp domain.CheckResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &Result{
		Event:    processor.HeaderString(headers, domain.HeaderEvent),
		TraceID:  processor.HeaderString(headers, domain.HeaderTraceID),
		Date:     processor.HeaderString(headers, domain.HeaderDate),
		Response: resp,
	}, nil
}
