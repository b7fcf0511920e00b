package mq

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection — обёртка над AMQP соединением.
//
// Особенности:
//   - Два канала: для потребления и для публикации
//   - Publish-канал в режиме publisher confirms
//   - Потеря соединения или любого канала сообщается через Lost()
//   - Graceful shutdown
type Connection struct {
	logger *slog.Logger

	mu         sync.RWMutex
	conn       *amqp.Connection
	channel    *amqp.Channel
	pubChannel *amqp.Channel

	closed   bool
	closedCh chan struct{}

	lostOnce sync.Once
	lostCh   chan struct{}
	lostErr  error
}

// NewConnection создаёт новое соединение с RabbitMQ.
func NewConnection(url string, logger *slog.Logger) (*Connection, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Connection{
		logger:   logger,
		closedCh: make(chan struct{}),
		lostCh:   make(chan struct{}),
	}

	if err := c.connect(url); err != nil {
		return nil, err
	}

	// Следим за закрытием соединения и каналов
	go c.watch()

	return c, nil
}

// connect устанавливает соединение и открывает каналы.
func (c *Connection) connect(url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := amqp.Dial(url)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	pub, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open publish channel: %w", err)
	}

	if err := pub.Confirm(false); err != nil {
		conn.Close()
		return fmt.Errorf("enable publisher confirms: %w", err)
	}

	c.conn = conn
	c.channel = ch
	c.pubChannel = pub

	c.logger.Info("connected to RabbitMQ")

	return nil
}

// watch ждёт закрытия соединения или любого из каналов.
func (c *Connection) watch() {
	c.mu.RLock()
	connClose := c.conn.NotifyClose(make(chan *amqp.Error, 1))
	chClose := c.channel.NotifyClose(make(chan *amqp.Error, 1))
	pubClose := c.pubChannel.NotifyClose(make(chan *amqp.Error, 1))
	c.mu.RUnlock()

	var amqpErr *amqp.Error
	select {
	case <-c.closedCh:
		return
	case amqpErr = <-connClose:
	case amqpErr = <-chClose:
	case amqpErr = <-pubClose:
	}

	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return
	}

	err := ErrConnectionLost
	if amqpErr != nil {
		err = fmt.Errorf("%w: %v", ErrConnectionLost, amqpErr)
	}

	c.logger.Error("connection lost", "error", err)
	c.markLost(err)
}

func (c *Connection) markLost(err error) {
	c.lostOnce.Do(func() {
		c.mu.Lock()
		c.lostErr = err
		c.mu.Unlock()
		close(c.lostCh)
	})
}

// Lost закрывается, когда соединение или канал потеряны.
func (c *Connection) Lost() <-chan struct{} {
	return c.lostCh
}

// Err возвращает причину потери соединения (nil, пока соединение живо).
func (c *Connection) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lostErr
}

// Channel возвращает канал для потребления.
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// Close закрывает соединение.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.closedCh)

	var errs []error

	for _, ch := range []*amqp.Channel{c.pubChannel, c.channel} {
		if ch == nil || ch.IsClosed() {
			continue
		}
		if err := ch.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}

	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}

	c.logger.Info("connection closed")
	return nil
}

// IsConnected проверяет, установлено ли соединение.
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.conn == nil || c.closed || c.lostErr != nil {
		return false
	}

	return !c.conn.IsClosed()
}

// WithChannel выполняет функцию с каналом потребления.
func (c *Connection) WithChannel(ctx context.Context, fn func(ch *amqp.Channel) error) error {
	c.mu.RLock()
	ch := c.channel
	c.mu.RUnlock()

	if ch == nil {
		return ErrNoChannel
	}

	return fn(ch)
}

// WithPublishChannel выполняет функцию с каналом публикации.
func (c *Connection) WithPublishChannel(ctx context.Context, fn func(ch *amqp.Channel) error) error {
	c.mu.RLock()
	ch := c.pubChannel
	c.mu.RUnlock()

	if ch == nil {
		return ErrNoChannel
	}

	return fn(ch)
}

// URLConfig — параметры подключения, если RABBITMQ_URL не задан.
type URLConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	VHost    string
	SSL      bool
}

// BuildURL собирает AMQP URL. SSL=true — схема amqps.
func BuildURL(cfg URLConfig) string {
	scheme := "amqp"
	if cfg.SSL {
		scheme = "amqps"
	}

	port := cfg.Port
	if port <= 0 {
		port = 5672
		if cfg.SSL {
			port = 5671
		}
	}

	u := url.URL{
		Scheme: scheme,
		User:   url.UserPassword(cfg.Username, cfg.Password),
		Host:   cfg.Host + ":" + strconv.Itoa(port),
		Path:   "/" + cfg.VHost,
	}
	return u.String()
}
