package mq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

type fakeAck struct {
	acks    int
	nacks   int
	requeue bool
	err     error
}

func (f *fakeAck) Ack(bool) error {
	f.acks++
	return f.err
}

func (f *fakeAck) Nack(_, requeue bool) error {
	f.nacks++
	f.requeue = requeue
	return f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- dispose Tests ---

func TestDispose(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		want        Disposition
		wantAcks    int
		wantNacks   int
		wantRequeue bool
	}{
		{"success acks", nil, DispositionAcked, 1, 0, false},
		{"reject drops", fmt.Errorf("%w: bad json", ErrReject), DispositionRejected, 0, 1, false},
		{"failure requeues", errors.New("publish failed"), DispositionRequeued, 0, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var observed []Disposition
			c := NewConsumer(nil, discardLogger(), ConsumerConfig{
				Queue:   "q",
				Observe: func(d Disposition) { observed = append(observed, d) },
			})
			ack := &fakeAck{}

			got := c.dispose(ack, 1, tt.err)

			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
			if ack.acks != tt.wantAcks || ack.nacks != tt.wantNacks {
				t.Errorf("expected %d acks / %d nacks, got %d / %d", tt.wantAcks, tt.wantNacks, ack.acks, ack.nacks)
			}
			if ack.requeue != tt.wantRequeue {
				t.Errorf("expected requeue=%v, got %v", tt.wantRequeue, ack.requeue)
			}
			if len(observed) != 1 || observed[0] != tt.want {
				t.Errorf("expected observed [%s], got %v", tt.want, observed)
			}
		})
	}
}

func TestDispose_SettleErrorStillObserved(t *testing.T) {
	var observed int
	c := NewConsumer(nil, discardLogger(), ConsumerConfig{Observe: func(Disposition) { observed++ }})

	c.dispose(&fakeAck{err: amqp.ErrClosed}, 1, nil)

	if observed != 1 {
		t.Errorf("expected disposition to be observed, got %d", observed)
	}
}

// --- Consumer Tests ---

func TestNewConsumer_Defaults(t *testing.T) {
	c := NewConsumer(nil, nil, ConsumerConfig{Queue: "q"})

	if c.prefetch != 1 {
		t.Errorf("expected prefetch 1, got %d", c.prefetch)
	}
	if c.logger == nil || c.observe == nil {
		t.Error("logger and observe should be initialized")
	}
}

func TestConsumer_StartWithoutConnection(t *testing.T) {
	c := NewConsumer(nil, discardLogger(), ConsumerConfig{Queue: "q"})

	if err := c.Start(context.Background()); !errors.Is(err, ErrNoChannel) {
		t.Errorf("expected ErrNoChannel, got %v", err)
	}
}

func TestProcessDeliveries_ClosedChannel(t *testing.T) {
	c := NewConsumer(nil, discardLogger(), ConsumerConfig{Queue: "q"})

	deliveries := make(chan amqp.Delivery)
	close(deliveries)

	err := c.processDeliveries(context.Background(), deliveries)
	if !errors.Is(err, ErrConnectionLost) {
		t.Errorf("expected ErrConnectionLost, got %v", err)
	}
}

func TestProcessDeliveries_ContextCancel(t *testing.T) {
	c := NewConsumer(nil, discardLogger(), ConsumerConfig{Queue: "q"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.processDeliveries(ctx, make(chan amqp.Delivery))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// amqpAck — реализация amqp.Acknowledger для доставок в тестах.
type amqpAck struct {
	acked   []uint64
	nacked  []uint64
	requeue bool
}

func (a *amqpAck) Ack(tag uint64, _ bool) error {
	a.acked = append(a.acked, tag)
	return nil
}

func (a *amqpAck) Nack(tag uint64, _ bool, requeue bool) error {
	a.nacked = append(a.nacked, tag)
	a.requeue = requeue
	return nil
}

func (a *amqpAck) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func TestHandleDelivery_PassesMessageAndSettles(t *testing.T) {
	var got *Delivery
	c := NewConsumer(nil, discardLogger(), ConsumerConfig{
		Queue: "q",
		Handler: func(_ context.Context, d *Delivery) error {
			got = d
			return nil
		},
	})
	ack := &amqpAck{}

	c.handleDelivery(context.Background(), &amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  7,
		Redelivered:  true,
		Headers:      amqp.Table{"trace-id": "t1"},
		Body:         []byte(`{}`),
	})

	if got == nil {
		t.Fatal("handler was not called")
	}
	if !got.Redelivered || got.Headers["trace-id"] != "t1" || string(got.Body) != `{}` {
		t.Errorf("unexpected delivery: %+v", got)
	}
	if len(ack.acked) != 1 || ack.acked[0] != 7 {
		t.Errorf("expected ack of tag 7, got %v", ack.acked)
	}
}

func TestConsumer_Stop(t *testing.T) {
	c := NewConsumer(nil, discardLogger(), ConsumerConfig{Queue: "q"})
	c.Stop() // до Start — no-op

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.cancelFunc = cancel

	c.Stop()

	if ctx.Err() == nil {
		t.Error("Stop should cancel the consume context")
	}
}
