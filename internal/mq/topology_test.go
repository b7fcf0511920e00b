package mq

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	amqp "github.com/rabbitmq/amqp091-go"
)

type declared struct {
	Kind string // exchange | queue | bind
	Name string
	Type string
	Args amqp.Table
}

type fakeDeclarer struct {
	calls   []declared
	failOn  string
	failErr error
}

func (f *fakeDeclarer) ExchangeDeclare(name, kind string, _, _, _, _ bool, args amqp.Table) error {
	f.calls = append(f.calls, declared{Kind: "exchange", Name: name, Type: kind, Args: args})
	if name == f.failOn {
		return f.failErr
	}
	return nil
}

func (f *fakeDeclarer) QueueDeclare(name string, _, _, _, _ bool, args amqp.Table) (amqp.Queue, error) {
	f.calls = append(f.calls, declared{Kind: "queue", Name: name, Args: args})
	if name == f.failOn {
		return amqp.Queue{}, f.failErr
	}
	return amqp.Queue{Name: name}, nil
}

func (f *fakeDeclarer) QueueBind(name, _, exchange string, _ bool, args amqp.Table) error {
	f.calls = append(f.calls, declared{Kind: "bind", Name: name + "->" + exchange, Args: args})
	return nil
}

func TestDeclare_Minimal(t *testing.T) {
	ch := &fakeDeclarer{}

	if err := declare(ch, Topology{Queue: DefaultQueue, Exchange: DefaultExchange}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []declared{
		{Kind: "exchange", Name: "hal-health-check-exchange", Type: amqp.ExchangeHeaders},
		{Kind: "queue", Name: "hal-health-check"},
	}
	if diff := cmp.Diff(want, ch.calls); diff != "" {
		t.Errorf("declarations mismatch (-want +got):\n%s", diff)
	}
}

func TestDeclare_Full(t *testing.T) {
	ch := &fakeDeclarer{}
	topo := Topology{
		Queue:              "checks",
		Exchange:           "results-x",
		ResultsQueue:       "results",
		DeadLetterExchange: "dlx",
	}

	if err := declare(ch, topo); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []declared{
		{Kind: "exchange", Name: "results-x", Type: amqp.ExchangeHeaders},
		{Kind: "exchange", Name: "dlx", Type: amqp.ExchangeFanout},
		{Kind: "queue", Name: "checks.dlq"},
		{Kind: "bind", Name: "checks.dlq->dlx"},
		{Kind: "queue", Name: "checks", Args: amqp.Table{"x-dead-letter-exchange": "dlx"}},
		{Kind: "queue", Name: "results"},
		{Kind: "bind", Name: "results->results-x", Args: amqp.Table{"x-match": "all"}},
	}
	if diff := cmp.Diff(want, ch.calls); diff != "" {
		t.Errorf("declarations mismatch (-want +got):\n%s", diff)
	}
}

func TestDeclare_Error(t *testing.T) {
	boom := errors.New("access refused")
	ch := &fakeDeclarer{failOn: "checks", failErr: boom}

	err := declare(ch, Topology{Queue: "checks", Exchange: "x"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if !strings.Contains(err.Error(), "checks") {
		t.Errorf("error should name the queue: %v", err)
	}
}

func TestTopology_Info(t *testing.T) {
	info := Topology{Queue: "q", Exchange: "x", ResultsQueue: "r", DeadLetterExchange: "dlx"}.Info()

	for _, part := range []string{"q", "x", "r [x-match: all]", "dlx", "q.dlq"} {
		if !strings.Contains(info, part) {
			t.Errorf("info %q should contain %q", info, part)
		}
	}
}
