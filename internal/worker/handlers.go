package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaiso/hal-health-check/internal/domain"
	"github.com/shaiso/hal-health-check/internal/mq"
	"github.com/shaiso/hal-health-check/internal/processor"
	"github.com/shaiso/hal-health-check/internal/telemetry"
)

// handleCheckRequest обрабатывает сообщение из входящей очереди.
func (w *Worker) handleCheckRequest(ctx context.Context, delivery *mq.Delivery) error {
	// Сообщение в работе дообрабатывается даже при остановке воркера
	ctx = context.WithoutCancel(ctx)

	traceID := processor.HeaderString(delivery.Headers, domain.HeaderTraceID)
	logger := telemetry.WithTraceID(w.logger, traceID)

	logger.Info("message received",
		"event", processor.HeaderString(delivery.Headers, domain.HeaderEvent),
		"bytes", len(delivery.Body),
		"redelivered", delivery.Redelivered,
	)

	// 1. Обработка batch
	out, err := w.processor.Process(ctx, delivery.Body, delivery.Headers)
	if err != nil {
		if errors.Is(err, processor.ErrDecode) {
			logger.Error("invalid check request", "error", err)
			return fmt.Errorf("%w: %w", mq.ErrReject, err)
		}
		logger.Error("failed to process check request", "error", err)
		return err
	}

	// 2. Публикация результата
	pubCtx, cancel := context.WithTimeout(ctx, w.publishTimeout)
	defer cancel()

	msg := &mq.Message{
		Body:          out.Body,
		Headers:       out.Headers,
		CorrelationID: out.Envelope.TraceID,
		Timestamp:     out.Envelope.EmittedAt,
	}
	if err := w.publisher.Publish(pubCtx, msg); err != nil {
		logger.Error("failed to publish result", "error", err)
		return fmt.Errorf("publish result: %w", err)
	}

	logger.Info("message processed",
		"event", out.Headers[domain.HeaderEvent],
		"results", len(out.Response.Results),
	)

	return nil
}
