package worker

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wb-go/wbf/zlog"

	"github.com/alexkarpov/image-hosting/internal/model"
)

// consumer defines the broker operations the worker needs.
type consumer interface {
	Consume(queue string) (<-chan amqp.Delivery, error)
}

// jobProcessor runs the transformation pipeline for one job.
type jobProcessor interface {
	Apply(ctx context.Context, job model.Job) error
}

// logPublisher emits worker-side telemetry onto logging.workers.
type logPublisher interface {
	Error(ctx context.Context, text string)
}

// Worker consumes image modification jobs from the job queue. Several worker
// processes may consume the same queue as competing consumers; the broker
// hands each job to exactly one of them.
type Worker struct {
	client    consumer
	processor jobProcessor
	logs      logPublisher
	queue     string
}

// New creates a worker reading from the named job queue.
func New(c consumer, p jobProcessor, logs logPublisher, queue string) *Worker {
	return &Worker{client: c, processor: p, logs: logs, queue: queue}
}

// Run consumes jobs until the context is canceled. One job is fully
// processed, including blocking image I/O and the super-resolution call,
// before the next is taken from the channel.
func (w *Worker) Run(ctx context.Context) error {
	msgs, err := w.client.Consume(w.queue)
	if err != nil {
		return fmt.Errorf("consume %s: %w", w.queue, err)
	}

	zlog.Logger.Info().Str("queue", w.queue).Msg("worker started")

	for {
		select {
		case <-ctx.Done():
			zlog.Logger.Info().Msg("shutdown signal received, stopping worker")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", w.queue)
			}
			w.handle(ctx, msg)
		}
	}
}

// handle runs one job to completion and acknowledges it in every outcome.
// A failed job is logged to the workers queue and dropped: there is no retry
// and no dead-letter queue, so one attempt produces either a modified image
// or one ERROR event. The broker may still redeliver a job whose consumer
// crashed before the ack; the pipeline then re-runs in full on the current
// file contents, since jobs carry no idempotency key.
func (w *Worker) handle(ctx context.Context, msg amqp.Delivery) {
	var job model.Job
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		w.logs.Error(ctx, fmt.Sprintf("Received malformed job, reason: %v", err))
		w.ack(msg)
		return
	}

	if err := w.processor.Apply(ctx, job); err != nil {
		// A bad path never becomes good; acknowledging keeps the job from
		// being redelivered forever.
		w.logs.Error(ctx, fmt.Sprintf("Image could not be modified, reason: %v", err))
		w.ack(msg)
		return
	}

	// No success event is published; downstream consumers only see failures.
	zlog.Logger.Debug().Str("path", job.ImagePath).Msg("job completed")
	w.ack(msg)
}

func (w *Worker) ack(msg amqp.Delivery) {
	if err := msg.Ack(false); err != nil {
		zlog.Logger.Err(err).Msg("failed to ack job")
	}
}
