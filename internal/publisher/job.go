package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alexkarpov/image-hosting/internal/model"
)

// JobPublisher enqueues image modification jobs onto the worker queue.
type JobPublisher struct {
	client client
	queue  string
}

// NewJobPublisher creates a publisher bound to the given job queue.
func NewJobPublisher(c client, queue string) *JobPublisher {
	return &JobPublisher{client: c, queue: queue}
}

// Dispatch serializes the job and publishes it, returning as soon as the
// broker accepts the message. There is no result channel: a caller that
// needs to know whether the job succeeded has to re-read the image metadata
// the worker writes.
func (p *JobPublisher) Dispatch(ctx context.Context, job model.Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := p.client.Publish(ctx, p.queue, "application/json", body); err != nil {
		return fmt.Errorf("failed to dispatch job: %w", err)
	}

	return nil
}
