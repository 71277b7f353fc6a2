package publisher

import (
	"context"
	"fmt"

	"github.com/wb-go/wbf/zlog"

	"github.com/alexkarpov/image-hosting/internal/model"
)

// client defines the broker operations the publishers need.
type client interface {
	Publish(ctx context.Context, queue, contentType string, body []byte) error
}

// LogPublisher emits severity-tagged text lines onto one logging queue.
// The wire format is a single UTF-8 line "<SEVERITY>: <text>"; the source
// of the event is implied by the queue and is not encoded in the line.
type LogPublisher struct {
	client client
	queue  string
}

// NewLogPublisher creates a publisher bound to the given logging queue.
func NewLogPublisher(c client, queue string) *LogPublisher {
	return &LogPublisher{client: c, queue: queue}
}

// Publish formats and sends one log line. The caller gets an error only if
// the message could not be handed to the broker; delivery to the aggregator
// is the broker's responsibility.
func (p *LogPublisher) Publish(ctx context.Context, sev model.Severity, text string) error {
	line := fmt.Sprintf("%s %s", sev.Token(), text)
	return p.client.Publish(ctx, p.queue, "text/plain", []byte(line))
}

// Info sends a best-effort INFO event. Publish failures are logged locally
// and swallowed so telemetry can never break a request-handling call site.
func (p *LogPublisher) Info(ctx context.Context, text string) {
	p.bestEffort(ctx, model.SeverityInfo, text)
}

// Warning sends a best-effort WARNING event.
func (p *LogPublisher) Warning(ctx context.Context, text string) {
	p.bestEffort(ctx, model.SeverityWarning, text)
}

// Error sends a best-effort ERROR event.
func (p *LogPublisher) Error(ctx context.Context, text string) {
	p.bestEffort(ctx, model.SeverityError, text)
}

// Critical sends a best-effort CRITICAL event.
func (p *LogPublisher) Critical(ctx context.Context, text string) {
	p.bestEffort(ctx, model.SeverityCritical, text)
}

func (p *LogPublisher) bestEffort(ctx context.Context, sev model.Severity, text string) {
	if err := p.Publish(ctx, sev, text); err != nil {
		zlog.Logger.Err(err).
			Str("queue", p.queue).
			Str("severity", string(sev)).
			Msg("failed to publish log event")
	}
}
