package aggregator

import (
	"context"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wb-go/wbf/zlog"

	"github.com/alexkarpov/image-hosting/internal/model"
)

// consumer defines the broker operations the aggregator needs.
type consumer interface {
	Consume(queue string) (<-chan amqp.Delivery, error)
}

// Aggregator is the single logical consumer of both logging queues. Each
// delivered line is parsed for its severity token, routed to the day sink
// with a prefix naming the source queue, and acknowledged only after the
// sink write succeeds.
type Aggregator struct {
	client   consumer
	sink     *Sink
	database string // logging.database queue name
	workers  string // logging.workers queue name
}

// New creates an aggregator reading from the two named logging queues and
// writing to sink.
func New(c consumer, sink *Sink, databaseQueue, workersQueue string) *Aggregator {
	return &Aggregator{
		client:   c,
		sink:     sink,
		database: databaseQueue,
		workers:  workersQueue,
	}
}

// Run consumes both queues until the context is canceled. Messages from the
// two queues are handled one at a time on this goroutine, so sink writes
// never race.
func (a *Aggregator) Run(ctx context.Context) error {
	dbMsgs, err := a.client.Consume(a.database)
	if err != nil {
		return fmt.Errorf("consume %s: %w", a.database, err)
	}

	workerMsgs, err := a.client.Consume(a.workers)
	if err != nil {
		return fmt.Errorf("consume %s: %w", a.workers, err)
	}

	zlog.Logger.Info().
		Str("database_queue", a.database).
		Str("workers_queue", a.workers).
		Str("sink", a.sink.Path()).
		Msg("log aggregator started")

	for {
		select {
		case <-ctx.Done():
			zlog.Logger.Info().Msg("shutdown signal received, stopping aggregator")
			return nil
		case msg, ok := <-dbMsgs:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", a.database)
			}
			a.handle(msg, model.SourceDatabase)
		case msg, ok := <-workerMsgs:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", a.workers)
			}
			a.handle(msg, model.SourceWorkers)
		}
	}
}

// handle routes one delivery and acknowledges it after the sink write. A
// failed write leaves the message unacknowledged and requeued, so a crash or
// full disk causes redelivery rather than silent log loss.
func (a *Aggregator) handle(msg amqp.Delivery, source model.Source) {
	if err := a.route(string(msg.Body), source); err != nil {
		zlog.Logger.Err(err).
			Str("source", string(source)).
			Msg("failed to write log entry, requeueing")

		if err := msg.Nack(false, true); err != nil {
			zlog.Logger.Err(err).Msg("failed to nack message")
		}
		return
	}

	if err := msg.Ack(false); err != nil {
		zlog.Logger.Err(err).Msg("failed to ack message")
	}
}

// route parses the leading severity token of the line and writes the sink
// entry. A line whose token is not one of the four recognized severities is
// itself recorded as an ERROR entry quoting the original line.
func (a *Aggregator) route(line string, source model.Source) error {
	token, rest, _ := strings.Cut(line, " ")

	sev, ok := model.SeverityFromToken(token)
	if !ok {
		return a.sink.Write(model.SeverityError,
			fmt.Sprintf("Invalid logs from %s: %s", source.Label(), line))
	}

	return a.sink.Write(sev, fmt.Sprintf("%s: %s", source, rest))
}
