package aggregator

import (
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"

	"github.com/alexkarpov/image-hosting/internal/model"
)

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

// fakeAcknowledger records ack/nack calls for a delivery.
type fakeAcknowledger struct {
	acks     int
	nacks    int
	requeued bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acks++
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error {
	f.nacks++
	f.requeued = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	f.nacks++
	f.requeued = requeue
	return nil
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
}

func newTestSink(t *testing.T) *Sink {
	t.Helper()

	sink, err := newSink(t.TempDir(), fixedClock)
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })

	return sink
}

func newTestAggregator(t *testing.T) (*Aggregator, *Sink) {
	sink := newTestSink(t)
	return New(nil, sink, "logging.database", "logging.workers"), sink
}

func readSink(t *testing.T, sink *Sink) string {
	t.Helper()

	data, err := os.ReadFile(sink.Path())
	require.NoError(t, err)

	return string(data)
}

func TestSink_DayFileNaming(t *testing.T) {
	sink := newTestSink(t)

	assert.Contains(t, sink.Path(), "2024-03-15.log")
}

func TestAggregator_RoutesRecognizedSeverities(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		source model.Source
		want   string
	}{
		{
			name:   "error from database",
			line:   "ERROR: disk full",
			source: model.SourceDatabase,
			want:   "2024-03-15 10:30:00 ERROR DATABASE: disk full\n",
		},
		{
			name:   "info from workers",
			line:   "INFO: Logger started successfully",
			source: model.SourceWorkers,
			want:   "2024-03-15 10:30:00 INFO WORKERS: Logger started successfully\n",
		},
		{
			name:   "warning from database",
			line:   "WARNING: slow query",
			source: model.SourceDatabase,
			want:   "2024-03-15 10:30:00 WARNING DATABASE: slow query\n",
		},
		{
			name:   "critical from database",
			line:   "CRITICAL: Invalid image data detected in database at 42",
			source: model.SourceDatabase,
			want:   "2024-03-15 10:30:00 CRITICAL DATABASE: Invalid image data detected in database at 42\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, sink := newTestAggregator(t)

			require.NoError(t, a.route(tt.line, tt.source))
			assert.Equal(t, tt.want, readSink(t, sink))
		})
	}
}

func TestAggregator_InvalidLinesBecomeErrorEntries(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		source model.Source
		want   string
	}{
		{
			name:   "unknown token",
			line:   "DEBUG: something",
			source: model.SourceDatabase,
			want:   "ERROR Invalid logs from database: DEBUG: something\n",
		},
		{
			name:   "missing colon",
			line:   "ERROR disk full",
			source: model.SourceWorkers,
			want:   "ERROR Invalid logs from workers: ERROR disk full\n",
		},
		{
			name:   "lowercase token",
			line:   "error: disk full",
			source: model.SourceDatabase,
			want:   "ERROR Invalid logs from database: error: disk full\n",
		},
		{
			name:   "no token at all",
			line:   "plain text",
			source: model.SourceWorkers,
			want:   "ERROR Invalid logs from workers: plain text\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, sink := newTestAggregator(t)

			require.NoError(t, a.route(tt.line, tt.source))
			assert.Contains(t, readSink(t, sink), tt.want)
		})
	}
}

func TestAggregator_AcksAfterSuccessfulWrite(t *testing.T) {
	a, sink := newTestAggregator(t)

	ack := &fakeAcknowledger{}
	a.handle(amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  1,
		Body:         []byte("ERROR: disk full"),
	}, model.SourceDatabase)

	assert.Equal(t, 1, ack.acks)
	assert.Zero(t, ack.nacks)
	assert.Contains(t, readSink(t, sink), "ERROR DATABASE: disk full")
}

func TestAggregator_FailedWriteBlocksAckAndRequeues(t *testing.T) {
	a, sink := newTestAggregator(t)

	// Force the sink write to fail.
	require.NoError(t, sink.file.Close())

	ack := &fakeAcknowledger{}
	a.handle(amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  1,
		Body:         []byte("ERROR: disk full"),
	}, model.SourceDatabase)

	assert.Zero(t, ack.acks)
	assert.Equal(t, 1, ack.nacks)
	assert.True(t, ack.requeued)
}

func TestSink_AppendsAcrossWrites(t *testing.T) {
	sink := newTestSink(t)

	require.NoError(t, sink.Write(model.SeverityInfo, "first"))
	require.NoError(t, sink.Write(model.SeverityError, "second"))

	content := readSink(t, sink)
	assert.Contains(t, content, "INFO first\n")
	assert.Contains(t, content, "ERROR second\n")
}
