package aggregator

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alexkarpov/image-hosting/internal/model"
)

// Sink is the leveled destination for aggregated log events: one append-only
// file per calendar day, named after the date at the moment the sink is
// created. A long-lived aggregator keeps writing to that same file even if
// the date changes mid-run; the daemon is expected to be restarted daily.
type Sink struct {
	file *os.File
	path string
	now  func() time.Time
}

// NewSink opens (or creates) the day file under dir. The directory is
// created if needed.
func NewSink(dir string) (*Sink, error) {
	return newSink(dir, time.Now)
}

func newSink(dir string, now func() time.Time) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(dir, now().Format("2006-01-02")+".log")

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	return &Sink{file: f, path: path, now: now}, nil
}

// Write appends one entry: "<timestamp> <LEVEL> <text>". The caller must not
// acknowledge the originating message until Write has returned nil;
// redelivery is the only recovery path for a failed write.
func (s *Sink) Write(sev model.Severity, text string) error {
	line := fmt.Sprintf("%s %s %s\n", s.now().Format("2006-01-02 15:04:05"), sev, text)

	if _, err := s.file.WriteString(line); err != nil {
		return fmt.Errorf("failed to write log entry: %w", err)
	}

	return nil
}

// Path returns the file the sink writes to.
func (s *Sink) Path() string {
	return s.path
}

// Close closes the day file.
func (s *Sink) Close() error {
	return s.file.Close()
}
