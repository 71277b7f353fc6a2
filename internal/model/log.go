package model

// Severity is the level of a log event carried over the logging queues.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// Source identifies which logging queue carried an event. It is not part of
// the wire line itself; it is implied by the queue the event arrived on.
type Source string

const (
	SourceDatabase Source = "DATABASE"
	SourceWorkers  Source = "WORKERS"
)

// Token returns the wire marker for the severity, e.g. "ERROR:".
// Log lines are published as "<SEVERITY>: <text>".
func (s Severity) Token() string {
	return string(s) + ":"
}

// SeverityFromToken maps a leading line token back to its severity.
// Matching is case-sensitive and requires the trailing colon.
func SeverityFromToken(token string) (Severity, bool) {
	switch token {
	case "INFO:":
		return SeverityInfo, true
	case "WARNING:":
		return SeverityWarning, true
	case "ERROR:":
		return SeverityError, true
	case "CRITICAL:":
		return SeverityCritical, true
	default:
		return "", false
	}
}

// Label returns the lower-cased name used when reporting invalid lines,
// e.g. "Invalid logs from database: ...".
func (s Source) Label() string {
	switch s {
	case SourceDatabase:
		return "database"
	case SourceWorkers:
		return "workers"
	default:
		return string(s)
	}
}
