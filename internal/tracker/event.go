package tracker

import (
	"strings"
	"time"
)

// Severity orders error severities from least to most severe so that a
// group's severity can be raised but never lowered.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
	SeverityCritical
)

// ParseSeverity maps a severity string to a Severity. Unrecognized values
// coerce to SeverityError rather than failing: ingestion must never reject
// an event over a bad severity label.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return SeverityCritical
	case "error":
		return SeverityError
	case "warning", "warn":
		return SeverityWarning
	case "info":
		return SeverityInfo
	case "debug":
		return SeverityDebug
	default:
		return SeverityError
	}
}

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	case SeverityDebug:
		return "debug"
	default:
		return "error"
	}
}

// MarshalText makes Severity render as its name in JSON payloads.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	*s = ParseSeverity(string(b))
	return nil
}

// Context carries the attribution of an event: which user, session and
// component it came from, plus free-form tags.
type Context struct {
	UserID    string            `json:"user_id,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	Component string            `json:"component,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// Event is a single raw error occurrence handed to the tracker. Events are
// transient: after ingestion only the group aggregate and a bounded number
// of samples survive.
type Event struct {
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	Location  string    `json:"location,omitempty"`
	Context   Context   `json:"context,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Sample is the retained form of one event inside a group's sample ring.
type Sample struct {
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	Location  string    `json:"location,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
