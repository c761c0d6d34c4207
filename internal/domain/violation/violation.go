// Package violation flags integrity anomalies over the ordered event stream.
package violation

import (
	"time"

	"github.com/google/uuid"
)

// Severity grades a violation.
type Severity string

// Severity levels.
const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Violation types emitted by the built-in rules.
const (
	TypePasteBurst       = "paste_burst"
	TypeRepeatedError    = "repeated_unresolved_error"
	TypeHeartbeatAbsence = "proctoring_heartbeat_absence"
)

// Violation is one detected integrity anomaly, tied to the timeline entry
// that triggered it. The violation log is append-only; counts are always
// derived by aggregation, never kept as separate counters.
type Violation struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	SessionID  string    `json:"session_id"`
	EntryID    string    `json:"entry_id"`
	Severity   Severity  `json:"severity"`
	DetectedAt time.Time `json:"detected_at"`
}

func newViolation(vtype, sessionID, entryID string, severity Severity) Violation {
	return Violation{
		ID:         uuid.NewString(),
		Type:       vtype,
		SessionID:  sessionID,
		EntryID:    entryID,
		Severity:   severity,
		DetectedAt: time.Now().UTC(),
	}
}
