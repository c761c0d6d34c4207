// Package event contains the behavioral event model ingested by the engine.
package event

// Type identifies the kind of a behavioral event. The set is closed;
// payloads are tagged variants decoded per type.
type Type string

// Known event types.
const (
	TypeSessionStarted     Type = "session_started"
	TypeSessionEnded       Type = "session_ended"
	TypeEditorCommand      Type = "editor_command"
	TypeCodeChanged        Type = "code_changed"
	TypeRunAttempted       Type = "run_attempted"
	TypeErrorEmitted       Type = "error_emitted"
	TypeFixApplied         Type = "fix_applied"
	TypeRefactorApplied    Type = "refactor_applied"
	TypeTestAdded          Type = "test_added"
	TypePasteBurstDetected Type = "paste_burst_detected"
	TypeTaskSubmitted      Type = "task_submitted"
	TypeCameraHeartbeat    Type = "camera_heartbeat"
)

var knownTypes = map[Type]struct{}{
	TypeSessionStarted:     {},
	TypeSessionEnded:       {},
	TypeEditorCommand:      {},
	TypeCodeChanged:        {},
	TypeRunAttempted:       {},
	TypeErrorEmitted:       {},
	TypeFixApplied:         {},
	TypeRefactorApplied:    {},
	TypeTestAdded:          {},
	TypePasteBurstDetected: {},
	TypeTaskSubmitted:      {},
	TypeCameraHeartbeat:    {},
}

// Known reports whether t belongs to the closed event type set.
func (t Type) Known() bool {
	_, ok := knownTypes[t]
	return ok
}

// Event is a single behavioral event. Immutable once ingested.
// Ordering key within a session: (Timestamp, ArrivalSeq).
type Event struct {
	ID        string // client-supplied id for idempotency; may be empty
	Type      Type
	UserID    string
	SessionID string
	TaskID    string // optional
	Timestamp int64  // ms since epoch

	// ArrivalSeq breaks ties between events sharing a timestamp. Assigned
	// at ingestion; zero means not yet ingested.
	ArrivalSeq uint64

	Payload Payload
	Extra   map[string]any // residual properties not covered by the typed payload
}
