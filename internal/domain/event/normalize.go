package event

import "strings"

// Normalize validates a raw event and returns its canonical form: identifiers
// trimmed, payload decoded from the open properties map into the typed variant
// for the event type. A failed normalization carries one of the sentinel
// validation errors and must never abort the pipeline.
func Normalize(raw Raw) (Event, error) {
	t := Type(strings.TrimSpace(raw.EventType))
	if !t.Known() {
		return Event{}, ErrUnknownEventType
	}

	sessionID := strings.TrimSpace(raw.SessionID)
	if sessionID == "" {
		return Event{}, ErrMissingSessionID
	}
	userID := strings.TrimSpace(raw.UserID)
	if userID == "" {
		return Event{}, ErrMissingUserID
	}
	if raw.Timestamp <= 0 {
		return Event{}, ErrInvalidTimestamp
	}

	payload, extra, err := DecodePayload(t, raw.Properties)
	if err != nil {
		return Event{}, err
	}

	return Event{
		ID:        strings.TrimSpace(raw.EventID),
		Type:      t,
		UserID:    userID,
		SessionID: sessionID,
		TaskID:    strings.TrimSpace(raw.TaskID),
		Timestamp: raw.Timestamp,
		Payload:   payload,
		Extra:     extra,
	}, nil
}

// Raw mirrors the ingestion wire shape before normalization.
type Raw struct {
	EventID    string         `json:"event_id,omitempty"`
	EventType  string         `json:"event_type"`
	UserID     string         `json:"user_id"`
	SessionID  string         `json:"session_id"`
	TaskID     string         `json:"task_id,omitempty"`
	Timestamp  int64          `json:"timestamp"`
	Properties map[string]any `json:"properties,omitempty"`
}
