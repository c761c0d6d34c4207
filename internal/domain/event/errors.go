package event

import "errors"

// Sentinel kinds for event validation errors.
var (
	ErrUnknownEventType = errors.New("unknown event type")
	ErrMissingSessionID = errors.New("missing session id")
	ErrMissingUserID    = errors.New("missing user id")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)
