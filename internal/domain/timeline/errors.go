package timeline

import "errors"

// Sentinel kinds for timeline errors.
var (
	ErrSessionClosed = errors.New("session closed")
	ErrLateEvent     = errors.New("event beyond grace window")
)
