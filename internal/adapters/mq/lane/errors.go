package lane

import "errors"

var (
	// ErrClosed is returned when dispatching after shutdown.
	ErrClosed = errors.New("dispatcher closed")

	// ErrLaneClosed is returned when dispatching to a finalized session.
	ErrLaneClosed = errors.New("lane closed")
)
