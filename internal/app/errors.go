package service

import "errors"

var (
	// ErrUnknownSession is returned when an event references a session
	// that was never started.
	ErrUnknownSession = errors.New("unknown session")

	// ErrSessionClosed is returned when an event arrives after the
	// session was finalized.
	ErrSessionClosed = errors.New("session closed")

	// ErrBackpressure is returned when a session's lane cannot accept
	// the event in time.
	ErrBackpressure = errors.New("ingestion backpressure")

	// ErrNotStarted is returned when the service is used before Start.
	ErrNotStarted = errors.New("service not started")
)
