package repository

import "errors"

var (
	// ErrSessionNotFound indicates no archived session exists for the id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrUserNotFound indicates no passport has been computed for the user.
	ErrUserNotFound = errors.New("user not found")

	// ErrTaskNotFound indicates the task id is not in the catalog.
	ErrTaskNotFound = errors.New("task not found")

	// ErrUnavailable wraps transient storage failures that are worth
	// retrying before surfacing.
	ErrUnavailable = errors.New("storage unavailable")
)
