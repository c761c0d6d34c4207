package passport

import "errors"

// Sentinel kinds for scoring errors.
var (
	ErrScoringInconsistency = errors.New("scoring inconsistency")
)
