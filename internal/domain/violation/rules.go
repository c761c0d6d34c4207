package violation

import (
	"github.com/talentlens/engine/internal/domain/event"
	"github.com/talentlens/engine/internal/domain/timeline"
)

// PasteBurstRule flags a paste of too many characters in too short a burst.
type PasteBurstRule struct {
	charsThreshold int
	burstThreshold int64 // ms
}

// NewPasteBurstRule creates the rule with the given thresholds.
func NewPasteBurstRule(charsThreshold int, burstThresholdMS int64) *PasteBurstRule {
	return &PasteBurstRule{charsThreshold: charsThreshold, burstThreshold: burstThresholdMS}
}

// Name implements Rule.
func (r *PasteBurstRule) Name() string { return TypePasteBurst }

// Evaluate implements Rule.
func (r *PasteBurstRule) Evaluate(_ []timeline.Entry, latest timeline.Entry) []Violation {
	burst, ok := latest.Event.Payload.(event.PasteBurst)
	if !ok {
		return nil
	}
	if burst.CharsPasted < r.charsThreshold || burst.BurstMS > r.burstThreshold {
		return nil
	}
	return []Violation{newViolation(TypePasteBurst, latest.Event.SessionID, latest.EntryID, SeverityHigh)}
}

// RepeatedErrorRule flags a run of same-type repeat errors with no
// intervening fix within the look-back window.
type RepeatedErrorRule struct {
	threshold int
}

// NewRepeatedErrorRule creates the rule; threshold is the minimum run length.
func NewRepeatedErrorRule(threshold int) *RepeatedErrorRule {
	return &RepeatedErrorRule{threshold: threshold}
}

// Name implements Rule.
func (r *RepeatedErrorRule) Name() string { return TypeRepeatedError }

// Evaluate implements Rule.
func (r *RepeatedErrorRule) Evaluate(window []timeline.Entry, latest timeline.Entry) []Violation {
	emitted, ok := latest.Event.Payload.(event.ErrorEmitted)
	if !ok || !emitted.IsRepeat {
		return nil
	}

	count := 0
	for _, e := range window {
		switch p := e.Event.Payload.(type) {
		case event.ErrorEmitted:
			if p.ErrorType == emitted.ErrorType && p.IsRepeat {
				count++
			}
		case event.FixApplied:
			if p.ErrorType == "" || p.ErrorType == emitted.ErrorType {
				count = 0
			}
		}
	}
	if count < r.threshold {
		return nil
	}
	return []Violation{newViolation(TypeRepeatedError, latest.Event.SessionID, latest.EntryID, SeverityMedium)}
}

// HeartbeatAbsenceRule flags a gap in proctoring camera heartbeats. The rule
// is stateful: it watches the serialized entry stream for the proctoring flag
// and the latest heartbeat, so a heartbeat older than the look-back window
// still counts.
type HeartbeatAbsenceRule struct {
	timeoutMS     int64
	proctored     bool
	lastHeartbeat int64
}

// NewHeartbeatAbsenceRule creates the rule with the given timeout.
func NewHeartbeatAbsenceRule(timeoutMS int64) *HeartbeatAbsenceRule {
	return &HeartbeatAbsenceRule{timeoutMS: timeoutMS}
}

// Name implements Rule.
func (r *HeartbeatAbsenceRule) Name() string { return TypeHeartbeatAbsence }

// Evaluate implements Rule.
func (r *HeartbeatAbsenceRule) Evaluate(_ []timeline.Entry, latest timeline.Entry) []Violation {
	switch p := latest.Event.Payload.(type) {
	case event.SessionStarted:
		r.proctored = p.Proctored
		r.lastHeartbeat = latest.Event.Timestamp
		return nil
	case event.CameraHeartbeat:
		r.lastHeartbeat = latest.Event.Timestamp
		return nil
	}

	if !r.proctored || r.lastHeartbeat == 0 {
		return nil
	}
	if latest.Event.Timestamp-r.lastHeartbeat <= r.timeoutMS {
		return nil
	}
	// Advance the mark so one long gap yields one violation per observing
	// entry boundary, not one per subsequent event.
	r.lastHeartbeat = latest.Event.Timestamp
	return []Violation{newViolation(TypeHeartbeatAbsence, latest.Event.SessionID, latest.EntryID, SeverityHigh)}
}
