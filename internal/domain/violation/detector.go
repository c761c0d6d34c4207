package violation

import (
	"sync"

	"github.com/talentlens/engine/internal/domain/timeline"
	"github.com/talentlens/engine/pkg/metrics"
)

// Rule evaluates the trailing window after each timeline insertion. latest is
// the entry just inserted; window is the bounded look-back ending at latest.
// A rule returns the violations triggered by latest, if any.
type Rule interface {
	Name() string
	Evaluate(window []timeline.Entry, latest timeline.Entry) []Violation
}

// Detector runs all rules over a bounded look-back window after each insert.
// One detector serves one session and runs inside that session's serialized
// ingestion path, so a violation is visible before the triggering entry
// commits. Detection is idempotent per (session, entry, type): re-evaluating
// a window never records a duplicate.
type Detector struct {
	mu sync.Mutex

	sessionID     string
	rules         []Rule
	windowEntries int
	windowSpanMS  int64

	seen       map[string]struct{}
	violations []Violation
}

// NewDetector creates a detector for one session with the default rule set.
func NewDetector(sessionID string, opts ...Option) *Detector {
	d := &Detector{
		sessionID:     sessionID,
		windowEntries: 50,
		windowSpanMS:  5 * 60 * 1000,
		seen:          map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.rules == nil {
		d.rules = []Rule{
			NewPasteBurstRule(200, 500),
			NewRepeatedErrorRule(3),
			NewHeartbeatAbsenceRule(30_000),
		}
	}
	return d
}

// Observe evaluates all rules against the bounded window ending at latest and
// returns newly recorded violations. tl must be the timeline that produced
// latest.
func (d *Detector) Observe(tl *timeline.Timeline, latest timeline.Entry) []Violation {
	window := tl.Window(d.windowEntries, d.windowSpanMS)

	d.mu.Lock()
	defer d.mu.Unlock()

	var fresh []Violation
	for _, rule := range d.rules {
		for _, v := range rule.Evaluate(window, latest) {
			key := v.SessionID + "|" + v.EntryID + "|" + v.Type
			if _, dup := d.seen[key]; dup {
				continue
			}
			d.seen[key] = struct{}{}
			d.violations = append(d.violations, v)
			fresh = append(fresh, v)
			metrics.RecordViolation(v.Type, string(v.Severity))
		}
	}
	return fresh
}

// Violations returns a copy of the append-only violation log.
func (d *Detector) Violations() []Violation {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Violation, len(d.violations))
	copy(out, d.violations)
	return out
}
