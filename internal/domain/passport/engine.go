package passport

import (
	"context"
	"fmt"
	"time"

	"github.com/talentlens/engine/internal/domain/event"
	"github.com/talentlens/engine/internal/domain/timeline"
	"github.com/talentlens/engine/internal/domain/violation"
	"github.com/talentlens/engine/pkg/metrics"
)

// Categories are the fixed task categories contributing sub-scores to the
// skill vector, in vector order.
var Categories = []string{"algorithms", "data_structures", "systems", "debugging", "frontend"}

// Severity penalties applied to the integrity metric.
const (
	penaltyHigh   = 0.3
	penaltyMedium = 0.15
	penaltyLow    = 0.05
)

// fixLatencyScaleMS weights debug efficiency: a fix this many ms after the
// error earns half credit.
const fixLatencyScaleMS = 60_000

// Engine computes passports from finalized timelines. Recomputation is
// atomic: the returned passport fully replaces the previous one, and a
// scoring failure leaves the previous passport untouched.
type Engine struct {
	velocityBaselines map[string]float64 // events/min considered par, by difficulty
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithVelocityBaselines overrides the per-difficulty events-per-minute pars.
func WithVelocityBaselines(baselines map[string]float64) Option {
	return func(e *Engine) {
		if len(baselines) > 0 {
			e.velocityBaselines = baselines
		}
	}
}

// NewEngine creates a scoring engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		velocityBaselines: map[string]float64{
			"easy":   8,
			"medium": 6,
			"hard":   4,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compute derives a fresh passport from a finalized timeline. prev may be
// nil for a first session. The timeline must be frozen and internally
// consistent, otherwise ErrScoringInconsistency is returned and the caller
// keeps prev.
func (e *Engine) Compute(ctx context.Context, tl *timeline.Timeline, violations []violation.Violation, prev *Passport) (*Passport, error) {
	start := time.Now()
	defer func() {
		metrics.RecordScoringDuration(float64(time.Since(start).Milliseconds()))
	}()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scoring canceled: %w", err)
	}
	if !tl.Frozen() {
		metrics.RecordScoringFailure()
		return nil, fmt.Errorf("%w: timeline not frozen", ErrScoringInconsistency)
	}

	entries := tl.Snapshot()
	if err := checkConsistency(entries); err != nil {
		metrics.RecordScoringFailure()
		return nil, err
	}

	m := Metrics{
		IterationVelocity: e.iterationVelocity(entries),
		DebugEfficiency:   debugEfficiency(entries),
		Craftsmanship:     craftsmanship(entries),
		ToolFluency:       toolFluency(entries),
		Integrity:         integrity(violations),
	}

	category, categoryScore := sessionCategoryScore(entries)
	categories := map[string]float64{}
	if prev != nil {
		for k, v := range prev.CategoryScores {
			categories[k] = v
		}
	}
	if category != "" {
		categories[category] = categoryScore
	}

	vector := m.Vector()
	for _, c := range Categories {
		vector = append(vector, categories[c])
	}

	p := &Passport{
		UserID:         tl.UserID(),
		Archetype:      Classify(m),
		SkillVector:    vector,
		Metrics:        m,
		CategoryScores: categories,
		NotableMoments: notableMoments(tl.SessionID(), entries, violations),
		UpdatedAt:      time.Now().UTC(),
	}
	p.SessionsCompleted = 1
	p.TotalEvents = len(entries)
	p.TotalViolations = len(violations)
	if prev != nil {
		p.SessionsCompleted += prev.SessionsCompleted
		p.TotalEvents += prev.TotalEvents
		p.TotalViolations += prev.TotalViolations
		p.Interview = prev.Interview
	}

	metrics.RecordPassportComputed()
	return p, nil
}

// checkConsistency rejects corrupt snapshots: non-dense indices or entries
// out of canonical order.
func checkConsistency(entries []timeline.Entry) error {
	for i, e := range entries {
		if e.Index != i {
			return fmt.Errorf("%w: entry index %d at position %d", ErrScoringInconsistency, e.Index, i)
		}
		if i > 0 {
			prev := entries[i-1].Event
			cur := e.Event
			if cur.Timestamp < prev.Timestamp ||
				(cur.Timestamp == prev.Timestamp && cur.ArrivalSeq < prev.ArrivalSeq) {
				return fmt.Errorf("%w: entries out of order at position %d", ErrScoringInconsistency, i)
			}
		}
	}
	return nil
}

func (e *Engine) iterationVelocity(entries []timeline.Entry) float64 {
	if len(entries) == 0 {
		return 0
	}
	difficulty := ""
	active := 0
	for _, entry := range entries {
		if p, ok := entry.Event.Payload.(event.SessionStarted); ok {
			difficulty = p.Difficulty
		}
		switch entry.Event.Type {
		case event.TypeCodeChanged, event.TypeRunAttempted:
			active++
		}
	}
	if active == 0 {
		return 0
	}

	spanMS := entries[len(entries)-1].Event.Timestamp - entries[0].Event.Timestamp
	minutes := float64(spanMS) / 60_000
	if minutes <= 0 {
		minutes = 1.0 / 60 // sub-second session; treat as one second
	}
	rate := float64(active) / minutes

	baseline, ok := e.velocityBaselines[difficulty]
	if !ok {
		baseline = e.velocityBaselines["medium"]
	}
	// rate == baseline maps to 0.5; saturates toward 1.
	return rate / (rate + baseline)
}

func debugEfficiency(entries []timeline.Entry) float64 {
	type openError struct {
		ts int64
	}
	open := map[string][]openError{}
	totalErrors := 0
	weighted := 0.0

	for _, entry := range entries {
		switch p := entry.Event.Payload.(type) {
		case event.ErrorEmitted:
			totalErrors++
			open[p.ErrorType] = append(open[p.ErrorType], openError{ts: entry.Event.Timestamp})
		case event.FixApplied:
			key := p.ErrorType
			if key == "" {
				// Untargeted fix resolves the oldest open error of any type.
				oldestKey := ""
				var oldestTS int64
				for k, q := range open {
					if len(q) > 0 && (oldestKey == "" || q[0].ts < oldestTS) {
						oldestKey = k
						oldestTS = q[0].ts
					}
				}
				key = oldestKey
			}
			if q := open[key]; len(q) > 0 {
				latency := entry.Event.Timestamp - q[0].ts
				weighted += float64(fixLatencyScaleMS) / float64(fixLatencyScaleMS+latency)
				open[key] = q[1:]
			}
		}
	}

	if totalErrors == 0 {
		return 1 // nothing to debug
	}
	return clamp01(weighted / float64(totalErrors))
}

func craftsmanship(entries []timeline.Entry) float64 {
	changes, quality := 0, 0
	for _, entry := range entries {
		switch entry.Event.Type {
		case event.TypeCodeChanged:
			changes++
		case event.TypeRefactorApplied, event.TypeTestAdded:
			quality++
		}
	}
	if changes == 0 && quality == 0 {
		return 0.5 // no code activity; neutral
	}
	return clamp01(3 * float64(quality) / float64(changes+quality))
}

func toolFluency(entries []timeline.Entry) float64 {
	commands := 0
	shortcuts := 0
	distinct := map[string]struct{}{}
	for _, entry := range entries {
		if p, ok := entry.Event.Payload.(event.EditorCommand); ok {
			commands++
			if p.Shortcut {
				shortcuts++
			}
			distinct[p.Command] = struct{}{}
		}
	}
	if commands == 0 {
		return 0
	}
	diversity := clamp01(float64(len(distinct)) / 8)
	shortcutRatio := float64(shortcuts) / float64(commands)
	return clamp01(0.5*diversity + 0.5*shortcutRatio)
}

func integrity(violations []violation.Violation) float64 {
	score := 1.0
	for _, v := range violations {
		switch v.Severity {
		case violation.SeverityHigh:
			score -= penaltyHigh
		case violation.SeverityMedium:
			score -= penaltyMedium
		default:
			score -= penaltyLow
		}
	}
	return clamp01(score)
}

// sessionCategoryScore returns the session's task category and a score for it
// based on the final run's test pass ratio.
func sessionCategoryScore(entries []timeline.Entry) (string, float64) {
	category := ""
	score := 0.0
	for _, entry := range entries {
		switch p := entry.Event.Payload.(type) {
		case event.SessionStarted:
			category = p.TaskCategory
		case event.RunAttempted:
			if p.TestsTotal > 0 {
				score = float64(p.TestsPassed) / float64(p.TestsTotal)
			} else if p.Passed() {
				score = 1
			}
		}
	}
	return category, clamp01(score)
}

func notableMoments(sessionID string, entries []timeline.Entry, violations []violation.Violation) []NotableMoment {
	var moments []NotableMoment

	for _, entry := range entries {
		if p, ok := entry.Event.Payload.(event.RunAttempted); ok && p.Passed() {
			moments = append(moments, NotableMoment{
				SessionID:   sessionID,
				EntryID:     entry.EntryID,
				Kind:        "first_passing_run",
				Description: "first passing run of the session",
				Timestamp:   entry.Event.Timestamp,
			})
			break
		}
	}

	if fix, latency, ok := fastestFix(entries); ok {
		moments = append(moments, NotableMoment{
			SessionID:   sessionID,
			EntryID:     fix.EntryID,
			Kind:        "fastest_fix",
			Description: fmt.Sprintf("error resolved in %dms", latency),
			Timestamp:   fix.Event.Timestamp,
		})
	}

	for _, v := range violations {
		moments = append(moments, NotableMoment{
			SessionID:   sessionID,
			EntryID:     v.EntryID,
			Kind:        "violation",
			Description: v.Type,
			Timestamp:   v.DetectedAt.UnixMilli(),
		})
	}
	return moments
}

func fastestFix(entries []timeline.Entry) (timeline.Entry, int64, bool) {
	var best timeline.Entry
	var bestLatency int64 = -1
	lastError := map[string]int64{}
	for _, entry := range entries {
		switch p := entry.Event.Payload.(type) {
		case event.ErrorEmitted:
			lastError[p.ErrorType] = entry.Event.Timestamp
		case event.FixApplied:
			if ts, ok := lastError[p.ErrorType]; ok {
				latency := entry.Event.Timestamp - ts
				if bestLatency < 0 || latency < bestLatency {
					bestLatency = latency
					best = entry
				}
				delete(lastError, p.ErrorType)
			}
		}
	}
	return best, bestLatency, bestLatency >= 0
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
