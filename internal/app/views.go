package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/talentlens/engine/internal/adapters/repository"
	"github.com/talentlens/engine/internal/adapters/search"
	"github.com/talentlens/engine/internal/domain/passport"
	"github.com/talentlens/engine/internal/domain/query"
	"github.com/talentlens/engine/internal/domain/task"
	"github.com/talentlens/engine/internal/domain/timeline"
	"github.com/talentlens/engine/internal/domain/violation"
)

// TimelineView is a consistent read of one session's timeline, live or
// archived.
type TimelineView struct {
	SessionID   string
	UserID      string
	TaskID      string
	Frozen      bool
	DroppedLate int
	Video       *timeline.Video
	Entries     []timeline.Entry
}

// Insights aggregates a session's activity and violations.
type Insights struct {
	SessionID            string                `json:"session_id"`
	UserID               string                `json:"user_id"`
	TaskID               string                `json:"task_id,omitempty"`
	Frozen               bool                  `json:"frozen"`
	EntryCount           int                   `json:"entry_count"`
	DroppedLate          int                   `json:"dropped_late"`
	DurationMS           int64                 `json:"duration_ms"`
	EventTypeCounts      map[string]int        `json:"event_type_counts"`
	ViolationsByType     map[string]int        `json:"violations_by_type"`
	ViolationsBySeverity map[string]int        `json:"violations_by_severity"`
	Violations           []violation.Violation `json:"violations"`
	MetricDeltas         map[string]float64    `json:"metric_deltas,omitempty"`
}

// Stats is the operational snapshot served by /stats.
type Stats struct {
	LiveSessions     int           `json:"live_sessions"`
	FinishedSessions int           `json:"finished_sessions"`
	OpenLanes        int           `json:"open_lanes"`
	TimelineEntries  int64         `json:"timeline_entries"`
	TrackedEventIDs  int           `json:"tracked_event_ids"`
	Uptime           time.Duration `json:"uptime_ns"`
}

// Timeline returns the current timeline for a session, falling back to the
// archive for sessions no longer in memory.
func (s *Service) Timeline(ctx context.Context, sessionID string) (TimelineView, error) {
	if !s.running() {
		return TimelineView{}, ErrNotStarted
	}
	sess, archivedDrops, err := s.sessionState(ctx, sessionID)
	if err != nil {
		return TimelineView{}, err
	}
	dropped := sess.timeline.DroppedLate()
	if dropped == 0 {
		dropped = archivedDrops
	}
	return TimelineView{
		SessionID:   sessionID,
		UserID:      sess.userID,
		TaskID:      sess.taskID,
		Frozen:      sess.timeline.Frozen(),
		DroppedLate: dropped,
		Video:       sess.timeline.Video(),
		Entries:     sess.timeline.Snapshot(),
	}, nil
}

// Insights returns aggregate counts and, for freshly finalized sessions, the
// metric movement the session caused.
func (s *Service) Insights(ctx context.Context, sessionID string) (Insights, error) {
	if !s.running() {
		return Insights{}, ErrNotStarted
	}
	sess, archivedDrops, err := s.sessionState(ctx, sessionID)
	if err != nil {
		return Insights{}, err
	}

	// archived and metricDeltas are written by finalize under s.mu.
	s.mu.RLock()
	finalized := sess.archived
	deltas := sess.metricDeltas
	s.mu.RUnlock()

	entries := sess.timeline.Snapshot()
	typeCounts := map[string]int{}
	for _, entry := range entries {
		typeCounts[string(entry.Event.Type)]++
	}

	violations := sess.detector.Violations()
	if len(violations) == 0 && finalized {
		stored, err := s.listViolations(ctx, sessionID)
		if err != nil {
			return Insights{}, err
		}
		violations = stored
	}
	byType := map[string]int{}
	bySeverity := map[string]int{}
	for _, v := range violations {
		byType[v.Type]++
		bySeverity[string(v.Severity)]++
	}

	var durationMS int64
	if len(entries) > 0 {
		durationMS = entries[len(entries)-1].Event.Timestamp - entries[0].Event.Timestamp
	}
	dropped := sess.timeline.DroppedLate()
	if dropped == 0 {
		dropped = archivedDrops
	}

	return Insights{
		SessionID:            sessionID,
		UserID:               sess.userID,
		TaskID:               sess.taskID,
		Frozen:               sess.timeline.Frozen(),
		EntryCount:           len(entries),
		DroppedLate:          dropped,
		DurationMS:           durationMS,
		EventTypeCounts:      typeCounts,
		ViolationsByType:     byType,
		ViolationsBySeverity: bySeverity,
		Violations:           violations,
		MetricDeltas:         deltas,
	}, nil
}

// Ask answers a free-text question about one session.
func (s *Service) Ask(ctx context.Context, sessionID, question string, includeVideo bool) (query.Answer, error) {
	if !s.running() {
		return query.Answer{}, ErrNotStarted
	}
	sess, _, err := s.sessionState(ctx, sessionID)
	if err != nil {
		return query.Answer{}, err
	}
	// A session whose index build failed degrades to a low-confidence answer.
	return s.queries.Ask(ctx, sess.timeline, sess.index, question, includeVideo)
}

// Passport returns the user's current skill passport.
func (s *Service) Passport(ctx context.Context, userID string) (*passport.Passport, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}
	var p *passport.Passport
	err := s.retrier.Do(ctx, "get passport", func(ctx context.Context) error {
		got, err := s.store.GetPassport(ctx, userID)
		if err != nil {
			return err
		}
		p = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// RecommendedTasks ranks catalog tasks for a user based on their passport.
func (s *Service) RecommendedTasks(ctx context.Context, userID string, limit int) ([]task.RecommendedTask, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}
	if limit <= 0 || limit > s.cfg.MaxRecommendedLimit {
		limit = s.cfg.MaxRecommendedLimit
	}
	p, err := s.Passport(ctx, userID)
	if err != nil {
		return nil, err
	}
	var catalog []task.Task
	err = s.retrier.Do(ctx, "list tasks", func(ctx context.Context) error {
		got, err := s.store.ListTasks(ctx)
		if err != nil {
			return err
		}
		catalog = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task.Recommend(p, catalog, limit), nil
}

// Stats reports the operational snapshot.
func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	live := 0
	finished := 0
	for _, sess := range s.sessions {
		if sess.timeline.Frozen() {
			finished++
		} else {
			live++
		}
	}
	var uptime time.Duration
	if s.started {
		uptime = time.Since(s.startedAt)
	}
	tracked := 0
	if s.deduper != nil {
		tracked = s.deduper.Size()
	}
	openLanes := 0
	if s.lanes != nil {
		openLanes = s.lanes.LaneCount()
	}
	return Stats{
		LiveSessions:     live,
		FinishedSessions: finished,
		OpenLanes:        openLanes,
		TimelineEntries:  s.totalEntries.Load(),
		TrackedEventIDs:  tracked,
		Uptime:           uptime,
	}
}

// sessionState returns the in-memory session, loading and caching a frozen
// copy from the archive when needed. The int is the archived dropped-late
// count, zero for purely live sessions.
func (s *Service) sessionState(ctx context.Context, sessionID string) (*liveSession, int, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return sess, 0, nil
	}

	var archived repository.ArchivedSession
	err := s.retrier.Do(ctx, "get session", func(ctx context.Context) error {
		got, err := s.store.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		archived = got
		return nil
	})
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	if err != nil {
		return nil, 0, err
	}

	tl := timeline.Restore(archived.SessionID, archived.UserID, archived.Video, archived.Entries)
	var idx *search.Index
	if fresh, ierr := search.NewIndex(); ierr == nil && fillIndex(fresh, archived.Entries) {
		idx = fresh
	}

	restored := &liveSession{
		timeline:  tl,
		detector:  violation.NewDetector(sessionID),
		index:     idx,
		userID:    archived.UserID,
		taskID:    archived.TaskID,
		startedAt: archived.StartedAt,
		archived:  true,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[sessionID]; ok {
		if idx != nil {
			_ = idx.Close()
		}
		return existing, archived.DroppedLate, nil
	}
	s.sessions[sessionID] = restored
	return restored, archived.DroppedLate, nil
}

// entryIndexer is the slice of the search index the rehydration path needs.
type entryIndexer interface {
	Add(entry timeline.Entry) error
	Close() error
}

// fillIndex indexes entries, closing and discarding the index when any entry
// fails so a partial rebuild does not leak.
func fillIndex(idx entryIndexer, entries []timeline.Entry) bool {
	for _, entry := range entries {
		if err := idx.Add(entry); err != nil {
			_ = idx.Close()
			return false
		}
	}
	return true
}

func (s *Service) listViolations(ctx context.Context, sessionID string) ([]violation.Violation, error) {
	var out []violation.Violation
	err := s.retrier.Do(ctx, "list violations", func(ctx context.Context) error {
		got, err := s.store.ListViolations(ctx, sessionID)
		if err != nil {
			return err
		}
		out = got
		return nil
	})
	return out, err
}
