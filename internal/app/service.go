// Package service wires the ingestion pipeline, live session state, scoring
// and query layers behind the dependency surface the HTTP API consumes.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/talentlens/engine/internal/adapters/mq/lane"
	"github.com/talentlens/engine/internal/adapters/repository"
	"github.com/talentlens/engine/internal/adapters/search"
	"github.com/talentlens/engine/internal/adapters/video"
	"github.com/talentlens/engine/internal/config"
	"github.com/talentlens/engine/internal/domain/dedupe"
	"github.com/talentlens/engine/internal/domain/event"
	"github.com/talentlens/engine/internal/domain/passport"
	"github.com/talentlens/engine/internal/domain/query"
	"github.com/talentlens/engine/internal/domain/task"
	"github.com/talentlens/engine/internal/domain/timeline"
	"github.com/talentlens/engine/internal/domain/violation"
	"github.com/talentlens/engine/pkg/logger"
	"github.com/talentlens/engine/pkg/metrics"
)

// Ingest ack statuses.
const (
	StatusAccepted    = "accepted"
	StatusDuplicate   = "duplicate"
	StatusDroppedLate = "dropped_late"
)

// IngestResult acknowledges how an event was handled at intake.
type IngestResult struct {
	EventID   string `json:"event_id"`
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// liveSession bundles the per-session state mutated by the session's lane.
type liveSession struct {
	timeline *timeline.Timeline
	detector *violation.Detector
	index    *search.Index

	userID    string
	taskID    string
	startedAt int64

	// Written once at finalization under the service lock.
	metricDeltas map[string]float64
	archived     bool
}

// Service implements the engine's core operations for the HTTP API.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	db        *sql.DB
	store     *repository.Store
	retrier   *repository.Retrier
	deduper   dedupe.Deduper
	lanes     *lane.Dispatcher
	videos    video.Provider
	passports *passport.Engine
	queries   *query.Engine
	answerer  query.Answerer

	sessions  map[string]*liveSession
	userLocks map[string]*sync.Mutex

	totalEntries atomic.Int64
	startedAt    time.Time
	started      bool

	log logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithVideoProvider sets the recording metadata backend.
func WithVideoProvider(p video.Provider) Option {
	return func(s *Service) {
		if p != nil {
			s.videos = p
		}
	}
}

// WithAnswerer sets the answer-generation backend for the query layer.
func WithAnswerer(a query.Answerer) Option {
	return func(s *Service) {
		if a != nil {
			s.answerer = a
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// New constructs a Service from configuration. Start must be called before
// any operation.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{
		cfg:       cfg,
		videos:    video.NewStaticProvider(),
		sessions:  map[string]*liveSession{},
		userLocks: map[string]*sync.Mutex{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Named("service")
	}
	return s
}

// Start opens storage, seeds the task catalog and brings up the ingestion
// lanes.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	db, err := repository.Open(s.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	store := repository.NewStore(db)
	if err := store.Init(ctx); err != nil {
		db.Close()
		return fmt.Errorf("init store: %w", err)
	}
	if err := store.SeedTasks(ctx, task.DefaultCatalog()); err != nil {
		db.Close()
		return fmt.Errorf("seed task catalog: %w", err)
	}
	s.db = db
	s.store = store
	s.retrier = repository.NewRetrier(
		s.cfg.StoreRetryAttempts,
		time.Duration(s.cfg.StoreRetryBaseMS)*time.Millisecond,
	)

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.cfg.DedupeSize))
	s.lanes = lane.NewDispatcher(s.apply, lane.WithBufferSize(s.cfg.LaneBufferSize))
	s.passports = passport.NewEngine()
	queryOpts := []query.Option{
		query.WithTopK(s.cfg.QueryTopK),
		query.WithRelevanceFloor(s.cfg.RelevanceFloor),
		query.WithVideoSegmentPad(s.cfg.VideoSegmentPadSeconds),
	}
	if s.answerer != nil {
		queryOpts = append(queryOpts, query.WithAnswerer(s.answerer))
	}
	s.queries = query.NewEngine(queryOpts...)

	s.startedAt = time.Now()
	s.started = true
	s.log.Info(ctx, "engine service started",
		logger.String("db_path", s.cfg.DBPath),
		logger.Int("lane_buffer", s.cfg.LaneBufferSize),
		logger.Int("dedupe_size", s.cfg.DedupeSize),
	)
	return nil
}

// Stop drains the lanes and closes storage.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	lanes := s.lanes
	db := s.db
	s.mu.Unlock()

	if err := lanes.Close(ctx); err != nil {
		s.log.Warn(ctx, "lane shutdown incomplete", logger.Error(err))
	}
	s.closeIndexes()
	if err := db.Close(); err != nil {
		s.log.Warn(ctx, "store close failed", logger.Error(err))
	}
	s.log.Info(ctx, "engine service stopped")
}

func (s *Service) closeIndexes() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.index != nil {
			_ = sess.index.Close()
		}
	}
}

// Ingest validates, deduplicates and routes one raw event onto its session's
// lane. The returned status tells the transport whether the event was
// accepted, a replay, or too late to enter the timeline.
func (s *Service) Ingest(ctx context.Context, raw event.Raw) (IngestResult, error) {
	if !s.running() {
		return IngestResult{}, ErrNotStarted
	}

	e, err := event.Normalize(raw)
	if err != nil {
		metrics.RecordEventRejected(rejectionReason(err))
		return IngestResult{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	res := IngestResult{EventID: e.ID, SessionID: e.SessionID}

	sess, err := s.sessionFor(ctx, e)
	if err != nil {
		metrics.RecordEventRejected(rejectionReason(err))
		return IngestResult{}, err
	}

	if s.deduper.SeenAndRecord(ctx, e.ID) {
		metrics.RecordEventDuplicate()
		res.Status = StatusDuplicate
		return res, nil
	}

	// The lane applies the authoritative lateness check; this pre-check only
	// shapes the ack so transport retries of a late event stay quiet.
	if hw := sess.timeline.HighWater(); hw > 0 && e.Timestamp < hw-s.cfg.GraceWindowMS {
		res.Status = StatusDroppedLate
	} else {
		res.Status = StatusAccepted
	}

	if err := s.lanes.Dispatch(ctx, e); err != nil {
		s.deduper.Unrecord(ctx, e.ID)
		metrics.RecordEventRejected("backpressure")
		return IngestResult{}, fmt.Errorf("%w: %w", ErrBackpressure, err)
	}
	metrics.RecordEventAccepted()
	return res, nil
}

// sessionFor resolves the live session an event belongs to, creating it for
// a session_started event.
func (s *Service) sessionFor(ctx context.Context, e event.Event) (*liveSession, error) {
	s.mu.RLock()
	sess, ok := s.sessions[e.SessionID]
	s.mu.RUnlock()

	if ok {
		if sess.timeline.Frozen() {
			return nil, ErrSessionClosed
		}
		return sess, nil
	}
	if e.Type != event.TypeSessionStarted {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, e.SessionID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[e.SessionID]; ok {
		return sess, nil
	}
	sess = s.newSession(ctx, e)
	s.sessions[e.SessionID] = sess
	metrics.UpdateLiveSessions(s.liveCountLocked())
	return sess, nil
}

func (s *Service) newSession(ctx context.Context, e event.Event) *liveSession {
	opts := []timeline.Option{
		timeline.WithGraceWindow(s.cfg.GraceWindowMS),
	}
	started, _ := e.Payload.(event.SessionStarted)
	if started.VideoID != "" {
		if md, err := s.videos.Metadata(ctx, started.VideoID); err == nil {
			startTS := md.StartTimestamp
			if startTS == 0 {
				startTS = e.Timestamp
			}
			opts = append(opts, timeline.WithVideo(timeline.Video{
				StartTimestamp:  startTS,
				DurationSeconds: md.DurationSeconds,
				URL:             md.URL,
			}))
		} else {
			s.log.Warn(ctx, "video metadata unavailable",
				logger.String("video_id", started.VideoID),
				logger.Error(err),
			)
		}
	}

	idx, err := search.NewIndex()
	if err != nil {
		// Queries degrade to low confidence; ingestion continues.
		s.log.Error(ctx, "retrieval index unavailable for session",
			logger.String("session_id", e.SessionID),
			logger.Error(err),
		)
		idx = nil
	}

	s.log.Info(ctx, "session opened",
		logger.String("session_id", e.SessionID),
		logger.String("user_id", e.UserID),
		logger.String("task_id", started.TaskID),
	)
	return &liveSession{
		timeline: timeline.New(e.SessionID, e.UserID, opts...),
		detector: violation.NewDetector(e.SessionID,
			violation.WithWindow(s.cfg.ViolationWindowEntries, int64(s.cfg.ViolationWindowSeconds)*1000),
			violation.WithRules(
				violation.NewPasteBurstRule(s.cfg.PasteCharsThreshold, s.cfg.PasteBurstMSThreshold),
				violation.NewRepeatedErrorRule(s.cfg.RepeatErrorThreshold),
				violation.NewHeartbeatAbsenceRule(int64(s.cfg.HeartbeatTimeoutSeconds)*1000),
			),
		),
		index:     idx,
		userID:    e.UserID,
		taskID:    started.TaskID,
		startedAt: e.Timestamp,
	}
}

// apply is the lane handler: the single writer for one session's state.
func (s *Service) apply(ctx context.Context, e event.Event) {
	s.mu.RLock()
	sess, ok := s.sessions[e.SessionID]
	s.mu.RUnlock()
	if !ok {
		s.log.Warn(ctx, "event for vanished session dropped",
			logger.String("session_id", e.SessionID),
			logger.String("event_id", e.ID),
		)
		return
	}

	entry, err := sess.timeline.Insert(e)
	switch {
	case errors.Is(err, timeline.ErrLateEvent):
		s.log.Debug(ctx, "late event dropped",
			logger.String("session_id", e.SessionID),
			logger.String("event_id", e.ID),
			logger.Int64("timestamp", e.Timestamp),
		)
		return
	case errors.Is(err, timeline.ErrSessionClosed):
		return
	case err != nil:
		s.log.Error(ctx, "timeline insert failed",
			logger.String("session_id", e.SessionID),
			logger.Error(err),
		)
		return
	}
	metrics.UpdateTimelineEntries(int(s.totalEntries.Add(1)))

	if sess.index != nil {
		if err := sess.index.Add(entry); err != nil {
			s.log.Warn(ctx, "index update failed",
				logger.String("session_id", e.SessionID),
				logger.String("entry_id", entry.EntryID),
				logger.Error(err),
			)
		}
	}

	if fresh := sess.detector.Observe(sess.timeline, entry); len(fresh) > 0 {
		for _, v := range fresh {
			s.log.Info(ctx, "violation detected",
				logger.String("session_id", v.SessionID),
				logger.String("type", v.Type),
				logger.String("severity", string(v.Severity)),
				logger.String("entry_id", v.EntryID),
			)
		}
	}

	if e.Type == event.TypeSessionEnded {
		s.finalize(ctx, sess)
	}
}

// finalize freezes the session, recomputes the owner's passport and
// archives everything. Runs on the session's lane goroutine.
func (s *Service) finalize(ctx context.Context, sess *liveSession) {
	sessionID := sess.timeline.SessionID()
	sess.timeline.Freeze()

	lock := s.userLock(sess.userID)
	lock.Lock()
	defer lock.Unlock()

	var prev *passport.Passport
	err := s.retrier.Do(ctx, "get passport", func(ctx context.Context) error {
		p, err := s.store.GetPassport(ctx, sess.userID)
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		prev = p
		return err
	})
	if err != nil {
		s.log.Error(ctx, "prior passport unavailable, scoring skipped",
			logger.String("session_id", sessionID),
			logger.Error(err),
		)
	}

	violations := sess.detector.Violations()
	var deltas map[string]float64
	if err == nil {
		// Compute records the scoring metrics itself.
		next, cerr := s.passports.Compute(ctx, sess.timeline, violations, prev)
		if cerr != nil {
			s.log.Error(ctx, "passport computation aborted, prior passport kept",
				logger.String("session_id", sessionID),
				logger.String("user_id", sess.userID),
				logger.Error(cerr),
			)
		} else {
			deltas = metricDeltas(prev, next)
			if serr := s.retrier.Do(ctx, "save passport", func(ctx context.Context) error {
				return s.store.SavePassport(ctx, next)
			}); serr != nil {
				s.log.Error(ctx, "passport persist failed",
					logger.String("user_id", sess.userID),
					logger.Error(serr),
				)
			}
		}
	}

	archived := repository.ArchivedSession{
		SessionID:   sessionID,
		UserID:      sess.userID,
		TaskID:      sess.taskID,
		StartedAt:   sess.startedAt,
		EndedAt:     sess.timeline.HighWater(),
		EventCount:  sess.timeline.Len(),
		DroppedLate: sess.timeline.DroppedLate(),
		Video:       sess.timeline.Video(),
		Entries:     sess.timeline.Snapshot(),
	}
	if err := s.retrier.Do(ctx, "archive session", func(ctx context.Context) error {
		return s.store.SaveSession(ctx, archived)
	}); err != nil {
		s.log.Error(ctx, "session archive failed",
			logger.String("session_id", sessionID),
			logger.Error(err),
		)
	}
	if err := s.retrier.Do(ctx, "archive violations", func(ctx context.Context) error {
		return s.store.SaveViolations(ctx, violations)
	}); err != nil {
		s.log.Error(ctx, "violation archive failed",
			logger.String("session_id", sessionID),
			logger.Error(err),
		)
	}

	s.mu.Lock()
	sess.metricDeltas = deltas
	sess.archived = true
	live := s.liveCountLocked()
	s.mu.Unlock()
	metrics.UpdateLiveSessions(live)

	s.lanes.CloseLane(sessionID)
	s.log.Info(ctx, "session finalized",
		logger.String("session_id", sessionID),
		logger.String("user_id", sess.userID),
		logger.Int("entries", archived.EventCount),
		logger.Int("violations", len(violations)),
	)
}

func metricDeltas(prev, next *passport.Passport) map[string]float64 {
	if next == nil {
		return nil
	}
	var base passport.Metrics
	if prev != nil {
		base = prev.Metrics
	}
	return map[string]float64{
		"iteration_velocity": next.Metrics.IterationVelocity - base.IterationVelocity,
		"debug_efficiency":   next.Metrics.DebugEfficiency - base.DebugEfficiency,
		"craftsmanship":      next.Metrics.Craftsmanship - base.Craftsmanship,
		"tool_fluency":       next.Metrics.ToolFluency - base.ToolFluency,
		"integrity":          next.Metrics.Integrity - base.Integrity,
	}
}

func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[userID] = lock
	}
	return lock
}

func (s *Service) running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func (s *Service) liveCountLocked() int {
	n := 0
	for _, sess := range s.sessions {
		if !sess.timeline.Frozen() {
			n++
		}
	}
	return n
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, event.ErrUnknownEventType):
		return "unknown_event_type"
	case errors.Is(err, event.ErrMissingSessionID):
		return "missing_session_id"
	case errors.Is(err, event.ErrMissingUserID):
		return "missing_user_id"
	case errors.Is(err, event.ErrInvalidTimestamp):
		return "invalid_timestamp"
	case errors.Is(err, ErrUnknownSession):
		return "unknown_session"
	case errors.Is(err, ErrSessionClosed):
		return "session_closed"
	default:
		return "other"
	}
}
