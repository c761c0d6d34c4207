// Package repository persists finalized session timelines, computed
// passports, detected violations and the task catalog in SQLite. Live
// session state never touches this package; sessions arrive here only once
// frozen.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/talentlens/engine/internal/domain/event"
	"github.com/talentlens/engine/internal/domain/passport"
	"github.com/talentlens/engine/internal/domain/task"
	"github.com/talentlens/engine/internal/domain/timeline"
	"github.com/talentlens/engine/internal/domain/violation"
)

// ArchivedSession is the frozen form of a session written at finalization.
type ArchivedSession struct {
	SessionID   string
	UserID      string
	TaskID      string
	StartedAt   int64
	EndedAt     int64
	EventCount  int
	DroppedLate int
	Video       *timeline.Video
	Entries     []timeline.Entry
}

// Store encapsulates access to the engine's SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore constructs a data access object over an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Init applies the schema for sessions, violations, passports and tasks.
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			task_id TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			ended_at INTEGER NOT NULL,
			event_count INTEGER NOT NULL,
			dropped_late INTEGER NOT NULL,
			video TEXT,
			entries TEXT NOT NULL,
			archived_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id, ended_at DESC);`,
		`CREATE TABLE IF NOT EXISTS violations (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			entry_id TEXT NOT NULL,
			type TEXT NOT NULL,
			severity TEXT NOT NULL,
			detected_at TIMESTAMP NOT NULL,
			UNIQUE(session_id, entry_id, type)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_violations_session ON violations(session_id);`,
		`CREATE TABLE IF NOT EXISTS passports (
			user_id TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			task_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			category TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			description TEXT NOT NULL,
			skills TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// entryRecord is the wire shape an archived timeline entry is stored in.
// The typed payload is flattened back into open properties so it can be
// rebuilt on load.
type entryRecord struct {
	Index      int            `json:"index"`
	EntryID    string         `json:"entry_id"`
	EventID    string         `json:"event_id"`
	EventType  string         `json:"event_type"`
	Timestamp  int64          `json:"timestamp"`
	ArrivalSeq uint64         `json:"arrival_seq"`
	VideoTS    *float64       `json:"video_timestamp_seconds,omitempty"`
	Tags       []string       `json:"tags,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

func encodeEntries(entries []timeline.Entry) ([]byte, error) {
	records := make([]entryRecord, 0, len(entries))
	for _, e := range entries {
		props := event.EncodePayload(e.Event.Payload)
		if props == nil && len(e.Event.Extra) > 0 {
			props = map[string]any{}
		}
		for k, v := range e.Event.Extra {
			props[k] = v
		}
		records = append(records, entryRecord{
			Index:      e.Index,
			EntryID:    e.EntryID,
			EventID:    e.Event.ID,
			EventType:  string(e.Event.Type),
			Timestamp:  e.Event.Timestamp,
			ArrivalSeq: e.Event.ArrivalSeq,
			VideoTS:    e.VideoTimestampSeconds,
			Tags:       e.DerivedTags,
			Properties: props,
		})
	}
	return json.Marshal(records)
}

func decodeEntries(raw []byte, sessionID, userID, taskID string) ([]timeline.Entry, error) {
	var records []entryRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	entries := make([]timeline.Entry, 0, len(records))
	for _, r := range records {
		payload, extra, err := event.DecodePayload(event.Type(r.EventType), r.Properties)
		if err != nil {
			return nil, fmt.Errorf("decode entry %s payload: %w", r.EntryID, err)
		}
		entries = append(entries, timeline.Entry{
			Index:   r.Index,
			EntryID: r.EntryID,
			Event: event.Event{
				ID:         r.EventID,
				Type:       event.Type(r.EventType),
				UserID:     userID,
				SessionID:  sessionID,
				TaskID:     taskID,
				Timestamp:  r.Timestamp,
				ArrivalSeq: r.ArrivalSeq,
				Payload:    payload,
				Extra:      extra,
			},
			VideoTimestampSeconds: r.VideoTS,
			DerivedTags:           r.Tags,
		})
	}
	return entries, nil
}

// SaveSession archives a frozen session. Re-archiving the same session id
// replaces the previous row so finalization stays idempotent.
func (s *Store) SaveSession(ctx context.Context, session ArchivedSession) error {
	entries, err := encodeEntries(session.Entries)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.SessionID, err)
	}
	var video sql.NullString
	if session.Video != nil {
		raw, err := json.Marshal(session.Video)
		if err != nil {
			return fmt.Errorf("encode session %s video: %w", session.SessionID, err)
		}
		video = sql.NullString{String: string(raw), Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions(session_id, user_id, task_id, started_at, ended_at, event_count, dropped_late, video, entries)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
			ended_at = excluded.ended_at,
			event_count = excluded.event_count,
			dropped_late = excluded.dropped_late,
			video = excluded.video,
			entries = excluded.entries`,
		session.SessionID, session.UserID, session.TaskID,
		session.StartedAt, session.EndedAt, session.EventCount, session.DroppedLate,
		video, string(entries),
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w: %w", session.SessionID, ErrUnavailable, err)
	}
	return nil
}

// GetSession loads an archived session by id.
func (s *Store) GetSession(ctx context.Context, sessionID string) (ArchivedSession, error) {
	var (
		session ArchivedSession
		video   sql.NullString
		entries string
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, user_id, task_id, started_at, ended_at, event_count, dropped_late, video, entries
		 FROM sessions WHERE session_id = ?`, sessionID)
	err := row.Scan(&session.SessionID, &session.UserID, &session.TaskID,
		&session.StartedAt, &session.EndedAt, &session.EventCount, &session.DroppedLate,
		&video, &entries)
	if errors.Is(err, sql.ErrNoRows) {
		return ArchivedSession{}, ErrSessionNotFound
	}
	if err != nil {
		return ArchivedSession{}, fmt.Errorf("get session %s: %w: %w", sessionID, ErrUnavailable, err)
	}
	if video.Valid {
		var v timeline.Video
		if err := json.Unmarshal([]byte(video.String), &v); err != nil {
			return ArchivedSession{}, fmt.Errorf("decode session %s video: %w", sessionID, err)
		}
		session.Video = &v
	}
	session.Entries, err = decodeEntries([]byte(entries), session.SessionID, session.UserID, session.TaskID)
	if err != nil {
		return ArchivedSession{}, err
	}
	return session, nil
}

// SaveViolations persists detected violations. Duplicates by
// (session, entry, type) are ignored so repeated finalization stays safe.
func (s *Store) SaveViolations(ctx context.Context, violations []violation.Violation) error {
	for _, v := range violations {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO violations(id, session_id, entry_id, type, severity, detected_at)
			 VALUES(?, ?, ?, ?, ?, ?)
			 ON CONFLICT(session_id, entry_id, type) DO NOTHING`,
			v.ID, v.SessionID, v.EntryID, v.Type, string(v.Severity), v.DetectedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("save violation %s: %w: %w", v.ID, ErrUnavailable, err)
		}
	}
	return nil
}

// ListViolations returns the persisted violations for a session.
func (s *Store) ListViolations(ctx context.Context, sessionID string) ([]violation.Violation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, entry_id, type, severity, detected_at
		 FROM violations WHERE session_id = ? ORDER BY detected_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list violations %s: %w: %w", sessionID, ErrUnavailable, err)
	}
	defer rows.Close()
	var out []violation.Violation
	for rows.Next() {
		var (
			v        violation.Violation
			severity string
		)
		if err := rows.Scan(&v.ID, &v.SessionID, &v.EntryID, &v.Type, &severity, &v.DetectedAt); err != nil {
			return nil, fmt.Errorf("scan violation: %w", err)
		}
		v.Severity = violation.Severity(severity)
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter violations: %w", err)
	}
	return out, nil
}

// SavePassport atomically replaces the stored passport for a user.
func (s *Store) SavePassport(ctx context.Context, p *passport.Passport) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode passport %s: %w", p.UserID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO passports(user_id, payload, updated_at) VALUES(?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		p.UserID, string(raw), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save passport %s: %w: %w", p.UserID, ErrUnavailable, err)
	}
	return nil
}

// GetPassport loads the current passport for a user.
func (s *Store) GetPassport(ctx context.Context, userID string) (*passport.Passport, error) {
	var raw string
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM passports WHERE user_id = ?`, userID)
	err := row.Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get passport %s: %w: %w", userID, ErrUnavailable, err)
	}
	var p passport.Passport
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode passport %s: %w", userID, err)
	}
	return &p, nil
}

// UpsertTask adds or updates one catalog task.
func (s *Store) UpsertTask(ctx context.Context, t task.Task) error {
	skills, err := json.Marshal(t.Skills)
	if err != nil {
		return fmt.Errorf("encode task %s skills: %w", t.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tasks(task_id, title, category, difficulty, description, skills)
		 VALUES(?, ?, ?, ?, ?, ?)
		 ON CONFLICT(task_id) DO UPDATE SET
			title = excluded.title,
			category = excluded.category,
			difficulty = excluded.difficulty,
			description = excluded.description,
			skills = excluded.skills`,
		t.ID, t.Title, t.Category, t.Difficulty, t.Description, string(skills),
	)
	if err != nil {
		return fmt.Errorf("upsert task %s: %w: %w", t.ID, ErrUnavailable, err)
	}
	return nil
}

// SeedTasks inserts catalog tasks that are not present yet.
func (s *Store) SeedTasks(ctx context.Context, tasks []task.Task) error {
	for _, t := range tasks {
		if err := s.UpsertTask(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// GetTask loads one catalog task.
func (s *Store) GetTask(ctx context.Context, taskID string) (task.Task, error) {
	var (
		t      task.Task
		skills string
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT task_id, title, category, difficulty, description, skills FROM tasks WHERE task_id = ?`, taskID)
	err := row.Scan(&t.ID, &t.Title, &t.Category, &t.Difficulty, &t.Description, &skills)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, ErrTaskNotFound
	}
	if err != nil {
		return task.Task{}, fmt.Errorf("get task %s: %w: %w", taskID, ErrUnavailable, err)
	}
	if err := json.Unmarshal([]byte(skills), &t.Skills); err != nil {
		return task.Task{}, fmt.Errorf("decode task %s skills: %w", taskID, err)
	}
	return t, nil
}

// ListTasks returns the whole catalog ordered by id.
func (s *Store) ListTasks(ctx context.Context) ([]task.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id, title, category, difficulty, description, skills FROM tasks ORDER BY task_id`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w: %w", ErrUnavailable, err)
	}
	defer rows.Close()
	var out []task.Task
	for rows.Next() {
		var (
			t      task.Task
			skills string
		)
		if err := rows.Scan(&t.ID, &t.Title, &t.Category, &t.Difficulty, &t.Description, &skills); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		if err := json.Unmarshal([]byte(skills), &t.Skills); err != nil {
			return nil, fmt.Errorf("decode task %s skills: %w", t.ID, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter tasks: %w", err)
	}
	return out, nil
}

// SessionCountByUser returns how many archived sessions a user has.
func (s *Store) SessionCountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE user_id = ?`, userID)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions %s: %w: %w", userID, ErrUnavailable, err)
	}
	return n, nil
}
