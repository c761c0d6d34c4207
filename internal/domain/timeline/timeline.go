// Package timeline assembles accepted events into an ordered, replayable
// per-session timeline.
package timeline

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talentlens/engine/internal/domain/event"
	"github.com/talentlens/engine/pkg/metrics"
)

// Video holds playback alignment metadata for a session recording.
type Video struct {
	StartTimestamp  int64 // ms since epoch; wall time of the first video frame
	DurationSeconds float64
	URL             string
}

// Entry is one element of a timeline.
//
// Index is positional: an out-of-order insert shifts the indices of all later
// entries. EntryID is the stable identity consumers must hold on to.
type Entry struct {
	Index                 int         `json:"index"`
	EntryID               string      `json:"entry_id"`
	Event                 event.Event `json:"-"`
	VideoTimestampSeconds *float64    `json:"video_timestamp_seconds,omitempty"`
	DerivedTags           []string    `json:"derived_tags"`
}

// Timeline owns the ordered entry sequence for one session. All mutation goes
// through a single writer (the session's ingestion lane); reads take
// consistent snapshots and never block that writer for long.
type Timeline struct {
	mu sync.RWMutex

	sessionID string
	userID    string
	video     *Video

	graceWindowMS int64

	entries   []Entry
	frozen    bool
	highWater int64  // newest applied timestamp; anchors the lateness check
	nextSeq   uint64 // next arrival sequence to assign

	droppedLate int // late events dropped beyond the grace window
}

// New creates an empty timeline for a session.
func New(sessionID, userID string, opts ...Option) *Timeline {
	t := &Timeline{
		sessionID:     sessionID,
		userID:        userID,
		graceWindowMS: 2000,
		nextSeq:       1,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Restore rebuilds a frozen timeline from archived entries. Entries must
// already be in canonical order with dense indices, as written at archive
// time.
func Restore(sessionID, userID string, video *Video, entries []Entry) *Timeline {
	t := New(sessionID, userID)
	t.video = video
	t.entries = append(t.entries, entries...)
	t.frozen = true
	for _, e := range entries {
		if e.Event.Timestamp > t.highWater {
			t.highWater = e.Event.Timestamp
		}
		if e.Event.ArrivalSeq >= t.nextSeq {
			t.nextSeq = e.Event.ArrivalSeq + 1
		}
	}
	return t
}

// SessionID returns the owning session's id.
func (t *Timeline) SessionID() string { return t.sessionID }

// UserID returns the session owner's user id.
func (t *Timeline) UserID() string { return t.userID }

// Video returns the attached video metadata, or nil.
func (t *Timeline) Video() *Video {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.video
}

// AttachVideo sets playback metadata. Existing entries gain video timestamps
// on the next insert-free pass; callers normally attach before any inserts.
func (t *Timeline) AttachVideo(v Video) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.video = &v
	for i := range t.entries {
		t.entries[i].VideoTimestampSeconds = t.videoTimestampLocked(t.entries[i].Event.Timestamp)
	}
}

// Insert places e into the timeline at its ordered position, assigning an
// arrival sequence when the event has none and a dense positional index.
//
// Re-inserting an event that already carries an assigned (timestamp,
// arrival sequence) pair is a no-op returning the existing entry, so replayed
// deliveries cannot duplicate entries.
func (t *Timeline) Insert(e event.Event) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordTimelineInsertLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return Entry{}, ErrSessionClosed
	}

	if e.ArrivalSeq != 0 {
		if existing, ok := t.findLocked(e.Timestamp, e.ArrivalSeq); ok {
			return existing, nil
		}
	}

	// Lateness is measured against the newest applied timestamp; events
	// beyond the grace window are dropped and counted, never inserted, to
	// bound re-sort cost.
	if t.highWater > 0 && e.Timestamp < t.highWater-t.graceWindowMS {
		t.droppedLate++
		metrics.RecordEventDroppedLate()
		return Entry{}, ErrLateEvent
	}

	if e.ArrivalSeq == 0 {
		e.ArrivalSeq = t.nextSeq
	}
	if e.ArrivalSeq >= t.nextSeq {
		t.nextSeq = e.ArrivalSeq + 1
	}

	entry := Entry{
		EntryID:               uuid.NewString(),
		Event:                 e,
		VideoTimestampSeconds: t.videoTimestampLocked(e.Timestamp),
		DerivedTags:           e.DerivedTags(),
	}

	pos := sort.Search(len(t.entries), func(i int) bool {
		return !entryBefore(t.entries[i].Event, e)
	})
	t.entries = append(t.entries, Entry{})
	copy(t.entries[pos+1:], t.entries[pos:])
	t.entries[pos] = entry

	// Positional renumbering: indices stay dense 0..N-1.
	for i := pos; i < len(t.entries); i++ {
		t.entries[i].Index = i
	}

	if e.Timestamp > t.highWater {
		t.highWater = e.Timestamp
	}
	return t.entries[pos], nil
}

// entryBefore orders events by (timestamp, arrival sequence).
func entryBefore(a, b event.Event) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	return a.ArrivalSeq < b.ArrivalSeq
}

func (t *Timeline) findLocked(ts int64, seq uint64) (Entry, bool) {
	pos := sort.Search(len(t.entries), func(i int) bool {
		ev := t.entries[i].Event
		if ev.Timestamp != ts {
			return ev.Timestamp > ts
		}
		return ev.ArrivalSeq >= seq
	})
	if pos < len(t.entries) {
		ev := t.entries[pos].Event
		if ev.Timestamp == ts && ev.ArrivalSeq == seq {
			return t.entries[pos], true
		}
	}
	return Entry{}, false
}

func (t *Timeline) videoTimestampLocked(eventTS int64) *float64 {
	if t.video == nil {
		return nil
	}
	sec := float64(eventTS-t.video.StartTimestamp) / 1000
	if sec < 0 {
		sec = 0
	}
	if sec > t.video.DurationSeconds {
		sec = t.video.DurationSeconds
	}
	return &sec
}

// Freeze closes the timeline. Subsequent inserts fail with ErrSessionClosed.
func (t *Timeline) Freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frozen = true
}

// Frozen reports whether the timeline has been finalized.
func (t *Timeline) Frozen() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frozen
}

// Len returns the current entry count.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// DroppedLate returns the count of events dropped beyond the grace window.
func (t *Timeline) DroppedLate() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.droppedLate
}

// HighWater returns the newest applied event timestamp.
func (t *Timeline) HighWater() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.highWater
}

// Snapshot returns a consistent copy of the ordered entries. Safe to call on
// a live timeline; the copy does not observe later inserts.
func (t *Timeline) Snapshot() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// EntryByID finds an entry by its stable id.
func (t *Timeline) EntryByID(entryID string) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, e := range t.entries {
		if e.EntryID == entryID {
			return e, true
		}
	}
	return Entry{}, false
}

// Window returns the trailing entries bounded by count and by wall-clock span
// relative to the newest entry, whichever limit is smaller. Used by the
// violation detector to keep per-event cost independent of session length.
func (t *Timeline) Window(maxEntries int, maxSpanMS int64) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := len(t.entries)
	if n == 0 {
		return nil
	}
	lo := n - maxEntries
	if lo < 0 {
		lo = 0
	}
	newest := t.entries[n-1].Event.Timestamp
	for lo < n && t.entries[lo].Event.Timestamp < newest-maxSpanMS {
		lo++
	}
	out := make([]Entry, n-lo)
	copy(out, t.entries[lo:])
	return out
}
