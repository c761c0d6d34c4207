// Package query answers free-text questions about a session by locating
// relevant timeline entries and grounding the response in timeline jumps and
// video segments. Text generation itself is delegated to an Answerer.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/talentlens/engine/internal/adapters/search"
	"github.com/talentlens/engine/internal/domain/timeline"
	"github.com/talentlens/engine/pkg/metrics"
)

// Jump references a timeline entry relevant to the question.
type Jump struct {
	EntryID   string  `json:"entry_id"`
	Index     int     `json:"index"`
	EventType string  `json:"event_type"`
	Timestamp int64   `json:"timestamp"`
	Relevance float64 `json:"relevance"`
}

// VideoSegment is a playback window around a relevant entry.
type VideoSegment struct {
	EntryID      string  `json:"entry_id"`
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
	URL          string  `json:"url,omitempty"`
}

// Answer is a grounded response to a timeline question.
type Answer struct {
	Text          string         `json:"text"`
	TimelineJumps []Jump         `json:"timeline_jumps"`
	VideoSegments []VideoSegment `json:"video_segments,omitempty"`
	Confidence    float64        `json:"confidence"`
	LowConfidence bool           `json:"low_confidence"`
}

// Engine ranks timeline entries against questions and assembles grounded
// answers. It is read-only over timeline snapshots and never blocks
// ingestion.
type Engine struct {
	answerer        Answerer
	topK            int
	relevanceFloor  float64
	videoPadSeconds float64
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithAnswerer sets the external answer-generation capability.
func WithAnswerer(a Answerer) Option {
	return func(e *Engine) {
		if a != nil {
			e.answerer = a
		}
	}
}

// WithTopK bounds how many entries ground an answer.
func WithTopK(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// WithRelevanceFloor sets the minimum normalized score for grounding.
func WithRelevanceFloor(floor float64) Option {
	return func(e *Engine) {
		if floor >= 0 && floor <= 1 {
			e.relevanceFloor = floor
		}
	}
}

// WithVideoSegmentPad sets the half-width of emitted video segments.
func WithVideoSegmentPad(seconds float64) Option {
	return func(e *Engine) {
		if seconds > 0 {
			e.videoPadSeconds = seconds
		}
	}
}

// NewEngine creates a query engine with defaults matching the service
// configuration defaults.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		answerer:        NewTemplateAnswerer(),
		topK:            5,
		relevanceFloor:  0.15,
		videoPadSeconds: 5,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ask answers a question against the session's timeline and retrieval index.
// When no entry clears the relevance floor, or the session has no index at
// all, it returns a low-confidence answer with no jumps rather than
// fabricating a target.
func (e *Engine) Ask(ctx context.Context, tl *timeline.Timeline, idx *search.Index, question string, includeVideo bool) (Answer, error) {
	start := time.Now()
	defer func() {
		metrics.RecordAskLatency(float64(time.Since(start).Milliseconds()))
	}()
	metrics.RecordAskRequest()

	if idx == nil {
		return e.lowConfidenceAnswer(ctx, question)
	}

	keywords := ExtractKeywords(question)
	if len(keywords) == 0 {
		return e.lowConfidenceAnswer(ctx, question)
	}

	hits, err := idx.Search(strings.Join(keywords, " "), e.topK)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieval failed: %w", err)
	}

	var jumps []Jump
	var contexts []string
	var segments []VideoSegment
	video := tl.Video()

	// Hits come back ordered by score, so the first one anchors the
	// relevance scale for the rest.
	bestScore := 0.0
	if len(hits) > 0 {
		bestScore = hits[0].Score
	}

	for _, hit := range hits {
		if bestScore <= 0 {
			break
		}
		relevance := hit.Score / bestScore
		if relevance < e.relevanceFloor {
			continue
		}
		entry, ok := tl.EntryByID(hit.EntryID)
		if !ok {
			// Index can momentarily lead the snapshot on a live session.
			continue
		}
		jumps = append(jumps, Jump{
			EntryID:   entry.EntryID,
			Index:     entry.Index,
			EventType: string(entry.Event.Type),
			Timestamp: entry.Event.Timestamp,
			Relevance: relevance,
		})
		contexts = append(contexts, entryContext(entry))

		if includeVideo && video != nil && entry.VideoTimestampSeconds != nil {
			segments = append(segments, e.videoSegment(entry, video))
		}
	}

	if len(jumps) == 0 {
		return e.lowConfidenceAnswer(ctx, question)
	}

	text, err := e.answerer.Answer(ctx, question, contexts)
	if err != nil {
		return Answer{}, fmt.Errorf("answer generation failed: %w", err)
	}

	return Answer{
		Text:          text,
		TimelineJumps: jumps,
		VideoSegments: segments,
		Confidence:    normalizeScore(bestScore),
	}, nil
}

func (e *Engine) lowConfidenceAnswer(ctx context.Context, question string) (Answer, error) {
	metrics.RecordAskLowConfidence()
	text, err := e.answerer.Answer(ctx, question, nil)
	if err != nil {
		return Answer{}, fmt.Errorf("answer generation failed: %w", err)
	}
	return Answer{
		Text:          text,
		Confidence:    0,
		LowConfidence: true,
	}, nil
}

func (e *Engine) videoSegment(entry timeline.Entry, video *timeline.Video) VideoSegment {
	center := *entry.VideoTimestampSeconds
	start := center - e.videoPadSeconds
	if start < 0 {
		start = 0
	}
	end := center + e.videoPadSeconds
	if end > video.DurationSeconds {
		end = video.DurationSeconds
	}
	return VideoSegment{
		EntryID:      entry.EntryID,
		StartSeconds: start,
		EndSeconds:   end,
		URL:          video.URL,
	}
}

// normalizeScore maps raw index scores onto (0,1), monotonic in the raw
// score so confidences are comparable across calls for the same session.
func normalizeScore(raw float64) float64 {
	if raw <= 0 {
		return 0
	}
	return raw / (raw + 1)
}

// entryContext renders an entry as answer-generation context.
func entryContext(entry timeline.Entry) string {
	ts := entry.Event.Timestamp
	return fmt.Sprintf("[entry %d @ %dms] %s: %s",
		entry.Index, ts, entry.Event.Type, strings.Join(entry.DerivedTags, ", "))
}
