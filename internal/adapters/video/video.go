// Package video resolves recording metadata for proctored sessions so
// timeline entries can be mapped onto playback offsets.
package video

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound indicates no recording is registered for the id.
var ErrNotFound = errors.New("recording not found")

// Metadata describes one session recording. A zero StartTimestamp means
// the recording starts with the session.
type Metadata struct {
	StartTimestamp  int64
	DurationSeconds float64
	URL             string
}

// Provider resolves recording metadata by video id.
type Provider interface {
	Metadata(ctx context.Context, videoID string) (Metadata, error)
}

const defaultDurationSeconds = 3600

// StaticProvider serves registered recordings and synthesizes deterministic
// metadata for unknown ids. It stands in for the recording backend until
// one is wired up.
type StaticProvider struct {
	mu         sync.RWMutex
	recordings map[string]Metadata
	baseURL    string
}

// Option applies a configuration option to the StaticProvider.
type Option func(*StaticProvider)

// WithBaseURL sets the URL prefix for synthesized recordings.
func WithBaseURL(base string) Option {
	return func(p *StaticProvider) {
		if base != "" {
			p.baseURL = base
		}
	}
}

// NewStaticProvider creates an empty provider.
func NewStaticProvider(opts ...Option) *StaticProvider {
	p := &StaticProvider{
		recordings: map[string]Metadata{},
		baseURL:    "https://recordings.talentlens.dev",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Register stores metadata for a video id, replacing any previous entry.
func (p *StaticProvider) Register(videoID string, md Metadata) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recordings[videoID] = md
}

// Metadata returns the registered recording, or a synthesized one anchored
// at the session start for ids that were never registered.
func (p *StaticProvider) Metadata(_ context.Context, videoID string) (Metadata, error) {
	if videoID == "" {
		return Metadata{}, ErrNotFound
	}
	p.mu.RLock()
	md, ok := p.recordings[videoID]
	p.mu.RUnlock()
	if ok {
		return md, nil
	}
	return Metadata{
		DurationSeconds: defaultDurationSeconds,
		URL:             fmt.Sprintf("%s/%s", p.baseURL, videoID),
	}, nil
}
