// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file and env on top.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath locates the SQLite database for finalized session state.
	// Empty selects an in-memory database.
	DBPath string `koanf:"db_path"`

	// GraceWindowMS bounds how far behind a session's low-water mark an
	// event timestamp may fall before the event is dropped.
	GraceWindowMS int64 `koanf:"grace_window_ms"`

	// LaneBufferSize bounds each per-session ingestion lane.
	LaneBufferSize int `koanf:"lane_buffer_size"`

	// DedupeSize sets the size of the ingestion idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// Violation detector tuning.
	ViolationWindowEntries  int   `koanf:"violation_window_entries"`
	ViolationWindowSeconds  int   `koanf:"violation_window_seconds"`
	PasteCharsThreshold     int   `koanf:"paste_chars_threshold"`
	PasteBurstMSThreshold   int64 `koanf:"paste_burst_ms_threshold"`
	RepeatErrorThreshold    int   `koanf:"repeat_error_threshold"`
	HeartbeatTimeoutSeconds int   `koanf:"heartbeat_timeout_seconds"`

	// Query layer tuning.
	QueryTopK              int     `koanf:"query_top_k"`
	RelevanceFloor         float64 `koanf:"relevance_floor"`
	VideoSegmentPadSeconds float64 `koanf:"video_segment_pad_seconds"`

	// Store retry policy for transient failures.
	StoreRetryAttempts int   `koanf:"store_retry_attempts"`
	StoreRetryBaseMS   int64 `koanf:"store_retry_base_ms"`

	// MaxRecommendedLimit caps GET /tasks/recommended?limit.
	MaxRecommendedLimit int `koanf:"max_recommended_limit"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		Addr:                    ":9090",
		DBPath:                  "",
		GraceWindowMS:           2000,
		LaneBufferSize:          1024,
		DedupeSize:              100_000,
		ViolationWindowEntries:  50,
		ViolationWindowSeconds:  300,
		PasteCharsThreshold:     200,
		PasteBurstMSThreshold:   500,
		RepeatErrorThreshold:    3,
		HeartbeatTimeoutSeconds: 30,
		QueryTopK:               5,
		RelevanceFloor:          0.15,
		VideoSegmentPadSeconds:  5,
		StoreRetryAttempts:      3,
		StoreRetryBaseMS:        50,
		MaxRecommendedLimit:     20,
	}
}
