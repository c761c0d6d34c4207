package timeline

// Option applies a configuration option to a Timeline.
type Option func(*Timeline)

// WithGraceWindow sets how far behind the high-water mark an event timestamp
// may fall before the event is dropped.
func WithGraceWindow(ms int64) Option {
	return func(t *Timeline) {
		if ms >= 0 {
			t.graceWindowMS = ms
		}
	}
}

// WithVideo attaches video playback metadata at construction.
func WithVideo(v Video) Option {
	return func(t *Timeline) {
		t.video = &v
	}
}
