package violation

// Option applies a configuration option to the Detector.
type Option func(*Detector)

// WithRules replaces the default rule set.
func WithRules(rules ...Rule) Option {
	return func(d *Detector) {
		if len(rules) > 0 {
			d.rules = rules
		}
	}
}

// WithWindow bounds the look-back window by entry count and wall-clock span.
func WithWindow(maxEntries int, maxSpanMS int64) Option {
	return func(d *Detector) {
		if maxEntries > 0 {
			d.windowEntries = maxEntries
		}
		if maxSpanMS > 0 {
			d.windowSpanMS = maxSpanMS
		}
	}
}
