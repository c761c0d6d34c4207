// Package task holds the assessment task catalog and the logic that matches
// tasks to a user's skill passport.
package task

// Task describes one assessment exercise in the catalog.
type Task struct {
	ID          string   `json:"task_id"`
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	Difficulty  string   `json:"difficulty"` // "easy", "medium", "hard"
	Description string   `json:"description"`
	Skills      []string `json:"skills,omitempty"`
}

// DefaultCatalog seeds the catalog with tasks spanning every scored
// category at mixed difficulties.
func DefaultCatalog() []Task {
	return []Task{
		{ID: "algo-two-sum", Title: "Two Sum Variants", Category: "algorithms", Difficulty: "easy",
			Description: "Find index pairs summing to a target across three input shapes.",
			Skills:      []string{"arrays", "hashing"}},
		{ID: "algo-interval-merge", Title: "Interval Merging", Category: "algorithms", Difficulty: "medium",
			Description: "Merge overlapping intervals from an unsorted stream.",
			Skills:      []string{"sorting", "greedy"}},
		{ID: "algo-median-stream", Title: "Streaming Median", Category: "algorithms", Difficulty: "hard",
			Description: "Maintain the running median of an unbounded stream.",
			Skills:      []string{"heaps", "streaming"}},
		{ID: "ds-lru-cache", Title: "LRU Cache", Category: "data_structures", Difficulty: "medium",
			Description: "Build a fixed-capacity cache with O(1) get and put.",
			Skills:      []string{"linked-lists", "hashing"}},
		{ID: "ds-trie-complete", Title: "Autocomplete Trie", Category: "data_structures", Difficulty: "hard",
			Description: "Prefix completion over a large dictionary with ranked results.",
			Skills:      []string{"tries", "ranking"}},
		{ID: "sys-rate-limiter", Title: "Token Bucket Limiter", Category: "systems", Difficulty: "medium",
			Description: "Implement a concurrent per-client rate limiter.",
			Skills:      []string{"concurrency", "time"}},
		{ID: "sys-log-compact", Title: "Log Compaction", Category: "systems", Difficulty: "hard",
			Description: "Compact an append-only key-value log without losing live keys.",
			Skills:      []string{"io", "storage"}},
		{ID: "debug-flaky-test", Title: "Flaky Test Hunt", Category: "debugging", Difficulty: "easy",
			Description: "Find and fix the data race behind an intermittently failing test.",
			Skills:      []string{"races", "tests"}},
		{ID: "debug-leak", Title: "Memory Leak Triage", Category: "debugging", Difficulty: "medium",
			Description: "Locate and patch an unbounded growth bug from a heap profile.",
			Skills:      []string{"profiling", "memory"}},
		{ID: "fe-virtual-list", Title: "Virtualized List", Category: "frontend", Difficulty: "medium",
			Description: "Render a 100k-row list with smooth scrolling and selection.",
			Skills:      []string{"rendering", "state"}},
	}
}
