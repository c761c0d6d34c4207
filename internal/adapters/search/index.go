// Package search maintains a per-session in-memory retrieval index over
// timeline entries, used by the query layer to ground answers.
package search

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/talentlens/engine/internal/domain/event"
	"github.com/talentlens/engine/internal/domain/timeline"
)

// Hit is one scored index match.
type Hit struct {
	EntryID string
	Score   float64
}

// Index wraps an in-memory Bleve index over one session's timeline entries.
type Index struct {
	mu         sync.RWMutex
	bleveIndex bleve.Index
}

// entryDoc is the indexed document shape per timeline entry.
type entryDoc struct {
	Type string `json:"type"`
	Tags string `json:"tags"`
	Text string `json:"text"`
}

// NewIndex creates an empty in-memory index.
func NewIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create bleve index: %w", err)
	}
	return &Index{bleveIndex: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	entryMapping := bleve.NewDocumentMapping()

	typeField := bleve.NewTextFieldMapping()
	entryMapping.AddFieldMappingsAt("type", typeField)

	tagsField := bleve.NewTextFieldMapping()
	entryMapping.AddFieldMappingsAt("tags", tagsField)

	textField := bleve.NewTextFieldMapping()
	entryMapping.AddFieldMappingsAt("text", textField)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = entryMapping
	return m
}

// Add indexes a timeline entry keyed by its stable entry id. Re-adding the
// same entry overwrites the prior document, keeping the index idempotent.
func (i *Index) Add(entry timeline.Entry) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	doc := entryDoc{
		Type: string(entry.Event.Type),
		Tags: strings.Join(entry.DerivedTags, " "),
		Text: payloadText(entry.Event),
	}
	if err := i.bleveIndex.Index(entry.EntryID, doc); err != nil {
		return fmt.Errorf("index entry %s: %w", entry.EntryID, err)
	}
	return nil
}

// Search scores indexed entries against the question text.
func (i *Index) Search(question string, limit int) ([]Hit, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	q := bleve.NewMatchQuery(question)
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	res, err := i.bleveIndex.Search(req)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{EntryID: h.ID, Score: h.Score})
	}
	return hits, nil
}

// Close releases index resources.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.bleveIndex.Close(); err != nil {
		return fmt.Errorf("close bleve index: %w", err)
	}
	return nil
}

// payloadText renders the searchable free text for an event.
func payloadText(e event.Event) string {
	var parts []string
	switch p := e.Payload.(type) {
	case event.SessionStarted:
		parts = append(parts, "session started", p.TaskCategory, p.Difficulty)
	case event.SessionEnded:
		parts = append(parts, "session ended", p.Reason)
	case event.EditorCommand:
		parts = append(parts, "editor command", p.Command)
	case event.CodeChanged:
		parts = append(parts, "code changed")
	case event.RunAttempted:
		if p.Passed() {
			parts = append(parts, "run attempted passed", fmt.Sprintf("%d of %d tests passed", p.TestsPassed, p.TestsTotal))
		} else {
			parts = append(parts, "run attempted failed", fmt.Sprintf("%d of %d tests passed", p.TestsPassed, p.TestsTotal))
		}
	case event.ErrorEmitted:
		parts = append(parts, "error emitted", p.ErrorType)
		if p.IsRepeat {
			parts = append(parts, "repeated")
		}
	case event.FixApplied:
		parts = append(parts, "fix applied", p.ErrorType)
	case event.RefactorApplied:
		parts = append(parts, "refactor applied", p.Kind)
	case event.TestAdded:
		parts = append(parts, "test added", p.TestName)
	case event.PasteBurst:
		parts = append(parts, "paste burst detected", fmt.Sprintf("%d characters", p.CharsPasted))
	case event.TaskSubmitted:
		parts = append(parts, "task submitted", p.TaskID)
	case event.CameraHeartbeat:
		parts = append(parts, "camera heartbeat")
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
