package query

import (
	"context"
	"fmt"
	"strings"
)

// Answerer turns a question plus retrieved timeline context into prose.
// Implementations may call out to an external model; the engine only
// requires determinism with respect to its inputs for testability.
type Answerer interface {
	Answer(ctx context.Context, question string, contexts []string) (string, error)
}

// TemplateAnswerer is a deterministic Answerer that composes its response
// from the retrieved context lines. It serves as the default until an
// external generation backend is wired in.
type TemplateAnswerer struct{}

// NewTemplateAnswerer creates the default deterministic answerer.
func NewTemplateAnswerer() *TemplateAnswerer { return &TemplateAnswerer{} }

// Answer renders a grounded summary of the retrieved entries, or a fallback
// when nothing relevant was found.
func (a *TemplateAnswerer) Answer(_ context.Context, question string, contexts []string) (string, error) {
	if len(contexts) == 0 {
		return fmt.Sprintf("No timeline activity matched %q with enough confidence to answer.", strings.TrimSpace(question)), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Based on %d matching timeline moment(s):\n", len(contexts))
	for _, c := range contexts {
		b.WriteString("- ")
		b.WriteString(c)
		b.WriteByte('\n')
	}
	return b.String(), nil
}
