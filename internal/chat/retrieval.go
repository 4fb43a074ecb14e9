package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/seanblong/docchat/internal/store"
	"github.com/seanblong/docchat/pkg/models"
)

// NoMatchesContext is returned verbatim when the store finds nothing.
const NoMatchesContext = "No relevant documents found in the knowledge base."

// Embedder is the slice of the AI client retrieval needs.
type Embedder interface {
	Embed(text string) ([]float32, error)
}

// Retrieval is the output of one retrieve call: raw matches in the store's
// rank order, the assembled context block, and one citation per match.
type Retrieval struct {
	Matches   []models.SearchMatch
	Context   string
	Citations []models.Citation
}

// Retriever embeds a query and assembles a grounded context window from the
// vector store's nearest neighbors.
type Retriever struct {
	Embedder Embedder
	Store    store.VectorStore
}

// Retrieve embeds the query, searches the store and builds context plus
// citations. The store's native rank order is trusted; no re-sorting.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, filter store.Filter) (Retrieval, error) {
	vec, err := r.Embedder.Embed(query)
	if err != nil {
		return Retrieval{}, fmt.Errorf("embed query: %w", err)
	}

	matches, err := r.Store.Search(ctx, vec, topK, filter, true)
	if err != nil {
		return Retrieval{}, err
	}

	return Retrieval{
		Matches:   matches,
		Context:   BuildContext(matches),
		Citations: BuildCitations(matches),
	}, nil
}

// BuildContext renders matches as a human-readable block for the generator.
func BuildContext(matches []models.SearchMatch) string {
	if len(matches) == 0 {
		return NoMatchesContext
	}

	var b strings.Builder
	b.WriteString("Retrieved Context:\n\n")
	for i, m := range matches {
		source := m.Metadata.Source
		if source == "" {
			source = "Unknown source"
		}
		fmt.Fprintf(&b, "[%d] Source: %s (Score: %.3f)\n", i+1, source, m.Score)
		if m.Metadata.Title != "" {
			fmt.Fprintf(&b, "Title: %s\n", m.Metadata.Title)
		}
		if m.Metadata.Summary != "" {
			fmt.Fprintf(&b, "Summary: %s\n", m.Metadata.Summary)
		}
		fmt.Fprintf(&b, "Content: %s\n\n", m.Metadata.Text)
	}
	return b.String()
}

// BuildCitations derives one citation per match, preserving rank order.
// Missing optional metadata never fails; it falls back to empty content and
// "Unknown source".
func BuildCitations(matches []models.SearchMatch) []models.Citation {
	citations := make([]models.Citation, 0, len(matches))
	for i, m := range matches {
		id := m.ID
		if id == "" {
			id = fmt.Sprintf("citation-%d", i)
		}
		source := m.Metadata.Source
		if source == "" {
			source = "Unknown source"
		}
		citations = append(citations, models.Citation{
			ID:       id,
			Content:  m.Metadata.Text,
			Source:   source,
			Metadata: m.Metadata,
		})
	}
	return citations
}
