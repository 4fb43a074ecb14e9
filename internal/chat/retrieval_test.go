package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/seanblong/docchat/internal/store"
	"github.com/seanblong/docchat/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embedFunc func(text string) ([]float32, error)

func (f embedFunc) Embed(text string) ([]float32, error) { return f(text) }

func fixedEmbedder(vec []float32) embedFunc {
	return func(string) ([]float32, error) { return vec, nil }
}

func seededStore(t *testing.T) *store.Memory {
	t.Helper()
	m := store.NewMemory()
	require.NoError(t, m.Migrate(context.Background(), 4))
	records := []models.VectorRecord{
		{
			ID:     "guide.txt-0",
			Values: []float32{1, 0, 0, 0},
			Metadata: models.Metadata{
				Text:      "Refunds are processed within five business days.",
				Title:     "Refunds are processed",
				Summary:   "Refunds are processed within five business days",
				Source:    "guide.txt",
				Timestamp: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
			},
		},
		{
			ID:     "guide.txt-1",
			Values: []float32{0.5, 0.5, 0, 0},
			Metadata: models.Metadata{
				Text:       "Exchanges require the original receipt.",
				Source:     "guide.txt",
				ChunkIndex: 1,
			},
		},
		{
			ID:     "other.pdf-0",
			Values: []float32{0, 0, 1, 0},
			Metadata: models.Metadata{
				Text:   "Unrelated shipping information.",
				Source: "other.pdf",
			},
		},
	}
	require.NoError(t, m.Upsert(context.Background(), records))
	return m
}

func TestRetrievePreservesRankOrder(t *testing.T) {
	r := &Retriever{
		Embedder: fixedEmbedder([]float32{1, 0, 0, 0}),
		Store:    seededStore(t),
	}
	got, err := r.Retrieve(context.Background(), "refund policy", 2, nil)
	require.NoError(t, err)
	require.Len(t, got.Matches, 2)
	assert.Equal(t, "guide.txt-0", got.Matches[0].ID)
	assert.Equal(t, "guide.txt-1", got.Matches[1].ID)

	require.Len(t, got.Citations, 2, "one citation per match")
	assert.Equal(t, got.Matches[0].ID, got.Citations[0].ID)
	assert.Equal(t, got.Matches[1].ID, got.Citations[1].ID)
	assert.Contains(t, got.Context, "[1] Source: guide.txt")
	assert.Contains(t, got.Context, "[2] Source: guide.txt")
}

func TestRetrieveEmbedErrorPropagates(t *testing.T) {
	r := &Retriever{
		Embedder: embedFunc(func(string) ([]float32, error) {
			return nil, errors.New("provider down")
		}),
		Store: store.NewMemory(),
	}
	_, err := r.Retrieve(context.Background(), "anything", 3, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed query")
}

func TestRetrieveNoMatches(t *testing.T) {
	r := &Retriever{
		Embedder: fixedEmbedder([]float32{1, 0, 0, 0}),
		Store:    store.NewMemory(),
	}
	got, err := r.Retrieve(context.Background(), "anything", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, got.Matches)
	assert.Equal(t, NoMatchesContext, got.Context)
	assert.Empty(t, got.Citations)
}

func TestBuildContextFormat(t *testing.T) {
	matches := []models.SearchMatch{
		{
			ID:    "a-0",
			Score: 0.912,
			Metadata: models.Metadata{
				Text:    "Body of the first chunk.",
				Title:   "First title",
				Summary: "First summary",
				Source:  "a.txt",
			},
		},
		{
			ID:       "b-0",
			Score:    0.5,
			Metadata: models.Metadata{Text: "Second body."},
		},
	}
	got := BuildContext(matches)

	want := "Retrieved Context:\n\n" +
		"[1] Source: a.txt (Score: 0.912)\n" +
		"Title: First title\n" +
		"Summary: First summary\n" +
		"Content: Body of the first chunk.\n\n" +
		"[2] Source: Unknown source (Score: 0.500)\n" +
		"Content: Second body.\n\n"
	assert.Equal(t, want, got)
}

func TestBuildContextEmpty(t *testing.T) {
	assert.Equal(t, NoMatchesContext, BuildContext(nil))
	assert.Equal(t, NoMatchesContext, BuildContext([]models.SearchMatch{}))
}

func TestBuildCitationsDefaults(t *testing.T) {
	matches := []models.SearchMatch{
		{Score: 0.4, Metadata: models.Metadata{Text: "orphan chunk"}},
		{ID: "doc-3", Score: 0.3, Metadata: models.Metadata{Text: "known", Source: "doc.txt"}},
	}
	citations := BuildCitations(matches)
	require.Len(t, citations, 2)

	assert.Equal(t, "citation-0", citations[0].ID)
	assert.Equal(t, "Unknown source", citations[0].Source)
	assert.Equal(t, "orphan chunk", citations[0].Content)

	assert.Equal(t, "doc-3", citations[1].ID)
	assert.Equal(t, "doc.txt", citations[1].Source)
}

func TestBuildCitationsScaleWithTopK(t *testing.T) {
	var matches []models.SearchMatch
	for i := 0; i < 7; i++ {
		matches = append(matches, models.SearchMatch{ID: fmt.Sprintf("m-%d", i)})
	}
	citations := BuildCitations(matches)
	require.Len(t, citations, 7)
	for i, c := range citations {
		assert.Equal(t, matches[i].ID, c.ID)
	}
}
