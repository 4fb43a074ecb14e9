package ingest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/seanblong/docchat/internal/store"
	"github.com/seanblong/docchat/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	dim   int
	embed func(text string) ([]float32, error)
}

func (f *fakeEmbedder) Dim() int { return f.dim }

func (f *fakeEmbedder) Embed(text string) ([]float32, error) {
	if f.embed != nil {
		return f.embed(text)
	}
	vec := make([]float32, f.dim)
	for i := range vec {
		vec[i] = float32((len(text)+i)%7) + 0.5
	}
	return vec, nil
}

// recordingStore wraps Memory and records upsert batch sizes and recreate
// calls.
type recordingStore struct {
	*store.Memory
	batches   []int
	recreates int
}

func (r *recordingStore) Upsert(ctx context.Context, records []models.VectorRecord) error {
	r.batches = append(r.batches, len(records))
	return r.Memory.Upsert(ctx, records)
}

func (r *recordingStore) Recreate(ctx context.Context, dim int) error {
	r.recreates++
	return r.Memory.Recreate(ctx, dim)
}

func newPipeline(dim int) (*Pipeline, *recordingStore) {
	st := &recordingStore{Memory: store.NewMemory()}
	p := &Pipeline{
		Embedder:     &fakeEmbedder{dim: dim},
		Store:        st,
		ChunkSize:    20,
		ChunkOverlap: 0,
	}
	return p, st
}

func TestRecordID(t *testing.T) {
	assert.Equal(t, "report.txt-0", RecordID("report.txt", 0))
	assert.Equal(t, "my_file.txt-3", RecordID("my file.txt", 3))
	assert.Equal(t, "a_b_c-12", RecordID("a \t b\nc", 12))
	assert.Equal(t, RecordID("same.pdf", 7), RecordID("same.pdf", 7), "ids are deterministic")
}

func TestIngestEmptyDocument(t *testing.T) {
	p, st := newPipeline(4)
	for _, in := range []string{"", "   \n\t  ", "\f\r\n"} {
		n, err := p.Ingest(context.Background(), in, "empty.txt")
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	}
	assert.Empty(t, st.batches, "nothing reaches the store")
}

func TestIngestStoresChunks(t *testing.T) {
	p, st := newPipeline(4)
	require.NoError(t, st.Migrate(context.Background(), 4))

	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	p.Now = func() time.Time { return fixed }

	text := "segmentalphaoneoneon segmentbetatwotwotwo segmentgammathreeth"
	n, err := p.Ingest(context.Background(), text, "doc.txt")
	require.NoError(t, err)
	require.Greater(t, n, 1)

	stats, err := st.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(n), stats.TotalCount)
	assert.Equal(t, int64(n), stats.Sources["doc.txt"])

	matches, err := st.Search(context.Background(), make([]float32, 4), n, nil, true)
	require.NoError(t, err)
	require.Len(t, matches, n)
	for _, m := range matches {
		assert.Equal(t, "doc.txt", m.Metadata.Source)
		assert.Equal(t, fixed, m.Metadata.Timestamp)
		assert.Equal(t, RecordID("doc.txt", m.Metadata.ChunkIndex), m.ID)
		assert.NotEmpty(t, m.Metadata.Text)
		assert.NotEmpty(t, m.Metadata.Title)
	}
}

func TestIngestBatchesUpserts(t *testing.T) {
	p, st := newPipeline(4)
	p.BatchSize = 2

	// Five distinct 20-char segments become five unique chunks.
	var b strings.Builder
	for i := 0; i < 5; i++ {
		fmt.Fprintf(&b, "segment%02dpaddingpad", i)
	}
	n, err := p.Ingest(context.Background(), b.String(), "batched.txt")
	require.NoError(t, err)
	require.Equal(t, 5, n)
	assert.Equal(t, []int{2, 2, 1}, st.batches)
}

func TestIngestReingestOverwrites(t *testing.T) {
	p, st := newPipeline(4)

	text := "the first version of this document body"
	_, err := p.Ingest(context.Background(), text, "doc.txt")
	require.NoError(t, err)
	before, err := st.Stats(context.Background())
	require.NoError(t, err)

	_, err = p.Ingest(context.Background(), text, "doc.txt")
	require.NoError(t, err)
	after, err := st.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, before.TotalCount, after.TotalCount, "same ids upsert in place")
}

func TestIngestEmbeddingFailures(t *testing.T) {
	t.Run("embedder error", func(t *testing.T) {
		p, st := newPipeline(4)
		p.Embedder = &fakeEmbedder{dim: 4, embed: func(string) ([]float32, error) {
			return nil, errors.New("quota exceeded")
		}}
		_, err := p.Ingest(context.Background(), "some document text here", "doc.txt")
		var ve *EmbeddingValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, 0, ve.ChunkIndex)
		assert.Contains(t, ve.Error(), "failed to generate embedding for chunk 0")
		assert.Empty(t, st.batches)
	})

	t.Run("wrong dimension", func(t *testing.T) {
		p, _ := newPipeline(4)
		p.Embedder = &fakeEmbedder{dim: 4, embed: func(string) ([]float32, error) {
			return []float32{1, 2, 3}, nil
		}}
		_, err := p.Ingest(context.Background(), "some document text here", "doc.txt")
		var ve *EmbeddingValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Reason, "invalid length")
	})

	t.Run("non-finite values", func(t *testing.T) {
		p, _ := newPipeline(4)
		p.Embedder = &fakeEmbedder{dim: 4, embed: func(string) ([]float32, error) {
			return []float32{1, float32(math.NaN()), 3, 4}, nil
		}}
		_, err := p.Ingest(context.Background(), "some document text here", "doc.txt")
		var ve *EmbeddingValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Reason, "non-finite")
	})
}

func TestIngestDimensionMismatch(t *testing.T) {
	t.Run("recreate disabled", func(t *testing.T) {
		p, st := newPipeline(8)
		require.NoError(t, st.Migrate(context.Background(), 4))

		_, err := p.Ingest(context.Background(), "a document that does not fit", "doc.txt")
		require.Error(t, err)
		assert.True(t, store.IsDimensionMismatch(err))
		assert.Equal(t, 0, st.recreates)
	})

	t.Run("recreate enabled retries once", func(t *testing.T) {
		p, st := newPipeline(8)
		require.NoError(t, st.Migrate(context.Background(), 4))
		p.AllowRecreate = true

		n, err := p.Ingest(context.Background(), "a document that does not fit", "doc.txt")
		require.NoError(t, err)
		assert.Greater(t, n, 0)
		assert.Equal(t, 1, st.recreates)

		stats, err := st.Stats(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(n), stats.TotalCount)
	})
}
