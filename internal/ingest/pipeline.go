package ingest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/seanblong/docchat/internal/store"
	"github.com/seanblong/docchat/pkg/models"
)

// Embedder is the slice of the AI client the pipeline needs.
type Embedder interface {
	Embed(text string) ([]float32, error)
	Dim() int
}

// DefaultBatchSize bounds upsert request size and memory.
const DefaultBatchSize = 100

// Pipeline runs normalize -> chunk -> dedupe -> embed -> store for one
// document per call. Embedding and store calls are sequential; there is no
// intra-document parallelism.
type Pipeline struct {
	Embedder Embedder
	Store    store.VectorStore

	ChunkSize    int
	ChunkOverlap int
	BatchSize    int

	// AllowRecreate permits one destructive index-recreation-and-retry cycle
	// when the store rejects a batch for dimension mismatch. Off by default:
	// recreation drops every stored vector.
	AllowRecreate bool

	Now func() time.Time
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// RecordID builds the deterministic vector id for a (source, chunk index)
// pair. Re-ingesting the same file therefore upserts over the same ids; it
// does not delete stale trailing chunks left by a previously longer version.
func RecordID(source string, index int) string {
	return whitespaceRun.ReplaceAllString(fmt.Sprintf("%s-%d", source, index), "_")
}

// Ingest processes already-extracted raw text for the named source and
// returns the number of chunks stored. Empty or whitespace-only input stores
// nothing and returns 0.
func (p *Pipeline) Ingest(ctx context.Context, rawText, source string) (int, error) {
	text := Normalize(rawText)
	chunks, err := Chunk(text, p.ChunkSize, p.ChunkOverlap)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	unique := Dedupe(chunks)
	log.Info().Str("source", source).
		Int("chunks", len(chunks)).
		Int("unique", len(unique)).
		Msg("chunked document")

	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	recreated := false
	batch := make([]models.VectorRecord, 0, batchSize)
	for _, chunk := range unique {
		vec, err := p.Embedder.Embed(chunk.Text)
		if err != nil {
			return 0, &EmbeddingValidationError{ChunkIndex: chunk.Index, Reason: err.Error()}
		}
		if err := validateVector(vec, p.Embedder.Dim()); err != nil {
			return 0, &EmbeddingValidationError{ChunkIndex: chunk.Index, Reason: err.Error()}
		}

		batch = append(batch, models.VectorRecord{
			ID:     RecordID(source, chunk.Index),
			Values: vec,
			Metadata: models.Metadata{
				Text:       chunk.Text,
				Title:      chunk.Title,
				Summary:    chunk.Summary,
				Source:     source,
				ChunkIndex: chunk.Index,
				Timestamp:  now().UTC(),
			},
		})
		if len(batch) >= batchSize {
			if err := p.flush(ctx, source, batch, &recreated); err != nil {
				return 0, err
			}
			batch = batch[:0]
		}
	}
	if err := p.flush(ctx, source, batch, &recreated); err != nil {
		return 0, err
	}

	return len(unique), nil
}

// flush upserts one batch. A dimension mismatch triggers at most one
// recreate-and-retry cycle per Ingest call, and only when AllowRecreate is
// set; everything else surfaces as-is.
func (p *Pipeline) flush(ctx context.Context, source string, batch []models.VectorRecord, recreated *bool) error {
	if len(batch) == 0 {
		return nil
	}
	err := p.Store.Upsert(ctx, batch)
	if err == nil {
		log.Info().Str("source", source).Int("vectors", len(batch)).Msg("stored vectors")
		return nil
	}
	if !store.IsDimensionMismatch(err) || !p.AllowRecreate || *recreated {
		return err
	}

	*recreated = true
	log.Warn().Str("source", source).Err(err).
		Msg("dimension mismatch, recreating index and retrying once")
	if rerr := p.Store.Recreate(ctx, p.Embedder.Dim()); rerr != nil {
		return rerr
	}
	return p.Store.Upsert(ctx, batch)
}

func validateVector(vec []float32, dim int) error {
	if len(vec) != dim {
		return fmt.Errorf("embedding has invalid length: %d, expected %d", len(vec), dim)
	}
	for _, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return errors.New("embedding contains non-finite numbers")
		}
	}
	return nil
}
