package store

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/seanblong/docchat/pkg/models"
)

// VectorStore is the opaque nearest-neighbor service the pipelines talk to.
type VectorStore interface {
	Upsert(ctx context.Context, records []models.VectorRecord) error
	Search(ctx context.Context, vector []float32, topK int, filter Filter, includeMetadata bool) ([]models.SearchMatch, error)
	DeleteByIDs(ctx context.Context, ids []string) error
	DeleteByFilter(ctx context.Context, filter Filter) error
	Stats(ctx context.Context) (Stats, error)
	ListDocuments(ctx context.Context) ([]models.DocumentInfo, error)
	Migrate(ctx context.Context, dim int) error
	Recreate(ctx context.Context, dim int) error
}

// Stats summarizes index contents per source namespace.
type Stats struct {
	TotalCount int64            `json:"totalCount"`
	Sources    map[string]int64 `json:"sources"`
}

// StoreError wraps an upstream vector store failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("vector store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

var dimMismatch = regexp.MustCompile(`expected \d+ dimensions, not \d+`)

// IsDimensionMismatch reports whether the error signals a vector whose
// dimensionality disagrees with the existing index.
func IsDimensionMismatch(err error) bool {
	return err != nil && dimMismatch.MatchString(err.Error())
}

// Store is the pgvector-backed implementation.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to the given database URL.
func New(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{pool: p}, nil
}

func (s *Store) Close() { s.pool.Close() }

// Ping checks the database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Migrate applies the schema. The embedding dimension is fixed for the
// lifetime of the index; changing it requires Recreate.
func (s *Store) Migrate(ctx context.Context, dim int) error {
	q := `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS chunks (
  id          TEXT PRIMARY KEY,
  source      TEXT NOT NULL,
  title       TEXT,
  summary     TEXT,
  content     TEXT,
  chunk_index INT NOT NULL,
  ingested_at TIMESTAMP WITH TIME ZONE DEFAULT now(),
  embedding   vector(%d)
);

CREATE INDEX IF NOT EXISTS chunks_source_idx
  ON chunks (source);

CREATE INDEX IF NOT EXISTS chunks_embedding_idx
  ON chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
`
	_, err := s.pool.Exec(ctx, fmt.Sprintf(q, dim))
	if err != nil {
		return &StoreError{Op: "migrate", Err: err}
	}
	return nil
}

// Recreate drops every stored vector and rebuilds the schema at the given
// dimension. Destructive; callers gate it behind explicit configuration.
func (s *Store) Recreate(ctx context.Context, dim int) error {
	if _, err := s.pool.Exec(ctx, `DROP TABLE IF EXISTS chunks`); err != nil {
		return &StoreError{Op: "recreate", Err: err}
	}
	return s.Migrate(ctx, dim)
}

// Upsert inserts or overwrites records by id.
func (s *Store) Upsert(ctx context.Context, records []models.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	const q = `
		INSERT INTO chunks (id, source, title, summary, content, chunk_index, ingested_at, embedding)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET
			source      = EXCLUDED.source,
			title       = EXCLUDED.title,
			summary     = EXCLUDED.summary,
			content     = EXCLUDED.content,
			chunk_index = EXCLUDED.chunk_index,
			ingested_at = EXCLUDED.ingested_at,
			embedding   = EXCLUDED.embedding;`

	batch := &pgx.Batch{}
	for _, rec := range records {
		m := rec.Metadata
		batch.Queue(q, rec.ID, m.Source, m.Title, m.Summary, m.Text, m.ChunkIndex, m.Timestamp, pgvector.NewVector(rec.Values))
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range records {
		if _, err := br.Exec(); err != nil {
			return &StoreError{Op: "upsert", Err: err}
		}
	}
	return nil
}

// Search returns the topK nearest neighbors by cosine similarity, optionally
// restricted by a metadata filter. An empty or invalid filter means no
// filter, never "match nothing".
func (s *Store) Search(ctx context.Context, vector []float32, topK int, filter Filter, includeMetadata bool) ([]models.SearchMatch, error) {
	where, args := filter.toSQL(2)
	args = append([]any{pgvector.NewVector(vector)}, args...)

	q := fmt.Sprintf(`
SELECT id, source, title, summary, content, chunk_index, ingested_at,
       1 - (embedding <=> $1) AS score
FROM chunks
WHERE %s
ORDER BY embedding <=> $1
LIMIT %d;`, where, topK)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, &StoreError{Op: "search", Err: err}
	}
	defer rows.Close()

	var out []models.SearchMatch
	for rows.Next() {
		var m models.SearchMatch
		var meta models.Metadata
		if err := rows.Scan(&m.ID, &meta.Source, &meta.Title, &meta.Summary, &meta.Text, &meta.ChunkIndex, &meta.Timestamp, &m.Score); err != nil {
			return nil, &StoreError{Op: "search", Err: err}
		}
		if includeMetadata {
			m.Metadata = meta
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "search", Err: err}
	}
	return out, nil
}

// DeleteByIDs removes the given records. Unknown ids are ignored.
func (s *Store) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM chunks WHERE id = ANY($1)`, ids); err != nil {
		return &StoreError{Op: "delete", Err: err}
	}
	return nil
}

// DeleteByFilter removes every record matching the filter. An empty filter
// matches everything.
func (s *Store) DeleteByFilter(ctx context.Context, filter Filter) error {
	where, args := filter.toSQL(1)
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM chunks WHERE %s`, where), args...); err != nil {
		return &StoreError{Op: "delete", Err: err}
	}
	return nil
}

// Stats reports total and per-source record counts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.pool.Query(ctx, `SELECT source, COUNT(*) FROM chunks GROUP BY source`)
	if err != nil {
		return Stats{}, &StoreError{Op: "stats", Err: err}
	}
	defer rows.Close()

	st := Stats{Sources: map[string]int64{}}
	for rows.Next() {
		var source string
		var n int64
		if err := rows.Scan(&source, &n); err != nil {
			return Stats{}, &StoreError{Op: "stats", Err: err}
		}
		st.Sources[source] = n
		st.TotalCount += n
	}
	return st, rows.Err()
}

// ListDocuments aggregates chunk counts and last ingestion time per source.
func (s *Store) ListDocuments(ctx context.Context) ([]models.DocumentInfo, error) {
	rows, err := s.pool.Query(ctx, `
SELECT source, COUNT(*), MAX(ingested_at)
FROM chunks
GROUP BY source
ORDER BY source`)
	if err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	defer rows.Close()

	var docs []models.DocumentInfo
	for rows.Next() {
		var d models.DocumentInfo
		if err := rows.Scan(&d.FileName, &d.ChunkCount, &d.LastUpdated); err != nil {
			return nil, &StoreError{Op: "list", Err: err}
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

var _ VectorStore = (*Store)(nil)
