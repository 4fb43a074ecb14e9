package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/seanblong/docchat/pkg/models"
)

// Memory is an in-process VectorStore with brute-force cosine search. It
// backs the "memory" database setting for local runs and keeps the pipeline
// tests away from Postgres.
type Memory struct {
	mu      sync.RWMutex
	dim     int
	records map[string]models.VectorRecord
	order   []string // insertion order, for stable zero-vector scans
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: map[string]models.VectorRecord{}}
}

func (m *Memory) Migrate(ctx context.Context, dim int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dim == 0 {
		m.dim = dim
	}
	return nil
}

func (m *Memory) Recreate(ctx context.Context, dim int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = map[string]models.VectorRecord{}
	m.order = nil
	m.dim = dim
	return nil
}

func (m *Memory) Upsert(ctx context.Context, records []models.VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range records {
		if m.dim > 0 && len(rec.Values) != m.dim {
			return &StoreError{Op: "upsert", Err: dimError{want: m.dim, got: len(rec.Values)}}
		}
		if _, ok := m.records[rec.ID]; !ok {
			m.order = append(m.order, rec.ID)
		}
		m.records[rec.ID] = rec
	}
	return nil
}

func (m *Memory) Search(ctx context.Context, vector []float32, topK int, filter Filter, includeMetadata bool) ([]models.SearchMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []models.SearchMatch
	for _, id := range m.order {
		rec := m.records[id]
		if !filterMatches(filter, rec.Metadata) {
			continue
		}
		match := models.SearchMatch{ID: rec.ID, Score: cosine(vector, rec.Values)}
		if includeMetadata {
			match.Metadata = rec.Metadata
		}
		matches = append(matches, match)
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *Memory) DeleteByIDs(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if _, ok := m.records[id]; !ok {
			continue
		}
		delete(m.records, id)
		for i, o := range m.order {
			if o == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (m *Memory) DeleteByFilter(ctx context.Context, filter Filter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	remaining := m.order[:0]
	for _, id := range m.order {
		if filterMatches(filter, m.records[id].Metadata) {
			delete(m.records, id)
			continue
		}
		remaining = append(remaining, id)
	}
	m.order = remaining
	return nil
}

func (m *Memory) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := Stats{Sources: map[string]int64{}}
	for _, rec := range m.records {
		st.Sources[rec.Metadata.Source]++
		st.TotalCount++
	}
	return st, nil
}

func (m *Memory) ListDocuments(ctx context.Context) ([]models.DocumentInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bySource := map[string]*models.DocumentInfo{}
	var sources []string
	for _, id := range m.order {
		rec := m.records[id]
		info, ok := bySource[rec.Metadata.Source]
		if !ok {
			info = &models.DocumentInfo{FileName: rec.Metadata.Source}
			bySource[rec.Metadata.Source] = info
			sources = append(sources, rec.Metadata.Source)
		}
		info.ChunkCount++
		if rec.Metadata.Timestamp.After(info.LastUpdated) {
			info.LastUpdated = rec.Metadata.Timestamp
		}
	}
	sort.Strings(sources)
	docs := make([]models.DocumentInfo, 0, len(sources))
	for _, s := range sources {
		docs = append(docs, *bySource[s])
	}
	return docs, nil
}

var _ VectorStore = (*Memory)(nil)

type dimError struct{ want, got int }

func (e dimError) Error() string {
	// Same shape as the pgvector server message so mismatch detection works
	// against either implementation.
	return fmt.Sprintf("expected %d dimensions, not %d", e.want, e.got)
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func filterMatches(f Filter, m models.Metadata) bool {
	for field, ops := range f {
		for op, val := range ops {
			if _, known := filterOps[op]; !known {
				continue
			}
			switch field {
			case "source":
				if !compareString(m.Source, op, val) {
					return false
				}
			case "title":
				if !compareString(m.Title, op, val) {
					return false
				}
			case "summary":
				if !compareString(m.Summary, op, val) {
					return false
				}
			case "chunkIndex":
				if !compareNumber(float64(m.ChunkIndex), op, val) {
					return false
				}
			case "timestamp":
				if !compareTime(m.Timestamp, op, val) {
					return false
				}
			}
		}
	}
	return true
}

func compareString(have, op string, val any) bool {
	want, ok := val.(string)
	if !ok {
		return true
	}
	switch op {
	case "$eq":
		return have == want
	case "$gte":
		return have >= want
	case "$lte":
		return have <= want
	}
	return true
}

func compareNumber(have float64, op string, val any) bool {
	var want float64
	switch v := val.(type) {
	case int:
		want = float64(v)
	case int64:
		want = float64(v)
	case float64:
		want = v
	default:
		return true
	}
	switch op {
	case "$eq":
		return have == want
	case "$gte":
		return have >= want
	case "$lte":
		return have <= want
	}
	return true
}

func compareTime(have time.Time, op string, val any) bool {
	var want time.Time
	switch v := val.(type) {
	case time.Time:
		want = v
	case string:
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return true
		}
		want = parsed
	default:
		return true
	}
	switch op {
	case "$eq":
		return have.Equal(want)
	case "$gte":
		return !have.Before(want)
	case "$lte":
		return !have.After(want)
	}
	return true
}
