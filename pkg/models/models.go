package models

import "time"

// Chunk is a bounded window of a source document plus derived metadata.
// Index is the zero-based emission order from the chunker; deduplication may
// leave gaps but never renumbers.
type Chunk struct {
	Text    string `json:"text"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Index   int    `json:"index"`
}

// VectorRecord is what gets upserted into the vector store. ID is
// "<source>-<chunkIndex>" with whitespace replaced by underscores, so
// re-ingesting the same file overwrites the same positions.
type VectorRecord struct {
	ID       string    `json:"id"`
	Values   []float32 `json:"values"`
	Metadata Metadata  `json:"metadata"`
}

// Metadata travels with every vector and comes back on search matches.
type Metadata struct {
	Text       string    `json:"text"`
	Title      string    `json:"title,omitempty"`
	Summary    string    `json:"summary,omitempty"`
	Source     string    `json:"source"`
	ChunkIndex int       `json:"chunkIndex"`
	Timestamp  time.Time `json:"timestamp"`
}

// SearchMatch is one nearest-neighbor hit. Score is cosine similarity
// (higher is more relevant) and is not clamped here.
type SearchMatch struct {
	ID       string   `json:"id"`
	Score    float64  `json:"score"`
	Metadata Metadata `json:"metadata"`
}

// Citation is derived 1:1 from a search match, preserving rank order.
type Citation struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Source   string   `json:"source"`
	Page     int      `json:"page,omitempty"`
	Metadata Metadata `json:"metadata"`
}

// ChatMessage is one turn of the running conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// DocumentInfo aggregates per-source stats for the document listing.
type DocumentInfo struct {
	FileName    string    `json:"fileName"`
	ChunkCount  int       `json:"chunkCount"`
	LastUpdated time.Time `json:"lastUpdated"`
}
