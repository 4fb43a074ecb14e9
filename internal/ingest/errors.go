package ingest

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration marks caller errors in chunking parameters. Not
// retried; surfaces as a client error at the boundary.
var ErrInvalidConfiguration = errors.New("invalid chunking configuration")

// ErrUnsupportedFileType is returned for anything that is not text/plain or
// application/pdf.
var ErrUnsupportedFileType = errors.New("invalid file type, only .txt and .pdf files are allowed")

// ErrFileTooLarge is returned when an upload exceeds the configured cap.
var ErrFileTooLarge = errors.New("file size too large")

// ErrEmptyExtraction means no text could be extracted from the file. This is
// an expected outcome for scanned or image-only PDFs, so boundaries report it
// as a failure result rather than a server error.
var ErrEmptyExtraction = errors.New("no text content could be extracted from the file")

// EmbeddingValidationError is fatal for the document being ingested: the
// gateway returned a vector with the wrong dimensionality or non-finite
// components. Batches already flushed remain in the store.
type EmbeddingValidationError struct {
	ChunkIndex int
	Reason     string
}

func (e *EmbeddingValidationError) Error() string {
	return fmt.Sprintf("failed to generate embedding for chunk %d: %s", e.ChunkIndex, e.Reason)
}
