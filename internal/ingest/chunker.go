package ingest

import (
	"fmt"
	"strings"

	"github.com/seanblong/docchat/pkg/models"
)

// Chunk splits normalized text into overlapping fixed-size windows. size and
// overlap are rune counts; the final window is clamped to the end of the
// text. Empty or whitespace-only input yields no chunks and no error.
func Chunk(text string, size, overlap int) ([]models.Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be greater than 0", ErrInvalidConfiguration)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must be non-negative", ErrInvalidConfiguration)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap must be less than chunk size", ErrInvalidConfiguration)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	var chunks []models.Chunk
	start := 0
	for index := 0; start < len(runes); index++ {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		window := string(runes[start:end])
		chunks = append(chunks, models.Chunk{
			Text:    window,
			Title:   deriveTitle(window),
			Summary: deriveSummary(window),
			Index:   index,
		})

		// Guard: the next start must strictly advance, otherwise force a
		// full-size step so the loop always terminates.
		next := start + size - overlap
		if next <= start {
			next = start + size
		}
		start = next
	}
	return chunks, nil
}

// deriveTitle takes the first three words of the chunk, or "Chunk" when the
// window has no words at all.
func deriveTitle(text string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return "Chunk"
	}
	if len(words) > 3 {
		words = words[:3]
	}
	return strings.Join(words, " ")
}

// deriveSummary prefers the first sentence when it carries enough content,
// falling back to the leading characters of the chunk. Truncation to 100
// runes appends an ellipsis.
func deriveSummary(text string) string {
	sentence := text
	if i := strings.IndexAny(text, ".!?"); i >= 0 {
		sentence = text[:i]
	}
	if len([]rune(sentence)) > 10 {
		return truncate(sentence, 100)
	}
	return truncate(text, 100)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
