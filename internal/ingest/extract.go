package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
)

// Content types accepted at the upload boundary.
const (
	TypeText = "text/plain"
	TypePDF  = "application/pdf"
)

// ExtractText turns raw upload bytes into normalized text. Returns
// ErrUnsupportedFileType for anything other than plain text or PDF, and
// ErrEmptyExtraction when nothing survives normalization.
func ExtractText(data []byte, contentType string) (string, error) {
	var text string
	switch contentType {
	case TypeText:
		text = Normalize(string(data))
	case TypePDF:
		extracted, err := extractPDF(data)
		if err != nil {
			return "", err
		}
		text = extracted
	default:
		return "", ErrUnsupportedFileType
	}

	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyExtraction
	}
	if len(text) < 50 {
		log.Warn().Int("chars", len(text)).Msg("file contains very little text")
	}
	return text, nil
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fallbackPDF(data, err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return fallbackPDF(data, err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return fallbackPDF(data, err)
	}
	return Normalize(buf.String()), nil
}

// fallbackPDF is a last resort for PDFs the parser chokes on: treat the bytes
// as UTF-8 and hope enough readable text comes through.
func fallbackPDF(data []byte, cause error) (string, error) {
	log.Warn().Err(cause).Msg("pdf parse failed, attempting fallback text extraction")
	if len(data) > 100 {
		if text := Normalize(string(data)); strings.TrimSpace(text) != "" {
			return text, nil
		}
	}
	return "", fmt.Errorf("failed to extract text from PDF: %w", cause)
}
