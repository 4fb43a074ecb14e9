package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"
	"github.com/seanblong/docchat/internal/ingest"
)

type uploadResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	FileID   string `json:"fileId,omitempty"`
	FileName string `json:"fileName"`
	Chunks   int    `json:"chunks"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleUploadFile(w, r)
	case http.MethodPut:
		s.Auth.Middleware(s.handleRecreateIndex)(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r) {
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, uploadResponse{Success: false, Message: "No file provided"})
		return
	}
	defer file.Close()

	contentType := detectContentType(header.Header.Get("Content-Type"), header.Filename)
	if contentType != ingest.TypeText && contentType != ingest.TypePDF {
		writeJSON(w, http.StatusBadRequest, uploadResponse{
			Success: false,
			Message: "Invalid file type. Only .txt and .pdf files are allowed.",
		})
		return
	}

	if header.Size > s.MaxFileSize {
		writeJSON(w, http.StatusBadRequest, uploadResponse{
			Success: false,
			Message: fmt.Sprintf("File size too large. File size: %dMB, Maximum allowed: %dMB.",
				header.Size/(1024*1024), s.MaxFileSize/(1024*1024)),
		})
		return
	}
	if header.Size == 0 {
		writeJSON(w, http.StatusBadRequest, uploadResponse{Success: false, Message: "File is empty."})
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.MaxFileSize+1))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, uploadResponse{Success: false, Message: "Failed to read file"})
		return
	}
	if int64(len(data)) > s.MaxFileSize {
		writeJSON(w, http.StatusBadRequest, uploadResponse{Success: false, Message: "File size too large."})
		return
	}

	text, err := ingest.ExtractText(data, contentType)
	if err != nil {
		// Empty extraction is an expected outcome (scanned PDFs), not a
		// server error.
		if errors.Is(err, ingest.ErrEmptyExtraction) {
			writeJSON(w, http.StatusOK, uploadResponse{
				Success: false,
				Message: "No text content could be extracted from the file",
				FileID:  uuid.NewString(),
				Chunks:  0,
			})
			return
		}
		hlog.FromRequest(r).Error().Err(err).Str("file", header.Filename).Msg("extraction failed")
		writeJSON(w, http.StatusInternalServerError, uploadResponse{Success: false, Message: err.Error()})
		return
	}

	count, err := s.Pipeline.Ingest(r.Context(), text, header.Filename)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ingest.ErrInvalidConfiguration) {
			status = http.StatusBadRequest
		}
		hlog.FromRequest(r).Error().Err(err).Str("file", header.Filename).Msg("ingestion failed")
		writeJSON(w, status, uploadResponse{Success: false, Message: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Success:  true,
		Message:  fmt.Sprintf("File processed successfully. Created %d chunks.", count),
		FileID:   uuid.NewString(),
		FileName: header.Filename,
		Chunks:   count,
	})
}

// handleRecreateIndex is the admin escape hatch for a misconfigured index.
// It drops every stored vector, so it demands both the config flag and, when
// auth is enabled, a valid token.
func (s *Server) handleRecreateIndex(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r) {
		return
	}

	var req struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Action != "recreate-index" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": `Invalid action. Use "recreate-index" to recreate the index.`,
		})
		return
	}
	if !s.AllowRecreate {
		writeJSON(w, http.StatusForbidden, map[string]any{
			"success": false,
			"message": "Index recreation is disabled. Set DOCCHAT_ALLOW_RECREATE to enable.",
		})
		return
	}

	if err := s.Store.Recreate(r.Context(), s.Dim); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("index recreation failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "Failed to recreate index",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Index recreated successfully with %d dimensions", s.Dim),
	})
}

// detectContentType trusts the multipart header when it names a supported
// type and falls back to the file extension otherwise.
func detectContentType(headerType, filename string) string {
	base := headerType
	if i := strings.Index(base, ";"); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimSpace(base)
	if base == ingest.TypeText || base == ingest.TypePDF {
		return base
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return ingest.TypeText
	case ".pdf":
		return ingest.TypePDF
	}
	return base
}
