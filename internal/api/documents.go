package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/hlog"
	"github.com/seanblong/docchat/internal/store"
	"github.com/seanblong/docchat/pkg/models"
)

type deleteRequest struct {
	FileName  string `json:"fileName"`
	DeleteAll bool   `json:"deleteAll"`
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListDocuments(w, r)
	case http.MethodDelete:
		s.handleDeleteDocuments(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r) {
		return
	}

	docs, err := s.Store.ListDocuments(r.Context())
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("document listing failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to list documents"})
		return
	}
	if docs == nil {
		docs = []models.DocumentInfo{}
	}
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"documents": docs,
	})
}

func (s *Server) handleDeleteDocuments(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r) {
		return
	}
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")

	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || (req.FileName == "" && !req.DeleteAll) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Either fileName or deleteAll flag is required",
		})
		return
	}

	if req.DeleteAll {
		deleteAll := func(w http.ResponseWriter, r *http.Request) {
			deleted, err := s.deleteAll(r)
			if err != nil {
				hlog.FromRequest(r).Error().Err(err).Msg("delete-all failed")
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to delete document(s)"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"success":      true,
				"deletedCount": deleted,
				"message":      "All documents deleted successfully",
			})
		}
		// Destructive across every source; token required when auth is on.
		s.Auth.Middleware(deleteAll)(w, r)
		return
	}

	if err := s.Store.DeleteByFilter(r.Context(), store.BySource(req.FileName)); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("file", req.FileName).Msg("delete failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to delete document(s)"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Deleted chunks from %s", req.FileName),
	})
}

// deleteAll pages through the store until nothing is left: a single listing
// call is capped by topK, so loop search-then-delete.
func (s *Server) deleteAll(r *http.Request) (int, error) {
	zero := make([]float32, s.Dim)
	deleted := 0
	for {
		matches, err := s.Store.Search(r.Context(), zero, deletePageSize, nil, false)
		if err != nil {
			return deleted, err
		}
		if len(matches) == 0 {
			return deleted, nil
		}
		ids := make([]string, 0, len(matches))
		for _, m := range matches {
			ids = append(ids, m.ID)
		}
		if err := s.Store.DeleteByIDs(r.Context(), ids); err != nil {
			return deleted, err
		}
		deleted += len(ids)
	}
}
