package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"
	"github.com/seanblong/docchat/internal/chat"
	"github.com/seanblong/docchat/pkg/models"
)

type chatRequest struct {
	Messages []models.ChatMessage `json:"messages"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.allow(w, r) {
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Messages array is required and must not be empty",
		})
		return
	}

	result, err := s.Chat.Chat(r.Context(), req.Messages)
	if err != nil {
		if errors.Is(err, chat.ErrNoMessages) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		hlog.FromRequest(r).Error().Err(err).Msg("chat turn failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Failed to process chat message",
			"details": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}
