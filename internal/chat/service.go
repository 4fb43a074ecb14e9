package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/seanblong/docchat/pkg/models"
)

// Generator is the black-box text generator. Failures are surfaced, never
// retried.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Metrics is logged per chat turn and returned to the caller for tuning.
type Metrics struct {
	Query        string    `json:"query"`
	History      string    `json:"history"`
	Timestamp    time.Time `json:"timestamp"`
	MatchesCount int       `json:"matchesCount"`
	TopScore     float64   `json:"topScore"`
	AverageScore float64   `json:"averageScore"`
	HasCitations bool      `json:"hasCitations"`
	ResponseLen  int       `json:"responseLength"`
	Mode         Mode      `json:"mode"`
}

// Result is one answered chat turn.
type Result struct {
	Response       string            `json:"response"`
	Citations      []models.Citation `json:"citations"`
	ContextPreview string            `json:"context"`
	Metrics        Metrics           `json:"metrics"`
}

// Service answers a chat turn: retrieve on the full history, pick a prompt
// template from the latest user turn's intent, generate, cite.
type Service struct {
	Retriever *Retriever
	Generator Generator
	TopK      int

	// SelectTemplate is an injectable template-selection hook; tests observe
	// it, production leaves it nil and gets TemplateFor.
	SelectTemplate func(Mode) string

	Now func() time.Time
}

// ErrNoMessages is returned when the conversation is empty.
var ErrNoMessages = errors.New("messages array is required and must not be empty")

// Chat runs one full turn over the running conversation. Retrieval and
// generation are both conditioned on the concatenated history, not just the
// last turn.
func (s *Service) Chat(ctx context.Context, messages []models.ChatMessage) (Result, error) {
	if len(messages) == 0 {
		return Result{}, ErrNoMessages
	}

	history := HistoryText(messages)
	lastUser := lastUserMessage(messages)

	retrieval, err := s.Retriever.Retrieve(ctx, history, s.TopK, nil)
	if err != nil {
		return Result{}, err
	}

	mode := DetectMode(lastUser)
	selectTemplate := s.SelectTemplate
	if selectTemplate == nil {
		selectTemplate = TemplateFor
	}
	prompt := FormatPrompt(selectTemplate(mode), retrieval.Context, history)

	response, err := s.Generator.Generate(ctx, prompt)
	if err != nil {
		return Result{}, fmt.Errorf("generate response: %w", err)
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	metrics := Metrics{
		Query:        lastUser,
		History:      history,
		Timestamp:    now().UTC(),
		MatchesCount: len(retrieval.Matches),
		HasCitations: len(retrieval.Citations) > 0,
		ResponseLen:  len(response),
		Mode:         mode,
	}
	if len(retrieval.Matches) > 0 {
		metrics.TopScore = retrieval.Matches[0].Score
		var sum float64
		for _, m := range retrieval.Matches {
			sum += m.Score
		}
		metrics.AverageScore = sum / float64(len(retrieval.Matches))
	}

	log.Info().
		Str("mode", string(mode)).
		Int("matches", metrics.MatchesCount).
		Float64("top_score", metrics.TopScore).
		Int("response_len", metrics.ResponseLen).
		Msg("chat turn served")

	return Result{
		Response:       response,
		Citations:      retrieval.Citations,
		ContextPreview: preview(retrieval.Context, 200),
		Metrics:        metrics,
	}, nil
}

// HistoryText flattens the conversation as "User: ...\nAssistant: ..." turns.
func HistoryText(messages []models.ChatMessage) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		role := "Assistant"
		if m.Role == "user" {
			role = "User"
		}
		parts = append(parts, role+": "+m.Content)
	}
	return strings.Join(parts, "\n")
}

func lastUserMessage(messages []models.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
