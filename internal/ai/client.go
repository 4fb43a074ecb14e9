package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Client provides embedding and response generation. Embed must return a
// vector of exactly Dim() components; providers fail loudly rather than
// truncate or pad.
type Client interface {
	Embed(text string) ([]float32, error)
	Generate(ctx context.Context, prompt string) (string, error)
	Dim() int
}

// Provider is the enumeration of supported AI providers.
type Provider string

const (
	ProviderOpenAI   Provider = "openai"
	ProviderVertexAI Provider = "vertexai"
	ProviderStub     Provider = "stub"
)

// ClientConfig holds configuration for AI clients.
type ClientConfig struct {
	APIKey      string
	EmbedModel  string
	ChatModel   string
	Temperature float64
	Dim         int
	ProjectID   string
	Provider    Provider
	Location    string
}

// NewClient creates a new AI client based on configuration.
func NewClient(config *ClientConfig) (Client, error) {
	if config == nil {
		return nil, errors.New("client config is required")
	}

	ctx := context.Background()
	switch config.Provider {
	case ProviderOpenAI:
		return NewOpenAIClient(config), nil
	case ProviderVertexAI:
		return NewVertexAIClient(ctx, config)
	case ProviderStub:
		return NewStubClient(config.Dim), nil
	default:
		return nil, errors.New("unsupported provider: " + string(config.Provider))
	}
}

// StubClient is a deterministic offline implementation for local runs and
// tests.
type StubClient struct {
	dim int
}

// NewStubClient creates a new StubClient.
func NewStubClient(dim int) *StubClient {
	if dim <= 0 {
		dim = 8
	}
	return &StubClient{dim: dim}
}

// Embed hashes token positions into a fixed-length vector so that similar
// texts land near each other. Good enough to exercise the pipelines.
func (s *StubClient) Embed(text string) ([]float32, error) {
	vec := make([]float32, s.dim)
	for i, tok := range strings.Fields(strings.ToLower(text)) {
		h := 0
		for _, r := range tok {
			h = h*31 + int(r)
		}
		if h < 0 {
			h = -h
		}
		vec[(h+i)%s.dim] += 1
	}
	return vec, nil
}

// Generate returns a canned answer that echoes the prompt length, so callers
// can tell calls apart in logs.
func (s *StubClient) Generate(ctx context.Context, prompt string) (string, error) {
	return fmt.Sprintf("stub response (%d prompt chars)", len(prompt)), nil
}

// Dim returns the embedding dimension.
func (s *StubClient) Dim() int {
	return s.dim
}
