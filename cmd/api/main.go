package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/seanblong/docchat/internal/ai"
	"github.com/seanblong/docchat/internal/api"
	"github.com/seanblong/docchat/internal/auth"
	"github.com/seanblong/docchat/internal/chat"
	"github.com/seanblong/docchat/internal/config"
	"github.com/seanblong/docchat/internal/ingest"
	"github.com/seanblong/docchat/internal/ratelimit"
	"github.com/seanblong/docchat/internal/store"
	"github.com/spf13/pflag"
)

func main() {
	// Optional .env for local development; real deployments use the
	// environment directly.
	_ = godotenv.Load()

	fs := pflag.NewFlagSet("docchat-api", pflag.ExitOnError)

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	logger.Info().Str("provider", cfg.Provider).Str("log_level", cfg.LogLevel).Bool("auth_enabled", cfg.Auth.Enabled).Msg("starting docchat api")

	client, err := ai.NewClient(clientConfig(cfg))
	if err != nil {
		log.Fatalf("Failed to create AI client: %v", err)
	}

	dim := client.Dim()
	logger.Info().Int("embedding_dim", dim).Str("provider", cfg.Provider).Msg("AI client initialized")

	ctx := context.Background()
	st, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to vector store: %v", err)
	}
	defer closeStore()

	if err := st.Migrate(ctx, dim); err != nil {
		log.Fatalf("Failed to migrate vector store: %v", err)
	}

	authn, err := auth.New(cfg.Auth.JwtSecret, cfg.Auth.Enabled)
	if err != nil {
		log.Fatalf("Failed to initialize auth: %v", err)
	}

	pipeline := &ingest.Pipeline{
		Embedder:      client,
		Store:         st,
		ChunkSize:     cfg.ChunkSize,
		ChunkOverlap:  cfg.ChunkOverlap,
		AllowRecreate: cfg.AllowRecreate,
	}
	chatSvc := &chat.Service{
		Retriever: &chat.Retriever{Embedder: client, Store: st},
		Generator: client,
		TopK:      cfg.TopK,
	}

	server := &api.Server{
		Logger:        logger,
		Limiter:       ratelimit.New(time.Duration(cfg.RateLimitWindowSec)*time.Second, cfg.RateLimitMax),
		Auth:          authn,
		Pipeline:      pipeline,
		Chat:          chatSvc,
		Store:         st,
		MaxFileSize:   cfg.MaxFileSize,
		Dim:           dim,
		AllowRecreate: cfg.AllowRecreate,
	}

	address := fmt.Sprintf(":%d", cfg.Port)
	s := &http.Server{Addr: address, Handler: server.Routes()}
	logger.Info().Str("addr", s.Addr).Msg("api server listening")
	log.Fatal(s.ListenAndServe())
}

func clientConfig(cfg config.Specification) *ai.ClientConfig {
	cc := &ai.ClientConfig{
		APIKey:      cfg.APIKey,
		EmbedModel:  cfg.EmbedModel,
		ChatModel:   cfg.ChatModel,
		Temperature: cfg.Temperature,
		Dim:         cfg.Dim,
		ProjectID:   cfg.ProjectID,
		Location:    cfg.Location,
	}
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		cc.Provider = ai.ProviderOpenAI
	case "vertexai", "google":
		cc.Provider = ai.ProviderVertexAI
	default:
		cc.Provider = ai.ProviderStub
	}
	return cc
}

func openStore(ctx context.Context, database string) (store.VectorStore, func(), error) {
	if database == "memory" {
		return store.NewMemory(), func() {}, nil
	}
	st, err := store.New(ctx, database)
	if err != nil {
		return nil, nil, err
	}
	return st, st.Close, nil
}
