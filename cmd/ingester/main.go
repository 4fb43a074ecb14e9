package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/karrick/godirwalk"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/seanblong/docchat/internal/ai"
	"github.com/seanblong/docchat/internal/config"
	"github.com/seanblong/docchat/internal/ingest"
	"github.com/seanblong/docchat/internal/store"
	"github.com/spf13/pflag"
)

// Batch ingester: walks a directory tree and feeds every .txt and .pdf file
// through the ingestion pipeline. Files are processed one at a time; a
// failed document is logged and skipped, it does not abort the walk.
func main() {
	_ = godotenv.Load()

	fs := pflag.NewFlagSet("docchat-ingester", pflag.ExitOnError)

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	zerolog.SetGlobalLevel(level)

	client, err := ai.NewClient(clientConfig(cfg))
	if err != nil {
		log.Fatalf("Failed to create AI client: %v", err)
	}
	if client.Dim() == 0 {
		log.Fatal("embedding dimension must be set")
	}

	ctx := context.Background()
	st, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer closeStore()

	if err := st.Migrate(ctx, client.Dim()); err != nil {
		log.Fatal(err)
	}

	pipeline := &ingest.Pipeline{
		Embedder:      client,
		Store:         st,
		ChunkSize:     cfg.ChunkSize,
		ChunkOverlap:  cfg.ChunkOverlap,
		AllowRecreate: cfg.AllowRecreate,
	}

	var ingested, skipped int
	err = godirwalk.Walk(cfg.DocsRoot, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de != nil && de.IsDir() {
				return nil
			}
			contentType := typeForPath(path)
			if contentType == "" {
				return nil
			}

			data, err := os.ReadFile(path)
			if err != nil {
				zlog.Warn().Err(err).Str("path", path).Msg("failed to read file")
				skipped++
				return nil
			}
			text, err := ingest.ExtractText(data, contentType)
			if err != nil {
				zlog.Warn().Err(err).Str("path", path).Msg("extraction failed, skipping")
				skipped++
				return nil
			}

			count, err := pipeline.Ingest(ctx, text, filepath.Base(path))
			if err != nil {
				zlog.Error().Err(err).Str("path", path).Msg("ingestion failed, skipping")
				skipped++
				return nil
			}
			zlog.Info().Str("path", path).Int("chunks", count).Msg("ingested document")
			ingested++
			return nil
		},
	})
	if err != nil {
		log.Fatalf("walk failed: %v", err)
	}

	zlog.Info().Int("ingested", ingested).Int("skipped", skipped).Msg("ingestion run complete")
}

func typeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return ingest.TypeText
	case ".pdf":
		return ingest.TypePDF
	}
	return ""
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
