package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadWith runs Load with a controlled command line. Load parses os.Args, so
// tests must own it for the duration of the call.
func loadWith(t *testing.T, configPath string, args ...string) (Specification, error) {
	t.Helper()
	saved := os.Args
	os.Args = append([]string{"docchat-test"}, args...)
	defer func() { os.Args = saved }()

	t.Setenv("DOCCHAT_CONFIG", "")
	fs := pflag.NewFlagSet("docchat-test", pflag.ContinueOnError)
	return Load(configPath, fs)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadWith(t, "")
	require.NoError(t, err)

	assert.Equal(t, "stub", cfg.Provider)
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, int64(50*1024*1024), cfg.MaxFileSize)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, 10, cfg.RateLimitMax)
	assert.Equal(t, 60, cfg.RateLimitWindowSec)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 0.7, cfg.Temperature)
	assert.False(t, cfg.AllowRecreate)
	assert.False(t, cfg.Auth.Enabled)
	assert.NotEmpty(t, cfg.Database)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docchat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider: openai
database: memory
chunkSize: 400
chunkOverlap: 50
maxSearchResults: 8
auth:
  enabled: true
  jwtSecret: file-secret
`), 0o600))

	cfg, err := loadWith(t, path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "memory", cfg.Database)
	assert.Equal(t, 400, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, 8, cfg.TopK)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, "file-secret", cfg.Auth.JwtSecret)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := loadWith(t, "/nonexistent/docchat.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docchat.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunkSize: 400\ndatabase: memory\n"), 0o600))

	t.Setenv("DOCCHAT_CHUNK_SIZE", "500")
	t.Setenv("DOCCHAT_MAX_SEARCH_RESULTS", "7")
	t.Setenv("DOCCHAT_AUTH_JWT_SECRET", "env-secret")

	cfg, err := loadWith(t, path)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 7, cfg.TopK)
	assert.Equal(t, "env-secret", cfg.Auth.JwtSecret)
	assert.Equal(t, "memory", cfg.Database, "yaml value stands where env is silent")
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("DOCCHAT_CHUNK_SIZE", "500")
	t.Setenv("DOCCHAT_DB_URL", "memory")

	cfg, err := loadWith(t, "", "--chunk-size=300", "--chunk-overlap=30", "--allow-recreate")
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.ChunkSize)
	assert.Equal(t, 30, cfg.ChunkOverlap)
	assert.True(t, cfg.AllowRecreate)
	assert.Equal(t, "memory", cfg.Database)
}

func TestValidate(t *testing.T) {
	valid := func() Specification {
		var c Specification
		setDefaults(&c)
		return c
	}

	t.Run("defaults pass", func(t *testing.T) {
		c := valid()
		assert.NoError(t, c.Validate())
	})

	tests := []struct {
		name    string
		mutate  func(*Specification)
		wantMsg string
	}{
		{
			name:    "missing database",
			mutate:  func(c *Specification) { c.Database = "  " },
			wantMsg: "DOCCHAT_DB_URL is required",
		},
		{
			name:    "zero chunk size",
			mutate:  func(c *Specification) { c.ChunkSize = 0 },
			wantMsg: "chunk size must be greater than 0",
		},
		{
			name:    "overlap not below size",
			mutate:  func(c *Specification) { c.ChunkOverlap = c.ChunkSize },
			wantMsg: "chunk overlap must be between 0 and chunk size",
		},
		{
			name:    "negative overlap",
			mutate:  func(c *Specification) { c.ChunkOverlap = -1 },
			wantMsg: "chunk overlap must be between 0 and chunk size",
		},
		{
			name:    "zero max file size",
			mutate:  func(c *Specification) { c.MaxFileSize = 0 },
			wantMsg: "max file size must be greater than 0",
		},
		{
			name:    "zero search results",
			mutate:  func(c *Specification) { c.TopK = 0 },
			wantMsg: "max search results must be greater than 0",
		},
		{
			name:    "temperature out of range",
			mutate:  func(c *Specification) { c.Temperature = 2.5 },
			wantMsg: "temperature must be between 0 and 2",
		},
		{
			name:    "rate limit misconfigured",
			mutate:  func(c *Specification) { c.RateLimitMax = 0 },
			wantMsg: "rate limit window and max must be greater than 0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	t.Run("problems are collected", func(t *testing.T) {
		c := valid()
		c.ChunkSize = 0
		c.TopK = 0
		err := c.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "chunk size must be greater than 0")
		assert.Contains(t, err.Error(), "max search results must be greater than 0")
	})

	t.Run("blank log level defaults to info", func(t *testing.T) {
		c := valid()
		c.LogLevel = ""
		require.NoError(t, c.Validate())
		assert.Equal(t, "info", c.LogLevel)
	})
}
