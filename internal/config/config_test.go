package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9090
  host: "0.0.0.0"

queue:
  url: "https://sqs.us-east-1.amazonaws.com/123456789012/bucket-events"
  wait_seconds: 10
  batch_size: 5

storage:
  aws_region: "us-west-2"
  user_agent: "bucket-indexer-test"

search:
  backend: "elastic"
  endpoint: "https://search.example.com:9200"
  timeout_seconds: 45

indexing:
  content_bytes: 50000
  preview_lines: 128
  content_exts: [".csv", ".txt"]
  skip_rows_exts: [".vcf"]

manifest:
  pointer_prefix: ".custom/named_packages/"
  manifest_prefix: ".custom/packages/"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	// Test server config
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	// Test queue config
	assert.Equal(t, "https://sqs.us-east-1.amazonaws.com/123456789012/bucket-events", cfg.Queue.URL)
	assert.Equal(t, 10, cfg.Queue.WaitSeconds)
	assert.Equal(t, 5, cfg.Queue.BatchSize)

	// Test storage config
	assert.Equal(t, "us-west-2", cfg.Storage.AWSRegion)
	assert.Equal(t, "bucket-indexer-test", cfg.Storage.UserAgent)

	// Test search config
	assert.Equal(t, "elastic", cfg.Search.Backend)
	assert.Equal(t, "https://search.example.com:9200", cfg.Search.Endpoint)
	assert.Equal(t, 45, cfg.Search.TimeoutSeconds)

	// Test indexing config
	assert.Equal(t, 50000, cfg.Indexing.ContentBytes)
	assert.Equal(t, 128, cfg.Indexing.PreviewLines)
	assert.Equal(t, []string{".csv", ".txt"}, cfg.Indexing.ContentExts)
	assert.True(t, cfg.Indexing.SkipRowsExtSet()[".vcf"])

	// Test manifest config
	assert.Equal(t, ".custom/named_packages/", cfg.Manifest.PointerPrefix)
	assert.Equal(t, ".custom/packages/", cfg.Manifest.ManifestPrefix)
}

func TestLoadDefaults(t *testing.T) {
	// Create a minimal config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
queue:
  url: "https://sqs.us-east-1.amazonaws.com/123456789012/bucket-events"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	// Verify defaults are applied
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 20, cfg.Queue.WaitSeconds)
	assert.Equal(t, 10, cfg.Queue.BatchSize)
	assert.Equal(t, "elastic", cfg.Search.Backend)
	assert.Equal(t, 30, cfg.Search.TimeoutSeconds)
	assert.Equal(t, 100_000, cfg.Indexing.ContentBytes)
	assert.Equal(t, 512, cfg.Indexing.PreviewLines)
	assert.Equal(t, int64(9_500_000), cfg.Indexing.ChunkBytes)
	assert.Equal(t, DefaultContentExts, cfg.Indexing.ContentExts)
	assert.Equal(t, ".catalog/named_packages/", cfg.Manifest.PointerPrefix)
	assert.Equal(t, ".catalog/packages/", cfg.Manifest.ManifestPrefix)
	assert.Equal(t, "info", cfg.Logging.Level)

	set := cfg.Indexing.ContentExtSet()
	assert.True(t, set[".ipynb"])
	assert.True(t, set[".parquet"])
	assert.False(t, set[".exe"])
}

func TestLoadFromEnv(t *testing.T) {
	// Create a minimal config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
queue:
  url: "https://file-queue"
search:
  endpoint: "https://file-endpoint"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	t.Setenv("QUEUE_URL", "https://env-queue")
	t.Setenv("SEARCH_ENDPOINT", "https://env-endpoint")
	t.Setenv("CONTENT_INDEX_EXTS", ".csv, .json .txt")
	t.Setenv("DOC_LIMIT_BYTES", "12345")
	t.Setenv("CHUNK_LIMIT_BYTES", "5000000")

	cfg, err := LoadFromEnv(configPath)
	require.NoError(t, err)

	// Environment variables should override file values
	assert.Equal(t, "https://env-queue", cfg.Queue.URL)
	assert.Equal(t, "https://env-endpoint", cfg.Search.Endpoint)
	assert.Equal(t, []string{".csv", ".json", ".txt"}, cfg.Indexing.ContentExts)
	assert.Equal(t, 12345, cfg.Indexing.ContentBytes)
	assert.Equal(t, int64(5_000_000), cfg.Indexing.ChunkBytes)
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{".csv,.tsv", []string{".csv", ".tsv"}},
		{".csv, .tsv", []string{".csv", ".tsv"}},
		{".csv .tsv\t.txt", []string{".csv", ".tsv", ".txt"}},
		{"  ", nil},
	}
	for _, tt := range tests {
		got := SplitList(tt.in)
		if len(tt.want) == 0 {
			assert.Empty(t, got)
			continue
		}
		assert.Equal(t, tt.want, got)
	}
}

func TestSearchTimeout(t *testing.T) {
	cfg := SearchConfig{TimeoutSeconds: 45}
	assert.Equal(t, 45*1000000000, int(cfg.Timeout().Nanoseconds()))
}
