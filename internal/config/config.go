package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the indexer.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Queue    QueueConfig    `yaml:"queue"`
	Storage  StorageConfig  `yaml:"storage"`
	Search   SearchConfig   `yaml:"search"`
	Indexing IndexingConfig `yaml:"indexing"`
	Manifest ManifestConfig `yaml:"manifest"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds the operational HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	// Allow override via environment
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// QueueConfig holds the notification queue configuration.
type QueueConfig struct {
	URL         string `yaml:"url"`
	WaitSeconds int    `yaml:"wait_seconds"`
	BatchSize   int    `yaml:"batch_size"`
}

// StorageConfig holds object store client configuration.
type StorageConfig struct {
	AWSRegion  string `yaml:"aws_region"`
	AWSProfile string `yaml:"aws_profile"` // Empty string uses default credential chain (IAM role on ECS)
	UserAgent  string `yaml:"user_agent"`
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return "" // Use default credential chain (IAM role)
		}
		return envProfile
	}
	// On ECS/Lambda, don't use a profile - use IAM role
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// SearchConfig holds search backend configuration. Backend "elastic" talks to
// an Elasticsearch-compatible bulk endpoint; "bleve" runs an embedded index.
type SearchConfig struct {
	Backend        string `yaml:"backend"`
	Endpoint       string `yaml:"endpoint"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	BlevePath      string `yaml:"bleve_path"`
}

// Timeout returns the configured timeout as a duration
func (c SearchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// IndexingConfig holds document sizing and format selection.
type IndexingConfig struct {
	ContentBytes      int      `yaml:"content_bytes"`
	PreviewLines      int      `yaml:"preview_lines"`
	ChunkBytes        int64    `yaml:"chunk_bytes"`
	ContentExts       []string `yaml:"content_exts"`
	SkipRowsExts      []string `yaml:"skip_rows_exts"`
	MemoryBudgetBytes int64    `yaml:"memory_budget_bytes"`
}

// ContentExtSet returns the deep-indexed extensions as a set.
func (c IndexingConfig) ContentExtSet() map[string]bool {
	set := make(map[string]bool, len(c.ContentExts))
	for _, ext := range c.ContentExts {
		set[strings.ToLower(strings.TrimSpace(ext))] = true
	}
	return set
}

// SkipRowsExtSet returns extensions whose leading data rows are skipped.
func (c IndexingConfig) SkipRowsExtSet() map[string]bool {
	set := make(map[string]bool, len(c.SkipRowsExts))
	for _, ext := range c.SkipRowsExts {
		set[strings.ToLower(strings.TrimSpace(ext))] = true
	}
	return set
}

// ManifestConfig holds the package pointer namespace.
type ManifestConfig struct {
	PointerPrefix  string `yaml:"pointer_prefix"`
	ManifestPrefix string `yaml:"manifest_prefix"`
}

// LoggingConfig holds log level selection.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultContentExts lists the formats that get content extraction out of the box.
var DefaultContentExts = []string{
	".csv", ".html", ".ipynb", ".json", ".md", ".parquet", ".rmd", ".tsv", ".txt", ".vcf",
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Queue.WaitSeconds == 0 {
		cfg.Queue.WaitSeconds = 20
	}
	if cfg.Queue.BatchSize == 0 {
		cfg.Queue.BatchSize = 10
	}
	if cfg.Storage.AWSRegion == "" {
		cfg.Storage.AWSRegion = "us-east-1"
	}
	if cfg.Storage.UserAgent == "" {
		cfg.Storage.UserAgent = "bucket-indexer"
	}
	if cfg.Search.Backend == "" {
		cfg.Search.Backend = "elastic"
	}
	if cfg.Search.TimeoutSeconds == 0 {
		cfg.Search.TimeoutSeconds = 30
	}
	if cfg.Indexing.ContentBytes == 0 {
		cfg.Indexing.ContentBytes = 100_000
	}
	if cfg.Indexing.PreviewLines == 0 {
		cfg.Indexing.PreviewLines = 512
	}
	if cfg.Indexing.ChunkBytes == 0 {
		// Elasticsearch rejects bulk requests over 10 MB; stay under it.
		cfg.Indexing.ChunkBytes = 9_500_000
	}
	if len(cfg.Indexing.ContentExts) == 0 {
		cfg.Indexing.ContentExts = append([]string(nil), DefaultContentExts...)
	}
	if cfg.Manifest.PointerPrefix == "" {
		cfg.Manifest.PointerPrefix = ".catalog/named_packages/"
	}
	if cfg.Manifest.ManifestPrefix == "" {
		cfg.Manifest.ManifestPrefix = ".catalog/packages/"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so settings can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if v := os.Getenv("QUEUE_URL"); v != "" {
		cfg.Queue.URL = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Storage.AWSRegion = v
	}
	if v := os.Getenv("SEARCH_BACKEND"); v != "" {
		cfg.Search.Backend = v
	}
	if v := os.Getenv("SEARCH_ENDPOINT"); v != "" {
		cfg.Search.Endpoint = v
	}
	if v := os.Getenv("SEARCH_USERNAME"); v != "" {
		cfg.Search.Username = v
	}
	if v := os.Getenv("SEARCH_PASSWORD"); v != "" {
		cfg.Search.Password = v
	}
	if v := os.Getenv("BLEVE_PATH"); v != "" {
		cfg.Search.BlevePath = v
	}
	if v := os.Getenv("CONTENT_INDEX_EXTS"); v != "" {
		cfg.Indexing.ContentExts = SplitList(v)
	}
	if v := os.Getenv("SKIP_ROWS_EXTS"); v != "" {
		cfg.Indexing.SkipRowsExts = SplitList(v)
	}
	if v := os.Getenv("DOC_LIMIT_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Indexing.ContentBytes = n
		}
	}
	if v := os.Getenv("CHUNK_LIMIT_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Indexing.ChunkBytes = n
		}
	}
	if v := os.Getenv("POINTER_PREFIX"); v != "" {
		cfg.Manifest.PointerPrefix = v
	}
	if v := os.Getenv("MANIFEST_PREFIX"); v != "" {
		cfg.Manifest.ManifestPrefix = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return cfg, nil
}

// SplitList parses a comma- or whitespace-separated env value into items.
func SplitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
