package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the GlobalMart recommendation API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Cohere   CohereConfig   `yaml:"cohere"`
	Ranking  RankingConfig  `yaml:"ranking"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Valkey/Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// CohereConfig holds the remote model settings. An empty APIKey disables all
// AI features; every component then runs its deterministic fallback.
type CohereConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	ChatModel      string `yaml:"chat_model"`
	VisionModel    string `yaml:"vision_model"`
	RerankModel    string `yaml:"rerank_model"`
	EmbedModel     string `yaml:"embed_model"`
	IntentModel    string `yaml:"intent_model"`
	RequestTimeout int    `yaml:"request_timeout_sec"`
	MaxRetries     int    `yaml:"max_retries"`
	Workers        int    `yaml:"workers"`
	BreakerTrips   uint32 `yaml:"breaker_consecutive_failures"`
	BreakerReset   int    `yaml:"breaker_reset_sec"`
}

// RankingConfig holds retrieval and ranking budgets.
type RankingConfig struct {
	CandidatePool        int  `yaml:"candidate_pool"`
	SearchTimeoutSec     int  `yaml:"search_timeout_sec"`
	ImageTimeoutSec      int  `yaml:"image_timeout_sec"`
	MatchTimeoutSec      int  `yaml:"match_timeout_sec"`
	DenseBuildTimeoutSec int  `yaml:"dense_build_timeout_sec"`
	EmbedBatchSize       int  `yaml:"embed_batch_size"`
	PreferNewest         bool `yaml:"prefer_newest"`
}

// CatalogConfig holds catalog data settings.
type CatalogConfig struct {
	CSVPath        string `yaml:"csv_path"`
	DefaultShopper string `yaml:"default_shopper"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: by env)
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR} / ${VAR:-default}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// AIEnabled reports whether Cohere credentials are configured.
func (c *Config) AIEnabled() bool {
	return strings.TrimSpace(c.Cohere.APIKey) != ""
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Cohere.BaseURL == "" {
		c.Cohere.BaseURL = "https://api.cohere.com"
	}
	if c.Cohere.ChatModel == "" {
		c.Cohere.ChatModel = "command-r-08-2024"
	}
	if c.Cohere.VisionModel == "" {
		c.Cohere.VisionModel = "command-a-vision-07-2025"
	}
	if c.Cohere.RerankModel == "" {
		c.Cohere.RerankModel = "rerank-v4.0-fast"
	}
	if c.Cohere.EmbedModel == "" {
		c.Cohere.EmbedModel = "embed-v4.0"
	}
	if c.Cohere.IntentModel == "" {
		c.Cohere.IntentModel = c.Cohere.ChatModel
	}
	if c.Cohere.RequestTimeout <= 0 {
		c.Cohere.RequestTimeout = 20
	}
	if c.Cohere.MaxRetries < 0 {
		c.Cohere.MaxRetries = 0
	}
	if c.Cohere.Workers <= 0 {
		c.Cohere.Workers = 4
	}
	if c.Cohere.BreakerTrips == 0 {
		c.Cohere.BreakerTrips = 5
	}
	if c.Cohere.BreakerReset <= 0 {
		c.Cohere.BreakerReset = 30
	}
	if c.Ranking.CandidatePool <= 0 {
		c.Ranking.CandidatePool = 180
	}
	if c.Ranking.SearchTimeoutSec <= 0 {
		c.Ranking.SearchTimeoutSec = 25
	}
	if c.Ranking.ImageTimeoutSec <= 0 {
		c.Ranking.ImageTimeoutSec = 50
	}
	if c.Ranking.MatchTimeoutSec <= 0 {
		c.Ranking.MatchTimeoutSec = 20
	}
	if c.Ranking.DenseBuildTimeoutSec <= 0 {
		c.Ranking.DenseBuildTimeoutSec = 120
	}
	if c.Ranking.EmbedBatchSize <= 0 {
		c.Ranking.EmbedBatchSize = 96
	}
	if c.Catalog.CSVPath == "" {
		c.Catalog.CSVPath = "data/sample_clothes/clothes.csv"
	}
	if c.Catalog.DefaultShopper == "" {
		c.Catalog.DefaultShopper = "GlobalMart Fashion Shopper"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Ranking.EmbedBatchSize > 1024 {
		return fmt.Errorf("ranking.embed_batch_size is unreasonably large: %d", c.Ranking.EmbedBatchSize)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
