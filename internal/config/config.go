package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider names.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds the kbsearch configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Providers ProvidersConfig `yaml:"providers"`
	Auth      AuthConfig      `yaml:"auth"`
	Index     IndexConfig     `yaml:"index"`
	Cache     CacheConfig     `yaml:"cache"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Ranking   RankingConfig   `yaml:"ranking"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	PoolSize         int      `yaml:"pool_size"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig holds page index settings.
type IndexConfig struct {
	Algorithm       string `yaml:"algorithm"` // hnsw, flat
	Distance        string `yaml:"distance"`  // cosine, l2, ip
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
}

// ProvidersConfig selects the language model and embedding providers.
type ProvidersConfig struct {
	Completion ProviderConfig `yaml:"completion"`
	Embedding  ProviderConfig `yaml:"embedding"`
}

// ProviderConfig holds one provider's settings.
type ProviderConfig struct {
	Provider    string  `yaml:"provider"` // gemini, openai, anthropic (completion only)
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Dimensions  int     `yaml:"dimensions"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	// QueryPrefix is prepended to queries before embedding. Embedding only.
	QueryPrefix string `yaml:"query_prefix"`
}

// CacheConfig sizes the three in-process layers and the shared embedding tier.
type CacheConfig struct {
	Results          LayerConfig       `yaml:"results"`
	Queries          LayerConfig       `yaml:"queries"`
	Embeddings       LayerConfig       `yaml:"embeddings"`
	SharedEmbeddings SharedCacheConfig `yaml:"shared_embeddings"`
}

// LayerConfig sizes one cache layer. A nil Enabled means enabled.
type LayerConfig struct {
	Enabled *bool `yaml:"enabled"`
	Size    int   `yaml:"size"`
	TTLSec  int   `yaml:"ttl_sec"`
}

// IsEnabled reports whether the layer should be built.
func (l LayerConfig) IsEnabled() bool {
	return l.Enabled == nil || *l.Enabled
}

// TTL returns the layer TTL as a duration.
func (l LayerConfig) TTL() time.Duration {
	return time.Duration(l.TTLSec) * time.Second
}

// SharedCacheConfig holds the Redis-backed embedding tier settings.
type SharedCacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"`
}

// RetrievalConfig holds orchestrator and branch settings.
type RetrievalConfig struct {
	SitemapPath         string   `yaml:"sitemap_path"`
	MaxConcurrency      int      `yaml:"max_concurrency"`
	BranchTimeoutSec    int      `yaml:"branch_timeout_sec"`
	TopK                int      `yaml:"top_k"`
	MaxMerged           int      `yaml:"max_merged"`
	SimilarityThreshold *float64 `yaml:"similarity_threshold"`
}

// RankingConfig overrides ranker weights. Zero fields keep the defaults.
type RankingConfig struct {
	Similarity         float64 `yaml:"similarity"`
	ExactSlug          float64 `yaml:"exact_slug"`
	FuzzySlug          float64 `yaml:"fuzzy_slug"`
	ExactID            float64 `yaml:"exact_id"`
	FuzzyID            float64 `yaml:"fuzzy_id"`
	ExactTitle         float64 `yaml:"exact_title"`
	TitleRatio         float64 `yaml:"title_ratio"`
	TitleOverlap       float64 `yaml:"title_overlap"`
	Content            float64 `yaml:"content"`
	ContentBonus       float64 `yaml:"content_bonus"`
	ContentBonusMinLen int     `yaml:"content_bonus_min_len"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory is loaded first when present.
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
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

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
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
	if c.Database.PoolSize <= 0 {
		c.Database.PoolSize = 5
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}

	if c.Index.Algorithm == "" {
		c.Index.Algorithm = "hnsw"
	}
	if c.Index.Distance == "" {
		c.Index.Distance = "cosine"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}

	if c.Providers.Completion.Provider == "" {
		c.Providers.Completion.Provider = ProviderGemini
	}
	if c.Providers.Completion.MaxTokens <= 0 {
		c.Providers.Completion.MaxTokens = 300
	}
	if c.Providers.Embedding.Provider == "" {
		c.Providers.Embedding.Provider = ProviderGemini
	}
	if c.Providers.Embedding.Dimensions <= 0 {
		c.Providers.Embedding.Dimensions = 768
	}

	applyLayerDefaults(&c.Cache.Results, 100, time.Hour)
	applyLayerDefaults(&c.Cache.Queries, 200, 2*time.Hour)
	applyLayerDefaults(&c.Cache.Embeddings, 300, 24*time.Hour)
	if c.Cache.SharedEmbeddings.TTLSec <= 0 {
		c.Cache.SharedEmbeddings.TTLSec = int((24 * time.Hour).Seconds())
	}

	if c.Retrieval.SitemapPath == "" {
		c.Retrieval.SitemapPath = filepath.Join("config", "sitemap.json")
	}
	if c.Retrieval.MaxConcurrency <= 0 {
		c.Retrieval.MaxConcurrency = 16
	}
	if c.Retrieval.BranchTimeoutSec <= 0 {
		c.Retrieval.BranchTimeoutSec = 30
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 5
	}
	if c.Retrieval.MaxMerged <= 0 {
		c.Retrieval.MaxMerged = 10
	}
	if c.Retrieval.SimilarityThreshold == nil {
		t := 0.3
		c.Retrieval.SimilarityThreshold = &t
	}
}

func applyLayerDefaults(l *LayerConfig, size int, ttl time.Duration) {
	if l.Size == 0 {
		l.Size = size
	}
	if l.TTLSec == 0 {
		l.TTLSec = int(ttl.Seconds())
	}
}

// Validate checks the configuration for correctness. Cache layer sizes are
// not checked here: an unusable layer degrades to a disabled one at startup.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return errors.New("database.addrs is required")
	}

	switch c.Providers.Completion.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("providers.completion.provider must be gemini, openai or anthropic, got %q",
			c.Providers.Completion.Provider)
	}
	switch c.Providers.Embedding.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("providers.embedding.provider must be gemini or openai, got %q",
			c.Providers.Embedding.Provider)
	}

	switch c.Index.Algorithm {
	case "hnsw", "flat":
	default:
		return fmt.Errorf("index.algorithm must be hnsw or flat, got %q", c.Index.Algorithm)
	}
	switch c.Index.Distance {
	case "cosine", "l2", "ip":
	default:
		return fmt.Errorf("index.distance must be cosine, l2 or ip, got %q", c.Index.Distance)
	}

	if t := c.Retrieval.SimilarityThreshold; t != nil && (*t < 0 || *t >= 1) {
		return fmt.Errorf("retrieval.similarity_threshold must be in [0, 1), got %v", *t)
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
