package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Yates-Labs/survivalbot/internal/answer"
	"github.com/Yates-Labs/survivalbot/internal/rag"
	"github.com/Yates-Labs/survivalbot/internal/survival"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "survivalbot.yaml"

var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Ranking backends
const (
	BackendMemory = "memory"
	BackendMilvus = "milvus"
)

// Config holds all configuration for the chatbot.
type Config struct {
	Sources   SourcesConfig   `yaml:"sources"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Ranking   RankingConfig   `yaml:"ranking"`
	LLM       LLMConfig       `yaml:"llm"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SourcesConfig holds the upstream survival API endpoints.
type SourcesConfig struct {
	MonstersURL  string        `yaml:"monsters_url"`
	SurvivorsURL string        `yaml:"survivors_url"`
	ResourcesURL string        `yaml:"resources_url"`
	Timeout      time.Duration `yaml:"timeout"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "local", "openai", "ollama"
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"` // Environment variable for API key
	Dimension int    `yaml:"dimension"`
	MaxTokens int    `yaml:"max_tokens"`
}

// RankingConfig holds similarity search configuration.
type RankingConfig struct {
	TopK    int          `yaml:"top_k"`
	Metric  string       `yaml:"metric"`  // "cosine" or "euclidean"
	Backend string       `yaml:"backend"` // "memory" or "milvus"
	Milvus  MilvusConfig `yaml:"milvus"`
}

// MilvusConfig holds the optional Milvus backend settings.
type MilvusConfig struct {
	Address          string `yaml:"address"`
	CollectionPrefix string `yaml:"collection_prefix"`
	M                int    `yaml:"m"`
	EfConstruction   int    `yaml:"ef_construction"`
	Ef               int    `yaml:"ef"`
}

// LLMConfig holds chat completion configuration.
type LLMConfig struct {
	Provider    string        `yaml:"provider"` // "openai", "ollama", "mock"
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	MaxRetries  int           `yaml:"max_retries"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	TokenEnv   string `yaml:"token_env"` // Environment variable holding the bearer token; unset disables auth
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // chat shell log file; empty discards logs in the shell
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	endpoints := survival.DefaultEndpoints()
	milvus := rag.DefaultMilvusConfig()
	llm := answer.DefaultLLMConfig()

	return &Config{
		Sources: SourcesConfig{
			MonstersURL:  endpoints.MonstersURL,
			SurvivorsURL: endpoints.SurvivorsURL,
			ResourcesURL: endpoints.ResourcesURL,
			Timeout:      15 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Provider:  rag.ProviderLocal,
			Model:     rag.LocalModelName,
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: rag.DefaultDimension,
			MaxTokens: rag.DefaultMaxTokens,
		},
		Ranking: RankingConfig{
			TopK:    rag.DefaultTopK,
			Metric:  string(rag.MetricCosine),
			Backend: BackendMemory,
			Milvus: MilvusConfig{
				Address:          milvus.Address,
				CollectionPrefix: milvus.CollectionPrefix,
				M:                milvus.M,
				EfConstruction:   milvus.EfConstruction,
				Ef:               milvus.Ef,
			},
		},
		LLM: LLMConfig{
			Provider:   llm.Provider,
			Model:      llm.Model,
			BaseURL:    llm.BaseURL,
			APIKeyEnv:  "GROQ_API_KEY",
			MaxRetries: llm.MaxRetries,
			Timeout:    llm.Timeout,
		},
		Server: ServerConfig{
			ListenAddr: "127.0.0.1:8080",
			TokenEnv:   "SURVIVALBOT_TOKEN",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file on top of the defaults.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv overrides settings from SURVIVALBOT_* environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Sources.MonstersURL, "SURVIVALBOT_MONSTERS_URL")
	set(&c.Sources.SurvivorsURL, "SURVIVALBOT_SURVIVORS_URL")
	set(&c.Sources.ResourcesURL, "SURVIVALBOT_RESOURCES_URL")
	set(&c.Embedding.Provider, "SURVIVALBOT_EMBEDDING_PROVIDER")
	set(&c.LLM.Provider, "SURVIVALBOT_LLM_PROVIDER")
	set(&c.LLM.Model, "SURVIVALBOT_LLM_MODEL")
	set(&c.LLM.BaseURL, "SURVIVALBOT_LLM_BASE_URL")
	set(&c.Ranking.Milvus.Address, "MILVUS_ADDRESS")
	set(&c.Server.ListenAddr, "SURVIVALBOT_LISTEN_ADDR")
	set(&c.Logging.Level, "SURVIVALBOT_LOG_LEVEL")
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Ranking.TopK <= 0 {
		return fmt.Errorf("%w: ranking.top_k must be positive, got %d", ErrInvalidConfig, c.Ranking.TopK)
	}
	if _, err := rag.ParseMetric(c.Ranking.Metric); err != nil {
		return fmt.Errorf("%w: ranking.metric: %w", ErrInvalidConfig, err)
	}
	switch strings.ToLower(c.Ranking.Backend) {
	case "", BackendMemory, BackendMilvus:
	default:
		return fmt.Errorf("%w: unknown ranking.backend %q", ErrInvalidConfig, c.Ranking.Backend)
	}
	switch strings.ToLower(c.Embedding.Provider) {
	case "", rag.ProviderLocal, rag.ProviderOpenAI, rag.ProviderOllama:
	default:
		return fmt.Errorf("%w: unknown embedding.provider %q", ErrInvalidConfig, c.Embedding.Provider)
	}
	switch strings.ToLower(c.LLM.Provider) {
	case "", answer.ProviderOpenAI, answer.ProviderOllama, answer.ProviderMock:
	default:
		return fmt.Errorf("%w: unknown llm.provider %q", ErrInvalidConfig, c.LLM.Provider)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown logging.level %q", ErrInvalidConfig, c.Logging.Level)
	}
	return nil
}

// Endpoints returns the fetcher endpoints.
func (c *Config) Endpoints() survival.Endpoints {
	return survival.Endpoints{
		MonstersURL:  c.Sources.MonstersURL,
		SurvivorsURL: c.Sources.SurvivorsURL,
		ResourcesURL: c.Sources.ResourcesURL,
	}
}

// EmbedderConfig returns the embedder settings with the API key resolved from the environment.
func (c *Config) EmbedderConfig(getenv func(string) string) rag.EmbedderConfig {
	return rag.EmbedderConfig{
		Provider:  c.Embedding.Provider,
		Model:     c.Embedding.Model,
		BaseURL:   c.Embedding.BaseURL,
		APIKey:    lookup(getenv, c.Embedding.APIKeyEnv),
		Dimension: c.Embedding.Dimension,
		MaxTokens: c.Embedding.MaxTokens,
	}
}

// Metric returns the parsed ranking metric, defaulting to cosine.
func (c *Config) Metric() rag.Metric {
	m, err := rag.ParseMetric(c.Ranking.Metric)
	if err != nil {
		return rag.MetricCosine
	}
	return m
}

// MilvusConfig returns the Milvus backend settings.
func (c *Config) MilvusConfig() rag.MilvusConfig {
	return rag.MilvusConfig{
		Address:          c.Ranking.Milvus.Address,
		CollectionPrefix: c.Ranking.Milvus.CollectionPrefix,
		M:                c.Ranking.Milvus.M,
		EfConstruction:   c.Ranking.Milvus.EfConstruction,
		Ef:               c.Ranking.Milvus.Ef,
	}
}

// LLMConfig returns the chat completion settings with the API key resolved from the environment.
func (c *Config) LLMConfig(getenv func(string) string) answer.LLMConfig {
	return answer.LLMConfig{
		Provider:    c.LLM.Provider,
		Model:       c.LLM.Model,
		BaseURL:     c.LLM.BaseURL,
		APIKey:      lookup(getenv, c.LLM.APIKeyEnv),
		Temperature: c.LLM.Temperature,
		MaxTokens:   c.LLM.MaxTokens,
		MaxRetries:  c.LLM.MaxRetries,
		Timeout:     c.LLM.Timeout,
	}
}

// ServerToken returns the bearer token required by the HTTP server, or "" when auth is off.
func (c *Config) ServerToken(getenv func(string) string) string {
	return lookup(getenv, c.Server.TokenEnv)
}

func lookup(getenv func(string) string, key string) string {
	if key == "" {
		return ""
	}
	return getenv(key)
}
