package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"

	"document-qa/internal/models"
)

const EnvPrefix = "DOCQA_"

type Config struct {
	Documents    []string       `yaml:"documents" env:"DOCUMENTS" envSeparator:","`
	RAG          RAGConfig      `yaml:"rag" envPrefix:"RAG_"`
	EmbedLLM     LLMConfig      `yaml:"embed_llm" envPrefix:"EMBED_"`
	InferenceLLM LLMConfig      `yaml:"inference_llm" envPrefix:"INFERENCE_"`
	Store        StoreConfig    `yaml:"store" envPrefix:"STORE_"`
	Database     DatabaseConfig `yaml:"database" envPrefix:"DB_"`
	Server       ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Log          LogConfig      `yaml:"log" envPrefix:"LOG_"`
}

type RAGConfig struct {
	ChunkSize      int    `yaml:"chunk_size" env:"CHUNK_SIZE"`
	ChunkOverlap   int    `yaml:"chunk_overlap" env:"CHUNK_OVERLAP"`
	TopK           int    `yaml:"top_k" env:"TOP_K"`
	PromptTemplate string `yaml:"prompt_template" env:"PROMPT_TEMPLATE"`
	EncryptionKey  string `yaml:"encryption_key" env:"ENCRYPTION_KEY"`
}

// LLMConfig describes one model backend. BatchSize and the cache settings
// only apply to the embedding backend.
type LLMConfig struct {
	Provider    string        `yaml:"provider" env:"PROVIDER"`
	BaseURL     string        `yaml:"base_url" env:"BASE_URL"`
	Key         string        `yaml:"key" env:"KEY"`
	Model       string        `yaml:"model" env:"MODEL"`
	Temperature float64       `yaml:"temperature" env:"TEMPERATURE"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
	Retries     int           `yaml:"retries" env:"RETRIES"`
	BatchSize   int           `yaml:"batch_size" env:"BATCH_SIZE"`
	CacheSize   int           `yaml:"cache_size" env:"CACHE_SIZE"`
	CacheTTL    time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
}

type StoreConfig struct {
	Type       string `yaml:"type" env:"TYPE"`
	Path       string `yaml:"path" env:"PATH"`
	Collection string `yaml:"collection" env:"COLLECTION"`
	Compress   bool   `yaml:"compress" env:"COMPRESS"`
	InMemory   bool   `yaml:"in_memory" env:"IN_MEMORY"`
	Manifest   string `yaml:"manifest" env:"MANIFEST"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver" env:"DRIVER"`
	DSN      string `yaml:"dsn" env:"DSN"`
	Password string `yaml:"password" env:"PASSWORD"`
	Debug    bool   `yaml:"debug" env:"DEBUG"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
	JSON  bool   `yaml:"json" env:"JSON"`
}

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	StoreChromem  = "chromem"
	StorePgvector = "pgvector"

	DriverPgdriver = "pgdriver"
	DriverPq       = "pq"
)

// LoadConfig reads the YAML file at path over the defaults (defaults alone
// when it does not exist), then applies DOCQA_* environment overrides. Keys
// that are set keep their value, zeros included.
func LoadConfig(path string) (*Config, error) {
	cfg := seed()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Default() *Config {
	cfg := seed()
	ApplyDefaults(cfg)
	return cfg
}

// seed holds the defaults a config file is decoded over. The settings
// derived from others (base url, manifest path) are filled afterwards.
func seed() *Config {
	cfg := &Config{
		RAG: RAGConfig{
			ChunkSize:      models.DefaultChunkSize,
			ChunkOverlap:   models.DefaultChunkOverlap,
			TopK:           models.DefaultTopK,
			PromptTemplate: models.DefaultPromptTemplate,
		},
		EmbedLLM:     defaultLLM(),
		InferenceLLM: defaultLLM(),
		Store: StoreConfig{
			Type:       StoreChromem,
			Path:       "db",
			Collection: "documents",
		},
		Database: DatabaseConfig{Driver: DriverPgdriver},
		Server:   ServerConfig{Addr: ":8080"},
		Log:      LogConfig{Level: "info"},
	}
	cfg.EmbedLLM.BatchSize = 32
	cfg.EmbedLLM.CacheSize = 256
	cfg.EmbedLLM.CacheTTL = 30 * time.Minute
	cfg.InferenceLLM.Temperature = 0.7
	return cfg
}

func defaultLLM() LLMConfig {
	return LLMConfig{
		Provider: ProviderOllama,
		Model:    "llama3.1",
		Timeout:  60 * time.Second,
		Retries:  1,
	}
}

// ApplyDefaults fills the settings that have no meaningful zero value and
// derives the ones that depend on others. Temperature, retries, timeout,
// batch and cache sizes are left alone: zero is a valid choice for them
// (no per-attempt deadline, the library batch size, no query cache).
func ApplyDefaults(cfg *Config) {
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = models.DefaultChunkSize
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = models.DefaultTopK
	}
	if strings.TrimSpace(cfg.RAG.PromptTemplate) == "" {
		cfg.RAG.PromptTemplate = models.DefaultPromptTemplate
	}

	applyLLMDefaults(&cfg.EmbedLLM)
	applyLLMDefaults(&cfg.InferenceLLM)

	if cfg.Store.Type == "" {
		cfg.Store.Type = StoreChromem
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "db"
	}
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = "documents"
	}
	if cfg.Store.Manifest == "" {
		cfg.Store.Manifest = filepath.Join(cfg.Store.Path, "manifest.json")
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverPgdriver
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func applyLLMDefaults(c *LLMConfig) {
	if c.Provider == "" {
		c.Provider = ProviderOllama
	}
	if c.Provider == ProviderOllama && c.BaseURL == "" {
		c.BaseURL = "http://localhost:11434"
	}
	if c.Model == "" {
		c.Model = "llama3.1"
	}
}

func (c *Config) Validate() error {
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("rag.chunk_size must be positive, got %d", c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap must be in [0, %d), got %d; set it along with a smaller rag.chunk_size", c.RAG.ChunkSize, c.RAG.ChunkOverlap)
	}
	if c.RAG.TopK <= 0 {
		return fmt.Errorf("rag.top_k must be positive, got %d", c.RAG.TopK)
	}
	for name, llm := range map[string]LLMConfig{"embed_llm": c.EmbedLLM, "inference_llm": c.InferenceLLM} {
		switch llm.Provider {
		case ProviderOllama, ProviderOpenAI:
		default:
			return fmt.Errorf("%s.provider must be %s or %s, got %q", name, ProviderOllama, ProviderOpenAI, llm.Provider)
		}
		if llm.Retries < 0 {
			return fmt.Errorf("%s.retries must not be negative", name)
		}
	}
	switch c.Store.Type {
	case StoreChromem:
	case StorePgvector:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the %s store", StorePgvector)
		}
		if c.Database.Driver != DriverPgdriver && c.Database.Driver != DriverPq {
			return fmt.Errorf("database.driver must be %s or %s, got %q", DriverPgdriver, DriverPq, c.Database.Driver)
		}
	default:
		return fmt.Errorf("store.type must be %s or %s, got %q", StoreChromem, StorePgvector, c.Store.Type)
	}
	return nil
}
