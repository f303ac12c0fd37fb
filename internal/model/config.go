package model

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete minuta configuration
type Config struct {
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	Qdrant    QdrantConfig    `yaml:"qdrant" mapstructure:"qdrant"`
	Ingest    IngestConfig    `yaml:"ingest" mapstructure:"ingest"`
	Retrieval RetrievalConfig `yaml:"retrieval" mapstructure:"retrieval"`
	Memory    MemoryConfig    `yaml:"memory" mapstructure:"memory"`
	HTTP      HTTPConfig      `yaml:"http" mapstructure:"http"`
}

// OpenAIConfig configures the embedding and chat completion clients
type OpenAIConfig struct {
	APIKey            string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL           string        `yaml:"base_url" mapstructure:"base_url"` // Custom endpoint (e.g. a proxy)
	ChatModel         string        `yaml:"chat_model" mapstructure:"chat_model"`
	EmbeddingModel    string        `yaml:"embedding_model" mapstructure:"embedding_model"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens         int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
}

// QdrantConfig configures the vector index adapter
type QdrantConfig struct {
	URL        string        `yaml:"url" mapstructure:"url"`
	APIKey     string        `yaml:"api_key" mapstructure:"api_key"`
	Collection string        `yaml:"collection" mapstructure:"collection"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// IngestConfig controls parsing, chunking and indexing
type IngestConfig struct {
	ChunkTurns int    `yaml:"chunk_turns" mapstructure:"chunk_turns"` // Turns per chunk window
	BatchSize  int    `yaml:"batch_size" mapstructure:"batch_size"`   // Embedding/upsert batch size
	DataDir    string `yaml:"data_dir" mapstructure:"data_dir"`       // Registry and metadata storage
}

// RetrievalConfig controls hybrid retrieval and context assembly
type RetrievalConfig struct {
	TopK             int `yaml:"top_k" mapstructure:"top_k"`
	RRFK             int `yaml:"rrf_k" mapstructure:"rrf_k"` // Reciprocal rank fusion constant
	MaxQueries       int `yaml:"max_queries" mapstructure:"max_queries"`
	MaxContextChunks int `yaml:"max_context_chunks" mapstructure:"max_context_chunks"`
}

// MemoryConfig controls the per-meeting ask memory
type MemoryConfig struct {
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// HTTPConfig holds proxy settings for outbound API calls
type HTTPConfig struct {
	HTTPProxy  string `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy" mapstructure:"no_proxy"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			ChatModel:         "gpt-4o-mini",
			EmbeddingModel:    "text-embedding-3-small",
			Timeout:           30 * time.Second,
			MaxTokens:         1000,
			RequestsPerSecond: 5,
			Burst:             10,
		},
		Qdrant: QdrantConfig{
			URL:        "http://localhost:6333",
			Collection: "meeting_chunks",
			Timeout:    15 * time.Second,
		},
		Ingest: IngestConfig{
			ChunkTurns: 8,
			BatchSize:  32,
			DataDir:    "data",
		},
		Retrieval: RetrievalConfig{
			TopK:             10,
			RRFK:             60,
			MaxQueries:       3,
			MaxContextChunks: 8,
		},
		Memory: MemoryConfig{
			TTL: time.Hour,
		},
	}
}

// LoadConfig merges viper-managed values (config file, MINUTA_* env vars, bound
// flags) over the defaults
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
