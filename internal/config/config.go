package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort  string
	LogLevel string

	LLMProvider string

	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIModel      string
	OpenAIEmbedModel string

	GeminiAPIKey     string
	GeminiBaseURL    string
	GeminiModel      string
	GeminiEmbedModel string

	OllamaURL        string
	OllamaGenModel   string
	OllamaEmbedModel string

	NERBackend string

	VectorBackend    string
	QdrantURL        string
	QdrantCollection string
	IndexCacheSize   int

	ChunkSize          int
	ChunkOverlap       int
	EmbedBatchSize     int
	RAGTopK            int
	QATimeoutSeconds   int
	QATemperature      float64
	QAMaxContextTokens int

	TableKeywords  []string
	KeywordsFile   string
	TableColumnGap float64

	ScratchDir string

	MaxUploadBytes        int64
	APIRateLimitRPS       float64
	APIRateLimitBurst     int
	APIMaxInFlight        int
	APIBackpressureWaitMS int

	RetryMaxAttempts          int
	RetryInitialBackoffMS     int
	RetryMaxBackoffMS         int
	BreakerEnabled            bool
	BreakerMinRequests        int
	BreakerFailureRatio       float64
	BreakerOpenTimeoutSeconds int
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		LLMProvider: strings.ToLower(mustEnv("LLM_PROVIDER", "openai")),

		OpenAIAPIKey:     mustEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    mustEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:      mustEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIEmbedModel: mustEnv("OPENAI_EMBED_MODEL", "text-embedding-3-small"),

		GeminiAPIKey:     mustEnv("GEMINI_API_KEY", ""),
		GeminiBaseURL:    mustEnv("GEMINI_BASE_URL", ""),
		GeminiModel:      mustEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiEmbedModel: mustEnv("GEMINI_EMBED_MODEL", "text-embedding-004"),

		OllamaURL:        mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel:   mustEnv("OLLAMA_GEN_MODEL", "llama3.1:8b"),
		OllamaEmbedModel: mustEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),

		NERBackend: strings.ToLower(mustEnv("NER_BACKEND", "rules")),

		VectorBackend:    strings.ToLower(mustEnv("VECTOR_BACKEND", "memory")),
		QdrantURL:        mustEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection: mustEnv("QDRANT_COLLECTION_PREFIX", "filing"),
		IndexCacheSize:   mustEnvInt("INDEX_CACHE_SIZE", 0),

		ChunkSize:          mustEnvInt("CHUNK_SIZE", 2000),
		ChunkOverlap:       mustEnvInt("CHUNK_OVERLAP", 200),
		EmbedBatchSize:     mustEnvInt("EMBED_BATCH_SIZE", 64),
		RAGTopK:            mustEnvInt("RAG_TOP_K", 4),
		QATimeoutSeconds:   mustEnvInt("QA_TIMEOUT_SECONDS", 60),
		QATemperature:      mustEnvFloat("QA_TEMPERATURE", 0.3),
		QAMaxContextTokens: mustEnvInt("QA_MAX_CONTEXT_TOKENS", 6000),

		TableKeywords:  mustEnvList("TABLE_KEYWORDS"),
		KeywordsFile:   mustEnv("KEYWORDS_FILE", ""),
		TableColumnGap: mustEnvFloat("TABLE_COLUMN_GAP", 0),

		ScratchDir: mustEnv("SCRATCH_DIR", ""),

		MaxUploadBytes:        int64(mustEnvInt("MAX_UPLOAD_BYTES", 50<<20)),
		APIRateLimitRPS:       mustEnvFloat("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst:     mustEnvInt("API_RATE_LIMIT_BURST", 10),
		APIMaxInFlight:        mustEnvInt("API_MAX_INFLIGHT", 8),
		APIBackpressureWaitMS: mustEnvInt("API_BACKPRESSURE_WAIT_MS", 250),

		RetryMaxAttempts:          mustEnvInt("RESILIENCE_RETRY_MAX_ATTEMPTS", 3),
		RetryInitialBackoffMS:     mustEnvInt("RESILIENCE_RETRY_INITIAL_BACKOFF_MS", 200),
		RetryMaxBackoffMS:         mustEnvInt("RESILIENCE_RETRY_MAX_BACKOFF_MS", 2000),
		BreakerEnabled:            mustEnvBool("RESILIENCE_BREAKER_ENABLED", true),
		BreakerMinRequests:        mustEnvInt("RESILIENCE_BREAKER_MIN_REQUESTS", 10),
		BreakerFailureRatio:       mustEnvFloat("RESILIENCE_BREAKER_FAILURE_RATIO", 0.5),
		BreakerOpenTimeoutSeconds: mustEnvInt("RESILIENCE_BREAKER_OPEN_TIMEOUT_SECONDS", 30),
	}
}

// ProviderAPIKey returns the credential of the selected LLM provider.
func (c Config) ProviderAPIKey() string {
	switch c.LLMProvider {
	case "gemini":
		return c.GeminiAPIKey
	case "ollama":
		return ""
	default:
		return c.OpenAIAPIKey
	}
}

// LoadDotEnv reads KEY=VALUE files into the process environment. Missing files
// are skipped and variables already set are never overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
	}
	return nil
}

// TableVocabulary is the YAML file format of KEYWORDS_FILE.
type TableVocabulary struct {
	Keywords []string `yaml:"keywords"`
	Labels   []string `yaml:"labels"`
}

func LoadTableVocabulary(path string) (TableVocabulary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return TableVocabulary{}, fmt.Errorf("read keywords file: %w", err)
	}
	var out TableVocabulary
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return TableVocabulary{}, fmt.Errorf("parse keywords file %s: %w", path, err)
	}
	out.Keywords = trimList(out.Keywords)
	out.Labels = trimList(out.Labels)
	return out, nil
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	return trimList(strings.Split(v, ","))
}

func trimList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
