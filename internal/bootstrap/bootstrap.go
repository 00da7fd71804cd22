package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/filing-analyzer/internal/config"
	"github.com/kirillkom/filing-analyzer/internal/core/domain"
	"github.com/kirillkom/filing-analyzer/internal/core/ports"
	"github.com/kirillkom/filing-analyzer/internal/core/usecase"
	"github.com/kirillkom/filing-analyzer/internal/infrastructure/chunking"
	"github.com/kirillkom/filing-analyzer/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/filing-analyzer/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/filing-analyzer/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/filing-analyzer/internal/infrastructure/llm/openai"
	"github.com/kirillkom/filing-analyzer/internal/infrastructure/llm/prompt"
	"github.com/kirillkom/filing-analyzer/internal/infrastructure/ner/rules"
	"github.com/kirillkom/filing-analyzer/internal/infrastructure/pdf/layout"
	"github.com/kirillkom/filing-analyzer/internal/infrastructure/resilience"
	"github.com/kirillkom/filing-analyzer/internal/infrastructure/storage/scratch"
	"github.com/kirillkom/filing-analyzer/internal/infrastructure/vector/cache"
	"github.com/kirillkom/filing-analyzer/internal/infrastructure/vector/memory"
	"github.com/kirillkom/filing-analyzer/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/filing-analyzer/internal/observability/metrics"
)

type App struct {
	Config config.Config

	AnalyzeUC *usecase.AnalyzeUseCase

	closeFn func()
}

// Options carries process-specific wiring. A nil Registerer disables pipeline metrics.
type Options struct {
	Service    string
	Logger     *slog.Logger
	Registerer prometheus.Registerer
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	executor := resilience.NewExecutor(resilienceConfig(cfg))

	keywords, labels, err := tableVocabulary(cfg)
	if err != nil {
		return nil, err
	}
	detector := layout.NewDetector(layout.Options{ColumnGap: cfg.TableColumnGap})
	tables := usecase.NewTableLocator(detector, detector, domain.NewKeywordSet(keywords...), labels)

	space, err := scratch.New(cfg.ScratchDir)
	if err != nil {
		return nil, fmt.Errorf("init scratch space: %w", err)
	}

	prompts := prompt.NewBuilder(tokenCounter(cfg, logger), cfg.QAMaxContextTokens)
	embedder, generator, err := modelBackends(ctx, cfg, executor, prompts, logger)
	if err != nil {
		return nil, err
	}

	recognizer, err := entityRecognizer(cfg, executor)
	if err != nil {
		return nil, err
	}

	store, err := vectorStore(cfg)
	if err != nil {
		return nil, err
	}
	var (
		indexCache ports.IndexCache
		purge      = func() {}
	)
	if cfg.IndexCacheSize > 0 {
		c, err := cache.New(cfg.IndexCacheSize)
		if err != nil {
			return nil, err
		}
		indexCache, purge = c, c.Purge
	}

	var observer ports.PipelineObserver
	if opts.Registerer != nil {
		observer = metrics.NewPipelineMetrics(opts.Service, opts.Registerer)
	}

	analyzeUC := usecase.NewAnalyzeUseCase(
		pdftext.NewExtractor(),
		space,
		usecase.NewMetadataExtractor(recognizer),
		tables,
		usecase.NewIndexBuilder(chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap), embedder, store, indexCache, cfg.EmbedBatchSize),
		usecase.NewQAResponder(usecase.QAConfig{
			Provider: cfg.LLMProvider,
			APIKey:   cfg.ProviderAPIKey(),
			TopK:     cfg.RAGTopK,
			Timeout:  time.Duration(cfg.QATimeoutSeconds) * time.Second,
		}, embedder, generator),
		observer,
		logger,
	)

	logger.Info("pipeline_configured",
		"llm_provider", cfg.LLMProvider,
		"qa_enabled", embedder != nil && generator != nil,
		"ner_backend", cfg.NERBackend,
		"vector_backend", cfg.VectorBackend,
		"index_cache_size", cfg.IndexCacheSize,
		"table_keywords", len(keywords),
	)

	return &App{
		Config:    cfg,
		AnalyzeUC: analyzeUC,
		closeFn:   purge,
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func resilienceConfig(cfg config.Config) resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:    cfg.RetryMaxAttempts,
		RetryInitialBackoff: time.Duration(cfg.RetryInitialBackoffMS) * time.Millisecond,
		RetryMaxBackoff:     time.Duration(cfg.RetryMaxBackoffMS) * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:      cfg.BreakerEnabled,
		BreakerMinRequests:  uint32(max(cfg.BreakerMinRequests, 0)),
		BreakerFailureRatio: cfg.BreakerFailureRatio,
		BreakerOpenTimeout:  time.Duration(cfg.BreakerOpenTimeoutSeconds) * time.Second,
	}
}

// tableVocabulary prefers KEYWORDS_FILE, then TABLE_KEYWORDS, then the built-in list.
// A file with an empty keyword list keeps no tables.
func tableVocabulary(cfg config.Config) ([]string, []string, error) {
	if cfg.KeywordsFile != "" {
		vocab, err := config.LoadTableVocabulary(cfg.KeywordsFile)
		if err != nil {
			return nil, nil, err
		}
		return vocab.Keywords, vocab.Labels, nil
	}
	if cfg.TableKeywords != nil {
		return cfg.TableKeywords, nil, nil
	}
	return domain.DefaultTableKeywords, nil, nil
}

func tokenCounter(cfg config.Config, logger *slog.Logger) prompt.TokenCounter {
	model := cfg.OpenAIModel
	switch cfg.LLMProvider {
	case "gemini":
		model = cfg.GeminiModel
	case "ollama":
		model = cfg.OllamaGenModel
	}
	counter, err := prompt.NewTiktokenCounter(model)
	if err != nil {
		logger.Warn("tiktoken_unavailable", "model", model, "error", err)
		return prompt.ApproxCounter{}
	}
	return counter
}

// modelBackends returns nil backends when the provider credential is missing;
// question answering then reports ErrMissingCredential per request.
func modelBackends(ctx context.Context, cfg config.Config, executor *resilience.Executor, prompts *prompt.Builder, logger *slog.Logger) (ports.Embedder, ports.AnswerGenerator, error) {
	switch cfg.LLMProvider {
	case "ollama":
		client := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel,
			ollama.WithTemperature(cfg.QATemperature),
			ollama.WithExecutor(executor),
		)
		return ollama.NewEmbedder(client), ollama.NewGenerator(client, prompts), nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			logger.Warn("qa_disabled", "reason", "GEMINI_API_KEY is not set")
			return nil, nil, nil
		}
		client, err := gemini.New(ctx, gemini.Config{
			APIKey:      cfg.GeminiAPIKey,
			BaseURL:     cfg.GeminiBaseURL,
			Model:       cfg.GeminiModel,
			EmbedModel:  cfg.GeminiEmbedModel,
			Temperature: cfg.QATemperature,
		}, executor)
		if err != nil {
			return nil, nil, fmt.Errorf("init gemini: %w", err)
		}
		return gemini.NewEmbedder(client), gemini.NewGenerator(client, prompts), nil
	case "openai", "":
		if cfg.OpenAIAPIKey == "" {
			logger.Warn("qa_disabled", "reason", "OPENAI_API_KEY is not set")
			return nil, nil, nil
		}
		client, err := openai.New(openai.Config{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.OpenAIModel,
			EmbedModel:  cfg.OpenAIEmbedModel,
			Temperature: cfg.QATemperature,
			BatchSize:   cfg.EmbedBatchSize,
		}, executor)
		if err != nil {
			return nil, nil, fmt.Errorf("init openai: %w", err)
		}
		return openai.NewEmbedder(client), openai.NewGenerator(client, prompts), nil
	default:
		return nil, nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

func entityRecognizer(cfg config.Config, executor *resilience.Executor) (ports.EntityRecognizer, error) {
	switch cfg.NERBackend {
	case "rules", "":
		return rules.NewRecognizer(), nil
	case "llm":
		client := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.WithExecutor(executor))
		return ollama.NewEntityRecognizer(client), nil
	default:
		return nil, fmt.Errorf("unknown NER_BACKEND %q", cfg.NERBackend)
	}
}

func vectorStore(cfg config.Config) (ports.VectorStore, error) {
	switch cfg.VectorBackend {
	case "memory", "":
		return memory.New(), nil
	case "qdrant":
		return qdrant.New(cfg.QdrantURL, cfg.QdrantCollection), nil
	default:
		return nil, fmt.Errorf("unknown VECTOR_BACKEND %q", cfg.VectorBackend)
	}
}
