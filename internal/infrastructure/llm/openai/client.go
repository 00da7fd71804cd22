// Package openai serves embeddings and answers from an OpenAI compatible API
// through langchaingo.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/kirillkom/filing-analyzer/internal/core/domain"
	"github.com/kirillkom/filing-analyzer/internal/infrastructure/llm/prompt"
	"github.com/kirillkom/filing-analyzer/internal/infrastructure/resilience"
)

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	EmbedModel  string
	Temperature float64
	BatchSize   int
}

type Client struct {
	llm         *lcopenai.LLM
	embedder    *embeddings.EmbedderImpl
	temperature float64
	executor    *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.WrapError(domain.ErrMissingCredential, "openai client", errors.New("OPENAI_API_KEY is empty"))
	}
	opts := []lcopenai.Option{
		lcopenai.WithToken(cfg.APIKey),
		lcopenai.WithModel(cfg.Model),
		lcopenai.WithEmbeddingModel(cfg.EmbedModel),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, lcopenai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := lcopenai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("init openai client: %w", err)
	}

	embedOpts := []embeddings.Option{embeddings.WithStripNewLines(false)}
	if cfg.BatchSize > 0 {
		embedOpts = append(embedOpts, embeddings.WithBatchSize(cfg.BatchSize))
	}
	embedder, err := embeddings.NewEmbedder(llm, embedOpts...)
	if err != nil {
		return nil, fmt.Errorf("init openai embedder: %w", err)
	}
	return &Client{
		llm:         llm,
		embedder:    embedder,
		temperature: cfg.Temperature,
		executor:    executor,
	}, nil
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := resilience.Call(ctx, e.client.executor, "openai.embed", func(ctx context.Context) ([][]float32, error) {
		return e.client.embedder.EmbedDocuments(ctx, texts)
	}, resilience.ClassifyRemote)
	if err != nil {
		return nil, resilience.MarkTemporary("openai embed", fmt.Errorf("openai embed: %w", err), nil)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("openai embed: got %d vectors for %d inputs", len(vectors), len(texts))
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := resilience.Call(ctx, e.client.executor, "openai.embed", func(ctx context.Context) ([]float32, error) {
		return e.client.embedder.EmbedQuery(ctx, text)
	}, resilience.ClassifyRemote)
	if err != nil {
		return nil, resilience.MarkTemporary("openai embed query", fmt.Errorf("openai embed query: %w", err), nil)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vector, nil
}

type Generator struct {
	client  *Client
	prompts *prompt.Builder
}

func NewGenerator(client *Client, prompts *prompt.Builder) *Generator {
	if prompts == nil {
		prompts = prompt.NewBuilder(nil, 0)
	}
	return &Generator{client: client, prompts: prompts}
}

func (g *Generator) GenerateAnswer(ctx context.Context, question string, chunks []domain.ScoredChunk) (string, []domain.ScoredChunk, error) {
	text, used := g.prompts.Answer(question, chunks)
	answer, err := resilience.Call(ctx, g.client.executor, "openai.generate", func(ctx context.Context) (string, error) {
		return llms.GenerateFromSinglePrompt(ctx, g.client.llm, text, llms.WithTemperature(g.client.temperature))
	}, resilience.ClassifyRemote)
	if err != nil {
		return "", nil, resilience.MarkTemporary("openai generate", fmt.Errorf("openai generate: %w", err), nil)
	}
	return strings.TrimSpace(answer), used, nil
}
