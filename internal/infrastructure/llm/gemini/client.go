// Package gemini serves embeddings and answers from the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

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
}

type Client struct {
	genai       *genai.Client
	model       string
	embedModel  string
	temperature float32
	executor    *resilience.Executor
}

func New(ctx context.Context, cfg Config, executor *resilience.Executor) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.WrapError(domain.ErrMissingCredential, "gemini client", errors.New("GEMINI_API_KEY is empty"))
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{
		genai:       client,
		model:       cfg.Model,
		embedModel:  cfg.EmbedModel,
		temperature: float32(cfg.Temperature),
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
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
	}

	resp, err := resilience.Call(ctx, e.client.executor, "gemini.embed", func(ctx context.Context) (*genai.EmbedContentResponse, error) {
		return e.client.genai.Models.EmbedContent(ctx, e.client.embedModel, contents, nil)
	}, classifyGeminiError)
	if err != nil {
		return nil, resilience.MarkTemporary("gemini embed", fmt.Errorf("gemini embed: %w", err), classifyGeminiError)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embed: got %d vectors for %d inputs", len(resp.Embeddings), len(texts))
	}
	out := make([][]float32, 0, len(resp.Embeddings))
	for _, emb := range resp.Embeddings {
		if emb == nil {
			return nil, fmt.Errorf("gemini embed: empty embedding")
		}
		out = append(out, emb.Values)
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
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
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.client.temperature),
	}
	result, err := resilience.Call(ctx, g.client.executor, "gemini.generate", func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		return g.client.genai.Models.GenerateContent(ctx, g.client.model, genai.Text(text), config)
	}, classifyGeminiError)
	if err != nil {
		return "", nil, resilience.MarkTemporary("gemini generate", fmt.Errorf("gemini generate: %w", err), classifyGeminiError)
	}
	return strings.TrimSpace(result.Text()), used, nil
}

type apiStatusError struct {
	genai.APIError
}

func (e apiStatusError) HTTPStatus() int { return e.Code }

// classifyGeminiError lifts the SDK's APIError code into the shared status classifier.
func classifyGeminiError(err error) resilience.ErrorClassification {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return resilience.ClassifyRemote(apiStatusError{apiErr})
	}
	return resilience.ClassifyRemote(err)
}
