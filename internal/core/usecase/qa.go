package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/filing-analyzer/internal/core/domain"
	"github.com/kirillkom/filing-analyzer/internal/core/ports"
)

// QAConfig is read once at startup. An empty APIKey disables question answering
// without affecting the other branches.
type QAConfig struct {
	Provider string
	APIKey   string
	TopK     int
	Timeout  time.Duration
}

func (c QAConfig) normalize() QAConfig {
	if c.TopK <= 0 {
		c.TopK = 4
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	return c
}

// CredentialRequired reports whether the provider needs an API key.
func (c QAConfig) CredentialRequired() bool {
	return c.Provider != "ollama"
}

type QAResponder struct {
	cfg       QAConfig
	embedder  ports.Embedder
	generator ports.AnswerGenerator
}

func NewQAResponder(cfg QAConfig, embedder ports.Embedder, generator ports.AnswerGenerator) *QAResponder {
	return &QAResponder{
		cfg:       cfg.normalize(),
		embedder:  embedder,
		generator: generator,
	}
}

// Answer retrieves the top-k chunks for question and stuffs them into one prompt.
// Every failure is wrapped in ErrQA; deadline and transport failures are also ErrTemporary.
func (r *QAResponder) Answer(ctx context.Context, index ports.RetrievalIndex, question string) (*domain.QAResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrQA, "answer", domain.WrapError(domain.ErrInvalidInput, "validate question", errors.New("question is empty")))
	}
	if err := r.ready(); err != nil {
		return nil, domain.WrapError(domain.ErrQA, "answer", err)
	}
	if index == nil {
		return nil, domain.WrapError(domain.ErrQA, "answer", errors.New("retrieval index is not available"))
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	result, err := r.answer(ctx, index, question)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !domain.IsKind(err, domain.ErrTemporary) {
			err = domain.WrapError(domain.ErrTemporary, "answer", err)
		}
		return nil, domain.WrapError(domain.ErrQA, "answer", err)
	}
	return result, nil
}

func (r *QAResponder) ready() error {
	if r.cfg.CredentialRequired() && strings.TrimSpace(r.cfg.APIKey) == "" {
		return domain.WrapError(domain.ErrMissingCredential, "answer", fmt.Errorf("no API key configured for provider %q", r.cfg.Provider))
	}
	if r.embedder == nil || r.generator == nil {
		return domain.WrapError(domain.ErrMissingCredential, "answer", errors.New("no model backend configured"))
	}
	return nil
}

func (r *QAResponder) answer(ctx context.Context, index ports.RetrievalIndex, question string) (*domain.QAResult, error) {
	vector, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	sources, err := index.Search(ctx, vector, r.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	if len(sources) == 0 {
		return nil, errors.New("no indexed content matches the question")
	}
	answer, used, err := r.generator.GenerateAnswer(ctx, question, sources)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	if len(used) == 0 {
		return nil, errors.New("retrieved chunks carry no text")
	}
	// Only chunks the prompt carried count as sources.
	return &domain.QAResult{
		Question: question,
		Answer:   strings.TrimSpace(answer),
		Sources:  used,
	}, nil
}
