// Package prompt renders the prompts shared by every model backend.
package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/kirillkom/filing-analyzer/internal/core/domain"
)

const defaultEncoding = "cl100k_base"

type TokenCounter interface {
	Count(text string) int
}

// ApproxCounter estimates four characters per token.
type ApproxCounter struct{}

func (ApproxCounter) Count(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

type TiktokenCounter struct {
	encoder *tiktoken.Tiktoken
}

// NewTiktokenCounter resolves the encoding for model, falling back to cl100k_base.
// The first call may fetch the BPE ranks over the network.
func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	if model = strings.TrimSpace(model); model != "" {
		if enc, err := tiktoken.EncodingForModel(model); err == nil {
			return &TiktokenCounter{encoder: enc}, nil
		}
	}
	enc, err := tiktoken.GetEncoding(defaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("get default encoding: %w", err)
	}
	return &TiktokenCounter{encoder: enc}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	return len(c.encoder.Encode(text, nil, nil))
}

const answerTemplate = `Use the following pieces of context to answer the question at the end. If you don't know the answer, just say that you don't know, don't try to make up an answer.

%s

Question: %s
Helpful Answer:`

// Builder renders the "stuff" answer prompt: every retrieved chunk is placed
// into a single prompt, in retrieval order, while it fits the token budget.
type Builder struct {
	counter   TokenCounter
	maxTokens int
}

func NewBuilder(counter TokenCounter, maxTokens int) *Builder {
	if counter == nil {
		counter = ApproxCounter{}
	}
	return &Builder{counter: counter, maxTokens: maxTokens}
}

// Answer returns the prompt and the chunks it carries, in retrieval order. Blank
// chunks are skipped. The first non-blank chunk is always included so the model
// never answers without context.
func (b *Builder) Answer(question string, chunks []domain.ScoredChunk) (string, []domain.ScoredChunk) {
	var used []domain.ScoredChunk
	parts := make([]string, 0, len(chunks))
	spent := b.counter.Count(fmt.Sprintf(answerTemplate, "", question))
	for _, c := range chunks {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		cost := b.counter.Count(text) + 1
		if b.maxTokens > 0 && len(used) > 0 && spent+cost > b.maxTokens {
			break
		}
		parts = append(parts, text)
		spent += cost
		used = append(used, c)
	}
	return fmt.Sprintf(answerTemplate, strings.Join(parts, "\n\n"), question), used
}

// Organizations asks for organization names as a JSON object.
func Organizations(text string) string {
	const maxSnippet = 6000
	snippet := text
	if len(snippet) > maxSnippet {
		cut := maxSnippet
		for cut > 0 && !utf8.RuneStart(snippet[cut]) {
			cut--
		}
		snippet = snippet[:cut]
	}
	return `You are a named entity recognizer for financial filings.
Return strict JSON object with key organizations (array of strings): every organization
name that appears in the text, in order of first appearance, spelled exactly as written.
No markdown, no extra keys.

Text:
` + snippet
}
