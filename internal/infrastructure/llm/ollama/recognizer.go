package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"

	"github.com/kirillkom/filing-analyzer/internal/infrastructure/llm/prompt"
)

// EntityRecognizer asks the generation model for organization names.
type EntityRecognizer struct {
	client *Client
}

func NewEntityRecognizer(client *Client) *EntityRecognizer {
	return &EntityRecognizer{client: client}
}

func (r *EntityRecognizer) Organizations(ctx context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	respText, err := r.client.generateJSON(ctx, prompt.Organizations(text))
	if err != nil {
		return nil, err
	}
	return parseOrganizations(respText)
}

// parseOrganizations accepts the object form, a bare array, or JSON the model
// left truncated or unquoted.
func parseOrganizations(raw string) ([]string, error) {
	repaired, err := jsonrepair.RepairJSON(extractJSON(raw))
	if err != nil {
		return nil, fmt.Errorf("repair organizations json: %w", err)
	}

	var names []string
	var wrapped struct {
		Organizations []string `json:"organizations"`
	}
	if err := json.Unmarshal([]byte(repaired), &wrapped); err == nil {
		names = wrapped.Organizations
	} else if err := json.Unmarshal([]byte(repaired), &names); err != nil {
		return nil, fmt.Errorf("parse organizations json: %w", err)
	}

	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out, nil
}

func extractJSON(raw string) string {
	start := strings.IndexAny(raw, "{[")
	if start < 0 {
		return raw
	}
	end := strings.LastIndexAny(raw, "}]")
	if end > start {
		return raw[start : end+1]
	}
	return raw[start:]
}
