package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/filing-analyzer/internal/core/domain"
	"github.com/kirillkom/filing-analyzer/internal/core/ports"
	"github.com/kirillkom/filing-analyzer/internal/infrastructure/resilience"
)

// Store builds one short-lived collection per document. The collection is
// dropped when the returned index is closed.
type Store struct {
	baseURL    string
	prefix     string
	httpClient *http.Client
}

func New(baseURL, prefix string) *Store {
	if prefix == "" {
		prefix = "filing"
	}
	return &Store{
		baseURL:    strings.TrimRight(baseURL, "/"),
		prefix:     prefix,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (s *Store) Build(ctx context.Context, doc *domain.Document, chunks []domain.RetrievalChunk, vectors [][]float32) (ports.RetrievalIndex, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("chunks/vectors mismatch")
	}
	idx := &Index{store: s}
	if len(chunks) == 0 {
		return idx, nil
	}

	collection := s.prefix + "-" + uuid.NewString()
	if err := s.createCollection(ctx, collection, len(vectors[0])); err != nil {
		return nil, err
	}
	idx.collection = collection

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}
	points := make([]point, 0, len(chunks))
	for i, c := range chunks {
		points = append(points, point{
			ID:     uuid.NewString(),
			Vector: vectors[i],
			Payload: map[string]any{
				"doc_id":      doc.ID,
				"chunk_index": c.Index,
				"page":        c.Page,
				"text":        c.Text,
			},
		})
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", s.baseURL, collection)
	if err := s.do(ctx, http.MethodPut, url, map[string]any{"points": points}, nil, "upsert"); err != nil {
		_ = idx.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	idx.size = len(chunks)
	return idx, nil
}

func (s *Store) createCollection(ctx context.Context, collection string, vectorSize int) error {
	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	url := fmt.Sprintf("%s/collections/%s", s.baseURL, collection)
	return s.do(ctx, http.MethodPut, url, reqBody, nil, "create collection")
}

func (s *Store) do(ctx context.Context, method, url string, payload any, out any, operation string) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", operation, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return resilience.MarkTemporary("qdrant "+operation, fmt.Errorf("qdrant %s request: %w", operation, err), resilience.ClassifyTyped)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return resilience.MarkTemporary("qdrant "+operation, resilience.NewStatusError("qdrant", operation, resp), resilience.ClassifyTyped)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

type Index struct {
	store      *Store
	collection string
	size       int
}

func (i *Index) Len() int { return i.size }

func (i *Index) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.ScoredChunk, error) {
	if i.collection == "" || limit <= 0 {
		return nil, nil
	}
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}
	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", i.store.baseURL, i.collection)
	if err := i.store.do(ctx, http.MethodPost, url, reqBody, &searchResp, "search"); err != nil {
		return nil, err
	}

	out := make([]domain.ScoredChunk, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.ScoredChunk{
			RetrievalChunk: domain.RetrievalChunk{
				Index: getIntPayload(r.Payload, "chunk_index"),
				Page:  getIntPayload(r.Payload, "page"),
				Text:  getStringPayload(r.Payload, "text"),
			},
			Score: r.Score,
		})
	}
	return out, nil
}

// Close drops the collection. It is safe to call more than once.
func (i *Index) Close(ctx context.Context) error {
	if i.collection == "" {
		return nil
	}
	url := fmt.Sprintf("%s/collections/%s", i.store.baseURL, i.collection)
	if err := i.store.do(ctx, http.MethodDelete, url, nil, nil, "delete collection"); err != nil {
		return err
	}
	i.collection = ""
	return nil
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getIntPayload(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
