package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/filing-analyzer/internal/config"
	"github.com/kirillkom/filing-analyzer/internal/core/domain"
	"github.com/kirillkom/filing-analyzer/internal/core/ports"
	"github.com/kirillkom/filing-analyzer/internal/observability/metrics"
)

type fakeFilings struct {
	analysis *domain.Analysis
	result   *domain.QAResult
	tables   domain.Outcome[[]domain.LabeledTable]
	err      error

	lastRequest  ports.AnalyzeRequest
	lastQuestion string
}

func (f *fakeFilings) Analyze(_ context.Context, req ports.AnalyzeRequest) (*domain.Analysis, error) {
	f.lastRequest = req
	return f.analysis, f.err
}

func (f *fakeFilings) Ask(_ context.Context, _ string, _ []byte, question string) (*domain.QAResult, error) {
	f.lastQuestion = question
	return f.result, f.err
}

func (f *fakeFilings) Tables(context.Context, string, []byte) (domain.Outcome[[]domain.LabeledTable], error) {
	return f.tables, f.err
}

func newTestHandler(cfg config.Config, filings *fakeFilings) http.Handler {
	if filings == nil {
		filings = &fakeFilings{}
	}
	return NewRouter(cfg, filings, filings, filings, metrics.NewHTTPServerMetrics(serviceName)).Handler()
}

func multipartBody(t *testing.T, filename string, content []byte, questions ...string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = part.Write(content)
	}
	for _, q := range questions {
		if err := mw.WriteField("question", q); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &body, mw.FormDataContentType()
}

func postUpload(t *testing.T, handler http.Handler, path, filename string, content []byte, questions ...string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, filename, content, questions...)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestHealthz(t *testing.T) {
	res := httptest.NewRecorder()
	newTestHandler(config.Config{}, nil).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res.Code != http.StatusOK || !strings.Contains(res.Body.String(), `"ok"`) {
		t.Fatalf("unexpected healthz response: %d %s", res.Code, res.Body.String())
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler := newTestHandler(config.Config{}, nil)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if res.Code != http.StatusOK || !strings.Contains(res.Body.String(), "filing_http_requests_total") {
		t.Fatalf("expected request metrics, got %d", res.Code)
	}
}

func TestAnalyzeReturnsBranchOutcomes(t *testing.T) {
	filings := &fakeFilings{analysis: &domain.Analysis{
		DocumentID: "doc-1",
		Filename:   "q1.pdf",
		Pages:      10,
		Metadata:   domain.Metadata{CompanyName: "Xyz Corporation", PeriodEnding: "For The Quarterly Period Ended: March 31, 2024"},
		Tables: domain.Outcome[[]domain.LabeledTable]{
			Value: []domain.LabeledTable{},
			Err:   domain.WrapError(domain.ErrTableExtraction, "locate tables", errors.New("bad stream")),
		},
		Index: domain.Success(domain.IndexStats{Chunks: 12}),
		Answers: []domain.Outcome[domain.QAResult]{
			domain.Success(domain.QAResult{
				Question: "What were total current assets?",
				Answer:   "1,200",
				Sources:  []domain.ScoredChunk{{RetrievalChunk: domain.RetrievalChunk{Page: 7, Text: "Total current assets 1,200"}, Score: 0.9}},
			}),
			{Value: domain.QAResult{Question: "Second?"}, Err: domain.WrapError(domain.ErrQA, "answer", errors.New("timeout"))},
		},
	}}
	res := postUpload(t, newTestHandler(config.Config{}, filings), "/v1/filings/analyze", "reports/q1.pdf", []byte("%PDF"),
		"What were total current assets?", " ", "Second?")

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if got := filings.lastRequest.Questions; len(got) != 2 {
		t.Fatalf("blank questions must be dropped, got %#v", got)
	}
	if filings.lastRequest.Filename != "q1.pdf" || string(filings.lastRequest.Content) != "%PDF" {
		t.Fatalf("unexpected request: %+v", filings.lastRequest)
	}

	var body map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	meta := body["metadata"].(map[string]any)
	if meta["company_name"] != "Xyz Corporation" {
		t.Fatalf("unexpected metadata: %v", meta)
	}
	tables := body["tables"].(map[string]any)
	if items := tables["items"].([]any); len(items) != 0 || tables["warning"] == "" {
		t.Fatalf("expected empty tables with warning, got %v", tables)
	}
	qa := body["qa"].([]any)
	if len(qa) != 2 || qa[1].(map[string]any)["error"] == nil {
		t.Fatalf("unexpected qa section: %v", qa)
	}
	first := qa[0].(map[string]any)
	if sources := first["sources"].([]any); len(sources) != 1 || sources[0] != "Total current assets 1,200" {
		t.Fatalf("expected one source text, got %v", sources)
	}
	chunks := first["source_chunks"].([]any)
	if len(chunks) != 1 || chunks[0].(map[string]any)["page"] != float64(7) {
		t.Fatalf("expected one scored chunk from page 7, got %v", chunks)
	}
}

func TestAnalyzeRequiresFile(t *testing.T) {
	res := postUpload(t, newTestHandler(config.Config{}, nil), "/v1/filings/analyze", "", nil)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestAnalyzeRejectsOversizedUpload(t *testing.T) {
	handler := newTestHandler(config.Config{MaxUploadBytes: 8}, &fakeFilings{analysis: &domain.Analysis{}})
	res := postUpload(t, handler, "/v1/filings/analyze", "big.pdf", bytes.Repeat([]byte("x"), 64))
	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.Code)
	}
}

func TestAskReturnsAnswer(t *testing.T) {
	filings := &fakeFilings{result: &domain.QAResult{
		Question: "q",
		Answer:   "Net income was 300.",
		Sources:  []domain.ScoredChunk{{RetrievalChunk: domain.RetrievalChunk{Text: "Net income 300"}}},
	}}
	res := postUpload(t, newTestHandler(config.Config{}, filings), "/v1/filings/ask", "q1.pdf", []byte("%PDF"), "What was net income?")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if filings.lastQuestion != "What was net income?" {
		t.Fatalf("unexpected question %q", filings.lastQuestion)
	}
	var body struct {
		Answer       string               `json:"answer"`
		Sources      []string             `json:"sources"`
		SourceChunks []domain.ScoredChunk `json:"source_chunks"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Answer != "Net income was 300." || len(body.Sources) != 1 || body.Sources[0] != "Net income 300" {
		t.Fatalf("unexpected body: %+v", body)
	}
	if len(body.SourceChunks) != 1 || body.SourceChunks[0].Text != "Net income 300" {
		t.Fatalf("unexpected source chunks: %+v", body.SourceChunks)
	}
}

func TestAskRequiresQuestion(t *testing.T) {
	res := postUpload(t, newTestHandler(config.Config{}, nil), "/v1/filings/ask", "q1.pdf", []byte("%PDF"))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestTablesWorkbook(t *testing.T) {
	filings := &fakeFilings{tables: domain.Success([]domain.LabeledTable{
		{Label: "Consolidated Balance Sheets", Page: 4, Rows: [][]string{{"Total current assets", "4,100"}}},
	})}
	res := postUpload(t, newTestHandler(config.Config{}, filings), "/v1/filings/tables.xlsx", "q1.pdf", []byte("%PDF"))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if res.Header().Get("Content-Type") != xlsxContentType {
		t.Fatalf("unexpected content type %q", res.Header().Get("Content-Type"))
	}
	if !strings.Contains(res.Header().Get("Content-Disposition"), "q1-tables.xlsx") {
		t.Fatalf("unexpected disposition %q", res.Header().Get("Content-Disposition"))
	}

	f, err := excelize.OpenReader(res.Body)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	value, err := f.GetCellValue("Consolidated Balance Sheets", "B1")
	if err != nil || value != "4,100" {
		t.Fatalf("unexpected cell value %q (%v)", value, err)
	}
}
