package httpadapter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirillkom/filing-analyzer/internal/core/domain"
	"github.com/kirillkom/filing-analyzer/internal/core/ports"
	"github.com/kirillkom/filing-analyzer/internal/infrastructure/export/xlsx"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type upload struct {
	filename  string
	content   []byte
	questions []string
}

// readUpload parses the multipart body. On failure it has already written the response.
func (rt *Router) readUpload(w http.ResponseWriter, r *http.Request, endpoint string) (*upload, bool) {
	limit := rt.cfg.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds max size (%d bytes)", limit))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return nil, false
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return nil, false
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return nil, false
	}
	if int64(len(content)) > limit {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds max size (%d bytes)", limit))
		return nil, false
	}
	if rt.metrics != nil {
		rt.metrics.RecordUpload(serviceName, endpoint, int64(len(content)))
	}

	var questions []string
	for _, q := range r.MultipartForm.Value["question"] {
		if q = strings.TrimSpace(q); q != "" {
			questions = append(questions, q)
		}
	}
	return &upload{
		filename:  filepath.Base(header.Filename),
		content:   content,
		questions: questions,
	}, true
}

type tableItem struct {
	Label string     `json:"label"`
	Page  int        `json:"page"`
	Rows  [][]string `json:"rows"`
}

type tablesResponse struct {
	Items   []tableItem `json:"items"`
	Warning string      `json:"warning,omitempty"`
}

// qaItem carries the literal source texts plus the scored chunks they came from.
type qaItem struct {
	Question     string               `json:"question"`
	Answer       string               `json:"answer"`
	Sources      []string             `json:"sources"`
	SourceChunks []domain.ScoredChunk `json:"source_chunks"`
	Error        string               `json:"error,omitempty"`
}

func toQAItem(result domain.QAResult, errMessage string) qaItem {
	chunks := result.Sources
	if chunks == nil {
		chunks = []domain.ScoredChunk{}
	}
	return qaItem{
		Question:     result.Question,
		Answer:       result.Answer,
		Sources:      result.SourceTexts(),
		SourceChunks: chunks,
		Error:        errMessage,
	}
}

type indexResponse struct {
	Chunks  int    `json:"chunks"`
	Cached  bool   `json:"cached,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}

type analyzeResponse struct {
	DocumentID string          `json:"document_id"`
	Filename   string          `json:"filename"`
	Pages      int             `json:"pages"`
	Metadata   domain.Metadata `json:"metadata"`
	Tables     tablesResponse  `json:"tables"`
	QA         []qaItem        `json:"qa"`
	Index      indexResponse   `json:"index"`
}

func toTablesResponse(outcome domain.Outcome[[]domain.LabeledTable]) tablesResponse {
	items := make([]tableItem, 0, len(outcome.Value))
	for _, t := range outcome.Value {
		items = append(items, tableItem{Label: t.Label, Page: t.Page, Rows: t.Rows})
	}
	return tablesResponse{Items: items, Warning: outcome.ErrorMessage()}
}

func toAnalyzeResponse(a *domain.Analysis) analyzeResponse {
	qa := make([]qaItem, 0, len(a.Answers))
	for _, answer := range a.Answers {
		qa = append(qa, toQAItem(answer.Value, answer.ErrorMessage()))
	}
	return analyzeResponse{
		DocumentID: a.DocumentID,
		Filename:   a.Filename,
		Pages:      a.Pages,
		Metadata:   a.Metadata,
		Tables:     toTablesResponse(a.Tables),
		QA:         qa,
		Index: indexResponse{
			Chunks:  a.Index.Value.Chunks,
			Cached:  a.Index.Value.Cached,
			Skipped: a.Index.Value.Skipped,
			Error:   a.Index.ErrorMessage(),
		},
	}
}

func (rt *Router) analyze(w http.ResponseWriter, r *http.Request) {
	up, ok := rt.readUpload(w, r, "analyze")
	if !ok {
		return
	}

	started := time.Now()
	analysis, err := rt.analyzer.Analyze(r.Context(), ports.AnalyzeRequest{
		Filename:  up.filename,
		Content:   up.content,
		Questions: up.questions,
	})
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	if rt.metrics != nil {
		for _, answer := range analysis.Answers {
			rt.metrics.RecordQAObservation(serviceName, "analyze", len(answer.Value.Sources), time.Since(started), answer.Err)
		}
	}
	writeJSON(w, http.StatusOK, toAnalyzeResponse(analysis))
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	up, ok := rt.readUpload(w, r, "ask")
	if !ok {
		return
	}
	if len(up.questions) == 0 {
		writeError(w, http.StatusBadRequest, "multipart field 'question' is required")
		return
	}

	started := time.Now()
	result, err := rt.questioner.Ask(r.Context(), up.filename, up.content, up.questions[0])
	if rt.metrics != nil {
		sources := 0
		if result != nil {
			sources = len(result.Sources)
		}
		rt.metrics.RecordQAObservation(serviceName, "ask", sources, time.Since(started), err)
	}
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toQAItem(*result, ""))
}

func (rt *Router) tablesWorkbook(w http.ResponseWriter, r *http.Request) {
	up, ok := rt.readUpload(w, r, "tables")
	if !ok {
		return
	}

	outcome, err := rt.tables.Tables(r.Context(), up.filename, up.content)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	var buf bytes.Buffer
	if err := xlsx.Write(&buf, outcome.Value); err != nil {
		loggerFromContext(r.Context()).Error("xlsx_render_failed", "filename", up.filename, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to render workbook")
		return
	}

	name := strings.TrimSuffix(up.filename, filepath.Ext(up.filename)) + "-tables.xlsx"
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if warning := outcome.ErrorMessage(); warning != "" {
		w.Header().Set("X-Table-Warning", warning)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
