package domain

// RetrievalChunk is a contiguous window of one page's text.
type RetrievalChunk struct {
	Index int    `json:"index"`
	Page  int    `json:"page"`
	Text  string `json:"text"`
}

type ScoredChunk struct {
	RetrievalChunk
	Score float64 `json:"score"`
}

type QAResult struct {
	Question string        `json:"question"`
	Answer   string        `json:"answer"`
	Sources  []ScoredChunk `json:"sources"`
}

// SourceTexts returns the literal chunk texts used to produce the answer.
func (r QAResult) SourceTexts() []string {
	out := make([]string, 0, len(r.Sources))
	for _, s := range r.Sources {
		out = append(out, s.Text)
	}
	return out
}
