package domain

import (
	"fmt"
	"strings"
)

// Rect is a bounding box in PDF user space (points, origin at the bottom-left).
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

func (r Rect) Contains(x, y float64) bool {
	return x >= r.X0 && x <= r.X1 && y >= r.Y0 && y <= r.Y1
}

func (r Rect) Width() float64  { return r.X1 - r.X0 }
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// TableCandidate is a tabular region found by a TableDetector.
type TableCandidate struct {
	Page       int        `json:"page"`
	BBox       Rect       `json:"bbox"`
	Rows       [][]string `json:"rows"`
	KeywordHit bool       `json:"keyword_hit"`
}

type LabeledTable struct {
	Label string     `json:"label"`
	Page  int        `json:"page"`
	Rows  [][]string `json:"rows"`
}

// DefaultTableLabels are assigned by position to the first retained tables.
var DefaultTableLabels = []string{
	"Consolidated Statements of Earnings",
	"Consolidated Balance Sheets",
	"Consolidated Statements of Cash Flows",
}

var DefaultTableKeywords = []string{
	"Earnings before provision for taxes",
	"total current assets",
	"total current liabilities",
	"net cash provided by operating activities",
	"net cash used in investing activities",
}

// KeywordSet is an immutable set of phrases matched case-insensitively.
// Runs of whitespace are treated as a single space on both sides of the match.
type KeywordSet struct {
	phrases []string
}

func NewKeywordSet(phrases ...string) KeywordSet {
	seen := make(map[string]struct{}, len(phrases))
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		norm := normalizeForMatch(p)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return KeywordSet{phrases: out}
}

func (k KeywordSet) Len() int { return len(k.phrases) }

func (k KeywordSet) Phrases() []string {
	out := make([]string, len(k.phrases))
	copy(out, k.phrases)
	return out
}

// MatchesAny reports whether text contains at least one phrase.
func (k KeywordSet) MatchesAny(text string) bool {
	if len(k.phrases) == 0 {
		return false
	}
	norm := normalizeForMatch(text)
	for _, p := range k.phrases {
		if strings.Contains(norm, p) {
			return true
		}
	}
	return false
}

func normalizeForMatch(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// LabelTables assigns labels by position: the first len(labels) tables take the
// fixed labels in order, the rest are named by ordinal ("Table 4", ...).
func LabelTables(tables []TableCandidate, labels []string) []LabeledTable {
	out := make([]LabeledTable, 0, len(tables))
	for i, t := range tables {
		label := fmt.Sprintf("Table %d", i+1)
		if i < len(labels) {
			label = labels[i]
		}
		out = append(out, LabeledTable{Label: label, Page: t.Page, Rows: t.Rows})
	}
	return out
}
