package usecase

import (
	"context"
	"testing"

	"github.com/kirillkom/filing-analyzer/internal/core/domain"
)

func candidates(pages ...int) []domain.TableCandidate {
	out := make([]domain.TableCandidate, 0, len(pages))
	for _, p := range pages {
		out = append(out, domain.TableCandidate{
			Page: p,
			BBox: domain.Rect{X0: 72, Y0: 100, X1: 540, Y1: 400},
			Rows: [][]string{{"row", "1"}},
		})
	}
	return out
}

func keyRegions() *regionsFake {
	return &regionsFake{byPage: map[int]string{
		1: "Consolidated Statements of Earnings\nEarnings before provision for taxes 1,020",
		2: "Selected quarterly data without any totals",
		3: "TOTAL  CURRENT\nASSETS 4,100",
		4: "Net cash provided by operating activities 880",
		5: "Total current liabilities 2,300",
	}}
}

func TestLocateKeepsKeywordTablesAndLabelsByPosition(t *testing.T) {
	locator := NewTableLocator(
		&detectorFake{tables: candidates(1, 2, 3, 4, 5)},
		keyRegions(),
		domain.NewKeywordSet(domain.DefaultTableKeywords...),
		nil,
	)
	out, detected := locator.Locate(context.Background(), "/tmp/filing.pdf")
	if !out.OK() {
		t.Fatalf("Locate() error = %v", out.Err)
	}
	if detected != 5 {
		t.Fatalf("expected 5 detected tables, got %d", detected)
	}
	if len(out.Value) > detected {
		t.Fatalf("kept %d tables out of %d detected", len(out.Value), detected)
	}

	wantLabels := []string{
		"Consolidated Statements of Earnings",
		"Consolidated Balance Sheets",
		"Consolidated Statements of Cash Flows",
		"Table 4",
	}
	wantPages := []int{1, 3, 4, 5}
	if len(out.Value) != len(wantLabels) {
		t.Fatalf("expected %d tables, got %d", len(wantLabels), len(out.Value))
	}
	for i, table := range out.Value {
		if table.Label != wantLabels[i] || table.Page != wantPages[i] {
			t.Fatalf("table %d = %q on page %d, want %q on page %d", i, table.Label, table.Page, wantLabels[i], wantPages[i])
		}
	}
}

func TestLocateWithoutKeywordsReturnsEmpty(t *testing.T) {
	locator := NewTableLocator(&detectorFake{tables: candidates(1, 3)}, keyRegions(), domain.NewKeywordSet(), nil)
	out, detected := locator.Locate(context.Background(), "/tmp/filing.pdf")
	if !out.OK() {
		t.Fatalf("Locate() error = %v", out.Err)
	}
	if out.Value == nil || len(out.Value) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", out.Value)
	}
	if detected != 2 {
		t.Fatalf("expected 2 detected tables, got %d", detected)
	}
}

func TestLocateUsesCustomLabels(t *testing.T) {
	locator := NewTableLocator(
		&detectorFake{tables: candidates(1, 3)},
		keyRegions(),
		domain.NewKeywordSet("earnings", "assets"),
		[]string{"Income"},
	)
	out, _ := locator.Locate(context.Background(), "/tmp/filing.pdf")
	if len(out.Value) != 2 || out.Value[0].Label != "Income" || out.Value[1].Label != "Table 2" {
		t.Fatalf("unexpected labels: %#v", out.Value)
	}
}

func TestLocateSoftFails(t *testing.T) {
	keywords := domain.NewKeywordSet(domain.DefaultTableKeywords...)
	cases := []struct {
		name    string
		locator *TableLocator
	}{
		{
			name:    "detector error",
			locator: NewTableLocator(&detectorFake{err: errBoom}, keyRegions(), keywords, nil),
		},
		{
			name:    "detector panic",
			locator: NewTableLocator(&detectorFake{panic: true}, keyRegions(), keywords, nil),
		},
		{
			name:    "region read error",
			locator: NewTableLocator(&detectorFake{tables: candidates(1)}, &regionsFake{err: errBoom}, keywords, nil),
		},
		{
			name:    "not configured",
			locator: NewTableLocator(nil, nil, keywords, nil),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, _ := tc.locator.Locate(context.Background(), "/tmp/filing.pdf")
			if !domain.IsKind(out.Err, domain.ErrTableExtraction) {
				t.Fatalf("expected table extraction error, got %v", out.Err)
			}
			if out.Value == nil || len(out.Value) != 0 {
				t.Fatalf("expected empty non-nil list, got %#v", out.Value)
			}
		})
	}
}
