package domain

import "testing"

func TestKeywordSetMatchesAny(t *testing.T) {
	set := NewKeywordSet("Total Current Assets", "  net cash provided by  operating activities ", "")
	if set.Len() != 2 {
		t.Fatalf("expected 2 phrases, got %d", set.Len())
	}

	cases := []struct {
		name string
		text string
		want bool
	}{
		{"exact phrase", "Total current assets 4,100", true},
		{"upper case", "TOTAL CURRENT ASSETS", true},
		{"phrase wrapped across lines", "Total\ncurrent   assets 4,100", true},
		{"second phrase", "Net cash provided by operating activities 880", true},
		{"partial phrase", "Total current liabilities", false},
		{"empty text", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := set.MatchesAny(tc.text); got != tc.want {
				t.Fatalf("MatchesAny(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestLabelTablesByPosition(t *testing.T) {
	tables := []TableCandidate{{Page: 1}, {Page: 3}, {Page: 4}, {Page: 5}}
	got := LabelTables(tables, DefaultTableLabels)
	want := []string{DefaultTableLabels[0], DefaultTableLabels[1], DefaultTableLabels[2], "Table 4"}
	for i, w := range want {
		if got[i].Label != w || got[i].Page != tables[i].Page {
			t.Fatalf("table %d = %+v, want label %q", i, got[i], w)
		}
	}
}
