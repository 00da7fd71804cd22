// Package xlsx renders labeled tables as a spreadsheet workbook.
package xlsx

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/filing-analyzer/internal/core/domain"
)

const maxSheetName = 31

// Write emits one sheet per table, named after its label. A workbook with no
// tables gets a single empty "Tables" sheet.
func Write(w io.Writer, tables []domain.LabeledTable) error {
	f := excelize.NewFile()
	defer f.Close()

	const defaultSheet = "Sheet1"
	if len(tables) == 0 {
		if err := f.SetSheetName(defaultSheet, "Tables"); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}
		return writeTo(f, w)
	}

	used := make(map[string]struct{}, len(tables))
	for i, t := range tables {
		name := uniqueName(sheetName(t.Label), used)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %q: %w", name, err)
		}

		for r, row := range t.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			values := make([]any, len(row))
			for c, v := range row {
				values[c] = v
			}
			if err := f.SetSheetRow(name, cell, &values); err != nil {
				return fmt.Errorf("write %s row %d: %w", name, r+1, err)
			}
		}
	}
	f.SetActiveSheet(0)
	return writeTo(f, w)
}

func writeTo(f *excelize.File, w io.Writer) error {
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func sheetName(label string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return ' '
		}
		return r
	}, strings.TrimSpace(label))
	name = strings.TrimSpace(strings.Trim(name, "'"))
	if name == "" {
		name = "Table"
	}
	return truncate(name, maxSheetName)
}

func uniqueName(name string, used map[string]struct{}) string {
	candidate := name
	for n := 2; ; n++ {
		if _, ok := used[strings.ToLower(candidate)]; !ok {
			break
		}
		suffix := fmt.Sprintf(" (%d)", n)
		candidate = truncate(name, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = struct{}{}
	return candidate
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}
