// Package pdftest builds small but structurally valid PDF files for tests.
//
// Every page uses one Helvetica font with a fixed 500/1000 em advance per
// character, so a run of n characters at size s is exactly n*s/2 points wide.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Run is one string drawn with its baseline origin at (X, Y).
type Run struct {
	X, Y float64
	Size float64
	Text string
}

type Page struct {
	Runs []Run
}

// Text places s at (x, y) with a 10pt font.
func Text(x, y float64, s string) Run {
	return Run{X: x, Y: y, Size: 10, Text: s}
}

// Row lays out cells left to right at the given x positions on one baseline.
func Row(y float64, xs []float64, cells ...string) []Run {
	out := make([]Run, 0, len(cells))
	for i, c := range cells {
		if c == "" || i >= len(xs) {
			continue
		}
		out = append(out, Text(xs[i], y, c))
	}
	return out
}

// Build renders pages into PDF bytes.
func Build(pages ...Page) []byte {
	var objects []string
	add := func(body string) int {
		objects = append(objects, body)
		return len(objects)
	}

	catalog := add("") // filled once the page tree id is known
	pagesID := add("")
	fontID := add(fontObject())

	kids := make([]string, 0, len(pages))
	for _, p := range pages {
		stream := contentStream(p)
		contentID := add(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
		pageID := add(fmt.Sprintf(
			"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
			pagesID, fontID, contentID,
		))
		kids = append(kids, fmt.Sprintf("%d 0 R", pageID))
	}
	objects[catalog-1] = fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesID)
	objects[pagesID-1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, catalog, xref)
	return buf.Bytes()
}

func fontObject() string {
	widths := make([]string, 95)
	for i := range widths {
		widths[i] = "500"
	}
	return fmt.Sprintf(
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [%s] >>",
		strings.Join(widths, " "),
	)
}

func contentStream(p Page) string {
	var b strings.Builder
	for _, r := range p.Runs {
		size := r.Size
		if size <= 0 {
			size = 10
		}
		fmt.Fprintf(&b, "BT\n/F1 %.2f Tf\n%.2f %.2f Td\n(%s) Tj\nET\n", size, r.X, r.Y, escape(r.Text))
	}
	return b.String()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
