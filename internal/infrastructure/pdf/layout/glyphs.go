package layout

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	pdflib "github.com/ledongthuc/pdf"
)

// glyph is one positioned text item in PDF user space. y is the baseline.
type glyph struct {
	x, y, w, size float64
	s             string
}

func (g glyph) right() float64   { return g.x + g.w }
func (g glyph) centerX() float64 { return g.x + g.w/2 }

type line struct {
	y      float64
	size   float64
	glyphs []glyph
}

type segment struct {
	x0, x1 float64
	text   string
}

// pageGlyphs reads positioned glyphs from a page. The pdf library panics on some
// malformed content streams, so the panic is turned into an error.
func pageGlyphs(page pdflib.Page) (out []glyph, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("read page content: %v", r)
		}
	}()

	if page.V.IsNull() {
		return nil, nil
	}
	content := page.Content()
	out = make([]glyph, 0, len(content.Text))
	for _, t := range content.Text {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		size := math.Abs(t.FontSize)
		if size == 0 {
			size = 10
		}
		w := t.W
		if w <= 0 {
			// Fonts without a Widths array report zero advance.
			w = size * 0.5 * float64(utf8.RuneCountInString(t.S))
		}
		out = append(out, glyph{x: t.X, y: t.Y, w: w, size: size, s: t.S})
	}
	return out, nil
}

// groupLines clusters glyphs sharing a baseline, top of page first.
func groupLines(glyphs []glyph, tolerance float64) []line {
	if len(glyphs) == 0 {
		return nil
	}
	sorted := make([]glyph, len(glyphs))
	copy(sorted, glyphs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].y != sorted[j].y {
			return sorted[i].y > sorted[j].y
		}
		return sorted[i].x < sorted[j].x
	})

	var lines []line
	for _, g := range sorted {
		if n := len(lines); n > 0 {
			cur := &lines[n-1]
			if math.Abs(cur.y-g.y) <= tolerance*math.Max(cur.size, g.size) {
				cur.glyphs = append(cur.glyphs, g)
				cur.size = math.Max(cur.size, g.size)
				continue
			}
		}
		lines = append(lines, line{y: g.y, size: g.size, glyphs: []glyph{g}})
	}
	for i := range lines {
		gs := lines[i].glyphs
		sort.SliceStable(gs, func(a, b int) bool { return gs[a].x < gs[b].x })
	}
	return lines
}

// segments splits a line wherever the horizontal gap exceeds columnGap ems.
// Smaller gaps above spaceGap ems become a single space.
func (l line) segments(columnGap, spaceGap float64) []segment {
	if len(l.glyphs) == 0 {
		return nil
	}
	var out []segment
	var b strings.Builder
	first := l.glyphs[0]
	cur := segment{x0: first.x, x1: first.right()}
	b.WriteString(first.s)

	for _, g := range l.glyphs[1:] {
		gap := g.x - cur.x1
		em := math.Max(g.size, 1)
		switch {
		case gap > columnGap*em:
			cur.text = strings.TrimSpace(b.String())
			out = append(out, cur)
			b.Reset()
			cur = segment{x0: g.x, x1: g.right()}
			b.WriteString(g.s)
			continue
		case gap > spaceGap*em:
			b.WriteByte(' ')
		}
		b.WriteString(g.s)
		if g.right() > cur.x1 {
			cur.x1 = g.right()
		}
	}
	cur.text = strings.TrimSpace(b.String())
	out = append(out, cur)
	return out
}

// text renders the line with single spaces between words and segments.
func (l line) text(spaceGap float64) string {
	segs := l.segments(math.Inf(1), spaceGap)
	if len(segs) == 0 {
		return ""
	}
	return segs[0].text
}
