// Package layout recovers page geometry from PDF files: stream-style table
// detection based on whitespace alignment, and text reads clipped to a region.
package layout

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/kirillkom/filing-analyzer/internal/core/domain"
)

type Options struct {
	// ColumnGap is the horizontal gap, in ems, that separates two cells.
	ColumnGap float64
	// SpaceGap is the gap, in ems, rendered as a space between words.
	SpaceGap float64
	// LineTolerance is the baseline drift, in ems, still considered the same line.
	LineTolerance float64
	// MaxRowGap is the vertical distance, in ems, that ends a table region.
	MaxRowGap float64
	// MinRows is the minimum number of multi-cell lines a table needs.
	MinRows int
}

func DefaultOptions() Options {
	return Options{
		ColumnGap:     1.0,
		SpaceGap:      0.15,
		LineTolerance: 0.35,
		MaxRowGap:     2.5,
		MinRows:       2,
	}
}

func (o Options) normalize() Options {
	def := DefaultOptions()
	if o.ColumnGap <= 0 {
		o.ColumnGap = def.ColumnGap
	}
	if o.SpaceGap <= 0 || o.SpaceGap >= o.ColumnGap {
		o.SpaceGap = math.Min(def.SpaceGap, o.ColumnGap/2)
	}
	if o.LineTolerance <= 0 {
		o.LineTolerance = def.LineTolerance
	}
	if o.MaxRowGap <= 0 {
		o.MaxRowGap = def.MaxRowGap
	}
	if o.MinRows <= 0 {
		o.MinRows = def.MinRows
	}
	return o
}

// Detector implements ports.TableDetector and ports.RegionTextReader.
type Detector struct {
	opts Options
}

func NewDetector(opts Options) *Detector {
	return &Detector{opts: opts.normalize()}
}

func (d *Detector) Detect(ctx context.Context, path string) ([]domain.TableCandidate, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var out []domain.TableCandidate
	for num := 1; num <= reader.NumPage(); num++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		glyphs, err := pageGlyphs(reader.Page(num))
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", num, err)
		}
		out = append(out, d.detectPage(num, glyphs)...)
	}
	return out, nil
}

func (d *Detector) TextInRegion(ctx context.Context, path string, page int, bbox domain.Rect) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	if page < 1 || page > reader.NumPage() {
		return "", fmt.Errorf("page %d out of range 1..%d", page, reader.NumPage())
	}
	glyphs, err := pageGlyphs(reader.Page(page))
	if err != nil {
		return "", fmt.Errorf("page %d: %w", page, err)
	}

	inside := glyphs[:0:0]
	for _, g := range glyphs {
		if bbox.Contains(g.centerX(), g.y) {
			inside = append(inside, g)
		}
	}
	lines := groupLines(inside, d.opts.LineTolerance)
	texts := make([]string, 0, len(lines))
	for _, l := range lines {
		if t := l.text(d.opts.SpaceGap); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, "\n"), nil
}

type layoutLine struct {
	line
	segs []segment
}

func (l layoutLine) tabular() bool { return len(l.segs) >= 2 }

func (d *Detector) detectPage(page int, glyphs []glyph) []domain.TableCandidate {
	raw := groupLines(glyphs, d.opts.LineTolerance)
	lines := make([]layoutLine, 0, len(raw))
	for _, l := range raw {
		lines = append(lines, layoutLine{line: l, segs: l.segments(d.opts.ColumnGap, d.opts.SpaceGap)})
	}

	var out []domain.TableCandidate
	for i := 0; i < len(lines); {
		if !lines[i].tabular() {
			i++
			continue
		}
		end := d.regionEnd(lines, i)
		region := lines[i : end+1]
		if countTabular(region) >= d.opts.MinRows {
			out = append(out, buildTable(page, region))
		}
		i = end + 1
	}
	return out
}

// regionEnd returns the index of the last tabular line of the region starting at
// start. A single non-tabular line is absorbed when a tabular line follows it
// closely, which keeps section captions such as "Current assets:" in the grid.
func (d *Detector) regionEnd(lines []layoutLine, start int) int {
	end := start
	for j := start + 1; j < len(lines); j++ {
		if !d.close(lines[j-1], lines[j]) {
			break
		}
		if lines[j].tabular() {
			end = j
			continue
		}
		if j+1 < len(lines) && lines[j+1].tabular() && d.close(lines[j], lines[j+1]) && j-1 == end {
			continue
		}
		break
	}
	return end
}

func (d *Detector) close(upper, lower layoutLine) bool {
	return upper.y-lower.y <= d.opts.MaxRowGap*math.Max(upper.size, lower.size)
}

func countTabular(lines []layoutLine) int {
	n := 0
	for _, l := range lines {
		if l.tabular() {
			n++
		}
	}
	return n
}

type interval struct{ x0, x1 float64 }

func buildTable(page int, region []layoutLine) domain.TableCandidate {
	columns := columnIntervals(region)
	bbox := domain.Rect{X0: math.Inf(1), Y0: math.Inf(1), X1: math.Inf(-1), Y1: math.Inf(-1)}

	rows := make([][]string, 0, len(region))
	for _, l := range region {
		for _, g := range l.glyphs {
			bbox.X0 = math.Min(bbox.X0, g.x)
			bbox.X1 = math.Max(bbox.X1, g.right())
			bbox.Y0 = math.Min(bbox.Y0, g.y-0.25*g.size)
			bbox.Y1 = math.Max(bbox.Y1, g.y+g.size)
		}

		cells := make([]string, len(columns))
		for _, s := range l.segs {
			col := nearestColumn(columns, s)
			if cells[col] == "" {
				cells[col] = s.text
			} else {
				cells[col] += " " + s.text
			}
		}
		rows = append(rows, cells)
	}
	return domain.TableCandidate{Page: page, BBox: bbox, Rows: rows}
}

// columnIntervals merges the x-ranges of cells on tabular lines into columns.
func columnIntervals(region []layoutLine) []interval {
	var spans []interval
	for _, l := range region {
		if !l.tabular() {
			continue
		}
		for _, s := range l.segs {
			spans = append(spans, interval{s.x0, s.x1})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].x0 < spans[j].x0 })

	var merged []interval
	for _, s := range spans {
		if n := len(merged); n > 0 && s.x0 <= merged[n-1].x1 {
			merged[n-1].x1 = math.Max(merged[n-1].x1, s.x1)
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

func nearestColumn(columns []interval, s segment) int {
	best, bestScore := 0, math.Inf(-1)
	for i, c := range columns {
		overlap := math.Min(c.x1, s.x1) - math.Max(c.x0, s.x0)
		score := overlap
		if overlap <= 0 {
			center := (s.x0 + s.x1) / 2
			score = -math.Min(math.Abs(center-c.x0), math.Abs(center-c.x1))
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}
