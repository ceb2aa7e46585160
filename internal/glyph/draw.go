package glyph

import (
	"math"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"

	"glyphmap/internal/dataset"
	"glyphmap/internal/spatial"
)

// Frame carries the per-pass context of a draw.
type Frame struct {
	// Origin is the world pixel of the screen's top-left corner.
	Origin   r2.Point
	MaxCount int
	Stats    map[string]dataset.FieldStats
}

// chart is the signature shared by the draw routines.
type chart func(s Surface, c *spatial.Cell, cfg Config, center r2.Point, size float64, f Frame)

var routines = map[Kind]chart{
	Bar:  drawBar,
	Pie:  drawPie,
	Line: drawLine,
	Text: drawText,
}

// DrawSnapshot draws every cell of snap and returns the number drawn.
func DrawSnapshot(s Surface, snap *spatial.Snapshot, cfg Config, f Frame) int {
	if f.MaxCount == 0 {
		f.MaxCount = snap.MaxCount()
	}
	n := 0
	for _, c := range snap.Cells() {
		Draw(s, c, cfg, f)
		n++
	}
	return n
}

// Draw fills the cell background, outlines it and draws its chart.
func Draw(s Surface, c *spatial.Cell, cfg Config, f Frame) {
	boundary := make([]r2.Point, len(c.Boundary))
	for i, p := range c.Boundary {
		boundary[i] = p.Sub(f.Origin)
	}
	if len(boundary) > 2 {
		if !cfg.NoBackground {
			s.FillPath(boundary, Ramp(c.Count, f.MaxCount))
		}
		s.StrokePath(boundary, true, outline)
	}

	center := c.Center.Sub(f.Origin)
	size := c.Bounds().Size()
	side := math.Min(size.X, size.Y) * 0.7
	draw, ok := routines[cfg.Kind]
	if !ok {
		draw = drawText
	}
	draw(s, c, cfg, center, side, f)
}

// series flattens the configured fields of an aggregate into labelled
// values. A frequency map contributes one entry per category.
func series(c *spatial.Cell, fields []string) (labels []string, vals []float64) {
	for _, field := range fields {
		switch v := c.Aggregate[field].(type) {
		case map[string]int:
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				labels = append(labels, k)
				vals = append(vals, float64(v[k]))
			}
		default:
			if n, ok := dataset.ToNumber(v); ok {
				labels = append(labels, field)
				vals = append(vals, n)
			}
		}
	}
	if len(vals) == 0 {
		return []string{"count"}, []float64{float64(c.Count)}
	}
	return labels, vals
}

func drawBar(s Surface, c *spatial.Cell, cfg Config, center r2.Point, size float64, f Frame) {
	labels, vals := series(c, cfg.Fields)
	hi := cfg.MaxValue
	if hi <= 0 {
		for i, v := range vals {
			if st, ok := f.Stats[labels[i]]; ok && st.Max > hi {
				hi = st.Max
			}
			hi = math.Max(hi, v)
		}
	}
	if hi <= 0 {
		return
	}
	lo := center.Sub(r2.Point{X: size / 2, Y: size / 2})
	w := size / float64(len(vals))
	for i, v := range vals {
		h := size * math.Max(0, math.Min(1, v/hi))
		r := r2.RectFromPoints(
			r2.Point{X: lo.X + float64(i)*w, Y: lo.Y + size - h},
			r2.Point{X: lo.X + float64(i+1)*w, Y: lo.Y + size},
		)
		col := cfg.foreground()
		if len(vals) > 1 {
			col = PaletteColor(i)
		}
		s.FillRect(r, col)
	}
	s.StrokeRect(r2.RectFromPoints(lo, lo.Add(r2.Point{X: size, Y: size})), outline)
}

func drawPie(s Surface, c *spatial.Cell, cfg Config, center r2.Point, size float64, _ Frame) {
	_, vals := series(c, cfg.Fields)
	total := 0.0
	for _, v := range vals {
		total += math.Max(0, v)
	}
	r := size / 2
	if total <= 0 || r <= 0 {
		return
	}
	start := -math.Pi / 2
	for i, v := range vals {
		if v <= 0 {
			continue
		}
		end := start + 2*math.Pi*v/total
		s.FillArc(center, r, start, end, PaletteColor(i))
		start = end
	}
	s.StrokeArc(center, r, 0, 2*math.Pi, outline)
}

// lineTolerance is the simplification tolerance in pixels.
const lineTolerance = 0.5

func drawLine(s Surface, c *spatial.Cell, cfg Config, center r2.Point, size float64, _ Frame) {
	_, vals := series(c, cfg.Fields)
	if len(vals) < 2 {
		drawText(s, c, cfg, center, size, Frame{})
		return
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	span := hi - lo
	origin := center.Sub(r2.Point{X: size / 2, Y: size / 2})
	ls := make(orb.LineString, len(vals))
	for i, v := range vals {
		y := 0.5
		if span > 0 {
			y = (v - lo) / span
		}
		ls[i] = orb.Point{
			origin.X + size*float64(i)/float64(len(vals)-1),
			origin.Y + size*(1-y),
		}
	}
	ls = simplify.DouglasPeucker(lineTolerance).LineString(ls)
	pts := make([]r2.Point, len(ls))
	for i, p := range ls {
		pts[i] = r2.Point{X: p[0], Y: p[1]}
	}
	s.StrokePath(pts, false, cfg.foreground())
}

func drawText(s Surface, c *spatial.Cell, cfg Config, center r2.Point, size float64, _ Frame) {
	label := Label(c, cfg.Fields)
	label = Truncate(s, label, size)
	if label == "" {
		return
	}
	w := s.MeasureText(label)
	s.Text(center.Sub(r2.Point{X: w / 2}), label, glyphFg)
}

// Label is the short text form of a cell: the first configured field's
// aggregate, or the count.
func Label(c *spatial.Cell, fields []string) string {
	for _, f := range fields {
		v, ok := c.Aggregate[f]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case float64:
			return formatShort(t)
		case map[string]int:
			return topCategory(t)
		}
		return dataset.FormatValue(v)
	}
	return formatShort(float64(c.Count))
}

func formatShort(v float64) string {
	switch {
	case math.Abs(v) >= 1e6:
		return dataset.FormatValue(math.Round(v/1e5)/10) + "M"
	case math.Abs(v) >= 1e4:
		return dataset.FormatValue(math.Round(v/1e2)/10) + "k"
	case v == math.Trunc(v):
		return dataset.FormatValue(v)
	}
	return dataset.FormatValue(math.Round(v*100) / 100)
}

// topCategory returns the most frequent key, ties broken alphabetically.
func topCategory(m map[string]int) string {
	best, bestN := "", -1
	for k, n := range m {
		if n > bestN || (n == bestN && k < best) {
			best, bestN = k, n
		}
	}
	return best
}

// Truncate shortens label with a trailing "…" until it measures at most
// width. An empty string is returned when not even one rune fits.
func Truncate(s Surface, label string, width float64) string {
	if s.MeasureText(label) <= width {
		return label
	}
	r := []rune(label)
	for n := len(r) - 1; n > 0; n-- {
		t := string(r[:n]) + "…"
		if s.MeasureText(t) <= width {
			return t
		}
	}
	return ""
}
