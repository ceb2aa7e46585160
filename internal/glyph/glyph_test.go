package glyph

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glyphmap/internal/dataset"
	"glyphmap/internal/grid"
	"glyphmap/internal/spatial"
)

type op struct {
	name string
	rect r2.Rect
	pts  []r2.Point
	text string
	col  colorful.Color
	a, b float64
}

// recorder is a Surface that logs calls. Text measures one unit per rune.
type recorder struct{ ops []op }

func (r *recorder) FillRect(rc r2.Rect, c colorful.Color) {
	r.ops = append(r.ops, op{name: "fillRect", rect: rc, col: c})
}
func (r *recorder) StrokeRect(rc r2.Rect, c colorful.Color) {
	r.ops = append(r.ops, op{name: "strokeRect", rect: rc, col: c})
}
func (r *recorder) FillArc(p r2.Point, rad, a, b float64, c colorful.Color) {
	r.ops = append(r.ops, op{name: "fillArc", pts: []r2.Point{p}, a: a, b: b, col: c})
}
func (r *recorder) StrokeArc(p r2.Point, rad, a, b float64, c colorful.Color) {
	r.ops = append(r.ops, op{name: "strokeArc", pts: []r2.Point{p}, a: a, b: b, col: c})
}
func (r *recorder) FillPath(pts []r2.Point, c colorful.Color) {
	r.ops = append(r.ops, op{name: "fillPath", pts: pts, col: c})
}
func (r *recorder) StrokePath(pts []r2.Point, closed bool, c colorful.Color) {
	name := "strokePath"
	if closed {
		name = "strokeClosed"
	}
	r.ops = append(r.ops, op{name: name, pts: pts, col: c})
}
func (r *recorder) Text(p r2.Point, s string, c colorful.Color) {
	r.ops = append(r.ops, op{name: "text", pts: []r2.Point{p}, text: s, col: c})
}
func (r *recorder) MeasureText(s string) float64 { return float64(len([]rune(s))) }

func (r *recorder) named(name string) []op {
	var out []op
	for _, o := range r.ops {
		if o.name == name {
			out = append(out, o)
		}
	}
	return out
}

func squareCell(count int, agg map[string]any) *spatial.Cell {
	d := grid.New(grid.TypeSquare, 30)
	id := grid.CellID{Col: 2, Row: 3}
	return &spatial.Cell{ID: id, Center: d.Center(id), Boundary: d.Boundary(id, 0), Count: count, Aggregate: agg}
}

func TestSuggest(t *testing.T) {
	assert.Equal(t, Bar, Suggest(dataset.Numeric))
	assert.Equal(t, Pie, Suggest(dataset.Nominal))
	assert.Equal(t, Bar, Suggest(dataset.Ordinal))
	assert.Equal(t, Line, Suggest(dataset.Temporal))
	assert.Equal(t, Text, Suggest(dataset.Unknown))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" PIE ")
	require.NoError(t, err)
	assert.Equal(t, Pie, k)
	k, err = ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, Text, k)
	_, err = ParseKind("radar")
	assert.Error(t, err)
}

func TestDrawTranslatesToScreen(t *testing.T) {
	r := &recorder{}
	c := squareCell(4, nil)
	Draw(r, c, Config{Kind: Text}, Frame{Origin: r2.Point{X: 30, Y: 60}, MaxCount: 4})

	fill := r.named("fillPath")
	require.Len(t, fill, 1)
	assert.Equal(t, r2.Point{X: 30, Y: 30}, fill[0].pts[0])
	assert.Equal(t, Ramp(4, 4), fill[0].col)
	require.Len(t, r.named("strokeClosed"), 1)

	txt := r.named("text")
	require.Len(t, txt, 1)
	assert.Equal(t, "4", txt[0].text)
	// Centred: cell centre (75,105) minus origin, shifted by half the width.
	assert.Equal(t, r2.Point{X: 44.5, Y: 45}, txt[0].pts[0])
}

func TestDrawWithoutBackground(t *testing.T) {
	r := &recorder{}
	Draw(r, squareCell(1, nil), Config{Kind: Text, NoBackground: true}, Frame{})
	assert.Empty(t, r.named("fillPath"))
	assert.Len(t, r.named("strokeClosed"), 1)
}

func TestDrawBarScalesByGlobalMax(t *testing.T) {
	r := &recorder{}
	c := squareCell(2, map[string]any{"v": 5.0})
	stats := map[string]dataset.FieldStats{"v": {Max: 10}}
	Draw(r, c, Config{Kind: Bar, Fields: []string{"v"}}, Frame{Stats: stats})

	bars := r.named("fillRect")
	require.Len(t, bars, 1)
	side := 30 * 0.7
	assert.InDelta(t, side/2, bars[0].rect.Size().Y, 1e-9)
	assert.InDelta(t, side, bars[0].rect.Size().X, 1e-9)
	assert.Equal(t, accent, bars[0].col)
}

func TestDrawBarFrequencyUsesPalette(t *testing.T) {
	r := &recorder{}
	c := squareCell(3, map[string]any{"k": map[string]int{"b": 1, "a": 2}})
	Draw(r, c, Config{Kind: Bar, Fields: []string{"k"}, Color: "#ff0000"}, Frame{})

	bars := r.named("fillRect")
	require.Len(t, bars, 2)
	assert.Equal(t, PaletteColor(0), bars[0].col)
	assert.Greater(t, bars[0].rect.Size().Y, bars[1].rect.Size().Y, "a (2) is taller than b (1)")
}

func TestDrawPieCoversFullCircle(t *testing.T) {
	r := &recorder{}
	c := squareCell(4, map[string]any{"k": map[string]int{"x": 1, "y": 3}})
	Draw(r, c, Config{Kind: Pie, Fields: []string{"k"}}, Frame{})

	arcs := r.named("fillArc")
	require.Len(t, arcs, 2)
	assert.InDelta(t, -math.Pi/2, arcs[0].a, 1e-9)
	assert.InDelta(t, 2*math.Pi/4, arcs[0].b-arcs[0].a, 1e-9)
	assert.InDelta(t, 3*math.Pi/2, arcs[1].b, 1e-9)
}

func TestDrawLineSimplifiesCollinearPoints(t *testing.T) {
	r := &recorder{}
	c := squareCell(3, map[string]any{"a": 1.0, "b": 2.0, "c": 3.0})
	Draw(r, c, Config{Kind: Line, Fields: []string{"a", "b", "c"}, NoBackground: true}, Frame{})

	lines := r.named("strokePath")
	require.Len(t, lines, 1)
	assert.Len(t, lines[0].pts, 2)
}

func TestDrawLineFallsBackToText(t *testing.T) {
	r := &recorder{}
	Draw(r, squareCell(7, map[string]any{"a": 1.5}), Config{Kind: Line, Fields: []string{"a"}}, Frame{})
	assert.Empty(t, r.named("strokePath"))
	require.Len(t, r.named("text"), 1)
	assert.Equal(t, "1.5", r.named("text")[0].text)
}

func TestLabel(t *testing.T) {
	c := squareCell(12345, map[string]any{"f": map[string]int{"b": 2, "a": 2, "c": 1}, "n": 2.3456})
	assert.Equal(t, "a", Label(c, []string{"f"}))
	assert.Equal(t, "2.35", Label(c, []string{"missing", "n"}))
	assert.Equal(t, "12.3k", Label(c, nil))
}

func TestTruncate(t *testing.T) {
	r := &recorder{}
	assert.Equal(t, "short", Truncate(r, "short", 10))
	assert.Equal(t, "trun…", Truncate(r, "truncated", 5))
	assert.Equal(t, "", Truncate(r, "abc", 1))
}

func TestDrawSnapshot(t *testing.T) {
	r := &recorder{}
	n := DrawSnapshot(r, nil, Config{}, Frame{})
	assert.Zero(t, n)
	assert.Empty(t, r.ops)
}

func TestRamp(t *testing.T) {
	assert.Equal(t, rampLow, Ramp(3, 0))
	assert.Equal(t, Ramp(10, 10), Ramp(20, 10))
	assert.NotEqual(t, Ramp(1, 10), Ramp(9, 10))
}
