package tui

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glyphmap/internal/config"
	"glyphmap/internal/dataset"
	"glyphmap/internal/geom"
	"glyphmap/internal/glyph"
	"glyphmap/internal/grid"
	"glyphmap/internal/spatial"
	"glyphmap/internal/viewport"
)

const csvText = `lat,lng,kind,score
47.5000,19.0500,cafe,4
47.5001,19.0501,bar,2
47.5001,19.0500,cafe,3
`

func key(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func send(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func records(t *testing.T) []dataset.Record {
	t.Helper()
	recs, err := dataset.NewProcessor(nil).LoadData(context.Background(), csvText, dataset.LoadOptions{})
	require.NoError(t, err)
	return recs
}

func loadedModel(t *testing.T) Model {
	t.Helper()
	m := send(New(config.Default()), tea.WindowSizeMsg{Width: 80, Height: 24})
	m = send(m, loadedMsg{paths: []string{"/tmp/cafes.csv"}, records: records(t)})
	require.True(t, m.loaded)
	t.Cleanup(m.layer.Close)
	return m
}

func drain(ch chan *spatial.Snapshot) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func TestSetPixel(t *testing.T) {
	c := newCanvas(2, 1)
	assert.True(t, c.buf.setPixel(0, 0))
	assert.True(t, c.buf.setPixel(3, 3))
	assert.False(t, c.buf.setPixel(4, 0))
	assert.False(t, c.buf.setPixel(-1, 0))
	assert.Equal(t, []string{"⠁⢀"}, c.plain())
}

func TestStrokePath(t *testing.T) {
	c := newCanvas(3, 1)
	c.StrokePath([]r2.Point{{X: 0, Y: 0}, {X: 3, Y: 0}}, false, hoverCol)
	assert.Equal(t, []string{"⠉⠉ "}, c.plain())
	assert.True(t, c.hasF[0][0])
	assert.False(t, c.hasF[0][2])
	assert.Contains(t, c.String(), "⠉")
}

func TestFillPathSetsCellBackground(t *testing.T) {
	c := newCanvas(4, 3)
	c.FillPath([]r2.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 8}, {X: 0, Y: 8}}, hoverCol)
	var filled []grid.CellID
	for y := range c.hasB {
		for x, ok := range c.hasB[y] {
			if ok {
				filled = append(filled, grid.CellID{Col: x, Row: y})
			}
		}
	}
	assert.Equal(t, []grid.CellID{{Col: 0, Row: 0}, {Col: 1, Row: 0}, {Col: 0, Row: 1}, {Col: 1, Row: 1}}, filled)
	assert.Equal(t, []string{"    ", "    ", "    "}, c.plain(), "fills colour cells without setting dots")
}

func TestFillArcHalfSweep(t *testing.T) {
	c := newCanvas(4, 2)
	c.FillArc(r2.Point{X: 4, Y: 4}, 3, 0, math.Pi, hoverCol)
	for _, mask := range c.buf.m[0] {
		assert.Zero(t, mask, "upper half stays empty")
	}
	assert.NotEqual(t, "    ", c.plain()[1])
}

func TestInSweep(t *testing.T) {
	tests := []struct {
		a, start, end float64
		want          bool
	}{
		{0, -math.Pi / 2, math.Pi / 2, true},
		{math.Pi, -math.Pi / 2, math.Pi / 2, false},
		{-3 * math.Pi / 4, math.Pi, 3 * math.Pi / 2, true},
		{1, 0, 2 * math.Pi, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, inSweep(tt.a, tt.start, tt.end), "%v in [%v,%v]", tt.a, tt.start, tt.end)
	}
}

func TestTextOverridesBraille(t *testing.T) {
	c := newCanvas(4, 2)
	c.FillRect(r2.RectFromPoints(r2.Point{}, r2.Point{X: 8, Y: 8}), hoverCol)
	c.Text(r2.Point{X: 2, Y: 5}, "ab", hoverCol)
	assert.Equal(t, []string{"⣿⣿⣿⣿", "⣿ab⣿"}, c.plain())
	assert.Equal(t, 6.0, c.MeasureText("abc"))
}

func TestResizeSizesViewportInDots(t *testing.T) {
	m := send(New(config.Default()), tea.WindowSizeMsg{Width: 80, Height: 24})
	defer m.layer.Close()
	assert.Equal(t, r2.Point{X: 160, Y: 84}, m.view.Size())

	m = send(m, tea.KeyMsg{Type: tea.KeyTab})
	require.True(t, m.showSidebar)
	assert.Equal(t, r2.Point{X: 102, Y: 84}, m.view.Size())
	m = send(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, r2.Point{X: 160, Y: 84}, m.view.Size())
}

func TestLoadFitsAndSelectsField(t *testing.T) {
	m := loadedModel(t)
	assert.Equal(t, []string{"kind", "score"}, m.fields)
	assert.Equal(t, []string{"kind"}, m.layer.SelectedFields())
	assert.Equal(t, maxFitZoom, m.view.Zoom())
	assert.Contains(t, m.status, "records=3")
	assert.Positive(t, m.layer.Snapshot().Len())
	assert.Equal(t, 3, m.layer.Snapshot().Total())

	m = send(m, key("f"))
	assert.Equal(t, []string{"score"}, m.layer.SelectedFields())
	assert.Equal(t, dataset.Mean, m.layer.AggregationConfig()["score"])
}

func TestLoadFitsVectorExtent(t *testing.T) {
	m := send(New(config.Default()), tea.WindowSizeMsg{Width: 80, Height: 24})
	defer m.layer.Close()
	ext := geom.BBox{MinX: 0, MinY: 10, MaxX: 40, MaxY: 50}
	m = send(m, loadedMsg{paths: []string{"roads.geojson"}, records: records(t), extent: &ext})

	assert.Less(t, m.view.Zoom(), 6)
	size := m.view.Size()
	for _, lng := range []float64{ext.MinX, ext.MaxX} {
		p := m.view.Project(viewport.LatLng{Lat: 30, Lng: lng})
		assert.GreaterOrEqual(t, p.X, 0.0)
		assert.LessOrEqual(t, p.X, size.X)
	}
	// The csv points at 19.05E lie inside the extent, so it alone decides the fit.
	assert.InDelta(t, 20.0, m.view.Unproject(size.Mul(0.5)).Lng, 1e-6)
}

func TestConfiguredFieldIsSelectedFirst(t *testing.T) {
	cfg := config.Default()
	cfg.Data.Fields = []string{"score"}
	m := send(New(cfg), tea.WindowSizeMsg{Width: 80, Height: 24})
	defer m.layer.Close()
	m = send(m, loadedMsg{paths: []string{"x.csv"}, records: records(t)})
	assert.Equal(t, []string{"score"}, m.layer.SelectedFields())
}

func TestLoadErrorKeepsData(t *testing.T) {
	m := loadedModel(t)
	m = send(m, loadedMsg{paths: []string{"bad.csv"}, err: assert.AnError})
	assert.Contains(t, m.status, "load error")
	assert.Len(t, m.layer.Records(), 3)
}

func TestGridAndChartKeys(t *testing.T) {
	m := loadedModel(t)
	m = send(m, key("g"))
	assert.Equal(t, grid.TypeHexagon, m.layer.Engine().Options().GridType)
	m = send(m, key("g"))
	assert.Equal(t, grid.TypeSquare, m.layer.Engine().Options().GridType)

	assert.Equal(t, glyph.Pie, m.layer.VisualizationConfig().Kind, "nominal field suggests pie")
	m = send(m, key("c"))
	assert.Equal(t, glyph.Bar, m.layer.VisualizationConfig().Kind)
	assert.Equal(t, glyph.Kind(""), nextChart(glyph.Text))
}

func TestCellSizeKeys(t *testing.T) {
	m := loadedModel(t)
	size := m.layer.Engine().Options().CellSize
	m = send(m, key("]"))
	assert.Equal(t, size*2, m.layer.Engine().Options().CellSize)
	assert.Equal(t, size*2, m.layer.Snapshot().Size)

	for range 10 {
		m = send(m, key("["))
	}
	assert.Equal(t, float64(minCellSize), m.layer.Engine().Options().CellSize)
	assert.Contains(t, m.status, "cell size: 4")
}

func TestPanMovesViewAndSettles(t *testing.T) {
	m := loadedModel(t)
	before := m.view.Origin()
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.InDelta(t, 20, m.view.Origin().X-before.X, 1e-3)

	passes := func() int {
		st := m.layer.CacheStats()
		return st.Hits + st.Misses
	}
	n := passes()
	m = send(m, settleMsg{seq: m.panSeq - 1})
	assert.Equal(t, n, passes(), "stale settle is ignored")
	m = send(m, settleMsg{seq: m.panSeq})
	assert.Equal(t, n+1, passes())
}

func TestZoomKeys(t *testing.T) {
	m := loadedModel(t)
	m = send(m, key("-"))
	assert.Equal(t, maxFitZoom-1, m.view.Zoom())
	m = send(m, key("+"), key("+"))
	assert.Equal(t, maxFitZoom+1, m.view.Zoom())
}

func TestModeToggleRunsDynamicPass(t *testing.T) {
	m := loadedModel(t)
	drain(m.passes)
	m = send(m, key("m"))
	require.Equal(t, spatial.Dynamic, m.layer.Engine().Mode())

	select {
	case snap := <-m.passes:
		assert.Equal(t, spatial.Dynamic, snap.Mode)
		assert.Equal(t, 3, snap.Total())
		m = send(m, passMsg{snap: snap})
		assert.Contains(t, m.status, "3 records")
	case <-time.After(2 * time.Second):
		t.Fatal("no dynamic pass")
	}
	m = send(m, key("m"))
	assert.Equal(t, spatial.Static, m.layer.Engine().Mode())
}

func hoverFirstCell(t *testing.T, m Model) (Model, *spatial.Cell) {
	t.Helper()
	cells := m.layer.Snapshot().Cells()
	require.NotEmpty(t, cells)
	c := cells[0]
	p := m.layer.Engine().Transformer().FromWorld(c.Center)
	x, y, _, _ := m.mapRect()
	m = send(m, tea.MouseMsg{X: x + int(p.X/2), Y: y + int(p.Y/4), Action: tea.MouseActionMotion})
	require.True(t, m.hovering)
	return m, c
}

func TestHoverShowsCellAttributes(t *testing.T) {
	m := loadedModel(t)
	m, c := hoverFirstCell(t, m)
	assert.True(t, m.hoverHasGeo)
	assert.InDelta(t, 47.5, m.hoverLat, 0.01)
	assert.InDelta(t, 19.05, m.hoverLon, 0.01)

	got, ok := m.hoveredCell()
	require.True(t, ok)
	assert.Equal(t, c.ID, got.ID)

	m = send(m, key("a"))
	require.True(t, m.showAttrs)
	rows := m.tbl.Rows()
	require.GreaterOrEqual(t, len(rows), 3)
	assert.Equal(t, "records", rows[1][0])
	assert.Equal(t, c.ID.String(), rows[0][2])

	m = send(m, key("i"))
	assert.Contains(t, m.inspectPopup, "cell: "+c.ID.String())
	assert.Contains(t, m.inspectPopup, "cafes.csv")
}

func TestAttributesFallBackToSchema(t *testing.T) {
	m := loadedModel(t)
	m = send(m, key("a"))
	require.True(t, m.showAttrs)
	var names []string
	for _, r := range m.tbl.Rows() {
		names = append(names, r[0])
	}
	assert.Equal(t, []string{"lat", "lng", "kind", "score"}, names)
	assert.Equal(t, "numeric", m.tbl.Rows()[3][1])

	m = send(m, tea.MouseMsg{X: 0, Y: 0, Action: tea.MouseActionMotion})
	assert.False(t, m.hovering)
}

func TestPasteLoadsCSV(t *testing.T) {
	m := send(New(config.Default()), tea.WindowSizeMsg{Width: 80, Height: 24})
	defer m.layer.Close()
	m = send(m, key("p"))
	require.True(t, m.pasteMode)
	m.ta.SetValue(csvText)
	m = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.pasteMode)
	assert.Len(t, m.layer.Records(), 3)
	assert.Contains(t, m.status, "pasted CSV")
}

func TestFormatAggregate(t *testing.T) {
	assert.Equal(t, "cafe:2 bar:1 pub:1", formatAggregate(map[string]int{"pub": 1, "cafe": 2, "bar": 1}))
	assert.Equal(t, "3.14159", formatAggregate(math.Pi))
	assert.Equal(t, "x", formatAggregate("x"))
	assert.Equal(t, "", formatAggregate(nil))
}

func TestView(t *testing.T) {
	m := New(config.Default())
	defer m.layer.Close()
	assert.Empty(t, m.View())

	m = send(m, tea.WindowSizeMsg{Width: 80, Height: 24})
	v := m.View()
	assert.Contains(t, v, "glyphmap")
	assert.Contains(t, v, "square")
	assert.Contains(t, v, "no data")

	m = send(m, loadedMsg{paths: []string{"x.csv"}, records: records(t)})
	v = m.View()
	assert.NotContains(t, v, "no data")
	assert.Contains(t, v, "field kind")
	assert.LessOrEqual(t, strings.Count(v, "\n"), 23)
}

func TestMapRendersCells(t *testing.T) {
	m := loadedModel(t)
	_, _, w, h := m.mapRect()
	c := m.paint(w, h)
	assert.Equal(t, m.layer.Snapshot().Len(), c.drawn)
	assert.NotEqual(t, strings.Repeat(" ", w*h), strings.Join(c.plain(), ""))
}
