package grid

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want Type
		err  bool
	}{
		{"square", TypeSquare, false},
		{"Hexagon", TypeHexagon, false},
		{"hex", TypeHexagon, false},
		{"", TypeSquare, false},
		{"triangle", TypeSquare, true},
	}
	for _, tt := range tests {
		got, err := ParseType(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestCellIDString(t *testing.T) {
	assert.Equal(t, "3,-2", CellID{Col: 3, Row: -2}.String())
}

func TestRoundTrip(t *testing.T) {
	for _, d := range []Discretizer{New(TypeSquare, 30), New(TypeHexagon, 30), New(TypeHexagon, 17)} {
		for col := -6; col <= 6; col++ {
			for row := -6; row <= 6; row++ {
				id := CellID{Col: col, Row: row}
				c := d.Center(id)
				assert.Equal(t, id, d.ColRow(c.X, c.Y), "%s %v", d.Type(), id)
			}
		}
	}
}

func TestSquareColRow(t *testing.T) {
	g := NewSquare(30)
	assert.Equal(t, CellID{0, 0}, g.ColRow(0, 0))
	assert.Equal(t, CellID{0, 0}, g.ColRow(29.9, 29.9))
	assert.Equal(t, CellID{1, 0}, g.ColRow(30, 0))
	assert.Equal(t, CellID{-1, -1}, g.ColRow(-0.5, -0.5))
	assert.Equal(t, r2.Point{X: 45, Y: 75}, g.Center(CellID{1, 2}))
}

func TestSquareBoundary(t *testing.T) {
	g := NewSquare(30)
	id := CellID{Col: 2, Row: -1}
	c := g.Center(id)

	b := g.Boundary(id, 0)
	require.Len(t, b, 4)
	assert.Equal(t, r2.Point{X: c.X - 15, Y: c.Y - 15}, b[0])
	assert.Equal(t, r2.Point{X: c.X + 15, Y: c.Y + 15}, b[2])

	padded := g.Boundary(id, 3)
	require.Len(t, padded, 4)
	side := padded[1].X - padded[0].X
	assert.InDelta(t, 30-6, side, 1e-9)
	assert.InDelta(t, 30-6, padded[3].Y-padded[0].Y, 1e-9)
	mid := r2.Point{X: (padded[0].X + padded[2].X) / 2, Y: (padded[0].Y + padded[2].Y) / 2}
	assert.Equal(t, c, mid)
}

func TestSquareCellRange(t *testing.T) {
	g := NewSquare(10)
	ids := g.CellRange(r2.RectFromPoints(r2.Point{X: 0, Y: 0}, r2.Point{X: 25, Y: 15}))
	assert.Len(t, ids, 3*2)
	assert.Equal(t, CellID{0, 0}, ids[0])
	assert.Equal(t, CellID{2, 1}, ids[len(ids)-1])
}

func TestHexParameters(t *testing.T) {
	g := NewHex(30)
	assert.Equal(t, 19.0, g.Radius())
	assert.Equal(t, math.Trunc(19*math.Sqrt(3)), g.Height())
	assert.Equal(t, 28.5, g.Side())
}

func TestHexColumnOffset(t *testing.T) {
	g := NewHex(30)
	for col := -3; col < 3; col++ {
		a := g.Center(CellID{Col: col, Row: 0})
		b := g.Center(CellID{Col: col + 1, Row: 0})
		assert.InDelta(t, g.Height()/2, math.Abs(b.Y-a.Y), 1e-9, "col %d", col)
		assert.InDelta(t, g.Side(), b.X-a.X, 1e-9)
	}
}

// Every sample must resolve to a cell whose center is (within truncation
// slack) the nearest among that cell and its six neighbours.
func TestHexTilingCompleteness(t *testing.T) {
	g := NewHex(30)
	neighbours := func(id CellID) []CellID {
		p := mod2(id.Col)
		return []CellID{
			{id.Col, id.Row - 1}, {id.Col, id.Row + 1},
			{id.Col - 1, id.Row - 1 + p}, {id.Col - 1, id.Row + p},
			{id.Col + 1, id.Row - 1 + p}, {id.Col + 1, id.Row + p},
		}
	}
	dist := func(a r2.Point, x, y float64) float64 { return math.Hypot(a.X-x, a.Y-y) }

	for y := -100.0; y < 100; y += 1.7 {
		for x := -100.0; x < 100; x += 1.3 {
			id := g.ColRow(x, y)
			own := dist(g.Center(id), x, y)
			require.LessOrEqual(t, own, g.Radius()+1, "(%v,%v) -> %v", x, y, id)
			for _, n := range neighbours(id) {
				assert.LessOrEqual(t, own, dist(g.Center(n), x, y)+1.5, "(%v,%v) -> %v vs %v", x, y, id, n)
			}
		}
	}
}

func TestHexNeighbourCentersAreDistinct(t *testing.T) {
	g := NewHex(30)
	id := CellID{Col: 3, Row: 4}
	c := g.Center(id)
	seen := map[CellID]bool{}
	for _, a := range []float64{0, 60, 120, 180, 240, 300} {
		rad := (a + 30) * math.Pi / 180
		// step one apothem-and-a-bit out from the center across each edge
		d := g.Height()
		n := g.ColRow(c.X+d*math.Cos(rad), c.Y+d*math.Sin(rad))
		assert.NotEqual(t, id, n)
		seen[n] = true
	}
	assert.Len(t, seen, 6)
}

func TestHexBoundary(t *testing.T) {
	g := NewHex(30)
	id := CellID{Col: 1, Row: 1}
	c := g.Center(id)

	b := g.Boundary(id, 0)
	require.Len(t, b, 6)
	for _, p := range b {
		assert.Equal(t, math.Round(p.X), p.X)
		assert.Equal(t, math.Round(p.Y), p.Y)
	}
	assert.Equal(t, math.Round(c.X-g.Radius()), b[0].X)
	assert.Equal(t, math.Round(c.X+g.Radius()), b[3].X)
	assert.Equal(t, 0, g.derivations, "padding 0 must reuse the base parameters")

	padded := g.Boundary(id, 2)
	assert.Equal(t, 1, g.derivations)
	assert.Less(t, padded[3].X-padded[0].X, b[3].X-b[0].X)

	g.Boundary(CellID{Col: 5, Row: 5}, 2)
	assert.Equal(t, 1, g.derivations, "same padding is memoised")

	g.Boundary(id, 3)
	g.Boundary(id, 2)
	assert.Equal(t, 3, g.derivations, "only the most recent padding is kept")

	assert.Equal(t, b, g.Boundary(id, 0))
}

func TestHexCellRangeCoversBounds(t *testing.T) {
	g := NewHex(30)
	bounds := r2.RectFromPoints(r2.Point{X: 0, Y: 0}, r2.Point{X: 200, Y: 120})
	ids := map[CellID]bool{}
	for _, id := range g.CellRange(bounds) {
		ids[id] = true
	}
	for y := 0.0; y <= 120; y += 3 {
		for x := 0.0; x <= 200; x += 3 {
			assert.True(t, ids[g.ColRow(x, y)], "(%v,%v)", x, y)
		}
	}
}
