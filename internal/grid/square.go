package grid

import "github.com/golang/geo/r2"

// SquareGrid is an axis-aligned square tessellation with side Size.
type SquareGrid struct {
	size float64
}

func NewSquare(size float64) *SquareGrid {
	return &SquareGrid{size: size}
}

func (g *SquareGrid) Size() float64 { return g.size }
func (g *SquareGrid) Type() Type    { return TypeSquare }

func (g *SquareGrid) ColRow(x, y float64) CellID {
	return CellID{Col: floorDiv(x, g.size), Row: floorDiv(y, g.size)}
}

func (g *SquareGrid) Center(id CellID) r2.Point {
	return r2.Point{
		X: float64(id.Col)*g.size + g.size/2,
		Y: float64(id.Row)*g.size + g.size/2,
	}
}

// Boundary returns the four corners clockwise from the top-left. Padding
// shrinks every side by 2*padding around the same center.
func (g *SquareGrid) Boundary(id CellID, padding float64) []r2.Point {
	c := g.Center(id)
	h := (g.size - 2*padding) / 2
	if h < 0 {
		h = 0
	}
	return []r2.Point{
		{X: c.X - h, Y: c.Y - h},
		{X: c.X + h, Y: c.Y - h},
		{X: c.X + h, Y: c.Y + h},
		{X: c.X - h, Y: c.Y + h},
	}
}

func (g *SquareGrid) CellRange(bounds r2.Rect) []CellID {
	if bounds.IsEmpty() {
		return nil
	}
	c0, c1 := floorDiv(bounds.X.Lo, g.size), floorDiv(bounds.X.Hi, g.size)
	r0, r1 := floorDiv(bounds.Y.Lo, g.size), floorDiv(bounds.Y.Hi, g.size)
	out := make([]CellID, 0, (c1-c0+1)*(r1-r0+1))
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			out = append(out, CellID{Col: col, Row: row})
		}
	}
	return out
}
