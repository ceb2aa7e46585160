package grid

import (
	"math"

	"github.com/golang/geo/r2"
)

// hexParams is one derived hexagon parameter set. Radius and height are
// truncated so neighbouring hexes share edges exactly.
type hexParams struct {
	radius  float64
	width   float64
	height  float64
	side    float64
	corners [6]r2.Point // offsets from the center, clockwise from the left vertex
}

func deriveHex(size float64) hexParams {
	radius := math.Floor(size * 1.3 / 2)
	if radius < 0 {
		radius = 0
	}
	height := math.Trunc(radius * math.Sqrt(3))
	return hexParams{
		radius: radius,
		width:  radius * 2,
		height: height,
		side:   radius * 1.5,
		corners: [6]r2.Point{
			{X: -radius, Y: 0},
			{X: -radius / 2, Y: -height / 2},
			{X: radius / 2, Y: -height / 2},
			{X: radius, Y: 0},
			{X: radius / 2, Y: height / 2},
			{X: -radius / 2, Y: height / 2},
		},
	}
}

// HexGrid is a flat-topped hexagonal tessellation in offset coordinates.
// Odd columns sit half a cell height lower than even ones.
//
// Boundary memoises the parameter set of the most recently requested
// non-zero padding, so a HexGrid must not be shared between goroutines that
// draw with different paddings.
type HexGrid struct {
	size float64
	base hexParams

	padded      *hexParams
	paddedFor   float64
	derivations int
}

func NewHex(size float64) *HexGrid {
	base := deriveHex(size)
	if base.radius < 1 {
		base = deriveHex(2 / 1.3)
	}
	return &HexGrid{size: size, base: base}
}

func (g *HexGrid) Size() float64 { return g.size }
func (g *HexGrid) Type() Type    { return TypeHexagon }

// Radius, Height and Side expose the base geometry.
func (g *HexGrid) Radius() float64 { return g.base.radius }
func (g *HexGrid) Height() float64 { return g.base.height }
func (g *HexGrid) Side() float64   { return g.base.side }

// ColRow estimates the column from the horizontal spacing, the row from the
// parity-offset height, then corrects against the slanted left edge: points
// left of it belong to the previous column.
func (g *HexGrid) ColRow(x, y float64) CellID {
	p := &g.base
	ci := math.Floor(x / p.side)
	cx := x - p.side*ci
	col := int(ci)
	parity := mod2(col)

	ty := y - float64(parity)*p.height/2
	cj := math.Floor(ty / p.height)
	cy := ty - p.height*cj
	row := int(cj)

	if cx > math.Abs(p.radius/2-p.radius*cy/p.height) {
		return CellID{Col: col, Row: row}
	}
	row += parity
	if cy < p.height/2 {
		row--
	}
	return CellID{Col: col - 1, Row: row}
}

func (g *HexGrid) Center(id CellID) r2.Point {
	p := &g.base
	return r2.Point{
		X: float64(id.Col)*p.side + p.radius,
		Y: p.height*float64(2*id.Row+mod2(id.Col))/2 + p.height/2,
	}
}

// Boundary returns the six corners rounded to whole pixels.
func (g *HexGrid) Boundary(id CellID, padding float64) []r2.Point {
	p := g.params(padding)
	c := g.Center(id)
	out := make([]r2.Point, len(p.corners))
	for i, o := range p.corners {
		out[i] = r2.Point{X: math.Round(c.X + o.X), Y: math.Round(c.Y + o.Y)}
	}
	return out
}

func (g *HexGrid) params(padding float64) *hexParams {
	if padding == 0 {
		return &g.base
	}
	if g.padded == nil || g.paddedFor != padding {
		p := deriveHex(g.size - 2*padding)
		g.padded = &p
		g.paddedFor = padding
		g.derivations++
	}
	return g.padded
}

// CellRange covers bounds plus one ring of neighbours, since hexes overhang
// their column strip and their parity-offset row band.
func (g *HexGrid) CellRange(bounds r2.Rect) []CellID {
	if bounds.IsEmpty() {
		return nil
	}
	p := &g.base
	c0, c1 := floorDiv(bounds.X.Lo, p.side)-1, floorDiv(bounds.X.Hi, p.side)+1
	r0, r1 := floorDiv(bounds.Y.Lo, p.height)-1, floorDiv(bounds.Y.Hi, p.height)+1
	out := make([]CellID, 0, (c1-c0+1)*(r1-r0+1))
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			out = append(out, CellID{Col: col, Row: row})
		}
	}
	return out
}
