// Package grid tessellates the pixel plane into square or hexagonal cells.
//
// Discretizers are pure geometry: they map a continuous pixel coordinate to a
// discrete cell id and a cell id back to its center and boundary polygon.
// Coordinates are world pixels with y growing downward.
package grid

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/r2"
)

// Type selects the tessellation.
type Type int

const (
	TypeSquare Type = iota
	TypeHexagon
)

func (t Type) String() string {
	switch t {
	case TypeSquare:
		return "square"
	case TypeHexagon:
		return "hexagon"
	}
	return "Type(" + strconv.Itoa(int(t)) + ")"
}

// ParseType accepts "square" or "hexagon" (also "hex"), case-insensitive.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "square", "":
		return TypeSquare, nil
	case "hexagon", "hex":
		return TypeHexagon, nil
	}
	return TypeSquare, fmt.Errorf("grid: unknown grid type %q", s)
}

// CellID identifies one cell of a tessellation.
type CellID struct {
	Col int
	Row int
}

// String returns the "col,row" key form.
func (id CellID) String() string {
	return strconv.Itoa(id.Col) + "," + strconv.Itoa(id.Row)
}

// Discretizer maps pixel coordinates to cells and back.
type Discretizer interface {
	// ColRow returns the cell containing (x, y).
	ColRow(x, y float64) CellID
	// Center returns the pixel center of a cell.
	Center(id CellID) r2.Point
	// Boundary returns the cell polygon shrunk by padding, implicitly closed.
	Boundary(id CellID, padding float64) []r2.Point
	// CellRange lists every cell that may intersect bounds, row-major.
	CellRange(bounds r2.Rect) []CellID
	Size() float64
	Type() Type
}

// New returns the discretizer for t at the given target cell size.
// Sizes below one pixel are clamped to one.
func New(t Type, size float64) Discretizer {
	if size < 1 {
		size = 1
	}
	if t == TypeHexagon {
		return NewHex(size)
	}
	return NewSquare(size)
}

func floorDiv(v, d float64) int {
	return int(math.Floor(v / d))
}

// mod2 is the non-negative parity of v.
func mod2(v int) int {
	return ((v % 2) + 2) % 2
}
