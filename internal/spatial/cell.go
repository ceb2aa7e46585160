package spatial

import (
	"sort"

	"github.com/golang/geo/r2"

	"glyphmap/internal/dataset"
	"glyphmap/internal/grid"
)

// Cell is one occupied grid cell of a pass. Geometry is in world pixels at
// the zoom of the pass; subtract the view origin to get screen pixels.
type Cell struct {
	ID         grid.CellID
	Center     r2.Point
	Boundary   []r2.Point
	Count      int
	Attributes []dataset.Record
	// Aggregate holds one result per configured field. Nil when no
	// aggregation is configured or the aggregation failed.
	Aggregate map[string]any
	// Custom is scratch space for an AggregateFunc.
	Custom map[string]any
}

// Bounds returns the pixel bounding box of the cell boundary.
func (c *Cell) Bounds() r2.Rect {
	if len(c.Boundary) == 0 {
		return r2.RectFromPoints(c.Center)
	}
	return r2.RectFromPoints(c.Boundary...)
}

// Snapshot is the immutable result of one pass. Cells are ordered by row,
// then column.
type Snapshot struct {
	Mode     Mode
	GridType grid.Type
	Size     float64
	Zoom     int
	cells    []*Cell
	byID     map[grid.CellID]*Cell
	maxCount int
}

func newSnapshot(mode Mode, d grid.Discretizer, zoom int, cells []*Cell) *Snapshot {
	sort.Slice(cells, func(i, j int) bool {
		a, b := cells[i].ID, cells[j].ID
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Col < b.Col
	})
	s := &Snapshot{
		Mode:  mode,
		Zoom:  zoom,
		cells: cells,
		byID:  make(map[grid.CellID]*Cell, len(cells)),
	}
	if d != nil {
		s.GridType, s.Size = d.Type(), d.Size()
	}
	for _, c := range cells {
		s.byID[c.ID] = c
		s.maxCount = max(s.maxCount, c.Count)
	}
	return s
}

func emptySnapshot(mode Mode) *Snapshot {
	return newSnapshot(mode, nil, 0, nil)
}

// Cells returns the occupied cells. Callers must not modify them.
func (s *Snapshot) Cells() []*Cell {
	if s == nil {
		return nil
	}
	return s.cells
}

// Len is the number of occupied cells.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.cells)
}

// Cell looks a cell up by id.
func (s *Snapshot) Cell(id grid.CellID) (*Cell, bool) {
	if s == nil {
		return nil, false
	}
	c, ok := s.byID[id]
	return c, ok
}

// MaxCount is the largest cell count, used to scale colour ramps.
func (s *Snapshot) MaxCount() int {
	if s == nil {
		return 0
	}
	return s.maxCount
}

// Total is the number of records across all cells.
func (s *Snapshot) Total() int {
	n := 0
	for _, c := range s.Cells() {
		n += c.Count
	}
	return n
}
