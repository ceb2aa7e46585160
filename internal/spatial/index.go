package spatial

import (
	"errors"
	"fmt"
	"math"

	"github.com/dhconnelly/rtreego"

	"glyphmap/internal/dataset"
	"glyphmap/internal/grid"
	"glyphmap/internal/viewport"
)

// SpatialIndexQueryError reports a failed index lookup for one cell. The
// cell is treated as empty.
type SpatialIndexQueryError struct {
	Cell grid.CellID
	Err  error
}

func (e *SpatialIndexQueryError) Error() string {
	return fmt.Sprintf("spatial: index query for cell %s: %v", e.Cell, e.Err)
}

func (e *SpatialIndexQueryError) Unwrap() error { return e.Err }

var errNoIndex = errors.New("index not built")

// pointEpsilon gives point entries a non-zero extent, which the R-tree
// requires.
const pointEpsilon = 1e-9

// indexedRecord wraps a record position for R-tree storage.
type indexedRecord struct {
	i    int
	rect rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (r *indexedRecord) Bounds() rtreego.Rect { return r.rect }

// index is an R-tree over located records keyed by (lng, lat).
type index struct {
	tree *rtreego.Rtree
	size int
}

func buildIndex(recs []dataset.Record) *index {
	tree := rtreego.NewTree(2, 25, 50)
	n := 0
	for i, r := range recs {
		if !r.Location.Valid {
			continue
		}
		pt := rtreego.Point{r.Location.Lng - pointEpsilon/2, r.Location.Lat - pointEpsilon/2}
		rect, err := rtreego.NewRect(pt, []float64{pointEpsilon, pointEpsilon})
		if err != nil {
			continue
		}
		tree.Insert(&indexedRecord{i: i, rect: rect})
		n++
	}
	return &index{tree: tree, size: n}
}

// search returns the positions of records inside b.
func (x *index) search(b viewport.GroundBounds) (ids []int, err error) {
	if x == nil || x.tree == nil {
		return nil, errNoIndex
	}
	defer func() {
		if r := recover(); r != nil {
			ids, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	w, h := b.East-b.West, b.North-b.South
	if math.IsNaN(w) || math.IsNaN(h) {
		return nil, errors.New("query bounds are NaN")
	}
	q, err := rtreego.NewRect(rtreego.Point{b.West, b.South}, []float64{w, h})
	if err != nil {
		return nil, err
	}
	for _, s := range x.tree.SearchIntersect(q) {
		ir, ok := s.(*indexedRecord)
		if !ok {
			return nil, fmt.Errorf("unexpected index entry %T", s)
		}
		ids = append(ids, ir.i)
	}
	return ids, nil
}
