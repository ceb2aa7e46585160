// Package geom reads vector sources (GeoJSON, KML, WKT) into orb feature
// collections.
package geom

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// BBox is a lon/lat extent.
type BBox struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Union returns the smallest bbox holding b and o.
func (b BBox) Union(o BBox) BBox {
	return BBox{
		MinX: min(b.MinX, o.MinX),
		MinY: min(b.MinY, o.MinY),
		MaxX: max(b.MaxX, o.MaxX),
		MaxY: max(b.MaxY, o.MaxY),
	}
}

func fromBound(b orb.Bound) BBox {
	return BBox{MinX: b.Min.Lon(), MinY: b.Min.Lat(), MaxX: b.Max.Lon(), MaxY: b.Max.Lat()}
}

// Extent returns the bbox of every geometry in fc. ok is false when fc has
// no geometry.
func Extent(fc *geojson.FeatureCollection) (bbox BBox, ok bool) {
	if fc == nil {
		return BBox{}, false
	}
	var b orb.Bound
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		if !ok {
			b, ok = f.Geometry.Bound(), true
			continue
		}
		b = b.Union(f.Geometry.Bound())
	}
	if !ok {
		return BBox{}, false
	}
	return fromBound(b), true
}

// Count returns the number of features carrying geometry.
func Count(fc *geojson.FeatureCollection) int {
	n := 0
	if fc == nil {
		return 0
	}
	for _, f := range fc.Features {
		if f != nil && f.Geometry != nil {
			n++
		}
	}
	return n
}
