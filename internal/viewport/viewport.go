// Package viewport converts between ground coordinates and the pixel space
// the grid discretizers work in, by delegating to a host map viewport.
package viewport

import (
	"errors"
	"math"

	"github.com/golang/geo/r2"
)

// DegreesPerMeter is the fixed equatorial approximation used for scale
// conversions.
const DegreesPerMeter = 1 / 111320.0

// ErrViewportUnavailable reports that no host viewport is attached yet.
var ErrViewportUnavailable = errors.New("viewport: not attached")

// LatLng is a ground coordinate in decimal degrees.
type LatLng struct {
	Lat float64
	Lng float64
}

// Viewport is the host map: a projection at the current zoom plus the
// container's pixel size. Container pixels have (0,0) at the top-left.
type Viewport interface {
	Zoom() int
	// Project maps a ground coordinate to container pixels.
	Project(LatLng) r2.Point
	// Unproject maps container pixels to a ground coordinate.
	Unproject(r2.Point) LatLng
	// Size is the container size in pixels.
	Size() r2.Point
	// Origin is the world-pixel position of the container's top-left corner
	// at the current zoom.
	Origin() r2.Point
}

// GroundBounds is a lat/lng rectangle.
type GroundBounds struct {
	South float64
	West  float64
	North float64
	East  float64
}

// Contains reports whether ll lies inside b, edges included.
func (b GroundBounds) Contains(ll LatLng) bool {
	return ll.Lat >= b.South && ll.Lat <= b.North && ll.Lng >= b.West && ll.Lng <= b.East
}

// Extend grows b to include ll. The zero GroundBounds is treated as empty
// only by callers that track emptiness themselves.
func (b GroundBounds) Extend(ll LatLng) GroundBounds {
	return GroundBounds{
		South: math.Min(b.South, ll.Lat),
		West:  math.Min(b.West, ll.Lng),
		North: math.Max(b.North, ll.Lat),
		East:  math.Max(b.East, ll.Lng),
	}
}

// BoundsOf returns the smallest GroundBounds containing every point.
func BoundsOf(pts ...LatLng) GroundBounds {
	if len(pts) == 0 {
		return GroundBounds{}
	}
	b := GroundBounds{South: pts[0].Lat, North: pts[0].Lat, West: pts[0].Lng, East: pts[0].Lng}
	for _, p := range pts[1:] {
		b = b.Extend(p)
	}
	return b
}

// ScreenBounds is a pixel rectangle given by its northwest and southeast
// corners.
type ScreenBounds struct {
	NW     r2.Point
	SE     r2.Point
	Width  float64
	Height float64
}

// Rect returns the bounds as a normalised r2.Rect.
func (s ScreenBounds) Rect() r2.Rect {
	return r2.RectFromPoints(s.NW, s.SE)
}

func screenBounds(nw, se r2.Point) ScreenBounds {
	return ScreenBounds{NW: nw, SE: se, Width: se.X - nw.X, Height: se.Y - nw.Y}
}
