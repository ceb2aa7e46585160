package viewport

import (
	"math"

	"github.com/golang/geo/r2"
)

// Transformer wraps a host Viewport. Every call delegates to the viewport's
// state at call time; nothing is cached. The viewport is fixed at
// construction. With a nil viewport all operations return zero values.
type Transformer struct {
	vp Viewport
}

func NewTransformer(vp Viewport) *Transformer {
	return &Transformer{vp: vp}
}

// Check returns ErrViewportUnavailable when no viewport is attached.
func (t *Transformer) Check() error {
	if t == nil || t.vp == nil {
		return ErrViewportUnavailable
	}
	return nil
}

func (t *Transformer) attached() bool { return t.Check() == nil }

func (t *Transformer) Zoom() int {
	if !t.attached() {
		return 0
	}
	return t.vp.Zoom()
}

func (t *Transformer) Size() r2.Point {
	if !t.attached() {
		return r2.Point{}
	}
	return t.vp.Size()
}

func (t *Transformer) Origin() r2.Point {
	if !t.attached() {
		return r2.Point{}
	}
	return t.vp.Origin()
}

// ToScreen projects a ground coordinate to container pixels.
func (t *Transformer) ToScreen(ll LatLng) r2.Point {
	if !t.attached() {
		return r2.Point{}
	}
	return t.vp.Project(ll)
}

// ToGround unprojects container pixels to a ground coordinate.
func (t *Transformer) ToGround(p r2.Point) LatLng {
	if !t.attached() {
		return LatLng{}
	}
	return t.vp.Unproject(p)
}

// ToWorld converts container pixels to world pixels at the current zoom.
func (t *Transformer) ToWorld(p r2.Point) r2.Point {
	return p.Add(t.Origin())
}

// FromWorld converts world pixels to container pixels.
func (t *Transformer) FromWorld(p r2.Point) r2.Point {
	return p.Sub(t.Origin())
}

// GroundToWorld projects a ground coordinate straight to world pixels.
func (t *Transformer) GroundToWorld(ll LatLng) r2.Point {
	return t.ToWorld(t.ToScreen(ll))
}

// GroundBoundsToScreen projects the northwest and southeast corners.
func (t *Transformer) GroundBoundsToScreen(b GroundBounds) ScreenBounds {
	if !t.attached() {
		return ScreenBounds{}
	}
	nw := t.vp.Project(LatLng{Lat: b.North, Lng: b.West})
	se := t.vp.Project(LatLng{Lat: b.South, Lng: b.East})
	return screenBounds(nw, se)
}

// ScreenBoundsToGround unprojects a pixel rectangle.
func (t *Transformer) ScreenBoundsToGround(s ScreenBounds) GroundBounds {
	if !t.attached() {
		return GroundBounds{}
	}
	return BoundsOf(t.vp.Unproject(s.NW), t.vp.Unproject(s.SE))
}

// ViewBounds is the container rectangle in container pixels.
func (t *Transformer) ViewBounds() ScreenBounds {
	return screenBounds(r2.Point{}, t.Size())
}

// Contains reports whether a container pixel lies inside the viewport.
func (t *Transformer) Contains(p r2.Point) bool {
	if !t.attached() {
		return false
	}
	return t.ViewBounds().Rect().ContainsPoint(p)
}

// MetersToPixels converts a ground distance to pixels at the map center.
func (t *Transformer) MetersToPixels(m float64) float64 {
	if !t.attached() {
		return 0
	}
	c := t.vp.Size().Mul(0.5)
	center := t.vp.Unproject(c)
	off := t.vp.Project(LatLng{Lat: center.Lat, Lng: center.Lng + m*DegreesPerMeter})
	return math.Abs(off.X - c.X)
}

// PixelsToMeters converts a horizontal pixel distance at the map center to
// meters.
func (t *Transformer) PixelsToMeters(px float64) float64 {
	if !t.attached() {
		return 0
	}
	c := t.vp.Size().Mul(0.5)
	a := t.vp.Unproject(c)
	b := t.vp.Unproject(c.Add(r2.Point{X: px}))
	return math.Abs(b.Lng-a.Lng) / DegreesPerMeter
}

// ScaleGridSize scales a cell size defined at baseZoom to the current zoom.
func (t *Transformer) ScaleGridSize(size float64, baseZoom int) float64 {
	if !t.attached() {
		return size
	}
	return size * math.Pow(2, float64(t.vp.Zoom()-baseZoom))
}
