package viewport

import (
	"math"

	"github.com/golang/geo/r2"
)

const (
	MinZoom = 0
	MaxZoom = 22

	maxLatitude = 85.0511287798
)

// Mercator is a Web-Mercator viewport centred on a ground coordinate at an
// integer zoom. It is the viewport used by the terminal host and by tests.
type Mercator struct {
	Center   LatLng
	Level    int
	Width    float64
	Height   float64
	TileSize float64 // world size at zoom 0; 256 when unset
}

func NewMercator(center LatLng, zoom int, width, height float64) *Mercator {
	return &Mercator{Center: center, Level: clampZoom(zoom), Width: width, Height: height, TileSize: 256}
}

func (m *Mercator) Zoom() int       { return m.Level }
func (m *Mercator) Size() r2.Point  { return r2.Point{X: m.Width, Y: m.Height} }
func (m *Mercator) Origin() r2.Point { return m.world(m.Center).Sub(m.Size().Mul(0.5)) }

func (m *Mercator) Project(ll LatLng) r2.Point {
	return m.world(ll).Sub(m.Origin())
}

func (m *Mercator) Unproject(p r2.Point) LatLng {
	return m.unworld(p.Add(m.Origin()))
}

// Pan moves the center by a pixel offset.
func (m *Mercator) Pan(dx, dy float64) {
	m.Center = m.unworld(m.world(m.Center).Add(r2.Point{X: dx, Y: dy}))
}

// SetZoom changes the zoom level, keeping the center.
func (m *Mercator) SetZoom(z int) { m.Level = clampZoom(z) }

// Resize sets the container size in pixels.
func (m *Mercator) Resize(w, h float64) {
	m.Width, m.Height = w, h
}

// FitBounds centers on b and picks the largest zoom at which b fits.
func (m *Mercator) FitBounds(b GroundBounds) {
	m.Center = LatLng{Lat: (b.South + b.North) / 2, Lng: (b.West + b.East) / 2}
	for z := MaxZoom; z >= MinZoom; z-- {
		m.Level = z
		nw := m.world(LatLng{Lat: b.North, Lng: b.West})
		se := m.world(LatLng{Lat: b.South, Lng: b.East})
		if se.X-nw.X <= m.Width && se.Y-nw.Y <= m.Height {
			return
		}
	}
}

func (m *Mercator) scale() float64 {
	ts := m.TileSize
	if ts <= 0 {
		ts = 256
	}
	return ts * math.Exp2(float64(m.Level))
}

func (m *Mercator) world(ll LatLng) r2.Point {
	s := m.scale()
	lat := math.Max(-maxLatitude, math.Min(maxLatitude, ll.Lat))
	sin := math.Sin(lat * math.Pi / 180)
	return r2.Point{
		X: (ll.Lng + 180) / 360 * s,
		Y: (0.5 - math.Log((1+sin)/(1-sin))/(4*math.Pi)) * s,
	}
}

func (m *Mercator) unworld(p r2.Point) LatLng {
	s := m.scale()
	n := math.Pi - 2*math.Pi*p.Y/s
	return LatLng{
		Lat: 180 / math.Pi * math.Atan(math.Sinh(n)),
		Lng: p.X/s*360 - 180,
	}
}

func clampZoom(z int) int {
	if z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}
