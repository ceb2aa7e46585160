// Package glyph draws a small chart per grid cell onto a Surface.
package glyph

import (
	"fmt"
	"strings"

	"github.com/golang/geo/r2"
	colorful "github.com/lucasb-eyer/go-colorful"

	"glyphmap/internal/dataset"
)

// Kind is a chart kind.
type Kind string

const (
	Bar  Kind = "bar"
	Pie  Kind = "pie"
	Line Kind = "line"
	Text Kind = "text"
)

var kinds = []Kind{Bar, Pie, Line, Text}

// Kinds lists the chart kinds in menu order.
func Kinds() []Kind { return append([]Kind(nil), kinds...) }

// ParseKind accepts a chart kind name; "" means Text.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k == "" {
		return Text, nil
	}
	for _, known := range kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("glyph: unknown chart kind %q", s)
}

// Suggest picks the default chart for a field type.
func Suggest(t dataset.DataType) Kind {
	switch t {
	case dataset.Numeric, dataset.Ordinal:
		return Bar
	case dataset.Nominal:
		return Pie
	case dataset.Temporal:
		return Line
	}
	return Text
}

// Config is the advisory visualisation config of a layer.
type Config struct {
	Kind   Kind
	Fields []string
	// MaxValue scales bars; the field's global max when zero.
	MaxValue float64
	// Color overrides the glyph colour, as "#rrggbb".
	Color string
	// NoBackground disables the count ramp fill.
	NoBackground bool
}

// Surface is the drawing target. Coordinates are screen pixels, angles are
// radians clockwise from the positive x axis.
type Surface interface {
	FillRect(r r2.Rect, c colorful.Color)
	StrokeRect(r r2.Rect, c colorful.Color)
	FillArc(center r2.Point, radius, start, end float64, c colorful.Color)
	StrokeArc(center r2.Point, radius, start, end float64, c colorful.Color)
	FillPath(pts []r2.Point, c colorful.Color)
	StrokePath(pts []r2.Point, closed bool, c colorful.Color)
	Text(p r2.Point, s string, c colorful.Color)
	MeasureText(s string) float64
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

var (
	rampLow  = mustHex("#1E293B")
	rampHigh = mustHex("#F59E0B")
	outline  = mustHex("#475569")
	glyphFg  = mustHex("#E6E6E6")
	accent   = mustHex("#7C3AED")
	palette  = []colorful.Color{
		mustHex("#7C3AED"), mustHex("#10B981"), mustHex("#F59E0B"), mustHex("#EF4444"),
		mustHex("#3B82F6"), mustHex("#EC4899"), mustHex("#14B8A6"), mustHex("#A3E635"),
	}
)

// Ramp blends the background colour for a cell holding count of maxCount
// records.
func Ramp(count, maxCount int) colorful.Color {
	if maxCount <= 0 {
		return rampLow
	}
	t := float64(count) / float64(maxCount)
	if t > 1 {
		t = 1
	}
	return rampLow.BlendLab(rampHigh, t).Clamped()
}

// PaletteColor returns the i-th categorical colour.
func PaletteColor(i int) colorful.Color {
	if i < 0 {
		i = -i
	}
	return palette[i%len(palette)]
}

func (c Config) foreground() colorful.Color {
	if c.Color != "" {
		if col, err := colorful.Hex(c.Color); err == nil {
			return col
		}
	}
	return accent
}
