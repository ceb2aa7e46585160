package tui

import (
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/golang/geo/r2"
	colorful "github.com/lucasb-eyer/go-colorful"
)

type brailleBuf struct {
	w, h int       // in cells
	m    [][]uint8 // per-cell 8-bit mask
}

func newBrailleBuf(w, h int) *brailleBuf {
	m := make([][]uint8, h)
	for i := range m {
		m[i] = make([]uint8, w)
	}
	return &brailleBuf{w: w, h: h, m: m}
}

// dotBits indexes braille dots by [column][row] inside one cell.
var dotBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

// setPixel sets a micro-pixel at micro coords (2x4 per cell) and reports
// whether it landed inside the buffer.
func (b *brailleBuf) setPixel(mx, my int) bool {
	if mx < 0 || my < 0 {
		return false
	}
	cx, cy := mx/2, my/4
	if cy >= b.h || cx >= b.w {
		return false
	}
	b.m[cy][cx] |= dotBits[mx%2][my%4]
	return true
}

// drawLineMicro draws a line on the microgrid using Bresenham
func (b *brailleBuf) drawLineMicro(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func (b *brailleBuf) cellRune(cx, cy int) rune {
	mask := b.m[cy][cx]
	if mask == 0 {
		return ' '
	}
	return rune(0x2800 + int(mask))
}

// canvas is a glyph.Surface over a braille buffer. Shapes set dots and the
// foreground colour of the cells they touch, filled paths set the cell
// background, and text replaces the braille of the cells it covers. One
// surface pixel is one braille dot.
type canvas struct {
	buf  *brailleBuf
	fg   [][]colorful.Color
	bg   [][]colorful.Color
	hasF [][]bool
	hasB [][]bool
	text [][]rune
	// drawn is the number of grid cells the last redraw produced.
	drawn int
}

func newCanvas(w, h int) *canvas {
	c := &canvas{buf: newBrailleBuf(w, h)}
	c.fg, c.bg = make([][]colorful.Color, h), make([][]colorful.Color, h)
	c.hasF, c.hasB = make([][]bool, h), make([][]bool, h)
	c.text = make([][]rune, h)
	for y := 0; y < h; y++ {
		c.fg[y], c.bg[y] = make([]colorful.Color, w), make([]colorful.Color, w)
		c.hasF[y], c.hasB[y] = make([]bool, w), make([]bool, w)
		c.text[y] = make([]rune, w)
	}
	return c
}

// microSize is the drawable area in surface pixels.
func (c *canvas) microSize() (int, int) { return c.buf.w * 2, c.buf.h * 4 }

func (c *canvas) plot(col colorful.Color) func(x, y int) {
	return func(x, y int) {
		if c.buf.setPixel(x, y) {
			c.fg[y/4][x/2], c.hasF[y/4][x/2] = col, true
		}
	}
}

func (c *canvas) FillRect(r r2.Rect, col colorful.Color) {
	p := c.plot(col)
	for y := int(math.Round(r.Y.Lo)); y < int(math.Round(r.Y.Hi)); y++ {
		for x := int(math.Round(r.X.Lo)); x < int(math.Round(r.X.Hi)); x++ {
			p(x, y)
		}
	}
}

func (c *canvas) StrokeRect(r r2.Rect, col colorful.Color) {
	c.StrokePath([]r2.Point{r.Lo(), {X: r.X.Hi, Y: r.Y.Lo}, r.Hi(), {X: r.X.Lo, Y: r.Y.Hi}}, true, col)
}

func (c *canvas) FillArc(center r2.Point, radius, start, end float64, col colorful.Color) {
	p := c.plot(col)
	x0, x1 := int(math.Floor(center.X-radius)), int(math.Ceil(center.X+radius))
	y0, y1 := int(math.Floor(center.Y-radius)), int(math.Ceil(center.Y+radius))
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			d := r2.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5}.Sub(center)
			if d.Norm() > radius {
				continue
			}
			if inSweep(math.Atan2(d.Y, d.X), start, end) {
				p(x, y)
			}
		}
	}
}

func (c *canvas) StrokeArc(center r2.Point, radius, start, end float64, col colorful.Color) {
	if radius <= 0 {
		return
	}
	n := int(math.Ceil((end-start)*radius)) + 1
	pts := make([]r2.Point, 0, n+1)
	for i := 0; i <= n; i++ {
		a := start + (end-start)*float64(i)/float64(n)
		pts = append(pts, center.Add(r2.Point{X: math.Cos(a), Y: math.Sin(a)}.Mul(radius)))
	}
	c.StrokePath(pts, false, col)
}

// inSweep reports whether angle a lies on the clockwise sweep start..end.
func inSweep(a, start, end float64) bool {
	if end-start >= 2*math.Pi {
		return true
	}
	for a < start {
		a += 2 * math.Pi
	}
	for a >= start+2*math.Pi {
		a -= 2 * math.Pi
	}
	return a <= end
}

// FillPath sets the background of every cell whose centre lies inside the
// polygon, using an even-odd scanline through the cell centres.
func (c *canvas) FillPath(pts []r2.Point, col colorful.Color) {
	if len(pts) < 3 {
		return
	}
	for cy := 0; cy < c.buf.h; cy++ {
		y := float64(cy*4) + 2
		var xs []float64
		for i := range pts {
			a, b := pts[i], pts[(i+1)%len(pts)]
			if a.Y == b.Y {
				continue
			}
			if (y >= a.Y && y < b.Y) || (y >= b.Y && y < a.Y) {
				t := (y - a.Y) / (b.Y - a.Y)
				xs = append(xs, a.X+t*(b.X-a.X))
			}
		}
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			for cx := max(0, int(math.Ceil((xs[i]-1)/2))); cx < c.buf.w; cx++ {
				if float64(cx*2)+1 > xs[i+1] {
					break
				}
				c.bg[cy][cx], c.hasB[cy][cx] = col, true
			}
		}
	}
}

func (c *canvas) StrokePath(pts []r2.Point, closed bool, col colorful.Color) {
	p := c.plot(col)
	last := len(pts) - 1
	if closed {
		last = len(pts)
	}
	for i := 0; i < last; i++ {
		a, b := pts[i], pts[(i+1)%len(pts)]
		c.buf.drawLineMicro(round(a.X), round(a.Y), round(b.X), round(b.Y), p)
	}
}

// Text writes s starting at the cell containing p. The glyph routines
// anchor text at its left edge and vertical centre.
func (c *canvas) Text(p r2.Point, s string, col colorful.Color) {
	cx, cy := int(math.Floor(p.X/2)), int(math.Floor(p.Y/4))
	if cy < 0 || cy >= c.buf.h {
		return
	}
	for _, r := range s {
		if cx >= 0 && cx < c.buf.w {
			c.text[cy][cx] = r
			c.fg[cy][cx], c.hasF[cy][cx] = col, true
		}
		cx++
	}
}

// MeasureText is two dots per rune: one terminal column.
func (c *canvas) MeasureText(s string) float64 { return float64(2 * len([]rune(s))) }

// highlight marks one terminal cell so it stands out on the next render.
func (c *canvas) highlight(cx, cy int, col colorful.Color) {
	if cy < 0 || cy >= c.buf.h || cx < 0 || cx >= c.buf.w {
		return
	}
	c.fg[cy][cx], c.hasF[cy][cx] = col, true
	if c.text[cy][cx] == 0 && c.buf.m[cy][cx] == 0 {
		c.text[cy][cx] = '◯'
	}
}

// plain returns the canvas without colour, one string per row.
func (c *canvas) plain() []string {
	out := make([]string, c.buf.h)
	for y := 0; y < c.buf.h; y++ {
		row := make([]rune, c.buf.w)
		for x := 0; x < c.buf.w; x++ {
			row[x] = c.at(x, y)
		}
		out[y] = string(row)
	}
	return out
}

func (c *canvas) at(x, y int) rune {
	if r := c.text[y][x]; r != 0 {
		return r
	}
	return c.buf.cellRune(x, y)
}

// String renders the canvas with colours, batching runs of equally styled
// cells into one lipgloss render.
func (c *canvas) String() string {
	lines := make([]string, c.buf.h)
	for y := 0; y < c.buf.h; y++ {
		var sb strings.Builder
		var run []rune
		var cur cellStyle
		flush := func() {
			if len(run) > 0 {
				sb.WriteString(cur.render(string(run)))
				run = run[:0]
			}
		}
		for x := 0; x < c.buf.w; x++ {
			st := cellStyle{fg: c.fg[y][x], bg: c.bg[y][x], hasF: c.hasF[y][x], hasB: c.hasB[y][x]}
			if st != cur {
				flush()
				cur = st
			}
			run = append(run, c.at(x, y))
		}
		flush()
		lines[y] = sb.String()
	}
	return strings.Join(lines, "\n")
}

type cellStyle struct {
	fg, bg     colorful.Color
	hasF, hasB bool
}

func (s cellStyle) render(text string) string {
	if !s.hasF && !s.hasB {
		return text
	}
	st := lipgloss.NewStyle()
	if s.hasF {
		st = st.Foreground(lipgloss.Color(s.fg.Hex()))
	}
	if s.hasB {
		st = st.Background(lipgloss.Color(s.bg.Hex()))
	}
	return st.Render(text)
}
