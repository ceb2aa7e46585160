package tui

import "github.com/golang/geo/r2"

const emptyHint = "no data: Tab to pick a file, p to paste CSV"

// renderMap draws the layer onto a braille canvas of w by h cells and
// returns it with the number of cells drawn.
func (m Model) renderMap(w, h int) (string, int) {
	c := m.paint(w, h)
	return c.String(), c.drawn
}

func (m Model) paint(w, h int) *canvas {
	c := newCanvas(w, h)
	c.drawn = m.layer.Redraw(c)
	if m.hovering {
		c.highlight(m.hoverCellX, m.hoverCellY, hoverCol)
	}
	if !m.loaded {
		c.Text(c.centerOf(emptyHint), emptyHint, hintCol)
	}
	return c
}

// centerOf is the text anchor that centres s on the canvas.
func (c *canvas) centerOf(s string) r2.Point {
	mw, mh := c.microSize()
	return r2.Point{X: (float64(mw) - c.MeasureText(s)) / 2, Y: float64(mh) / 2}
}
