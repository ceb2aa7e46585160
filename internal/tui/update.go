package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	list "github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/golang/geo/r2"

	"glyphmap/internal/dataset"
	"glyphmap/internal/geom"
	"glyphmap/internal/glyph"
	"glyphmap/internal/grid"
	"glyphmap/internal/source"
	"glyphmap/internal/spatial"
	"glyphmap/internal/viewport"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeMap()
	case passMsg:
		if msg.snap != nil && msg.snap.Mode == spatial.Dynamic {
			m.status = fmt.Sprintf("pass: %d cells, %d records", msg.snap.Len(), msg.snap.Total())
		}
		if m.showAttrs {
			m.refreshAttrs()
		}
		return m, waitForPass(m.passes)
	case loadedMsg:
		if msg.err != nil {
			m.status = "load error: " + msg.err.Error()
			return m, nil
		}
		m.selPath = strings.Join(msg.paths, ", ")
		m.applyLoad(msg.records, msg.extent, filepath.Base(msg.paths[0]))
		return m, nil
	case settleMsg:
		if msg.seq == m.panSeq {
			m.layer.HandleEvent(spatial.Event{Kind: spatial.ViewSettled})
		}
		return m, nil
	case tea.KeyMsg:
		// If list is visible and filtering, send keys to list and ignore global commands
		if m.showSidebar && m.l.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.l, cmd = m.l.Update(msg)
			return m, cmd
		}
		if m.pasteMode {
			switch msg.String() {
			case "esc":
				m.pasteMode = false
				m.ta.Blur()
				return m, nil
			case "enter":
				text := strings.TrimSpace(m.ta.Value())
				if text == "" {
					m.status = "paste: empty"
					return m, nil
				}
				if _, err := m.layer.LoadData(context.Background(), text); err != nil {
					m.status = "csv error: " + err.Error()
					return m, nil
				}
				m.selPath = ""
				m.afterLoad("pasted CSV", nil)
				m.pasteMode = false
				m.ta.Blur()
				return m, nil
			}
			var cmd tea.Cmd
			m.ta, cmd = m.ta.Update(msg)
			return m, cmd
		}
		if m.showAttrs {
			switch msg.String() {
			case "up", "down", "pgup", "pgdown":
				var cmd tea.Cmd
				m.tbl, cmd = m.tbl.Update(msg)
				return m, cmd
			}
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.layer.Close()
			return m, tea.Quit
		case "+", "=":
			return m, m.zoomBy(1)
		case "-", "_":
			return m, m.zoomBy(-1)
		case "up":
			return m, m.pan(0, -1)
		case "down":
			return m, m.pan(0, 1)
		case "left":
			return m, m.pan(-1, 0)
		case "right":
			return m, m.pan(1, 0)
		case "g":
			t := grid.TypeHexagon
			if m.layer.Engine().Options().GridType == grid.TypeHexagon {
				t = grid.TypeSquare
			}
			m.layer.Engine().SetGridType(t)
			m.layer.HandleEvent(spatial.Event{Kind: spatial.ViewSettled})
			m.status = "grid: " + t.String()
		case "[", "]":
			size := m.layer.Engine().Options().CellSize
			if msg.String() == "[" {
				size = max(minCellSize, size/2)
			} else {
				size = min(maxCellSize, size*2)
			}
			m.layer.Engine().SetCellSize(size)
			m.layer.HandleEvent(spatial.Event{Kind: spatial.ViewSettled})
			m.status = fmt.Sprintf("cell size: %g", size)
		case "m":
			mode := spatial.Dynamic
			if m.layer.Engine().Mode() == spatial.Dynamic {
				mode = spatial.Static
			}
			m.layer.Engine().SetMode(mode)
			m.layer.HandleEvent(spatial.Event{Kind: spatial.ViewSettled})
			m.status = "mode: " + mode.String()
		case "f":
			if len(m.fields) == 0 {
				m.status = "no fields to aggregate"
				break
			}
			m.field = (m.field + 1) % len(m.fields)
			m.selectField()
		case "c":
			m.chart = nextChart(m.chart)
			m.layer.SetVisualizationConfig(glyph.Config{Kind: m.chart})
			m.status = "chart: " + string(m.layer.VisualizationConfig().Kind)
		case "r":
			m.layer.InvalidateCache()
			m.layer.InvalidateDynamicCache()
			m.layer.HandleEvent(spatial.Event{Kind: spatial.ViewSettled})
			m.status = "caches cleared"
		case "tab":
			m.showSidebar = !m.showSidebar
			if m.showSidebar {
				m.refreshDir()
			}
			m.resizeMap()
		case "p":
			m.pasteMode = !m.pasteMode
			if m.pasteMode {
				m.ta.SetValue("")
				m.status = "paste mode"
				m.ta.Focus()
			} else {
				m.status = "view mode"
				m.ta.Blur()
			}
		case "h":
			m.helpVisible = !m.helpVisible
		case "a":
			m.showAttrs = !m.showAttrs
			if m.showAttrs {
				m.refreshAttrs()
			}
		case "i":
			m.inspectPopup = m.inspect()
			if m.inspectPopup == "" {
				m.status = "no cell under pointer"
			}
		case "esc":
			m.inspectPopup = ""
			m.showAttrs = false
		case "enter":
			if m.showSidebar {
				if it, ok := m.l.SelectedItem().(fileItem); ok {
					m.status = "loading " + it.title + "…"
					return m, m.loadFiles([]string{it.path})
				}
			}
		}
	case tea.MouseMsg:
		x, y, w, h := m.mapRect()
		cx, cy := msg.X-x, msg.Y-y
		if cx < 0 || cx >= w || cy < 0 || cy >= h {
			m.hovering = false
			m.hoverHasGeo = false
			break
		}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			return m, m.zoomBy(1)
		case tea.MouseButtonWheelDown:
			return m, m.zoomBy(-1)
		}
		m.hovering = true
		m.hoverCellX, m.hoverCellY = cx, cy
		p := m.hoverPoint()
		ll := m.layer.Engine().Transformer().ToGround(p)
		m.hoverHasGeo = m.loaded
		m.hoverLon, m.hoverLat = ll.Lng, ll.Lat
		m.layer.HandleEvent(spatial.Event{Kind: spatial.PointerMove, Point: p, HasPoint: true})
		if m.showAttrs {
			m.refreshAttrs()
		}
	}
	// Pass messages to list when visible
	if m.showSidebar {
		var cmd tea.Cmd
		m.l, cmd = m.l.Update(msg)
		return m, cmd
	}
	return m, nil
}

// mapRect returns the map area in terminal cells.
func (m Model) mapRect() (x, y, w, h int) {
	if m.showSidebar {
		x = sidebarWidth + 1
	}
	h = max(4, m.height-headerHeight-footerHeight)
	w = max(10, m.width-x)
	return x, headerHeight, w, h
}

// resizeMap sizes the viewport to the map area in braille dots.
func (m *Model) resizeMap() {
	_, _, w, h := m.mapRect()
	if m.showSidebar {
		m.l.SetSize(sidebarWidth-2, h-2)
	}
	m.view.update(func(v *viewport.Mercator) { v.Resize(float64(w*2), float64(h*4)) })
	m.layer.HandleEvent(spatial.Event{Kind: spatial.ViewSettled})
}

// hoverPoint is the centre of the hovered terminal cell in screen pixels.
func (m Model) hoverPoint() r2.Point {
	return r2.Point{X: float64(m.hoverCellX*2) + 1, Y: float64(m.hoverCellY*4) + 2}
}

// pan moves the view by an eighth of the map per step and settles it once
// the keys stop.
func (m *Model) pan(sx, sy int) tea.Cmd {
	size := m.view.Size()
	dx, dy := float64(sx)*size.X/8, float64(sy)*size.Y/8
	m.view.update(func(v *viewport.Mercator) { v.Pan(dx, dy) })
	m.layer.HandleEvent(spatial.Event{Kind: spatial.Move})
	return m.settleLater()
}

func (m *Model) zoomBy(dz int) tea.Cmd {
	z := m.view.Zoom() + dz
	if z < viewport.MinZoom || z > viewport.MaxZoom {
		return nil
	}
	m.view.update(func(v *viewport.Mercator) { v.SetZoom(z) })
	m.layer.HandleEvent(spatial.Event{Kind: spatial.Zoom})
	m.status = fmt.Sprintf("zoom: %d", z)
	return m.settleLater()
}

func (m *Model) settleLater() tea.Cmd {
	m.panSeq++
	seq := m.panSeq
	return tea.Tick(settleDelay, func(time.Time) tea.Msg { return settleMsg{seq: seq} })
}

// loadFiles reads paths off the UI goroutine.
func (m Model) loadFiles(paths []string) tea.Cmd {
	opts := dataset.LoadOptions{LatField: m.cfg.Data.LatField, LngField: m.cfg.Data.LngField}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		b, err := source.OpenAll(ctx, paths, opts)
		msg := loadedMsg{paths: paths, records: b.Records, err: err}
		if b.HasExtent {
			msg.extent = &b.Extent
		}
		return msg
	}
}

func (m *Model) applyLoad(recs []dataset.Record, extent *geom.BBox, name string) {
	if _, err := m.layer.LoadData(context.Background(), recs); err != nil {
		m.status = "load error: " + err.Error()
		return
	}
	m.afterLoad(name, extent)
}

// afterLoad fits the view and picks the field to show. A non-nil extent is
// the vector geometry bbox and is widened by the located records.
func (m *Model) afterLoad(name string, extent *geom.BBox) {
	m.loaded = true
	recs := m.layer.Records()
	var pts []viewport.LatLng
	for _, r := range recs {
		if r.Location.Valid {
			pts = append(pts, viewport.LatLng{Lat: r.Location.Lat, Lng: r.Location.Lng})
		}
	}
	fit := pts
	if extent != nil {
		fit = append(fit,
			viewport.LatLng{Lat: extent.MinY, Lng: extent.MinX},
			viewport.LatLng{Lat: extent.MaxY, Lng: extent.MaxX})
	}
	if len(fit) > 0 {
		b := viewport.BoundsOf(fit...)
		m.view.update(func(v *viewport.Mercator) {
			v.FitBounds(b)
			if v.Level > maxFitZoom {
				v.SetZoom(maxFitZoom)
			}
		})
	}

	m.fields = nil
	for _, f := range m.layer.Schema().Names() {
		if !m.isCoordField(f) {
			m.fields = append(m.fields, f)
		}
	}
	m.field = 0
	for i, f := range m.fields {
		if len(m.cfg.Data.Fields) > 0 && f == m.cfg.Data.Fields[0] {
			m.field = i
		}
	}
	if len(m.fields) > 0 {
		m.selectField()
	}
	m.layer.HandleEvent(spatial.Event{Kind: spatial.ViewSettled})
	m.status = fmt.Sprintf("loaded: %s  records=%d located=%d fields=%d", name, len(recs), len(pts), len(m.fields))
	if m.showAttrs {
		m.refreshAttrs()
	}
}

func (m *Model) selectField() {
	f := m.fields[m.field]
	m.layer.SetSelectedFields([]string{f})
	m.layer.SetVisualizationConfig(glyph.Config{Kind: m.chart})
	kind := m.layer.AggregationConfig()[f]
	m.status = fmt.Sprintf("field: %s (%s, %s)", f, kind, m.layer.VisualizationConfig().Kind)
}

func (m Model) isCoordField(f string) bool {
	switch strings.ToLower(f) {
	case "lat", "latitude", "lng", "lon", "long", "longitude", "x", "y":
		return true
	}
	return f == m.cfg.Data.LatField || f == m.cfg.Data.LngField
}

// nextChart cycles auto, then each chart kind.
func nextChart(k glyph.Kind) glyph.Kind {
	kinds := append([]glyph.Kind{""}, glyph.Kinds()...)
	for i, c := range kinds {
		if c == k {
			return kinds[(i+1)%len(kinds)]
		}
	}
	return ""
}
