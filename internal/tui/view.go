package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"glyphmap/internal/spatial"
)

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	_, _, mapWidth, mapHeight := m.mapRect()
	contentWidth := max(10, m.width)
	contentHeight := mapHeight

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render(" glyphmap "),
		dimStyle.Render(m.badges()),
	)
	header = lipgloss.NewStyle().MaxWidth(contentWidth).Render(header)

	var sidebar string
	if m.showSidebar {
		sidebar = lipgloss.NewStyle().Width(sidebarWidth).Render(m.l.View())
	}

	var mapView string
	switch {
	case m.showAttrs:
		// Render attributes table centered in the map area
		colW := 0
		for _, c := range m.tbl.Columns() {
			colW += c.Width + 3
		}
		maxW := min(mapWidth, max(32, colW))
		m.tbl.SetWidth(maxW - 4)
		m.tbl.SetHeight(min(mapHeight-2, 20))
		attrsBox := boxStyle.Width(maxW).Render(m.tbl.View())
		mapView = lipgloss.Place(mapWidth, mapHeight, lipgloss.Center, lipgloss.Center, attrsBox)
	case m.pasteMode:
		m.ta.SetWidth(mapWidth)
		m.ta.SetHeight(min(mapHeight, 12))
		mapView = lipgloss.NewStyle().Width(mapWidth).Height(mapHeight).Render(m.ta.View())
	default:
		canvas, _ := m.renderMap(mapWidth, mapHeight)
		mapView = lipgloss.NewStyle().Width(mapWidth).Height(mapHeight).Render(canvas)
	}

	// Inspect popup overlays the left of the content area.
	popup := ""
	if m.inspectPopup != "" && !m.showAttrs {
		maxPopupW := max(20, min(48, contentWidth/2))
		box := boxStyle.MaxWidth(maxPopupW).Render(m.inspectPopup)
		popup = lipgloss.Place(contentWidth, min(contentHeight, lipgloss.Height(box)), lipgloss.Left, lipgloss.Top, box)
	}

	body := mapView
	if m.showSidebar {
		body = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", mapView)
	}

	// Footer: status with pointer coordinates, then help
	clip := lipgloss.NewStyle().MaxWidth(contentWidth)
	status := dimStyle.Render(" " + m.status + " ")
	if m.hoverHasGeo {
		coords := dimStyle.Render(fmt.Sprintf("lon=%.5f lat=%.5f  ", m.hoverLon, m.hoverLat))
		gap := max(1, contentWidth-lipgloss.Width(status)-lipgloss.Width(coords))
		status += strings.Repeat(" ", gap) + coords
	}
	footer := lipgloss.JoinVertical(lipgloss.Left, clip.Render(status), clip.Render(m.renderHelp()))

	rows := []string{header}
	if popup != "" {
		rows = append(rows, popup)
	}
	rows = append(rows, body, footer)
	ui := lipgloss.JoinVertical(lipgloss.Left, rows...)
	return appStyle.Width(contentWidth).Height(m.height).MaxHeight(m.height).Render(ui)
}

// badges summarises the aggregation state for the header.
func (m Model) badges() string {
	e := m.layer.Engine()
	opts := e.Options()
	st := m.layer.CacheStats()
	parts := []string{
		badgeStyle.Render(opts.GridType.String()),
		badgeStyle.Render(e.Mode().String()),
		fmt.Sprintf("zoom %d", m.view.Zoom()),
		"chart " + string(m.layer.VisualizationConfig().Kind),
	}
	if len(m.fields) > 0 {
		parts = append(parts, "field "+m.fields[m.field])
	}
	if e.Mode() == spatial.Static {
		parts = append(parts, fmt.Sprintf("cache %d/%d", st.Hits, st.Hits+st.Misses))
	} else {
		parts = append(parts, fmt.Sprintf("passes %d", st.DynamicRecomputes))
	}
	if e.Pending() {
		parts = append(parts, "…")
	}
	return "  " + strings.Join(parts, "  ")
}

func (m Model) renderHelp() string {
	if !m.helpVisible {
		return ""
	}
	keys := []string{
		"↑↓←→ pan",
		"+/- zoom",
		"g grid",
		"[/] cell",
		"m mode",
		"f field",
		"c chart",
		"a attrs",
		"i inspect",
		"r reset",
		"Tab files",
		"p paste",
		"h help",
		"q quit",
	}
	return dimStyle.Render("  " + strings.Join(keys, "  "))
}
