package tui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	table "github.com/charmbracelet/bubbles/table"

	"glyphmap/internal/dataset"
	"glyphmap/internal/spatial"
)

// refreshAttrs rebuilds the table from the hovered cell, or from the schema
// when the pointer is not over a cell.
func (m *Model) refreshAttrs() {
	cols, rows := m.buildAttributes()
	// If there are no rows, disable attributes view to avoid rendering panics
	if len(cols) == 0 || len(rows) == 0 {
		m.showAttrs = false
		m.status = "no attributes for current dataset"
		return
	}
	maxColW := 24
	tcols := make([]table.Column, len(cols))
	for i, c := range cols {
		w := len(c) + 2
		for _, r := range rows {
			w = max(w, len([]rune(r[i]))+2)
		}
		tcols[i] = table.Column{Title: c, Width: min(w, maxColW)}
	}
	trows := make([]table.Row, len(rows))
	for i, r := range rows {
		cells := make([]string, len(cols))
		copy(cells, r)
		trows[i] = table.Row(cells)
	}
	// Avoid transient mismatch: clear rows, set columns, then set rows
	m.tbl.SetRows(nil)
	m.tbl.SetColumns(tcols)
	m.tbl.SetRows(trows)
}

func (m Model) buildAttributes() ([]string, [][]string) {
	if c, ok := m.hoveredCell(); ok {
		return cellAttributes(c, m.layer.AggregationConfig())
	}
	return schemaAttributes(m.layer.Schema(), m.layer.GlobalStats())
}

// hoveredCell finds the snapshot cell under the pointer.
func (m Model) hoveredCell() (*spatial.Cell, bool) {
	if !m.hovering {
		return nil, false
	}
	e := m.layer.Engine()
	w := e.Transformer().ToWorld(m.hoverPoint())
	return m.layer.Snapshot().Cell(e.Discretizer().ColRow(w.X, w.Y))
}

func cellAttributes(c *spatial.Cell, cfg dataset.AggregationConfig) ([]string, [][]string) {
	rows := [][]string{
		{"cell", "", c.ID.String()},
		{"records", "count", strconv.Itoa(c.Count)},
	}
	for _, f := range cfg.Fields() {
		rows = append(rows, []string{f, string(cfg[f]), formatAggregate(c.Aggregate[f])})
	}
	keys := make([]string, 0, len(c.Custom))
	for k := range c.Custom {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, []string{k, "custom", formatAggregate(c.Custom[k])})
	}
	return []string{"field", "aggregation", "value"}, rows
}

func schemaAttributes(s dataset.Schema, stats map[string]dataset.FieldStats) ([]string, [][]string) {
	cols := []string{"field", "type", "unique", "nulls", "min", "max", "mean"}
	rows := make([][]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		row := []string{f.Name, string(f.Type), strconv.Itoa(f.UniqueCount), strconv.FormatBool(f.HasNulls), "", "", ""}
		if st, ok := stats[f.Name]; ok {
			row[4], row[5], row[6] = formatAggregate(st.Min), formatAggregate(st.Max), formatAggregate(st.Mean)
		}
		rows = append(rows, row)
	}
	return cols, rows
}

// formatAggregate renders an aggregate value; frequency maps list the most
// common categories first.
func formatAggregate(v any) string {
	switch t := v.(type) {
	case map[string]int:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if t[keys[i]] != t[keys[j]] {
				return t[keys[i]] > t[keys[j]]
			}
			return keys[i] < keys[j]
		})
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s:%d", k, t[k])
		}
		return strings.Join(parts, " ")
	case float64:
		return strconv.FormatFloat(t, 'g', 6, 64)
	}
	return dataset.FormatValue(v)
}

// inspect summarises the hovered cell and the engine's caches.
func (m Model) inspect() string {
	c, ok := m.hoveredCell()
	if !ok {
		return ""
	}
	tr := m.layer.Engine().Transformer()
	ll := tr.ToGround(tr.FromWorld(c.Center))
	st := m.layer.CacheStats()
	name := m.selPath
	if name == "" {
		name = "<pasted>"
	}
	lines := []string{
		fmt.Sprintf("cell: %s", c.ID),
		fmt.Sprintf("records: %d", c.Count),
		fmt.Sprintf("center: lat=%.5f lng=%.5f", ll.Lat, ll.Lng),
		fmt.Sprintf("source: %s", name),
		fmt.Sprintf("cache: hits=%d misses=%d cells=%d", st.Hits, st.Misses, st.Cells),
	}
	if m.layer.Engine().Mode() == spatial.Dynamic {
		lines = append(lines, fmt.Sprintf("passes: %d  screen points: %d", st.DynamicRecomputes, st.ScreenPoints))
	}
	return strings.Join(lines, "\n")
}
