package tui

import (
	"os"
	"sync"
	"time"

	list "github.com/charmbracelet/bubbles/list"
	table "github.com/charmbracelet/bubbles/table"
	textarea "github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/golang/geo/r2"

	"glyphmap/internal/config"
	"glyphmap/internal/dataset"
	"glyphmap/internal/geom"
	"glyphmap/internal/glyph"
	"glyphmap/internal/layer"
	"glyphmap/internal/spatial"
	"glyphmap/internal/viewport"
)

const (
	sidebarWidth = 28
	headerHeight = 1
	footerHeight = 2

	// settleDelay is how long the view must stay still after a key pan
	// before it counts as settled.
	settleDelay = 150 * time.Millisecond
	loadTimeout = 30 * time.Second
	maxFitZoom  = 16

	// cell size bounds for the [ and ] keys, in dots
	minCellSize = 4
	maxCellSize = 256
)

type Model struct {
	width  int
	height int

	showSidebar bool
	helpVisible bool

	status string

	// File explorer
	cwd     string
	l       list.Model
	items   []list.Item
	selPath string

	// Map
	cfg    *config.Config
	view   *mapView
	layer  *layer.Layer
	passes chan *spatial.Snapshot
	fields []string
	field  int
	chart  glyph.Kind
	panSeq int
	queued []string
	loaded bool

	// paste mode
	pasteMode bool
	ta        textarea.Model

	// cell inspect popup
	inspectPopup string

	// hover state, in terminal cells relative to the map
	hovering    bool
	hoverCellX  int
	hoverCellY  int
	hoverHasGeo bool
	hoverLon    float64
	hoverLat    float64

	// attributes table
	showAttrs bool
	tbl       table.Model
}

// passMsg carries a finished aggregation pass from the engine.
type passMsg struct{ snap *spatial.Snapshot }

// loadedMsg carries records read off the UI goroutine.
type loadedMsg struct {
	paths   []string
	records []dataset.Record
	// extent is the lon/lat bbox of the vector files, nil for tables only.
	extent *geom.BBox
	err    error
}

// settleMsg ends a key pan when seq is still the latest one.
type settleMsg struct{ seq int }

// New builds the model. A nil cfg uses config.Default.
func New(cfg *config.Config) Model {
	if cfg == nil {
		cfg = config.Default()
	}
	m := Model{
		helpVisible: true,
		status:      "glyphmap ready",
		cfg:         cfg,
		chart:       cfg.Display.Chart,
		passes:      make(chan *spatial.Snapshot, 1),
	}
	m.view = &mapView{m: viewport.NewMercator(viewport.LatLng{Lat: cfg.Display.Lat, Lng: cfg.Display.Lng}, cfg.Display.Zoom, 160, 88)}
	passes := m.passes
	m.layer = layer.New(viewport.NewTransformer(m.view), layer.Options{
		Engine: spatial.Options{
			Mode:          cfg.Grid.Mode,
			GridType:      cfg.Grid.Type,
			CellSize:      cfg.Grid.CellSize,
			Padding:       cfg.Grid.Padding,
			BaseZoom:      cfg.Grid.BaseZoom,
			ScaleWithZoom: cfg.Grid.ScaleWithZoom,
			Throttle:      cfg.Grid.Throttle,
			OnRecompute: func(s *spatial.Snapshot) {
				select {
				case passes <- s:
				default:
				}
			},
		},
		Load: dataset.LoadOptions{LatField: cfg.Data.LatField, LngField: cfg.Data.LngField},
		Viz:  glyph.Config{Kind: cfg.Display.Chart},
	})

	m.cwd, _ = os.Getwd()
	// list setup
	d := list.NewDefaultDelegate()
	d.ShowDescription = false
	m.l = list.New(nil, d, 0, 0)
	m.l.Title = "Files"
	m.l.SetShowHelp(false)
	m.l.SetShowStatusBar(false)
	m.l.SetFilteringEnabled(true)
	// textarea setup
	m.ta = textarea.New()
	m.ta.Placeholder = "Paste CSV with lat/lng columns. Press Enter to load; Esc to cancel."
	m.ta.CharLimit = 0
	m.ta.SetWidth(50)
	m.ta.SetHeight(6)
	m.tbl = table.New(table.WithFocused(true))
	m.tbl.SetHeight(12)
	m.refreshDir()
	return m
}

// NewWithPaths loads files once the program starts.
func NewWithPaths(cfg *config.Config, paths ...string) Model {
	m := New(cfg)
	m.queued = paths
	if len(paths) > 0 {
		m.status = "loading…"
	}
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForPass(m.passes)}
	if len(m.queued) > 0 {
		cmds = append(cmds, m.loadFiles(m.queued))
	}
	return tea.Batch(cmds...)
}

func waitForPass(ch <-chan *spatial.Snapshot) tea.Cmd {
	return func() tea.Msg { return passMsg{snap: <-ch} }
}

// mapView guards the Mercator shared between Update and the engine's
// debounce goroutine.
type mapView struct {
	mu sync.RWMutex
	m  *viewport.Mercator
}

func (v *mapView) Zoom() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.m.Zoom()
}

func (v *mapView) Project(ll viewport.LatLng) r2.Point {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.m.Project(ll)
}

func (v *mapView) Unproject(p r2.Point) viewport.LatLng {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.m.Unproject(p)
}

func (v *mapView) Size() r2.Point {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.m.Size()
}

func (v *mapView) Origin() r2.Point {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.m.Origin()
}

func (v *mapView) update(f func(*viewport.Mercator)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	f(v.m)
}
