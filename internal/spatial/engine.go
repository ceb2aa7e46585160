// Package spatial buckets located records into grid cells over the current
// view. Static mode caches one snapshot per view; dynamic mode rebuilds on
// debounced interaction events.
package spatial

import (
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/golang/geo/r2"

	"glyphmap/internal/dataset"
	"glyphmap/internal/grid"
	"glyphmap/internal/viewport"
)

// Mode selects how passes are triggered.
type Mode int

const (
	Static Mode = iota
	Dynamic
)

func (m Mode) String() string {
	if m == Dynamic {
		return "dynamic"
	}
	return "static"
}

// ParseMode accepts "static" (or "") and "dynamic".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "static":
		return Static, nil
	case "dynamic":
		return Dynamic, nil
	}
	return Static, fmt.Errorf("spatial: unknown mode %q", s)
}

// EventKind classifies host view events.
type EventKind int

const (
	// ViewSettled ends a pan or zoom.
	ViewSettled EventKind = iota
	Move
	Zoom
	PointerMove
)

func (k EventKind) String() string {
	switch k {
	case ViewSettled:
		return "settled"
	case Move:
		return "move"
	case Zoom:
		return "zoom"
	case PointerMove:
		return "pointer"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is a host view event. Point is the screen position when HasPoint.
type Event struct {
	Kind     EventKind
	Point    r2.Point
	HasPoint bool
}

// Datum is one record positioned in world pixels.
type Datum struct {
	World  r2.Point
	Record dataset.Record
}

// AggregateFunc is called once per point in dynamic passes with the cell
// bucket, the point, a weight of 1, the engine's global context and the
// event that triggered the pass.
type AggregateFunc func(cell *Cell, d Datum, weight float64, global, frame any)

const (
	DefaultCellSize = 30
	DefaultThrottle = 100 * time.Millisecond
)

// Options configures an Engine.
type Options struct {
	Mode     Mode
	GridType grid.Type
	// CellSize in pixels at BaseZoom; DefaultCellSize when zero.
	CellSize float64
	Padding  float64
	BaseZoom int
	// ScaleWithZoom scales CellSize by 2^(zoom-BaseZoom).
	ScaleWithZoom bool
	// Throttle is the dynamic-mode debounce delay; DefaultThrottle when zero.
	Throttle  time.Duration
	Aggregate AggregateFunc
	Global    any
	Scheduler Scheduler
	// OnRecompute is called after every dynamic pass and every static miss,
	// outside the engine lock.
	OnRecompute func(*Snapshot)
	Logger      *log.Logger
}

func (o *Options) setDefaults() {
	if o.CellSize <= 0 {
		o.CellSize = DefaultCellSize
	}
	if o.Throttle <= 0 {
		o.Throttle = DefaultThrottle
	}
	if o.Padding < 0 {
		o.Padding = 0
	}
	if o.Scheduler == nil {
		o.Scheduler = WallClock
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
}

// Engine owns the aggregation state of one layer. It is safe for concurrent
// use; debounced passes run on timer goroutines.
type Engine struct {
	mu   sync.Mutex
	tr   *viewport.Transformer
	opts Options
	log  *log.Logger

	disc    grid.Discretizer
	records []dataset.Record
	hash    DataHash
	aggCfg  dataset.AggregationConfig

	snapshot *Snapshot
	key      CacheKey
	keyValid bool
	hits     int
	misses   int
	lastHit  bool

	screen      []Datum
	screenValid bool
	screenZoom  int
	dynamicRuns int
	lastEvent   any

	debounce *Debouncer
	search   func(*index, viewport.GroundBounds) ([]int, error)
}

// New returns an engine reading the view through tr.
func New(tr *viewport.Transformer, opts Options) *Engine {
	opts.setDefaults()
	if tr == nil {
		tr = viewport.NewTransformer(nil)
	}
	e := &Engine{
		tr:       tr,
		opts:     opts,
		log:      opts.Logger,
		snapshot: emptySnapshot(opts.Mode),
		search:   (*index).search,
	}
	e.debounce = NewDebouncer(opts.Throttle, opts.Scheduler)
	return e
}

// Transformer returns the coordinate transformer.
func (e *Engine) Transformer() *viewport.Transformer { return e.tr }

// Mode returns the current mode.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts.Mode
}

// Options returns a copy of the current options.
func (e *Engine) Options() Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts
}

// SetRecords replaces the records and invalidates both caches.
func (e *Engine) SetRecords(recs []dataset.Record) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.records = recs
	e.hash = hashRecords(recs)
	e.keyValid = false
	e.screenValid = false
	e.log.Printf("[SpatialEngine] %d records, %d located", len(recs), e.hash.Count)
}

// SetAggregation sets the per-field aggregation and invalidates the static
// cache. A nil or empty config disables field aggregation.
func (e *Engine) SetAggregation(cfg dataset.AggregationConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.aggCfg = cfg
	e.keyValid = false
}

// SetMode switches mode. A pending dynamic pass is cancelled by the next
// trigger or ignored once static.
func (e *Engine) SetMode(m Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.opts.Mode == m {
		return
	}
	e.opts.Mode = m
	e.keyValid = false
	e.screenValid = false
}

// SetGridType changes the tessellation.
func (e *Engine) SetGridType(t grid.Type) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.GridType = t
}

// SetCellSize changes the base cell size.
func (e *Engine) SetCellSize(size float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if size > 0 {
		e.opts.CellSize = size
	}
}

// SetPadding changes the inset of drawn cell boundaries.
func (e *Engine) SetPadding(p float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.Padding = math.Max(0, p)
}

// SetAggregateFunc replaces the dynamic-mode callback.
func (e *Engine) SetAggregateFunc(fn AggregateFunc, global any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.Aggregate = fn
	e.opts.Global = global
}

// InvalidateCache forces the next static pass to miss.
func (e *Engine) InvalidateCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.keyValid = false
}

// InvalidateDynamicCache drops the cached screen points.
func (e *Engine) InvalidateDynamicCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.screenValid = false
	e.screen = nil
}

// Snapshot returns the most recent pass result.
func (e *Engine) Snapshot() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot
}

// Discretizer returns the grid of the most recent pass.
func (e *Engine) Discretizer() grid.Discretizer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.discretizer()
}

// CacheStats reports cache state.
func (e *Engine) CacheStats() CacheStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return CacheStats{
		Key:               e.key,
		KeyValid:          e.keyValid,
		Hits:              e.hits,
		Misses:            e.misses,
		LastHit:           e.lastHit,
		Cells:             e.snapshot.Len(),
		ScreenPoints:      len(e.screen),
		ScreenCacheValid:  e.screenValid,
		DynamicRecomputes: e.dynamicRuns,
	}
}

// Recompute runs a pass in the current mode and returns its snapshot. In
// static mode an unchanged view returns the cached snapshot.
func (e *Engine) Recompute() *Snapshot {
	e.mu.Lock()
	var (
		snap  *Snapshot
		fresh bool
	)
	if e.opts.Mode == Dynamic {
		snap, fresh = e.recomputeDynamic(e.lastEvent), true
	} else {
		snap, fresh = e.recomputeStatic()
	}
	notify := e.opts.OnRecompute
	e.mu.Unlock()

	if fresh && notify != nil {
		notify(snap)
	}
	return snap
}

// HandleEvent feeds a host view event. In static mode settled and zoom
// events run a pass immediately. In dynamic mode a settled event drops the
// screen-point cache and every event schedules a debounced pass.
func (e *Engine) HandleEvent(ev Event) {
	e.mu.Lock()
	mode := e.opts.Mode
	if mode == Dynamic {
		if ev.Kind == ViewSettled || ev.Kind == Zoom {
			e.screenValid = false
			e.screen = nil
		}
		e.lastEvent = ev
	}
	e.mu.Unlock()

	switch {
	case mode == Dynamic:
		e.debounce.Trigger(e.fireDynamic)
	case ev.Kind == ViewSettled || ev.Kind == Zoom:
		e.Recompute()
	}
}

// Pending reports whether a debounced pass is scheduled.
func (e *Engine) Pending() bool { return e.debounce.Pending() }

// Close cancels any pending pass. The engine still answers queries.
func (e *Engine) Close() {
	e.debounce.Stop()
}

func (e *Engine) fireDynamic() {
	e.mu.Lock()
	if e.opts.Mode != Dynamic {
		e.mu.Unlock()
		return
	}
	snap := e.recomputeDynamic(e.lastEvent)
	notify := e.opts.OnRecompute
	e.mu.Unlock()
	if notify != nil {
		notify(snap)
	}
}

// cellSize is the effective size at the current zoom.
func (e *Engine) cellSize() float64 {
	if e.opts.ScaleWithZoom {
		return e.tr.ScaleGridSize(e.opts.CellSize, e.opts.BaseZoom)
	}
	return e.opts.CellSize
}

// discretizer rebuilds the grid only when its type or size changed.
func (e *Engine) discretizer() grid.Discretizer {
	size := math.Max(1, e.cellSize())
	if e.disc == nil || e.disc.Type() != e.opts.GridType || e.disc.Size() != size {
		e.disc = grid.New(e.opts.GridType, size)
	}
	return e.disc
}

func (e *Engine) cacheKey(d grid.Discretizer) CacheKey {
	o := e.tr.Origin()
	s := d.Size()
	sz := e.tr.Size()
	return CacheKey{
		OriginX:  math.Floor(o.X/s) * s,
		OriginY:  math.Floor(o.Y/s) * s,
		Zoom:     e.tr.Zoom(),
		Size:     s,
		Padding:  e.opts.Padding,
		GridType: d.Type(),
		Data:     e.hash,
		Width:    sz.X,
		Height:   sz.Y,
	}
}

func (e *Engine) recomputeStatic() (*Snapshot, bool) {
	if err := e.tr.Check(); err != nil {
		e.snapshot = emptySnapshot(Static)
		return e.snapshot, false
	}
	d := e.discretizer()
	key := e.cacheKey(d)
	if e.keyValid && key == e.key {
		e.hits++
		e.lastHit = true
		return e.snapshot, false
	}

	start := time.Now()
	idx := buildIndex(e.records)
	world := make(map[int]r2.Point)
	worldOf := func(i int) r2.Point {
		p, ok := world[i]
		if !ok {
			loc := e.records[i].Location
			p = e.tr.GroundToWorld(viewport.LatLng{Lat: loc.Lat, Lng: loc.Lng})
			world[i] = p
		}
		return p
	}

	// Cover any origin within the aligned cell so a cache hit after a small
	// pan still spans the view.
	aligned := r2.Point{X: key.OriginX, Y: key.OriginY}
	view := r2.RectFromPoints(aligned, aligned.Add(e.tr.Size()).Add(r2.Point{X: d.Size(), Y: d.Size()}))

	var cells []*Cell
	for _, id := range d.CellRange(view) {
		ids, err := e.search(idx, e.cellGround(d, id))
		if err != nil {
			e.log.Printf("[SpatialEngine] %v", &SpatialIndexQueryError{Cell: id, Err: err})
			continue
		}
		var attrs []dataset.Record
		for _, i := range ids {
			p := worldOf(i)
			if d.ColRow(p.X, p.Y) == id {
				attrs = append(attrs, e.records[i])
			}
		}
		if len(attrs) == 0 {
			continue
		}
		c := e.newCell(d, id)
		c.Count = len(attrs)
		c.Attributes = attrs
		e.aggregate(c)
		cells = append(cells, c)
	}

	e.snapshot = newSnapshot(Static, d, key.Zoom, cells)
	e.key, e.keyValid = key, true
	e.misses++
	e.lastHit = false
	e.log.Printf("[SpatialEngine] static pass: %d cells from %d indexed points in %v", len(cells), idx.size, time.Since(start))
	return e.snapshot, true
}

// cellGround converts the pixel bbox of a cell to ground bounds.
func (e *Engine) cellGround(d grid.Discretizer, id grid.CellID) viewport.GroundBounds {
	bb := r2.RectFromPoints(d.Boundary(id, 0)...).ExpandedByMargin(1)
	return e.tr.ScreenBoundsToGround(viewport.ScreenBounds{
		NW: e.tr.FromWorld(bb.Lo()),
		SE: e.tr.FromWorld(bb.Hi()),
	})
}

func (e *Engine) newCell(d grid.Discretizer, id grid.CellID) *Cell {
	return &Cell{
		ID:       id,
		Center:   d.Center(id),
		Boundary: d.Boundary(id, e.opts.Padding),
	}
}

// aggregate fills c.Aggregate; failures leave the cell with count and
// attributes only.
func (e *Engine) aggregate(c *Cell) {
	if len(e.aggCfg) == 0 {
		return
	}
	agg, err := dataset.AggregateCellData(c.Attributes, e.aggCfg)
	if err != nil {
		e.log.Printf("[SpatialEngine] cell %s: %v", c.ID, err)
		return
	}
	c.Aggregate = agg.Fields
}

// screenPoints returns the cached located records inside the view.
func (e *Engine) screenPoints() []Datum {
	// World pixels depend on zoom, so a cache from another level is stale.
	z := e.tr.Zoom()
	if e.screenValid && e.screenZoom == z {
		return e.screen
	}
	e.screen = e.screen[:0]
	e.screenZoom = z
	for _, r := range e.records {
		if !r.Location.Valid {
			continue
		}
		s := e.tr.ToScreen(viewport.LatLng{Lat: r.Location.Lat, Lng: r.Location.Lng})
		if !e.tr.Contains(s) {
			continue
		}
		e.screen = append(e.screen, Datum{World: e.tr.ToWorld(s), Record: r})
	}
	e.screenValid = true
	return e.screen
}

func (e *Engine) recomputeDynamic(frame any) *Snapshot {
	e.dynamicRuns++
	if err := e.tr.Check(); err != nil {
		e.snapshot = emptySnapshot(Dynamic)
		return e.snapshot
	}
	d := e.discretizer()
	buckets := map[string]*Cell{}
	for _, pt := range e.screenPoints() {
		id := d.ColRow(pt.World.X, pt.World.Y)
		key := id.String()
		c, ok := buckets[key]
		if !ok {
			c = e.newCell(d, id)
			buckets[key] = c
		}
		c.Count++
		c.Attributes = append(c.Attributes, pt.Record)
		if e.opts.Aggregate != nil {
			e.callAggregate(c, pt, frame)
		}
	}
	cells := make([]*Cell, 0, len(buckets))
	for _, c := range buckets {
		e.aggregate(c)
		cells = append(cells, c)
	}
	e.snapshot = newSnapshot(Dynamic, d, e.tr.Zoom(), cells)
	return e.snapshot
}

func (e *Engine) callAggregate(c *Cell, pt Datum, frame any) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Printf("[SpatialEngine] aggregate callback for cell %s: %v", c.ID, r)
		}
	}()
	if c.Custom == nil {
		c.Custom = map[string]any{}
	}
	e.opts.Aggregate(c, pt, 1, e.opts.Global, frame)
}
