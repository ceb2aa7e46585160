// Package layer is the entry point for embedding a glyph map layer: it ties
// loading, aggregation and drawing together behind one type.
package layer

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/google/uuid"

	"glyphmap/internal/dataset"
	"glyphmap/internal/glyph"
	"glyphmap/internal/spatial"
	"glyphmap/internal/viewport"
)

// Options configures a Layer.
type Options struct {
	Engine spatial.Options
	Load   dataset.LoadOptions
	Viz    glyph.Config
	// Logger is the base logger; the layer prefixes it with its id.
	Logger *log.Logger
}

// Layer is one glyph map layer over a host viewport.
type Layer struct {
	ID uuid.UUID

	log    *log.Logger
	proc   *dataset.Processor
	engine *spatial.Engine
	load   dataset.LoadOptions

	mu        sync.Mutex
	selected  []string
	overrides map[string]dataset.AggregationKind
	agg       dataset.AggregationConfig
	viz       glyph.Config
}

// New creates a layer reading the view through tr.
func New(tr *viewport.Transformer, opts Options) *Layer {
	id := uuid.New()
	base := opts.Logger
	if base == nil {
		base = log.Default()
	}
	lg := log.New(base.Writer(), fmt.Sprintf("%s%s ", base.Prefix(), id.String()[:8]), base.Flags())
	eo := opts.Engine
	eo.Logger = lg
	return &Layer{
		ID:        id,
		log:       lg,
		proc:      dataset.NewProcessor(lg),
		engine:    spatial.New(tr, eo),
		load:      opts.Load,
		overrides: map[string]dataset.AggregationKind{},
		viz:       opts.Viz,
	}
}

// Engine exposes the spatial engine for hosts that need cache diagnostics
// or mode switches.
func (l *Layer) Engine() *spatial.Engine { return l.engine }

// LoadData replaces the layer's records. Selected fields that no longer
// exist are dropped and both caches are invalidated.
func (l *Layer) LoadData(ctx context.Context, source any) ([]dataset.Record, error) {
	recs, err := l.proc.LoadData(ctx, source, l.load)
	if err != nil {
		return nil, err
	}
	l.engine.SetRecords(recs)

	l.mu.Lock()
	defer l.mu.Unlock()
	schema := l.proc.Schema()
	kept := l.selected[:0:0]
	for _, f := range l.selected {
		if _, ok := schema.Field(f); ok {
			kept = append(kept, f)
		}
	}
	l.applySelection(kept)
	l.engine.InvalidateDynamicCache()
	return recs, nil
}

// Schema returns the schema of the current load.
func (l *Layer) Schema() dataset.Schema { return l.proc.Schema() }

// Records returns the current records.
func (l *Layer) Records() []dataset.Record { return l.proc.Records() }

// FieldsByType lists fields of type t.
func (l *Layer) FieldsByType(t dataset.DataType) []string { return l.proc.FieldsByType(t) }

// GlobalStats returns numeric field summaries over the whole load.
func (l *Layer) GlobalStats() map[string]dataset.FieldStats { return l.proc.GlobalStats() }

// SetSelectedFields chooses the fields to aggregate. The aggregation config
// is derived from the schema, keeping per-field overrides, and the static
// cache is invalidated.
func (l *Layer) SetSelectedFields(fields []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.applySelection(slices.Clone(fields))
}

func (l *Layer) applySelection(fields []string) {
	l.selected = fields
	cfg := l.proc.DefaultAggregation(fields)
	for f, k := range l.overrides {
		if _, ok := cfg[f]; ok {
			cfg[f] = k
		}
	}
	l.agg = cfg
	l.engine.SetAggregation(cfg)
	l.log.Printf("[Layer] selected %v", fields)
}

// SelectedFields returns the current selection.
func (l *Layer) SelectedFields() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.selected)
}

// SetAggregation overrides the aggregation kind of one field.
func (l *Layer) SetAggregation(field string, kind dataset.AggregationKind) error {
	k, err := dataset.ParseKind(string(kind))
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.overrides[field] = k
	l.applySelection(l.selected)
	return nil
}

// AggregationConfig returns a copy of the active config.
func (l *Layer) AggregationConfig() dataset.AggregationConfig {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(dataset.AggregationConfig, len(l.agg))
	for k, v := range l.agg {
		out[k] = v
	}
	return out
}

// SetVisualizationConfig replaces the chart config and invalidates the
// static cache.
func (l *Layer) SetVisualizationConfig(cfg glyph.Config) {
	l.mu.Lock()
	l.viz = cfg
	l.mu.Unlock()
	l.engine.InvalidateCache()
}

// VisualizationConfig returns the effective chart config: empty fields fall
// back to the selection and an empty kind to the suggestion for the first
// field's type.
func (l *Layer) VisualizationConfig() glyph.Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	cfg := l.viz
	if len(cfg.Fields) == 0 {
		cfg.Fields = slices.Clone(l.selected)
	}
	if cfg.Kind == "" {
		cfg.Kind = glyph.Text
		if len(cfg.Fields) > 0 {
			if fs, ok := l.proc.Schema().Field(cfg.Fields[0]); ok {
				cfg.Kind = glyph.Suggest(fs.Type)
			}
		}
	}
	return cfg
}

func (l *Layer) InvalidateCache()        { l.engine.InvalidateCache() }
func (l *Layer) InvalidateDynamicCache() { l.engine.InvalidateDynamicCache() }

// CacheStats reports the engine's cache state.
func (l *Layer) CacheStats() spatial.CacheStats { return l.engine.CacheStats() }

// Recompute runs an aggregation pass.
func (l *Layer) Recompute() *spatial.Snapshot { return l.engine.Recompute() }

// Snapshot returns the latest pass without recomputing.
func (l *Layer) Snapshot() *spatial.Snapshot { return l.engine.Snapshot() }

// HandleEvent forwards a host view event.
func (l *Layer) HandleEvent(ev spatial.Event) { l.engine.HandleEvent(ev) }

// Redraw draws the current snapshot onto s and returns the number of cells
// drawn. Static layers recompute first, which is a cache hit when the view
// is unchanged; dynamic layers draw their last debounced pass.
func (l *Layer) Redraw(s glyph.Surface) int {
	snap := l.engine.Snapshot()
	if l.engine.Mode() == spatial.Static {
		snap = l.engine.Recompute()
	}
	frame := glyph.Frame{
		Origin: l.engine.Transformer().Origin(),
		Stats:  l.proc.GlobalStats(),
	}
	return glyph.DrawSnapshot(s, snap, l.VisualizationConfig(), frame)
}

// Close cancels pending passes.
func (l *Layer) Close() {
	l.engine.Close()
	l.log.Printf("[Layer] closed")
}
