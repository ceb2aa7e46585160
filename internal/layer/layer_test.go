package layer

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/golang/geo/r2"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glyphmap/internal/dataset"
	"glyphmap/internal/glyph"
	"glyphmap/internal/spatial"
	"glyphmap/internal/viewport"
)

type countingSurface struct{ texts []string }

func (s *countingSurface) FillRect(r2.Rect, colorful.Color) {}
func (s *countingSurface) StrokeRect(r2.Rect, colorful.Color) {}
func (s *countingSurface) FillArc(r2.Point, float64, float64, float64, colorful.Color) {}
func (s *countingSurface) StrokeArc(r2.Point, float64, float64, float64, colorful.Color) {}
func (s *countingSurface) FillPath([]r2.Point, colorful.Color) {}
func (s *countingSurface) StrokePath([]r2.Point, bool, colorful.Color) {}
func (s *countingSurface) Text(_ r2.Point, t string, _ colorful.Color) { s.texts = append(s.texts, t) }
func (s *countingSurface) MeasureText(t string) float64 { return float64(len(t)) }

const csvText = `lat,lng,kind,score,level
47.5000,19.0500,cafe,4,low
47.5001,19.0501,bar,2,high
47.5001,19.0500,cafe,3,medium
`

func newLayer(t *testing.T) (*Layer, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	vp := viewport.NewMercator(viewport.LatLng{Lat: 47.5, Lng: 19.05}, 10, 400, 300)
	l := New(viewport.NewTransformer(vp), Options{Logger: log.New(buf, "", 0)})
	_, err := l.LoadData(context.Background(), csvText)
	require.NoError(t, err)
	return l, buf
}

func TestLoadAndSchema(t *testing.T) {
	l, buf := newLayer(t)
	assert.Len(t, l.Records(), 3)
	assert.Equal(t, []string{"lat", "lng", "score"}, l.FieldsByType(dataset.Numeric))
	assert.Equal(t, []string{"level"}, l.FieldsByType(dataset.Ordinal))
	assert.Equal(t, dataset.FieldStats{Min: 2, Max: 4, Mean: 3, Count: 3}, l.GlobalStats()["score"])
	assert.True(t, strings.HasPrefix(buf.String(), l.ID.String()[:8]+" "))
}

func TestLoadRejectsUnsupported(t *testing.T) {
	l, _ := newLayer(t)
	_, err := l.LoadData(context.Background(), 3.14)
	var ufe *dataset.UnsupportedFormatError
	assert.True(t, errors.As(err, &ufe))
	assert.Len(t, l.Records(), 3)
}

func TestSelectionDrivesAggregation(t *testing.T) {
	l, _ := newLayer(t)
	l.SetSelectedFields([]string{"score", "kind", "nope"})
	assert.Equal(t, dataset.AggregationConfig{"score": dataset.Mean, "kind": dataset.Frequency}, l.AggregationConfig())

	require.NoError(t, l.SetAggregation("score", dataset.Max))
	assert.Equal(t, dataset.Max, l.AggregationConfig()["score"])
	assert.Error(t, l.SetAggregation("score", "p95"))

	// Overrides survive reselection.
	l.SetSelectedFields([]string{"score"})
	assert.Equal(t, dataset.AggregationConfig{"score": dataset.Max}, l.AggregationConfig())

	snap := l.Recompute()
	require.Equal(t, 1, snap.Len())
	assert.Equal(t, 4.0, snap.Cells()[0].Aggregate["score"])
}

func TestSelectionInvalidatesCache(t *testing.T) {
	l, _ := newLayer(t)
	l.Recompute()
	l.Recompute()
	assert.Equal(t, 1, l.CacheStats().Hits)

	l.SetSelectedFields([]string{"kind"})
	l.Recompute()
	st := l.CacheStats()
	assert.Equal(t, 2, st.Misses)
	assert.False(t, st.LastHit)

	l.SetVisualizationConfig(glyph.Config{Kind: glyph.Pie})
	l.Recompute()
	assert.Equal(t, 3, l.CacheStats().Misses)
}

func TestReloadDropsMissingFields(t *testing.T) {
	l, _ := newLayer(t)
	l.SetSelectedFields([]string{"score", "kind"})
	_, err := l.LoadData(context.Background(), "lat,lng,score\n1,1,5\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"score"}, l.SelectedFields())
	assert.False(t, l.CacheStats().KeyValid)
}

func TestVisualizationConfigDefaults(t *testing.T) {
	l, _ := newLayer(t)
	assert.Equal(t, glyph.Text, l.VisualizationConfig().Kind)

	l.SetSelectedFields([]string{"kind"})
	cfg := l.VisualizationConfig()
	assert.Equal(t, glyph.Pie, cfg.Kind)
	assert.Equal(t, []string{"kind"}, cfg.Fields)

	l.SetVisualizationConfig(glyph.Config{Kind: glyph.Bar, Fields: []string{"score"}})
	assert.Equal(t, glyph.Bar, l.VisualizationConfig().Kind)
}

func TestRedraw(t *testing.T) {
	l, _ := newLayer(t)
	l.SetSelectedFields([]string{"kind"})
	l.SetVisualizationConfig(glyph.Config{Kind: glyph.Text})

	s := &countingSurface{}
	n := l.Redraw(s)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"cafe"}, s.texts)

	// A second redraw of the same view is served from the cache.
	l.Redraw(s)
	assert.Equal(t, 1, l.CacheStats().Hits)
}

func TestDynamicLayerRedrawsLastPass(t *testing.T) {
	l, _ := newLayer(t)
	l.Engine().SetMode(spatial.Dynamic)
	s := &countingSurface{}
	assert.Equal(t, 0, l.Redraw(s))

	l.Recompute()
	assert.Equal(t, 1, l.Redraw(s))
	assert.Equal(t, 1, l.CacheStats().DynamicRecomputes)
	l.Close()
}
