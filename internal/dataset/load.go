package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LoadOptions controls how a source becomes records.
type LoadOptions struct {
	// LatField and LngField name the location fields. Feature collections
	// get them injected; other sources read them when present. Empty means
	// "lat"/"lng" for injection and column auto-detection for reading.
	LatField string
	LngField string
	// Comma is the delimiter of text sources; ',' when zero.
	Comma rune
}

func (o LoadOptions) injectNames() (lat, lng string) {
	lat, lng = o.LatField, o.LngField
	if lat == "" {
		lat = "lat"
	}
	if lng == "" {
		lng = "lng"
	}
	return lat, lng
}

// Processor holds the records of the most recent load together with their
// schema and global statistics.
type Processor struct {
	records []Record
	schema  Schema
	stats   map[string]FieldStats
	logger  *log.Logger
}

func NewProcessor(logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.Default()
	}
	return &Processor{logger: logger, schema: DetectSchema(nil), stats: map[string]FieldStats{}}
}

// LoadData parses source and replaces the current records. Recognised
// sources are delimited text (string), *geojson.FeatureCollection, and
// []map[string]any, []Record or a []any mixing the two. Anything else fails with
// *UnsupportedFormatError and leaves the previous load in place.
func (p *Processor) LoadData(ctx context.Context, source any, opts LoadOptions) ([]Record, error) {
	var (
		recs []Record
		err  error
	)
	switch src := source.(type) {
	case string:
		recs, err = parseDelimited(ctx, src, opts)
	case *geojson.FeatureCollection:
		if src == nil {
			return nil, &UnsupportedFormatError{Source: source}
		}
		recs, err = fromFeatures(ctx, src, opts)
	case []map[string]any:
		recs, err = fromMaps(ctx, src, opts)
	case []Record:
		recs = append([]Record(nil), src...)
	case []any:
		recs, err = fromAny(ctx, src, opts)
	default:
		return nil, &UnsupportedFormatError{Source: source}
	}
	if err != nil {
		return nil, err
	}

	p.records = recs
	p.schema = DetectSchema(recs)
	p.stats = ComputeGlobalStats(recs, p.schema)
	located := 0
	for _, r := range recs {
		if r.Location.Valid {
			located++
		}
	}
	p.logger.Printf("[Processor] loaded %d records (%d located, %d fields)", len(recs), located, len(p.schema.Fields))
	return recs, nil
}

func (p *Processor) Records() []Record { return p.records }
func (p *Processor) Schema() Schema    { return p.schema }

// FieldsByType lists the fields of type t.
func (p *Processor) FieldsByType(t DataType) []string { return p.schema.ByType(t) }

// GlobalStats returns min/max/mean/count for numeric fields.
func (p *Processor) GlobalStats() map[string]FieldStats { return p.stats }

// DefaultAggregation derives an aggregation config for fields from the
// current schema.
func (p *Processor) DefaultAggregation(fields []string) AggregationConfig {
	return DefaultAggregation(p.schema, fields)
}

func parseDelimited(ctx context.Context, text string, opts LoadOptions) ([]Record, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	if opts.Comma != 0 {
		r.Comma = opts.Comma
	}
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("csv: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("csv: header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	latF, lngF := locationFields(header, opts)

	var out []Record
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", line, err)
		}
		vals := make(map[string]any, len(header))
		for i, h := range header {
			if i < len(row) {
				vals[h] = Coerce(row[i])
			} else {
				vals[h] = nil
			}
		}
		out = append(out, NewRecord(header, vals, locate(vals, latF, lngF)))
	}
	return out, nil
}

func fromFeatures(ctx context.Context, fc *geojson.FeatureCollection, opts LoadOptions) ([]Record, error) {
	latF, lngF := opts.injectNames()
	out := make([]Record, 0, len(fc.Features))
	for _, f := range fc.Features {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f == nil {
			continue
		}
		fields := make([]string, 0, len(f.Properties)+2)
		vals := make(map[string]any, len(f.Properties)+2)
		for _, k := range sortedKeys(f.Properties) {
			if k == latF || k == lngF {
				continue
			}
			fields = append(fields, k)
			vals[k] = f.Properties[k]
		}
		var loc Location
		if f.Geometry != nil {
			var pt orb.Point
			if p, ok := f.Geometry.(orb.Point); ok {
				pt = p
			} else {
				pt = f.Geometry.Bound().Center()
			}
			loc = Location{Lat: pt.Lat(), Lng: pt.Lon(), Valid: true}
			fields = append(fields, latF, lngF)
			vals[latF], vals[lngF] = pt.Lat(), pt.Lon()
		}
		out = append(out, NewRecord(fields, vals, loc))
	}
	return out, nil
}

func fromMaps(ctx context.Context, rows []map[string]any, opts LoadOptions) ([]Record, error) {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, mapRecord(row, opts))
	}
	return out, nil
}

func mapRecord(row map[string]any, opts LoadOptions) Record {
	keys := sortedKeys(row)
	latF, lngF := locationFields(keys, opts)
	return NewRecord(keys, row, locate(row, latF, lngF))
}

// fromAny accepts the array shape encoding/json decodes to. Each element must
// be a map or a Record.
func fromAny(ctx context.Context, rows []any, opts LoadOptions) ([]Record, error) {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch r := row.(type) {
		case map[string]any:
			out = append(out, mapRecord(r, opts))
		case Record:
			out = append(out, r)
		default:
			return nil, &UnsupportedFormatError{Source: rows}
		}
	}
	return out, nil
}

// locationFields picks the lat/lng columns: the configured names, else the
// first header matching lat|latitude|y and lon|lng|long|longitude|x.
func locationFields(header []string, opts LoadOptions) (lat, lng string) {
	lat, lng = opts.LatField, opts.LngField
	for _, h := range header {
		switch strings.ToLower(h) {
		case "lat", "latitude", "y":
			if lat == "" {
				lat = h
			}
		case "lon", "lng", "long", "longitude", "x":
			if lng == "" {
				lng = h
			}
		}
	}
	return lat, lng
}

func locate(vals map[string]any, latF, lngF string) Location {
	if latF == "" || lngF == "" {
		return Location{}
	}
	lat, ok1 := ToNumber(vals[latF])
	lng, ok2 := ToNumber(vals[lngF])
	if !ok1 || !ok2 {
		return Location{}
	}
	return Location{Lat: lat, Lng: lng, Valid: true}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
