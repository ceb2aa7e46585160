// Package source maps file paths to load sources understood by
// dataset.Processor.
package source

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"glyphmap/internal/dataset"
	"glyphmap/internal/geom"
)

// Extensions lists the file extensions Open understands.
var Extensions = []string{".csv", ".tsv", ".geojson", ".json", ".kml", ".wkt", ".xlsx"}

// Supported reports whether path has a readable extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Source is one file read into a shape dataset.Processor.LoadData accepts.
type Source struct {
	Path string
	// Data is a string, *geojson.FeatureCollection or []map[string]any.
	Data any
	// Comma is the delimiter for text data.
	Comma rune
	// Features and Extent describe vector files and stay zero for tables.
	Features  int
	Extent    geom.BBox
	HasExtent bool
}

// Options merges the source's own settings into opts.
func (s Source) Options(opts dataset.LoadOptions) dataset.LoadOptions {
	if s.Comma != 0 {
		opts.Comma = s.Comma
	}
	return opts
}

// Open reads path according to its extension.
func Open(ctx context.Context, path string) (Source, error) {
	if err := ctx.Err(); err != nil {
		return Source{}, err
	}
	src := Source{Path: path}
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".tsv":
		var b []byte
		b, err = os.ReadFile(path)
		src.Data = string(b)
		if ext == ".tsv" {
			src.Comma = '\t'
		}
	case ".geojson", ".json":
		src.Data, err = geom.LoadGeoJSON(path)
	case ".kml":
		src.Data, err = geom.LoadKML(path)
	case ".wkt":
		src.Data, err = geom.LoadWKT(path)
	case ".xlsx":
		src.Data, err = dataset.ReadXLSX(path)
	default:
		return Source{}, fmt.Errorf("unsupported file: %q", ext)
	}
	if err != nil {
		return Source{}, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	if fc, ok := src.Data.(*geojson.FeatureCollection); ok {
		src.Features = geom.Count(fc)
		src.Extent, src.HasExtent = geom.Extent(fc)
		log.Printf("[Source] %s: %d features", filepath.Base(path), src.Features)
	}
	return src, nil
}

// Batch is the merged result of OpenAll.
type Batch struct {
	Records []dataset.Record
	// Features counts geometries across vector files; Extent is their
	// combined lon/lat bbox when HasExtent is set.
	Features  int
	Extent    geom.BBox
	HasExtent bool
}

func (b *Batch) add(src Source, recs []dataset.Record) {
	b.Records = append(b.Records, recs...)
	b.Features += src.Features
	if !src.HasExtent {
		return
	}
	if b.HasExtent {
		b.Extent = b.Extent.Union(src.Extent)
	} else {
		b.Extent, b.HasExtent = src.Extent, true
	}
}

// maxParallel bounds concurrent file reads in OpenAll.
const maxParallel = 4

// OpenAll reads and parses several files concurrently and returns their
// records concatenated in path order. The first failure cancels the rest.
func OpenAll(ctx context.Context, paths []string, opts dataset.LoadOptions) (Batch, error) {
	srcs := make([]Source, len(paths))
	parts := make([][]dataset.Record, len(paths))
	sem := semaphore.NewWeighted(maxParallel)
	g, ctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			src, err := Open(ctx, p)
			if err != nil {
				return err
			}
			recs, err := dataset.NewProcessor(nil).LoadData(ctx, src.Data, src.Options(opts))
			if err != nil {
				return fmt.Errorf("parse %s: %w", filepath.Base(p), err)
			}
			srcs[i], parts[i] = src, recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Batch{}, err
	}
	var b Batch
	for i := range paths {
		b.add(srcs[i], parts[i])
	}
	log.Printf("[Source] read %d files, %d records, %d features", len(paths), len(b.Records), b.Features)
	return b, nil
}
