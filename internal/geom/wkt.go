package geom

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
)

// LoadWKT reads a file of WKT geometries, one per line. See ParseWKT.
func LoadWKT(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseWKT(string(data))
}

// ParseWKT parses one WKT geometry per non-empty line. Lines starting with
// '#' are skipped. A GEOMETRYCOLLECTION becomes one feature per member. Each
// feature gets a "line" property with its 1-based source line.
func ParseWKT(text string) (*geojson.FeatureCollection, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty wkt")
	}
	fc := geojson.NewFeatureCollection()
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		g, err := wkt.Unmarshal(s)
		if err != nil {
			return nil, fmt.Errorf("wkt line %d: %w", line, err)
		}
		members := []orb.Geometry{g}
		if c, ok := g.(orb.Collection); ok {
			members = c
		}
		for _, m := range members {
			f := geojson.NewFeature(m)
			f.Properties["line"] = line
			fc.Append(f)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(fc.Features) == 0 {
		return nil, errors.New("wkt: no geometries parsed")
	}
	return fc, nil
}
