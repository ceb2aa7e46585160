package geom

import (
	"encoding/xml"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type kmlCoords struct {
	Coordinates string `xml:"coordinates"`
}

type kmlPolygon struct {
	Outer kmlCoords   `xml:"outerBoundaryIs>LinearRing"`
	Inner []kmlCoords `xml:"innerBoundaryIs>LinearRing"`
}

type kmlData struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

type kmlPlacemark struct {
	Name        string      `xml:"name"`
	Description string      `xml:"description"`
	Point       *kmlCoords  `xml:"Point"`
	LineString  *kmlCoords  `xml:"LineString"`
	Polygon     *kmlPolygon `xml:"Polygon"`
	Data        []kmlData   `xml:"ExtendedData>Data"`
}

// LoadKML reads Placemarks (Point, LineString, Polygon) from a KML file.
// See ParseKML.
func LoadKML(path string) (*geojson.FeatureCollection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseKML(f)
}

// ParseKML converts Placemarks to features. The placemark name,
// description and ExtendedData values become properties. KML coordinates are
// "lon,lat[,alt]"; altitude is ignored.
func ParseKML(r io.Reader) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Placemark" {
			continue
		}
		var pm kmlPlacemark
		if err := dec.DecodeElement(&pm, &se); err != nil {
			return nil, err
		}
		g := pm.geometry()
		if g == nil {
			continue
		}
		f := geojson.NewFeature(g)
		if pm.Name != "" {
			f.Properties["name"] = strings.TrimSpace(pm.Name)
		}
		if d := strings.TrimSpace(pm.Description); d != "" {
			f.Properties["description"] = d
		}
		for _, d := range pm.Data {
			if d.Name != "" {
				f.Properties[d.Name] = strings.TrimSpace(d.Value)
			}
		}
		fc.Append(f)
	}
	if len(fc.Features) == 0 {
		return nil, errors.New("kml: no placemarks with geometry found")
	}
	return fc, nil
}

func (pm kmlPlacemark) geometry() orb.Geometry {
	switch {
	case pm.Point != nil:
		pts := parseTuples(pm.Point.Coordinates)
		switch len(pts) {
		case 0:
			return nil
		case 1:
			return pts[0]
		}
		return orb.MultiPoint(pts)
	case pm.LineString != nil:
		pts := parseTuples(pm.LineString.Coordinates)
		if len(pts) == 0 {
			return nil
		}
		return orb.LineString(pts)
	case pm.Polygon != nil:
		outer := parseTuples(pm.Polygon.Outer.Coordinates)
		if len(outer) == 0 {
			return nil
		}
		poly := orb.Polygon{orb.Ring(outer)}
		for _, in := range pm.Polygon.Inner {
			if pts := parseTuples(in.Coordinates); len(pts) > 0 {
				poly = append(poly, orb.Ring(pts))
			}
		}
		return poly
	}
	return nil
}

// parseTuples splits whitespace separated "lon,lat[,alt]" tuples, skipping
// malformed ones.
func parseTuples(s string) []orb.Point {
	var out []orb.Point
	for _, tuple := range strings.Fields(s) {
		vals := strings.Split(tuple, ",")
		if len(vals) < 2 {
			continue
		}
		lon, err1 := strconv.ParseFloat(strings.TrimSpace(vals[0]), 64)
		lat, err2 := strconv.ParseFloat(strings.TrimSpace(vals[1]), 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, orb.Point{lon, lat})
	}
	return out
}
