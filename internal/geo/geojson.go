package geo

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Point is a WGS84 coordinate. The feed and the region file share the same
// reference frame, so no reprojection happens here.
type Point struct {
	Lon float64
	Lat float64
}

// Polygon follows the GeoJSON ring convention: the first ring is the outer
// boundary, any further rings are holes.
type Polygon struct {
	Rings [][]Point
	BBox  [4]float64 // minLon, minLat, maxLon, maxLat
}

// Region is one named area from the region file. Order matters: the resolver
// assigns a point to the first region that contains it.
type Region struct {
	Name  string
	Polys []Polygon
}

type geoJSONFile struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

type geoJSONFeature struct {
	Properties map[string]json.RawMessage `json:"properties"`
	Geometry   geoJSONGeometry            `json:"geometry"`
}

type geoJSONGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// LoadRegions reads a GeoJSON FeatureCollection and returns its features as
// named regions, preserving file order. nameProperty selects which feature
// property carries the region name (NTAName for the NYC neighborhood file).
// Features with an empty name or an unsupported geometry type are skipped.
func LoadRegions(path, nameProperty string) ([]Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read region file: %w", err)
	}

	var file geoJSONFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse region file: %w", err)
	}
	if !strings.EqualFold(file.Type, "FeatureCollection") {
		return nil, fmt.Errorf("region file is %q, want FeatureCollection", file.Type)
	}

	var regions []Region
	for _, f := range file.Features {
		name := propertyString(f.Properties, nameProperty)
		if name == "" {
			continue
		}

		polys, err := parseGeometry(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("region %q: %w", name, err)
		}
		if len(polys) == 0 {
			continue
		}

		regions = append(regions, Region{Name: name, Polys: polys})
	}

	return regions, nil
}

func propertyString(props map[string]json.RawMessage, key string) string {
	raw, ok := props[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func parseGeometry(g geoJSONGeometry) ([]Polygon, error) {
	switch strings.ToLower(g.Type) {
	case "polygon":
		var rings [][][2]float64
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return nil, fmt.Errorf("polygon coordinates: %w", err)
		}
		return []Polygon{buildPolygon(rings)}, nil

	case "multipolygon":
		var parts [][][][2]float64
		if err := json.Unmarshal(g.Coordinates, &parts); err != nil {
			return nil, fmt.Errorf("multipolygon coordinates: %w", err)
		}
		polys := make([]Polygon, 0, len(parts))
		for _, rings := range parts {
			polys = append(polys, buildPolygon(rings))
		}
		return polys, nil

	default:
		// Point/LineString features carry no area; nothing to resolve against.
		return nil, nil
	}
}

func buildPolygon(rings [][][2]float64) Polygon {
	var poly Polygon
	for _, ring := range rings {
		pts := make([]Point, 0, len(ring))
		for _, c := range ring {
			pts = append(pts, Point{Lon: c[0], Lat: c[1]})
		}
		poly.Rings = append(poly.Rings, pts)
	}
	poly.BBox = boundingBox(poly)
	return poly
}

func boundingBox(p Polygon) [4]float64 {
	b := [4]float64{180, 90, -180, -90}
	for _, ring := range p.Rings {
		for _, pt := range ring {
			if pt.Lon < b[0] {
				b[0] = pt.Lon
			}
			if pt.Lat < b[1] {
				b[1] = pt.Lat
			}
			if pt.Lon > b[2] {
				b[2] = pt.Lon
			}
			if pt.Lat > b[3] {
				b[3] = pt.Lat
			}
		}
	}
	return b
}
