package geo

// Resolver answers "which region contains this point". A miss is a normal
// outcome (water, out-of-city coordinates, blank fields), so it is counted
// rather than surfaced as an error.
type Resolver struct {
	regions    []Region
	unresolved int
}

func NewResolver(regions []Region) *Resolver {
	return &Resolver{regions: regions}
}

// Resolve returns the name of the first region containing p, in region load
// order. Overlapping regions are not deduplicated; first match wins.
func (r *Resolver) Resolve(p Point) (string, bool) {
	for _, region := range r.regions {
		for _, poly := range region.Polys {
			if !inBBox(p, poly.BBox) {
				continue
			}
			if pointInPolygon(p, poly) {
				return region.Name, true
			}
		}
	}
	r.unresolved++
	return "", false
}

// ResolveCoords handles the nullable coordinate fields from a normalized
// record: either missing coordinate means unresolved.
func (r *Resolver) ResolveCoords(lon, lat *float64) (string, bool) {
	if lon == nil || lat == nil {
		r.unresolved++
		return "", false
	}
	return r.Resolve(Point{Lon: *lon, Lat: *lat})
}

// Unresolved reports how many lookups found no containing region.
func (r *Resolver) Unresolved() int {
	return r.unresolved
}

func inBBox(p Point, b [4]float64) bool {
	return p.Lon >= b[0] && p.Lon <= b[2] && p.Lat >= b[1] && p.Lat <= b[3]
}

// pointInPolygon hits when p is inside the outer ring and outside every hole.
func pointInPolygon(p Point, poly Polygon) bool {
	if len(poly.Rings) == 0 {
		return false
	}
	if !pointInRing(p, poly.Rings[0]) {
		return false
	}
	for i := 1; i < len(poly.Rings); i++ {
		if pointInRing(p, poly.Rings[i]) {
			return false
		}
	}
	return true
}

// pointInRing is the even-odd ray cast. The epsilon keeps the division
// stable when an edge is nearly horizontal.
func pointInRing(p Point, ring []Point) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i].Lon, ring[i].Lat
		xj, yj := ring[j].Lon, ring[j].Lat
		if (yi > p.Lat) != (yj > p.Lat) &&
			p.Lon < (xj-xi)*(p.Lat-yi)/(yj-yi+1e-12)+xi {
			inside = !inside
		}
	}
	return inside
}
