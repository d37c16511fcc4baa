package ingest

import (
	"strings"

	"github.com/citysafe/citysafe-backend/internal/geo"
	"golang.org/x/text/cases"
)

// EnrichedRecord is a canonical record plus its resolved neighborhood. The
// name is attached during enrichment; the durable id only after registry
// sync has committed, so a freshly enriched record always has a nil id.
type EnrichedRecord struct {
	CanonicalRecord
	NTAName        string
	NeighborhoodID *uint
}

// Enrich attaches the containing region's name to a record. Side-effect-free
// apart from the resolver's miss counter; records outside every region (or
// with missing coordinates) keep an empty name.
func Enrich(rec CanonicalRecord, resolver *geo.Resolver) EnrichedRecord {
	name, ok := resolver.ResolveCoords(rec.Longitude, rec.Latitude)
	if !ok {
		name = ""
	}
	return EnrichedRecord{CanonicalRecord: rec, NTAName: name}
}

// NameBorough pairs an observed neighborhood name with its first-observed
// borough, the unit the registry syncs on.
type NameBorough struct {
	Name    string
	Borough string
}

// CollectNeighborhoods gathers the distinct trimmed neighborhood names seen
// in enriched data, each with the borough of the first record that carried
// it ("Unknown" when the record's borough field is blank).
func CollectNeighborhoods(records []EnrichedRecord) []NameBorough {
	seen := make(map[string]struct{})
	var out []NameBorough
	for _, rec := range records {
		name := strings.TrimSpace(rec.NTAName)
		if name == "" {
			continue
		}
		key := foldName(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		boro := strings.TrimSpace(rec.BoroNm)
		if boro == "" {
			boro = "Unknown"
		}
		out = append(out, NameBorough{Name: name, Borough: boro})
	}
	return out
}

// AttachNeighborhoodIDs is the lookup phase of enrichment, sequenced after
// registry sync so the mapping covers every name just created. Names absent
// from the mapping leave the id nil.
func AttachNeighborhoodIDs(records []EnrichedRecord, mapping map[string]uint) {
	for i := range records {
		name := strings.TrimSpace(records[i].NTAName)
		if name == "" {
			continue
		}
		if id, ok := mapping[foldName(name)]; ok {
			v := id
			records[i].NeighborhoodID = &v
		}
	}
}

// foldName is the registry's natural-key normalization: trimmed and
// case-folded, so "Chelsea-Hudson Yards" and "CHELSEA-HUDSON YARDS" are the
// same neighborhood. Casers are stateful, so each call gets its own.
func foldName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}
