package ingest

import (
	"context"
	"fmt"

	"github.com/citysafe/citysafe-backend/internal/complaints"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the persistence sink for the pipeline. The driver hands in its
// handle explicitly; there is no package-level database state here.
type Store interface {
	// SyncNeighborhoods makes every observed name durable and returns the
	// full folded-name→id mapping (pre-existing names included) plus how
	// many rows were created. Idempotent by natural key.
	SyncNeighborhoods(ctx context.Context, observed []NameBorough) (map[string]uint, int, error)

	// InsertBatch persists one batch of enriched records in a single
	// transaction. An error means the whole batch rolled back; previously
	// committed batches are unaffected.
	InsertBatch(ctx context.Context, records []EnrichedRecord) error
}

// GormStore implements Store on the gorm Postgres handle the rest of the
// repo uses.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) SyncNeighborhoods(ctx context.Context, observed []NameBorough) (map[string]uint, int, error) {
	var existing []complaints.Neighborhood
	if err := s.db.WithContext(ctx).Find(&existing).Error; err != nil {
		return nil, 0, fmt.Errorf("load neighborhoods: %w", err)
	}

	missing := planNeighborhoods(existing, observed)

	created := 0
	if len(missing) > 0 {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for i := range missing {
				// DoNothing on the name key keeps a concurrent or repeated
				// run from erroring out on the same new neighborhood.
				res := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "name"}},
					DoNothing: true,
				}).Create(&missing[i])
				if res.Error != nil {
					return fmt.Errorf("create neighborhood %q: %w", missing[i].Name, res.Error)
				}
				created += int(res.RowsAffected)
			}
			return nil
		})
		if err != nil {
			return nil, 0, err
		}

		// Reload so the mapping carries database-assigned ids.
		if err := s.db.WithContext(ctx).Find(&existing).Error; err != nil {
			return nil, 0, fmt.Errorf("reload neighborhoods: %w", err)
		}
	}

	mapping := make(map[string]uint, len(existing))
	for _, n := range existing {
		mapping[foldName(n.Name)] = n.ID
	}
	return mapping, created, nil
}

// planNeighborhoods returns the observed entries with no existing row under
// the folded natural key. Pure, so the idempotence contract is testable
// without a database.
func planNeighborhoods(existing []complaints.Neighborhood, observed []NameBorough) []complaints.Neighborhood {
	known := make(map[string]struct{}, len(existing))
	for _, n := range existing {
		known[foldName(n.Name)] = struct{}{}
	}

	var missing []complaints.Neighborhood
	for _, nb := range observed {
		key := foldName(nb.Name)
		if key == "" {
			continue
		}
		if _, ok := known[key]; ok {
			continue
		}
		known[key] = struct{}{}
		missing = append(missing, complaints.Neighborhood{Name: nb.Name, Borough: nb.Borough})
	}
	return missing
}

func (s *GormStore) InsertBatch(ctx context.Context, records []EnrichedRecord) error {
	rows := make([]complaints.Complaint, 0, len(records))
	for _, rec := range records {
		rows = append(rows, toComplaint(rec))
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert complaint batch: %w", err)
		}
		return nil
	})
}

func toComplaint(e EnrichedRecord) complaints.Complaint {
	return complaints.Complaint{
		CmplntNum:        e.CmplntNum,
		AddrPctCd:        e.AddrPctCd,
		BoroNm:           e.BoroNm,
		CmplntFrDt:       e.CmplntFrDt,
		CmplntFrTm:       e.CmplntFrTm,
		CmplntToDt:       e.CmplntToDt,
		CmplntToTm:       e.CmplntToTm,
		CrmAtptCptdCd:    e.CrmAtptCptdCd,
		Hadevelopt:       e.Hadevelopt,
		HousingPsa:       e.HousingPsa,
		JurisdictionCode: e.JurisdictionCode,
		JurisDesc:        e.JurisDesc,
		KyCd:             e.KyCd,
		LawCatCd:         e.LawCatCd,
		LocOfOccurDesc:   e.LocOfOccurDesc,
		OfnsDesc:         e.OfnsDesc,
		ParksNm:          e.ParksNm,
		PatrolBoro:       e.PatrolBoro,
		PdCd:             e.PdCd,
		PdDesc:           e.PdDesc,
		PremTypDesc:      e.PremTypDesc,
		RptDt:            e.RptDt,
		StationName:      e.StationName,
		SuspAgeGroup:     e.SuspAgeGroup,
		SuspRace:         e.SuspRace,
		SuspSex:          e.SuspSex,
		TransitDistrict:  e.TransitDistrict,
		VicAgeGroup:      e.VicAgeGroup,
		VicRace:          e.VicRace,
		VicSex:           e.VicSex,
		XCoordCd:         e.XCoordCd,
		YCoordCd:         e.YCoordCd,
		Latitude:         e.Latitude,
		Longitude:        e.Longitude,
		LatLon:           e.LatLon,
		GeocodedColumn:   e.GeocodedColumn,
		NeighborhoodID:   e.NeighborhoodID,
	}
}
