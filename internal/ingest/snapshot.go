package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
)

// The snapshot is the full enriched dataset of the last successful run,
// written as a flat CSV (feed columns plus NTAName). The next run diffs
// against it by full-row equality, so field encoding must be deterministic:
// same canonical record, same snapshot fields, every run.

const snapshotNameColumn = "NTAName"

func snapshotHeader() []string {
	return append(append([]string{}, feedColumns...), snapshotNameColumn)
}

// snapshotFields renders one enriched record in snapshot column order. The
// neighborhood id is deliberately left out: ids are registry-local, and two
// runs must agree on row identity using feed data plus resolved name only.
func snapshotFields(e EnrichedRecord) []string {
	return []string{
		e.CmplntNum,
		encodeInt(e.AddrPctCd),
		e.BoroNm,
		encodeDate(e.CmplntFrDt),
		e.CmplntFrTm,
		encodeDate(e.CmplntToDt),
		e.CmplntToTm,
		e.CrmAtptCptdCd,
		e.Hadevelopt,
		encodeInt(e.HousingPsa),
		encodeInt(e.JurisdictionCode),
		e.JurisDesc,
		encodeInt(e.KyCd),
		e.LawCatCd,
		e.LocOfOccurDesc,
		e.OfnsDesc,
		e.ParksNm,
		e.PatrolBoro,
		encodeInt(e.PdCd),
		e.PdDesc,
		e.PremTypDesc,
		encodeDate(e.RptDt),
		e.StationName,
		e.SuspAgeGroup,
		e.SuspRace,
		e.SuspSex,
		encodeInt(e.TransitDistrict),
		e.VicAgeGroup,
		e.VicRace,
		e.VicSex,
		encodeInt(e.XCoordCd),
		encodeInt(e.YCoordCd),
		encodeFloat(e.Latitude),
		encodeFloat(e.Longitude),
		e.LatLon,
		e.GeocodedColumn,
		e.NTAName,
	}
}

func encodeInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func encodeFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func encodeDate(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.Format(feedDateLayout)
}

// rowKey joins snapshot fields with a separator that cannot occur in CSV
// field content, so equality does not depend on quoting details.
func rowKey(fields []string) string {
	return strings.Join(fields, "\x1f")
}

// SnapshotSet is the previous snapshot reduced to a membership test over
// full rows.
type SnapshotSet map[string]struct{}

// LoadSnapshot reads the previous snapshot into a row set. A missing file is
// a first run: empty set, no error.
func LoadSnapshot(path string) (SnapshotSet, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return SnapshotSet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(bufio.NewReader(f))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	set := make(SnapshotSet, len(records))
	for i, rec := range records {
		if i == 0 {
			continue // header
		}
		set[rowKey(rec)] = struct{}{}
	}
	return set, nil
}

// WriteSnapshot replaces the snapshot at path atomically: the new content is
// written beside it and renamed into place, so a crash mid-write leaves the
// previous snapshot intact. Callers invoke this only after the database
// commit succeeds.
func WriteSnapshot(path string, records []EnrichedRecord) error {
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create snapshot temp: %w", err)
	}

	w := csv.NewWriter(bufio.NewWriter(f))
	if err := w.Write(snapshotHeader()); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write snapshot header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(snapshotFields(rec)); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("write snapshot row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("flush snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close snapshot: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rotate snapshot: %w", err)
	}
	return nil
}
