package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/citysafe/citysafe-backend/internal/complaints"
)

// memStore implements Store without a database, mirroring the registry's
// fold-matching id assignment.
type memStore struct {
	neighborhoods []complaints.Neighborhood
	inserted      []EnrichedRecord
	failInsert    bool
	failSync      bool
}

func (m *memStore) SyncNeighborhoods(ctx context.Context, observed []NameBorough) (map[string]uint, int, error) {
	if m.failSync {
		return nil, 0, errors.New("sink unavailable")
	}
	missing := planNeighborhoods(m.neighborhoods, observed)
	for i := range missing {
		missing[i].ID = uint(len(m.neighborhoods) + 1)
		m.neighborhoods = append(m.neighborhoods, missing[i])
	}
	mapping := make(map[string]uint, len(m.neighborhoods))
	for _, n := range m.neighborhoods {
		mapping[foldName(n.Name)] = n.ID
	}
	return mapping, len(missing), nil
}

func (m *memStore) InsertBatch(ctx context.Context, records []EnrichedRecord) error {
	if m.failInsert {
		return errors.New("constraint violation")
	}
	m.inserted = append(m.inserted, records...)
	return nil
}

const chelseaGeoJSON = `{
	"type": "FeatureCollection",
	"features": [{
		"properties": {"NTAName": "Chelsea-Hudson Yards"},
		"geometry": {"type": "Polygon", "coordinates": [[[-74.01,40.74],[-73.99,40.74],[-73.99,40.76],[-74.01,40.76],[-74.01,40.74]]]}
	}]
}`

func testConfig(t *testing.T, feedCSV string) Config {
	t.Helper()
	dir := t.TempDir()

	feedPath := filepath.Join(dir, "feed.csv")
	if err := os.WriteFile(feedPath, []byte(feedCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	regionsPath := filepath.Join(dir, "neighborhoods.geojson")
	if err := os.WriteFile(regionsPath, []byte(chelseaGeoJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	return Config{
		FeedFile:     feedPath,
		RegionsPath:  regionsPath,
		NameProperty: "NTAName",
		SnapshotPath: filepath.Join(dir, "snapshot.csv"),
		BatchSize:    2,
	}
}

func feedCSV(rows ...string) string {
	out := "CMPLNT_NUM,BORO_NM,CMPLNT_FR_DT,OFNS_DESC,Latitude,Longitude\n"
	for _, r := range rows {
		out += r + "\n"
	}
	return out
}

// One in-area row against an empty registry: exactly one neighborhood is
// created and the inserted complaint references its id.
func TestRun_CreatesNeighborhoodAndLinksComplaint(t *testing.T) {
	cfg := testConfig(t, feedCSV(`100,MANHATTAN,05/26/2025,ROBBERY,40.75,-74.0`))
	store := &memStore{}

	sum, err := NewRunner(cfg, store, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if sum.Stage != StageDone {
		t.Errorf("expected stage done, got %s", sum.Stage)
	}
	if sum.NeighborhoodsCreated != 1 {
		t.Fatalf("expected 1 neighborhood created, got %d", sum.NeighborhoodsCreated)
	}
	n := store.neighborhoods[0]
	if n.Name != "Chelsea-Hudson Yards" || n.Borough != "MANHATTAN" {
		t.Errorf("unexpected neighborhood: %+v", n)
	}

	if sum.RowsInserted != 1 || len(store.inserted) != 1 {
		t.Fatalf("expected 1 insert, got summary=%d store=%d", sum.RowsInserted, len(store.inserted))
	}
	got := store.inserted[0]
	if got.NeighborhoodID == nil || *got.NeighborhoodID != n.ID {
		t.Errorf("complaint should reference neighborhood %d, got %v", n.ID, got.NeighborhoodID)
	}
}

// The same feed run twice: the second run diffs against the rotated
// snapshot and inserts nothing.
func TestRun_SecondRunInsertsNothing(t *testing.T) {
	cfg := testConfig(t, feedCSV(
		`100,MANHATTAN,05/26/2025,ROBBERY,40.75,-74.0`,
		`101,MANHATTAN,05/27/2025,ASSAULT,40.755,-74.005`,
	))
	store := &memStore{}
	runner := NewRunner(cfg, store, nil)

	first, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if first.RowsInserted != 2 {
		t.Fatalf("first run: expected 2 inserts, got %d", first.RowsInserted)
	}

	second, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if second.RowsInserted != 0 {
		t.Errorf("second run: expected 0 rows to insert, got %d", second.RowsInserted)
	}
	if second.NeighborhoodsCreated != 0 {
		t.Errorf("second run: expected no new neighborhoods, got %d", second.NeighborhoodsCreated)
	}
}

// A row with an unparseable date is still inserted, date absent.
func TestRun_BadDateStillInserted(t *testing.T) {
	cfg := testConfig(t, feedCSV(`100,MANHATTAN,not-a-date,ROBBERY,40.75,-74.0`))
	store := &memStore{}

	sum, err := NewRunner(cfg, store, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if sum.RowsInserted != 1 {
		t.Fatalf("expected row inserted despite bad date, got %d inserts (skipped=%d)", sum.RowsInserted, sum.RowsSkipped)
	}
	if store.inserted[0].CmplntFrDt != nil {
		t.Errorf("expected absent date, got %v", store.inserted[0].CmplntFrDt)
	}
}

// A point outside every polygon is inserted with no neighborhood reference,
// and the unresolved counter reflects it.
func TestRun_OutOfAreaPoint(t *testing.T) {
	cfg := testConfig(t, feedCSV(`100,MANHATTAN,05/26/2025,ROBBERY,41.5,-73.0`))
	store := &memStore{}

	sum, err := NewRunner(cfg, store, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if sum.PointsUnresolved != 1 {
		t.Errorf("expected 1 unresolved point, got %d", sum.PointsUnresolved)
	}
	if sum.RowsInserted != 1 {
		t.Fatalf("expected row inserted, got %d", sum.RowsInserted)
	}
	if store.inserted[0].NeighborhoodID != nil {
		t.Errorf("expected nil neighborhood reference, got %v", *store.inserted[0].NeighborhoodID)
	}
}

// A row with no complaint number is skipped with a reason; the rest of the
// feed proceeds.
func TestRun_MissingComplaintNumSkipped(t *testing.T) {
	cfg := testConfig(t, feedCSV(
		`,MANHATTAN,05/26/2025,ROBBERY,40.75,-74.0`,
		`101,MANHATTAN,05/26/2025,ASSAULT,40.75,-74.0`,
	))
	store := &memStore{}

	sum, err := NewRunner(cfg, store, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if sum.RowsSkipped != 1 || sum.SkipReasons[SkipMissingComplaintNum] != 1 {
		t.Errorf("expected 1 skip for missing complaint number, got %+v", sum.SkipReasons)
	}
	if sum.RowsInserted != 1 {
		t.Errorf("expected the valid row inserted, got %d", sum.RowsInserted)
	}
}

// A failing batch rolls back only itself: the run completes, the snapshot
// still rotates, and the skip count carries the batch.
func TestRun_BatchFailureSkipsBatchOnly(t *testing.T) {
	cfg := testConfig(t, feedCSV(`100,MANHATTAN,05/26/2025,ROBBERY,40.75,-74.0`))
	store := &memStore{failInsert: true}

	sum, err := NewRunner(cfg, store, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("run should tolerate batch failure, got: %v", err)
	}

	if sum.Stage != StageDone {
		t.Errorf("expected stage done, got %s", sum.Stage)
	}
	if sum.RowsInserted != 0 || sum.SkipReasons[SkipBatchInsertFailed] != 1 {
		t.Errorf("expected batch counted as skipped, got %+v", sum)
	}
	if _, err := os.Stat(cfg.SnapshotPath); err != nil {
		t.Error("snapshot should still rotate after a skipped batch")
	}
}

// An unreachable sink at registry sync is fatal and leaves the previous
// snapshot untouched for the next run.
func TestRun_SinkFailureLeavesSnapshot(t *testing.T) {
	cfg := testConfig(t, feedCSV(`100,MANHATTAN,05/26/2025,ROBBERY,40.75,-74.0`))

	if _, err := NewRunner(cfg, &memStore{}, nil).Run(context.Background()); err != nil {
		t.Fatalf("seed run failed: %v", err)
	}
	before, err := os.ReadFile(cfg.SnapshotPath)
	if err != nil {
		t.Fatal(err)
	}

	sum, err := NewRunner(cfg, &memStore{failSync: true}, nil).Run(context.Background())
	if err == nil {
		t.Fatal("expected run to fail on sink error")
	}
	if sum.Stage != StageFailed {
		t.Errorf("expected failed stage, got %s", sum.Stage)
	}

	after, err := os.ReadFile(cfg.SnapshotPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("failed run must not touch the previous snapshot")
	}
}

// Batching is exercised with more rows than one batch holds.
func TestRun_Batching(t *testing.T) {
	var rows []string
	for i := 0; i < 5; i++ {
		rows = append(rows, fmt.Sprintf("10%d,MANHATTAN,05/26/2025,ROBBERY,40.75,-74.0", i))
	}
	cfg := testConfig(t, feedCSV(rows...)) // batch size 2 → 3 batches
	store := &memStore{}

	sum, err := NewRunner(cfg, store, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if sum.RowsInserted != 5 || len(store.inserted) != 5 {
		t.Errorf("expected all 5 rows inserted across batches, got %d", sum.RowsInserted)
	}
}
