package ingest_test

import (
	"context"
	"os"
	"testing"

	"github.com/citysafe/citysafe-backend/internal/complaints"
	"github.com/citysafe/citysafe-backend/internal/db"
	"github.com/citysafe/citysafe-backend/internal/ingest"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

// Integration coverage for GormStore against a real Postgres. Skipped unless
// TEST_DATABASE_URL points at a disposable database.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	_ = godotenv.Load("../../.env.local")

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	gdb, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := gdb.AutoMigrate(&complaints.Neighborhood{}, &complaints.Complaint{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		gdb.Exec("TRUNCATE TABLE complaints, neighborhoods RESTART IDENTITY CASCADE")
	})
	gdb.Exec("TRUNCATE TABLE complaints, neighborhoods RESTART IDENTITY CASCADE")

	return gdb
}

func TestGormStore_SyncNeighborhoodsIdempotent(t *testing.T) {
	store := ingest.NewGormStore(openTestDB(t))
	ctx := context.Background()

	observed := []ingest.NameBorough{
		{Name: "Chelsea-Hudson Yards", Borough: "Manhattan"},
		{Name: "Bushwick", Borough: "Brooklyn"},
	}

	first, created, err := store.SyncNeighborhoods(ctx, observed)
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if created != 2 {
		t.Fatalf("first sync: expected 2 created, got %d", created)
	}

	second, created, err := store.SyncNeighborhoods(ctx, observed)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if created != 0 {
		t.Errorf("second sync: expected 0 created, got %d", created)
	}
	if len(second) != len(first) {
		t.Fatalf("mapping size changed between syncs: %d vs %d", len(first), len(second))
	}
	for k, id := range first {
		if second[k] != id {
			t.Errorf("mapping for %q changed: %d vs %d", k, id, second[k])
		}
	}
}

func TestGormStore_InsertBatch(t *testing.T) {
	gdb := openTestDB(t)
	store := ingest.NewGormStore(gdb)
	ctx := context.Background()

	mapping, _, err := store.SyncNeighborhoods(ctx, []ingest.NameBorough{
		{Name: "Astoria", Borough: "Queens"},
	})
	if err != nil {
		t.Fatal(err)
	}

	records := []ingest.EnrichedRecord{
		{
			CanonicalRecord: ingest.Normalize(ingest.RawRecord{
				"CMPLNT_NUM": "900",
				"BORO_NM":    "QUEENS",
				"Latitude":   "40.77",
				"Longitude":  "-73.92",
			}),
			NTAName: "Astoria",
		},
	}
	ingest.AttachNeighborhoodIDs(records, mapping)

	if err := store.InsertBatch(ctx, records); err != nil {
		t.Fatalf("insert batch: %v", err)
	}

	var got complaints.Complaint
	if err := gdb.Preload("Neighborhood").First(&got, "cmplnt_num = ?", "900").Error; err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got.Neighborhood == nil || got.Neighborhood.Name != "Astoria" {
		t.Errorf("expected complaint linked to Astoria, got %+v", got.Neighborhood)
	}
}
