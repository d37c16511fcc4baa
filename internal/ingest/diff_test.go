package ingest

import "testing"

func enrichedRow(num, boro, nta string) EnrichedRecord {
	rec := Normalize(RawRecord{"CMPLNT_NUM": num, "BORO_NM": boro})
	return EnrichedRecord{CanonicalRecord: rec, NTAName: nta}
}

func snapshotOf(records ...EnrichedRecord) SnapshotSet {
	set := make(SnapshotSet, len(records))
	for _, rec := range records {
		set[rowKey(snapshotFields(rec))] = struct{}{}
	}
	return set
}

// TestDiff_SelfIsEmpty: diff(A, A) must be empty for any A.
func TestDiff_SelfIsEmpty(t *testing.T) {
	a := []EnrichedRecord{
		enrichedRow("100", "MANHATTAN", "Chelsea-Hudson Yards"),
		enrichedRow("101", "BROOKLYN", "Bushwick"),
	}

	if fresh := Diff(a, snapshotOf(a...)); len(fresh) != 0 {
		t.Errorf("diff(A, A) returned %d rows, want 0", len(fresh))
	}
}

// TestDiff_EmptyPrevious: diff(A, {}) must equal A (first-run passthrough).
func TestDiff_EmptyPrevious(t *testing.T) {
	a := []EnrichedRecord{
		enrichedRow("100", "MANHATTAN", "Chelsea-Hudson Yards"),
		enrichedRow("101", "BROOKLYN", "Bushwick"),
	}

	fresh := Diff(a, SnapshotSet{})
	if len(fresh) != len(a) {
		t.Fatalf("diff(A, {}) returned %d rows, want %d", len(fresh), len(a))
	}
}

func TestDiff_OnlyNewRowsSurvive(t *testing.T) {
	old := enrichedRow("100", "MANHATTAN", "Chelsea-Hudson Yards")
	changed := enrichedRow("100", "BROOKLYN", "Chelsea-Hudson Yards") // same id, edited boro
	brandNew := enrichedRow("200", "QUEENS", "Astoria")

	fresh := Diff([]EnrichedRecord{old, changed, brandNew}, snapshotOf(old))

	if len(fresh) != 2 {
		t.Fatalf("expected 2 new rows, got %d", len(fresh))
	}
	// Full-row equality: the edited row counts as entirely new.
	if fresh[0].BoroNm != "BROOKLYN" || fresh[1].CmplntNum != "200" {
		t.Errorf("unexpected surviving rows: %+v", fresh)
	}
}

// TestDiff_OrderIndependent: equality is structural, not positional.
func TestDiff_OrderIndependent(t *testing.T) {
	a := enrichedRow("100", "MANHATTAN", "Chelsea-Hudson Yards")
	b := enrichedRow("101", "BROOKLYN", "Bushwick")

	if fresh := Diff([]EnrichedRecord{b, a}, snapshotOf(a, b)); len(fresh) != 0 {
		t.Errorf("reordered identical sets should diff empty, got %d rows", len(fresh))
	}
}
