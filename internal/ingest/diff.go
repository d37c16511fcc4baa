package ingest

// Diff returns the rows of newSet absent from the previous snapshot, by
// full-row equality. A row whose value changed upstream counts as entirely
// new; the old version is never treated as an update target. Input order is
// irrelevant and preserved only for the returned rows.
func Diff(newSet []EnrichedRecord, previous SnapshotSet) []EnrichedRecord {
	if len(previous) == 0 {
		return newSet
	}

	var fresh []EnrichedRecord
	for _, rec := range newSet {
		if _, ok := previous[rowKey(snapshotFields(rec))]; !ok {
			fresh = append(fresh, rec)
		}
	}
	return fresh
}
