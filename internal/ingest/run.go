package ingest

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/citysafe/citysafe-backend/internal/geo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Stage identifies where in the run the driver currently is, and where a
// failed run stopped.
type Stage int

const (
	StageFetching Stage = iota
	StageNormalizing
	StageEnriching
	StageRegistrySyncing
	StageDiffing
	StagePersisting
	StageRotating
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageFetching:
		return "fetching"
	case StageNormalizing:
		return "normalizing"
	case StageEnriching:
		return "enriching"
	case StageRegistrySyncing:
		return "registry-syncing"
	case StageDiffing:
		return "diffing"
	case StagePersisting:
		return "persisting"
	case StageRotating:
		return "rotating"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Skip reasons aggregated in the run summary.
const (
	SkipMissingComplaintNum = "missing complaint number"
	SkipBatchInsertFailed   = "batch insert failed"
)

// Summary is the operator-facing account of one run.
type Summary struct {
	RunID                uuid.UUID
	StartedAt            time.Time
	Duration             time.Duration
	Stage                Stage
	RowsFetched          int
	RowsSkipped          int
	SkipReasons          map[string]int
	RowsInserted         int
	NeighborhoodsCreated int
	PointsUnresolved     int
}

func (s *Summary) skip(reason string, n int) {
	s.RowsSkipped += n
	s.SkipReasons[reason] += n
}

// Runner drives one ingestion run end to end. Single-threaded by design:
// callers serialize invocations externally, and stage ordering (registry
// sync commits before the id lookup) is enforced by plain sequencing.
type Runner struct {
	cfg    Config
	store  Store
	logger *zap.Logger
	client *http.Client
}

func NewRunner(cfg Config, store Store, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, store: store, logger: logger}
}

// Run executes Fetching → Normalizing → Enriching → RegistrySyncing →
// Diffing → Persisting → Rotating. Row-level problems are skipped and
// counted; an unreachable feed or unwritable sink fails the run and leaves
// the previous snapshot and all committed batches untouched.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	sum := &Summary{
		RunID:       uuid.New(),
		StartedAt:   time.Now(),
		SkipReasons: map[string]int{},
	}
	log := r.logger.With(zap.String("run_id", sum.RunID.String()))

	fail := func(stage Stage, err error) (*Summary, error) {
		sum.Stage = StageFailed
		sum.Duration = time.Since(sum.StartedAt)
		log.Error("run failed", zap.Stringer("stage", stage), zap.Error(err))
		return sum, fmt.Errorf("%s: %w", stage, err)
	}

	// Fetching
	sum.Stage = StageFetching
	raws, err := r.fetch(ctx, log)
	if err != nil {
		return fail(StageFetching, err)
	}
	sum.RowsFetched = len(raws)

	regions, err := geo.LoadRegions(r.cfg.RegionsPath, r.cfg.NameProperty)
	if err != nil {
		return fail(StageFetching, err)
	}
	resolver := geo.NewResolver(regions)
	log.Info("feed loaded",
		zap.Int("rows", len(raws)),
		zap.Int("regions", len(regions)))

	// Normalizing
	sum.Stage = StageNormalizing
	canon := make([]CanonicalRecord, 0, len(raws))
	for _, raw := range raws {
		rec := Normalize(raw)
		if rec.CmplntNum == "" {
			sum.skip(SkipMissingComplaintNum, 1)
			log.Warn("row skipped",
				zap.String("reason", SkipMissingComplaintNum),
				zap.Any("row", raw))
			continue
		}
		canon = append(canon, rec)
	}

	// Enriching (name resolution)
	sum.Stage = StageEnriching
	enriched := make([]EnrichedRecord, 0, len(canon))
	for _, rec := range canon {
		enriched = append(enriched, Enrich(rec, resolver))
	}
	sum.PointsUnresolved = resolver.Unresolved()

	// RegistrySyncing
	sum.Stage = StageRegistrySyncing
	observed := CollectNeighborhoods(enriched)
	mapping, created, err := r.store.SyncNeighborhoods(ctx, observed)
	if err != nil {
		return fail(StageRegistrySyncing, err)
	}
	sum.NeighborhoodsCreated = created

	// Diffing
	sum.Stage = StageDiffing
	previous, err := LoadSnapshot(r.cfg.SnapshotPath)
	if err != nil {
		return fail(StageDiffing, err)
	}
	fresh := Diff(enriched, previous)
	log.Info("diff complete",
		zap.Int("enriched", len(enriched)),
		zap.Int("previous", len(previous)),
		zap.Int("to_insert", len(fresh)))

	// Persisting (id lookup happens here, after the registry committed)
	sum.Stage = StagePersisting
	AttachNeighborhoodIDs(fresh, mapping)
	for start := 0; start < len(fresh); start += r.cfg.BatchSize {
		end := start + r.cfg.BatchSize
		if end > len(fresh) {
			end = len(fresh)
		}
		batch := fresh[start:end]
		if err := r.store.InsertBatch(ctx, batch); err != nil {
			// The batch rolled back; earlier batches stay committed. The
			// rows remain in the snapshot, matching the source behavior.
			sum.skip(SkipBatchInsertFailed, len(batch))
			log.Warn("batch skipped",
				zap.Int("rows", len(batch)),
				zap.Error(err))
			continue
		}
		sum.RowsInserted += len(batch)
	}

	// Rotating: only after persistence fully committed. A crash before this
	// point leaves the old snapshot for the next run's diff.
	sum.Stage = StageRotating
	if err := WriteSnapshot(r.cfg.SnapshotPath, enriched); err != nil {
		return fail(StageRotating, err)
	}

	sum.Stage = StageDone
	sum.Duration = time.Since(sum.StartedAt)
	log.Info("run complete",
		zap.Int("fetched", sum.RowsFetched),
		zap.Int("skipped", sum.RowsSkipped),
		zap.Int("inserted", sum.RowsInserted),
		zap.Int("neighborhoods_created", sum.NeighborhoodsCreated),
		zap.Int("points_unresolved", sum.PointsUnresolved),
		zap.Duration("duration", sum.Duration))
	return sum, nil
}

func (r *Runner) fetch(ctx context.Context, log *zap.Logger) ([]RawRecord, error) {
	if r.cfg.FeedFile != "" {
		return ReadFeedFile(r.cfg.FeedFile)
	}

	tmp, err := os.CreateTemp("", "complaint-feed-*.csv")
	if err != nil {
		return nil, fmt.Errorf("create feed temp: %w", err)
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	log.Info("downloading feed", zap.String("url", r.cfg.FeedURL))
	if err := DownloadFeed(ctx, r.client, r.cfg.FeedURL, tmp.Name()); err != nil {
		return nil, err
	}
	return ReadFeedFile(tmp.Name())
}
