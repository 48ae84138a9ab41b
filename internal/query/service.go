// Package query runs top-K queries against the current record snapshot and
// records how they went.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/insurtree/internal/engine"
	"github.com/dgallion1/insurtree/internal/stats"
	"github.com/dgallion1/insurtree/internal/store"
	"github.com/dgallion1/insurtree/internal/telemetry"
)

// Service answers top-K queries over a store.
type Service struct {
	store store.Store
	eng   *engine.Engine
	stats *stats.QueryStats
	log   *slog.Logger
}

func NewService(s store.Store, eng *engine.Engine, qs *stats.QueryStats, log *slog.Logger) *Service {
	return &Service{store: s, eng: eng, stats: qs, log: log}
}

// Top returns up to maxCount aggregated values over the current snapshot.
// Argument errors are *engine.ValidationError; a snapshot that cannot form a
// forest yields *engine.ConstructionError.
func (s *Service) Top(ctx context.Context, maxCount, maxDepth int) ([]engine.Result, error) {
	if err := engine.CheckArgs(maxCount, maxDepth); err != nil {
		telemetry.QueryDuration.WithLabelValues(telemetry.OutcomeInvalid).Observe(0)
		return nil, err
	}

	start := time.Now()
	results, n, err := s.top(ctx, maxCount, maxDepth)
	elapsed := time.Since(start)

	outcome := telemetry.OutcomeOK
	if err != nil {
		outcome = telemetry.OutcomeError
	}
	telemetry.QueryDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	s.stats.Record(elapsed, err != nil)

	log := s.log.With("max_count", maxCount, "max_depth", maxDepth, "records", n, "duration", elapsed)
	if err != nil {
		log.Warn("query failed", "error", err)
		return nil, err
	}
	log.Debug("query served", "results", len(results))
	return results, nil
}

func (s *Service) top(ctx context.Context, maxCount, maxDepth int) ([]engine.Result, int, error) {
	records, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("snapshot: %w", err)
	}
	telemetry.SnapshotRecords.Set(float64(len(records)))
	results, err := s.eng.Query(records, maxCount, maxDepth)
	return results, len(records), err
}

// Records returns the current snapshot.
func (s *Service) Records(ctx context.Context) ([]engine.Record, error) {
	return s.store.Snapshot(ctx)
}

// Stats returns rolling latency figures.
func (s *Service) Stats() stats.Snapshot {
	return s.stats.Snapshot()
}
