package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/realty-inventory/internal/apperror"
	"github.com/iliyamo/realty-inventory/internal/lifecycle"
	"github.com/iliyamo/realty-inventory/internal/metrics"
	"github.com/iliyamo/realty-inventory/internal/queue"
)

// ReclaimResult summarises one sweep.
type ReclaimResult struct {
	ReleasedCount int `json:"releasedCount"`
	// Skipped counts units that changed state between listing and release.
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// ReclaimExpiredLocks releases every lock that expired before now.  Each
// release is conditional on the lock still being expired, so a unit booked
// or re-locked since the listing is left alone.  Per-unit failures are
// logged and do not abort the sweep; only a failed listing returns an error.
// Running it with no expired locks is a no-op.
func (s *InventoryService) ReclaimExpiredLocks(ctx context.Context) (ReclaimResult, error) {
	start := time.Now()
	defer func() { metrics.ReclaimDuration.Observe(time.Since(start).Seconds()) }()

	now := s.now().UTC()
	ids, err := s.stores.Units.ListExpiredLocks(ctx, now, s.reclaimBatch)
	if err != nil {
		return ReclaimResult{}, fmt.Errorf("list expired locks: %w", err)
	}

	var res ReclaimResult
	for _, id := range ids {
		if ctx.Err() != nil {
			s.log.Warn("lock reclaim interrupted", zap.Int("released", res.ReleasedCount), zap.Error(ctx.Err()))
			break
		}
		_, err := s.transition(ctx, id, lifecycle.ReleaseExpired(now), queue.SourceReclaimer, nil)
		switch {
		case err == nil:
			res.ReleasedCount++
			metrics.LocksReclaimed.Inc()
		case apperror.IsInvalidTransition(err), apperror.IsNotFound(err):
			res.Skipped++
			s.log.Info("expired lock no longer reclaimable", zap.Uint64("unit_id", id), zap.Error(err))
		default:
			res.Failed++
			metrics.ReclaimFailures.Inc()
			s.log.Error("release expired lock failed", zap.Uint64("unit_id", id), zap.Error(err))
		}
	}

	s.log.Info("lock reclaim finished",
		zap.Int("expired", len(ids)),
		zap.Int("released", res.ReleasedCount),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
		zap.Duration("duration", time.Since(start)))
	return res, nil
}
