package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultReclaimSchedule runs the lock sweep every five minutes.
const DefaultReclaimSchedule = "@every 5m"

// Sweeper is the operation the Reclaimer schedules.
type Sweeper interface {
	ReclaimExpiredLocks(ctx context.Context) (ReclaimResult, error)
}

// Lease guards a sweep across replicas.  TryAcquire returns ok=false when
// another holder has it.
type Lease interface {
	TryAcquire(ctx context.Context) (release func(context.Context) error, ok bool, err error)
}

// Reclaimer runs a Sweeper on a cron schedule.  Overlapping ticks are
// skipped rather than queued.
type Reclaimer struct {
	sweeper Sweeper
	lease   Lease
	log     *zap.Logger
	timeout time.Duration
	cron    *cron.Cron
}

// ReclaimerOption configures a Reclaimer.
type ReclaimerOption func(*Reclaimer)

// WithLease makes every sweep acquire l first.
func WithLease(l Lease) ReclaimerOption {
	return func(r *Reclaimer) { r.lease = l }
}

// WithSweepTimeout bounds a single sweep.
func WithSweepTimeout(d time.Duration) ReclaimerOption {
	return func(r *Reclaimer) { r.timeout = d }
}

func NewReclaimer(sweeper Sweeper, log *zap.Logger, opts ...ReclaimerOption) *Reclaimer {
	r := &Reclaimer{
		sweeper: sweeper,
		log:     log.Named("reclaimer"),
		timeout: time.Minute,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Start schedules the sweep on spec (standard cron or @every syntax, UTC)
// and starts the scheduler in the background.
func (r *Reclaimer) Start(spec string) error {
	if spec == "" {
		spec = DefaultReclaimSchedule
	}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(spec, func() {
		if _, _, err := r.RunOnce(context.Background()); err != nil {
			r.log.Error("scheduled lock reclaim failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	r.cron = c
	c.Start()
	r.log.Info("lock reclaimer scheduled", zap.String("schedule", spec))
	return nil
}

// Stop stops scheduling and waits for a running sweep to finish or ctx to
// be done.
func (r *Reclaimer) Stop(ctx context.Context) {
	if r.cron == nil {
		return
	}
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RunOnce performs one sweep.  ran is false when the lease is held
// elsewhere and the sweep was skipped.
func (r *Reclaimer) RunOnce(ctx context.Context) (res ReclaimResult, ran bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if r.lease != nil {
		release, ok, err := r.lease.TryAcquire(ctx)
		if err != nil {
			// Without the lease the sweep is still safe, only duplicated.
			r.log.Warn("reclaim lease unavailable; sweeping anyway", zap.Error(err))
		} else if !ok {
			r.log.Debug("reclaim lease held by another replica; skipping")
			return ReclaimResult{}, false, nil
		} else {
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					r.log.Warn("release reclaim lease failed", zap.Error(err))
				}
			}()
		}
	}

	res, err = r.sweeper.ReclaimExpiredLocks(ctx)
	return res, true, err
}
