package loan

import (
	"context"
	"log"
	"time"

	"libraryapi/internal/identity"
)

const sweepLockName = "loan-overdue-sweep"

// Locker grants a named lock to a single holder until ttl expires.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// Sweeper runs SweepOverdue on a fixed interval until its context ends.
type Sweeper struct {
	service  *Service
	interval time.Duration
	locker   Locker
}

// NewSweeper creates a sweeper. locker may be nil when only one process runs it.
func NewSweeper(service *Service, interval time.Duration, locker Locker) *Sweeper {
	return &Sweeper{service: service, interval: interval, locker: locker}
}

// Run sweeps once immediately and then every interval. It returns when ctx is done.
func (sw *Sweeper) Run(ctx context.Context) {
	if sw.interval <= 0 {
		return
	}
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		if _, _, err := sw.RunOnce(ctx); err != nil && ctx.Err() == nil {
			log.Printf("sweep overdue failed: error=%v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single sweep. ran is false when another process holds
// the sweep lock for the current interval.
func (sw *Sweeper) RunOnce(ctx context.Context) (marked int, ran bool, err error) {
	var release func(context.Context) error
	if sw.locker != nil {
		var ok bool
		release, ok, err = sw.locker.TryLock(ctx, sweepLockName, sw.lockTTL())
		if err != nil {
			return 0, false, err
		}
		if !ok {
			return 0, false, nil
		}
	}

	asOf := sw.service.now().UTC()
	marked, err = sw.service.SweepOverdue(ctx, identity.System, asOf)
	if err != nil {
		// Let another replica try on its next tick.
		if release != nil {
			if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
				log.Printf("sweep lock release failed: error=%v", relErr)
			}
		}
		return 0, true, err
	}
	log.Printf("sweep overdue marked=%d as_of=%s", marked, asOf.Format(time.RFC3339))
	return marked, true, nil
}

// The lock outlives the sweep and expires just before the next tick.
func (sw *Sweeper) lockTTL() time.Duration {
	if sw.interval <= 0 {
		return time.Minute
	}
	return sw.interval * 9 / 10
}
