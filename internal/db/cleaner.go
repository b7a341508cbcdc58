package db

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Purger removes deliveries received before a cutoff.
type Purger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// DeliveryCleaner keeps the delivery log within its retention window.
type DeliveryCleaner struct {
	Store     Purger
	Interval  time.Duration
	Retention time.Duration
	Log       *zap.Logger

	now func() time.Time
}

// NewDeliveryCleaner returns a cleaner for store.
func NewDeliveryCleaner(store Purger, interval, retention time.Duration, log *zap.Logger) *DeliveryCleaner {
	return &DeliveryCleaner{Store: store, Interval: interval, Retention: retention, Log: log, now: time.Now}
}

// PurgeOnce removes every delivery older than the retention window.
func (c *DeliveryCleaner) PurgeOnce(ctx context.Context) (int64, error) {
	removed, err := c.Store.PurgeBefore(ctx, c.now().Add(-c.Retention))
	if err != nil {
		c.Log.Error("failed to purge expired deliveries", zap.Error(err))
		return 0, err
	}
	if removed > 0 {
		c.Log.Info("purged expired deliveries", zap.Int64("removed", removed))
	}
	return removed, nil
}

// Run purges once, then every Interval until ctx is done. A non-positive
// Interval disables the periodic purge.
func (c *DeliveryCleaner) Run(ctx context.Context) {
	_, _ = c.PurgeOnce(ctx)
	if c.Interval <= 0 {
		c.Log.Warn("delivery cleaner interval is not positive, periodic purge disabled",
			zap.Duration("interval", c.Interval))
		return
	}

	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = c.PurgeOnce(ctx)
		}
	}
}
