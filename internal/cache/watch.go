package cache

import (
	"context"

	"github.com/safecity/dispatch/internal/realtime"
	"github.com/safecity/dispatch/internal/report"
)

// WatchReports drops the report list keys whenever a crime_reports row
// changes, including changes made by other instances arriving over the
// bus bridge. Runs until ctx is cancelled.
func WatchReports(ctx context.Context, c *Client, notifier *realtime.Notifier) {
	if c == nil {
		return
	}

	sub := notifier.Subscribe("crime_reports", nil)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.C:
			if !ok {
				return
			}
			c.Invalidate(ctx, report.CacheKeyPending, report.CacheKeyUnassigned, report.CacheKeyStats)
		}
	}
}
