package tasks

import (
	"context"
	"fmt"
)

// newHistoryRetentionTask deletes messages older than database.retention_days.
// A retention of zero keeps history forever.
func newHistoryRetentionTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", HistoryRetention)

	return func(ctx context.Context) error {
		days := deps.Config.Database.RetentionDays
		if days <= 0 {
			log.DebugContext(ctx, "History retention disabled")
			return nil
		}

		cutoff := deps.Now().UTC().AddDate(0, 0, -days)
		removed, err := deps.Store.DeleteMessagesBefore(ctx, cutoff)
		if err != nil {
			log.ErrorContext(ctx, "History retention failed", "cutoff", cutoff, "error", err)
			return fmt.Errorf("history retention failed: %w", err)
		}

		log.InfoContext(ctx, "History retention completed", "cutoff", cutoff, "removed", removed)
		return nil
	}
}
