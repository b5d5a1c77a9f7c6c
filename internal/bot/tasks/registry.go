package tasks

import (
	"context"
	"time"

	"github.com/edgard/lovebot/internal/logger"
)

// ScheduledTaskFunc defines the standard signature for all scheduled tasks.
// The context provided by the scheduler should be respected for cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// Task names, matching the keys of the scheduler.tasks config section.
const (
	StoreMaintenance = "store_maintenance"
	HistoryRetention = "history_retention"
	ContextPrune     = "context_prune"
)

// RegisterAllTasks returns every scheduled task keyed by name.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	if deps.Logger == nil {
		deps.Logger = logger.Discard()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	tasks := map[string]ScheduledTaskFunc{
		StoreMaintenance: newStoreMaintenanceTask(deps),
		HistoryRetention: newHistoryRetentionTask(deps),
		ContextPrune:     newContextPruneTask(deps),
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
