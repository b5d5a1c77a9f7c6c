package tasks

import (
	"context"
)

func newContextPruneTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", ContextPrune)

	return func(ctx context.Context) error {
		removed := deps.Context.Prune(deps.Config.Memory.IdleTTL)
		log.InfoContext(ctx, "Pruned idle context windows", "removed", removed, "idle_ttl", deps.Config.Memory.IdleTTL)
		return nil
	}
}
