// Package tasks implements the scheduled housekeeping jobs of LoveBot.
// It includes task definitions, dependencies, and registration mechanisms.
package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgard/lovebot/internal/config"
)

// Store is the storage surface the tasks need.
type Store interface {
	RunMaintenance(ctx context.Context) error
	DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ContextPruner drops idle conversation context windows.
type ContextPruner interface {
	Prune(idle time.Duration) int
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger  *slog.Logger
	Store   Store
	Context ContextPruner
	Config  *config.Config

	// Now is overridable in tests.
	Now func() time.Time
}
