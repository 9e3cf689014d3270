package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/politrack/disclosures/app/config"
)

// SyncSourceConfigsTask re-reads the sources directory so that edited or
// newly added YAML files take effect without a process restart.
type SyncSourceConfigsTask struct {
	Task
	configCache *config.ConfigCache
}

func NewSyncSourceConfigsTask(configCache *config.ConfigCache) *SyncSourceConfigsTask {
	return &SyncSourceConfigsTask{
		Task:        NewTask(TaskTypeSyncSourceConfig, ""),
		configCache: configCache,
	}
}

func (t *SyncSourceConfigsTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.configCache.Run(); err != nil {
		slog.Error("Task failed", "type", "SyncSourceConfigs", "error", err)
		return fmt.Errorf("failed to reload source configurations: %w", err)
	}

	slog.Info("Task completed",
		"type", "SyncSourceConfigs",
		"sources", t.configCache.GetConfigCount(),
		"duration", t.GetDuration())

	return nil
}
