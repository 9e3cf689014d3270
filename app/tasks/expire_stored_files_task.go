package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/politrack/disclosures/app/storage"
)

// Blobs deleted per task run; the next run picks up the remainder.
const expireBatchLimit = 500

// ExpireStoredFilesTask removes archived blobs past their retention period.
// Metadata rows are kept forever; only the blob goes.
type ExpireStoredFilesTask struct {
	Task
	archiver *storage.Manager
}

func NewExpireStoredFilesTask(archiver *storage.Manager) *ExpireStoredFilesTask {
	return &ExpireStoredFilesTask{
		Task:     NewTask(TaskTypeExpireStoredFiles, ""),
		archiver: archiver,
	}
}

func (t *ExpireStoredFilesTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	deleted, err := t.archiver.ExpireBlobs(ctx, time.Now().UTC(), expireBatchLimit)
	if err != nil {
		return fmt.Errorf("failed to expire stored files: %w", err)
	}

	if deleted > 0 {
		slog.Info("Task completed",
			"type", t.GetType(),
			"duration", t.GetDuration(),
			"deleted", deleted)
	}

	return nil
}
