package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/comic-feed/app/database"
	"github.com/lysyi3m/comic-feed/app/feed"
)

type SyncSourceConfigTask struct {
	Task
	SourceConfig *feed.Config
	sourceRepo   database.SourceRepository
}

func NewSyncSourceConfigTask(sourceName string, sourceConfig *feed.Config, sourceRepo database.SourceRepository) *SyncSourceConfigTask {
	return &SyncSourceConfigTask{
		Task:         NewTask(TaskTypeSyncSourceConfig, sourceName),
		SourceConfig: sourceConfig,
		sourceRepo:   sourceRepo,
	}
}

func (t *SyncSourceConfigTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	err := t.sourceRepo.UpsertSource(
		t.SourceConfig.Name,
		t.SourceConfig.Kind,
		t.SourceConfig.URL)
	if err != nil {
		return fmt.Errorf("failed to sync source config to database: %w", err)
	}

	slog.Info("Task completed",
		"type", "SyncSourceConfig",
		"source", t.SourceName,
		"duration", t.GetDuration())

	return nil
}
