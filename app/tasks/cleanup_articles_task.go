package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/comic-feed/app/database"
	"github.com/lysyi3m/comic-feed/app/metrics"
)

// CleanupArticlesTask removes articles older than the configured TTL.
type CleanupArticlesTask struct {
	Task
	TTL         time.Duration
	articleRepo database.ArticleRepository
	now         func() time.Time
}

func NewCleanupArticlesTask(ttl time.Duration, articleRepo database.ArticleRepository) *CleanupArticlesTask {
	return &CleanupArticlesTask{
		Task:        NewTask(TaskTypeCleanupArticles, ""),
		TTL:         ttl,
		articleRepo: articleRepo,
		now:         time.Now,
	}
}

func (t *CleanupArticlesTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	cutoff := t.now().UTC().Add(-t.TTL)

	deleted, err := t.articleRepo.DeleteOlderThan(cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete old articles: %w", err)
	}
	metrics.RecordPurge(deleted)

	slog.Info("Task completed",
		"type", "CleanupArticles",
		"duration", t.GetDuration(),
		"cutoff", cutoff,
		"deleted", deleted)

	return nil
}
