package tasks

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/comic-feed/app/database"
	"github.com/lysyi3m/comic-feed/app/feed"
	"github.com/lysyi3m/comic-feed/app/metrics"
)

// ProcessSourceTask fetches a source, turns every new story into a comic and
// stores it. A story that fails to generate is skipped; the next pass tries
// it again because nothing was stored for it.
type ProcessSourceTask struct {
	Task
	SourceConfig *feed.Config
	fetcher      StoryFetcher
	filterer     *feed.Filterer
	generator    ComicGenerator
	sourceRepo   database.SourceRepository
	articleRepo  database.ArticleRepository
}

func NewProcessSourceTask(sourceName string, sourceConfig *feed.Config, fetcher StoryFetcher, filterer *feed.Filterer,
	generator ComicGenerator, sourceRepo database.SourceRepository, articleRepo database.ArticleRepository) *ProcessSourceTask {
	return &ProcessSourceTask{
		Task:         NewTask(TaskTypeProcessSource, sourceName),
		SourceConfig: sourceConfig,
		fetcher:      fetcher,
		filterer:     filterer,
		generator:    generator,
		sourceRepo:   sourceRepo,
		articleRepo:  articleRepo,
	}
}

func (t *ProcessSourceTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.SourceConfig.Settings.Enabled {
		slog.Debug("Source disabled, skipping", "source", t.SourceName)
		return nil
	}

	stories, err := t.fetcher.Fetch(ctx, t.SourceConfig)
	if err != nil {
		return fmt.Errorf("failed to fetch source: %w", err)
	}

	existingCount := 0
	filteredCount := 0
	failedCount := 0
	newCount := 0

	for _, story := range t.filterer.Run(stories, t.SourceConfig) {
		if story.IsFiltered {
			filteredCount++
			continue
		}

		exists, err := t.articleRepo.ExistsByExternalID(story.ExternalID)
		if err != nil {
			return fmt.Errorf("failed to check for existing article: %w", err)
		}
		if exists {
			existingCount++
			continue
		}

		stored, err := t.generate(ctx, story)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if errors.Is(err, database.ErrDuplicateArticle) {
				existingCount++
				continue
			}
			failedCount++
			slog.Warn("Failed to generate article", "source", t.SourceName, "external_id", story.ExternalID, "error", err)
			continue
		}

		newCount++
		slog.Debug("Article generated", "source", t.SourceName, "id", stored, "title", story.Title)
	}

	if err := t.storeFetchTimes(); err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", "ProcessSource",
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"total", len(stories),
		"existing", existingCount,
		"filtered", filteredCount,
		"failed", failedCount,
		"new", newCount)

	return nil
}

func (t *ProcessSourceTask) generate(ctx context.Context, story feed.Story) (string, error) {
	result, err := t.generator.Generate(ctx, story.Title, cmp.Or(story.Text, story.Title))
	if err != nil {
		return "", err
	}

	id, err := t.articleRepo.InsertArticle(database.Article{
		SourceName:   t.SourceName,
		ExternalID:   story.ExternalID,
		Title:        story.Title,
		Link:         story.Link,
		OriginalText: story.Text,
		ComicHeader:  result.Header,
		ComicSummary: result.Summary,
		ImageURLs:    result.Images,
		Prompts:      result.Prompts,
		ContentHash:  story.ContentHash,
	})
	if err != nil {
		return "", fmt.Errorf("failed to store article: %w", err)
	}
	metrics.RecordArticleGenerated(t.SourceName)

	return id, nil
}

func (t *ProcessSourceTask) storeFetchTimes() error {
	source, err := t.sourceRepo.GetSource(t.SourceName)
	if err != nil {
		return fmt.Errorf("failed to get source: %w", err)
	}
	if source == nil {
		if err := t.sourceRepo.UpsertSource(t.SourceName, t.SourceConfig.Kind, t.SourceConfig.URL); err != nil {
			return fmt.Errorf("failed to register source: %w", err)
		}
	}

	now := time.Now().UTC()
	nextFetch := now.Add(time.Duration(t.SourceConfig.Settings.RefreshInterval) * time.Second)

	if err := t.sourceRepo.UpdateFetchTimes(t.SourceName, now, nextFetch); err != nil {
		return fmt.Errorf("failed to update fetch times: %w", err)
	}

	return nil
}
