package tasks

import (
	"context"

	"github.com/lysyi3m/comic-feed/app/comic"
	"github.com/lysyi3m/comic-feed/app/feed"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the admin API to manage background
// processing of news sources.
// Example usage:
//
//	scheduler := NewScheduler(configCache, sourceRepo, articleRepo, sources, filterer, pipeline)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.RefreshSource("guardian")
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	RefreshSource(name string) error
}

type StoryFetcher interface {
	Fetch(ctx context.Context, sourceConfig *feed.Config) ([]feed.Story, error)
}

type ComicGenerator interface {
	Generate(ctx context.Context, title, text string) (*comic.Comic, error)
}

var (
	_ StoryFetcher   = feed.Sources(nil)
	_ ComicGenerator = (*comic.Pipeline)(nil)
)
