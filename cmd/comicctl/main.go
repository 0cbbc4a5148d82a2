// Command comicctl runs maintenance jobs against the comic feed database.
// Configuration comes from the environment and .env, as for the server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/lysyi3m/comic-feed/app/cfg"
	"github.com/lysyi3m/comic-feed/app/comic"
	"github.com/lysyi3m/comic-feed/app/database"
	"github.com/lysyi3m/comic-feed/app/feed"
	"github.com/lysyi3m/comic-feed/app/tasks"
)

type MigrateCommand struct {
	Reset bool `long:"reset" description:"Drop every table and re-apply all migrations"`
}

type PurgeCommand struct {
	OlderThan int `long:"older-than" description:"Only delete articles older than this many hours (0 deletes everything)"`
}

type FetchCommand struct {
	Source string `long:"source" description:"Process only this source"`
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	parser := flags.NewParser(nil, flags.Default)
	parser.AddCommand("migrate", "Apply database migrations", "Bring the schema up to date, or rebuild it with --reset.", &MigrateCommand{})
	parser.AddCommand("purge", "Delete articles", "Delete every stored article, or only old ones with --older-than.", &PurgeCommand{})
	parser.AddCommand("fetch", "Run one processing pass", "Fetch enabled sources and generate comics for new stories.", &FetchCommand{})

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}
}

func (c *MigrateCommand) Execute(args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if c.Reset {
		version, err := database.ResetSchema(db)
		if err != nil {
			return fmt.Errorf("failed to reset schema: %w", err)
		}
		slog.Info("Schema reset", "version", version)
		return nil
	}

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Migrations applied", "version", version, "dirty", dirty)
	return nil
}

func (c *PurgeCommand) Execute(args []string) error {
	if c.OlderThan < 0 {
		return fmt.Errorf("--older-than must be non-negative")
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if _, _, err := database.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	articleRepo := database.NewArticleRepository(db)

	var deleted int64
	if c.OlderThan > 0 {
		deleted, err = articleRepo.DeleteOlderThan(time.Now().UTC().Add(-time.Duration(c.OlderThan) * time.Hour))
	} else {
		deleted, err = articleRepo.DeleteAll()
	}
	if err != nil {
		return fmt.Errorf("failed to delete articles: %w", err)
	}

	slog.Info("Articles purged", "deleted", deleted)
	return nil
}

func (c *FetchCommand) Execute(args []string) error {
	appConfig, err := cfg.LoadArgs(nil)
	if err != nil {
		return err
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if _, _, err := database.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	configCache := feed.NewConfigCache(appConfig.SourcesDir)
	if err := configCache.Run(); err != nil {
		return fmt.Errorf("failed to load source configurations: %w", err)
	}

	configs := configCache.GetEnabledConfigs()
	if c.Source != "" {
		sourceConfig, err := configCache.GetConfig(c.Source)
		if err != nil {
			return err
		}
		configs = map[string]*feed.Config{c.Source: sourceConfig}
	}
	if len(configs) == 0 {
		slog.Warn("No enabled sources to process", "dir", appConfig.SourcesDir)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sources := feed.NewSources(&http.Client{Timeout: appConfig.RequestTimeout}, feed.SourceKeys{
		Guardian: appConfig.GuardianAPIKey,
		NYTimes:  appConfig.NYTimesAPIKey,
	}, appConfig.UserAgent)
	pipeline := comic.NewPipelineFromConfig(appConfig)
	filterer := feed.NewFilterer()
	sourceRepo := database.NewSourceRepository(db)
	articleRepo := database.NewArticleRepository(db)

	var failed []error
	for name, sourceConfig := range configs {
		task := tasks.NewProcessSourceTask(name, sourceConfig, sources, filterer, pipeline, sourceRepo, articleRepo)
		task.Start()
		if err := task.Execute(ctx); err != nil {
			slog.Error("Source processing failed", "source", name, "error", err)
			failed = append(failed, fmt.Errorf("%s: %w", name, err))
		}
	}

	cleanup := tasks.NewCleanupArticlesTask(appConfig.ArticleTTL, articleRepo)
	cleanup.Start()
	if err := cleanup.Execute(ctx); err != nil {
		failed = append(failed, err)
	}

	return errors.Join(failed...)
}

func openDatabase() (*database.DB, error) {
	appConfig, err := cfg.LoadArgs(nil)
	if err != nil {
		return nil, err
	}

	db, err := database.NewConnection(appConfig.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", appConfig.DBPath, err)
	}
	return db, nil
}
