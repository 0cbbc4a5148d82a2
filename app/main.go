package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lysyi3m/comic-feed/app/api"
	"github.com/lysyi3m/comic-feed/app/cfg"
	"github.com/lysyi3m/comic-feed/app/comic"
	"github.com/lysyi3m/comic-feed/app/database"
	"github.com/lysyi3m/comic-feed/app/feed"
	"github.com/lysyi3m/comic-feed/app/loader"
	"github.com/lysyi3m/comic-feed/app/render"
	"github.com/lysyi3m/comic-feed/app/tasks"
	"github.com/lysyi3m/comic-feed/app/web"
)

func main() {
	appConfig, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appConfig == nil {
		// Help was shown
		return
	}

	logLevel := slog.LevelInfo
	if appConfig.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Comic Feed server", "version", appConfig.Version)

	db, err := database.NewConnection(appConfig.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "path", appConfig.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Debug("Database ready", "path", appConfig.DBPath, "schema_version", version, "dirty", dirty)

	configCache := feed.NewConfigCache(appConfig.SourcesDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load source configurations", "dir", appConfig.SourcesDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Source configurations loaded", "count", configCache.GetConfigCount())

	sourceRepo := database.NewSourceRepository(db)
	articleRepo := database.NewArticleRepository(db)

	httpClient := &http.Client{Timeout: appConfig.RequestTimeout}
	sources := feed.NewSources(httpClient, feed.SourceKeys{
		Guardian: appConfig.GuardianAPIKey,
		NYTimes:  appConfig.NYTimesAPIKey,
	}, appConfig.UserAgent)

	pipeline := comic.NewPipelineFromConfig(appConfig)

	scheduler := tasks.NewScheduler(configCache, sourceRepo, articleRepo, sources, feed.NewFilterer(), pipeline)
	slog.Info("Starting background scheduler", "workers", appConfig.WorkerCount, "interval", time.Duration(appConfig.SchedulerInterval)*time.Second)
	scheduler.Start()
	defer scheduler.Stop()

	renderer, err := render.NewRenderer(render.Placeholder{
		Src:     appConfig.PlaceholderImage,
		Alt:     render.DefaultPlaceholder.Alt,
		Caption: render.DefaultPlaceholder.Caption,
	})
	if err != nil {
		slog.Error("Failed to initialize renderer", "error", err)
		os.Exit(1)
	}

	feedClient := loader.NewClient(appConfig.FeedAPIURL(), &http.Client{Timeout: appConfig.RequestTimeout}, appConfig.UserAgent)
	frontend := web.NewFrontend(feedClient, renderer, web.Options{
		Version:      appConfig.Version,
		MaxSessions:  appConfig.MaxSessions,
		SessionTTL:   appConfig.SessionTTL,
		SecureCookie: strings.HasPrefix(appConfig.BaseUrl, "https://"),
	})

	apiHandler := api.NewHandler(configCache, sourceRepo, articleRepo, scheduler, appConfig.PageSize)
	server := api.NewServer(apiHandler, appConfig.APIAccessKey, frontend)

	httpServer := &http.Server{
		Addr:         ":" + appConfig.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: appConfig.RequestTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appConfig.Port, "reader", "http://localhost:"+appConfig.Port+"/", "news_api", appConfig.FeedAPIURL()+"/api/news/<page>")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Scheduler is stopped via defer
}
