package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/comic-feed/app/cfg"
	"github.com/lysyi3m/comic-feed/app/database"
	"github.com/lysyi3m/comic-feed/app/feed"
	"github.com/lysyi3m/comic-feed/app/metrics"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const taskTimeout = 5 * time.Minute

type Scheduler struct {
	sourceRepo  database.SourceRepository
	articleRepo database.ArticleRepository
	configCache *feed.ConfigCache
	fetcher     StoryFetcher
	filterer    *feed.Filterer
	generator   ComicGenerator
	interval    time.Duration
	articleTTL  time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	// active holds sources with a process task queued, running or awaiting
	// retry. A source is never processed twice at once.
	activeMu sync.Mutex
	active   map[string]struct{}
}

func NewScheduler(configCache *feed.ConfigCache, sourceRepo database.SourceRepository,
	articleRepo database.ArticleRepository, fetcher StoryFetcher, filterer *feed.Filterer,
	generator ComicGenerator) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		sourceRepo:  sourceRepo,
		articleRepo: articleRepo,
		configCache: configCache,
		fetcher:     fetcher,
		filterer:    filterer,
		generator:   generator,
		interval:    time.Duration(cfg.SchedulerInterval) * time.Second,
		articleTTL:  cfg.ArticleTTL,
		workerCount: cfg.WorkerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 300),
		active:      make(map[string]struct{}),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	defer func() { metrics.SetQueueDepth(len(s.taskQueue)) }()

	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

// RefreshSource reloads a source's config file and queues it for an
// immediate processing pass, regardless of its next fetch time.
func (s *Scheduler) RefreshSource(name string) error {
	sourceConfig, err := s.configCache.LoadConfig(name)
	if err != nil {
		return fmt.Errorf("failed to reload source config: %w", err)
	}

	if err := s.EnqueueTask(NewSyncSourceConfigTask(name, sourceConfig, s.sourceRepo)); err != nil {
		return err
	}

	return s.enqueueProcess(sourceConfig)
}

// enqueueProcess queues a process task unless one is already active for the
// source.
func (s *Scheduler) enqueueProcess(sourceConfig *feed.Config) error {
	name := sourceConfig.Name

	s.activeMu.Lock()
	if _, ok := s.active[name]; ok {
		s.activeMu.Unlock()
		slog.Debug("Source already being processed, skipping", "source", name)
		return nil
	}
	s.active[name] = struct{}{}
	s.activeMu.Unlock()

	task := NewProcessSourceTask(name, sourceConfig, s.fetcher, s.filterer, s.generator, s.sourceRepo, s.articleRepo)
	if err := s.EnqueueTask(task); err != nil {
		s.release(task)
		return err
	}
	return nil
}

// release marks a finished process task's source as idle.
func (s *Scheduler) release(task TaskInterface) {
	if task.GetType() != TaskTypeProcessSource {
		return
	}
	s.activeMu.Lock()
	delete(s.active, task.GetSourceName())
	s.activeMu.Unlock()
}

func (s *Scheduler) isActive(name string) bool {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	_, ok := s.active[name]
	return ok
}

func (s *Scheduler) enqueueStartupTasks() {
	sourceConfigs := s.configCache.GetConfigs()
	if len(sourceConfigs) == 0 {
		slog.Debug("No source configurations found")
		return
	}

	slog.Debug("Processing source configurations", "count", len(sourceConfigs))

	for _, sourceConfig := range sourceConfigs {
		syncTask := NewSyncSourceConfigTask(sourceConfig.Name, sourceConfig, s.sourceRepo)
		if err := s.EnqueueTask(syncTask); err != nil {
			slog.Warn("Failed to enqueue SyncSourceConfigTask", "source", sourceConfig.Name, "error", err)
			continue
		}

		if !sourceConfig.Settings.Enabled {
			slog.Debug("Source disabled, skipping ProcessSourceTask", "source", sourceConfig.Name)
			continue
		}

		if err := s.enqueueProcess(sourceConfig); err != nil {
			slog.Warn("Failed to enqueue ProcessSourceTask", "source", sourceConfig.Name, "error", err)
		}
	}

	s.enqueueCleanup()
}

func (s *Scheduler) enqueueTasks() {
	sourceConfigs := s.configCache.GetEnabledConfigs()
	slog.Debug("Processing enabled source configurations for task scheduling", "count", len(sourceConfigs))

	for _, sourceConfig := range sourceConfigs {
		if s.isActive(sourceConfig.Name) {
			slog.Debug("Source already being processed, skipping", "source", sourceConfig.Name)
			continue
		}

		source, err := s.sourceRepo.GetSource(sourceConfig.Name)
		if err != nil {
			slog.Warn("Failed to get source from database, skipping", "source", sourceConfig.Name, "error", err)
			continue
		}

		now := time.Now().UTC()
		if source != nil && source.NextFetchAt != nil && source.NextFetchAt.After(now) {
			slog.Debug("Source not due for refresh yet", "source", sourceConfig.Name, "next_fetch_at", source.NextFetchAt)
			continue
		}

		if err := s.enqueueProcess(sourceConfig); err != nil {
			slog.Warn("Failed to enqueue ProcessSourceTask", "source", sourceConfig.Name, "error", err)
		}
	}

	s.enqueueCleanup()
}

func (s *Scheduler) enqueueCleanup() {
	if err := s.EnqueueTask(NewCleanupArticlesTask(s.articleTTL, s.articleRepo)); err != nil {
		slog.Warn("Failed to enqueue CleanupArticlesTask", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			metrics.SetQueueDepth(len(s.taskQueue))
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	duration := task.GetDuration().Seconds()

	if err == nil {
		metrics.RecordTask(string(task.GetType()), "success", duration)
		s.release(task)
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		s.release(task)
		metrics.RecordTask(string(task.GetType()), "failed", duration)
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	metrics.RecordTask(string(task.GetType()), "retry", duration)
	task.IncrementRetryCount()
	delay := retryDelay(task.GetRetryCount())

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "source", task.GetSourceName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", delay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
			s.release(task)
		case <-timer.C:
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				s.release(task)
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}
