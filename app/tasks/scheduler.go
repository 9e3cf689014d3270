package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/politrack/disclosures/app/cfg"
	"github.com/politrack/disclosures/app/config"
	"github.com/politrack/disclosures/app/database"
	"github.com/politrack/disclosures/app/pdfextract"
	"github.com/politrack/disclosures/app/pipeline"
	"github.com/politrack/disclosures/app/storage"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	configCache  *config.ConfigCache
	orchestrator *pipeline.Orchestrator
	disclosures  database.DisclosureRepository
	jobs         database.JobExecutionRepository
	archiver     *storage.Manager
	interval     time.Duration
	taskTimeout  time.Duration
	workerCount  int
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	taskQueue    chan TaskInterface

	mu         sync.Mutex
	extractors map[string]*pdfextract.Extractor
}

func NewScheduler(configCache *config.ConfigCache, orchestrator *pipeline.Orchestrator,
	disclosures database.DisclosureRepository, jobs database.JobExecutionRepository,
	archiver *storage.Manager) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		configCache:  configCache,
		orchestrator: orchestrator,
		disclosures:  disclosures,
		jobs:         jobs,
		archiver:     archiver,
		interval:     time.Duration(cfg.SchedulerInterval) * time.Second,
		taskTimeout:  time.Duration(cfg.RunTimeout) * time.Second,
		workerCount:  cfg.WorkerCount,
		ctx:          ctx,
		cancel:       cancel,
		taskQueue:    make(chan TaskInterface, 300),
		extractors:   make(map[string]*pdfextract.Extractor),
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

		s.enqueueTasks()

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
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueTasks() {
	syncTask := NewSyncSourceConfigsTask(s.configCache)
	if err := s.EnqueueTask(syncTask); err != nil {
		slog.Warn("Failed to enqueue SyncSourceConfigsTask", "error", err)
	}

	sourceConfigs := s.configCache.GetEnabledConfigs()
	if len(sourceConfigs) == 0 {
		slog.Debug("No enabled source configurations found")
		return
	}

	slog.Debug("Scheduling source tasks", "count", len(sourceConfigs))

	now := time.Now().UTC()
	for _, sourceConfig := range sourceConfigs {
		due, err := s.sourceDue(sourceConfig, now)
		if err != nil {
			slog.Warn("Failed to determine source due-ness, skipping", "source", sourceConfig.Name, "error", err)
			continue
		}

		if due {
			runTask := NewRunPipelineTask(sourceConfig, s.orchestrator)
			if err := s.EnqueueTask(runTask); err != nil {
				slog.Warn("Failed to enqueue RunPipelineTask", "source", sourceConfig.Name, "error", err)
			}
		} else {
			slog.Debug("Source not due for refresh yet", "source", sourceConfig.Name)
		}

		if sourceConfig.Settings.ParsePDFs {
			reparseTask := NewReparsePDFsTask(sourceConfig, s.extractorFor(sourceConfig), s.disclosures)
			if err := s.EnqueueTask(reparseTask); err != nil {
				slog.Warn("Failed to enqueue ReparsePDFsTask", "source", sourceConfig.Name, "error", err)
			}
		}
	}

	expireTask := NewExpireStoredFilesTask(s.archiver)
	if err := s.EnqueueTask(expireTask); err != nil {
		slog.Warn("Failed to enqueue ExpireStoredFilesTask", "error", err)
	}
}

// sourceDue reports whether enough time has passed since the source's last
// recorded run. Sources that have never run are due immediately.
func (s *Scheduler) sourceDue(sourceConfig *config.SourceConfig, now time.Time) (bool, error) {
	lastRun, err := s.jobs.GetLastRun(sourceConfig.Name)
	if err != nil {
		return false, err
	}
	if lastRun == nil {
		return true, nil
	}

	refreshInterval := time.Duration(sourceConfig.Settings.RefreshInterval) * time.Second
	return !lastRun.FinishedAt.Add(refreshInterval).After(now), nil
}

// extractorFor returns the per-source PDF extractor, creating it on first
// use. The HTTP client comes from the orchestrator's per-source cache, so
// reparse downloads and pipeline fetches share one rate limiter.
func (s *Scheduler) extractorFor(sourceConfig *config.SourceConfig) *pdfextract.Extractor {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.extractors[sourceConfig.Name]; ok {
		return e
	}

	client := s.orchestrator.ClientFor(sourceConfig)
	e := pdfextract.NewExtractor(client, s.archiver, sourceConfig.Name)
	s.extractors[sourceConfig.Name] = e
	return e
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "source", task.GetSourceName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
