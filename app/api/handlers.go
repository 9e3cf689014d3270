package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/politrack/disclosures/app/breaker"
	"github.com/politrack/disclosures/app/cfg"
	"github.com/politrack/disclosures/app/config"
	"github.com/politrack/disclosures/app/database"
	"github.com/politrack/disclosures/app/pipeline"
	"github.com/politrack/disclosures/app/tasks"
)

func NewHandler(configCache *config.ConfigCache, politicians database.PoliticianRepository,
	disclosures database.DisclosureRepository, files database.StoredFileRepository,
	jobs database.JobExecutionRepository, registry *breaker.Registry,
	orchestrator *pipeline.Orchestrator, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		configCache:  configCache,
		politicians:  politicians,
		disclosures:  disclosures,
		files:        files,
		jobs:         jobs,
		registry:     registry,
		orchestrator: orchestrator,
		scheduler:    scheduler,
		version:      cfg.Get().Version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if count, err := h.disclosures.GetCount(); err == nil {
		health["disclosures"] = count
	}
	if count, err := h.politicians.GetCount(); err == nil {
		health["politicians"] = count
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if count, err := h.disclosures.GetCount(); err == nil {
		stats["disclosures"] = count
	}
	if bySource, err := h.disclosures.GetCountBySource(); err == nil {
		stats["disclosures_by_source"] = bySource
	}
	if count, err := h.politicians.GetCount(); err == nil {
		stats["politicians"] = count
	}
	if count, err := h.files.GetCount(); err == nil {
		stats["stored_files"] = count
	}

	stats["sources"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIListRuns(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	runs, err := h.jobs.List(limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(runs),
		"runs":  runs,
	})
}

func (h *Handler) APIGetRunByID(c *gin.Context) {
	id := c.Param("id")

	run, err := h.jobs.GetByID(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_run", "run_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up run"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}

	c.JSON(http.StatusOK, run)
}

func (h *Handler) APITriggerSourceRun(c *gin.Context) {
	name := c.Param("name")

	sourceConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found", "source": name})
		return
	}

	if !sourceConfig.Settings.Enabled {
		c.JSON(http.StatusConflict, gin.H{"error": "Source is disabled", "source": name})
		return
	}

	task := tasks.NewRunPipelineTask(sourceConfig, h.orchestrator)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Failed to enqueue pipeline run", "source", name, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to enqueue run", "source": name})
		return
	}

	slog.Info("Pipeline run triggered via API", "source", name)
	c.JSON(http.StatusAccepted, gin.H{
		"message": "Pipeline run enqueued",
		"source":  name,
		"task_id": task.GetID(),
	})
}

func (h *Handler) APIListBreakers(c *gin.Context) {
	statuses := h.registry.Statuses()

	c.JSON(http.StatusOK, gin.H{
		"count":    len(statuses),
		"breakers": statuses,
	})
}

func (h *Handler) APIListSources(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	sources := make([]map[string]interface{}, 0, len(configs))
	for _, sourceConfig := range configs {
		info := map[string]interface{}{
			"name":          sourceConfig.Name,
			"type":          sourceConfig.Type,
			"url":           sourceConfig.URL,
			"enabled":       sourceConfig.Settings.Enabled,
			"lookback_days": sourceConfig.Settings.LookbackDays,
			"parse_pdfs":    sourceConfig.Settings.ParsePDFs,
		}

		if lastRun, err := h.jobs.GetLastRun(sourceConfig.Name); err == nil && lastRun != nil {
			info["last_run"] = map[string]interface{}{
				"id":             lastRun.ID,
				"status":         lastRun.OverallStatus,
				"records_output": lastRun.RecordsOutput,
				"finished_at":    lastRun.FinishedAt.Format(time.RFC3339),
			}
		}

		sources = append(sources, info)
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(sources),
		"sources": sources,
	})
}
