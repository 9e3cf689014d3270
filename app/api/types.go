package api

import (
	"github.com/politrack/disclosures/app/breaker"
	"github.com/politrack/disclosures/app/config"
	"github.com/politrack/disclosures/app/database"
	"github.com/politrack/disclosures/app/pipeline"
	"github.com/politrack/disclosures/app/tasks"
)

type Handler struct {
	configCache  *config.ConfigCache
	politicians  database.PoliticianRepository
	disclosures  database.DisclosureRepository
	files        database.StoredFileRepository
	jobs         database.JobExecutionRepository
	registry     *breaker.Registry
	orchestrator *pipeline.Orchestrator
	scheduler    tasks.TaskSchedulerInterface
	version      string
}
