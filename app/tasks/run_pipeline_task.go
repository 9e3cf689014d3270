package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/politrack/disclosures/app/config"
	"github.com/politrack/disclosures/app/pipeline"
)

type RunPipelineTask struct {
	Task
	SourceConfig *config.SourceConfig
	orchestrator *pipeline.Orchestrator
}

func NewRunPipelineTask(sourceConfig *config.SourceConfig, orchestrator *pipeline.Orchestrator) *RunPipelineTask {
	return &RunPipelineTask{
		Task:         NewTask(TaskTypeRunPipeline, sourceConfig.Name),
		SourceConfig: sourceConfig,
		orchestrator: orchestrator,
	}
}

func (t *RunPipelineTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	summary, err := t.orchestrator.Run(ctx, t.SourceConfig)
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"status", summary.OverallStatus,
		"output", summary.RecordsOutput)

	return nil
}
