package tasks

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application to manage background task processing.
// This interface provides task queue management, worker pool control and
// monitoring capabilities.
// Example usage:
//
//	scheduler := NewScheduler(configCache, orchestrator, registry, disclosureRepo, jobRepo, archiver)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewRunPipelineTask(...))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
