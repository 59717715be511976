package models

// Publish run status constants.
const (
	RunStatusQueued    = "queued"
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// Run trigger constants, recorded with each run.
const (
	TriggerCLI       = "cli"
	TriggerAPI       = "api"
	TriggerScheduled = "scheduled"
)

// Usage service types for AIUsageLog.
const (
	ServiceTypeEmbedding  = "embedding"
	ServiceTypeGeneration = "generation"
)
