package models

import "time"

// RunStatus is the lifecycle state of a skill's evaluation run.
type RunStatus string

// RunStatus constants
const (
	StatusPending  RunStatus = "pending"
	StatusPartial  RunStatus = "partial"
	StatusComplete RunStatus = "complete"
	StatusErrored  RunStatus = "errored"
)

// EvaluationRun tracks one skill's progress through the pipeline.
// Only the orchestrator mutates it.
type EvaluationRun struct {
	SkillID       string    `json:"skill_id"`
	Status        RunStatus `json:"status"`
	TrialCount    int       `json:"trial_count"`
	ErroredTrials int       `json:"errored_trials"`
	ErrorLog      []string  `json:"error_log,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at,omitzero"`
}

// RecordError appends an error message to the run's log.
func (r *EvaluationRun) RecordError(msg string) {
	r.ErrorLog = append(r.ErrorLog, msg)
}
