package dto

import (
	"time"

	"github.com/google/uuid"

	"workflow-runner-service/internal/core/domain"
)

// ============================================================================
// Run DTOs
// ============================================================================

type RunResponse struct {
	ID           uuid.UUID        `json:"id"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	WorkflowID   uuid.UUID        `json:"workflow_id"`
	WorkflowName string           `json:"workflow_name"`
	Event        domain.EventType `json:"event"`
	Branch       string           `json:"branch"`
	Commit       string           `json:"commit"`
	Status       domain.RunStatus `json:"status"`
	Jobs         []JobRunResponse `json:"jobs,omitempty"`
}

type JobRunResponse struct {
	ID         uuid.UUID                `json:"id"`
	RunID      uuid.UUID                `json:"run_id"`
	JobKey     string                   `json:"job_key"`
	Name       string                   `json:"name"`
	RunsOn     string                   `json:"runs_on"`
	Matrix     domain.MatrixCombination `json:"matrix,omitempty"`
	FailFast   bool                     `json:"fail_fast"`
	Status     domain.RunStatus         `json:"status"`
	StartedAt  *time.Time               `json:"started_at,omitempty"`
	FinishedAt *time.Time               `json:"finished_at,omitempty"`
	Steps      []StepRunResponse        `json:"steps,omitempty"`
}

type StepRunResponse struct {
	ID         uuid.UUID        `json:"id"`
	Index      int              `json:"index"`
	Name       string           `json:"name"`
	Status     domain.RunStatus `json:"status"`
	ExitCode   int              `json:"exit_code"`
	Output     string           `json:"output,omitempty"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
}

type ListRunsResponse struct {
	Items      []RunResponse `json:"items"`
	Total      int           `json:"total"`
	PageSize   int           `json:"page_size"`
	NextOffset int           `json:"next_offset"`
}

func ToRunResponse(run *domain.WorkflowRun) RunResponse {
	resp := RunResponse{
		ID:           run.ID,
		CreatedAt:    run.CreatedAt,
		UpdatedAt:    run.UpdatedAt,
		WorkflowID:   run.WorkflowID,
		WorkflowName: run.WorkflowName,
		Event:        run.Event,
		Branch:       run.Branch,
		Commit:       run.Commit,
		Status:       run.Status,
	}
	for _, job := range run.Jobs {
		resp.Jobs = append(resp.Jobs, ToJobRunResponse(job))
	}
	return resp
}

func ToJobRunResponse(job *domain.JobRun) JobRunResponse {
	resp := JobRunResponse{
		ID:         job.ID,
		RunID:      job.RunID,
		JobKey:     job.JobKey,
		Name:       job.Name,
		RunsOn:     job.RunsOn,
		Matrix:     job.Matrix,
		FailFast:   job.FailFast,
		Status:     job.Status,
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
	}
	for _, step := range job.Steps {
		resp.Steps = append(resp.Steps, ToStepRunResponse(step))
	}
	return resp
}

func ToStepRunResponse(step *domain.StepRun) StepRunResponse {
	return StepRunResponse{
		ID:         step.ID,
		Index:      step.Index,
		Name:       step.Name,
		Status:     step.Status,
		ExitCode:   step.ExitCode,
		Output:     step.Output,
		StartedAt:  step.StartedAt,
		FinishedAt: step.FinishedAt,
	}
}
