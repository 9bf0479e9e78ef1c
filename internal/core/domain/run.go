package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Value Objects
// ============================================================================

// RunStatus is the lifecycle state shared by runs, jobs and steps.
type RunStatus string

const (
	StatusQueued    RunStatus = "QUEUED"
	StatusRunning   RunStatus = "RUNNING"
	StatusSuccess   RunStatus = "SUCCESS"
	StatusFailure   RunStatus = "FAILURE"
	StatusCancelled RunStatus = "CANCELLED"
	StatusSkipped   RunStatus = "SKIPPED"
)

// IsValid checks if the status is valid
func (s RunStatus) IsValid() bool {
	switch s {
	case StatusQueued, StatusRunning, StatusSuccess, StatusFailure, StatusCancelled, StatusSkipped:
		return true
	}
	return false
}

// Finished reports whether the status is terminal.
func (s RunStatus) Finished() bool {
	switch s {
	case StatusSuccess, StatusFailure, StatusCancelled, StatusSkipped:
		return true
	}
	return false
}

// ============================================================================
// Entities
// ============================================================================

// WorkflowRun is one triggered instance of a workflow: the event that started
// it plus a job run per matrix combination.
type WorkflowRun struct {
	ID           uuid.UUID `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	WorkflowID   uuid.UUID `json:"workflow_id"`
	WorkflowName string    `json:"workflow_name"`
	Event        EventType `json:"event"`
	Branch       string    `json:"branch"`
	Commit       string    `json:"commit"`
	Status       RunStatus `json:"status"`

	Jobs []*JobRun `json:"jobs,omitempty"`
}

// NewWorkflowRun builds a queued run for the workflow with one job run per
// matrix combination of every job template.
func NewWorkflowRun(wf *Workflow, ev *Event) *WorkflowRun {
	now := time.Now()
	run := &WorkflowRun{
		ID:           uuid.New(),
		CreatedAt:    now,
		UpdatedAt:    now,
		WorkflowID:   wf.ID,
		WorkflowName: wf.Name,
		Event:        ev.Type,
		Branch:       ev.Branch,
		Commit:       ev.Commit,
		Status:       StatusQueued,
	}

	for _, key := range wf.Spec.JobKeys() {
		spec := wf.Spec.Jobs[key]
		for _, combo := range ExpandMatrix(spec.Strategy) {
			run.Jobs = append(run.Jobs, newJobRun(run.ID, key, spec, combo))
		}
	}
	return run
}

// Start marks the run as executing.
func (r *WorkflowRun) Start() {
	r.Status = StatusRunning
	r.UpdatedAt = time.Now()
}

// Finish derives the terminal status from the job outcomes. A failed job
// fails the run even when fail-fast cancelled its siblings; skipped jobs do
// not fail the run.
func (r *WorkflowRun) Finish() {
	status := StatusSuccess
	for _, job := range r.Jobs {
		switch job.Status {
		case StatusFailure:
			status = StatusFailure
		case StatusCancelled:
			if status != StatusFailure {
				status = StatusCancelled
			}
		}
	}
	r.Status = status
	r.UpdatedAt = time.Now()
}

// Cancel marks the run and its unfinished jobs as cancelled.
func (r *WorkflowRun) Cancel() {
	r.Status = StatusCancelled
	r.UpdatedAt = time.Now()
	for _, job := range r.Jobs {
		if !job.Status.Finished() {
			job.Cancel()
		}
	}
}

// JobRun is one instantiated job: a job template bound to a single matrix
// combination.
type JobRun struct {
	ID         uuid.UUID         `json:"id"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	RunID      uuid.UUID         `json:"run_id"`
	JobKey     string            `json:"job_key"`
	Name       string            `json:"name"`
	RunsOn     string            `json:"runs_on"`
	Matrix     MatrixCombination `json:"matrix,omitempty"`
	FailFast   bool              `json:"fail_fast"`
	Status     RunStatus         `json:"status"`
	StartedAt  *time.Time        `json:"started_at,omitempty"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`

	Steps []*StepRun `json:"steps,omitempty"`
}

func newJobRun(runID uuid.UUID, key string, spec JobSpec, combo MatrixCombination) *JobRun {
	name := key
	if label := combo.Label(); label != "" {
		name = fmt.Sprintf("%s %s", key, label)
	}

	now := time.Now()
	job := &JobRun{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		RunID:     runID,
		JobKey:    key,
		Name:      name,
		RunsOn:    spec.RunsOn,
		Matrix:    combo,
		FailFast:  spec.Strategy.FailFastEnabled(),
		Status:    StatusQueued,
	}

	for i, step := range spec.Steps {
		job.Steps = append(job.Steps, &StepRun{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
			JobRunID:  job.ID,
			Index:     i,
			Name:      stepName(step, i),
			Status:    StatusQueued,
		})
	}
	return job
}

func stepName(step StepSpec, index int) string {
	if step.Name != "" {
		return step.Name
	}
	if step.Uses != "" {
		return step.Uses
	}
	if line := strings.SplitN(strings.TrimSpace(step.Run), "\n", 2)[0]; line != "" {
		return line
	}
	return fmt.Sprintf("step-%d", index)
}

// Start marks the job as executing.
func (j *JobRun) Start() {
	now := time.Now()
	j.Status = StatusRunning
	j.StartedAt = &now
	j.UpdatedAt = now
}

// Finish records the terminal status of the job.
func (j *JobRun) Finish(status RunStatus) {
	now := time.Now()
	j.Status = status
	j.FinishedAt = &now
	j.UpdatedAt = now
}

// Cancel marks the job and its unfinished steps as cancelled.
func (j *JobRun) Cancel() {
	j.Finish(StatusCancelled)
	for _, step := range j.Steps {
		if !step.Status.Finished() {
			step.Status = StatusCancelled
			step.UpdatedAt = j.UpdatedAt
		}
	}
}

// StepRun records the outcome of one step of a job run.
type StepRun struct {
	ID         uuid.UUID  `json:"id"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	JobRunID   uuid.UUID  `json:"job_run_id"`
	Index      int        `json:"index"`
	Name       string     `json:"name"`
	Status     RunStatus  `json:"status"`
	ExitCode   int        `json:"exit_code"`
	Output     string     `json:"output,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Start marks the step as executing.
func (s *StepRun) Start() {
	now := time.Now()
	s.Status = StatusRunning
	s.StartedAt = &now
	s.UpdatedAt = now
}

// Finish records the step outcome.
func (s *StepRun) Finish(status RunStatus, exitCode int, output string) {
	now := time.Now()
	s.Status = status
	s.ExitCode = exitCode
	s.Output = output
	s.FinishedAt = &now
	s.UpdatedAt = now
}

// Skip marks the step as skipped without running it.
func (s *StepRun) Skip() {
	now := time.Now()
	s.Status = StatusSkipped
	s.FinishedAt = &now
	s.UpdatedAt = now
}
