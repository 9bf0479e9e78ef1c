package ports

import (
	"context"

	"github.com/google/uuid"

	"workflow-runner-service/internal/core/domain"
)

// ============================================================================
// Workflow Repository
// ============================================================================

// WorkflowRepository defines the contract for workflow definition persistence
type WorkflowRepository interface {
	// Create stores a new workflow definition
	Create(ctx context.Context, wf *domain.Workflow) error

	// GetByID retrieves a workflow by ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)

	// GetByName retrieves a workflow by name
	GetByName(ctx context.Context, name string) (*domain.Workflow, error)

	// Update replaces the source and spec of a workflow
	Update(ctx context.Context, wf *domain.Workflow) error

	// Delete deletes a workflow
	Delete(ctx context.Context, id uuid.UUID) error

	// List lists workflows with filtering
	List(ctx context.Context, filter WorkflowFilter) ([]*domain.Workflow, int, error)
}

// WorkflowFilter defines filters for listing workflows
type WorkflowFilter struct {
	Search string
	SortBy string
	Order  string
	Limit  int
	Offset int
}

// ============================================================================
// Run Repository
// ============================================================================

// RunRepository defines the contract for run persistence. A run is stored
// together with its job and step runs.
type RunRepository interface {
	// CreateRun stores a run with all of its job and step runs
	CreateRun(ctx context.Context, run *domain.WorkflowRun) error

	// GetRun retrieves a run with its jobs and their steps
	GetRun(ctx context.Context, id uuid.UUID) (*domain.WorkflowRun, error)

	// ListRuns lists runs with filtering
	ListRuns(ctx context.Context, filter RunFilter) ([]*domain.WorkflowRun, int, error)

	// UpdateRunStatus updates the status of a run
	UpdateRunStatus(ctx context.Context, id uuid.UUID, status domain.RunStatus) error

	// GetJob retrieves a job run with its steps
	GetJob(ctx context.Context, id uuid.UUID) (*domain.JobRun, error)

	// ListJobs lists the job runs of a run (steps not loaded)
	ListJobs(ctx context.Context, runID uuid.UUID) ([]*domain.JobRun, error)

	// UpdateJob persists the status and timestamps of a job run
	UpdateJob(ctx context.Context, job *domain.JobRun) error

	// UpdateStep persists the outcome of a step run
	UpdateStep(ctx context.Context, step *domain.StepRun) error
}

// RunFilter defines filters for listing runs
type RunFilter struct {
	WorkflowID *uuid.UUID
	Event      string
	Branch     string
	Status     string
	SortBy     string
	Order      string
	Limit      int
	Offset     int
}
