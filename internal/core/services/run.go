package services

import (
	"context"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"workflow-runner-service/internal/core/domain"
	output "workflow-runner-service/internal/core/ports/output"
)

// Dispatcher starts and stops background run execution. Implemented by
// ExecutorService; kept as an interface so RunService can be tested without
// a real executor.
type Dispatcher interface {
	Dispatch(runID uuid.UUID)
	Cancel(runID uuid.UUID) bool
}

type RunService struct {
	runs       output.RunRepository
	workflows  output.WorkflowRepository
	dispatcher Dispatcher
}

func NewRunService(runs output.RunRepository, workflows output.WorkflowRepository, dispatcher Dispatcher) *RunService {
	return &RunService{runs: runs, workflows: workflows, dispatcher: dispatcher}
}

func (s *RunService) Get(ctx context.Context, id uuid.UUID) (*domain.WorkflowRun, error) {
	return s.runs.GetRun(ctx, id)
}

func (s *RunService) List(ctx context.Context, filter output.RunFilter) ([]*domain.WorkflowRun, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	return s.runs.ListRuns(ctx, filter)
}

func (s *RunService) ListJobs(ctx context.Context, runID uuid.UUID) ([]*domain.JobRun, error) {
	if _, err := s.runs.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.runs.ListJobs(ctx, runID)
}

func (s *RunService) GetJob(ctx context.Context, id uuid.UUID) (*domain.JobRun, error) {
	return s.runs.GetJob(ctx, id)
}

// Cancel stops a queued or running run. Finished runs cannot be cancelled.
func (s *RunService) Cancel(ctx context.Context, id uuid.UUID) (*domain.WorkflowRun, error) {
	run, err := s.runs.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Status.Finished() {
		return nil, domain.ErrRunNotCancelable
	}

	// An executing run is cancelled through its context; a run still queued
	// is finalized directly.
	if !s.dispatcher.Cancel(id) {
		run.Cancel()
		if err := s.runs.UpdateRunStatus(ctx, run.ID, run.Status); err != nil {
			return nil, err
		}
		for _, job := range run.Jobs {
			if err := s.runs.UpdateJob(ctx, job); err != nil {
				return nil, err
			}
			for _, step := range job.Steps {
				if step.Status != domain.StatusCancelled {
					continue
				}
				if err := s.runs.UpdateStep(ctx, step); err != nil {
					return nil, err
				}
			}
		}
	}

	log.WithField("run_id", id).Info("run cancelled")
	return s.runs.GetRun(ctx, id)
}

// Rerun queues a fresh run of the same workflow for the same event.
func (s *RunService) Rerun(ctx context.Context, id uuid.UUID) (*domain.WorkflowRun, error) {
	prev, err := s.runs.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}

	wf, err := s.workflows.GetByID(ctx, prev.WorkflowID)
	if err != nil {
		return nil, err
	}

	ev := &domain.Event{
		Type:   prev.Event,
		Branch: prev.Branch,
		Commit: prev.Commit,
	}

	run := domain.NewWorkflowRun(wf, ev)
	if err := s.runs.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(run.ID)

	log.WithFields(log.Fields{
		"run_id":      run.ID,
		"previous_id": prev.ID,
		"workflow":    wf.Name,
	}).Info("run requeued")
	return run, nil
}
