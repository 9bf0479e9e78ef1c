package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"workflow-runner-service/internal/core/domain"
	output "workflow-runner-service/internal/core/ports/output"
)

type WorkflowService struct {
	repo output.WorkflowRepository
}

func NewWorkflowService(repo output.WorkflowRepository) *WorkflowService {
	return &WorkflowService{repo: repo}
}

// Register parses, validates and stores a workflow definition.
func (s *WorkflowService) Register(ctx context.Context, source string) (*domain.Workflow, error) {
	wf, err := domain.NewWorkflow(source)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, wf); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, wf.ID)
}

func (s *WorkflowService) Get(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *WorkflowService) GetByName(ctx context.Context, name string) (*domain.Workflow, error) {
	return s.repo.GetByName(ctx, name)
}

func (s *WorkflowService) List(ctx context.Context, filter output.WorkflowFilter) ([]*domain.Workflow, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

// Update replaces the source of an existing workflow. The new source must
// parse and validate; the workflow keeps its identity.
func (s *WorkflowService) Update(ctx context.Context, id uuid.UUID, source string) (*domain.Workflow, error) {
	wf, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	spec, err := domain.ParseWorkflowSpec(source)
	if err != nil {
		return nil, err
	}

	wf.Name = spec.Name
	wf.Source = source
	wf.Spec = *spec
	wf.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, wf); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, id)
}

func (s *WorkflowService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
