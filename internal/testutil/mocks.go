package testutil

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"workflow-runner-service/internal/core/domain"
	output "workflow-runner-service/internal/core/ports/output"
)

// MockWorkflowRepo is a mock of WorkflowRepository.
type MockWorkflowRepo struct {
	mock.Mock
}

func (m *MockWorkflowRepo) Create(ctx context.Context, wf *domain.Workflow) error {
	args := m.Called(ctx, wf)
	return args.Error(0)
}

func (m *MockWorkflowRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Workflow), args.Error(1)
}

func (m *MockWorkflowRepo) GetByName(ctx context.Context, name string) (*domain.Workflow, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Workflow), args.Error(1)
}

func (m *MockWorkflowRepo) Update(ctx context.Context, wf *domain.Workflow) error {
	args := m.Called(ctx, wf)
	return args.Error(0)
}

func (m *MockWorkflowRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockWorkflowRepo) List(ctx context.Context, filter output.WorkflowFilter) ([]*domain.Workflow, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Workflow), args.Int(1), args.Error(2)
}

// MockRunRepo is a mock of RunRepository.
type MockRunRepo struct {
	mock.Mock
}

func (m *MockRunRepo) CreateRun(ctx context.Context, run *domain.WorkflowRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunRepo) GetRun(ctx context.Context, id uuid.UUID) (*domain.WorkflowRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WorkflowRun), args.Error(1)
}

func (m *MockRunRepo) ListRuns(ctx context.Context, filter output.RunFilter) ([]*domain.WorkflowRun, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.WorkflowRun), args.Int(1), args.Error(2)
}

func (m *MockRunRepo) UpdateRunStatus(ctx context.Context, id uuid.UUID, status domain.RunStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockRunRepo) GetJob(ctx context.Context, id uuid.UUID) (*domain.JobRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JobRun), args.Error(1)
}

func (m *MockRunRepo) ListJobs(ctx context.Context, runID uuid.UUID) ([]*domain.JobRun, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.JobRun), args.Error(1)
}

func (m *MockRunRepo) UpdateJob(ctx context.Context, job *domain.JobRun) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockRunRepo) UpdateStep(ctx context.Context, step *domain.StepRun) error {
	args := m.Called(ctx, step)
	return args.Error(0)
}

// MockCoverageClient is a mock of CoverageClient.
type MockCoverageClient struct {
	mock.Mock
}

func (m *MockCoverageClient) IsAvailable() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockCoverageClient) Upload(ctx context.Context, up *output.CoverageUpload) error {
	args := m.Called(ctx, up)
	return args.Error(0)
}

// MockDispatcher is a mock of services.Dispatcher.
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(runID uuid.UUID) {
	m.Called(runID)
}

func (m *MockDispatcher) Cancel(runID uuid.UUID) bool {
	args := m.Called(runID)
	return args.Bool(0)
}
