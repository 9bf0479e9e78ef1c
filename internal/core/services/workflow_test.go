package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"workflow-runner-service/internal/core/domain"
	output "workflow-runner-service/internal/core/ports/output"
	"workflow-runner-service/internal/testutil"
)

const ciSource = `
name: run-tests
on:
  push:
    branches: [main]
  pull_request:
    branches: [main]
env:
  ENV_NAME: ci
jobs:
  tests:
    runs-on: ${{ matrix.os }}
    strategy:
      fail-fast: false
      matrix:
        os: [ubuntu-latest, macos-latest]
        python-version: ["3.10", "3.12"]
    env:
      PYTHON_VERSION: ${{ matrix.python-version }}
    steps:
      - name: install
        run: pip install -r requirements.txt
      - name: test
        run: pytest --cov=. --cov-report=xml
      - name: upload coverage
        uses: coverage-upload
        if: matrix.os == 'ubuntu-latest' && success()
        with:
          file: coverage.xml
          flags: unittests
          fail-on-error: "true"
`

func TestWorkflowService_Register(t *testing.T) {
	repo := new(testutil.MockWorkflowRepo)
	svc := NewWorkflowService(repo)

	stored, err := domain.NewWorkflow(ciSource)
	require.NoError(t, err)

	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Workflow")).Return(nil)
	repo.On("GetByID", mock.Anything, mock.AnythingOfType("uuid.UUID")).Return(stored, nil)

	wf, err := svc.Register(context.Background(), ciSource)
	require.NoError(t, err)
	assert.Equal(t, "run-tests", wf.Name)
	assert.Len(t, wf.Spec.Jobs, 1)
	repo.AssertExpectations(t)
}

func TestWorkflowService_Register_InvalidSource(t *testing.T) {
	repo := new(testutil.MockWorkflowRepo)
	svc := NewWorkflowService(repo)

	_, err := svc.Register(context.Background(), "name: x\njobs: {}\n")
	assert.Error(t, err)
	repo.AssertNotCalled(t, "Create")
}

func TestWorkflowService_Register_NameConflict(t *testing.T) {
	repo := new(testutil.MockWorkflowRepo)
	svc := NewWorkflowService(repo)

	repo.On("Create", mock.Anything, mock.Anything).Return(domain.ErrWorkflowNameConflict)

	_, err := svc.Register(context.Background(), ciSource)
	assert.ErrorIs(t, err, domain.ErrWorkflowNameConflict)
}

func TestWorkflowService_List_DefaultsLimit(t *testing.T) {
	repo := new(testutil.MockWorkflowRepo)
	svc := NewWorkflowService(repo)

	repo.On("List", mock.Anything, output.WorkflowFilter{Limit: 20}).
		Return([]*domain.Workflow{}, 0, nil)

	_, _, err := svc.List(context.Background(), output.WorkflowFilter{})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestWorkflowService_Update(t *testing.T) {
	repo := new(testutil.MockWorkflowRepo)
	svc := NewWorkflowService(repo)

	existing, err := domain.NewWorkflow(ciSource)
	require.NoError(t, err)

	repo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)
	repo.On("Update", mock.Anything, existing).Return(nil)

	updated := strings.Replace(ciSource, "name: run-tests", "name: renamed", 1)
	wf, err := svc.Update(context.Background(), existing.ID, updated)
	require.NoError(t, err)
	assert.Equal(t, "renamed", wf.Name)
	assert.Equal(t, updated, wf.Source)
}

func TestWorkflowService_Update_InvalidSource(t *testing.T) {
	repo := new(testutil.MockWorkflowRepo)
	svc := NewWorkflowService(repo)

	existing, err := domain.NewWorkflow(ciSource)
	require.NoError(t, err)
	repo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)

	_, err = svc.Update(context.Background(), existing.ID, "not: [valid")
	assert.ErrorIs(t, err, domain.ErrInvalidWorkflowYAML)
	repo.AssertNotCalled(t, "Update")
}

func TestWorkflowService_Delete_NotFound(t *testing.T) {
	repo := new(testutil.MockWorkflowRepo)
	svc := NewWorkflowService(repo)

	id := uuid.New()
	repo.On("GetByID", mock.Anything, id).Return(nil, domain.ErrWorkflowNotFound)

	err := svc.Delete(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
	repo.AssertNotCalled(t, "Delete")
}
