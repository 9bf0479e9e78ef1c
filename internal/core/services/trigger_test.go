package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"workflow-runner-service/internal/core/domain"
	output "workflow-runner-service/internal/core/ports/output"
	"workflow-runner-service/internal/testutil"
)

func TestTriggerService_HandleEvent_MatchingPush(t *testing.T) {
	workflows := new(testutil.MockWorkflowRepo)
	runs := new(testutil.MockRunRepo)
	svc := NewTriggerService(workflows, runs)

	wf, err := domain.NewWorkflow(ciSource)
	require.NoError(t, err)

	workflows.On("List", mock.Anything, mock.Anything).
		Return([]*domain.Workflow{wf}, 1, nil)
	runs.On("CreateRun", mock.Anything, mock.AnythingOfType("*domain.WorkflowRun")).Return(nil)

	ev, err := domain.NewEvent(domain.EventPush, "main", "abc123", "org/repo", "")
	require.NoError(t, err)

	created, err := svc.HandleEvent(context.Background(), ev)
	require.NoError(t, err)
	require.Len(t, created, 1)

	run := created[0]
	assert.Equal(t, wf.ID, run.WorkflowID)
	assert.Equal(t, domain.StatusQueued, run.Status)
	assert.Len(t, run.Jobs, 4)
	for _, job := range run.Jobs {
		assert.Equal(t, domain.StatusQueued, job.Status)
		assert.Len(t, job.Steps, 3)
	}
	runs.AssertExpectations(t)
}

func TestTriggerService_HandleEvent_PullRequestTargetBranch(t *testing.T) {
	workflows := new(testutil.MockWorkflowRepo)
	runs := new(testutil.MockRunRepo)
	svc := NewTriggerService(workflows, runs)

	wf, err := domain.NewWorkflow(ciSource)
	require.NoError(t, err)
	workflows.On("List", mock.Anything, mock.Anything).
		Return([]*domain.Workflow{wf}, 1, nil)
	runs.On("CreateRun", mock.Anything, mock.Anything).Return(nil)

	ev, err := domain.NewEvent(domain.EventPullRequest, "main", "def456", "", "")
	require.NoError(t, err)

	created, err := svc.HandleEvent(context.Background(), ev)
	require.NoError(t, err)
	assert.Len(t, created, 1)
}

func TestTriggerService_HandleEvent_BranchDoesNotMatch(t *testing.T) {
	workflows := new(testutil.MockWorkflowRepo)
	runs := new(testutil.MockRunRepo)
	svc := NewTriggerService(workflows, runs)

	wf, err := domain.NewWorkflow(ciSource)
	require.NoError(t, err)
	workflows.On("List", mock.Anything, mock.Anything).
		Return([]*domain.Workflow{wf}, 1, nil)

	ev, err := domain.NewEvent(domain.EventPush, "feature/x", "abc123", "", "")
	require.NoError(t, err)

	created, err := svc.HandleEvent(context.Background(), ev)
	require.NoError(t, err)
	assert.Empty(t, created)
	runs.AssertNotCalled(t, "CreateRun")
}

func TestTriggerService_HandleEvent_Paginates(t *testing.T) {
	workflows := new(testutil.MockWorkflowRepo)
	runs := new(testutil.MockRunRepo)
	svc := NewTriggerService(workflows, runs)

	wf, err := domain.NewWorkflow(ciSource)
	require.NoError(t, err)

	page := make([]*domain.Workflow, triggerListLimit)
	for i := range page {
		page[i] = wf
	}
	workflows.On("List", mock.Anything, output.WorkflowFilter{Limit: triggerListLimit, Offset: 0}).
		Return(page, triggerListLimit+1, nil).Once()
	workflows.On("List", mock.Anything, output.WorkflowFilter{Limit: triggerListLimit, Offset: triggerListLimit}).
		Return([]*domain.Workflow{wf}, triggerListLimit+1, nil).Once()
	runs.On("CreateRun", mock.Anything, mock.Anything).Return(nil)

	ev, err := domain.NewEvent(domain.EventPush, "main", "abc123", "", "")
	require.NoError(t, err)

	created, err := svc.HandleEvent(context.Background(), ev)
	require.NoError(t, err)
	assert.Len(t, created, triggerListLimit+1)
	workflows.AssertExpectations(t)
}
