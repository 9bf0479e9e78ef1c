package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"workflow-runner-service/internal/core/domain"
	output "workflow-runner-service/internal/core/ports/output"
	"workflow-runner-service/internal/testutil"
)

func queuedRun(t *testing.T) (*domain.Workflow, *domain.WorkflowRun) {
	t.Helper()
	wf, err := domain.NewWorkflow(ciSource)
	require.NoError(t, err)
	ev, err := domain.NewEvent(domain.EventPush, "main", "abc123", "", "")
	require.NoError(t, err)
	return wf, domain.NewWorkflowRun(wf, ev)
}

func TestRunService_Cancel_Queued(t *testing.T) {
	runs := new(testutil.MockRunRepo)
	workflows := new(testutil.MockWorkflowRepo)
	dispatcher := new(testutil.MockDispatcher)
	svc := NewRunService(runs, workflows, dispatcher)

	_, run := queuedRun(t)
	runs.On("GetRun", mock.Anything, run.ID).Return(run, nil)
	// Not executing anywhere, so the service finalizes the run itself.
	dispatcher.On("Cancel", run.ID).Return(false)
	runs.On("UpdateRunStatus", mock.Anything, run.ID, domain.StatusCancelled).Return(nil)
	runs.On("UpdateJob", mock.Anything, mock.Anything).Return(nil)
	runs.On("UpdateStep", mock.Anything, mock.Anything).Return(nil)

	got, err := svc.Cancel(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
	steps := 0
	for _, job := range got.Jobs {
		assert.Equal(t, domain.StatusCancelled, job.Status)
		for _, step := range job.Steps {
			assert.Equal(t, domain.StatusCancelled, step.Status)
			runs.AssertCalled(t, "UpdateStep", mock.Anything, step)
			steps++
		}
	}
	runs.AssertNumberOfCalls(t, "UpdateStep", steps)
	runs.AssertExpectations(t)
}

func TestRunService_Cancel_Executing(t *testing.T) {
	runs := new(testutil.MockRunRepo)
	workflows := new(testutil.MockWorkflowRepo)
	dispatcher := new(testutil.MockDispatcher)
	svc := NewRunService(runs, workflows, dispatcher)

	_, run := queuedRun(t)
	run.Start()
	runs.On("GetRun", mock.Anything, run.ID).Return(run, nil)
	dispatcher.On("Cancel", run.ID).Return(true)

	_, err := svc.Cancel(context.Background(), run.ID)
	require.NoError(t, err)
	// The executor owns finalization; the service does not write statuses.
	runs.AssertNotCalled(t, "UpdateRunStatus")
}

func TestRunService_Cancel_Finished(t *testing.T) {
	runs := new(testutil.MockRunRepo)
	svc := NewRunService(runs, new(testutil.MockWorkflowRepo), new(testutil.MockDispatcher))

	_, run := queuedRun(t)
	run.Status = domain.StatusSuccess
	runs.On("GetRun", mock.Anything, run.ID).Return(run, nil)

	_, err := svc.Cancel(context.Background(), run.ID)
	assert.ErrorIs(t, err, domain.ErrRunNotCancelable)
}

func TestRunService_Rerun(t *testing.T) {
	runs := new(testutil.MockRunRepo)
	workflows := new(testutil.MockWorkflowRepo)
	dispatcher := new(testutil.MockDispatcher)
	svc := NewRunService(runs, workflows, dispatcher)

	wf, prev := queuedRun(t)
	prev.Status = domain.StatusFailure

	runs.On("GetRun", mock.Anything, prev.ID).Return(prev, nil)
	workflows.On("GetByID", mock.Anything, wf.ID).Return(wf, nil)
	runs.On("CreateRun", mock.Anything, mock.AnythingOfType("*domain.WorkflowRun")).Return(nil)
	dispatcher.On("Dispatch", mock.AnythingOfType("uuid.UUID")).Return()

	run, err := svc.Rerun(context.Background(), prev.ID)
	require.NoError(t, err)
	assert.NotEqual(t, prev.ID, run.ID)
	assert.Equal(t, prev.Branch, run.Branch)
	assert.Equal(t, prev.Commit, run.Commit)
	assert.Equal(t, domain.StatusQueued, run.Status)
	assert.Len(t, run.Jobs, len(prev.Jobs))
	dispatcher.AssertCalled(t, "Dispatch", run.ID)
}

func TestRunService_ListJobs_RunNotFound(t *testing.T) {
	runs := new(testutil.MockRunRepo)
	svc := NewRunService(runs, new(testutil.MockWorkflowRepo), new(testutil.MockDispatcher))

	id := uuid.New()
	runs.On("GetRun", mock.Anything, id).Return(nil, domain.ErrRunNotFound)

	_, err := svc.ListJobs(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
	runs.AssertNotCalled(t, "ListJobs")
}

func TestRunService_List_CapsLimit(t *testing.T) {
	runs := new(testutil.MockRunRepo)
	svc := NewRunService(runs, new(testutil.MockWorkflowRepo), new(testutil.MockDispatcher))

	runs.On("ListRuns", mock.Anything, output.RunFilter{Limit: 100}).
		Return([]*domain.WorkflowRun{}, 0, nil)

	_, _, err := svc.List(context.Background(), output.RunFilter{Limit: 500})
	require.NoError(t, err)
	runs.AssertExpectations(t)
}
