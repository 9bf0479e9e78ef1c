package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"workflow-runner-service/internal/core/domain"
)

func postEvent(r http.Handler, body map[string]string) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", "/api/v1/workflow-runner/events", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleEvent_TriggersMatchingWorkflow(t *testing.T) {
	workflowRepo, runRepo, dispatcher, r := setupRouter()

	wf := sampleWorkflow(t)
	workflowRepo.On("List", mock.Anything, mock.Anything).Return([]*domain.Workflow{wf}, 1, nil)
	runRepo.On("CreateRun", mock.Anything, mock.AnythingOfType("*domain.WorkflowRun")).Return(nil)
	dispatcher.On("Dispatch", mock.AnythingOfType("uuid.UUID")).Return()

	w := postEvent(r, map[string]string{
		"type":   "push",
		"branch": "main",
		"commit": "abc123",
	})

	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, float64(1), resp["triggered"])
	dispatcher.AssertNumberOfCalls(t, "Dispatch", 1)
}

func TestHandleEvent_NoMatch(t *testing.T) {
	workflowRepo, runRepo, dispatcher, r := setupRouter()

	wf := sampleWorkflow(t)
	workflowRepo.On("List", mock.Anything, mock.Anything).Return([]*domain.Workflow{wf}, 1, nil)

	w := postEvent(r, map[string]string{
		"type":   "push",
		"branch": "feature/other",
		"commit": "abc123",
	})

	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, float64(0), resp["triggered"])
	runRepo.AssertNotCalled(t, "CreateRun")
	dispatcher.AssertNotCalled(t, "Dispatch")
}

func TestHandleEvent_InvalidType(t *testing.T) {
	_, _, _, r := setupRouter()

	w := postEvent(r, map[string]string{
		"type":   "schedule",
		"branch": "main",
		"commit": "abc123",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleEvent_MissingFields(t *testing.T) {
	_, _, _, r := setupRouter()

	w := postEvent(r, map[string]string{"type": "push"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
