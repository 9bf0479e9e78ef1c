package dto

import (
	"time"

	"github.com/google/uuid"

	"workflow-runner-service/internal/core/domain"
)

// ============================================================================
// Workflow DTOs
// ============================================================================

type RegisterWorkflowRequest struct {
	Source string `json:"source" binding:"required"`
}

type UpdateWorkflowRequest struct {
	Source string `json:"source" binding:"required"`
}

type WorkflowResponse struct {
	ID        uuid.UUID           `json:"id"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
	Name      string              `json:"name"`
	Source    string              `json:"source,omitempty"`
	Spec      domain.WorkflowSpec `json:"spec"`
}

type ListWorkflowsResponse struct {
	Items      []WorkflowResponse `json:"items"`
	Total      int                `json:"total"`
	PageSize   int                `json:"page_size"`
	NextOffset int                `json:"next_offset"`
}

func ToWorkflowResponse(wf *domain.Workflow) WorkflowResponse {
	return WorkflowResponse{
		ID:        wf.ID,
		CreatedAt: wf.CreatedAt,
		UpdatedAt: wf.UpdatedAt,
		Name:      wf.Name,
		Source:    wf.Source,
		Spec:      wf.Spec,
	}
}

// ToWorkflowSummary omits the raw source for list responses.
func ToWorkflowSummary(wf *domain.Workflow) WorkflowResponse {
	resp := ToWorkflowResponse(wf)
	resp.Source = ""
	return resp
}
