package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"workflow-runner-service/internal/adapters/primary/http/dto"
	output "workflow-runner-service/internal/core/ports/output"
)

func (h *Handler) ListWorkflows(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := output.WorkflowFilter{
		Search: c.Query("search"),
		SortBy: c.Query("sort_by"),
		Order:  c.Query("order"),
		Limit:  limit,
		Offset: offset,
	}

	workflows, total, err := h.workflowSvc.List(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("list workflows failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.WorkflowResponse, 0, len(workflows))
	for _, wf := range workflows {
		items = append(items, dto.ToWorkflowSummary(wf))
	}

	c.JSON(http.StatusOK, dto.ListWorkflowsResponse{
		Items:      items,
		Total:      total,
		PageSize:   limit,
		NextOffset: offset + len(items),
	})
}

func (h *Handler) GetWorkflow(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	wf, err := h.workflowSvc.Get(c.Request.Context(), id)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkflowResponse(wf))
}

func (h *Handler) FindWorkflow(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name query parameter is required"})
		return
	}

	wf, err := h.workflowSvc.GetByName(c.Request.Context(), name)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkflowResponse(wf))
}

func (h *Handler) RegisterWorkflow(c *gin.Context) {
	var req dto.RegisterWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wf, err := h.workflowSvc.Register(c.Request.Context(), req.Source)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	log.WithField("workflow", wf.Name).Info("workflow registered")
	c.JSON(http.StatusCreated, dto.ToWorkflowResponse(wf))
}

func (h *Handler) UpdateWorkflow(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req dto.UpdateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wf, err := h.workflowSvc.Update(c.Request.Context(), id, req.Source)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkflowResponse(wf))
}

func (h *Handler) DeleteWorkflow(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := h.workflowSvc.Delete(c.Request.Context(), id); err != nil {
		mapDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
