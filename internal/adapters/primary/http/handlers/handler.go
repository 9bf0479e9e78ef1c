package handlers

import (
	"workflow-runner-service/internal/core/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	workflowSvc *services.WorkflowService
	triggerSvc  *services.TriggerService
	runSvc      *services.RunService
	dispatcher  services.Dispatcher
}

func New(
	workflowSvc *services.WorkflowService,
	triggerSvc *services.TriggerService,
	runSvc *services.RunService,
	dispatcher services.Dispatcher,
) *Handler {
	return &Handler{
		workflowSvc: workflowSvc,
		triggerSvc:  triggerSvc,
		runSvc:      runSvc,
		dispatcher:  dispatcher,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	// Webhook events
	r.POST("/events", h.HandleEvent)

	// Workflows
	r.GET("/workflows", h.ListWorkflows)
	r.GET("/workflows/:id", h.GetWorkflow)
	r.GET("/workflow", h.FindWorkflow)
	r.POST("/workflows", h.RegisterWorkflow)
	r.PUT("/workflows/:id", h.UpdateWorkflow)
	r.DELETE("/workflows/:id", h.DeleteWorkflow)

	// Runs
	r.GET("/runs", h.ListRuns)
	r.GET("/runs/:id", h.GetRun)
	r.GET("/runs/:id/jobs", h.ListRunJobs)
	r.POST("/runs/:id/cancel", h.CancelRun)
	r.POST("/runs/:id/rerun", h.RerunRun)

	// Job runs
	r.GET("/jobs/:id", h.GetJob)
}
