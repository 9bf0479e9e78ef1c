package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"workflow-runner-service/internal/adapters/primary/http/dto"
	"workflow-runner-service/internal/core/domain"
)

// HandleEvent receives a repository event and queues a run for every
// workflow whose triggers match. Matched runs start executing immediately.
func (h *Handler) HandleEvent(c *gin.Context) {
	var req dto.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ev, err := domain.NewEvent(domain.EventType(req.Type), req.Branch, req.Commit, req.Repository, req.CloneURL)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	runs, err := h.triggerSvc.HandleEvent(c.Request.Context(), ev)
	if err != nil {
		log.WithError(err).Error("event handling failed")
		mapDomainError(c, err)
		return
	}

	for _, run := range runs {
		h.dispatcher.Dispatch(run.ID)
	}

	resp := dto.EventResponse{Triggered: len(runs)}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, dto.ToRunResponse(run))
	}
	c.JSON(http.StatusAccepted, resp)
}
