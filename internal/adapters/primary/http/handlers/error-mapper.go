package handlers

import (
	"errors"
	"net/http"

	"workflow-runner-service/internal/core/domain"

	"github.com/gin-gonic/gin"
)

func mapDomainError(c *gin.Context, err error) {
	switch {
	// Not found errors
	case errors.Is(err, domain.ErrWorkflowNotFound),
		errors.Is(err, domain.ErrRunNotFound),
		errors.Is(err, domain.ErrJobRunNotFound),
		errors.Is(err, domain.ErrStepRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	// Conflict errors
	case errors.Is(err, domain.ErrWorkflowNameConflict),
		errors.Is(err, domain.ErrRunNotCancelable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	// Bad request / validation errors
	case errors.Is(err, domain.ErrInvalidWorkflowName),
		errors.Is(err, domain.ErrEmptyWorkflowSource),
		errors.Is(err, domain.ErrInvalidWorkflowYAML),
		errors.Is(err, domain.ErrNoJobsDefined),
		errors.Is(err, domain.ErrNoStepsDefined),
		errors.Is(err, domain.ErrNoTriggersDefined),
		errors.Is(err, domain.ErrStepMissingAction),
		errors.Is(err, domain.ErrStepAmbiguousAction),
		errors.Is(err, domain.ErrUnknownUsesAction),
		errors.Is(err, domain.ErrEmptyMatrixDimension),
		errors.Is(err, domain.ErrInvalidEventType),
		errors.Is(err, domain.ErrMissingBranch),
		errors.Is(err, domain.ErrMissingCommit),
		errors.Is(err, domain.ErrInvalidExpression),
		errors.Is(err, domain.ErrNotBoolean),
		errors.Is(err, domain.ErrInvalidRunStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	// Service unavailable errors
	case errors.Is(err, domain.ErrCoverageNotAvailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
