package domain

import "errors"

// ============================================================================
// Workflow Definition Errors
// ============================================================================

var (
	ErrWorkflowNotFound     = errors.New("workflow not found")
	ErrWorkflowNameConflict = errors.New("workflow with this name already exists")
	ErrInvalidWorkflowName  = errors.New("workflow name is required")
	ErrEmptyWorkflowSource  = errors.New("workflow source is required")
	ErrInvalidWorkflowYAML  = errors.New("workflow source is not valid YAML")
	ErrNoJobsDefined        = errors.New("workflow must define at least one job")
	ErrNoStepsDefined       = errors.New("job must define at least one step")
	ErrNoTriggersDefined    = errors.New("workflow must define at least one trigger")
	ErrStepMissingAction    = errors.New("step must define either run or uses")
	ErrStepAmbiguousAction  = errors.New("step cannot define both run and uses")
	ErrUnknownUsesAction    = errors.New("unknown uses action")
	ErrEmptyMatrixDimension = errors.New("matrix dimension must have at least one value")
)

// ============================================================================
// Run Errors
// ============================================================================

var (
	ErrRunNotFound      = errors.New("workflow run not found")
	ErrJobRunNotFound   = errors.New("job run not found")
	ErrStepRunNotFound  = errors.New("step run not found")
	ErrRunNotCancelable = errors.New("run is already finished")
	ErrInvalidRunStatus = errors.New("invalid run status")
)

// ============================================================================
// Event / Trigger Errors
// ============================================================================

var (
	ErrInvalidEventType = errors.New("event type must be push or pull_request")
	ErrMissingBranch    = errors.New("event branch is required")
	ErrMissingCommit    = errors.New("event commit SHA is required")
)

// ============================================================================
// Expression Errors
// ============================================================================

var (
	ErrInvalidExpression = errors.New("invalid expression")
	ErrNotBoolean        = errors.New("condition did not evaluate to a boolean")
)

// ============================================================================
// Integration Errors
// ============================================================================

var (
	ErrCoverageNotAvailable = errors.New("coverage upload is not configured")
	ErrCoverageUploadFailed = errors.New("coverage upload failed")
)
