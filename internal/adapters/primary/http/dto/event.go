package dto

// ============================================================================
// Event DTOs
// ============================================================================

type EventRequest struct {
	Type       string `json:"type" binding:"required"`
	Branch     string `json:"branch" binding:"required"`
	Commit     string `json:"commit" binding:"required"`
	Repository string `json:"repository"`
	CloneURL   string `json:"clone_url"`
}

type EventResponse struct {
	Triggered int           `json:"triggered"`
	Runs      []RunResponse `json:"runs"`
}
