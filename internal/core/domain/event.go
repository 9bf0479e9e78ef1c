package domain

// EventType identifies the repository event that can trigger workflows.
type EventType string

const (
	EventPush        EventType = "push"
	EventPullRequest EventType = "pull_request"
)

// IsValid checks if the event type is valid
func (t EventType) IsValid() bool {
	return t == EventPush || t == EventPullRequest
}

// Event is a repository event delivered to the webhook endpoint. For
// pull_request events Branch is the target branch of the pull request, so
// branch filters apply the same way for both event types.
type Event struct {
	Type       EventType `json:"type"`
	Branch     string    `json:"branch"`
	Commit     string    `json:"commit"`
	Repository string    `json:"repository"`
	CloneURL   string    `json:"clone_url,omitempty"`
}

// NewEvent creates a validated Event.
func NewEvent(eventType EventType, branch, commit, repository, cloneURL string) (*Event, error) {
	if !eventType.IsValid() {
		return nil, ErrInvalidEventType
	}
	if branch == "" {
		return nil, ErrMissingBranch
	}
	if commit == "" {
		return nil, ErrMissingCommit
	}

	return &Event{
		Type:       eventType,
		Branch:     branch,
		Commit:     commit,
		Repository: repository,
		CloneURL:   cloneURL,
	}, nil
}
