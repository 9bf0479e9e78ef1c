package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// UsesCoverageUpload is the only built-in step action. A step declaring it
// hands its report to the configured coverage service instead of running a
// shell command.
const UsesCoverageUpload = "coverage-upload"

// ============================================================================
// Entities
// ============================================================================

// Workflow is a registered workflow definition. Source holds the YAML exactly
// as submitted; Spec is its parsed form.
type Workflow struct {
	ID        uuid.UUID    `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Name      string       `json:"name"`
	Source    string       `json:"source"`
	Spec      WorkflowSpec `json:"spec"`
}

// NewWorkflow parses and validates a workflow definition.
func NewWorkflow(source string) (*Workflow, error) {
	spec, err := ParseWorkflowSpec(source)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Workflow{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		Name:      spec.Name,
		Source:    source,
		Spec:      *spec,
	}, nil
}

// ============================================================================
// Workflow Specification
// ============================================================================

// WorkflowSpec is the parsed YAML definition.
type WorkflowSpec struct {
	Name string             `yaml:"name" json:"name"`
	On   Triggers           `yaml:"on" json:"on"`
	Env  map[string]string  `yaml:"env" json:"env,omitempty"`
	Jobs map[string]JobSpec `yaml:"jobs" json:"jobs"`
}

// Triggers declares which repository events start the workflow.
type Triggers struct {
	Push        *BranchFilter `yaml:"push" json:"push,omitempty"`
	PullRequest *BranchFilter `yaml:"pull_request" json:"pull_request,omitempty"`
}

// BranchFilter restricts a trigger to a set of branches. An empty list
// matches every branch.
type BranchFilter struct {
	Branches []string `yaml:"branches" json:"branches,omitempty"`
}

// JobSpec describes one job template. With a matrix strategy it instantiates
// one job run per combination.
type JobSpec struct {
	RunsOn   string            `yaml:"runs-on" json:"runs_on"`
	Strategy *Strategy         `yaml:"strategy" json:"strategy,omitempty"`
	Env      map[string]string `yaml:"env" json:"env,omitempty"`
	Steps    []StepSpec        `yaml:"steps" json:"steps"`
}

// Strategy controls matrix expansion. FailFast defaults to true, matching
// the convention of the platforms this models.
type Strategy struct {
	FailFast *bool               `yaml:"fail-fast" json:"fail_fast,omitempty"`
	Matrix   map[string][]string `yaml:"matrix" json:"matrix,omitempty"`
}

// FailFastEnabled reports whether a failing combination cancels its siblings.
func (s *Strategy) FailFastEnabled() bool {
	if s == nil || s.FailFast == nil {
		return true
	}
	return *s.FailFast
}

// StepSpec is a single step of a job. Exactly one of Run or Uses is set.
type StepSpec struct {
	Name            string            `yaml:"name" json:"name"`
	Run             string            `yaml:"run" json:"run,omitempty"`
	Uses            string            `yaml:"uses" json:"uses,omitempty"`
	With            map[string]string `yaml:"with" json:"with,omitempty"`
	If              string            `yaml:"if" json:"if,omitempty"`
	Shell           string            `yaml:"shell" json:"shell,omitempty"`
	Env             map[string]string `yaml:"env" json:"env,omitempty"`
	ContinueOnError bool              `yaml:"continue-on-error" json:"continue_on_error,omitempty"`
}

// ============================================================================
// Parsing & Validation
// ============================================================================

// ParseWorkflowSpec decodes and validates a YAML workflow definition.
func ParseWorkflowSpec(source string) (*WorkflowSpec, error) {
	if source == "" {
		return nil, ErrEmptyWorkflowSource
	}

	var spec WorkflowSpec
	if err := yaml.Unmarshal([]byte(source), &spec); err != nil {
		return nil, ErrInvalidWorkflowYAML
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate checks the structural invariants of the definition.
func (s *WorkflowSpec) Validate() error {
	if s.Name == "" {
		return ErrInvalidWorkflowName
	}
	if s.On.Push == nil && s.On.PullRequest == nil {
		return ErrNoTriggersDefined
	}
	if len(s.Jobs) == 0 {
		return ErrNoJobsDefined
	}

	for _, job := range s.Jobs {
		if len(job.Steps) == 0 {
			return ErrNoStepsDefined
		}
		if job.Strategy != nil {
			for _, values := range job.Strategy.Matrix {
				if len(values) == 0 {
					return ErrEmptyMatrixDimension
				}
			}
		}
		for _, step := range job.Steps {
			switch {
			case step.Run == "" && step.Uses == "":
				return ErrStepMissingAction
			case step.Run != "" && step.Uses != "":
				return ErrStepAmbiguousAction
			case step.Uses != "" && step.Uses != UsesCoverageUpload:
				return ErrUnknownUsesAction
			}
		}
	}
	return nil
}

// JobKeys returns the job identifiers in deterministic order.
func (s *WorkflowSpec) JobKeys() []string {
	keys := make([]string, 0, len(s.Jobs))
	for k := range s.Jobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ============================================================================
// Trigger Matching
// ============================================================================

// Matches reports whether the event should start this workflow.
func (t Triggers) Matches(ev *Event) bool {
	switch ev.Type {
	case EventPush:
		return t.Push != nil && t.Push.MatchesBranch(ev.Branch)
	case EventPullRequest:
		return t.PullRequest != nil && t.PullRequest.MatchesBranch(ev.Branch)
	default:
		return false
	}
}

// MatchesBranch reports whether the branch passes the filter.
func (f *BranchFilter) MatchesBranch(branch string) bool {
	if len(f.Branches) == 0 {
		return true
	}
	for _, b := range f.Branches {
		if b == branch {
			return true
		}
	}
	return false
}
