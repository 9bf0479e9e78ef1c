package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSource = `
name: run-tests
on:
  push:
    branches: [main]
  pull_request:
    branches: [main]
env:
  ENV_NAME: integration_tests
jobs:
  tests:
    runs-on: ${{ matrix.os }}
    strategy:
      fail-fast: false
      matrix:
        os: [ubuntu-latest, macos-latest]
        python-version: ["3.10", "3.12"]
    env:
      OS: ${{ matrix.os }}
      PYTHON: ${{ matrix.python-version }}
    steps:
      - name: Checkout
        run: git clone --depth 1 .
      - name: Install dependencies
        run: pip install -e .[dev]
      - name: Run tests
        run: pytest --cov --cov-report=xml
      - name: Upload coverage
        if: matrix.os == 'ubuntu-latest' && success()
        uses: coverage-upload
        with:
          file: coverage.xml
          flags: ${{ matrix.os }},${{ matrix.python-version }}
`

func TestParseWorkflowSpec(t *testing.T) {
	spec, err := ParseWorkflowSpec(sampleSource)
	require.NoError(t, err)

	assert.Equal(t, "run-tests", spec.Name)
	assert.Equal(t, []string{"main"}, spec.On.Push.Branches)
	assert.Equal(t, []string{"main"}, spec.On.PullRequest.Branches)
	assert.Equal(t, "integration_tests", spec.Env["ENV_NAME"])

	job, ok := spec.Jobs["tests"]
	require.True(t, ok)
	assert.Equal(t, "${{ matrix.os }}", job.RunsOn)
	assert.False(t, job.Strategy.FailFastEnabled())
	assert.Equal(t, []string{"ubuntu-latest", "macos-latest"}, job.Strategy.Matrix["os"])
	assert.Equal(t, []string{"3.10", "3.12"}, job.Strategy.Matrix["python-version"])
	require.Len(t, job.Steps, 4)

	upload := job.Steps[3]
	assert.Equal(t, UsesCoverageUpload, upload.Uses)
	assert.Equal(t, "coverage.xml", upload.With["file"])
	assert.NotEmpty(t, upload.If)
}

func TestParseWorkflowSpec_Empty(t *testing.T) {
	_, err := ParseWorkflowSpec("")
	assert.ErrorIs(t, err, ErrEmptyWorkflowSource)
}

func TestParseWorkflowSpec_BadYAML(t *testing.T) {
	_, err := ParseWorkflowSpec("name: [unclosed")
	assert.ErrorIs(t, err, ErrInvalidWorkflowYAML)
}

func TestParseWorkflowSpec_Validation(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantErr error
	}{
		{
			name:    "missing name",
			source:  "on: {push: {branches: [main]}}\njobs: {a: {steps: [{run: echo hi}]}}",
			wantErr: ErrInvalidWorkflowName,
		},
		{
			name:    "no triggers",
			source:  "name: wf\njobs: {a: {steps: [{run: echo hi}]}}",
			wantErr: ErrNoTriggersDefined,
		},
		{
			name:    "no jobs",
			source:  "name: wf\non: {push: {branches: [main]}}",
			wantErr: ErrNoJobsDefined,
		},
		{
			name:    "no steps",
			source:  "name: wf\non: {push: {branches: [main]}}\njobs: {a: {steps: []}}",
			wantErr: ErrNoStepsDefined,
		},
		{
			name:    "step without action",
			source:  "name: wf\non: {push: {branches: [main]}}\njobs: {a: {steps: [{name: noop}]}}",
			wantErr: ErrStepMissingAction,
		},
		{
			name:    "step with both actions",
			source:  "name: wf\non: {push: {branches: [main]}}\njobs: {a: {steps: [{run: echo hi, uses: coverage-upload}]}}",
			wantErr: ErrStepAmbiguousAction,
		},
		{
			name:    "unknown uses",
			source:  "name: wf\non: {push: {branches: [main]}}\njobs: {a: {steps: [{uses: mystery-action}]}}",
			wantErr: ErrUnknownUsesAction,
		},
		{
			name:    "empty matrix dimension",
			source:  "name: wf\non: {push: {branches: [main]}}\njobs: {a: {strategy: {matrix: {os: []}}, steps: [{run: echo hi}]}}",
			wantErr: ErrEmptyMatrixDimension,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWorkflowSpec(tt.source)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTriggers_Matches(t *testing.T) {
	spec, err := ParseWorkflowSpec(sampleSource)
	require.NoError(t, err)

	push := &Event{Type: EventPush, Branch: "main", Commit: "abc"}
	assert.True(t, spec.On.Matches(push))

	pr := &Event{Type: EventPullRequest, Branch: "main", Commit: "abc"}
	assert.True(t, spec.On.Matches(pr))

	otherBranch := &Event{Type: EventPush, Branch: "feature/x", Commit: "abc"}
	assert.False(t, spec.On.Matches(otherBranch))
}

func TestTriggers_Matches_NoFilterMeansAllBranches(t *testing.T) {
	trig := Triggers{Push: &BranchFilter{}}
	assert.True(t, trig.Matches(&Event{Type: EventPush, Branch: "anything"}))
	assert.False(t, trig.Matches(&Event{Type: EventPullRequest, Branch: "anything"}))
}

func TestStrategy_FailFastDefault(t *testing.T) {
	var s *Strategy
	assert.True(t, s.FailFastEnabled())

	enabled := true
	assert.True(t, (&Strategy{FailFast: &enabled}).FailFastEnabled())

	disabled := false
	assert.False(t, (&Strategy{FailFast: &disabled}).FailFastEnabled())
}

func TestWorkflowSpec_JobKeys_Sorted(t *testing.T) {
	spec := &WorkflowSpec{Jobs: map[string]JobSpec{
		"lint": {}, "build": {}, "tests": {},
	}}
	assert.Equal(t, []string{"build", "lint", "tests"}, spec.JobKeys())
}

func TestNewWorkflow(t *testing.T) {
	wf, err := NewWorkflow(sampleSource)
	require.NoError(t, err)
	assert.Equal(t, "run-tests", wf.Name)
	assert.Equal(t, sampleSource, wf.Source)
	assert.NotEqual(t, wf.ID.String(), "00000000-0000-0000-0000-000000000000")
}
