package testutil

import (
	"context"
	"sync"

	output "workflow-runner-service/internal/core/ports/output"
)

// FakeRunner is an in-memory CommandRunner for executor tests. Results are
// keyed by script; unkeyed scripts succeed with exit code 0.
type FakeRunner struct {
	mu       sync.Mutex
	results  map[string]output.StepOutcome
	errs     map[string]error
	Commands []output.StepCommand
}

func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		results: make(map[string]output.StepOutcome),
		errs:    make(map[string]error),
	}
}

// SetResult fixes the outcome for a script.
func (r *FakeRunner) SetResult(script string, exitCode int, out string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[script] = output.StepOutcome{ExitCode: exitCode, Output: out}
}

// SetError makes the runner itself fail for a script.
func (r *FakeRunner) SetError(script string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[script] = err
}

func (r *FakeRunner) Run(ctx context.Context, cmd output.StepCommand) (*output.StepOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.Commands = append(r.Commands, cmd)

	if err, ok := r.errs[cmd.Script]; ok {
		return nil, err
	}
	if res, ok := r.results[cmd.Script]; ok {
		return &res, nil
	}
	return &output.StepOutcome{ExitCode: 0, Output: "ok"}, nil
}

// Ran reports whether a script was executed.
func (r *FakeRunner) Ran(script string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cmd := range r.Commands {
		if cmd.Script == script {
			return true
		}
	}
	return false
}
