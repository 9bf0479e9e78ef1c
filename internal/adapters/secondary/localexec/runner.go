package localexec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"

	log "github.com/sirupsen/logrus"

	output "workflow-runner-service/internal/core/ports/output"
)

// maxCapturedOutput bounds how much combined output is kept per step.
const maxCapturedOutput = 1 << 20

type runner struct {
	inheritEnv bool
}

// NewRunner creates a CommandRunner that executes steps on the local host.
// With inheritEnv the process environment is the base layer under the step's
// own variables.
func NewRunner(inheritEnv bool) output.CommandRunner {
	return &runner{inheritEnv: inheritEnv}
}

func (r *runner) Run(ctx context.Context, cmd output.StepCommand) (*output.StepOutcome, error) {
	if cmd.Script == "" {
		return nil, fmt.Errorf("empty step script")
	}

	if cmd.Dir != "" {
		if err := os.MkdirAll(cmd.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create step workdir: %w", err)
		}
	}

	shell := cmd.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	proc := exec.CommandContext(ctx, shell, "-c", cmd.Script)
	proc.Dir = cmd.Dir
	proc.Env = buildEnv(cmd.Env, r.inheritEnv)

	log.WithFields(log.Fields{
		"run_id": cmd.RunID,
		"job":    cmd.JobName,
		"step":   cmd.StepName,
	}).Debug("executing step command")

	combined, err := proc.CombinedOutput()
	if len(combined) > maxCapturedOutput {
		combined = combined[:maxCapturedOutput]
	}

	if err != nil {
		// A killed process also surfaces as an ExitError, so check the
		// context first.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &output.StepOutcome{
				ExitCode: exitErr.ExitCode(),
				Output:   string(combined),
			}, nil
		}
		return nil, fmt.Errorf("run step command: %w", err)
	}

	return &output.StepOutcome{ExitCode: 0, Output: string(combined)}, nil
}

func buildEnv(env map[string]string, inherit bool) []string {
	var out []string
	if inherit {
		out = os.Environ()
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s=%s", k, env[k]))
	}
	return out
}
