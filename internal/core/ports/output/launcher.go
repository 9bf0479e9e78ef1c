package ports

import "context"

// StepCommand is a fully resolved shell step, ready to execute: the script,
// the shell to run it with, and the complete environment of the step.
type StepCommand struct {
	RunID    string
	JobName  string
	StepName string
	Script   string
	Shell    string
	Dir      string
	Env      map[string]string
}

// StepOutcome is what the launcher observed: the exit code and the combined
// output of the command. A non-zero exit code is an outcome, not an error;
// errors are reserved for the launcher itself failing.
type StepOutcome struct {
	ExitCode int
	Output   string
}

// CommandRunner executes a single step command. Implementations run locally
// or submit to a cluster; either way the step blocks until the command
// finishes or ctx is cancelled.
type CommandRunner interface {
	Run(ctx context.Context, cmd StepCommand) (*StepOutcome, error)
}
