package localexec

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	output "workflow-runner-service/internal/core/ports/output"
)

func TestRunner_Success(t *testing.T) {
	r := NewRunner(false)

	outcome, err := r.Run(context.Background(), output.StepCommand{
		Script: "echo hello",
		Dir:    t.TempDir(),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, outcome.ExitCode)
	assert.Equal(t, "hello\n", outcome.Output)
}

func TestRunner_NonZeroExitIsOutcome(t *testing.T) {
	r := NewRunner(false)

	outcome, err := r.Run(context.Background(), output.StepCommand{
		Script: "echo boom; exit 3",
		Dir:    t.TempDir(),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, outcome.ExitCode)
	assert.Equal(t, "boom\n", outcome.Output)
}

func TestRunner_StepEnvWins(t *testing.T) {
	t.Setenv("STEP_TEST_VAR", "from-process")

	r := NewRunner(true)
	outcome, err := r.Run(context.Background(), output.StepCommand{
		Script: "echo $STEP_TEST_VAR $PYTHON_VERSION",
		Dir:    t.TempDir(),
		Env: map[string]string{
			"STEP_TEST_VAR":  "from-step",
			"PYTHON_VERSION": "3.12",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "from-step 3.12\n", outcome.Output)
}

func TestRunner_NoInheritedEnv(t *testing.T) {
	t.Setenv("STEP_TEST_VAR", "leaked")

	r := NewRunner(false)
	outcome, err := r.Run(context.Background(), output.StepCommand{
		Script: "echo x${STEP_TEST_VAR}x",
		Dir:    t.TempDir(),
	})
	require.NoError(t, err)
	assert.Equal(t, "xx\n", outcome.Output)
}

func TestRunner_CreatesWorkdir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run", "job")

	r := NewRunner(false)
	outcome, err := r.Run(context.Background(), output.StepCommand{
		Script: "pwd",
		Dir:    dir,
	})
	require.NoError(t, err)
	assert.Contains(t, outcome.Output, dir)
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	r := NewRunner(false)
	_, err := r.Run(ctx, output.StepCommand{
		Script: "sleep 5",
		Dir:    t.TempDir(),
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunner_EmptyScript(t *testing.T) {
	r := NewRunner(false)
	_, err := r.Run(context.Background(), output.StepCommand{})
	assert.Error(t, err)
}
