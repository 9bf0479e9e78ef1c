package kubernetes

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	output "workflow-runner-service/internal/core/ports/output"
)

var dnsNameRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

func TestJobName_DNSSafe(t *testing.T) {
	cmd := output.StepCommand{
		RunID:    "8f14e45f-ceea-4672-9a1b-2c6d3e4f5a6b",
		JobName:  "tests (ubuntu-latest, 3.11)",
		StepName: "Run test suite",
	}

	name := jobName(cmd)
	assert.True(t, strings.HasPrefix(name, "wr-"))
	assert.LessOrEqual(t, len(name), 63)
	assert.Regexp(t, dnsNameRe, name)
}

func TestJobName_LongNamesStayUnique(t *testing.T) {
	base := output.StepCommand{
		RunID:   "8f14e45f-ceea-4672-9a1b-2c6d3e4f5a6b",
		JobName: "integration-tests (ubuntu-latest, 3.11)",
	}
	first := base
	first.StepName = "Install dependencies and prepare the coverage environment for upload"
	second := base
	second.StepName = "Install dependencies and prepare the coverage environment for teardown"

	a := jobName(first)
	b := jobName(second)
	require.LessOrEqual(t, len(a), 63)
	require.LessOrEqual(t, len(b), 63)
	// Identical 54-char prefixes, so only the suffix keeps them apart.
	assert.NotEqual(t, a, b)
}

func TestJobName_SameStepNeverReusesAName(t *testing.T) {
	cmd := output.StepCommand{
		RunID:    "8f14e45f-ceea-4672-9a1b-2c6d3e4f5a6b",
		JobName:  "tests",
		StepName: "install",
	}
	assert.NotEqual(t, jobName(cmd), jobName(cmd))
}
