package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
)

var (
	interpolationRe = regexp.MustCompile(`\$\{\{(.*?)\}\}`)

	// matrixRefRe rewrites matrix.python-version to matrix["python-version"],
	// which the expression engine would otherwise read as a subtraction.
	matrixRefRe = regexp.MustCompile(`\bmatrix\.([A-Za-z_][A-Za-z0-9_-]*)`)
)

// ExprContext is the evaluation environment for step conditions and
// ${{ ... }} interpolation: the job's matrix combination, its resolved
// environment, the runner labels, and the outcome of the prior steps.
type ExprContext struct {
	Matrix MatrixCombination
	Env    map[string]string
	Runner RunnerContext
	Failed bool
}

// RunnerContext describes the machine a job runs on.
type RunnerContext struct {
	OS   string
	Arch string
}

func (c ExprContext) env() map[string]any {
	matrix := map[string]string{}
	for k, v := range c.Matrix {
		// Also expose an underscore alias for hyphenated dimension names.
		matrix[k] = v
		matrix[strings.ReplaceAll(k, "-", "_")] = v
	}

	environ := map[string]string{}
	for k, v := range c.Env {
		environ[k] = v
	}

	return map[string]any{
		"matrix": matrix,
		"env":    environ,
		"runner": map[string]string{
			"os":   c.Runner.OS,
			"arch": c.Runner.Arch,
		},
		"success": func() bool { return !c.Failed },
		"failure": func() bool { return c.Failed },
		"always":  func() bool { return true },
	}
}

// EvalCondition decides whether a step should run. An empty condition is the
// implicit success() guard: the step runs only while no prior step of the job
// has failed.
func EvalCondition(condition string, c ExprContext) (bool, error) {
	if strings.TrimSpace(condition) == "" {
		return !c.Failed, nil
	}

	// Conditions may be written with or without the interpolation wrapper.
	condition = strings.TrimSpace(condition)
	if m := interpolationRe.FindStringSubmatch(condition); m != nil && interpolationRe.FindString(condition) == condition {
		condition = m[1]
	}

	out, err := expr.Eval(matrixRefRe.ReplaceAllString(condition, `matrix["$1"]`), c.env())
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrInvalidExpression, condition)
	}

	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotBoolean, condition)
	}
	return b, nil
}

// Interpolate replaces every ${{ expression }} occurrence with its evaluated
// value. Values resolve from the matrix without transformation.
func Interpolate(s string, c ExprContext) (string, error) {
	var evalErr error
	env := c.env()

	result := interpolationRe.ReplaceAllStringFunc(s, func(match string) string {
		code := strings.TrimSpace(interpolationRe.FindStringSubmatch(match)[1])
		out, err := expr.Eval(matrixRefRe.ReplaceAllString(code, `matrix["$1"]`), env)
		if err != nil {
			evalErr = fmt.Errorf("%w: %s", ErrInvalidExpression, code)
			return match
		}
		return fmt.Sprintf("%v", out)
	})

	if evalErr != nil {
		return "", evalErr
	}
	return result, nil
}

// InterpolateMap interpolates every value of the map, leaving keys untouched.
func InterpolateMap(in map[string]string, c ExprContext) (map[string]string, error) {
	out := make(map[string]string, len(in))
	for k, v := range in {
		resolved, err := Interpolate(v, c)
		if err != nil {
			return nil, err
		}
		out[k] = resolved
	}
	return out, nil
}
