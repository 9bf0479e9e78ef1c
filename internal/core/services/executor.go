package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	log "github.com/sirupsen/logrus"

	"workflow-runner-service/internal/core/domain"
	output "workflow-runner-service/internal/core/ports/output"
)

// ExecutorOptions tunes how runs are executed.
type ExecutorOptions struct {
	WorkDir             string
	DefaultShell        string
	MaxParallelJobs     int
	StepTimeout         time.Duration
	RunnerOS            string
	RunnerArch          string
	EnvName             string
	CoverageFailOnError bool
}

// ExecutorService drives queued runs to completion: jobs fan out in
// parallel, steps of a job run strictly in order.
type ExecutorService struct {
	runs      output.RunRepository
	workflows output.WorkflowRepository
	runner    output.CommandRunner
	coverage  output.CoverageClient
	opts      ExecutorOptions

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
	wg      sync.WaitGroup
}

func NewExecutorService(
	runs output.RunRepository,
	workflows output.WorkflowRepository,
	runner output.CommandRunner,
	coverage output.CoverageClient,
	opts ExecutorOptions,
) *ExecutorService {
	if opts.DefaultShell == "" {
		opts.DefaultShell = "/bin/sh"
	}
	if opts.MaxParallelJobs <= 0 {
		opts.MaxParallelJobs = 4
	}
	return &ExecutorService{
		runs:      runs,
		workflows: workflows,
		runner:    runner,
		coverage:  coverage,
		opts:      opts,
		cancels:   make(map[uuid.UUID]context.CancelFunc),
	}
}

// Dispatch starts executing a queued run in the background. The run can be
// cancelled later through Cancel.
func (s *ExecutorService) Dispatch(runID uuid.UUID) {
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.cancels[runID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.cancels, runID)
			s.mu.Unlock()
			cancel()
		}()

		if err := s.ExecuteRun(ctx, runID); err != nil {
			log.WithError(err).WithField("run_id", runID).Error("run execution failed")
		}
	}()
}

// Cancel stops a dispatched run. Returns false if the run is not executing
// here.
func (s *ExecutorService) Cancel(runID uuid.UUID) bool {
	s.mu.Lock()
	cancel, ok := s.cancels[runID]
	s.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

// Wait blocks until every dispatched run has finished. Used on shutdown.
func (s *ExecutorService) Wait() {
	s.wg.Wait()
}

// ExecuteRun runs every job of the run. Jobs from the same matrix family
// share a fail-fast scope: with fail-fast enabled the first failing
// combination cancels its siblings; without it every combination runs to
// completion independently.
func (s *ExecutorService) ExecuteRun(ctx context.Context, runID uuid.UUID) error {
	run, err := s.runs.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	wf, err := s.workflows.GetByID(ctx, run.WorkflowID)
	if err != nil {
		return err
	}

	run.Start()
	if err := s.runs.UpdateRunStatus(ctx, run.ID, run.Status); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"run_id":   run.ID,
		"workflow": run.WorkflowName,
		"jobs":     len(run.Jobs),
	}).Info("run started")

	groups := make(map[string][]*domain.JobRun)
	for _, job := range run.Jobs {
		groups[job.JobKey] = append(groups[job.JobKey], job)
	}

	outer := pool.New().WithContext(ctx)
	for key, jobs := range groups {
		spec, ok := wf.Spec.Jobs[key]
		if !ok {
			// Definition changed since the run was queued.
			for _, job := range jobs {
				job.Cancel()
				s.persistCancelledJob(job)
			}
			continue
		}

		jobs := jobs
		outer.Go(func(ctx context.Context) error {
			s.executeGroup(ctx, run, wf.Spec.Env, spec, jobs)
			return nil
		})
	}
	_ = outer.Wait()

	run.Finish()
	if ctx.Err() != nil {
		run.Cancel()
	}
	if err := s.runs.UpdateRunStatus(context.Background(), run.ID, run.Status); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"run_id": run.ID,
		"status": run.Status,
	}).Info("run finished")
	return nil
}

// executeGroup runs the matrix combinations of one job template.
func (s *ExecutorService) executeGroup(ctx context.Context, run *domain.WorkflowRun, wfEnv map[string]string, spec domain.JobSpec, jobs []*domain.JobRun) {
	p := pool.New().
		WithErrors().
		WithMaxGoroutines(s.opts.MaxParallelJobs).
		WithContext(ctx)
	if spec.Strategy.FailFastEnabled() {
		p = p.WithCancelOnError()
	}

	for _, job := range jobs {
		job := job
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				job.Cancel()
				s.persistCancelledJob(job)
				return nil
			}

			s.executeJob(ctx, run, wfEnv, spec, job)

			if job.Status == domain.StatusFailure && spec.Strategy.FailFastEnabled() {
				return fmt.Errorf("job %q failed", job.Name)
			}
			return nil
		})
	}
	_ = p.Wait()
}

// executeJob runs the steps of one job sequentially. A step failure halts
// the remaining steps unless they carry a condition that evaluates true in
// the failed state (failure() or always()).
func (s *ExecutorService) executeJob(ctx context.Context, run *domain.WorkflowRun, wfEnv map[string]string, spec domain.JobSpec, job *domain.JobRun) {
	job.Start()
	s.persistJob(job)

	if job.RunsOn == "" {
		job.RunsOn = s.opts.RunnerOS
	}
	ec := domain.ExprContext{
		Matrix: job.Matrix,
		Runner: domain.RunnerContext{OS: job.RunsOn, Arch: s.opts.RunnerArch},
	}

	runsOn, err := domain.Interpolate(spec.RunsOn, ec)
	if err == nil && runsOn != "" {
		job.RunsOn = runsOn
		ec.Runner.OS = runsOn
	}

	if len(job.Steps) != len(spec.Steps) {
		s.failRemaining(job, "step plan does not match the workflow definition")
		job.Finish(domain.StatusFailure)
		s.persistJob(job)
		return
	}

	env, err := s.resolveJobEnv(run, wfEnv, spec, job, ec)
	if err != nil {
		s.failRemaining(job, fmt.Sprintf("resolve env: %v", err))
		job.Finish(domain.StatusFailure)
		s.persistJob(job)
		return
	}
	ec.Env = env

	failed := false
	for i, stepSpec := range spec.Steps {
		step := job.Steps[i]

		if ctx.Err() != nil {
			step.Status = domain.StatusCancelled
			s.persistStep(step)
			continue
		}

		ec.Failed = failed
		ok, condErr := domain.EvalCondition(stepSpec.If, ec)
		if condErr != nil {
			step.Finish(domain.StatusFailure, -1, condErr.Error())
			s.persistStep(step)
			if !stepSpec.ContinueOnError {
				failed = true
			}
			continue
		}
		if !ok {
			step.Skip()
			s.persistStep(step)
			continue
		}

		step.Start()
		s.persistStep(step)

		var stepFailed bool
		if stepSpec.Uses == domain.UsesCoverageUpload {
			stepFailed = s.runCoverageStep(ctx, run, job, stepSpec, step, ec)
		} else {
			stepFailed = s.runShellStep(ctx, run, job, stepSpec, step, ec, env)
		}

		if stepFailed && !stepSpec.ContinueOnError {
			failed = true
		}
	}

	if ctx.Err() != nil {
		job.Cancel()
		s.persistCancelledJob(job)
	} else {
		if failed {
			job.Finish(domain.StatusFailure)
		} else {
			job.Finish(domain.StatusSuccess)
		}
		s.persistJob(job)
	}

	log.WithFields(log.Fields{
		"run_id": run.ID,
		"job":    job.Name,
		"status": job.Status,
	}).Info("job finished")
}

// resolveJobEnv merges the environment layers: built-in run metadata, then
// workflow env, then job env. Matrix references in values resolve through
// interpolation without transformation.
func (s *ExecutorService) resolveJobEnv(run *domain.WorkflowRun, wfEnv map[string]string, spec domain.JobSpec, job *domain.JobRun, ec domain.ExprContext) (map[string]string, error) {
	env := map[string]string{
		"CI":        "true",
		"RUN_ID":    run.ID.String(),
		"JOB_NAME":  job.Name,
		"BRANCH":    run.Branch,
		"COMMIT":    run.Commit,
		"EVENT":     string(run.Event),
		"RUNNER_OS": job.RunsOn,
	}

	for k, v := range wfEnv {
		env[k] = v
	}

	jobEnv, err := domain.InterpolateMap(spec.Env, ec)
	if err != nil {
		return nil, err
	}
	for k, v := range jobEnv {
		env[k] = v
	}
	return env, nil
}

// runShellStep executes a run: step through the command runner. Returns true
// if the step failed.
func (s *ExecutorService) runShellStep(
	ctx context.Context,
	run *domain.WorkflowRun,
	job *domain.JobRun,
	spec domain.StepSpec,
	step *domain.StepRun,
	ec domain.ExprContext,
	env map[string]string,
) bool {
	script, err := domain.Interpolate(spec.Run, ec)
	if err != nil {
		step.Finish(domain.StatusFailure, -1, err.Error())
		s.persistStep(step)
		return true
	}

	stepEnv := make(map[string]string, len(env)+len(spec.Env))
	for k, v := range env {
		stepEnv[k] = v
	}
	resolved, err := domain.InterpolateMap(spec.Env, ec)
	if err != nil {
		step.Finish(domain.StatusFailure, -1, err.Error())
		s.persistStep(step)
		return true
	}
	for k, v := range resolved {
		stepEnv[k] = v
	}

	shell := spec.Shell
	if shell == "" {
		shell = s.opts.DefaultShell
	}

	stepCtx := ctx
	if s.opts.StepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, s.opts.StepTimeout)
		defer cancel()
	}

	outcome, err := s.runner.Run(stepCtx, output.StepCommand{
		RunID:    run.ID.String(),
		JobName:  job.Name,
		StepName: step.Name,
		Script:   script,
		Shell:    shell,
		Dir:      filepath.Join(s.opts.WorkDir, run.ID.String(), job.ID.String()),
		Env:      stepEnv,
	})
	if err != nil {
		if ctx.Err() != nil {
			step.Finish(domain.StatusCancelled, -1, err.Error())
			s.persistStep(step)
			return true
		}
		step.Finish(domain.StatusFailure, -1, err.Error())
		s.persistStep(step)
		return true
	}

	status := domain.StatusSuccess
	if outcome.ExitCode != 0 {
		status = domain.StatusFailure
	}
	step.Finish(status, outcome.ExitCode, outcome.Output)
	s.persistStep(step)
	return status == domain.StatusFailure
}

// runCoverageStep hands the report produced by an earlier step to the
// coverage service. Returns true if the step failed; when fail-on-error is
// disabled an upload error is recorded but the step still succeeds.
func (s *ExecutorService) runCoverageStep(
	ctx context.Context,
	run *domain.WorkflowRun,
	job *domain.JobRun,
	spec domain.StepSpec,
	step *domain.StepRun,
	ec domain.ExprContext,
) bool {
	with, err := domain.InterpolateMap(spec.With, ec)
	if err != nil {
		step.Finish(domain.StatusFailure, -1, err.Error())
		s.persistStep(step)
		return true
	}

	failOnError := s.opts.CoverageFailOnError
	if v, ok := with["fail-on-error"]; ok {
		failOnError = v != "false"
	}

	fail := func(msg string) bool {
		if failOnError {
			step.Finish(domain.StatusFailure, 1, msg)
			s.persistStep(step)
			return true
		}
		step.Finish(domain.StatusSuccess, 0, msg+" (fail-on-error disabled)")
		s.persistStep(step)
		return false
	}

	if s.coverage == nil || !s.coverage.IsAvailable() {
		return fail(domain.ErrCoverageNotAvailable.Error())
	}

	name := with["name"]
	if name == "" {
		name = job.Name
	}

	var flags []string
	if with["flags"] != "" {
		flags = strings.Split(with["flags"], ",")
	}

	reportPath := with["file"]
	if !filepath.IsAbs(reportPath) {
		reportPath = filepath.Join(s.opts.WorkDir, run.ID.String(), job.ID.String(), reportPath)
	}

	envName := ec.Env["ENV_NAME"]
	if envName == "" {
		envName = s.opts.EnvName
	}

	err = s.coverage.Upload(ctx, &output.CoverageUpload{
		Commit:     run.Commit,
		Branch:     run.Branch,
		Name:       name,
		Flags:      flags,
		EnvName:    envName,
		ReportPath: reportPath,
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"run_id": run.ID,
			"job":    job.Name,
		}).Error("coverage upload failed")
		return fail(fmt.Sprintf("%v: %v", domain.ErrCoverageUploadFailed, err))
	}

	step.Finish(domain.StatusSuccess, 0, "coverage report uploaded")
	s.persistStep(step)
	return false
}

func (s *ExecutorService) failRemaining(job *domain.JobRun, msg string) {
	for _, step := range job.Steps {
		if !step.Status.Finished() {
			step.Finish(domain.StatusSkipped, 0, msg)
			s.persistStep(step)
		}
	}
}

// persistCancelledJob writes the job row and the step rows Cancel marked
// cancelled, so the stored plan never shows a cancelled job with queued steps.
func (s *ExecutorService) persistCancelledJob(job *domain.JobRun) {
	s.persistJob(job)
	for _, step := range job.Steps {
		if step.Status == domain.StatusCancelled {
			s.persistStep(step)
		}
	}
}

func (s *ExecutorService) persistJob(job *domain.JobRun) {
	if err := s.runs.UpdateJob(context.Background(), job); err != nil {
		log.WithError(err).WithField("job_id", job.ID).Error("persist job run failed")
	}
}

func (s *ExecutorService) persistStep(step *domain.StepRun) {
	if err := s.runs.UpdateStep(context.Background(), step); err != nil {
		log.WithError(err).WithField("step_id", step.ID).Error("persist step run failed")
	}
}
