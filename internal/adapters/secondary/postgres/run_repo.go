package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"workflow-runner-service/internal/core/domain"
	output "workflow-runner-service/internal/core/ports/output"
)

type runRepo struct {
	pool *pgxpool.Pool
}

// NewRunRepository creates a new RunRepository
func NewRunRepository(pool *pgxpool.Pool) output.RunRepository {
	return &runRepo{pool: pool}
}

func (r *runRepo) CreateRun(ctx context.Context, run *domain.WorkflowRun) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create run: %w", err)
	}
	defer tx.Rollback(ctx)

	runQuery := `
		INSERT INTO workflow_run
			(id, created_at, updated_at, workflow_id, workflow_name, event, branch, commit_sha, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = tx.Exec(ctx, runQuery,
		run.ID, run.CreatedAt, run.UpdatedAt,
		run.WorkflowID, run.WorkflowName,
		string(run.Event), run.Branch, run.Commit, string(run.Status),
	)
	if err != nil {
		return fmt.Errorf("create workflow run: %w", err)
	}

	jobQuery := `
		INSERT INTO job_run
			(id, created_at, updated_at, run_id, job_key, name, runs_on, matrix, fail_fast, status, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	stepQuery := `
		INSERT INTO step_run
			(id, created_at, updated_at, job_run_id, idx, name, status, exit_code, output, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	for _, job := range run.Jobs {
		matrixJSON, err := json.Marshal(job.Matrix)
		if err != nil {
			return fmt.Errorf("marshal matrix: %w", err)
		}

		_, err = tx.Exec(ctx, jobQuery,
			job.ID, job.CreatedAt, job.UpdatedAt,
			job.RunID, job.JobKey, job.Name, job.RunsOn,
			matrixJSON, job.FailFast, string(job.Status),
			job.StartedAt, job.FinishedAt,
		)
		if err != nil {
			return fmt.Errorf("create job run: %w", err)
		}

		for _, step := range job.Steps {
			_, err = tx.Exec(ctx, stepQuery,
				step.ID, step.CreatedAt, step.UpdatedAt,
				step.JobRunID, step.Index, step.Name,
				string(step.Status), step.ExitCode, step.Output,
				step.StartedAt, step.FinishedAt,
			)
			if err != nil {
				return fmt.Errorf("create step run: %w", err)
			}
		}
	}

	return tx.Commit(ctx)
}

func (r *runRepo) GetRun(ctx context.Context, id uuid.UUID) (*domain.WorkflowRun, error) {
	query := `
		SELECT id, created_at, updated_at, workflow_id, workflow_name, event, branch, commit_sha, status
		FROM workflow_run
		WHERE id = $1
	`

	run, err := r.scanRun(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("get run by id: %w", err)
	}

	jobs, err := r.ListJobs(ctx, id)
	if err != nil {
		return nil, err
	}

	// Attach the step runs; the executor walks them by index.
	stepQuery := `
		SELECT s.id, s.created_at, s.updated_at, s.job_run_id, s.idx, s.name, s.status, s.exit_code, s.output, s.started_at, s.finished_at
		FROM step_run s
		JOIN job_run j ON j.id = s.job_run_id
		WHERE j.run_id = $1
		ORDER BY s.job_run_id, s.idx
	`
	rows, err := r.pool.Query(ctx, stepQuery, id)
	if err != nil {
		return nil, fmt.Errorf("list step runs: %w", err)
	}
	defer rows.Close()

	byJob := make(map[uuid.UUID]*domain.JobRun, len(jobs))
	for _, job := range jobs {
		byJob[job.ID] = job
	}
	for rows.Next() {
		step, err := r.scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("scan step run: %w", err)
		}
		if job, ok := byJob[step.JobRunID]; ok {
			job.Steps = append(job.Steps, step)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	run.Jobs = jobs
	return run, nil
}

func (r *runRepo) ListRuns(ctx context.Context, filter output.RunFilter) ([]*domain.WorkflowRun, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if filter.WorkflowID != nil {
		conditions = append(conditions, fmt.Sprintf("workflow_id = $%d", argPos))
		args = append(args, *filter.WorkflowID)
		argPos++
	}
	if filter.Event != "" {
		conditions = append(conditions, fmt.Sprintf("event = $%d", argPos))
		args = append(args, filter.Event)
		argPos++
	}
	if filter.Branch != "" {
		conditions = append(conditions, fmt.Sprintf("branch = $%d", argPos))
		args = append(args, filter.Branch)
		argPos++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, filter.Status)
		argPos++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM workflow_run %s`, where)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count runs: %w", err)
	}

	order := "DESC"
	if strings.EqualFold(filter.Order, "asc") {
		order = "ASC"
	}

	query := fmt.Sprintf(`
		SELECT id, created_at, updated_at, workflow_id, workflow_name, event, branch, commit_sha, status
		FROM workflow_run
		%s
		ORDER BY created_at %s
		LIMIT $%d OFFSET $%d
	`, where, order, argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.WorkflowRun
	for rows.Next() {
		run, err := r.scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, total, rows.Err()
}

func (r *runRepo) UpdateRunStatus(ctx context.Context, id uuid.UUID, status domain.RunStatus) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE workflow_run SET status = $1, updated_at = NOW() WHERE id = $2`,
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

func (r *runRepo) GetJob(ctx context.Context, id uuid.UUID) (*domain.JobRun, error) {
	query := `
		SELECT id, created_at, updated_at, run_id, job_key, name, runs_on, matrix, fail_fast, status, started_at, finished_at
		FROM job_run
		WHERE id = $1
	`

	job, err := r.scanJob(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobRunNotFound
		}
		return nil, fmt.Errorf("get job run by id: %w", err)
	}

	stepQuery := `
		SELECT id, created_at, updated_at, job_run_id, idx, name, status, exit_code, output, started_at, finished_at
		FROM step_run
		WHERE job_run_id = $1
		ORDER BY idx
	`
	rows, err := r.pool.Query(ctx, stepQuery, id)
	if err != nil {
		return nil, fmt.Errorf("list step runs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		step, err := r.scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("scan step run: %w", err)
		}
		job.Steps = append(job.Steps, step)
	}
	return job, rows.Err()
}

func (r *runRepo) ListJobs(ctx context.Context, runID uuid.UUID) ([]*domain.JobRun, error) {
	query := `
		SELECT id, created_at, updated_at, run_id, job_key, name, runs_on, matrix, fail_fast, status, started_at, finished_at
		FROM job_run
		WHERE run_id = $1
		ORDER BY job_key, name
	`

	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list job runs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.JobRun
	for rows.Next() {
		job, err := r.scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job run: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *runRepo) UpdateJob(ctx context.Context, job *domain.JobRun) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE job_run
		SET runs_on = $1, status = $2, started_at = $3, finished_at = $4, updated_at = NOW()
		WHERE id = $5
	`, job.RunsOn, string(job.Status), job.StartedAt, job.FinishedAt, job.ID)
	if err != nil {
		return fmt.Errorf("update job run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrJobRunNotFound
	}
	return nil
}

func (r *runRepo) UpdateStep(ctx context.Context, step *domain.StepRun) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE step_run
		SET status = $1, exit_code = $2, output = $3, started_at = $4, finished_at = $5, updated_at = NOW()
		WHERE id = $6
	`, string(step.Status), step.ExitCode, step.Output, step.StartedAt, step.FinishedAt, step.ID)
	if err != nil {
		return fmt.Errorf("update step run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrStepRunNotFound
	}
	return nil
}

func (r *runRepo) scanRun(row pgx.Row) (*domain.WorkflowRun, error) {
	var run domain.WorkflowRun
	var event, status string

	err := row.Scan(
		&run.ID, &run.CreatedAt, &run.UpdatedAt,
		&run.WorkflowID, &run.WorkflowName,
		&event, &run.Branch, &run.Commit, &status,
	)
	if err != nil {
		return nil, err
	}

	run.Event = domain.EventType(event)
	run.Status = domain.RunStatus(status)
	return &run, nil
}

func (r *runRepo) scanJob(row pgx.Row) (*domain.JobRun, error) {
	var job domain.JobRun
	var status string
	var matrixJSON []byte

	err := row.Scan(
		&job.ID, &job.CreatedAt, &job.UpdatedAt,
		&job.RunID, &job.JobKey, &job.Name, &job.RunsOn,
		&matrixJSON, &job.FailFast, &status,
		&job.StartedAt, &job.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(matrixJSON) > 0 {
		if err := json.Unmarshal(matrixJSON, &job.Matrix); err != nil {
			return nil, fmt.Errorf("unmarshal matrix: %w", err)
		}
	}
	job.Status = domain.RunStatus(status)
	return &job, nil
}

func (r *runRepo) scanStep(row pgx.Row) (*domain.StepRun, error) {
	var step domain.StepRun
	var status string

	err := row.Scan(
		&step.ID, &step.CreatedAt, &step.UpdatedAt,
		&step.JobRunID, &step.Index, &step.Name,
		&status, &step.ExitCode, &step.Output,
		&step.StartedAt, &step.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	step.Status = domain.RunStatus(status)
	return &step, nil
}
