package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"workflow-runner-service/internal/core/domain"
	output "workflow-runner-service/internal/core/ports/output"
)

type workflowRepo struct {
	pool *pgxpool.Pool
}

// NewWorkflowRepository creates a new WorkflowRepository
func NewWorkflowRepository(pool *pgxpool.Pool) output.WorkflowRepository {
	return &workflowRepo{pool: pool}
}

func (r *workflowRepo) Create(ctx context.Context, wf *domain.Workflow) error {
	query := `
		INSERT INTO workflow (id, created_at, updated_at, name, source)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		wf.ID, wf.CreatedAt, wf.UpdatedAt, wf.Name, wf.Source,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrWorkflowNameConflict
		}
		return fmt.Errorf("create workflow: %w", err)
	}
	return nil
}

func (r *workflowRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	query := `
		SELECT id, created_at, updated_at, name, source
		FROM workflow
		WHERE id = $1
	`

	wf, err := r.scanWorkflow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("get workflow by id: %w", err)
	}
	return wf, nil
}

func (r *workflowRepo) GetByName(ctx context.Context, name string) (*domain.Workflow, error) {
	query := `
		SELECT id, created_at, updated_at, name, source
		FROM workflow
		WHERE name = $1
	`

	wf, err := r.scanWorkflow(r.pool.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("get workflow by name: %w", err)
	}
	return wf, nil
}

func (r *workflowRepo) Update(ctx context.Context, wf *domain.Workflow) error {
	query := `
		UPDATE workflow
		SET name = $1, source = $2, updated_at = NOW()
		WHERE id = $3
	`

	result, err := r.pool.Exec(ctx, query, wf.Name, wf.Source, wf.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrWorkflowNameConflict
		}
		return fmt.Errorf("update workflow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrWorkflowNotFound
	}
	return nil
}

func (r *workflowRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM workflow WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrWorkflowNotFound
	}
	return nil
}

func (r *workflowRepo) List(ctx context.Context, filter output.WorkflowFilter) ([]*domain.Workflow, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argPos))
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM workflow %s`, where)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count workflows: %w", err)
	}

	sortBy := "created_at"
	if filter.SortBy == "name" || filter.SortBy == "updated_at" {
		sortBy = filter.SortBy
	}
	order := "DESC"
	if strings.EqualFold(filter.Order, "asc") {
		order = "ASC"
	}

	query := fmt.Sprintf(`
		SELECT id, created_at, updated_at, name, source
		FROM workflow
		%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, where, sortBy, order, argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var workflows []*domain.Workflow
	for rows.Next() {
		wf, err := r.scanWorkflow(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan workflow: %w", err)
		}
		workflows = append(workflows, wf)
	}
	return workflows, total, rows.Err()
}

func (r *workflowRepo) scanWorkflow(row pgx.Row) (*domain.Workflow, error) {
	var wf domain.Workflow
	if err := row.Scan(&wf.ID, &wf.CreatedAt, &wf.UpdatedAt, &wf.Name, &wf.Source); err != nil {
		return nil, err
	}

	// The stored source is the authoritative definition; reparse it so the
	// spec is always in sync.
	spec, err := domain.ParseWorkflowSpec(wf.Source)
	if err != nil {
		return nil, fmt.Errorf("parse stored workflow %s: %w", wf.Name, err)
	}
	wf.Spec = *spec
	return &wf, nil
}
