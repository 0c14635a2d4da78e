package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"refurb-workflow/internal/domain"
	"refurb-workflow/internal/domain/model"
	"refurb-workflow/internal/domain/ports/repository"
)

// Compile-time check
var _ repository.StepCompletionRepository = (*PostgresStepCompletionRepo)(nil)

type PostgresStepCompletionRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresStepCompletionRepo(pool *pgxpool.Pool) *PostgresStepCompletionRepo {
	return &PostgresStepCompletionRepo{pool: pool}
}

// Upsert keeps the row id of an earlier completion for the same key and
// writes it back into sc.
func (r *PostgresStepCompletionRepo) Upsert(ctx context.Context, tx repository.Tx, sc *model.StepCompletion) error {
	data, err := json.Marshal(sc.Data)
	if err != nil {
		return fmt.Errorf("marshal step data: %w: %w", domain.ErrInvalidArgument, err)
	}
	const q = `
INSERT INTO step_completions (id, job_id, state_code, step_code, attempt, data, technician_id, technician_name, completed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (job_id, state_code, step_code) DO UPDATE SET
	attempt = EXCLUDED.attempt,
	data = EXCLUDED.data,
	technician_id = EXCLUDED.technician_id,
	technician_name = EXCLUDED.technician_name,
	completed_at = EXCLUDED.completed_at
RETURNING id;`
	var id string
	if err := pickRow(ctx, r.pool, tx, q,
		sc.ID, sc.JobID, string(sc.StateCode), sc.StepCode, sc.Attempt, data,
		sc.TechnicianID, sc.TechnicianName, sc.CompletedAt,
	).Scan(&id); err != nil {
		return mapErr("upsert step completion", err)
	}
	sc.ID = id
	return nil
}

func (r *PostgresStepCompletionRepo) ListByJobState(ctx context.Context, tx repository.Tx, jobID string, state model.State, minAttempt int) ([]*model.StepCompletion, error) {
	const q = `
SELECT id, job_id, state_code, step_code, attempt, data, technician_id, technician_name, completed_at
FROM step_completions
WHERE job_id=$1 AND state_code=$2 AND attempt >= $3
ORDER BY completed_at, id;`
	rows, err := queryRows(ctx, r.pool, tx, q, jobID, string(state), minAttempt)
	if err != nil {
		return nil, mapErr("list step completions", err)
	}
	defer rows.Close()

	var out []*model.StepCompletion
	for rows.Next() {
		var (
			sc        model.StepCompletion
			stateCode string
			data      []byte
		)
		if err := rows.Scan(&sc.ID, &sc.JobID, &stateCode, &sc.StepCode, &sc.Attempt, &data,
			&sc.TechnicianID, &sc.TechnicianName, &sc.CompletedAt); err != nil {
			return nil, mapScanErr("scan step completion", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &sc.Data); err != nil {
				return nil, fmt.Errorf("decode step data: %w: %w", domain.ErrReadDatabaseRow, err)
			}
		}
		sc.StateCode = model.State(stateCode)
		out = append(out, &sc)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list step completions", err)
	}
	return out, nil
}

func (r *PostgresStepCompletionRepo) CountDistinct(ctx context.Context, tx repository.Tx, jobID string, state model.State, minAttempt int) (int, error) {
	const q = `
SELECT COUNT(DISTINCT step_code) FROM step_completions
WHERE job_id=$1 AND state_code=$2 AND attempt >= $3;`
	var n int
	if err := pickRow(ctx, r.pool, tx, q, jobID, string(state), minAttempt).Scan(&n); err != nil {
		return 0, mapErr("count step completions", err)
	}
	return n, nil
}
