package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"refurb-workflow/internal/domain/model"
	"refurb-workflow/internal/domain/ports/repository"
)

// Compile-time check
var _ repository.TransitionLogRepository = (*PostgresTransitionLogRepo)(nil)

// PostgresTransitionLogRepo only inserts and reads. Nothing updates or
// deletes rows in transition_log.
type PostgresTransitionLogRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresTransitionLogRepo(pool *pgxpool.Pool) *PostgresTransitionLogRepo {
	return &PostgresTransitionLogRepo{pool: pool}
}

func (r *PostgresTransitionLogRepo) Append(ctx context.Context, tx repository.Tx, e *model.TransitionLogEntry) error {
	const q = `
INSERT INTO transition_log (id, job_id, from_state, to_state, action, technician_id, notes, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`
	_, err := execSQL(ctx, r.pool, tx, q,
		e.ID, e.JobID, statePtr(e.FromState), string(e.ToState), string(e.Action),
		e.TechnicianID, e.Notes, e.CreatedAt,
	)
	return mapErr("append transition", err)
}

func (r *PostgresTransitionLogRepo) ListByJob(ctx context.Context, tx repository.Tx, jobID string) ([]*model.TransitionLogEntry, error) {
	const q = `
SELECT id, job_id, from_state, to_state, action, technician_id, notes, created_at
FROM transition_log
WHERE job_id=$1
ORDER BY created_at, id;`
	rows, err := queryRows(ctx, r.pool, tx, q, jobID)
	if err != nil {
		return nil, mapErr("list transitions", err)
	}
	defer rows.Close()

	var out []*model.TransitionLogEntry
	for rows.Next() {
		var (
			e          model.TransitionLogEntry
			from       *string
			to, action string
		)
		if err := rows.Scan(&e.ID, &e.JobID, &from, &to, &action, &e.TechnicianID, &e.Notes, &e.CreatedAt); err != nil {
			return nil, mapScanErr("scan transition", err)
		}
		if from != nil {
			s := model.State(*from)
			e.FromState = &s
		}
		e.ToState = model.State(to)
		e.Action = model.Action(action)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list transitions", err)
	}
	return out, nil
}
