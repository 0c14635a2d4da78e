package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"refurb-workflow/internal/domain"
	"refurb-workflow/internal/domain/model"
	"refurb-workflow/internal/domain/ports/repository"
)

// Compile-time check
var _ repository.JobRepository = (*PostgresJobRepo)(nil)

type PostgresJobRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresJobRepo(pool *pgxpool.Pool) *PostgresJobRepo {
	return &PostgresJobRepo{pool: pool}
}

const jobColumns = `
	id, unit_id, pallet_id, category, manufacturer, model,
	state, held_from_state, current_step_index, technician_id, technician_name,
	attempt_count, max_attempts, priority,
	final_grade, warranty_eligible, disposition_reason,
	created_at, started_at, completed_at, updated_at`

// priorityRank mirrors model.Priority.Rank for ORDER BY.
const priorityRank = `CASE priority
	WHEN 'urgent' THEN 0
	WHEN 'high' THEN 1
	WHEN 'normal' THEN 2
	WHEN 'low' THEN 3
	ELSE 4 END`

func (r *PostgresJobRepo) Create(ctx context.Context, tx repository.Tx, j *model.Job) error {
	const q = `INSERT INTO jobs (` + jobColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21);`
	_, err := execSQL(ctx, r.pool, tx, q,
		j.ID, j.UnitID, j.PalletID, j.Category, j.Manufacturer, j.Model,
		string(j.State), statePtr(j.HeldFromState), j.CurrentStepIndex, j.TechnicianID, j.TechnicianName,
		j.AttemptCount, j.MaxAttempts, string(j.Priority),
		j.FinalGrade, j.WarrantyEligible, j.DispositionReason,
		j.CreatedAt, j.StartedAt, j.CompletedAt, j.UpdatedAt,
	)
	return mapErr("create job", err)
}

func (r *PostgresJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	q := `SELECT ` + jobColumns + ` FROM jobs WHERE id=$1;`
	return scanJob(pickRow(ctx, r.pool, tx, q, id))
}

func (r *PostgresJobRepo) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	if _, ok := tx.(pgx.Tx); !ok {
		return nil, domain.ErrInvalidExecContext
	}
	q := `SELECT ` + jobColumns + ` FROM jobs WHERE id=$1 FOR UPDATE;`
	return scanJob(pickRow(ctx, r.pool, tx, q, id))
}

func (r *PostgresJobRepo) FindByUnitID(ctx context.Context, tx repository.Tx, unitID string) (*model.Job, error) {
	q := `SELECT ` + jobColumns + ` FROM jobs WHERE unit_id=$1;`
	return scanJob(pickRow(ctx, r.pool, tx, q, unitID))
}

func (r *PostgresJobRepo) List(ctx context.Context, tx repository.Tx, f model.JobFilter) ([]*model.Job, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.State != "" {
		add("state=$%d", string(f.State))
	}
	if f.TechnicianID != "" {
		add("technician_id=$%d", f.TechnicianID)
	}
	if f.Category != "" {
		add("category=$%d", f.Category)
	}
	if f.Priority != "" {
		add("priority=$%d", string(f.Priority))
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + jobColumns + ` FROM jobs`)
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY " + priorityRank + ", created_at, id")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	rows, err := queryRows(ctx, r.pool, tx, sb.String(), args...)
	if err != nil {
		return nil, mapErr("list jobs", err)
	}
	defer rows.Close()

	var out []*model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list jobs", err)
	}
	return out, nil
}

func (r *PostgresJobRepo) Update(ctx context.Context, tx repository.Tx, j *model.Job) error {
	const q = `
UPDATE jobs SET
	state=$2, held_from_state=$3, current_step_index=$4,
	technician_id=$5, technician_name=$6, attempt_count=$7, priority=$8,
	final_grade=$9, warranty_eligible=$10, disposition_reason=$11,
	started_at=$12, completed_at=$13, updated_at=$14
WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q,
		j.ID, string(j.State), statePtr(j.HeldFromState), j.CurrentStepIndex,
		j.TechnicianID, j.TechnicianName, j.AttemptCount, string(j.Priority),
		j.FinalGrade, j.WarrantyEligible, j.DispositionReason,
		j.StartedAt, j.CompletedAt, j.UpdatedAt,
	)
	if err != nil {
		return mapErr("update job", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresJobRepo) UpdateStepIndex(ctx context.Context, tx repository.Tx, id string, index int, updatedAt time.Time) error {
	tag, err := execSQL(ctx, r.pool, tx,
		`UPDATE jobs SET current_step_index=$2, updated_at=$3 WHERE id=$1;`, id, index, updatedAt)
	if err != nil {
		return mapErr("update step index", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// --- Statistics ---

func (r *PostgresJobRepo) CountAll(ctx context.Context, tx repository.Tx) (int, error) {
	var n int
	if err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM jobs;`).Scan(&n); err != nil {
		return 0, mapErr("count jobs", err)
	}
	return n, nil
}

func (r *PostgresJobRepo) CountByState(ctx context.Context, tx repository.Tx) (map[model.State]int, error) {
	counts, err := r.groupCount(ctx, tx, "state")
	if err != nil {
		return nil, err
	}
	out := make(map[model.State]int, len(counts))
	for k, v := range counts {
		out[model.State(k)] = v
	}
	return out, nil
}

func (r *PostgresJobRepo) CountByCategory(ctx context.Context, tx repository.Tx) (map[string]int, error) {
	return r.groupCount(ctx, tx, "category")
}

func (r *PostgresJobRepo) CountByPriority(ctx context.Context, tx repository.Tx) (map[model.Priority]int, error) {
	counts, err := r.groupCount(ctx, tx, "priority")
	if err != nil {
		return nil, err
	}
	out := make(map[model.Priority]int, len(counts))
	for k, v := range counts {
		out[model.Priority(k)] = v
	}
	return out, nil
}

// groupCount runs a GROUP BY on one of a fixed set of columns.
func (r *PostgresJobRepo) groupCount(ctx context.Context, tx repository.Tx, column string) (map[string]int, error) {
	switch column {
	case "state", "category", "priority":
	default:
		return nil, fmt.Errorf("group by %q: %w", column, domain.ErrInvalidArgument)
	}
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+column+`, COUNT(*) FROM jobs GROUP BY `+column+`;`)
	if err != nil {
		return nil, mapErr("count by "+column, err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, mapScanErr("count by "+column, err)
		}
		out[key] = n
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("count by "+column, err)
	}
	return out, nil
}

func (r *PostgresJobRepo) CountCompletedBetween(ctx context.Context, tx repository.Tx, from, to time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM jobs WHERE state='COMPLETE' AND completed_at >= $1 AND completed_at < $2;`
	var n int
	if err := pickRow(ctx, r.pool, tx, q, from, to).Scan(&n); err != nil {
		return 0, mapErr("count completed", err)
	}
	return n, nil
}

func (r *PostgresJobRepo) AverageCycleTime(ctx context.Context, tx repository.Tx) (time.Duration, int, error) {
	const q = `
SELECT COALESCE(EXTRACT(EPOCH FROM AVG(completed_at - started_at)), 0)::float8, COUNT(*)
FROM jobs
WHERE state='COMPLETE' AND started_at IS NOT NULL AND completed_at IS NOT NULL;`
	var (
		secs float64
		n    int
	)
	if err := pickRow(ctx, r.pool, tx, q).Scan(&secs, &n); err != nil {
		return 0, 0, mapErr("average cycle time", err)
	}
	return time.Duration(secs * float64(time.Second)), n, nil
}

// --- helpers ---

func scanJob(row pgx.Row) (*model.Job, error) {
	var (
		j        model.Job
		state    string
		heldFrom *string
		priority string
	)
	err := row.Scan(
		&j.ID, &j.UnitID, &j.PalletID, &j.Category, &j.Manufacturer, &j.Model,
		&state, &heldFrom, &j.CurrentStepIndex, &j.TechnicianID, &j.TechnicianName,
		&j.AttemptCount, &j.MaxAttempts, &priority,
		&j.FinalGrade, &j.WarrantyEligible, &j.DispositionReason,
		&j.CreatedAt, &j.StartedAt, &j.CompletedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, mapScanErr("scan job", err)
	}
	j.State = model.State(state)
	j.Priority = model.Priority(priority)
	if heldFrom != nil {
		s := model.State(*heldFrom)
		j.HeldFromState = &s
	}
	return &j, nil
}

func statePtr(s *model.State) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}
