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
var _ repository.DiagnosisRepository = (*PostgresDiagnosisRepo)(nil)

type PostgresDiagnosisRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresDiagnosisRepo(pool *pgxpool.Pool) *PostgresDiagnosisRepo {
	return &PostgresDiagnosisRepo{pool: pool}
}

func (r *PostgresDiagnosisRepo) Save(ctx context.Context, tx repository.Tx, d *model.Diagnosis) error {
	measurements, err := json.Marshal(d.Measurements)
	if err != nil {
		return fmt.Errorf("marshal measurements: %w: %w", domain.ErrInvalidArgument, err)
	}
	parts, err := json.Marshal(d.RequiredParts)
	if err != nil {
		return fmt.Errorf("marshal required parts: %w: %w", domain.ErrInvalidArgument, err)
	}
	const q = `
INSERT INTO diagnoses (id, job_id, defect_code, severity, measurements, repair_action, required_parts, repair_status, technician_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`
	_, err = execSQL(ctx, r.pool, tx, q,
		d.ID, d.JobID, d.DefectCode, string(d.Severity), measurements, d.RepairAction,
		parts, string(d.RepairStatus), d.TechnicianID, d.CreatedAt,
	)
	return mapErr("save diagnosis", err)
}

func (r *PostgresDiagnosisRepo) ListByJob(ctx context.Context, tx repository.Tx, jobID string) ([]*model.Diagnosis, error) {
	const q = `
SELECT id, job_id, defect_code, severity, measurements, repair_action, required_parts, repair_status, technician_id, created_at
FROM diagnoses
WHERE job_id=$1
ORDER BY created_at DESC, id DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, jobID)
	if err != nil {
		return nil, mapErr("list diagnoses", err)
	}
	defer rows.Close()

	var out []*model.Diagnosis
	for rows.Next() {
		var (
			d                   model.Diagnosis
			severity, status    string
			measurements, parts []byte
		)
		if err := rows.Scan(&d.ID, &d.JobID, &d.DefectCode, &severity, &measurements, &d.RepairAction,
			&parts, &status, &d.TechnicianID, &d.CreatedAt); err != nil {
			return nil, mapScanErr("scan diagnosis", err)
		}
		if err := decodeJSON(measurements, &d.Measurements); err != nil {
			return nil, err
		}
		if err := decodeJSON(parts, &d.RequiredParts); err != nil {
			return nil, err
		}
		d.Severity = model.Severity(severity)
		d.RepairStatus = model.RepairStatus(status)
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list diagnoses", err)
	}
	return out, nil
}

func decodeJSON(b []byte, v interface{}) error {
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode json column: %w: %w", domain.ErrReadDatabaseRow, err)
	}
	return nil
}
