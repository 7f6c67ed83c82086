package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"voucher-queue/internal/domain"
)

// PostgresPatientsRepo 患者 Repository 实现（patients 表）
type PostgresPatientsRepo struct {
	db *sql.DB
}

var _ PatientsRepo = (*PostgresPatientsRepo)(nil)

func NewPostgresPatientsRepo(db *sql.DB) *PostgresPatientsRepo {
	return &PostgresPatientsRepo{db: db}
}

const patientColumns = `
	patient_id::text,
	name,
	document,
	phone,
	email,
	birth_date,
	created_at
`

func (r *PostgresPatientsRepo) ListPatients(ctx context.Context) ([]domain.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	defer rows.Close()

	out := []domain.Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate patients: %w", err)
	}
	return out, nil
}

func (r *PostgresPatientsRepo) GetPatient(ctx context.Context, patientID string) (*domain.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE patient_id = $1`
	return r.getOne(ctx, query, patientID)
}

func (r *PostgresPatientsRepo) GetPatientByDocument(ctx context.Context, document string) (*domain.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE document = $1`
	return r.getOne(ctx, query, document)
}

func (r *PostgresPatientsRepo) getOne(ctx context.Context, query string, arg any) (*domain.Patient, error) {
	p, err := scanPatient(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return p, nil
}

func (r *PostgresPatientsRepo) CreatePatient(ctx context.Context, p *domain.Patient) error {
	query := `
		INSERT INTO patients (patient_id, name, document, phone, email, birth_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Document, nullStr(p.Phone), nullStr(p.Email), p.BirthDate, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *PostgresPatientsRepo) UpdatePatient(ctx context.Context, p *domain.Patient) error {
	query := `
		UPDATE patients
		SET name = $2, document = $3, phone = $4, email = $5, birth_date = $6
		WHERE patient_id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Document, nullStr(p.Phone), nullStr(p.Email), p.BirthDate,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresPatientsRepo) DeletePatient(ctx context.Context, patientID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM patients WHERE patient_id = $1`, patientID)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPatient(row rowScanner) (*domain.Patient, error) {
	var (
		p     domain.Patient
		phone sql.NullString
		email sql.NullString
	)
	err := row.Scan(&p.ID, &p.Name, &p.Document, &phone, &email, &p.BirthDate, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if phone.Valid {
		v := phone.String
		p.Phone = &v
	}
	if email.Valid {
		v := email.String
		p.Email = &v
	}
	return &p, nil
}

func nullStr(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
