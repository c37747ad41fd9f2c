package patients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgxpool.Pool the repository needs. pgxmock satisfies
// it in tests.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository persists patients in Postgres via pgx.
type PostgresRepository struct {
	pool DB
}

// NewPostgresRepository creates a repository backed by the supplied pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("patients: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// NewPostgresRepositoryWithDB allows injecting mocks for tests.
func NewPostgresRepositoryWithDB(db DB) *PostgresRepository {
	return &PostgresRepository{pool: db}
}

const insertPatientSQL = `
INSERT INTO patients (id, full_name, phone, phone_digits, date_of_birth, insurance_name, has_insurance, family_members, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, full_name, phone, date_of_birth, insurance_name, has_insurance, family_members, created_at`

const selectPatientByIDSQL = `
SELECT id, full_name, phone, date_of_birth, insurance_name, has_insurance, family_members, created_at
FROM patients WHERE id = $1`

const selectPatientByPhoneSQL = `
SELECT id, full_name, phone, date_of_birth, insurance_name, has_insurance, family_members, created_at
FROM patients WHERE phone_digits = $1`

const updatePatientSQL = `
UPDATE patients
SET full_name = $2, phone = $3, phone_digits = $4, insurance_name = $5, has_insurance = $6, family_members = $7
WHERE id = $1
RETURNING id, full_name, phone, date_of_birth, insurance_name, has_insurance, family_members, created_at`

// Create inserts a new patient row.
func (r *PostgresRepository) Create(ctx context.Context, patient *Patient) (*Patient, error) {
	normalized, err := NormalizePhone(patient.Phone)
	if err != nil {
		return nil, err
	}

	id := patient.ID
	if id == "" {
		id = NewPatientID()
	}
	createdAt := patient.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	row := r.pool.QueryRow(ctx, insertPatientSQL,
		id, patient.FullName, patient.Phone, normalized,
		patient.DateOfBirth, nullableString(patient.InsuranceName), patient.HasInsurance,
		patient.FamilyMembers, createdAt,
	)
	out, err := scanPatient(row)
	if err != nil {
		return nil, fmt.Errorf("patients: insert: %w", err)
	}
	return out, nil
}

// GetByID loads a patient by primary key.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Patient, error) {
	out, err := scanPatient(r.pool.QueryRow(ctx, selectPatientByIDSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("patients: load by id: %w", err)
	}
	return out, nil
}

// GetByPhone loads a patient by normalized phone digits.
func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (*Patient, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	out, err := scanPatient(r.pool.QueryRow(ctx, selectPatientByPhoneSQL, normalized))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("patients: load by phone: %w", err)
	}
	return out, nil
}

// Update rewrites the mutable columns of a patient row.
func (r *PostgresRepository) Update(ctx context.Context, patient *Patient) (*Patient, error) {
	normalized, err := NormalizePhone(patient.Phone)
	if err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, updatePatientSQL,
		patient.ID, patient.FullName, patient.Phone, normalized,
		nullableString(patient.InsuranceName), patient.HasInsurance, patient.FamilyMembers,
	)
	out, err := scanPatient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("patients: update: %w", err)
	}
	return out, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var (
		p         Patient
		insurance *string
	)
	if err := row.Scan(&p.ID, &p.FullName, &p.Phone, &p.DateOfBirth, &insurance, &p.HasInsurance, &p.FamilyMembers, &p.CreatedAt); err != nil {
		return nil, err
	}
	if insurance != nil {
		p.InsuranceName = *insurance
	}
	return &p, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ Repository = (*PostgresRepository)(nil)
