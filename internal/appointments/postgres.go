package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgxpool.Pool the repository uses. pgxmock satisfies
// it, which keeps the SQL paths testable without a live database.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores appointments in Postgres.
type PostgresRepository struct {
	pool DB
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository wires the repository to a live pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pool required")
	}
	return &PostgresRepository{pool: pool}
}

// NewPostgresRepositoryWithDB accepts any DB implementation, including mocks.
func NewPostgresRepositoryWithDB(db DB) *PostgresRepository {
	if db == nil {
		panic("appointments: db required")
	}
	return &PostgresRepository{pool: db}
}

const (
	insertAppointmentSQL = `INSERT INTO appointments
		(id, patient_id, appointment_type, scheduled_time, status, emergency_details, staff_notified, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	selectAppointmentByIDSQL = `SELECT id, patient_id, appointment_type, scheduled_time, status, emergency_details, staff_notified, notes, created_at, updated_at
		FROM appointments WHERE id = $1`

	selectAppointmentsByPatientSQL = `SELECT id, patient_id, appointment_type, scheduled_time, status, emergency_details, staff_notified, notes, created_at, updated_at
		FROM appointments WHERE patient_id = $1 ORDER BY scheduled_time`

	selectAppointmentsBetweenSQL = `SELECT id, patient_id, appointment_type, scheduled_time, status, emergency_details, staff_notified, notes, created_at, updated_at
		FROM appointments WHERE scheduled_time >= $1 AND scheduled_time < $2 ORDER BY scheduled_time`

	updateAppointmentSQL = `UPDATE appointments
		SET appointment_type = $2, scheduled_time = $3, status = $4, emergency_details = $5, staff_notified = $6, notes = $7, updated_at = $8
		WHERE id = $1`
)

func (r *PostgresRepository) Create(ctx context.Context, appt *Appointment) error {
	_, err := r.pool.Exec(ctx, insertAppointmentSQL,
		appt.ID, appt.PatientID, string(appt.Type), appt.ScheduledTime, string(appt.Status),
		nullableString(appt.EmergencyDetails), appt.StaffNotified, nullableString(appt.Notes),
		appt.CreatedAt, appt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("appointments: insert: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	return scanAppointment(r.pool.QueryRow(ctx, selectAppointmentByIDSQL, id))
}

func (r *PostgresRepository) ListByPatient(ctx context.Context, patientID string) ([]*Appointment, error) {
	rows, err := r.pool.Query(ctx, selectAppointmentsByPatientSQL, patientID)
	if err != nil {
		return nil, fmt.Errorf("appointments: query by patient: %w", err)
	}
	return collectAppointments(rows)
}

func (r *PostgresRepository) ListBetween(ctx context.Context, start, end time.Time) ([]*Appointment, error) {
	rows, err := r.pool.Query(ctx, selectAppointmentsBetweenSQL, start, end)
	if err != nil {
		return nil, fmt.Errorf("appointments: query between: %w", err)
	}
	return collectAppointments(rows)
}

func (r *PostgresRepository) Update(ctx context.Context, appt *Appointment) error {
	tag, err := r.pool.Exec(ctx, updateAppointmentSQL,
		appt.ID, string(appt.Type), appt.ScheduledTime, string(appt.Status),
		nullableString(appt.EmergencyDetails), appt.StaffNotified, nullableString(appt.Notes),
		appt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("appointments: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*Appointment, error) {
	var (
		appt             Appointment
		apptType, status string
		emergency, notes *string
	)
	err := row.Scan(&appt.ID, &appt.PatientID, &apptType, &appt.ScheduledTime, &status,
		&emergency, &appt.StaffNotified, &notes, &appt.CreatedAt, &appt.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: scan: %w", err)
	}
	appt.Type = Type(apptType)
	appt.Status = Status(status)
	if emergency != nil {
		appt.EmergencyDetails = *emergency
	}
	if notes != nil {
		appt.Notes = *notes
	}
	return &appt, nil
}

func collectAppointments(rows pgx.Rows) ([]*Appointment, error) {
	defer rows.Close()
	var out []*Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: rows: %w", err)
	}
	return out, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
