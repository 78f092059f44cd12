package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.Email,
		&p.Phone,
		&p.DateOfBirth,
		&p.BloodGroup,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(
		&d.ID,
		&d.FirstName,
		&d.LastName,
		&d.Specialization,
		&d.Department,
		&d.ExperienceYears,
		&d.ConsultationFee,
		&d.Rating,
		&d.AvailableDays,
		&d.DayStart,
		&d.DayEnd,
		&d.MaxPatientsPerDay,
		&d.Active,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var date time.Time
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&date,
		&a.Time,
		&a.Status,
		&a.Type,
		&a.Symptoms,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	a.Date = date.Format(DateLayout)
	return &a, nil
}

func scanToken(row pgx.Row) (*Token, error) {
	var t Token
	var date time.Time
	err := row.Scan(
		&t.ID,
		&t.PatientID,
		&t.DoctorID,
		&date,
		&t.Number,
		&t.Status,
		&t.EstimatedWait,
		&t.ActualWait,
		&t.AppointmentID,
		&t.CalledAt,
		&t.CompletedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	t.Date = date.Format(DateLayout)
	return &t, nil
}

const appointmentColumns = `id, patient_id, doctor_id, visit_date, visit_time, status, consultation_type, symptoms, notes, created_at, updated_at`

const tokenColumns = `id, patient_id, doctor_id, visit_date, token_number, status, estimated_wait_mins, actual_wait_mins, appointment_id, called_at, completed_at, created_at, updated_at`

const doctorColumns = `id, first_name, last_name, specialization, department, experience_years, consultation_fee, rating, available_days, day_start, day_end, max_patients_per_day, active, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, phone, date_of_birth, blood_group, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) ListActiveDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE active
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) FindAppointmentAt(ctx context.Context, doctorID uuid.UUID, date, slot string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND visit_date = $2::date
		  AND visit_time = $3
		  AND status <> 'cancelled'
		LIMIT 1
	`, doctorID, date, slot)
	return scanAppointment(row)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, appt *Appointment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9, $10, $11)
	`, appt.ID, appt.PatientID, appt.DoctorID, appt.Date, appt.Time, appt.Status, appt.Type,
		appt.Symptoms, appt.Notes, appt.CreatedAt, appt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)
	return scanAppointment(row)
}

func (r *PgRepository) CountAppointments(ctx context.Context, doctorID uuid.UUID, date string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE doctor_id = $1
		  AND visit_date = $2::date
		  AND status <> 'cancelled'
	`, doctorID, date).Scan(&n)
	return n, err
}

func (r *PgRepository) GetTokenByID(ctx context.Context, id uuid.UUID) (*Token, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+tokenColumns+`
		FROM tokens
		WHERE id = $1
	`, id)
	return scanToken(row)
}

func (r *PgRepository) MaxTokenNumber(ctx context.Context, doctorID uuid.UUID, date string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(token_number), 0)
		FROM tokens
		WHERE doctor_id = $1
		  AND visit_date = $2::date
	`, doctorID, date).Scan(&n)
	return n, err
}

func (r *PgRepository) CountActiveTokens(ctx context.Context, doctorID uuid.UUID, date string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM tokens
		WHERE doctor_id = $1
		  AND visit_date = $2::date
		  AND status <> 'cancelled'
	`, doctorID, date).Scan(&n)
	return n, err
}

func (r *PgRepository) CreateToken(ctx context.Context, t *Token) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tokens (`+tokenColumns+`)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, t.ID, t.PatientID, t.DoctorID, t.Date, t.Number, t.Status, t.EstimatedWait,
		t.ActualWait, t.AppointmentID, t.CalledAt, t.CompletedAt, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

func (r *PgRepository) listTokens(ctx context.Context, query string, args ...any) ([]Token, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}

func (r *PgRepository) ListTokens(ctx context.Context, doctorID uuid.UUID, date string) ([]Token, error) {
	return r.listTokens(ctx, `
		SELECT `+tokenColumns+`
		FROM tokens
		WHERE doctor_id = $1
		  AND visit_date = $2::date
		ORDER BY token_number
	`, doctorID, date)
}

func (r *PgRepository) ListTokensByStatus(ctx context.Context, doctorID uuid.UUID, date string, status TokenStatus) ([]Token, error) {
	return r.listTokens(ctx, `
		SELECT `+tokenColumns+`
		FROM tokens
		WHERE doctor_id = $1
		  AND visit_date = $2::date
		  AND status = $3
		ORDER BY token_number
	`, doctorID, date, status)
}

func (r *PgRepository) GetCalledToken(ctx context.Context, doctorID uuid.UUID, date string) (*Token, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+tokenColumns+`
		FROM tokens
		WHERE doctor_id = $1
		  AND visit_date = $2::date
		  AND status = 'called'
		ORDER BY token_number
		LIMIT 1
	`, doctorID, date)
	return scanToken(row)
}

func (r *PgRepository) ListPatientTokens(ctx context.Context, patientID uuid.UUID, status *TokenStatus) ([]Token, error) {
	if status != nil {
		return r.listTokens(ctx, `
			SELECT `+tokenColumns+`
			FROM tokens
			WHERE patient_id = $1
			  AND status = $2
			ORDER BY visit_date DESC, token_number DESC
		`, patientID, *status)
	}
	return r.listTokens(ctx, `
		SELECT `+tokenColumns+`
		FROM tokens
		WHERE patient_id = $1
		ORDER BY visit_date DESC, token_number DESC
	`, patientID)
}

func (r *PgRepository) MarkTokenCalled(ctx context.Context, id uuid.UUID) (*Token, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tokens
		SET status = 'called',
		    called_at = now(),
		    updated_at = now()
		WHERE id = $1
		  AND status = 'waiting'
		RETURNING `+tokenColumns+`
	`, id)
	return scanToken(row)
}

func (r *PgRepository) MarkTokenCompleted(ctx context.Context, id uuid.UUID, actualWaitMins int) (*Token, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tokens
		SET status = 'completed',
		    actual_wait_mins = $2,
		    completed_at = now(),
		    updated_at = now()
		WHERE id = $1
		  AND status = 'called'
		RETURNING `+tokenColumns+`
	`, id, actualWaitMins)
	return scanToken(row)
}

func (r *PgRepository) MarkTokenCancelled(ctx context.Context, id uuid.UUID) (*Token, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tokens
		SET status = 'cancelled',
		    updated_at = now()
		WHERE id = $1
		  AND status = 'waiting'
		RETURNING `+tokenColumns+`
	`, id)
	return scanToken(row)
}

func (r *PgRepository) UpdateTokenEstimate(ctx context.Context, id uuid.UUID, mins int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE tokens
		SET estimated_wait_mins = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, mins)
	if err != nil {
		return fmt.Errorf("update token estimate: %w", err)
	}
	return nil
}

func (r *PgRepository) RecentActualWaits(ctx context.Context, doctorID uuid.UUID, limit int) ([]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT actual_wait_mins
		FROM tokens
		WHERE doctor_id = $1
		  AND status = 'completed'
		  AND actual_wait_mins IS NOT NULL
		ORDER BY completed_at DESC
		LIMIT $2
	`, doctorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var waits []int
	for rows.Next() {
		var w int
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		waits = append(waits, w)
	}
	return waits, rows.Err()
}
