package scheduling

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

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Name, &d.Specialty, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	err := row.Scan(
		&s.ID,
		&s.DoctorID,
		&s.Date,
		&s.Day,
		&s.StartTime,
		&s.EndTime,
		&s.StartMinutes,
		&s.EndMinutes,
		&s.IsBooked,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &s, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.SlotID,
		&a.Date,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&a.Reason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

const slotColumns = `id, doctor_id, date, day, start_time, end_time, start_minutes, end_minutes, is_booked, created_at, updated_at`

const appointmentColumns = `id, patient_id, doctor_id, slot_id, date, start_time, end_time, status, reason, created_at, updated_at`

// Doctors and patients

func (r *PgRepository) CreateDoctor(ctx context.Context, name string, specialty *string) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO doctors (id, name, specialty, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING id, name, specialty, created_at, updated_at
	`, uuid.New(), name, specialty)
	return scanDoctor(row)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) ListDoctors(ctx context.Context, limit, offset int) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, specialty, created_at, updated_at
		FROM doctors
		ORDER BY name
		LIMIT $1 OFFSET $2
	`, limit, offset)
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

func (r *PgRepository) CreatePatient(ctx context.Context, name string, email *string) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO patients (id, name, email, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING id, name, email, created_at, updated_at
	`, uuid.New(), name, email)
	return scanPatient(row)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

// Slots

func (r *PgRepository) InsertSlots(ctx context.Context, slots []Slot) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin slot insert: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, s := range slots {
		batch.Queue(`
			INSERT INTO appointment_slots
				(id, doctor_id, date, day, start_time, end_time, start_minutes, end_minutes, is_booked, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, now(), now())
		`, s.ID, s.DoctorID, s.Date, s.Day, s.StartTime, s.EndTime, s.StartMinutes, s.EndMinutes)
	}

	br := tx.SendBatch(ctx, batch)
	for range slots {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return 0, fmt.Errorf("insert slot batch: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("close slot batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit slot insert: %w", err)
	}
	return len(slots), nil
}

func (r *PgRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM appointment_slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) ListAvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time, filter *AvailabilityFilter) ([]Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM appointment_slots
		WHERE doctor_id = $1 AND date = $2 AND is_booked = FALSE
	`
	args := []any{doctorID, TruncateToDay(date)}

	if filter != nil {
		query += ` AND start_minutes >= $3 AND end_minutes <= $4`
		args = append(args, filter.From, filter.To)
	}
	query += ` ORDER BY date, start_minutes`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

func (r *PgRepository) UpdateSlotTimes(ctx context.Context, id uuid.UUID, s Slot) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointment_slots
		SET start_time = $2,
		    end_time = $3,
		    start_minutes = $4,
		    end_minutes = $5,
		    updated_at = now()
		WHERE id = $1
		  AND is_booked = FALSE
		RETURNING `+slotColumns+`
	`, id, s.StartTime, s.EndTime, s.StartMinutes, s.EndMinutes)

	updated, err := scanSlot(row)
	if errors.Is(err, ErrSlotNotFound) {
		return nil, r.slotMissingOrBooked(ctx, id)
	}
	return updated, err
}

func (r *PgRepository) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM appointment_slots
		WHERE id = $1 AND is_booked = FALSE
	`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.slotMissingOrBooked(ctx, id)
	}
	return nil
}

func (r *PgRepository) ReleaseSlot(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointment_slots
		SET is_booked = FALSE,
		    updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("release slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// slotMissingOrBooked explains a zero-row conditional write on a slot.
func (r *PgRepository) slotMissingOrBooked(ctx context.Context, id uuid.UUID) error {
	var booked bool
	err := r.pool.QueryRow(ctx, `SELECT is_booked FROM appointment_slots WHERE id = $1`, id).Scan(&booked)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrSlotNotFound
	}
	if err != nil {
		return err
	}
	if booked {
		return ErrSlotBooked
	}
	return ErrSlotNotFound
}

// Booking

func (r *PgRepository) BookSlot(ctx context.Context, slotID, patientID, doctorID uuid.UUID, reason *string) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin booking: %w", err)
	}
	defer tx.Rollback(ctx)

	// Conditional flip is the booking CAS: zero rows means someone else won
	// or the slot never existed.
	tag, err := tx.Exec(ctx, `
		UPDATE appointment_slots
		SET is_booked = TRUE,
		    updated_at = now()
		WHERE id = $1
		  AND is_booked = FALSE
	`, slotID)
	if err != nil {
		return nil, fmt.Errorf("mark slot booked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var booked bool
		err := tx.QueryRow(ctx, `SELECT is_booked FROM appointment_slots WHERE id = $1`, slotID).Scan(&booked)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		if err != nil {
			return nil, err
		}
		return nil, ErrSlotBooked
	}

	// Copy the interval off the slot so later slot edits leave the
	// appointment untouched.
	var slotDoctorID uuid.UUID
	var date time.Time
	var startTime, endTime string
	err = tx.QueryRow(ctx, `
		SELECT doctor_id, date, start_time, end_time
		FROM appointment_slots
		WHERE id = $1
	`, slotID).Scan(&slotDoctorID, &date, &startTime, &endTime)
	if err != nil {
		return nil, fmt.Errorf("load booked slot: %w", err)
	}

	// The appointment must be attributed to the slot's owner; the rollback
	// undoes the is_booked flip.
	if slotDoctorID != doctorID {
		return nil, fmt.Errorf("%w: slot belongs to a different doctor", ErrInvalidParams)
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments
			(id, patient_id, doctor_id, slot_id, date, start_time, end_time, status, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', $8, now(), now())
		RETURNING `+appointmentColumns+`
	`, uuid.New(), patientID, doctorID, slotID, date, startTime, endTime, reason)

	appt, err := scanAppointment(row)
	if err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit booking: %w", err)
	}
	return appt, nil
}

// Appointments

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	return r.listAppointments(ctx, `patient_id`, patientID, limit, offset)
}

func (r *PgRepository) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error) {
	return r.listAppointments(ctx, `doctor_id`, doctorID, limit, offset)
}

func (r *PgRepository) listAppointments(ctx context.Context, column string, id uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE `+column+` = $1
		ORDER BY date, start_time
		LIMIT $2 OFFSET $3
	`, id, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
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

func (r *PgRepository) FindElapsedActive(ctx context.Context, now time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status IN ('pending', 'confirmed', 'rescheduled')
		  AND date + (end_time || ':00')::interval < $1
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

// Dashboard counters

func (r *PgRepository) CountAppointmentsByStatus(ctx context.Context, scope SummaryScope) (map[AppointmentStatus]int, error) {
	query := `SELECT status, count(*) FROM appointments`
	var args []any
	switch {
	case scope.PatientID != nil:
		query += ` WHERE patient_id = $1`
		args = append(args, *scope.PatientID)
	case scope.DoctorID != nil:
		query += ` WHERE doctor_id = $1`
		args = append(args, *scope.DoctorID)
	}
	query += ` GROUP BY status`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[AppointmentStatus]int)
	for rows.Next() {
		var status AppointmentStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *PgRepository) CountDoctors(ctx context.Context) (int, error) {
	return r.countOne(ctx, `SELECT count(*) FROM doctors`)
}

func (r *PgRepository) CountPatients(ctx context.Context) (int, error) {
	return r.countOne(ctx, `SELECT count(*) FROM patients`)
}

func (r *PgRepository) CountOpenSlotsFrom(ctx context.Context, day time.Time) (int, error) {
	return r.countOne(ctx, `
		SELECT count(*) FROM appointment_slots
		WHERE is_booked = FALSE AND date >= $1
	`, TruncateToDay(day))
}

func (r *PgRepository) countOne(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Event logging

func (r *PgRepository) InsertEvent(ctx context.Context, ev ScheduleEvent) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO schedule_events (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert schedule event: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
