package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clinicore/booking/internal/catalog"
)

// DB is the subset of pgxpool.Pool the repository uses. Narrowed so tests
// can substitute a mock pool.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

const slotColumns = `id, staff_id, location_id, date, start_time, end_time, available, created_at, updated_at`
const appointmentColumns = `id, patient_id, slot_id, status, appointment_type, reason, notes, created_at, updated_at`

// Helpers

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot

	err := row.Scan(
		&s.ID,
		&s.StaffID,
		&s.LocationID,
		&s.Date,
		&s.StartTime,
		&s.EndTime,
		&s.Available,
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
		&a.SlotID,
		&a.Status,
		&a.Type,
		&a.Reason,
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

	return &a, nil
}

func scanAppointmentDetail(row pgx.Row) (*AppointmentDetail, error) {
	var d AppointmentDetail

	err := row.Scan(
		&d.Appointment.ID,
		&d.PatientID,
		&d.Appointment.SlotID,
		&d.Status,
		&d.Type,
		&d.Reason,
		&d.Notes,
		&d.Appointment.CreatedAt,
		&d.Appointment.UpdatedAt,
		&d.Slot.ID,
		&d.Slot.StaffID,
		&d.Slot.LocationID,
		&d.Slot.Date,
		&d.Slot.StartTime,
		&d.Slot.EndTime,
		&d.Slot.Available,
		&d.Slot.CreatedAt,
		&d.Slot.UpdatedAt,
		&d.PatientName,
		&d.StaffName,
		&d.LocationName,
		&d.SpecialtyName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &d, nil
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func pgConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

// Interface methods

func (r *PgRepository) CreateSlot(ctx context.Context, s *Slot) (*Slot, error) {
	id := uuid.New()
	date := s.StartTime.UTC().Truncate(24 * time.Hour)

	row := r.db.QueryRow(ctx, `
		INSERT INTO slots (id, staff_id, location_id, date, start_time, end_time, available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, now(), now())
		RETURNING `+slotColumns+`
	`, id, s.StaffID, s.LocationID, date, s.StartTime, s.EndTime)

	slot, err := scanSlot(row)
	if err != nil {
		switch pgErrorCode(err) {
		case "23505":
			return nil, ErrDuplicateSlot
		case "23503":
			if pgConstraint(err) == "slots_location_id_fkey" {
				return nil, catalog.ErrLocationNotFound
			}
			return nil, catalog.ErrStaffNotFound
		}
		return nil, err
	}
	return slot, nil
}

func (r *PgRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) IsSlotAvailable(ctx context.Context, id uuid.UUID) (bool, error) {
	slot, err := r.GetSlotByID(ctx, id)
	if err != nil {
		return false, err
	}
	return slot.Available, nil
}

func (r *PgRepository) BookSlot(ctx context.Context, p BookParams) (*Appointment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin book tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Row lock on the slot serializes racing bookers at the commit point.
	slot, err := scanSlot(tx.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE id = $1
		FOR UPDATE
	`, p.SlotID))
	if err != nil {
		return nil, err
	}
	if !slot.Available {
		return nil, ErrSlotUnavailable
	}

	// Re-run the overlap scan inside the transaction: an active appointment
	// for this patient on the same date whose range intersects [start, end).
	var overlaps bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM appointments a
			JOIN slots s ON s.id = a.slot_id
			WHERE a.patient_id = $1
			  AND a.status NOT IN ('cancelled', 'no_show')
			  AND s.date = $2
			  AND s.start_time < $4
			  AND $3 < s.end_time
		)
	`, p.PatientID, slot.Date, slot.StartTime, slot.EndTime).Scan(&overlaps)
	if err != nil {
		return nil, fmt.Errorf("overlap check: %w", err)
	}
	if overlaps {
		return nil, ErrOverlapConflict
	}

	if _, err := tx.Exec(ctx, `
		UPDATE slots
		SET available = FALSE,
		    updated_at = now()
		WHERE id = $1
	`, p.SlotID); err != nil {
		return nil, fmt.Errorf("hold slot: %w", err)
	}

	appt, err := scanAppointment(tx.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, slot_id, status, appointment_type, reason, notes, created_at, updated_at)
		VALUES ($1, $2, $3, 'scheduled', $4, $5, '', now(), now())
		RETURNING `+appointmentColumns+`
	`, uuid.New(), p.PatientID, p.SlotID, p.Type, p.Reason))
	if err != nil {
		if pgErrorCode(err) == "23503" {
			return nil, catalog.ErrPatientNotFound
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit book tx: %w", err)
	}

	return appt, nil
}

func (r *PgRepository) CancelAppointment(ctx context.Context, id uuid.UUID) (*Appointment, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin cancel tx: %w", err)
	}
	defer tx.Rollback(ctx)

	appt, err := scanAppointment(tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		return nil, false, err
	}

	if appt.Status == StatusCancelled {
		// Re-cancel is a no-op success.
		return appt, false, nil
	}

	updated, err := scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id))
	if err != nil {
		return nil, false, fmt.Errorf("cancel appointment: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE slots
		SET available = TRUE,
		    updated_at = now()
		WHERE id = $1
	`, appt.SlotID); err != nil {
		return nil, false, fmt.Errorf("release slot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit cancel tx: %w", err)
	}

	return updated, true, nil
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var slotID uuid.UUID
	err = tx.QueryRow(ctx, `
		DELETE FROM appointments
		WHERE id = $1
		RETURNING slot_id
	`, id).Scan(&slotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAppointmentNotFound
		}
		return fmt.Errorf("delete appointment: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE slots
		SET available = TRUE,
		    updated_at = now()
		WHERE id = $1
	`, slotID); err != nil {
		return fmt.Errorf("release slot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete tx: %w", err)
	}

	return nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) MarkNoShows(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET status = 'no_show',
		    updated_at = now()
		WHERE status IN ('scheduled', 'confirmed')
		  AND slot_id IN (
			SELECT id FROM slots WHERE end_time < $1
		  )
	`, now)
	if err != nil {
		return 0, fmt.Errorf("mark no-shows: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) AvailableSlots(ctx context.Context, f SlotFilter, now time.Time) ([]AvailableSlot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT s.id, s.staff_id, s.location_id, s.date, s.start_time, s.end_time, s.available, s.created_at, s.updated_at,
		       st.name, sp.name, l.name
		FROM slots s
		JOIN staff st ON st.id = s.staff_id
		JOIN locations l ON l.id = s.location_id
		LEFT JOIN specialties sp ON sp.id = st.specialty_id
		WHERE s.available
		  AND s.start_time > $1
		  AND ($2::uuid IS NULL OR s.staff_id = $2)
		  AND ($3::uuid IS NULL OR s.location_id = $3)
		  AND ($4::uuid IS NULL OR st.specialty_id = $4)
		  AND ($5::date IS NULL OR s.date = $5)
		ORDER BY s.date, s.start_time
		LIMIT 200
	`, now, f.StaffID, f.LocationID, f.SpecialtyID, f.Date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AvailableSlot
	for rows.Next() {
		var a AvailableSlot
		err := rows.Scan(
			&a.ID,
			&a.StaffID,
			&a.LocationID,
			&a.Date,
			&a.StartTime,
			&a.EndTime,
			&a.Available,
			&a.CreatedAt,
			&a.UpdatedAt,
			&a.StaffName,
			&a.SpecialtyName,
			&a.LocationName,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

const appointmentDetailQuery = `
	SELECT a.id, a.patient_id, a.slot_id, a.status, a.appointment_type, a.reason, a.notes, a.created_at, a.updated_at,
	       s.id, s.staff_id, s.location_id, s.date, s.start_time, s.end_time, s.available, s.created_at, s.updated_at,
	       p.name, st.name, l.name, sp.name
	FROM appointments a
	JOIN slots s ON s.id = a.slot_id
	JOIN patients p ON p.id = a.patient_id
	JOIN staff st ON st.id = s.staff_id
	JOIN locations l ON l.id = s.location_id
	LEFT JOIN specialties sp ON sp.id = st.specialty_id
`

func (r *PgRepository) UpcomingAppointments(ctx context.Context, now time.Time, limit int) ([]AppointmentDetail, error) {
	rows, err := r.db.Query(ctx, appointmentDetailQuery+`
		WHERE a.status NOT IN ('cancelled', 'no_show')
		  AND s.start_time > $1
		ORDER BY s.date, s.start_time
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDetails(rows)
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	rows, err := r.db.Query(ctx, appointmentDetailQuery+`
		WHERE a.patient_id = $1
		ORDER BY s.start_time DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDetails(rows)
}

func (r *PgRepository) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	row := r.db.QueryRow(ctx, appointmentDetailQuery+`
		WHERE a.id = $1
	`, id)
	return scanAppointmentDetail(row)
}

func collectDetails(rows pgx.Rows) ([]AppointmentDetail, error) {
	var result []AppointmentDetail
	for rows.Next() {
		d, err := scanAppointmentDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
