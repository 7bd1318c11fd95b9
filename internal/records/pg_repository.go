package records

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/booking/internal/booking"
	"github.com/clinicore/booking/internal/catalog"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanBilling(row pgx.Row) (*Billing, error) {
	var b Billing

	err := row.Scan(
		&b.ID,
		&b.AppointmentID,
		&b.AmountCents,
		&b.InsuranceCoverageCents,
		&b.PaymentStatus,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBillingNotFound
		}
		return nil, err
	}

	return &b, nil
}

func scanMedicalRecord(row pgx.Row) (*MedicalRecord, error) {
	var m MedicalRecord

	err := row.Scan(
		&m.ID,
		&m.AppointmentID,
		&m.StaffID,
		&m.Diagnosis,
		&m.Treatment,
		&m.Prescription,
		&m.VisitDate,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMedicalRecordNotFound
		}
		return nil, err
	}

	return &m, nil
}

func scanOrderedTest(row pgx.Row) (*OrderedTest, error) {
	var t OrderedTest

	err := row.Scan(
		&t.ID,
		&t.AppointmentID,
		&t.LabTestID,
		&t.OrderedByID,
		&t.Status,
		&t.ResultNotes,
		&t.OrderedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderedTestNotFound
		}
		return nil, err
	}

	return &t, nil
}

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription

	err := row.Scan(
		&p.ID,
		&p.MedicalRecordID,
		&p.MedicationID,
		&p.PrescribedByID,
		&p.Dosage,
		&p.Frequency,
		&p.DurationDays,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New("prescription not found")
		}
		return nil, err
	}

	return &p, nil
}

// mapFKViolation turns a foreign key failure into the sentinel for the
// missing referent so callers see a referential rejection, not a raw pg error.
func mapFKViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23503" {
		return err
	}

	switch pgErr.ConstraintName {
	case "billing_appointment_id_fkey",
		"medical_records_appointment_id_fkey",
		"ordered_tests_appointment_id_fkey":
		return booking.ErrAppointmentNotFound
	case "medical_records_staff_id_fkey",
		"ordered_tests_ordered_by_fkey",
		"prescriptions_prescribed_by_fkey":
		return catalog.ErrStaffNotFound
	case "ordered_tests_lab_test_id_fkey":
		return catalog.ErrLabTestNotFound
	case "prescriptions_medication_id_fkey":
		return catalog.ErrMedicationNotFound
	case "prescriptions_medical_record_id_fkey":
		return ErrMedicalRecordNotFound
	}
	return err
}

// Interface methods

func (r *PgRepository) UpsertBilling(ctx context.Context, b *Billing) (*Billing, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO billing (id, appointment_id, amount_cents, insurance_coverage_cents, payment_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (appointment_id) DO UPDATE
		SET amount_cents             = EXCLUDED.amount_cents,
		    insurance_coverage_cents = EXCLUDED.insurance_coverage_cents,
		    payment_status           = EXCLUDED.payment_status,
		    updated_at               = now()
		RETURNING id, appointment_id, amount_cents, insurance_coverage_cents, payment_status, created_at, updated_at
	`, uuid.New(), b.AppointmentID, b.AmountCents, b.InsuranceCoverageCents, b.PaymentStatus)

	billing, err := scanBilling(row)
	if err != nil {
		return nil, mapFKViolation(err)
	}
	return billing, nil
}

func (r *PgRepository) GetBillingByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Billing, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, appointment_id, amount_cents, insurance_coverage_cents, payment_status, created_at, updated_at
		FROM billing
		WHERE appointment_id = $1
	`, appointmentID)
	return scanBilling(row)
}

func (r *PgRepository) CreateMedicalRecord(ctx context.Context, m *MedicalRecord) (*MedicalRecord, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO medical_records (id, appointment_id, staff_id, diagnosis, treatment, prescription, visit_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING id, appointment_id, staff_id, diagnosis, treatment, prescription, visit_date, created_at, updated_at
	`, uuid.New(), m.AppointmentID, m.StaffID, m.Diagnosis, m.Treatment, m.Prescription, m.VisitDate)

	rec, err := scanMedicalRecord(row)
	if err != nil {
		return nil, mapFKViolation(err)
	}
	return rec, nil
}

func (r *PgRepository) GetMedicalRecordByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, appointment_id, staff_id, diagnosis, treatment, prescription, visit_date, created_at, updated_at
		FROM medical_records
		WHERE id = $1
	`, id)
	return scanMedicalRecord(row)
}

func (r *PgRepository) ListMedicalRecordsByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]MedicalRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, appointment_id, staff_id, diagnosis, treatment, prescription, visit_date, created_at, updated_at
		FROM medical_records
		WHERE appointment_id = $1
		ORDER BY created_at
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []MedicalRecord
	for rows.Next() {
		m, err := scanMedicalRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CreateOrderedTest(ctx context.Context, t *OrderedTest) (*OrderedTest, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO ordered_tests (id, appointment_id, lab_test_id, ordered_by, status, result_notes, ordered_at, updated_at)
		VALUES ($1, $2, $3, $4, 'ordered', '', now(), now())
		RETURNING id, appointment_id, lab_test_id, ordered_by, status, result_notes, ordered_at, updated_at
	`, uuid.New(), t.AppointmentID, t.LabTestID, t.OrderedByID)

	ordered, err := scanOrderedTest(row)
	if err != nil {
		return nil, mapFKViolation(err)
	}
	return ordered, nil
}

func (r *PgRepository) UpdateOrderedTestStatus(ctx context.Context, id uuid.UUID, status TestStatus, resultNotes string) (*OrderedTest, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE ordered_tests
		SET status = $2,
		    result_notes = $3,
		    updated_at = now()
		WHERE id = $1
		RETURNING id, appointment_id, lab_test_id, ordered_by, status, result_notes, ordered_at, updated_at
	`, id, status, resultNotes)

	return scanOrderedTest(row)
}

func (r *PgRepository) ListOrderedTestsByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]OrderedTest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, appointment_id, lab_test_id, ordered_by, status, result_notes, ordered_at, updated_at
		FROM ordered_tests
		WHERE appointment_id = $1
		ORDER BY ordered_at
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []OrderedTest
	for rows.Next() {
		t, err := scanOrderedTest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CreatePrescription(ctx context.Context, p *Prescription) (*Prescription, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO prescriptions (id, medical_record_id, medication_id, prescribed_by, dosage, frequency, duration_days, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'active', now(), now())
		RETURNING id, medical_record_id, medication_id, prescribed_by, dosage, frequency, duration_days, status, created_at, updated_at
	`, uuid.New(), p.MedicalRecordID, p.MedicationID, p.PrescribedByID, p.Dosage, p.Frequency, p.DurationDays)

	rx, err := scanPrescription(row)
	if err != nil {
		return nil, mapFKViolation(err)
	}
	return rx, nil
}

func (r *PgRepository) ListPrescriptionsByMedicalRecord(ctx context.Context, medicalRecordID uuid.UUID) ([]Prescription, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, medical_record_id, medication_id, prescribed_by, dosage, frequency, duration_days, status, created_at, updated_at
		FROM prescriptions
		WHERE medical_record_id = $1
		ORDER BY created_at
	`, medicalRecordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
