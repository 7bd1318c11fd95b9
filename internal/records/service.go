package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/booking/internal/booking"
	"github.com/clinicore/booking/internal/catalog"
)

// AppointmentDirectory is the slice of the booking engine the records module
// needs for referential checks.
type AppointmentDirectory interface {
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*booking.Appointment, error)
}

// CatalogDirectory covers the staff / lab test / medication lookups used to
// validate write targets.
type CatalogDirectory interface {
	GetStaffByID(ctx context.Context, id uuid.UUID) (*catalog.Staff, error)
	GetLabTestByID(ctx context.Context, id uuid.UUID) (*catalog.LabTest, error)
	GetMedicationByID(ctx context.Context, id uuid.UUID) (*catalog.Medication, error)
}

// ErrInvalidBilling rejects billing writes with out-of-range inputs.
var ErrInvalidBilling = errors.New("invalid billing amounts")

type Service struct {
	repo         Repository
	appointments AppointmentDirectory
	catalog      CatalogDirectory
}

func NewService(repo Repository, appointments AppointmentDirectory, cat CatalogDirectory) *Service {
	return &Service{
		repo:         repo,
		appointments: appointments,
		catalog:      cat,
	}
}

// SetBilling writes the billing row for an appointment. The patient's
// responsibility is never an input: it is recomputed from amount and coverage
// on every read, so later edits to either field stay consistent.
func (s *Service) SetBilling(ctx context.Context, appointmentID uuid.UUID, amountCents, coverageCents int64, status PaymentStatus) (*Billing, error) {
	if amountCents < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative, got %d", ErrInvalidBilling, amountCents)
	}
	if coverageCents < 0 {
		return nil, fmt.Errorf("%w: insurance coverage must not be negative, got %d", ErrInvalidBilling, coverageCents)
	}

	if _, err := s.appointments.GetAppointmentByID(ctx, appointmentID); err != nil {
		return nil, err
	}

	if status == "" {
		status = PaymentPending
	}

	b, err := s.repo.UpsertBilling(ctx, &Billing{
		AppointmentID:          appointmentID,
		AmountCents:            amountCents,
		InsuranceCoverageCents: coverageCents,
		PaymentStatus:          status,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert billing: %w", err)
	}
	return b, nil
}

func (s *Service) GetBilling(ctx context.Context, appointmentID uuid.UUID) (*Billing, error) {
	return s.repo.GetBillingByAppointment(ctx, appointmentID)
}

type MedicalRecordInput struct {
	AppointmentID uuid.UUID
	StaffID       uuid.UUID
	Diagnosis     string
	Treatment     string
	Prescription  string
	VisitDate     time.Time
}

// AddMedicalRecord attaches a visit record to an appointment, written by the
// attending staff member. Both referents must exist.
func (s *Service) AddMedicalRecord(ctx context.Context, in MedicalRecordInput) (*MedicalRecord, error) {
	if _, err := s.appointments.GetAppointmentByID(ctx, in.AppointmentID); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetStaffByID(ctx, in.StaffID); err != nil {
		return nil, err
	}

	if in.VisitDate.IsZero() {
		in.VisitDate = time.Now()
	}

	rec, err := s.repo.CreateMedicalRecord(ctx, &MedicalRecord{
		AppointmentID: in.AppointmentID,
		StaffID:       in.StaffID,
		Diagnosis:     in.Diagnosis,
		Treatment:     in.Treatment,
		Prescription:  in.Prescription,
		VisitDate:     in.VisitDate,
	})
	if err != nil {
		return nil, fmt.Errorf("create medical record: %w", err)
	}
	return rec, nil
}

func (s *Service) GetMedicalRecord(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	return s.repo.GetMedicalRecordByID(ctx, id)
}

func (s *Service) ListMedicalRecords(ctx context.Context, appointmentID uuid.UUID) ([]MedicalRecord, error) {
	return s.repo.ListMedicalRecordsByAppointment(ctx, appointmentID)
}

// OrderTest attaches a lab test order to an appointment.
func (s *Service) OrderTest(ctx context.Context, appointmentID, labTestID, orderedBy uuid.UUID) (*OrderedTest, error) {
	if _, err := s.appointments.GetAppointmentByID(ctx, appointmentID); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetLabTestByID(ctx, labTestID); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetStaffByID(ctx, orderedBy); err != nil {
		return nil, err
	}

	t, err := s.repo.CreateOrderedTest(ctx, &OrderedTest{
		AppointmentID: appointmentID,
		LabTestID:     labTestID,
		OrderedByID:   orderedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create lab order: %w", err)
	}
	return t, nil
}

func (s *Service) UpdateTestStatus(ctx context.Context, id uuid.UUID, status TestStatus, resultNotes string) (*OrderedTest, error) {
	return s.repo.UpdateOrderedTestStatus(ctx, id, status, resultNotes)
}

func (s *Service) ListOrderedTests(ctx context.Context, appointmentID uuid.UUID) ([]OrderedTest, error) {
	return s.repo.ListOrderedTestsByAppointment(ctx, appointmentID)
}

type PrescriptionInput struct {
	MedicalRecordID uuid.UUID
	MedicationID    uuid.UUID
	PrescribedByID  uuid.UUID
	Dosage          string
	Frequency       string
	DurationDays    int
}

// Prescribe attaches a medication to a medical record.
func (s *Service) Prescribe(ctx context.Context, in PrescriptionInput) (*Prescription, error) {
	if _, err := s.repo.GetMedicalRecordByID(ctx, in.MedicalRecordID); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetMedicationByID(ctx, in.MedicationID); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetStaffByID(ctx, in.PrescribedByID); err != nil {
		return nil, err
	}

	p, err := s.repo.CreatePrescription(ctx, &Prescription{
		MedicalRecordID: in.MedicalRecordID,
		MedicationID:    in.MedicationID,
		PrescribedByID:  in.PrescribedByID,
		Dosage:          in.Dosage,
		Frequency:       in.Frequency,
		DurationDays:    in.DurationDays,
	})
	if err != nil {
		return nil, fmt.Errorf("create prescription: %w", err)
	}
	return p, nil
}

func (s *Service) ListPrescriptions(ctx context.Context, medicalRecordID uuid.UUID) ([]Prescription, error) {
	return s.repo.ListPrescriptionsByMedicalRecord(ctx, medicalRecordID)
}
