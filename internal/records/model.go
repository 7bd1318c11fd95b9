package records

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentPending       PaymentStatus = "pending"
	PaymentPaid          PaymentStatus = "paid"
	PaymentPartiallyPaid PaymentStatus = "partially_paid"
	PaymentWaived        PaymentStatus = "waived"
)

type TestStatus string

const (
	TestOrdered   TestStatus = "ordered"
	TestCollected TestStatus = "collected"
	TestCompleted TestStatus = "completed"
)

type PrescriptionStatus string

const (
	PrescriptionActive    PrescriptionStatus = "active"
	PrescriptionCompleted PrescriptionStatus = "completed"
	PrescriptionCancelled PrescriptionStatus = "cancelled"
)

// Billing is the financial row attached to an appointment. Amount and
// insurance coverage are inputs; the patient's responsibility is always
// derived from them, never stored independently.
type Billing struct {
	ID                     uuid.UUID
	AppointmentID          uuid.UUID
	AmountCents            int64
	InsuranceCoverageCents int64
	PaymentStatus          PaymentStatus
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// PatientResponsibilityCents recomputes on every read so edits to amount or
// coverage can never leave a stale value behind.
func (b *Billing) PatientResponsibilityCents() int64 {
	return b.AmountCents - b.InsuranceCoverageCents
}

type MedicalRecord struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	StaffID       uuid.UUID
	Diagnosis     string
	Treatment     string
	Prescription  string
	VisitDate     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type OrderedTest struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	LabTestID     uuid.UUID
	OrderedByID   uuid.UUID
	Status        TestStatus
	ResultNotes   string
	OrderedAt     time.Time
	UpdatedAt     time.Time
}

type Prescription struct {
	ID              uuid.UUID
	MedicalRecordID uuid.UUID
	MedicationID    uuid.UUID
	PrescribedByID  uuid.UUID
	Dosage          string
	Frequency       string
	DurationDays    int
	Status          PrescriptionStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
