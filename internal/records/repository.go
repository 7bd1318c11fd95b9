package records

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrBillingNotFound       = errors.New("billing not found")
	ErrMedicalRecordNotFound = errors.New("medical record not found")
	ErrOrderedTestNotFound   = errors.New("ordered test not found")
)

// Repository persists the post-visit artifacts: billing, medical records,
// lab orders and prescriptions.
type Repository interface {
	// UpsertBilling writes the 0..1 billing row for an appointment,
	// inserting or replacing amount, coverage and payment status.
	UpsertBilling(ctx context.Context, b *Billing) (*Billing, error)
	GetBillingByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Billing, error)

	CreateMedicalRecord(ctx context.Context, m *MedicalRecord) (*MedicalRecord, error)
	GetMedicalRecordByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error)
	ListMedicalRecordsByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]MedicalRecord, error)

	CreateOrderedTest(ctx context.Context, t *OrderedTest) (*OrderedTest, error)
	UpdateOrderedTestStatus(ctx context.Context, id uuid.UUID, status TestStatus, resultNotes string) (*OrderedTest, error)
	ListOrderedTestsByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]OrderedTest, error)

	CreatePrescription(ctx context.Context, p *Prescription) (*Prescription, error)
	ListPrescriptionsByMedicalRecord(ctx context.Context, medicalRecordID uuid.UUID) ([]Prescription, error)
}
