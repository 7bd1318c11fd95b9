package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound    = errors.New("patient not found")
	ErrStaffNotFound      = errors.New("staff member not found")
	ErrLocationNotFound   = errors.New("location not found")
	ErrSpecialtyNotFound  = errors.New("specialty not found")
	ErrLabTestNotFound    = errors.New("lab test not found")
	ErrMedicationNotFound = errors.New("medication not found")
)

// Repository holds the clinic's reference data: people, places, and the
// lab test / medication catalogs. Lookup and storage only.
type Repository interface {
	CreatePatient(ctx context.Context, p *Patient) (*Patient, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	UpdatePatient(ctx context.Context, id uuid.UUID, upd PatientUpdate) (*Patient, error)

	CreateStaff(ctx context.Context, s *Staff) (*Staff, error)
	GetStaffByID(ctx context.Context, id uuid.UUID) (*Staff, error)

	CreateLocation(ctx context.Context, l *Location) (*Location, error)
	GetLocationByID(ctx context.Context, id uuid.UUID) (*Location, error)

	CreateSpecialty(ctx context.Context, sp *Specialty) (*Specialty, error)
	GetSpecialtyByID(ctx context.Context, id uuid.UUID) (*Specialty, error)

	AssignStaffLocation(ctx context.Context, staffID, locationID uuid.UUID) error
	ListLocationsForStaff(ctx context.Context, staffID uuid.UUID) ([]Location, error)

	CreateLabTest(ctx context.Context, t *LabTest) (*LabTest, error)
	GetLabTestByID(ctx context.Context, id uuid.UUID) (*LabTest, error)

	CreateMedication(ctx context.Context, m *Medication) (*Medication, error)
	GetMedicationByID(ctx context.Context, id uuid.UUID) (*Medication, error)
}
