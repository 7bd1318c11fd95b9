package catalog

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID             uuid.UUID
	Name           string
	Email          *string
	Phone          *string
	DateOfBirth    *time.Time
	MedicalHistory string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Specialty struct {
	ID          uuid.UUID
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Staff struct {
	ID          uuid.UUID
	Name        string
	SpecialtyID *uuid.UUID
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Location struct {
	ID        uuid.UUID
	Name      string
	Address   string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type LabTest struct {
	ID          uuid.UUID
	Name        string
	Description string
	CostCents   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Medication struct {
	ID          uuid.UUID
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PatientUpdate carries the mutable demographic fields. Identity (id) and
// creation time never change; nil fields are left as-is.
type PatientUpdate struct {
	Name           *string
	Email          *string
	Phone          *string
	DateOfBirth    *time.Time
	MedicalHistory *string
}
