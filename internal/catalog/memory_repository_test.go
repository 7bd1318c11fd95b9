package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestPatientCRUD(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	email := "ada@example.com"
	created, err := repo.CreatePatient(ctx, &Patient{Name: "Ada Obi", Email: &email})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	got, err := repo.GetPatientByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Ada Obi", got.Name)

	_, err = repo.GetPatientByID(ctx, uuid.New())
	require.ErrorIs(t, err, ErrPatientNotFound)
}

func TestUpdatePatientLeavesUnsetFields(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	email := "ada@example.com"
	created, err := repo.CreatePatient(ctx, &Patient{Name: "Ada Obi", Email: &email, MedicalHistory: "none"})
	require.NoError(t, err)

	phone := "+15550001111"
	updated, err := repo.UpdatePatient(ctx, created.ID, PatientUpdate{Phone: &phone})
	require.NoError(t, err)

	// Only phone changes; the rest stays.
	require.Equal(t, "Ada Obi", updated.Name)
	require.NotNil(t, updated.Email)
	require.Equal(t, email, *updated.Email)
	require.Equal(t, "none", updated.MedicalHistory)
	require.NotNil(t, updated.Phone)
	require.Equal(t, phone, *updated.Phone)

	_, err = repo.UpdatePatient(ctx, uuid.New(), PatientUpdate{Phone: &phone})
	require.ErrorIs(t, err, ErrPatientNotFound)
}

func TestStaffRequiresKnownSpecialty(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	unknown := uuid.New()
	_, err := repo.CreateStaff(ctx, &Staff{Name: "Dr. Reyes", SpecialtyID: &unknown})
	require.ErrorIs(t, err, ErrSpecialtyNotFound)

	sp, err := repo.CreateSpecialty(ctx, &Specialty{Name: "Dermatology"})
	require.NoError(t, err)

	staff, err := repo.CreateStaff(ctx, &Staff{Name: "Dr. Reyes", SpecialtyID: &sp.ID, Active: true})
	require.NoError(t, err)
	require.Equal(t, sp.ID, *staff.SpecialtyID)
}

func TestStaffLocationAssignment(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	staff, err := repo.CreateStaff(ctx, &Staff{Name: "Dr. Reyes", Active: true})
	require.NoError(t, err)
	loc, err := repo.CreateLocation(ctx, &Location{Name: "Downtown Clinic", Active: true})
	require.NoError(t, err)

	require.NoError(t, repo.AssignStaffLocation(ctx, staff.ID, loc.ID))
	// Re-assignment is a no-op, not an error.
	require.NoError(t, repo.AssignStaffLocation(ctx, staff.ID, loc.ID))

	locs, err := repo.ListLocationsForStaff(ctx, staff.ID)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	require.Equal(t, loc.ID, locs[0].ID)

	require.ErrorIs(t, repo.AssignStaffLocation(ctx, uuid.New(), loc.ID), ErrStaffNotFound)
	require.ErrorIs(t, repo.AssignStaffLocation(ctx, staff.ID, uuid.New()), ErrLocationNotFound)
}
