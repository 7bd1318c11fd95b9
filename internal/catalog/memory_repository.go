package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-process catalog store. It backs tests and the
// booking simulator; the pg repository is the production implementation.
type MemoryRepository struct {
	mu             sync.RWMutex
	patients       map[uuid.UUID]Patient
	staff          map[uuid.UUID]Staff
	locations      map[uuid.UUID]Location
	specialties    map[uuid.UUID]Specialty
	staffLocations map[uuid.UUID]map[uuid.UUID]bool
	labTests       map[uuid.UUID]LabTest
	medications    map[uuid.UUID]Medication
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		patients:       make(map[uuid.UUID]Patient),
		staff:          make(map[uuid.UUID]Staff),
		locations:      make(map[uuid.UUID]Location),
		specialties:    make(map[uuid.UUID]Specialty),
		staffLocations: make(map[uuid.UUID]map[uuid.UUID]bool),
		labTests:       make(map[uuid.UUID]LabTest),
		medications:    make(map[uuid.UUID]Medication),
	}
}

func (r *MemoryRepository) CreatePatient(ctx context.Context, p *Patient) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	stored := *p
	stored.ID = uuid.New()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.patients[stored.ID] = stored

	return &stored, nil
}

func (r *MemoryRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) UpdatePatient(ctx context.Context, id uuid.UUID, upd PatientUpdate) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}

	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Email != nil {
		p.Email = upd.Email
	}
	if upd.Phone != nil {
		p.Phone = upd.Phone
	}
	if upd.DateOfBirth != nil {
		p.DateOfBirth = upd.DateOfBirth
	}
	if upd.MedicalHistory != nil {
		p.MedicalHistory = *upd.MedicalHistory
	}
	p.UpdatedAt = time.Now()
	r.patients[id] = p

	return &p, nil
}

func (r *MemoryRepository) CreateStaff(ctx context.Context, s *Staff) (*Staff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.SpecialtyID != nil {
		if _, ok := r.specialties[*s.SpecialtyID]; !ok {
			return nil, ErrSpecialtyNotFound
		}
	}

	now := time.Now()
	stored := *s
	stored.ID = uuid.New()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.staff[stored.ID] = stored

	return &stored, nil
}

func (r *MemoryRepository) GetStaffByID(ctx context.Context, id uuid.UUID) (*Staff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.staff[id]
	if !ok {
		return nil, ErrStaffNotFound
	}
	return &s, nil
}

func (r *MemoryRepository) CreateLocation(ctx context.Context, l *Location) (*Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	stored := *l
	stored.ID = uuid.New()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.locations[stored.ID] = stored

	return &stored, nil
}

func (r *MemoryRepository) GetLocationByID(ctx context.Context, id uuid.UUID) (*Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.locations[id]
	if !ok {
		return nil, ErrLocationNotFound
	}
	return &l, nil
}

func (r *MemoryRepository) CreateSpecialty(ctx context.Context, sp *Specialty) (*Specialty, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	stored := *sp
	stored.ID = uuid.New()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.specialties[stored.ID] = stored

	return &stored, nil
}

func (r *MemoryRepository) GetSpecialtyByID(ctx context.Context, id uuid.UUID) (*Specialty, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sp, ok := r.specialties[id]
	if !ok {
		return nil, ErrSpecialtyNotFound
	}
	return &sp, nil
}

func (r *MemoryRepository) AssignStaffLocation(ctx context.Context, staffID, locationID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.staff[staffID]; !ok {
		return ErrStaffNotFound
	}
	if _, ok := r.locations[locationID]; !ok {
		return ErrLocationNotFound
	}

	if r.staffLocations[staffID] == nil {
		r.staffLocations[staffID] = make(map[uuid.UUID]bool)
	}
	r.staffLocations[staffID][locationID] = true

	return nil
}

func (r *MemoryRepository) ListLocationsForStaff(ctx context.Context, staffID uuid.UUID) ([]Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Location
	for locID := range r.staffLocations[staffID] {
		if l, ok := r.locations[locID]; ok {
			result = append(result, l)
		}
	}
	return result, nil
}

func (r *MemoryRepository) CreateLabTest(ctx context.Context, t *LabTest) (*LabTest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	stored := *t
	stored.ID = uuid.New()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.labTests[stored.ID] = stored

	return &stored, nil
}

func (r *MemoryRepository) GetLabTestByID(ctx context.Context, id uuid.UUID) (*LabTest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.labTests[id]
	if !ok {
		return nil, ErrLabTestNotFound
	}
	return &t, nil
}

func (r *MemoryRepository) CreateMedication(ctx context.Context, m *Medication) (*Medication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	stored := *m
	stored.ID = uuid.New()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.medications[stored.ID] = stored

	return &stored, nil
}

func (r *MemoryRepository) GetMedicationByID(ctx context.Context, id uuid.UUID) (*Medication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.medications[id]
	if !ok {
		return nil, ErrMedicationNotFound
	}
	return &m, nil
}
