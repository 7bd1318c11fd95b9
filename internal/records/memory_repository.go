package records

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is the in-process counterpart of the pg store, used by
// tests. Referential checks against appointments and the catalog happen in
// the Service, so this layer only stores.
type MemoryRepository struct {
	mu             sync.Mutex
	billingByAppt  map[uuid.UUID]Billing
	medicalRecords map[uuid.UUID]MedicalRecord
	orderedTests   map[uuid.UUID]OrderedTest
	prescriptions  map[uuid.UUID]Prescription
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		billingByAppt:  make(map[uuid.UUID]Billing),
		medicalRecords: make(map[uuid.UUID]MedicalRecord),
		orderedTests:   make(map[uuid.UUID]OrderedTest),
		prescriptions:  make(map[uuid.UUID]Prescription),
	}
}

func (r *MemoryRepository) UpsertBilling(ctx context.Context, b *Billing) (*Billing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	stored := *b
	if existing, ok := r.billingByAppt[b.AppointmentID]; ok {
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.ID = uuid.New()
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.billingByAppt[b.AppointmentID] = stored

	return &stored, nil
}

func (r *MemoryRepository) GetBillingByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Billing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.billingByAppt[appointmentID]
	if !ok {
		return nil, ErrBillingNotFound
	}
	return &b, nil
}

func (r *MemoryRepository) CreateMedicalRecord(ctx context.Context, m *MedicalRecord) (*MedicalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	stored := *m
	stored.ID = uuid.New()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.medicalRecords[stored.ID] = stored

	return &stored, nil
}

func (r *MemoryRepository) GetMedicalRecordByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.medicalRecords[id]
	if !ok {
		return nil, ErrMedicalRecordNotFound
	}
	return &m, nil
}

func (r *MemoryRepository) ListMedicalRecordsByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]MedicalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []MedicalRecord
	for _, m := range r.medicalRecords {
		if m.AppointmentID == appointmentID {
			result = append(result, m)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (r *MemoryRepository) CreateOrderedTest(ctx context.Context, t *OrderedTest) (*OrderedTest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	stored := *t
	stored.ID = uuid.New()
	stored.Status = TestOrdered
	stored.OrderedAt = now
	stored.UpdatedAt = now
	r.orderedTests[stored.ID] = stored

	return &stored, nil
}

func (r *MemoryRepository) UpdateOrderedTestStatus(ctx context.Context, id uuid.UUID, status TestStatus, resultNotes string) (*OrderedTest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.orderedTests[id]
	if !ok {
		return nil, ErrOrderedTestNotFound
	}

	t.Status = status
	t.ResultNotes = resultNotes
	t.UpdatedAt = time.Now()
	r.orderedTests[id] = t

	return &t, nil
}

func (r *MemoryRepository) ListOrderedTestsByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]OrderedTest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []OrderedTest
	for _, t := range r.orderedTests {
		if t.AppointmentID == appointmentID {
			result = append(result, t)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].OrderedAt.Before(result[j].OrderedAt)
	})

	return result, nil
}

func (r *MemoryRepository) CreatePrescription(ctx context.Context, p *Prescription) (*Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	stored := *p
	stored.ID = uuid.New()
	stored.Status = PrescriptionActive
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.prescriptions[stored.ID] = stored

	return &stored, nil
}

func (r *MemoryRepository) ListPrescriptionsByMedicalRecord(ctx context.Context, medicalRecordID uuid.UUID) ([]Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Prescription
	for _, p := range r.prescriptions {
		if p.MedicalRecordID == medicalRecordID {
			result = append(result, p)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}
