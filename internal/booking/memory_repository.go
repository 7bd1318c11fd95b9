package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/booking/internal/catalog"
)

// MemoryRepository keeps the slot ledger and appointments in process memory.
// A single mutex gives every write path the same all-or-nothing semantics as
// the pg transactions. Used by tests and the contention simulator.
type MemoryRepository struct {
	mu           sync.Mutex
	catalog      catalog.Repository
	slots        map[uuid.UUID]Slot
	slotKeys     map[slotKey]uuid.UUID
	appointments map[uuid.UUID]Appointment
	events       []EventLog
	nextEventID  int64
}

type slotKey struct {
	staffID    uuid.UUID
	locationID uuid.UUID
	start      int64
}

func NewMemoryRepository(cat catalog.Repository) *MemoryRepository {
	return &MemoryRepository{
		catalog:      cat,
		slots:        make(map[uuid.UUID]Slot),
		slotKeys:     make(map[slotKey]uuid.UUID),
		appointments: make(map[uuid.UUID]Appointment),
	}
}

func (r *MemoryRepository) CreateSlot(ctx context.Context, s *Slot) (*Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := slotKey{staffID: s.StaffID, locationID: s.LocationID, start: s.StartTime.UnixNano()}
	if _, exists := r.slotKeys[key]; exists {
		return nil, ErrDuplicateSlot
	}

	if r.catalog != nil {
		if _, err := r.catalog.GetStaffByID(ctx, s.StaffID); err != nil {
			return nil, err
		}
		if _, err := r.catalog.GetLocationByID(ctx, s.LocationID); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	stored := *s
	stored.ID = uuid.New()
	stored.Date = s.StartTime.UTC().Truncate(24 * time.Hour)
	stored.Available = true
	stored.CreatedAt = now
	stored.UpdatedAt = now

	r.slots[stored.ID] = stored
	r.slotKeys[key] = stored.ID

	return &stored, nil
}

func (r *MemoryRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return &s, nil
}

func (r *MemoryRepository) IsSlotAvailable(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[id]
	if !ok {
		return false, ErrSlotNotFound
	}
	return s.Available, nil
}

func (r *MemoryRepository) BookSlot(ctx context.Context, p BookParams) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.slots[p.SlotID]
	if !ok {
		return nil, ErrSlotNotFound
	}
	if !slot.Available {
		return nil, ErrSlotUnavailable
	}

	if r.catalog != nil {
		if _, err := r.catalog.GetPatientByID(ctx, p.PatientID); err != nil {
			return nil, err
		}
	}

	// Overlap scan against the patient's active appointments.
	for _, a := range r.appointments {
		if a.PatientID != p.PatientID || !a.Status.Active() {
			continue
		}
		existing, ok := r.slots[a.SlotID]
		if !ok {
			continue
		}
		if existing.Date.Equal(slot.Date) && existing.Overlaps(slot.StartTime, slot.EndTime) {
			return nil, ErrOverlapConflict
		}
	}

	now := time.Now()
	slot.Available = false
	slot.UpdatedAt = now
	r.slots[slot.ID] = slot

	appt := Appointment{
		ID:        uuid.New(),
		PatientID: p.PatientID,
		SlotID:    p.SlotID,
		Status:    StatusScheduled,
		Type:      p.Type,
		Reason:    p.Reason,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.appointments[appt.ID] = appt

	return &appt, nil
}

func (r *MemoryRepository) CancelAppointment(ctx context.Context, id uuid.UUID) (*Appointment, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appointments[id]
	if !ok {
		return nil, false, ErrAppointmentNotFound
	}

	if appt.Status == StatusCancelled {
		return &appt, false, nil
	}

	now := time.Now()
	appt.Status = StatusCancelled
	appt.UpdatedAt = now
	r.appointments[id] = appt

	if slot, ok := r.slots[appt.SlotID]; ok {
		slot.Available = true
		slot.UpdatedAt = now
		r.slots[slot.ID] = slot
	}

	return &appt, true, nil
}

func (r *MemoryRepository) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appointments[id]
	if !ok {
		return ErrAppointmentNotFound
	}

	delete(r.appointments, id)

	if slot, ok := r.slots[appt.SlotID]; ok {
		slot.Available = true
		slot.UpdatedAt = time.Now()
		r.slots[slot.ID] = slot
	}

	return nil
}

func (r *MemoryRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &appt, nil
}

func (r *MemoryRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appointments[id]
	if !ok || appt.Status != from {
		return nil, ErrAppointmentNotFound
	}

	appt.Status = to
	appt.UpdatedAt = time.Now()
	r.appointments[id] = appt

	return &appt, nil
}

func (r *MemoryRepository) MarkNoShows(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var marked int64
	for id, appt := range r.appointments {
		if appt.Status != StatusScheduled && appt.Status != StatusConfirmed {
			continue
		}
		slot, ok := r.slots[appt.SlotID]
		if !ok || !slot.EndTime.Before(now) {
			continue
		}
		appt.Status = StatusNoShow
		appt.UpdatedAt = time.Now()
		r.appointments[id] = appt
		marked++
	}

	return marked, nil
}

func (r *MemoryRepository) AvailableSlots(ctx context.Context, f SlotFilter, now time.Time) ([]AvailableSlot, error) {
	r.mu.Lock()
	slots := make([]Slot, 0, len(r.slots))
	for _, s := range r.slots {
		slots = append(slots, s)
	}
	r.mu.Unlock()

	var result []AvailableSlot
	for _, s := range slots {
		if !s.Available || !s.StartTime.After(now) {
			continue
		}
		if f.StaffID != nil && s.StaffID != *f.StaffID {
			continue
		}
		if f.LocationID != nil && s.LocationID != *f.LocationID {
			continue
		}
		if f.Date != nil && !s.Date.Equal(f.Date.UTC().Truncate(24*time.Hour)) {
			continue
		}

		entry := AvailableSlot{Slot: s}
		if r.catalog != nil {
			staff, err := r.catalog.GetStaffByID(ctx, s.StaffID)
			if err != nil {
				return nil, err
			}
			if f.SpecialtyID != nil && (staff.SpecialtyID == nil || *staff.SpecialtyID != *f.SpecialtyID) {
				continue
			}
			entry.StaffName = staff.Name
			if staff.SpecialtyID != nil {
				if sp, err := r.catalog.GetSpecialtyByID(ctx, *staff.SpecialtyID); err == nil {
					entry.SpecialtyName = &sp.Name
				}
			}
			if loc, err := r.catalog.GetLocationByID(ctx, s.LocationID); err == nil {
				entry.LocationName = loc.Name
			}
		}
		result = append(result, entry)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.Before(result[j].StartTime)
	})

	return result, nil
}

func (r *MemoryRepository) UpcomingAppointments(ctx context.Context, now time.Time, limit int) ([]AppointmentDetail, error) {
	details, err := r.collectDetails(ctx, func(a Appointment, s Slot) bool {
		return a.Status.Active() && s.StartTime.After(now)
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(details, func(i, j int) bool {
		return details[i].Slot.StartTime.Before(details[j].Slot.StartTime)
	})

	if limit > 0 && len(details) > limit {
		details = details[:limit]
	}
	return details, nil
}

func (r *MemoryRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	details, err := r.collectDetails(ctx, func(a Appointment, s Slot) bool {
		return a.PatientID == patientID
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(details, func(i, j int) bool {
		return details[i].Slot.StartTime.After(details[j].Slot.StartTime)
	})

	if offset >= len(details) {
		return nil, nil
	}
	details = details[offset:]
	if limit > 0 && len(details) > limit {
		details = details[:limit]
	}
	return details, nil
}

func (r *MemoryRepository) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	r.mu.Lock()
	appt, ok := r.appointments[id]
	var slot Slot
	if ok {
		slot = r.slots[appt.SlotID]
	}
	r.mu.Unlock()

	if !ok {
		return nil, ErrAppointmentNotFound
	}

	detail := AppointmentDetail{Appointment: appt, Slot: slot}
	if err := r.resolveNames(ctx, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (r *MemoryRepository) collectDetails(ctx context.Context, keep func(Appointment, Slot) bool) ([]AppointmentDetail, error) {
	r.mu.Lock()
	var pairs []AppointmentDetail
	for _, a := range r.appointments {
		slot, ok := r.slots[a.SlotID]
		if !ok || !keep(a, slot) {
			continue
		}
		pairs = append(pairs, AppointmentDetail{Appointment: a, Slot: slot})
	}
	r.mu.Unlock()

	for i := range pairs {
		if err := r.resolveNames(ctx, &pairs[i]); err != nil {
			return nil, err
		}
	}
	return pairs, nil
}

func (r *MemoryRepository) resolveNames(ctx context.Context, d *AppointmentDetail) error {
	if r.catalog == nil {
		return nil
	}

	if p, err := r.catalog.GetPatientByID(ctx, d.PatientID); err == nil {
		d.PatientName = p.Name
	}
	staff, err := r.catalog.GetStaffByID(ctx, d.Slot.StaffID)
	if err == nil {
		d.StaffName = staff.Name
		if staff.SpecialtyID != nil {
			if sp, err := r.catalog.GetSpecialtyByID(ctx, *staff.SpecialtyID); err == nil {
				d.SpecialtyName = &sp.Name
			}
		}
	}
	if loc, err := r.catalog.GetLocationByID(ctx, d.Slot.LocationID); err == nil {
		d.LocationName = loc.Name
	}
	return nil
}

func (r *MemoryRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextEventID++
	ev.ID = r.nextEventID
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	r.events = append(r.events, ev)

	return nil
}

// Events returns a copy of the recorded event log, oldest first.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]EventLog, len(r.events))
	copy(out, r.events)
	return out
}
