package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSlotNotFound        = errors.New("slot not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrDuplicateSlot       = errors.New("a slot already exists for this staff, location and start time")

	// ErrSlotUnavailable is the generic booking rejection: the slot is held,
	// or a concurrent booker won the race for it a moment earlier.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrOverlapConflict aborts a booking whose patient already holds an
	// active appointment intersecting the requested time range.
	ErrOverlapConflict = errors.New("patient has an overlapping active appointment")
)

// BookParams is the input to the atomic book commit.
type BookParams struct {
	PatientID uuid.UUID
	SlotID    uuid.UUID
	Type      string
	Reason    string
}

// Repository contains all persistence the booking engine needs. The slot
// ledger (availability reads and guarded flips) lives inside BookSlot,
// CancelAppointment and DeleteAppointment so the flips always execute in
// the same atomic unit as the appointment write.
type Repository interface {
	CreateSlot(ctx context.Context, s *Slot) (*Slot, error)
	GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	IsSlotAvailable(ctx context.Context, id uuid.UUID) (bool, error)

	// BookSlot atomically re-checks availability, re-runs the patient overlap
	// scan, flips the slot to held and inserts the scheduled appointment.
	// All-or-nothing: on ErrSlotUnavailable or ErrOverlapConflict no state
	// changes at all.
	BookSlot(ctx context.Context, p BookParams) (*Appointment, error)

	// CancelAppointment sets the status to cancelled and releases the slot in
	// one atomic unit. Cancelling an already-cancelled appointment is a no-op;
	// changed reports whether anything was written.
	CancelAppointment(ctx context.Context, id uuid.UUID) (appt *Appointment, changed bool, err error)

	// DeleteAppointment hard-deletes the row and releases its slot.
	DeleteAppointment(ctx context.Context, id uuid.UUID) error

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)

	// MarkNoShows rolls every scheduled/confirmed appointment whose slot end
	// time is strictly before now to no_show. Idempotent; slots stay held.
	MarkNoShows(ctx context.Context, now time.Time) (int64, error)

	// Read views, recomputed per query.
	AvailableSlots(ctx context.Context, f SlotFilter, now time.Time) ([]AvailableSlot, error)
	UpcomingAppointments(ctx context.Context, now time.Time, limit int) ([]AppointmentDetail, error)
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error)
	GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
