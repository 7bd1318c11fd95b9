package booking

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "scheduled"
	StatusConfirmed  AppointmentStatus = "confirmed"
	StatusCheckedIn  AppointmentStatus = "checked_in"
	StatusInProgress AppointmentStatus = "in_progress"
	StatusCompleted  AppointmentStatus = "completed"
	StatusCancelled  AppointmentStatus = "cancelled"
	StatusNoShow     AppointmentStatus = "no_show"
)

// Active reports whether the appointment still claims its slot for the
// purposes of double-booking and overlap checks.
func (s AppointmentStatus) Active() bool {
	return s != StatusCancelled && s != StatusNoShow
}

// Terminal reports whether the lifecycle sweeper must leave the status alone.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// Slot is the atomic bookable unit: one staff member, one location, one
// contiguous time range on one date. Start/End carry the full timestamp;
// Date is the midnight-UTC day used for the uniqueness constraint.
type Slot struct {
	ID         uuid.UUID
	StaffID    uuid.UUID
	LocationID uuid.UUID
	Date       time.Time
	StartTime  time.Time
	EndTime    time.Time
	Available  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Overlaps implements the half-open interval test: [s1,e1) and [s2,e2)
// overlap iff s1 < e2 and s2 < e1.
func (s *Slot) Overlaps(start, end time.Time) bool {
	return s.StartTime.Before(end) && start.Before(s.EndTime)
}

type Appointment struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	SlotID    uuid.UUID
	Status    AppointmentStatus
	Type      string
	Reason    string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

// AppointmentDetail is the joined read view used by listings.
type AppointmentDetail struct {
	Appointment
	Slot          Slot
	PatientName   string
	StaffName     string
	LocationName  string
	SpecialtyName *string
}

// AvailableSlot is the joined read view for the open-slot listing.
type AvailableSlot struct {
	Slot
	StaffName     string
	SpecialtyName *string
	LocationName  string
}

// SlotFilter narrows the available-slot listing. Nil fields match anything.
type SlotFilter struct {
	StaffID     *uuid.UUID
	LocationID  *uuid.UUID
	SpecialtyID *uuid.UUID
	Date        *time.Time
}
