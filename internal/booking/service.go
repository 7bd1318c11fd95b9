package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/booking/internal/catalog"
	"github.com/clinicore/booking/internal/metrics"
	redisclient "github.com/clinicore/booking/internal/redis"
)

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentDeleted   = "APPOINTMENT_DELETED"
	EventStatusChanged        = "APPOINTMENT_STATUS_CHANGED"
	EventNoShowSweep          = "NO_SHOW_SWEEP"
)

var (
	// ErrSlotBeingBooked means another caller holds the booking lock for the
	// slot or patient right now; retry shortly.
	ErrSlotBeingBooked = errors.New("slot is currently being booked, please retry")

	ErrInvalidTransition = errors.New("invalid appointment status transition")
)

// PatientDirectory is the slice of the catalog the engine needs for
// referential checks.
type PatientDirectory interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*catalog.Patient, error)
}

type BookRequest struct {
	PatientID uuid.UUID
	SlotID    uuid.UUID
	Type      string
	Reason    string
}

type Service struct {
	repo     Repository
	patients PatientDirectory
	locker   redisclient.Locker
	metrics  *metrics.BookingMetrics
}

func NewService(repo Repository, patients PatientDirectory, locker redisclient.Locker, m *metrics.BookingMetrics) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		locker:   locker,
		metrics:  m,
	}
}

func slotLockKey(id uuid.UUID) string {
	return fmt.Sprintf("lock:slot:%s", id)
}

func patientLockKey(id uuid.UUID) string {
	return fmt.Sprintf("lock:patient:%s", id)
}

// Book reserves a slot for a patient. The availability read outside the lock
// is a fast-fail pre-check; the repository re-validates both availability and
// the patient overlap inside its atomic commit, so losers of a race get
// ErrSlotUnavailable exactly as if the slot had been taken a moment earlier.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	if _, err := s.patients.GetPatientByID(ctx, req.PatientID); err != nil {
		if errors.Is(err, catalog.ErrPatientNotFound) {
			s.metrics.ObserveBooking("patient_not_found")
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	slot, err := s.repo.GetSlotByID(ctx, req.SlotID)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			s.metrics.ObserveBooking("slot_not_found")
		}
		return nil, err
	}
	if !slot.Available {
		s.metrics.ObserveBooking("slot_unavailable")
		return nil, ErrSlotUnavailable
	}

	var created *Appointment

	// Lock order is always slot before patient so concurrent bookings can
	// never deadlock against each other.
	err = s.locker.WithLock(ctx, slotLockKey(req.SlotID), func(lockCtx context.Context) error {
		return s.locker.WithLock(lockCtx, patientLockKey(req.PatientID), func(lockCtx context.Context) error {
			appt, err := s.repo.BookSlot(lockCtx, BookParams{
				PatientID: req.PatientID,
				SlotID:    req.SlotID,
				Type:      req.Type,
				Reason:    req.Reason,
			})
			if err != nil {
				return err
			}

			created = appt

			s.logEvent(lockCtx, appt.ID, EventAppointmentBooked, map[string]any{
				"slot_id":    req.SlotID.String(),
				"patient_id": req.PatientID.String(),
				"type":       req.Type,
			})

			return nil
		})
	})

	if err != nil {
		switch {
		case errors.Is(err, redisclient.ErrLockNotAcquired):
			s.metrics.ObserveBooking("contention")
			return nil, ErrSlotBeingBooked
		case errors.Is(err, ErrSlotUnavailable):
			s.metrics.ObserveBooking("slot_unavailable")
			return nil, err
		case errors.Is(err, ErrOverlapConflict):
			s.metrics.ObserveBooking("overlap_conflict")
			return nil, err
		}
		s.metrics.ObserveBooking("error")
		return nil, err
	}

	s.metrics.ObserveBooking("booked")
	return created, nil
}

// Cancel sets the appointment to cancelled and releases its slot. Cancelling
// an already-cancelled appointment succeeds without further effect; an
// unknown id is ErrAppointmentNotFound.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, changed, err := s.repo.CancelAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	if changed {
		s.metrics.ObserveCancellation()
		s.logEvent(ctx, appt.ID, EventAppointmentCancelled, map[string]any{
			"slot_id": appt.SlotID.String(),
		})
	}

	return appt, nil
}

// Delete hard-removes the appointment and releases its slot. Callers that
// need an audit trail should use Cancel instead.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteAppointment(ctx, id); err != nil {
		return err
	}

	s.metrics.ObserveDeletion()
	s.logEvent(ctx, id, EventAppointmentDeleted, map[string]any{
		"slot_id": appt.SlotID.String(),
	})

	return nil
}

// allowedTransitions are the caller-driven lifecycle moves. Cancellation and
// no-show are handled by Cancel and the sweeper, not here.
var allowedTransitions = map[AppointmentStatus]AppointmentStatus{
	StatusScheduled:  StatusConfirmed,
	StatusConfirmed:  StatusCheckedIn,
	StatusCheckedIn:  StatusInProgress,
	StatusInProgress: StatusCompleted,
}

// UpdateStatus performs a guarded from→to transition. The conditional update
// means a concurrent transition simply loses: last committed wins per row.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to AppointmentStatus) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if allowedTransitions[appt.Status] != to {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, appt.Status, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Row existed a moment ago: the status moved underneath us.
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventStatusChanged, map[string]any{
		"from": string(appt.Status),
		"to":   string(to),
	})

	return updated, nil
}

// MarkNoShows is the sweeper body: every scheduled/confirmed appointment
// whose slot ended before now becomes a no-show. Re-entrant; a second run
// finds nothing to do. Slots stay held: a missed appointment consumed its
// slot.
func (s *Service) MarkNoShows(ctx context.Context, now time.Time) (int64, error) {
	marked, err := s.repo.MarkNoShows(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("mark no-shows: %w", err)
	}

	s.metrics.ObserveSweep(marked)

	if marked > 0 {
		s.logEvent(ctx, uuid.Nil, EventNoShowSweep, map[string]any{
			"marked": marked,
			"as_of":  now,
		})
	}

	return marked, nil
}

// GetAppointment retrieves a fully hydrated appointment by ID.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	detail, err := s.repo.GetAppointmentDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// AvailableSlots lists open, future-dated slots joined with staff, specialty
// and location.
func (s *Service) AvailableSlots(ctx context.Context, f SlotFilter) ([]AvailableSlot, error) {
	slots, err := s.repo.AvailableSlots(ctx, f, time.Now())
	if err != nil {
		return nil, fmt.Errorf("list available slots: %w", err)
	}
	return slots, nil
}

// UpcomingAppointments lists active, future-dated appointments ordered by
// date then start time.
func (s *Service) UpcomingAppointments(ctx context.Context, limit int) ([]AppointmentDetail, error) {
	if limit <= 0 {
		limit = 50 // default
	}
	if limit > 200 {
		limit = 200 // max
	}

	appts, err := s.repo.UpcomingAppointments(ctx, time.Now(), limit)
	if err != nil {
		return nil, fmt.Errorf("list upcoming appointments: %w", err)
	}
	return appts, nil
}

// ListPatientAppointments retrieves appointments for a specific patient.
func (s *Service) ListPatientAppointments(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}

	appts, err := s.repo.ListAppointmentsByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return appts, nil
}

// PublishSlot creates an open slot for a staff member at a location.
func (s *Service) PublishSlot(ctx context.Context, staffID, locationID uuid.UUID, start, end time.Time) (*Slot, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("slot end %s must be after start %s", end, start)
	}

	slot, err := s.repo.CreateSlot(ctx, &Slot{
		StaffID:    staffID,
		LocationID: locationID,
		StartTime:  start,
		EndTime:    end,
	})
	if err != nil {
		return nil, err
	}
	return slot, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	ev := EventLog{
		EventType: eventType,
		Payload:   data,
		CreatedAt: time.Now(),
	}
	if appointmentID != uuid.Nil {
		apptID := appointmentID
		ev.AppointmentID = &apptID
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s for appointment %s: %v", eventType, appointmentID, err)
	}
}
