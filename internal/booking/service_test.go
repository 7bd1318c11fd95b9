package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/booking/internal/catalog"
	redisclient "github.com/clinicore/booking/internal/redis"
)

type testEnv struct {
	svc  *Service
	repo *MemoryRepository
	cat  *catalog.MemoryRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker := redisclient.NewRedisLocker(client, 2*time.Second)
	cat := catalog.NewMemoryRepository()
	repo := NewMemoryRepository(cat)

	return &testEnv{
		svc:  NewService(repo, cat, locker, nil),
		repo: repo,
		cat:  cat,
	}
}

func (e *testEnv) seedPatient(t *testing.T, name string) uuid.UUID {
	t.Helper()
	p, err := e.cat.CreatePatient(context.Background(), &catalog.Patient{Name: name})
	require.NoError(t, err)
	return p.ID
}

func (e *testEnv) seedStaffAndLocation(t *testing.T) (uuid.UUID, uuid.UUID) {
	t.Helper()
	staff, err := e.cat.CreateStaff(context.Background(), &catalog.Staff{Name: "Dr. Reyes", Active: true})
	require.NoError(t, err)
	loc, err := e.cat.CreateLocation(context.Background(), &catalog.Location{Name: "Downtown Clinic", Active: true})
	require.NoError(t, err)
	return staff.ID, loc.ID
}

func (e *testEnv) seedSlot(t *testing.T, staffID, locationID uuid.UUID, start, end time.Time) *Slot {
	t.Helper()
	slot, err := e.svc.PublishSlot(context.Background(), staffID, locationID, start, end)
	require.NoError(t, err)
	return slot
}

// tomorrowAt returns tomorrow at the given UTC clock offset from midnight.
func tomorrowAt(d time.Duration) time.Time {
	return time.Now().UTC().Truncate(24*time.Hour).Add(24*time.Hour + d)
}

func TestBookHappyPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	patientID := env.seedPatient(t, "Ada Obi")
	staffID, locID := env.seedStaffAndLocation(t)
	slot := env.seedSlot(t, staffID, locID, tomorrowAt(9*time.Hour), tomorrowAt(9*time.Hour+30*time.Minute))

	appt, err := env.svc.Book(ctx, BookRequest{
		PatientID: patientID,
		SlotID:    slot.ID,
		Type:      "consultation",
		Reason:    "annual checkup",
	})
	require.NoError(t, err)
	require.Equal(t, StatusScheduled, appt.Status)
	require.Equal(t, patientID, appt.PatientID)
	require.Equal(t, slot.ID, appt.SlotID)

	held, err := env.repo.IsSlotAvailable(ctx, slot.ID)
	require.NoError(t, err)
	require.False(t, held)

	events := env.repo.Events()
	require.Len(t, events, 1)
	require.Equal(t, EventAppointmentBooked, events[0].EventType)
	require.NotNil(t, events[0].AppointmentID)
	require.Equal(t, appt.ID, *events[0].AppointmentID)
}

func TestBookUnknownPatient(t *testing.T) {
	env := newTestEnv(t)

	staffID, locID := env.seedStaffAndLocation(t)
	slot := env.seedSlot(t, staffID, locID, tomorrowAt(9*time.Hour), tomorrowAt(9*time.Hour+30*time.Minute))

	_, err := env.svc.Book(context.Background(), BookRequest{PatientID: uuid.New(), SlotID: slot.ID})
	require.ErrorIs(t, err, catalog.ErrPatientNotFound)
}

func TestBookUnknownSlot(t *testing.T) {
	env := newTestEnv(t)

	patientID := env.seedPatient(t, "Ada Obi")

	_, err := env.svc.Book(context.Background(), BookRequest{PatientID: patientID, SlotID: uuid.New()})
	require.ErrorIs(t, err, ErrSlotNotFound)
}

func TestBookHeldSlotRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.seedPatient(t, "Ada Obi")
	second := env.seedPatient(t, "Ben Cho")
	staffID, locID := env.seedStaffAndLocation(t)
	slot := env.seedSlot(t, staffID, locID, tomorrowAt(9*time.Hour), tomorrowAt(9*time.Hour+30*time.Minute))

	_, err := env.svc.Book(ctx, BookRequest{PatientID: first, SlotID: slot.ID})
	require.NoError(t, err)

	_, err = env.svc.Book(ctx, BookRequest{PatientID: second, SlotID: slot.ID})
	require.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestBookOverlapRejectedAdjacentAllowed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	patientID := env.seedPatient(t, "Ada Obi")
	staffID, locID := env.seedStaffAndLocation(t)
	otherStaff, err := env.cat.CreateStaff(ctx, &catalog.Staff{Name: "Dr. Silva", Active: true})
	require.NoError(t, err)

	booked := env.seedSlot(t, staffID, locID, tomorrowAt(9*time.Hour), tomorrowAt(9*time.Hour+30*time.Minute))
	overlapping := env.seedSlot(t, otherStaff.ID, locID, tomorrowAt(9*time.Hour+15*time.Minute), tomorrowAt(9*time.Hour+45*time.Minute))
	adjacent := env.seedSlot(t, otherStaff.ID, locID, tomorrowAt(9*time.Hour+30*time.Minute), tomorrowAt(10*time.Hour))

	_, err = env.svc.Book(ctx, BookRequest{PatientID: patientID, SlotID: booked.ID})
	require.NoError(t, err)

	// [09:15, 09:45) intersects the patient's [09:00, 09:30) appointment.
	_, err = env.svc.Book(ctx, BookRequest{PatientID: patientID, SlotID: overlapping.ID})
	require.ErrorIs(t, err, ErrOverlapConflict)

	// The overlapping slot must stay open after the rejected attempt.
	open, err := env.repo.IsSlotAvailable(ctx, overlapping.ID)
	require.NoError(t, err)
	require.True(t, open)

	// Back-to-back is fine: intervals are half-open.
	_, err = env.svc.Book(ctx, BookRequest{PatientID: patientID, SlotID: adjacent.ID})
	require.NoError(t, err)
}

func TestConcurrentBookingSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	staffID, locID := env.seedStaffAndLocation(t)
	slot := env.seedSlot(t, staffID, locID, tomorrowAt(9*time.Hour), tomorrowAt(9*time.Hour+30*time.Minute))

	const workers = 12
	patients := make([]uuid.UUID, workers)
	for i := range patients {
		patients[i] = env.seedPatient(t, fmt.Sprintf("Patient %d", i))
	}

	results := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(patientID uuid.UUID) {
			defer wg.Done()
			var err error
			for attempt := 0; attempt < 200; attempt++ {
				_, err = env.svc.Book(ctx, BookRequest{PatientID: patientID, SlotID: slot.ID})
				if !errors.Is(err, ErrSlotBeingBooked) {
					break
				}
				time.Sleep(2 * time.Millisecond)
			}
			results <- err
		}(patients[i])
	}
	wg.Wait()
	close(results)

	wins, losses := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrSlotUnavailable):
			losses++
		default:
			t.Fatalf("unexpected booking error: %v", err)
		}
	}

	require.Equal(t, 1, wins)
	require.Equal(t, workers-1, losses)
}

func TestCancelReleasesSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.seedPatient(t, "Ada Obi")
	second := env.seedPatient(t, "Ben Cho")
	staffID, locID := env.seedStaffAndLocation(t)
	slot := env.seedSlot(t, staffID, locID, tomorrowAt(9*time.Hour), tomorrowAt(9*time.Hour+30*time.Minute))

	appt, err := env.svc.Book(ctx, BookRequest{PatientID: first, SlotID: slot.ID})
	require.NoError(t, err)

	cancelled, err := env.svc.Cancel(ctx, appt.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)

	open, err := env.repo.IsSlotAvailable(ctx, slot.ID)
	require.NoError(t, err)
	require.True(t, open)

	// The freed slot is bookable by someone else.
	_, err = env.svc.Book(ctx, BookRequest{PatientID: second, SlotID: slot.ID})
	require.NoError(t, err)
}

func TestCancelIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	patientID := env.seedPatient(t, "Ada Obi")
	staffID, locID := env.seedStaffAndLocation(t)
	slot := env.seedSlot(t, staffID, locID, tomorrowAt(9*time.Hour), tomorrowAt(9*time.Hour+30*time.Minute))

	appt, err := env.svc.Book(ctx, BookRequest{PatientID: patientID, SlotID: slot.ID})
	require.NoError(t, err)

	_, err = env.svc.Cancel(ctx, appt.ID)
	require.NoError(t, err)

	again, err := env.svc.Cancel(ctx, appt.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, again.Status)

	// Only one cancellation event: the second call changed nothing.
	var cancelEvents int
	for _, ev := range env.repo.Events() {
		if ev.EventType == EventAppointmentCancelled {
			cancelEvents++
		}
	}
	require.Equal(t, 1, cancelEvents)
}

func TestCancelUnknownAppointment(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Cancel(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestDeleteReleasesSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	patientID := env.seedPatient(t, "Ada Obi")
	staffID, locID := env.seedStaffAndLocation(t)
	slot := env.seedSlot(t, staffID, locID, tomorrowAt(9*time.Hour), tomorrowAt(9*time.Hour+30*time.Minute))

	appt, err := env.svc.Book(ctx, BookRequest{PatientID: patientID, SlotID: slot.ID})
	require.NoError(t, err)

	require.NoError(t, env.svc.Delete(ctx, appt.ID))

	_, err = env.repo.GetAppointmentByID(ctx, appt.ID)
	require.ErrorIs(t, err, ErrAppointmentNotFound)

	open, err := env.repo.IsSlotAvailable(ctx, slot.ID)
	require.NoError(t, err)
	require.True(t, open)

	require.ErrorIs(t, env.svc.Delete(ctx, appt.ID), ErrAppointmentNotFound)
}

func TestUpdateStatusLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	patientID := env.seedPatient(t, "Ada Obi")
	staffID, locID := env.seedStaffAndLocation(t)
	slot := env.seedSlot(t, staffID, locID, tomorrowAt(9*time.Hour), tomorrowAt(9*time.Hour+30*time.Minute))

	appt, err := env.svc.Book(ctx, BookRequest{PatientID: patientID, SlotID: slot.ID})
	require.NoError(t, err)

	for _, next := range []AppointmentStatus{StatusConfirmed, StatusCheckedIn, StatusInProgress, StatusCompleted} {
		updated, err := env.svc.UpdateStatus(ctx, appt.ID, next)
		require.NoError(t, err)
		require.Equal(t, next, updated.Status)
	}

	// Completed is terminal.
	_, err = env.svc.UpdateStatus(ctx, appt.ID, StatusConfirmed)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateStatusRejectsSkips(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	patientID := env.seedPatient(t, "Ada Obi")
	staffID, locID := env.seedStaffAndLocation(t)
	slot := env.seedSlot(t, staffID, locID, tomorrowAt(9*time.Hour), tomorrowAt(9*time.Hour+30*time.Minute))

	appt, err := env.svc.Book(ctx, BookRequest{PatientID: patientID, SlotID: slot.ID})
	require.NoError(t, err)

	_, err = env.svc.UpdateStatus(ctx, appt.ID, StatusCompleted)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = env.svc.UpdateStatus(ctx, uuid.New(), StatusConfirmed)
	require.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestMarkNoShows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	patientID := env.seedPatient(t, "Ada Obi")
	other := env.seedPatient(t, "Ben Cho")
	staffID, locID := env.seedStaffAndLocation(t)

	now := time.Now().UTC()
	pastSlot := env.seedSlot(t, staffID, locID, now.Add(-2*time.Hour), now.Add(-90*time.Minute))
	futureSlot := env.seedSlot(t, staffID, locID, now.Add(24*time.Hour), now.Add(24*time.Hour+30*time.Minute))

	missed, err := env.svc.Book(ctx, BookRequest{PatientID: patientID, SlotID: pastSlot.ID})
	require.NoError(t, err)
	upcoming, err := env.svc.Book(ctx, BookRequest{PatientID: other, SlotID: futureSlot.ID})
	require.NoError(t, err)

	marked, err := env.svc.MarkNoShows(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), marked)

	swept, err := env.repo.GetAppointmentByID(ctx, missed.ID)
	require.NoError(t, err)
	require.Equal(t, StatusNoShow, swept.Status)

	untouched, err := env.repo.GetAppointmentByID(ctx, upcoming.ID)
	require.NoError(t, err)
	require.Equal(t, StatusScheduled, untouched.Status)

	// A missed appointment consumed its slot: the sweep does not release it.
	open, err := env.repo.IsSlotAvailable(ctx, pastSlot.ID)
	require.NoError(t, err)
	require.False(t, open)

	// Re-entrant: a second sweep finds nothing.
	marked, err = env.svc.MarkNoShows(ctx, now)
	require.NoError(t, err)
	require.Zero(t, marked)
}

func TestMarkNoShowsSweepsConfirmed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	patientID := env.seedPatient(t, "Ada Obi")
	staffID, locID := env.seedStaffAndLocation(t)

	now := time.Now().UTC()
	pastSlot := env.seedSlot(t, staffID, locID, now.Add(-2*time.Hour), now.Add(-90*time.Minute))

	appt, err := env.svc.Book(ctx, BookRequest{PatientID: patientID, SlotID: pastSlot.ID})
	require.NoError(t, err)
	_, err = env.svc.UpdateStatus(ctx, appt.ID, StatusConfirmed)
	require.NoError(t, err)

	marked, err := env.svc.MarkNoShows(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), marked)
}

func TestAvailableSlots(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	patientID := env.seedPatient(t, "Ada Obi")
	staffID, locID := env.seedStaffAndLocation(t)
	otherStaff, err := env.cat.CreateStaff(ctx, &catalog.Staff{Name: "Dr. Silva", Active: true})
	require.NoError(t, err)

	early := env.seedSlot(t, staffID, locID, tomorrowAt(9*time.Hour), tomorrowAt(9*time.Hour+30*time.Minute))
	late := env.seedSlot(t, otherStaff.ID, locID, tomorrowAt(14*time.Hour), tomorrowAt(14*time.Hour+30*time.Minute))

	_, err = env.svc.Book(ctx, BookRequest{PatientID: patientID, SlotID: early.ID})
	require.NoError(t, err)

	open, err := env.svc.AvailableSlots(ctx, SlotFilter{})
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, late.ID, open[0].ID)
	require.Equal(t, "Dr. Silva", open[0].StaffName)
	require.Equal(t, "Downtown Clinic", open[0].LocationName)

	// Staff filter excludes the other doctor's slot.
	filtered, err := env.svc.AvailableSlots(ctx, SlotFilter{StaffID: &staffID})
	require.NoError(t, err)
	require.Empty(t, filtered)
}

func TestUpcomingAndPatientListings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	patientID := env.seedPatient(t, "Ada Obi")
	staffID, locID := env.seedStaffAndLocation(t)

	first := env.seedSlot(t, staffID, locID, tomorrowAt(9*time.Hour), tomorrowAt(9*time.Hour+30*time.Minute))
	second := env.seedSlot(t, staffID, locID, tomorrowAt(11*time.Hour), tomorrowAt(11*time.Hour+30*time.Minute))

	a1, err := env.svc.Book(ctx, BookRequest{PatientID: patientID, SlotID: first.ID})
	require.NoError(t, err)
	a2, err := env.svc.Book(ctx, BookRequest{PatientID: patientID, SlotID: second.ID})
	require.NoError(t, err)

	upcoming, err := env.svc.UpcomingAppointments(ctx, 0)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	require.Equal(t, a1.ID, upcoming[0].Appointment.ID)
	require.Equal(t, "Ada Obi", upcoming[0].PatientName)

	// Cancelled appointments drop out of the upcoming view.
	_, err = env.svc.Cancel(ctx, a1.ID)
	require.NoError(t, err)

	upcoming, err = env.svc.UpcomingAppointments(ctx, 0)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	require.Equal(t, a2.ID, upcoming[0].Appointment.ID)

	// The patient history keeps both, newest first.
	history, err := env.svc.ListPatientAppointments(ctx, patientID, 0, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, a2.ID, history[0].Appointment.ID)
}

func TestPublishSlotValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	staffID, locID := env.seedStaffAndLocation(t)
	start := tomorrowAt(9 * time.Hour)
	end := tomorrowAt(9*time.Hour + 30*time.Minute)

	_, err := env.svc.PublishSlot(ctx, staffID, locID, start, end)
	require.NoError(t, err)

	_, err = env.svc.PublishSlot(ctx, staffID, locID, start, end)
	require.ErrorIs(t, err, ErrDuplicateSlot)

	_, err = env.svc.PublishSlot(ctx, staffID, locID, end, start)
	require.Error(t, err)

	_, err = env.svc.PublishSlot(ctx, uuid.New(), locID, start.Add(time.Hour), end.Add(time.Hour))
	require.ErrorIs(t, err, catalog.ErrStaffNotFound)
}

func TestSlotOverlaps(t *testing.T) {
	base := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	slot := &Slot{StartTime: base, EndTime: base.Add(30 * time.Minute)}

	require.True(t, slot.Overlaps(base.Add(15*time.Minute), base.Add(45*time.Minute)))
	require.True(t, slot.Overlaps(base.Add(-15*time.Minute), base.Add(15*time.Minute)))
	require.True(t, slot.Overlaps(base, base.Add(30*time.Minute)))
	require.False(t, slot.Overlaps(base.Add(30*time.Minute), base.Add(time.Hour)))
	require.False(t, slot.Overlaps(base.Add(-time.Hour), base))
}
