package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/booking/internal/booking"
	"github.com/clinicore/booking/internal/catalog"
	"github.com/clinicore/booking/internal/records"
	redisclient "github.com/clinicore/booking/internal/redis"
)

type testServer struct {
	handler http.Handler
	cat     *catalog.MemoryRepository

	patientID uuid.UUID
	staffID   uuid.UUID
	slotID    uuid.UUID
}

// newTestServer wires the router against in-memory stores and a miniredis
// locker, pre-seeded with one patient, one staff member and one open slot.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker := redisclient.NewRedisLocker(client, 2*time.Second)

	cat := catalog.NewMemoryRepository()
	bookingRepo := booking.NewMemoryRepository(cat)
	recordsRepo := records.NewMemoryRepository()

	bookingSvc := booking.NewService(bookingRepo, cat, locker, nil)
	recordsSvc := records.NewService(recordsRepo, bookingRepo, cat)

	patient, err := cat.CreatePatient(ctx, &catalog.Patient{Name: "Ada Obi"})
	require.NoError(t, err)
	staff, err := cat.CreateStaff(ctx, &catalog.Staff{Name: "Dr. Reyes", Active: true})
	require.NoError(t, err)
	loc, err := cat.CreateLocation(ctx, &catalog.Location{Name: "Downtown Clinic", Active: true})
	require.NoError(t, err)

	start := time.Now().UTC().Truncate(24*time.Hour).Add(33 * time.Hour)
	slot, err := bookingSvc.PublishSlot(ctx, staff.ID, loc.ID, start, start.Add(30*time.Minute))
	require.NoError(t, err)

	return &testServer{
		handler: NewRouter(RouterConfig{
			Booking: bookingSvc,
			Records: recordsSvc,
			Catalog: cat,
			Env:     "test",
			Version: "test",
		}),
		cat:       cat,
		patientID: patient.ID,
		staffID:   staff.ID,
		slotID:    slot.ID,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func (s *testServer) book(t *testing.T) BookAppointmentResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/appointments", BookAppointmentRequest{
		PatientID: s.patientID.String(),
		SlotID:    s.slotID.String(),
		Type:      "consultation",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	return decodeBody[BookAppointmentResponse](t, rec)
}

func TestBookAppointmentEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.book(t)
	require.Equal(t, "appointment booked", resp.Message)
	require.NotEqual(t, uuid.Nil, resp.AppointmentID)
	require.Equal(t, "scheduled", resp.Appointment.Status)

	// The slot is held now: a second booking conflicts.
	rec := srv.do(t, http.MethodPost, "/appointments", BookAppointmentRequest{
		PatientID: srv.patientID.String(),
		SlotID:    srv.slotID.String(),
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "slot_unavailable", decodeBody[ErrorResponse](t, rec).Error)
}

func TestBookAppointmentValidation(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/appointments", BookAppointmentRequest{
		PatientID: "not-a-uuid",
		SlotID:    srv.slotID.String(),
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/appointments", BookAppointmentRequest{
		PatientID: uuid.NewString(),
		SlotID:    srv.slotID.String(),
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "patient_not_found", decodeBody[ErrorResponse](t, rec).Error)

	rec = srv.do(t, http.MethodPost, "/appointments", BookAppointmentRequest{
		PatientID: srv.patientID.String(),
		SlotID:    uuid.NewString(),
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "slot_not_found", decodeBody[ErrorResponse](t, rec).Error)
}

func TestCancelAppointmentEndpoint(t *testing.T) {
	srv := newTestServer(t)
	booked := srv.book(t)

	rec := srv.do(t, http.MethodPost, fmt.Sprintf("/appointments/%s/cancel", booked.AppointmentID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Cancel released the slot, so it shows up as available again.
	rec = srv.do(t, http.MethodGet, "/slots/available", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	slots := decodeBody[[]AvailableSlotResponse](t, rec)
	require.Len(t, slots, 1)
	require.Equal(t, srv.slotID, slots[0].ID)

	// Idempotent.
	rec = srv.do(t, http.MethodPost, fmt.Sprintf("/appointments/%s/cancel", booked.AppointmentID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodPost, fmt.Sprintf("/appointments/%s/cancel", uuid.New()), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteAppointmentEndpoint(t *testing.T) {
	srv := newTestServer(t)
	booked := srv.book(t)

	rec := srv.do(t, http.MethodDelete, fmt.Sprintf("/appointments/%s", booked.AppointmentID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(t, http.MethodGet, fmt.Sprintf("/appointments/%s", booked.AppointmentID), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAppointmentEndpoint(t *testing.T) {
	srv := newTestServer(t)
	booked := srv.book(t)

	rec := srv.do(t, http.MethodGet, fmt.Sprintf("/appointments/%s", booked.AppointmentID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	detail := decodeBody[AppointmentDetailResponse](t, rec)
	require.Equal(t, booked.AppointmentID, detail.ID)
	require.Equal(t, "Ada Obi", detail.PatientName)
	require.Equal(t, "Dr. Reyes", detail.StaffName)
	require.Equal(t, "Downtown Clinic", detail.LocationName)

	rec = srv.do(t, http.MethodGet, "/appointments/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatusEndpoint(t *testing.T) {
	srv := newTestServer(t)
	booked := srv.book(t)

	rec := srv.do(t, http.MethodPost, fmt.Sprintf("/appointments/%s/status", booked.AppointmentID), UpdateStatusRequest{Status: "confirmed"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "confirmed", decodeBody[AppointmentResponse](t, rec).Status)

	// Skipping straight to completed is not a legal move.
	rec = srv.do(t, http.MethodPost, fmt.Sprintf("/appointments/%s/status", booked.AppointmentID), UpdateStatusRequest{Status: "completed"})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "invalid_status_transition", decodeBody[ErrorResponse](t, rec).Error)
}

func TestUpcomingAndPatientEndpoints(t *testing.T) {
	srv := newTestServer(t)
	booked := srv.book(t)

	rec := srv.do(t, http.MethodGet, "/appointments/upcoming", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	upcoming := decodeBody[[]AppointmentDetailResponse](t, rec)
	require.Len(t, upcoming, 1)
	require.Equal(t, booked.AppointmentID, upcoming[0].ID)

	rec = srv.do(t, http.MethodGet, fmt.Sprintf("/patients/%s/appointments", srv.patientID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decodeBody[[]AppointmentDetailResponse](t, rec)
	require.Len(t, history, 1)
}

func TestCreateSlotEndpoint(t *testing.T) {
	srv := newTestServer(t)

	loc, err := srv.cat.CreateLocation(context.Background(), &catalog.Location{Name: "Annex", Active: true})
	require.NoError(t, err)

	start := time.Now().UTC().Truncate(24*time.Hour).Add(48*time.Hour + 10*time.Hour)
	req := CreateSlotRequest{
		StaffID:    srv.staffID.String(),
		LocationID: loc.ID.String(),
		StartTime:  start,
		EndTime:    start.Add(30 * time.Minute),
	}

	rec := srv.do(t, http.MethodPost, "/slots", req)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[SlotResponse](t, rec)
	require.True(t, created.Available)

	rec = srv.do(t, http.MethodPost, "/slots", req)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "duplicate_slot", decodeBody[ErrorResponse](t, rec).Error)
}

func TestPatientEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/patients", CreatePatientRequest{Name: "Ben Cho"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[PatientResponse](t, rec)

	rec = srv.do(t, http.MethodGet, fmt.Sprintf("/patients/%s", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Ben Cho", decodeBody[PatientResponse](t, rec).Name)

	rec = srv.do(t, http.MethodPost, "/patients", CreatePatientRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodGet, fmt.Sprintf("/patients/%s", uuid.New()), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBillingEndpoints(t *testing.T) {
	srv := newTestServer(t)
	booked := srv.book(t)

	rec := srv.do(t, http.MethodPut, fmt.Sprintf("/appointments/%s/billing", booked.AppointmentID), SetBillingRequest{
		AmountCents:            10000,
		InsuranceCoverageCents: 4000,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	bill := decodeBody[BillingResponse](t, rec)
	require.Equal(t, int64(6000), bill.PatientResponsibilityCents)
	require.Equal(t, "pending", bill.PaymentStatus)

	rec = srv.do(t, http.MethodGet, fmt.Sprintf("/appointments/%s/billing", booked.AppointmentID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(6000), decodeBody[BillingResponse](t, rec).PatientResponsibilityCents)

	rec = srv.do(t, http.MethodPut, fmt.Sprintf("/appointments/%s/billing", booked.AppointmentID), SetBillingRequest{
		AmountCents: -5,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_billing", decodeBody[ErrorResponse](t, rec).Error)

	rec = srv.do(t, http.MethodGet, fmt.Sprintf("/appointments/%s/billing", uuid.New()), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClinicalRecordEndpoints(t *testing.T) {
	srv := newTestServer(t)
	booked := srv.book(t)
	ctx := context.Background()

	rec := srv.do(t, http.MethodPost, fmt.Sprintf("/appointments/%s/medical-records", booked.AppointmentID), CreateMedicalRecordRequest{
		StaffID:   srv.staffID.String(),
		Diagnosis: "seasonal allergies",
		Treatment: "antihistamines",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	medRec := decodeBody[MedicalRecordResponse](t, rec)
	require.Equal(t, "seasonal allergies", medRec.Diagnosis)

	labTest, err := srv.cat.CreateLabTest(ctx, &catalog.LabTest{Name: "Complete Blood Count", CostCents: 2500})
	require.NoError(t, err)

	rec = srv.do(t, http.MethodPost, fmt.Sprintf("/appointments/%s/lab-orders", booked.AppointmentID), OrderTestRequest{
		LabTestID: labTest.ID.String(),
		OrderedBy: srv.staffID.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "ordered", decodeBody[OrderedTestResponse](t, rec).Status)

	med, err := srv.cat.CreateMedication(ctx, &catalog.Medication{Name: "Amoxicillin"})
	require.NoError(t, err)

	rec = srv.do(t, http.MethodPost, fmt.Sprintf("/medical-records/%s/prescriptions", medRec.ID), PrescribeRequest{
		MedicationID: med.ID.String(),
		PrescribedBy: srv.staffID.String(),
		Dosage:       "500mg",
		Frequency:    "3x daily",
		DurationDays: 7,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	p := decodeBody[PrescriptionResponse](t, rec)
	require.Equal(t, "active", p.Status)
	require.Equal(t, "500mg", p.Dosage)
}
