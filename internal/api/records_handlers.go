package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/booking/internal/booking"
	"github.com/clinicore/booking/internal/catalog"
	"github.com/clinicore/booking/internal/records"
)

func setBillingHandler(svc *records.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appointmentID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req SetBillingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		b, err := svc.SetBilling(r.Context(), appointmentID, req.AmountCents, req.InsuranceCoverageCents, records.PaymentStatus(req.PaymentStatus))
		if err != nil {
			handleRecordsError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBillingResponse(b))
	}
}

func getBillingHandler(svc *records.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appointmentID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		b, err := svc.GetBilling(r.Context(), appointmentID)
		if err != nil {
			handleRecordsError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBillingResponse(b))
	}
}

func createMedicalRecordHandler(svc *records.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appointmentID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req CreateMedicalRecordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		staffID, err := uuid.Parse(req.StaffID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_staff_id", "staff_id must be a valid UUID")
			return
		}

		var visitDate time.Time
		if req.VisitDate != nil {
			visitDate = *req.VisitDate
		}

		rec, err := svc.AddMedicalRecord(r.Context(), records.MedicalRecordInput{
			AppointmentID: appointmentID,
			StaffID:       staffID,
			Diagnosis:     req.Diagnosis,
			Treatment:     req.Treatment,
			Prescription:  req.Prescription,
			VisitDate:     visitDate,
		})
		if err != nil {
			handleRecordsError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, MedicalRecordResponse{
			ID:            rec.ID,
			AppointmentID: rec.AppointmentID,
			StaffID:       rec.StaffID,
			Diagnosis:     rec.Diagnosis,
			Treatment:     rec.Treatment,
			Prescription:  rec.Prescription,
			VisitDate:     rec.VisitDate,
		})
	}
}

func orderTestHandler(svc *records.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appointmentID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req OrderTestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		labTestID, err := uuid.Parse(req.LabTestID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_lab_test_id", "lab_test_id must be a valid UUID")
			return
		}
		orderedBy, err := uuid.Parse(req.OrderedBy)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_ordered_by", "ordered_by must be a valid UUID")
			return
		}

		t, err := svc.OrderTest(r.Context(), appointmentID, labTestID, orderedBy)
		if err != nil {
			handleRecordsError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, OrderedTestResponse{
			ID:            t.ID,
			AppointmentID: t.AppointmentID,
			LabTestID:     t.LabTestID,
			OrderedBy:     t.OrderedByID,
			Status:        string(t.Status),
			ResultNotes:   t.ResultNotes,
		})
	}
}

func prescribeHandler(svc *records.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		medicalRecordID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_medical_record_id", "id must be a valid UUID")
			return
		}

		var req PrescribeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		medicationID, err := uuid.Parse(req.MedicationID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_medication_id", "medication_id must be a valid UUID")
			return
		}
		prescribedBy, err := uuid.Parse(req.PrescribedBy)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_prescribed_by", "prescribed_by must be a valid UUID")
			return
		}

		p, err := svc.Prescribe(r.Context(), records.PrescriptionInput{
			MedicalRecordID: medicalRecordID,
			MedicationID:    medicationID,
			PrescribedByID:  prescribedBy,
			Dosage:          req.Dosage,
			Frequency:       req.Frequency,
			DurationDays:    req.DurationDays,
		})
		if err != nil {
			handleRecordsError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, PrescriptionResponse{
			ID:              p.ID,
			MedicalRecordID: p.MedicalRecordID,
			MedicationID:    p.MedicationID,
			PrescribedBy:    p.PrescribedByID,
			Dosage:          p.Dosage,
			Frequency:       p.Frequency,
			DurationDays:    p.DurationDays,
			Status:          string(p.Status),
		})
	}
}

func handleRecordsError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, records.ErrBillingNotFound):
		writeError(w, http.StatusNotFound, "billing_not_found", err.Error())
	case errors.Is(err, records.ErrMedicalRecordNotFound):
		writeError(w, http.StatusNotFound, "medical_record_not_found", err.Error())
	case errors.Is(err, records.ErrOrderedTestNotFound):
		writeError(w, http.StatusNotFound, "ordered_test_not_found", err.Error())
	case errors.Is(err, catalog.ErrStaffNotFound):
		writeError(w, http.StatusNotFound, "staff_not_found", err.Error())
	case errors.Is(err, catalog.ErrLabTestNotFound):
		writeError(w, http.StatusNotFound, "lab_test_not_found", err.Error())
	case errors.Is(err, catalog.ErrMedicationNotFound):
		writeError(w, http.StatusNotFound, "medication_not_found", err.Error())
	case errors.Is(err, records.ErrInvalidBilling):
		writeError(w, http.StatusBadRequest, "invalid_billing", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
