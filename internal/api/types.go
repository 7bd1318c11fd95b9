package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/booking/internal/booking"
	"github.com/clinicore/booking/internal/records"
)

type BookAppointmentRequest struct {
	PatientID string `json:"patient_id"`
	SlotID    string `json:"slot_id"`
	Type      string `json:"appointment_type"`
	Reason    string `json:"reason"`
}

type AppointmentResponse struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	SlotID    uuid.UUID `json:"slot_id"`
	Status    string    `json:"status"`
	Type      string    `json:"appointment_type,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

type BookAppointmentResponse struct {
	Message       string              `json:"message"`
	AppointmentID uuid.UUID           `json:"appointment_id"`
	Appointment   AppointmentResponse `json:"appointment"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type CreateSlotRequest struct {
	StaffID    string    `json:"staff_id"`
	LocationID string    `json:"location_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
}

type SlotResponse struct {
	ID         uuid.UUID `json:"id"`
	StaffID    uuid.UUID `json:"staff_id"`
	LocationID uuid.UUID `json:"location_id"`
	Date       string    `json:"date"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Available  bool      `json:"available"`
}

type AvailableSlotResponse struct {
	SlotResponse
	StaffName     string  `json:"staff_name"`
	SpecialtyName *string `json:"specialty_name,omitempty"`
	LocationName  string  `json:"location_name"`
}

type AppointmentDetailResponse struct {
	AppointmentResponse
	Slot          SlotResponse `json:"slot"`
	PatientName   string       `json:"patient_name"`
	StaffName     string       `json:"staff_name"`
	LocationName  string       `json:"location_name"`
	SpecialtyName *string      `json:"specialty_name,omitempty"`
}

type CreatePatientRequest struct {
	Name           string     `json:"name"`
	Email          *string    `json:"email,omitempty"`
	Phone          *string    `json:"phone,omitempty"`
	DateOfBirth    *time.Time `json:"date_of_birth,omitempty"`
	MedicalHistory string     `json:"medical_history,omitempty"`
}

type PatientResponse struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Email          *string    `json:"email,omitempty"`
	Phone          *string    `json:"phone,omitempty"`
	DateOfBirth    *time.Time `json:"date_of_birth,omitempty"`
	MedicalHistory string     `json:"medical_history,omitempty"`
}

type SetBillingRequest struct {
	AmountCents            int64  `json:"amount_cents"`
	InsuranceCoverageCents int64  `json:"insurance_coverage_cents"`
	PaymentStatus          string `json:"payment_status,omitempty"`
}

type BillingResponse struct {
	ID                         uuid.UUID `json:"id"`
	AppointmentID              uuid.UUID `json:"appointment_id"`
	AmountCents                int64     `json:"amount_cents"`
	InsuranceCoverageCents     int64     `json:"insurance_coverage_cents"`
	PatientResponsibilityCents int64     `json:"patient_responsibility_cents"`
	PaymentStatus              string    `json:"payment_status"`
}

type CreateMedicalRecordRequest struct {
	StaffID      string     `json:"staff_id"`
	Diagnosis    string     `json:"diagnosis"`
	Treatment    string     `json:"treatment"`
	Prescription string     `json:"prescription"`
	VisitDate    *time.Time `json:"visit_date,omitempty"`
}

type MedicalRecordResponse struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	StaffID       uuid.UUID `json:"staff_id"`
	Diagnosis     string    `json:"diagnosis"`
	Treatment     string    `json:"treatment"`
	Prescription  string    `json:"prescription"`
	VisitDate     time.Time `json:"visit_date"`
}

type OrderTestRequest struct {
	LabTestID string `json:"lab_test_id"`
	OrderedBy string `json:"ordered_by"`
}

type OrderedTestResponse struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	LabTestID     uuid.UUID `json:"lab_test_id"`
	OrderedBy     uuid.UUID `json:"ordered_by"`
	Status        string    `json:"status"`
	ResultNotes   string    `json:"result_notes,omitempty"`
}

type PrescribeRequest struct {
	MedicationID string `json:"medication_id"`
	PrescribedBy string `json:"prescribed_by"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	DurationDays int    `json:"duration_days"`
}

type PrescriptionResponse struct {
	ID              uuid.UUID `json:"id"`
	MedicalRecordID uuid.UUID `json:"medical_record_id"`
	MedicationID    uuid.UUID `json:"medication_id"`
	PrescribedBy    uuid.UUID `json:"prescribed_by"`
	Dosage          string    `json:"dosage"`
	Frequency       string    `json:"frequency"`
	DurationDays    int       `json:"duration_days"`
	Status          string    `json:"status"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        a.ID,
		PatientID: a.PatientID,
		SlotID:    a.SlotID,
		Status:    string(a.Status),
		Type:      a.Type,
		Reason:    a.Reason,
	}
}

func toSlotResponse(s booking.Slot) SlotResponse {
	return SlotResponse{
		ID:         s.ID,
		StaffID:    s.StaffID,
		LocationID: s.LocationID,
		Date:       s.Date.Format("2006-01-02"),
		StartTime:  s.StartTime,
		EndTime:    s.EndTime,
		Available:  s.Available,
	}
}

func toDetailResponse(d booking.AppointmentDetail) AppointmentDetailResponse {
	return AppointmentDetailResponse{
		AppointmentResponse: toAppointmentResponse(&d.Appointment),
		Slot:                toSlotResponse(d.Slot),
		PatientName:         d.PatientName,
		StaffName:           d.StaffName,
		LocationName:        d.LocationName,
		SpecialtyName:       d.SpecialtyName,
	}
}

func toBillingResponse(b *records.Billing) BillingResponse {
	return BillingResponse{
		ID:                         b.ID,
		AppointmentID:              b.AppointmentID,
		AmountCents:                b.AmountCents,
		InsuranceCoverageCents:     b.InsuranceCoverageCents,
		PatientResponsibilityCents: b.PatientResponsibilityCents(),
		PaymentStatus:              string(b.PaymentStatus),
	}
}
