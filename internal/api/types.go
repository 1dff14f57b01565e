package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/meditrack/scheduling/internal/scheduling"
)

const dateLayout = "2006-01-02"

type GenerateSlotsRequest struct {
	DoctorID        string `json:"doctor_id"`
	FromDate        string `json:"from_date"`
	ToDate          string `json:"to_date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	SlotDurationMin int    `json:"slot_duration_min"`
}

type GenerateSlotsResponse struct {
	CreatedCount int `json:"created_count"`
}

type SlotResponse struct {
	ID           uuid.UUID `json:"id"`
	DoctorID     uuid.UUID `json:"doctor_id"`
	Date         string    `json:"date"`
	Day          string    `json:"day"`
	StartTime    string    `json:"start_time"`
	EndTime      string    `json:"end_time"`
	StartMinutes int       `json:"start_minutes"`
	EndMinutes   int       `json:"end_minutes"`
	IsBooked     bool      `json:"is_booked"`
}

func toSlotResponse(s scheduling.Slot) SlotResponse {
	return SlotResponse{
		ID:           s.ID,
		DoctorID:     s.DoctorID,
		Date:         s.Date.Format(dateLayout),
		Day:          s.Day,
		StartTime:    s.StartTime,
		EndTime:      s.EndTime,
		StartMinutes: s.StartMinutes,
		EndMinutes:   s.EndMinutes,
		IsBooked:     s.IsBooked,
	}
}

type UpdateSlotRequest struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type BookSlotRequest struct {
	SlotID    string  `json:"slot_id"`
	PatientID string  `json:"patient_id"`
	DoctorID  string  `json:"doctor_id"`
	Reason    *string `json:"reason,omitempty"`
}

type AppointmentResponse struct {
	ID        uuid.UUID  `json:"id"`
	PatientID uuid.UUID  `json:"patient_id"`
	DoctorID  uuid.UUID  `json:"doctor_id"`
	SlotID    *uuid.UUID `json:"slot_id,omitempty"`
	Date      string     `json:"date"`
	StartTime string     `json:"start_time"`
	EndTime   string     `json:"end_time"`
	Status    string     `json:"status"`
	Reason    *string    `json:"reason,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func toAppointmentResponse(a scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        a.ID,
		PatientID: a.PatientID,
		DoctorID:  a.DoctorID,
		SlotID:    a.SlotID,
		Date:      a.Date.Format(dateLayout),
		StartTime: a.StartTime,
		EndTime:   a.EndTime,
		Status:    string(a.Status),
		Reason:    a.Reason,
		CreatedAt: a.CreatedAt,
	}
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type CreateDoctorRequest struct {
	Name      string  `json:"name"`
	Specialty *string `json:"specialty,omitempty"`
}

type DoctorResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Specialty *string   `json:"specialty,omitempty"`
}

type CreatePatientRequest struct {
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
}

type PatientResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email *string   `json:"email,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
