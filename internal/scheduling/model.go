package scheduling

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusPending     AppointmentStatus = "pending"
	StatusConfirmed   AppointmentStatus = "confirmed"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusRescheduled AppointmentStatus = "rescheduled"
	StatusCompleted   AppointmentStatus = "completed"
)

type Doctor struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Slot is one bookable interval for a doctor on one calendar day.
// Date is truncated to midnight UTC; Day, StartMinutes and EndMinutes are
// projections of Date/StartTime/EndTime and must be recomputed whenever the
// base fields change.
type Slot struct {
	ID           uuid.UUID
	DoctorID     uuid.UUID
	Date         time.Time
	Day          string
	StartTime    string
	EndTime      string
	StartMinutes int
	EndMinutes   int
	IsBooked     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Appointment is a patient's claim on a slot. The interval fields are copied
// from the slot at booking time, so later slot edits do not move a booked
// appointment.
type Appointment struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	SlotID    *uuid.UUID
	Date      time.Time
	StartTime string
	EndTime   string
	Status    AppointmentStatus
	Reason    *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ScheduleEvent struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
