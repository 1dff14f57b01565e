package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrSlotNotFound        = errors.New("slot not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotBooked          = errors.New("slot is already booked")
)

// AvailabilityFilter narrows an available-slots query to a time-of-day band.
// Slots qualify when StartMinutes >= From and EndMinutes <= To.
type AvailabilityFilter struct {
	From int
	To   int
}

// SummaryScope limits status counting to one patient or one doctor; both nil
// means the whole system.
type SummaryScope struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	CreateDoctor(ctx context.Context, name string, specialty *string) (*Doctor, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	ListDoctors(ctx context.Context, limit, offset int) ([]Doctor, error)

	CreatePatient(ctx context.Context, name string, email *string) (*Patient, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// Slot lifecycle
	InsertSlots(ctx context.Context, slots []Slot) (int, error)
	GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	ListAvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time, filter *AvailabilityFilter) ([]Slot, error)
	UpdateSlotTimes(ctx context.Context, id uuid.UUID, s Slot) (*Slot, error)
	DeleteSlot(ctx context.Context, id uuid.UUID) error
	ReleaseSlot(ctx context.Context, id uuid.UUID) error

	// BookSlot must be atomic: the is_booked flip is a conditional update and
	// the appointment insert happens in the same transaction.
	BookSlot(ctx context.Context, slotID, patientID, doctorID uuid.UUID, reason *string) (*Appointment, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)
	ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)

	// Completion worker
	FindElapsedActive(ctx context.Context, now time.Time) ([]Appointment, error)

	// Dashboard counters
	CountAppointmentsByStatus(ctx context.Context, scope SummaryScope) (map[AppointmentStatus]int, error)
	CountDoctors(ctx context.Context) (int, error)
	CountPatients(ctx context.Context) (int, error)
	CountOpenSlotsFrom(ctx context.Context, day time.Time) (int, error)

	// Event logging
	InsertEvent(ctx context.Context, ev ScheduleEvent) error
}
