package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/meditrack/scheduling/internal/redis"
)

const (
	EventSlotsGenerated    = "SLOTS_GENERATED"
	EventAppointmentBooked = "APPOINTMENT_BOOKED"
	EventStatusChanged     = "APPOINTMENT_STATUS_CHANGED"
)

const dashboardCacheKey = "dashboard:metrics"

var (
	ErrSlotBeingBooked         = errors.New("slot is currently being booked, please retry")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// DashboardMetrics is the admin KPI payload.
type DashboardMetrics struct {
	Doctors      int     `json:"doctors"`
	Patients     int     `json:"patients"`
	OpenSlots    int     `json:"open_slots"`
	Appointments Summary `json:"appointments"`
}

type Service struct {
	repo   Repository
	locker redisclient.Locker
	cache  redisclient.Cache
	log    zerolog.Logger
}

func NewService(repo Repository, locker redisclient.Locker, cache redisclient.Cache, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		cache:  cache,
		log:    log,
	}
}

// GenerateSlots expands a doctor's availability window into discrete slots and
// persists them in one bulk write. It returns the number of slots created.
// The generator does not deduplicate against slots already on file; re-running
// the same request doubles them.
func (s *Service) GenerateSlots(ctx context.Context, p GenerateParams) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	if _, err := s.repo.GetDoctorByID(ctx, p.DoctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("load doctor: %w", err)
	}

	slots := ExpandSlots(p)
	created, err := s.repo.InsertSlots(ctx, slots)
	if err != nil {
		return 0, fmt.Errorf("insert slots: %w", err)
	}

	s.logEvent(ctx, nil, EventSlotsGenerated, map[string]any{
		"doctor_id": p.DoctorID.String(),
		"from_date": TruncateToDay(p.FromDate).Format("2006-01-02"),
		"to_date":   TruncateToDay(p.ToDate).Format("2006-01-02"),
		"created":   created,
	})

	return created, nil
}

// AvailableSlots returns unbooked slots for a doctor on one day, optionally
// narrowed to a time band. startTime and endTime must be given together.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time, startTime, endTime string) ([]Slot, error) {
	if doctorID == uuid.Nil {
		return nil, fmt.Errorf("%w: doctor id is required", ErrInvalidParams)
	}
	if date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidParams)
	}

	var filter *AvailabilityFilter
	switch {
	case startTime == "" && endTime == "":
		// no band
	case startTime == "" || endTime == "":
		return nil, fmt.Errorf("%w: start and end time must be given together", ErrInvalidParams)
	default:
		from, err := ParseClock(startTime)
		if err != nil {
			return nil, err
		}
		to, err := ParseClock(endTime)
		if err != nil {
			return nil, err
		}
		if from >= to {
			return nil, fmt.Errorf("%w: start time %s is not before end time %s", ErrInvalidParams, startTime, endTime)
		}
		filter = &AvailabilityFilter{From: from, To: to}
	}

	slots, err := s.repo.ListAvailableSlots(ctx, doctorID, date, filter)
	if err != nil {
		return nil, fmt.Errorf("list available slots: %w", err)
	}
	return slots, nil
}

// BookSlot reserves a slot for a patient. A per-slot distributed lock keeps
// concurrent requests from racing into the repository; the repository's
// conditional update is the actual double-booking guard.
func (s *Service) BookSlot(ctx context.Context, slotID, patientID, doctorID uuid.UUID, reason *string) (*Appointment, error) {
	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	var created *Appointment

	err := s.locker.WithSlotLock(ctx, slotID, func(lockCtx context.Context) error {
		appt, err := s.repo.BookSlot(lockCtx, slotID, patientID, doctorID, reason)
		if err != nil {
			return err
		}
		created = appt

		s.logEvent(lockCtx, &appt.ID, EventAppointmentBooked, map[string]any{
			"slot_id":    slotID.String(),
			"patient_id": patientID.String(),
			"doctor_id":  doctorID.String(),
		})
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	return created, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *Service) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	appts, err := s.repo.ListAppointmentsByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return appts, nil
}

func (s *Service) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	appts, err := s.repo.ListAppointmentsByDoctor(ctx, doctorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by doctor: %w", err)
	}
	return appts, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// UpdateStatus moves an appointment to a new status. Legality is decided by
// CanTransition; the write itself is a compare-and-swap on the current status
// so a concurrent change loses cleanly instead of being overwritten.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to AppointmentStatus) (*Appointment, error) {
	if !ValidStatus(to) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidParams, to)
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !CanTransition(appt.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, appt.Status, to)
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, appt.Status, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// The row exists; the status moved under us.
			return nil, fmt.Errorf("%w: concurrent update from %s", ErrInvalidStatusTransition, appt.Status)
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	if to == StatusCancelled && updated.SlotID != nil {
		if err := s.repo.ReleaseSlot(ctx, *updated.SlotID); err != nil {
			s.log.Error().Err(err).
				Stringer("appointment_id", updated.ID).
				Stringer("slot_id", *updated.SlotID).
				Msg("failed to reopen slot after cancellation")
		}
	}

	s.logEvent(ctx, &updated.ID, EventStatusChanged, map[string]any{
		"from": string(appt.Status),
		"to":   string(to),
	})

	return updated, nil
}

// CancelAppointment is the cancel shortcut: the appointment goes terminal and
// its slot reopens for other patients.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.UpdateStatus(ctx, id, StatusCancelled)
}

// StatusSummary buckets a patient's or doctor's appointments for dashboards.
func (s *Service) StatusSummary(ctx context.Context, scope SummaryScope) (Summary, error) {
	counts, err := s.repo.CountAppointmentsByStatus(ctx, scope)
	if err != nil {
		return Summary{}, fmt.Errorf("count appointments: %w", err)
	}
	return SummarizeCounts(counts), nil
}

// DashboardMetrics returns the admin KPI counters, cached briefly in Redis so
// dashboard polling does not hammer the counters.
func (s *Service) DashboardMetrics(ctx context.Context) (DashboardMetrics, error) {
	var m DashboardMetrics

	if s.cache != nil {
		hit, err := s.cache.Get(ctx, dashboardCacheKey, &m)
		if err != nil {
			s.log.Warn().Err(err).Msg("dashboard cache read failed")
		} else if hit {
			return m, nil
		}
	}

	var err error
	if m.Doctors, err = s.repo.CountDoctors(ctx); err != nil {
		return DashboardMetrics{}, fmt.Errorf("count doctors: %w", err)
	}
	if m.Patients, err = s.repo.CountPatients(ctx); err != nil {
		return DashboardMetrics{}, fmt.Errorf("count patients: %w", err)
	}
	if m.OpenSlots, err = s.repo.CountOpenSlotsFrom(ctx, time.Now()); err != nil {
		return DashboardMetrics{}, fmt.Errorf("count open slots: %w", err)
	}
	counts, err := s.repo.CountAppointmentsByStatus(ctx, SummaryScope{})
	if err != nil {
		return DashboardMetrics{}, fmt.Errorf("count appointments: %w", err)
	}
	m.Appointments = SummarizeCounts(counts)

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, m); err != nil {
			s.log.Warn().Err(err).Msg("dashboard cache write failed")
		}
	}

	return m, nil
}

// UpdateSlotTimes adjusts a slot's interval, recomputing the derived minute
// fields. Booked slots are not editable: the appointment keeps a copy of the
// interval and moving the slot under it would orphan that copy.
func (s *Service) UpdateSlotTimes(ctx context.Context, id uuid.UUID, startTime, endTime string) (*Slot, error) {
	from, err := ParseClock(startTime)
	if err != nil {
		return nil, err
	}
	to, err := ParseClock(endTime)
	if err != nil {
		return nil, err
	}
	if from >= to {
		return nil, fmt.Errorf("%w: start time %s is not before end time %s", ErrInvalidParams, startTime, endTime)
	}

	updated, err := s.repo.UpdateSlotTimes(ctx, id, Slot{
		StartTime:    startTime,
		EndTime:      endTime,
		StartMinutes: from,
		EndMinutes:   to,
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteSlot(ctx, id)
}

func (s *Service) GetSlot(ctx context.Context, id uuid.UUID) (*Slot, error) {
	return s.repo.GetSlotByID(ctx, id)
}

// CompleteElapsedAppointments is called by the worker: any live appointment
// whose end time has passed is moved to completed via the same CAS as manual
// updates, so a concurrent cancel wins.
func (s *Service) CompleteElapsedAppointments(ctx context.Context) error {
	now := time.Now()
	elapsed, err := s.repo.FindElapsedActive(ctx, now)
	if err != nil {
		return fmt.Errorf("find elapsed appointments: %w", err)
	}

	for _, appt := range elapsed {
		_, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, appt.Status, StatusCompleted)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			s.log.Error().Err(err).Stringer("appointment_id", appt.ID).Msg("failed to complete appointment")
			continue
		}
		s.logEvent(ctx, &appt.ID, EventStatusChanged, map[string]any{
			"from":   string(appt.Status),
			"to":     string(StatusCompleted),
			"reason": "worker",
		})
	}

	return nil
}

// Doctors and patients

func (s *Service) CreateDoctor(ctx context.Context, name string, specialty *string) (*Doctor, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: doctor name is required", ErrInvalidParams)
	}
	return s.repo.CreateDoctor(ctx, name, specialty)
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]Doctor, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListDoctors(ctx, limit, offset)
}

func (s *Service) CreatePatient(ctx context.Context, name string, email *string) (*Patient, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: patient name is required", ErrInvalidParams)
	}
	return s.repo.CreatePatient(ctx, name, email)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetPatientByID(ctx, id)
}

func (s *Service) logEvent(ctx context.Context, appointmentID *uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	ev := ScheduleEvent{
		EventType:     eventType,
		AppointmentID: appointmentID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("failed to insert schedule event")
	}
}
