package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/meditrack/scheduling/internal/redis"
)

// -- Mock repository --

type memRepo struct {
	doctors  map[uuid.UUID]*Doctor
	patients map[uuid.UUID]*Patient
	slots    map[uuid.UUID]*Slot
	appts    map[uuid.UUID]*Appointment
	events   []ScheduleEvent
}

func newMemRepo() *memRepo {
	return &memRepo{
		doctors:  make(map[uuid.UUID]*Doctor),
		patients: make(map[uuid.UUID]*Patient),
		slots:    make(map[uuid.UUID]*Slot),
		appts:    make(map[uuid.UUID]*Appointment),
	}
}

func (m *memRepo) CreateDoctor(_ context.Context, name string, specialty *string) (*Doctor, error) {
	d := &Doctor{ID: uuid.New(), Name: name, Specialty: specialty, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.doctors[d.ID] = d
	return d, nil
}

func (m *memRepo) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return d, nil
}

func (m *memRepo) ListDoctors(_ context.Context, limit, offset int) ([]Doctor, error) {
	var result []Doctor
	for _, d := range m.doctors {
		result = append(result, *d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	if offset >= len(result) {
		return nil, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], nil
}

func (m *memRepo) CreatePatient(_ context.Context, name string, email *string) (*Patient, error) {
	p := &Patient{ID: uuid.New(), Name: name, Email: email, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.patients[p.ID] = p
	return p, nil
}

func (m *memRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return p, nil
}

func (m *memRepo) InsertSlots(_ context.Context, slots []Slot) (int, error) {
	for i := range slots {
		s := slots[i]
		s.CreatedAt = time.Now()
		s.UpdatedAt = time.Now()
		m.slots[s.ID] = &s
	}
	return len(slots), nil
}

func (m *memRepo) GetSlotByID(_ context.Context, id uuid.UUID) (*Slot, error) {
	s, ok := m.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return s, nil
}

func (m *memRepo) ListAvailableSlots(_ context.Context, doctorID uuid.UUID, date time.Time, filter *AvailabilityFilter) ([]Slot, error) {
	day := TruncateToDay(date)
	var result []Slot
	for _, s := range m.slots {
		if s.DoctorID != doctorID || !s.Date.Equal(day) || s.IsBooked {
			continue
		}
		if filter != nil && (s.StartMinutes < filter.From || s.EndMinutes > filter.To) {
			continue
		}
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].StartMinutes < result[j].StartMinutes
	})
	return result, nil
}

func (m *memRepo) UpdateSlotTimes(_ context.Context, id uuid.UUID, s Slot) (*Slot, error) {
	existing, ok := m.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	if existing.IsBooked {
		return nil, ErrSlotBooked
	}
	existing.StartTime = s.StartTime
	existing.EndTime = s.EndTime
	existing.StartMinutes = s.StartMinutes
	existing.EndMinutes = s.EndMinutes
	existing.UpdatedAt = time.Now()
	return existing, nil
}

func (m *memRepo) DeleteSlot(_ context.Context, id uuid.UUID) error {
	s, ok := m.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	if s.IsBooked {
		return ErrSlotBooked
	}
	delete(m.slots, id)
	return nil
}

func (m *memRepo) ReleaseSlot(_ context.Context, id uuid.UUID) error {
	s, ok := m.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	s.IsBooked = false
	return nil
}

func (m *memRepo) BookSlot(_ context.Context, slotID, patientID, doctorID uuid.UUID, reason *string) (*Appointment, error) {
	s, ok := m.slots[slotID]
	if !ok {
		return nil, ErrSlotNotFound
	}
	if s.IsBooked {
		return nil, ErrSlotBooked
	}
	if s.DoctorID != doctorID {
		return nil, fmt.Errorf("%w: slot belongs to a different doctor", ErrInvalidParams)
	}
	s.IsBooked = true

	sid := slotID
	a := &Appointment{
		ID:        uuid.New(),
		PatientID: patientID,
		DoctorID:  doctorID,
		SlotID:    &sid,
		Date:      s.Date,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Status:    StatusPending,
		Reason:    reason,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.appts[a.ID] = a
	return a, nil
}

func (m *memRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return a, nil
}

func (m *memRepo) ListAppointmentsByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	return m.listAppts(func(a *Appointment) bool { return a.PatientID == patientID }, limit, offset), nil
}

func (m *memRepo) ListAppointmentsByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error) {
	return m.listAppts(func(a *Appointment) bool { return a.DoctorID == doctorID }, limit, offset), nil
}

func (m *memRepo) listAppts(match func(*Appointment) bool, limit, offset int) []Appointment {
	var result []Appointment
	for _, a := range m.appts {
		if match(a) {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].StartTime < result[j].StartTime
	})
	if offset >= len(result) {
		return nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end]
}

func (m *memRepo) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	return a, nil
}

func (m *memRepo) FindElapsedActive(_ context.Context, now time.Time) ([]Appointment, error) {
	var result []Appointment
	for _, a := range m.appts {
		if terminal(a.Status) {
			continue
		}
		if a.Date.Add(time.Duration(clockMinutes(a.EndTime)) * time.Minute).Before(now) {
			result = append(result, *a)
		}
	}
	return result, nil
}

// clockMinutes reads HH:MM without the day-bounds check, so overrun end times
// like "24:30" resolve the same way the SQL interval cast does.
func clockMinutes(s string) int {
	h, _ := strconv.Atoi(s[:2])
	mi, _ := strconv.Atoi(s[3:])
	return h*60 + mi
}

func (m *memRepo) CountAppointmentsByStatus(_ context.Context, scope SummaryScope) (map[AppointmentStatus]int, error) {
	counts := make(map[AppointmentStatus]int)
	for _, a := range m.appts {
		if scope.PatientID != nil && a.PatientID != *scope.PatientID {
			continue
		}
		if scope.DoctorID != nil && a.DoctorID != *scope.DoctorID {
			continue
		}
		counts[a.Status]++
	}
	return counts, nil
}

func (m *memRepo) CountDoctors(_ context.Context) (int, error)  { return len(m.doctors), nil }
func (m *memRepo) CountPatients(_ context.Context) (int, error) { return len(m.patients), nil }

func (m *memRepo) CountOpenSlotsFrom(_ context.Context, day time.Time) (int, error) {
	n := 0
	for _, s := range m.slots {
		if !s.IsBooked && !s.Date.Before(TruncateToDay(day)) {
			n++
		}
	}
	return n, nil
}

func (m *memRepo) InsertEvent(_ context.Context, ev ScheduleEvent) error {
	m.events = append(m.events, ev)
	return nil
}

// -- Mock locker and cache --

type passLocker struct{}

func (passLocker) WithSlotLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type busyLocker struct{}

func (busyLocker) WithSlotLock(context.Context, uuid.UUID, func(ctx context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

type memCache struct {
	store map[string][]byte
}

func newMemCache() *memCache { return &memCache{store: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string, dest any) (bool, error) {
	raw, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memCache) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.store[key] = raw
	return nil
}

// -- Tests --

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	svc := NewService(repo, passLocker{}, nil, zerolog.Nop())
	return svc, repo
}

func seedDoctorPatient(t *testing.T, repo *memRepo) (uuid.UUID, uuid.UUID) {
	t.Helper()
	d, _ := repo.CreateDoctor(context.Background(), "Dr. Osei", nil)
	p, _ := repo.CreatePatient(context.Background(), "Ana Matos", nil)
	return d.ID, p.ID
}

func generate(t *testing.T, svc *Service, doctorID uuid.UUID, day time.Time, start, end string, duration int) int {
	t.Helper()
	created, err := svc.GenerateSlots(context.Background(), GenerateParams{
		DoctorID:     doctorID,
		FromDate:     day,
		ToDate:       day,
		StartTime:    start,
		EndTime:      end,
		SlotDuration: duration,
	})
	if err != nil {
		t.Fatalf("GenerateSlots: %v", err)
	}
	return created
}

func TestGenerateSlots(t *testing.T) {
	svc, repo := newTestService()
	doctorID, _ := seedDoctorPatient(t, repo)
	day := date(2025, time.March, 10)

	created := generate(t, svc, doctorID, day, "09:00", "12:00", 30)
	if created != 6 {
		t.Fatalf("created = %d, want 6", created)
	}
	if len(repo.slots) != 6 {
		t.Fatalf("stored = %d, want 6", len(repo.slots))
	}

	// The generator does not deduplicate: re-running the same request adds a
	// second, internally non-overlapping set.
	generate(t, svc, doctorID, day, "09:00", "12:00", 30)
	if len(repo.slots) != 12 {
		t.Fatalf("stored after rerun = %d, want 12", len(repo.slots))
	}
}

func TestGenerateSlotsRejectsBadInput(t *testing.T) {
	svc, repo := newTestService()
	doctorID, _ := seedDoctorPatient(t, repo)

	_, err := svc.GenerateSlots(context.Background(), GenerateParams{
		DoctorID:     doctorID,
		FromDate:     date(2025, time.March, 10),
		ToDate:       date(2025, time.March, 10),
		StartTime:    "09:00",
		EndTime:      "12:00",
		SlotDuration: 0,
	})
	if !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams, got %v", err)
	}
	if len(repo.slots) != 0 {
		t.Fatal("rejected request must not persist slots")
	}

	_, err = svc.GenerateSlots(context.Background(), GenerateParams{
		DoctorID:     uuid.New(),
		FromDate:     date(2025, time.March, 10),
		ToDate:       date(2025, time.March, 10),
		StartTime:    "09:00",
		EndTime:      "12:00",
		SlotDuration: 30,
	})
	if !errors.Is(err, ErrDoctorNotFound) {
		t.Fatalf("expected ErrDoctorNotFound, got %v", err)
	}
}

func TestBookSlot(t *testing.T) {
	svc, repo := newTestService()
	doctorID, patientID := seedDoctorPatient(t, repo)
	day := date(2025, time.March, 10)
	generate(t, svc, doctorID, day, "09:00", "09:40", 15)

	slots, err := svc.AvailableSlots(context.Background(), doctorID, day, "", "")
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}

	appt, err := svc.BookSlot(context.Background(), slots[1].ID, patientID, doctorID, nil)
	if err != nil {
		t.Fatalf("BookSlot: %v", err)
	}
	if appt.Status != StatusPending {
		t.Errorf("status = %s, want pending", appt.Status)
	}
	if appt.SlotID == nil || *appt.SlotID != slots[1].ID {
		t.Error("appointment does not reference the booked slot")
	}
	if appt.StartTime != slots[1].StartTime || appt.EndTime != slots[1].EndTime {
		t.Error("interval was not copied from the slot")
	}

	// Example scenario: booking the second slot leaves exactly the first and
	// third available, in chronological order.
	remaining, err := svc.AvailableSlots(context.Background(), doctorID, day, "", "")
	if err != nil {
		t.Fatalf("AvailableSlots after booking: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("remaining = %d, want 2", len(remaining))
	}
	if remaining[0].ID != slots[0].ID || remaining[1].ID != slots[2].ID {
		t.Error("expected first and third slots to remain")
	}
	for _, s := range remaining {
		if s.IsBooked {
			t.Error("availability returned a booked slot")
		}
	}

	if len(repo.events) == 0 || repo.events[len(repo.events)-1].EventType != EventAppointmentBooked {
		t.Error("booking did not log an event")
	}
}

func TestBookSlotConflict(t *testing.T) {
	svc, repo := newTestService()
	doctorID, patientID := seedDoctorPatient(t, repo)
	other, _ := repo.CreatePatient(context.Background(), "Jon Brandt", nil)
	day := date(2025, time.March, 10)
	generate(t, svc, doctorID, day, "09:00", "09:30", 30)

	slots, _ := svc.AvailableSlots(context.Background(), doctorID, day, "", "")
	if _, err := svc.BookSlot(context.Background(), slots[0].ID, patientID, doctorID, nil); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	_, err := svc.BookSlot(context.Background(), slots[0].ID, other.ID, doctorID, nil)
	if !errors.Is(err, ErrSlotBooked) {
		t.Fatalf("second booking: expected ErrSlotBooked, got %v", err)
	}

	// Exactly one appointment exists and the slot stayed booked.
	if len(repo.appts) != 1 {
		t.Fatalf("appointments = %d, want 1", len(repo.appts))
	}
	if !repo.slots[slots[0].ID].IsBooked {
		t.Error("slot is no longer booked")
	}
}

func TestBookSlotLockBusy(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, busyLocker{}, nil, zerolog.Nop())
	doctorID, patientID := seedDoctorPatient(t, repo)

	_, err := svc.BookSlot(context.Background(), uuid.New(), patientID, doctorID, nil)
	if !errors.Is(err, ErrSlotBeingBooked) {
		t.Fatalf("expected ErrSlotBeingBooked, got %v", err)
	}
}

func TestBookSlotUnknownPatient(t *testing.T) {
	svc, repo := newTestService()
	doctorID, _ := seedDoctorPatient(t, repo)

	_, err := svc.BookSlot(context.Background(), uuid.New(), uuid.New(), doctorID, nil)
	if !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestAvailableSlotsTimeBand(t *testing.T) {
	svc, repo := newTestService()
	doctorID, _ := seedDoctorPatient(t, repo)
	day := date(2025, time.March, 10)
	generate(t, svc, doctorID, day, "09:00", "12:00", 30)

	slots, err := svc.AvailableSlots(context.Background(), doctorID, day, "10:00", "11:00")
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("banded slots = %d, want 2", len(slots))
	}
	for _, s := range slots {
		if s.StartMinutes < 600 || s.EndMinutes > 660 {
			t.Errorf("slot [%s, %s) outside the requested band", s.StartTime, s.EndTime)
		}
	}

	if _, err := svc.AvailableSlots(context.Background(), doctorID, day, "10:00", ""); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("half-open band: expected ErrInvalidParams, got %v", err)
	}
}

func TestUpdateStatusAndCancel(t *testing.T) {
	svc, repo := newTestService()
	doctorID, patientID := seedDoctorPatient(t, repo)
	day := date(2025, time.March, 10)
	generate(t, svc, doctorID, day, "09:00", "09:30", 30)
	slots, _ := svc.AvailableSlots(context.Background(), doctorID, day, "", "")
	appt, _ := svc.BookSlot(context.Background(), slots[0].ID, patientID, doctorID, nil)

	confirmed, err := svc.UpdateStatus(context.Background(), appt.ID, StatusConfirmed)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != StatusConfirmed {
		t.Fatalf("status = %s, want confirmed", confirmed.Status)
	}

	if _, err := svc.UpdateStatus(context.Background(), appt.ID, "archived"); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("unknown status: expected ErrInvalidParams, got %v", err)
	}

	cancelled, err := svc.CancelAppointment(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}
	// Cancelling reopens the slot for other patients.
	if repo.slots[slots[0].ID].IsBooked {
		t.Error("slot still booked after cancellation")
	}

	// Terminal records stay terminal.
	if _, err := svc.UpdateStatus(context.Background(), appt.ID, StatusConfirmed); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("resurrect cancelled: expected ErrInvalidStatusTransition, got %v", err)
	}
}

func TestStatusSummaryPartition(t *testing.T) {
	svc, repo := newTestService()
	doctorID, patientID := seedDoctorPatient(t, repo)
	day := date(2025, time.March, 10)
	generate(t, svc, doctorID, day, "08:00", "12:00", 30)
	slots, _ := svc.AvailableSlots(context.Background(), doctorID, day, "", "")

	statuses := []AppointmentStatus{
		StatusPending, StatusConfirmed, StatusRescheduled, StatusCompleted, StatusCancelled,
	}
	for i, status := range statuses {
		appt, err := svc.BookSlot(context.Background(), slots[i].ID, patientID, doctorID, nil)
		if err != nil {
			t.Fatalf("book %d: %v", i, err)
		}
		if status != StatusPending {
			if _, err := svc.UpdateStatus(context.Background(), appt.ID, status); err != nil {
				t.Fatalf("move to %s: %v", status, err)
			}
		}
	}

	summary, err := svc.StatusSummary(context.Background(), SummaryScope{PatientID: &patientID})
	if err != nil {
		t.Fatalf("StatusSummary: %v", err)
	}
	if summary.Total != 5 {
		t.Fatalf("total = %d, want 5", summary.Total)
	}
	if summary.Upcoming+summary.Completed+summary.Cancelled != summary.Total {
		t.Fatalf("buckets do not partition the total: %+v", summary)
	}
	if summary.Upcoming != 3 || summary.Completed != 1 || summary.Cancelled != 1 {
		t.Fatalf("unexpected buckets: %+v", summary)
	}

	// Scoped to a stranger the summary is empty.
	stranger := uuid.New()
	empty, err := svc.StatusSummary(context.Background(), SummaryScope{PatientID: &stranger})
	if err != nil {
		t.Fatalf("StatusSummary: %v", err)
	}
	if empty.Total != 0 {
		t.Fatalf("stranger total = %d, want 0", empty.Total)
	}
}

func TestDashboardMetricsCache(t *testing.T) {
	repo := newMemRepo()
	cache := newMemCache()
	svc := NewService(repo, passLocker{}, cache, zerolog.Nop())
	doctorID, _ := seedDoctorPatient(t, repo)
	generate(t, svc, doctorID, date(2999, time.January, 4), "09:00", "10:00", 30)

	first, err := svc.DashboardMetrics(context.Background())
	if err != nil {
		t.Fatalf("DashboardMetrics: %v", err)
	}
	if first.Doctors != 1 || first.Patients != 1 || first.OpenSlots != 2 {
		t.Fatalf("unexpected metrics: %+v", first)
	}

	// Counter drift within the TTL is served from cache.
	repo.CreateDoctor(context.Background(), "Dr. Lindqvist", nil)
	second, err := svc.DashboardMetrics(context.Background())
	if err != nil {
		t.Fatalf("DashboardMetrics: %v", err)
	}
	if second.Doctors != first.Doctors {
		t.Fatalf("expected cached metrics, got %+v", second)
	}
}

func TestCompleteElapsedAppointments(t *testing.T) {
	svc, repo := newTestService()
	doctorID, patientID := seedDoctorPatient(t, repo)

	past := date(2020, time.May, 4)
	future := TruncateToDay(time.Now().AddDate(0, 0, 7))
	generate(t, svc, doctorID, past, "09:00", "09:30", 30)
	generate(t, svc, doctorID, future, "09:00", "09:30", 30)

	pastSlots, _ := svc.AvailableSlots(context.Background(), doctorID, past, "", "")
	futureSlots, _ := svc.AvailableSlots(context.Background(), doctorID, future, "", "")

	pastAppt, _ := svc.BookSlot(context.Background(), pastSlots[0].ID, patientID, doctorID, nil)
	futureAppt, _ := svc.BookSlot(context.Background(), futureSlots[0].ID, patientID, doctorID, nil)

	if err := svc.CompleteElapsedAppointments(context.Background()); err != nil {
		t.Fatalf("CompleteElapsedAppointments: %v", err)
	}

	if repo.appts[pastAppt.ID].Status != StatusCompleted {
		t.Errorf("past appointment status = %s, want completed", repo.appts[pastAppt.ID].Status)
	}
	if repo.appts[futureAppt.ID].Status != StatusPending {
		t.Errorf("future appointment status = %s, want pending", repo.appts[futureAppt.ID].Status)
	}
}

func TestBookSlotDoctorMismatch(t *testing.T) {
	svc, repo := newTestService()
	doctorID, patientID := seedDoctorPatient(t, repo)
	other, _ := repo.CreateDoctor(context.Background(), "Dr. Varga", nil)
	day := date(2025, time.March, 10)
	generate(t, svc, doctorID, day, "09:00", "09:30", 30)
	slots, _ := svc.AvailableSlots(context.Background(), doctorID, day, "", "")

	// The slot belongs to doctorID; booking it under another doctor must not
	// create a misattributed appointment.
	_, err := svc.BookSlot(context.Background(), slots[0].ID, patientID, other.ID, nil)
	if !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams, got %v", err)
	}
	if len(repo.appts) != 0 {
		t.Fatal("mismatched booking created an appointment")
	}
	if repo.slots[slots[0].ID].IsBooked {
		t.Error("mismatched booking left the slot consumed")
	}
}

// A slot whose last interval overruns midnight carries an end time past
// "23:59"; the elapsed scan must still pick the appointment up once the day
// is over.
func TestCompleteElapsedPastMidnight(t *testing.T) {
	svc, repo := newTestService()
	doctorID, patientID := seedDoctorPatient(t, repo)
	past := date(2020, time.May, 4)
	generate(t, svc, doctorID, past, "23:30", "23:50", 60)

	slots, _ := svc.AvailableSlots(context.Background(), doctorID, past, "", "")
	if len(slots) != 1 {
		t.Fatalf("slots = %d, want 1", len(slots))
	}
	if slots[0].EndTime != "24:30" {
		t.Fatalf("end time = %q, want 24:30", slots[0].EndTime)
	}

	appt, err := svc.BookSlot(context.Background(), slots[0].ID, patientID, doctorID, nil)
	if err != nil {
		t.Fatalf("BookSlot: %v", err)
	}

	if err := svc.CompleteElapsedAppointments(context.Background()); err != nil {
		t.Fatalf("CompleteElapsedAppointments: %v", err)
	}
	if repo.appts[appt.ID].Status != StatusCompleted {
		t.Errorf("status = %s, want completed", repo.appts[appt.ID].Status)
	}
}

func TestUpdateSlotTimes(t *testing.T) {
	svc, repo := newTestService()
	doctorID, patientID := seedDoctorPatient(t, repo)
	day := date(2025, time.March, 10)
	generate(t, svc, doctorID, day, "09:00", "10:00", 30)
	slots, _ := svc.AvailableSlots(context.Background(), doctorID, day, "", "")

	updated, err := svc.UpdateSlotTimes(context.Background(), slots[0].ID, "09:10", "09:40")
	if err != nil {
		t.Fatalf("UpdateSlotTimes: %v", err)
	}
	// Derived minute fields track the new wall-clock interval.
	if updated.StartMinutes != 550 || updated.EndMinutes != 580 {
		t.Fatalf("minutes = [%d, %d), want [550, 580)", updated.StartMinutes, updated.EndMinutes)
	}

	if _, err := svc.UpdateSlotTimes(context.Background(), slots[1].ID, "11:00", "10:00"); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("inverted interval: expected ErrInvalidParams, got %v", err)
	}

	if _, err := svc.BookSlot(context.Background(), slots[1].ID, patientID, doctorID, nil); err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, err := svc.UpdateSlotTimes(context.Background(), slots[1].ID, "10:00", "10:30"); !errors.Is(err, ErrSlotBooked) {
		t.Fatalf("edit booked slot: expected ErrSlotBooked, got %v", err)
	}
	if err := svc.DeleteSlot(context.Background(), slots[1].ID); !errors.Is(err, ErrSlotBooked) {
		t.Fatalf("delete booked slot: expected ErrSlotBooked, got %v", err)
	}
}
