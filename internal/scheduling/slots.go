package scheduling

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidParams marks request-level validation failures. Callers can match
// it with errors.Is to distinguish bad input from persistence failures.
var ErrInvalidParams = errors.New("invalid parameters")

const minutesPerDay = 24 * 60

// ParseClock converts an HH:MM wall-clock string to minute-of-day.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w: time %q is not HH:MM", ErrInvalidParams, s)
	}
	h, hErr := strconv.Atoi(s[:2])
	m, mErr := strconv.Atoi(s[3:])
	if hErr != nil || mErr != nil {
		return 0, fmt.Errorf("%w: time %q is not HH:MM", ErrInvalidParams, s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: time %q out of range", ErrInvalidParams, s)
	}
	return h*60 + m, nil
}

// FormatClock renders minute-of-day as HH:MM. Values past midnight are
// rendered as-is (e.g. 1440 -> "24:00"): the last slot of a day may overrun
// the window and, near midnight, the day itself.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// GenerateParams describes one slot-generation request: the same daily window
// is applied to every calendar day in [FromDate, ToDate].
type GenerateParams struct {
	DoctorID     uuid.UUID
	FromDate     time.Time
	ToDate       time.Time
	StartTime    string
	EndTime      string
	SlotDuration int // minutes
}

func (p GenerateParams) Validate() error {
	if p.DoctorID == uuid.Nil {
		return fmt.Errorf("%w: doctor id is required", ErrInvalidParams)
	}
	if p.SlotDuration <= 0 {
		return fmt.Errorf("%w: slot duration must be a positive number of minutes", ErrInvalidParams)
	}
	// Unbounded durations would overflow the cursor arithmetic; nothing
	// longer than a day fits a daily window anyway.
	if p.SlotDuration > minutesPerDay {
		return fmt.Errorf("%w: slot duration must not exceed %d minutes", ErrInvalidParams, minutesPerDay)
	}
	if p.FromDate.IsZero() || p.ToDate.IsZero() {
		return fmt.Errorf("%w: from and to dates are required", ErrInvalidParams)
	}
	if TruncateToDay(p.ToDate).Before(TruncateToDay(p.FromDate)) {
		return fmt.Errorf("%w: from date is after to date", ErrInvalidParams)
	}
	start, err := ParseClock(p.StartTime)
	if err != nil {
		return err
	}
	end, err := ParseClock(p.EndTime)
	if err != nil {
		return err
	}
	if start >= end {
		return fmt.Errorf("%w: start time %s is not before end time %s", ErrInvalidParams, p.StartTime, p.EndTime)
	}
	return nil
}

// TruncateToDay drops the time-of-day component, keeping the calendar date in UTC.
func TruncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ExpandSlots partitions the daily window into fixed-width slots for every day
// in the range. The cursor test happens at slot start only, so when the window
// does not divide evenly the last slot of a day extends past the window end
// rather than being clipped. Params must already be validated.
func ExpandSlots(p GenerateParams) []Slot {
	windowStart, _ := ParseClock(p.StartTime)
	windowEnd, _ := ParseClock(p.EndTime)

	from := TruncateToDay(p.FromDate)
	to := TruncateToDay(p.ToDate)

	var slots []Slot
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if windowEnd <= windowStart {
			continue
		}
		for cursor := windowStart; cursor < windowEnd; cursor += p.SlotDuration {
			end := cursor + p.SlotDuration
			slots = append(slots, Slot{
				ID:           uuid.New(),
				DoctorID:     p.DoctorID,
				Date:         d,
				Day:          d.Weekday().String(),
				StartTime:    FormatClock(cursor),
				EndTime:      FormatClock(end),
				StartMinutes: cursor,
				EndMinutes:   end,
			})
		}
	}
	return slots
}
