package scheduling

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:00", 540, false},
		{"23:59", 1439, false},
		{"9:00", 0, true},
		{"09:60", 0, true},
		{"24:00", 0, true},
		{"09-00", 0, true},
		{"09:0a", 0, true},
		{"", 0, true},
	}

	for _, tc := range cases {
		got, err := ParseClock(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseClock(%q): expected error, got %d", tc.in, got)
			} else if !errors.Is(err, ErrInvalidParams) {
				t.Errorf("ParseClock(%q): error %v is not ErrInvalidParams", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseClock(%q): unexpected error %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseClock(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	if got := FormatClock(585); got != "09:45" {
		t.Errorf("FormatClock(585) = %q, want 09:45", got)
	}
	// Overrun past midnight is rendered as-is.
	if got := FormatClock(1440); got != "24:00" {
		t.Errorf("FormatClock(1440) = %q, want 24:00", got)
	}
}

// The window does not divide evenly: the last slot starts inside the window
// and runs past its end instead of being clipped.
func TestExpandSlotsUnevenWindow(t *testing.T) {
	p := GenerateParams{
		DoctorID:     uuid.New(),
		FromDate:     date(2025, time.March, 10),
		ToDate:       date(2025, time.March, 10),
		StartTime:    "09:00",
		EndTime:      "09:40",
		SlotDuration: 15,
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	slots := ExpandSlots(p)
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}

	wantTimes := [][2]string{
		{"09:00", "09:15"},
		{"09:15", "09:30"},
		{"09:30", "09:45"},
	}
	for i, s := range slots {
		if s.StartTime != wantTimes[i][0] || s.EndTime != wantTimes[i][1] {
			t.Errorf("slot %d: got [%s, %s), want [%s, %s)", i, s.StartTime, s.EndTime, wantTimes[i][0], wantTimes[i][1])
		}
		if s.Day != "Monday" {
			t.Errorf("slot %d: day = %q, want Monday", i, s.Day)
		}
		if s.DoctorID != p.DoctorID {
			t.Errorf("slot %d: wrong doctor id", i)
		}
		if s.IsBooked {
			t.Errorf("slot %d: freshly generated slot is booked", i)
		}
	}
}

func TestExpandSlotsProperties(t *testing.T) {
	cases := []struct {
		name     string
		start    string
		end      string
		duration int
		days     int
		perDay   int
	}{
		{"even partition", "09:00", "12:00", 30, 1, 6},
		{"uneven partition", "09:00", "09:40", 15, 1, 3},
		{"single slot", "14:00", "14:30", 30, 1, 1},
		{"multi day", "08:00", "10:00", 60, 4, 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := GenerateParams{
				DoctorID:     uuid.New(),
				FromDate:     date(2025, time.June, 2),
				ToDate:       date(2025, time.June, 2).AddDate(0, 0, tc.days-1),
				StartTime:    tc.start,
				EndTime:      tc.end,
				SlotDuration: tc.duration,
			}
			if err := p.Validate(); err != nil {
				t.Fatalf("Validate: %v", err)
			}

			slots := ExpandSlots(p)
			if len(slots) != tc.days*tc.perDay {
				t.Fatalf("expected %d slots, got %d", tc.days*tc.perDay, len(slots))
			}

			for i, s := range slots {
				if s.EndMinutes-s.StartMinutes != tc.duration {
					t.Errorf("slot %d: width %d, want %d", i, s.EndMinutes-s.StartMinutes, tc.duration)
				}
				if s.Day != s.Date.Weekday().String() {
					t.Errorf("slot %d: day %q does not match date %s", i, s.Day, s.Date)
				}
				if i == 0 {
					continue
				}
				prev := slots[i-1]
				switch {
				case s.Date.Equal(prev.Date):
					// Contiguous within a day: no gaps, no overlaps.
					if s.StartMinutes != prev.EndMinutes {
						t.Errorf("slot %d: starts at %d, previous ended at %d", i, s.StartMinutes, prev.EndMinutes)
					}
				case s.Date.After(prev.Date):
					if s.StartMinutes != slots[0].StartMinutes {
						t.Errorf("slot %d: new day does not restart at window start", i)
					}
				default:
					t.Errorf("slot %d: dates out of order", i)
				}
			}
		})
	}
}

func TestValidateRejectsBadParams(t *testing.T) {
	valid := GenerateParams{
		DoctorID:     uuid.New(),
		FromDate:     date(2025, time.March, 10),
		ToDate:       date(2025, time.March, 12),
		StartTime:    "09:00",
		EndTime:      "17:00",
		SlotDuration: 30,
	}

	cases := []struct {
		name   string
		mutate func(*GenerateParams)
	}{
		{"zero duration", func(p *GenerateParams) { p.SlotDuration = 0 }},
		{"negative duration", func(p *GenerateParams) { p.SlotDuration = -15 }},
		{"duration over a day", func(p *GenerateParams) { p.SlotDuration = 1441 }},
		// Would overflow the cursor arithmetic and wrap into negative minutes.
		{"absurd duration", func(p *GenerateParams) { p.SlotDuration = math.MaxInt }},
		{"missing doctor", func(p *GenerateParams) { p.DoctorID = uuid.Nil }},
		{"from after to", func(p *GenerateParams) { p.FromDate = date(2025, time.March, 13) }},
		{"start after end", func(p *GenerateParams) { p.StartTime = "18:00" }},
		{"start equals end", func(p *GenerateParams) { p.StartTime = "17:00" }},
		{"bad start time", func(p *GenerateParams) { p.StartTime = "9am" }},
		{"bad end time", func(p *GenerateParams) { p.EndTime = "25:00" }},
		{"zero dates", func(p *GenerateParams) { p.FromDate = time.Time{}; p.ToDate = time.Time{} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := valid
			tc.mutate(&p)
			err := p.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrInvalidParams) {
				t.Fatalf("error %v is not ErrInvalidParams", err)
			}
		})
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("valid params rejected: %v", err)
	}
}

func TestTruncateToDay(t *testing.T) {
	in := time.Date(2025, time.March, 10, 14, 35, 12, 99, time.UTC)
	got := TruncateToDay(in)
	if !got.Equal(date(2025, time.March, 10)) {
		t.Errorf("TruncateToDay = %s", got)
	}
}
