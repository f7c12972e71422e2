package sla

import (
	"os"
	"testing"
	"time"

	"github.com/campusdesk-io/campusdesk/internal/config"
)

func mustClock(t *testing.T, cfg config.SLAConfig) *Clock {
	t.Helper()
	clock, err := NewClock(cfg)
	if err != nil {
		t.Fatalf("NewClock: %v", err)
	}
	return clock
}

func TestComputeDueAtTwentyFourSeven(t *testing.T) {
	clock := mustClock(t, config.SLAConfig{TwentyFourSeven: true})

	start := time.Date(2025, 3, 7, 16, 0, 0, 0, time.UTC) // Friday 16:00
	got := clock.ComputeDueAt(start, 48)
	want := start.Add(48 * time.Hour)
	if !got.Equal(want) {
		t.Fatalf("ComputeDueAt = %v, want %v", got, want)
	}
}

func TestComputeDueAtZeroHoursReturnsStart(t *testing.T) {
	clock := mustClock(t, config.SLAConfig{})

	start := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	if got := clock.ComputeDueAt(start, 0); !got.Equal(start) {
		t.Fatalf("ComputeDueAt(0) = %v, want start %v", got, start)
	}
	if got := clock.ComputeDueAt(start, -3); !got.Equal(start) {
		t.Fatalf("ComputeDueAt(-3) = %v, want start %v", got, start)
	}
}

func TestComputeDueAtSkipsWeekend(t *testing.T) {
	// Default calendar: Mon-Fri 09:00-18:00, nine working hours a day.
	clock := mustClock(t, config.SLAConfig{})

	// Friday 2025-03-07 16:00. Four business hours: two remain on Friday
	// (16:00-18:00), the other two land Monday morning.
	start := time.Date(2025, 3, 7, 16, 0, 0, 0, time.UTC)
	got := clock.ComputeDueAt(start, 4)

	want := time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC) // Monday 11:00
	if !got.Equal(want) {
		t.Fatalf("ComputeDueAt = %v, want %v", got, want)
	}
}

func TestComputeDueAtSpansMultipleDays(t *testing.T) {
	clock := mustClock(t, config.SLAConfig{})

	// Monday 2025-03-03 09:00 plus 18 business hours = two full working days.
	start := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	got := clock.ComputeDueAt(start, 18)

	want := time.Date(2025, 3, 4, 18, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("ComputeDueAt = %v, want %v", got, want)
	}
}

func TestComputeDueAtStartOutsideBusinessHours(t *testing.T) {
	clock := mustClock(t, config.SLAConfig{})

	// Saturday morning: the window only starts counting Monday 09:00.
	start := time.Date(2025, 3, 8, 8, 0, 0, 0, time.UTC)
	got := clock.ComputeDueAt(start, 2)

	want := time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("ComputeDueAt = %v, want %v", got, want)
	}
}

func TestComputeDueAtSkipsHolidays(t *testing.T) {
	clock := mustClock(t, config.SLAConfig{
		Holidays: []config.HolidayConfig{
			{Name: "Founders Day", Month: 3, Day: 4},
		},
	})

	// Monday 17:00 plus 2 business hours. One hour remains Monday; Tuesday is
	// a holiday, so the second hour lands Wednesday 09:00-10:00.
	start := time.Date(2025, 3, 3, 17, 0, 0, 0, time.UTC)
	got := clock.ComputeDueAt(start, 2)

	want := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("ComputeDueAt = %v, want %v", got, want)
	}
}

func TestNewClockCustomWorkingHours(t *testing.T) {
	clock := mustClock(t, config.SLAConfig{
		WorkingHours: map[string][]int{
			"Mon": {8, 9, 10, 11},
			"Tue": {8, 9, 10, 11},
			"Wed": {},
			"Thu": {8, 9, 10, 11},
			"Fri": {8, 9, 10, 11},
			"Sat": {},
			"Sun": {},
		},
	})

	if !clock.IsBusinessTime(time.Date(2025, 3, 3, 8, 30, 0, 0, time.UTC)) {
		t.Fatal("Monday 08:30 should be business time")
	}
	if clock.IsBusinessTime(time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)) {
		t.Fatal("Wednesday should not be a workday")
	}
	if clock.IsBusinessTime(time.Date(2025, 3, 3, 13, 0, 0, 0, time.UTC)) {
		t.Fatal("Monday 13:00 is past the 12:00 cutoff")
	}
}

func TestNewClockRejectsBadConfig(t *testing.T) {
	if _, err := NewClock(config.SLAConfig{
		WorkingHours: map[string][]int{"Monday": {9}},
	}); err == nil {
		t.Fatal("expected error for unknown weekday name")
	}

	if _, err := NewClock(config.SLAConfig{
		WorkingHours: map[string][]int{"Mon": {25}},
	}); err == nil {
		t.Fatal("expected error for out-of-range hour")
	}
}

func TestNewClockCalendarFileOverridesInline(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/calendar.yaml"
	doc := `working_hours:
  Mon: [9, 10]
  Tue: []
  Wed: []
  Thu: []
  Fri: []
  Sat: []
  Sun: []
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write calendar file: %v", err)
	}

	clock := mustClock(t, config.SLAConfig{
		WorkingHours: map[string][]int{"Mon": {14, 15}},
		CalendarFile: path,
	})

	if !clock.IsBusinessTime(time.Date(2025, 3, 3, 9, 30, 0, 0, time.UTC)) {
		t.Fatal("file hours should apply: Monday 09:30")
	}
	if clock.IsBusinessTime(time.Date(2025, 3, 3, 14, 30, 0, 0, time.UTC)) {
		t.Fatal("inline hours should have been overridden by the file")
	}
}
