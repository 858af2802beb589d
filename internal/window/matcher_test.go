package window_test

import (
	"errors"
	"testing"
	"time"

	"github.com/notifyhub/weekly-dispatch/internal/domain"
	"github.com/notifyhub/weekly-dispatch/internal/window"
)

// localInstant builds a wall-clock time in tz and returns the absolute instant.
func localInstant(t *testing.T, tz string, y int, m time.Month, d, hh, mm int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation(tz)
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	return time.Date(y, m, d, hh, mm, 0, 0, loc).UTC()
}

func TestIsDue_DayAndTolerance(t *testing.T) {
	const ny = "America/New_York"
	monday9 := domain.Schedule{Enabled: true, Day: domain.Monday, Time: "09:00", Timezone: ny}

	// 2025-06-02 is a Monday, 2025-06-03 a Tuesday.
	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"exact minute", localInstant(t, ny, 2025, time.June, 2, 9, 0), true},
		{"four minutes late", localInstant(t, ny, 2025, time.June, 2, 9, 4), true},
		{"five minutes late", localInstant(t, ny, 2025, time.June, 2, 9, 5), true},
		{"six minutes late", localInstant(t, ny, 2025, time.June, 2, 9, 6), false},
		{"five minutes early", localInstant(t, ny, 2025, time.June, 2, 8, 55), true},
		{"six minutes early", localInstant(t, ny, 2025, time.June, 2, 8, 54), false},
		{"wrong day same time", localInstant(t, ny, 2025, time.June, 3, 9, 0), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := window.IsDue(tc.now, monday9); got != tc.want {
				t.Fatalf("want %v, got %v", tc.want, got)
			}
		})
	}
}

// TestIsDue_UsesUserZoneNotServerZone checks a UTC instant that is Monday
// 09:00 in Tokyo but still Sunday in UTC.
func TestIsDue_UsesUserZoneNotServerZone(t *testing.T) {
	s := domain.Schedule{Day: domain.Monday, Time: "09:00", Timezone: "Asia/Tokyo"}
	now := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC) // 09:00 JST Monday
	if !window.IsDue(now, s) {
		t.Fatal("expected due in Asia/Tokyo")
	}

	utc := s
	utc.Timezone = "UTC"
	if window.IsDue(now, utc) {
		t.Fatal("expected not due when evaluated in UTC")
	}
}

// TestIsDue_MidnightBoundary reproduces the documented false negative: the
// day filter rejects the run before the time filter is considered.
func TestIsDue_MidnightBoundary(t *testing.T) {
	const tz = "Europe/Berlin"
	s := domain.Schedule{Day: domain.Saturday, Time: "23:58", Timezone: tz}

	// 2025-06-08 is a Sunday.
	now := localInstant(t, tz, 2025, time.June, 8, 0, 2)
	if window.IsDue(now, s) {
		t.Fatal("expected not due across the midnight boundary")
	}

	ev, err := window.NewMatcher(window.DefaultTolerance).Evaluate(now, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.DayMatch {
		t.Fatal("expected day filter to reject")
	}
}

// TestIsDue_FollowsDST uses a fixed UTC hour on both sides of the US spring
// transition; only the side where it maps to 09:00 local is due.
func TestIsDue_FollowsDST(t *testing.T) {
	s := domain.Schedule{Day: domain.Monday, Time: "09:00", Timezone: "America/New_York"}

	// 2025-03-03 Monday, EST (UTC-5): 14:00Z == 09:00 local.
	before := time.Date(2025, time.March, 3, 14, 0, 0, 0, time.UTC)
	// 2025-03-10 Monday, EDT (UTC-4): 14:00Z == 10:00 local, 13:00Z == 09:00.
	afterWrong := time.Date(2025, time.March, 10, 14, 0, 0, 0, time.UTC)
	afterRight := time.Date(2025, time.March, 10, 13, 0, 0, 0, time.UTC)

	if !window.IsDue(before, s) {
		t.Fatal("expected due before DST change")
	}
	if window.IsDue(afterWrong, s) {
		t.Fatal("expected a fixed offset to miss after DST change")
	}
	if !window.IsDue(afterRight, s) {
		t.Fatal("expected due at 09:00 EDT")
	}
}

func TestEvaluate_Errors(t *testing.T) {
	m := window.NewMatcher(0)
	if m.Tolerance() != window.DefaultTolerance {
		t.Fatalf("expected default tolerance, got %d", m.Tolerance())
	}

	now := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC) // Monday

	_, err := m.Evaluate(now, domain.Schedule{Day: domain.Monday, Time: "09:00", Timezone: "Nowhere/Town"})
	if !errors.Is(err, domain.ErrInvalidTimezone) {
		t.Fatalf("expected ErrInvalidTimezone, got %v", err)
	}

	_, err = m.Evaluate(now, domain.Schedule{Day: domain.Monday, Time: "nine"})
	if !errors.Is(err, domain.ErrInvalidTime) {
		t.Fatalf("expected ErrInvalidTime, got %v", err)
	}

	// A bad time on another day is simply not due.
	ev, err := m.Evaluate(now, domain.Schedule{Day: domain.Friday, Time: "nine"})
	if err != nil || ev.Due {
		t.Fatalf("expected not due without error, got due=%v err=%v", ev.Due, err)
	}
}

func TestEvaluation_LocalDate(t *testing.T) {
	s := domain.Schedule{Day: domain.Monday, Time: "00:03", Timezone: "Pacific/Auckland"}
	// 2025-06-01 12:00Z is 2025-06-02 00:00 NZST (UTC+12), a Monday.
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

	ev, err := window.NewMatcher(5).Evaluate(now, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ev.Due {
		t.Fatalf("expected due, delta=%d", ev.Delta)
	}
	if got := ev.LocalDate(); got != "2025-06-02" {
		t.Fatalf("expected local date 2025-06-02, got %s", got)
	}
}
