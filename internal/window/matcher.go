// Package window decides whether a user's weekly slot is due at a given instant.
//
// The check is deliberately literal: the run instant is converted to the
// user's wall clock with full IANA rules, the local weekday must equal the
// scheduled day exactly, and the absolute minute-of-day difference must be
// within the tolerance. There is no wrap-around across midnight, so a slot at
// 23:58 is never matched by a run at 00:02 the following local day.
package window

import (
	"time"

	"github.com/notifyhub/weekly-dispatch/internal/domain"
)

// DefaultTolerance is the half-width of the match window in minutes. It
// assumes the trigger fires at least every five minutes.
const DefaultTolerance = 5

// Evaluation explains a single match decision.
type Evaluation struct {
	Due             bool
	DayMatch        bool
	Local           time.Time
	LocalDay        domain.Weekday
	LocalMinute     int
	ScheduledMinute int
	Delta           int
}

// LocalDate is the user's calendar date at the run instant (YYYY-MM-DD).
func (e Evaluation) LocalDate() string {
	return e.Local.Format(time.DateOnly)
}

// Matcher evaluates schedules against a run instant.
type Matcher struct {
	tolerance int
}

// NewMatcher returns a Matcher with the given tolerance in minutes.
// Non-positive values fall back to DefaultTolerance.
func NewMatcher(toleranceMinutes int) *Matcher {
	if toleranceMinutes <= 0 {
		toleranceMinutes = DefaultTolerance
	}
	return &Matcher{tolerance: toleranceMinutes}
}

// Tolerance reports the configured window half-width in minutes.
func (m *Matcher) Tolerance() int { return m.tolerance }

// Evaluate converts now into the schedule's zone and applies the day and
// time filters in that order. It fails only when the zone cannot be loaded
// or, on the scheduled day, when the time cannot be parsed.
func (m *Matcher) Evaluate(now time.Time, s domain.Schedule) (Evaluation, error) {
	loc, err := s.Location()
	if err != nil {
		return Evaluation{}, err
	}

	local := now.In(loc)
	ev := Evaluation{
		Local:       local,
		LocalDay:    domain.WeekdayOf(local.Weekday()),
		LocalMinute: local.Hour()*60 + local.Minute(),
	}

	if ev.LocalDay != s.Day {
		return ev, nil
	}
	ev.DayMatch = true

	scheduled, err := s.MinuteOfDay()
	if err != nil {
		return ev, err
	}
	ev.ScheduledMinute = scheduled
	ev.Delta = abs(scheduled - ev.LocalMinute)
	ev.Due = ev.Delta <= m.tolerance
	return ev, nil
}

// IsDue reports whether s is due at now. Schedules that cannot be
// evaluated are never due.
func (m *Matcher) IsDue(now time.Time, s domain.Schedule) bool {
	ev, err := m.Evaluate(now, s)
	return err == nil && ev.Due
}

var defaultMatcher = NewMatcher(DefaultTolerance)

// IsDue applies the default five-minute tolerance.
func IsDue(now time.Time, s domain.Schedule) bool {
	return defaultMatcher.IsDue(now, s)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
