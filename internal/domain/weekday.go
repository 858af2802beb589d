package domain

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is the closed set of days a weekly slot can target.
// The zero value is Sunday so it lines up with time.Weekday.
type Weekday int

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var weekdayNames = [...]string{
	"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday",
}

// WeekdayOf returns the Weekday for a time.Weekday.
func WeekdayOf(d time.Weekday) Weekday {
	return Weekday(d)
}

// ParseWeekday accepts a full English day name in any case.
func ParseWeekday(s string) (Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range weekdayNames {
		if s == name {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDay, s)
}

func (d Weekday) IsValid() bool {
	return d >= Sunday && d <= Saturday
}

func (d Weekday) String() string {
	if !d.IsValid() {
		return fmt.Sprintf("weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

func (d Weekday) MarshalText() ([]byte, error) {
	if !d.IsValid() {
		return nil, ErrInvalidDay
	}
	return []byte(d.String()), nil
}

func (d *Weekday) UnmarshalText(b []byte) error {
	parsed, err := ParseWeekday(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
