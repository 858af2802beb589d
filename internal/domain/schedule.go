package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DefaultTimezone is applied when a schedule carries no zone name.
const DefaultTimezone = "UTC"

// AllowedItemCounts are the batch sizes a user can pick in settings.
var AllowedItemCounts = []int{3, 5, 10}

// Preferences steer the content generator. Each field is treated as a set.
type Preferences struct {
	FocusAreas       []string `json:"focusAreas"`
	AvoidTopics      []string `json:"avoidTopics"`
	PreferredFormats []string `json:"preferredFormats"`
}

// Normalize trims entries and drops blanks and duplicates, keeping first-seen order.
func (p Preferences) Normalize() Preferences {
	return Preferences{
		FocusAreas:       uniqueStrings(p.FocusAreas),
		AvoidTopics:      uniqueStrings(p.AvoidTopics),
		PreferredFormats: uniqueStrings(p.PreferredFormats),
	}
}

// Schedule is the weekly delivery slot owned by a user account.
// Time is always interpreted in Timezone, never in the server's zone.
type Schedule struct {
	Enabled     bool        `json:"enabled"`
	Day         Weekday     `json:"day"`
	Time        string      `json:"time"`
	Timezone    string      `json:"timezone"`
	ItemCount   int         `json:"itemCount"`
	Preferences Preferences `json:"preferences"`
}

// Location resolves the schedule's IANA zone. An empty name means UTC.
func (s Schedule) Location() (*time.Location, error) {
	name := strings.TrimSpace(s.Timezone)
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, name)
	}
	return loc, nil
}

// MinuteOfDay parses Time into minutes since local midnight.
func (s Schedule) MinuteOfDay() (int, error) {
	return ParseClock(s.Time)
}

// SlotID identifies the recurring weekly coordinate, e.g. "monday@09:00".
func (s Schedule) SlotID() string {
	return s.Day.String() + "@" + strings.TrimSpace(s.Time)
}

// Validate checks a schedule submitted through settings.
func (s Schedule) Validate() error {
	if !s.Day.IsValid() {
		return ErrInvalidDay
	}
	if _, err := ParseClock(s.Time); err != nil {
		return err
	}
	if _, err := s.Location(); err != nil {
		return err
	}
	if !slices.Contains(AllowedItemCounts, s.ItemCount) {
		return ErrInvalidItemCount
	}
	return nil
}

// ParseClock parses a 24h "HH:MM" string into minutes since midnight.
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 || !allDigits(hh) || !allDigits(mm) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: invalid hour in %q", ErrInvalidTime, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: invalid minute in %q", ErrInvalidTime, s)
	}
	return h*60 + m, nil
}

func allDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// FormatClock renders minutes since midnight as HH:MM.
func FormatClock(mins int) string {
	if mins < 0 {
		mins = 0
	}
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

func uniqueStrings(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
