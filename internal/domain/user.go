package domain

import (
	"strings"
	"time"
)

// User is the subset of an account the dispatcher needs.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Schedule  Schedule  `json:"schedule"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName falls back to the mailbox part of the address.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if local, _, ok := strings.Cut(u.Email, "@"); ok && local != "" {
		return local
	}
	return "there"
}

// UpdateScheduleRequest is the inbound settings payload.
type UpdateScheduleRequest struct {
	Enabled     bool        `json:"enabled"`
	Day         string      `json:"day"`
	Time        string      `json:"time"`
	Timezone    string      `json:"timezone"`
	ItemCount   int         `json:"itemCount"`
	Preferences Preferences `json:"preferences"`
}

// ToSchedule validates the request and returns the normalized schedule.
func (r *UpdateScheduleRequest) ToSchedule() (Schedule, error) {
	day, err := ParseWeekday(r.Day)
	if err != nil {
		return Schedule{}, err
	}
	tz := strings.TrimSpace(r.Timezone)
	if tz == "" {
		tz = DefaultTimezone
	}
	s := Schedule{
		Enabled:     r.Enabled,
		Day:         day,
		Time:        strings.TrimSpace(r.Time),
		Timezone:    tz,
		ItemCount:   r.ItemCount,
		Preferences: r.Preferences.Normalize(),
	}
	if err := s.Validate(); err != nil {
		return Schedule{}, err
	}
	mins, _ := s.MinuteOfDay()
	s.Time = FormatClock(mins)
	return s, nil
}
