package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict: record already exists")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidDay       = errors.New("invalid day: must be one of sunday..saturday")
	ErrInvalidTime      = errors.New("invalid time: must be HH:MM (24h)")
	ErrInvalidTimezone  = errors.New("invalid timezone: must be an IANA zone name")
	ErrInvalidItemCount = errors.New("invalid item count: must be 3, 5, or 10")
	ErrInvalidOutcome   = errors.New("outcome violates status invariants")

	// Dispatch pipeline classification.
	ErrSlotClaimed      = errors.New("slot already claimed for this window")
	ErrGenerationFailed = errors.New("generation failed")
	ErrDeliveryFailed   = errors.New("delivery failed")
	ErrPopulationLoad   = errors.New("cannot load scheduled user population")
)
