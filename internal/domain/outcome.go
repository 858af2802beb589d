package domain

import (
	"fmt"
	"time"
)

// OutcomeStatus is the terminal state of one dispatch attempt.
type OutcomeStatus string

const (
	OutcomeDelivered OutcomeStatus = "delivered"
	OutcomeFailed    OutcomeStatus = "failed"
)

// Failure reasons written to outcome records.
const (
	ReasonGenerationFailed = "generation failed"
	ReasonDeliveryFailed   = "delivery failed"
)

// Outcome is the append-only record of serving one user in one run.
// Delivered outcomes carry DeliveredAt and no FailureReason; failed
// outcomes always carry a FailureReason.
type Outcome struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	RunID         string        `json:"run_id"`
	SlotID        *string       `json:"slot_id,omitempty"`
	Subject       string        `json:"subject"`
	Recipient     string        `json:"recipient"`
	Status        OutcomeStatus `json:"status"`
	ItemCount     int           `json:"item_count"`
	AttemptedAt   time.Time     `json:"attempted_at"`
	DeliveredAt   *time.Time    `json:"delivered_at,omitempty"`
	FailureReason *string       `json:"failure_reason,omitempty"`
	ProviderMsgID *string       `json:"provider_message_id,omitempty"`
}

// Validate enforces the status invariants before a record is appended.
func (o *Outcome) Validate() error {
	if o.UserID == "" {
		return fmt.Errorf("%w: missing user id", ErrInvalidOutcome)
	}
	switch o.Status {
	case OutcomeDelivered:
		if o.DeliveredAt == nil {
			return fmt.Errorf("%w: delivered outcome without delivered_at", ErrInvalidOutcome)
		}
		if o.FailureReason != nil {
			return fmt.Errorf("%w: delivered outcome with failure reason", ErrInvalidOutcome)
		}
	case OutcomeFailed:
		if o.FailureReason == nil || *o.FailureReason == "" {
			return fmt.Errorf("%w: failed outcome without failure reason", ErrInvalidOutcome)
		}
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidOutcome, o.Status)
	}
	if o.ItemCount < 0 {
		return fmt.Errorf("%w: negative item count", ErrInvalidOutcome)
	}
	return nil
}

// SlotClaim reserves one (user, local date, slot) coordinate so a slot
// fires at most once even when adjacent runs both see it as due.
type SlotClaim struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	LocalDate string    `json:"local_date"` // YYYY-MM-DD in the user's zone
	Slot      string    `json:"slot"`
	RunID     string    `json:"run_id"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// Key is the uniqueness identity of the claim.
func (c SlotClaim) Key() string {
	return c.UserID + "|" + c.LocalDate + "|" + c.Slot
}

// OutcomeFilter holds query parameters for the paginated history listing.
type OutcomeFilter struct {
	UserID string
	Status *OutcomeStatus
	Page   int
	Limit  int
}
