package repository

import (
	"context"

	"github.com/notifyhub/weekly-dispatch/internal/domain"
)

// UserRepository reads scheduled users and stores settings changes.
// The pgx implementation is in pg_user_repo.go.
// Tests use a hand-written mock (mock_user_repo.go).
type UserRepository interface {
	// ListScheduled returns every user whose schedule is enabled.
	ListScheduled(ctx context.Context) ([]*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdateSchedule(ctx context.Context, id string, s domain.Schedule) error
}

// OutcomeRepository persists slot claims and the append-only outcome log.
// Implementations must be safe for concurrent use by dispatch workers.
type OutcomeRepository interface {
	// ClaimSlot reserves the claim's (user, local date, slot) identity.
	// It returns domain.ErrSlotClaimed if the identity is already taken.
	ClaimSlot(ctx context.Context, c *domain.SlotClaim) error
	// Append inserts an outcome. A second outcome for the same slot
	// returns domain.ErrConflict.
	Append(ctx context.Context, o *domain.Outcome) error
	List(ctx context.Context, filter domain.OutcomeFilter) ([]*domain.Outcome, int, error)
}
