package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyhub/weekly-dispatch/internal/domain"
	"github.com/notifyhub/weekly-dispatch/internal/repository"
)

// OutcomeLog appends immutable outcome records.
type OutcomeLog struct {
	repo   repository.OutcomeRepository
	logger *zap.Logger
}

func NewOutcomeLog(repo repository.OutcomeRepository, logger *zap.Logger) *OutcomeLog {
	return &OutcomeLog{repo: repo, logger: logger}
}

// Record validates and appends o, assigning an ID if it has none.
// Re-recording an outcome for a slot that already has one is a no-op.
func (l *OutcomeLog) Record(ctx context.Context, o *domain.Outcome) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if err := o.Validate(); err != nil {
		return err
	}

	err := l.repo.Append(ctx, o)
	if errors.Is(err, domain.ErrConflict) {
		l.logger.Info("outcome already recorded for slot",
			zap.String("user_id", o.UserID),
			zap.Stringp("slot_id", o.SlotID),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("append outcome: %w", err)
	}
	return nil
}

// List returns a page of outcomes, newest first.
func (l *OutcomeLog) List(ctx context.Context, f domain.OutcomeFilter) ([]*domain.Outcome, int, error) {
	return l.repo.List(ctx, f)
}
