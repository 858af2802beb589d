package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/notifyhub/weekly-dispatch/internal/domain"
	"github.com/notifyhub/weekly-dispatch/internal/repository"
)

// OutcomeLister is the read side of the outcome log.
type OutcomeLister interface {
	List(ctx context.Context, f domain.OutcomeFilter) ([]*domain.Outcome, int, error)
}

// ScheduleService owns the settings and history use cases. HTTP handlers
// depend on it rather than on the repositories directly.
type ScheduleService struct {
	users    repository.UserRepository
	outcomes OutcomeLister
	logger   *zap.Logger
}

func NewScheduleService(users repository.UserRepository, outcomes OutcomeLister, logger *zap.Logger) *ScheduleService {
	return &ScheduleService{users: users, outcomes: outcomes, logger: logger}
}

func (s *ScheduleService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateSchedule validates req and replaces the user's schedule.
// The stored day is lowercase and the time is zero-padded HH:MM.
func (s *ScheduleService) UpdateSchedule(ctx context.Context, userID string, req domain.UpdateScheduleRequest) (*domain.User, error) {
	sched, err := req.ToSchedule()
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateSchedule(ctx, userID, sched); err != nil {
		return nil, fmt.Errorf("update schedule: %w", err)
	}
	s.logger.Info("schedule updated",
		zap.String("user_id", userID),
		zap.Bool("enabled", sched.Enabled),
		zap.String("slot", sched.SlotID()),
		zap.String("timezone", sched.Timezone),
	)

	return s.users.GetByID(ctx, userID)
}

// History returns a page of the user's outcomes, newest first. The user
// must exist so that an unknown id is a 404 rather than an empty page.
func (s *ScheduleService) History(ctx context.Context, userID string, page, limit int) ([]*domain.Outcome, int, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, 0, err
	}
	return s.outcomes.List(ctx, domain.OutcomeFilter{UserID: userID, Page: page, Limit: limit})
}
