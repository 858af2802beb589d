// Package dispatch runs the weekly delivery pipeline: it selects the users
// whose slot is due at a run instant, generates and delivers their content
// through a bounded worker pool, records one outcome per attempted user, and
// folds the per-user results into a run summary.
package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyhub/weekly-dispatch/internal/domain"
	"github.com/notifyhub/weekly-dispatch/internal/repository"
	"github.com/notifyhub/weekly-dispatch/internal/window"
	"github.com/notifyhub/weekly-dispatch/internal/worker"
)

// Hooks carries the metric callbacks injected by main. All are optional.
type Hooks struct {
	OnResult func(domain.Result)
	OnRun    func(summary domain.RunSummary, elapsed time.Duration, err error)
}

// Driver executes dispatch runs over the scheduled user population.
type Driver struct {
	users      repository.UserRepository
	orch       *Orchestrator
	matcher    *window.Matcher
	pool       *worker.Pool[Task]
	runTimeout time.Duration
	logger     *zap.Logger
	hooks      Hooks

	last atomic.Pointer[domain.RunReport]
}

func NewDriver(
	users repository.UserRepository,
	orch *Orchestrator,
	matcher *window.Matcher,
	workers int,
	runTimeout time.Duration,
	logger *zap.Logger,
	hooks Hooks,
) *Driver {
	if hooks.OnResult == nil {
		hooks.OnResult = func(domain.Result) {}
	}
	if hooks.OnRun == nil {
		hooks.OnRun = func(domain.RunSummary, time.Duration, error) {}
	}
	return &Driver{
		users:      users,
		orch:       orch,
		matcher:    matcher,
		pool:       worker.NewPool[Task](workers, logger),
		runTimeout: runTimeout,
		logger:     logger,
		hooks:      hooks,
	}
}

// RunOnce evaluates every scheduled user against now and dispatches the
// due ones. now is read once by the caller and shared by every evaluation.
//
// The only error returned is a failure to load the population, wrapped in
// domain.ErrPopulationLoad; per-user failures are counted in the summary.
func (d *Driver) RunOnce(ctx context.Context, now time.Time) (*domain.RunReport, error) {
	started := time.Now()
	runID := uuid.New().String()
	log := d.logger.With(zap.String("run_id", runID))

	if d.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.runTimeout)
		defer cancel()
	}

	users, err := d.users.ListScheduled(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrPopulationLoad, err)
		log.Error("dispatch run aborted", zap.Error(err))
		d.hooks.OnRun(domain.RunSummary{}, time.Since(started), err)
		return nil, err
	}

	log.Info("dispatch run started",
		zap.Time("now", now.UTC()),
		zap.Int("scheduled_users", len(users)),
		zap.Int("workers", d.pool.Size()),
	)

	agg := NewAggregator()
	tasks := make([]Task, 0, len(users))
	for _, u := range users {
		task, result, ok := d.plan(log, runID, now, u)
		if !ok {
			agg.Accumulate(result)
			d.hooks.OnResult(result)
			continue
		}
		tasks = append(tasks, task)
	}

	tallies := make([]Tally, d.pool.Size())
	d.pool.Run(ctx, tasks, func(ctx context.Context, workerID int, task Task) {
		rep := d.orch.Process(ctx, task)
		tallies[workerID].Add(rep.Result)
		d.hooks.OnResult(rep.Result)
	})
	for i := range tallies {
		agg.Merge(&tallies[i])
	}

	report := &domain.RunReport{
		RunID:       runID,
		StartedAt:   started.UTC(),
		CompletedAt: time.Now().UTC(),
		Summary:     agg.Summary(),
	}
	d.last.Store(report)
	d.hooks.OnRun(report.Summary, time.Since(started), nil)

	s := report.Summary
	log.Info("dispatch run completed",
		zap.Int("users_checked", s.UsersChecked),
		zap.Int("generated", s.Generated),
		zap.Int("sent", s.Sent),
		zap.Int("skipped", s.Skipped),
		zap.Int("errors", s.Errors),
		zap.Duration("elapsed", time.Since(started)),
	)
	return report, nil
}

// plan decides whether u needs the pipeline. When it does not, the
// returned result is the user's final classification.
func (d *Driver) plan(log *zap.Logger, runID string, now time.Time, u *domain.User) (Task, domain.Result, bool) {
	ev, err := d.matcher.Evaluate(now, u.Schedule)
	if err != nil {
		log.Warn("cannot evaluate schedule", zap.String("user_id", u.ID), zap.Error(err))
		return Task{}, domain.ResultUnclassified, false
	}
	if !ev.Due {
		log.Debug("user not due",
			zap.String("user_id", u.ID),
			zap.Stringer("local_day", ev.LocalDay),
			zap.String("local_time", domain.FormatClock(ev.LocalMinute)),
			zap.Bool("day_match", ev.DayMatch),
		)
		return Task{}, domain.ResultSkipped, false
	}

	return Task{
		User:  u,
		RunID: runID,
		Claim: &domain.SlotClaim{
			ID:        uuid.New().String(),
			UserID:    u.ID,
			LocalDate: ev.LocalDate(),
			Slot:      u.Schedule.SlotID(),
			RunID:     runID,
			ClaimedAt: now.UTC(),
		},
	}, 0, true
}

// DispatchNow runs the pipeline for one user immediately, ignoring the
// schedule window, the enabled flag and the slot claim.
func (d *Driver) DispatchNow(ctx context.Context, userID string) (Report, error) {
	u, err := d.users.GetByID(ctx, userID)
	if err != nil {
		return Report{}, err
	}

	runID := uuid.New().String()
	d.logger.Info("manual dispatch requested", zap.String("user_id", userID), zap.String("run_id", runID))

	rep := d.orch.Process(ctx, Task{User: u, RunID: runID})
	d.hooks.OnResult(rep.Result)
	return rep, nil
}

// LastRun returns the report of the most recent completed run, or nil.
func (d *Driver) LastRun() *domain.RunReport {
	return d.last.Load()
}
