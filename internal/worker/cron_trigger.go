package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/notifyhub/weekly-dispatch/internal/domain"
)

// RunFunc executes one dispatch run for the given instant.
type RunFunc func(ctx context.Context, now time.Time) (*domain.RunReport, error)

// CronTrigger invokes a RunFunc on a cron schedule inside the process. It
// is an alternative to an external scheduler calling the HTTP trigger;
// both end up in the same run function.
//
// Overlapping fires are skipped: if a run is still going when the next tick
// arrives, that tick is dropped rather than queued.
type CronTrigger struct {
	c      *cron.Cron
	spec   string
	run    RunFunc
	logger *zap.Logger

	mu  sync.Mutex
	ctx context.Context
}

// NewCronTrigger validates spec (5-field crontab, optional seconds field,
// or a descriptor such as "@every 5m") and prepares the trigger.
// Schedules are evaluated in UTC; user timezones are handled per user.
func NewCronTrigger(spec string, run RunFunc, logger *zap.Logger) (*CronTrigger, error) {
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("parse cron spec %q: %w", spec, err)
	}

	cl := cronLogger{s: logger.Sugar()}
	t := &CronTrigger{
		spec:   spec,
		run:    run,
		logger: logger,
		ctx:    context.Background(),
		c: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
	if _, err := t.c.AddFunc(spec, t.fire); err != nil {
		return nil, fmt.Errorf("register cron job: %w", err)
	}
	return t, nil
}

// Start begins firing. Runs inherit ctx, so cancelling it aborts an
// in-flight run at its next step boundary.
func (t *CronTrigger) Start(ctx context.Context) {
	t.mu.Lock()
	t.ctx = ctx
	t.mu.Unlock()

	t.c.Start()
	t.logger.Info("cron trigger started", zap.String("spec", t.spec))
}

// Stop prevents further fires and waits for a running one to finish or
// for ctx to expire, whichever comes first.
func (t *CronTrigger) Stop(ctx context.Context) {
	done := t.c.Stop().Done()
	select {
	case <-done:
		t.logger.Info("cron trigger stopped")
	case <-ctx.Done():
		t.logger.Warn("cron trigger stop timed out; run still in flight")
	}
}

// Fire runs once immediately, as a scheduled tick would.
func (t *CronTrigger) Fire() {
	t.fire()
}

func (t *CronTrigger) fire() {
	t.mu.Lock()
	ctx := t.ctx
	t.mu.Unlock()

	now := time.Now().UTC()
	report, err := t.run(ctx, now)
	if err != nil {
		t.logger.Error("scheduled dispatch run failed", zap.Error(err))
		return
	}
	t.logger.Info("scheduled dispatch run completed",
		zap.String("run_id", report.RunID),
		zap.Int("users_checked", report.Summary.UsersChecked),
		zap.Int("sent", report.Summary.Sent),
		zap.Int("skipped", report.Summary.Skipped),
		zap.Int("errors", report.Summary.Errors),
	)
}

// cronLogger adapts zap to cron.Logger. Cron's own info chatter is demoted
// to debug.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
