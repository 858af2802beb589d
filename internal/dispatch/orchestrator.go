package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/weekly-dispatch/internal/domain"
	"github.com/notifyhub/weekly-dispatch/internal/provider"
	"github.com/notifyhub/weekly-dispatch/internal/ratelimiter"
	"github.com/notifyhub/weekly-dispatch/internal/repository"
)

// Step names reported to the step hook.
const (
	StepGenerate = "generate"
	StepDeliver  = "deliver"
)

// Task is the full input of one user's pipeline.
type Task struct {
	User  *domain.User
	RunID string
	// Claim reserves the user's slot before any side effect. Manual
	// dispatches leave it nil.
	Claim *domain.SlotClaim
}

// Report is the single structured result of one Process call.
type Report struct {
	UserID  string          `json:"userId"`
	Result  domain.Result   `json:"result"`
	Outcome *domain.Outcome `json:"outcome,omitempty"`
	Err     error           `json:"-"`
}

// Orchestrator runs generate -> deliver -> record for one due user.
type Orchestrator struct {
	gen         provider.Generator
	del         provider.Deliverer
	outcomes    *OutcomeLog
	claims      repository.OutcomeRepository
	limiter     *ratelimiter.CollaboratorLimiters
	stepTimeout time.Duration
	logger      *zap.Logger
	clock       func() time.Time

	// Hook for metrics, injected so the orchestrator stays metrics-agnostic.
	onStep func(step string, latency time.Duration)
}

// OrchestratorOption customises an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithClock replaces time.Now for outcome timestamps.
func WithClock(clock func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.clock = clock }
}

// WithStepHook registers a latency callback for generation and delivery.
func WithStepHook(fn func(step string, latency time.Duration)) OrchestratorOption {
	return func(o *Orchestrator) {
		if fn != nil {
			o.onStep = fn
		}
	}
}

func NewOrchestrator(
	gen provider.Generator,
	del provider.Deliverer,
	repo repository.OutcomeRepository,
	limiter *ratelimiter.CollaboratorLimiters,
	stepTimeout time.Duration,
	logger *zap.Logger,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		gen:         gen,
		del:         del,
		outcomes:    NewOutcomeLog(repo, logger),
		claims:      repo,
		limiter:     limiter,
		stepTimeout: stepTimeout,
		logger:      logger,
		clock:       time.Now,
		onStep:      func(string, time.Duration) {},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process runs the pipeline for one user. It never panics and never
// returns an error to the caller: every failure is folded into the Report.
func (o *Orchestrator) Process(ctx context.Context, task Task) (rep Report) {
	rep.UserID = task.User.ID
	log := o.logger.With(zap.String("user_id", task.User.ID), zap.String("run_id", task.RunID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while processing user",
				zap.Any("panic", r), zap.String("stack", string(debug.Stack())))
			rep = Report{UserID: task.User.ID, Result: domain.ResultUnclassified, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	// The run deadline passed before this user was reached.
	if err := ctx.Err(); err != nil {
		log.Warn("run context done before processing", zap.Error(err))
		return Report{UserID: task.User.ID, Result: domain.ResultUnclassified, Err: err}
	}

	var slotID *string
	if task.Claim != nil {
		err := o.claims.ClaimSlot(ctx, task.Claim)
		if errors.Is(err, domain.ErrSlotClaimed) {
			log.Info("slot already dispatched", zap.String("slot", task.Claim.Slot), zap.String("local_date", task.Claim.LocalDate))
			return Report{UserID: task.User.ID, Result: domain.ResultDuplicate}
		}
		if err != nil {
			log.Error("failed to claim slot", zap.Error(err))
			return Report{UserID: task.User.ID, Result: domain.ResultUnclassified, Err: err}
		}
		slotID = &task.Claim.ID
	}

	attemptedAt := o.clock().UTC()
	base := domain.Outcome{
		UserID:      task.User.ID,
		RunID:       task.RunID,
		SlotID:      slotID,
		Recipient:   task.User.Email,
		AttemptedAt: attemptedAt,
	}

	// ---- 1. generate ----
	batch, err := o.generate(ctx, task.User)
	if err != nil {
		log.Warn("content generation failed", zap.Error(err))
		out := failedOutcome(base, "Your Weekly Ideas (Generation Failed)", 0, domain.ReasonGenerationFailed)
		return o.finish(ctx, log, domain.ResultGenerationFailed, out, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err))
	}
	generated := len(batch.Items)
	log.Debug("content generated", zap.Int("requested", task.User.Schedule.ItemCount), zap.Int("generated", generated))

	// ---- 2. deliver ----
	subject := fmt.Sprintf("Your %d Weekly Ideas", generated)
	rcpt, err := o.deliver(ctx, task.User, subject, batch.Items)
	if err != nil || !rcpt.Delivered {
		if err == nil {
			err = errors.New("delivery service declined")
		}
		log.Warn("delivery failed", zap.Error(err))
		out := failedOutcome(base, "Your Weekly Ideas (Failed)", generated, domain.ReasonDeliveryFailed)
		return o.finish(ctx, log, domain.ResultDeliveryFailed, out, fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err))
	}

	// ---- 3. record success ----
	deliveredAt := o.clock().UTC()
	out := base
	out.Subject = subject
	out.Status = domain.OutcomeDelivered
	out.ItemCount = generated
	out.DeliveredAt = &deliveredAt
	if rcpt.MessageID != "" {
		out.ProviderMsgID = &rcpt.MessageID
	}
	return o.finish(ctx, log, domain.ResultSent, &out, nil)
}

func (o *Orchestrator) generate(ctx context.Context, u *domain.User) (*provider.Batch, error) {
	stepCtx, cancel := context.WithTimeout(ctx, o.stepTimeout)
	defer cancel()

	if err := o.limiter.Wait(stepCtx, ratelimiter.Generation); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	start := time.Now()
	batch, err := o.gen.Generate(stepCtx, provider.GenerateRequest{
		UserID:      u.ID,
		Count:       u.Schedule.ItemCount,
		Preferences: u.Schedule.Preferences,
	})
	o.onStep(StepGenerate, time.Since(start))
	if err != nil {
		return nil, err
	}
	if batch == nil || len(batch.Items) == 0 {
		return nil, errors.New("empty batch")
	}
	return batch, nil
}

func (o *Orchestrator) deliver(ctx context.Context, u *domain.User, subject string, items []provider.Item) (provider.Receipt, error) {
	stepCtx, cancel := context.WithTimeout(ctx, o.stepTimeout)
	defer cancel()

	if err := o.limiter.Wait(stepCtx, ratelimiter.Delivery); err != nil {
		return provider.Receipt{}, fmt.Errorf("rate limit wait: %w", err)
	}

	start := time.Now()
	rcpt, err := o.del.Deliver(stepCtx, provider.Delivery{
		UserID:  u.ID,
		To:      u.Email,
		Subject: subject,
		Items:   items,
	})
	o.onStep(StepDeliver, time.Since(start))
	return rcpt, err
}

// finish records the outcome on a context detached from the run deadline,
// so a user whose step timed out still gets its failure written.
func (o *Orchestrator) finish(ctx context.Context, log *zap.Logger, result domain.Result, out *domain.Outcome, cause error) Report {
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.stepTimeout)
	defer cancel()

	rep := Report{UserID: out.UserID, Result: result, Outcome: out, Err: cause}
	if err := o.outcomes.Record(recCtx, out); err != nil {
		log.Error("failed to record outcome", zap.String("status", string(out.Status)), zap.Error(err))
		rep.Err = errors.Join(cause, err)
		// A delivered user without a record is not a success; failure
		// results already count as errors.
		if result == domain.ResultSent {
			rep.Result = domain.ResultUnclassified
		}
		return rep
	}

	if result == domain.ResultSent {
		log.Info("dispatch delivered", zap.Int("items", out.ItemCount))
	}
	return rep
}

func failedOutcome(base domain.Outcome, subject string, items int, reason string) *domain.Outcome {
	out := base
	out.Subject = subject
	out.Status = domain.OutcomeFailed
	out.ItemCount = items
	out.FailureReason = &reason
	return &out
}
