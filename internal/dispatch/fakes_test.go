package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/weekly-dispatch/internal/dispatch"
	"github.com/notifyhub/weekly-dispatch/internal/domain"
	"github.com/notifyhub/weekly-dispatch/internal/provider"
	"github.com/notifyhub/weekly-dispatch/internal/ratelimiter"
	"github.com/notifyhub/weekly-dispatch/internal/repository"
)

// fakeGenerator returns count items unless fn overrides the behaviour.
type fakeGenerator struct {
	fn    func(ctx context.Context, req provider.GenerateRequest) (*provider.Batch, error)
	calls atomic.Int64
}

func (g *fakeGenerator) Generate(ctx context.Context, req provider.GenerateRequest) (*provider.Batch, error) {
	g.calls.Add(1)
	if g.fn != nil {
		return g.fn(ctx, req)
	}
	return itemsBatch(req.Count), nil
}

// fakeDeliverer accepts everything unless fn overrides the behaviour.
type fakeDeliverer struct {
	fn func(ctx context.Context, d provider.Delivery) (provider.Receipt, error)

	mu        sync.Mutex
	delivered []provider.Delivery
}

func (d *fakeDeliverer) Deliver(ctx context.Context, del provider.Delivery) (provider.Receipt, error) {
	d.mu.Lock()
	d.delivered = append(d.delivered, del)
	d.mu.Unlock()
	if d.fn != nil {
		return d.fn(ctx, del)
	}
	return provider.Receipt{Delivered: true, MessageID: "msg-" + del.UserID}, nil
}

func (d *fakeDeliverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.delivered)
}

func itemsBatch(n int) *provider.Batch {
	items := make([]provider.Item, n)
	for i := range items {
		items[i] = provider.Item{Title: fmt.Sprintf("idea %d", i+1), Description: "d", Format: "thread"}
	}
	return &provider.Batch{Items: items}
}

var errBoom = errors.New("boom")

// monday0900UTC is 2025-06-02 09:00 UTC, a Monday.
var monday0900UTC = time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)

func newUser(id string, enabled bool) *domain.User {
	return &domain.User{
		ID:    id,
		Email: id + "@example.com",
		Schedule: domain.Schedule{
			Enabled:   enabled,
			Day:       domain.Monday,
			Time:      "09:00",
			Timezone:  "UTC",
			ItemCount: 5,
		},
	}
}

type harness struct {
	users    *repository.MockUserRepository
	outcomes *repository.MockOutcomeRepository
	gen      *fakeGenerator
	del      *fakeDeliverer
	orch     *dispatch.Orchestrator
}

func newHarness(users ...*domain.User) *harness {
	h := &harness{
		users:    repository.NewMockUserRepository(users...),
		outcomes: repository.NewMockOutcomeRepository(),
		gen:      &fakeGenerator{},
		del:      &fakeDeliverer{},
	}
	h.orch = dispatch.NewOrchestrator(h.gen, h.del, h.outcomes, ratelimiter.Unlimited(), time.Second, zap.NewNop())
	return h
}

func (h *harness) outcomesFor(userID string) []*domain.Outcome {
	var out []*domain.Outcome
	for _, o := range h.outcomes.Outcomes() {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out
}
