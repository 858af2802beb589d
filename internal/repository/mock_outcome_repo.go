package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/notifyhub/weekly-dispatch/internal/domain"
)

// MockOutcomeRepository is a hand-written, in-memory implementation of
// OutcomeRepository used in unit tests. It enforces the same uniqueness
// rules as the Postgres constraints.
type MockOutcomeRepository struct {
	mu       sync.Mutex
	claims   map[string]*domain.SlotClaim
	outcomes []*domain.Outcome

	// Optional error overrides set in tests to simulate failure paths.
	ClaimErr  error
	AppendErr error
}

func NewMockOutcomeRepository() *MockOutcomeRepository {
	return &MockOutcomeRepository{claims: make(map[string]*domain.SlotClaim)}
}

func (m *MockOutcomeRepository) ClaimSlot(_ context.Context, c *domain.SlotClaim) error {
	if m.ClaimErr != nil {
		return m.ClaimErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.claims[c.Key()]; ok {
		return domain.ErrSlotClaimed
	}
	clone := *c
	m.claims[c.Key()] = &clone
	return nil
}

func (m *MockOutcomeRepository) Append(_ context.Context, o *domain.Outcome) error {
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.SlotID != nil {
		for _, existing := range m.outcomes {
			if existing.SlotID != nil && *existing.SlotID == *o.SlotID {
				return domain.ErrConflict
			}
		}
	}
	clone := *o
	m.outcomes = append(m.outcomes, &clone)
	return nil
}

func (m *MockOutcomeRepository) List(_ context.Context, f domain.OutcomeFilter) ([]*domain.Outcome, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*domain.Outcome
	for _, o := range m.outcomes {
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		clone := *o
		matched = append(matched, &clone)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].AttemptedAt.After(matched[j].AttemptedAt)
	})

	total := len(matched)
	if f.Limit <= 0 {
		return matched, total, nil
	}
	start := (max(f.Page, 1) - 1) * f.Limit
	if start >= total {
		return nil, total, nil
	}
	end := min(start+f.Limit, total)
	return matched[start:end], total, nil
}

// Outcomes returns a snapshot of every appended outcome in insertion order.
func (m *MockOutcomeRepository) Outcomes() []*domain.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Outcome, len(m.outcomes))
	for i, o := range m.outcomes {
		clone := *o
		out[i] = &clone
	}
	return out
}

// Claims returns how many slot claims are held.
func (m *MockOutcomeRepository) Claims() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.claims)
}
