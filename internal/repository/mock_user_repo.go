package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/notifyhub/weekly-dispatch/internal/domain"
)

// MockUserRepository is a hand-written, in-memory implementation of
// UserRepository used in unit tests.
type MockUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User

	// Optional error overrides set in tests to simulate failure paths.
	ListScheduledErr error
	GetByIDErr       error
}

func NewMockUserRepository(users ...*domain.User) *MockUserRepository {
	m := &MockUserRepository{users: make(map[string]*domain.User)}
	for _, u := range users {
		m.Put(u)
	}
	return m
}

// Put stores a copy of u, replacing any user with the same ID.
func (m *MockUserRepository) Put(u *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *u
	m.users[u.ID] = &clone
}

func (m *MockUserRepository) ListScheduled(_ context.Context) ([]*domain.User, error) {
	if m.ListScheduledErr != nil {
		return nil, m.ListScheduledErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		if !u.Schedule.Enabled {
			continue
		}
		clone := *u
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	if m.GetByIDErr != nil {
		return nil, m.GetByIDErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *MockUserRepository) UpdateSchedule(_ context.Context, id string, s domain.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Schedule = s
	u.UpdatedAt = time.Now().UTC()
	return nil
}
