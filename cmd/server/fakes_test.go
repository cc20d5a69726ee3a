package main

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/domain"
	"github.com/phrazzld/taskhub-api/internal/store"
)

// fakeUserStore is an in-memory store.UserStore.
type fakeUserStore struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*domain.User
	failErr error
}

func newFakeUserStore(users ...*domain.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[uuid.UUID]*domain.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	for _, u := range s.users {
		if u.Email == user.Email {
			return store.ErrEmailExists
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, store.ErrUserNotFound
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *fakeUserStore) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[id]
	return ok, nil
}

func (s *fakeUserStore) ExistsWithRole(_ context.Context, role string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return false, s.failErr
	}
	for _, u := range s.users {
		if u.Role == role {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeUserStore) WithTx(*sql.Tx) store.UserStore { return s }

func (s *fakeUserStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// plainHasher stores passwords with a fixed prefix so tests stay fast.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (plainHasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return domain.ErrUnauthenticated
	}
	return nil
}
