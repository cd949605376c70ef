package user

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/signup/internal/domain"
)

// memoryStore is an in-memory Store with a unique email index
type memoryStore struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]domain.Credentials
	byEmail map[string]uuid.UUID

	// hideOnLookup makes FindByEmail report not found, simulating the
	// window where a concurrent insert has not happened yet.
	hideOnLookup bool
	pingErr      error
	findErr      error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		byID:    make(map[uuid.UUID]domain.Credentials),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (s *memoryStore) Insert(ctx context.Context, cred *domain.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[cred.Email]; exists {
		return domain.ErrDuplicateEmail
	}
	s.byID[cred.ID] = *cred
	s.byEmail[cred.Email] = cred.ID
	return nil
}

func (s *memoryStore) FindByEmail(ctx context.Context, email string) (*domain.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findErr != nil {
		return nil, s.findErr
	}
	id, ok := s.byEmail[email]
	if !ok || s.hideOnLookup {
		return nil, domain.ErrUserNotFound
	}
	cred := s.byID[id]
	return &cred, nil
}

func (s *memoryStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &cred, nil
}

func (s *memoryStore) Ping(ctx context.Context) error {
	return s.pingErr
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
