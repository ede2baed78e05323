package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hongminglow/anonboard/internal/models"
	"github.com/hongminglow/anonboard/internal/storage"
)

// Ensure Store satisfies the storage.AccountStore interface at compile time.
var _ storage.AccountStore = (*Store)(nil)

// Store keeps accounts in process memory.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]models.Account
	byEmail map[string]int64
}

// NewAccountStore returns an empty store.
func NewAccountStore() *Store {
	return &Store{
		byID:    make(map[int64]models.Account),
		byEmail: make(map[string]int64),
	}
}

// CreateAccount assigns an ID and anonymous name and stores the account.
func (s *Store) CreateAccount(_ context.Context, account models.Account) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := normalizeEmail(account.Email)
	if _, ok := s.byEmail[email]; ok {
		return models.Account{}, storage.ErrAlreadyExists
	}

	s.nextID++
	account.ID = s.nextID
	account.Email = email
	if account.AnonymousName == "" {
		account.AnonymousName = fmt.Sprintf("Anonymous%04d", account.ID)
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	s.byID[account.ID] = account
	s.byEmail[email] = account.ID
	return account, nil
}

// FindByID fetches an account by ID.
func (s *Store) FindByID(_ context.Context, id int64) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.byID[id]
	if !ok {
		return models.Account{}, storage.ErrNotFound
	}
	return account, nil
}

// FindByEmail fetches an account by email address, case-insensitively.
func (s *Store) FindByEmail(_ context.Context, email string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return models.Account{}, storage.ErrNotFound
	}
	return s.byID[id], nil
}

// UpdateAccount replaces a stored account. The email is immutable.
func (s *Store) UpdateAccount(_ context.Context, account models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[account.ID]
	if !ok {
		return storage.ErrNotFound
	}
	account.Email = existing.Email
	s.byID[account.ID] = account
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
