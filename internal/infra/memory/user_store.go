package memory

import (
	"context"
	"sync"
	"time"

	"clinical-quiz-service/internal/auth"
	"clinical-quiz-service/internal/domain"
)

// UserStore is an in-memory auth.UserStore.
type UserStore struct {
	mu      sync.RWMutex
	byID    map[string]auth.Account
	byEmail map[string]string
	resets  map[string]auth.ResetToken
}

func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[string]auth.Account),
		byEmail: make(map[string]string),
		resets:  make(map[string]auth.ResetToken),
	}
}

func (s *UserStore) CreateUser(_ context.Context, account auth.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[account.Email]; ok {
		return domain.ErrEmailTaken
	}
	s.byID[account.ID] = account
	s.byEmail[account.Email] = account.ID
	return nil
}

func (s *UserStore) UserByEmail(_ context.Context, email string) (auth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return auth.Account{}, domain.ErrUserNotFound
	}
	return s.byID[id], nil
}

func (s *UserStore) UserByID(_ context.Context, id string) (auth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.byID[id]
	if !ok {
		return auth.Account{}, domain.ErrUserNotFound
	}
	return account, nil
}

func (s *UserStore) UpdatePassword(_ context.Context, userID string, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.byID[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	account.PasswordHash = hash
	s.byID[userID] = account
	return nil
}

func (s *UserStore) SaveResetToken(_ context.Context, token auth.ResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets[token.TokenHash] = token
	return nil
}

func (s *UserStore) ConsumeResetToken(_ context.Context, tokenHash string, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.resets[tokenHash]
	if !ok {
		return "", domain.ErrUserNotFound
	}
	delete(s.resets, tokenHash)
	if !token.ExpiresAt.After(now) {
		return "", domain.ErrUserNotFound
	}
	return token.UserID, nil
}

// RevocationStore is an in-memory auth.RevocationStore.
type RevocationStore struct {
	clock func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewRevocationStore() *RevocationStore {
	return &RevocationStore{clock: time.Now, revoked: make(map[string]time.Time)}
}

func (s *RevocationStore) Revoke(_ context.Context, tokenID string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[tokenID] = until
	return nil
}

func (s *RevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if !until.After(s.clock()) {
		delete(s.revoked, tokenID)
		return false, nil
	}
	return true, nil
}
