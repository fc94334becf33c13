package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/movietix/internal/model"
)

// CreateUser reports a taken email as model.ErrConflict.
func (s *Store) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.emails[u.Email]; taken {
		return fmt.Errorf("%w: email already exists", model.ErrConflict)
	}
	u.ID = s.nextID()
	u.CreatedAt = s.now()
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = *u
	s.emails[u.Email] = u.ID
	return nil
}

// GetUserByEmail looks a user up by exact (already normalised) email.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[email]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", email, model.ErrNotFound)
	}
	u := s.users[id]
	return &u, nil
}

// GetUserByID returns a copy of the stored user.
func (s *Store) GetUserByID(_ context.Context, id uint64) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, model.ErrNotFound)
	}
	return &u, nil
}

// UpdateUserRole changes a user's role.
func (s *Store) UpdateUserRole(_ context.Context, id uint64, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, model.ErrNotFound)
	}
	u.Role = role
	u.UpdatedAt = s.now()
	s.users[id] = u
	return nil
}

// StoreRefresh records a hashed refresh token.
func (s *Store) StoreRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[hash] = model.RefreshToken{
		ID:        s.nextID(),
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: exp,
		CreatedAt: s.now(),
	}
	return nil
}

// ValidateRefresh returns the owner of an active, unexpired token.
func (s *Store) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[hash]
	if !ok || t.RevokedAt != nil || !t.ExpiresAt.After(s.now()) {
		return 0, fmt.Errorf("refresh token: %w", model.ErrNotFound)
	}
	return t.UserID, nil
}

// RevokeRefresh marks one active token revoked.  An unknown or already
// revoked token yields model.ErrNotFound.
func (s *Store) RevokeRefresh(_ context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[hash]
	if !ok || t.RevokedAt != nil {
		return fmt.Errorf("refresh token: %w", model.ErrNotFound)
	}
	now := s.now()
	t.RevokedAt = &now
	s.tokens[hash] = t
	return nil
}

// RevokeAllRefresh marks every active token of a user revoked.
func (s *Store) RevokeAllRefresh(_ context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for h, t := range s.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			s.tokens[h] = t
		}
	}
	return nil
}
