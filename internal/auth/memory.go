package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"inkwell.org/internal/ids"
)

// MemoryStore is an in-process UserStore and SessionStore. It backs the
// service in tests and in local development when no database is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*User)}
}

func (m *MemoryStore) Create(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return fmt.Errorf("%w: username is taken", ErrConflict)
		}
		if existing.Email == u.Email {
			return fmt.Errorf("%w: email is registered", ErrConflict)
		}
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MemoryStore) FindByID(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	email = strings.ToLower(email)
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	username = strings.ToLower(username)
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) IsUsernameTaken(ctx context.Context, username string) (bool, error) {
	_, err := m.FindByUsername(ctx, username)
	if err == nil {
		return true, nil
	}
	if err == ErrNotFound {
		return false, nil
	}
	return false, err
}

func (m *MemoryStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) TouchLastLogin(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.LastLogin = time.Now().UTC()
	return nil
}

// Session store ------------------------------------------------------------

func (m *MemoryStore) Save(ctx context.Context, userID, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.RefreshTokenHash = tokenHash
	return nil
}

func (m *MemoryStore) Matches(ctx context.Context, userID, tokenHash string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok || u.RefreshTokenHash == "" {
		return false, nil
	}
	return secureCompareHash(u.RefreshTokenHash, tokenHash), nil
}

func (m *MemoryStore) Replace(ctx context.Context, userID, oldHash, newHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || u.RefreshTokenHash == "" {
		return false, nil
	}
	if !secureCompareHash(u.RefreshTokenHash, oldHash) {
		return false, nil
	}
	u.RefreshTokenHash = newHash
	return true, nil
}

func (m *MemoryStore) Clear(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.RefreshTokenHash = ""
	}
	return nil
}

var (
	_ UserStore    = (*MemoryStore)(nil)
	_ SessionStore = (*MemoryStore)(nil)
)
