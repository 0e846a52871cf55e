package auth

import (
	"context"
	"errors"
	"fmt"
)

// Service composes credential policy, password hashing, token issuance and
// session persistence into the register/login/refresh/logout operations.
// All collaborators are injected at construction; the service holds no
// mutable state of its own.
type Service struct {
	users    UserStore
	sessions SessionStore
	tokens   *TokenService
	newID    func() string
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithIDGenerator overrides user id generation (useful for tests).
func WithIDGenerator(fn func() string) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.newID = fn
		}
		return nil
	}
}

// NewService constructs the auth orchestrator.
func NewService(users UserStore, sessions SessionStore, tokens *TokenService, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, errors.New("auth: user store is required")
	}
	if sessions == nil {
		return nil, errors.New("auth: session store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token service is required")
	}
	s := &Service{users: users, sessions: sessions, tokens: tokens}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Register validates the payload, enforces username/email uniqueness, hashes
// the password and issues the first token pair. The returned identity never
// carries the password or token material.
func (s *Service) Register(ctx context.Context, fullName, username, email, password string) (Identity, TokenPair, error) {
	in, err := ValidateRegistration(fullName, username, email, password)
	if err != nil {
		return Identity{}, TokenPair{}, err
	}

	taken, err := s.users.IsUsernameTaken(ctx, in.Username)
	if err != nil {
		return Identity{}, TokenPair{}, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return Identity{}, TokenPair{}, fmt.Errorf("%w: username is taken", ErrConflict)
	}
	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return Identity{}, TokenPair{}, fmt.Errorf("%w: email is registered", ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return Identity{}, TokenPair{}, fmt.Errorf("check email: %w", err)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return Identity{}, TokenPair{}, err
	}

	user := &User{
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: hash,
		Role:         RoleUser,
		Status:       StatusActive,
	}
	if s.newID != nil {
		user.ID = s.newID()
	}
	if err := s.users.Create(ctx, user); err != nil {
		// The store reports unique violations as ErrConflict, which covers
		// the window between the pre-checks and the insert.
		return Identity{}, TokenPair{}, err
	}

	identity := user.Identity()
	pair, err := s.tokens.Issue(ctx, identity)
	if err != nil {
		return Identity{}, TokenPair{}, err
	}
	return identity, pair, nil
}

// Login authenticates email/password credentials and issues a fresh pair.
// Unknown email, wrong password and non-active status all fail with the same
// ErrAuthentication so responses cannot be used to enumerate accounts.
// Issuing the pair overwrites the stored session: logging in on a second
// device invalidates the first device's refresh token.
func (s *Service) Login(ctx context.Context, email, password string) (Identity, TokenPair, error) {
	in, err := ValidateLogin(email, password)
	if err != nil {
		return Identity{}, TokenPair{}, err
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Identity{}, TokenPair{}, ErrAuthentication
		}
		return Identity{}, TokenPair{}, fmt.Errorf("find user: %w", err)
	}
	if user.Status != StatusActive {
		return Identity{}, TokenPair{}, ErrAuthentication
	}
	if err := VerifyPassword(user.PasswordHash, in.Password); err != nil {
		return Identity{}, TokenPair{}, ErrAuthentication
	}

	identity := user.Identity()
	pair, err := s.tokens.Issue(ctx, identity)
	if err != nil {
		return Identity{}, TokenPair{}, err
	}
	// Last-login is bookkeeping; a failed touch must not undo a login.
	_ = s.users.TouchLastLogin(ctx, user.ID)
	return identity, pair, nil
}

// Refresh rotates a refresh token into a new pair. Any verification failure
// surfaces as ErrAuthentication and requires a fresh login.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	pair, err := s.tokens.Rotate(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return TokenPair{}, ErrAuthentication
		}
		return TokenPair{}, err
	}
	return pair, nil
}

// Logout clears the identity's session. Clearing an already-clear session is
// not an error.
func (s *Service) Logout(ctx context.Context, identityID string) error {
	return s.sessions.Clear(ctx, identityID)
}

// ChangePassword validates and persists a new password, then clears the
// session: a password change forces re-login on every device.
func (s *Service) ChangePassword(ctx context.Context, identityID, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	if _, err := s.users.FindByID(ctx, identityID); err != nil {
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, identityID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return s.sessions.Clear(ctx, identityID)
}
