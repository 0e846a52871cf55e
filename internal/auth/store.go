package auth

import "context"

// UserStore describes the persistence operations the auth core needs from the
// user-management module. Records returned by FindByEmail include sensitive
// fields (password hash, refresh token hash).
type UserStore interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	IsUsernameTaken(ctx context.Context, username string) (bool, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	TouchLastLogin(ctx context.Context, userID string) error
}

// SessionStore persists the single currently valid refresh token hash per
// user. Save overwrites any prior value, which is what invalidates other
// sessions on a new login. Clear is idempotent.
type SessionStore interface {
	Save(ctx context.Context, userID, tokenHash string) error
	Matches(ctx context.Context, userID, tokenHash string) (bool, error)
	// Replace swaps oldHash for newHash in a single atomic update and
	// reports whether the swap happened. Concurrent rotations racing on the
	// same stale token see at most one true result.
	Replace(ctx context.Context, userID, oldHash, newHash string) (bool, error)
	Clear(ctx context.Context, userID string) error
}
