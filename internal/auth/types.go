package auth

import "time"

// Role names a bundle of permissions assigned to a user.
type Role string

const (
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

// Status reflects whether an account may authenticate.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusBanned    Status = "BANNED"
)

// User is the persisted account record, including sensitive fields.
// Only the store and the auth service ever see PasswordHash and
// RefreshTokenHash; everything downstream gets an Identity.
type User struct {
	ID               string
	Username         string
	Email            string
	FullName         string
	PasswordHash     string
	Role             Role
	Status           Status
	IsVerified       bool
	RefreshTokenHash string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	LastLogin        time.Time
}

// Identity is the authenticated subject attached to request context and
// handed to downstream modules. The auth core reads the role to resolve
// permissions but never mutates it.
type Identity struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	Role       Role   `json:"role"`
	IsVerified bool   `json:"is_verified"`
}

// Identity strips the sensitive fields from a user record.
func (u *User) Identity() Identity {
	return Identity{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FullName:   u.FullName,
		Role:       u.Role,
		IsVerified: u.IsVerified,
	}
}

// TokenPair carries freshly issued access and refresh tokens.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// RegistrationInput is a validated registration payload. Username and email
// arrive already trimmed and case-folded.
type RegistrationInput struct {
	FullName string
	Username string
	Email    string
	Password string
}

// LoginInput is a validated login payload.
type LoginInput struct {
	Email    string
	Password string
}
