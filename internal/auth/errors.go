package auth

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrAuthentication covers every credential failure: unknown email,
	// wrong password, disabled account. Callers must not distinguish the
	// cause to the end user.
	ErrAuthentication = errors.New("auth: authentication failed")

	// ErrInvalidToken indicates a token failed signature, expiry, type or
	// session-match validation.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrPermissionDenied indicates a valid identity lacking the required
	// permission.
	ErrPermissionDenied = errors.New("auth: permission denied")

	// ErrConflict indicates a duplicate username or email at registration.
	ErrConflict = errors.New("auth: already exists")

	// ErrNotFound indicates a missing record.
	ErrNotFound = errors.New("auth: not found")
)

// ValidationError enumerates every violated input rule keyed by field name.
type ValidationError struct {
	Fields map[string][]string
}

func newValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

func (e *ValidationError) add(field, msg string) {
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) empty() bool { return len(e.Fields) == 0 }

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return fmt.Sprintf("auth: invalid input: %s", strings.Join(names, ", "))
}
