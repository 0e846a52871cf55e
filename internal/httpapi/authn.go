package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"inkwell.org/internal/audit"
	"inkwell.org/internal/auth"
	"inkwell.org/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// Authenticate verifies the bearer access token and attaches the resolved
// identity to the request context. The check is a pure signature/expiry
// verification; it never queries the database. Every failure produces the
// same 401 so callers learn nothing about why a token was rejected.
func (a *API) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			unauthorized(w, r)
			return
		}
		claims, err := a.tokens.VerifyAccess(token)
		if err != nil {
			unauthorized(w, r)
			return
		}

		identity := auth.Identity{ID: claims.Subject, Role: claims.Role}
		ctx := auth.ContextWithIdentity(r.Context(), identity)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission authorizes the already-authenticated identity against a
// required permission. The decision is a pure function of the role embedded
// in the token: a permission revoked in the registry still holds for tokens
// issued before the change, until they expire.
func (a *API) RequirePermission(perm auth.Permission, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			unauthorized(w, r)
			return
		}
		if !a.perms.Has(identity.Role, perm) {
			obs.CountAuthzDenial(perm)
			// The missing permission is logged for operators, not returned
			// to the client.
			_ = audit.LogEvent(r.Context(), "authz.denied", map[string]any{
				"permission": perm,
				"role":       identity.Role,
				"path":       r.URL.Path,
			})
			forbidden(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="inkwell"`)
	writeError(w, r, http.StatusUnauthorized, "authentication required")
}

func forbidden(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusForbidden, "insufficient permissions")
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
