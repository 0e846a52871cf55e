package httpapi

import (
	"errors"
	"net/http"

	"inkwell.org/internal/audit"
	"inkwell.org/internal/auth"
	"inkwell.org/internal/obs"
)

type registerRequest struct {
	FullName string `json:"full_name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type changePasswordRequest struct {
	NewPassword string `json:"new_password"`
}

type authResponse struct {
	User   auth.Identity  `json:"user"`
	Tokens auth.TokenPair `json:"tokens"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	identity, pair, err := a.auth.Register(r.Context(), req.FullName, req.Username, req.Email, req.Password)
	if err != nil {
		obs.CountAuthAttempt("register", "failure")
		handleAuthError(w, r, err)
		return
	}

	obs.CountAuthAttempt("register", "success")
	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"user_id":  identity.ID,
		"username": identity.Username,
	})
	writeJSON(w, http.StatusCreated, authResponse{User: identity, Tokens: pair})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	identity, pair, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		obs.CountAuthAttempt("login", "failure")
		handleAuthError(w, r, err)
		return
	}

	obs.CountAuthAttempt("login", "success")
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id": identity.ID,
	})
	writeJSON(w, http.StatusOK, authResponse{User: identity, Tokens: pair})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	pair, err := a.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		obs.CountAuthAttempt("refresh", "failure")
		handleAuthError(w, r, err)
		return
	}

	obs.CountAuthAttempt("refresh", "success")
	_ = audit.LogEvent(r.Context(), "auth.refresh", nil)
	writeJSON(w, http.StatusOK, map[string]any{"tokens": pair})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		unauthorized(w, r)
		return
	}

	if err := a.auth.Logout(r.Context(), identity.ID); err != nil {
		obs.CountAuthAttempt("logout", "failure")
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	obs.CountAuthAttempt("logout", "success")
	_ = audit.LogEvent(r.Context(), "auth.logout", map[string]any{
		"user_id": identity.ID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		unauthorized(w, r)
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.auth.ChangePassword(r.Context(), identity.ID, req.NewPassword); err != nil {
		obs.CountAuthAttempt("change_password", "failure")
		handleAuthError(w, r, err)
		return
	}

	obs.CountAuthAttempt("change_password", "success")
	_ = audit.LogEvent(r.Context(), "auth.password_change", map[string]any{
		"user_id": identity.ID,
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleAuthError maps core errors onto HTTP statuses. Authentication
// failures share one response body regardless of cause.
func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *auth.ValidationError
	switch {
	case errors.As(err, &verr):
		payload := map[string]any{
			"error":  "invalid input",
			"fields": verr.Fields,
		}
		if rid := RequestIDFromContext(r.Context()); rid != "" {
			payload["request_id"] = rid
		}
		writeJSON(w, http.StatusBadRequest, payload)
	case errors.Is(err, auth.ErrConflict):
		writeError(w, r, http.StatusConflict, "username or email is already registered")
	case errors.Is(err, auth.ErrAuthentication), errors.Is(err, auth.ErrInvalidToken):
		w.Header().Set("WWW-Authenticate", `Bearer realm="inkwell"`)
		writeError(w, r, http.StatusUnauthorized, "authentication failed")
	case errors.Is(err, auth.ErrPermissionDenied):
		writeError(w, r, http.StatusForbidden, "insufficient permissions")
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "resource not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
