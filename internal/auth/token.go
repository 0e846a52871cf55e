package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultIssuer     = "inkwell"
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 14 * 24 * time.Hour

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims are the JWT claims carried by both token kinds. Role rides along so
// the gate can authorize without a store lookup.
type Claims struct {
	Role      Role   `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenService signs, verifies and rotates access/refresh token pairs. The
// access path is stateless; only the refresh path touches the session store.
type TokenService struct {
	sessions SessionStore
	now      func() time.Time

	issuer        string
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// TokenOption configures TokenService.
type TokenOption func(*TokenService) error

// WithIssuer overrides the iss claim.
func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) error {
		if iss := strings.TrimSpace(issuer); iss != "" {
			s.issuer = iss
		}
		return nil
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) error {
		if ttl > 0 {
			s.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) error {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) TokenOption {
	return func(s *TokenService) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewTokenService constructs a TokenService. The two secrets must be set and
// distinct so a refresh token can never pass access verification by
// construction.
func NewTokenService(sessions SessionStore, accessSecret, refreshSecret string, opts ...TokenOption) (*TokenService, error) {
	if sessions == nil {
		return nil, errors.New("auth: session store is required")
	}
	accessSecret = strings.TrimSpace(accessSecret)
	refreshSecret = strings.TrimSpace(refreshSecret)
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("auth: access and refresh secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	s := &TokenService{
		sessions:      sessions,
		now:           time.Now,
		issuer:        defaultIssuer,
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     defaultAccessTTL,
		refreshTTL:    defaultRefreshTTL,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Issue signs a fresh token pair for the identity and persists the refresh
// token hash, overwriting any prior session.
func (s *TokenService) Issue(ctx context.Context, identity Identity) (TokenPair, error) {
	pair, refreshHash, err := s.signPair(identity.ID, identity.Role)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.sessions.Save(ctx, identity.ID, refreshHash); err != nil {
		return TokenPair{}, fmt.Errorf("save session: %w", err)
	}
	return pair, nil
}

// VerifyAccess checks signature, expiry and token type. It never touches the
// session store, so it is safe on every request.
func (s *TokenService) VerifyAccess(token string) (*Claims, error) {
	return s.verify(token, s.accessSecret, tokenTypeAccess)
}

// VerifyRefresh checks signature, expiry and token type, then requires the
// token to match the identity's currently persisted session. A syntactically
// valid token that was already rotated away fails here.
func (s *TokenService) VerifyRefresh(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.verify(token, s.refreshSecret, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	ok, err := s.sessions.Matches(ctx, claims.Subject, hashToken(token))
	if err != nil {
		return nil, fmt.Errorf("match session: %w", err)
	}
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Rotate exchanges a refresh token for a new pair. The persisted session hash
// is swapped with a compare-and-swap, so of two rotations racing on the same
// stale token at most one succeeds; the loser gets ErrInvalidToken and no
// tokens are issued.
func (s *TokenService) Rotate(ctx context.Context, oldRefresh string) (TokenPair, error) {
	claims, err := s.verify(oldRefresh, s.refreshSecret, tokenTypeRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	pair, newHash, err := s.signPair(claims.Subject, claims.Role)
	if err != nil {
		return TokenPair{}, err
	}
	swapped, err := s.sessions.Replace(ctx, claims.Subject, hashToken(oldRefresh), newHash)
	if err != nil {
		return TokenPair{}, fmt.Errorf("rotate session: %w", err)
	}
	if !swapped {
		return TokenPair{}, ErrInvalidToken
	}
	return pair, nil
}

func (s *TokenService) signPair(userID string, role Role) (TokenPair, string, error) {
	now := s.now().UTC()
	accessExp := now.Add(s.accessTTL)
	refreshExp := now.Add(s.refreshTTL)

	access, err := s.sign(userID, role, tokenTypeAccess, now, accessExp, s.accessSecret)
	if err != nil {
		return TokenPair{}, "", err
	}
	refresh, err := s.sign(userID, role, tokenTypeRefresh, now, refreshExp, s.refreshSecret)
	if err != nil {
		return TokenPair{}, "", err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, hashToken(refresh), nil
}

func (s *TokenService) sign(userID string, role Role, tokenType string, now, exp time.Time, secret []byte) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("auth: user id is required")
	}
	claims := Claims{
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

func (s *TokenService) verify(token string, secret []byte, tokenType string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return s.now().UTC() }),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != tokenType {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// hashToken reduces a refresh token to the value persisted in the session
// store. Only the hash is stored; the token itself never is.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// secureCompareHash compares two hex digests in constant time.
func secureCompareHash(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
