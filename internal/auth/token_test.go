package auth

import (
	"context"
	"testing"
	"time"
)

func newTestTokenService(t *testing.T, store *MemoryStore, opts ...TokenOption) *TokenService {
	t.Helper()
	svc, err := NewTokenService(store, "access-secret", "refresh-secret", opts...)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return svc
}

func seedUser(t *testing.T, store *MemoryStore) Identity {
	t.Helper()
	user := &User{
		Username:     "alice_1",
		Email:        "a@x.com",
		FullName:     "Alice Example",
		PasswordHash: "irrelevant",
		Role:         RoleUser,
		Status:       StatusActive,
	}
	if err := store.Create(context.Background(), user); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return user.Identity()
}

func TestTokenServiceRequiresDistinctSecrets(t *testing.T) {
	store := NewMemoryStore()
	if _, err := NewTokenService(store, "same", "same"); err == nil {
		t.Fatal("expected error for equal secrets")
	}
	if _, err := NewTokenService(store, "", "refresh"); err == nil {
		t.Fatal("expected error for missing secret")
	}
	if _, err := NewTokenService(nil, "a", "b"); err == nil {
		t.Fatal("expected error for nil session store")
	}
}

func TestIssueAndVerifyAccess(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestTokenService(t, store)
	identity := seedUser(t, store)

	pair, err := svc.Issue(context.Background(), identity)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if !pair.RefreshExpiresAt.After(pair.AccessExpiresAt) {
		t.Fatalf("refresh should outlive access: %v vs %v", pair.RefreshExpiresAt, pair.AccessExpiresAt)
	}

	claims, err := svc.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if claims.Subject != identity.ID {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Role != RoleUser {
		t.Fatalf("unexpected role: %s", claims.Role)
	}
}

func TestTokenPathsAreNotInterchangeable(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestTokenService(t, store)
	identity := seedUser(t, store)

	pair, err := svc.Issue(context.Background(), identity)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := svc.VerifyAccess(pair.RefreshToken); err == nil {
		t.Fatal("refresh token accepted on access path")
	}
	if _, err := svc.VerifyRefresh(context.Background(), pair.AccessToken); err == nil {
		t.Fatal("access token accepted on refresh path")
	}
}

func TestVerifyAccessExpired(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	clock := func() time.Time { return now }
	svc := newTestTokenService(t, store, WithAccessTTL(time.Minute), WithClock(func() time.Time { return clock() }))
	identity := seedUser(t, store)

	pair, err := svc.Issue(context.Background(), identity)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := svc.VerifyAccess(pair.AccessToken); err != nil {
		t.Fatalf("VerifyAccess before expiry: %v", err)
	}

	clock = func() time.Time { return now.Add(2 * time.Minute) }
	if _, err := svc.VerifyAccess(pair.AccessToken); err == nil {
		t.Fatal("expired access token accepted")
	}
}

func TestVerifyRejectsForgedSignature(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestTokenService(t, store)
	identity := seedUser(t, store)

	forger, err := NewTokenService(store, "other-access", "other-refresh")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	pair, err := forger.Issue(context.Background(), identity)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := svc.VerifyAccess(pair.AccessToken); err == nil {
		t.Fatal("token with wrong signature accepted")
	}
}

func TestVerifyRefreshRequiresPersistedSession(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestTokenService(t, store)
	identity := seedUser(t, store)

	pair, err := svc.Issue(context.Background(), identity)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := svc.VerifyRefresh(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("VerifyRefresh: %v", err)
	}

	// A second issue overwrites the session; the first refresh token is
	// signature-valid but no longer matches.
	if _, err := svc.Issue(context.Background(), identity); err != nil {
		t.Fatalf("second Issue: %v", err)
	}
	if _, err := svc.VerifyRefresh(context.Background(), pair.RefreshToken); err == nil {
		t.Fatal("superseded refresh token accepted")
	}
}

func TestRotateSucceedsExactlyOnce(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestTokenService(t, store)
	identity := seedUser(t, store)

	pair, err := svc.Issue(context.Background(), identity)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	rotated, err := svc.Rotate(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	if _, err := svc.Rotate(context.Background(), pair.RefreshToken); err == nil {
		t.Fatal("rotated-away token rotated again")
	}

	// The fresh token keeps working.
	if _, err := svc.Rotate(context.Background(), rotated.RefreshToken); err != nil {
		t.Fatalf("Rotate fresh token: %v", err)
	}
}

func TestRotateAfterLogoutFails(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestTokenService(t, store)
	identity := seedUser(t, store)

	pair, err := svc.Issue(context.Background(), identity)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := store.Clear(context.Background(), identity.ID); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := svc.Rotate(context.Background(), pair.RefreshToken); err == nil {
		t.Fatal("refresh token accepted after logout")
	}
	// Clearing again stays a no-op.
	if err := store.Clear(context.Background(), identity.ID); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}
