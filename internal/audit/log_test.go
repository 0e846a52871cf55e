package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"inkwell.org/internal/auth"
	"inkwell.org/internal/obs"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	logger := obs.Logger()
	orig := logger.Writer()
	logger.SetFlags(0)

	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(orig) })
	return &buf
}

func TestLogEventEnrichesFromContext(t *testing.T) {
	buf := captureLog(t)

	ctx := WithRequestID(context.Background(), "req-123")
	ctx = auth.ContextWithIdentity(ctx, auth.Identity{ID: "u1", Role: auth.RoleUser})

	if err := LogEvent(ctx, "auth.login", map[string]any{"username": "alice_1"}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry); err != nil {
		t.Fatalf("audit entry is not valid JSON: %v", err)
	}
	if entry["type"] != "audit" || entry["event"] != "auth.login" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["request_id"] != "req-123" {
		t.Fatalf("request_id = %v", entry["request_id"])
	}
	if entry["user_id"] != "u1" {
		t.Fatalf("user_id = %v", entry["user_id"])
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["username"] != "alice_1" {
		t.Fatalf("fields = %v", entry["fields"])
	}
}

func TestLogEventWithoutContext(t *testing.T) {
	buf := captureLog(t)

	if err := LogEvent(context.Background(), "auth.refresh", nil); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry); err != nil {
		t.Fatalf("audit entry is not valid JSON: %v", err)
	}
	if _, present := entry["request_id"]; present {
		t.Fatal("request_id should be absent without context")
	}
	if _, present := entry["user_id"]; present {
		t.Fatal("user_id should be absent without context")
	}
	if _, ok := entry["fields"].(map[string]any); !ok {
		t.Fatalf("fields should default to an object, got %v", entry["fields"])
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatal("blank event name accepted")
	}
}

func TestWithRequestIDIgnoresBlank(t *testing.T) {
	ctx := WithRequestID(context.Background(), "   ")
	if got := requestIDFromContext(ctx); got != "" {
		t.Fatalf("blank request id stored: %q", got)
	}
}
