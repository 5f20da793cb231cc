package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	return entry
}

func TestWithContextAddsRequestAndUser(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, UserIDKey, "user-9")
	log.WithContext(ctx).JobTransition("job-1", "approved", "report_sent", "user-9")

	entry := decodeLine(t, &buf)
	if entry["request_id"] != "req-1" || entry["user_id"] != "user-9" {
		t.Fatalf("expected request and user ids, got %v", entry)
	}
	if entry["from"] != "approved" || entry["to"] != "report_sent" {
		t.Fatalf("unexpected transition fields: %v", entry)
	}
}

func TestWithContextLeavesBareContextAlone(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	log.WithContext(context.Background()).DatabaseError("readiness ping", errors.New("connection refused"))

	entry := decodeLine(t, &buf)
	if _, ok := entry["request_id"]; ok {
		t.Fatalf("unexpected request_id: %v", entry)
	}
	if entry["msg"] != "database_error" || entry["operation"] != "readiness ping" || entry["error"] != "connection refused" {
		t.Fatalf("unexpected database error line: %v", entry)
	}
	if entry["level"] != "ERROR" {
		t.Fatalf("expected ERROR level, got %v", entry["level"])
	}
}
