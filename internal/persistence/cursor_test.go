package persistence

import (
	"encoding/base64"
	"testing"
	"time"

	"example.com/moodtrack/internal/domain"
)

func TestCursorRoundTrip(t *testing.T) {
	original := &domain.Cursor{
		Timestamp: time.Date(2025, time.November, 3, 9, 30, 0, 123456789, time.UTC),
		ID:        "checkin-42",
	}

	token := EncodeCursor(original)
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	decoded, err := DecodeCursor(token)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !decoded.Timestamp.Equal(original.Timestamp) {
		t.Fatalf("timestamp mismatch: %v vs %v", decoded.Timestamp, original.Timestamp)
	}
	if decoded.ID != original.ID {
		t.Fatalf("id mismatch: %s vs %s", decoded.ID, original.ID)
	}
}

func TestCursorEmptyToken(t *testing.T) {
	if EncodeCursor(nil) != "" {
		t.Fatal("expected empty token for nil cursor")
	}

	decoded, err := DecodeCursor("  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded != nil {
		t.Fatalf("expected nil cursor got %+v", decoded)
	}
}

func TestCursorInvalidTokens(t *testing.T) {
	if _, err := DecodeCursor("not base64!!"); err == nil {
		t.Fatal("expected error for invalid base64")
	}

	noSeparator := base64.StdEncoding.EncodeToString([]byte("just-one-part"))
	if _, err := DecodeCursor(noSeparator); err == nil {
		t.Fatal("expected error for missing separator")
	}

	badTime := base64.StdEncoding.EncodeToString([]byte("yesterday|id-1"))
	if _, err := DecodeCursor(badTime); err == nil {
		t.Fatal("expected error for invalid timestamp")
	}
}
