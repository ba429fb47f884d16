package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLogger_WritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("portal", &buf)

	l.Info("req-1", "login", "user logged in")
	l.With("chat").Error("", "socket_read", "read failed", errors.New("boom"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}

	var first LogEntry
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if first.Level != "INFO" || first.Service != "portal" || first.RequestID != "req-1" || first.Action != "login" {
		t.Fatalf("unexpected entry: %+v", first)
	}

	var second LogEntry
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if second.Service != "chat" || second.Error == nil || second.Error.Msg != "boom" {
		t.Fatalf("unexpected error entry: %+v", second)
	}
}

func TestLogger_ErrorWithNilErr(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("portal", &buf).Error("", "x", "no error attached", nil)
	if strings.Contains(buf.String(), `"error"`) {
		t.Fatalf("nil error must not produce an error entry: %s", buf.String())
	}
}
