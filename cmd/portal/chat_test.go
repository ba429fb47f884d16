package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"restaurant_portal/internal/chat"
	"restaurant_portal/internal/models"
)

func TestReadLines_StopsWhenContextDone(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })
	go pw.Write([]byte("first\nsecond\n"))

	ctx, cancel := context.WithCancel(context.Background())
	lines := readLines(ctx, pr)

	select {
	case line := <-lines:
		if line != "first" {
			t.Fatalf("line = %q, want first", line)
		}
	case <-time.After(time.Second):
		t.Fatal("no line read")
	}

	// nobody reads "second"; the reader must give up instead of blocking
	cancel()
	time.Sleep(50 * time.Millisecond)

	select {
	case _, ok := <-lines:
		if ok {
			t.Fatal("reader kept sending after the context was done")
		}
	case <-time.After(time.Second):
		t.Fatal("reader goroutine still blocked after the context was done")
	}
}

func TestPrinter(t *testing.T) {
	var out bytes.Buffer
	closed := make(chan struct{})
	render := printer(&out, "u1", closed)

	render(&chat.ChatAcceptedEvent{SessionID: "s1", AgentID: "a1"})
	render(&chat.NewMessageEvent{Message: models.ChatMessage{ID: "m1", SenderID: "u1", Content: "mine"}})
	render(&chat.NewMessageEvent{Message: models.ChatMessage{ID: "m2", SenderID: "a1", SenderName: "Jane", Content: "hi there"}})
	render(&chat.ChatClosedEvent{SessionID: "s1", ClosedBy: "agent", Reason: "resolved"})
	render(&chat.ChatClosedEvent{SessionID: "s1", ClosedBy: "agent", Reason: "resolved"})

	got := out.String()
	if !strings.Contains(got, "* Support agent has joined the conversation") {
		t.Fatalf("missing agent fallback name in %q", got)
	}
	if strings.Contains(got, "mine") {
		t.Fatalf("own message echoed: %q", got)
	}
	if !strings.Contains(got, "Jane: hi there") {
		t.Fatalf("agent message missing: %q", got)
	}
	select {
	case <-closed:
	default:
		t.Fatal("closed channel not closed after chat_closed")
	}
}
