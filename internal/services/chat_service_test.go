package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"restaurant_portal/internal/chat"
	"restaurant_portal/internal/models"
	"restaurant_portal/pkg/foodapi"
	"restaurant_portal/pkg/logger"
)

type mockChatAPI struct {
	mu       sync.Mutex
	sessions []models.ChatSession
	creates  int
	uploads  []string
}

func (m *mockChatAPI) MyChatSessions(ctx context.Context, token string) ([]models.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions, nil
}

func (m *mockChatAPI) CreateChatSession(ctx context.Context, token string, req foodapi.CreateChatSessionRequest) (*models.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	return &models.ChatSession{ID: "cs-1", Subject: req.Subject, RestaurantID: req.RestaurantID}, nil
}

func (m *mockChatAPI) UploadChatFile(ctx context.Context, token, sessionID, fileName string, file io.Reader) (*models.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append(m.uploads, sessionID+"/"+fileName)
	return &models.Attachment{ID: "att-1", FileName: fileName}, nil
}

// socketStub accepts writes and blocks reads until closed.
type socketStub struct {
	mu      sync.Mutex
	written []string
	done    chan struct{}
	once    sync.Once
}

func newSocketStub() *socketStub {
	return &socketStub{done: make(chan struct{})}
}

func (s *socketStub) ReadMessage() (int, []byte, error) {
	<-s.done
	return 0, nil, errors.New("closed")
}

func (s *socketStub) WriteMessage(_ int, data []byte) error {
	var env chat.Envelope
	json.Unmarshal(data, &env)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, env.Event)
	return nil
}

func (s *socketStub) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *socketStub) events() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.written, ",")
}

func newChatFixture(t *testing.T) (*mockChatAPI, *socketStub, ChatService) {
	t.Helper()
	api := &mockChatAPI{}
	sock := newSocketStub()
	dial := func(ctx context.Context, token string) (chat.Conn, error) { return sock, nil }
	svc := NewChatService(api, dial, logger.Discard(), chat.WithReconnect(0, 0))
	t.Cleanup(svc.Shutdown)
	return api, sock, svc
}

func TestChatService_StartSendEnd(t *testing.T) {
	api, sock, svc := newChatFixture(t)
	session := testSession()
	ctx := context.Background()

	st, err := svc.Start(ctx, session, chat.StartRequest{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if st.SessionID != "cs-1" || st.Status != models.ChatWaiting || st.Connection != chat.StateConnected {
		t.Fatalf("unexpected state %+v", st)
	}

	// A second start reuses the running chat.
	if _, err := svc.Start(ctx, session, chat.StartRequest{}); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if api.creates != 1 {
		t.Fatalf("creates = %d, want 1", api.creates)
	}

	msg, err := svc.Send(session, "where is the driver?")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.SenderRole != models.SenderRestaurant || msg.SenderID != "u1" {
		t.Fatalf("unexpected sender on %+v", msg)
	}
	if _, err := svc.Send(session, " "); !errors.Is(err, chat.ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if got := sock.events(); got != "join,send_message" {
		t.Fatalf("events = %s", got)
	}

	if err := svc.End(session); err != nil {
		t.Fatalf("end: %v", err)
	}
	if _, err := svc.State(session); !errors.Is(err, ErrNoChat) {
		t.Fatalf("expected ErrNoChat after end, got %v", err)
	}
	if _, err := svc.Send(session, "hello?"); !errors.Is(err, chat.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestChatService_UploadUsesChatSession(t *testing.T) {
	api, _, svc := newChatFixture(t)
	session := testSession()

	if _, err := svc.Upload(context.Background(), session, "menu.pdf", strings.NewReader("pdf")); !errors.Is(err, chat.ErrNoSession) {
		t.Fatalf("expected ErrNoSession before start, got %v", err)
	}
	if _, err := svc.Start(context.Background(), session, chat.StartRequest{}); err != nil {
		t.Fatalf("start: %v", err)
	}

	att, err := svc.Upload(context.Background(), session, "menu.pdf", strings.NewReader("pdf"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if att.ID != "att-1" || len(api.uploads) != 1 || api.uploads[0] != "cs-1/menu.pdf" {
		t.Fatalf("unexpected upload %+v %v", att, api.uploads)
	}

	st, _ := svc.State(session)
	if len(st.Messages) != 0 {
		t.Fatalf("upload must not touch the feed, got %d messages", len(st.Messages))
	}
}

func socketClosed(sock *socketStub) bool {
	select {
	case <-sock.done:
		return true
	default:
		return false
	}
}

func TestChatService_ReleaseClosesSocket(t *testing.T) {
	_, sock, svc := newChatFixture(t)
	session := testSession()

	svc.Release("unknown")
	if _, err := svc.Start(context.Background(), session, chat.StartRequest{}); err != nil {
		t.Fatalf("start: %v", err)
	}

	svc.Release(session.ID)
	if !socketClosed(sock) {
		t.Fatal("chat socket still open after its portal session was released")
	}
	if _, err := svc.State(session); !errors.Is(err, ErrNoChat) {
		t.Fatalf("expected ErrNoChat after release, got %v", err)
	}
	if err := svc.End(session); !errors.Is(err, ErrNoChat) {
		t.Fatalf("released chat should not be ended twice, got %v", err)
	}
}

func TestChatService_ExpireSessions(t *testing.T) {
	_, sock, svc := newChatFixture(t)
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	session := testSession()
	session.ExpiresAt = now.Add(time.Hour)

	if _, err := svc.Start(context.Background(), session, chat.StartRequest{}); err != nil {
		t.Fatalf("start: %v", err)
	}

	if n := svc.ExpireSessions(now.Add(30 * time.Minute)); n != 0 {
		t.Fatalf("expired %d chats before the session expiry", n)
	}
	if socketClosed(sock) {
		t.Fatal("live session lost its socket")
	}

	if n := svc.ExpireSessions(now.Add(2 * time.Hour)); n != 1 {
		t.Fatalf("expired = %d, want 1", n)
	}
	if !socketClosed(sock) {
		t.Fatal("expired session kept its socket")
	}
	if _, err := svc.State(session); !errors.Is(err, ErrNoChat) {
		t.Fatalf("expected ErrNoChat after expiry, got %v", err)
	}
}

func TestSenderRole(t *testing.T) {
	if senderRole(models.RoleSupport) != models.SenderSupport || senderRole(models.RoleRestaurantOwner) != models.SenderRestaurant {
		t.Fatal("unexpected sender role mapping")
	}
}
