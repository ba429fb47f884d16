package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"restaurant_portal/internal/chat"
	"restaurant_portal/internal/models"
	"restaurant_portal/pkg/logger"
)

var ErrNoChat = errors.New("no chat started for this portal session")

type ChatAPI interface {
	chat.SessionAPI
	UploadChatFile(ctx context.Context, token, sessionID, fileName string, file io.Reader) (*models.Attachment, error)
}

type ChatService interface {
	Start(ctx context.Context, session *models.PortalSession, req chat.StartRequest) (chat.State, error)
	State(session *models.PortalSession) (chat.State, error)
	Send(session *models.PortalSession, content string) (models.ChatMessage, error)
	Typing(session *models.PortalSession) error
	Upload(ctx context.Context, session *models.PortalSession, fileName string, file io.Reader) (*models.Attachment, error)
	End(session *models.PortalSession) error
	Release(portalSessionID string)
	ExpireSessions(now time.Time) int
	RunExpiry(ctx context.Context, interval time.Duration)
	Shutdown()
}

// chatService holds one chat client per portal session.
type chatService struct {
	api  ChatAPI
	dial chat.DialFunc
	opts []chat.Option
	log  *logger.Logger

	mu      sync.Mutex
	clients map[string]*chat.Client
	expires map[string]time.Time
}

func NewChatService(api ChatAPI, dial chat.DialFunc, log *logger.Logger, opts ...chat.Option) ChatService {
	return &chatService{
		api:     api,
		dial:    dial,
		opts:    opts,
		log:     log,
		clients: make(map[string]*chat.Client),
		expires: make(map[string]time.Time),
	}
}

// Start returns the running chat of the portal session, or bootstraps and
// connects a new one. A chat whose session was closed is replaced.
func (s *chatService) Start(ctx context.Context, session *models.PortalSession, req chat.StartRequest) (chat.State, error) {
	if existing := s.client(session.ID); existing != nil {
		if st := existing.State(); st.Status != models.ChatClosed {
			return st, nil
		}
		s.remove(session.ID, existing)
	}

	if req.RestaurantID == "" {
		req.RestaurantID = session.User.RestaurantID
	}
	chatSession, err := chat.Bootstrap(ctx, s.api, session.Token, req)
	if err != nil {
		return chat.State{}, err
	}

	opts := append([]chat.Option{
		chat.WithLogger(s.log.With("chat-client")),
		chat.WithSender(session.User.ID, session.User.Name, senderRole(session.User.Role)),
	}, s.opts...)
	client := chat.NewClient(chatSession.ID, chatSession.Status, session.Token, s.dial, opts...)
	if err := client.Connect(ctx); err != nil {
		client.Close()
		return chat.State{}, fmt.Errorf("failed to join chat session %s: %w", chatSession.ID, err)
	}

	s.mu.Lock()
	if other, ok := s.clients[session.ID]; ok && other.State().Status != models.ChatClosed {
		// a concurrent Start won
		s.mu.Unlock()
		client.Close()
		return other.State(), nil
	}
	stale := s.clients[session.ID]
	s.clients[session.ID] = client
	if !session.ExpiresAt.IsZero() {
		s.expires[session.ID] = session.ExpiresAt
	} else {
		delete(s.expires, session.ID)
	}
	s.mu.Unlock()
	if stale != nil {
		stale.Close()
	}

	s.log.Info(session.ID, "chat_start", "joined chat session "+chatSession.ID)
	return client.State(), nil
}

func (s *chatService) State(session *models.PortalSession) (chat.State, error) {
	client := s.client(session.ID)
	if client == nil {
		return chat.State{}, ErrNoChat
	}
	return client.State(), nil
}

func (s *chatService) Send(session *models.PortalSession, content string) (models.ChatMessage, error) {
	client := s.client(session.ID)
	if client == nil {
		return models.ChatMessage{}, chat.ErrNoSession
	}
	return client.Send(content)
}

func (s *chatService) Typing(session *models.PortalSession) error {
	client := s.client(session.ID)
	if client == nil {
		return chat.ErrNoSession
	}
	return client.Typing()
}

// Upload stores a file against the current chat session. The attachment is
// not added to the message feed.
func (s *chatService) Upload(ctx context.Context, session *models.PortalSession, fileName string, file io.Reader) (*models.Attachment, error) {
	client := s.client(session.ID)
	if client == nil {
		return nil, chat.ErrNoSession
	}
	if client.State().Status == models.ChatClosed {
		return nil, chat.ErrSessionClosed
	}
	attachment, err := s.api.UploadChatFile(ctx, session.Token, client.SessionID(), fileName, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", fileName, err)
	}
	return attachment, nil
}

func (s *chatService) End(session *models.PortalSession) error {
	client := s.take(session.ID)
	if client == nil {
		return ErrNoChat
	}
	return client.Close()
}

// Release closes the chat of a portal session that no longer exists. It is
// a no-op when the session never started a chat.
func (s *chatService) Release(portalSessionID string) {
	client := s.take(portalSessionID)
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		s.log.Error(portalSessionID, "chat_release", "failed to close chat client", err)
		return
	}
	s.log.Info(portalSessionID, "chat_release", "portal session ended, chat client closed")
}

// ExpireSessions releases every chat whose portal session expired before
// now and returns how many were closed.
func (s *chatService) ExpireSessions(now time.Time) int {
	s.mu.Lock()
	var expired []string
	for id, at := range s.expires {
		if now.After(at) {
			expired = append(expired, id)
		}
	}
	s.mu.Unlock()

	for _, id := range expired {
		s.Release(id)
	}
	return len(expired)
}

// RunExpiry sweeps expired chats every interval until ctx is done.
func (s *chatService) RunExpiry(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.ExpireSessions(now); n > 0 {
				s.log.Info("", "chat_expiry", fmt.Sprintf("closed %d expired chat clients", n))
			}
		}
	}
}

func (s *chatService) Shutdown() {
	s.mu.Lock()
	clients := s.clients
	s.clients = make(map[string]*chat.Client)
	s.expires = make(map[string]time.Time)
	s.mu.Unlock()

	var wg sync.WaitGroup
	for id, client := range clients {
		wg.Add(1)
		go func(id string, c *chat.Client) {
			defer wg.Done()
			if err := c.Close(); err != nil {
				s.log.Error(id, "chat_shutdown", "failed to close chat client", err)
			}
		}(id, client)
	}
	wg.Wait()
}

func (s *chatService) client(portalSessionID string) *chat.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients[portalSessionID]
}

// take removes and returns the chat of a portal session.
func (s *chatService) take(portalSessionID string) *chat.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	client := s.clients[portalSessionID]
	delete(s.clients, portalSessionID)
	delete(s.expires, portalSessionID)
	return client
}

func (s *chatService) remove(portalSessionID string, c *chat.Client) {
	s.mu.Lock()
	if s.clients[portalSessionID] == c {
		delete(s.clients, portalSessionID)
		delete(s.expires, portalSessionID)
	}
	s.mu.Unlock()
	c.Close()
}

func senderRole(role models.UserRole) models.SenderRole {
	switch role {
	case models.RoleAdmin:
		return models.SenderAdmin
	case models.RoleSupport:
		return models.SenderSupport
	case models.RoleCustomer:
		return models.SenderCustomer
	}
	return models.SenderRestaurant
}
