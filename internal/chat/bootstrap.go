package chat

import (
	"context"
	"errors"
	"fmt"

	"restaurant_portal/internal/models"
	"restaurant_portal/pkg/foodapi"
)

const (
	DefaultSubject  = "Restaurant Support Request"
	DefaultCategory = "general"
	DefaultPriority = "medium"
)

// SessionAPI is the part of the upstream API used to find or open a session.
type SessionAPI interface {
	MyChatSessions(ctx context.Context, token string) ([]models.ChatSession, error)
	CreateChatSession(ctx context.Context, token string, req foodapi.CreateChatSessionRequest) (*models.ChatSession, error)
}

type StartRequest struct {
	RestaurantID   string
	RestaurantName string
	Subject        string
	Category       string
	Priority       string
	Message        string
}

// Bootstrap returns the caller's open support session, creating one when
// none exists. A session for a different restaurant is not reused.
func Bootstrap(ctx context.Context, api SessionAPI, token string, req StartRequest) (*models.ChatSession, error) {
	sessions, err := api.MyChatSessions(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat sessions: %w", err)
	}
	for i := range sessions {
		s := sessions[i]
		if s.Status == models.ChatClosed {
			continue
		}
		if req.RestaurantID != "" && s.RestaurantID != "" && s.RestaurantID != req.RestaurantID {
			continue
		}
		return &s, nil
	}

	create := foodapi.CreateChatSessionRequest{
		Subject:        orDefault(req.Subject, DefaultSubject),
		Category:       orDefault(req.Category, DefaultCategory),
		Priority:       orDefault(req.Priority, DefaultPriority),
		RestaurantID:   req.RestaurantID,
		InitialMessage: initialMessage(req),
	}
	session, err := api.CreateChatSession(ctx, token, create)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat session: %w", err)
	}
	if session == nil || session.ID == "" {
		return nil, errors.New("chat session created without an id")
	}
	if session.Status == "" {
		session.Status = models.ChatWaiting
	}
	if session.RestaurantID == "" {
		session.RestaurantID = req.RestaurantID
	}
	return session, nil
}

func initialMessage(req StartRequest) string {
	if req.Message != "" {
		return req.Message
	}
	switch {
	case req.RestaurantName != "":
		return fmt.Sprintf("Support requested for restaurant %s.", req.RestaurantName)
	case req.RestaurantID != "":
		return fmt.Sprintf("Support requested for restaurant %s.", req.RestaurantID)
	}
	return "Support requested from the restaurant portal."
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
