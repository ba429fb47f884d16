package chat

import (
	"encoding/json"
	"errors"
	"fmt"

	"restaurant_portal/internal/models"
)

// Client -> server events.
const (
	EventJoin        = "join"
	EventSendMessage = "send_message"
	EventTyping      = "typing"
	EventStopTyping  = "stop_typing"
)

// Server -> client events.
const (
	EventJoined        = "joined"
	EventNewMessage    = "new_message"
	EventChatAccepted  = "chat_accepted"
	EventUserTyping    = "user_typing"
	EventTypingStopped = "typing_stopped"
	EventChatClosed    = "chat_closed"
	EventError         = "error"
)

var (
	ErrUnknownEvent   = errors.New("unknown chat event")
	ErrInvalidPayload = errors.New("invalid chat event payload")
)

// Envelope is the frame exchanged over the socket in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ServerEvent is one of the event types below. The set is closed: only
// DecodeServerEvent produces values, and only after validating them.
type ServerEvent interface {
	EventName() string
	serverEvent()
}

type JoinedEvent struct {
	Session  models.ChatSession   `json:"session"`
	Messages []models.ChatMessage `json:"messages"`
}

type NewMessageEvent struct {
	Message models.ChatMessage `json:"message"`
}

type ChatAcceptedEvent struct {
	SessionID string `json:"session_id"`
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
}

type UserTypingEvent struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
}

type TypingStoppedEvent struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

type ChatClosedEvent struct {
	SessionID string `json:"session_id"`
	ClosedBy  string `json:"closed_by"`
	Reason    string `json:"reason"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}

func (*JoinedEvent) EventName() string        { return EventJoined }
func (*NewMessageEvent) EventName() string    { return EventNewMessage }
func (*ChatAcceptedEvent) EventName() string  { return EventChatAccepted }
func (*UserTypingEvent) EventName() string    { return EventUserTyping }
func (*TypingStoppedEvent) EventName() string { return EventTypingStopped }
func (*ChatClosedEvent) EventName() string    { return EventChatClosed }
func (*ErrorEvent) EventName() string         { return EventError }

// DisplayName is the agent name, or "Support agent" when the server only
// sent an id.
func (e *ChatAcceptedEvent) DisplayName() string {
	if e.AgentName != "" {
		return e.AgentName
	}
	return "Support agent"
}

func (e *UserTypingEvent) DisplayName() string {
	if e.UserName != "" {
		return e.UserName
	}
	return e.UserID
}

func (*JoinedEvent) serverEvent()        {}
func (*NewMessageEvent) serverEvent()    {}
func (*ChatAcceptedEvent) serverEvent()  {}
func (*UserTypingEvent) serverEvent()    {}
func (*TypingStoppedEvent) serverEvent() {}
func (*ChatClosedEvent) serverEvent()    {}
func (*ErrorEvent) serverEvent()         {}

func (e *JoinedEvent) validate() error {
	if e.Session.ID == "" {
		return errors.New("session.id is required")
	}
	if !validSessionStatus(e.Session.Status) {
		return fmt.Errorf("unknown session status %q", e.Session.Status)
	}
	for i, m := range e.Messages {
		if m.ID == "" {
			return fmt.Errorf("messages[%d].id is required", i)
		}
	}
	return nil
}

func (e *NewMessageEvent) validate() error {
	if e.Message.ID == "" {
		return errors.New("message.id is required")
	}
	if e.Message.Content == "" && len(e.Message.Attachments) == 0 {
		return errors.New("message has neither content nor attachments")
	}
	return nil
}

func (e *ChatAcceptedEvent) validate() error {
	if e.SessionID == "" {
		return errors.New("session_id is required")
	}
	if e.AgentName == "" && e.AgentID == "" {
		return errors.New("agent_name or agent_id is required")
	}
	return nil
}

func (e *UserTypingEvent) validate() error {
	if e.SessionID == "" {
		return errors.New("session_id is required")
	}
	if e.UserName == "" && e.UserID == "" {
		return errors.New("user_name or user_id is required")
	}
	return nil
}

func (e *TypingStoppedEvent) validate() error {
	if e.SessionID == "" {
		return errors.New("session_id is required")
	}
	return nil
}

func (e *ChatClosedEvent) validate() error {
	if e.SessionID == "" {
		return errors.New("session_id is required")
	}
	return nil
}

func (e *ErrorEvent) validate() error {
	if e.Message == "" {
		return errors.New("message is required")
	}
	return nil
}

// DecodeServerEvent parses and validates one frame from the server.
func DecodeServerEvent(raw []byte) (ServerEvent, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	var ev interface {
		ServerEvent
		validate() error
	}
	switch env.Event {
	case EventJoined:
		ev = &JoinedEvent{}
	case EventNewMessage:
		ev = &NewMessageEvent{}
	case EventChatAccepted:
		ev = &ChatAcceptedEvent{}
	case EventUserTyping:
		ev = &UserTypingEvent{}
	case EventTypingStopped:
		ev = &TypingStoppedEvent{}
	case EventChatClosed:
		ev = &ChatClosedEvent{}
	case EventError:
		ev = &ErrorEvent{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}

	if len(env.Data) == 0 {
		return nil, fmt.Errorf("%w: %s has no data", ErrInvalidPayload, env.Event)
	}
	if err := json.Unmarshal(env.Data, ev); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, env.Event, err)
	}
	if err := ev.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, env.Event, err)
	}
	return ev, nil
}

type joinPayload struct {
	SessionID string `json:"session_id"`
}

type sendMessagePayload struct {
	SessionID   string             `json:"session_id"`
	Content     string             `json:"content"`
	MessageType models.MessageType `json:"message_type"`
	TempID      string             `json:"temp_id"`
}

type typingPayload struct {
	SessionID string `json:"session_id"`
}

func encodeClientEvent(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// eventSessionID is the session a server event is scoped to, or "" when
// the event carries none.
func eventSessionID(ev ServerEvent) string {
	switch e := ev.(type) {
	case *JoinedEvent:
		return e.Session.ID
	case *NewMessageEvent:
		return e.Message.SessionID
	case *ChatAcceptedEvent:
		return e.SessionID
	case *UserTypingEvent:
		return e.SessionID
	case *TypingStoppedEvent:
		return e.SessionID
	case *ChatClosedEvent:
		return e.SessionID
	}
	return ""
}

func validSessionStatus(s models.ChatSessionStatus) bool {
	switch s {
	case models.ChatWaiting, models.ChatActive, models.ChatClosed:
		return true
	}
	return false
}
