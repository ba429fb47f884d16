package models

import "time"

type ChatSessionStatus string

const (
	ChatWaiting ChatSessionStatus = "waiting"
	ChatActive  ChatSessionStatus = "active"
	ChatClosed  ChatSessionStatus = "closed"
)

type ChatSession struct {
	ID           string            `json:"id"`
	Subject      string            `json:"subject"`
	Category     string            `json:"category"`
	Priority     string            `json:"priority"`
	Status       ChatSessionStatus `json:"status"`
	RestaurantID string            `json:"restaurant_id,omitempty"`
	CustomerID   string            `json:"customer_id,omitempty"`
	AgentID      string            `json:"agent_id,omitempty"`
	Messages     []ChatMessage     `json:"messages,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type SenderRole string

const (
	SenderCustomer   SenderRole = "customer"
	SenderRestaurant SenderRole = "restaurant"
	SenderSupport    SenderRole = "support"
	SenderAdmin      SenderRole = "admin"
	SenderSystem     SenderRole = "system"
)

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessageFile   MessageType = "file"
	MessageSystem MessageType = "system"
)

type ChatMessage struct {
	ID          string       `json:"id,omitempty"`
	TempID      string       `json:"temp_id,omitempty"`
	SessionID   string       `json:"session_id"`
	Content     string       `json:"content"`
	SenderID    string       `json:"sender_id,omitempty"`
	SenderName  string       `json:"sender_name,omitempty"`
	SenderRole  SenderRole   `json:"sender_role"`
	Type        MessageType  `json:"message_type"`
	IsSystem    bool         `json:"is_system"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`

	// Pending is set on a locally sent message until the server echoes it.
	Pending bool `json:"pending,omitempty"`
	// Ephemeral marks annotations that only exist in this client's feed.
	Ephemeral bool `json:"ephemeral,omitempty"`
}

type Attachment struct {
	ID          string `json:"id"`
	FileName    string `json:"file_name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}
