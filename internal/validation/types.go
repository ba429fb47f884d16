package validation

// LoginRequest is the payload for POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,notblank"`
}

// AdvanceOrderRequest is the payload for POST /api/orders/:id/advance.
// An empty status asks for the next status in the sequence.
type AdvanceOrderRequest struct {
	Status string `json:"status" validate:"omitempty,oneof=pending confirmed preparing ready delivered cancelled"`
}

// OperatingStatusRequest is the payload for PATCH /api/restaurants/:id/operating-status
type OperatingStatusRequest struct {
	OperatingStatus string `json:"operating_status" validate:"required,oneof=open not_accepting_orders closed"`
}

// StartChatRequest is the payload for POST /api/chat/start
type StartChatRequest struct {
	RestaurantID string `json:"restaurant_id" validate:"omitempty,notblank"`
	Subject      string `json:"subject" validate:"omitempty,max=200"`
	Category     string `json:"category" validate:"omitempty,oneof=general order payment technical"`
	Priority     string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Message      string `json:"message" validate:"omitempty,max=2000"`
}

// SendMessageRequest is the payload for POST /api/chat/messages
type SendMessageRequest struct {
	Content string `json:"content" validate:"required,notblank,max=2000"`
}
