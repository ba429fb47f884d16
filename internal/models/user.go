package models

import "time"

type User struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	Name         string   `json:"name"`
	Phone        string   `json:"phone,omitempty"`
	Role         UserRole `json:"role"`
	RestaurantID string   `json:"restaurant_id,omitempty"`
	IsActive     bool     `json:"is_active"`
}

type UserRole string

const (
	RoleAdmin           UserRole = "admin"
	RoleRestaurantOwner UserRole = "restaurant_owner"
	RoleSupport         UserRole = "support"
	RoleCustomer        UserRole = "customer"
)

// PortalSession replaces the token and user profile a browser would keep in
// local storage. It is loaded once per request and handed down explicitly.
type PortalSession struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
