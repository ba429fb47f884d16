package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Restaurant struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	OwnerID         string          `json:"owner_id"`
	Phone           string          `json:"phone"`
	Address         Address         `json:"address"`
	Cuisines        []string        `json:"cuisines"`
	Rating          float64         `json:"rating"`
	OperatingStatus OperatingStatus `json:"operating_status"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type OperatingStatus string

const (
	OperatingOpen               OperatingStatus = "open"
	OperatingNotAcceptingOrders OperatingStatus = "not_accepting_orders"
	OperatingClosed             OperatingStatus = "closed"
)

type RestaurantAnalytics struct {
	RestaurantID      string              `json:"restaurant_id"`
	TotalOrders       int                 `json:"total_orders"`
	TotalRevenue      decimal.Decimal     `json:"total_revenue"`
	AverageOrderValue decimal.Decimal     `json:"average_order_value"`
	OrdersByStatus    map[OrderStatus]int `json:"orders_by_status"`
	PopularItems      []PopularItem       `json:"popular_items"`
	Period            string              `json:"period,omitempty"`
}

type PopularItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Dashboard is the aggregate the restaurant home page renders.
type Dashboard struct {
	Restaurant   *Restaurant          `json:"restaurant"`
	Analytics    *RestaurantAnalytics `json:"analytics"`
	RecentOrders []Order              `json:"recent_orders"`
	ActiveOrders int                  `json:"active_orders"`
}
