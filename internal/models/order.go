package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"order_number"`
	Status          OrderStatus     `json:"status"`
	RestaurantID    string          `json:"restaurant_id"`
	CustomerID      string          `json:"customer_id"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone"`
	Items           []OrderItem     `json:"items"`
	DeliveryAddress Address         `json:"delivery_address"`
	DeliveryFee     decimal.Decimal `json:"delivery_fee"`
	ServiceFee      decimal.Decimal `json:"service_fee"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Notes      string `json:"notes,omitempty"`
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"

	// OrderCompleted only shows up in older mock data. It is kept so such
	// orders decode, but it has no place in the forward sequence.
	OrderCompleted OrderStatus = "completed"
)

// OrderStatusSequence is the forward-only progression of an order.
var OrderStatusSequence = []OrderStatus{
	OrderPending,
	OrderConfirmed,
	OrderPreparing,
	OrderReady,
	OrderDelivered,
}

// NextStatus returns the status that follows s, or false when s is delivered
// or not part of the sequence at all.
func NextStatus(s OrderStatus) (OrderStatus, bool) {
	for i, st := range OrderStatusSequence {
		if st == s {
			if i+1 < len(OrderStatusSequence) {
				return OrderStatusSequence[i+1], true
			}
			return "", false
		}
	}
	return "", false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// CanCancel reports whether cancellation is still possible from s.
func (s OrderStatus) CanCancel() bool {
	if s.IsTerminal() {
		return false
	}
	for _, st := range OrderStatusSequence {
		if st == s {
			return true
		}
	}
	return false
}

var ErrNegativeAmount = errors.New("monetary amount must not be negative")

type Invoice struct {
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Lines       []OrderItem     `json:"lines"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	ServiceFee  decimal.Decimal `json:"service_fee"`
	Total       decimal.Decimal `json:"total"`
}

// Invoice recomputes every line total from quantity and unit price and sums
// the order. The stored TotalAmount is not trusted.
func (o *Order) Invoice() (*Invoice, error) {
	if o.DeliveryFee.IsNegative() || o.ServiceFee.IsNegative() {
		return nil, ErrNegativeAmount
	}

	lines := make([]OrderItem, 0, len(o.Items))
	subtotal := decimal.Zero
	for _, item := range o.Items {
		if item.Quantity < 0 || item.UnitPrice.IsNegative() {
			return nil, ErrNegativeAmount
		}
		item.LineTotal = item.Total()
		subtotal = subtotal.Add(item.LineTotal)
		lines = append(lines, item)
	}

	return &Invoice{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Lines:       lines,
		Subtotal:    subtotal,
		DeliveryFee: o.DeliveryFee,
		ServiceFee:  o.ServiceFee,
		Total:       subtotal.Add(o.DeliveryFee).Add(o.ServiceFee),
	}, nil
}
