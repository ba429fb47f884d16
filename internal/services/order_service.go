package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restaurant_portal/internal/models"
	"restaurant_portal/internal/redis"
	"restaurant_portal/pkg/logger"
)

var (
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrTerminalStatus    = errors.New("order status has no next step")
)

// OrderAPI is the part of the upstream API the order service calls.
type OrderAPI interface {
	Orders(ctx context.Context, token, restaurantID string) ([]models.Order, error)
	Order(ctx context.Context, token, orderID string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, token, orderID string, status models.OrderStatus) error
}

type OrderService interface {
	ListOrders(ctx context.Context, session *models.PortalSession, restaurantID string, refresh bool) ([]models.Order, error)
	GetOrder(ctx context.Context, session *models.PortalSession, orderID string) (*models.Order, error)
	Advance(ctx context.Context, session *models.PortalSession, order *models.Order, requested models.OrderStatus) (*models.Order, error)
	Cancel(ctx context.Context, session *models.PortalSession, order *models.Order) (*models.Order, error)
	Invoice(ctx context.Context, session *models.PortalSession, orderID string) (*models.Invoice, error)
}

type orderService struct {
	api        OrderAPI
	cache      *redis.Client
	historyTTL time.Duration
	log        *logger.Logger
}

func NewOrderService(api OrderAPI, cache *redis.Client, historyTTL time.Duration, log *logger.Logger) OrderService {
	return &orderService{api: api, cache: cache, historyTTL: historyTTL, log: log}
}

// ListOrders serves the order history from cache while it is younger than
// the history TTL. refresh skips the cache and rewrites it.
func (s *orderService) ListOrders(ctx context.Context, session *models.PortalSession, restaurantID string, refresh bool) ([]models.Order, error) {
	if !refresh {
		orders, err := s.cache.GetOrderHistory(ctx, restaurantID, s.historyTTL)
		if err == nil {
			return orders, nil
		}
		if !errors.Is(err, redis.ErrCacheMiss) {
			s.log.Error(session.ID, "list_orders", "order history cache read failed", err)
		}
	}

	orders, err := s.api.Orders(ctx, session.Token, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orders for restaurant %s: %w", restaurantID, err)
	}
	if err := s.cache.SetOrderHistory(ctx, restaurantID, orders, s.historyTTL); err != nil {
		s.log.Error(session.ID, "list_orders", "order history cache write failed", err)
	}
	return orders, nil
}

func (s *orderService) GetOrder(ctx context.Context, session *models.PortalSession, orderID string) (*models.Order, error) {
	order, err := s.api.Order(ctx, session.Token, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order %s: %w", orderID, err)
	}
	return order, nil
}

// Advance moves order one step along the status sequence. An empty
// requested status means the next one. Nothing is sent upstream unless the
// transition is the next step, and order itself is never modified.
func (s *orderService) Advance(ctx context.Context, session *models.PortalSession, order *models.Order, requested models.OrderStatus) (*models.Order, error) {
	next, ok := models.NextStatus(order.Status)
	if !ok {
		return nil, fmt.Errorf("%w: order %s is %s", ErrTerminalStatus, order.ID, order.Status)
	}
	if requested == "" {
		requested = next
	}
	if requested != next {
		return nil, fmt.Errorf("%w: %s -> %s (next is %s)", ErrInvalidTransition, order.Status, requested, next)
	}
	return s.transition(ctx, session, order, requested)
}

func (s *orderService) Cancel(ctx context.Context, session *models.PortalSession, order *models.Order) (*models.Order, error) {
	if !order.Status.CanCancel() {
		return nil, fmt.Errorf("%w: order %s cannot be cancelled from %s", ErrInvalidTransition, order.ID, order.Status)
	}
	return s.transition(ctx, session, order, models.OrderCancelled)
}

// transition sends one status update and refetches the order.
func (s *orderService) transition(ctx context.Context, session *models.PortalSession, order *models.Order, status models.OrderStatus) (*models.Order, error) {
	if err := s.api.UpdateOrderStatus(ctx, session.Token, order.ID, status); err != nil {
		return nil, fmt.Errorf("failed to update order %s to %s: %w", order.ID, status, err)
	}
	s.log.Info(session.ID, "order_transition", fmt.Sprintf("order %s: %s -> %s", order.ID, order.Status, status))

	if order.RestaurantID != "" {
		if err := s.cache.InvalidateOrderHistory(ctx, order.RestaurantID); err != nil {
			s.log.Error(session.ID, "order_transition", "failed to invalidate order history", err)
		}
	}

	updated, err := s.api.Order(ctx, session.Token, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to refetch order %s: %w", order.ID, err)
	}
	return updated, nil
}

func (s *orderService) Invoice(ctx context.Context, session *models.PortalSession, orderID string) (*models.Invoice, error) {
	order, err := s.GetOrder(ctx, session, orderID)
	if err != nil {
		return nil, err
	}
	invoice, err := order.Invoice()
	if err != nil {
		return nil, fmt.Errorf("failed to build invoice for order %s: %w", orderID, err)
	}
	return invoice, nil
}
