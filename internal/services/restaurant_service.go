package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"restaurant_portal/internal/models"
	"restaurant_portal/internal/redis"
	"restaurant_portal/pkg/logger"
)

const recentOrdersLimit = 10

type RestaurantAPI interface {
	MyRestaurants(ctx context.Context, token string) ([]models.Restaurant, error)
	Restaurant(ctx context.Context, token, restaurantID string) (*models.Restaurant, error)
	RestaurantAnalytics(ctx context.Context, token, restaurantID string) (*models.RestaurantAnalytics, error)
	UpdateOperatingStatus(ctx context.Context, token, restaurantID string, status models.OperatingStatus) error
}

type RestaurantService interface {
	MyRestaurants(ctx context.Context, session *models.PortalSession) ([]models.Restaurant, error)
	GetRestaurant(ctx context.Context, session *models.PortalSession, restaurantID string) (*models.Restaurant, error)
	Analytics(ctx context.Context, session *models.PortalSession, restaurantID string) (*models.RestaurantAnalytics, error)
	Dashboard(ctx context.Context, session *models.PortalSession, restaurantID string) (*models.Dashboard, error)
	UpdateOperatingStatus(ctx context.Context, session *models.PortalSession, restaurantID string, status models.OperatingStatus) (*models.Restaurant, error)
}

type restaurantService struct {
	api      RestaurantAPI
	orders   OrderService
	cache    *redis.Client
	cacheTTL time.Duration
	log      *logger.Logger
}

func NewRestaurantService(api RestaurantAPI, orders OrderService, cache *redis.Client, cacheTTL time.Duration, log *logger.Logger) RestaurantService {
	return &restaurantService{api: api, orders: orders, cache: cache, cacheTTL: cacheTTL, log: log}
}

func (s *restaurantService) MyRestaurants(ctx context.Context, session *models.PortalSession) ([]models.Restaurant, error) {
	restaurants, err := s.api.MyRestaurants(ctx, session.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to list restaurants: %w", err)
	}
	for i := range restaurants {
		if err := s.cache.SetRestaurant(ctx, &restaurants[i], s.cacheTTL); err != nil {
			s.log.Error(session.ID, "my_restaurants", "restaurant cache write failed", err)
		}
	}
	return restaurants, nil
}

func (s *restaurantService) GetRestaurant(ctx context.Context, session *models.PortalSession, restaurantID string) (*models.Restaurant, error) {
	restaurant, err := s.cache.GetRestaurant(ctx, restaurantID)
	if err == nil {
		return restaurant, nil
	}
	if !errors.Is(err, redis.ErrCacheMiss) {
		s.log.Error(session.ID, "get_restaurant", "restaurant cache read failed", err)
	}

	restaurant, err = s.api.Restaurant(ctx, session.Token, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch restaurant %s: %w", restaurantID, err)
	}
	if err := s.cache.SetRestaurant(ctx, restaurant, s.cacheTTL); err != nil {
		s.log.Error(session.ID, "get_restaurant", "restaurant cache write failed", err)
	}
	return restaurant, nil
}

func (s *restaurantService) Analytics(ctx context.Context, session *models.PortalSession, restaurantID string) (*models.RestaurantAnalytics, error) {
	analytics, err := s.api.RestaurantAnalytics(ctx, session.Token, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch analytics for restaurant %s: %w", restaurantID, err)
	}
	return analytics, nil
}

// Dashboard fetches the restaurant, its analytics and its order history
// concurrently. Any one failure fails the whole dashboard.
func (s *restaurantService) Dashboard(ctx context.Context, session *models.PortalSession, restaurantID string) (*models.Dashboard, error) {
	var (
		restaurant *models.Restaurant
		analytics  *models.RestaurantAnalytics
		orders     []models.Order
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		restaurant, err = s.GetRestaurant(gctx, session, restaurantID)
		return err
	})
	g.Go(func() error {
		var err error
		analytics, err = s.Analytics(gctx, session, restaurantID)
		return err
	})
	g.Go(func() error {
		var err error
		orders, err = s.orders.ListOrders(gctx, session, restaurantID, false)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.Dashboard{
		Restaurant:   restaurant,
		Analytics:    analytics,
		RecentOrders: recentOrders(orders, recentOrdersLimit),
		ActiveOrders: countActive(orders),
	}, nil
}

func (s *restaurantService) UpdateOperatingStatus(ctx context.Context, session *models.PortalSession, restaurantID string, status models.OperatingStatus) (*models.Restaurant, error) {
	if err := s.api.UpdateOperatingStatus(ctx, session.Token, restaurantID, status); err != nil {
		return nil, fmt.Errorf("failed to set restaurant %s to %s: %w", restaurantID, status, err)
	}
	if err := s.cache.DeleteRestaurant(ctx, restaurantID); err != nil {
		s.log.Error(session.ID, "operating_status", "failed to drop cached restaurant", err)
	}
	s.log.Info(session.ID, "operating_status", fmt.Sprintf("restaurant %s is now %s", restaurantID, status))
	return s.GetRestaurant(ctx, session, restaurantID)
}

// recentOrders returns up to limit orders, newest first.
func recentOrders(orders []models.Order, limit int) []models.Order {
	sorted := append([]models.Order(nil), orders...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func countActive(orders []models.Order) int {
	n := 0
	for _, o := range orders {
		if !o.Status.IsTerminal() && o.Status != models.OrderCompleted {
			n++
		}
	}
	return n
}
