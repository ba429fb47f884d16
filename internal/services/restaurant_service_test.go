package services

import (
	"context"
	"testing"
	"time"

	"restaurant_portal/internal/models"
	"restaurant_portal/pkg/logger"
)

func newRestaurantFixture(t *testing.T) (*fakeUpstream, RestaurantService) {
	t.Helper()
	up := newFakeUpstream(t)
	cache, _ := newTestCache(t)
	orders := NewOrderService(up.client(), cache, 5*time.Minute, logger.Discard())
	return up, NewRestaurantService(up.client(), orders, cache, time.Hour, logger.Discard())
}

func TestGetRestaurant_UsesMetadataCache(t *testing.T) {
	up, svc := newRestaurantFixture(t)
	up.addRestaurant(models.Restaurant{ID: "r1", Name: "Pasta Place", OperatingStatus: models.OperatingOpen})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		r, err := svc.GetRestaurant(ctx, testSession(), "r1")
		if err != nil || r.Name != "Pasta Place" {
			t.Fatalf("get restaurant = %+v, %v", r, err)
		}
	}
	if n := up.count("GET /restaurants/r1"); n != 1 {
		t.Fatalf("GET count = %d, want 1", n)
	}
}

func TestUpdateOperatingStatus_RefreshesCachedRestaurant(t *testing.T) {
	up, svc := newRestaurantFixture(t)
	up.addRestaurant(models.Restaurant{ID: "r1", Name: "Pasta Place", OperatingStatus: models.OperatingOpen})
	ctx := context.Background()

	if _, err := svc.GetRestaurant(ctx, testSession(), "r1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	r, err := svc.UpdateOperatingStatus(ctx, testSession(), "r1", models.OperatingNotAcceptingOrders)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if r.OperatingStatus != models.OperatingNotAcceptingOrders {
		t.Fatalf("operating status = %s", r.OperatingStatus)
	}
	if n := up.count("PATCH /restaurants/r1/operating-status"); n != 1 {
		t.Fatalf("PATCH count = %d, want 1", n)
	}
}

func TestDashboard(t *testing.T) {
	up, svc := newRestaurantFixture(t)
	up.addRestaurant(models.Restaurant{ID: "r1", Name: "Pasta Place"})
	base := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	up.addOrder(models.Order{ID: "o1", RestaurantID: "r1", Status: models.OrderDelivered, CreatedAt: base})
	up.addOrder(models.Order{ID: "o2", RestaurantID: "r1", Status: models.OrderPreparing, CreatedAt: base.Add(time.Hour)})
	up.addOrder(models.Order{ID: "o3", RestaurantID: "r1", Status: models.OrderPending, CreatedAt: base.Add(2 * time.Hour)})
	up.addOrder(models.Order{ID: "x1", RestaurantID: "r2", Status: models.OrderPending, CreatedAt: base})

	d, err := svc.Dashboard(context.Background(), testSession(), "r1")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.Restaurant.Name != "Pasta Place" || d.Analytics.TotalOrders != 3 {
		t.Fatalf("unexpected dashboard %+v", d)
	}
	if len(d.RecentOrders) != 3 || d.RecentOrders[0].ID != "o3" {
		t.Fatalf("recent orders should be newest first: %+v", d.RecentOrders)
	}
	if d.ActiveOrders != 2 {
		t.Fatalf("active orders = %d, want 2", d.ActiveOrders)
	}
}

func TestDashboard_FailsWhenAnyFetchFails(t *testing.T) {
	_, svc := newRestaurantFixture(t)

	if _, err := svc.Dashboard(context.Background(), testSession(), "missing"); err == nil {
		t.Fatal("expected an error for an unknown restaurant")
	}
}

func TestRecentOrdersLimit(t *testing.T) {
	var orders []models.Order
	base := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		orders = append(orders, models.Order{ID: string(rune('a' + i)), CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	got := recentOrders(orders, 10)
	if len(got) != 10 || got[0].ID != "o" {
		t.Fatalf("unexpected recent orders %d first=%s", len(got), got[0].ID)
	}
	if orders[0].ID != "a" {
		t.Fatal("input slice must not be reordered")
	}
}
