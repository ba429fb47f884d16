package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"

	"restaurant_portal/internal/models"
	"restaurant_portal/internal/redis"
	"restaurant_portal/pkg/foodapi"
	"restaurant_portal/pkg/logger"
)

// fakeUpstream is an in-memory stand-in for the food delivery API that
// counts every request it receives.
type fakeUpstream struct {
	mu          sync.Mutex
	calls       map[string]int
	orders      map[string]models.Order
	restaurants map[string]models.Restaurant
	failPatch   bool

	srv *httptest.Server
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{
		calls:       map[string]int{},
		orders:      map[string]models.Order{},
		restaurants: map[string]models.Restaurant{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req foodapi.LoginRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect email or password"})
			return
		}
		writeJSON(w, http.StatusOK, foodapi.LoginResponse{
			AccessToken: "upstream-token",
			TokenType:   "bearer",
			User:        models.User{ID: "u1", Email: req.Email, Name: "Owner", Role: models.RoleRestaurantOwner, RestaurantID: "r1"},
		})
	})
	mux.HandleFunc("GET /orders", func(w http.ResponseWriter, r *http.Request) {
		rid := r.URL.Query().Get("restaurant_id")
		f.mu.Lock()
		var out []models.Order
		for _, o := range f.orders {
			if o.RestaurantID == rid {
				out = append(out, o)
			}
		}
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, out)
	})
	mux.HandleFunc("GET /orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		o, ok := f.orders[r.PathValue("id")]
		f.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Order not found"})
			return
		}
		writeJSON(w, http.StatusOK, o)
	})
	mux.HandleFunc("PATCH /orders/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Status models.OrderStatus `json:"status"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failPatch {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "status update failed"})
			return
		}
		o := f.orders[r.PathValue("id")]
		o.Status = body.Status
		f.orders[o.ID] = o
		writeJSON(w, http.StatusOK, o)
	})
	mux.HandleFunc("GET /restaurants/my/restaurants", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		var out []models.Restaurant
		for _, rest := range f.restaurants {
			out = append(out, rest)
		}
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, out)
	})
	mux.HandleFunc("GET /restaurants/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		rest, ok := f.restaurants[r.PathValue("id")]
		f.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Restaurant not found"})
			return
		}
		writeJSON(w, http.StatusOK, rest)
	})
	mux.HandleFunc("GET /restaurants/{id}/analytics", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.RestaurantAnalytics{RestaurantID: r.PathValue("id"), TotalOrders: 3})
	})
	mux.HandleFunc("PATCH /restaurants/{id}/operating-status", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			OperatingStatus models.OperatingStatus `json:"operating_status"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		rest := f.restaurants[r.PathValue("id")]
		rest.OperatingStatus = body.OperatingStatus
		f.restaurants[rest.ID] = rest
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, rest)
	})

	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[r.Method+" "+r.URL.Path]++
		f.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeUpstream) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeUpstream) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeUpstream) addOrder(o models.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[o.ID] = o
}

func (f *fakeUpstream) addRestaurant(r models.Restaurant) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restaurants[r.ID] = r
}

func (f *fakeUpstream) setFailPatch(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPatch = fail
}

func (f *fakeUpstream) client() *foodapi.Client {
	return foodapi.NewClient(f.srv.URL, 5*time.Second)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newTestCache(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return redis.NewClient(rdb, logger.Discard()), mr
}

func testSession() *models.PortalSession {
	return &models.PortalSession{
		ID:    "ps-1",
		Token: "upstream-token",
		User:  models.User{ID: "u1", Name: "Owner", Role: models.RoleRestaurantOwner, RestaurantID: "r1"},
	}
}
