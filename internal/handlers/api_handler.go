package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"restaurant_portal/internal/models"
	"restaurant_portal/internal/services"
	"restaurant_portal/internal/validation"
	"restaurant_portal/pkg/foodapi"
	"restaurant_portal/pkg/logger"
)

type APIHandler struct {
	authService       services.AuthService
	restaurantService services.RestaurantService
	orderService      services.OrderService
	chatService       services.ChatService
	validate          *validatorv10.Validate
	log               *logger.Logger
	errs              errorResponder
}

func NewAPIHandler(
	authService services.AuthService,
	restaurantService services.RestaurantService,
	orderService services.OrderService,
	chatService services.ChatService,
	validate *validatorv10.Validate,
	log *logger.Logger,
) *APIHandler {
	return &APIHandler{
		authService:       authService,
		restaurantService: restaurantService,
		orderService:      orderService,
		chatService:       chatService,
		validate:          validate,
		log:               log,
		errs:              errorResponder{auth: authService, chat: chatService, log: log},
	}
}

// Auth endpoints

func (h *APIHandler) Login(c *gin.Context) {
	var req validation.LoginRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	session, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, foodapi.ErrUnauthorized) {
			h.log.Warn(requestID(c), "login", "rejected credentials for "+req.Email)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
			return
		}
		h.errs.respond(c, "login", err)
		return
	}

	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	c.SetCookie(SessionCookie, session.ID, maxAge, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID,
		"user":       session.User,
		"expires_at": session.ExpiresAt,
	})
}

func (h *APIHandler) Logout(c *gin.Context) {
	session := sessionFrom(c)
	if err := h.chatService.End(session); err != nil && !errors.Is(err, services.ErrNoChat) {
		h.log.Error(requestID(c), "logout", "failed to end chat", err)
	}
	if err := h.authService.Logout(c.Request.Context(), session.ID); err != nil {
		h.log.Error(requestID(c), "logout", "failed to delete session", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
		return
	}
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

func (h *APIHandler) Me(c *gin.Context) {
	session := sessionFrom(c)
	c.JSON(http.StatusOK, gin.H{
		"user":       session.User,
		"expires_at": session.ExpiresAt,
	})
}

// Restaurant endpoints

func (h *APIHandler) ListRestaurants(c *gin.Context) {
	restaurants, err := h.restaurantService.MyRestaurants(c.Request.Context(), sessionFrom(c))
	if err != nil {
		h.errs.respond(c, "list_restaurants", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurants": restaurants})
}

func (h *APIHandler) GetRestaurant(c *gin.Context) {
	restaurant, err := h.restaurantService.GetRestaurant(c.Request.Context(), sessionFrom(c), c.Param("id"))
	if err != nil {
		h.errs.respond(c, "get_restaurant", err)
		return
	}
	c.JSON(http.StatusOK, restaurant)
}

func (h *APIHandler) GetAnalytics(c *gin.Context) {
	analytics, err := h.restaurantService.Analytics(c.Request.Context(), sessionFrom(c), c.Param("id"))
	if err != nil {
		h.errs.respond(c, "get_analytics", err)
		return
	}
	c.JSON(http.StatusOK, analytics)
}

func (h *APIHandler) GetDashboard(c *gin.Context) {
	dashboard, err := h.restaurantService.Dashboard(c.Request.Context(), sessionFrom(c), c.Param("id"))
	if err != nil {
		h.errs.respond(c, "get_dashboard", err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

func (h *APIHandler) UpdateOperatingStatus(c *gin.Context) {
	var req validation.OperatingStatusRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	restaurant, err := h.restaurantService.UpdateOperatingStatus(c.Request.Context(), sessionFrom(c), c.Param("id"), models.OperatingStatus(req.OperatingStatus))
	if err != nil {
		h.errs.respond(c, "operating_status", err)
		return
	}
	c.JSON(http.StatusOK, restaurant)
}

// ListOrders serves the restaurant's order history. ?refresh=true skips the
// five minute cache.
func (h *APIHandler) ListOrders(c *gin.Context) {
	refresh := c.Query("refresh") == "true"
	orders, err := h.orderService.ListOrders(c.Request.Context(), sessionFrom(c), c.Param("id"), refresh)
	if err != nil {
		h.errs.respond(c, "list_orders", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// Order endpoints

func (h *APIHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), sessionFrom(c), c.Param("id"))
	if err != nil {
		h.errs.respond(c, "get_order", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *APIHandler) GetInvoice(c *gin.Context) {
	invoice, err := h.orderService.Invoice(c.Request.Context(), sessionFrom(c), c.Param("id"))
	if err != nil {
		h.errs.respond(c, "get_invoice", err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *APIHandler) AdvanceOrder(c *gin.Context) {
	var req validation.AdvanceOrderRequest
	if c.Request.ContentLength != 0 {
		if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
			return
		}
	}

	ctx := c.Request.Context()
	session := sessionFrom(c)
	order, err := h.orderService.GetOrder(ctx, session, c.Param("id"))
	if err != nil {
		h.errs.respond(c, "advance_order", err)
		return
	}

	updated, err := h.orderService.Advance(ctx, session, order, models.OrderStatus(req.Status))
	if err != nil {
		h.transitionFailed(c, "advance_order", order, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *APIHandler) CancelOrder(c *gin.Context) {
	ctx := c.Request.Context()
	session := sessionFrom(c)
	order, err := h.orderService.GetOrder(ctx, session, c.Param("id"))
	if err != nil {
		h.errs.respond(c, "cancel_order", err)
		return
	}

	updated, err := h.orderService.Cancel(ctx, session, order)
	if err != nil {
		h.transitionFailed(c, "cancel_order", order, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// transitionFailed answers with the order as it was before the attempt.
func (h *APIHandler) transitionFailed(c *gin.Context, action string, order *models.Order, err error) {
	if errors.Is(err, foodapi.ErrUnauthorized) {
		h.errs.respond(c, action, err)
		return
	}
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(requestID(c), action, "status update for order "+order.ID+" failed", err)
	} else {
		h.log.Warn(requestID(c), action, err.Error())
	}
	body["order"] = order
	c.JSON(status, body)
}
