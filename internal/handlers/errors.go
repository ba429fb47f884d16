package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"restaurant_portal/internal/chat"
	"restaurant_portal/internal/models"
	"restaurant_portal/internal/services"
	"restaurant_portal/pkg/foodapi"
	"restaurant_portal/pkg/logger"
)

var unauthorizedBody = gin.H{"error": "unauthorized", "redirect": "/login"}

// errorResponder turns service errors into portal responses.
type errorResponder struct {
	auth services.AuthService
	chat services.ChatService
	log  *logger.Logger
}

// respond writes the response for err and logs it. An upstream 401/403
// also ends the portal session and its chat so the client is sent back
// to login.
func (r errorResponder) respond(c *gin.Context, action string, err error) {
	rid := requestID(c)

	if errors.Is(err, foodapi.ErrUnauthorized) {
		if session := sessionFrom(c); session != nil {
			r.chat.Release(session.ID)
			if logoutErr := r.auth.Logout(c.Request.Context(), session.ID); logoutErr != nil {
				r.log.Error(rid, action, "failed to drop rejected session", logoutErr)
			}
			c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
		}
		r.log.Warn(rid, action, "upstream rejected the token: "+err.Error())
		c.JSON(http.StatusUnauthorized, unauthorizedBody)
		return
	}

	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		r.log.Error(rid, action, "request failed", err)
	} else {
		r.log.Warn(rid, action, err.Error())
	}
	c.JSON(status, body)
}

func classify(err error) (int, gin.H) {
	var apiErr *foodapi.APIError
	switch {
	case errors.Is(err, services.ErrInvalidTransition), errors.Is(err, services.ErrTerminalStatus):
		return http.StatusConflict, gin.H{"error": "invalid_transition", "msg": err.Error()}
	case errors.Is(err, models.ErrNegativeAmount):
		return http.StatusUnprocessableEntity, gin.H{"error": "invalid_amounts", "msg": err.Error()}
	case errors.Is(err, services.ErrNoChat), errors.Is(err, chat.ErrNoSession):
		return http.StatusNotFound, gin.H{"error": "no_chat"}
	case errors.Is(err, chat.ErrEmptyMessage):
		return http.StatusBadRequest, gin.H{"error": "empty_message"}
	case errors.Is(err, chat.ErrSessionClosed):
		return http.StatusConflict, gin.H{"error": "chat_closed"}
	case errors.Is(err, chat.ErrNotConnected), errors.Is(err, chat.ErrClientClosed):
		return http.StatusServiceUnavailable, gin.H{"error": "chat_disconnected"}
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
		return http.StatusNotFound, gin.H{"error": "not_found", "msg": apiErr.Message}
	case errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError:
		return apiErr.StatusCode, gin.H{"error": "upstream_rejected", "msg": apiErr.Message}
	}
	return http.StatusBadGateway, gin.H{"error": "upstream_unavailable"}
}
