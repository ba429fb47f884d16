package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"restaurant_portal/internal/models"
	"restaurant_portal/internal/redis"
	"restaurant_portal/internal/services"
	"restaurant_portal/pkg/logger"
)

const (
	SessionCookie   = "portal_session"
	HeaderRequestID = "X-Request-Id"

	ctxSessionKey   = "portal_session"
	ctxRequestIDKey = "request_id"
)

// RequestID tags each request with the caller's X-Request-Id or a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-Id")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequireSession loads the portal session once per request and stores it in
// the gin context. Handlers read it with sessionFrom. A session that is gone
// or expired takes its chat client down with it.
func RequireSession(auth services.AuthService, chats services.ChatService, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := sessionIDFrom(c)
		session, err := auth.Authenticate(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, redis.ErrSessionNotFound) {
				if id != "" {
					chats.Release(id)
				}
				c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorizedBody)
				return
			}
			log.Error(requestID(c), "load_session", "failed to load portal session", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
			return
		}
		c.Set(ctxSessionKey, session)
		c.Next()
	}
}

// AdvisoryRole logs requests made by users outside roles. It never blocks
// them; the upstream API is the authority.
func AdvisoryRole(log *logger.Logger, roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		if session := sessionFrom(c); session != nil {
			allowed := false
			for _, r := range roles {
				if session.User.Role == r {
					allowed = true
					break
				}
			}
			if !allowed {
				log.Warn(requestID(c), "role_check", "user "+session.User.ID+" with role "+string(session.User.Role)+" called "+c.FullPath())
			}
		}
		c.Next()
	}
}

func sessionIDFrom(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}

func sessionFrom(c *gin.Context) *models.PortalSession {
	v, ok := c.Get(ctxSessionKey)
	if !ok {
		return nil
	}
	session, _ := v.(*models.PortalSession)
	return session
}

func requestID(c *gin.Context) string {
	return c.GetString(ctxRequestIDKey)
}
