package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"restaurant_portal/internal/models"
	"restaurant_portal/internal/redis"
	"restaurant_portal/pkg/foodapi"
	"restaurant_portal/pkg/logger"
)

type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*foodapi.LoginResponse, error)
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (*models.PortalSession, error)
	Authenticate(ctx context.Context, sessionID string) (*models.PortalSession, error)
	Logout(ctx context.Context, sessionID string) error
}

type authService struct {
	api   AuthAPI
	cache *redis.Client
	ttl   time.Duration
	log   *logger.Logger
	now   func() time.Time
}

func NewAuthService(api AuthAPI, cache *redis.Client, ttl time.Duration, log *logger.Logger) AuthService {
	return &authService{api: api, cache: cache, ttl: ttl, log: log, now: time.Now}
}

// Login exchanges credentials for an upstream token and stores it, with the
// user profile, under a fresh portal session id.
func (s *authService) Login(ctx context.Context, email, password string) (*models.PortalSession, error) {
	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, errors.New("login response carried no access token")
	}

	now := s.now()
	session := &models.PortalSession{
		ID:        uuid.NewString(),
		Token:     resp.AccessToken,
		User:      resp.User,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.cache.SetSession(ctx, session, s.ttl); err != nil {
		return nil, err
	}

	s.log.Info(session.ID, "login", fmt.Sprintf("user %s logged in as %s", session.User.ID, session.User.Role))
	return session, nil
}

func (s *authService) Authenticate(ctx context.Context, sessionID string) (*models.PortalSession, error) {
	if sessionID == "" {
		return nil, redis.ErrSessionNotFound
	}
	session, err := s.cache.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.ExpiresAt.IsZero() && s.now().After(session.ExpiresAt) {
		if err := s.cache.DeleteSession(ctx, sessionID); err != nil {
			s.log.Error(sessionID, "authenticate", "failed to delete expired session", err)
		}
		return nil, redis.ErrSessionNotFound
	}
	return session, nil
}

func (s *authService) Logout(ctx context.Context, sessionID string) error {
	if err := s.cache.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	s.log.Info(sessionID, "logout", "portal session ended")
	return nil
}
