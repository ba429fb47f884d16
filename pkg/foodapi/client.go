package foodapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"restaurant_portal/internal/models"
)

// Client talks to the food-delivery platform REST API. Every call takes the
// caller's context so an abandoned portal request aborts its upstream call.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

var ErrUnauthorized = errors.New("unauthorized")

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && (e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        models.User `json:"user"`
}

type CreateChatSessionRequest struct {
	Subject        string `json:"subject"`
	Category       string `json:"category"`
	Priority       string `json:"priority"`
	RestaurantID   string `json:"restaurant_id,omitempty"`
	InitialMessage string `json:"initial_message"`
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", "", LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("login response carried no access token")
	}
	return &resp, nil
}

func (c *Client) MyRestaurants(ctx context.Context, token string) ([]models.Restaurant, error) {
	var restaurants []models.Restaurant
	if err := c.doJSON(ctx, http.MethodGet, "/restaurants/my/restaurants", token, nil, &restaurants); err != nil {
		return nil, err
	}
	return restaurants, nil
}

func (c *Client) Restaurant(ctx context.Context, token, restaurantID string) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := c.doJSON(ctx, http.MethodGet, "/restaurants/"+url.PathEscape(restaurantID), token, nil, &restaurant); err != nil {
		return nil, err
	}
	return &restaurant, nil
}

func (c *Client) RestaurantAnalytics(ctx context.Context, token, restaurantID string) (*models.RestaurantAnalytics, error) {
	var analytics models.RestaurantAnalytics
	path := "/restaurants/" + url.PathEscape(restaurantID) + "/analytics"
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &analytics); err != nil {
		return nil, err
	}
	return &analytics, nil
}

func (c *Client) UpdateOperatingStatus(ctx context.Context, token, restaurantID string, status models.OperatingStatus) error {
	path := "/restaurants/" + url.PathEscape(restaurantID) + "/operating-status"
	body := map[string]models.OperatingStatus{"operating_status": status}
	return c.doJSON(ctx, http.MethodPatch, path, token, body, nil)
}

func (c *Client) Orders(ctx context.Context, token, restaurantID string) ([]models.Order, error) {
	var orders []models.Order
	path := "/orders?restaurant_id=" + url.QueryEscape(restaurantID)
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) Order(ctx context.Context, token, orderID string) (*models.Order, error) {
	var order models.Order
	if err := c.doJSON(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), token, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, token, orderID string, status models.OrderStatus) error {
	path := "/orders/" + url.PathEscape(orderID) + "/status"
	body := map[string]models.OrderStatus{"status": status}
	return c.doJSON(ctx, http.MethodPatch, path, token, body, nil)
}

func (c *Client) MyChatSessions(ctx context.Context, token string) ([]models.ChatSession, error) {
	var sessions []models.ChatSession
	if err := c.doJSON(ctx, http.MethodGet, "/chat/sessions/my", token, nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *Client) CreateChatSession(ctx context.Context, token string, req CreateChatSessionRequest) (*models.ChatSession, error) {
	var session models.ChatSession
	if err := c.doJSON(ctx, http.MethodPost, "/chat/sessions", token, req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// UploadChatFile sends a file outside the socket channel. The stored
// attachment is returned to the caller and nothing else.
func (c *Client) UploadChatFile(ctx context.Context, token, sessionID, fileName string, file io.Reader) (*models.Attachment, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("session_id", sessionID); err != nil {
		return nil, fmt.Errorf("failed to write session field: %w", err)
	}
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to copy file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/chat/upload", token, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var attachment models.Attachment
	if err := c.do(req, &attachment); err != nil {
		return nil, err
	}
	return &attachment, nil
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request data: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := c.newRequest(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path, token string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body, resp.Status)}
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// errorMessage pulls "detail", "message" or "error" out of a JSON error
// body and falls back to the HTTP status text.
func errorMessage(body []byte, status string) string {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"detail", "message", "error"} {
			if msg, ok := payload[key].(string); ok && msg != "" {
				return msg
			}
		}
	}
	return status
}
