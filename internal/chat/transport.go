package chat

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
)

// Conn is the subset of *websocket.Conn the client needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// DialFunc opens an authenticated socket connection.
type DialFunc func(ctx context.Context, token string) (Conn, error)

// WebSocketDialer dials socketURL, carrying the bearer token both as the
// Authorization header and as the token query field of the handshake.
func WebSocketDialer(socketURL string) DialFunc {
	return func(ctx context.Context, token string) (Conn, error) {
		u, err := url.Parse(socketURL)
		if err != nil {
			return nil, fmt.Errorf("invalid socket url: %w", err)
		}
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()

		header := http.Header{}
		header.Set("Authorization", "Bearer "+token)

		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
		if err != nil {
			if resp != nil {
				return nil, fmt.Errorf("websocket handshake failed with status %d: %w", resp.StatusCode, err)
			}
			return nil, fmt.Errorf("websocket dial failed: %w", err)
		}
		return conn, nil
	}
}
