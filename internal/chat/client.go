package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"restaurant_portal/internal/models"
	"restaurant_portal/pkg/logger"
)

const (
	DefaultTypingTimeout     = 3 * time.Second
	DefaultReconnectAttempts = 5
	DefaultReconnectDelay    = time.Second
)

var (
	ErrNoSession        = errors.New("no chat session established")
	ErrSessionClosed    = errors.New("chat session is closed")
	ErrEmptyMessage     = errors.New("message content is empty")
	ErrNotConnected     = errors.New("chat socket is not connected")
	ErrClientClosed     = errors.New("chat client is closed")
	ErrAlreadyConnected = errors.New("chat client is already connected")
)

type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

// State is a snapshot of a client, safe to hand to callers.
type State struct {
	SessionID  string                   `json:"session_id"`
	Status     models.ChatSessionStatus `json:"status"`
	Connection ConnState                `json:"connection"`
	Messages   []models.ChatMessage     `json:"messages"`
	TypingUser string                   `json:"typing_user,omitempty"`
}

type Option func(*Client)

func WithTypingTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.typingTimeout = d
		}
	}
}

func WithReconnect(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		c.reconnectAttempts = attempts
		c.reconnectDelay = delay
	}
}

func WithAfterFunc(after AfterFunc) Option {
	return func(c *Client) { c.afterFunc = after }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(c *Client) { c.newID = newID }
}

func WithLogger(log *logger.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithEventHandler registers fn to be called after each server event has
// been applied. fn runs on the read loop and must not block.
func WithEventHandler(fn func(ServerEvent)) Option {
	return func(c *Client) { c.onEvent = fn }
}

// WithSender sets the identity stamped on locally sent messages.
func WithSender(id, name string, role models.SenderRole) Option {
	return func(c *Client) {
		c.senderID = id
		c.senderName = name
		c.senderRole = role
	}
}

// Client is one restaurant's connection to a support chat session.
type Client struct {
	sessionID string
	token     string
	dial      DialFunc

	typingTimeout     time.Duration
	reconnectAttempts int
	reconnectDelay    time.Duration
	afterFunc         AfterFunc
	now               func() time.Time
	newID             func() string
	log               *logger.Logger
	onEvent           func(ServerEvent)

	senderID   string
	senderName string
	senderRole models.SenderRole

	life   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	typing *Debouncer

	writeMu sync.Mutex

	mu         sync.Mutex
	status     models.ChatSessionStatus
	connState  ConnState
	conn       Conn
	feed       Feed
	typingUser string
	running    bool
	closed     bool
}

func NewClient(sessionID string, status models.ChatSessionStatus, token string, dial DialFunc, opts ...Option) *Client {
	if status == "" {
		status = models.ChatWaiting
	}
	c := &Client{
		sessionID:         sessionID,
		token:             token,
		dial:              dial,
		typingTimeout:     DefaultTypingTimeout,
		reconnectAttempts: DefaultReconnectAttempts,
		reconnectDelay:    DefaultReconnectDelay,
		afterFunc:         realAfterFunc,
		now:               time.Now,
		newID:             uuid.NewString,
		log:               logger.Discard(),
		senderRole:        models.SenderRestaurant,
		status:            status,
		connState:         StateDisconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.life, c.cancel = context.WithCancel(context.Background())
	c.typing = NewDebouncer(c.typingTimeout, c.afterFunc)
	return c
}

// Connect dials the socket, joins the session and starts the read loop.
// The loop outlives ctx; it ends on Close or when reconnecting gives up.
func (c *Client) Connect(ctx context.Context) error {
	if c.sessionID == "" {
		return ErrNoSession
	}

	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClientClosed
	case c.running:
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.running = true
	c.connState = StateConnecting
	c.mu.Unlock()

	conn, err := c.connect(ctx)
	if err != nil {
		c.mu.Lock()
		c.running = false
		c.connState = StateDisconnected
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrClientClosed
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go c.run(conn)
	return nil
}

// connect dials and joins. Close aborts an in-flight dial, and a connection
// that completes after Close is closed on the spot.
func (c *Client) connect(ctx context.Context) (Conn, error) {
	dialCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.life, cancel)
	defer stop()

	conn, err := c.dial(dialCtx, c.token)
	if err != nil {
		if c.isClosed() {
			return nil, ErrClientClosed
		}
		return nil, fmt.Errorf("failed to connect chat socket: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return nil, ErrClientClosed
	}
	c.conn = conn
	c.connState = StateConnected
	c.mu.Unlock()

	if err := c.emit(EventJoin, joinPayload{SessionID: c.sessionID}); err != nil {
		c.detach(conn)
		conn.Close()
		return nil, err
	}
	c.log.Info(c.sessionID, "chat_connect", "joined chat session")
	return conn, nil
}

func (c *Client) run(conn Conn) {
	defer c.wg.Done()
	for {
		c.readLoop(conn)
		conn.Close()
		if !c.detach(conn) {
			return
		}
		if conn = c.reconnect(); conn == nil {
			return
		}
	}
}

func (c *Client) readLoop(conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !c.isClosed() {
				c.log.Error(c.sessionID, "chat_read", "chat socket disconnected", err)
			}
			return
		}
		ev, err := DecodeServerEvent(data)
		if err != nil {
			c.log.Warn(c.sessionID, "chat_decode", err.Error())
			continue
		}
		c.apply(ev)
	}
}

// detach marks conn as gone and reports whether the client is still open.
func (c *Client) detach(conn Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.conn = nil
	}
	c.connState = StateDisconnected
	c.typingUser = ""
	return !c.closed
}

func (c *Client) reconnect() Conn {
	for attempt := 1; attempt <= c.reconnectAttempts; attempt++ {
		select {
		case <-c.life.Done():
			return nil
		case <-time.After(c.reconnectDelay):
		}

		c.mu.Lock()
		if c.closed || c.status == models.ChatClosed {
			c.mu.Unlock()
			return nil
		}
		c.connState = StateConnecting
		c.mu.Unlock()

		conn, err := c.connect(c.life)
		if err == nil {
			return conn
		}
		if errors.Is(err, ErrClientClosed) {
			return nil
		}
		c.log.Error(c.sessionID, "chat_reconnect", fmt.Sprintf("reconnect attempt %d/%d failed", attempt, c.reconnectAttempts), err)

		c.mu.Lock()
		c.connState = StateDisconnected
		c.mu.Unlock()
	}
	if c.reconnectAttempts > 0 {
		c.log.Warn(c.sessionID, "chat_reconnect", "giving up on chat socket")
	}
	return nil
}

func (c *Client) apply(ev ServerEvent) {
	if sid := eventSessionID(ev); sid != "" && sid != c.sessionID {
		c.log.Debug(c.sessionID, "chat_event", "ignoring "+ev.EventName()+" for session "+sid)
		return
	}

	// chat_closed is applied under writeMu so no send_message or typing
	// frame can be written once the session is seen as closed.
	_, closing := ev.(*ChatClosedEvent)
	if closing {
		c.writeMu.Lock()
	}

	stopTyping := false
	c.mu.Lock()
	switch e := ev.(type) {
	case *JoinedEvent:
		c.feed.Replace(e.Messages)
		if c.status != models.ChatClosed {
			c.status = e.Session.Status
		}
	case *NewMessageEvent:
		c.feed.Receive(e.Message)
	case *ChatAcceptedEvent:
		if c.status != models.ChatClosed {
			c.status = models.ChatActive
			c.feed.Append(c.agentJoinedMessage(e))
		}
	case *UserTypingEvent:
		if e.UserID == "" || e.UserID != c.senderID {
			c.typingUser = e.DisplayName()
		}
	case *TypingStoppedEvent:
		c.typingUser = ""
	case *ChatClosedEvent:
		c.status = models.ChatClosed
		c.typingUser = ""
		stopTyping = true
	case *ErrorEvent:
		c.log.Warn(c.sessionID, "chat_error", e.Message)
	}
	handler := c.onEvent
	c.mu.Unlock()
	if closing {
		c.writeMu.Unlock()
	}

	if stopTyping {
		c.typing.Cancel()
	}
	if handler != nil {
		handler(ev)
	}
}

func (c *Client) agentJoinedMessage(e *ChatAcceptedEvent) models.ChatMessage {
	return models.ChatMessage{
		ID:         "system-" + c.newID(),
		SessionID:  c.sessionID,
		Content:    e.DisplayName() + " has joined the conversation",
		SenderRole: models.SenderSystem,
		Type:       models.MessageSystem,
		IsSystem:   true,
		CreatedAt:  c.now(),
		Ephemeral:  true,
	}
}

// Send appends a pending message to the feed and emits it. The returned
// message carries the temp id the server echo will be matched on.
func (c *Client) Send(content string) (models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.ChatMessage{}, ErrEmptyMessage
	}

	msg := models.ChatMessage{
		TempID:     c.newID(),
		SessionID:  c.sessionID,
		Content:    content,
		SenderID:   c.senderID,
		SenderName: c.senderName,
		SenderRole: c.senderRole,
		Type:       models.MessageText,
		CreatedAt:  c.now(),
		Pending:    true,
	}
	payload := sendMessagePayload{
		SessionID:   c.sessionID,
		Content:     content,
		MessageType: models.MessageText,
		TempID:      msg.TempID,
	}
	err := c.emitSendable(EventSendMessage, payload, func() { c.feed.Append(msg) })
	if err != nil {
		c.mu.Lock()
		c.feed.Remove(msg.TempID)
		c.mu.Unlock()
		return models.ChatMessage{}, err
	}

	if c.typing.Cancel() {
		c.stopTyping()
	}
	return msg, nil
}

// Typing emits a typing notice and (re)arms the stop_typing timer.
func (c *Client) Typing() error {
	if err := c.emitSendable(EventTyping, typingPayload{SessionID: c.sessionID}, nil); err != nil {
		return err
	}
	c.typing.Trigger(c.stopTyping)
	return nil
}

func (c *Client) stopTyping() {
	err := c.emitSendable(EventStopTyping, typingPayload{SessionID: c.sessionID}, nil)
	if err != nil && !errors.Is(err, ErrSessionClosed) && !c.isClosed() {
		c.log.Error(c.sessionID, "chat_stop_typing", "failed to emit stop_typing", err)
	}
}

func (c *Client) sendableLocked() error {
	switch {
	case c.sessionID == "":
		return ErrNoSession
	case c.status == models.ChatClosed:
		return ErrSessionClosed
	case c.closed:
		return ErrClientClosed
	case c.conn == nil:
		return ErrNotConnected
	}
	return nil
}

// emitSendable writes a frame on behalf of the user. The sendable check,
// the conn snapshot and the write all happen under writeMu. accepted, if
// set, runs under c.mu once the check has passed.
func (c *Client) emitSendable(event string, payload interface{}, accepted func()) error {
	data, err := encodeClientEvent(event, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	if err := c.sendableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	conn := c.conn
	if accepted != nil {
		accepted()
	}
	c.mu.Unlock()

	return writeFrame(conn, event, data)
}

func (c *Client) emit(event string, payload interface{}) error {
	data, err := encodeClientEvent(event, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return writeFrame(conn, event, data)
}

func writeFrame(conn Conn, event string, data []byte) error {
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", event, err)
	}
	return nil
}

// Close tears the client down. It is safe to call before Connect, while a
// dial is in flight, and more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.connState = StateDisconnected
	c.typingUser = ""
	c.mu.Unlock()

	c.cancel()
	c.typing.Cancel()
	if conn != nil {
		if err := conn.Close(); err != nil {
			c.log.Debug(c.sessionID, "chat_close", err.Error())
		}
	}
	c.wg.Wait()
	c.log.Info(c.sessionID, "chat_close", "chat client closed")
	return nil
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		SessionID:  c.sessionID,
		Status:     c.status,
		Connection: c.connState,
		Messages:   c.feed.Messages(),
		TypingUser: c.typingUser,
	}
}

func (c *Client) SessionID() string {
	return c.sessionID
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
