// Package wsconn provides a production-grade WebSocket client with
// automatic reconnection, ping keepalive and callback-based delivery.
package wsconn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/fd1az/crosschain-arb/internal/apperror"
)

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// MessageHandler is invoked for every inbound message. Handlers run on the
// read goroutine; long work must be offloaded by the handler itself.
type MessageHandler func(ctx context.Context, msg []byte)

// StateChangeHandler is invoked on every state transition. err is non-nil
// when the transition was caused by a failure.
type StateChangeHandler func(state State, err error)

// Config holds WebSocket client configuration.
type Config struct {
	URL            string
	Name           string // identifies the connection in logs and errors
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int // 0 = infinite
	PingInterval   time.Duration // 0 disables keepalive pings
	PongTimeout    time.Duration
	MaxMessageSize int64
	WriteTimeout   time.Duration
}

// DefaultConfig returns sensible defaults for the given endpoint.
func DefaultConfig(url, name string) Config {
	return Config{
		URL:            url,
		Name:           name,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		MaxReconnects:  0, // infinite
		PingInterval:   30 * time.Second,
		PongTimeout:    10 * time.Second,
		MaxMessageSize: 1 << 20, // 1 MiB
		WriteTimeout:   10 * time.Second,
	}
}

// Client is a WebSocket client with automatic reconnection.
type Client struct {
	config Config

	mu       sync.RWMutex
	state    State
	conn     *websocket.Conn
	onMsg    MessageHandler
	onState  StateChangeHandler
	writeMu  sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a new WebSocket client. The client does not dial until
// Connect is called.
func New(config Config) (*Client, error) {
	if config.URL == "" {
		return nil, apperror.New(apperror.CodeRequiredField,
			apperror.WithMessage("websocket URL is required"),
			apperror.WithContext("wsconn.New"))
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = 1 * time.Second
	}
	if config.MaxBackoff < config.InitialBackoff {
		config.MaxBackoff = config.InitialBackoff
	}

	return &Client{
		config: config,
		state:  StateDisconnected,
		done:   make(chan struct{}),
	}, nil
}

// OnMessage registers the inbound message handler. Must be called before
// Connect.
func (c *Client) OnMessage(h MessageHandler) {
	c.mu.Lock()
	c.onMsg = h
	c.mu.Unlock()
}

// OnStateChange registers the state transition handler. Must be called
// before Connect.
func (c *Client) OnStateChange(h StateChangeHandler) {
	c.mu.Lock()
	c.onState = h
	c.mu.Unlock()
}

// Connect establishes the WebSocket connection and starts the read and
// keepalive goroutines. On failure the client returns to Disconnected and
// does not retry; reconnection only kicks in after a successful connect.
func (c *Client) Connect(ctx context.Context) error {
	if c.State() == StateClosed {
		return apperror.New(apperror.CodeWebSocketClosed,
			apperror.WithContext(c.config.Name))
	}

	c.setState(StateConnecting, nil)

	conn, err := c.dial(ctx)
	if err != nil {
		c.setState(StateDisconnected, err)
		return apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(err),
			apperror.WithContext(c.config.Name))
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setState(StateConnected, nil)

	c.wg.Add(1)
	go c.readLoop()

	if c.config.PingInterval > 0 {
		c.wg.Add(1)
		go c.pingLoop()
	}

	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, c.config.URL, nil)
	if err != nil {
		return nil, err
	}
	if c.config.MaxMessageSize > 0 {
		conn.SetReadLimit(c.config.MaxMessageSize)
	}
	return conn, nil
}

// Send writes a raw text message. Safe for concurrent use.
func (c *Client) Send(ctx context.Context, msg []byte) error {
	c.mu.RLock()
	conn := c.conn
	state := c.state
	c.mu.RUnlock()

	if state != StateConnected || conn == nil {
		return apperror.New(apperror.CodeWebSocketSendError,
			apperror.WithMessage(fmt.Sprintf("not connected (state: %s)", state)),
			apperror.WithContext(c.config.Name))
	}

	if c.config.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.WriteTimeout)
		defer cancel()
	}

	c.writeMu.Lock()
	err := conn.Write(ctx, websocket.MessageText, msg)
	c.writeMu.Unlock()

	if err != nil {
		return apperror.New(apperror.CodeWebSocketSendError,
			apperror.WithCause(err),
			apperror.WithContext(c.config.Name))
	}
	return nil
}

// SendJSON marshals v and sends it as a text message.
func (c *Client) SendJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return apperror.New(apperror.CodeWebSocketSendError,
			apperror.WithMessage("failed to marshal payload"),
			apperror.WithCause(err),
			apperror.WithContext(c.config.Name))
	}
	return c.Send(ctx, data)
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected reports whether the client currently has a live connection.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Close gracefully closes the connection and stops all goroutines.
// Idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		c.state = StateClosed
		c.mu.Unlock()

		if conn != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "client closing")
		}
	})
	c.wg.Wait()
	return nil
}

func (c *Client) setState(state State, err error) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = state
	handler := c.onState
	c.mu.Unlock()

	if handler != nil {
		handler(state, err)
	}
}

// readLoop reads messages until the connection drops, then hands off to the
// reconnect loop.
func (c *Client) readLoop() {
	defer c.wg.Done()

	ctx := context.Background()

	for {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn == nil {
			return
		}

		_, data, err := conn.Read(ctx)
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			c.handleDisconnect(err)
			return
		}

		c.mu.RLock()
		handler := c.onMsg
		c.mu.RUnlock()

		if handler != nil {
			handler(ctx, data)
		}
	}
}

// pingLoop sends keepalive pings while the connection is up.
func (c *Client) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.RLock()
			conn := c.conn
			connected := c.state == StateConnected
			c.mu.RUnlock()

			if !connected || conn == nil {
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), c.config.PongTimeout)
			err := conn.Ping(ctx)
			cancel()
			if err != nil {
				return // read loop will observe the dead connection
			}
		}
	}
}

// handleDisconnect tears down the dead connection and starts reconnecting.
func (c *Client) handleDisconnect(cause error) {
	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusInternalError, "connection lost")
		c.conn = nil
	}
	c.mu.Unlock()

	c.setState(StateReconnecting, cause)

	c.wg.Add(1)
	go c.reconnectLoop()
}

// reconnectLoop retries the dial with exponential backoff and jitter until
// it succeeds, the retry budget runs out, or the client is closed.
func (c *Client) reconnectLoop() {
	defer c.wg.Done()

	backoff := c.config.InitialBackoff

	for attempt := 1; ; attempt++ {
		if c.config.MaxReconnects > 0 && attempt > c.config.MaxReconnects {
			c.setState(StateDisconnected, errors.New("reconnect attempts exhausted"))
			return
		}

		// Full jitter keeps a fleet of clients from thundering back in sync.
		delay := time.Duration(rand.Int63n(int64(backoff) + 1))

		select {
		case <-c.done:
			return
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		conn, err := c.dial(ctx)
		cancel()

		if err == nil {
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
			c.setState(StateConnected, nil)

			c.wg.Add(1)
			go c.readLoop()
			return
		}

		backoff *= 2
		if backoff > c.config.MaxBackoff {
			backoff = c.config.MaxBackoff
		}
	}
}
