// Package wsclient owns the client's single logical websocket connection:
// lifecycle, reconnection policy, keep-alive, and inbound frame
// validation. Everything that arrives on the socket is validated against
// the wire schema before any other component sees it.
package wsclient

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chamber-ai/william/src/arrakis"
)

// State is the connection lifecycle state.
type State int

const (
	StateConnecting State = iota
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// ErrNotConnected is returned by Send when no connection is established.
// The message is dropped, not queued.
var ErrNotConnected = errors.New("websocket not connected")

const (
	defaultMaxRetries        = 5
	defaultRetryInterval     = time.Second
	defaultHeartbeatInterval = 5 * time.Second
	heartbeatBody            = "ping"
)

// Handler receives every validated inbound response, in arrival order.
type Handler func(resp arrakis.Response)

// Config configures a Client.
type Config struct {
	// URL is the backend websocket endpoint, e.g. ws://127.0.0.1:9001.
	URL string
	// MaxRetries bounds automatic reconnection attempts after a drop.
	// Once exhausted the connection stays down until Restart is called.
	MaxRetries int
	// RetryInterval is the delay before each reconnection attempt.
	RetryInterval time.Duration
	// HeartbeatInterval is the keep-alive ping period.
	HeartbeatInterval time.Duration
	Handler           Handler
	Logger            *slog.Logger
	Dialer            *websocket.Dialer
}

// Client manages one logical connection to the backend.
type Client struct {
	cfg     Config
	logger  *slog.Logger
	handler Handler
	dialer  *websocket.Dialer

	mu         sync.Mutex
	state      State
	conn       *websocket.Conn
	retryCount int
	lastErr    error
	retryTimer *time.Timer
	closed     bool
	started    bool

	// writeMu serializes writes; heartbeats and sends share the socket.
	writeMu sync.Mutex

	done chan struct{}
}

// New creates a client. Connect must be called to start it.
func New(cfg Config) *Client {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = defaultRetryInterval
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = defaultHeartbeatInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	handler := cfg.Handler
	if handler == nil {
		handler = func(arrakis.Response) {}
	}

	return &Client{
		cfg:     cfg,
		logger:  logger.With("component", "wsclient"),
		handler: handler,
		dialer:  dialer,
		state:   StateDisconnected,
		done:    make(chan struct{}),
	}
}

// Connect starts the connection attempt. The state is connecting as soon
// as Connect returns; the handshake completes asynchronously. The
// heartbeat loop starts with the first Connect and runs until Close.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	if !c.started {
		c.started = true
		go c.heartbeatLoop()
	}
	c.mu.Unlock()

	go c.dial()
}

// Restart resets the retry budget and reconnects. It is the explicit
// escape from the terminal disconnected state after retries run out.
func (c *Client) Restart() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.retryCount = 0
	c.mu.Unlock()
	c.Connect()
}

func (c *Client) dial() {
	conn, resp, err := c.dialer.Dial(c.cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		c.lastErr = err
		c.state = StateDisconnected
		c.logger.Warn("dial failed", "url", c.cfg.URL, "error", err)
		c.scheduleRetryLocked()
		c.mu.Unlock()
		return
	}

	c.conn = conn
	c.state = StateConnected
	c.retryCount = 0
	c.lastErr = nil
	c.mu.Unlock()

	c.logger.Info("connected", "url", c.cfg.URL)
	go c.readLoop(conn)
}

// scheduleRetryLocked arms the reconnect timer if the retry budget
// allows. Caller holds c.mu.
func (c *Client) scheduleRetryLocked() {
	if c.retryCount >= c.cfg.MaxRetries {
		c.logger.Warn("reconnect budget exhausted; staying disconnected",
			"retries", c.retryCount)
		return
	}
	c.retryCount++

	attempt := c.retryCount
	c.retryTimer = time.AfterFunc(c.cfg.RetryInterval, func() {
		c.mu.Lock()
		if c.closed || c.state != StateDisconnected {
			c.mu.Unlock()
			return
		}
		c.state = StateConnecting
		c.mu.Unlock()

		c.logger.Info("reconnecting", "attempt", attempt)
		c.dial()
	})
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleDisconnect(conn, err)
			return
		}

		resp, perr := arrakis.ParseResponse(data)
		if perr != nil {
			// Malformed frames are dropped; they never reach session
			// state and never take the connection down.
			c.logger.Warn("dropping invalid frame", "error", perr)
			continue
		}

		if _, ok := resp.(arrakis.PingResponse); ok {
			// A heartbeat answer proves the socket is live even if the
			// open handshake was missed.
			c.markConnected()
		}

		c.handler(resp)
	}
}

func (c *Client) handleDisconnect(conn *websocket.Conn, err error) {
	conn.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		// A stale reader from a previous connection; the live one owns
		// the state machine now.
		return
	}
	c.conn = nil
	c.state = StateDisconnected
	if c.closed {
		return
	}
	c.lastErr = err
	c.logger.Warn("connection lost", "error", err)
	c.scheduleRetryLocked()
}

// markConnected forces the connected state. Used when a heartbeat
// response arrives while the state machine missed the open event.
func (c *Client) markConnected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state == StateConnected {
		return
	}
	c.state = StateConnected
	c.retryCount = 0
	c.lastErr = nil
}

// Send serializes and writes a request. Sending while not connected is a
// reported, non-fatal error: the message is dropped, never queued.
func (c *Client) Send(req arrakis.Request) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected && conn != nil
	c.mu.Unlock()

	if !connected {
		c.logger.Warn("dropping send while not connected", "method", req.Method())
		return ErrNotConnected
	}

	data, err := arrakis.EncodeRequest(req)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		// The read loop will observe the same failure and drive the
		// disconnect path; here it is just a reported send error.
		c.logger.Warn("write failed", "method", req.Method(), "error", err)
		return err
	}
	return nil
}

func (c *Client) heartbeatLoop() {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			err := c.Send(arrakis.PingRequest{Ping: arrakis.Ping{Body: heartbeatBody}})
			if err != nil && !errors.Is(err, ErrNotConnected) {
				c.logger.Debug("heartbeat failed", "error", err)
			}
		}
	}
}

// Close tears the session down: it cancels the heartbeat and any pending
// reconnect timer and closes the socket. The client cannot be reused.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.state = StateDisconnected
	if c.retryTimer != nil {
		c.retryTimer.Stop()
	}
	conn := c.conn
	c.conn = nil
	close(c.done)
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the most recent transport error, if any. It is
// cleared on a successful connect.
func (c *Client) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// RetryCount returns how many reconnect attempts have been consumed since
// the last successful connect.
func (c *Client) RetryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retryCount
}
