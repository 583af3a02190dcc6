// Package realtime maintains the push channel that delivers notifications
// while a session exists.
//
// A Channel belongs to exactly one session. Start dials the socket with the
// gateway's cookie jar, announces the user with a join frame, and hands every
// inbound notification to the handler after normalizing it. Dropped
// connections are retried with a fixed delay up to MaxAttempts consecutive
// failures, after which the channel settles in Disconnected. A connection
// that drops before delivering any frame is a failure like a refused dial. Close detaches
// the handler and stops the loop; a closed Channel never reconnects, so a new
// session gets a new Channel.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/five82/shopaura/internal/api"
)

const (
	defaultMaxAttempts = 5
	defaultRetryDelay  = time.Second
	handshakeTimeout   = 10 * time.Second

	eventJoin         = "join"
	eventNotification = "notification"
)

// State is the connection state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Handler receives normalized notifications.
type Handler func(api.Notification)

// Options configure a Channel.
type Options struct {
	URL           string
	Jar           http.CookieJar
	MaxAttempts   int
	RetryDelay    time.Duration
	OnStateChange func(State)
	Logger        *slog.Logger
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Channel is one session's push connection.
type Channel struct {
	url         string
	userID      string
	dialer      *websocket.Dialer
	maxAttempts int
	retryDelay  time.Duration
	onState     func(State)
	log         *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	state   State
	handler Handler
	conn    *websocket.Conn

	closeOnce sync.Once
}

// Start opens a channel for userID and begins connecting in the background.
func Start(opts Options, userID string, handler Handler) (*Channel, error) {
	if opts.URL == "" {
		return nil, errors.New("socket url required")
	}
	if userID == "" {
		return nil, errors.New("user id required")
	}
	c := &Channel{
		url:    opts.URL,
		userID: userID,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
			Jar:              opts.Jar,
		},
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
		onState:     opts.OnStateChange,
		log:         opts.Logger,
		handler:     handler,
		done:        make(chan struct{}),
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = defaultMaxAttempts
	}
	if c.retryDelay <= 0 {
		c.retryDelay = defaultRetryDelay
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	go c.run()
	return c, nil
}

// State reports the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done is closed once the connection loop has exited.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Close detaches the handler, closes the socket and waits for the loop to
// exit. Safe to call more than once. The handler must not call Close.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.handler = nil
		conn := c.conn
		c.mu.Unlock()

		c.cancel()
		if conn != nil {
			_ = conn.Close()
		}
	})
	<-c.done
}

func (c *Channel) setState(s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()

	c.log.Debug("realtime state", "state", s.String())
	if c.onState != nil {
		c.onState(s)
	}
}

func (c *Channel) run() {
	defer close(c.done)
	defer c.setState(Disconnected)

	failures := 0
	c.setState(Connecting)
	for {
		received, err := c.session()
		if c.ctx.Err() != nil {
			return
		}
		// A connection that drops before its first frame counts as failed.
		if received {
			failures = 0
		} else {
			failures++
		}
		if failures >= c.maxAttempts {
			c.log.Warn("realtime giving up", "attempts", failures, "error", err)
			return
		}
		c.log.Info("realtime connection lost", "error", err, "attempt", failures+1)
		c.setState(Reconnecting)
		if !c.sleep(c.retryDelay) {
			return
		}
	}
}

// session runs one connection from dial to drop. received reports whether
// any frame arrived before the drop.
func (c *Channel) session() (received bool, err error) {
	conn, _, err := c.dialer.DialContext(c.ctx, c.url, nil)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	c.mu.Lock()
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		_ = conn.Close()
		return false, c.ctx.Err()
	}
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
	}()

	if err := conn.WriteJSON(map[string]any{"event": eventJoin, "data": c.userID}); err != nil {
		return false, fmt.Errorf("send join: %w", err)
	}
	c.setState(Connected)

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			return received, fmt.Errorf("read frame: %w", err)
		}
		received = true
		if f.Event != eventNotification {
			continue
		}
		c.deliver(f.Data)
	}
}

func (c *Channel) deliver(raw json.RawMessage) {
	n, err := api.DecodeNotification(raw)
	if err != nil {
		c.log.Warn("dropping malformed notification", "error", err)
		return
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
		c.log.Debug("notification without id, synthesized", "id", n.ID)
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()
	if h != nil {
		h(n)
	}
}

func (c *Channel) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-c.ctx.Done():
		return false
	}
}
