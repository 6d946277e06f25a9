package hass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sethvargo/go-retry"

	"github.com/dukerupert/kidsched/internal/model"
)

const (
	readLimit          = 16 << 20
	pingInterval       = 30 * time.Second
	defaultCallTimeout = 10 * time.Second
	maxBackoff         = 30 * time.Second
)

// Config holds host connection settings.
type Config struct {
	URL         string // e.g. ws://homeassistant.local:8123/api/websocket
	Token       string
	CallTimeout time.Duration
}

// Client mirrors entity states from the host and calls services on it.
type Client struct {
	cfg    Config
	logger *slog.Logger
	nextID atomic.Int64

	mu        sync.RWMutex
	states    map[string]model.EntityState
	waiters   map[string]map[chan struct{}]struct{}
	listeners []func(entityID string)

	connMu  sync.Mutex
	conn    *ws.Conn
	pending map[int64]chan message

	readyOnce sync.Once
	ready     chan struct{}
}

// NewClient creates a Client. Nothing is dialed until Run is called.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	return &Client{
		cfg:     cfg,
		logger:  logger,
		states:  make(map[string]model.EntityState),
		waiters: make(map[string]map[chan struct{}]struct{}),
		pending: make(map[int64]chan message),
		ready:   make(chan struct{}),
	}
}

// Ready is closed once the first full state snapshot has been loaded.
func (c *Client) Ready() <-chan struct{} {
	return c.ready
}

// Connected reports whether a host connection is currently established.
func (c *Client) Connected() bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn != nil
}

// State returns the mirrored state of an entity.
func (c *Client) State(entityID string) (model.EntityState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.states[entityID]
	return s, ok
}

// Changed returns a channel that is closed on the next update of entityID.
// Call stop to release the waiter if the update is no longer of interest.
func (c *Client) Changed(entityID string) (ch <-chan struct{}, stop func()) {
	w := make(chan struct{})

	c.mu.Lock()
	set, ok := c.waiters[entityID]
	if !ok {
		set = make(map[chan struct{}]struct{})
		c.waiters[entityID] = set
	}
	set[w] = struct{}{}
	c.mu.Unlock()

	return w, func() {
		c.mu.Lock()
		if set, ok := c.waiters[entityID]; ok {
			delete(set, w)
			if len(set) == 0 {
				delete(c.waiters, entityID)
			}
		}
		c.mu.Unlock()
	}
}

// OnChange registers fn to be called after every entity update.
func (c *Client) OnChange(fn func(entityID string)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// CallService asks the host to run domain.service with data and waits for
// the host's result.
func (c *Client) CallService(ctx context.Context, domain, service string, data map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	_, err := c.request(ctx, map[string]any{
		"type":         typeCallService,
		"domain":       domain,
		"service":      service,
		"service_data": data,
	})
	if err != nil {
		return fmt.Errorf("call %s.%s: %w", domain, service, err)
	}
	return nil
}

// Run connects to the host and keeps the state mirror current until ctx is
// cancelled, reconnecting with exponential backoff when the connection drops.
func (c *Client) Run(ctx context.Context) error {
	for {
		var conn *ws.Conn
		backoff := retry.WithCappedDuration(maxBackoff, retry.NewExponential(time.Second))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			var err error
			conn, err = c.dial(ctx)
			if err == nil {
				return nil
			}
			if errors.Is(err, ErrAuthInvalid) {
				return err
			}
			c.logger.Warn("connect to host", "url", c.cfg.URL, "error", err)
			return retry.RetryableError(err)
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		c.logger.Info("connected to host", "url", c.cfg.URL)
		err = c.serve(ctx, conn)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("host connection lost", "error", err)
	}
}

// dial opens the websocket and completes the auth handshake.
func (c *Client) dial(ctx context.Context) (*ws.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(dialCtx, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	conn.SetReadLimit(readLimit)

	if err := c.authenticate(dialCtx, conn); err != nil {
		conn.Close(ws.StatusPolicyViolation, "auth failed")
		return nil, err
	}
	return conn, nil
}

func (c *Client) authenticate(ctx context.Context, conn *ws.Conn) error {
	var msg message
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		return fmt.Errorf("read auth_required: %w", err)
	}
	if msg.Type != typeAuthRequired {
		return fmt.Errorf("unexpected message %q before auth", msg.Type)
	}

	if err := wsjson.Write(ctx, conn, authMessage{Type: typeAuth, AccessToken: c.cfg.Token}); err != nil {
		return fmt.Errorf("write auth: %w", err)
	}

	msg = message{}
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		return fmt.Errorf("read auth result: %w", err)
	}
	switch msg.Type {
	case typeAuthOK:
		return nil
	case typeAuthInvalid:
		return fmt.Errorf("%w: %s", ErrAuthInvalid, msg.Message)
	default:
		return fmt.Errorf("unexpected auth result %q", msg.Type)
	}
}

// serve runs one established connection until it drops.
func (c *Client) serve(ctx context.Context, conn *ws.Conn) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	defer c.dropConn()
	defer conn.CloseNow()

	errc := make(chan error, 1)
	go func() { errc <- c.readLoop(ctx, conn) }()
	go c.pingLoop(ctx, conn)

	if err := c.bootstrap(ctx); err != nil {
		conn.CloseNow()
		<-errc
		return err
	}

	return <-errc
}

// bootstrap loads every entity and subscribes to state changes.
func (c *Client) bootstrap(ctx context.Context) error {
	result, err := c.request(ctx, map[string]any{"type": typeGetStates})
	if err != nil {
		return fmt.Errorf("get_states: %w", err)
	}
	var states []model.EntityState
	if err := json.Unmarshal(result, &states); err != nil {
		return fmt.Errorf("decode states: %w", err)
	}
	c.replaceStates(states)

	if _, err := c.request(ctx, map[string]any{
		"type":       typeSubscribe,
		"event_type": eventStateChanged,
	}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	c.readyOnce.Do(func() { close(c.ready) })
	c.logger.Info("host state loaded", "entities", len(states))
	return nil
}

func (c *Client) readLoop(ctx context.Context, conn *ws.Conn) error {
	for {
		var msg message
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return err
		}
		c.dispatch(msg)
	}
}

// pingLoop keeps the connection alive with protocol-level pings.
func (c *Client) pingLoop(ctx context.Context, conn *ws.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) dispatch(msg message) {
	switch msg.Type {
	case typeResult, typePong:
		c.connMu.Lock()
		ch, ok := c.pending[msg.ID]
		delete(c.pending, msg.ID)
		c.connMu.Unlock()
		if ok {
			ch <- msg
		}
	case typeEvent:
		if msg.Event == nil || msg.Event.EventType != eventStateChanged {
			return
		}
		c.applyState(msg.Event.Data.EntityID, msg.Event.Data.NewState)
	default:
		c.logger.Debug("ignoring host message", "type", msg.Type)
	}
}

// request sends msg with a fresh id and waits for its result.
func (c *Client) request(ctx context.Context, msg map[string]any) (json.RawMessage, error) {
	id := c.nextID.Add(1)
	msg["id"] = id
	ch := make(chan message, 1)

	c.connMu.Lock()
	conn := c.conn
	if conn == nil {
		c.connMu.Unlock()
		return nil, ErrNotConnected
	}
	c.pending[id] = ch
	c.connMu.Unlock()

	if err := wsjson.Write(ctx, conn, msg); err != nil {
		c.forget(id)
		return nil, fmt.Errorf("write: %w", err)
	}

	select {
	case res, ok := <-ch:
		if !ok {
			return nil, ErrNotConnected
		}
		if res.Type == typeResult && !res.Success {
			if res.Error == nil {
				return nil, &ServiceError{Code: "unknown_error", Message: "request failed"}
			}
			return nil, res.Error
		}
		return res.Result, nil
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	}
}

func (c *Client) forget(id int64) {
	c.connMu.Lock()
	delete(c.pending, id)
	c.connMu.Unlock()
}

// dropConn forgets the connection and fails every pending request.
func (c *Client) dropConn() {
	c.connMu.Lock()
	c.conn = nil
	pending := c.pending
	c.pending = make(map[int64]chan message)
	c.connMu.Unlock()

	for _, ch := range pending {
		close(ch)
	}
}

func (c *Client) replaceStates(states []model.EntityState) {
	next := make(map[string]model.EntityState, len(states))
	for _, s := range states {
		next[s.EntityID] = s
	}

	c.mu.Lock()
	changed := make([]string, 0, len(next)+len(c.states))
	for id := range c.states {
		if _, ok := next[id]; !ok {
			changed = append(changed, id)
		}
	}
	for id := range next {
		changed = append(changed, id)
	}
	c.states = next
	c.mu.Unlock()

	for _, id := range changed {
		c.notify(id)
	}
}

// applyState stores a new entity state; nil removes the entity.
func (c *Client) applyState(entityID string, state *model.EntityState) {
	if entityID == "" {
		return
	}
	c.mu.Lock()
	if state == nil {
		delete(c.states, entityID)
	} else {
		c.states[entityID] = *state
	}
	c.mu.Unlock()

	c.notify(entityID)
}

func (c *Client) notify(entityID string) {
	c.mu.Lock()
	waiters := c.waiters[entityID]
	delete(c.waiters, entityID)
	listeners := make([]func(string), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for w := range waiters {
		close(w)
	}
	for _, fn := range listeners {
		fn(entityID)
	}
}
