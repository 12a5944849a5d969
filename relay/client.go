package relay

import (
	"context"
	"errors"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nitelive/relay-sdk-go/relay/internal"
)

// transport abstracts the framed duplex connection so tests can run the
// client against an in-memory conn.
type transport interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

type dialFunc func(ctx context.Context, rawURL string) (transport, error)

// Client owns one logical connection to a relay endpoint and multiplexes
// chat, presence and notification events over it. Construct once per
// process with NewClient and share; the client recovers from unclean
// disconnects on its own, up to the configured attempt ceiling.
type Client struct {
	cfg        Config
	logger     zerolog.Logger
	clk        clock.Clock
	dial       dialFunc
	dispatcher *Dispatcher
	presence   *PresenceTracker
	instanceID string

	writeCh chan Envelope

	mu         sync.Mutex
	state      ConnectionState
	conn       transport
	cancel     context.CancelFunc
	attempts   int
	retryTimer *clock.Timer
	closed     bool

	onState        []func(StateEvent)
	onNotification []func(Notification)
}

// NewClient constructs a client with provided config.
// Use DefaultConfig() as a starting point and modify as needed.
func NewClient(cfg Config) *Client {
	if cfg.ReconnectBaseDelay <= 0 {
		cfg.ReconnectBaseDelay = time.Second
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = 5
	}
	c := &Client{
		cfg:        cfg,
		logger:     zerolog.Nop(),
		clk:        clock.New(),
		presence:   NewPresenceTracker(),
		instanceID: uuid.NewString(),
		writeCh:    make(chan Envelope, 16),
	}
	c.dial = func(ctx context.Context, rawURL string) (transport, error) {
		ws, _, err := websocket.Dial(ctx, rawURL, nil)
		if err != nil {
			return nil, err
		}
		return internal.NewConn(ws, cfg.ReadTimeout, cfg.WriteTimeout), nil
	}
	c.dispatcher = NewDispatcher(c.logger)
	c.dispatcher.builtin = c.handleBuiltin
	return c
}

// SetLogger overrides the no-op default. Call before Connect.
func (c *Client) SetLogger(l zerolog.Logger) {
	c.logger = l.With().Str("component", "relay-client").Logger()
	c.dispatcher.logger = l.With().Str("component", "dispatcher").Logger()
}

// Subscribe registers fn for every inbound envelope of eventType and
// returns the unsubscribe capability.
func (c *Client) Subscribe(eventType string, fn Handler) func() {
	return c.dispatcher.Subscribe(eventType, fn)
}

// OnStateChange registers a callback for connection state transitions.
func (c *Client) OnStateChange(fn func(StateEvent)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.onState = append(c.onState, fn)
	c.mu.Unlock()
}

// OnNotification registers a callback for the user-facing notification
// side-channel (likes, follows, gifts, stream starts). These fire whether
// or not anything subscribed to the underlying event type.
func (c *Client) OnNotification(fn func(Notification)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.onNotification = append(c.onNotification, fn)
	c.mu.Unlock()
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnlineUsers returns a snapshot of one room's occupancy.
func (c *Client) OnlineUsers(roomID string) []string {
	return c.presence.OnlineUsers(roomID)
}

// AllOnlineUsers returns a snapshot of occupancy across every known room.
func (c *Client) AllOnlineUsers() []string {
	return c.presence.AllOnlineUsers()
}

// Connect dials the relay endpoint and starts internal loops. A no-op when
// a connection is already open or being opened. A failed dial schedules an
// automatic retry (when AutoReconnect is on) in addition to returning the
// error.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return NewError(ErrorClosed, "client closed")
	}
	if c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if c.cfg.URL == "" {
		return NewError(ErrorInvalidConfig, "empty URL")
	}
	if _, err := c.endpoint(); err != nil {
		return err
	}
	return c.connectOnce(ctx)
}

// Reconnect force-closes any existing connection, resets the attempt
// counter and dials again. This is the manual recovery path out of the
// terminal StateError.
func (c *Client) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return NewError(ErrorClosed, "client closed")
	}
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	conn := c.conn
	c.conn = nil
	c.attempts = 0
	notify := c.setStateLocked(StateDisconnected, nil)
	c.mu.Unlock()
	notify()

	if conn != nil {
		_ = conn.Close()
	}
	return c.connectOnce(ctx)
}

// Send transmits env on the live connection after stamping Timestamp
// (always) and UserID (only when missing). While not connected the call is
// a logged no-op: the relay is best-effort and never queues outbound
// frames.
func (c *Client) Send(env Envelope) {
	c.mu.Lock()
	connected := c.state == StateConnected
	c.mu.Unlock()
	if !connected {
		c.logger.Debug().Str("event_type", env.Type).Msg("send while disconnected, dropping")
		return
	}

	env.Timestamp = c.clk.Now().UnixMilli()
	if env.UserID == "" {
		env.UserID = c.cfg.UserID
	}

	select {
	case c.writeCh <- env:
	default:
		c.logger.Warn().Str("event_type", env.Type).Msg("write buffer full, dropping")
	}
}

// Close tears the connection down, cancels any pending reconnect and drops
// every subscription. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	conn := c.conn
	c.conn = nil
	notify := c.setStateLocked(StateDisconnected, nil)
	c.mu.Unlock()
	notify()

	c.dispatcher.Clear()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", WrapError(ErrorInvalidConfig, "parse relay URL", err)
	}
	if c.cfg.UserID != "" {
		q := u.Query()
		q.Set("userId", c.cfg.UserID)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// connectOnce runs a single numbered dial attempt: the first from Connect
// or Reconnect, the rest from the backoff timer.
func (c *Client) connectOnce(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return NewError(ErrorClosed, "client closed")
	}
	if c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	c.attempts++
	c.retryTimer = nil
	notify := c.setStateLocked(StateConnecting, nil)
	c.mu.Unlock()
	notify()

	target, err := c.endpoint()
	if err != nil {
		return err
	}

	dialCtx := ctx
	if c.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
		defer cancel()
	}

	conn, err := c.dial(dialCtx, target)
	if err != nil {
		werr := WrapError(ErrorHandshake, "dial relay endpoint", err)
		c.mu.Lock()
		notify := c.scheduleReconnectLocked(werr)
		c.mu.Unlock()
		notify()
		return werr
	}

	runCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancel()
		_ = conn.Close()
		return NewError(ErrorClosed, "client closed")
	}
	c.conn = conn
	c.cancel = cancel
	c.attempts = 0
	notify = c.setStateLocked(StateConnected, nil)
	c.mu.Unlock()
	notify()

	c.logger.Info().
		Str("instance_id", c.instanceID).
		Str("url", c.cfg.URL).
		Msg("relay connected")

	go c.readLoop(runCtx, conn)
	go c.writeLoop(runCtx, conn)

	c.announce()
	return nil
}

// announce emits the identity envelope right after a successful open, when
// the client was configured with one.
func (c *Client) announce() {
	if c.cfg.UserID == "" {
		return
	}
	env, err := NewEnvelope(EventUserConnected, PresencePayload{UserID: c.cfg.UserID})
	if err != nil {
		return
	}
	env.UserID = c.cfg.UserID
	c.Send(env)
}

func (c *Client) readLoop(ctx context.Context, conn transport) {
	for {
		raw, err := conn.Read(ctx)
		if err != nil {
			if isExpectedDisconnect(ctx, err) {
				c.handleDisconnect(nil, conn)
				return
			}
			c.logger.Warn().Err(err).Msg("read loop exit")
			c.handleDisconnect(WrapError(ErrorConnection, "read frame", err), conn)
			return
		}

		env, derr := DecodeEnvelope(raw)
		if derr != nil {
			// A corrupt frame is dropped; the connection stays open.
			c.logger.Warn().Err(derr).Int("bytes", len(raw)).Msg("dropping malformed frame")
			continue
		}
		c.dispatcher.Dispatch(env)
	}
}

func (c *Client) writeLoop(ctx context.Context, conn transport) {
	for {
		select {
		case env := <-c.writeCh:
			raw, err := EncodeEnvelope(env)
			if err != nil {
				c.logger.Error().Err(err).Str("event_type", env.Type).Msg("encode outbound envelope")
				continue
			}
			if err := conn.Write(ctx, raw); err != nil {
				// The read loop observes the dead conn and drives recovery.
				c.logger.Warn().Err(err).Msg("write loop exit")
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// handleDisconnect is the single exit path for a connection's loops. A nil
// cause is a clean close: the client parks in StateDisconnected without
// scheduling recovery.
func (c *Client) handleDisconnect(cause error, conn transport) {
	c.mu.Lock()
	if c.conn != conn {
		// A stale loop from an already-replaced connection.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	var notify func()
	if c.closed || cause == nil {
		notify = c.setStateLocked(StateDisconnected, cause)
	} else {
		notify = c.scheduleReconnectLocked(cause)
	}
	c.mu.Unlock()
	notify()
}

// scheduleReconnectLocked decides what happens after a failed attempt or an
// unclean disconnect: park, retry later, or give up. Caller holds c.mu and
// runs the returned thunk after unlocking.
func (c *Client) scheduleReconnectLocked(cause error) func() {
	if c.closed || !c.cfg.AutoReconnect {
		return c.setStateLocked(StateDisconnected, cause)
	}
	if c.attempts >= c.cfg.MaxReconnectAttempts {
		terminal := WrapError(ErrorRetriesExhausted, "gave up after max reconnect attempts", cause)
		c.logger.Error().Err(cause).Int("attempts", c.attempts).Msg("reconnect attempts exhausted")
		return c.setStateLocked(StateError, terminal)
	}

	delay := c.backoffDelay()
	c.logger.Warn().
		Err(cause).
		Int("attempt", c.attempts).
		Dur("delay", delay).
		Msg("scheduling reconnect")
	c.retryTimer = c.clk.AfterFunc(delay, func() {
		_ = c.connectOnce(context.Background())
	})
	return c.setStateLocked(StateDisconnected, cause)
}

func (c *Client) backoffDelay() time.Duration {
	delay := c.cfg.ReconnectBaseDelay << uint(c.attempts)
	if c.cfg.MaxReconnectDelay > 0 && delay > c.cfg.MaxReconnectDelay {
		delay = c.cfg.MaxReconnectDelay
	}
	return delay
}

// setStateLocked mutates state under c.mu and returns the thunk that fires
// the callbacks; callers run it after unlocking so a callback can call back
// into the client.
func (c *Client) setStateLocked(s ConnectionState, err error) func() {
	old := c.state
	c.state = s
	if old == s && err == nil {
		return func() {}
	}
	cbs := make([]func(StateEvent), len(c.onState))
	copy(cbs, c.onState)
	ev := StateEvent{OldState: old, NewState: s, Err: err}
	return func() {
		for _, fn := range cbs {
			fn(ev)
		}
	}
}

// handleBuiltin runs before external fan-out for every inbound envelope.
// Presence event types mutate the tracker; user-facing event types surface
// on the notification side-channel.
func (c *Client) handleBuiltin(env Envelope) {
	switch env.Type {
	case EventUserJoined:
		p := c.presencePayload(env)
		c.presence.UserJoined(p.RoomID, p.UserID)
	case EventUserLeft:
		p := c.presencePayload(env)
		c.presence.UserLeft(p.RoomID, p.UserID)
	case EventOnlineUsersUpdate:
		var p RosterPayload
		if len(env.Data) > 0 {
			if err := UnmarshalData(env.Data, &p); err != nil {
				c.logger.Warn().Err(err).Msg("bad roster payload")
				return
			}
		}
		if p.RoomID == "" {
			p.RoomID = env.RoomID
		}
		c.presence.SetRoomUsers(p.RoomID, p.Users)
	case EventUserConnected, EventNewMessage, EventNewLike, EventNewComment,
		EventNewFollower, EventLiveStreamStarted, EventGiftReceived:
		c.fireNotification(Notification{
			Kind:      env.Type,
			UserID:    env.UserID,
			RoomID:    env.RoomID,
			Data:      env.Data,
			Timestamp: env.Timestamp,
		})
	}
}

func (c *Client) presencePayload(env Envelope) PresencePayload {
	var p PresencePayload
	if len(env.Data) > 0 {
		if err := UnmarshalData(env.Data, &p); err != nil {
			c.logger.Warn().Err(err).Str("event_type", env.Type).Msg("bad presence payload")
		}
	}
	if p.RoomID == "" {
		p.RoomID = env.RoomID
	}
	if p.UserID == "" {
		p.UserID = env.UserID
	}
	return p
}

func (c *Client) fireNotification(n Notification) {
	c.mu.Lock()
	cbs := make([]func(Notification), len(c.onNotification))
	copy(cbs, c.onNotification)
	c.mu.Unlock()
	for _, fn := range cbs {
		fn(n)
	}
}

func isExpectedDisconnect(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	default:
		return false
	}
}
