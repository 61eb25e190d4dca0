package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"skemino-client/internal/jwt"
	"skemino-client/pkg/credential"
	"skemino-client/pkg/gamestate"
	"skemino-client/pkg/protocol"
)

// Status is the connection status of a Client
type Status string

// status constants
const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

// ErrClosed is returned when connecting a client that was closed
var ErrClosed = errors.New("client is closed")

// ErrUnauthorized is returned when the server refuses the credential during the handshake
var ErrUnauthorized = errors.New("server rejected the credential")

// ErrNotConnected is returned when an intent could not be sent
var ErrNotConnected = errors.New("not connected")

// Handlers receive events as they are dispatched. Nil funcs are skipped.
// Callbacks run on the connection's read loop and must return quickly.
type Handlers struct {
	OnStatusChange func(Status)
	OnMoveApplied  func(protocol.MoveApplied)
	OnGameOver     func(protocol.GameOver)
	OnGameError    func(protocol.GameError)
	OnDrawOffered  func(protocol.DrawOffered)
}

// Client keeps a websocket connection to the game server and mirrors
// incoming events into a gamestate.Store
type Client struct {
	opts  Options
	store *gamestate.Store
	creds credential.Store
	guest credential.GuestAuthenticator

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	lock          sync.RWMutex
	status        Status
	statusChanged chan struct{}
	latency       time.Duration
	send          chan *protocol.PayloadIn
	claims        *jwt.Claims
	started       bool
	closed        bool
	handlers      map[int]Handlers
	nextHandlerID int

	pingLock sync.Mutex
	pings    map[string]time.Time

	errors *throttle
}

// New returns a disconnected client
// guest may be nil, in which case a stored credential is required
func New(opts Options, store *gamestate.Store, creds credential.Store, guest credential.GuestAuthenticator) *Client {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		opts:          opts,
		store:         store,
		creds:         creds,
		guest:         guest,
		ctx:           ctx,
		cancel:        cancel,
		status:        StatusDisconnected,
		statusChanged: make(chan struct{}),
		handlers:      make(map[int]Handlers),
		pings:         make(map[string]time.Time),
		errors:        newThrottle(opts.ErrorCoolDown),
	}
}

// Store returns the store the client writes to
func (c *Client) Store() *gamestate.Store {
	return c.store
}

// Connect resolves a credential and opens the connection.
// Only credential failures are returned; transport failures are logged
// and retried in the background. Calling Connect on a started client is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		return ErrClosed
	}

	if c.started {
		c.lock.Unlock()
		return nil
	}

	c.started = true
	c.lock.Unlock()

	// a concurrent Close cancels the credential request and the handshake
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	c.setStatus(StatusConnecting)
	tok, err := credential.Resolve(ctx, c.creds, c.guest)
	if err != nil {
		c.lock.Lock()
		c.started = false
		closed := c.closed
		c.lock.Unlock()

		c.setStatus(StatusDisconnected)
		if closed {
			return ErrClosed
		}

		return err
	}

	c.setClaims(tok)

	conn, err := c.dial(ctx, tok)
	if err != nil {
		c.errors.logError("dial", err, "could not connect")
		c.setStatus(StatusDisconnected)
	}

	c.lock.Lock()
	if c.closed {
		c.started = false
		c.lock.Unlock()

		if conn != nil {
			_ = conn.Close()
		}

		c.setStatus(StatusDisconnected)
		return ErrClosed
	}

	// added under the lock so that Close either waits for run or sees closed first
	c.wg.Add(1)
	c.lock.Unlock()

	go c.run(tok, conn)

	return nil
}

// Close closes the connection and stops reconnecting. A closed client cannot be reused.
// Close blocks until the connection loops exit, so it must not be called from a Handlers callback.
func (c *Client) Close() {
	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		return
	}

	c.closed = true
	c.lock.Unlock()

	c.cancel()
	c.wg.Wait()
	c.setStatus(StatusDisconnected)
}

// Status returns the connection status
func (c *Client) Status() Status {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.status
}

// IsConnected returns true if the client is connected
func (c *Client) IsConnected() bool {
	return c.Status() == StatusConnected
}

// Latency returns the last measured one-way latency (half the heartbeat round trip)
func (c *Client) Latency() time.Duration {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.latency
}

// IsGuest returns true if the client authenticated with a guest credential
func (c *Client) IsGuest() bool {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.claims != nil && c.claims.Guest
}

// Claims returns the claims of the credential in use, or nil
func (c *Client) Claims() *jwt.Claims {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if c.claims == nil {
		return nil
	}

	cp := *c.claims
	return &cp
}

// WaitForStatus blocks until the client reaches status, or ctx is done
func (c *Client) WaitForStatus(ctx context.Context, status Status) error {
	for {
		c.lock.RLock()
		current := c.status
		changed := c.statusChanged
		c.lock.RUnlock()

		if current == status {
			return nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// AddHandlers attaches handlers and returns a function that detaches them
func (c *Client) AddHandlers(h Handlers) func() {
	c.lock.Lock()
	id := c.nextHandlerID
	c.nextHandlerID++
	c.handlers[id] = h
	c.lock.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.lock.Lock()
			delete(c.handlers, id)
			c.lock.Unlock()
		})
	}
}

func (c *Client) handlerList() []Handlers {
	c.lock.RLock()
	defer c.lock.RUnlock()

	list := make([]Handlers, 0, len(c.handlers))
	for i := 0; i < c.nextHandlerID; i++ {
		if h, ok := c.handlers[i]; ok {
			list = append(list, h)
		}
	}

	return list
}

func (c *Client) setStatus(status Status) {
	c.lock.Lock()
	if c.status == status {
		c.lock.Unlock()
		return
	}

	c.status = status
	close(c.statusChanged)
	c.statusChanged = make(chan struct{})
	c.lock.Unlock()

	logrus.WithField("status", status).Debug("connection status changed")
	for _, h := range c.handlerList() {
		if h.OnStatusChange != nil {
			h.OnStatusChange(status)
		}
	}
}

func (c *Client) setClaims(tok string) {
	claims, err := jwt.Inspect(tok)
	if err != nil {
		logrus.WithError(err).Warn("could not inspect credential")
	}

	c.lock.Lock()
	c.claims = claims
	c.lock.Unlock()
}

func (c *Client) websocketURL() (string, error) {
	u, err := url.Parse(c.opts.URL)
	if err != nil {
		return "", err
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	u.Path = strings.TrimRight(u.Path, "/") + c.opts.WebsocketPath
	return u.String(), nil
}

func (c *Client) dial(ctx context.Context, tok string) (*websocket.Conn, error) {
	wsURL, err := c.websocketURL()
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+tok)

	conn, resp, err := c.opts.Dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}

		return nil, err
	}

	return conn, nil
}

// run serves conn, then reconnects until the client is closed or gives up
func (c *Client) run(tok string, conn *websocket.Conn) {
	defer c.wg.Done()
	defer func() {
		c.lock.Lock()
		c.started = false
		c.lock.Unlock()
	}()

	for {
		if conn != nil {
			c.serve(conn)
		}

		if c.ctx.Err() != nil {
			return
		}

		conn, tok = c.redial(tok)
		if conn == nil {
			c.setStatus(StatusDisconnected)
			if c.ctx.Err() == nil {
				logrus.WithField("attempts", c.opts.ReconnectAttempts).Warn("giving up reconnecting")
			}

			return
		}
	}
}

// redial makes up to ReconnectAttempts attempts with a capped exponential backoff.
// A rejected credential is replaced by a fresh one before the next attempt.
func (c *Client) redial(tok string) (*websocket.Conn, string) {
	b := c.opts.newBackOff()
	for attempt := 1; ; attempt++ {
		delay := b.NextBackOff()
		if delay == backoff.Stop {
			return nil, tok
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-c.ctx.Done():
			timer.Stop()
			return nil, tok
		}

		c.setStatus(StatusConnecting)
		logrus.WithField("attempt", attempt).Info("reconnecting")

		conn, err := c.dial(c.ctx, tok)
		if err == nil {
			return conn, tok
		}

		if errors.Is(err, ErrUnauthorized) {
			logrus.WithError(err).Info("credential rejected, resolving a new one")
			if err := credential.Discard(c.creds, tok); err != nil {
				logrus.WithError(err).Warn("could not forget credential")
			}

			newTok, err := credential.Resolve(c.ctx, c.creds, c.guest)
			if err != nil {
				c.errors.logError("credential", err, "could not resolve a credential")
				return nil, tok
			}

			tok = newTok
			c.setClaims(tok)
		} else {
			c.errors.logError("dial", err, "could not reconnect")
		}

		c.setStatus(StatusDisconnected)
	}
}
