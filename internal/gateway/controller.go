package gateway

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// Status is the coarse-grained connection state surfaced to the UI.
type Status string

const (
	StatusOffline    Status = "offline"
	StatusLaunching  Status = "launching"
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
	StatusError      Status = "error"
)

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s), nil
}

func (s *Status) UnmarshalText(data []byte) error {
	*s = Status(data)
	return nil
}

// Launcher starts the gateway process.
type Launcher interface {
	Start(ctx context.Context) error
}

const (
	// maxRetries bounds automatic reconnection attempts before giving up
	// until the user acts again.
	maxRetries     = 5
	retryBaseDelay = time.Second
	retryMaxDelay  = 30 * time.Second
	retryMaxJitter = time.Second
)

// Controller owns the gateway connection lifecycle: launch, connect,
// reconnect with bounded exponential backoff, and teardown.
type Controller struct {
	transport Transport
	launcher  Launcher
	token     string

	onStatus    func(Status)
	onConnected func()

	mu         sync.Mutex
	status     Status
	retries    int
	retryTimer *time.Timer
	closed     bool

	// delayFn computes the backoff delay; swapped out in tests.
	delayFn func(retry int) time.Duration
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLauncher sets the collaborator that starts the gateway process.
func WithLauncher(l Launcher) ControllerOption {
	return func(c *Controller) { c.launcher = l }
}

// WithToken sets the auth token passed to the transport on connect.
func WithToken(token string) ControllerOption {
	return func(c *Controller) { c.token = token }
}

// OnStatus registers a hook invoked on every status transition.
func OnStatus(fn func(Status)) ControllerOption {
	return func(c *Controller) { c.onStatus = fn }
}

// OnConnected registers a hook invoked once per successful connection,
// dispatched on its own goroutine. Used for the post-connect usage refresh.
func OnConnected(fn func()) ControllerOption {
	return func(c *Controller) { c.onConnected = fn }
}

// SetOnConnected replaces the connected hook on a live controller. Callers
// that can only build the hook after the first connect install it here;
// subsequent reconnects observe the latest hook.
func (c *Controller) SetOnConnected(fn func()) {
	c.mu.Lock()
	c.onConnected = fn
	c.mu.Unlock()
}

// NewController builds a controller over the given transport.
func NewController(transport Transport, opts ...ControllerOption) *Controller {
	c := &Controller{
		transport: transport,
		status:    StatusOffline,
	}
	c.delayFn = c.RetryDelay
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status returns the current connection status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Launch handles an explicit user-triggered launch request: start the
// gateway process, then connect. A launcher failure is surfaced immediately
// rather than retried; there is nothing to reconnect to.
func (c *Controller) Launch(ctx context.Context) error {
	c.setStatus(StatusLaunching)
	if c.launcher != nil {
		if err := c.launcher.Start(ctx); err != nil {
			c.setStatus(StatusError)
			return err
		}
	}
	c.Connect(ctx)
	return nil
}

// Connect moves to connecting and attempts the transport. Also the entry
// point for a user-triggered reconnect after retry exhaustion; it resets the
// retry counter.
func (c *Controller) Connect(ctx context.Context) {
	c.mu.Lock()
	c.retries = 0
	c.mu.Unlock()
	c.setStatus(StatusConnecting)
	c.attempt(ctx)
}

// HandleDisconnect reacts to a transport-level drop. Transient drops are
// expected: the controller re-enters connecting and lets the backoff policy
// drive retries instead of surfacing a hard error.
func (c *Controller) HandleDisconnect(ctx context.Context, err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	wasConnected := c.status == StatusConnected
	c.mu.Unlock()

	slog.Warn("gateway connection lost", "error", err)
	if wasConnected {
		c.setStatus(StatusConnecting)
	}
	c.scheduleRetry(ctx)
}

// Close tears the controller down. Any pending scheduled retry is canceled
// so a reconnection attempt cannot fire after teardown.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.closed = true
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	c.mu.Unlock()
	c.setStatus(StatusOffline)
	return c.transport.Close()
}

// RetryDelay returns the backoff delay for the given retry attempt:
// min(1s * 2^retry, 30s) plus up to 1s of random jitter.
func (c *Controller) RetryDelay(retry int) time.Duration {
	delay := retryBaseDelay << retry
	if delay > retryMaxDelay || delay <= 0 {
		delay = retryMaxDelay
	}
	return delay + rand.N(retryMaxJitter)
}

func (c *Controller) attempt(ctx context.Context) {
	if err := c.transport.Connect(ctx, c.token); err != nil {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}
		slog.Warn("gateway connection attempt failed", "error", err)
		c.scheduleRetry(ctx)
		return
	}

	c.mu.Lock()
	c.retries = 0
	fn := c.onConnected
	c.mu.Unlock()
	c.setStatus(StatusConnected)
	if fn != nil {
		go fn()
	}
}

func (c *Controller) scheduleRetry(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.retries >= maxRetries {
		c.mu.Unlock()
		slog.Error("gateway reconnection attempts exhausted")
		c.setStatus(StatusError)
		return
	}
	delay := c.delayFn(c.retries)
	c.retries++
	c.retryTimer = time.AfterFunc(delay, func() {
		c.attempt(ctx)
	})
	c.mu.Unlock()
	slog.Info("scheduling gateway reconnect", "delay", delay)
}

func (c *Controller) setStatus(status Status) {
	c.mu.Lock()
	if c.status == status {
		c.mu.Unlock()
		return
	}
	c.status = status
	c.mu.Unlock()
	if c.onStatus != nil {
		c.onStatus(status)
	}
}
