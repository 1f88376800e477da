package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu       sync.Mutex
	connects int
	failures int // number of leading Connect calls that fail
	tokens   []string
	closed   bool
}

func (f *fakeTransport) Connect(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	f.tokens = append(f.tokens, token)
	if f.connects <= f.failures {
		return errors.New("connection refused")
	}
	return nil
}

func (f *fakeTransport) Send(ctx context.Context, payload any) error { return nil }

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

type fakeLauncher struct {
	started int
	err     error
}

func (f *fakeLauncher) Start(ctx context.Context) error {
	f.started++
	return f.err
}

// statusRecorder collects status transitions in order.
type statusRecorder struct {
	mu       sync.Mutex
	statuses []Status
}

func (r *statusRecorder) record(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
}

func (r *statusRecorder) all() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Status, len(r.statuses))
	copy(out, r.statuses)
	return out
}

func instantRetries(c *Controller) {
	c.delayFn = func(int) time.Duration { return 0 }
}

func TestRetryDelayBounds(t *testing.T) {
	t.Parallel()
	c := NewController(&fakeTransport{})

	for retry := range maxRetries {
		base := retryBaseDelay << retry
		for range 20 {
			d := c.RetryDelay(retry)
			require.GreaterOrEqual(t, d, base, "retry %d", retry)
			require.Less(t, d, base+retryMaxJitter, "retry %d", retry)
		}
	}

	// Past the cap the delay stays in [30s, 31s).
	for range 20 {
		d := c.RetryDelay(10)
		require.GreaterOrEqual(t, d, retryMaxDelay)
		require.Less(t, d, retryMaxDelay+retryMaxJitter)
	}

	// A shift big enough to overflow also lands on the cap.
	d := c.RetryDelay(63)
	require.GreaterOrEqual(t, d, retryMaxDelay)
	require.Less(t, d, retryMaxDelay+retryMaxJitter)
}

func TestLaunchAndConnect(t *testing.T) {
	t.Parallel()
	tr := &fakeTransport{}
	launcher := &fakeLauncher{}
	rec := &statusRecorder{}
	connected := make(chan struct{}, 1)

	c := NewController(tr,
		WithLauncher(launcher),
		WithToken("secret"),
		OnStatus(rec.record),
		OnConnected(func() { connected <- struct{}{} }),
	)

	require.NoError(t, c.Launch(context.Background()))
	require.Equal(t, StatusConnected, c.Status())
	require.Equal(t, 1, launcher.started)
	require.Equal(t, []Status{StatusLaunching, StatusConnecting, StatusConnected}, rec.all())
	require.Equal(t, []string{"secret"}, tr.tokens)

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("connected hook never fired")
	}
}

func TestLaunchFailureSurfacesImmediately(t *testing.T) {
	t.Parallel()
	tr := &fakeTransport{}
	launcher := &fakeLauncher{err: errors.New("no such binary")}
	c := NewController(tr, WithLauncher(launcher))

	require.Error(t, c.Launch(context.Background()))
	require.Equal(t, StatusError, c.Status())
	// The transport is never attempted when the launcher fails.
	require.Zero(t, tr.connectCount())
}

func TestDisconnectTriggersReconnect(t *testing.T) {
	t.Parallel()
	tr := &fakeTransport{}
	c := NewController(tr)
	instantRetries(c)

	c.Connect(context.Background())
	require.Equal(t, StatusConnected, c.Status())

	c.HandleDisconnect(context.Background(), errors.New("stream lost"))

	require.Eventually(t, func() bool {
		return c.Status() == StatusConnected && tr.connectCount() == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRetriesThenConnects(t *testing.T) {
	t.Parallel()
	tr := &fakeTransport{failures: 3}
	c := NewController(tr)
	instantRetries(c)

	c.Connect(context.Background())

	require.Eventually(t, func() bool {
		return c.Status() == StatusConnected
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, 4, tr.connectCount())
}

func TestRetryExhaustion(t *testing.T) {
	t.Parallel()
	tr := &fakeTransport{failures: 1000}
	c := NewController(tr)
	instantRetries(c)

	c.Connect(context.Background())

	require.Eventually(t, func() bool {
		return c.Status() == StatusError
	}, 2*time.Second, 10*time.Millisecond)
	// Initial attempt plus one per allowed retry.
	require.Equal(t, maxRetries+1, tr.connectCount())
}

func TestCloseCancelsPendingRetry(t *testing.T) {
	t.Parallel()
	tr := &fakeTransport{failures: 1000}
	c := NewController(tr)
	c.delayFn = func(int) time.Duration { return 50 * time.Millisecond }

	c.Connect(context.Background())
	require.Equal(t, 1, tr.connectCount())

	require.NoError(t, c.Close())
	require.Equal(t, StatusOffline, c.Status())

	time.Sleep(200 * time.Millisecond)
	require.Equal(t, 1, tr.connectCount())
	require.True(t, tr.closed)
}

func TestSetOnConnectedAppliesToReconnects(t *testing.T) {
	t.Parallel()
	tr := &fakeTransport{}
	c := NewController(tr)
	instantRetries(c)

	// The hook does not exist yet when the first connect completes.
	c.Connect(context.Background())
	require.Equal(t, StatusConnected, c.Status())

	fired := make(chan struct{}, 1)
	c.SetOnConnected(func() { fired <- struct{}{} })

	c.HandleDisconnect(context.Background(), errors.New("stream lost"))

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("connected hook never fired after reconnect")
	}
	require.Equal(t, StatusConnected, c.Status())
}

func TestDisconnectAfterCloseIgnored(t *testing.T) {
	t.Parallel()
	tr := &fakeTransport{}
	c := NewController(tr)
	instantRetries(c)

	c.Connect(context.Background())
	require.NoError(t, c.Close())

	before := tr.connectCount()
	c.HandleDisconnect(context.Background(), errors.New("stream lost"))
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, before, tr.connectCount())
	require.Equal(t, StatusOffline, c.Status())
}
