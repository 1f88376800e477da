package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	stdpath "path"
	"time"

	"github.com/tejjnayak/clawdeck/internal/session"
)

// DummyHost satisfies the http.Client's requirement for a URL on non-tcp
// connections.
const DummyHost = "api.clawdeck.localhost"

// Transport is the wire to the gateway: one long-lived event stream in, JSON
// payloads out.
type Transport interface {
	// Connect opens the event stream. Inbound frames and stream loss are
	// reported through the handlers registered before Connect.
	Connect(ctx context.Context, token string) error
	// Send posts a payload to the gateway.
	Send(ctx context.Context, payload any) error
	// Close tears the stream down. The disconnect handler is not invoked
	// for a deliberate close.
	Close() error
}

// Client is the HTTP transport to a gateway over tcp, unix socket, or
// Windows named pipe. Inbound events arrive as an SSE stream of
// "data:"-prefixed JSON frames.
type Client struct {
	h       *http.Client
	network string
	addr    string

	// OnData receives each raw inbound frame, in arrival order.
	OnData func(frame []byte)
	// OnDisconnect is invoked once when the event stream is lost.
	OnDisconnect func(err error)

	// cancel is written by Connect and cleared by Close, both called from
	// the single goroutine that owns the controller; not synchronized.
	cancel context.CancelFunc
}

// NewClient creates a transport for the gateway at the given host URL
// ("tcp://", "unix://", or "npipe://").
func NewClient(host string) (*Client, error) {
	hostURL, err := ParseHostURL(host)
	if err != nil {
		return nil, err
	}
	c := &Client{
		network: hostURL.Scheme,
		addr:    hostURL.Host,
	}
	p := &http.Protocols{}
	p.SetHTTP1(true)
	p.SetUnencryptedHTTP2(true)
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.Protocols = p
	tr.DialContext = c.dialer
	if c.network == "npipe" || c.network == "unix" {
		// We don't need compression for local connections.
		tr.DisableCompression = true
	}
	c.h = &http.Client{
		Transport: tr,
		Timeout:   0, // long-lived event streams must not time out
	}
	return c, nil
}

// Connect opens the gateway event stream and starts the read loop. Frames
// are delivered to OnData in arrival order; any stream loss is reported to
// OnDisconnect exactly once.
func (c *Client) Connect(ctx context.Context, token string) error {
	ctx, cancel := context.WithCancel(ctx)

	headers := http.Header{
		"Accept":        []string{"text/event-stream"},
		"Cache-Control": []string{"no-cache"},
		"Connection":    []string{"keep-alive"},
	}
	if token != "" {
		headers.Set("Authorization", "Bearer "+token)
	}

	rsp, err := c.get(ctx, "/events", nil, headers)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to open event stream: %w", err)
	}
	if rsp.StatusCode != http.StatusOK {
		rsp.Body.Close()
		cancel()
		return fmt.Errorf("failed to open event stream: status code %d", rsp.StatusCode)
	}

	c.cancel = cancel
	go c.readLoop(ctx, rsp.Body)
	return nil
}

func (c *Client) readLoop(ctx context.Context, body io.ReadCloser) {
	defer body.Close()

	scr := bufio.NewReader(body)
	for {
		line, err := scr.ReadBytes('\n')
		if err != nil {
			if ctx.Err() != nil {
				// Deliberate close, not a drop.
				return
			}
			if c.OnDisconnect != nil {
				if errors.Is(err, io.EOF) {
					err = errors.New("event stream closed by gateway")
				}
				c.OnDisconnect(err)
			}
			return
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			// End of an event
			continue
		}

		data, ok := bytes.CutPrefix(line, []byte("data:"))
		if !ok {
			continue
		}
		data = bytes.TrimSpace(data)
		if c.OnData != nil {
			c.OnData(data)
		}
	}
}

// Send posts a payload to the gateway's ingest endpoint.
func (c *Client) Send(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	rsp, err := c.post(ctx, "/send", nil, bytes.NewReader(body), http.Header{
		"Content-Type": []string{"application/json"},
	})
	if err != nil {
		return fmt.Errorf("failed to send payload: %w", err)
	}
	defer rsp.Body.Close()
	if rsp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send payload: status code %d", rsp.StatusCode)
	}
	return nil
}

// ListSessions retrieves the gateway's session list, used to seed the known
// session set at startup.
func (c *Client) ListSessions(ctx context.Context) ([]*session.Session, error) {
	rsp, err := c.get(ctx, "/sessions", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get sessions: %w", err)
	}
	defer rsp.Body.Close()
	if rsp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get sessions: status code %d", rsp.StatusCode)
	}
	var sessions []*session.Session
	if err := json.NewDecoder(rsp.Body).Decode(&sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return sessions, nil
}

// Health checks the gateway's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	rsp, err := c.get(ctx, "/health", nil, nil)
	if err != nil {
		return err
	}
	defer rsp.Body.Close()
	if rsp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway health check failed: %s", rsp.Status)
	}
	return nil
}

// Close cancels the event stream.
func (c *Client) Close() error {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	return nil
}

func (c *Client) dialer(ctx context.Context, network, address string) (net.Conn, error) {
	d := net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	// It's important to use the client's addr for npipe/unix and not the
	// address param because the address param is always "localhost:port" for
	// HTTP clients and npipe/unix don't have a concept of ports.
	switch c.network {
	case "npipe":
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		return dialPipeContext(ctx, c.addr)
	case "unix":
		return d.DialContext(ctx, "unix", c.addr)
	default:
		return d.DialContext(ctx, network, address)
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, headers http.Header) (*http.Response, error) {
	return c.sendReq(ctx, http.MethodGet, path, query, nil, headers)
}

func (c *Client) post(ctx context.Context, path string, query url.Values, body io.Reader, headers http.Header) (*http.Response, error) {
	return c.sendReq(ctx, http.MethodPost, path, query, body, headers)
}

func (c *Client) sendReq(ctx context.Context, method, path string, query url.Values, body io.Reader, headers http.Header) (*http.Response, error) {
	url := (&url.URL{
		Path:     stdpath.Join("/v1", path), // Right now, we only have v1
		RawQuery: query.Encode(),
	}).String()
	req, err := c.buildReq(ctx, method, url, body, headers)
	if err != nil {
		return nil, err
	}
	return c.h.Do(req)
}

func (c *Client) buildReq(ctx context.Context, method, url string, body io.Reader, headers http.Header) (*http.Request, error) {
	r, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	for k, v := range headers {
		r.Header[http.CanonicalHeaderKey(k)] = v
	}

	r.URL.Scheme = "http" // This is always http because we don't use TLS
	r.URL.Host = c.addr
	if c.network == "npipe" || c.network == "unix" {
		// We use a dummy host for non-tcp connections.
		r.Host = DummyHost
	}

	if body != nil && r.Header.Get("Content-Type") == "" {
		r.Header.Set("Content-Type", "text/plain")
	}

	return r, nil
}
