package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/rpc"
	"sync"
	"time"

	"github.com/kolo/xmlrpc"

	"ringaudit/internal/domain"
)

const (
	// DefaultPath is where overlay nodes serve their XML-RPC bridge
	DefaultPath = "/xm.rem"

	// DefaultQueryTimeout bounds a single remote call
	DefaultQueryTimeout = 10 * time.Second

	methodLocalProxy  = "localproxy"
	methodProxy       = "proxy"
	methodSecureProxy = "SecureProxy"

	localNeighbors = "sys:link.GetNeighbors"
	infoMethod     = "Information.Info"

	// Routing parameters for proxied calls: hop budget and number of results
	proxyHops    = 3
	proxyResults = 1
)

// XMLRPCConfig holds settings for the XML-RPC client
type XMLRPCConfig struct {
	// Endpoint is the full URL of the entry node's XML-RPC bridge
	Endpoint string
	// Timeout bounds each call
	Timeout time.Duration
	// Transport is the underlying round tripper (http.DefaultTransport if nil)
	Transport http.RoundTripper
	// Verbose logs every decoded response at debug level
	Verbose bool
}

// XMLRPCClient implements Querier over an overlay node's XML-RPC bridge.
// Calls are serialized.
type XMLRPCClient struct {
	mu      sync.Mutex
	client  *xmlrpc.Client
	callCtx context.Context // ctx of the call in progress, read by the transport
	config  XMLRPCConfig
	log     *slog.Logger
}

// NewXMLRPCClient creates a client for the bridge at cfg.Endpoint
func NewXMLRPCClient(cfg XMLRPCConfig, logger *slog.Logger) (*XMLRPCClient, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultQueryTimeout
	}
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &XMLRPCClient{config: cfg, log: logger}
	client, err := c.dial()
	if err != nil {
		return nil, err
	}
	c.client = client
	return c, nil
}

func (c *XMLRPCClient) dial() (*xmlrpc.Client, error) {
	client, err := xmlrpc.NewClient(c.config.Endpoint, &timeoutTransport{
		base:    c.config.Transport,
		timeout: c.config.Timeout,
		owner:   c,
	})
	if err != nil {
		return nil, fmt.Errorf("create xmlrpc client for %s: %w", c.config.Endpoint, err)
	}
	return client, nil
}

// Endpoint builds the bridge URL for a node listening on host:port
func Endpoint(host string, port int, path string) string {
	if path == "" {
		path = DefaultPath
	}
	return fmt.Sprintf("http://%s:%d%s", host, port, path)
}

// LocalAddress asks the entry node for its own address
func (c *XMLRPCClient) LocalAddress(ctx context.Context) (domain.Address, error) {
	var reply any
	if err := c.call(ctx, methodLocalProxy, []any{localNeighbors}, &reply); err != nil {
		return domain.Address{}, err
	}

	res, ok := reply.(map[string]any)
	if !ok {
		return domain.Address{}, fmt.Errorf("%w: %s returned %T", ErrMalformedResponse, localNeighbors, reply)
	}
	return parseSelf(res)
}

// NeighborInfo routes an Information.Info call to addr through the overlay
func (c *XMLRPCClient) NeighborInfo(ctx context.Context, addr domain.Address, mode TransportMode) (*domain.NeighborInfo, error) {
	method := methodProxy
	if mode == TransportSecure {
		method = methodSecureProxy
	}

	var reply any
	args := []any{addr.String(), proxyHops, proxyResults, infoMethod}
	if err := c.call(ctx, method, args, &reply); err != nil {
		return nil, err
	}
	if c.config.Verbose {
		c.log.Debug("neighbor info response", "addr", addr.String(), "response", reply)
	}

	results, ok := reply.([]any)
	if !ok || len(results) == 0 {
		return nil, fmt.Errorf("%w: %s returned no results", ErrMalformedResponse, infoMethod)
	}
	res, ok := results[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s result is %T", ErrMalformedResponse, infoMethod, results[0])
	}
	return ParseNeighborInfo(res)
}

// Close releases the underlying client
func (c *XMLRPCClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

// call issues an XML-RPC call bounded by ctx and the configured timeout
func (c *XMLRPCClient) call(ctx context.Context, method string, args []any, reply any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if c.client == nil {
		client, err := c.dial()
		if err != nil {
			return err
		}
		c.client = client
	}

	c.callCtx = ctx
	defer func() { c.callCtx = nil }()

	pending := c.client.Go(method, args, reply, make(chan *rpc.Call, 1))
	select {
	case done := <-pending.Done:
		if done.Error == nil {
			return nil
		}
		// A node fault leaves the client usable. Anything else may have shut
		// down the underlying rpc client, so the next call redials.
		var fault rpc.ServerError
		if !errors.As(done.Error, &fault) {
			c.client.Close()
			c.client = nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", method, ctxErr)
		}
		return fmt.Errorf("%s: %w", method, done.Error)
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", method, ctx.Err())
	}
}

// timeoutTransport bounds each HTTP round trip, body included, by the
// configured timeout and the context of the call that issued it
type timeoutTransport struct {
	base    http.RoundTripper
	timeout time.Duration
	owner   *XMLRPCClient
}

func (t *timeoutTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	parent := req.Context()
	if t.owner != nil && t.owner.callCtx != nil {
		parent = t.owner.callCtx
	}
	ctx, cancel := context.WithTimeout(parent, t.timeout)
	resp, err := t.base.RoundTrip(req.WithContext(ctx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelOnClose releases the round trip's context once the body is consumed
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
