// Package ws is the persistent channel transport. A Factory resolves one
// Channel per tenant scope; a Channel is a single WebSocket connection that
// is dialed on first use.
package ws

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/matteocacciola/cheshirecat-go-sdk/serializer"
	"github.com/matteocacciola/cheshirecat-go-sdk/transport"
)

const (
	// DefaultHandshakeTimeout bounds the opening handshake.
	DefaultHandshakeTimeout = 10 * time.Second

	// DefaultBufferSize is the number of inbound messages held for a
	// Channel that is not being read.
	DefaultBufferSize = 64

	closeGracePeriod = time.Second
)

// Config describes the backend a Factory dials.
type Config struct {
	// BaseURL is the http(s) or ws(s) URL of the backend. http is mapped
	// to ws and https to wss.
	BaseURL string

	// APIKey is sent as the token query parameter when set.
	APIKey string

	// Defaults fills the empty halves of every channel's scope.
	Defaults transport.Scope

	// HandshakeTimeout bounds the opening handshake. Zero means
	// DefaultHandshakeTimeout.
	HandshakeTimeout time.Duration

	// InsecureSkipVerify disables TLS certificate verification on wss.
	InsecureSkipVerify bool
}

// Factory resolves Channels. It is immutable after construction.
type Factory struct {
	base         *url.URL
	apiKey       string
	defaults     transport.Scope
	dialer       *websocket.Dialer
	header       http.Header
	serializer   serializer.Serializer
	errorHandler transport.ErrorHandler
	bufferSize   int
}

// FactoryOption sets an optional parameter for a Factory.
type FactoryOption func(*Factory)

// SetDialer sets the dialer used to open connections.
func SetDialer(d *websocket.Dialer) FactoryOption {
	return func(f *Factory) { f.dialer = d }
}

// SetSubprotocols sets the subprotocols offered in the handshake.
func SetSubprotocols(protocols ...string) FactoryOption {
	return func(f *Factory) {
		d := *f.dialer
		d.Subprotocols = protocols
		f.dialer = &d
	}
}

// SetHeader sets a header sent with the opening handshake.
func SetHeader(key, val string) FactoryOption {
	return func(f *Factory) { f.header.Set(key, val) }
}

// SetSerializer sets the serializer used to encode outbound messages.
func SetSerializer(s serializer.Serializer) FactoryOption {
	return func(f *Factory) { f.serializer = s }
}

// SetErrorHandler sets the handler for errors that end a channel's read
// loop. By default they are discarded.
func SetErrorHandler(h transport.ErrorHandler) FactoryOption {
	return func(f *Factory) { f.errorHandler = h }
}

// SetErrorLogger is shorthand for SetErrorHandler with a LogErrorHandler.
func SetErrorLogger(logger log.Logger) FactoryOption {
	return SetErrorHandler(transport.NewLogErrorHandler(logger))
}

// SetBufferSize sets the number of inbound messages held for a Channel that
// is not being read.
func SetBufferSize(n int) FactoryOption {
	return func(f *Factory) { f.bufferSize = n }
}

// NewFactory returns a Factory for cfg.
func NewFactory(cfg Config, options ...FactoryOption) (*Factory, error) {
	base, err := wsURL(cfg.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "ws transport")
	}
	timeout := cfg.HandshakeTimeout
	if timeout == 0 {
		timeout = DefaultHandshakeTimeout
	}
	f := &Factory{
		base:     base,
		apiKey:   cfg.APIKey,
		defaults: cfg.Defaults,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: timeout,
		},
		header:       http.Header{},
		serializer:   serializer.JSON(),
		errorHandler: transport.ErrorHandlerFunc(func(error) {}),
		bufferSize:   DefaultBufferSize,
	}
	if cfg.InsecureSkipVerify {
		f.dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	for _, option := range options {
		option(f)
	}
	return f, nil
}

func wsURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("base URL is required")
	}
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid base URL")
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, errors.Errorf("base URL must use http, https, ws or wss scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.Errorf("base URL %q has no host", raw)
	}
	return u, nil
}

// URL returns the address a Channel for scope dials:
// <base>/ws/<agent>[/<user>], with the API key as the token parameter.
func (f *Factory) URL(scope transport.Scope) *url.URL {
	scope = scope.Resolve(f.defaults)
	u := *f.base
	raw := strings.TrimRight(f.base.EscapedPath(), "/") + "/ws"
	if scope.AgentID != "" {
		raw += "/" + transport.PathSegment(scope.AgentID)
		if scope.UserID != "" {
			raw += "/" + transport.PathSegment(scope.UserID)
		}
	}
	u.Path, _ = url.PathUnescape(raw)
	u.RawPath = raw
	if f.apiKey != "" {
		q := u.Query()
		q.Set("token", f.apiKey)
		u.RawQuery = q.Encode()
	}
	return &u
}

// Channel returns an undialed Channel for scope.
func (f *Factory) Channel(scope transport.Scope) (transport.Channel, error) {
	return f.NewChannel(scope), nil
}

// NewChannel is Channel with the concrete type.
func (f *Factory) NewChannel(scope transport.Scope) *Channel {
	return &Channel{
		f:     f,
		scope: scope,
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Channel is one WebSocket connection. Send may be called concurrently;
// Receive is meant for a single consumer.
type Channel struct {
	f     *Factory
	scope transport.Scope

	mu       sync.Mutex
	conn     *websocket.Conn
	incoming chan []byte
	closed   bool

	quit    chan struct{}
	done    chan struct{}
	readErr error
}

var _ transport.Channel = (*Channel)(nil)

// Scope returns the scope the Channel was resolved for.
func (c *Channel) Scope() transport.Scope { return c.scope }

// Dial opens the connection if it is not open yet.
func (c *Channel) Dial(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dialLocked(ctx)
}

func (c *Channel) dialLocked(ctx context.Context) error {
	if c.closed {
		return &transport.Error{Domain: transport.DomainDial, Err: websocket.ErrCloseSent}
	}
	if c.conn != nil {
		return nil
	}
	conn, resp, err := c.f.dialer.DialContext(ctx, c.f.URL(c.scope).String(), c.f.header)
	if err != nil {
		if resp != nil {
			err = &transport.StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
		}
		return &transport.Error{Domain: transport.DomainDial, Err: err}
	}
	c.conn = conn
	c.incoming = make(chan []byte, c.f.bufferSize)
	go c.readLoop(conn, c.incoming)
	return nil
}

func (c *Channel) readLoop(conn *websocket.Conn, incoming chan<- []byte) {
	defer close(c.done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.readErr = &transport.Error{Domain: transport.DomainRead, Err: err}
			select {
			case <-c.quit:
				// Closed by us; the failed read is the connection going away.
				return
			default:
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.f.errorHandler.Handle(c.readErr)
			}
			return
		}
		select {
		case incoming <- data:
		case <-c.quit:
			c.readErr = &transport.Error{Domain: transport.DomainRead, Err: websocket.ErrCloseSent}
			return
		}
	}
}

// Send encodes v and writes it as one text message.
func (c *Channel) Send(ctx context.Context, v interface{}) error {
	b, err := c.f.serializer.Serialize(v)
	if err != nil {
		return &transport.Error{Domain: transport.DomainEncode, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.dialLocked(ctx); err != nil {
		return err
	}
	deadline, _ := ctx.Deadline()
	c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return &transport.Error{Domain: transport.DomainWrite, Err: err}
	}
	return nil
}

// Receive returns the next inbound message, dialing first if needed. Once the
// connection is gone, buffered messages are still returned before the error
// that ended it.
func (c *Channel) Receive(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	if err := c.dialLocked(ctx); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	incoming := c.incoming
	c.mu.Unlock()

	select {
	case data := <-incoming:
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		select {
		case data := <-incoming:
			return data, nil
		default:
			return nil, c.readErr
		}
	}
}

// Close sends a close frame and releases the connection. It is safe to call
// more than once.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.quit)
	if c.conn == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
	return c.conn.Close()
}
