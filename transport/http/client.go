// Package http is the request/response transport. A Factory holds the
// connection settings for one backend and hands out tenant-scoped Clients
// that implement transport.Handle.
package http

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-kit/log"
	"github.com/pkg/errors"

	"github.com/matteocacciola/cheshirecat-go-sdk/endpoint"
	"github.com/matteocacciola/cheshirecat-go-sdk/serializer"
	"github.com/matteocacciola/cheshirecat-go-sdk/transport"
)

// Headers carrying the tenant scope of a request.
const (
	HeaderAgentID = "X-Agent-ID"
	HeaderUserID  = "X-User-ID"
)

// HTTPClient is an interface that models *http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RoundTrip is the endpoint a Factory runs for every request. Middlewares
// installed with ClientMiddleware wrap it.
type RoundTrip = endpoint.Endpoint[*transport.Request, *transport.Response]

// Middleware wraps a RoundTrip.
type Middleware = endpoint.Middleware[*transport.Request, *transport.Response]

// Factory resolves scoped Clients for one backend. It is immutable after
// construction and safe for concurrent use.
type Factory struct {
	base       *url.URL
	apiKey     string
	defaults   transport.Scope
	client     HTTPClient
	serializer serializer.Serializer
	before     []RequestFunc
	after      []ClientResponseFunc
	finalizer  []ClientFinalizerFunc
	middleware []Middleware
	logger     log.Logger
	rt         RoundTrip
}

// ClientOption sets an optional parameter for a Factory.
type ClientOption func(*Factory)

// SetClient sets the underlying HTTP client used for requests.
// By default, one built by Config.NewHTTPClient is used.
func SetClient(client HTTPClient) ClientOption {
	return func(f *Factory) { f.client = client }
}

// SetSerializer sets the serializer used to encode JSON bodies.
// By default, serializer.JSON is used.
func SetSerializer(s serializer.Serializer) ClientOption {
	return func(f *Factory) { f.serializer = s }
}

// ClientBefore adds RequestFuncs that are applied to the outgoing HTTP
// request before it's invoked.
func ClientBefore(before ...RequestFunc) ClientOption {
	return func(f *Factory) { f.before = append(f.before, before...) }
}

// ClientAfter adds ClientResponseFuncs applied to the incoming HTTP response
// before its body is read.
func ClientAfter(after ...ClientResponseFunc) ClientOption {
	return func(f *Factory) { f.after = append(f.after, after...) }
}

// ClientFinalizer is executed at the end of every round trip.
// By default, no finalizer is registered.
func ClientFinalizer(fn ...ClientFinalizerFunc) ClientOption {
	return func(f *Factory) { f.finalizer = append(f.finalizer, fn...) }
}

// ClientMiddleware wraps every round trip in mw. The first middleware is the
// outermost.
func ClientMiddleware(mw ...Middleware) ClientOption {
	return func(f *Factory) { f.middleware = append(f.middleware, mw...) }
}

// ClientLogger logs every round trip at debug level, and failures at error
// level. By default, nothing is logged.
func ClientLogger(logger log.Logger) ClientOption {
	return func(f *Factory) { f.logger = logger }
}

// NewFactory validates cfg and returns a Factory for it.
func NewFactory(cfg Config, options ...ClientOption) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "http transport")
	}
	base, _ := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))

	f := &Factory{
		base:       base,
		apiKey:     cfg.APIKey,
		defaults:   cfg.Defaults,
		serializer: serializer.JSON(),
		logger:     log.NewNopLogger(),
	}
	for _, option := range options {
		option(f)
	}
	if f.client == nil {
		f.client = cfg.NewHTTPClient()
	}

	rt := f.roundTrip
	if len(f.middleware) > 0 {
		rt = endpoint.Chain(f.middleware[0], f.middleware[1:]...)(rt)
	}
	f.rt = Logging(f.logger)(rt)
	return f, nil
}

// Client returns a Handle scoped to scope. Identifiers that cannot be carried
// in a header are rejected.
func (f *Factory) Client(scope transport.Scope) (transport.Handle, error) {
	for _, id := range []string{scope.AgentID, scope.UserID} {
		if strings.ContainsAny(id, "\r\n") {
			return nil, errors.Errorf("invalid scope identifier %q", id)
		}
	}
	return &Client{f: f, scope: scope}, nil
}

// Defaults returns the scope used to fill the empty halves of every call's
// scope.
func (f *Factory) Defaults() transport.Scope { return f.defaults }

// URL returns the absolute URL for p, an already escaped path. Escaped
// separators and dots are kept as sent, so an identifier never leaves its
// segment.
func (f *Factory) URL(p string) *url.URL {
	u := *f.base
	raw := strings.TrimRight(f.base.EscapedPath(), "/") + "/" + strings.TrimLeft(p, "/")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		u.Path, u.RawPath = unescaped, raw
	} else {
		u.Path, u.RawPath = raw, ""
	}
	return &u
}

func (f *Factory) roundTrip(ctx context.Context, r *transport.Request) (resp *transport.Response, err error) {
	if len(f.finalizer) > 0 {
		defer func() {
			for _, fn := range f.finalizer {
				fn(ctx, err)
			}
		}()
	}

	enc, err := encodeOptions(r.Options, f.serializer)
	if err != nil {
		return nil, &transport.Error{Domain: transport.DomainEncode, Err: err}
	}

	u := f.URL(r.Path)
	u.RawQuery = enc.query
	req, err := http.NewRequestWithContext(ctx, r.Method, u.String(), enc.body)
	if err != nil {
		return nil, &transport.Error{Domain: transport.DomainNewRequest, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if enc.contentType != "" {
		req.Header.Set("Content-Type", enc.contentType)
	}
	if f.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}
	scope := r.Scope.Resolve(f.defaults)
	if scope.AgentID != "" {
		req.Header.Set(HeaderAgentID, scope.AgentID)
	}
	if scope.UserID != "" {
		req.Header.Set(HeaderUserID, scope.UserID)
	}

	for _, fn := range f.before {
		ctx = fn(ctx, req)
	}

	hr, err := f.client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, &transport.Error{Domain: transport.DomainDo, Err: err}
	}
	defer hr.Body.Close()

	for _, fn := range f.after {
		ctx = fn(ctx, hr)
	}

	body, err := io.ReadAll(hr.Body)
	if err != nil {
		return nil, &transport.Error{Domain: transport.DomainRead, Err: err}
	}
	if hr.StatusCode < 200 || hr.StatusCode > 299 {
		return nil, &transport.Error{Domain: transport.DomainStatus, Err: &transport.StatusError{
			StatusCode: hr.StatusCode,
			Status:     hr.Status,
			Body:       strings.TrimSpace(string(body)),
		}}
	}

	return &transport.Response{StatusCode: hr.StatusCode, Header: hr.Header, Body: body}, nil
}

// Client is a tenant-scoped handle. It holds no per-call state.
type Client struct {
	f     *Factory
	scope transport.Scope
}

var _ transport.Handle = (*Client)(nil)

// Scope returns the scope the Client was resolved for.
func (c *Client) Scope() transport.Scope { return c.scope }

// Get implements transport.Handle.
func (c *Client) Get(ctx context.Context, path string, opts transport.Options) (*transport.Response, error) {
	return c.do(ctx, http.MethodGet, path, opts)
}

// Post implements transport.Handle.
func (c *Client) Post(ctx context.Context, path string, opts transport.Options) (*transport.Response, error) {
	return c.do(ctx, http.MethodPost, path, opts)
}

// Put implements transport.Handle.
func (c *Client) Put(ctx context.Context, path string, opts transport.Options) (*transport.Response, error) {
	return c.do(ctx, http.MethodPut, path, opts)
}

// Delete implements transport.Handle.
func (c *Client) Delete(ctx context.Context, path string, opts transport.Options) (*transport.Response, error) {
	return c.do(ctx, http.MethodDelete, path, opts)
}

// do runs one call through the middleware chain. Multipart readers are
// drained here, once, so every attempt of a retried call sends the same body.
func (c *Client) do(ctx context.Context, method, path string, opts transport.Options) (*transport.Response, error) {
	if m, ok := opts.(transport.Multipart); ok {
		buffered, err := m.Buffered()
		if err != nil {
			return nil, &transport.Error{Domain: transport.DomainEncode, Err: err}
		}
		opts = buffered
	}
	return c.f.rt(ctx, &transport.Request{
		Method:  method,
		Path:    path,
		Scope:   c.scope,
		Options: opts,
	})
}
