// Package client is the entry point of the SDK. A Client bundles the
// transports and the serializer every endpoint needs, and hands out the
// endpoints themselves.
//
//	c, err := client.New(client.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	list, err := c.Memory().GetCollections(ctx, transport.ForAgent("agent"))
package client

import (
	"context"

	"github.com/go-kit/log"
	"github.com/opentracing/opentracing-go"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/matteocacciola/cheshirecat-go-sdk/api/memory"
	"github.com/matteocacciola/cheshirecat-go-sdk/api/message"
	"github.com/matteocacciola/cheshirecat-go-sdk/api/plugins"
	"github.com/matteocacciola/cheshirecat-go-sdk/api/rabbithole"
	"github.com/matteocacciola/cheshirecat-go-sdk/api/settings"
	"github.com/matteocacciola/cheshirecat-go-sdk/api/users"
	"github.com/matteocacciola/cheshirecat-go-sdk/circuitbreaker"
	"github.com/matteocacciola/cheshirecat-go-sdk/endpoint"
	"github.com/matteocacciola/cheshirecat-go-sdk/metrics"
	"github.com/matteocacciola/cheshirecat-go-sdk/metrics/prometheus"
	"github.com/matteocacciola/cheshirecat-go-sdk/ratelimit"
	"github.com/matteocacciola/cheshirecat-go-sdk/retry"
	"github.com/matteocacciola/cheshirecat-go-sdk/serializer"
	kitot "github.com/matteocacciola/cheshirecat-go-sdk/tracing/opentracing"
	"github.com/matteocacciola/cheshirecat-go-sdk/transport"
	httptransport "github.com/matteocacciola/cheshirecat-go-sdk/transport/http"
	"github.com/matteocacciola/cheshirecat-go-sdk/transport/http/ws"
)

// Client implements endpoint.Capabilities. It is immutable after New and
// safe for concurrent use.
type Client struct {
	cfg        Config
	http       *httptransport.Factory
	ws         *ws.Factory
	serializer serializer.Serializer

	memory     *memory.Endpoint
	plugins    *plugins.Endpoint
	rabbithole *rabbithole.Endpoint
	users      *users.Endpoint
	settings   *settings.Endpoint
	message    *message.Endpoint
}

var _ endpoint.Capabilities = (*Client)(nil)

type options struct {
	logger     log.Logger
	serializer serializer.Serializer
	registerer stdprometheus.Registerer
	requests   metrics.Counter
	duration   metrics.Histogram
	tracer     opentracing.Tracer
	httpOpts   []httptransport.ClientOption
	wsOpts     []ws.FactoryOption
}

// Option sets an optional parameter for a Client.
type Option func(*options)

// WithLogger logs round trips, retries and channel failures. By default,
// nothing is logged.
func WithLogger(logger log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithSerializer replaces the JSON serializer.
func WithSerializer(s serializer.Serializer) Option {
	return func(o *options) { o.serializer = s }
}

// WithMetrics registers request metrics with reg.
func WithMetrics(reg stdprometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithInstrumentation counts requests and observes their duration with the
// given metrics, e.g. the in-memory ones of package metrics/generic.
func WithInstrumentation(requests metrics.Counter, duration metrics.Histogram) Option {
	return func(o *options) { o.requests, o.duration = requests, duration }
}

// WithTracer traces every round trip and propagates the spans to the
// backend.
func WithTracer(tracer opentracing.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}

// WithHTTPOptions passes options to the request/response transport.
func WithHTTPOptions(opts ...httptransport.ClientOption) Option {
	return func(o *options) { o.httpOpts = append(o.httpOpts, opts...) }
}

// WithWSOptions passes options to the channel transport.
func WithWSOptions(opts ...ws.FactoryOption) Option {
	return func(o *options) { o.wsOpts = append(o.wsOpts, opts...) }
}

// New validates cfg and builds a Client for it.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{
		logger:     log.NewNopLogger(),
		serializer: serializer.JSON(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	httpOpts := []httptransport.ClientOption{
		httptransport.SetSerializer(o.serializer),
		httptransport.ClientLogger(log.With(o.logger, "transport", "http")),
		httptransport.ClientBefore(httptransport.SetRequestID()),
	}
	httpOpts = append(httpOpts, middlewares(cfg, o)...)
	httpOpts = append(httpOpts, o.httpOpts...)
	hf, err := httptransport.NewFactory(cfg.HTTP(), httpOpts...)
	if err != nil {
		return nil, err
	}

	wsOpts := []ws.FactoryOption{
		ws.SetSerializer(o.serializer),
		ws.SetErrorLogger(log.With(o.logger, "transport", "ws")),
	}
	wf, err := ws.NewFactory(cfg.WS(), append(wsOpts, o.wsOpts...)...)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:        cfg,
		http:       hf,
		ws:         wf,
		serializer: o.serializer,
	}
	c.memory = memory.New(c)
	c.plugins = plugins.New(c)
	c.rabbithole = rabbithole.New(c)
	c.users = users.New(c)
	c.settings = settings.New(c)
	c.message = message.New(c)
	return c, nil
}

// middlewares returns the transport middleware cfg and o ask for, outermost
// first: tracing, metrics, circuit breaker, retries, rate limiting. Each
// retry attempt is rate limited; the breaker sees the outcome of a whole
// retried call.
func middlewares(cfg Config, o options) []httptransport.ClientOption {
	var (
		mw     []httptransport.Middleware
		before []httptransport.RequestFunc
	)
	if o.tracer != nil {
		mw = append(mw, kitot.TraceClient(o.tracer))
		before = append(before, kitot.ContextToHTTP(o.tracer, log.With(o.logger, "component", "tracing")))
	}
	if o.registerer != nil {
		m := prometheus.NewInstrumentation(o.registerer, "ccat")
		mw = append(mw, metrics.Instrument(m.Requests, m.Duration))
	}
	if o.requests != nil && o.duration != nil {
		mw = append(mw, metrics.Instrument(o.requests, o.duration))
	}
	if cfg.CircuitBreaker {
		cb := circuitbreaker.NewGobreaker(gobreaker.Settings{Name: cfg.BaseURL})
		mw = append(mw, circuitbreaker.Gobreaker[*transport.Request, *transport.Response](cb))
	}
	if cfg.MaxRetries > 0 {
		mw = append(mw, retry.New(cfg.MaxRetries, retry.WithLogger(log.With(o.logger, "component", "retry"))))
	}
	if cfg.RateLimit > 0 {
		mw = append(mw, ratelimit.NewPerAgent(rate.Limit(cfg.RateLimit), cfg.RateBurst).Delaying())
	}

	var out []httptransport.ClientOption
	if len(mw) > 0 {
		out = append(out, httptransport.ClientMiddleware(mw...))
	}
	if len(before) > 0 {
		out = append(out, httptransport.ClientBefore(before...))
	}
	return out
}

// HTTP implements endpoint.Capabilities.
func (c *Client) HTTP() transport.Factory { return c.http }

// WS implements endpoint.Capabilities.
func (c *Client) WS() transport.ChannelFactory { return c.ws }

// Serializer implements endpoint.Capabilities.
func (c *Client) Serializer() serializer.Serializer { return c.serializer }

// Config returns the configuration the Client was built from.
func (c *Client) Config() Config { return c.cfg }

func (c *Client) Memory() *memory.Endpoint         { return c.memory }
func (c *Client) Plugins() *plugins.Endpoint       { return c.plugins }
func (c *Client) RabbitHole() *rabbithole.Endpoint { return c.rabbithole }
func (c *Client) Users() *users.Endpoint           { return c.users }
func (c *Client) Settings() *settings.Endpoint     { return c.settings }
func (c *Client) Message() *message.Endpoint       { return c.message }

// Status is the answer of the backend's root route.
type Status struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// Status checks that the backend is up. The root route belongs to no
// resource family, so the request goes through a handle directly.
func (c *Client) Status(ctx context.Context, scope transport.Scope) (Status, error) {
	h, err := c.http.Client(scope)
	if err != nil {
		return Status{}, err
	}
	resp, err := h.Get(ctx, "/", transport.NoBody{})
	if err != nil {
		return Status{}, err
	}
	return serializer.Deserialize[Status](c.serializer, resp.Body)
}
