// Package transport defines the contracts between endpoints and the transports
// that carry their requests: tenant scopes, per-call options, the scoped
// request/response handle and the persistent channel.
package transport

import (
	"context"
	"net/http"
)

// Request is a single call issued through a Handle. It lives for one call
// only.
type Request struct {
	Method  string
	Path    string
	Scope   Scope
	Options Options
}

// Response carries the raw body of a completed call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// String returns the body as a string.
func (r *Response) String() string { return string(r.Body) }

// Handle issues requests against a tenant-scoped connection.
type Handle interface {
	Get(ctx context.Context, path string, opts Options) (*Response, error)
	Post(ctx context.Context, path string, opts Options) (*Response, error)
	Put(ctx context.Context, path string, opts Options) (*Response, error)
	Delete(ctx context.Context, path string, opts Options) (*Response, error)
}

// Factory resolves a Handle for a scope. Implementations must be safe for
// concurrent use; they are never mutated by callers.
type Factory interface {
	Client(scope Scope) (Handle, error)
}

// FactoryFunc is an adapter to allow the use of ordinary functions as
// Factories.
type FactoryFunc func(scope Scope) (Handle, error)

// Client implements Factory.
func (f FactoryFunc) Client(scope Scope) (Handle, error) { return f(scope) }

// Channel is a persistent, bidirectional message channel.
type Channel interface {
	Send(ctx context.Context, v interface{}) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// ChannelFactory resolves a Channel for a scope.
type ChannelFactory interface {
	Channel(scope Scope) (Channel, error)
}
