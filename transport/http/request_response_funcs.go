package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// RequestFunc may take information from a context and put it into an
// outgoing HTTP request. RequestFuncs are executed after the request is built
// and the scope headers are set, but prior to invoking the HTTP client.
type RequestFunc func(context.Context, *http.Request) context.Context

// ClientResponseFunc may take information from an HTTP response and make the
// response available for consumption. ClientResponseFuncs are executed after
// a request has been made, but prior to the body being read.
type ClientResponseFunc func(context.Context, *http.Response) context.Context

// ClientFinalizerFunc is executed at the end of every round trip, with the
// error that ended it, if any.
type ClientFinalizerFunc func(ctx context.Context, err error)

// SetRequestHeader returns a RequestFunc that sets the given header.
func SetRequestHeader(key, val string) RequestFunc {
	return func(ctx context.Context, r *http.Request) context.Context {
		r.Header.Set(key, val)
		return ctx
	}
}

// SetUserAgent returns a RequestFunc that sets the User-Agent header.
func SetUserAgent(agent string) RequestFunc {
	return SetRequestHeader("User-Agent", agent)
}

type contextKey int

const (
	// ContextKeyRequestID is populated in the context by SetRequestID with
	// the id sent in the X-Request-Id header.
	ContextKeyRequestID contextKey = iota

	// ContextKeyResponseStatus is populated in the context by
	// PopulateResponseContext with the status code of the response.
	ContextKeyResponseStatus
)

// HeaderRequestID carries the correlation id of a request.
const HeaderRequestID = "X-Request-Id"

// SetRequestID returns a RequestFunc that tags the request with a random id,
// unless the context already carries one from WithRequestID.
func SetRequestID() RequestFunc {
	return func(ctx context.Context, r *http.Request) context.Context {
		id, ok := ctx.Value(ContextKeyRequestID).(string)
		if !ok || id == "" {
			id = uuid.NewString()
			ctx = context.WithValue(ctx, ContextKeyRequestID, id)
		}
		r.Header.Set(HeaderRequestID, id)
		return ctx
	}
}

// WithRequestID returns a context whose requests are tagged with id by
// SetRequestID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, id)
}

// PopulateResponseContext is a ClientResponseFunc that stores the response
// status in the context.
func PopulateResponseContext(ctx context.Context, r *http.Response) context.Context {
	return context.WithValue(ctx, ContextKeyResponseStatus, r.StatusCode)
}
