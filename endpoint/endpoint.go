package endpoint

import (
	"context"
)

// Endpoint is the fundamental building block of clients. It represents a
// single round trip: one request in, one response out.
type Endpoint[Request, Response any] func(ctx context.Context, request Request) (response Response, err error)

// Nop is an endpoint that does nothing and returns a nil error.
// Useful for tests.
func Nop[Request, Response any](context.Context, Request) (Response, error) {
	var zero Response
	return zero, nil
}

// Middleware is a chainable behavior modifier for endpoints.
type Middleware[Request, Response any] func(Endpoint[Request, Response]) Endpoint[Request, Response]

// Chain is a helper function for composing middlewares. Requests will
// traverse them in the order they're declared. That is, the first middleware
// is treated as the outermost middleware.
func Chain[Request, Response any](outer Middleware[Request, Response], others ...Middleware[Request, Response]) Middleware[Request, Response] {
	return func(next Endpoint[Request, Response]) Endpoint[Request, Response] {
		for i := len(others) - 1; i >= 0; i-- { // reverse
			next = others[i](next)
		}
		return outer(next)
	}
}
