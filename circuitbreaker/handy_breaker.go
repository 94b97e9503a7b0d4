package circuitbreaker

import (
	"context"
	"time"

	"github.com/streadway/handy/breaker"

	"github.com/matteocacciola/cheshirecat-go-sdk/endpoint"
)

// HandyBreaker returns an endpoint.Middleware that implements the circuit
// breaker pattern using the streadway/handy/breaker package. Errors for
// which IsSuccessful reports true are recorded as successes.
//
// See http://godoc.org/github.com/streadway/handy/breaker for more
// information.
func HandyBreaker[Request, Response any](cb breaker.Breaker) endpoint.Middleware[Request, Response] {
	return func(next endpoint.Endpoint[Request, Response]) endpoint.Endpoint[Request, Response] {
		return func(ctx context.Context, request Request) (response Response, err error) {
			if !cb.Allow() {
				return response, breaker.ErrCircuitOpen
			}

			defer func(begin time.Time) {
				if IsSuccessful(err) {
					cb.Success(time.Since(begin))
				} else {
					cb.Failure(time.Since(begin))
				}
			}(time.Now())

			return next(ctx, request)
		}
	}
}
