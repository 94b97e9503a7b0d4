package circuitbreaker

import (
	"context"

	"github.com/sony/gobreaker"

	"github.com/matteocacciola/cheshirecat-go-sdk/endpoint"
)

// Gobreaker returns an endpoint.Middleware that implements the circuit
// breaker pattern using the sony/gobreaker package. Build cb with
// NewGobreaker, or set Settings.IsSuccessful to IsSuccessful yourself, so
// that client errors do not open the circuit.
//
// See http://godoc.org/github.com/sony/gobreaker for more information.
func Gobreaker[Request, Response any](cb *gobreaker.CircuitBreaker) endpoint.Middleware[Request, Response] {
	return func(next endpoint.Endpoint[Request, Response]) endpoint.Endpoint[Request, Response] {
		return func(ctx context.Context, request Request) (Response, error) {
			res, err := cb.Execute(func() (interface{}, error) { return next(ctx, request) })
			response, _ := res.(Response)
			return response, err
		}
	}
}

// NewGobreaker returns a gobreaker.CircuitBreaker for settings with
// IsSuccessful defaulted to the package's classification.
func NewGobreaker(settings gobreaker.Settings) *gobreaker.CircuitBreaker {
	if settings.IsSuccessful == nil {
		settings.IsSuccessful = IsSuccessful
	}
	return gobreaker.NewCircuitBreaker(settings)
}
