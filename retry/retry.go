// Package retry re-issues failed round trips of the request/response
// transport. Only failures a repeat can fix are retried, and by default only
// for idempotent methods.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/hashicorp/go-multierror"

	"github.com/matteocacciola/cheshirecat-go-sdk/endpoint"
	"github.com/matteocacciola/cheshirecat-go-sdk/transport"
)

// Policy reports whether a request that failed with err may be issued again.
type Policy func(r *transport.Request, err error) bool

// Error is returned when every attempt failed. It unwraps to the error of the
// last attempt, so transport.StatusCode and errors.As see the final outcome.
type Error struct {
	// Attempts holds the error of every attempt, in order.
	Attempts *multierror.Error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("retry: %d attempts failed, last: %v", len(e.Attempts.Errors), e.Unwrap())
}

// Unwrap returns the error of the last attempt.
func (e *Error) Unwrap() error {
	return e.Attempts.Errors[len(e.Attempts.Errors)-1]
}

type options struct {
	policy     Policy
	newBackOff func() backoff.BackOff
	logger     log.Logger
}

// Option sets an optional parameter of the middleware.
type Option func(*options)

// WithPolicy replaces the default Idempotent policy.
func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithBackOff sets the constructor of the wait schedule. It is called once per
// request. By default it is an exponential schedule starting at 200ms.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(o *options) { o.newBackOff = fn }
}

// WithLogger logs every retry at warn level.
func WithLogger(logger log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New returns a transport middleware that retries a failed round trip up to
// max times. A request that fails its first attempt with an error the policy
// rejects gets that error back unchanged.
func New(max int, opts ...Option) endpoint.Middleware[*transport.Request, *transport.Response] {
	o := options{
		policy:     Idempotent,
		newBackOff: defaultBackOff,
		logger:     log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return func(next endpoint.Endpoint[*transport.Request, *transport.Response]) endpoint.Endpoint[*transport.Request, *transport.Response] {
		return func(ctx context.Context, r *transport.Request) (*transport.Response, error) {
			var (
				resp *transport.Response
				errs *multierror.Error
			)
			op := func() error {
				var err error
				resp, err = next(ctx, r)
				if err == nil {
					return nil
				}
				errs = multierror.Append(errs, err)
				if !o.policy(r, err) {
					return backoff.Permanent(err)
				}
				return err
			}
			notify := func(err error, wait time.Duration) {
				level.Warn(o.logger).Log(
					"method", r.Method,
					"path", r.Path,
					"attempt", len(errs.Errors),
					"wait", wait,
					"err", err,
				)
			}

			b := backoff.WithContext(backoff.WithMaxRetries(o.newBackOff(), uint64(max)), ctx)
			err := backoff.RetryNotify(op, b, notify)
			if err == nil {
				return resp, nil
			}
			if errs == nil || len(errs.Errors) == 1 {
				return nil, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(errs.Errors[len(errs.Errors)-1], ctxErr) {
				errs = multierror.Append(errs, ctxErr)
			}
			return nil, &Error{Attempts: errs}
		}
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = time.Minute
	return b
}

// Idempotent retries GET, PUT, DELETE, HEAD and OPTIONS requests that failed
// with a Temporary error.
func Idempotent(r *transport.Request, err error) bool {
	switch r.Method {
	case http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodHead, http.MethodOptions:
		return Temporary(err)
	}
	return false
}

// Any retries every request that failed with a Temporary error.
func Any(_ *transport.Request, err error) bool {
	return Temporary(err)
}

// Temporary reports whether a repeat of the request could succeed: the round
// trip itself failed, or the backend answered 429 or 5xx other than 501.
// Caller cancellations are never temporary.
func Temporary(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var te *transport.Error
	if !errors.As(err, &te) {
		return false
	}
	switch te.Domain {
	case transport.DomainDo, transport.DomainRead:
		return true
	case transport.DomainStatus:
		code := transport.StatusCode(err)
		return code == http.StatusTooManyRequests ||
			(code >= 500 && code != http.StatusNotImplemented)
	}
	return false
}
