package http

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/matteocacciola/cheshirecat-go-sdk/transport"
)

// Logging returns a Middleware that logs each round trip: method, path,
// scope, status and duration at debug level, failures at error level.
func Logging(logger log.Logger) Middleware {
	return func(next RoundTrip) RoundTrip {
		return func(ctx context.Context, r *transport.Request) (resp *transport.Response, err error) {
			defer func(begin time.Time) {
				keyvals := []interface{}{
					"method", r.Method,
					"path", r.Path,
					"agent", r.Scope.AgentID,
					"user", r.Scope.UserID,
					"took", time.Since(begin),
				}
				if err != nil {
					level.Error(logger).Log(append(keyvals, "err", err)...)
					return
				}
				level.Debug(logger).Log(append(keyvals, "status", resp.StatusCode)...)
			}(time.Now())
			return next(ctx, r)
		}
	}
}
