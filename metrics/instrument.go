package metrics

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/matteocacciola/cheshirecat-go-sdk/endpoint"
	"github.com/matteocacciola/cheshirecat-go-sdk/transport"
)

// Label names set by Instrument, in order.
var LabelNames = []string{"method", "endpoint", "status"}

// Instrument returns a transport middleware counting requests and observing
// their duration in seconds. Both metrics are labeled with the method, the
// first path segment and the outcome: the status code, or the failing
// transport domain.
func Instrument(requests Counter, duration Histogram) endpoint.Middleware[*transport.Request, *transport.Response] {
	return func(next endpoint.Endpoint[*transport.Request, *transport.Response]) endpoint.Endpoint[*transport.Request, *transport.Response] {
		return func(ctx context.Context, r *transport.Request) (resp *transport.Response, err error) {
			defer func(begin time.Time) {
				lvs := []string{
					"method", r.Method,
					"endpoint", endpointOf(r.Path),
					"status", outcome(resp, err),
				}
				requests.With(lvs...).Add(1)
				duration.With(lvs...).Observe(time.Since(begin).Seconds())
			}(time.Now())
			return next(ctx, r)
		}
	}
}

func endpointOf(path string) string {
	path = strings.TrimLeft(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	return path
}

func outcome(resp *transport.Response, err error) string {
	if code := transport.StatusCode(err); code != 0 {
		return strconv.Itoa(code)
	}
	var te *transport.Error
	if errors.As(err, &te) {
		return strings.ToLower(te.Domain)
	}
	if err != nil {
		return "error"
	}
	return strconv.Itoa(resp.StatusCode)
}
