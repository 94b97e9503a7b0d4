package opentracing

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	otlog "github.com/opentracing/opentracing-go/log"

	"github.com/matteocacciola/cheshirecat-go-sdk/endpoint"
	"github.com/matteocacciola/cheshirecat-go-sdk/transport"
)

// Tags set on every client span besides the standard ones.
const (
	TagAgentID = "ccat.agent_id"
	TagUserID  = "ccat.user_id"
)

// TraceClient returns a transport middleware that wraps every round trip in
// an OpenTracing span named "<METHOD> <path>". If ctx already carries a span,
// the new one is its child.
func TraceClient(tracer opentracing.Tracer) endpoint.Middleware[*transport.Request, *transport.Response] {
	return func(next endpoint.Endpoint[*transport.Request, *transport.Response]) endpoint.Endpoint[*transport.Request, *transport.Response] {
		return func(ctx context.Context, r *transport.Request) (*transport.Response, error) {
			var opts []opentracing.StartSpanOption
			if parent := opentracing.SpanFromContext(ctx); parent != nil {
				opts = append(opts, opentracing.ChildOf(parent.Context()))
			}
			span := tracer.StartSpan(r.Method+" "+r.Path, opts...)
			defer span.Finish()

			ext.SpanKindRPCClient.Set(span)
			ext.HTTPMethod.Set(span, r.Method)
			if r.Scope.AgentID != "" {
				span.SetTag(TagAgentID, r.Scope.AgentID)
			}
			if r.Scope.UserID != "" {
				span.SetTag(TagUserID, r.Scope.UserID)
			}

			resp, err := next(opentracing.ContextWithSpan(ctx, span), r)
			if code := transport.StatusCode(err); code != 0 {
				ext.HTTPStatusCode.Set(span, uint16(code))
			} else if resp != nil {
				ext.HTTPStatusCode.Set(span, uint16(resp.StatusCode))
			}
			if err != nil {
				ext.Error.Set(span, true)
				span.LogFields(otlog.Error(err))
			}
			return resp, err
		}
	}
}
