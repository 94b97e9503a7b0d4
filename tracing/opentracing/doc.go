// Package opentracing traces the request/response transport with
// OpenTracing. TraceClient opens a client span around every round trip;
// ContextToHTTP propagates it to the backend in the request headers.
package opentracing
