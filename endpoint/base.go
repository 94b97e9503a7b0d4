package endpoint

import (
	"context"
	"reflect"
	"regexp"

	"github.com/matteocacciola/cheshirecat-go-sdk/serializer"
	"github.com/matteocacciola/cheshirecat-go-sdk/transport"
)

// Capabilities is the bundle of collaborators every concrete endpoint is
// built on. It is only ever read.
type Capabilities interface {
	HTTP() transport.Factory
	WS() transport.ChannelFactory
	Serializer() serializer.Serializer
}

// Base is embedded (or held) by concrete endpoints. It owns the resource
// prefix and composes every request path from it. A Base is immutable and
// safe for concurrent use by many tenants.
//
// The prefix is never empty for the endpoints of this module. It is not
// validated, though: a hand-built Base with an empty prefix produces paths
// such as "/points" instead of "/memory/points".
type Base struct {
	prefix string
	caps   Capabilities
}

// NewBase returns a Base for the resource family named by prefix.
func NewBase(prefix string, caps Capabilities) Base {
	return Base{prefix: prefix, caps: caps}
}

// Prefix returns the resource prefix.
func (b Base) Prefix() string { return b.prefix }

// Capabilities returns the collaborators the Base was built with.
func (b Base) Capabilities() Capabilities { return b.caps }

var separators = regexp.MustCompile(`/+`)

// FormatURL returns /<prefix>/<segment> with every run of separators
// collapsed into one.
func (b Base) FormatURL(segment string) string {
	return separators.ReplaceAllString("/"+b.prefix+"/"+segment, "/")
}

// HTTPClient resolves a request/response handle for scope.
func (b Base) HTTPClient(scope transport.Scope) (transport.Handle, error) {
	return b.caps.HTTP().Client(scope)
}

// WSClient resolves a persistent channel for scope.
func (b Base) WSClient(scope transport.Scope) (transport.Channel, error) {
	return b.caps.WS().Channel(scope)
}

// Get issues a read of path. The query is attached only when non-nil.
func Get[T any](ctx context.Context, b Base, path string, scope transport.Scope, query transport.Query) (T, error) {
	var opts transport.Options = transport.NoBody{}
	if query != nil {
		opts = query
	}
	return call[T](b, scope, func(h transport.Handle) (*transport.Response, error) {
		return h.Get(ctx, b.FormatURL(path), opts)
	})
}

// PostJSON submits payload to path as a JSON body. A nil payload sends no
// body at all, which is not the same as an empty object.
func PostJSON[T any](ctx context.Context, b Base, path string, payload interface{}, scope transport.Scope) (T, error) {
	var opts transport.Options = transport.NoBody{}
	if !isNil(payload) {
		opts = transport.JSON{Value: payload}
	}
	return call[T](b, scope, func(h transport.Handle) (*transport.Response, error) {
		return h.Post(ctx, b.FormatURL(path), opts)
	})
}

// PostMultipart submits parts to path as a multipart body. Nil parts send no
// body.
func PostMultipart[T any](ctx context.Context, b Base, path string, parts []transport.MultipartItem, scope transport.Scope) (T, error) {
	var opts transport.Options = transport.NoBody{}
	if parts != nil {
		opts = transport.Multipart(parts)
	}
	return call[T](b, scope, func(h transport.Handle) (*transport.Response, error) {
		return h.Post(ctx, b.FormatURL(path), opts)
	})
}

// Put replaces the resource at path with payload. The payload is always sent,
// even when it is empty.
func Put[T any](ctx context.Context, b Base, path string, payload interface{}, scope transport.Scope) (T, error) {
	opts := transport.JSON{Value: payload}
	return call[T](b, scope, func(h transport.Handle) (*transport.Response, error) {
		return h.Put(ctx, b.FormatURL(path), opts)
	})
}

// Delete removes the resource at path. A non-nil payload is sent as a JSON
// body carrying the removal criteria.
func Delete[T any](ctx context.Context, b Base, path string, scope transport.Scope, payload interface{}) (T, error) {
	var opts transport.Options = transport.NoBody{}
	if !isNil(payload) {
		opts = transport.JSON{Value: payload}
	}
	return call[T](b, scope, func(h transport.Handle) (*transport.Response, error) {
		return h.Delete(ctx, b.FormatURL(path), opts)
	})
}

// call resolves a fresh handle for scope, issues exactly one request and
// deserializes the body. Errors are returned unchanged.
func call[T any](b Base, scope transport.Scope, do func(transport.Handle) (*transport.Response, error)) (T, error) {
	var zero T
	h, err := b.HTTPClient(scope)
	if err != nil {
		return zero, err
	}
	resp, err := do(h)
	if err != nil {
		return zero, err
	}
	return serializer.Deserialize[T](b.caps.Serializer(), resp.Body)
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
