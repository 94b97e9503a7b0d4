package transport

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"reflect"
	"sort"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Options is the per-call payload of a request. It is a closed set of
// variants: NoBody, Query, JSON and Multipart. Transports switch over them
// exhaustively; a request carries exactly one.
type Options interface {
	options()
}

// NoBody sends neither a query nor a body.
type NoBody struct{}

// Query is attached to the request URL as query parameters.
type Query url.Values

// JSON is encoded as the request body. A JSON value with a nil Value is still
// a body: it is sent as the literal null.
type JSON struct {
	Value interface{}
}

// Multipart is sent as a multipart/form-data body, parts in order.
type Multipart []MultipartItem

func (NoBody) options()    {}
func (Query) options()     {}
func (JSON) options()      {}
func (Multipart) options() {}

// MultipartItem is one named part of a multipart body. Content is either a
// []byte, a string or an io.Reader. When Filename is set the part is sent as
// a file part.
type MultipartItem struct {
	Name        string
	Content     interface{}
	Filename    string
	ContentType string
}

// Reader returns the content of the part as a reader.
func (m MultipartItem) Reader() (io.Reader, error) {
	switch c := m.Content.(type) {
	case nil:
		return bytes.NewReader(nil), nil
	case io.Reader:
		return c, nil
	case []byte:
		return bytes.NewReader(c), nil
	case string:
		return bytes.NewReader([]byte(c)), nil
	case fmt.Stringer:
		return bytes.NewReader([]byte(c.String())), nil
	default:
		return nil, errors.Errorf("multipart item %q: unsupported content type %T", m.Name, m.Content)
	}
}

// Buffered returns a copy of m with every io.Reader content read into
// memory, so that the body can be encoded again by a repeated attempt.
func (m Multipart) Buffered() (Multipart, error) {
	out := make(Multipart, len(m))
	for i, item := range m {
		if r, ok := item.Content.(io.Reader); ok {
			b, err := io.ReadAll(r)
			if err != nil {
				return nil, errors.Wrapf(err, "multipart item %q", item.Name)
			}
			item.Content = b
		}
		out[i] = item
	}
	return out, nil
}

// Get returns the first value for key.
func (q Query) Get(key string) string { return url.Values(q).Get(key) }

// Encode renders the query in URL form, sorted by key.
func (q Query) Encode() string { return url.Values(q).Encode() }

// QueryOf builds a Query from a map of primitive values. Nil values are
// skipped; slices produce repeated keys.
func QueryOf(m map[string]interface{}) Query {
	q := Query{}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		addValue(q, k, m[k])
	}
	return q
}

// QueryFrom flattens a struct (or a map) into a Query. Struct fields are named
// by their `query` tag; fields tagged with ",omitempty" are dropped when zero.
func QueryFrom(v interface{}) (Query, error) {
	if v == nil {
		return nil, nil
	}
	if q, ok := v.(Query); ok {
		return q, nil
	}
	if vs, ok := v.(url.Values); ok {
		return Query(vs), nil
	}

	var m map[string]interface{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "query",
		Result:  &m,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(v); err != nil {
		return nil, errors.Wrap(err, "query")
	}
	return QueryOf(m), nil
}

func addValue(q Query, key string, v interface{}) {
	if v == nil {
		return
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return
		}
		addValue(q, key, rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if b, ok := v.([]byte); ok {
			url.Values(q).Add(key, string(b))
			return
		}
		for i := 0; i < rv.Len(); i++ {
			addValue(q, key, rv.Index(i).Interface())
		}
	default:
		url.Values(q).Add(key, fmt.Sprint(v))
	}
}
