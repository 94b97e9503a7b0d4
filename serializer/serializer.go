// Package serializer converts between Go values and the wire format of the
// backend. Endpoints only ever deserialize through it; the format itself is
// opaque to them.
package serializer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Serializer encodes request payloads and decodes response bodies.
type Serializer interface {
	Serialize(v interface{}) ([]byte, error)
	Deserialize(raw []byte, v interface{}) error
}

// Error is returned when a body cannot be converted into the expected type.
type Error struct {
	// Body is the raw payload that failed to decode, possibly truncated.
	Body string

	// Err is the decoder's failure.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("deserialize: %s", e.Err)
}

// Unwrap returns the decoder's failure.
func (e *Error) Unwrap() error { return e.Err }

const maxErrorBody = 512

// newError keeps at most maxErrorBody bytes of raw, cut on a rune boundary.
func newError(raw []byte, err error) *Error {
	if len(raw) <= maxErrorBody {
		return &Error{Body: string(raw), Err: err}
	}
	n := maxErrorBody
	for n > 0 && !utf8.RuneStart(raw[n]) {
		n--
	}
	return &Error{Body: string(raw[:n]) + "...", Err: err}
}

// Deserialize decodes raw into a new value of type T. The body is always
// handed to s, whatever its length; failures are returned unchanged.
func Deserialize[T any](s Serializer, raw []byte) (T, error) {
	var v T
	if err := s.Deserialize(raw, &v); err != nil {
		return v, err
	}
	return v, nil
}

type jsonSerializer struct {
	strict bool
}

// JSON returns a Serializer using encoding/json. Unknown fields are ignored
// and an empty or blank body leaves the target untouched.
func JSON() Serializer { return jsonSerializer{} }

// StrictJSON returns a JSON Serializer that rejects unknown object fields.
func StrictJSON() Serializer { return jsonSerializer{strict: true} }

func (jsonSerializer) Serialize(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (s jsonSerializer) Deserialize(raw []byte, v interface{}) error {
	// The backend answers some writes with no content at all.
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if s.strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		return newError(raw, err)
	}
	if dec.More() {
		return newError(raw, fmt.Errorf("unexpected data after top-level value"))
	}
	return nil
}
