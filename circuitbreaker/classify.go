package circuitbreaker

import (
	"context"
	"errors"

	"github.com/matteocacciola/cheshirecat-go-sdk/transport"
)

// IsSuccessful reports whether err leaves the backend's health untouched: no
// error, a 4xx status, or a canceled context.
func IsSuccessful(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	code := transport.StatusCode(err)
	return code >= 400 && code < 500
}
