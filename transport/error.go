package transport

import (
	"errors"
	"fmt"
)

// These are the phases in which a transport Error can occur.
const (
	// DomainNewRequest is an error building the outgoing request.
	DomainNewRequest = "NewRequest"

	// DomainEncode is an error encoding the request options.
	DomainEncode = "Encode"

	// DomainDo is an error executing the round trip.
	DomainDo = "Do"

	// DomainStatus is a completed round trip with a non-2xx status.
	DomainStatus = "Status"

	// DomainRead is an error reading the response body.
	DomainRead = "Read"

	// DomainDial is an error opening a channel.
	DomainDial = "Dial"

	// DomainWrite is an error writing to a channel.
	DomainWrite = "Write"
)

// Error is a failure at the transport level. Endpoints return it to their
// callers as is.
type Error struct {
	// Domain is the phase in which the error was generated.
	Domain string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Domain, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// StatusError is the cause of a DomainStatus Error.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("request failed: %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("request failed: %s", e.Status)
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not a
// status failure.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsStatus reports whether err is a status failure with the given code.
func IsStatus(err error, code int) bool {
	return StatusCode(err) == code
}
