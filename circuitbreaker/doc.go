// Package circuitbreaker implements the circuit breaker pattern for the
// request/response transport.
//
// Circuit breakers stop a client from hammering a backend that is already
// failing. Install one with http.ClientMiddleware so that every round trip
// issued by every endpoint shares it. Rejections by the backend (4xx
// statuses) and caller cancellations are not failures of the backend and do
// not count against the breaker.
package circuitbreaker
