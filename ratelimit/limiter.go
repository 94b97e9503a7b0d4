// Package ratelimit throttles the request/response transport. The limiters
// accept any Allower or Waiter; *rate.Limiter from golang.org/x/time/rate
// implements both.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/matteocacciola/cheshirecat-go-sdk/endpoint"
	"github.com/matteocacciola/cheshirecat-go-sdk/transport"
)

// ErrLimited is returned in the request path when the rate limiter is
// triggered and the request is rejected.
var ErrLimited = errors.New("rate limit exceeded")

// Allower dictates whether or not a request is acceptable to run.
type Allower interface {
	Allow() bool
}

// Waiter dictates how long a request must be delayed.
type Waiter interface {
	Wait(ctx context.Context) error
}

// NewErroringLimiter returns an endpoint.Middleware that acts as a rate
// limiter. Requests that would exceed the maximum request rate are simply
// rejected with ErrLimited and never reach the backend.
func NewErroringLimiter[Request, Response any](limit Allower) endpoint.Middleware[Request, Response] {
	return func(next endpoint.Endpoint[Request, Response]) endpoint.Endpoint[Request, Response] {
		return func(ctx context.Context, request Request) (response Response, err error) {
			if !limit.Allow() {
				return response, ErrLimited
			}
			return next(ctx, request)
		}
	}
}

// NewDelayingLimiter returns an endpoint.Middleware that acts as a request
// throttler. Requests that would exceed the maximum request rate are delayed
// by the Waiter, and fail with its error if ctx ends first.
func NewDelayingLimiter[Request, Response any](limit Waiter) endpoint.Middleware[Request, Response] {
	return func(next endpoint.Endpoint[Request, Response]) endpoint.Endpoint[Request, Response] {
		return func(ctx context.Context, request Request) (response Response, err error) {
			if err := limit.Wait(ctx); err != nil {
				return response, err
			}
			return next(ctx, request)
		}
	}
}

// AllowerFunc is an adapter that lets a function operate as if
// it implements Allower
type AllowerFunc func() bool

// Allow makes the adapter implement Allower
func (f AllowerFunc) Allow() bool {
	return f()
}

// WaiterFunc is an adapter that lets a function operate as if
// it implements Waiter
type WaiterFunc func(ctx context.Context) error

// Wait makes the adapter implement Waiter
func (f WaiterFunc) Wait(ctx context.Context) error {
	return f(ctx)
}

// PerAgent holds one rate.Limiter per agent, so a busy agent cannot starve
// the others sharing a client. The zero value is not usable; use NewPerAgent.
//
// A limiter whose bucket has refilled is indistinguishable from a new one, so
// such limiters are dropped by Sweep. Limiter sweeps at most once per
// SweepInterval; the map only holds agents seen recently.
type PerAgent struct {
	limit rate.Limit
	burst int

	mtx       sync.Mutex
	limiters  map[string]*rate.Limiter
	lastSweep time.Time
}

// SweepInterval is the least time between two sweeps run by Limiter.
const SweepInterval = time.Minute

// NewPerAgent returns a PerAgent handing out limiters of the given limit and
// burst.
func NewPerAgent(limit rate.Limit, burst int) *PerAgent {
	return &PerAgent{
		limit:     limit,
		burst:     burst,
		limiters:  map[string]*rate.Limiter{},
		lastSweep: time.Now(),
	}
}

// Limiter returns the limiter for agentID, creating it on first use. The
// empty id is the backend's default agent and has a limiter of its own.
func (p *PerAgent) Limiter(agentID string) *rate.Limiter {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if now := time.Now(); now.Sub(p.lastSweep) >= SweepInterval {
		p.sweepLocked(now)
	}
	l, ok := p.limiters[agentID]
	if !ok {
		l = rate.NewLimiter(p.limit, p.burst)
		p.limiters[agentID] = l
	}
	return l
}

// Sweep drops the limiters whose bucket is full again.
func (p *PerAgent) Sweep() {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.sweepLocked(time.Now())
}

func (p *PerAgent) sweepLocked(now time.Time) {
	p.lastSweep = now
	for id, l := range p.limiters {
		if l.TokensAt(now) >= float64(p.burst) {
			delete(p.limiters, id)
		}
	}
}

// Len returns the number of agents holding a limiter.
func (p *PerAgent) Len() int {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return len(p.limiters)
}

// Erroring returns a transport middleware rejecting requests over the
// limit of their agent.
func (p *PerAgent) Erroring() endpoint.Middleware[*transport.Request, *transport.Response] {
	return func(next endpoint.Endpoint[*transport.Request, *transport.Response]) endpoint.Endpoint[*transport.Request, *transport.Response] {
		return func(ctx context.Context, r *transport.Request) (*transport.Response, error) {
			if !p.Limiter(r.Scope.AgentID).Allow() {
				return nil, ErrLimited
			}
			return next(ctx, r)
		}
	}
}

// Delaying returns a transport middleware delaying requests over the limit of
// their agent.
func (p *PerAgent) Delaying() endpoint.Middleware[*transport.Request, *transport.Response] {
	return func(next endpoint.Endpoint[*transport.Request, *transport.Response]) endpoint.Endpoint[*transport.Request, *transport.Response] {
		return func(ctx context.Context, r *transport.Request) (*transport.Response, error) {
			if err := p.Limiter(r.Scope.AgentID).Wait(ctx); err != nil {
				return nil, err
			}
			return next(ctx, r)
		}
	}
}
