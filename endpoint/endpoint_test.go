package endpoint_test

import (
	"context"
	"errors"
	"testing"

	"github.com/matteocacciola/cheshirecat-go-sdk/endpoint"
)

func TestNop(t *testing.T) {
	resp, err := endpoint.Nop[string, int](context.Background(), "ignored")
	if err != nil {
		t.Fatal(err)
	}
	if want, have := 0, resp; want != have {
		t.Errorf("want %d, have %d", want, have)
	}
}

func TestChainShortCircuit(t *testing.T) {
	errStop := errors.New("stop")
	var calls []string

	stop := func(next endpoint.Endpoint[string, string]) endpoint.Endpoint[string, string] {
		return func(ctx context.Context, request string) (string, error) {
			calls = append(calls, "stop")
			return "", errStop
		}
	}
	pass := func(next endpoint.Endpoint[string, string]) endpoint.Endpoint[string, string] {
		return func(ctx context.Context, request string) (string, error) {
			calls = append(calls, "pass")
			return next(ctx, request)
		}
	}
	e := endpoint.Chain(pass, stop, pass)(func(context.Context, string) (string, error) {
		calls = append(calls, "endpoint")
		return "ok", nil
	})

	if _, err := e(context.Background(), "req"); !errors.Is(err, errStop) {
		t.Fatalf("want %v, have %v", errStop, err)
	}
	if want, have := 2, len(calls); want != have {
		t.Fatalf("want %d calls, have %d (%v)", want, have, calls)
	}
	if want, have := "stop", calls[1]; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
}
