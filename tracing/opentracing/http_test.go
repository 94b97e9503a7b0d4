package opentracing_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-kit/log"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/opentracing/opentracing-go/mocktracer"

	kitot "github.com/matteocacciola/cheshirecat-go-sdk/tracing/opentracing"
	"github.com/matteocacciola/cheshirecat-go-sdk/transport"
	httptransport "github.com/matteocacciola/cheshirecat-go-sdk/transport/http"
)

func newFactory(t *testing.T, tracer opentracing.Tracer, h http.HandlerFunc) *httptransport.Factory {
	t.Helper()
	s := httptest.NewServer(h)
	t.Cleanup(s.Close)
	f, err := httptransport.NewFactory(httptransport.Config{BaseURL: s.URL},
		httptransport.ClientMiddleware(kitot.TraceClient(tracer)),
		httptransport.ClientBefore(kitot.ContextToHTTP(tracer, log.NewNopLogger())),
	)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestTraceClientPropagates(t *testing.T) {
	tracer := mocktracer.New()
	var carried opentracing.SpanContext
	f := newFactory(t, tracer, func(w http.ResponseWriter, r *http.Request) {
		sc, err := tracer.Extract(opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(r.Header))
		if err != nil {
			t.Error(err)
		}
		carried = sc
		w.Write([]byte(`{}`))
	})

	parent := tracer.StartSpan("parent")
	ctx := opentracing.ContextWithSpan(context.Background(), parent)

	c, _ := f.Client(transport.ForAgent("agent"))
	if _, err := c.Get(ctx, "memory/collections", transport.NoBody{}); err != nil {
		t.Fatal(err)
	}
	parent.Finish()

	spans := tracer.FinishedSpans()
	if want, have := 2, len(spans); want != have {
		t.Fatalf("want %d spans, have %d", want, have)
	}
	span := spans[0]
	if want, have := "GET memory/collections", span.OperationName; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
	if want, have := parent.(*mocktracer.MockSpan).SpanContext.SpanID, span.ParentID; want != have {
		t.Errorf("want parent %d, have %d", want, have)
	}
	if want, have := ext.SpanKindRPCClientEnum, span.Tag("span.kind"); want != have {
		t.Errorf("want %q, have %q", want, have)
	}
	if want, have := "agent", span.Tag(kitot.TagAgentID); want != have {
		t.Errorf("want %q, have %v", want, have)
	}
	if want, have := uint16(200), span.Tag("http.status_code"); want != have {
		t.Errorf("want %v, have %v", want, have)
	}

	mc, ok := carried.(mocktracer.MockSpanContext)
	if !ok {
		t.Fatalf("want mock span context, have %T", carried)
	}
	if want, have := span.SpanContext.SpanID, mc.SpanID; want != have {
		t.Errorf("want injected span %d, have %d", want, have)
	}
}

func TestTraceClientMarksErrors(t *testing.T) {
	tracer := mocktracer.New()
	f := newFactory(t, tracer, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	c, _ := f.Client(transport.DefaultScope)
	if _, err := c.Delete(context.Background(), "plugins/x", transport.NoBody{}); err == nil {
		t.Fatal("want error, have none")
	}
	spans := tracer.FinishedSpans()
	if want, have := 1, len(spans); want != have {
		t.Fatalf("want %d span, have %d", want, have)
	}
	if want, have := true, spans[0].Tag("error"); want != have {
		t.Errorf("want %v, have %v", want, have)
	}
	if want, have := uint16(http.StatusBadGateway), spans[0].Tag("http.status_code"); want != have {
		t.Errorf("want %v, have %v", want, have)
	}
}

func TestContextToHTTPWithoutSpan(t *testing.T) {
	tracer := mocktracer.New()
	req, _ := http.NewRequest("GET", "http://cat:1865/", nil)
	kitot.ContextToHTTP(tracer, log.NewNopLogger())(context.Background(), req)
	if len(req.Header) != 0 {
		t.Errorf("want no headers, have %v", req.Header)
	}
}
