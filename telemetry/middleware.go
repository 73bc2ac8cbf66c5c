package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// fasthttpHeaderCarrier adapts fasthttp.RequestHeader to
// propagation.TextMapCarrier so incoming trace context (e.g. a
// traceparent header from a client) can be extracted.
type fasthttpHeaderCarrier struct {
	header *fasthttp.RequestHeader
}

func (c fasthttpHeaderCarrier) Get(key string) string {
	return string(c.header.Peek(key))
}

func (c fasthttpHeaderCarrier) Set(key, value string) {
	c.header.Set(key, value)
}

func (c fasthttpHeaderCarrier) Keys() []string {
	var keys []string
	c.header.VisitAll(func(k, _ []byte) {
		keys = append(keys, string(k))
	})
	return keys
}

// TracingHandler wraps a fasthttp.RequestHandler with an OpenTelemetry
// span per request, the fasthttp equivalent of the gRPC unary
// interceptor pattern: start a span named after the route, run the
// handler, record status and duration, end the span.
func TracingHandler(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	tracer := otel.GetTracerProvider().Tracer("subsetgrep-server")

	return func(rctx *fasthttp.RequestCtx) {
		carrier := fasthttpHeaderCarrier{header: &rctx.Request.Header}
		parentCtx := otel.GetTextMapPropagator().Extract(rctx, carrier)

		path := string(rctx.Path())
		ctx, span := tracer.Start(
			parentCtx,
			fmt.Sprintf("http.%s", path),
			trace.WithAttributes(
				attribute.String("http.method", string(rctx.Method())),
				attribute.String("http.target", path),
			),
		)
		defer span.End()

		// fasthttp.RequestCtx satisfies context.Context; stash the span
		// context on it via SetUserValue so handlers can recover it.
		rctx.SetUserValue(spanContextKey{}, ctx)

		start := time.Now()
		next(rctx)
		elapsed := time.Since(start)

		status := rctx.Response.StatusCode()
		span.SetAttributes(
			attribute.Int("http.status_code", status),
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
		)
		if status >= 500 {
			span.SetStatus(codes.Error, fmt.Sprintf("status %d", status))
		}
	}
}

type spanContextKey struct{}

// SpanContext recovers the context.Context (carrying the active span)
// stashed by TracingHandler, for handlers that need to start child
// spans via StartSpan.
func SpanContext(rctx *fasthttp.RequestCtx) (ctx context.Context, ok bool) {
	v := rctx.UserValue(spanContextKey{})
	if v == nil {
		return nil, false
	}
	c, ok := v.(context.Context)
	return c, ok
}
