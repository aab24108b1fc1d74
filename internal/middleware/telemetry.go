// Package middleware provides the Gin middleware shared by every route:
// request ids, request logging, span enrichment and refresh rate limiting.
package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/irfndi/quant-regime/internal/telemetry"
)

// SpanAttributes enriches the server span started by otelgin with the request
// id, session id and response details. Requests that reach it without a span
// get one from the HTTP tracer.
func SpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.SpanContext().IsValid() {
			ctx, s := telemetry.GetHTTPTracer().Start(c.Request.Context(),
				fmt.Sprintf("HTTP %s %s", c.Request.Method, c.Request.URL.Path),
				trace.WithSpanKind(trace.SpanKindServer),
			)
			defer s.End()
			c.Request = c.Request.WithContext(ctx)
			span = s
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(
			attribute.String("http.request_id", c.GetString(RequestIDKey)),
			attribute.Int("http.status_code", status),
			attribute.Int64("http.response.time_ms", time.Since(start).Milliseconds()),
			attribute.Int64("http.response.size_bytes", int64(c.Writer.Size())),
		)
		if id := c.Writer.Header().Get(SessionHeader); id != "" {
			span.SetAttributes(attribute.String("session.id", id))
		}
		if status >= 500 {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
		}
	}
}

// RecordError records an error on the current span
func RecordError(c *gin.Context, err error, description string) {
	span := trace.SpanFromContext(c.Request.Context())
	if span.IsRecording() {
		span.RecordError(err)
		span.SetStatus(codes.Error, description)
	}
}

// AddSpanAttribute adds an attribute to the current span
func AddSpanAttribute(c *gin.Context, key string, value interface{}) {
	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		return
	}
	switch v := value.(type) {
	case string:
		span.SetAttributes(attribute.String(key, v))
	case int:
		span.SetAttributes(attribute.Int(key, v))
	case int64:
		span.SetAttributes(attribute.Int64(key, v))
	case float64:
		span.SetAttributes(attribute.Float64(key, v))
	case bool:
		span.SetAttributes(attribute.Bool(key, v))
	default:
		span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", value)))
	}
}
