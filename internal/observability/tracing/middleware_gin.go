package tracing

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/flyerpoint/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "flyerpoint/http"

// GinMiddleware starts a server span per request and names it after the
// matched route once handlers finish.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer(tracerName)
	return func(c *gin.Context) {
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+c.Request.Method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			ctx = withRequestBaggage(ctx, requestID)
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		if correlationID := obscontext.CorrelationIDFromContext(ctx); correlationID != "" {
			span.SetAttributes(attribute.String("correlation_id", correlationID))
		}
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()
		finishSpan(span, c, time.Since(start))
	}
}

func finishSpan(span trace.Span, c *gin.Context, elapsed time.Duration) {
	route := c.FullPath()
	if route == "" {
		route = "unknown"
	}
	status := c.Writer.Status()

	span.SetName("HTTP " + c.Request.Method + " " + route)
	attrs := []attribute.KeyValue{
		attribute.String("http.method", c.Request.Method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
		attribute.Int64("http.server_duration_ms", elapsed.Milliseconds()),
	}
	if event := c.GetString("reward_event"); event != "" {
		attrs = append(attrs, attribute.String("reward.event", event))
	}
	span.SetAttributes(SafeAttributes(attrs...)...)

	if status < http.StatusInternalServerError {
		return
	}
	if last := c.Errors.Last(); last != nil {
		if safeErr := SafeError(last.Err); safeErr != nil {
			span.RecordError(safeErr)
		}
	}
	span.SetStatus(codes.Error, "request error")
}

func withRequestBaggage(ctx context.Context, requestID string) context.Context {
	member, err := baggage.NewMember("request_id", requestID)
	if err != nil {
		return ctx
	}
	bag, err := baggage.New(member)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}
