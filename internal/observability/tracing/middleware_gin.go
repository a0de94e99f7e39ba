package tracing

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/parcella/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "parcella/http"

// GinMiddleware opens a server span per request. Paths listed in skip (probes,
// mostly) pass through untraced.
func GinMiddleware(skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, path := range skip {
		skipped[path] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skipped[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		method := strings.ToUpper(c.Request.Method)
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := otel.Tracer(tracerName).Start(ctx, "HTTP "+method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		span.SetName("HTTP " + method + " " + route)

		status := c.Writer.Status()
		attrs := []attribute.KeyValue{
			attribute.String("http.method", method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
			attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
		}
		attrs = append(attrs, requestAttributes(c, route)...)
		span.SetAttributes(SafeAttributes(attrs...)...)

		if status >= http.StatusInternalServerError {
			if last := c.Errors.Last(); last != nil {
				span.RecordError(SafeError(last.Err))
			}
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

// requestAttributes reads what the handlers left on the request: the request id,
// the authenticated actor and the resource addressed by the route.
func requestAttributes(c *gin.Context, route string) []attribute.KeyValue {
	ctx := c.Request.Context()
	var attrs []attribute.KeyValue
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		attrs = append(attrs, attribute.String("request_id", requestID))
	}
	if role, id := obscontext.ActorFromContext(ctx); id != "" {
		attrs = append(attrs, attribute.String("enduser.id", id), attribute.String("enduser.role", role))
	}
	if id := c.Param("id"); id != "" {
		attrs = append(attrs,
			attribute.String("parcella.resource", resourceFromRoute(route)),
			attribute.String("parcella.resource_id", id),
		)
	}
	return attrs
}

// resourceFromRoute names the collection a route addresses: "/api/invoices/:id/pay"
// gives "invoices".
func resourceFromRoute(route string) string {
	resource := ""
	for _, part := range strings.Split(strings.Trim(route, "/"), "/") {
		if strings.HasPrefix(part, ":") {
			break
		}
		resource = part
	}
	return resource
}
