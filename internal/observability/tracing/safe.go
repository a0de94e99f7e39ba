package tracing

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

// attributes that may carry patient data never leave the process
var blockedAttributeKeys = map[attribute.Key]struct{}{
	"patient.name":           {},
	"patient.fiscal_code":    {},
	"patient.email":          {},
	"patient.phone":          {},
	"http.request.body":      {},
	"http.request.cookie":    {},
	"enduser.email":          {},
	"professional.fiscal_id": {},
}

// SafeAttributes drops attributes that could carry personal health data.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, blocked := blockedAttributeKeys[attr.Key]; blocked {
			continue
		}
		out = append(out, attr)
	}
	return out
}

type redactedError struct {
	msg string
}

func (e redactedError) Error() string { return e.msg }

// SafeError keeps only the first line of err so SQL fragments with bound values
// do not end up in span events.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.TrimSpace(err.Error())
	if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
		msg = msg[:idx]
	}
	if msg == "" {
		return errors.New("error")
	}
	return redactedError{msg: msg}
}

// ExtractContext reads the upstream trace context from carrier.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
