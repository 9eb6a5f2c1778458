package tracing

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

var forbiddenAttributeKeys = map[attribute.Key]struct{}{
	"email":       {},
	"password":    {},
	"credential":  {},
	"postal_code": {},
	"code":        {},
	"state":       {},
}

// ExtractContext reads upstream trace headers into ctx.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// SafeAttributes drops attributes that could carry personal or secret data.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := forbiddenAttributeKeys[attr.Key]; ok {
			continue
		}
		out = append(out, attr)
	}
	return out
}

// SafeError reduces err to its message with any email address masked.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	parts := strings.Fields(err.Error())
	for i, part := range parts {
		if strings.Contains(part, "@") {
			parts[i] = "[redacted]"
		}
	}
	return errors.New(strings.Join(parts, " "))
}
