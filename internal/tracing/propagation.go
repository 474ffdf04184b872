package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// InjectToHeaders injects the trace context of ctx into a string map, used to
// carry traces onto outbound broker messages.
func InjectToHeaders(ctx context.Context, headers map[string]string) {
	if headers == nil {
		return
	}

	carrier := make(propagation.HeaderCarrier)
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	for k, v := range carrier {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
}

// ExtractFromHeaders returns a context carrying the trace found in headers
func ExtractFromHeaders(ctx context.Context, headers map[string]string) context.Context {
	if len(headers) == 0 {
		return ctx
	}

	carrier := make(propagation.HeaderCarrier)
	for k, v := range headers {
		carrier.Set(k, v)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
