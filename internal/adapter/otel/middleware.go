package otel

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPMiddleware wraps an http.Handler with OpenTelemetry instrumentation.
func HTTPMiddleware(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, "arbiter-http")
}
