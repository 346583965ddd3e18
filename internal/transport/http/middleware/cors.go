package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORSMiddleware builds the rs/cors handler. An empty origin list allows any
// origin but without credentials, since short links are opened from anywhere.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
			http.MethodHead,
		},
		AllowedHeaders: []string{
			"Content-Type",
			"Authorization",
			APIKeyHeader,
			UserIDHeader,
			VisitorIDHeader,
			"X-Correlation-Id",
			// OpenTelemetry headers
			"traceparent",
			"tracestate",
			"baggage",
		},
		ExposedHeaders: []string{"X-Correlation-Id", "Location"},
		MaxAge:         600,
	}
	if len(allowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	} else {
		opts.AllowedOrigins = allowedOrigins
		opts.AllowCredentials = true
	}

	c := cors.New(opts)
	return c.Handler
}
