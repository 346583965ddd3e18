package http

import (
	"net/http"
	"strings"

	"github.com/IgorGrieder/linkhive/internal/config"
	"github.com/IgorGrieder/linkhive/internal/infrastructure/telemetry"
	"github.com/IgorGrieder/linkhive/internal/processing/links"
	"github.com/IgorGrieder/linkhive/internal/transport/http/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var spanNames = map[string]string{
	"GET /health":                          "health",
	"GET /metrics":                         "metrics",
	"POST /api/links":                      "links.create",
	"GET /api/links":                       "links.list",
	"GET /api/links/{id}":                  "links.get",
	"PUT /api/links/{id}":                  "links.update",
	"DELETE /api/links/{id}":               "links.delete",
	"GET /api/links/{id}/stats":            "links.stats",
	"GET /api/links/{id}/analytics":        "links.analytics",
	"GET /api/short-links/redirect/{slug}": "links.redirect",
	"GET /s/{slug}":                        "links.page",
	"GET /{slug}":                          "links.redirect",
}

type RouterOptions struct {
	EnableCORS    bool
	EnableLogging bool
	EnableMetrics bool
}

func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		EnableCORS:    true,
		EnableLogging: true,
		EnableMetrics: true,
	}
}

// Dependencies are the application services the router exposes.
type Dependencies struct {
	Resolver    LinkResolver
	Service     *links.Service
	Store       Pinger
	StorageName string
}

func NewRouter(cfg *config.Config, deps Dependencies) http.Handler {
	return NewRouterWithOptions(cfg, deps, DefaultRouterOptions())
}

func NewRouterWithOptions(cfg *config.Config, deps Dependencies, opts RouterOptions) http.Handler {
	mux := http.NewServeMux()

	healthHandler := NewHealthHandler(deps.Store, deps.StorageName)
	resolveHandler := NewResolveHandler(deps.Resolver, cfg.Shortener.RedirectStatus, cfg.Resolver.VisitorHeader, cfg.Resolver.VisitorCookie)
	linksHandler := NewLinksHandler(deps.Service, cfg.Shortener.BaseURL)

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.Handle("GET /metrics", healthHandler.Metrics())

	passwordLimit := middleware.PasswordAttemptLimit(cfg.Security.PasswordAttemptsPerMinute)
	mux.Handle("GET /{slug}", passwordLimit(http.HandlerFunc(resolveHandler.Redirect)))
	mux.Handle("GET /api/short-links/redirect/{slug}", passwordLimit(http.HandlerFunc(resolveHandler.Redirect)))
	mux.Handle("GET /s/{slug}", passwordLimit(http.HandlerFunc(resolveHandler.Page)))

	management := []func(http.Handler) http.Handler{
		middleware.APIKeyMiddleware(cfg.Security.APIKeys),
		middleware.RequireOwner,
	}
	manage := func(h http.HandlerFunc, extra ...func(http.Handler) http.Handler) http.Handler {
		return middleware.Chain(h, append(append([]func(http.Handler) http.Handler{}, management...), extra...)...)
	}

	mux.Handle("POST /api/links", manage(linksHandler.Create, middleware.CreateRateLimit(cfg.Security.CreateRate.RequestsPerMinute)))
	mux.Handle("GET /api/links", manage(linksHandler.List))
	mux.Handle("GET /api/links/{id}", manage(linksHandler.Get))
	mux.Handle("PUT /api/links/{id}", manage(linksHandler.Update))
	mux.Handle("PATCH /api/links/{id}", manage(linksHandler.Update))
	mux.Handle("DELETE /api/links/{id}", manage(linksHandler.Delete))
	mux.Handle("GET /api/links/{id}/stats", manage(linksHandler.Stats))
	mux.Handle("GET /api/links/{id}/analytics", manage(linksHandler.Analytics))

	var innerHandler http.Handler = mux
	if opts.EnableCORS {
		innerHandler = middleware.CORSMiddleware(cfg.Security.CORSOrigins)(innerHandler)
	}
	if opts.EnableLogging {
		innerHandler = middleware.LoggingMiddleware(innerHandler)
	}
	if opts.EnableMetrics {
		innerHandler = middleware.MetricsMiddleware(innerHandler)
	}

	otelOptions := []otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			key := r.Method + " " + r.Pattern
			if name, ok := spanNames[key]; ok {
				return name
			}
			if r.Pattern != "" {
				return r.Pattern
			}
			path := strings.TrimSpace(r.URL.Path)
			if path == "" {
				path = "/"
			}
			return path
		}),
	}

	if telemetry.TracerProvider != nil {
		otelOptions = append(otelOptions, otelhttp.WithTracerProvider(telemetry.TracerProvider))
	}

	return otelhttp.NewHandler(innerHandler, cfg.App.Name, otelOptions...)
}
