package http

import (
	"context"
	"net/http"
	"time"

	"github.com/IgorGrieder/linkhive/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkhive/pkg/httputils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status    string `json:"status"`
	Storage   string `json:"storage"`
	Timestamp string `json:"timestamp"`
}

// HealthHandler handles health and metrics endpoints
type HealthHandler struct {
	store       Pinger
	storageName string
	timeout     time.Duration
}

func NewHealthHandler(store Pinger, storageName string) *HealthHandler {
	return &HealthHandler{store: store, storageName: storageName, timeout: 2 * time.Second}
}

// Health pings the store: 200 "ok" when it answers, 503 "degraded" otherwise.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Storage:   h.storageName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			logger.Warn("health check failed", zap.Error(err), zap.String("storage", h.storageName))
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	httputils.RespondJSON(w, status, resp)
}

// Metrics returns Prometheus metrics
func (h *HealthHandler) Metrics() http.Handler {
	return promhttp.Handler()
}
