package api

import (
	"context"
	"net/http"
	"time"

	"github.com/iammorganparry/clive/apps/semcache/internal/memory"
	"github.com/iammorganparry/clive/apps/semcache/internal/models"
)

const healthTimeout = 2 * time.Second

type HealthHandler struct {
	svc *memory.Service
}

func NewHealthHandler(svc *memory.Service) *HealthHandler {
	return &HealthHandler{svc: svc}
}

// Health handles GET /health. A failing persistence backend degrades the
// service but the cache itself keeps serving.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := models.HealthResponse{
		Status:      "ok",
		Persistence: h.svc.PersistenceStatus(ctx),
		EntryCount:  h.svc.Len(),
	}
	if resp.Persistence.Status == "error" {
		resp.Status = "degraded"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
