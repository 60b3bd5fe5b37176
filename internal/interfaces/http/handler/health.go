package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
)

// Pinger checks that the ledger backend answers
type Pinger func(ctx context.Context) error

// HealthHandler serves liveness and readiness checks
type HealthHandler struct {
	BaseHandler
	backend   string
	ping      Pinger
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler. ping may be nil for backends
// without a remote dependency.
func NewHealthHandler(backend string, ping Pinger) *HealthHandler {
	return &HealthHandler{
		backend:   backend,
		ping:      ping,
		startTime: time.Now(),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Backend   string `json:"backend"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

func (h *HealthHandler) response(status string) HealthResponse {
	return HealthResponse{
		Status:    status,
		Backend:   h.backend,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
}

// Live handles GET /health. It never touches the backend.
func (h *HealthHandler) Live(c *gin.Context) {
	h.Success(c, h.response("ok"))
}

// Ready handles GET /ready, answering 503 while the backend is unreachable
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			_ = c.Error(err)
			h.Error(c, http.StatusServiceUnavailable, shared.CodeRepositoryUnavailable, "Ledger storage is unavailable")
			return
		}
	}
	h.Success(c, h.response("ready"))
}
