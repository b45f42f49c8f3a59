package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/chucklechain/server/internal/logger"
	"github.com/chucklechain/server/pkg/types"
	"github.com/gin-gonic/gin"
)

// Pinger reports whether the durable store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store Pinger
}

func NewHealthHandler(st Pinger) *HealthHandler {
	return &HealthHandler{store: st}
}

func (h *HealthHandler) Root(c *gin.Context) {
	c.String(http.StatusOK, "ChuckleChain API is running")
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		logger.Warnf("Health check: store unreachable: %v", err)
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{Error: "store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
