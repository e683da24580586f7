package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const readinessTimeout = 2 * time.Second

type HealthHandler struct {
	ping    func(ctx context.Context) error
	version string
	started time.Time
	log     *zap.Logger
}

func NewHealthHandler(ping func(ctx context.Context) error, version string, log *zap.Logger) *HealthHandler {
	return &HealthHandler{ping: ping, version: version, started: time.Now(), log: log}
}

type healthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	Uptime   string `json:"uptime,omitempty"`
	Database string `json:"database,omitempty"`
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status:  "ok",
		Version: h.version,
		Uptime:  time.Since(h.started).Round(time.Second).String(),
	})
}

func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{Status: "alive"})
}

// Ready reports 503 until the database answers a ping.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	if err := h.ping(ctx); err != nil {
		h.log.Warn("readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "not ready", Database: "unreachable"})
		return
	}
	c.JSON(http.StatusOK, healthResponse{Status: "ready", Database: "ok"})
}
