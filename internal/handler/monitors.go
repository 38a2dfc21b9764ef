// 모니터 설정 핸들러

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ops-triage/backend/internal/db"
	"github.com/ops-triage/backend/internal/model"
)

// monitorRepo - 모니터 조회/수정용 DB 인터페이스
type monitorRepo interface {
	GetMonitor(ctx context.Context, provider, providerMonitorID string) (*model.Monitor, error)
	MarkMonitorNoisy(ctx context.Context, provider, providerMonitorID string, isNoisy bool, reason string) error
	GetMonitorStats(ctx context.Context, provider, monitorID string, since time.Time) (model.MonitorStats, error)
}

// MonitorHandler - 모니터 noisy 지정/통계 핸들러
type MonitorHandler struct {
	repo        monitorRepo
	statsWindow time.Duration
}

func NewMonitorHandler(repo monitorRepo, statsWindow time.Duration) *MonitorHandler {
	if statsWindow <= 0 {
		statsWindow = 7 * 24 * time.Hour
	}
	return &MonitorHandler{repo: repo, statsWindow: statsWindow}
}

// Get godoc
// @Summary Get monitor with noisy stats
// @Tags monitors
// @Produce json
// @Security BearerAuth
// @Param provider path string true "Provider name"
// @Param id path string true "Provider monitor ID"
// @Success 200 {object} model.Monitor
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/monitors/{provider}/{id} [get]
func (h *MonitorHandler) Get(c *gin.Context) {
	provider := c.Param("provider")
	monitorID := c.Param("id")

	monitor, err := h.repo.GetMonitor(c.Request.Context(), provider, monitorID)
	if err != nil {
		if db.IsNoRows(err) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "monitor not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}

	stats, err := h.repo.GetMonitorStats(c.Request.Context(), provider, monitorID, time.Now().Add(-h.statsWindow))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"monitor": monitor, "stats": stats}})
}

// MarkNoisy godoc
// @Summary Mark or unmark a monitor as noisy
// @Description A human noisy flag is the strongest signal for the heuristic classifier.
// @Tags monitors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param provider path string true "Provider name"
// @Param id path string true "Provider monitor ID"
// @Param request body model.MarkMonitorNoisyRequest true "Noisy flag"
// @Success 200 {object} model.StatusResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/monitors/{provider}/{id}/noisy [put]
func (h *MonitorHandler) MarkNoisy(c *gin.Context) {
	provider := c.Param("provider")
	monitorID := c.Param("id")

	var req model.MarkMonitorNoisyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.repo.MarkMonitorNoisy(c.Request.Context(), provider, monitorID, req.IsNoisy, req.Reason); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.StatusResponse{Status: "success"})
}
