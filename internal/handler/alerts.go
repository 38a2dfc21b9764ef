// 알림 조회 핸들러 (대시보드 읽기 API)

package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ops-triage/backend/internal/db"
	"github.com/ops-triage/backend/internal/model"
)

// alertReader - 알림 조회용 DB 인터페이스
type alertReader interface {
	GetAlertList(ctx context.Context, since time.Time, limit int32) ([]model.AlertListItem, error)
	GetAlert(ctx context.Context, alertID string) (*model.Alert, error)
	GetEffectiveLabel(ctx context.Context, alertID string) (string, error)
	GetClassificationHistory(ctx context.Context, alertID string) ([]model.ClassificationResult, error)
	GetFeedbackHistory(ctx context.Context, alertID string) ([]model.FeedbackEvent, error)
}

// AlertQueryHandler - 알림 목록/상세 조회 핸들러
type AlertQueryHandler struct {
	repo alertReader
}

func NewAlertQueryHandler(repo alertReader) *AlertQueryHandler {
	return &AlertQueryHandler{repo: repo}
}

// List godoc
// @Summary List recent alerts
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Param hours query int false "Lookback window in hours (default 24)"
// @Param limit query int false "Max rows (default 100)"
// @Success 200 {object} model.AlertListResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/alerts [get]
func (h *AlertQueryHandler) List(c *gin.Context) {
	hours, err := strconv.Atoi(c.DefaultQuery("hours", "24"))
	if err != nil || hours <= 0 {
		hours = 24
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	list, err := h.repo.GetAlertList(c.Request.Context(), since, int32(limit))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.AlertListResponse{Status: "success", Data: list})
}

// Detail godoc
// @Summary Get alert detail with classification and feedback history
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert ID"
// @Success 200 {object} model.AlertDetailResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/alerts/{id} [get]
func (h *AlertQueryHandler) Detail(c *gin.Context) {
	alertID := c.Param("id")
	ctx := c.Request.Context()

	alert, err := h.repo.GetAlert(ctx, alertID)
	if err != nil {
		if db.IsNoRows(err) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}

	detail := model.AlertDetail{Alert: *alert}

	if label, err := h.repo.GetEffectiveLabel(ctx, alertID); err == nil {
		detail.EffectiveLabel = label
	}

	history, err := h.repo.GetClassificationHistory(ctx, alertID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	detail.Classifications = history
	for i := range history {
		if history[i].IsCurrent {
			detail.Current = &history[i]
			break
		}
	}

	feedback, err := h.repo.GetFeedbackHistory(ctx, alertID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	detail.Feedback = feedback

	c.JSON(http.StatusOK, model.AlertDetailResponse{Status: "success", Data: &detail})
}
