// 분류 리포트 핸들러

package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ops-triage/backend/internal/model"
)

// reportService - 리포트 서비스 인터페이스
type reportService interface {
	BuildReport(ctx context.Context, start, end time.Time, topN int) (*model.ClassificationReport, error)
}

// ReportHandler - 분류 품질 리포트 핸들러
type ReportHandler struct {
	svc reportService
}

func NewReportHandler(svc reportService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// Classification godoc
// @Summary Get a classification quality report for a time window
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param start query string false "Window start (RFC3339, default end-7d)"
// @Param end query string false "Window end (RFC3339, default now)"
// @Param top_n query int false "Number of noisiest monitors (default 5)"
// @Success 200 {object} model.ClassificationReportResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/reports/classification [get]
func (h *ReportHandler) Classification(c *gin.Context) {
	end := time.Now()
	if raw := c.Query("end"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end time"})
			return
		}
		end = parsed
	}

	start := end.Add(-7 * 24 * time.Hour)
	if raw := c.Query("start"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start time"})
			return
		}
		start = parsed
	}

	if !end.After(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be before end"})
		return
	}

	topN, _ := strconv.Atoi(c.DefaultQuery("top_n", "0"))

	report, err := h.svc.BuildReport(c.Request.Context(), start, end, topN)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.ClassificationReportResponse{Status: "success", Data: report})
}
