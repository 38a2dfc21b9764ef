// 운영자 피드백 핸들러

package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ops-triage/backend/internal/model"
	"github.com/ops-triage/backend/internal/service"
)

// feedbackService - 피드백 서비스 인터페이스
type feedbackService interface {
	Record(ctx context.Context, alertID, label, source, actor, comment string) (*model.FeedbackEvent, error)
	EffectiveLabel(ctx context.Context, alertID string) (string, error)
}

// FeedbackHandler - 피드백 등록 핸들러
type FeedbackHandler struct {
	svc feedbackService
}

func NewFeedbackHandler(svc feedbackService) *FeedbackHandler {
	return &FeedbackHandler{svc: svc}
}

// Record godoc
// @Summary Record operator feedback on an alert
// @Description Appends a correction event. The latest feedback label becomes the alert's effective label.
// @Tags feedback
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert ID"
// @Param request body model.FeedbackRequest true "Feedback label"
// @Success 200 {object} model.FeedbackResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/alerts/{id}/feedback [post]
func (h *FeedbackHandler) Record(c *gin.Context) {
	alertID := c.Param("id")

	var req model.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	actor := "api"
	if user := GetAuthUser(c); user != nil {
		actor = user.LoginID
	}

	event, err := h.svc.Record(c.Request.Context(), alertID, req.Label, model.FeedbackSourceAPI, actor, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidLabel):
			c.JSON(http.StatusBadRequest, gin.H{"error": "label must be actionable or noisy"})
		case errors.Is(err, service.ErrUnknownAlert):
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		}
		return
	}

	label, _ := h.svc.EffectiveLabel(c.Request.Context(), alertID)
	c.JSON(http.StatusOK, model.FeedbackResponse{
		Status:         "success",
		EventID:        event.EventID,
		EffectiveLabel: label,
	})
}
