// 모니터링 provider 웹훅 수신 핸들러
//
// 요청 흐름:
//  1. provider가 POST /webhook/{provider}로 알림 전송
//  2. 페이로드 정규화 + 중복 판정까지만 동기 수행
//  3. 분류 파이프라인은 비동기로 진행되고 즉시 ack

package handler

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ops-triage/backend/internal/provider"
	"github.com/ops-triage/backend/internal/service"
)

// ingestService - 수신 서비스 인터페이스
type ingestService interface {
	Accept(ctx context.Context, providerName string, raw []byte) ([]service.AcceptResult, error)
}

// IngestHandler - 알림 수신 핸들러
type IngestHandler struct {
	svc ingestService
}

func NewIngestHandler(svc ingestService) *IngestHandler {
	return &IngestHandler{svc: svc}
}

// Webhook godoc
// @Summary Receive a provider alert webhook
// @Description Accepts raw webhook payloads from datadog, alertmanager or sentry. Duplicate deliveries are acked idempotently.
// @Tags ingest
// @Accept json
// @Produce json
// @Param provider path string true "Provider name" Enums(datadog, alertmanager, sentry)
// @Success 200 {object} model.IngestResponse "duplicate or resolved"
// @Success 202 {object} model.IngestResponse "accepted for classification"
// @Failure 400 {object} model.ErrorResponse
// @Router /webhook/{provider} [post]
func (h *IngestHandler) Webhook(c *gin.Context) {
	providerName := c.Param("provider")

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	results, err := h.svc.Accept(c.Request.Context(), providerName, raw)
	if err != nil {
		if errors.Is(err, provider.ErrMalformedPayload) {
			log.Printf("malformed webhook payload provider=%s error=%v", providerName, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Printf("webhook accept failed provider=%s error=%v", providerName, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	accepted := make([]string, 0, len(results))
	duplicates := 0
	resolved := 0
	for _, r := range results {
		switch {
		case r.Duplicate:
			duplicates++
		case r.Resolved:
			resolved++
		case r.AlertID != "":
			accepted = append(accepted, r.AlertID)
		}
	}

	log.Printf("webhook received provider=%s accepted=%d duplicates=%d resolved=%d",
		providerName, len(accepted), duplicates, resolved)

	// 새로 수신된 알림이 없으면 멱등 ack
	if len(accepted) == 0 {
		status := "duplicate"
		if resolved > 0 {
			status = "resolved"
		}
		body := gin.H{"status": status, "duplicates": duplicates, "resolved": resolved}
		if len(results) == 1 && results[0].AlertID != "" {
			body["alert_id"] = results[0].AlertID
		}
		c.JSON(http.StatusOK, body)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":     "accepted",
		"alert_ids":  accepted,
		"duplicates": duplicates,
		"resolved":   resolved,
	})
}
