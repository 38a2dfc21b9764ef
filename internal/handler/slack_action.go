// Slack 인터랙션(버튼) 핸들러
//
// 분류 결과 메시지의 Silence/Actionable 버튼이 눌리면 Slack이
// application/x-www-form-urlencoded의 payload 필드로 JSON을 보낸다.
// 버튼 액션은 피드백 이벤트로 기록된다.

package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ops-triage/backend/internal/model"
	"github.com/ops-triage/backend/internal/service"
)

const slackSignatureMaxAge = 5 * time.Minute

// slackInteractionPayload - Slack 인터랙션 페이로드 (필요한 필드만)
type slackInteractionPayload struct {
	CallbackID string `json:"callback_id"`
	User       struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"user"`
	Actions []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"actions"`
}

// SlackActionHandler - Slack 버튼 액션 핸들러
type SlackActionHandler struct {
	svc           feedbackService
	signingSecret string
}

func NewSlackActionHandler(svc feedbackService, signingSecret string) *SlackActionHandler {
	return &SlackActionHandler{svc: svc, signingSecret: signingSecret}
}

// Interact - POST /webhook/slack/actions
func (h *SlackActionHandler) Interact(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if err := h.verifySignature(c, body); err != nil {
		log.Printf("slack signature verification failed: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	values, err := parseFormBody(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form body"})
		return
	}

	var payload slackInteractionPayload
	if err := json.Unmarshal([]byte(values["payload"]), &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if payload.CallbackID != "alert_verdict" || len(payload.Actions) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported interaction"})
		return
	}

	action := payload.Actions[0]
	var label string
	switch action.Name {
	case "silence":
		label = model.LabelNoisy
	case "confirm":
		label = model.LabelActionable
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported action"})
		return
	}

	actor := payload.User.Name
	if actor == "" {
		actor = payload.User.ID
	}

	if _, err := h.svc.Record(c.Request.Context(), action.Value, label, model.FeedbackSourceSlack, actor, ""); err != nil {
		if errors.Is(err, service.ErrUnknownAlert) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	// Slack은 200 응답의 text로 원래 메시지를 대체
	verb := "marked actionable"
	if label == model.LabelNoisy {
		verb = "silenced"
	}
	c.JSON(http.StatusOK, gin.H{
		"response_type":    "in_channel",
		"replace_original": false,
		"text":             fmt.Sprintf("Alert %s %s by %s", action.Value, verb, actor),
	})
}

// Slack 서명 검증 (v0=HMAC-SHA256("v0:{timestamp}:{body}"))
// signing secret 미설정이면 검증을 건너뜀.
func (h *SlackActionHandler) verifySignature(c *gin.Context, body []byte) error {
	if h.signingSecret == "" {
		return nil
	}

	tsHeader := c.GetHeader("X-Slack-Request-Timestamp")
	ts, err := strconv.ParseInt(tsHeader, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp header")
	}
	if math.Abs(time.Since(time.Unix(ts, 0)).Seconds()) > slackSignatureMaxAge.Seconds() {
		return fmt.Errorf("stale request timestamp")
	}

	mac := hmac.New(sha256.New, []byte(h.signingSecret))
	fmt.Fprintf(mac, "v0:%s:%s", tsHeader, body)
	expected := "v0=" + hex.EncodeToString(mac.Sum(nil))

	given := c.GetHeader("X-Slack-Signature")
	if !hmac.Equal([]byte(expected), []byte(given)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

func parseFormBody(body []byte) (map[string]string, error) {
	parsed, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, err
	}
	if parsed.Get("payload") == "" {
		return nil, fmt.Errorf("missing payload field")
	}
	values := make(map[string]string, len(parsed))
	for key := range parsed {
		values[key] = parsed.Get(key)
	}
	return values, nil
}
