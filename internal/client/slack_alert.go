// Slack 분류 결과 메시지 관련 메서드 정의

package client

import (
	"fmt"
	"strings"
	"time"

	"github.com/ops-triage/backend/internal/model"
)

// SendVerdict - 분류 결과를 Slack으로 전송
//
//   - noisy 판정: 회색 저강조 메시지 (여전히 전송됨, 억제는 사람이 결정)
//   - actionable 판정: severity 색상 + Silence 버튼 포함
//
// Silence 버튼은 인터랙션 엔드포인트를 통해 Feedback Recorder로 이어짐.
func (c *SlackClient) SendVerdict(alert model.Alert, result model.ClassificationResult) error {
	if !c.IsConfigured() {
		return fmt.Errorf("slack bot token or channel ID not configured")
	}

	title := fmt.Sprintf("%s [%s] %s",
		c.getEmojiByLabel(result.Label),
		alert.Severity,
		alert.Title,
	)

	fields := []SlackField{
		{Title: "Provider", Value: alert.Provider, Short: true},
		{Title: "Monitor", Value: alert.MonitorID, Short: true},
		{Title: "Verdict", Value: result.Label, Short: true},
		{Title: "Confidence", Value: fmt.Sprintf("%.0f%%", result.Confidence*100), Short: true},
		{Title: "Fired", Value: alert.FiredAt.Format(time.RFC3339), Short: true},
	}

	if similar := formatSimilarAlerts(result.SimilarAlerts); similar != "" {
		fields = append(fields, SlackField{Title: "Similar alerts", Value: similar, Short: false})
	}

	msg := SlackMessage{
		Channel: c.channelID,
		Attachments: []SlackAttachment{
			{
				Color:      c.getColorByVerdict(result.Label, alert.Severity),
				Title:      title,
				Text:       alert.Message,
				Fields:     fields,
				Footer:     "ops-triage",
				Ts:         time.Now().Unix(),
				CallbackID: "alert_verdict",
				Actions: []SlackAction{
					{
						Name:  "silence",
						Text:  "🔕 Silence",
						Type:  "button",
						Value: alert.AlertID,
						Style: "danger",
					},
					{
						Name:  "confirm",
						Text:  "✅ Actionable",
						Type:  "button",
						Value: alert.AlertID,
					},
				},
			},
		},
	}

	resp, err := c.send(msg)
	if err != nil {
		return err
	}

	if resp.TS != "" {
		c.StoreThreadTS(alert.AlertID, resp.TS)
	}
	return nil
}

// SendResolved - 복구 이벤트를 원래 알림 쓰레드에 전송
func (c *SlackClient) SendResolved(alertID string, resolvedAt time.Time) error {
	threadTS, ok := c.GetThreadTS(alertID)
	if !ok {
		return nil
	}
	err := c.SendToThread(threadTS, fmt.Sprintf("✅ Resolved at %s", resolvedAt.Format(time.RFC3339)))
	c.DeleteThreadTS(alertID)
	return err
}

// SendFeedbackAck - 피드백 반영 결과를 원래 쓰레드에 전송
func (c *SlackClient) SendFeedbackAck(alertID, label, actor string) error {
	threadTS, ok := c.GetThreadTS(alertID)
	if !ok {
		return nil
	}
	emoji := "✅"
	if label == model.LabelNoisy {
		emoji = "🔕"
	}
	return c.SendToThread(threadTS, fmt.Sprintf("%s Marked %s by %s", emoji, label, actor))
}

// 유사 알림 목록을 한 줄씩 포맷
func formatSimilarAlerts(similar []model.SimilarAlert) string {
	if len(similar) == 0 {
		return ""
	}
	lines := make([]string, 0, len(similar))
	for _, s := range similar {
		lines = append(lines, fmt.Sprintf("• %s (%s, %.0f%% similar)", s.Title, s.EffectiveLabel, s.Similarity*100))
	}
	return strings.Join(lines, "\n")
}

// 판정/severity에 따른 적절한 메시지 색상 반환
func (c *SlackClient) getColorByVerdict(label, severity string) string {
	if label == model.LabelNoisy {
		return "#d3d3d3" // gray
	}
	switch severity {
	case "critical":
		return "#dc3545" // red
	case "high", "warning":
		return "#ffc107" // yellow
	default:
		return "#17a2b8" // blue
	}
}

// 판정에 따른 적절한 메시지 이모지 반환
func (c *SlackClient) getEmojiByLabel(label string) string {
	if label == model.LabelNoisy {
		return "🔕"
	}
	return "🔥"
}
