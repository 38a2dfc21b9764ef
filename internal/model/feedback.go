package model

import "time"

// 피드백 출처
const (
	FeedbackSourceAPI   = "api"
	FeedbackSourceSlack = "slack"
)

// FeedbackEvent - 사람이 내린 정정 (silence / reclassify)
//
// Append-only. 알림의 effective label은 가장 최근 이벤트의 라벨이며,
// Classifier의 원래 ClassificationResult는 덮어쓰지 않음.
type FeedbackEvent struct {
	EventID   int64     `json:"event_id"`
	AlertID   string    `json:"alert_id"`
	Label     string    `json:"label"`
	Source    string    `json:"source"`
	Actor     string    `json:"actor"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedbackRequest - 피드백 등록 요청
type FeedbackRequest struct {
	Label   string `json:"label" binding:"required"`
	Comment string `json:"comment"`
}

// FeedbackResponse - 피드백 등록 응답
type FeedbackResponse struct {
	Status         string `json:"status"`
	EventID        int64  `json:"event_id"`
	EffectiveLabel string `json:"effective_label"`
}
