package model

import "time"

type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type PingResponse struct {
	Message string `json:"message"`
}

// IngestResponse - 웹훅 수신 응답
// duplicate면 기존 alert_id를 그대로 돌려줌 (멱등 ack)
type IngestResponse struct {
	Status  string `json:"status"`
	AlertID string `json:"alert_id,omitempty"`
}

// AlertListItem - 알림 목록 항목
type AlertListItem struct {
	AlertID        string    `json:"alert_id"`
	Provider       string    `json:"provider"`
	MonitorID      string    `json:"monitor_id"`
	Title          string    `json:"title"`
	Severity       string    `json:"severity"`
	Status         string    `json:"status"`
	EffectiveLabel string    `json:"effective_label"`
	Confidence     float64   `json:"confidence"`
	FiredAt        time.Time `json:"fired_at"`
}

// AlertListResponse - 알림 목록 응답
type AlertListResponse struct {
	Status string          `json:"status"`
	Data   []AlertListItem `json:"data"`
}

// AlertDetail - 단건 상세: 분류 이력과 피드백 이력 포함
type AlertDetail struct {
	Alert           Alert                  `json:"alert"`
	EffectiveLabel  string                 `json:"effective_label"`
	Current         *ClassificationResult  `json:"current_classification"`
	Classifications []ClassificationResult `json:"classification_history"`
	Feedback        []FeedbackEvent        `json:"feedback_history"`
}

// AlertDetailResponse - 단건 상세 응답
type AlertDetailResponse struct {
	Status string       `json:"status"`
	Data   *AlertDetail `json:"data"`
}
