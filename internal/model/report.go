package model

import "time"

// MonitorVolume - 기간 내 알림 볼륨 상위 모니터
type MonitorVolume struct {
	MonitorID  string `json:"monitor_id"`
	Name       string `json:"name"`
	AlertCount int64  `json:"alert_count"`
	NoisyCount int64  `json:"noisy_count"`
}

// ClassificationReport - 분류 품질 요약
//
// effective label 기준으로 집계됨. OverrideCount는 사람이 Classifier의
// 라벨을 뒤집은 횟수로, 분류 오류율의 프록시.
type ClassificationReport struct {
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`

	TotalAlerts     int64 `json:"total_alerts"`
	ActionableCount int64 `json:"actionable_count"`
	NoisyCount      int64 `json:"noisy_count"`
	OverrideCount   int64 `json:"override_count"`
	SilencedCount   int64 `json:"silenced_count"`

	// SilenceRate: noisy로 silence된 알림의 비율
	SilenceRate float64 `json:"silence_rate"`

	NoisiestMonitors []MonitorVolume `json:"noisiest_monitors"`
}

// ClassificationReportResponse - 리포트 조회 응답
type ClassificationReportResponse struct {
	Status string                `json:"status"`
	Data   *ClassificationReport `json:"data"`
}
