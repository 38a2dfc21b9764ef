package model

import "time"

// Monitor - provider 쪽 모니터/체크 설정 레코드
//
// Datadog의 Monitor, Alertmanager의 alertname에 해당.
// 처음 보는 모니터의 알림이 들어오면 자동 생성됨.
type Monitor struct {
	ID                int64     `json:"id"`
	Provider          string    `json:"provider"`
	ProviderMonitorID string    `json:"provider_monitor_id"`
	Name              string    `json:"name"`
	Query             string    `json:"query,omitempty"`

	// IsNoisy: 사람이 직접 지정한 noisy 플래그
	// 설정되면 휴리스틱 분류에서 가장 강한 noisy 신호로 사용됨
	IsNoisy     bool   `json:"is_noisy"`
	NoisyReason string `json:"noisy_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MonitorStats - 휴리스틱 피처 계산에 쓰이는 모니터 통계
type MonitorStats struct {
	MonitorID  string  `json:"monitor_id"`
	AlertCount int64   `json:"alert_count"`
	NoisyCount int64   `json:"noisy_count"`
	NoisyRate  float64 `json:"noisy_rate"`
	IsNoisy    bool    `json:"is_noisy"`
}

// MarkMonitorNoisyRequest - 모니터 noisy 지정 요청
type MarkMonitorNoisyRequest struct {
	IsNoisy bool   `json:"is_noisy"`
	Reason  string `json:"reason"`
}
