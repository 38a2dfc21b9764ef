// 정규화된 Alert 및 라이프사이클 상태 정의
// provider, db, service, handler 레이어에서 공통으로 사용하기 때문에 model 레이어에 별도로 정의

package model

import (
	"fmt"
	"time"
)

// Alert 라이프사이클 상태
// received → classified → notified → {acknowledged | silenced | resolved}
const (
	StatusReceived     = "received"
	StatusClassified   = "classified"
	StatusNotified     = "notified"
	StatusAcknowledged = "acknowledged"
	StatusSilenced     = "silenced"
	StatusResolved     = "resolved"
)

// 분류 라벨
const (
	LabelActionable = "actionable"
	LabelNoisy      = "noisy"
)

// ValidLabel - 분류/피드백 라벨 검증
func ValidLabel(label string) bool {
	return label == LabelActionable || label == LabelNoisy
}

// Alert - 정규화된 단일 알림
//
// Provider별 페이로드는 provider 레이어에서 이 구조체로 변환됨.
// (Provider, ProviderEventID)가 중복 판별의 기준 식별자.
type Alert struct {
	AlertID         string `json:"alert_id"`
	Provider        string `json:"provider"`
	ProviderEventID string `json:"provider_event_id"`

	// MonitorID: provider 쪽 모니터/체크 식별자
	// Similarity 검색의 1차 스코프 및 noisy rate 집계 단위
	MonitorID string `json:"monitor_id"`

	Title    string            `json:"title"`
	Message  string            `json:"message"`
	Severity string            `json:"severity"`
	Tags     map[string]string `json:"tags"`

	Status string `json:"status"`

	// Recovery: provider가 보낸 해제(recovered/resolved) 이벤트 여부
	// true면 새 분류를 만들지 않고 기존 알림을 resolved 처리
	Recovery bool `json:"recovery,omitempty"`

	// PriorAlertID: 같은 모니터의 직전 알림 (recurrence 체인)
	PriorAlertID string `json:"prior_alert_id,omitempty"`

	FiredAt       time.Time  `json:"fired_at"`
	LastUpdatedAt time.Time  `json:"last_updated_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

// EmbeddingText - 임베딩 대상 텍스트 (title + message)
func (a Alert) EmbeddingText() string {
	if a.Message == "" {
		return a.Title
	}
	return a.Title + "\n" + a.Message
}

// DedupKey - 중복 판별용 멱등 키
//
// provider + provider-native id + fired 시각 버킷으로 구성.
// 같은 버킷 안에서 재전송된 웹훅은 동일 키를 가지며 no-op 처리됨.
func DedupKey(provider, providerEventID string, firedAt time.Time, window time.Duration) string {
	if window <= 0 {
		window = time.Minute
	}
	bucket := firedAt.UTC().Truncate(window).Unix()
	return fmt.Sprintf("%s:%s:%d", provider, providerEventID, bucket)
}
