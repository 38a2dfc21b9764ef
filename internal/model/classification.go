package model

import "time"

// 분류 결과가 만들어진 경로
const (
	ReasonColdStart = "cold_start"
	ReasonConsensus = "consensus"
	ReasonHeuristic = "heuristic"
	ReasonFailOpen  = "fail_open"
)

// SimilarAlert - Similarity Retriever가 반환하는 이웃 알림 참조
//
// EffectiveLabel은 해당 알림의 최신 피드백 라벨 (없으면 분류 당시 라벨).
type SimilarAlert struct {
	AlertID        string    `json:"alert_id"`
	Title          string    `json:"title"`
	EffectiveLabel string    `json:"effective_label"`
	Similarity     float64   `json:"similarity"`
	FiredAt        time.Time `json:"fired_at"`
}

// ClassificationFeatures - 휴리스틱 분기에서 사용한 피처 값
// 결과와 함께 저장되어 분류 근거를 추적 가능하게 함
type ClassificationFeatures struct {
	MonitorNoisyRate  float64 `json:"monitor_noisy_rate"`
	MonitorMutedNoisy bool    `json:"monitor_muted_noisy"`
	SeverityWeight    float64 `json:"severity_weight"`
	RecoveryIndicator bool    `json:"recovery_indicator"`
	NeighborLabelAvg  float64 `json:"neighbor_label_avg"`
	ActionableScore   float64 `json:"actionable_score"`
}

// ClassificationResult - 한 번의 분류 패스의 불변 출력
//
// 생성 후 수정되지 않음. 재분류 시 새 레코드가 current가 되고
// 이전 레코드는 감사용으로 유지됨.
type ClassificationResult struct {
	ResultID      int64                  `json:"result_id"`
	AlertID       string                 `json:"alert_id"`
	Label         string                 `json:"label"`
	Confidence    float64                `json:"confidence"`
	Reason        string                 `json:"reason"`
	SimilarAlerts []SimilarAlert         `json:"similar_alerts"`
	Features      ClassificationFeatures `json:"features"`
	IsCurrent     bool                   `json:"is_current"`
	CreatedAt     time.Time              `json:"created_at"`
}
