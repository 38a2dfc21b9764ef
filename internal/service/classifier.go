// 알림 분류 서비스 관련 함수 정의

package service

import (
	"math"
	"strings"

	"github.com/ops-triage/backend/internal/config"
	"github.com/ops-triage/backend/internal/model"
)

// ClassifierService - 알림 actionable/noisy 분류 서비스
//
// 동일한 입력 (알림, 이웃 목록, monitor 통계)에 대해 항상 동일한 결과를 반환하는
// 결정적 분류기. 외부 호출 없이 순수 계산만 수행한다.
type ClassifierService struct {
	cfg config.ClassifierConfig
}

func NewClassifierService(cfg config.ClassifierConfig) *ClassifierService {
	// 가중치 합을 1로 정규화. 합이 1이 아니면 0.5 판정 기준이 틀어진다.
	total := cfg.WeightMonitor + cfg.WeightSeverity + cfg.WeightRecovery + cfg.WeightNeighbors
	if total <= 0 {
		cfg.WeightMonitor, cfg.WeightSeverity, cfg.WeightRecovery, cfg.WeightNeighbors = 0.35, 0.2, 0.15, 0.3
		total = 1.0
	}
	cfg.WeightMonitor /= total
	cfg.WeightSeverity /= total
	cfg.WeightRecovery /= total
	cfg.WeightNeighbors /= total
	return &ClassifierService{cfg: cfg}
}

// Classify - 분류 결과 산출
//
// 판정 순서:
//  1. 이웃 없음 (cold start) → actionable, 낮은 confidence
//  2. 이웃 라벨 합의 비율 >= ConsensusFraction 이고 최고 유사도 >= HighSimilarity
//     → 합의 라벨, confidence = 합의비율 x 최고유사도
//  3. 그 외 → 가중 휴리스틱 점수 (0.5 기준 판정)
func (s *ClassifierService) Classify(alert model.Alert, neighbors []model.SimilarAlert, stats model.MonitorStats) model.ClassificationResult {
	features := model.ClassificationFeatures{
		MonitorNoisyRate:  stats.NoisyRate,
		MonitorMutedNoisy: stats.IsNoisy,
		SeverityWeight:    severityWeight(alert.Severity),
		RecoveryIndicator: isRecoveryLike(alert),
	}

	// 1. cold start: 판단 근거 없음 → 안전하게 actionable
	if len(neighbors) == 0 {
		features.NeighborLabelAvg = 0.5
		features.ActionableScore = 0.5
		return model.ClassificationResult{
			AlertID:       alert.AlertID,
			Label:         model.LabelActionable,
			Confidence:    s.cfg.ColdStartConfidence,
			Reason:        model.ReasonColdStart,
			SimilarAlerts: neighbors,
			Features:      features,
			IsCurrent:     true,
		}
	}

	features.NeighborLabelAvg = neighborLabelAvg(neighbors)

	// 2. 이웃 합의 판정
	consensusLabel, fraction := neighborConsensus(neighbors)
	topSimilarity := neighbors[0].Similarity
	for _, n := range neighbors[1:] {
		if n.Similarity > topSimilarity {
			topSimilarity = n.Similarity
		}
	}
	if fraction >= s.cfg.ConsensusFraction && topSimilarity >= s.cfg.HighSimilarity {
		confidence := clamp01(fraction * topSimilarity)
		features.ActionableScore = features.NeighborLabelAvg
		return model.ClassificationResult{
			AlertID:       alert.AlertID,
			Label:         consensusLabel,
			Confidence:    confidence,
			Reason:        model.ReasonConsensus,
			SimilarAlerts: neighbors,
			Features:      features,
			IsCurrent:     true,
		}
	}

	// 3. 가중 휴리스틱 점수
	monitorTerm := 1.0 - stats.NoisyRate
	if stats.IsNoisy {
		// 운영자가 noisy로 지정한 monitor는 가장 강한 신호
		monitorTerm = 0.0
	}
	recoveryTerm := 1.0
	if features.RecoveryIndicator {
		recoveryTerm = 0.0
	}

	score := s.cfg.WeightMonitor*monitorTerm +
		s.cfg.WeightSeverity*features.SeverityWeight +
		s.cfg.WeightRecovery*recoveryTerm +
		s.cfg.WeightNeighbors*features.NeighborLabelAvg
	features.ActionableScore = score

	label := model.LabelNoisy
	if score >= 0.5 {
		label = model.LabelActionable
	}

	return model.ClassificationResult{
		AlertID:       alert.AlertID,
		Label:         label,
		Confidence:    clamp01(2 * math.Abs(score-0.5)),
		Reason:        model.ReasonHeuristic,
		SimilarAlerts: neighbors,
		Features:      features,
		IsCurrent:     true,
	}
}

// FailOpenResult - 분류 불가 시 actionable로 fail-open한 결과 생성
func (s *ClassifierService) FailOpenResult(alert model.Alert) model.ClassificationResult {
	return model.ClassificationResult{
		AlertID:    alert.AlertID,
		Label:      model.LabelActionable,
		Confidence: 0,
		Reason:     model.ReasonFailOpen,
		Features: model.ClassificationFeatures{
			SeverityWeight:    severityWeight(alert.Severity),
			RecoveryIndicator: isRecoveryLike(alert),
		},
		IsCurrent: true,
	}
}

// 이웃들의 라벨이 얼마나 한쪽으로 모였는지 (다수 라벨, 비율)
func neighborConsensus(neighbors []model.SimilarAlert) (string, float64) {
	actionable := 0
	for _, n := range neighbors {
		if n.EffectiveLabel == model.LabelActionable {
			actionable++
		}
	}
	noisy := len(neighbors) - actionable
	if actionable >= noisy {
		return model.LabelActionable, float64(actionable) / float64(len(neighbors))
	}
	return model.LabelNoisy, float64(noisy) / float64(len(neighbors))
}

// 유사도 가중 이웃 라벨 평균 (actionable=1, noisy=0)
func neighborLabelAvg(neighbors []model.SimilarAlert) float64 {
	var weightSum, labelSum float64
	for _, n := range neighbors {
		w := n.Similarity
		if w <= 0 {
			w = 1e-6
		}
		weightSum += w
		if n.EffectiveLabel == model.LabelActionable {
			labelSum += w
		}
	}
	if weightSum == 0 {
		return 0.5
	}
	return labelSum / weightSum
}

func severityWeight(severity string) float64 {
	switch strings.ToLower(severity) {
	case "critical":
		return 1.0
	case "high":
		return 0.85
	case "warning", "medium":
		return 0.6
	case "low":
		return 0.35
	case "info":
		return 0.2
	default:
		return 0.5
	}
}

// 복구성 이벤트 여부 (필드 + 제목 텍스트 기반)
func isRecoveryLike(alert model.Alert) bool {
	if alert.Recovery {
		return true
	}
	title := strings.ToLower(alert.Title)
	return strings.Contains(title, "recovered") || strings.Contains(title, "resolved")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
