package service

import (
	"math"
	"testing"
	"time"

	"github.com/ops-triage/backend/internal/config"
	"github.com/ops-triage/backend/internal/model"
)

func testClassifierConfig() config.ClassifierConfig {
	return config.ClassifierConfig{
		TopK:                  5,
		ConsensusFraction:     0.8,
		HighSimilarity:        0.75,
		AutoSilenceConfidence: 0.7,
		ColdStartConfidence:   0.3,
		WeightMonitor:         0.35,
		WeightSeverity:        0.2,
		WeightRecovery:        0.15,
		WeightNeighbors:       0.3,
		StatsWindow:           7 * 24 * time.Hour,
	}
}

func testAlert(severity string) model.Alert {
	return model.Alert{
		AlertID:  "a-1",
		Provider: "datadog",
		MonitorID: "m-1",
		Title:    "High CPU on web-01",
		Message:  "CPU above 90% for 10 minutes",
		Severity: severity,
		FiredAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func neighborsWithLabels(labels []string, similarity float64) []model.SimilarAlert {
	out := make([]model.SimilarAlert, 0, len(labels))
	for i, l := range labels {
		out = append(out, model.SimilarAlert{
			AlertID:        "n-" + string(rune('a'+i)),
			Title:          "High CPU on web-01",
			EffectiveLabel: l,
			Similarity:     similarity,
		})
	}
	return out
}

func TestClassifyColdStart(t *testing.T) {
	svc := NewClassifierService(testClassifierConfig())
	result := svc.Classify(testAlert("critical"), nil, model.MonitorStats{})

	if result.Label != model.LabelActionable {
		t.Fatalf("cold start must be actionable, got %s", result.Label)
	}
	if result.Reason != model.ReasonColdStart {
		t.Fatalf("expected reason %s, got %s", model.ReasonColdStart, result.Reason)
	}
	if result.Confidence != 0.3 {
		t.Fatalf("expected cold start confidence 0.3, got %f", result.Confidence)
	}
}

func TestClassifyConsensusNoisy(t *testing.T) {
	svc := NewClassifierService(testClassifierConfig())
	neighbors := neighborsWithLabels([]string{"noisy", "noisy", "noisy", "noisy", "actionable"}, 0.9)

	result := svc.Classify(testAlert("warning"), neighbors, model.MonitorStats{})

	if result.Label != model.LabelNoisy {
		t.Fatalf("expected noisy, got %s", result.Label)
	}
	if result.Reason != model.ReasonConsensus {
		t.Fatalf("expected reason %s, got %s", model.ReasonConsensus, result.Reason)
	}
	// confidence = 합의비율(0.8) x 최고유사도(0.9)
	want := 0.8 * 0.9
	if diff := result.Confidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected confidence %f, got %f", want, result.Confidence)
	}
}

func TestClassifyConsensusConfidenceScalesWithSimilarity(t *testing.T) {
	svc := NewClassifierService(testClassifierConfig())
	low := svc.Classify(testAlert("warning"), neighborsWithLabels([]string{"noisy", "noisy", "noisy", "noisy", "noisy"}, 0.8), model.MonitorStats{})
	high := svc.Classify(testAlert("warning"), neighborsWithLabels([]string{"noisy", "noisy", "noisy", "noisy", "noisy"}, 0.95), model.MonitorStats{})

	if high.Confidence <= low.Confidence {
		t.Fatalf("higher similarity must not lower confidence: %f vs %f", high.Confidence, low.Confidence)
	}
}

func TestClassifyLowSimilarityFallsBackToHeuristic(t *testing.T) {
	svc := NewClassifierService(testClassifierConfig())
	// 합의는 만장일치지만 최고 유사도가 임계값 미만
	neighbors := neighborsWithLabels([]string{"noisy", "noisy", "noisy", "noisy", "noisy"}, 0.5)

	result := svc.Classify(testAlert("critical"), neighbors, model.MonitorStats{})

	if result.Reason != model.ReasonHeuristic {
		t.Fatalf("expected reason %s, got %s", model.ReasonHeuristic, result.Reason)
	}
}

func TestClassifyMutedMonitorPushesNoisy(t *testing.T) {
	svc := NewClassifierService(testClassifierConfig())
	neighbors := neighborsWithLabels([]string{"noisy", "noisy", "actionable"}, 0.5)
	stats := model.MonitorStats{MonitorID: "m-1", IsNoisy: true, NoisyRate: 0.9}

	result := svc.Classify(testAlert("low"), neighbors, stats)

	if result.Label != model.LabelNoisy {
		t.Fatalf("muted monitor with low severity should be noisy, got %s (score=%f)", result.Label, result.Features.ActionableScore)
	}
	if !result.Features.MonitorMutedNoisy {
		t.Fatalf("expected muted monitor flag in features")
	}
}

func TestClassifyHealthyMonitorCriticalIsActionable(t *testing.T) {
	svc := NewClassifierService(testClassifierConfig())
	neighbors := neighborsWithLabels([]string{"actionable", "actionable", "noisy"}, 0.6)
	stats := model.MonitorStats{MonitorID: "m-1", NoisyRate: 0.1}

	result := svc.Classify(testAlert("critical"), neighbors, stats)

	if result.Label != model.LabelActionable {
		t.Fatalf("expected actionable, got %s (score=%f)", result.Label, result.Features.ActionableScore)
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		t.Fatalf("confidence out of range: %f", result.Confidence)
	}
}

func TestClassifyRecoveryLowersScore(t *testing.T) {
	svc := NewClassifierService(testClassifierConfig())
	neighbors := neighborsWithLabels([]string{"actionable", "noisy"}, 0.5)
	stats := model.MonitorStats{NoisyRate: 0.5}

	normal := svc.Classify(testAlert("warning"), neighbors, stats)

	recovered := testAlert("warning")
	recovered.Title = "[Recovered] High CPU on web-01"
	after := svc.Classify(recovered, neighbors, stats)

	if after.Features.ActionableScore >= normal.Features.ActionableScore {
		t.Fatalf("recovery indicator must lower score: %f vs %f", after.Features.ActionableScore, normal.Features.ActionableScore)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	svc := NewClassifierService(testClassifierConfig())
	alert := testAlert("warning")
	neighbors := neighborsWithLabels([]string{"noisy", "actionable", "noisy"}, 0.66)
	stats := model.MonitorStats{NoisyRate: 0.4}

	first := svc.Classify(alert, neighbors, stats)
	second := svc.Classify(alert, neighbors, stats)

	if first.Label != second.Label || first.Confidence != second.Confidence || first.Reason != second.Reason {
		t.Fatalf("classification must be deterministic: %+v vs %+v", first, second)
	}
}

func TestFailOpenResult(t *testing.T) {
	svc := NewClassifierService(testClassifierConfig())
	result := svc.FailOpenResult(testAlert("high"))

	if result.Label != model.LabelActionable {
		t.Fatalf("fail-open must be actionable, got %s", result.Label)
	}
	if result.Reason != model.ReasonFailOpen {
		t.Fatalf("expected reason %s, got %s", model.ReasonFailOpen, result.Reason)
	}
	if result.Confidence != 0 {
		t.Fatalf("fail-open confidence must be 0, got %f", result.Confidence)
	}
}

func TestClassifierNormalizesWeights(t *testing.T) {
	alert := testAlert("warning")
	neighbors := neighborsWithLabels([]string{"actionable", "noisy", "noisy"}, 0.5)
	stats := model.MonitorStats{NoisyRate: 0.4}

	base := NewClassifierService(testClassifierConfig()).Classify(alert, neighbors, stats)

	// 합이 1이 아닌 가중치도 같은 판정을 내야 한다
	scaled := testClassifierConfig()
	scaled.WeightMonitor *= 3
	scaled.WeightSeverity *= 3
	scaled.WeightRecovery *= 3
	scaled.WeightNeighbors *= 3
	got := NewClassifierService(scaled).Classify(alert, neighbors, stats)

	if got.Label != base.Label {
		t.Fatalf("scaled weights changed the label: %s vs %s", got.Label, base.Label)
	}
	if math.Abs(got.Features.ActionableScore-base.Features.ActionableScore) > 1e-9 {
		t.Fatalf("scaled weights changed the score: %f vs %f", got.Features.ActionableScore, base.Features.ActionableScore)
	}
	if math.Abs(got.Confidence-base.Confidence) > 1e-9 {
		t.Fatalf("scaled weights changed the confidence: %f vs %f", got.Confidence, base.Confidence)
	}
}
