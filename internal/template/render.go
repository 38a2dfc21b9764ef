// Package template provides webhook body template rendering.
//
// 지원하는 변수 형식:
//
//	{{alert.id}}, {{alert.provider}}, {{alert.monitor}}, {{alert.title}},
//	{{alert.message}}, {{alert.severity}}, {{alert.status}}, {{alert.fired_at}}
//
//	{{verdict.label}}, {{verdict.confidence}}, {{verdict.reason}},
//	{{verdict.similar_count}}
package template

import (
	"strconv"
	"strings"
	"time"

	"github.com/ops-triage/backend/internal/model"
)

// AlertData - 템플릿 렌더링에 사용할 Alert 데이터
type AlertData struct {
	ID       string
	Provider string
	Monitor  string
	Title    string
	Message  string
	Severity string
	Status   string
	FiredAt  time.Time
}

// VerdictData - 템플릿 렌더링에 사용할 분류 결과 데이터
type VerdictData struct {
	Label        string
	Confidence   float64
	Reason       string
	SimilarCount int
}

// AlertDataFromModel - model.Alert에서 AlertData 생성
func AlertDataFromModel(alert model.Alert) AlertData {
	return AlertData{
		ID:       alert.AlertID,
		Provider: alert.Provider,
		Monitor:  alert.MonitorID,
		Title:    alert.Title,
		Message:  alert.Message,
		Severity: alert.Severity,
		Status:   alert.Status,
		FiredAt:  alert.FiredAt,
	}
}

// VerdictDataFromResult - model.ClassificationResult에서 VerdictData 생성
func VerdictDataFromResult(result model.ClassificationResult) VerdictData {
	return VerdictData{
		Label:        result.Label,
		Confidence:   result.Confidence,
		Reason:       result.Reason,
		SimilarCount: len(result.SimilarAlerts),
	}
}

// RenderBody - webhook body 템플릿의 변수를 실제 값으로 치환
//
// alert 또는 verdict 중 하나만 전달해도 동작합니다.
// nil로 전달된 항목의 변수는 빈 문자열로 치환됩니다.
func RenderBody(body string, alert *AlertData, verdict *VerdictData) string {
	pairs := make([]string, 0, 24)

	// --- Alert 변수 ---
	if alert != nil {
		pairs = append(pairs,
			"{{alert.id}}", alert.ID,
			"{{alert.provider}}", alert.Provider,
			"{{alert.monitor}}", alert.Monitor,
			"{{alert.title}}", alert.Title,
			"{{alert.message}}", alert.Message,
			"{{alert.severity}}", alert.Severity,
			"{{alert.status}}", alert.Status,
			"{{alert.fired_at}}", alert.FiredAt.Format(time.RFC3339),
		)
	} else {
		pairs = append(pairs,
			"{{alert.id}}", "",
			"{{alert.provider}}", "",
			"{{alert.monitor}}", "",
			"{{alert.title}}", "",
			"{{alert.message}}", "",
			"{{alert.severity}}", "",
			"{{alert.status}}", "",
			"{{alert.fired_at}}", "",
		)
	}

	// --- Verdict 변수 ---
	if verdict != nil {
		pairs = append(pairs,
			"{{verdict.label}}", verdict.Label,
			"{{verdict.confidence}}", strconv.FormatFloat(verdict.Confidence, 'f', 2, 64),
			"{{verdict.reason}}", verdict.Reason,
			"{{verdict.similar_count}}", strconv.Itoa(verdict.SimilarCount),
		)
	} else {
		pairs = append(pairs,
			"{{verdict.label}}", "",
			"{{verdict.confidence}}", "",
			"{{verdict.reason}}", "",
			"{{verdict.similar_count}}", "",
		)
	}

	return strings.NewReplacer(pairs...).Replace(body)
}
