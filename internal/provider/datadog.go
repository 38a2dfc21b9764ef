// Datadog 웹훅 페이로드 정규화
//
// Datadog 웹훅 통합의 $VARIABLE 치환 결과를 받음:
//   alert_id=$ALERT_ID, event_id=$ID, title=$EVENT_TITLE, ...
// alert_transition이 "Recovered"면 복구 이벤트로 처리됨.

package provider

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ops-triage/backend/internal/model"
)

// DatadogPayload - Datadog 웹훅 페이로드
type DatadogPayload struct {
	AlertID         string `json:"alert_id"`
	EventID         string `json:"event_id"`
	Title           string `json:"title"`
	EventMessage    string `json:"event_message"`
	AlertTransition string `json:"alert_transition"`
	AlertQuery      string `json:"alert_query"`
	AlertType       string `json:"alert_type"`
	Priority        string `json:"priority"`
	AlertPriority   string `json:"alert_priority"`

	// Tags: "env:prod,service:api" 형태의 콤마 구분 목록
	Tags string `json:"tags"`

	// Date / LastUpdated: epoch millis 문자열
	Date        string `json:"date"`
	LastUpdated string `json:"last_updated"`
}

type DatadogNormalizer struct{}

func (n *DatadogNormalizer) Name() string { return "datadog" }

func (n *DatadogNormalizer) Normalize(raw []byte) ([]model.Alert, error) {
	var payload DatadogPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	eventID := payload.EventID
	if eventID == "" {
		eventID = payload.AlertID
	}
	if eventID == "" {
		return nil, fmt.Errorf("%w: missing event_id/alert_id", ErrMalformedPayload)
	}
	if payload.Title == "" {
		return nil, fmt.Errorf("%w: missing title", ErrMalformedPayload)
	}

	firedAt := parseEpochMillis(payload.Date, time.Now().UTC())
	updatedAt := parseEpochMillis(payload.LastUpdated, firedAt)

	alert := model.Alert{
		Provider:        n.Name(),
		ProviderEventID: eventID,
		MonitorID:       payload.AlertID,
		Title:           payload.Title,
		Message:         payload.EventMessage,
		Severity:        datadogSeverity(payload),
		Tags:            parseDatadogTags(payload.Tags),
		Status:          model.StatusReceived,
		Recovery:        strings.EqualFold(payload.AlertTransition, "Recovered"),
		FiredAt:         firedAt,
		LastUpdatedAt:   updatedAt,
	}
	return []model.Alert{alert}, nil
}

// datadogSeverity - alert_priority(P1~P5) 우선, 없으면 priority 문자열 사용
func datadogSeverity(payload DatadogPayload) string {
	switch strings.ToUpper(strings.TrimSpace(payload.AlertPriority)) {
	case "P1":
		return "critical"
	case "P2":
		return "high"
	case "P3":
		return "warning"
	case "P4", "P5":
		return "low"
	}
	return orDefault(payload.Priority)
}

func parseDatadogTags(tags string) map[string]string {
	parsed := map[string]string{}
	for _, pair := range strings.Split(tags, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, found := strings.Cut(pair, ":")
		if !found {
			parsed[pair] = ""
			continue
		}
		parsed[key] = value
	}
	return parsed
}

func parseEpochMillis(value string, fallback time.Time) time.Time {
	millis, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || millis <= 0 {
		return fallback
	}
	return time.UnixMilli(millis).UTC()
}
