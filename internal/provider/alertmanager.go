// Prometheus Alertmanager 웹훅 페이로드 정규화
//
// 여러 개의 알림이 그룹으로 묶여서 전송되므로 알림 단위로 분해해서 반환.
// Fingerprint가 provider-native id 역할을 함.

package provider

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ops-triage/backend/internal/model"
)

// AlertmanagerWebhook - Alertmanager 웹훅 봉투
type AlertmanagerWebhook struct {
	Version           string              `json:"version"`
	GroupKey          string              `json:"groupKey"`
	Status            string              `json:"status"`
	Receiver          string              `json:"receiver"`
	GroupLabels       map[string]string   `json:"groupLabels"`
	CommonLabels      map[string]string   `json:"commonLabels"`
	CommonAnnotations map[string]string   `json:"commonAnnotations"`
	ExternalURL       string              `json:"externalURL"`
	Alerts            []AlertmanagerAlert `json:"alerts"`
}

// AlertmanagerAlert - 그룹 내 개별 알림
type AlertmanagerAlert struct {
	Status      string            `json:"status"`
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`

	// StartsAt: 알림 발생 시각 (UTC)
	// EndsAt: resolved 상태일 때만 유효, firing이면 zero time
	StartsAt time.Time `json:"startsAt"`
	EndsAt   time.Time `json:"endsAt"`

	GeneratorURL string `json:"generatorURL"`

	// Fingerprint: Labels 조합으로 생성되는 해시. 알림 고유 식별자.
	Fingerprint string `json:"fingerprint"`
}

type AlertmanagerNormalizer struct{}

func (n *AlertmanagerNormalizer) Name() string { return "alertmanager" }

func (n *AlertmanagerNormalizer) Normalize(raw []byte) ([]model.Alert, error) {
	var webhook AlertmanagerWebhook
	if err := json.Unmarshal(raw, &webhook); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(webhook.Alerts) == 0 {
		return nil, fmt.Errorf("%w: empty alerts", ErrMalformedPayload)
	}

	alerts := make([]model.Alert, 0, len(webhook.Alerts))
	for _, item := range webhook.Alerts {
		alert, err := n.normalizeOne(item)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

func (n *AlertmanagerNormalizer) normalizeOne(item AlertmanagerAlert) (model.Alert, error) {
	if item.Fingerprint == "" {
		return model.Alert{}, fmt.Errorf("%w: missing fingerprint", ErrMalformedPayload)
	}

	title := item.Annotations["summary"]
	if title == "" {
		title = item.Labels["alertname"]
	}
	if title == "" {
		return model.Alert{}, fmt.Errorf("%w: missing summary/alertname", ErrMalformedPayload)
	}

	tags := make(map[string]string, len(item.Labels))
	for key, value := range item.Labels {
		tags[key] = value
	}

	firedAt := item.StartsAt
	if firedAt.IsZero() {
		firedAt = time.Now().UTC()
	}
	updatedAt := firedAt
	recovery := item.Status == "resolved" && !item.EndsAt.IsZero()
	if recovery {
		updatedAt = item.EndsAt
	}

	return model.Alert{
		Provider:        n.Name(),
		ProviderEventID: item.Fingerprint,
		MonitorID:       item.Labels["alertname"],
		Title:           title,
		Message:         item.Annotations["description"],
		Severity:        orDefault(item.Labels["severity"]),
		Tags:            tags,
		Status:          model.StatusReceived,
		Recovery:        recovery,
		FiredAt:         firedAt,
		LastUpdatedAt:   updatedAt,
	}, nil
}
