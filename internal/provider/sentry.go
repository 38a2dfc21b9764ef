// Sentry issue alert 웹훅 페이로드 정규화

package provider

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ops-triage/backend/internal/model"
)

// SentryPayload - Sentry issue alert 웹훅 페이로드
type SentryPayload struct {
	Action string `json:"action"`
	Data   struct {
		Issue struct {
			ID       string `json:"id"`
			Title    string `json:"title"`
			Culprit  string `json:"culprit"`
			Level    string `json:"level"`
			Project  struct {
				ID   int64  `json:"id"`
				Slug string `json:"slug"`
			} `json:"project"`
			FirstSeen time.Time `json:"firstSeen"`
			LastSeen  time.Time `json:"lastSeen"`
		} `json:"issue"`
	} `json:"data"`
}

type SentryNormalizer struct{}

func (n *SentryNormalizer) Name() string { return "sentry" }

func (n *SentryNormalizer) Normalize(raw []byte) ([]model.Alert, error) {
	var payload SentryPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	issue := payload.Data.Issue
	if issue.ID == "" {
		return nil, fmt.Errorf("%w: missing issue id", ErrMalformedPayload)
	}
	if issue.Title == "" {
		return nil, fmt.Errorf("%w: missing issue title", ErrMalformedPayload)
	}

	firedAt := issue.FirstSeen
	if firedAt.IsZero() {
		firedAt = time.Now().UTC()
	}
	updatedAt := issue.LastSeen
	if updatedAt.IsZero() {
		updatedAt = firedAt
	}

	tags := map[string]string{}
	if issue.Project.Slug != "" {
		tags["project"] = issue.Project.Slug
	}
	if issue.Culprit != "" {
		tags["culprit"] = issue.Culprit
	}

	alert := model.Alert{
		Provider:        n.Name(),
		ProviderEventID: issue.ID,
		MonitorID:       issue.Project.Slug,
		Title:           issue.Title,
		Message:         issue.Culprit,
		Severity:        sentrySeverity(issue.Level),
		Tags:            tags,
		Status:          model.StatusReceived,
		Recovery:        payload.Action == "resolved",
		FiredAt:         firedAt,
		LastUpdatedAt:   updatedAt,
	}
	return []model.Alert{alert}, nil
}

func sentrySeverity(level string) string {
	switch level {
	case "fatal":
		return "critical"
	case "error":
		return "high"
	case "warning":
		return "warning"
	case "info", "debug":
		return "low"
	}
	return orDefault(level)
}
