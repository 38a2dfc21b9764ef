package template

import (
	"testing"
	"time"

	"github.com/ops-triage/backend/internal/model"
)

func TestRenderBody(t *testing.T) {
	alert := AlertDataFromModel(model.Alert{
		AlertID:   "a-1",
		Provider:  "datadog",
		MonitorID: "m-1",
		Title:     "High CPU",
		Severity:  "critical",
		Status:    "classified",
		FiredAt:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	})
	verdict := VerdictDataFromResult(model.ClassificationResult{
		Label:         "noisy",
		Confidence:    0.85,
		Reason:        "consensus",
		SimilarAlerts: []model.SimilarAlert{{AlertID: "n-1"}, {AlertID: "n-2"}},
	})

	body := `{"title": "{{alert.title}}", "label": "{{verdict.label}}", "confidence": {{verdict.confidence}}, "similar": {{verdict.similar_count}}}`
	rendered := RenderBody(body, &alert, &verdict)

	want := `{"title": "High CPU", "label": "noisy", "confidence": 0.85, "similar": 2}`
	if rendered != want {
		t.Fatalf("unexpected render:\n got %s\nwant %s", rendered, want)
	}
}

func TestRenderBodyNilVerdict(t *testing.T) {
	alert := AlertData{ID: "a-1", Title: "High CPU"}
	rendered := RenderBody(`{{alert.id}}/{{verdict.label}}`, &alert, nil)
	if rendered != "a-1/" {
		t.Fatalf("nil verdict must render empty, got %s", rendered)
	}
}

func TestRenderBodyUnknownVariableLeftAsIs(t *testing.T) {
	rendered := RenderBody(`{{alert.unknown}}`, nil, nil)
	if rendered != `{{alert.unknown}}` {
		t.Fatalf("unknown variables must pass through, got %s", rendered)
	}
}
