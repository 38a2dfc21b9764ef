package provider

import (
	"errors"
	"testing"
)

func TestSentryNormalize(t *testing.T) {
	raw := []byte(`{
		"action": "created",
		"data": {
			"issue": {
				"id": "12345",
				"title": "TypeError: cannot read property 'id'",
				"culprit": "app/views/checkout.py",
				"level": "error",
				"project": {"id": 7, "slug": "storefront"},
				"firstSeen": "2026-08-01T12:00:00Z",
				"lastSeen": "2026-08-01T12:05:00Z"
			}
		}
	}`)

	alerts, err := (&SentryNormalizer{}).Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	alert := alerts[0]
	if alert.Provider != "sentry" || alert.ProviderEventID != "12345" {
		t.Fatalf("unexpected identity fields: %+v", alert)
	}
	if alert.MonitorID != "storefront" {
		t.Fatalf("project slug must be the monitor id, got %s", alert.MonitorID)
	}
	if alert.Severity != "high" {
		t.Fatalf("error level must map to high, got %s", alert.Severity)
	}
	if alert.Recovery {
		t.Fatalf("created action must not be a recovery")
	}
	if alert.Tags["culprit"] != "app/views/checkout.py" {
		t.Fatalf("unexpected tags: %v", alert.Tags)
	}
}

func TestSentryNormalizeResolved(t *testing.T) {
	raw := []byte(`{
		"action": "resolved",
		"data": {"issue": {"id": "12345", "title": "TypeError", "level": "fatal"}}
	}`)

	alerts, err := (&SentryNormalizer{}).Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !alerts[0].Recovery {
		t.Fatalf("resolved action must be a recovery")
	}
	if alerts[0].Severity != "critical" {
		t.Fatalf("fatal must map to critical, got %s", alerts[0].Severity)
	}
}

func TestSentryNormalizeMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":      `x`,
		"missing id":    `{"data": {"issue": {"title": "T"}}}`,
		"missing title": `{"data": {"issue": {"id": "1"}}}`,
	}
	for name, raw := range cases {
		if _, err := (&SentryNormalizer{}).Normalize([]byte(raw)); !errors.Is(err, ErrMalformedPayload) {
			t.Fatalf("%s: expected ErrMalformedPayload, got %v", name, err)
		}
	}
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"datadog", "alertmanager", "sentry", " Datadog "} {
		if _, err := Lookup(name); err != nil {
			t.Fatalf("expected %q to be supported: %v", name, err)
		}
	}
	if _, err := Lookup("pagerduty"); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("unsupported provider must return ErrMalformedPayload, got %v", err)
	}
}
