package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/ops-triage/backend/internal/model"
)

type fakeFeedbackStore struct {
	alert          *model.Alert
	effectiveLabel string

	events         []model.FeedbackEvent
	embeddingLabel string
	statusUpdates  map[string]string
}

func newFakeFeedbackStore(alert *model.Alert) *fakeFeedbackStore {
	return &fakeFeedbackStore{alert: alert, statusUpdates: map[string]string{}}
}

func (f *fakeFeedbackStore) GetAlert(ctx context.Context, alertID string) (*model.Alert, error) {
	if f.alert == nil || f.alert.AlertID != alertID {
		return nil, pgx.ErrNoRows
	}
	return f.alert, nil
}

func (f *fakeFeedbackStore) InsertFeedbackEvent(ctx context.Context, event model.FeedbackEvent) (int64, error) {
	f.events = append(f.events, event)
	return int64(len(f.events)), nil
}

func (f *fakeFeedbackStore) GetEffectiveLabel(ctx context.Context, alertID string) (string, error) {
	return f.effectiveLabel, nil
}

func (f *fakeFeedbackStore) UpdateEmbeddingLabel(ctx context.Context, alertID, label string) error {
	f.embeddingLabel = label
	return nil
}

func (f *fakeFeedbackStore) UpdateAlertStatus(ctx context.Context, alertID, status string) error {
	f.statusUpdates[alertID] = status
	return nil
}

func TestRecordFeedbackNoisy(t *testing.T) {
	alert := testAlert("warning")
	alert.Status = model.StatusNotified
	store := newFakeFeedbackStore(&alert)
	svc := NewFeedbackService(store, nil)

	event, err := svc.Record(context.Background(), alert.AlertID, model.LabelNoisy, model.FeedbackSourceAPI, "oncall", "flaky check")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.EventID == 0 {
		t.Fatalf("expected assigned event id")
	}
	if store.embeddingLabel != model.LabelNoisy {
		t.Fatalf("feedback must update the embedding label, got %q", store.embeddingLabel)
	}
	if store.statusUpdates[alert.AlertID] != model.StatusSilenced {
		t.Fatalf("noisy feedback must silence the alert, got %s", store.statusUpdates[alert.AlertID])
	}
}

func TestRecordFeedbackActionable(t *testing.T) {
	alert := testAlert("warning")
	alert.Status = model.StatusSilenced
	store := newFakeFeedbackStore(&alert)
	svc := NewFeedbackService(store, nil)

	_, err := svc.Record(context.Background(), alert.AlertID, model.LabelActionable, model.FeedbackSourceSlack, "oncall", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.statusUpdates[alert.AlertID] != model.StatusAcknowledged {
		t.Fatalf("actionable feedback must acknowledge, got %s", store.statusUpdates[alert.AlertID])
	}
}

func TestRecordFeedbackAppendsEvents(t *testing.T) {
	alert := testAlert("warning")
	store := newFakeFeedbackStore(&alert)
	svc := NewFeedbackService(store, nil)

	if _, err := svc.Record(context.Background(), alert.AlertID, model.LabelNoisy, model.FeedbackSourceAPI, "a", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Record(context.Background(), alert.AlertID, model.LabelActionable, model.FeedbackSourceAPI, "b", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 정정의 정정도 덮어쓰지 않고 추가
	if len(store.events) != 2 {
		t.Fatalf("expected 2 appended events, got %d", len(store.events))
	}
	if store.embeddingLabel != model.LabelActionable {
		t.Fatalf("index must carry the latest label, got %q", store.embeddingLabel)
	}
}

func TestRecordFeedbackUnknownAlert(t *testing.T) {
	svc := NewFeedbackService(newFakeFeedbackStore(nil), nil)

	_, err := svc.Record(context.Background(), "missing", model.LabelNoisy, model.FeedbackSourceAPI, "oncall", "")
	if !errors.Is(err, ErrUnknownAlert) {
		t.Fatalf("expected ErrUnknownAlert, got %v", err)
	}
}

func TestRecordFeedbackInvalidLabel(t *testing.T) {
	alert := testAlert("warning")
	svc := NewFeedbackService(newFakeFeedbackStore(&alert), nil)

	_, err := svc.Record(context.Background(), alert.AlertID, "maybe", model.FeedbackSourceAPI, "oncall", "")
	if !errors.Is(err, ErrInvalidLabel) {
		t.Fatalf("expected ErrInvalidLabel, got %v", err)
	}
}
