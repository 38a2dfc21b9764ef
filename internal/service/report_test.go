package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ops-triage/backend/internal/config"
	"github.com/ops-triage/backend/internal/model"
)

type fakeReportStore struct {
	total, actionable, noisy int64
	overrides                int64
	silenced                 int64
	monitors                 []model.MonitorVolume
	err                      error

	gotTopN int
}

func (f *fakeReportStore) CountEffectiveLabels(ctx context.Context, start, end time.Time) (int64, int64, int64, error) {
	return f.total, f.actionable, f.noisy, f.err
}

func (f *fakeReportStore) CountOverrides(ctx context.Context, start, end time.Time) (int64, error) {
	return f.overrides, f.err
}

func (f *fakeReportStore) CountSilenced(ctx context.Context, start, end time.Time) (int64, error) {
	return f.silenced, f.err
}

func (f *fakeReportStore) TopNoisyMonitors(ctx context.Context, start, end time.Time, topN int) ([]model.MonitorVolume, error) {
	f.gotTopN = topN
	return f.monitors, f.err
}

func TestBuildReport(t *testing.T) {
	store := &fakeReportStore{
		total:      100,
		actionable: 60,
		noisy:      40,
		overrides:  5,
		silenced:   25,
		monitors:   []model.MonitorVolume{{MonitorID: "m-1", AlertCount: 30, NoisyCount: 20}},
	}
	svc := NewReportService(store, config.ReportConfig{TopN: 5})

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(7 * 24 * time.Hour)
	report, err := svc.BuildReport(context.Background(), start, end, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TotalAlerts != 100 || report.ActionableCount != 60 || report.NoisyCount != 40 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if report.OverrideCount != 5 || report.SilencedCount != 25 {
		t.Fatalf("unexpected override/silence counts: %+v", report)
	}
	if report.SilenceRate != 0.25 {
		t.Fatalf("expected silence rate 0.25, got %f", report.SilenceRate)
	}
	if store.gotTopN != 5 {
		t.Fatalf("topN must fall back to config default, got %d", store.gotTopN)
	}
	if len(report.NoisiestMonitors) != 1 {
		t.Fatalf("expected 1 noisy monitor, got %d", len(report.NoisiestMonitors))
	}
}

func TestBuildReportEmptyWindow(t *testing.T) {
	svc := NewReportService(&fakeReportStore{}, config.ReportConfig{TopN: 5})

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	report, err := svc.BuildReport(context.Background(), start, start.Add(time.Hour), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.SilenceRate != 0 {
		t.Fatalf("empty window must report zero silence rate, got %f", report.SilenceRate)
	}
}

func TestBuildReportInvalidWindow(t *testing.T) {
	svc := NewReportService(&fakeReportStore{}, config.ReportConfig{TopN: 5})

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.BuildReport(context.Background(), start, start, 3); err == nil {
		t.Fatalf("expected error for empty window")
	}
}

func TestBuildReportQueryFailure(t *testing.T) {
	store := &fakeReportStore{err: errors.New("db down")}
	svc := NewReportService(store, config.ReportConfig{TopN: 5})

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.BuildReport(context.Background(), start, start.Add(time.Hour), 3); err == nil {
		t.Fatalf("expected error when a count query fails")
	}
}
