package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ops-triage/backend/internal/model"
)

type fakeReportService struct {
	gotStart time.Time
	gotEnd   time.Time
	gotTopN  int
}

func (f *fakeReportService) BuildReport(ctx context.Context, start, end time.Time, topN int) (*model.ClassificationReport, error) {
	f.gotStart = start
	f.gotEnd = end
	f.gotTopN = topN
	return &model.ClassificationReport{WindowStart: start, WindowEnd: end, TotalAlerts: 10}, nil
}

func newReportRouter(svc reportService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/v1/reports/classification", NewReportHandler(svc).Classification)
	return r
}

func TestReportWindowParsing(t *testing.T) {
	svc := &fakeReportService{}
	r := newReportRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/reports/classification?start=2026-08-01T00:00:00Z&end=2026-08-08T00:00:00Z&top_n=3", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if svc.gotTopN != 3 {
		t.Fatalf("expected top_n 3, got %d", svc.gotTopN)
	}
	if !svc.gotStart.Equal(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start: %s", svc.gotStart)
	}
}

func TestReportDefaultWindow(t *testing.T) {
	svc := &fakeReportService{}
	r := newReportRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/classification", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if window := svc.gotEnd.Sub(svc.gotStart); window != 7*24*time.Hour {
		t.Fatalf("default window must be 7 days, got %s", window)
	}
}

func TestReportInvalidWindow(t *testing.T) {
	r := newReportRouter(&fakeReportService{})

	for _, query := range []string{
		"?start=not-a-time",
		"?end=not-a-time",
		"?start=2026-08-08T00:00:00Z&end=2026-08-01T00:00:00Z",
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/classification"+query, nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", query, w.Code)
		}
	}
}
