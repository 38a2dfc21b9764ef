// 분류 리포트 집계 서비스 관련 함수 정의

package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ops-triage/backend/internal/config"
	"github.com/ops-triage/backend/internal/model"
)

// ReportStore - 리포트 집계가 사용하는 저장소 인터페이스
type ReportStore interface {
	CountEffectiveLabels(ctx context.Context, start, end time.Time) (total, actionable, noisy int64, err error)
	CountOverrides(ctx context.Context, start, end time.Time) (int64, error)
	CountSilenced(ctx context.Context, start, end time.Time) (int64, error)
	TopNoisyMonitors(ctx context.Context, start, end time.Time, topN int) ([]model.MonitorVolume, error)
}

// ReportService - 기간별 분류 품질 리포트 집계
type ReportService struct {
	store ReportStore
	cfg   config.ReportConfig
}

func NewReportService(store ReportStore, cfg config.ReportConfig) *ReportService {
	return &ReportService{store: store, cfg: cfg}
}

// BuildReport - [start, end) 구간 스냅샷 리포트 생성
//
// 각 집계 쿼리는 병렬 실행. 유효 라벨 기준 집계이므로
// 리포트 생성 시점까지 반영된 피드백이 포함된다.
func (s *ReportService) BuildReport(ctx context.Context, start, end time.Time, topN int) (*model.ClassificationReport, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("invalid report window: start=%s end=%s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	if topN <= 0 {
		topN = s.cfg.TopN
	}

	report := &model.ClassificationReport{
		WindowStart: start,
		WindowEnd:   end,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		total, actionable, noisy, err := s.store.CountEffectiveLabels(gctx, start, end)
		if err != nil {
			return fmt.Errorf("count labels: %w", err)
		}
		report.TotalAlerts = total
		report.ActionableCount = actionable
		report.NoisyCount = noisy
		return nil
	})
	g.Go(func() error {
		overrides, err := s.store.CountOverrides(gctx, start, end)
		if err != nil {
			return fmt.Errorf("count overrides: %w", err)
		}
		report.OverrideCount = overrides
		return nil
	})
	g.Go(func() error {
		silenced, err := s.store.CountSilenced(gctx, start, end)
		if err != nil {
			return fmt.Errorf("count silenced: %w", err)
		}
		report.SilencedCount = silenced
		return nil
	})
	g.Go(func() error {
		monitors, err := s.store.TopNoisyMonitors(gctx, start, end, topN)
		if err != nil {
			return fmt.Errorf("top noisy monitors: %w", err)
		}
		report.NoisiestMonitors = monitors
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if report.TotalAlerts > 0 {
		report.SilenceRate = float64(report.SilencedCount) / float64(report.TotalAlerts)
	}
	return report, nil
}
