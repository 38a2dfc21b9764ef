package db

import (
	"context"
	"time"

	"github.com/ops-triage/backend/internal/model"
)

// 리포트 집계 쿼리 모음
//
// 모든 쿼리는 [start, end) 윈도우로 바운드된 스냅샷 읽기.
// 진행 중인 ingestion을 막지 않음.

// CountEffectiveLabels - effective label 기준 actionable/noisy 카운트
func (db *Postgres) CountEffectiveLabels(ctx context.Context, start, end time.Time) (total, actionable, noisy int64, err error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE COALESCE(f.label, c.label, '') = 'actionable'),
			COUNT(*) FILTER (WHERE COALESCE(f.label, c.label, '') = 'noisy')
		FROM alerts a
		LEFT JOIN LATERAL (
			SELECT label FROM feedback_events
			WHERE alert_id = a.alert_id AND created_at < $2
			ORDER BY created_at DESC, event_id DESC
			LIMIT 1
		) f ON TRUE
		LEFT JOIN LATERAL (
			SELECT label FROM classification_results
			WHERE alert_id = a.alert_id AND is_current
			ORDER BY created_at DESC
			LIMIT 1
		) c ON TRUE
		WHERE a.fired_at >= $1 AND a.fired_at < $2
	`
	err = db.Pool.QueryRow(ctx, query, start, end).Scan(&total, &actionable, &noisy)
	return total, actionable, noisy, err
}

// CountOverrides - 사람이 Classifier의 라벨을 뒤집은 알림 수
// 분류 오류율의 프록시로 사용됨.
func (db *Postgres) CountOverrides(ctx context.Context, start, end time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM alerts a
		JOIN LATERAL (
			SELECT label FROM feedback_events
			WHERE alert_id = a.alert_id AND created_at < $2
			ORDER BY created_at DESC, event_id DESC
			LIMIT 1
		) f ON TRUE
		JOIN LATERAL (
			SELECT label FROM classification_results
			WHERE alert_id = a.alert_id AND is_current
			ORDER BY created_at DESC
			LIMIT 1
		) c ON TRUE
		WHERE a.fired_at >= $1 AND a.fired_at < $2 AND f.label != c.label
	`
	var count int64
	err := db.Pool.QueryRow(ctx, query, start, end).Scan(&count)
	return count, err
}

// CountSilenced - silence 처리된 알림 수
func (db *Postgres) CountSilenced(ctx context.Context, start, end time.Time) (int64, error) {
	query := `
		SELECT COUNT(*) FROM alerts
		WHERE fired_at >= $1 AND fired_at < $2 AND status = $3
	`
	var count int64
	err := db.Pool.QueryRow(ctx, query, start, end, model.StatusSilenced).Scan(&count)
	return count, err
}

// TopNoisyMonitors - 볼륨 기준 상위 noisy 모니터
func (db *Postgres) TopNoisyMonitors(ctx context.Context, start, end time.Time, topN int) ([]model.MonitorVolume, error) {
	if topN <= 0 {
		topN = 5
	}
	query := `
		SELECT
			a.monitor_id,
			COALESCE(MAX(m.name), '') AS name,
			COUNT(*) AS alert_count,
			COUNT(*) FILTER (WHERE COALESCE(f.label, c.label, '') = 'noisy') AS noisy_count
		FROM alerts a
		LEFT JOIN monitors m
			ON m.provider = a.provider AND m.provider_monitor_id = a.monitor_id
		LEFT JOIN LATERAL (
			SELECT label FROM feedback_events
			WHERE alert_id = a.alert_id AND created_at < $2
			ORDER BY created_at DESC, event_id DESC
			LIMIT 1
		) f ON TRUE
		LEFT JOIN LATERAL (
			SELECT label FROM classification_results
			WHERE alert_id = a.alert_id AND is_current
			ORDER BY created_at DESC
			LIMIT 1
		) c ON TRUE
		WHERE a.fired_at >= $1 AND a.fired_at < $2 AND a.monitor_id != ''
		GROUP BY a.monitor_id
		HAVING COUNT(*) FILTER (WHERE COALESCE(f.label, c.label, '') = 'noisy') > 0
		ORDER BY noisy_count DESC, alert_count DESC
		LIMIT $3
	`
	rows, err := db.Pool.Query(ctx, query, start, end, topN)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	volumes := make([]model.MonitorVolume, 0, topN)
	for rows.Next() {
		var v model.MonitorVolume
		if err := rows.Scan(&v.MonitorID, &v.Name, &v.AlertCount, &v.NoisyCount); err != nil {
			return nil, err
		}
		volumes = append(volumes, v)
	}
	return volumes, rows.Err()
}
