package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ops-triage/backend/internal/model"
)

func errNoMonitor(provider, providerMonitorID string) error {
	return fmt.Errorf("no monitor found: %s/%s", provider, providerMonitorID)
}

// EnsureMonitorSchema - monitors 테이블 생성
func (db *Postgres) EnsureMonitorSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS monitors (
			id BIGSERIAL PRIMARY KEY,
			provider TEXT NOT NULL,
			provider_monitor_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			query TEXT NOT NULL DEFAULT '',
			is_noisy BOOLEAN NOT NULL DEFAULT FALSE,
			noisy_reason TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(provider, provider_monitor_id)
		)
		`,
		`CREATE INDEX IF NOT EXISTS monitors_noisy_idx ON monitors(is_noisy) WHERE is_noisy`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// GetOrCreateMonitor - 처음 보는 모니터면 생성, 있으면 기존 레코드 반환
func (db *Postgres) GetOrCreateMonitor(ctx context.Context, provider, providerMonitorID, name string) (*model.Monitor, error) {
	query := `
		INSERT INTO monitors (provider, provider_monitor_id, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider, provider_monitor_id) DO UPDATE SET updated_at = NOW()
		RETURNING id, provider, provider_monitor_id, name, query, is_noisy, noisy_reason, created_at, updated_at
	`
	var m model.Monitor
	err := db.Pool.QueryRow(ctx, query, provider, providerMonitorID, name).Scan(
		&m.ID, &m.Provider, &m.ProviderMonitorID, &m.Name, &m.Query,
		&m.IsNoisy, &m.NoisyReason, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMonitor - (provider, provider_monitor_id)로 조회
func (db *Postgres) GetMonitor(ctx context.Context, provider, providerMonitorID string) (*model.Monitor, error) {
	query := `
		SELECT id, provider, provider_monitor_id, name, query, is_noisy, noisy_reason, created_at, updated_at
		FROM monitors
		WHERE provider = $1 AND provider_monitor_id = $2
	`
	var m model.Monitor
	err := db.Pool.QueryRow(ctx, query, provider, providerMonitorID).Scan(
		&m.ID, &m.Provider, &m.ProviderMonitorID, &m.Name, &m.Query,
		&m.IsNoisy, &m.NoisyReason, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// MarkMonitorNoisy - 사람이 모니터를 noisy/정상으로 지정
func (db *Postgres) MarkMonitorNoisy(ctx context.Context, provider, providerMonitorID string, isNoisy bool, reason string) error {
	if !isNoisy {
		reason = ""
	}
	query := `
		UPDATE monitors
		SET is_noisy = $3, noisy_reason = $4, updated_at = NOW()
		WHERE provider = $1 AND provider_monitor_id = $2
	`
	tag, err := db.Pool.Exec(ctx, query, provider, providerMonitorID, isNoisy, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errNoMonitor(provider, providerMonitorID)
	}
	return nil
}

// GetMonitorStats - 최근 윈도우의 모니터 통계 (휴리스틱 피처)
//
// noisy rate는 effective label 기준.
func (db *Postgres) GetMonitorStats(ctx context.Context, provider, monitorID string, since time.Time) (model.MonitorStats, error) {
	stats := model.MonitorStats{MonitorID: monitorID}
	if monitorID == "" {
		return stats, nil
	}

	query := `
		SELECT
			COUNT(*) AS alert_count,
			COUNT(*) FILTER (WHERE COALESCE(f.label, c.label, '') = 'noisy') AS noisy_count
		FROM alerts a
		LEFT JOIN LATERAL (
			SELECT label FROM feedback_events
			WHERE alert_id = a.alert_id
			ORDER BY created_at DESC, event_id DESC
			LIMIT 1
		) f ON TRUE
		LEFT JOIN LATERAL (
			SELECT label FROM classification_results
			WHERE alert_id = a.alert_id AND is_current
			ORDER BY created_at DESC
			LIMIT 1
		) c ON TRUE
		WHERE a.provider = $1 AND a.monitor_id = $2 AND a.fired_at >= $3
	`
	if err := db.Pool.QueryRow(ctx, query, provider, monitorID, since).Scan(&stats.AlertCount, &stats.NoisyCount); err != nil {
		return stats, err
	}
	if stats.AlertCount > 0 {
		stats.NoisyRate = float64(stats.NoisyCount) / float64(stats.AlertCount)
	}

	monitor, err := db.GetMonitor(ctx, provider, monitorID)
	if err != nil {
		if IsNoRows(err) {
			return stats, nil
		}
		return stats, err
	}
	stats.IsNoisy = monitor.IsNoisy
	return stats, nil
}
