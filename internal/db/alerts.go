package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ops-triage/backend/internal/model"
)

// EnsureAlertSchema - alerts 테이블 생성
//
// dedup_key에 UNIQUE 제약을 걸어 중복 웹훅의 check-and-set을 DB에서 원자적으로 처리.
func (db *Postgres) EnsureAlertSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS alerts (
			alert_id TEXT PRIMARY KEY,
			provider TEXT NOT NULL,
			provider_event_id TEXT NOT NULL,
			monitor_id TEXT NOT NULL DEFAULT '',
			dedup_key TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			severity TEXT NOT NULL DEFAULT 'unknown',
			tags JSONB NOT NULL DEFAULT '{}',
			status TEXT NOT NULL DEFAULT 'received',
			prior_alert_id TEXT,
			fired_at TIMESTAMPTZ NOT NULL,
			last_updated_at TIMESTAMPTZ,
			resolved_at TIMESTAMPTZ,
			duration_seconds BIGINT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS alerts_provider_event_idx ON alerts(provider, provider_event_id)`,
		`CREATE INDEX IF NOT EXISTS alerts_monitor_idx ON alerts(provider, monitor_id)`,
		`CREATE INDEX IF NOT EXISTS alerts_status_idx ON alerts(status)`,
		`CREATE INDEX IF NOT EXISTS alerts_fired_at_idx ON alerts(fired_at DESC)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// InsertAlert - 알림 저장 (멱등 check-and-set)
//
// dedup_key 충돌 시 아무것도 하지 않고 inserted=false를 반환.
// 이 경로가 §5의 중복 웹훅 직렬화 지점이며, 분류 시작 전에 호출되어야 함.
func (db *Postgres) InsertAlert(ctx context.Context, alert model.Alert, dedupKey string) (bool, error) {
	query := `
		INSERT INTO alerts (
			alert_id, provider, provider_event_id, monitor_id, dedup_key,
			title, message, severity, tags, status, prior_alert_id,
			fired_at, last_updated_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12, $13, NOW(), NOW())
		ON CONFLICT (dedup_key) DO NOTHING
	`
	tag, err := db.Pool.Exec(ctx, query,
		alert.AlertID,
		alert.Provider,
		alert.ProviderEventID,
		alert.MonitorID,
		dedupKey,
		alert.Title,
		alert.Message,
		alert.Severity,
		alert.Tags,
		alert.Status,
		alert.PriorAlertID,
		alert.FiredAt,
		alert.LastUpdatedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GetAlertByDedupKey - 멱등 키로 기존 알림 조회 (중복 ack 응답용)
func (db *Postgres) GetAlertByDedupKey(ctx context.Context, dedupKey string) (*model.Alert, error) {
	return db.getAlert(ctx, `WHERE dedup_key = $1`, dedupKey)
}

// GetAlert - alert_id로 단건 조회
func (db *Postgres) GetAlert(ctx context.Context, alertID string) (*model.Alert, error) {
	return db.getAlert(ctx, `WHERE alert_id = $1`, alertID)
}

func (db *Postgres) getAlert(ctx context.Context, where string, arg any) (*model.Alert, error) {
	query := `
		SELECT alert_id, provider, provider_event_id, monitor_id,
			title, message, severity, tags, status,
			COALESCE(prior_alert_id, ''), fired_at, last_updated_at, resolved_at
		FROM alerts ` + where

	var a model.Alert
	err := db.Pool.QueryRow(ctx, query, arg).Scan(
		&a.AlertID,
		&a.Provider,
		&a.ProviderEventID,
		&a.MonitorID,
		&a.Title,
		&a.Message,
		&a.Severity,
		&a.Tags,
		&a.Status,
		&a.PriorAlertID,
		&a.FiredAt,
		&a.LastUpdatedAt,
		&a.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindPriorAlert - 같은 (provider, monitor)의 직전 알림 조회 (recurrence 연결용)
func (db *Postgres) FindPriorAlert(ctx context.Context, provider, monitorID, excludeAlertID string) (string, error) {
	if monitorID == "" {
		return "", nil
	}
	query := `
		SELECT alert_id FROM alerts
		WHERE provider = $1 AND monitor_id = $2 AND alert_id != $3
		ORDER BY fired_at DESC, created_at DESC
		LIMIT 1
	`
	var priorID string
	err := db.Pool.QueryRow(ctx, query, provider, monitorID, excludeAlertID).Scan(&priorID)
	if err != nil {
		if IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return priorID, nil
}

// LinkRecurrence - 직전 알림과의 recurrence 관계 기록
func (db *Postgres) LinkRecurrence(ctx context.Context, alertID, priorAlertID string) error {
	query := `
		UPDATE alerts
		SET prior_alert_id = $2, updated_at = NOW()
		WHERE alert_id = $1
	`
	_, err := db.Pool.Exec(ctx, query, alertID, priorAlertID)
	return err
}

// UpdateAlertStatus - 라이프사이클 상태 전이
func (db *Postgres) UpdateAlertStatus(ctx context.Context, alertID, status string) error {
	query := `
		UPDATE alerts
		SET status = $2, updated_at = NOW()
		WHERE alert_id = $1
	`
	tag, err := db.Pool.Exec(ctx, query, alertID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no alert found with id: %s", alertID)
	}
	return nil
}

// ResolveOpenAlert - 복구 이벤트 수신 시 열린 알림을 resolved 처리
//
// duration_seconds는 fired_at 기준으로 계산해서 함께 기록.
// 열린 알림이 없으면 resolved=false (복구 이벤트가 먼저 도착한 경우 no-op).
func (db *Postgres) ResolveOpenAlert(ctx context.Context, provider, providerEventID string, resolvedAt time.Time) (string, bool, error) {
	query := `
		UPDATE alerts
		SET status = $3,
			resolved_at = $4,
			duration_seconds = GREATEST(EXTRACT(EPOCH FROM ($4::timestamptz - fired_at))::bigint, 0),
			updated_at = NOW()
		WHERE alert_id = (
			SELECT alert_id FROM alerts
			WHERE provider = $1 AND provider_event_id = $2 AND resolved_at IS NULL
			ORDER BY fired_at DESC
			LIMIT 1
		)
		RETURNING alert_id
	`
	var alertID string
	err := db.Pool.QueryRow(ctx, query, provider, providerEventID, model.StatusResolved, resolvedAt).Scan(&alertID)
	if err != nil {
		if IsNoRows(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return alertID, true, nil
}

// GetAlertList - 알림 목록 조회 (effective label 포함, 최신순)
func (db *Postgres) GetAlertList(ctx context.Context, since time.Time, limit int32) ([]model.AlertListItem, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT
			a.alert_id, a.provider, a.monitor_id, a.title, a.severity, a.status,
			COALESCE(f.label, c.label, '') AS effective_label,
			COALESCE(c.confidence, 0) AS confidence,
			a.fired_at
		FROM alerts a
		LEFT JOIN LATERAL (
			SELECT label FROM feedback_events
			WHERE alert_id = a.alert_id
			ORDER BY created_at DESC, event_id DESC
			LIMIT 1
		) f ON TRUE
		LEFT JOIN LATERAL (
			SELECT label, confidence FROM classification_results
			WHERE alert_id = a.alert_id AND is_current
			ORDER BY created_at DESC
			LIMIT 1
		) c ON TRUE
		WHERE a.fired_at >= $1
		ORDER BY a.fired_at DESC
		LIMIT $2
	`
	rows, err := db.Pool.Query(ctx, query, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]model.AlertListItem, 0)
	for rows.Next() {
		var item model.AlertListItem
		if err := rows.Scan(
			&item.AlertID, &item.Provider, &item.MonitorID, &item.Title,
			&item.Severity, &item.Status, &item.EffectiveLabel, &item.Confidence,
			&item.FiredAt,
		); err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	return list, rows.Err()
}

// GetEffectiveLabel - 최신 피드백 라벨, 없으면 현재 분류 라벨
func (db *Postgres) GetEffectiveLabel(ctx context.Context, alertID string) (string, error) {
	query := `
		SELECT COALESCE(
			(SELECT label FROM feedback_events
			 WHERE alert_id = $1
			 ORDER BY created_at DESC, event_id DESC LIMIT 1),
			(SELECT label FROM classification_results
			 WHERE alert_id = $1 AND is_current
			 ORDER BY created_at DESC LIMIT 1),
			''
		)
	`
	var label string
	err := db.Pool.QueryRow(ctx, query, alertID).Scan(&label)
	return label, err
}
