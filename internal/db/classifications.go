package db

import (
	"context"
	"encoding/json"

	"github.com/ops-triage/backend/internal/model"
)

// EnsureClassificationSchema - classification_results 테이블 생성
//
// 결과는 불변이며 재분류 시 이전 레코드의 is_current만 내려가고 행은 유지됨 (감사 추적).
func (db *Postgres) EnsureClassificationSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS classification_results (
			result_id BIGSERIAL PRIMARY KEY,
			alert_id TEXT NOT NULL,
			label TEXT NOT NULL CHECK (label IN ('actionable', 'noisy')),
			confidence DOUBLE PRECISION NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			similar_alerts JSONB NOT NULL DEFAULT '[]',
			features JSONB NOT NULL DEFAULT '{}',
			is_current BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS classification_results_alert_idx ON classification_results(alert_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS classification_results_current_idx ON classification_results(alert_id) WHERE is_current`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// InsertClassificationResult - 분류 결과 저장
//
// 같은 알림의 기존 current를 내리고 새 결과를 current로 올림 (트랜잭션).
func (db *Postgres) InsertClassificationResult(ctx context.Context, result model.ClassificationResult) (int64, error) {
	similarJSON, err := json.Marshal(result.SimilarAlerts)
	if err != nil {
		return 0, err
	}
	featuresJSON, err := json.Marshal(result.Features)
	if err != nil {
		return 0, err
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE classification_results SET is_current = FALSE WHERE alert_id = $1 AND is_current`,
		result.AlertID,
	); err != nil {
		return 0, err
	}

	var resultID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO classification_results (alert_id, label, confidence, reason, similar_alerts, features, is_current)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING result_id
	`, result.AlertID, result.Label, result.Confidence, result.Reason, similarJSON, featuresJSON).Scan(&resultID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return resultID, nil
}

// GetClassificationHistory - 알림의 분류 이력 (최신순)
func (db *Postgres) GetClassificationHistory(ctx context.Context, alertID string) ([]model.ClassificationResult, error) {
	query := `
		SELECT result_id, alert_id, label, confidence, reason, similar_alerts, features, is_current, created_at
		FROM classification_results
		WHERE alert_id = $1
		ORDER BY created_at DESC, result_id DESC
	`
	rows, err := db.Pool.Query(ctx, query, alertID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]model.ClassificationResult, 0)
	for rows.Next() {
		var r model.ClassificationResult
		var similarJSON, featuresJSON []byte
		if err := rows.Scan(
			&r.ResultID, &r.AlertID, &r.Label, &r.Confidence, &r.Reason,
			&similarJSON, &featuresJSON, &r.IsCurrent, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(similarJSON, &r.SimilarAlerts); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(featuresJSON, &r.Features); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
