package db

import (
	"context"

	"github.com/ops-triage/backend/internal/model"
)

// EnsureFeedbackSchema - feedback_events 테이블 생성 (append-only)
func (db *Postgres) EnsureFeedbackSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS feedback_events (
			event_id BIGSERIAL PRIMARY KEY,
			alert_id TEXT NOT NULL,
			label TEXT NOT NULL CHECK (label IN ('actionable', 'noisy')),
			source TEXT NOT NULL DEFAULT 'api',
			actor TEXT NOT NULL DEFAULT '',
			comment TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS feedback_events_alert_idx ON feedback_events(alert_id, created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// InsertFeedbackEvent - 피드백 이벤트 추가
// 수정/삭제 없음. 최신 이벤트가 effective label을 결정함.
func (db *Postgres) InsertFeedbackEvent(ctx context.Context, event model.FeedbackEvent) (int64, error) {
	query := `
		INSERT INTO feedback_events (alert_id, label, source, actor, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING event_id
	`
	var eventID int64
	err := db.Pool.QueryRow(ctx, query,
		event.AlertID, event.Label, event.Source, event.Actor, event.Comment,
	).Scan(&eventID)
	return eventID, err
}

// GetFeedbackHistory - 알림의 피드백 이력 (최신순)
func (db *Postgres) GetFeedbackHistory(ctx context.Context, alertID string) ([]model.FeedbackEvent, error) {
	query := `
		SELECT event_id, alert_id, label, source, actor, comment, created_at
		FROM feedback_events
		WHERE alert_id = $1
		ORDER BY created_at DESC, event_id DESC
	`
	rows, err := db.Pool.Query(ctx, query, alertID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]model.FeedbackEvent, 0)
	for rows.Next() {
		var e model.FeedbackEvent
		if err := rows.Scan(
			&e.EventID, &e.AlertID, &e.Label, &e.Source, &e.Actor, &e.Comment, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
