package db

import (
	"context"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/ops-triage/backend/internal/model"
)

// EnsureEmbeddingSchema - alert_embeddings 테이블 생성 (pgvector)
//
// 알림 텍스트당 1개. label 컬럼은 effective label 메타데이터로,
// 피드백이 들어오면 갱신되어 이후 nearest-neighbor 결과에 반영됨.
func (db *Postgres) EnsureEmbeddingSchema(ctx context.Context) error {
	queries := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`
		CREATE TABLE IF NOT EXISTS alert_embeddings (
			id BIGSERIAL PRIMARY KEY,
			alert_id TEXT NOT NULL UNIQUE,
			provider TEXT NOT NULL,
			monitor_id TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			embedding vector(768) NOT NULL,
			model TEXT NOT NULL DEFAULT '',
			label TEXT NOT NULL CHECK (label IN ('actionable', 'noisy')),
			fired_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS alert_embeddings_scope_idx ON alert_embeddings(provider, monitor_id)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// InsertEmbedding - 분류 시점에 임베딩 레코드 생성
func (db *Postgres) InsertEmbedding(ctx context.Context, alert model.Alert, vector []float32, embModel, label string) (int64, error) {
	query := `
		INSERT INTO alert_embeddings (alert_id, provider, monitor_id, content, embedding, model, label, fired_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (alert_id) DO NOTHING
		RETURNING id
	`
	var id int64
	err := db.Pool.QueryRow(ctx, query,
		alert.AlertID,
		alert.Provider,
		alert.MonitorID,
		alert.EmbeddingText(),
		pgvector.NewVector(vector),
		embModel,
		label,
		alert.FiredAt,
	).Scan(&id)
	if err != nil {
		if IsNoRows(err) {
			// 이미 존재 (재분류 경로) - no-op
			return 0, nil
		}
		return 0, err
	}
	return id, nil
}

// UpdateEmbeddingLabel - 피드백 반영
// 이후 similarity 검색이 정정된 라벨을 돌려주게 하는 학습 경로.
func (db *Postgres) UpdateEmbeddingLabel(ctx context.Context, alertID, label string) error {
	query := `UPDATE alert_embeddings SET label = $2 WHERE alert_id = $1`
	_, err := db.Pool.Exec(ctx, query, alertID, label)
	return err
}

// DeleteEmbedding - 보존 정책에 의한 삭제 (없어도 no-op)
// History Repository 쪽 참조는 건드리지 않음.
func (db *Postgres) DeleteEmbedding(ctx context.Context, alertID string) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM alert_embeddings WHERE alert_id = $1`, alertID)
	return err
}

// SearchNearest - 코사인 거리 기준 nearest-neighbor 검색
//
// monitorID가 비어있지 않으면 (provider, monitor) 스코프로 제한.
// 거리 동률은 더 최근 fired_at이 우선.
func (db *Postgres) SearchNearest(ctx context.Context, vector []float32, provider, monitorID string, k int) ([]model.SimilarAlert, error) {
	if k <= 0 {
		return []model.SimilarAlert{}, nil
	}

	var (
		query string
		args  []any
	)
	if monitorID != "" {
		query = `
			SELECT e.alert_id, a.title, e.label,
				1 - (e.embedding <=> $1) AS similarity, e.fired_at
			FROM alert_embeddings e
			JOIN alerts a ON a.alert_id = e.alert_id
			WHERE e.provider = $2 AND e.monitor_id = $3
			ORDER BY e.embedding <=> $1 ASC, e.fired_at DESC
			LIMIT $4
		`
		args = []any{pgvector.NewVector(vector), provider, monitorID, k}
	} else {
		query = `
			SELECT e.alert_id, a.title, e.label,
				1 - (e.embedding <=> $1) AS similarity, e.fired_at
			FROM alert_embeddings e
			JOIN alerts a ON a.alert_id = e.alert_id
			ORDER BY e.embedding <=> $1 ASC, e.fired_at DESC
			LIMIT $2
		`
		args = []any{pgvector.NewVector(vector), k}
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	neighbors := make([]model.SimilarAlert, 0, k)
	for rows.Next() {
		var n model.SimilarAlert
		var firedAt time.Time
		if err := rows.Scan(&n.AlertID, &n.Title, &n.EffectiveLabel, &n.Similarity, &firedAt); err != nil {
			return nil, err
		}
		n.FiredAt = firedAt
		neighbors = append(neighbors, n)
	}
	return neighbors, rows.Err()
}
