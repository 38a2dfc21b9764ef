// 유사 알림 검색 서비스 관련 함수 정의

package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/ops-triage/backend/internal/config"
	"github.com/ops-triage/backend/internal/model"
)

// EmbeddingClient - 임베딩 생성 클라이언트 인터페이스
type EmbeddingClient interface {
	EmbedText(ctx context.Context, text string) ([]float32, string, error)
}

// NeighborSearcher - 임베딩 인덱스 최근접 탐색 인터페이스
type NeighborSearcher interface {
	SearchNearest(ctx context.Context, vector []float32, provider, monitorID string, k int) ([]model.SimilarAlert, error)
}

// RetrievalResult - 검색 결과 (임베딩 벡터 + 이웃 목록)
type RetrievalResult struct {
	Vector    []float32
	Model     string
	Neighbors []model.SimilarAlert
}

// RetrieverService - 과거 유사 알림 검색 서비스
type RetrieverService struct {
	embeddingClient  EmbeddingClient
	neighborSearcher NeighborSearcher
	embeddingCfg     config.EmbeddingConfig
	topK             int
}

func NewRetrieverService(embeddingClient EmbeddingClient, neighborSearcher NeighborSearcher, embeddingCfg config.EmbeddingConfig, classifierCfg config.ClassifierConfig) *RetrieverService {
	topK := classifierCfg.TopK
	if topK <= 0 {
		topK = 5
	}
	return &RetrieverService{
		embeddingClient:  embeddingClient,
		neighborSearcher: neighborSearcher,
		embeddingCfg:     embeddingCfg,
		topK:             topK,
	}
}

// Retrieve - 알림 텍스트를 임베딩하고 최근접 이웃 K개 검색
//
// 1. 같은 monitor 범위에서 먼저 탐색
// 2. 부족하면 전체 코퍼스에서 보충 탐색
//
// 임베딩 호출은 설정된 타임아웃 하에서 수행되며, 공유 락을 잡지 않는다.
// 임베딩/탐색 실패는 ErrClassificationUnavailable로 감싸서 반환.
func (s *RetrieverService) Retrieve(ctx context.Context, alert model.Alert) (RetrievalResult, error) {
	embedCtx := ctx
	if s.embeddingCfg.Timeout > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, s.embeddingCfg.Timeout)
		defer cancel()
	}

	vector, embModel, err := s.embeddingClient.EmbedText(embedCtx, alert.EmbeddingText())
	if err != nil {
		return RetrievalResult{}, fmt.Errorf("%w: embed alert %s: %v", ErrClassificationUnavailable, alert.AlertID, err)
	}

	// 같은 monitor 범위 우선 탐색. 자기 자신이 섞여 나올 수 있어 K+1개 요청.
	scoped, err := s.neighborSearcher.SearchNearest(ctx, vector, alert.Provider, alert.MonitorID, s.topK+1)
	if err != nil {
		return RetrievalResult{}, fmt.Errorf("%w: search neighbors for alert %s: %v", ErrClassificationUnavailable, alert.AlertID, err)
	}

	// K 충족 판정 전에 자기 자신부터 제외. 스코프 결과가 self 포함 K개면
	// 실제 이웃은 K-1개라 보충 탐색이 필요하다.
	neighbors := excludeSelf(scoped, alert.AlertID)
	if len(neighbors) < s.topK {
		// 전체 코퍼스에서 보충 탐색
		global, err := s.neighborSearcher.SearchNearest(ctx, vector, "", "", s.topK+1)
		if err != nil {
			return RetrievalResult{}, fmt.Errorf("%w: fallback search for alert %s: %v", ErrClassificationUnavailable, alert.AlertID, err)
		}
		neighbors = mergeNeighbors(neighbors, global, alert.AlertID, s.topK)
	} else if len(neighbors) > s.topK {
		neighbors = neighbors[:s.topK]
	}

	return RetrievalResult{Vector: vector, Model: embModel, Neighbors: neighbors}, nil
}

// 스코프 탐색 결과와 전체 탐색 결과 병합 (중복 제거, 자기 자신 제외)
func mergeNeighbors(scoped, global []model.SimilarAlert, selfID string, k int) []model.SimilarAlert {
	seen := make(map[string]bool, len(scoped))
	merged := make([]model.SimilarAlert, 0, len(scoped)+len(global))
	for _, n := range scoped {
		if n.AlertID == selfID || seen[n.AlertID] {
			continue
		}
		seen[n.AlertID] = true
		merged = append(merged, n)
	}
	for _, n := range global {
		if n.AlertID == selfID || seen[n.AlertID] {
			continue
		}
		seen[n.AlertID] = true
		merged = append(merged, n)
	}

	// 유사도 내림차순, 동률이면 최근 발생 우선
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Similarity != merged[j].Similarity {
			return merged[i].Similarity > merged[j].Similarity
		}
		return merged[i].FiredAt.After(merged[j].FiredAt)
	})

	if len(merged) > k {
		merged = merged[:k]
	}
	return merged
}

func excludeSelf(neighbors []model.SimilarAlert, selfID string) []model.SimilarAlert {
	out := neighbors[:0]
	for _, n := range neighbors {
		if n.AlertID != selfID {
			out = append(out, n)
		}
	}
	return out
}
