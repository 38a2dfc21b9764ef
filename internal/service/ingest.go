// 알림 수신/분류 파이프라인 서비스 관련 함수 정의

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/ops-triage/backend/internal/config"
	"github.com/ops-triage/backend/internal/model"
	"github.com/ops-triage/backend/internal/provider"
)

// AlertStore - 수신 파이프라인이 사용하는 저장소 인터페이스
type AlertStore interface {
	InsertAlert(ctx context.Context, alert model.Alert, dedupKey string) (bool, error)
	GetAlertByDedupKey(ctx context.Context, dedupKey string) (*model.Alert, error)
	FindPriorAlert(ctx context.Context, provider, monitorID, excludeAlertID string) (string, error)
	LinkRecurrence(ctx context.Context, alertID, priorAlertID string) error
	UpdateAlertStatus(ctx context.Context, alertID, status string) error
	ResolveOpenAlert(ctx context.Context, provider, providerEventID string, resolvedAt time.Time) (string, bool, error)
	GetOrCreateMonitor(ctx context.Context, provider, providerMonitorID, name string) (*model.Monitor, error)
	GetMonitorStats(ctx context.Context, provider, monitorID string, since time.Time) (model.MonitorStats, error)
	InsertClassificationResult(ctx context.Context, result model.ClassificationResult) (int64, error)
	InsertEmbedding(ctx context.Context, alert model.Alert, vector []float32, embModel, label string) (int64, error)
}

// NeighborRetriever - 유사 알림 검색 인터페이스
type NeighborRetriever interface {
	Retrieve(ctx context.Context, alert model.Alert) (RetrievalResult, error)
}

// VerdictNotifier - 분류 결과 알림 전송 인터페이스
type VerdictNotifier interface {
	IsConfigured() bool
	SendVerdict(alert model.Alert, result model.ClassificationResult) error
	SendResolved(alertID string, resolvedAt time.Time) error
}

// VerdictDeliverer - 아웃바운드 webhook 전달 인터페이스
type VerdictDeliverer interface {
	Deliver(ctx context.Context, alert model.Alert, result model.ClassificationResult)
}

// AcceptResult - 수신 처리 결과 (핸들러 ack 용)
type AcceptResult struct {
	AlertID   string
	Duplicate bool
	Resolved  bool
}

// IngestService - webhook 수신 -> 정규화 -> 중복 제거 -> 비동기 분류 파이프라인
type IngestService struct {
	store      AlertStore
	retriever  NeighborRetriever
	classifier *ClassifierService
	notifier   VerdictNotifier
	deliverer  VerdictDeliverer
	ingestCfg  config.IngestConfig
	clsCfg     config.ClassifierConfig

	// 동시 수신된 동일 dedup key의 INSERT 경쟁을 단일 비행으로 합침
	inflight singleflight.Group
}

func NewIngestService(store AlertStore, retriever NeighborRetriever, classifier *ClassifierService, notifier VerdictNotifier, deliverer VerdictDeliverer, ingestCfg config.IngestConfig, clsCfg config.ClassifierConfig) *IngestService {
	return &IngestService{
		store:      store,
		retriever:  retriever,
		classifier: classifier,
		notifier:   notifier,
		deliverer:  deliverer,
		ingestCfg:  ingestCfg,
		clsCfg:     clsCfg,
	}
}

// Accept - 원시 webhook 페이로드 수신
//
// 정규화와 중복 판정만 동기로 수행하고 즉시 반환한다.
// 분류/알림 전송은 알림별 goroutine에서 비동기 진행.
// 같은 이벤트가 중복 수신되면 기존 알림 ID로 멱등 ack (ErrDuplicateAlert 아님, 정상 흐름).
func (s *IngestService) Accept(ctx context.Context, providerName string, raw []byte) ([]AcceptResult, error) {
	normalizer, err := provider.Lookup(providerName)
	if err != nil {
		return nil, err
	}
	alerts, err := normalizer.Normalize(raw)
	if err != nil {
		return nil, err
	}

	results := make([]AcceptResult, 0, len(alerts))
	for _, alert := range alerts {
		if alert.Recovery {
			res, err := s.acceptRecovery(ctx, alert)
			if err != nil {
				return nil, err
			}
			results = append(results, res)
			continue
		}

		alert.AlertID = uuid.NewString()
		alert.Status = model.StatusReceived
		dedupKey := model.DedupKey(alert.Provider, alert.ProviderEventID, alert.FiredAt, s.ingestCfg.DedupWindow)

		res, err := s.acceptOne(ctx, alert, dedupKey)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// 개별 알림 수신: singleflight + INSERT ... ON CONFLICT DO NOTHING로 원자적 중복 판정
//
// 중복 판정과 Process 기동까지 flight 함수 안에서 끝낸다. flight를 공유한
// 동시 수신자 전원이 같은 AcceptResult를 받고, Process는 insert에 성공한
// flight에서 정확히 한 번 뜬다.
func (s *IngestService) acceptOne(ctx context.Context, alert model.Alert, dedupKey string) (AcceptResult, error) {
	v, err, _ := s.inflight.Do(dedupKey, func() (interface{}, error) {
		inserted, err := s.store.InsertAlert(ctx, alert, dedupKey)
		if err != nil {
			return nil, fmt.Errorf("insert alert: %w", err)
		}
		if !inserted {
			existing, err := s.store.GetAlertByDedupKey(ctx, dedupKey)
			if err != nil {
				return nil, fmt.Errorf("lookup duplicate alert: %w", err)
			}
			log.Printf("duplicate alert ignored provider=%s event=%s alert=%s", alert.Provider, alert.ProviderEventID, existing.AlertID)
			return AcceptResult{AlertID: existing.AlertID, Duplicate: true}, nil
		}

		// 요청 컨텍스트와 분리해서 비동기 분류 진행
		go s.Process(context.Background(), alert)
		return AcceptResult{AlertID: alert.AlertID}, nil
	})
	if err != nil {
		return AcceptResult{}, err
	}
	return v.(AcceptResult), nil
}

// 복구 이벤트: 열려 있는 알림을 해소하고 종료. 분류 대상 아님.
// DB 오류는 그대로 올려서 provider가 재전송할 수 있게 한다.
func (s *IngestService) acceptRecovery(ctx context.Context, alert model.Alert) (AcceptResult, error) {
	resolvedAt := alert.ResolvedAt
	if resolvedAt == nil {
		now := time.Now()
		resolvedAt = &now
	}
	alertID, resolved, err := s.store.ResolveOpenAlert(ctx, alert.Provider, alert.ProviderEventID, *resolvedAt)
	if err != nil {
		return AcceptResult{}, fmt.Errorf("resolve alert %s/%s: %w", alert.Provider, alert.ProviderEventID, err)
	}
	if !resolved {
		// 열려 있는 알림 없음 (이미 해소되었거나 수신 전 복구)
		return AcceptResult{}, nil
	}
	log.Printf("alert resolved provider=%s alert=%s", alert.Provider, alertID)

	if s.notifier != nil && s.notifier.IsConfigured() {
		go func() {
			if err := s.notifier.SendResolved(alertID, *resolvedAt); err != nil {
				log.Printf("slack resolved notify failed alert=%s error=%v", alertID, err)
			}
		}()
	}
	return AcceptResult{AlertID: alertID, Resolved: true}, nil
}

// Process - 저장된 알림의 분류 파이프라인 실행
//
// 순서: monitor 등록/통계 -> 재발 연결 -> 유사 검색 -> 분류 -> 결과/임베딩 저장 -> 알림 전송.
// 유사 검색 실패 시 actionable로 fail-open하고 파이프라인을 계속 진행한다.
func (s *IngestService) Process(ctx context.Context, alert model.Alert) {
	if _, err := s.store.GetOrCreateMonitor(ctx, alert.Provider, alert.MonitorID, alert.MonitorID); err != nil {
		log.Printf("monitor upsert failed provider=%s monitor=%s error=%v", alert.Provider, alert.MonitorID, err)
	}

	if priorID, err := s.store.FindPriorAlert(ctx, alert.Provider, alert.MonitorID, alert.AlertID); err != nil {
		log.Printf("prior alert lookup failed alert=%s error=%v", alert.AlertID, err)
	} else if priorID != "" {
		if err := s.store.LinkRecurrence(ctx, alert.AlertID, priorID); err != nil {
			log.Printf("recurrence link failed alert=%s prior=%s error=%v", alert.AlertID, priorID, err)
		}
	}

	stats, err := s.store.GetMonitorStats(ctx, alert.Provider, alert.MonitorID, time.Now().Add(-s.clsCfg.StatsWindow))
	if err != nil {
		log.Printf("monitor stats failed provider=%s monitor=%s error=%v", alert.Provider, alert.MonitorID, err)
		stats = model.MonitorStats{MonitorID: alert.MonitorID}
	}

	var result model.ClassificationResult
	retrieval, err := s.retriever.Retrieve(ctx, alert)
	if err != nil {
		if !errors.Is(err, ErrClassificationUnavailable) {
			log.Printf("unexpected retrieval error alert=%s error=%v", alert.AlertID, err)
		}
		log.Printf("classification unavailable, failing open alert=%s error=%v", alert.AlertID, err)
		result = s.classifier.FailOpenResult(alert)
	} else {
		result = s.classifier.Classify(alert, retrieval.Neighbors, stats)
	}

	resultID, err := s.store.InsertClassificationResult(ctx, result)
	if err != nil {
		log.Printf("classification result insert failed alert=%s error=%v", alert.AlertID, err)
		return
	}
	result.ResultID = resultID
	log.Printf("alert classified alert=%s label=%s confidence=%.2f reason=%s", alert.AlertID, result.Label, result.Confidence, result.Reason)

	if len(retrieval.Vector) > 0 {
		if _, err := s.store.InsertEmbedding(ctx, alert, retrieval.Vector, retrieval.Model, result.Label); err != nil {
			log.Printf("embedding insert failed alert=%s error=%v", alert.AlertID, err)
		}
	}

	status := model.StatusClassified
	if result.Label == model.LabelNoisy && result.Confidence >= s.clsCfg.AutoSilenceConfidence {
		// 확신도 높은 noisy는 자동 침묵 처리 (알림은 여전히 저강조로 전송)
		status = model.StatusSilenced
	}
	if err := s.store.UpdateAlertStatus(ctx, alert.AlertID, status); err != nil {
		log.Printf("alert status update failed alert=%s status=%s error=%v", alert.AlertID, status, err)
	}

	s.notify(ctx, alert, result, status)
}

func (s *IngestService) notify(ctx context.Context, alert model.Alert, result model.ClassificationResult, status string) {
	if s.deliverer != nil {
		s.deliverer.Deliver(ctx, alert, result)
	}

	if s.notifier == nil || !s.notifier.IsConfigured() {
		return
	}
	if err := s.notifier.SendVerdict(alert, result); err != nil {
		log.Printf("slack verdict notify failed alert=%s error=%v", alert.AlertID, err)
		return
	}
	if status == model.StatusClassified {
		if err := s.store.UpdateAlertStatus(ctx, alert.AlertID, model.StatusNotified); err != nil {
			log.Printf("alert status update failed alert=%s status=%s error=%v", alert.AlertID, model.StatusNotified, err)
		}
	}
}
