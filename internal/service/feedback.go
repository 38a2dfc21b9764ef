// 운영자 피드백 기록 서비스 관련 함수 정의

package service

import (
	"context"
	"fmt"
	"log"

	"github.com/ops-triage/backend/internal/db"
	"github.com/ops-triage/backend/internal/model"
)

// FeedbackStore - 피드백 기록이 사용하는 저장소 인터페이스
type FeedbackStore interface {
	GetAlert(ctx context.Context, alertID string) (*model.Alert, error)
	InsertFeedbackEvent(ctx context.Context, event model.FeedbackEvent) (int64, error)
	GetEffectiveLabel(ctx context.Context, alertID string) (string, error)
	UpdateEmbeddingLabel(ctx context.Context, alertID, label string) error
	UpdateAlertStatus(ctx context.Context, alertID, status string) error
}

// FeedbackNotifier - 피드백 반영 알림 인터페이스
type FeedbackNotifier interface {
	IsConfigured() bool
	SendFeedbackAck(alertID, label, actor string) error
}

// FeedbackService - 운영자 라벨 정정 기록 서비스 (append-only)
type FeedbackService struct {
	store    FeedbackStore
	notifier FeedbackNotifier
}

func NewFeedbackService(store FeedbackStore, notifier FeedbackNotifier) *FeedbackService {
	return &FeedbackService{store: store, notifier: notifier}
}

// Record - 피드백 이벤트 기록
//
// 이벤트는 덮어쓰지 않고 추가만 하며, 가장 최근 이벤트가 유효 라벨이 된다.
// 임베딩 인덱스의 라벨 메타데이터도 함께 갱신해서 이후 유사 검색이
// 정정된 라벨을 보도록 한다.
func (s *FeedbackService) Record(ctx context.Context, alertID, label, source, actor, comment string) (*model.FeedbackEvent, error) {
	if !model.ValidLabel(label) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}

	alert, err := s.store.GetAlert(ctx, alertID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAlert, alertID)
		}
		return nil, fmt.Errorf("get alert: %w", err)
	}

	event := model.FeedbackEvent{
		AlertID: alertID,
		Label:   label,
		Source:  source,
		Actor:   actor,
		Comment: comment,
	}
	eventID, err := s.store.InsertFeedbackEvent(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("insert feedback event: %w", err)
	}
	event.EventID = eventID
	log.Printf("feedback recorded alert=%s label=%s source=%s actor=%s", alertID, label, source, actor)

	// 검색 인덱스가 정정된 라벨을 반영하도록 갱신 (피드백 자체는 이미 기록됨)
	if err := s.store.UpdateEmbeddingLabel(ctx, alertID, label); err != nil {
		log.Printf("embedding label update failed alert=%s error=%v", alertID, err)
	}

	status := model.StatusAcknowledged
	if label == model.LabelNoisy {
		status = model.StatusSilenced
	}
	if alert.Status != model.StatusResolved {
		if err := s.store.UpdateAlertStatus(ctx, alertID, status); err != nil {
			log.Printf("alert status update failed alert=%s status=%s error=%v", alertID, status, err)
		}
	}

	if s.notifier != nil && s.notifier.IsConfigured() {
		if err := s.notifier.SendFeedbackAck(alertID, label, actor); err != nil {
			log.Printf("slack feedback notify failed alert=%s error=%v", alertID, err)
		}
	}

	return &event, nil
}

// EffectiveLabel - 피드백이 있으면 최신 피드백, 없으면 현재 분류 결과의 라벨
func (s *FeedbackService) EffectiveLabel(ctx context.Context, alertID string) (string, error) {
	label, err := s.store.GetEffectiveLabel(ctx, alertID)
	if err != nil {
		return "", fmt.Errorf("effective label: %w", err)
	}
	return label, nil
}
