package service

import "errors"

// 서비스 계층 공통 에러 정의
var (
	// ErrClassificationUnavailable - 임베딩/검색 실패로 분류 파이프라인을 진행할 수 없음.
	// 호출부는 이 에러를 받으면 actionable로 fail-open 처리한다.
	ErrClassificationUnavailable = errors.New("classification unavailable")

	// ErrUnknownAlert - 존재하지 않는 알림에 대한 피드백
	ErrUnknownAlert = errors.New("unknown alert")

	// ErrInvalidLabel - actionable/noisy 이외의 라벨
	ErrInvalidLabel = errors.New("invalid label")

	// ErrDuplicateAlert - 중복 수신 (에러가 아닌 멱등 ack 용도)
	ErrDuplicateAlert = errors.New("duplicate alert")
)
