// Provider별 웹훅 페이로드를 정규화된 model.Alert로 변환하는 레이어
//
// 새 provider 추가 시 Normalizer 구현을 추가하고 Registry에 등록하면 됨.
// 분류 로직은 provider 이름으로 분기하지 않음.

package provider

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ops-triage/backend/internal/model"
)

// ErrMalformedPayload - 필수 필드(provider-native id, title) 누락 또는 파싱 불가
// 재시도해도 의미가 없는 입력 오류
var ErrMalformedPayload = errors.New("malformed payload")

// Normalizer - provider 페이로드 정규화 계약
//
// 순수 변환만 수행하며 저장은 호출자 책임.
// 하나의 웹훅 봉투가 여러 알림을 담을 수 있어 슬라이스를 반환함 (Alertmanager 그룹핑).
type Normalizer interface {
	Name() string
	Normalize(raw []byte) ([]model.Alert, error)
}

// Registry - 지원하는 provider 이름 → Normalizer 매핑
func Registry() map[string]Normalizer {
	normalizers := []Normalizer{
		&DatadogNormalizer{},
		&AlertmanagerNormalizer{},
		&SentryNormalizer{},
	}
	registry := make(map[string]Normalizer, len(normalizers))
	for _, n := range normalizers {
		registry[n.Name()] = n
	}
	return registry
}

// Lookup - provider 이름으로 Normalizer 조회
func Lookup(name string) (Normalizer, error) {
	n, ok := Registry()[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported provider %q", ErrMalformedPayload, name)
	}
	return n, nil
}

// defaultSeverity - severity 누락 시 기본값
const defaultSeverity = "unknown"

func orDefault(severity string) string {
	severity = strings.ToLower(strings.TrimSpace(severity))
	if severity == "" {
		return defaultSeverity
	}
	return severity
}
