package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ops-triage/backend/internal/config"
	"github.com/ops-triage/backend/internal/model"
	"github.com/ops-triage/backend/internal/provider"
)

type fakeAlertStore struct {
	mu sync.Mutex

	insertAlertReturns bool
	insertAlertErr     error
	resolveErr         error
	existing           *model.Alert
	priorAlertID       string
	stats              model.MonitorStats
	resolveAlertID     string

	// insertGate가 설정되면 InsertAlert은 채널이 닫힐 때까지 대기
	insertGate    chan struct{}
	insertStarted chan struct{}

	insertedAlerts  []model.Alert
	byDedupKey      map[string]model.Alert
	insertedResults []model.ClassificationResult
	embeddingLabels []string
	statusUpdates   map[string]string
	linkedPriors    map[string]string
}

func newFakeAlertStore() *fakeAlertStore {
	return &fakeAlertStore{
		insertAlertReturns: true,
		byDedupKey:         map[string]model.Alert{},
		statusUpdates:      map[string]string{},
		linkedPriors:       map[string]string{},
	}
}

func (f *fakeAlertStore) InsertAlert(ctx context.Context, alert model.Alert, dedupKey string) (bool, error) {
	if f.insertStarted != nil {
		f.insertStarted <- struct{}{}
	}
	if f.insertGate != nil {
		<-f.insertGate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertAlertErr != nil {
		return false, f.insertAlertErr
	}
	if !f.insertAlertReturns {
		return false, nil
	}
	// ON CONFLICT DO NOTHING과 동일하게 같은 dedup key는 한 번만 삽입
	if _, dup := f.byDedupKey[dedupKey]; dup {
		return false, nil
	}
	f.byDedupKey[dedupKey] = alert
	f.insertedAlerts = append(f.insertedAlerts, alert)
	return true, nil
}

func (f *fakeAlertStore) GetAlertByDedupKey(ctx context.Context, dedupKey string) (*model.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existing != nil {
		return f.existing, nil
	}
	if alert, ok := f.byDedupKey[dedupKey]; ok {
		return &alert, nil
	}
	return nil, errors.New("no rows")
}

func (f *fakeAlertStore) FindPriorAlert(ctx context.Context, provider, monitorID, excludeAlertID string) (string, error) {
	return f.priorAlertID, nil
}

func (f *fakeAlertStore) LinkRecurrence(ctx context.Context, alertID, priorAlertID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.linkedPriors[alertID] = priorAlertID
	return nil
}

func (f *fakeAlertStore) UpdateAlertStatus(ctx context.Context, alertID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusUpdates[alertID] = status
	return nil
}

func (f *fakeAlertStore) ResolveOpenAlert(ctx context.Context, provider, providerEventID string, resolvedAt time.Time) (string, bool, error) {
	if f.resolveErr != nil {
		return "", false, f.resolveErr
	}
	if f.resolveAlertID == "" {
		return "", false, nil
	}
	return f.resolveAlertID, true, nil
}

func (f *fakeAlertStore) GetOrCreateMonitor(ctx context.Context, provider, providerMonitorID, name string) (*model.Monitor, error) {
	return &model.Monitor{Provider: provider, ProviderMonitorID: providerMonitorID, Name: name}, nil
}

func (f *fakeAlertStore) GetMonitorStats(ctx context.Context, provider, monitorID string, since time.Time) (model.MonitorStats, error) {
	return f.stats, nil
}

func (f *fakeAlertStore) InsertClassificationResult(ctx context.Context, result model.ClassificationResult) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertedResults = append(f.insertedResults, result)
	return int64(len(f.insertedResults)), nil
}

func (f *fakeAlertStore) InsertEmbedding(ctx context.Context, alert model.Alert, vector []float32, embModel, label string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embeddingLabels = append(f.embeddingLabels, label)
	return 1, nil
}

type fakeRetriever struct {
	result RetrievalResult
	err    error
}

func (f *fakeRetriever) Retrieve(ctx context.Context, alert model.Alert) (RetrievalResult, error) {
	if f.err != nil {
		return RetrievalResult{}, f.err
	}
	return f.result, nil
}

func newTestIngest(store *fakeAlertStore, retriever *fakeRetriever) *IngestService {
	return NewIngestService(
		store,
		retriever,
		NewClassifierService(testClassifierConfig()),
		nil,
		nil,
		config.IngestConfig{DedupWindow: time.Minute},
		testClassifierConfig(),
	)
}

const datadogBody = `{
	"alert_id": "mon-42",
	"event_id": "evt-100",
	"title": "High CPU on web-01",
	"event_message": "CPU above 90%",
	"alert_transition": "Triggered",
	"alert_priority": "P2",
	"date": "1754049600000",
	"tags": "env:prod,service:web"
}`

func TestAcceptDuplicateIsIdempotentAck(t *testing.T) {
	store := newFakeAlertStore()
	store.insertAlertReturns = false
	store.existing = &model.Alert{AlertID: "existing-1"}
	svc := newTestIngest(store, &fakeRetriever{})

	results, err := svc.Accept(context.Background(), "datadog", []byte(datadogBody))
	if err != nil {
		t.Fatalf("duplicate must not be an error: %v", err)
	}
	if len(results) != 1 || !results[0].Duplicate {
		t.Fatalf("expected duplicate ack, got %+v", results)
	}
	if results[0].AlertID != "existing-1" {
		t.Fatalf("duplicate ack must carry existing alert id, got %s", results[0].AlertID)
	}
}

func TestAcceptConcurrentDuplicateClassifiesOnce(t *testing.T) {
	store := newFakeAlertStore()
	store.insertGate = make(chan struct{})
	store.insertStarted = make(chan struct{}, 2)
	svc := newTestIngest(store, &fakeRetriever{result: RetrievalResult{Vector: []float32{0.1}}})

	type accepted struct {
		results []AcceptResult
		err     error
	}
	done := make(chan accepted, 2)
	for i := 0; i < 2; i++ {
		go func() {
			results, err := svc.Accept(context.Background(), "datadog", []byte(datadogBody))
			done <- accepted{results, err}
		}()
	}

	// 첫 insert가 진행 중인 동안 두 번째 수신이 같은 flight에 합류하게 한다
	<-store.insertStarted
	time.Sleep(20 * time.Millisecond)
	close(store.insertGate)

	ids := map[string]bool{}
	for i := 0; i < 2; i++ {
		got := <-done
		if got.err != nil {
			t.Fatalf("unexpected error: %v", got.err)
		}
		if len(got.results) != 1 {
			t.Fatalf("expected one result, got %+v", got.results)
		}
		ids[got.results[0].AlertID] = true
	}
	if len(ids) != 1 {
		t.Fatalf("both deliveries must ack the same alert, got %v", ids)
	}

	store.mu.Lock()
	inserted := len(store.insertedAlerts)
	store.mu.Unlock()
	if inserted != 1 {
		t.Fatalf("expected exactly one inserted alert, got %d", inserted)
	}

	// 비동기 분류가 정확히 한 번 수행되어야 한다
	deadline := time.Now().Add(2 * time.Second)
	for {
		store.mu.Lock()
		n := len(store.insertedResults)
		store.mu.Unlock()
		if n > 0 {
			if n != 1 {
				t.Fatalf("expected exactly one classification result, got %d", n)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("accepted alert was never classified")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAcceptRecoveryStoreFailureIsError(t *testing.T) {
	store := newFakeAlertStore()
	store.resolveErr = errors.New("connection refused")
	svc := newTestIngest(store, &fakeRetriever{})

	body := `{
		"alert_id": "mon-42",
		"event_id": "evt-100",
		"title": "High CPU on web-01",
		"alert_transition": "Recovered",
		"date": "1754049600000"
	}`
	// DB 오류를 성공 ack로 가리면 provider가 재전송하지 않는다
	if _, err := svc.Accept(context.Background(), "datadog", []byte(body)); err == nil {
		t.Fatalf("resolve failure must surface as an error")
	}
}

func TestAcceptMalformedPayload(t *testing.T) {
	svc := newTestIngest(newFakeAlertStore(), &fakeRetriever{})

	_, err := svc.Accept(context.Background(), "datadog", []byte(`{"event_message": "no id or title"}`))
	if !errors.Is(err, provider.ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestAcceptUnsupportedProvider(t *testing.T) {
	svc := newTestIngest(newFakeAlertStore(), &fakeRetriever{})

	_, err := svc.Accept(context.Background(), "pagerduty", []byte(`{}`))
	if !errors.Is(err, provider.ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload for unsupported provider, got %v", err)
	}
}

func TestAcceptRecoveryResolvesOpenAlert(t *testing.T) {
	store := newFakeAlertStore()
	store.resolveAlertID = "open-1"
	svc := newTestIngest(store, &fakeRetriever{})

	body := `{
		"alert_id": "mon-42",
		"event_id": "evt-100",
		"title": "High CPU on web-01",
		"alert_transition": "Recovered",
		"date": "1754049600000"
	}`
	results, err := svc.Accept(context.Background(), "datadog", []byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || !results[0].Resolved || results[0].AlertID != "open-1" {
		t.Fatalf("expected resolved ack for open-1, got %+v", results)
	}
	if len(store.insertedAlerts) != 0 {
		t.Fatalf("recovery must not insert a new alert")
	}
}

func TestProcessStoresClassificationAndEmbedding(t *testing.T) {
	store := newFakeAlertStore()
	retriever := &fakeRetriever{result: RetrievalResult{
		Vector:    []float32{0.1, 0.2},
		Model:     "text-embedding-004",
		Neighbors: neighborsWithLabels([]string{"noisy", "noisy", "noisy", "noisy", "noisy"}, 0.9),
	}}
	svc := newTestIngest(store, retriever)

	alert := testAlert("warning")
	svc.Process(context.Background(), alert)

	if len(store.insertedResults) != 1 {
		t.Fatalf("expected 1 classification result, got %d", len(store.insertedResults))
	}
	result := store.insertedResults[0]
	if result.Label != model.LabelNoisy || result.Reason != model.ReasonConsensus {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(store.embeddingLabels) != 1 || store.embeddingLabels[0] != model.LabelNoisy {
		t.Fatalf("embedding must be indexed with the verdict label, got %v", store.embeddingLabels)
	}
	// 확신도 높은 noisy는 자동 침묵
	if store.statusUpdates[alert.AlertID] != model.StatusSilenced {
		t.Fatalf("expected silenced status, got %s", store.statusUpdates[alert.AlertID])
	}
}

func TestProcessFailsOpenWhenRetrievalUnavailable(t *testing.T) {
	store := newFakeAlertStore()
	retriever := &fakeRetriever{err: ErrClassificationUnavailable}
	svc := newTestIngest(store, retriever)

	alert := testAlert("critical")
	svc.Process(context.Background(), alert)

	if len(store.insertedResults) != 1 {
		t.Fatalf("fail-open must still persist a result")
	}
	result := store.insertedResults[0]
	if result.Label != model.LabelActionable || result.Reason != model.ReasonFailOpen {
		t.Fatalf("expected actionable fail-open, got %+v", result)
	}
	if len(store.embeddingLabels) != 0 {
		t.Fatalf("no embedding without a vector")
	}
	if store.statusUpdates[alert.AlertID] != model.StatusClassified {
		t.Fatalf("expected classified status, got %s", store.statusUpdates[alert.AlertID])
	}
}

func TestProcessLinksRecurrence(t *testing.T) {
	store := newFakeAlertStore()
	store.priorAlertID = "prior-1"
	svc := newTestIngest(store, &fakeRetriever{result: RetrievalResult{Vector: []float32{0.1}}})

	alert := testAlert("warning")
	svc.Process(context.Background(), alert)

	if store.linkedPriors[alert.AlertID] != "prior-1" {
		t.Fatalf("expected recurrence link to prior-1, got %q", store.linkedPriors[alert.AlertID])
	}
}
