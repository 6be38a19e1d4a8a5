package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/veritasmarket/veritas-backend/pkg/db/models"
	"github.com/veritasmarket/veritas-backend/pkg/enums"
	"github.com/veritasmarket/veritas-backend/pkg/logger"
	"github.com/veritasmarket/veritas-backend/pkg/outbox"
	"github.com/veritasmarket/veritas-backend/pkg/outbox/idempotency"
	"github.com/veritasmarket/veritas-backend/pkg/outbox/payloads"
)

type stubRecorder struct {
	inputs []RecordInput
	err    error
}

func (s *stubRecorder) Record(ctx context.Context, input RecordInput) (*models.Notification, error) {
	s.inputs = append(s.inputs, input)
	if s.err != nil {
		return nil, s.err
	}
	return &models.Notification{ID: uuid.New(), RecipientID: input.RecipientID}, nil
}

type fakeIdemStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newFakeIdemStore() *fakeIdemStore {
	return &fakeIdemStore{keys: map[string]bool{}}
}

func (f *fakeIdemStore) Get(ctx context.Context, key string) (string, error) {
	return "", nil
}

func (f *fakeIdemStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeIdemStore) IdempotencyKey(scope, id string) string {
	return "test:" + scope + ":" + id
}

func (f *fakeIdemStore) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.keys, key)
	}
	return nil
}

func (f *fakeIdemStore) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.keys)
}

func newTestConsumer(t *testing.T, svc recorder, store *fakeIdemStore) *Consumer {
	t.Helper()
	manager, err := idempotency.NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	consumer, err := NewConsumer(svc, &pubsub.Subscriber{}, manager, logg)
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	return consumer
}

func eventMessage(t *testing.T, eventType enums.OutboxEventType, payload any) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &pubsub.Message{
		ID:         uuid.NewString(),
		Data:       envelope,
		Attributes: map[string]string{"event_type": string(eventType)},
	}
}

func TestConsumerRecordsDisputeCreatedNotification(t *testing.T) {
	t.Parallel()

	svc := &stubRecorder{}
	consumer := newTestConsumer(t, svc, newFakeIdemStore())

	reporterID := uuid.New()
	disputeID := uuid.New()
	msg := eventMessage(t, enums.EventDisputeCreated, payloads.DisputeCreatedEvent{
		DisputeID:  disputeID,
		Type:       enums.DisputeTypeOrder,
		Severity:   enums.DisputeSeverityHigh,
		ReporterID: reporterID,
		ReportedID: uuid.New(),
	})

	result := consumer.process(context.Background(), msg)
	if !result.ack || result.nack {
		t.Fatalf("expected ack result, got %+v", result)
	}
	if len(svc.inputs) != 1 {
		t.Fatalf("expected one notification, got %d", len(svc.inputs))
	}
	input := svc.inputs[0]
	if input.RecipientID != reporterID {
		t.Fatalf("notification targeted %s, want reporter %s", input.RecipientID, reporterID)
	}
	if input.DisputeID == nil || *input.DisputeID != disputeID {
		t.Fatal("notification missing dispute link")
	}
	if input.Type != enums.NotificationTypeDisputeCreated {
		t.Fatalf("unexpected notification type %s", input.Type)
	}
}

func TestConsumerResolvedNotifiesBothParties(t *testing.T) {
	t.Parallel()

	svc := &stubRecorder{}
	consumer := newTestConsumer(t, svc, newFakeIdemStore())

	reporterID := uuid.New()
	reportedID := uuid.New()
	msg := eventMessage(t, enums.EventDisputeResolved, payloads.DisputeResolvedEvent{
		DisputeID:      uuid.New(),
		ReporterID:     reporterID,
		ReportedID:     reportedID,
		ResolvedBy:     uuid.New(),
		ResolutionType: enums.ResolutionTypeRefunded,
		Severity:       enums.DisputeSeverityMedium,
		ResolvedAt:     time.Now().UTC(),
	})

	result := consumer.process(context.Background(), msg)
	if !result.ack {
		t.Fatal("expected ack result")
	}
	if len(svc.inputs) != 2 {
		t.Fatalf("expected two notifications, got %d", len(svc.inputs))
	}
	if svc.inputs[0].RecipientID != reporterID || svc.inputs[1].RecipientID != reportedID {
		t.Fatal("resolved notifications did not cover both parties")
	}
}

func TestConsumerSkipsDuplicateEvent(t *testing.T) {
	t.Parallel()

	svc := &stubRecorder{}
	consumer := newTestConsumer(t, svc, newFakeIdemStore())

	msg := eventMessage(t, enums.EventDisputeClosed, payloads.DisputeClosedEvent{
		DisputeID:  uuid.New(),
		ReporterID: uuid.New(),
		ClosedBy:   uuid.New(),
		ClosedAt:   time.Now().UTC(),
	})

	first := consumer.process(context.Background(), msg)
	second := consumer.process(context.Background(), msg)
	if !first.ack || !second.ack {
		t.Fatal("expected both deliveries acked")
	}
	if len(svc.inputs) != 1 {
		t.Fatalf("expected duplicate suppressed, recorded %d", len(svc.inputs))
	}
}

func TestConsumerNacksAndReleasesOnRecordFailure(t *testing.T) {
	t.Parallel()

	svc := &stubRecorder{err: errors.New("db down")}
	store := newFakeIdemStore()
	consumer := newTestConsumer(t, svc, store)

	msg := eventMessage(t, enums.EventDisputeCreated, payloads.DisputeCreatedEvent{
		DisputeID:  uuid.New(),
		Type:       enums.DisputeTypeOrder,
		Severity:   enums.DisputeSeverityLow,
		ReporterID: uuid.New(),
		ReportedID: uuid.New(),
	})

	result := consumer.process(context.Background(), msg)
	if !result.nack {
		t.Fatal("expected nack on record failure")
	}
	if store.size() != 0 {
		t.Fatal("expected idempotency key released for redelivery")
	}
}

func TestConsumerAcksUnknownEventType(t *testing.T) {
	t.Parallel()

	svc := &stubRecorder{}
	consumer := newTestConsumer(t, svc, newFakeIdemStore())

	msg := &pubsub.Message{
		ID:         uuid.NewString(),
		Data:       []byte(`{}`),
		Attributes: map[string]string{"event_type": "something_else"},
	}

	result := consumer.process(context.Background(), msg)
	if !result.ack {
		t.Fatal("expected unknown events acked")
	}
	if len(svc.inputs) != 0 {
		t.Fatal("expected no notification recorded")
	}
}
