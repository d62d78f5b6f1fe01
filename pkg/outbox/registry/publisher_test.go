package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/RayhanLauzzadani/pasma-apps/pkg/config"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/db/models"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/outbox"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/outbox/payloads"
)

func TestEventRegistryResolveSuccess(t *testing.T) {
	reg := newTestEventRegistry(t)

	orderID := uuid.New()
	payloadBytes := mustMarshal(t, payloads.OrderStateChangedEvent{
		OrderID: orderID,
		Event:   "accept",
		From:    enums.OrderStatusPlaced,
		To:      enums.OrderStatusAccepted,
	})

	event := models.OutboxEvent{
		EventType:     enums.EventOrderStateChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       mustEnvelope(t, payloadBytes),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "orders-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	payload, ok := resolved.Payload.(*payloads.OrderStateChangedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.OrderID != orderID || payload.To != enums.OrderStatusAccepted {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if resolved.Envelope.EventID == "" {
		t.Fatalf("envelope missing event id")
	}
}

func TestEventRegistryRoutesNotificationsToNotificationTopic(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventNotificationCreated,
		AggregateType: enums.AggregateNotification,
		AggregateID:   uuid.New(),
		Payload: mustEnvelope(t, mustMarshal(t, payloads.NotificationCreatedEvent{
			NotificationID: uuid.New(),
			Channel:        enums.NotificationChannelAdmin,
			Type:           enums.NotificationNewDispute,
		})),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "notification-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
}

func TestEventRegistryResolveUnknownEvent(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.OutboxEventType("order_teleported"),
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, []byte(`{"reason":"none"}`)),
	}

	_, err := reg.Resolve(event)
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
}

func TestEventRegistryResolveUnregisteredVersion(t *testing.T) {
	reg := newTestEventRegistry(t)

	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    2,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       mustMarshal(t, payloads.OrderPlacedEvent{OrderID: uuid.New(), Total: 8050}),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	event := models.OutboxEvent{
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       envelope,
	}

	_, err = reg.Resolve(event)
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
}

func TestEventRegistryResolveTreatsMissingVersionAsV1(t *testing.T) {
	reg := newTestEventRegistry(t)

	orderID := uuid.New()
	envelope := []byte(`{"eventId":"` + uuid.NewString() + `","data":{"order_id":"` + orderID.String() + `","total":8050}}`)
	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       envelope,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Version != 1 {
		t.Fatalf("expected v1 descriptor got v%d", resolved.Descriptor.Version)
	}
	payload, ok := resolved.Payload.(*payloads.OrderPlacedEvent)
	if !ok || payload.Total != 8050 {
		t.Fatalf("unexpected payload %+v", resolved.Payload)
	}
}

func TestEventRegistryResolveAggregateMismatch(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateDispute,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, []byte(`{"order_id":"00000000-0000-0000-0000-000000000000"}`)),
	}

	_, err := reg.Resolve(event)
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
}

func TestEventRegistryResolveMissingPayload(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventDisputeOpened,
		AggregateType: enums.AggregateDispute,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, []byte("null")),
	}

	_, err := reg.Resolve(event)
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
}

func TestNewEventRegistryRequiresTopics(t *testing.T) {
	if _, err := NewEventRegistry(config.PubSubConfig{NotificationTopic: "n"}); err == nil {
		t.Fatalf("expected error without orders topic")
	}
	if _, err := NewEventRegistry(config.PubSubConfig{OrdersTopic: "o"}); err == nil {
		t.Fatalf("expected error without notification topic")
	}
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	cfg := config.PubSubConfig{
		OrdersTopic:       "orders-topic",
		NotificationTopic: "notification-topic",
	}
	reg, err := NewEventRegistry(cfg)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func mustEnvelope(t *testing.T, payload []byte) json.RawMessage {
	t.Helper()
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return data
}
