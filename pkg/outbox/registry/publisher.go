package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/RayhanLauzzadani/pasma-apps/pkg/config"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/db/models"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/outbox"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/outbox/payloads"
)

// EventDescriptor links one version of an event type to its aggregate, topic
// and payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	Version        int
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

type descriptorKey struct {
	eventType enums.OutboxEventType
	version   int
}

// EventRegistry maps each supported event type and envelope version to its
// descriptor.
type EventRegistry struct {
	entries map[descriptorKey]EventDescriptor
	known   map[enums.OutboxEventType]bool
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry builds the registry with the configured topic names.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, fmt.Errorf("orders topic is required")
	}
	if cfg.NotificationTopic == "" {
		return nil, fmt.Errorf("notification topic is required")
	}

	reg := &EventRegistry{
		entries: make(map[descriptorKey]EventDescriptor),
		known:   make(map[enums.OutboxEventType]bool),
	}
	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventOrderPlaced,
			Version:        1,
			AggregateType:  enums.AggregateOrder,
			Topic:          cfg.OrdersTopic,
			PayloadFactory: func() interface{} { return &payloads.OrderPlacedEvent{} },
		},
		{
			EventType:      enums.EventOrderStateChanged,
			Version:        1,
			AggregateType:  enums.AggregateOrder,
			Topic:          cfg.OrdersTopic,
			PayloadFactory: func() interface{} { return &payloads.OrderStateChangedEvent{} },
		},
		{
			EventType:      enums.EventDisputeOpened,
			Version:        1,
			AggregateType:  enums.AggregateDispute,
			Topic:          cfg.OrdersTopic,
			PayloadFactory: func() interface{} { return &payloads.DisputeOpenedEvent{} },
		},
		{
			EventType:      enums.EventDisputeResolved,
			Version:        1,
			AggregateType:  enums.AggregateDispute,
			Topic:          cfg.OrdersTopic,
			PayloadFactory: func() interface{} { return &payloads.DisputeResolvedEvent{} },
		},
		{
			EventType:      enums.EventNotificationCreated,
			Version:        1,
			AggregateType:  enums.AggregateNotification,
			Topic:          cfg.NotificationTopic,
			PayloadFactory: func() interface{} { return &payloads.NotificationCreatedEvent{} },
		},
	} {
		reg.register(desc)
	}
	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	if desc.Version <= 0 {
		desc.Version = 1
	}
	r.entries[descriptorKey{eventType: desc.EventType, version: desc.Version}] = desc
	r.known[desc.EventType] = true
}

// Resolve validates the row and decodes its typed payload with the schema
// registered for the envelope version. Envelopes without a version are v1.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	if !r.known[event.EventType] {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}
	version := envelope.Version
	if version == 0 {
		version = 1
	}
	desc, ok := r.entries[descriptorKey{eventType: event.EventType, version: version}]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("no schema for %s@v%d", event.EventType, version))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if payload == nil {
		return nil, NewNonRetryableError(fmt.Errorf("payload factory not configured for %s", event.EventType))
	}
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}
