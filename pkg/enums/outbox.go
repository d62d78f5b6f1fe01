package enums

import "fmt"

// OutboxAggregateType names the aggregate an outbox row belongs to.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregateDispute      OutboxAggregateType = "dispute"
	AggregateNotification OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateDispute,
	AggregateNotification,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType names the event stored in outbox_events.
type OutboxEventType string

const (
	EventOrderPlaced         OutboxEventType = "order_placed"
	EventOrderStateChanged   OutboxEventType = "order_state_changed"
	EventDisputeOpened       OutboxEventType = "dispute_opened"
	EventDisputeResolved     OutboxEventType = "dispute_resolved"
	EventNotificationCreated OutboxEventType = "notification_created"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventOrderStateChanged,
	EventDisputeOpened,
	EventDisputeResolved,
	EventNotificationCreated,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
