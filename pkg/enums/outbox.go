package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateDispute      OutboxAggregateType = "dispute"
	AggregateModerator    OutboxAggregateType = "moderator"
	AggregateNotification OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateDispute,
	AggregateModerator,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventDisputeCreated          OutboxEventType = "dispute_created"
	EventDisputeAssigned         OutboxEventType = "dispute_assigned"
	EventDisputeEscalated        OutboxEventType = "dispute_escalated"
	EventDisputeResolved         OutboxEventType = "dispute_resolved"
	EventDisputeClosed           OutboxEventType = "dispute_closed"
	EventModeratorRewardRecorded OutboxEventType = "moderator_reward_recorded"
	EventModeratorLevelChanged   OutboxEventType = "moderator_level_changed"
	EventNotificationRequested   OutboxEventType = "notification_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventDisputeCreated,
	EventDisputeAssigned,
	EventDisputeEscalated,
	EventDisputeResolved,
	EventDisputeClosed,
	EventModeratorRewardRecorded,
	EventModeratorLevelChanged,
	EventNotificationRequested,
}

// IsValid reports whether the value matches the canonical event_type enum.
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
