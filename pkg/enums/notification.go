package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeDisputeCreated   NotificationType = "dispute_created"
	NotificationTypeDisputeAssigned  NotificationType = "dispute_assigned"
	NotificationTypeDisputeEscalated NotificationType = "dispute_escalated"
	NotificationTypeDisputeResolved  NotificationType = "dispute_resolved"
	NotificationTypeDisputeClosed    NotificationType = "dispute_closed"
	NotificationTypeModeratorLevelUp NotificationType = "moderator_level_up"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeDisputeCreated,
	NotificationTypeDisputeAssigned,
	NotificationTypeDisputeEscalated,
	NotificationTypeDisputeResolved,
	NotificationTypeDisputeClosed,
	NotificationTypeModeratorLevelUp,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
