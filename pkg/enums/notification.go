package enums

import "fmt"

// NotificationType maps to the notification_type column.
type NotificationType string

const (
	NotificationTypeExchangeRequest   NotificationType = "exchange_request"
	NotificationTypeExchangeAccepted  NotificationType = "exchange_accepted"
	NotificationTypeExchangeRejected  NotificationType = "exchange_rejected"
	NotificationTypeMeetupArranged    NotificationType = "meetup_arranged"
	NotificationTypeExchangeCompleted NotificationType = "exchange_completed"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeExchangeRequest,
	NotificationTypeExchangeAccepted,
	NotificationTypeExchangeRejected,
	NotificationTypeMeetupArranged,
	NotificationTypeExchangeCompleted,
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

// NotificationTypeForStatus returns the notification emitted when an exchange enters status.
func NotificationTypeForStatus(status ExchangeStatus) (NotificationType, bool) {
	switch status {
	case ExchangeStatusPending:
		return NotificationTypeExchangeRequest, true
	case ExchangeStatusAccepted:
		return NotificationTypeExchangeAccepted, true
	case ExchangeStatusRejected:
		return NotificationTypeExchangeRejected, true
	case ExchangeStatusArranged:
		return NotificationTypeMeetupArranged, true
	case ExchangeStatusCompleted:
		return NotificationTypeExchangeCompleted, true
	default:
		return "", false
	}
}
