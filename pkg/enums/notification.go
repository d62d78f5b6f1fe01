package enums

import "fmt"

// NotificationType maps to the type column of notifications.
type NotificationType string

const (
	NotificationOrderPlaced         NotificationType = "order_placed"
	NotificationOrderAccepted       NotificationType = "order_accepted"
	NotificationOrderShipped        NotificationType = "order_shipped"
	NotificationOrderCanceled       NotificationType = "order_canceled"
	NotificationOrderCompleted      NotificationType = "order_completed"
	NotificationOrderAutoCompleted  NotificationType = "order_auto_completed"
	NotificationFundsReceived       NotificationType = "funds_received"
	NotificationGracePeriod         NotificationType = "order_grace_period"
	NotificationOrderReported       NotificationType = "order_reported"
	NotificationComplaintSubmitted  NotificationType = "complaint_submitted"
	NotificationNewDispute          NotificationType = "new_dispute"
	NotificationDisputeApproved     NotificationType = "dispute_approved"
	NotificationDisputeRefunded     NotificationType = "dispute_refunded"
	NotificationDisputeRejected     NotificationType = "dispute_rejected"
	NotificationDisputeRejectedSelf NotificationType = "dispute_rejected_seller"
)

var validNotificationTypes = []NotificationType{
	NotificationOrderPlaced,
	NotificationOrderAccepted,
	NotificationOrderShipped,
	NotificationOrderCanceled,
	NotificationOrderCompleted,
	NotificationOrderAutoCompleted,
	NotificationFundsReceived,
	NotificationGracePeriod,
	NotificationOrderReported,
	NotificationComplaintSubmitted,
	NotificationNewDispute,
	NotificationDisputeApproved,
	NotificationDisputeRefunded,
	NotificationDisputeRejected,
	NotificationDisputeRejectedSelf,
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

// NotificationChannel separates per-user inboxes from the admin feed.
type NotificationChannel string

const (
	NotificationChannelUser  NotificationChannel = "user"
	NotificationChannelAdmin NotificationChannel = "admin"
)
