package notifications

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
)

// Params are the values interpolated into notification text.
type Params struct {
	InvoiceID string
	Amount    int64
	Reason    string
	HoursLeft int
	Actor     enums.ActorRole
}

// Render returns the English title and body for a notification kind.
func Render(kind enums.NotificationType, p Params) (string, string) {
	inv := "#" + p.InvoiceID
	amount := FormatIDR(p.Amount)
	switch kind {
	case enums.NotificationOrderPlaced:
		return "New order received",
			fmt.Sprintf("Order %s is waiting for you. Accept it within 24 hours or it will be canceled automatically.", inv)
	case enums.NotificationOrderAccepted:
		return "Order accepted",
			fmt.Sprintf("The seller accepted order %s and is preparing the shipment.", inv)
	case enums.NotificationOrderShipped:
		return "Order shipped",
			fmt.Sprintf("Order %s is on its way. Confirm receipt once it arrives.", inv)
	case enums.NotificationOrderCanceled:
		switch p.Actor {
		case enums.ActorSeller:
			return "Order rejected by seller",
				fmt.Sprintf("Order %s was rejected by the seller.\nReason: %s.\n%s has been returned to your wallet.", inv, reasonOrDefault(p.Reason), amount)
		case enums.ActorBuyer:
			return "Order canceled",
				fmt.Sprintf("You canceled order %s.\n%s has been returned to your wallet.", inv, amount)
		default:
			return "Order canceled",
				fmt.Sprintf("Order %s has been canceled.\n%s has been returned to your wallet.", inv, amount)
		}
	case enums.NotificationOrderCompleted:
		return "Order completed",
			fmt.Sprintf("Order %s is complete. Thank you for shopping.", inv)
	case enums.NotificationOrderAutoCompleted:
		return "Order completed automatically",
			fmt.Sprintf("Order %s was completed automatically.\n\nIf something is wrong, contact customer service.", inv)
	case enums.NotificationFundsReceived:
		return "Funds received",
			fmt.Sprintf("Order %s is complete. %s has been added to your wallet.", inv, amount)
	case enums.NotificationGracePeriod:
		return "Confirm receipt or report a problem",
			fmt.Sprintf("Order %s was shipped 2 days ago.\n\nReceived it? Confirm now or report a problem. The order completes automatically in %d hours.", inv, p.HoursLeft)
	case enums.NotificationOrderReported:
		return "Order reported",
			fmt.Sprintf("The buyer reported a problem with order %s.\nReason: %s\n\nThe funds stay on hold until an admin reviews the complaint.", inv, reasonOrDefault(p.Reason))
	case enums.NotificationComplaintSubmitted:
		return "Complaint submitted",
			fmt.Sprintf("Your complaint for order %s was received. An admin will review it shortly.", inv)
	case enums.NotificationNewDispute:
		return "New dispute",
			fmt.Sprintf("Order %s was reported by the buyer.\nReason: %s", inv, reasonOrDefault(p.Reason))
	case enums.NotificationDisputeApproved:
		return "Complaint approved",
			fmt.Sprintf("Your complaint for order %s was approved.\n%s has been refunded to your wallet.", inv, amount)
	case enums.NotificationDisputeRefunded:
		return "Dispute approved, funds returned to buyer",
			fmt.Sprintf("The complaint for order %s was approved. The escrowed %s was returned to the buyer.", inv, amount)
	case enums.NotificationDisputeRejected:
		return "Complaint rejected",
			fmt.Sprintf("Your complaint for order %s was rejected.\nThe order completes automatically in 24 hours.", inv)
	case enums.NotificationDisputeRejectedSelf:
		return "Dispute rejected, order continues",
			fmt.Sprintf("The complaint for order %s was rejected. The order completes automatically in 24 hours and the funds will be released to you.", inv)
	}
	return string(kind), inv
}

func reasonOrDefault(reason string) string {
	if strings.TrimSpace(reason) == "" {
		return "not specified"
	}
	return reason
}

// FormatIDR renders an integer rupiah amount as "Rp1.234.567".
func FormatIDR(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return sign + "Rp" + b.String()
}
