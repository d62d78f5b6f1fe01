package notifications

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
)

func TestFormatIDR(t *testing.T) {
	cases := map[int64]string{
		0:       "Rp0",
		950:     "Rp950",
		8050:    "Rp8.050",
		1234567: "Rp1.234.567",
		-2000:   "-Rp2.000",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatIDR(in))
	}
}

func TestRenderCancelTitleDependsOnActor(t *testing.T) {
	seller, body := Render(enums.NotificationOrderCanceled, Params{InvoiceID: "INV-1", Amount: 8050, Actor: enums.ActorSeller, Reason: "out of stock"})
	assert.Equal(t, "Order rejected by seller", seller)
	assert.Contains(t, body, "out of stock")
	assert.Contains(t, body, "Rp8.050")

	buyer, _ := Render(enums.NotificationOrderCanceled, Params{InvoiceID: "INV-1", Actor: enums.ActorBuyer})
	system, body := Render(enums.NotificationOrderCanceled, Params{InvoiceID: "INV-1", Actor: enums.ActorSystem})
	assert.Equal(t, "Order canceled", buyer)
	assert.Equal(t, "Order canceled", system)
	assert.True(t, strings.HasPrefix(body, "Order #INV-1 has been canceled."))
}

func TestRenderGraceReminderCarriesHoursLeft(t *testing.T) {
	_, body := Render(enums.NotificationGracePeriod, Params{InvoiceID: "INV-9", HoursLeft: 12})
	assert.Contains(t, body, "#INV-9")
	assert.Contains(t, body, "in 12 hours")
}

func TestRenderCoversEveryType(t *testing.T) {
	kinds := []enums.NotificationType{
		enums.NotificationOrderPlaced,
		enums.NotificationOrderAccepted,
		enums.NotificationOrderShipped,
		enums.NotificationOrderCanceled,
		enums.NotificationOrderCompleted,
		enums.NotificationOrderAutoCompleted,
		enums.NotificationFundsReceived,
		enums.NotificationGracePeriod,
		enums.NotificationOrderReported,
		enums.NotificationComplaintSubmitted,
		enums.NotificationNewDispute,
		enums.NotificationDisputeApproved,
		enums.NotificationDisputeRefunded,
		enums.NotificationDisputeRejected,
		enums.NotificationDisputeRejectedSelf,
	}
	for _, kind := range kinds {
		title, body := Render(kind, Params{InvoiceID: "INV-2"})
		assert.NotEqual(t, string(kind), title, "missing title for %s", kind)
		assert.Contains(t, body, "#INV-2")
	}
}
