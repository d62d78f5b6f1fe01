package disputes

import (
	"time"

	"github.com/google/uuid"

	"github.com/RayhanLauzzadani/pasma-apps/pkg/db/models"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
)

// CreateInput is a buyer complaint about a shipped order.
type CreateInput struct {
	OrderID     uuid.UUID `json:"orderId" validate:"required"`
	Reason      string    `json:"reason" validate:"required"`
	Description string    `json:"description"`
	Evidence    []string  `json:"evidence" validate:"required,min=1"`
}

// ResolveInput is the admin decision on a dispute.
type ResolveInput struct {
	DisputeID  uuid.UUID `json:"-"`
	Resolution string    `json:"resolution" validate:"required,oneof=refund reject"`
	AdminNotes string    `json:"adminNotes"`
}

type DisputeDTO struct {
	ID          uuid.UUID                `json:"id"`
	OrderID     uuid.UUID                `json:"orderId"`
	BuyerID     uuid.UUID                `json:"buyerId"`
	SellerID    uuid.UUID                `json:"sellerId"`
	StoreID     uuid.UUID                `json:"storeId"`
	InvoiceID   string                   `json:"invoiceId"`
	Reason      string                   `json:"reason"`
	Description string                   `json:"description"`
	Evidence    []string                 `json:"evidence"`
	Status      enums.DisputeStatus      `json:"status"`
	Resolution  *enums.DisputeResolution `json:"resolution"`
	AdminNotes  string                   `json:"adminNotes"`
	ResolvedBy  *uuid.UUID               `json:"resolvedBy,omitempty"`
	ResolvedAt  *time.Time               `json:"resolvedAt,omitempty"`
	CreatedAt   time.Time                `json:"createdAt"`
}

type ListResult struct {
	Disputes   []DisputeDTO `json:"disputes"`
	NextCursor string       `json:"nextCursor,omitempty"`
}

func toDTO(d models.Dispute) DisputeDTO {
	return DisputeDTO{
		ID:          d.ID,
		OrderID:     d.OrderID,
		BuyerID:     d.BuyerID,
		SellerID:    d.SellerID,
		StoreID:     d.StoreID,
		InvoiceID:   d.InvoiceID,
		Reason:      d.Reason,
		Description: d.Description,
		Evidence:    append([]string{}, d.Evidence...),
		Status:      d.Status,
		Resolution:  d.Resolution,
		AdminNotes:  d.AdminNotes,
		ResolvedBy:  d.ResolvedBy,
		ResolvedAt:  d.ResolvedAt,
		CreatedAt:   d.CreatedAt,
	}
}
