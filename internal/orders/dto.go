package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/RayhanLauzzadani/pasma-apps/internal/ledger"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/config"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/db/models"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
	pkgerrors "github.com/RayhanLauzzadani/pasma-apps/pkg/errors"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/types"
)

// PlaceItem is one requested line.
type PlaceItem struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	Price     int64     `json:"price" validate:"gte=0"`
	Qty       int       `json:"qty" validate:"gt=0"`
}

// PlaceAmounts carries the caller's pricing inputs. Only subtotal and
// shipping are read; fee, tax and total are recomputed server side.
type PlaceAmounts struct {
	Subtotal   int64  `json:"subtotal" validate:"gt=0"`
	Shipping   int64  `json:"shipping" validate:"gte=0"`
	ServiceFee *int64 `json:"serviceFee,omitempty"`
	Tax        *int64 `json:"tax,omitempty"`
	Total      *int64 `json:"total,omitempty"`
}

// PlaceInput is the buyer's checkout request. Totals are always derived.
type PlaceInput struct {
	SellerID        uuid.UUID             `json:"sellerId" validate:"required"`
	StoreID         uuid.UUID             `json:"storeId" validate:"required"`
	StoreName       string                `json:"storeName" validate:"required"`
	Items           []PlaceItem           `json:"items" validate:"required,min=1,dive"`
	Amounts         PlaceAmounts          `json:"amounts"`
	ShippingAddress types.ShippingAddress `json:"shippingAddress"`
	IdempotencyKey  string                `json:"idempotencyKey,omitempty"`
}

func (in PlaceInput) validate() error {
	switch {
	case in.SellerID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "sellerId is required")
	case in.StoreID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "storeId is required")
	case strings.TrimSpace(in.StoreName) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "storeName is required")
	case len(in.Items) == 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "items must not be empty")
	case in.Amounts.Subtotal <= 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "amounts.subtotal must be greater than zero")
	case in.Amounts.Shipping < 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "amounts.shipping must not be negative")
	}
	for i, item := range in.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d].productId is required", i)
		}
		if item.Qty <= 0 {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d].qty must be greater than zero", i)
		}
		if item.Price < 0 {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d].price must not be negative", i)
		}
	}
	if err := in.ShippingAddress.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}
	return nil
}

// PlaceResult identifies the escrowed order.
type PlaceResult struct {
	OrderID   uuid.UUID `json:"orderId"`
	InvoiceID string    `json:"invoiceId"`
}

// ListParams selects one side of the caller's order history.
type ListParams struct {
	AsSeller bool
	Cursor   string
	Limit    int
}

// ListResult is one keyset page of orders.
type ListResult struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// OrderItemDTO is one ordered line as returned to clients.
type OrderItemDTO struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	Qty       int       `json:"qty"`
}

// OrderDTO is the participant view of an order.
type OrderDTO struct {
	ID              uuid.UUID             `json:"id"`
	InvoiceID       string                `json:"invoiceId"`
	BuyerID         uuid.UUID             `json:"buyerId"`
	SellerID        uuid.UUID             `json:"sellerId"`
	StoreID         uuid.UUID             `json:"storeId"`
	StoreName       string                `json:"storeName"`
	Items           []OrderItemDTO        `json:"items"`
	ShippingAddress types.ShippingAddress `json:"shippingAddress"`
	Amounts         ledger.Amounts        `json:"amounts"`
	Status          enums.OrderStatus     `json:"status"`
	PaymentStatus   enums.PaymentStatus   `json:"paymentStatus"`

	AutoCancelAt       *time.Time `json:"autoCancelAt,omitempty"`
	ShipByAt           *time.Time `json:"shipByAt,omitempty"`
	ShippedAt          *time.Time `json:"shippedAt,omitempty"`
	GracePeriodStartAt *time.Time `json:"gracePeriodStartAt,omitempty"`
	AutoCompleteAt     *time.Time `json:"autoCompleteAt,omitempty"`
	DisputeID          *uuid.UUID `json:"disputeId,omitempty"`

	CancelReason *string          `json:"cancelReason,omitempty"`
	CanceledBy   *enums.ActorRole `json:"canceledBy,omitempty"`
	CanceledAt   *time.Time       `json:"canceledAt,omitempty"`

	SellerTake  *int64             `json:"sellerTake,omitempty"`
	AdminTake   *int64             `json:"adminTake,omitempty"`
	CompletedBy *enums.CompletedBy `json:"completedBy,omitempty"`
	CompletedAt *time.Time         `json:"completedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ToDTO maps the stored order for clients.
func ToDTO(o models.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDTO{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Qty:       item.Qty,
		})
	}
	return OrderDTO{
		ID:                 o.ID,
		InvoiceID:          o.InvoiceID,
		BuyerID:            o.BuyerID,
		SellerID:           o.SellerID,
		StoreID:            o.StoreID,
		StoreName:          o.StoreName,
		Items:              items,
		ShippingAddress:    o.ShippingAddress,
		Amounts:            AmountsOf(o),
		Status:             o.Status,
		PaymentStatus:      o.PaymentStatus,
		AutoCancelAt:       o.AutoCancelAt,
		ShipByAt:           o.ShipByAt,
		ShippedAt:          o.ShippedAt,
		GracePeriodStartAt: o.GracePeriodStartAt,
		AutoCompleteAt:     o.AutoCompleteAt,
		DisputeID:          o.DisputeID,
		CancelReason:       o.CancelReason,
		CanceledBy:         o.CanceledBy,
		CanceledAt:         o.CanceledAt,
		SellerTake:         o.SellerTake,
		AdminTake:          o.AdminTake,
		CompletedBy:        o.CompletedBy,
		CompletedAt:        o.CompletedAt,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

// AmountsOf reads the stored money columns.
func AmountsOf(o models.Order) ledger.Amounts {
	return ledger.Amounts{
		Subtotal:   o.Subtotal,
		Shipping:   o.Shipping,
		ServiceFee: o.ServiceFee,
		Tax:        o.Tax,
		Total:      o.Total,
	}
}

// PolicyFromConfig builds the timeline policy from escrow settings.
func PolicyFromConfig(cfg config.EscrowConfig) (Policy, error) {
	adminID, err := cfg.AdminID()
	if err != nil {
		return Policy{}, err
	}
	p := DefaultPolicy(adminID)
	if cfg.AcceptWindow > 0 {
		p.AcceptWindow = cfg.AcceptWindow
	}
	if cfg.ShipWindow > 0 {
		p.ShipWindow = cfg.ShipWindow
	}
	if cfg.GraceDelay > 0 {
		p.GraceDelay = cfg.GraceDelay
	}
	if cfg.AutoCompleteDelay > 0 {
		p.AutoCompleteDelay = cfg.AutoCompleteDelay
	}
	if cfg.RejectResumeWindow > 0 {
		p.RejectResumeWindow = cfg.RejectResumeWindow
	}
	return p, nil
}

// FeePolicyFromConfig builds the pricing policy from escrow settings.
func FeePolicyFromConfig(cfg config.EscrowConfig) (ledger.FeePolicy, error) {
	rate, err := cfg.Rate()
	if err != nil {
		return ledger.FeePolicy{}, err
	}
	return ledger.FeePolicy{ServiceFee: cfg.ServiceFee, TaxRate: rate}, nil
}
