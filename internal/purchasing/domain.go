package purchasing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/andino-erp/andino-erp/internal/money"
)

// Status enumerates the purchase order lifecycle. APPROVED and REJECTED are
// terminal; only APPROVED orders may be invoiced.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// PurchaseOrder is a vendor order with an invoicing budget per item.
// Subtotal, VAT and Total are computed at creation and immutable;
// InvoicedAmount grows monotonically as linked invoices are created and
// never exceeds Total (within the monetary tolerance).
type PurchaseOrder struct {
	ID             int64
	OrgID          int64
	ContactID      int64
	Status         Status
	IssueDate      time.Time
	ExpectedDate   *time.Time
	Subtotal       decimal.Decimal
	VAT            decimal.Decimal
	Total          decimal.Decimal
	InvoicedAmount decimal.Decimal
	InvoicedAt     *time.Time
	ApprovedAt     *time.Time
	RejectedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Items          []Item
}

// Item is one ordered line. Linked invoice items reference it to consume
// its quantity budget.
type Item struct {
	ID          int64
	OrderID     int64
	ProductID   *int64
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	VATRate     decimal.Decimal
	Total       decimal.Decimal
}

// RemainingAmount is the order total minus what has been invoiced so far.
func (po PurchaseOrder) RemainingAmount() decimal.Decimal {
	return money.ClampZero(po.Total.Sub(po.InvoicedAmount))
}

// ItemByID finds an order item.
func (po PurchaseOrder) ItemByID(id int64) (Item, bool) {
	for _, item := range po.Items {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}

// AvailableQuantity is the ordered quantity minus what linked invoice items
// already consumed, floored at zero.
func AvailableQuantity(item Item, invoiced decimal.Decimal) decimal.Decimal {
	return money.ClampZero(item.Quantity.Sub(invoiced))
}
