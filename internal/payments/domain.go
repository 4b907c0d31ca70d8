package payments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/andino-erp/andino-erp/internal/invoicing"
	"github.com/andino-erp/andino-erp/internal/treasury"
)

// Type distinguishes vendor payments (outflow) from customer collections
// (inflow).
type Type string

const (
	TypePayment    Type = "PAYMENT"
	TypeCollection Type = "COLLECTION"
)

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	return t == TypePayment || t == TypeCollection
}

// ExpectedFlow maps a payment type to the invoice flow it settles:
// payments settle purchase invoices, collections settle sales invoices.
func (t Type) ExpectedFlow() invoicing.Flow {
	if t == TypePayment {
		return invoicing.FlowPurchase
	}
	return invoicing.FlowSale
}

// Payment is a recorded cash movement. AmountAllocated and AmountRemaining
// always sum to Amount; a payment created with a direct invoice link starts
// fully allocated, otherwise fully unallocated.
type Payment struct {
	ID                int64
	OrgID             int64
	Type              Type
	Method            treasury.PaymentMethod
	Amount            decimal.Decimal
	Date              time.Time
	InvoiceID         *int64
	ContactID         *int64
	TreasuryAccountID int64
	AmountAllocated   decimal.Decimal
	AmountRemaining   decimal.Decimal
	JournalEntryID    *int64
	CreatedAt         time.Time
	Allocations       []Allocation
}

// Allocation applies a portion of one payment's value to one invoice's
// balance. Rows are immutable and only created through Allocate.
type Allocation struct {
	ID          int64
	PaymentID   int64
	InvoiceID   int64
	RetentionID *int64
	Amount      decimal.Decimal
	Notes       string
	CreatedAt   time.Time
}
