package invoicing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/andino-erp/andino-erp/internal/catalog"
	"github.com/andino-erp/andino-erp/internal/orgconfig"
)

// Flow distinguishes sales invoices from purchase invoices.
type Flow string

const (
	FlowSale     Flow = "SALE"
	FlowPurchase Flow = "PURCHASE"
)

// Valid reports whether f is a known flow.
func (f Flow) Valid() bool {
	return f == FlowSale || f == FlowPurchase
}

// DocumentKey identifies a tax document. For SALE the organization's own
// numbering makes (org, flow, letter, pos, number) unique; for PURCHASE the
// vendor's numbering may collide across vendors, so the contact joins the
// key.
type DocumentKey struct {
	OrgID       int64
	Flow        Flow
	Letter      string
	PointOfSale int
	Number      int
	ContactID   int64 // zero for SALE
}

// Invoice is a posted tax document with allocation tracking. The item set
// is immutable after creation; AmountAllocated and AmountRemaining mutate
// as payments and retentions are applied, always by increment/decrement and
// always preserving allocated + remaining == total.
type Invoice struct {
	ID              int64
	OrgID           int64
	Flow            Flow
	Letter          string
	PointOfSale     int
	Number          int
	Date            time.Time
	DueDate         *time.Time
	ContactID       *int64
	ContactName     string
	ContactCUIT     string
	ContactAddress  string
	NetAmount       decimal.Decimal
	VATAmount       decimal.Decimal
	TotalAmount     decimal.Decimal
	AmountAllocated decimal.Decimal
	AmountRemaining decimal.Decimal
	PurchaseOrderID *int64
	JournalEntryID  *int64
	CreatedAt       time.Time
	Items           []Item
}

// Item is one invoice line, optionally fulfilling a purchase order item.
type Item struct {
	ID                  int64
	InvoiceID           int64
	ProductID           *int64
	Description         string
	Quantity            decimal.Decimal
	UnitPrice           decimal.Decimal
	VATRate             decimal.Decimal
	Total               decimal.Decimal
	PurchaseOrderItemID *int64
}

// Key returns the invoice's document identity.
func (inv Invoice) Key() DocumentKey {
	key := DocumentKey{
		OrgID:       inv.OrgID,
		Flow:        inv.Flow,
		Letter:      inv.Letter,
		PointOfSale: inv.PointOfSale,
		Number:      inv.Number,
	}
	if inv.Flow == FlowPurchase && inv.ContactID != nil {
		key.ContactID = *inv.ContactID
	}
	return key
}

// resolvePostingAccount picks the ledger account an item's net posts to:
// the product's own override when present, the flow-level default
// otherwise. A pure decision table, no inheritance.
func resolvePostingAccount(flow Flow, product *catalog.Product, accounts orgconfig.FlowAccounts) int64 {
	if product != nil {
		if flow == FlowSale && product.SalesAccountID != nil {
			return *product.SalesAccountID
		}
		if flow == FlowPurchase && product.PurchasesAccountID != nil {
			return *product.PurchasesAccountID
		}
	}
	return accounts.DefaultID
}
