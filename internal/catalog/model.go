// Package catalog is the product collaborator: stock quantities and
// optional per-product posting-account overrides consumed by invoicing.
package catalog

import "github.com/shopspring/decimal"

// Product carries the fields invoicing reads. SalesAccountID and
// PurchasesAccountID, when set, override the flow-level default accounts.
type Product struct {
	ID                 int64
	OrgID              int64
	Name               string
	Stockable          bool
	StockQty           decimal.Decimal
	SalesAccountID     *int64
	PurchasesAccountID *int64
}
