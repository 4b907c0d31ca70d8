package retention

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/andino-erp/andino-erp/internal/invoicing"
)

// Setting is one configured withholding regime (e.g. income tax, gross
// receipts). AppliesTo restricts the regime to one invoice flow; nil means
// both.
type Setting struct {
	ID                  int64
	OrgID               int64
	Name                string
	Code                string
	Description         string
	AppliesTo           *invoicing.Flow
	DefaultRate         decimal.Decimal
	ReceivableAccountID *int64
	PayableAccountID    *int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Applies reports whether the setting covers the given invoice flow.
func (s Setting) Applies(flow invoicing.Flow) bool {
	return s.AppliesTo == nil || *s.AppliesTo == flow
}

// Retention is a recorded withholding certificate against one invoice. It
// reduces the invoice's remaining balance without a journal or treasury
// movement; the ledger integrity job reports the resulting gap.
type Retention struct {
	ID                int64
	OrgID             int64
	InvoiceID         int64
	SettingID         int64
	BaseAmount        decimal.Decimal
	Rate              decimal.Decimal
	Amount            decimal.Decimal
	CertificateNumber string
	CertificateDate   *time.Time
	Notes             string
	CreatedAt         time.Time
}
