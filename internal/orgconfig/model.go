// Package orgconfig holds the per-organization accounting configuration:
// which ledger accounts invoicing and payments post to.
package orgconfig

import "github.com/andino-erp/andino-erp/internal/shared"

// Config lists the account ids required by the posting flows. Fields are
// pointers so a missing account is distinguishable from account id zero.
type Config struct {
	OrgID                 int64
	SalesAccountID        *int64
	SalesVATAccountID     *int64
	ReceivablesAccountID  *int64
	PurchasesAccountID    *int64
	PurchasesVATAccountID *int64
	PayablesAccountID     *int64
	CashAccountID         *int64
	BankAccountID         *int64
}

// AccountIDs returns the ledger account ids the configuration references,
// for org-scope validation before a write.
func (c Config) AccountIDs() []int64 {
	var out []int64
	for _, id := range []*int64{
		c.SalesAccountID, c.SalesVATAccountID, c.ReceivablesAccountID,
		c.PurchasesAccountID, c.PurchasesVATAccountID, c.PayablesAccountID,
		c.CashAccountID, c.BankAccountID,
	} {
		if id != nil {
			out = append(out, *id)
		}
	}
	return out
}

// FlowAccounts is the resolved account triple for one invoice flow.
type FlowAccounts struct {
	// Default posting account for item nets (sales or purchases).
	DefaultID int64
	// VAT account for the flow.
	VATID int64
	// Counter account carrying the invoice total (receivables or payables).
	CounterID int64
}

func require(id *int64, name string) (int64, error) {
	if id == nil {
		return 0, shared.Validationf("accounting configuration is missing the %s account", name)
	}
	return *id, nil
}

// ForSale resolves the sales-side accounts, failing with a validation error
// naming the first missing one.
func (c Config) ForSale() (FlowAccounts, error) {
	sales, err := require(c.SalesAccountID, "sales")
	if err != nil {
		return FlowAccounts{}, err
	}
	vat, err := require(c.SalesVATAccountID, "sales VAT")
	if err != nil {
		return FlowAccounts{}, err
	}
	recv, err := require(c.ReceivablesAccountID, "receivables")
	if err != nil {
		return FlowAccounts{}, err
	}
	return FlowAccounts{DefaultID: sales, VATID: vat, CounterID: recv}, nil
}

// ForPurchase resolves the purchase-side accounts.
func (c Config) ForPurchase() (FlowAccounts, error) {
	purchases, err := require(c.PurchasesAccountID, "purchases")
	if err != nil {
		return FlowAccounts{}, err
	}
	vat, err := require(c.PurchasesVATAccountID, "purchases VAT")
	if err != nil {
		return FlowAccounts{}, err
	}
	pay, err := require(c.PayablesAccountID, "payables")
	if err != nil {
		return FlowAccounts{}, err
	}
	return FlowAccounts{DefaultID: purchases, VATID: vat, CounterID: pay}, nil
}

// MethodAccount resolves the treasury-side ledger account for a payment
// method: cash for CASH, the bank account for everything else.
func (c Config) MethodAccount(method string) (int64, error) {
	if method == "CASH" {
		return require(c.CashAccountID, "cash")
	}
	return require(c.BankAccountID, "bank")
}
