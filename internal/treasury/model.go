package treasury

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod enumerates the movement kinds a treasury account accepts.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodCheck        PaymentMethod = "CHECK"
	MethodCreditCard   PaymentMethod = "CREDIT_CARD"
	MethodDebitCard    PaymentMethod = "DEBIT_CARD"
	MethodOther        PaymentMethod = "OTHER"
)

// Valid reports whether m is a known method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodBankTransfer, MethodCheck, MethodCreditCard, MethodDebitCard, MethodOther:
		return true
	}
	return false
}

// Account is a cash or bank account with a running balance. The balance is
// only ever mutated by increment/decrement inside a payment transaction;
// overdraft is permitted in general and guarded per operation.
type Account struct {
	ID              int64
	OrgID           int64
	Name            string
	Method          PaymentMethod
	Currency        string
	LedgerAccountID int64
	Balance         decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
