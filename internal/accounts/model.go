package accounts

import "time"

// AccountType classifies a ledger account.
type AccountType string

const (
	TypeAsset     AccountType = "ASSET"
	TypeLiability AccountType = "LIABILITY"
	TypeEquity    AccountType = "EQUITY"
	TypeIncome    AccountType = "INCOME"
	TypeExpense   AccountType = "EXPENSE"
)

// Valid reports whether t is one of the five account types.
func (t AccountType) Valid() bool {
	switch t {
	case TypeAsset, TypeLiability, TypeEquity, TypeIncome, TypeExpense:
		return true
	}
	return false
}

// Account is a node in the organization's chart of accounts. Code is unique
// per organization; the parent, when set, belongs to the same organization.
type Account struct {
	ID        int64
	OrgID     int64
	Code      string
	Name      string
	Type      AccountType
	ParentID  *int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
