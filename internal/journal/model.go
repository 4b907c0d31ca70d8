package journal

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entry is an immutable double-entry record. Corrections are new entries;
// there is no update path.
type Entry struct {
	ID           int64
	OrgID        int64
	Date         time.Time
	Description  string
	SourceModule string
	SourceID     uuid.UUID
	CreatedAt    time.Time
	Lines        []Line
}

// Line stores a debit or credit amount for one account.
type Line struct {
	ID          int64
	EntryID     int64
	AccountID   int64
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// TotalDebit sums the entry's debit side.
func (e Entry) TotalDebit() decimal.Decimal {
	total := decimal.Zero
	for _, line := range e.Lines {
		total = total.Add(line.Debit)
	}
	return total
}

// TotalCredit sums the entry's credit side.
func (e Entry) TotalCredit() decimal.Decimal {
	total := decimal.Zero
	for _, line := range e.Lines {
		total = total.Add(line.Credit)
	}
	return total
}
