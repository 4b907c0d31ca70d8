package journal

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andino-erp/andino-erp/internal/money"
	"github.com/andino-erp/andino-erp/internal/shared"
)

// LineInput describes one journal line for posting.
type LineInput struct {
	AccountID   int64
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// PostInput groups the fields required to create a journal entry.
type PostInput struct {
	Date         time.Time
	Description  string
	SourceModule string
	SourceID     uuid.UUID
	Lines        []LineInput
}

// Validate ensures the line set is well formed and balanced. An unbalanced
// set is an integrity error: builders must not be able to produce one, so
// hitting it here means a construction bug.
func (in PostInput) Validate() error {
	if len(in.Lines) == 0 {
		return shared.Validationf("journal entry requires at least one line")
	}
	if in.SourceModule == "" {
		return shared.Validationf("journal entry requires a source module")
	}
	if in.SourceID == uuid.Nil {
		return shared.Validationf("journal entry requires a source id")
	}
	debit, credit := decimal.Zero, decimal.Zero
	for i, line := range in.Lines {
		if line.AccountID == 0 {
			return shared.Validationf("journal line %d is missing an account", i)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return shared.Validationf("journal line %d has a negative amount", i)
		}
		if line.Debit.IsPositive() && line.Credit.IsPositive() {
			return shared.Validationf("journal line %d cannot be both debit and credit", i)
		}
		if line.Debit.IsZero() && line.Credit.IsZero() {
			return shared.Validationf("journal line %d has no amount", i)
		}
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	if !money.Round(debit).Equal(money.Round(credit)) {
		return shared.Integrityf("journal entry is unbalanced: debit %s, credit %s", debit.String(), credit.String())
	}
	return nil
}

// Builder accumulates lines and only emits a balanced set. Zero amounts are
// skipped so callers can add conditional lines (VAT when non-zero) without
// branching.
type Builder struct {
	lines []LineInput
	err   error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) add(accountID int64, debit, credit decimal.Decimal, desc string) *Builder {
	if b.err != nil {
		return b
	}
	if accountID == 0 {
		b.err = shared.Validationf("journal line is missing an account")
		return b
	}
	if debit.IsNegative() || credit.IsNegative() {
		b.err = shared.Validationf("journal line amount cannot be negative")
		return b
	}
	if debit.IsZero() && credit.IsZero() {
		return b
	}
	b.lines = append(b.lines, LineInput{
		AccountID:   accountID,
		Debit:       money.Round(debit),
		Credit:      money.Round(credit),
		Description: desc,
	})
	return b
}

// Debit appends a debit line.
func (b *Builder) Debit(accountID int64, amount decimal.Decimal, desc string) *Builder {
	return b.add(accountID, amount, decimal.Zero, desc)
}

// Credit appends a credit line.
func (b *Builder) Credit(accountID int64, amount decimal.Decimal, desc string) *Builder {
	return b.add(accountID, decimal.Zero, amount, desc)
}

// Build returns the accumulated lines, failing unless they balance.
func (b *Builder) Build() ([]LineInput, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.lines) == 0 {
		return nil, shared.Validationf("journal entry requires at least one line")
	}
	debit, credit := decimal.Zero, decimal.Zero
	for _, line := range b.lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	if !debit.Equal(credit) {
		return nil, shared.Integrityf("journal entry is unbalanced: debit %s, credit %s", debit.String(), credit.String())
	}
	return b.lines, nil
}
