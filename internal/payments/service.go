package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andino-erp/andino-erp/internal/journal"
	"github.com/andino-erp/andino-erp/internal/money"
	"github.com/andino-erp/andino-erp/internal/orgconfig"
	"github.com/andino-erp/andino-erp/internal/shared"
	"github.com/andino-erp/andino-erp/internal/treasury"
)

// SourceModule tags journal entries produced by payments.
const SourceModule = "payments"

// CacheInvalidator drops cached treasury balances after a posting changes
// them.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, orgID int64) error
}

type Service struct {
	repo  Repository
	cache CacheInvalidator
	now   func() time.Time
}

func NewService(repo Repository, cache CacheInvalidator) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateInput carries fields for a new payment or collection.
type CreateInput struct {
	Type              Type
	Method            treasury.PaymentMethod
	Amount            decimal.Decimal
	Date              time.Time
	TreasuryAccountID int64
	InvoiceID         *int64
	ContactID         *int64
}

// Create records the cash movement: journal entry, treasury balance update
// and the optional direct invoice pre-allocation commit as one transaction.
func (s *Service) Create(ctx context.Context, orgID int64, input CreateInput) (Payment, error) {
	if !input.Type.Valid() {
		return Payment{}, shared.Validationf("unknown payment type %q", input.Type)
	}
	if !input.Method.Valid() {
		return Payment{}, shared.Validationf("unknown payment method %q", input.Method)
	}
	if !input.Amount.IsPositive() {
		return Payment{}, shared.Validationf("payment amount must be positive")
	}
	date := input.Date
	if date.IsZero() {
		date = s.now()
	}
	amount := money.Round(input.Amount)

	var created Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var directInvoiceID int64
		account, err := tx.GetTreasuryForUpdate(ctx, orgID, input.TreasuryAccountID)
		if err != nil {
			return err
		}
		if account.Method != input.Method {
			return shared.Validationf("treasury account %s accepts %s, not %s", account.Name, account.Method, input.Method)
		}
		if input.Type == TypePayment && account.Balance.LessThan(amount) {
			return shared.Conflictf("treasury account %s balance %s is insufficient for payment of %s",
				account.Name, account.Balance.StringFixed(2), amount.StringFixed(2))
		}

		cfg, err := tx.GetConfig(ctx, orgID)
		if err != nil {
			return err
		}
		methodAccountID, err := cfg.MethodAccount(string(account.Method))
		if err != nil {
			return err
		}
		counterID, err := counterAccount(input.Type, cfg)
		if err != nil {
			return err
		}

		// A caller-supplied contact must belong to the organization. The
		// direct invoice link below overrides it with the invoice's contact.
		if input.ContactID != nil && input.InvoiceID == nil {
			ok, err := tx.ContactExists(ctx, orgID, *input.ContactID)
			if err != nil {
				return err
			}
			if !ok {
				return shared.NotFoundf("contact %d not found", *input.ContactID)
			}
		}

		payment := Payment{
			OrgID:             orgID,
			Type:              input.Type,
			Method:            account.Method,
			Amount:            amount,
			Date:              date,
			InvoiceID:         input.InvoiceID,
			ContactID:         input.ContactID,
			TreasuryAccountID: account.ID,
			AmountAllocated:   decimal.Zero,
			AmountRemaining:   amount,
		}

		// Direct invoice link: validate and pre-allocate in full.
		if input.InvoiceID != nil {
			invoice, err := tx.GetInvoiceForUpdate(ctx, orgID, *input.InvoiceID)
			if err != nil {
				return err
			}
			expected := input.Type.ExpectedFlow()
			if invoice.Flow != expected {
				return shared.Statef("%s must settle a %s invoice, invoice %d is %s", input.Type, expected, invoice.ID, invoice.Flow)
			}
			if !money.LessOrEqual(amount, invoice.AmountRemaining) {
				return shared.Conflictf("payment of %s exceeds invoice %d remaining balance %s",
					amount.StringFixed(2), invoice.ID, invoice.AmountRemaining.StringFixed(2))
			}
			// The counterparty is the invoice's contact.
			payment.ContactID = invoice.ContactID
			payment.AmountAllocated = amount
			payment.AmountRemaining = decimal.Zero
			if err := tx.AdjustInvoiceBalances(ctx, invoice.ID, amount); err != nil {
				return err
			}
			directInvoiceID = invoice.ID
		}

		label := fmt.Sprintf("%s %s", input.Type, amount.StringFixed(2))
		builder := journal.NewBuilder()
		if input.Type == TypePayment {
			builder.Debit(counterID, amount, label)
			builder.Credit(methodAccountID, amount, label)
		} else {
			builder.Debit(methodAccountID, amount, label)
			builder.Credit(counterID, amount, label)
		}
		lines, err := builder.Build()
		if err != nil {
			return err
		}
		entry, err := tx.InsertJournalEntry(ctx, orgID, journal.PostInput{
			Date:         date,
			Description:  label,
			SourceModule: SourceModule,
			SourceID:     uuid.New(),
			Lines:        lines,
		})
		if err != nil {
			return err
		}
		payment.JournalEntryID = &entry.ID

		delta := amount
		if input.Type == TypePayment {
			delta = amount.Neg()
		}
		if err := tx.AdjustTreasuryBalance(ctx, account.ID, delta); err != nil {
			return err
		}

		inserted, err := tx.InsertPayment(ctx, payment)
		if err != nil {
			return err
		}
		if directInvoiceID != 0 {
			alloc, err := tx.InsertAllocation(ctx, Allocation{
				PaymentID: inserted.ID,
				InvoiceID: directInvoiceID,
				Amount:    amount,
			})
			if err != nil {
				return err
			}
			inserted.Allocations = append(inserted.Allocations, alloc)
		}
		created = inserted
		return nil
	})
	if err != nil {
		return Payment{}, err
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, orgID)
	}
	return created, nil
}

// AllocationInput is one entry of an allocation batch.
type AllocationInput struct {
	InvoiceID int64
	Amount    decimal.Decimal
	Notes     string
}

// Allocate applies a payment's remaining balance across invoices of the
// same counterparty. The whole batch commits or nothing does.
func (s *Service) Allocate(ctx context.Context, orgID, paymentID int64, batch []AllocationInput) (Payment, error) {
	normalized := make([]AllocationInput, 0, len(batch))
	total := decimal.Zero
	for _, in := range batch {
		if !in.Amount.IsPositive() {
			continue
		}
		in.Amount = money.Round(in.Amount)
		normalized = append(normalized, in)
		total = total.Add(in.Amount)
	}
	if len(normalized) == 0 || !total.IsPositive() {
		return Payment{}, shared.Validationf("allocation batch has no positive amounts")
	}

	var updated Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		payment, err := tx.GetPaymentForUpdate(ctx, orgID, paymentID)
		if err != nil {
			return err
		}
		if payment.ContactID == nil {
			return shared.Statef("payment %d has no contact; allocation requires a known counterparty", payment.ID)
		}
		if !money.LessOrEqual(total, payment.AmountRemaining) {
			return shared.Conflictf("allocation batch total %s exceeds payment remaining balance %s",
				total.StringFixed(2), payment.AmountRemaining.StringFixed(2))
		}

		// The same invoice may appear more than once; its entries are
		// checked against the remaining balance as a sum.
		perInvoice := make(map[int64]decimal.Decimal)
		invoiceOrder := []int64{}
		for _, in := range normalized {
			if _, seen := perInvoice[in.InvoiceID]; !seen {
				invoiceOrder = append(invoiceOrder, in.InvoiceID)
			}
			perInvoice[in.InvoiceID] = perInvoice[in.InvoiceID].Add(in.Amount)
		}
		expected := payment.Type.ExpectedFlow()
		for _, invoiceID := range invoiceOrder {
			invoice, err := tx.GetInvoiceForUpdate(ctx, orgID, invoiceID)
			if err != nil {
				return err
			}
			if invoice.Flow != expected {
				return shared.Statef("%s cannot be allocated to %s invoice %d", payment.Type, invoice.Flow, invoice.ID)
			}
			if invoice.ContactID == nil || *invoice.ContactID != *payment.ContactID {
				return shared.Conflictf("invoice %d belongs to a different contact than payment %d", invoice.ID, payment.ID)
			}
			requested := perInvoice[invoiceID]
			if !money.LessOrEqual(requested, invoice.AmountRemaining) {
				return shared.Conflictf("allocation of %s exceeds invoice %d remaining balance %s",
					requested.StringFixed(2), invoice.ID, invoice.AmountRemaining.StringFixed(2))
			}
		}

		for _, in := range normalized {
			alloc, err := tx.InsertAllocation(ctx, Allocation{
				PaymentID: payment.ID,
				InvoiceID: in.InvoiceID,
				Amount:    in.Amount,
				Notes:     in.Notes,
			})
			if err != nil {
				return err
			}
			payment.Allocations = append(payment.Allocations, alloc)
		}
		for _, invoiceID := range invoiceOrder {
			if err := tx.AdjustInvoiceBalances(ctx, invoiceID, perInvoice[invoiceID]); err != nil {
				return err
			}
		}
		if err := tx.AdjustPaymentBalances(ctx, payment.ID, total); err != nil {
			return err
		}
		payment.AmountAllocated = payment.AmountAllocated.Add(total)
		payment.AmountRemaining = payment.AmountRemaining.Sub(total)
		updated = payment
		return nil
	})
	if err != nil {
		return Payment{}, err
	}
	return updated, nil
}

func counterAccount(t Type, cfg orgconfig.Config) (int64, error) {
	if t == TypePayment {
		accounts, err := cfg.ForPurchase()
		if err != nil {
			return 0, err
		}
		return accounts.CounterID, nil
	}
	accounts, err := cfg.ForSale()
	if err != nil {
		return 0, err
	}
	return accounts.CounterID, nil
}

func (s *Service) Get(ctx context.Context, orgID, id int64) (Payment, error) {
	return s.repo.Get(ctx, orgID, id)
}

func (s *Service) List(ctx context.Context, orgID int64) ([]Payment, error) {
	return s.repo.List(ctx, orgID)
}
