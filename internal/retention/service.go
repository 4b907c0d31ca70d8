package retention

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andino-erp/andino-erp/internal/invoicing"
	"github.com/andino-erp/andino-erp/internal/money"
	"github.com/andino-erp/andino-erp/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SettingInput carries fields for a new retention setting.
type SettingInput struct {
	Name                string
	Code                string
	Description         string
	AppliesTo           *invoicing.Flow
	DefaultRate         decimal.Decimal
	ReceivableAccountID *int64
	PayableAccountID    *int64
}

func (s *Service) CreateSetting(ctx context.Context, orgID int64, input SettingInput) (Setting, error) {
	if input.Name == "" {
		return Setting{}, shared.Validationf("retention setting requires a name")
	}
	if input.Code == "" {
		return Setting{}, shared.Validationf("retention setting requires a code")
	}
	if input.AppliesTo != nil && !input.AppliesTo.Valid() {
		return Setting{}, shared.Validationf("unknown invoice flow %q", *input.AppliesTo)
	}
	if input.DefaultRate.IsNegative() {
		return Setting{}, shared.Validationf("default rate cannot be negative")
	}
	for _, accountID := range []*int64{input.ReceivableAccountID, input.PayableAccountID} {
		if accountID == nil {
			continue
		}
		ok, err := s.repo.LedgerAccountExists(ctx, orgID, *accountID)
		if err != nil {
			return Setting{}, err
		}
		if !ok {
			return Setting{}, shared.NotFoundf("ledger account %d not found", *accountID)
		}
	}
	return s.repo.InsertSetting(ctx, Setting{
		OrgID:               orgID,
		Name:                input.Name,
		Code:                input.Code,
		Description:         input.Description,
		AppliesTo:           input.AppliesTo,
		DefaultRate:         input.DefaultRate,
		ReceivableAccountID: input.ReceivableAccountID,
		PayableAccountID:    input.PayableAccountID,
	})
}

func (s *Service) ListSettings(ctx context.Context, orgID int64) ([]Setting, error) {
	return s.repo.ListSettings(ctx, orgID)
}

// RecordInput carries fields for one withholding certificate.
type RecordInput struct {
	InvoiceID         int64
	SettingID         int64
	BaseAmount        decimal.Decimal
	Rate              decimal.Decimal
	Amount            decimal.Decimal
	CertificateNumber string
	CertificateDate   *time.Time
	Notes             string
}

// Record books a withholding against an invoice. It reduces the invoice's
// remaining balance in the same transaction as the certificate row, with no
// journal or treasury movement.
func (s *Service) Record(ctx context.Context, orgID int64, input RecordInput) (Retention, error) {
	if !input.Amount.IsPositive() {
		return Retention{}, shared.Validationf("retention amount must be positive")
	}
	if input.BaseAmount.IsNegative() || input.Rate.IsNegative() {
		return Retention{}, shared.Validationf("retention base and rate cannot be negative")
	}
	amount := money.Round(input.Amount)

	var created Retention
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		setting, err := tx.GetSetting(ctx, orgID, input.SettingID)
		if err != nil {
			return err
		}
		invoice, err := tx.GetInvoiceForUpdate(ctx, orgID, input.InvoiceID)
		if err != nil {
			return err
		}
		if !setting.Applies(invoice.Flow) {
			return shared.Statef("retention setting %q does not apply to %s invoices", setting.Code, invoice.Flow)
		}
		if !money.LessOrEqual(amount, invoice.AmountRemaining) {
			return shared.Conflictf("retention of %s exceeds invoice %d remaining balance %s",
				amount.StringFixed(2), invoice.ID, invoice.AmountRemaining.StringFixed(2))
		}
		if err := tx.AdjustInvoiceBalances(ctx, invoice.ID, amount); err != nil {
			return err
		}
		created, err = tx.InsertRetention(ctx, Retention{
			OrgID:             orgID,
			InvoiceID:         invoice.ID,
			SettingID:         setting.ID,
			BaseAmount:        money.Round(input.BaseAmount),
			Rate:              input.Rate,
			Amount:            amount,
			CertificateNumber: input.CertificateNumber,
			CertificateDate:   input.CertificateDate,
			Notes:             input.Notes,
		})
		return err
	})
	if err != nil {
		return Retention{}, err
	}
	return created, nil
}

func (s *Service) ListByInvoice(ctx context.Context, orgID, invoiceID int64) ([]Retention, error) {
	return s.repo.ListByInvoice(ctx, orgID, invoiceID)
}
