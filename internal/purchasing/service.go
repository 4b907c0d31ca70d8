package purchasing

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andino-erp/andino-erp/internal/money"
	"github.com/andino-erp/andino-erp/internal/shared"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ItemInput is one caller-supplied order row.
type ItemInput struct {
	ProductID   *int64
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	VATRate     decimal.Decimal
}

// CreateInput carries fields for a new purchase order.
type CreateInput struct {
	ContactID    int64
	IssueDate    time.Time
	ExpectedDate *time.Time
	Items        []ItemInput
}

// Create computes subtotal, VAT and total from the item rows and persists
// the order as DRAFT with its items inline.
func (s *Service) Create(ctx context.Context, orgID int64, input CreateInput) (PurchaseOrder, error) {
	if input.ContactID == 0 {
		return PurchaseOrder{}, shared.Validationf("purchase order requires a vendor contact")
	}
	if len(input.Items) == 0 {
		return PurchaseOrder{}, shared.Validationf("purchase order requires at least one item")
	}
	issueDate := input.IssueDate
	if issueDate.IsZero() {
		issueDate = s.now()
	}

	po := PurchaseOrder{
		OrgID:          orgID,
		ContactID:      input.ContactID,
		Status:         StatusDraft,
		IssueDate:      issueDate,
		ExpectedDate:   input.ExpectedDate,
		Subtotal:       decimal.Zero,
		VAT:            decimal.Zero,
		InvoicedAmount: decimal.Zero,
	}
	for i, in := range input.Items {
		if !in.Quantity.IsPositive() {
			return PurchaseOrder{}, shared.Validationf("item %d: quantity must be positive", i)
		}
		if in.UnitPrice.IsNegative() {
			return PurchaseOrder{}, shared.Validationf("item %d: unit price cannot be negative", i)
		}
		if in.VATRate.IsNegative() {
			return PurchaseOrder{}, shared.Validationf("item %d: VAT rate cannot be negative", i)
		}
		lineNet := money.Round(in.Quantity.Mul(in.UnitPrice))
		lineVAT := money.Round(lineNet.Mul(money.Rate(in.VATRate)))
		po.Subtotal = po.Subtotal.Add(lineNet)
		po.VAT = po.VAT.Add(lineVAT)
		po.Items = append(po.Items, Item{
			ProductID:   in.ProductID,
			Description: strings.TrimSpace(in.Description),
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			VATRate:     in.VATRate,
			Total:       lineNet.Add(lineVAT),
		})
	}
	po.Total = po.Subtotal.Add(po.VAT)

	var created PurchaseOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inserted, err := tx.Insert(ctx, po)
		if err != nil {
			return err
		}
		created = inserted
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	return created, nil
}

// Approve moves a DRAFT order to APPROVED, the only state invoicing accepts.
func (s *Service) Approve(ctx context.Context, orgID, id int64) (PurchaseOrder, error) {
	return s.transition(ctx, orgID, id, StatusApproved)
}

// Reject moves a DRAFT order to REJECTED, terminally.
func (s *Service) Reject(ctx context.Context, orgID, id int64) (PurchaseOrder, error) {
	return s.transition(ctx, orgID, id, StatusRejected)
}

func (s *Service) transition(ctx context.Context, orgID, id int64, target Status) (PurchaseOrder, error) {
	var updated PurchaseOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, err := tx.GetForUpdate(ctx, orgID, id)
		if err != nil {
			return err
		}
		if po.Status != StatusDraft {
			return shared.Statef("purchase order is %s; only DRAFT orders can be %s", po.Status, strings.ToLower(string(target)))
		}
		at := s.now()
		if err := tx.SetStatus(ctx, po.ID, target, at); err != nil {
			return err
		}
		po.Status = target
		switch target {
		case StatusApproved:
			po.ApprovedAt = &at
		case StatusRejected:
			po.RejectedAt = &at
		}
		updated = po
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	return updated, nil
}

func (s *Service) Get(ctx context.Context, orgID, id int64) (PurchaseOrder, error) {
	return s.repo.Get(ctx, orgID, id)
}

func (s *Service) List(ctx context.Context, orgID int64) ([]PurchaseOrder, error) {
	return s.repo.List(ctx, orgID)
}

// AvailableQuantities returns, per order item, how much quantity remains
// invoiceable.
func (s *Service) AvailableQuantities(ctx context.Context, orgID, id int64) (map[int64]decimal.Decimal, error) {
	po, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	invoiced, err := s.repo.InvoicedQuantities(ctx, po.ID)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]decimal.Decimal, len(po.Items))
	for _, item := range po.Items {
		out[item.ID] = AvailableQuantity(item, invoiced[item.ID])
	}
	return out, nil
}
