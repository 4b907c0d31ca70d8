package invoicing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andino-erp/andino-erp/internal/journal"
	"github.com/andino-erp/andino-erp/internal/money"
	"github.com/andino-erp/andino-erp/internal/orgconfig"
	"github.com/andino-erp/andino-erp/internal/purchasing"
	"github.com/andino-erp/andino-erp/internal/shared"
)

// SourceModule tags journal entries produced by invoicing.
const SourceModule = "invoicing"

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

// ItemInput is one caller-supplied invoice row.
type ItemInput struct {
	ProductID           *int64
	Description         string
	Quantity            decimal.Decimal
	UnitPrice           decimal.Decimal
	VATRate             decimal.Decimal
	PurchaseOrderItemID *int64
}

// CreateInput carries everything needed to create an invoice.
type CreateInput struct {
	Flow            Flow
	Letter          string
	PointOfSale     int
	Number          int
	Date            time.Time
	DueDate         *time.Time
	ContactID       *int64
	PurchaseOrderID *int64
	Items           []ItemInput
}

// Create validates, computes and persists the invoice, its journal entry,
// stock side effects and the purchase-order invoiced-amount increment as
// one transaction. The validation sequence fails fast with a specific
// reason and leaves no partial writes.
func (s *Service) Create(ctx context.Context, orgID int64, input CreateInput) (Invoice, error) {
	if !input.Flow.Valid() {
		return Invoice{}, shared.Validationf("unknown invoice flow %q", input.Flow)
	}
	if strings.TrimSpace(input.Letter) == "" {
		return Invoice{}, shared.Validationf("invoice letter is required")
	}
	if input.Number <= 0 {
		return Invoice{}, shared.Validationf("invoice number must be positive")
	}
	date := input.Date
	if date.IsZero() {
		date = s.now()
	}

	var created Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var order *purchasing.PurchaseOrder
		contactID := input.ContactID

		// 1. Purchase order checks: the order is locked first so the
		// quantity budget cannot be consumed concurrently.
		if input.PurchaseOrderID != nil {
			po, err := tx.GetOrderForUpdate(ctx, orgID, *input.PurchaseOrderID)
			if err != nil {
				return err
			}
			if po.Status != purchasing.StatusApproved {
				return shared.Statef("purchase order %d is %s; only APPROVED orders can be invoiced", po.ID, po.Status)
			}
			invoiced, err := tx.InvoicedQuantities(ctx, po.ID)
			if err != nil {
				return err
			}
			requested := make(map[int64]decimal.Decimal)
			for i, item := range input.Items {
				if item.PurchaseOrderItemID == nil {
					return shared.Validationf("item %d does not reference a purchase order item; free-form items are not allowed on order-linked invoices", i)
				}
				if _, ok := po.ItemByID(*item.PurchaseOrderItemID); !ok {
					return shared.NotFoundf("item %d references order item %d which does not belong to purchase order %d", i, *item.PurchaseOrderItemID, po.ID)
				}
				requested[*item.PurchaseOrderItemID] = requested[*item.PurchaseOrderItemID].Add(item.Quantity)
			}
			for itemID, qty := range requested {
				poItem, _ := po.ItemByID(itemID)
				available := purchasing.AvailableQuantity(poItem, invoiced[itemID])
				if !money.QtyLessOrEqual(qty, available) {
					return shared.Conflictf("order item %d has %s units available, %s requested", itemID, available.String(), qty.String())
				}
			}
			// Contact is forced to the order's vendor.
			vendorID := po.ContactID
			contactID = &vendorID
			order = &po
		}

		// 2. Items present.
		if len(input.Items) == 0 {
			return shared.Validationf("invoice requires at least one item")
		}

		// 3. Purchase flow needs a counterparty.
		if input.Flow == FlowPurchase && contactID == nil {
			return shared.Validationf("purchase invoices require a contact")
		}

		var contactSnapshot struct{ name, cuit, address string }
		if contactID != nil {
			contact, err := tx.GetContact(ctx, orgID, *contactID)
			if err != nil {
				return err
			}
			snap := contact.Snapshot()
			contactSnapshot.name = snap.Name
			contactSnapshot.cuit = snap.CUIT
			contactSnapshot.address = snap.Address
		}

		// 4. Duplicate document.
		key := DocumentKey{OrgID: orgID, Flow: input.Flow, Letter: input.Letter, PointOfSale: input.PointOfSale, Number: input.Number}
		if input.Flow == FlowPurchase {
			key.ContactID = *contactID
		}
		exists, err := tx.DocumentExists(ctx, key)
		if err != nil {
			return err
		}
		if exists {
			return shared.Conflictf("invoice %s %s %04d-%08d already exists", input.Flow, input.Letter, input.PointOfSale, input.Number)
		}

		// 5. Accounting configuration for the flow.
		cfg, err := tx.GetConfig(ctx, orgID)
		if err != nil {
			return err
		}
		flowAccounts, err := resolveFlowAccounts(input.Flow, cfg)
		if err != nil {
			return err
		}

		// Compute nets per item, resolve posting accounts and aggregate
		// per account so items sharing one account produce one journal
		// line. Stock moves as items are processed.
		net, vat := decimal.Zero, decimal.Zero
		accountOrder := []int64{}
		accountNets := make(map[int64]decimal.Decimal)
		items := make([]Item, 0, len(input.Items))
		for i, in := range input.Items {
			if !in.Quantity.IsPositive() {
				return shared.Validationf("item %d: quantity must be positive", i)
			}
			if in.UnitPrice.IsNegative() {
				return shared.Validationf("item %d: unit price cannot be negative", i)
			}
			lineNet := money.Round(in.Quantity.Mul(in.UnitPrice))
			lineVAT := money.Round(lineNet.Mul(money.Rate(in.VATRate)))
			net = net.Add(lineNet)
			vat = vat.Add(lineVAT)

			postingAccount := flowAccounts.DefaultID
			if in.ProductID != nil {
				product, err := tx.GetProduct(ctx, orgID, *in.ProductID)
				if err != nil {
					return err
				}
				postingAccount = resolvePostingAccount(input.Flow, &product, flowAccounts)
				if product.Stockable {
					delta := in.Quantity
					if input.Flow == FlowSale {
						delta = delta.Neg()
					}
					if err := tx.AdjustProductStock(ctx, product.ID, delta); err != nil {
						return err
					}
				}
			}
			if _, seen := accountNets[postingAccount]; !seen {
				accountOrder = append(accountOrder, postingAccount)
			}
			accountNets[postingAccount] = accountNets[postingAccount].Add(lineNet)

			items = append(items, Item{
				ProductID:           in.ProductID,
				Description:         strings.TrimSpace(in.Description),
				Quantity:            in.Quantity,
				UnitPrice:           in.UnitPrice,
				VATRate:             in.VATRate,
				Total:               lineNet.Add(lineVAT),
				PurchaseOrderItemID: in.PurchaseOrderItemID,
			})
		}
		total := net.Add(vat)

		// 6. Order amount budget.
		if order != nil {
			remaining := order.RemainingAmount()
			if !money.LessOrEqual(total, remaining) {
				return shared.Conflictf("invoice total %s exceeds purchase order remaining amount %s", total.StringFixed(2), remaining.StringFixed(2))
			}
		}

		// Journal entry, built so it cannot be unbalanced.
		docLabel := fmt.Sprintf("%s %s %04d-%08d", input.Flow, input.Letter, input.PointOfSale, input.Number)
		builder := journal.NewBuilder()
		if input.Flow == FlowSale {
			builder.Debit(flowAccounts.CounterID, total, docLabel)
			for _, accountID := range accountOrder {
				builder.Credit(accountID, accountNets[accountID], docLabel)
			}
			builder.Credit(flowAccounts.VATID, vat, docLabel)
		} else {
			for _, accountID := range accountOrder {
				builder.Debit(accountID, accountNets[accountID], docLabel)
			}
			builder.Debit(flowAccounts.VATID, vat, docLabel)
			builder.Credit(flowAccounts.CounterID, total, docLabel)
		}
		lines, err := builder.Build()
		if err != nil {
			return err
		}
		entry, err := tx.InsertJournalEntry(ctx, orgID, journal.PostInput{
			Date:         date,
			Description:  docLabel,
			SourceModule: SourceModule,
			SourceID:     uuid.New(),
			Lines:        lines,
		})
		if err != nil {
			return err
		}

		invoice := Invoice{
			OrgID:           orgID,
			Flow:            input.Flow,
			Letter:          input.Letter,
			PointOfSale:     input.PointOfSale,
			Number:          input.Number,
			Date:            date,
			DueDate:         input.DueDate,
			ContactID:       contactID,
			ContactName:     contactSnapshot.name,
			ContactCUIT:     contactSnapshot.cuit,
			ContactAddress:  contactSnapshot.address,
			NetAmount:       net,
			VATAmount:       vat,
			TotalAmount:     total,
			AmountAllocated: decimal.Zero,
			AmountRemaining: total,
			PurchaseOrderID: input.PurchaseOrderID,
			JournalEntryID:  &entry.ID,
			Items:           items,
		}
		inserted, err := tx.InsertInvoice(ctx, invoice)
		if err != nil {
			return err
		}

		// The order increment commits with the invoice; a crash cannot
		// leave the order under-tracked.
		if order != nil {
			if err := tx.AddOrderInvoicedAmount(ctx, order.ID, total, s.now()); err != nil {
				return err
			}
		}
		created = inserted
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	return created, nil
}

func resolveFlowAccounts(flow Flow, cfg orgconfig.Config) (orgconfig.FlowAccounts, error) {
	if flow == FlowSale {
		return cfg.ForSale()
	}
	return cfg.ForPurchase()
}

func (s *Service) Get(ctx context.Context, orgID, id int64) (Invoice, error) {
	return s.repo.Get(ctx, orgID, id)
}

func (s *Service) List(ctx context.Context, orgID int64) ([]Invoice, error) {
	return s.repo.List(ctx, orgID)
}
