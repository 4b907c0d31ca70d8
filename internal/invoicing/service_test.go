package invoicing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/andino-erp/andino-erp/internal/catalog"
	"github.com/andino-erp/andino-erp/internal/contacts"
	"github.com/andino-erp/andino-erp/internal/journal"
	"github.com/andino-erp/andino-erp/internal/orgconfig"
	"github.com/andino-erp/andino-erp/internal/purchasing"
	"github.com/andino-erp/andino-erp/internal/shared"
)

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr(v int64) *int64 { return &v }

type memoryInvoiceRepo struct {
	orders   map[int64]purchasing.PurchaseOrder
	contacts map[int64]contacts.Contact
	configs  map[int64]orgconfig.Config
	products map[int64]catalog.Product
	invoices map[int64]Invoice
	entries  []journal.Entry
	nextID   int64
}

func newMemoryInvoiceRepo() *memoryInvoiceRepo {
	return &memoryInvoiceRepo{
		orders:   make(map[int64]purchasing.PurchaseOrder),
		contacts: make(map[int64]contacts.Contact),
		configs:  make(map[int64]orgconfig.Config),
		products: make(map[int64]catalog.Product),
		invoices: make(map[int64]Invoice),
	}
}

func (r *memoryInvoiceRepo) clone() *memoryInvoiceRepo {
	staged := newMemoryInvoiceRepo()
	for k, v := range r.orders {
		staged.orders[k] = v
	}
	staged.contacts = r.contacts
	staged.configs = r.configs
	for k, v := range r.products {
		staged.products[k] = v
	}
	for k, v := range r.invoices {
		staged.invoices[k] = v
	}
	staged.entries = append(staged.entries, r.entries...)
	staged.nextID = r.nextID
	return staged
}

func (r *memoryInvoiceRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	staged := r.clone()
	if err := fn(ctx, staged); err != nil {
		return err
	}
	*r = *staged
	return nil
}

func (r *memoryInvoiceRepo) GetOrderForUpdate(ctx context.Context, orgID, id int64) (purchasing.PurchaseOrder, error) {
	po, ok := r.orders[id]
	if !ok || po.OrgID != orgID {
		return purchasing.PurchaseOrder{}, shared.NotFoundf("purchase order not found")
	}
	return po, nil
}

// InvoicedQuantities aggregates the quantities linked invoice items already
// consumed per order item.
func (r *memoryInvoiceRepo) InvoicedQuantities(ctx context.Context, orderID int64) (map[int64]decimal.Decimal, error) {
	out := make(map[int64]decimal.Decimal)
	for _, inv := range r.invoices {
		if inv.PurchaseOrderID == nil || *inv.PurchaseOrderID != orderID {
			continue
		}
		for _, item := range inv.Items {
			if item.PurchaseOrderItemID != nil {
				out[*item.PurchaseOrderItemID] = out[*item.PurchaseOrderItemID].Add(item.Quantity)
			}
		}
	}
	return out, nil
}

func (r *memoryInvoiceRepo) AddOrderInvoicedAmount(ctx context.Context, orderID int64, delta decimal.Decimal, at time.Time) error {
	po, ok := r.orders[orderID]
	if !ok {
		return shared.NotFoundf("purchase order not found")
	}
	po.InvoicedAmount = po.InvoicedAmount.Add(delta)
	po.InvoicedAt = &at
	r.orders[orderID] = po
	return nil
}

func (r *memoryInvoiceRepo) GetContact(ctx context.Context, orgID, id int64) (contacts.Contact, error) {
	c, ok := r.contacts[id]
	if !ok || c.OrgID != orgID {
		return contacts.Contact{}, shared.NotFoundf("contact not found")
	}
	return c, nil
}

func (r *memoryInvoiceRepo) GetConfig(ctx context.Context, orgID int64) (orgconfig.Config, error) {
	cfg, ok := r.configs[orgID]
	if !ok {
		return orgconfig.Config{}, shared.Validationf("organization has no accounting configuration")
	}
	return cfg, nil
}

func (r *memoryInvoiceRepo) GetProduct(ctx context.Context, orgID, id int64) (catalog.Product, error) {
	p, ok := r.products[id]
	if !ok || p.OrgID != orgID {
		return catalog.Product{}, shared.NotFoundf("product not found")
	}
	return p, nil
}

func (r *memoryInvoiceRepo) AdjustProductStock(ctx context.Context, productID int64, delta decimal.Decimal) error {
	p, ok := r.products[productID]
	if !ok {
		return shared.NotFoundf("product not found")
	}
	p.StockQty = p.StockQty.Add(delta)
	r.products[productID] = p
	return nil
}

func (r *memoryInvoiceRepo) DocumentExists(ctx context.Context, key DocumentKey) (bool, error) {
	for _, inv := range r.invoices {
		if inv.Key() == key {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryInvoiceRepo) InsertJournalEntry(ctx context.Context, orgID int64, in journal.PostInput) (journal.Entry, error) {
	if err := in.Validate(); err != nil {
		return journal.Entry{}, err
	}
	r.nextID++
	entry := journal.Entry{ID: r.nextID, OrgID: orgID, Date: in.Date, Description: in.Description,
		SourceModule: in.SourceModule, SourceID: in.SourceID}
	for _, line := range in.Lines {
		entry.Lines = append(entry.Lines, journal.Line{
			EntryID: entry.ID, AccountID: line.AccountID, Debit: line.Debit, Credit: line.Credit,
		})
	}
	r.entries = append(r.entries, entry)
	return entry, nil
}

func (r *memoryInvoiceRepo) InsertInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	r.nextID++
	inv.ID = r.nextID
	inv.CreatedAt = time.Now()
	for i := range inv.Items {
		inv.Items[i].InvoiceID = inv.ID
	}
	r.invoices[inv.ID] = inv
	return inv, nil
}

func (r *memoryInvoiceRepo) Get(ctx context.Context, orgID, id int64) (Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok || inv.OrgID != orgID {
		return Invoice{}, shared.NotFoundf("invoice not found")
	}
	return inv, nil
}

func (r *memoryInvoiceRepo) List(ctx context.Context, orgID int64) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range r.invoices {
		if inv.OrgID == orgID {
			out = append(out, inv)
		}
	}
	return out, nil
}

const testOrg = int64(7)

func fixtureRepo() *memoryInvoiceRepo {
	repo := newMemoryInvoiceRepo()
	repo.configs[testOrg] = orgconfig.Config{
		OrgID:                 testOrg,
		SalesAccountID:        ptr(401),
		SalesVATAccountID:     ptr(402),
		ReceivablesAccountID:  ptr(110),
		PurchasesAccountID:    ptr(501),
		PurchasesVATAccountID: ptr(502),
		PayablesAccountID:     ptr(210),
		CashAccountID:         ptr(101),
		BankAccountID:         ptr(102),
	}
	repo.contacts[5] = contacts.Contact{ID: 5, OrgID: testOrg, Name: "Distribuidora Sur SA", CUIT: "30-11222333-4"}
	return repo
}

func TestCreateSaleInvoiceComputesAndPosts(t *testing.T) {
	repo := fixtureRepo()
	svc := NewService(repo)

	inv, err := svc.Create(context.Background(), testOrg, CreateInput{
		Flow:        FlowSale,
		Letter:      "A",
		PointOfSale: 1,
		Number:      42,
		ContactID:   ptr(5),
		Items: []ItemInput{
			{Description: "Servicio mensual", Quantity: amt("10"), UnitPrice: amt("20"), VATRate: amt("21")},
		},
	})
	require.NoError(t, err)

	require.True(t, inv.NetAmount.Equal(amt("200.00")))
	require.True(t, inv.VATAmount.Equal(amt("42.00")))
	require.True(t, inv.TotalAmount.Equal(amt("242.00")))
	require.True(t, inv.AmountAllocated.IsZero())
	require.True(t, inv.AmountRemaining.Equal(amt("242.00")))
	require.Equal(t, "Distribuidora Sur SA", inv.ContactName)

	// Debit receivables for the total, credit sales and VAT.
	require.Len(t, repo.entries, 1)
	lines := repo.entries[0].Lines
	require.Len(t, lines, 3)
	require.Equal(t, int64(110), lines[0].AccountID)
	require.True(t, lines[0].Debit.Equal(amt("242.00")))
	require.Equal(t, int64(401), lines[1].AccountID)
	require.True(t, lines[1].Credit.Equal(amt("200.00")))
	require.Equal(t, int64(402), lines[2].AccountID)
	require.True(t, lines[2].Credit.Equal(amt("42.00")))
}

func TestCreatePurchaseInvoiceMirrorsJournal(t *testing.T) {
	repo := fixtureRepo()
	svc := NewService(repo)

	inv, err := svc.Create(context.Background(), testOrg, CreateInput{
		Flow:        FlowPurchase,
		Letter:      "A",
		PointOfSale: 3,
		Number:      99,
		ContactID:   ptr(5),
		Items: []ItemInput{
			{Description: "Insumos", Quantity: amt("4"), UnitPrice: amt("25"), VATRate: amt("21")},
		},
	})
	require.NoError(t, err)
	require.True(t, inv.TotalAmount.Equal(amt("121.00")))

	lines := repo.entries[0].Lines
	require.Len(t, lines, 3)
	require.Equal(t, int64(501), lines[0].AccountID)
	require.True(t, lines[0].Debit.Equal(amt("100.00")))
	require.Equal(t, int64(502), lines[1].AccountID)
	require.True(t, lines[1].Debit.Equal(amt("21.00")))
	require.Equal(t, int64(210), lines[2].AccountID)
	require.True(t, lines[2].Credit.Equal(amt("121.00")))
}

func TestCreatePurchaseInvoiceRequiresContact(t *testing.T) {
	repo := fixtureRepo()
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), testOrg, CreateInput{
		Flow:        FlowPurchase,
		Letter:      "A",
		PointOfSale: 1,
		Number:      1,
		Items:       []ItemInput{{Description: "x", Quantity: amt("1"), UnitPrice: amt("1")}},
	})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindValidation))
}

func TestCreateRejectsDuplicateDocument(t *testing.T) {
	repo := fixtureRepo()
	svc := NewService(repo)

	input := CreateInput{
		Flow:        FlowSale,
		Letter:      "B",
		PointOfSale: 2,
		Number:      7,
		Items:       []ItemInput{{Description: "x", Quantity: amt("1"), UnitPrice: amt("10")}},
	}
	_, err := svc.Create(context.Background(), testOrg, input)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), testOrg, input)
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindConflict))
	require.Len(t, repo.invoices, 1)
}

func TestCreateMovesStockAndUsesProductAccount(t *testing.T) {
	repo := fixtureRepo()
	repo.products[9] = catalog.Product{
		ID: 9, OrgID: testOrg, Name: "Cemento", Stockable: true,
		StockQty: amt("50"), SalesAccountID: ptr(403),
	}
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), testOrg, CreateInput{
		Flow:        FlowSale,
		Letter:      "A",
		PointOfSale: 1,
		Number:      8,
		Items: []ItemInput{
			{ProductID: ptr(9), Description: "Cemento x50kg", Quantity: amt("3"), UnitPrice: amt("10"), VATRate: amt("21")},
		},
	})
	require.NoError(t, err)

	require.True(t, repo.products[9].StockQty.Equal(amt("47")))
	// Net posts to the product's own sales account.
	require.Equal(t, int64(403), repo.entries[0].Lines[1].AccountID)
}

func orderFixture(repo *memoryInvoiceRepo) {
	repo.orders[20] = purchasing.PurchaseOrder{
		ID: 20, OrgID: testOrg, ContactID: 5, Status: purchasing.StatusApproved,
		Subtotal: amt("500.00"), VAT: amt("105.00"), Total: amt("605.00"),
		InvoicedAmount: decimal.Zero,
		Items: []purchasing.Item{
			{ID: 201, OrderID: 20, Description: "Tornillos", Quantity: amt("10"), UnitPrice: amt("50"), VATRate: amt("21"), Total: amt("605.00")},
		},
	}
}

func TestCreateLinkedInvoiceConsumesOrderBudget(t *testing.T) {
	repo := fixtureRepo()
	orderFixture(repo)
	svc := NewService(repo)

	first, err := svc.Create(context.Background(), testOrg, CreateInput{
		Flow:            FlowPurchase,
		Letter:          "A",
		PointOfSale:     1,
		Number:          100,
		PurchaseOrderID: ptr(20),
		Items: []ItemInput{
			{Description: "Tornillos", Quantity: amt("6"), UnitPrice: amt("50"), VATRate: amt("21"), PurchaseOrderItemID: ptr(201)},
		},
	})
	require.NoError(t, err)
	// Contact comes from the order's vendor.
	require.Equal(t, ptr(5), first.ContactID)
	require.True(t, repo.orders[20].InvoicedAmount.Equal(amt("363.00")))

	// The second invoice would consume 6 + 5 = 11 of 10 ordered units.
	_, err = svc.Create(context.Background(), testOrg, CreateInput{
		Flow:            FlowPurchase,
		Letter:          "A",
		PointOfSale:     1,
		Number:          101,
		PurchaseOrderID: ptr(20),
		Items: []ItemInput{
			{Description: "Tornillos", Quantity: amt("5"), UnitPrice: amt("50"), VATRate: amt("21"), PurchaseOrderItemID: ptr(201)},
		},
	})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindConflict))
	require.Len(t, repo.invoices, 1)
	require.True(t, repo.orders[20].InvoicedAmount.Equal(amt("363.00")))
}

func TestCreateLinkedInvoiceRejectsDraftOrder(t *testing.T) {
	repo := fixtureRepo()
	orderFixture(repo)
	po := repo.orders[20]
	po.Status = purchasing.StatusDraft
	repo.orders[20] = po
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), testOrg, CreateInput{
		Flow:            FlowPurchase,
		Letter:          "A",
		PointOfSale:     1,
		Number:          100,
		PurchaseOrderID: ptr(20),
		Items: []ItemInput{
			{Description: "Tornillos", Quantity: amt("1"), UnitPrice: amt("50"), PurchaseOrderItemID: ptr(201)},
		},
	})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindState))
}

func TestCreateLinkedInvoiceRejectsFreeFormItems(t *testing.T) {
	repo := fixtureRepo()
	orderFixture(repo)
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), testOrg, CreateInput{
		Flow:            FlowPurchase,
		Letter:          "A",
		PointOfSale:     1,
		Number:          100,
		PurchaseOrderID: ptr(20),
		Items: []ItemInput{
			{Description: "Flete", Quantity: amt("1"), UnitPrice: amt("30")},
		},
	})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindValidation))
}

func TestCreateLinkedInvoiceRejectsAmountOverBudget(t *testing.T) {
	repo := fixtureRepo()
	orderFixture(repo)
	svc := NewService(repo)

	// Quantity fits but the unit price pushes the total past the order.
	_, err := svc.Create(context.Background(), testOrg, CreateInput{
		Flow:            FlowPurchase,
		Letter:          "A",
		PointOfSale:     1,
		Number:          100,
		PurchaseOrderID: ptr(20),
		Items: []ItemInput{
			{Description: "Tornillos", Quantity: amt("10"), UnitPrice: amt("80"), VATRate: amt("21"), PurchaseOrderItemID: ptr(201)},
		},
	})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindConflict))
}

func TestCreateRejectsEmptyItems(t *testing.T) {
	repo := fixtureRepo()
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), testOrg, CreateInput{
		Flow:        FlowSale,
		Letter:      "A",
		PointOfSale: 1,
		Number:      1,
	})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindValidation))
}
