package payments

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/andino-erp/andino-erp/internal/invoicing"
	"github.com/andino-erp/andino-erp/internal/journal"
	"github.com/andino-erp/andino-erp/internal/orgconfig"
	"github.com/andino-erp/andino-erp/internal/shared"
	"github.com/andino-erp/andino-erp/internal/treasury"
)

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr(v int64) *int64 { return &v }

type memoryPaymentRepo struct {
	treasuries  map[int64]treasury.Account
	configs     map[int64]orgconfig.Config
	contacts    map[int64]int64 // contact id -> org id
	invoices    map[int64]invoicing.Invoice
	payments    map[int64]Payment
	allocations []Allocation
	entries     []journal.Entry
	nextID      int64
}

func newMemoryPaymentRepo() *memoryPaymentRepo {
	return &memoryPaymentRepo{
		treasuries: make(map[int64]treasury.Account),
		configs:    make(map[int64]orgconfig.Config),
		contacts:   make(map[int64]int64),
		invoices:   make(map[int64]invoicing.Invoice),
		payments:   make(map[int64]Payment),
	}
}

func (r *memoryPaymentRepo) clone() *memoryPaymentRepo {
	staged := newMemoryPaymentRepo()
	for k, v := range r.treasuries {
		staged.treasuries[k] = v
	}
	for k, v := range r.configs {
		staged.configs[k] = v
	}
	staged.contacts = r.contacts
	for k, v := range r.invoices {
		staged.invoices[k] = v
	}
	for k, v := range r.payments {
		staged.payments[k] = v
	}
	staged.allocations = append(staged.allocations, r.allocations...)
	staged.entries = append(staged.entries, r.entries...)
	staged.nextID = r.nextID
	return staged
}

// WithTx runs fn against a copy and only merges the copy back on success,
// matching transactional rollback semantics.
func (r *memoryPaymentRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	staged := r.clone()
	if err := fn(ctx, staged); err != nil {
		return err
	}
	*r = *staged
	return nil
}

func (r *memoryPaymentRepo) GetTreasuryForUpdate(ctx context.Context, orgID, id int64) (treasury.Account, error) {
	a, ok := r.treasuries[id]
	if !ok || a.OrgID != orgID {
		return treasury.Account{}, shared.NotFoundf("treasury account not found")
	}
	return a, nil
}

func (r *memoryPaymentRepo) AdjustTreasuryBalance(ctx context.Context, accountID int64, delta decimal.Decimal) error {
	a, ok := r.treasuries[accountID]
	if !ok {
		return shared.NotFoundf("treasury account not found")
	}
	a.Balance = a.Balance.Add(delta)
	r.treasuries[accountID] = a
	return nil
}

func (r *memoryPaymentRepo) GetConfig(ctx context.Context, orgID int64) (orgconfig.Config, error) {
	cfg, ok := r.configs[orgID]
	if !ok {
		return orgconfig.Config{}, shared.Validationf("organization has no accounting configuration")
	}
	return cfg, nil
}

func (r *memoryPaymentRepo) ContactExists(ctx context.Context, orgID, id int64) (bool, error) {
	org, ok := r.contacts[id]
	return ok && org == orgID, nil
}

func (r *memoryPaymentRepo) GetInvoiceForUpdate(ctx context.Context, orgID, id int64) (invoicing.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok || inv.OrgID != orgID {
		return invoicing.Invoice{}, shared.NotFoundf("invoice not found")
	}
	return inv, nil
}

func (r *memoryPaymentRepo) AdjustInvoiceBalances(ctx context.Context, invoiceID int64, delta decimal.Decimal) error {
	inv, ok := r.invoices[invoiceID]
	if !ok {
		return shared.NotFoundf("invoice not found")
	}
	inv.AmountAllocated = inv.AmountAllocated.Add(delta)
	inv.AmountRemaining = inv.AmountRemaining.Sub(delta)
	r.invoices[invoiceID] = inv
	return nil
}

func (r *memoryPaymentRepo) InsertJournalEntry(ctx context.Context, orgID int64, in journal.PostInput) (journal.Entry, error) {
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

func (r *memoryPaymentRepo) InsertPayment(ctx context.Context, p Payment) (Payment, error) {
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = time.Now()
	r.payments[p.ID] = p
	return p, nil
}

func (r *memoryPaymentRepo) InsertAllocation(ctx context.Context, a Allocation) (Allocation, error) {
	r.nextID++
	a.ID = r.nextID
	a.CreatedAt = time.Now()
	r.allocations = append(r.allocations, a)
	return a, nil
}

func (r *memoryPaymentRepo) GetPaymentForUpdate(ctx context.Context, orgID, id int64) (Payment, error) {
	p, ok := r.payments[id]
	if !ok || p.OrgID != orgID {
		return Payment{}, shared.NotFoundf("payment not found")
	}
	return p, nil
}

func (r *memoryPaymentRepo) AdjustPaymentBalances(ctx context.Context, paymentID int64, delta decimal.Decimal) error {
	p, ok := r.payments[paymentID]
	if !ok {
		return shared.NotFoundf("payment not found")
	}
	p.AmountAllocated = p.AmountAllocated.Add(delta)
	p.AmountRemaining = p.AmountRemaining.Sub(delta)
	r.payments[paymentID] = p
	return nil
}

func (r *memoryPaymentRepo) Get(ctx context.Context, orgID, id int64) (Payment, error) {
	return r.GetPaymentForUpdate(ctx, orgID, id)
}

func (r *memoryPaymentRepo) List(ctx context.Context, orgID int64) ([]Payment, error) {
	var out []Payment
	for _, p := range r.payments {
		if p.OrgID == orgID {
			out = append(out, p)
		}
	}
	return out, nil
}

const testOrg = int64(7)

func fixtureRepo() *memoryPaymentRepo {
	repo := newMemoryPaymentRepo()
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
	repo.treasuries[1] = treasury.Account{
		ID: 1, OrgID: testOrg, Name: "Caja", Method: treasury.MethodCash,
		Currency: "ARS", LedgerAccountID: 101, Balance: amt("1000.00"),
	}
	repo.contacts[5] = testOrg
	return repo
}

func salesInvoice(repo *memoryPaymentRepo, id int64, contactID int64, total string) {
	repo.invoices[id] = invoicing.Invoice{
		ID: id, OrgID: testOrg, Flow: invoicing.FlowSale, ContactID: ptr(contactID),
		TotalAmount:     amt(total),
		AmountAllocated: decimal.Zero,
		AmountRemaining: amt(total),
	}
}

func TestCreateCollectionWithDirectInvoiceLink(t *testing.T) {
	repo := fixtureRepo()
	salesInvoice(repo, 30, 5, "242.00")
	svc := NewService(repo, nil)

	p, err := svc.Create(context.Background(), testOrg, CreateInput{
		Type:              TypeCollection,
		Method:            treasury.MethodCash,
		Amount:            amt("242.00"),
		TreasuryAccountID: 1,
		InvoiceID:         ptr(30),
	})
	require.NoError(t, err)

	require.True(t, p.AmountAllocated.Equal(amt("242.00")))
	require.True(t, p.AmountRemaining.IsZero())
	require.Equal(t, ptr(5), p.ContactID)
	require.Len(t, p.Allocations, 1)

	inv := repo.invoices[30]
	require.True(t, inv.AmountRemaining.IsZero())
	require.True(t, inv.AmountAllocated.Equal(amt("242.00")))

	require.True(t, repo.treasuries[1].Balance.Equal(amt("1242.00")))

	// Collection: debit cash, credit receivables, for the full amount.
	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	require.Len(t, entry.Lines, 2)
	require.Equal(t, int64(101), entry.Lines[0].AccountID)
	require.True(t, entry.Lines[0].Debit.Equal(amt("242.00")))
	require.Equal(t, int64(110), entry.Lines[1].AccountID)
	require.True(t, entry.Lines[1].Credit.Equal(amt("242.00")))
}

func TestCreateStoresOrgScopedContact(t *testing.T) {
	repo := fixtureRepo()
	svc := NewService(repo, nil)

	p, err := svc.Create(context.Background(), testOrg, CreateInput{
		Type:              TypeCollection,
		Method:            treasury.MethodCash,
		Amount:            amt("50.00"),
		TreasuryAccountID: 1,
		ContactID:         ptr(5),
	})
	require.NoError(t, err)
	require.Equal(t, ptr(5), p.ContactID)
}

func TestCreateRejectsUnknownContact(t *testing.T) {
	repo := fixtureRepo()
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), testOrg, CreateInput{
		Type:              TypeCollection,
		Method:            treasury.MethodCash,
		Amount:            amt("50.00"),
		TreasuryAccountID: 1,
		ContactID:         ptr(999999),
	})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindNotFound))
	require.Empty(t, repo.payments)
	require.Empty(t, repo.entries)
	require.True(t, repo.treasuries[1].Balance.Equal(amt("1000.00")))
}

func TestCreateRejectsContactFromAnotherOrganization(t *testing.T) {
	repo := fixtureRepo()
	repo.contacts[6] = int64(99)
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), testOrg, CreateInput{
		Type:              TypeCollection,
		Method:            treasury.MethodCash,
		Amount:            amt("50.00"),
		TreasuryAccountID: 1,
		ContactID:         ptr(6),
	})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindNotFound))
	require.Empty(t, repo.payments)
}

func TestCreatePaymentRejectsOverdraft(t *testing.T) {
	repo := fixtureRepo()
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), testOrg, CreateInput{
		Type:              TypePayment,
		Method:            treasury.MethodCash,
		Amount:            amt("1000.01"),
		TreasuryAccountID: 1,
	})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindConflict))
	require.True(t, repo.treasuries[1].Balance.Equal(amt("1000.00")))
	require.Empty(t, repo.entries)
}

func TestCreatePaymentRejectsMethodMismatch(t *testing.T) {
	repo := fixtureRepo()
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), testOrg, CreateInput{
		Type:              TypePayment,
		Method:            treasury.MethodBankTransfer,
		Amount:            amt("10.00"),
		TreasuryAccountID: 1,
	})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindValidation))
}

func TestCreateCollectionRejectsFlowMismatch(t *testing.T) {
	repo := fixtureRepo()
	repo.invoices[40] = invoicing.Invoice{
		ID: 40, OrgID: testOrg, Flow: invoicing.FlowPurchase, ContactID: ptr(5),
		TotalAmount: amt("100.00"), AmountRemaining: amt("100.00"),
	}
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), testOrg, CreateInput{
		Type:              TypeCollection,
		Method:            treasury.MethodCash,
		Amount:            amt("100.00"),
		TreasuryAccountID: 1,
		InvoiceID:         ptr(40),
	})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindState))
	require.Empty(t, repo.payments)
}

func TestAllocateSpreadsAcrossInvoices(t *testing.T) {
	repo := fixtureRepo()
	salesInvoice(repo, 31, 5, "150.00")
	salesInvoice(repo, 32, 5, "200.00")
	svc := NewService(repo, nil)

	p, err := svc.Create(context.Background(), testOrg, CreateInput{
		Type:              TypeCollection,
		Method:            treasury.MethodCash,
		Amount:            amt("300.00"),
		TreasuryAccountID: 1,
		ContactID:         ptr(5),
	})
	require.NoError(t, err)
	require.True(t, p.AmountRemaining.Equal(amt("300.00")))

	updated, err := svc.Allocate(context.Background(), testOrg, p.ID, []AllocationInput{
		{InvoiceID: 31, Amount: amt("100.00")},
		{InvoiceID: 32, Amount: amt("150.00")},
	})
	require.NoError(t, err)
	require.True(t, updated.AmountAllocated.Equal(amt("250.00")))
	require.True(t, updated.AmountRemaining.Equal(amt("50.00")))

	require.Len(t, updated.Allocations, 2)
	require.Equal(t, int64(31), updated.Allocations[0].InvoiceID)
	require.True(t, updated.Allocations[0].Amount.Equal(amt("100.00")))
	require.Equal(t, int64(32), updated.Allocations[1].InvoiceID)
	require.True(t, updated.Allocations[1].Amount.Equal(amt("150.00")))

	require.True(t, repo.invoices[31].AmountRemaining.Equal(amt("50.00")))
	require.True(t, repo.invoices[32].AmountRemaining.Equal(amt("50.00")))
	require.Len(t, repo.allocations, 2)
}

func TestAllocateRejectsOverAllocationWithoutSideEffects(t *testing.T) {
	repo := fixtureRepo()
	salesInvoice(repo, 31, 5, "150.00")
	svc := NewService(repo, nil)

	p, err := svc.Create(context.Background(), testOrg, CreateInput{
		Type:              TypeCollection,
		Method:            treasury.MethodCash,
		Amount:            amt("100.00"),
		TreasuryAccountID: 1,
		ContactID:         ptr(5),
	})
	require.NoError(t, err)

	_, err = svc.Allocate(context.Background(), testOrg, p.ID, []AllocationInput{
		{InvoiceID: 31, Amount: amt("60.00")},
		{InvoiceID: 31, Amount: amt("60.00")},
	})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindConflict))

	// Nothing moved.
	require.Empty(t, repo.allocations)
	require.True(t, repo.payments[p.ID].AmountRemaining.Equal(amt("100.00")))
	require.True(t, repo.invoices[31].AmountRemaining.Equal(amt("150.00")))
}

func TestAllocateRejectsInvoiceOverflow(t *testing.T) {
	repo := fixtureRepo()
	salesInvoice(repo, 31, 5, "50.00")
	svc := NewService(repo, nil)

	p, err := svc.Create(context.Background(), testOrg, CreateInput{
		Type:              TypeCollection,
		Method:            treasury.MethodCash,
		Amount:            amt("100.00"),
		TreasuryAccountID: 1,
		ContactID:         ptr(5),
	})
	require.NoError(t, err)

	_, err = svc.Allocate(context.Background(), testOrg, p.ID, []AllocationInput{
		{InvoiceID: 31, Amount: amt("60.00")},
	})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindConflict))
	require.True(t, repo.invoices[31].AmountRemaining.Equal(amt("50.00")))
}

func TestAllocateRequiresContact(t *testing.T) {
	repo := fixtureRepo()
	salesInvoice(repo, 31, 5, "150.00")
	svc := NewService(repo, nil)

	p, err := svc.Create(context.Background(), testOrg, CreateInput{
		Type:              TypeCollection,
		Method:            treasury.MethodCash,
		Amount:            amt("100.00"),
		TreasuryAccountID: 1,
	})
	require.NoError(t, err)

	_, err = svc.Allocate(context.Background(), testOrg, p.ID, []AllocationInput{
		{InvoiceID: 31, Amount: amt("50.00")},
	})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindState))
}

func TestAllocateRejectsCrossContact(t *testing.T) {
	repo := fixtureRepo()
	salesInvoice(repo, 31, 5, "150.00")
	salesInvoice(repo, 32, 9, "150.00")
	svc := NewService(repo, nil)

	p, err := svc.Create(context.Background(), testOrg, CreateInput{
		Type:              TypeCollection,
		Method:            treasury.MethodCash,
		Amount:            amt("200.00"),
		TreasuryAccountID: 1,
		ContactID:         ptr(5),
	})
	require.NoError(t, err)

	_, err = svc.Allocate(context.Background(), testOrg, p.ID, []AllocationInput{
		{InvoiceID: 31, Amount: amt("50.00")},
		{InvoiceID: 32, Amount: amt("50.00")},
	})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindConflict))
	require.Empty(t, repo.allocations)
}

func TestAllocateDropsNonPositiveEntries(t *testing.T) {
	repo := fixtureRepo()
	salesInvoice(repo, 31, 5, "150.00")
	svc := NewService(repo, nil)

	p, err := svc.Create(context.Background(), testOrg, CreateInput{
		Type:              TypeCollection,
		Method:            treasury.MethodCash,
		Amount:            amt("100.00"),
		TreasuryAccountID: 1,
		ContactID:         ptr(5),
	})
	require.NoError(t, err)

	updated, err := svc.Allocate(context.Background(), testOrg, p.ID, []AllocationInput{
		{InvoiceID: 31, Amount: amt("-10.00")},
		{InvoiceID: 31, Amount: decimal.Zero},
		{InvoiceID: 31, Amount: amt("40.00")},
	})
	require.NoError(t, err)
	require.True(t, updated.AmountRemaining.Equal(amt("60.00")))
	require.Len(t, repo.allocations, 1)

	_, err = svc.Allocate(context.Background(), testOrg, p.ID, []AllocationInput{
		{InvoiceID: 31, Amount: decimal.Zero},
	})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindValidation))
}
