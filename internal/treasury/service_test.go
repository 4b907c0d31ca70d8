package treasury

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/andino-erp/andino-erp/internal/shared"
)

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type memoryTreasuryRepo struct {
	accounts  map[int64]Account
	ledger    map[int64]int64 // ledger account id -> org id
	listCalls int
	nextID    int64
}

func newMemoryTreasuryRepo() *memoryTreasuryRepo {
	return &memoryTreasuryRepo{
		accounts: make(map[int64]Account),
		ledger:   map[int64]int64{101: testOrg},
	}
}

func (r *memoryTreasuryRepo) Get(ctx context.Context, orgID, id int64) (Account, error) {
	a, ok := r.accounts[id]
	if !ok || a.OrgID != orgID {
		return Account{}, shared.NotFoundf("treasury account not found")
	}
	return a, nil
}

func (r *memoryTreasuryRepo) List(ctx context.Context, orgID int64) ([]Account, error) {
	r.listCalls++
	var out []Account
	for _, a := range r.accounts {
		if a.OrgID == orgID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memoryTreasuryRepo) LedgerAccountExists(ctx context.Context, orgID, id int64) (bool, error) {
	org, ok := r.ledger[id]
	return ok && org == orgID, nil
}

func (r *memoryTreasuryRepo) Insert(ctx context.Context, a Account) (Account, error) {
	r.nextID++
	a.ID = r.nextID
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.accounts[a.ID] = a
	return a, nil
}

type fakeBalanceCache struct {
	stored map[int64][]CachedBalance
}

func newFakeBalanceCache() *fakeBalanceCache {
	return &fakeBalanceCache{stored: make(map[int64][]CachedBalance)}
}

func (c *fakeBalanceCache) GetBalances(ctx context.Context, orgID int64) ([]CachedBalance, bool, error) {
	balances, ok := c.stored[orgID]
	return balances, ok, nil
}

func (c *fakeBalanceCache) SetBalances(ctx context.Context, orgID int64, balances []CachedBalance) error {
	c.stored[orgID] = balances
	return nil
}

const testOrg = int64(7)

func TestCreateDefaultsAndValidates(t *testing.T) {
	repo := newMemoryTreasuryRepo()
	svc := NewService(repo, nil)

	account, err := svc.Create(context.Background(), testOrg, CreateInput{
		Name:            "Caja Central",
		Method:          MethodCash,
		LedgerAccountID: 101,
	})
	require.NoError(t, err)
	require.Equal(t, "ARS", account.Currency)
	require.True(t, account.Balance.IsZero())

	_, err = svc.Create(context.Background(), testOrg, CreateInput{Method: MethodCash, LedgerAccountID: 101})
	require.True(t, shared.IsKind(err, shared.KindValidation))

	_, err = svc.Create(context.Background(), testOrg, CreateInput{Name: "x", Method: "WIRE", LedgerAccountID: 101})
	require.True(t, shared.IsKind(err, shared.KindValidation))

	_, err = svc.Create(context.Background(), testOrg, CreateInput{Name: "x", Method: MethodCash})
	require.True(t, shared.IsKind(err, shared.KindValidation))
}

func TestCreateRejectsForeignLedgerAccount(t *testing.T) {
	repo := newMemoryTreasuryRepo()
	repo.ledger[300] = int64(99)
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), testOrg, CreateInput{
		Name: "Banco", Method: MethodBankTransfer, LedgerAccountID: 300,
	})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindNotFound))

	_, err = svc.Create(context.Background(), testOrg, CreateInput{
		Name: "Banco", Method: MethodBankTransfer, LedgerAccountID: 9999,
	})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindNotFound))
	require.Empty(t, repo.accounts)
}

func TestBalancesPopulatesCacheOnMiss(t *testing.T) {
	repo := newMemoryTreasuryRepo()
	repo.accounts[1] = Account{ID: 1, OrgID: testOrg, Name: "Caja", Method: MethodCash, Currency: "ARS",
		LedgerAccountID: 101, Balance: amt("1500.50")}
	cache := newFakeBalanceCache()
	svc := NewService(repo, cache)

	balances, err := svc.Balances(context.Background(), testOrg)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	require.Equal(t, "1500.50", balances[0].Balance)
	require.Len(t, cache.stored[testOrg], 1)
}

func TestBalancesServesFromCache(t *testing.T) {
	repo := newMemoryTreasuryRepo()
	cache := newFakeBalanceCache()
	cache.stored[testOrg] = []CachedBalance{{AccountID: 1, Name: "Caja", Balance: "10.00"}}
	svc := NewService(repo, cache)

	balances, err := svc.Balances(context.Background(), testOrg)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	require.Equal(t, 0, repo.listCalls)
}
