package treasury

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/andino-erp/andino-erp/internal/shared"
)

// BalanceCache invalidates and serves cached balance summaries. Payment
// postings bump the version; reads go through GetBalances.
type BalanceCache interface {
	GetBalances(ctx context.Context, orgID int64) ([]CachedBalance, bool, error)
	SetBalances(ctx context.Context, orgID int64, balances []CachedBalance) error
}

// CachedBalance is the read-side projection served by the balances endpoint.
type CachedBalance struct {
	AccountID int64  `json:"accountId"`
	Name      string `json:"name"`
	Method    string `json:"method"`
	Currency  string `json:"currency"`
	Balance   string `json:"balance"`
}

type Service struct {
	repo  Repository
	cache BalanceCache
}

func NewService(repo Repository, cache BalanceCache) *Service {
	return &Service{repo: repo, cache: cache}
}

// CreateInput carries fields for a new treasury account.
type CreateInput struct {
	Name            string
	Method          PaymentMethod
	Currency        string
	LedgerAccountID int64
}

func (s *Service) Create(ctx context.Context, orgID int64, input CreateInput) (Account, error) {
	if strings.TrimSpace(input.Name) == "" {
		return Account{}, shared.Validationf("treasury account name is required")
	}
	if !input.Method.Valid() {
		return Account{}, shared.Validationf("unknown payment method %q", input.Method)
	}
	if input.LedgerAccountID == 0 {
		return Account{}, shared.Validationf("treasury account requires a linked ledger account")
	}
	ok, err := s.repo.LedgerAccountExists(ctx, orgID, input.LedgerAccountID)
	if err != nil {
		return Account{}, err
	}
	if !ok {
		return Account{}, shared.NotFoundf("ledger account %d not found", input.LedgerAccountID)
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "ARS"
	}
	return s.repo.Insert(ctx, Account{
		OrgID:           orgID,
		Name:            strings.TrimSpace(input.Name),
		Method:          input.Method,
		Currency:        currency,
		LedgerAccountID: input.LedgerAccountID,
		Balance:         decimal.Zero,
	})
}

func (s *Service) Get(ctx context.Context, orgID, id int64) (Account, error) {
	return s.repo.Get(ctx, orgID, id)
}

func (s *Service) List(ctx context.Context, orgID int64) ([]Account, error) {
	return s.repo.List(ctx, orgID)
}

// Balances serves the balance summary through the cache when available.
func (s *Service) Balances(ctx context.Context, orgID int64) ([]CachedBalance, error) {
	if s.cache != nil {
		if cached, ok, err := s.cache.GetBalances(ctx, orgID); err == nil && ok {
			return cached, nil
		}
	}
	list, err := s.repo.List(ctx, orgID)
	if err != nil {
		return nil, err
	}
	out := make([]CachedBalance, 0, len(list))
	for _, a := range list {
		out = append(out, CachedBalance{
			AccountID: a.ID,
			Name:      a.Name,
			Method:    string(a.Method),
			Currency:  a.Currency,
			Balance:   a.Balance.StringFixed(2),
		})
	}
	if s.cache != nil {
		_ = s.cache.SetBalances(ctx, orgID, out)
	}
	return out, nil
}
