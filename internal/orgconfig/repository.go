package orgconfig

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andino-erp/andino-erp/internal/shared"
)

// Repository reads and writes the per-organization configuration.
type Repository interface {
	Get(ctx context.Context, orgID int64) (Config, error)
	Put(ctx context.Context, cfg Config) error
	AccountsExist(ctx context.Context, orgID int64, ids []int64) (bool, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, orgID int64) (Config, error) {
	var c Config
	err := r.db.QueryRow(ctx, `SELECT org_id, sales_account_id, sales_vat_account_id, receivables_account_id,
purchases_account_id, purchases_vat_account_id, payables_account_id, cash_account_id, bank_account_id
FROM accounting_configs WHERE org_id=$1`, orgID).
		Scan(&c.OrgID, &c.SalesAccountID, &c.SalesVATAccountID, &c.ReceivablesAccountID,
			&c.PurchasesAccountID, &c.PurchasesVATAccountID, &c.PayablesAccountID, &c.CashAccountID, &c.BankAccountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Config{}, shared.Validationf("organization has no accounting configuration")
		}
		return Config{}, err
	}
	return c, nil
}

// AccountsExist reports whether every id references a ledger account of the
// organization. Duplicate ids are counted once.
func (r *repository) AccountsExist(ctx context.Context, orgID int64, ids []int64) (bool, error) {
	if len(ids) == 0 {
		return true, nil
	}
	distinct := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		distinct[id] = struct{}{}
	}
	var known int
	err := r.db.QueryRow(ctx, `SELECT COUNT(DISTINCT id) FROM accounts WHERE org_id=$1 AND id = ANY($2)`, orgID, ids).Scan(&known)
	if err != nil {
		return false, err
	}
	return known == len(distinct), nil
}

func (r *repository) Put(ctx context.Context, cfg Config) error {
	_, err := r.db.Exec(ctx, `INSERT INTO accounting_configs (org_id, sales_account_id, sales_vat_account_id,
receivables_account_id, purchases_account_id, purchases_vat_account_id, payables_account_id, cash_account_id, bank_account_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (org_id) DO UPDATE SET sales_account_id=$2, sales_vat_account_id=$3, receivables_account_id=$4,
purchases_account_id=$5, purchases_vat_account_id=$6, payables_account_id=$7, cash_account_id=$8, bank_account_id=$9`,
		cfg.OrgID, cfg.SalesAccountID, cfg.SalesVATAccountID, cfg.ReceivablesAccountID,
		cfg.PurchasesAccountID, cfg.PurchasesVATAccountID, cfg.PayablesAccountID, cfg.CashAccountID, cfg.BankAccountID)
	return err
}
