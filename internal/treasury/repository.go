package treasury

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/andino-erp/andino-erp/internal/shared"
)

// Repository encapsulates DB operations for treasury accounts.
type Repository interface {
	Get(ctx context.Context, orgID, id int64) (Account, error)
	List(ctx context.Context, orgID int64) ([]Account, error)
	Insert(ctx context.Context, a Account) (Account, error)
	LedgerAccountExists(ctx context.Context, orgID, id int64) (bool, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, org_id, name, method, currency, ledger_account_id, balance, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	var balance string
	err := row.Scan(&a.ID, &a.OrgID, &a.Name, &a.Method, &a.Currency, &a.LedgerAccountID, &balance, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.NotFoundf("treasury account not found")
		}
		return Account{}, err
	}
	if a.Balance, err = decimal.NewFromString(balance); err != nil {
		return Account{}, err
	}
	return a, nil
}

func (r *repository) Get(ctx context.Context, orgID, id int64) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM treasury_accounts WHERE org_id=$1 AND id=$2`, orgID, id)
	return scanAccount(row)
}

func (r *repository) List(ctx context.Context, orgID int64) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM treasury_accounts WHERE org_id=$1 ORDER BY name ASC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) Insert(ctx context.Context, a Account) (Account, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO treasury_accounts (org_id, name, method, currency, ledger_account_id, balance)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at, updated_at`,
		a.OrgID, a.Name, a.Method, a.Currency, a.LedgerAccountID, a.Balance)
	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return Account{}, err
	}
	return a, nil
}

func (r *repository) LedgerAccountExists(ctx context.Context, orgID, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE org_id=$1 AND id=$2)`, orgID, id).Scan(&exists)
	return exists, err
}

// GetForUpdateTx locks the account row inside the caller's transaction.
// Payments lock before checking overdraft so two concurrent outflows cannot
// both pass the balance check.
func GetForUpdateTx(ctx context.Context, tx pgx.Tx, orgID, id int64) (Account, error) {
	row := tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM treasury_accounts WHERE org_id=$1 AND id=$2 FOR UPDATE`, orgID, id)
	return scanAccount(row)
}

// AdjustBalanceTx applies a signed delta with an atomic increment. The
// balance is never overwritten from a stale read.
func AdjustBalanceTx(ctx context.Context, tx pgx.Tx, id int64, delta decimal.Decimal) error {
	cmd, err := tx.Exec(ctx, `UPDATE treasury_accounts SET balance = balance + $2, updated_at = NOW() WHERE id=$1`, id, delta)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFoundf("treasury account not found")
	}
	return nil
}
