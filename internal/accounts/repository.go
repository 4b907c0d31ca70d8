package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andino-erp/andino-erp/internal/shared"
)

// Repository encapsulates DB operations for the chart of accounts.
type Repository interface {
	Get(ctx context.Context, orgID, id int64) (Account, error)
	List(ctx context.Context, orgID int64) ([]Account, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a transaction.
type TxRepository interface {
	Get(ctx context.Context, orgID, id int64) (Account, error)
	Insert(ctx context.Context, a Account) (Account, error)
	Delete(ctx context.Context, orgID, id int64) error
	HasChildren(ctx context.Context, orgID, id int64) (bool, error)
	HasPostings(ctx context.Context, id int64) (bool, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, org_id, code, name, type, parent_id, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.OrgID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.NotFoundf("account not found")
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) Get(ctx context.Context, orgID, id int64) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE org_id=$1 AND id=$2`, orgID, id)
	return scanAccount(row)
}

func (r *repository) List(ctx context.Context, orgID int64) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE org_id=$1 ORDER BY code ASC`, orgID)
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

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepository{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) Get(ctx context.Context, orgID, id int64) (Account, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE org_id=$1 AND id=$2`, orgID, id)
	return scanAccount(row)
}

func (r *txRepository) Insert(ctx context.Context, a Account) (Account, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO accounts (org_id, code, name, type, parent_id)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at, updated_at`, a.OrgID, a.Code, a.Name, a.Type, a.ParentID)
	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, shared.Conflictf("account code %s already exists", a.Code)
		}
		return Account{}, err
	}
	return a, nil
}

func (r *txRepository) Delete(ctx context.Context, orgID, id int64) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM accounts WHERE org_id=$1 AND id=$2`, orgID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFoundf("account not found")
	}
	return nil
}

func (r *txRepository) HasChildren(ctx context.Context, orgID, id int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE org_id=$1 AND parent_id=$2)`, orgID, id).Scan(&exists)
	return exists, err
}

func (r *txRepository) HasPostings(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM journal_lines WHERE account_id=$1)`, id).Scan(&exists)
	return exists, err
}
