package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/andino-erp/andino-erp/internal/shared"
)

// Repository reads products outside a transaction. Stock mutation happens
// through the invoicing transaction, not here.
type Repository interface {
	Get(ctx context.Context, orgID, id int64) (Product, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, orgID, id int64) (Product, error) {
	var p Product
	var qty string
	err := r.db.QueryRow(ctx, `SELECT id, org_id, name, stockable, stock_qty, sales_account_id, purchases_account_id
FROM products WHERE org_id=$1 AND id=$2`, orgID, id).
		Scan(&p.ID, &p.OrgID, &p.Name, &p.Stockable, &qty, &p.SalesAccountID, &p.PurchasesAccountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.NotFoundf("product not found")
		}
		return Product{}, err
	}
	p.StockQty, err = decimal.NewFromString(qty)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}
