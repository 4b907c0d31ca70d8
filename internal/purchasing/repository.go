package purchasing

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/andino-erp/andino-erp/internal/platform/db"
	"github.com/andino-erp/andino-erp/internal/shared"
)

// Repository encapsulates DB operations for purchase orders.
type Repository interface {
	Get(ctx context.Context, orgID, id int64) (PurchaseOrder, error)
	List(ctx context.Context, orgID int64) ([]PurchaseOrder, error)
	InvoicedQuantities(ctx context.Context, orderID int64) (map[int64]decimal.Decimal, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a transaction.
type TxRepository interface {
	Insert(ctx context.Context, po PurchaseOrder) (PurchaseOrder, error)
	GetForUpdate(ctx context.Context, orgID, id int64) (PurchaseOrder, error)
	SetStatus(ctx context.Context, id int64, status Status, at time.Time) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

const orderColumns = `id, org_id, contact_id, status, issue_date, expected_date, subtotal, vat, total,
invoiced_amount, invoiced_at, approved_at, rejected_at, created_at, updated_at`

func scanOrder(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	var subtotal, vat, total, invoiced string
	err := row.Scan(&po.ID, &po.OrgID, &po.ContactID, &po.Status, &po.IssueDate, &po.ExpectedDate,
		&subtotal, &vat, &total, &invoiced, &po.InvoicedAt, &po.ApprovedAt, &po.RejectedAt, &po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, shared.NotFoundf("purchase order not found")
		}
		return PurchaseOrder{}, err
	}
	if po.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
		return PurchaseOrder{}, err
	}
	if po.VAT, err = decimal.NewFromString(vat); err != nil {
		return PurchaseOrder{}, err
	}
	if po.Total, err = decimal.NewFromString(total); err != nil {
		return PurchaseOrder{}, err
	}
	if po.InvoicedAmount, err = decimal.NewFromString(invoiced); err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}

func orderItems(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, orderID int64) ([]Item, error) {
	rows, err := q.Query(ctx, `SELECT id, order_id, product_id, description, quantity, unit_price, vat_rate, total
FROM purchase_order_items WHERE order_id=$1 ORDER BY id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var item Item
		var qty, price, rate, total string
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Description, &qty, &price, &rate, &total); err != nil {
			return nil, err
		}
		if item.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		if item.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		if item.VATRate, err = decimal.NewFromString(rate); err != nil {
			return nil, err
		}
		if item.Total, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *repository) Get(ctx context.Context, orgID, id int64) (PurchaseOrder, error) {
	po, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE org_id=$1 AND id=$2`, orgID, id))
	if err != nil {
		return PurchaseOrder{}, err
	}
	if po.Items, err = orderItems(ctx, r.db, id); err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}

func (r *repository) List(ctx context.Context, orgID int64) ([]PurchaseOrder, error) {
	rows, err := r.db.Query(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE org_id=$1 ORDER BY id DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PurchaseOrder
	for rows.Next() {
		po, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, po)
	}
	return out, rows.Err()
}

func (r *repository) InvoicedQuantities(ctx context.Context, orderID int64) (map[int64]decimal.Decimal, error) {
	rows, err := r.db.Query(ctx, `SELECT purchase_order_item_id, COALESCE(SUM(quantity), 0)
FROM invoice_items WHERE purchase_order_item_id IN (SELECT id FROM purchase_order_items WHERE order_id=$1)
GROUP BY purchase_order_item_id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInvoicedQuantities(rows)
}

func scanInvoicedQuantities(rows pgx.Rows) (map[int64]decimal.Decimal, error) {
	out := make(map[int64]decimal.Decimal)
	for rows.Next() {
		var itemID int64
		var qty string
		if err := rows.Scan(&itemID, &qty); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(qty)
		if err != nil {
			return nil, err
		}
		out[itemID] = d
	}
	return out, rows.Err()
}

func (r *txRepository) Insert(ctx context.Context, po PurchaseOrder) (PurchaseOrder, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO purchase_orders (org_id, contact_id, status, issue_date, expected_date, subtotal, vat, total, invoiced_amount)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,0) RETURNING id, created_at, updated_at`,
		po.OrgID, po.ContactID, po.Status, po.IssueDate, po.ExpectedDate, po.Subtotal, po.VAT, po.Total)
	if err := row.Scan(&po.ID, &po.CreatedAt, &po.UpdatedAt); err != nil {
		return PurchaseOrder{}, err
	}
	for i := range po.Items {
		item := &po.Items[i]
		item.OrderID = po.ID
		err := r.tx.QueryRow(ctx, `INSERT INTO purchase_order_items (order_id, product_id, description, quantity, unit_price, vat_rate, total)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
			po.ID, item.ProductID, item.Description, item.Quantity, item.UnitPrice, item.VATRate, item.Total).Scan(&item.ID)
		if err != nil {
			return PurchaseOrder{}, err
		}
	}
	return po, nil
}

func (r *txRepository) GetForUpdate(ctx context.Context, orgID, id int64) (PurchaseOrder, error) {
	return GetForUpdateTx(ctx, r.tx, orgID, id)
}

func (r *txRepository) SetStatus(ctx context.Context, id int64, status Status, at time.Time) error {
	var column string
	switch status {
	case StatusApproved:
		column = "approved_at"
	case StatusRejected:
		column = "rejected_at"
	default:
		return shared.Statef("cannot transition purchase order to %s", status)
	}
	cmd, err := r.tx.Exec(ctx, `UPDATE purchase_orders SET status=$2, `+column+`=$3, updated_at=NOW() WHERE id=$1`, id, status, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFoundf("purchase order not found")
	}
	return nil
}

// GetForUpdateTx locks the order row inside the caller's transaction.
// Invoicing locks the order before consuming its quantity budget so two
// concurrent invoices cannot both pass the availability check.
func GetForUpdateTx(ctx context.Context, tx pgx.Tx, orgID, id int64) (PurchaseOrder, error) {
	po, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE org_id=$1 AND id=$2 FOR UPDATE`, orgID, id))
	if err != nil {
		return PurchaseOrder{}, err
	}
	if po.Items, err = orderItems(ctx, tx, id); err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}

// InvoicedQuantitiesTx sums consumed quantities per order item inside the
// caller's transaction.
func InvoicedQuantitiesTx(ctx context.Context, tx pgx.Tx, orderID int64) (map[int64]decimal.Decimal, error) {
	rows, err := tx.Query(ctx, `SELECT purchase_order_item_id, COALESCE(SUM(quantity), 0)
FROM invoice_items WHERE purchase_order_item_id IN (SELECT id FROM purchase_order_items WHERE order_id=$1)
GROUP BY purchase_order_item_id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInvoicedQuantities(rows)
}

// AddInvoicedAmountTx increments the running invoiced amount and stamps
// invoiced_at, inside the caller's transaction.
func AddInvoicedAmountTx(ctx context.Context, tx pgx.Tx, id int64, delta decimal.Decimal, at time.Time) error {
	cmd, err := tx.Exec(ctx, `UPDATE purchase_orders SET invoiced_amount = invoiced_amount + $2, invoiced_at=$3, updated_at=NOW() WHERE id=$1`, id, delta, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFoundf("purchase order not found")
	}
	return nil
}
