package invoicing

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/andino-erp/andino-erp/internal/catalog"
	"github.com/andino-erp/andino-erp/internal/contacts"
	"github.com/andino-erp/andino-erp/internal/journal"
	"github.com/andino-erp/andino-erp/internal/orgconfig"
	"github.com/andino-erp/andino-erp/internal/platform/db"
	"github.com/andino-erp/andino-erp/internal/purchasing"
	"github.com/andino-erp/andino-erp/internal/shared"
)

// Repository encapsulates DB operations for invoices.
type Repository interface {
	Get(ctx context.Context, orgID, id int64) (Invoice, error)
	List(ctx context.Context, orgID int64) ([]Invoice, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes everything invoice creation touches. Order, product,
// contact and journal operations live here rather than in their own
// repositories because they must share the invoice's transaction.
type TxRepository interface {
	GetOrderForUpdate(ctx context.Context, orgID, id int64) (purchasing.PurchaseOrder, error)
	InvoicedQuantities(ctx context.Context, orderID int64) (map[int64]decimal.Decimal, error)
	AddOrderInvoicedAmount(ctx context.Context, orderID int64, delta decimal.Decimal, at time.Time) error
	GetContact(ctx context.Context, orgID, id int64) (contacts.Contact, error)
	GetConfig(ctx context.Context, orgID int64) (orgconfig.Config, error)
	GetProduct(ctx context.Context, orgID, id int64) (catalog.Product, error)
	AdjustProductStock(ctx context.Context, productID int64, delta decimal.Decimal) error
	DocumentExists(ctx context.Context, key DocumentKey) (bool, error)
	InsertJournalEntry(ctx context.Context, orgID int64, in journal.PostInput) (journal.Entry, error)
	InsertInvoice(ctx context.Context, inv Invoice) (Invoice, error)
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

const invoiceColumns = `id, org_id, flow, letter, point_of_sale, number, date, due_date, contact_id,
contact_name, contact_cuit, contact_address, net_amount, vat_amount, total_amount,
amount_allocated, amount_remaining, purchase_order_id, journal_entry_id, created_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	var net, vat, total, allocated, remaining string
	err := row.Scan(&inv.ID, &inv.OrgID, &inv.Flow, &inv.Letter, &inv.PointOfSale, &inv.Number,
		&inv.Date, &inv.DueDate, &inv.ContactID, &inv.ContactName, &inv.ContactCUIT, &inv.ContactAddress,
		&net, &vat, &total, &allocated, &remaining, &inv.PurchaseOrderID, &inv.JournalEntryID, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, shared.NotFoundf("invoice not found")
		}
		return Invoice{}, err
	}
	if inv.NetAmount, err = decimal.NewFromString(net); err != nil {
		return Invoice{}, err
	}
	if inv.VATAmount, err = decimal.NewFromString(vat); err != nil {
		return Invoice{}, err
	}
	if inv.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return Invoice{}, err
	}
	if inv.AmountAllocated, err = decimal.NewFromString(allocated); err != nil {
		return Invoice{}, err
	}
	if inv.AmountRemaining, err = decimal.NewFromString(remaining); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

func invoiceItems(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, invoiceID int64) ([]Item, error) {
	rows, err := q.Query(ctx, `SELECT id, invoice_id, product_id, description, quantity, unit_price, vat_rate, total, purchase_order_item_id
FROM invoice_items WHERE invoice_id=$1 ORDER BY id ASC`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var item Item
		var qty, price, rate, total string
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.ProductID, &item.Description, &qty, &price, &rate, &total, &item.PurchaseOrderItemID); err != nil {
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

func (r *repository) Get(ctx context.Context, orgID, id int64) (Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE org_id=$1 AND id=$2`, orgID, id))
	if err != nil {
		return Invoice{}, err
	}
	if inv.Items, err = invoiceItems(ctx, r.db, id); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

func (r *repository) List(ctx context.Context, orgID int64) ([]Invoice, error) {
	rows, err := r.db.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE org_id=$1 ORDER BY id DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetOrderForUpdate(ctx context.Context, orgID, id int64) (purchasing.PurchaseOrder, error) {
	return purchasing.GetForUpdateTx(ctx, r.tx, orgID, id)
}

func (r *txRepository) InvoicedQuantities(ctx context.Context, orderID int64) (map[int64]decimal.Decimal, error) {
	return purchasing.InvoicedQuantitiesTx(ctx, r.tx, orderID)
}

func (r *txRepository) AddOrderInvoicedAmount(ctx context.Context, orderID int64, delta decimal.Decimal, at time.Time) error {
	return purchasing.AddInvoicedAmountTx(ctx, r.tx, orderID, delta, at)
}

func (r *txRepository) GetContact(ctx context.Context, orgID, id int64) (contacts.Contact, error) {
	var c contacts.Contact
	err := r.tx.QueryRow(ctx, `SELECT id, org_id, name, cuit, address, created_at, updated_at
FROM contacts WHERE org_id=$1 AND id=$2`, orgID, id).
		Scan(&c.ID, &c.OrgID, &c.Name, &c.CUIT, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return contacts.Contact{}, shared.NotFoundf("contact not found")
		}
		return contacts.Contact{}, err
	}
	return c, nil
}

func (r *txRepository) GetConfig(ctx context.Context, orgID int64) (orgconfig.Config, error) {
	var c orgconfig.Config
	err := r.tx.QueryRow(ctx, `SELECT org_id, sales_account_id, sales_vat_account_id, receivables_account_id,
purchases_account_id, purchases_vat_account_id, payables_account_id, cash_account_id, bank_account_id
FROM accounting_configs WHERE org_id=$1`, orgID).
		Scan(&c.OrgID, &c.SalesAccountID, &c.SalesVATAccountID, &c.ReceivablesAccountID,
			&c.PurchasesAccountID, &c.PurchasesVATAccountID, &c.PayablesAccountID, &c.CashAccountID, &c.BankAccountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return orgconfig.Config{}, shared.Validationf("organization has no accounting configuration")
		}
		return orgconfig.Config{}, err
	}
	return c, nil
}

func (r *txRepository) GetProduct(ctx context.Context, orgID, id int64) (catalog.Product, error) {
	var p catalog.Product
	var qty string
	err := r.tx.QueryRow(ctx, `SELECT id, org_id, name, stockable, stock_qty, sales_account_id, purchases_account_id
FROM products WHERE org_id=$1 AND id=$2 FOR UPDATE`, orgID, id).
		Scan(&p.ID, &p.OrgID, &p.Name, &p.Stockable, &qty, &p.SalesAccountID, &p.PurchasesAccountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Product{}, shared.NotFoundf("product not found")
		}
		return catalog.Product{}, err
	}
	if p.StockQty, err = decimal.NewFromString(qty); err != nil {
		return catalog.Product{}, err
	}
	return p, nil
}

func (r *txRepository) AdjustProductStock(ctx context.Context, productID int64, delta decimal.Decimal) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE products SET stock_qty = stock_qty + $2 WHERE id=$1`, productID, delta)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFoundf("product not found")
	}
	return nil
}

func (r *txRepository) DocumentExists(ctx context.Context, key DocumentKey) (bool, error) {
	var exists bool
	var err error
	if key.Flow == FlowPurchase {
		err = r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invoices
WHERE org_id=$1 AND flow=$2 AND letter=$3 AND point_of_sale=$4 AND number=$5 AND contact_id=$6)`,
			key.OrgID, key.Flow, key.Letter, key.PointOfSale, key.Number, key.ContactID).Scan(&exists)
	} else {
		err = r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invoices
WHERE org_id=$1 AND flow=$2 AND letter=$3 AND point_of_sale=$4 AND number=$5)`,
			key.OrgID, key.Flow, key.Letter, key.PointOfSale, key.Number).Scan(&exists)
	}
	return exists, err
}

func (r *txRepository) InsertJournalEntry(ctx context.Context, orgID int64, in journal.PostInput) (journal.Entry, error) {
	if err := in.Validate(); err != nil {
		return journal.Entry{}, err
	}
	return journal.InsertEntryTx(ctx, r.tx, orgID, in)
}

func (r *txRepository) InsertInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO invoices (org_id, flow, letter, point_of_sale, number, date, due_date,
contact_id, contact_name, contact_cuit, contact_address, net_amount, vat_amount, total_amount,
amount_allocated, amount_remaining, purchase_order_id, journal_entry_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18) RETURNING id, created_at`,
		inv.OrgID, inv.Flow, inv.Letter, inv.PointOfSale, inv.Number, inv.Date, inv.DueDate,
		inv.ContactID, inv.ContactName, inv.ContactCUIT, inv.ContactAddress,
		inv.NetAmount, inv.VATAmount, inv.TotalAmount, inv.AmountAllocated, inv.AmountRemaining,
		inv.PurchaseOrderID, inv.JournalEntryID)
	if err := row.Scan(&inv.ID, &inv.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Invoice{}, shared.Conflictf("invoice %s %s %04d-%08d already exists", inv.Flow, inv.Letter, inv.PointOfSale, inv.Number)
		}
		return Invoice{}, err
	}
	for i := range inv.Items {
		item := &inv.Items[i]
		item.InvoiceID = inv.ID
		err := r.tx.QueryRow(ctx, `INSERT INTO invoice_items (invoice_id, product_id, description, quantity, unit_price, vat_rate, total, purchase_order_item_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
			inv.ID, item.ProductID, item.Description, item.Quantity, item.UnitPrice, item.VATRate, item.Total, item.PurchaseOrderItemID).Scan(&item.ID)
		if err != nil {
			return Invoice{}, err
		}
	}
	return inv, nil
}

// GetForUpdateTx locks an invoice row inside the caller's transaction.
// Payments and retentions lock before checking the remaining balance so
// concurrent allocations cannot overshoot it together.
func GetForUpdateTx(ctx context.Context, tx pgx.Tx, orgID, id int64) (Invoice, error) {
	return scanInvoice(tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE org_id=$1 AND id=$2 FOR UPDATE`, orgID, id))
}

// AdjustBalancesTx moves delta from remaining to allocated with atomic
// increments, preserving allocated + remaining == total.
func AdjustBalancesTx(ctx context.Context, tx pgx.Tx, invoiceID int64, delta decimal.Decimal) error {
	cmd, err := tx.Exec(ctx, `UPDATE invoices SET amount_allocated = amount_allocated + $2,
amount_remaining = amount_remaining - $2 WHERE id=$1`, invoiceID, delta)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFoundf("invoice not found")
	}
	return nil
}
