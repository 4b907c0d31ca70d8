package payments

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/andino-erp/andino-erp/internal/invoicing"
	"github.com/andino-erp/andino-erp/internal/journal"
	"github.com/andino-erp/andino-erp/internal/orgconfig"
	"github.com/andino-erp/andino-erp/internal/platform/db"
	"github.com/andino-erp/andino-erp/internal/shared"
	"github.com/andino-erp/andino-erp/internal/treasury"
)

// Repository encapsulates DB operations for payments and their allocations.
type Repository interface {
	Get(ctx context.Context, orgID, id int64) (Payment, error)
	List(ctx context.Context, orgID int64) ([]Payment, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes everything a payment posting or an allocation batch
// touches. Treasury, invoice and journal operations live here because they
// must share the payment's transaction.
type TxRepository interface {
	GetTreasuryForUpdate(ctx context.Context, orgID, id int64) (treasury.Account, error)
	AdjustTreasuryBalance(ctx context.Context, accountID int64, delta decimal.Decimal) error
	GetConfig(ctx context.Context, orgID int64) (orgconfig.Config, error)
	ContactExists(ctx context.Context, orgID, id int64) (bool, error)
	GetInvoiceForUpdate(ctx context.Context, orgID, id int64) (invoicing.Invoice, error)
	AdjustInvoiceBalances(ctx context.Context, invoiceID int64, delta decimal.Decimal) error
	InsertJournalEntry(ctx context.Context, orgID int64, in journal.PostInput) (journal.Entry, error)
	InsertPayment(ctx context.Context, p Payment) (Payment, error)
	InsertAllocation(ctx context.Context, a Allocation) (Allocation, error)
	GetPaymentForUpdate(ctx context.Context, orgID, id int64) (Payment, error)
	AdjustPaymentBalances(ctx context.Context, paymentID int64, delta decimal.Decimal) error
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

const paymentColumns = `id, org_id, type, method, amount, date, invoice_id, contact_id,
treasury_account_id, amount_allocated, amount_remaining, journal_entry_id, created_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	var amount, allocated, remaining string
	err := row.Scan(&p.ID, &p.OrgID, &p.Type, &p.Method, &amount, &p.Date, &p.InvoiceID, &p.ContactID,
		&p.TreasuryAccountID, &allocated, &remaining, &p.JournalEntryID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Payment{}, shared.NotFoundf("payment not found")
		}
		return Payment{}, err
	}
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return Payment{}, err
	}
	if p.AmountAllocated, err = decimal.NewFromString(allocated); err != nil {
		return Payment{}, err
	}
	if p.AmountRemaining, err = decimal.NewFromString(remaining); err != nil {
		return Payment{}, err
	}
	return p, nil
}

func (r *repository) Get(ctx context.Context, orgID, id int64) (Payment, error) {
	p, err := scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE org_id=$1 AND id=$2`, orgID, id))
	if err != nil {
		return Payment{}, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, payment_id, invoice_id, retention_id, amount, notes, created_at
FROM payment_allocations WHERE payment_id=$1 ORDER BY id`, p.ID)
	if err != nil {
		return Payment{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var a Allocation
		var amount string
		if err := rows.Scan(&a.ID, &a.PaymentID, &a.InvoiceID, &a.RetentionID, &amount, &a.Notes, &a.CreatedAt); err != nil {
			return Payment{}, err
		}
		if a.Amount, err = decimal.NewFromString(amount); err != nil {
			return Payment{}, err
		}
		p.Allocations = append(p.Allocations, a)
	}
	return p, rows.Err()
}

func (r *repository) List(ctx context.Context, orgID int64) ([]Payment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE org_id=$1 ORDER BY date DESC, id DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var payments []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetTreasuryForUpdate(ctx context.Context, orgID, id int64) (treasury.Account, error) {
	return treasury.GetForUpdateTx(ctx, r.tx, orgID, id)
}

func (r *txRepository) AdjustTreasuryBalance(ctx context.Context, accountID int64, delta decimal.Decimal) error {
	return treasury.AdjustBalanceTx(ctx, r.tx, accountID, delta)
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

func (r *txRepository) ContactExists(ctx context.Context, orgID, id int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM contacts WHERE org_id=$1 AND id=$2)`, orgID, id).Scan(&exists)
	return exists, err
}

func (r *txRepository) GetInvoiceForUpdate(ctx context.Context, orgID, id int64) (invoicing.Invoice, error) {
	return invoicing.GetForUpdateTx(ctx, r.tx, orgID, id)
}

func (r *txRepository) AdjustInvoiceBalances(ctx context.Context, invoiceID int64, delta decimal.Decimal) error {
	return invoicing.AdjustBalancesTx(ctx, r.tx, invoiceID, delta)
}

func (r *txRepository) InsertJournalEntry(ctx context.Context, orgID int64, in journal.PostInput) (journal.Entry, error) {
	if err := in.Validate(); err != nil {
		return journal.Entry{}, err
	}
	return journal.InsertEntryTx(ctx, r.tx, orgID, in)
}

func (r *txRepository) InsertPayment(ctx context.Context, p Payment) (Payment, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO payments (org_id, type, method, amount, date, invoice_id, contact_id,
treasury_account_id, amount_allocated, amount_remaining, journal_entry_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id, created_at`,
		p.OrgID, p.Type, p.Method, p.Amount, p.Date, p.InvoiceID, p.ContactID,
		p.TreasuryAccountID, p.AmountAllocated, p.AmountRemaining, p.JournalEntryID).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return Payment{}, err
	}
	return p, nil
}

func (r *txRepository) InsertAllocation(ctx context.Context, a Allocation) (Allocation, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO payment_allocations (payment_id, invoice_id, retention_id, amount, notes)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at`,
		a.PaymentID, a.InvoiceID, a.RetentionID, a.Amount, a.Notes).
		Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return Allocation{}, err
	}
	return a, nil
}

func (r *txRepository) GetPaymentForUpdate(ctx context.Context, orgID, id int64) (Payment, error) {
	return scanPayment(r.tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE org_id=$1 AND id=$2 FOR UPDATE`, orgID, id))
}

// AdjustPaymentBalances moves delta from remaining to allocated with atomic
// increments, preserving allocated + remaining == amount.
func (r *txRepository) AdjustPaymentBalances(ctx context.Context, paymentID int64, delta decimal.Decimal) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE payments SET amount_allocated = amount_allocated + $2,
amount_remaining = amount_remaining - $2 WHERE id=$1`, paymentID, delta)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFoundf("payment not found")
	}
	return nil
}
