package retention

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/andino-erp/andino-erp/internal/invoicing"
	"github.com/andino-erp/andino-erp/internal/platform/db"
	"github.com/andino-erp/andino-erp/internal/shared"
)

// Repository encapsulates DB operations for retention settings and
// certificates.
type Repository interface {
	GetSetting(ctx context.Context, orgID, id int64) (Setting, error)
	ListSettings(ctx context.Context, orgID int64) ([]Setting, error)
	InsertSetting(ctx context.Context, s Setting) (Setting, error)
	LedgerAccountExists(ctx context.Context, orgID, id int64) (bool, error)
	ListByInvoice(ctx context.Context, orgID, invoiceID int64) ([]Retention, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository covers the certificate write and the invoice balance
// adjustment that must share its transaction.
type TxRepository interface {
	GetSetting(ctx context.Context, orgID, id int64) (Setting, error)
	GetInvoiceForUpdate(ctx context.Context, orgID, id int64) (invoicing.Invoice, error)
	AdjustInvoiceBalances(ctx context.Context, invoiceID int64, delta decimal.Decimal) error
	InsertRetention(ctx context.Context, ret Retention) (Retention, error)
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

const settingColumns = `id, org_id, name, code, description, applies_to, default_rate,
receivable_account_id, payable_account_id, created_at, updated_at`

func scanSetting(row pgx.Row) (Setting, error) {
	var s Setting
	var rate string
	err := row.Scan(&s.ID, &s.OrgID, &s.Name, &s.Code, &s.Description, &s.AppliesTo, &rate,
		&s.ReceivableAccountID, &s.PayableAccountID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Setting{}, shared.NotFoundf("retention setting not found")
		}
		return Setting{}, err
	}
	if s.DefaultRate, err = decimal.NewFromString(rate); err != nil {
		return Setting{}, err
	}
	return s, nil
}

func getSetting(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, orgID, id int64) (Setting, error) {
	return scanSetting(q.QueryRow(ctx, `SELECT `+settingColumns+` FROM retention_settings WHERE org_id=$1 AND id=$2`, orgID, id))
}

func (r *repository) GetSetting(ctx context.Context, orgID, id int64) (Setting, error) {
	return getSetting(ctx, r.db, orgID, id)
}

func (r *repository) ListSettings(ctx context.Context, orgID int64) ([]Setting, error) {
	rows, err := r.db.Query(ctx, `SELECT `+settingColumns+` FROM retention_settings WHERE org_id=$1 ORDER BY code`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var settings []Setting
	for rows.Next() {
		s, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

func (r *repository) LedgerAccountExists(ctx context.Context, orgID, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE org_id=$1 AND id=$2)`, orgID, id).Scan(&exists)
	return exists, err
}

func (r *repository) InsertSetting(ctx context.Context, s Setting) (Setting, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO retention_settings (org_id, name, code, description, applies_to,
default_rate, receivable_account_id, payable_account_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, created_at, updated_at`,
		s.OrgID, s.Name, s.Code, s.Description, s.AppliesTo,
		s.DefaultRate, s.ReceivableAccountID, s.PayableAccountID).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Setting{}, shared.Conflictf("retention setting %q already exists", s.Code)
		}
		return Setting{}, err
	}
	return s, nil
}

const retentionColumns = `id, org_id, invoice_id, setting_id, base_amount, rate, amount,
certificate_number, certificate_date, notes, created_at`

func scanRetention(row pgx.Row) (Retention, error) {
	var ret Retention
	var base, rate, amount string
	err := row.Scan(&ret.ID, &ret.OrgID, &ret.InvoiceID, &ret.SettingID, &base, &rate, &amount,
		&ret.CertificateNumber, &ret.CertificateDate, &ret.Notes, &ret.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Retention{}, shared.NotFoundf("retention not found")
		}
		return Retention{}, err
	}
	if ret.BaseAmount, err = decimal.NewFromString(base); err != nil {
		return Retention{}, err
	}
	if ret.Rate, err = decimal.NewFromString(rate); err != nil {
		return Retention{}, err
	}
	if ret.Amount, err = decimal.NewFromString(amount); err != nil {
		return Retention{}, err
	}
	return ret, nil
}

func (r *repository) ListByInvoice(ctx context.Context, orgID, invoiceID int64) ([]Retention, error) {
	rows, err := r.db.Query(ctx, `SELECT `+retentionColumns+` FROM retentions
WHERE org_id=$1 AND invoice_id=$2 ORDER BY id`, orgID, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var retentions []Retention
	for rows.Next() {
		ret, err := scanRetention(rows)
		if err != nil {
			return nil, err
		}
		retentions = append(retentions, ret)
	}
	return retentions, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetSetting(ctx context.Context, orgID, id int64) (Setting, error) {
	return getSetting(ctx, r.tx, orgID, id)
}

func (r *txRepository) GetInvoiceForUpdate(ctx context.Context, orgID, id int64) (invoicing.Invoice, error) {
	return invoicing.GetForUpdateTx(ctx, r.tx, orgID, id)
}

func (r *txRepository) AdjustInvoiceBalances(ctx context.Context, invoiceID int64, delta decimal.Decimal) error {
	return invoicing.AdjustBalancesTx(ctx, r.tx, invoiceID, delta)
}

func (r *txRepository) InsertRetention(ctx context.Context, ret Retention) (Retention, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO retentions (org_id, invoice_id, setting_id, base_amount, rate, amount,
certificate_number, certificate_date, notes)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id, created_at`,
		ret.OrgID, ret.InvoiceID, ret.SettingID, ret.BaseAmount, ret.Rate, ret.Amount,
		ret.CertificateNumber, ret.CertificateDate, ret.Notes).
		Scan(&ret.ID, &ret.CreatedAt)
	if err != nil {
		return Retention{}, err
	}
	return ret, nil
}
