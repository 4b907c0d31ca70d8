package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// IntegrityStore reads the ledger facts the integrity scan verifies.
type IntegrityStore interface {
	OrganizationIDs(ctx context.Context) ([]int64, error)
	UnbalancedEntries(ctx context.Context, orgID int64) ([]int64, error)
	BrokenInvoices(ctx context.Context, orgID int64) ([]int64, error)
	BrokenPayments(ctx context.Context, orgID int64) ([]int64, error)
	OverInvoicedItems(ctx context.Context, orgID int64) ([]int64, error)
	RetainedTotal(ctx context.Context, orgID int64) (decimal.Decimal, error)
}

// OrgReport summarizes one organization's scan.
type OrgReport struct {
	OrgID             int64
	UnbalancedEntries []int64
	BrokenInvoices    []int64
	BrokenPayments    []int64
	OverInvoicedItems []int64
	// RetainedTotal is the amount by which invoice balances were reduced
	// without a matching journal movement. Retentions bypass the ledger,
	// so this gap is expected whenever certificates exist; the scan
	// surfaces its size rather than treating it as a violation.
	RetainedTotal decimal.Decimal
}

// Clean reports whether the organization has no violations.
func (r OrgReport) Clean() bool {
	return len(r.UnbalancedEntries) == 0 && len(r.BrokenInvoices) == 0 &&
		len(r.BrokenPayments) == 0 && len(r.OverInvoicedItems) == 0
}

// IntegrityChecker runs the scan across organizations.
type IntegrityChecker struct {
	store  IntegrityStore
	logger *slog.Logger
}

func NewIntegrityChecker(store IntegrityStore, logger *slog.Logger) *IntegrityChecker {
	return &IntegrityChecker{store: store, logger: logger}
}

// Run scans every organization concurrently and returns the per-org
// reports. A store failure aborts the whole scan.
func (c *IntegrityChecker) Run(ctx context.Context) ([]OrgReport, error) {
	orgs, err := c.store.OrganizationIDs(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]OrgReport, len(orgs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, orgID := range orgs {
		i, orgID := i, orgID
		g.Go(func() error {
			report, err := c.scanOrg(ctx, orgID)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (c *IntegrityChecker) scanOrg(ctx context.Context, orgID int64) (OrgReport, error) {
	report := OrgReport{OrgID: orgID}
	var err error
	if report.UnbalancedEntries, err = c.store.UnbalancedEntries(ctx, orgID); err != nil {
		return OrgReport{}, err
	}
	if report.BrokenInvoices, err = c.store.BrokenInvoices(ctx, orgID); err != nil {
		return OrgReport{}, err
	}
	if report.BrokenPayments, err = c.store.BrokenPayments(ctx, orgID); err != nil {
		return OrgReport{}, err
	}
	if report.OverInvoicedItems, err = c.store.OverInvoicedItems(ctx, orgID); err != nil {
		return OrgReport{}, err
	}
	if report.RetainedTotal, err = c.store.RetainedTotal(ctx, orgID); err != nil {
		return OrgReport{}, err
	}
	return report, nil
}

// Handle processes TaskLedgerIntegrity tasks.
func (c *IntegrityChecker) Handle(ctx context.Context, t *asynq.Task) error {
	reports, err := c.Run(ctx)
	if err != nil {
		return err
	}
	for _, report := range reports {
		if !report.Clean() {
			c.logger.Error("ledger integrity violations",
				slog.Int64("org", report.OrgID),
				slog.Any("unbalanced_entries", report.UnbalancedEntries),
				slog.Any("broken_invoices", report.BrokenInvoices),
				slog.Any("broken_payments", report.BrokenPayments),
				slog.Any("over_invoiced_items", report.OverInvoicedItems))
			continue
		}
		c.logger.Info("ledger integrity ok",
			slog.Int64("org", report.OrgID),
			slog.String("retained_without_journal", report.RetainedTotal.StringFixed(2)))
	}
	return nil
}

type pgIntegrityStore struct {
	db *pgxpool.Pool
}

// NewIntegrityStore builds the Postgres-backed store used in production.
func NewIntegrityStore(db *pgxpool.Pool) IntegrityStore {
	return &pgIntegrityStore{db: db}
}

func (s *pgIntegrityStore) ids(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *pgIntegrityStore) OrganizationIDs(ctx context.Context) ([]int64, error) {
	return s.ids(ctx, `SELECT DISTINCT org_id FROM accounts ORDER BY org_id`)
}

func (s *pgIntegrityStore) UnbalancedEntries(ctx context.Context, orgID int64) ([]int64, error) {
	return s.ids(ctx, `SELECT e.id FROM journal_entries e
JOIN journal_lines l ON l.entry_id = e.id
WHERE e.org_id=$1
GROUP BY e.id
HAVING ABS(SUM(l.debit) - SUM(l.credit)) > 0.005
ORDER BY e.id`, orgID)
}

func (s *pgIntegrityStore) BrokenInvoices(ctx context.Context, orgID int64) ([]int64, error) {
	return s.ids(ctx, `SELECT id FROM invoices
WHERE org_id=$1 AND ABS(amount_allocated + amount_remaining - total_amount) > 0.005
ORDER BY id`, orgID)
}

func (s *pgIntegrityStore) BrokenPayments(ctx context.Context, orgID int64) ([]int64, error) {
	return s.ids(ctx, `SELECT id FROM payments
WHERE org_id=$1 AND ABS(amount_allocated + amount_remaining - amount) > 0.005
ORDER BY id`, orgID)
}

func (s *pgIntegrityStore) OverInvoicedItems(ctx context.Context, orgID int64) ([]int64, error) {
	return s.ids(ctx, `SELECT poi.id FROM purchase_order_items poi
JOIN purchase_orders po ON po.id = poi.purchase_order_id
JOIN invoice_items ii ON ii.purchase_order_item_id = poi.id
WHERE po.org_id=$1
GROUP BY poi.id, poi.quantity
HAVING SUM(ii.quantity) > poi.quantity + 0.000001
ORDER BY poi.id`, orgID)
}

func (s *pgIntegrityStore) RetainedTotal(ctx context.Context, orgID int64) (decimal.Decimal, error) {
	var total string
	err := s.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM retentions WHERE org_id=$1`, orgID).Scan(&total)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(total)
}
