package journal

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/andino-erp/andino-erp/internal/platform/db"
	"github.com/andino-erp/andino-erp/internal/shared"
)

// Repository encapsulates DB operations for journal entries.
type Repository interface {
	Get(ctx context.Context, orgID, id int64) (Entry, error)
	List(ctx context.Context, orgID int64, limit, offset int) ([]Entry, error)
	Count(ctx context.Context, orgID int64) (int, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a transaction.
type TxRepository interface {
	InsertEntry(ctx context.Context, orgID int64, in PostInput) (Entry, error)
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

func (r *txRepository) InsertEntry(ctx context.Context, orgID int64, in PostInput) (Entry, error) {
	return InsertEntryTx(ctx, r.tx, orgID, in)
}

// InsertEntryTx persists an entry with its lines inside the caller's
// transaction. Invoicing and payments call this from their own transactions
// so the journal commits atomically with the business row. Every account is
// checked to belong to the organization; a miss aborts the whole statement
// set with no entry created.
func InsertEntryTx(ctx context.Context, tx pgx.Tx, orgID int64, in PostInput) (Entry, error) {
	ids := make([]int64, 0, len(in.Lines))
	for _, line := range in.Lines {
		ids = append(ids, line.AccountID)
	}
	var known int
	if err := tx.QueryRow(ctx, `SELECT COUNT(DISTINCT id) FROM accounts WHERE org_id=$1 AND id = ANY($2)`, orgID, ids).Scan(&known); err != nil {
		return Entry{}, err
	}
	if known != len(distinct(ids)) {
		return Entry{}, shared.NotFoundf("journal entry references an account outside the organization")
	}

	entry := Entry{
		OrgID:        orgID,
		Date:         in.Date,
		Description:  in.Description,
		SourceModule: in.SourceModule,
		SourceID:     in.SourceID,
	}
	row := tx.QueryRow(ctx, `INSERT INTO journal_entries (org_id, date, description, source_module, source_id)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at`, orgID, in.Date, in.Description, in.SourceModule, in.SourceID)
	if err := row.Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return Entry{}, err
	}
	for _, line := range in.Lines {
		var lineID int64
		err := tx.QueryRow(ctx, `INSERT INTO journal_lines (entry_id, account_id, debit, credit, description)
VALUES ($1,$2,$3,$4,$5) RETURNING id`, entry.ID, line.AccountID, line.Debit, line.Credit, line.Description).Scan(&lineID)
		if err != nil {
			return Entry{}, err
		}
		entry.Lines = append(entry.Lines, Line{
			ID:          lineID,
			EntryID:     entry.ID,
			AccountID:   line.AccountID,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}
	return entry, nil
}

func distinct(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

const entryColumns = `id, org_id, date, description, source_module, source_id, created_at`

func (r *repository) Get(ctx context.Context, orgID, id int64) (Entry, error) {
	var e Entry
	err := r.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE org_id=$1 AND id=$2`, orgID, id).
		Scan(&e.ID, &e.OrgID, &e.Date, &e.Description, &e.SourceModule, &e.SourceID, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, shared.NotFoundf("journal entry not found")
		}
		return Entry{}, err
	}
	lines, err := r.entryLines(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	e.Lines = lines
	return e, nil
}

func (r *repository) List(ctx context.Context, orgID int64, limit, offset int) ([]Entry, error) {
	rows, err := r.db.Query(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE org_id=$1 ORDER BY id DESC LIMIT $2 OFFSET $3`, orgID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.OrgID, &e.Date, &e.Description, &e.SourceModule, &e.SourceID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repository) Count(ctx context.Context, orgID int64) (int, error) {
	var total int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM journal_entries WHERE org_id=$1`, orgID).Scan(&total)
	return total, err
}

func (r *repository) entryLines(ctx context.Context, entryID int64) ([]Line, error) {
	rows, err := r.db.Query(ctx, `SELECT id, entry_id, account_id, debit, credit, description
FROM journal_lines WHERE entry_id=$1 ORDER BY id ASC`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var line Line
		var debit, credit string
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &debit, &credit, &line.Description); err != nil {
			return nil, err
		}
		if line.Debit, err = decimal.NewFromString(debit); err != nil {
			return nil, err
		}
		if line.Credit, err = decimal.NewFromString(credit); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
