package contacts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andino-erp/andino-erp/internal/shared"
)

// Repository reads contacts for validation and snapshotting.
type Repository interface {
	Get(ctx context.Context, orgID, id int64) (Contact, error)
	Insert(ctx context.Context, c Contact) (Contact, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, orgID, id int64) (Contact, error) {
	var c Contact
	err := r.db.QueryRow(ctx, `SELECT id, org_id, name, cuit, address, created_at, updated_at
FROM contacts WHERE org_id=$1 AND id=$2`, orgID, id).
		Scan(&c.ID, &c.OrgID, &c.Name, &c.CUIT, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, shared.NotFoundf("contact not found")
		}
		return Contact{}, err
	}
	return c, nil
}

func (r *repository) Insert(ctx context.Context, c Contact) (Contact, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO contacts (org_id, name, cuit, address)
VALUES ($1,$2,$3,$4) RETURNING id, created_at, updated_at`, c.OrgID, c.Name, c.CUIT, c.Address)
	if err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Contact{}, err
	}
	return c, nil
}
