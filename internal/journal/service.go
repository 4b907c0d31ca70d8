package journal

import (
	"context"
	"time"

	"github.com/andino-erp/andino-erp/internal/shared"
)

// Service posts validated entries. Callers construct line sets through
// Builder, so an unbalanced set cannot normally reach Post; the validation
// here is the last line of defence before commit.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Post creates the entry and its lines atomically. No partial entry is ever
// visible: an account lookup failure aborts the transaction.
func (s *Service) Post(ctx context.Context, orgID int64, input PostInput) (Entry, error) {
	if input.Date.IsZero() {
		input.Date = s.now()
	}
	if err := input.Validate(); err != nil {
		return Entry{}, err
	}
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inserted, err := tx.InsertEntry(ctx, orgID, input)
		if err != nil {
			return err
		}
		entry = inserted
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (s *Service) Get(ctx context.Context, orgID, id int64) (Entry, error) {
	return s.repo.Get(ctx, orgID, id)
}

// List returns one page of entries, newest first.
func (s *Service) List(ctx context.Context, orgID int64, page, perPage int) ([]Entry, shared.Pagination, error) {
	total, err := s.repo.Count(ctx, orgID)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	p := shared.NewPagination(page, perPage, total)
	entries, err := s.repo.List(ctx, orgID, p.PerPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return entries, p, nil
}
