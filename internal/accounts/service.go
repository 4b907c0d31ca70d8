package accounts

import (
	"context"
	"strings"

	"github.com/andino-erp/andino-erp/internal/shared"
)

// Service owns chart-of-accounts rules: unique codes, same-org parents and
// a cycle-free tree.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput carries fields for a new account.
type CreateInput struct {
	Code     string
	Name     string
	Type     AccountType
	ParentID *int64
}

func (s *Service) Create(ctx context.Context, orgID int64, input CreateInput) (Account, error) {
	code := strings.TrimSpace(input.Code)
	if code == "" {
		return Account{}, shared.Validationf("account code is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return Account{}, shared.Validationf("account name is required")
	}
	if !input.Type.Valid() {
		return Account{}, shared.Validationf("unknown account type %q", input.Type)
	}
	var created Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if input.ParentID != nil {
			if _, err := tx.Get(ctx, orgID, *input.ParentID); err != nil {
				return err
			}
		}
		a, err := tx.Insert(ctx, Account{
			OrgID:    orgID,
			Code:     code,
			Name:     strings.TrimSpace(input.Name),
			Type:     input.Type,
			ParentID: input.ParentID,
		})
		if err != nil {
			return err
		}
		created = a
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, orgID, id int64) (Account, error) {
	return s.repo.Get(ctx, orgID, id)
}

func (s *Service) List(ctx context.Context, orgID int64) ([]Account, error) {
	return s.repo.List(ctx, orgID)
}

// Delete removes an account that has neither children nor postings.
func (s *Service) Delete(ctx context.Context, orgID, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		a, err := tx.Get(ctx, orgID, id)
		if err != nil {
			return err
		}
		hasChildren, err := tx.HasChildren(ctx, orgID, id)
		if err != nil {
			return err
		}
		if hasChildren {
			return shared.Statef("account %s has child accounts", a.Code)
		}
		hasPostings, err := tx.HasPostings(ctx, id)
		if err != nil {
			return err
		}
		if hasPostings {
			return shared.Statef("account %s has journal postings", a.Code)
		}
		return tx.Delete(ctx, orgID, id)
	})
}
