package journal

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/andino-erp/andino-erp/internal/shared"
)

type memoryJournalRepo struct {
	accounts map[int64]int64 // account id -> org id
	entries  map[int64]Entry
	nextID   int64
}

func newMemoryJournalRepo() *memoryJournalRepo {
	return &memoryJournalRepo{
		accounts: make(map[int64]int64),
		entries:  make(map[int64]Entry),
	}
}

func (r *memoryJournalRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	staged := newMemoryJournalRepo()
	staged.accounts = r.accounts
	staged.nextID = r.nextID
	if err := fn(ctx, staged); err != nil {
		return err
	}
	for id, e := range staged.entries {
		r.entries[id] = e
	}
	r.nextID = staged.nextID
	return nil
}

func (r *memoryJournalRepo) InsertEntry(ctx context.Context, orgID int64, in PostInput) (Entry, error) {
	for _, line := range in.Lines {
		if r.accounts[line.AccountID] != orgID {
			return Entry{}, shared.NotFoundf("journal entry references an account outside the organization")
		}
	}
	r.nextID++
	entry := Entry{
		ID:           r.nextID,
		OrgID:        orgID,
		Date:         in.Date,
		Description:  in.Description,
		SourceModule: in.SourceModule,
		SourceID:     in.SourceID,
		CreatedAt:    time.Now(),
	}
	for _, line := range in.Lines {
		entry.Lines = append(entry.Lines, Line{
			EntryID:     entry.ID,
			AccountID:   line.AccountID,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}
	r.entries[entry.ID] = entry
	return entry, nil
}

func (r *memoryJournalRepo) Get(ctx context.Context, orgID, id int64) (Entry, error) {
	e, ok := r.entries[id]
	if !ok || e.OrgID != orgID {
		return Entry{}, shared.NotFoundf("journal entry not found")
	}
	return e, nil
}

func (r *memoryJournalRepo) List(ctx context.Context, orgID int64, limit, offset int) ([]Entry, error) {
	var out []Entry
	for _, e := range r.entries {
		if e.OrgID == orgID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryJournalRepo) Count(ctx context.Context, orgID int64) (int, error) {
	n := 0
	for _, e := range r.entries {
		if e.OrgID == orgID {
			n++
		}
	}
	return n, nil
}

func TestPostCreatesBalancedEntry(t *testing.T) {
	repo := newMemoryJournalRepo()
	repo.accounts[1] = 7
	repo.accounts[2] = 7
	svc := NewService(repo)

	lines, err := NewBuilder().
		Debit(1, amt("150.00"), "").
		Credit(2, amt("150.00"), "").
		Build()
	require.NoError(t, err)

	entry, err := svc.Post(context.Background(), 7, PostInput{
		Description:  "opening balance",
		SourceModule: "journal:manual",
		SourceID:     uuid.New(),
		Lines:        lines,
	})
	require.NoError(t, err)
	require.NotZero(t, entry.ID)
	require.True(t, entry.TotalDebit().Equal(entry.TotalCredit()))
}

func TestPostRejectsForeignAccount(t *testing.T) {
	repo := newMemoryJournalRepo()
	repo.accounts[1] = 7
	repo.accounts[2] = 99 // other org
	svc := NewService(repo)

	lines, err := NewBuilder().
		Debit(1, amt("10.00"), "").
		Credit(2, amt("10.00"), "").
		Build()
	require.NoError(t, err)

	_, err = svc.Post(context.Background(), 7, PostInput{
		SourceModule: "journal:manual",
		SourceID:     uuid.New(),
		Lines:        lines,
	})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindNotFound))
	require.Empty(t, repo.entries)
}

func TestPostRejectsUnbalancedInput(t *testing.T) {
	repo := newMemoryJournalRepo()
	repo.accounts[1] = 7
	repo.accounts[2] = 7
	svc := NewService(repo)

	// Bypass the builder to simulate a construction bug.
	_, err := svc.Post(context.Background(), 7, PostInput{
		SourceModule: "journal:manual",
		SourceID:     uuid.New(),
		Lines: []LineInput{
			{AccountID: 1, Debit: amt("10.00")},
			{AccountID: 2, Credit: amt("5.00")},
		},
	})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindIntegrity))
	require.Empty(t, repo.entries)
}

func TestListPaginates(t *testing.T) {
	repo := newMemoryJournalRepo()
	repo.accounts[1] = 7
	repo.accounts[2] = 7
	svc := NewService(repo)

	for i := 0; i < 5; i++ {
		lines, err := NewBuilder().
			Debit(1, amt("10.00"), "").
			Credit(2, amt("10.00"), "").
			Build()
		require.NoError(t, err)
		_, err = svc.Post(context.Background(), 7, PostInput{
			SourceModule: "journal:manual",
			SourceID:     uuid.New(),
			Lines:        lines,
		})
		require.NoError(t, err)
	}

	entries, pagination, err := svc.List(context.Background(), 7, 2, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, 5, pagination.Total)
	require.Equal(t, 3, pagination.TotalPages)
	// Newest first, so page two holds the middle entries.
	require.Greater(t, entries[0].ID, entries[1].ID)
}
