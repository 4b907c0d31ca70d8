package journal

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/andino-erp/andino-erp/internal/shared"
)

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBuilderBalancedEntry(t *testing.T) {
	lines, err := NewBuilder().
		Debit(1, amt("242.00"), "receivables").
		Credit(2, amt("200.00"), "sales").
		Credit(3, amt("42.00"), "vat").
		Build()
	require.NoError(t, err)
	require.Len(t, lines, 3)

	debit, credit := decimal.Zero, decimal.Zero
	for _, line := range lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	require.True(t, debit.Equal(credit))
}

func TestBuilderRejectsUnbalanced(t *testing.T) {
	_, err := NewBuilder().
		Debit(1, amt("100.00"), "").
		Credit(2, amt("99.00"), "").
		Build()
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindIntegrity))
}

func TestBuilderSkipsZeroAmounts(t *testing.T) {
	lines, err := NewBuilder().
		Debit(1, amt("100.00"), "").
		Credit(2, amt("100.00"), "").
		Credit(3, decimal.Zero, "vat omitted when zero").
		Build()
	require.NoError(t, err)
	require.Len(t, lines, 2)
}

func TestBuilderRejectsNegativeAmount(t *testing.T) {
	_, err := NewBuilder().
		Debit(1, amt("-5.00"), "").
		Credit(2, amt("-5.00"), "").
		Build()
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindValidation))
}

func TestBuilderRejectsEmpty(t *testing.T) {
	_, err := NewBuilder().Build()
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindValidation))
}

func TestPostInputValidate(t *testing.T) {
	valid := PostInput{
		SourceModule: "invoicing",
		SourceID:     uuid.New(),
		Lines: []LineInput{
			{AccountID: 1, Debit: amt("10.00")},
			{AccountID: 2, Credit: amt("10.00")},
		},
	}
	require.NoError(t, valid.Validate())

	bothSides := valid
	bothSides.Lines = []LineInput{
		{AccountID: 1, Debit: amt("10.00"), Credit: amt("10.00")},
		{AccountID: 2, Credit: decimal.Zero},
	}
	require.Error(t, bothSides.Validate())

	unbalanced := valid
	unbalanced.Lines = []LineInput{
		{AccountID: 1, Debit: amt("10.00")},
		{AccountID: 2, Credit: amt("9.99")},
	}
	err := unbalanced.Validate()
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindIntegrity))

	noSource := valid
	noSource.SourceModule = ""
	require.Error(t, noSource.Validate())
}
