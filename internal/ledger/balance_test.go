package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Parv-gugnani/accounting-backend/internal/models"
)

func TestBalance(t *testing.T) {
	entries := []models.TransactionEntry{
		{AccountID: 1, DebitAmount: dec("150.00")},
		{AccountID: 1, CreditAmount: dec("40.00")},
		{AccountID: 1, DebitAmount: dec("10.00")},
	}

	t.Run("debit-normal types", func(t *testing.T) {
		assert.Equal(t, "120.00", Balance(models.AccountTypeAsset, entries).StringFixed(2))
		assert.Equal(t, "120.00", Balance(models.AccountTypeExpense, entries).StringFixed(2))
	})

	t.Run("credit-normal types", func(t *testing.T) {
		assert.Equal(t, "-120.00", Balance(models.AccountTypeLiability, entries).StringFixed(2))
		assert.Equal(t, "-120.00", Balance(models.AccountTypeEquity, entries).StringFixed(2))
		assert.Equal(t, "-120.00", Balance(models.AccountTypeRevenue, entries).StringFixed(2))
	})

	t.Run("no entries means zero", func(t *testing.T) {
		assert.True(t, Balance(models.AccountTypeAsset, nil).IsZero())
	})

	t.Run("deleting a transaction reverses its effect", func(t *testing.T) {
		before := Balance(models.AccountTypeAsset, entries)

		// Drop the credit leg, as if its transaction were deleted.
		remaining := []models.TransactionEntry{entries[0], entries[2]}
		after := Balance(models.AccountTypeAsset, remaining)

		assert.Equal(t, "120.00", before.StringFixed(2))
		assert.Equal(t, "160.00", after.StringFixed(2))
	})
}

func TestBalanceFromSums(t *testing.T) {
	debits := dec("500.00")
	credits := dec("200.00")

	assert.Equal(t, "300.00", BalanceFromSums(models.AccountTypeAsset, debits, credits).StringFixed(2))
	assert.Equal(t, "-300.00", BalanceFromSums(models.AccountTypeRevenue, debits, credits).StringFixed(2))

	// Same arithmetic as the entry fold.
	entries := []models.TransactionEntry{
		{DebitAmount: dec("500.00")},
		{CreditAmount: dec("200.00")},
	}
	assert.True(t, Balance(models.AccountTypeAsset, entries).Equal(
		BalanceFromSums(models.AccountTypeAsset, debits, credits)))
}

func TestBalanced(t *testing.T) {
	t.Run("closed entry set", func(t *testing.T) {
		entries := []models.TransactionEntry{
			{DebitAmount: dec("75.25")},
			{CreditAmount: dec("75.25")},
		}
		assert.True(t, Balanced(entries))
	})

	t.Run("drifted entry set", func(t *testing.T) {
		entries := []models.TransactionEntry{
			{DebitAmount: dec("75.25")},
			{CreditAmount: dec("75.30")},
		}
		assert.False(t, Balanced(entries))
	})

	t.Run("sub-cent differences close at two decimals", func(t *testing.T) {
		entries := []models.TransactionEntry{
			{DebitAmount: dec("10.001")},
			{CreditAmount: dec("10.004")},
		}
		assert.True(t, Balanced(entries))
	})
}

func TestExclusive(t *testing.T) {
	assert.True(t, Exclusive(models.TransactionEntry{DebitAmount: dec("10.00")}))
	assert.True(t, Exclusive(models.TransactionEntry{CreditAmount: dec("10.00")}))
	assert.False(t, Exclusive(models.TransactionEntry{DebitAmount: dec("10.00"), CreditAmount: dec("10.00")}))
	assert.False(t, Exclusive(models.TransactionEntry{}))
	assert.False(t, Exclusive(models.TransactionEntry{DebitAmount: dec("-10.00")}))
}
