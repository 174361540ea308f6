package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/Parv-gugnani/accounting-backend/internal/models"
)

// Balance derives an account's signed balance from its full entry set.
// Asset and expense accounts are debit-normal (debits - credits); liability,
// equity and revenue accounts are credit-normal (credits - debits).
//
// This is a stateless fold over the currently persisted entries, never a
// stored running total, so it always reflects creates and deletes exactly.
func Balance(accountType models.AccountType, entries []models.TransactionEntry) decimal.Decimal {
	var debitSum, creditSum decimal.Decimal
	for _, e := range entries {
		debitSum = debitSum.Add(e.DebitAmount)
		creditSum = creditSum.Add(e.CreditAmount)
	}
	return BalanceFromSums(accountType, debitSum, creditSum)
}

// BalanceFromSums applies the sign convention to precomputed debit and credit
// sums. The balance endpoint uses this with sums aggregated by the database;
// it is the same arithmetic as Balance by construction.
func BalanceFromSums(accountType models.AccountType, debitSum, creditSum decimal.Decimal) decimal.Decimal {
	if accountType.DebitNormal() {
		return debitSum.Sub(creditSum)
	}
	return creditSum.Sub(debitSum)
}

// Balanced reports whether a persisted entry set still closes at 2-decimal
// scale. The reconciliation sweep uses it as a drift alarm.
func Balanced(entries []models.TransactionEntry) bool {
	var debitSum, creditSum decimal.Decimal
	for _, e := range entries {
		debitSum = debitSum.Add(e.DebitAmount)
		creditSum = creditSum.Add(e.CreditAmount)
	}
	return debitSum.Round(2).Equal(creditSum.Round(2))
}

// Exclusive reports whether a persisted entry satisfies the debit-XOR-credit
// invariant.
func Exclusive(e models.TransactionEntry) bool {
	debit := e.DebitAmount.IsPositive()
	credit := e.CreditAmount.IsPositive()
	if debit == credit {
		return false
	}
	if debit {
		return e.CreditAmount.IsZero()
	}
	return e.DebitAmount.IsZero()
}
