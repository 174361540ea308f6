package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/Parv-gugnani/accounting-backend/internal/models"
)

// ValidateEntries decides whether a candidate entry set is admissible. It is
// a pure function of the entries plus a point-in-time snapshot of which
// account ids the requesting user owns; it performs no I/O and is safe to
// call repeatedly.
//
// Checks run fail-fast, first failure wins:
//  1. at least two entries
//  2. per entry, debit > 0 XOR credit > 0
//  3. no negative amounts
//  4. every referenced account is owned by the requester
//  5. debit and credit totals equal at 2-decimal scale
func ValidateEntries(entries []models.EntrySpec, ownedAccounts map[int64]bool) error {
	if len(entries) < 2 {
		return ErrInvalidTransactionShape
	}

	for i, e := range entries {
		debit := e.DebitAmount.IsPositive()
		credit := e.CreditAmount.IsPositive()
		switch {
		case debit && credit:
			return &EntryError{Index: i, Reason: ErrEntryBothDebitAndCredit}
		case !debit && !credit:
			return &EntryError{Index: i, Reason: ErrEntryNeitherDebitNorCredit}
		}
	}

	for i, e := range entries {
		if e.DebitAmount.IsNegative() || e.CreditAmount.IsNegative() {
			return &EntryError{Index: i, Reason: ErrNegativeAmount}
		}
	}

	for _, e := range entries {
		if !ownedAccounts[e.AccountID] {
			return ErrAccountNotOwned
		}
	}

	debitTotal, creditTotal := SumEntrySpecs(entries)
	if !debitTotal.Round(2).Equal(creditTotal.Round(2)) {
		return &UnbalancedError{
			DebitTotal:  debitTotal.Round(2),
			CreditTotal: creditTotal.Round(2),
		}
	}

	return nil
}

// SumEntrySpecs returns the unrounded debit and credit totals of a candidate
// entry set.
func SumEntrySpecs(entries []models.EntrySpec) (debitTotal, creditTotal decimal.Decimal) {
	for _, e := range entries {
		debitTotal = debitTotal.Add(e.DebitAmount)
		creditTotal = creditTotal.Add(e.CreditAmount)
	}
	return debitTotal, creditTotal
}

// ValidAccountType reports whether s names one of the five account types.
// Kept beside the validator so the closed enum is checked at the boundary,
// not left to the storage constraint.
func ValidAccountType(s string) bool {
	return models.AccountType(s).Valid()
}
