// Package ledger holds the integrity rules of the double-entry engine:
// what makes a set of entries admissible, how balances are derived, and the
// taxonomy of rejections. Everything here is pure; persistence lives in the
// services that call it.
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Shape errors: the caller's input is structurally invalid.
var (
	ErrInvalidTransactionShape    = errors.New("a transaction must have at least two entries")
	ErrEntryBothDebitAndCredit    = errors.New("an entry cannot be both a debit and a credit")
	ErrEntryNeitherDebitNorCredit = errors.New("an entry must be either a debit or a credit")
	ErrNegativeAmount             = errors.New("amount cannot be negative")
)

// Business-rule errors: well-formed input that violates a ledger invariant.
var (
	ErrAccountNotOwned      = errors.New("one or more accounts do not exist or do not belong to you")
	ErrDuplicateReference   = errors.New("transaction with this reference number already exists")
	ErrDuplicateAccountName = errors.New("account with this name already exists")
	ErrInvalidAccountType   = errors.New("account_type must be one of asset, liability, equity, revenue, expense")
	ErrAccountHasEntries    = errors.New("cannot delete account with existing transactions")
)

// ErrNotFound covers both "does not exist" and "not visible to the requester";
// the two are deliberately indistinguishable externally.
var ErrNotFound = errors.New("not found")

// EntryError pins a shape violation to the offending entry.
type EntryError struct {
	Index  int   // position in the submitted entry list
	Reason error // one of the shape sentinels above
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("entry %d: %v", e.Index, e.Reason)
}

func (e *EntryError) Unwrap() error { return e.Reason }

// UnbalancedError reports a failed debit/credit equality check. Both totals
// are carried so the caller can see the discrepancy, already rounded to the
// 2-decimal comparison scale.
type UnbalancedError struct {
	DebitTotal  decimal.Decimal
	CreditTotal decimal.Decimal
}

func (e *UnbalancedError) Error() string {
	return fmt.Sprintf("total debits (%s) must equal total credits (%s)",
		e.DebitTotal.StringFixed(2), e.CreditTotal.StringFixed(2))
}

// PersistenceError wraps a failed atomic write or delete. It is only returned
// after a full rollback, so the caller may retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
