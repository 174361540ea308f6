package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType is the fundamental accounting classification of an account.
// The set is closed; anything else is rejected at the boundary.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// AccountTypes lists every valid account type, in statement order.
var AccountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeEquity,
	AccountTypeRevenue,
	AccountTypeExpense,
}

// Valid reports whether t is one of the five closed enum values.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// DebitNormal reports whether the account type carries a debit-normal balance
// (balance = debits - credits). Credit-normal types invert the sign.
func (t AccountType) DebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// Account is a financial account owned by exactly one user. Its balance is
// never stored; it is derived from the account's transaction entries.
type Account struct {
	ID          int64       `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	AccountType AccountType `json:"account_type" db:"account_type"`
	Description string      `json:"description,omitempty" db:"description"`
	OwnerID     int64       `json:"owner_id" db:"owner_id"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// CreateAccountRequest is the payload for account creation and update.
// @Description Account creation request
type CreateAccountRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100" example:"Cash"`
	AccountType string `json:"account_type" validate:"required" example:"asset"`
	Description string `json:"description" validate:"max=500" example:"Petty cash drawer"`
}

// UpdateAccountRequest updates an account's name and description. The account
// type is deliberately absent; changing it is a separate explicit operation.
type UpdateAccountRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100" example:"Cash"`
	Description string `json:"description" validate:"max=500"`
}

// ChangeAccountTypeRequest re-types an account. Only permitted while the
// account has no entries, because the type decides the balance sign for every
// historical entry.
type ChangeAccountTypeRequest struct {
	AccountType string `json:"account_type" validate:"required" example:"expense"`
}

// AccountBalance is the response shape for the balance endpoint.
// @Description Derived account balance
type AccountBalance struct {
	AccountID   int64           `json:"account_id" example:"1"`
	AccountName string          `json:"account_name" example:"Cash"`
	AccountType AccountType     `json:"account_type" example:"asset"`
	Balance     decimal.Decimal `json:"balance"`
}
