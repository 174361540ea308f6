package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a balanced financial event. It owns its entries: a
// transaction never exists with fewer than two, and deleting it deletes them
// all in the same atomic unit.
type Transaction struct {
	ID              int64              `json:"id" db:"id"`
	ReferenceNumber string             `json:"reference_number" db:"reference_number"`
	Description     string             `json:"description,omitempty" db:"description"`
	TransactionDate time.Time          `json:"transaction_date" db:"transaction_date"`
	CreatedByID     int64              `json:"created_by_id" db:"created_by_id"`
	CreatedAt       time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" db:"updated_at"`
	Entries         []TransactionEntry `json:"entries"`
}

// TransactionEntry is one debit or credit leg of a transaction. Exactly one
// of the two amounts is strictly positive; the other is exactly zero. Entries
// are immutable once persisted.
type TransactionEntry struct {
	ID            int64           `json:"id" db:"id"`
	TransactionID int64           `json:"transaction_id" db:"transaction_id"`
	AccountID     int64           `json:"account_id" db:"account_id"`
	DebitAmount   decimal.Decimal `json:"debit_amount" db:"debit_amount"`
	CreditAmount  decimal.Decimal `json:"credit_amount" db:"credit_amount"`
	Description   string          `json:"description,omitempty" db:"description"`
}

// EntrySpec is a candidate entry supplied by the caller before persistence.
type EntrySpec struct {
	AccountID    int64           `json:"account_id" validate:"required" example:"1"`
	DebitAmount  decimal.Decimal `json:"debit_amount"`
	CreditAmount decimal.Decimal `json:"credit_amount"`
	Description  string          `json:"description" validate:"max=500"`
}

// CreateTransactionRequest is the payload for transaction creation.
// @Description Transaction creation request
type CreateTransactionRequest struct {
	ReferenceNumber string      `json:"reference_number" validate:"required,min=1,max=100" example:"INV-1"`
	Description     string      `json:"description" validate:"max=500" example:"Invoice #1 paid"`
	TransactionDate *time.Time  `json:"transaction_date"`
	Entries         []EntrySpec `json:"entries" validate:"required"`
}
