package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/Parv-gugnani/accounting-backend/internal/ledger"
	"github.com/Parv-gugnani/accounting-backend/internal/models"
)

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid account request", func(t *testing.T) {
		req := models.CreateAccountRequest{
			Name:        "Cash",
			AccountType: "asset",
		}

		err := vh.ValidateStruct(&req)
		assert.NoError(t, err)
	})

	t.Run("missing required fields", func(t *testing.T) {
		req := models.CreateAccountRequest{}

		err := vh.ValidateStruct(&req)
		assert.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
		assert.Len(t, validationErrors, 2) // Name and AccountType
	})

	t.Run("missing entries on transaction request", func(t *testing.T) {
		req := models.CreateTransactionRequest{ReferenceNumber: "INV-001"}

		err := vh.ValidateStruct(&req)
		assert.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
		assert.Equal(t, "Entries", validationErrors[0].Field())
	})
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("error response without validation errors", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "Something went wrong", http.StatusInternalServerError, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, "Something went wrong", response.Error)
		assert.Nil(t, response.Details)
	})

	t.Run("error response with validation errors", func(t *testing.T) {
		vh := NewValidationHelper()
		validationErr := vh.ValidateStruct(&models.CreateAccountRequest{})
		assert.Error(t, validationErr)

		w := httptest.NewRecorder()
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, validationErr)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, "Validation failed", response.Error)
		assert.Contains(t, response.Details, "Name")
		assert.Contains(t, response.Details, "AccountType")
	})
}

func TestSendLedgerError(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendLedgerError(w, ledger.ErrNotFound)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unbalanced totals carry both sums", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendLedgerError(w, &ledger.UnbalancedError{
			DebitTotal:  amount("100.00"),
			CreditTotal: amount("90.00"),
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, "100.00", response.Details["debit_total"])
		assert.Equal(t, "90.00", response.Details["credit_total"])
	})

	t.Run("entry error names the offending index", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendLedgerError(w, &ledger.EntryError{Index: 2, Reason: ledger.ErrEntryBothDebitAndCredit})

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, "2", response.Details["entry_index"])
	})

	t.Run("business rule violations are client errors", func(t *testing.T) {
		for _, serr := range []error{
			ledger.ErrInvalidTransactionShape,
			ledger.ErrAccountNotOwned,
			ledger.ErrDuplicateReference,
			ledger.ErrDuplicateAccountName,
			ledger.ErrInvalidAccountType,
			ledger.ErrAccountHasEntries,
		} {
			w := httptest.NewRecorder()
			SendLedgerError(w, serr)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		}
	})

	t.Run("persistence failures hide internals", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendLedgerError(w, &ledger.PersistenceError{Op: "insert transaction", Err: errors.New("connection reset")})

		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.NotContains(t, response.Error, "connection reset")
	})

	t.Run("unknown errors are internal errors", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendLedgerError(w, errors.New("surprise"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
