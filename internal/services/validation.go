package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/Parv-gugnani/accounting-backend/internal/ledger"
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string            `json:"error"`             // Error message
	Details map[string]string `json:"details,omitempty"` // Validation details
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper
func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{Error: message}
	if validationErr != nil {
		errorResp.Details = make(map[string]string)
		for _, err := range validationErr.(validator.ValidationErrors) {
			errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
		}
	}

	json.NewEncoder(w).Encode(errorResp)
}

// SendLedgerError maps a ledger rejection to its HTTP status and payload.
// Every handler routes core errors through here, so statuses and detail
// shapes cannot drift between endpoints.
func SendLedgerError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	var unbalanced *ledger.UnbalancedError
	var entryErr *ledger.EntryError
	var persistErr *ledger.PersistenceError

	switch {
	case errors.Is(err, ledger.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Not found"})

	case errors.As(err, &unbalanced):
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{
			Error: "Total debits must equal total credits",
			Details: map[string]string{
				"debit_total":  unbalanced.DebitTotal.StringFixed(2),
				"credit_total": unbalanced.CreditTotal.StringFixed(2),
			},
		})

	case errors.As(err, &entryErr):
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{
			Error: entryErr.Reason.Error(),
			Details: map[string]string{
				"entry_index": fmt.Sprintf("%d", entryErr.Index),
			},
		})

	case errors.Is(err, ledger.ErrInvalidTransactionShape),
		errors.Is(err, ledger.ErrAccountNotOwned),
		errors.Is(err, ledger.ErrDuplicateReference),
		errors.Is(err, ledger.ErrDuplicateAccountName),
		errors.Is(err, ledger.ErrInvalidAccountType),
		errors.Is(err, ledger.ErrAccountHasEntries):
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()})

	case errors.As(err, &persistErr):
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "An error occurred while processing the request"})

	default:
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "An error occurred while processing the request"})
	}
}
