package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/Parv-gugnani/accounting-backend/internal/ledger"
	"github.com/Parv-gugnani/accounting-backend/internal/models"
)

// AccountService is the account registry: identity, the closed type enum,
// (owner, name) uniqueness and entry-guarded deletion. Balances are exposed
// here but always derived from entries, never stored.
type AccountService struct {
	db        *sql.DB
	validator *ValidationHelper
}

func NewAccountService(db *sql.DB) *AccountService {
	return &AccountService{
		db:        db,
		validator: NewValidationHelper(),
	}
}

// CreateAccount handles account creation
// @Summary Create a new account
// @Description Create an account of type asset, liability, equity, revenue or expense
// @Tags accounts
// @Accept json
// @Produce json
// @Param account body models.CreateAccountRequest true "Account data"
// @Success 201 {object} models.Account
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /accounts [post]
func (as *AccountService) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req models.CreateAccountRequest
	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := as.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if !ledger.ValidAccountType(req.AccountType) {
		SendLedgerError(w, ledger.ErrInvalidAccountType)
		return
	}

	account, err := as.createAccount(r.Context(), userID, &req)
	if err != nil {
		log.Printf("[ACCOUNT] Create failed for %q (user %d): %v", req.Name, userID, err)
		SendLedgerError(w, err)
		return
	}

	log.Printf("[ACCOUNT] Account %d (%s) created by user %d", account.ID, account.Name, userID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(account)
}

func (as *AccountService) createAccount(ctx context.Context, userID int64, req *models.CreateAccountRequest) (*models.Account, error) {
	account := &models.Account{
		Name:        req.Name,
		AccountType: models.AccountType(req.AccountType),
		Description: req.Description,
		OwnerID:     userID,
	}

	err := as.db.QueryRowContext(ctx,
		"INSERT INTO accounts (name, account_type, description, owner_id) VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at",
		account.Name, account.AccountType, account.Description, account.OwnerID).
		Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ledger.ErrDuplicateAccountName
		}
		return nil, &ledger.PersistenceError{Op: "insert account", Err: err}
	}
	return account, nil
}

// ListAccounts retrieves the caller's accounts
// @Summary List accounts
// @Description List the caller's accounts with optional account_type filter
// @Tags accounts
// @Produce json
// @Param skip query int false "Rows to skip (default 0)"
// @Param limit query int false "Max rows to return (default 100)"
// @Param account_type query string false "Filter by account type"
// @Success 200 {object} object{accounts=[]models.Account,count=int}
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /accounts [get]
func (as *AccountService) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	skip, limit := parsePagination(r, 100)

	accountType := r.URL.Query().Get("account_type")
	if accountType != "" && !ledger.ValidAccountType(accountType) {
		SendLedgerError(w, ledger.ErrInvalidAccountType)
		return
	}

	accounts, err := as.fetchAccounts(r.Context(), userID, skip, limit, accountType)
	if err != nil {
		log.Printf("[ACCOUNT] List failed for user %d: %v", userID, err)
		SendLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

func (as *AccountService) fetchAccounts(ctx context.Context, userID int64, skip, limit int, accountType string) ([]models.Account, error) {
	query := "SELECT id, name, account_type, description, owner_id, created_at, updated_at FROM accounts WHERE owner_id = $1"
	args := []interface{}{userID}

	if accountType != "" {
		args = append(args, accountType)
		query += " AND account_type = $" + strconv.Itoa(len(args))
	}
	args = append(args, limit)
	query += " ORDER BY id LIMIT $" + strconv.Itoa(len(args))
	args = append(args, skip)
	query += " OFFSET $" + strconv.Itoa(len(args))

	rows, err := as.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &ledger.PersistenceError{Op: "list accounts", Err: err}
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.AccountType, &a.Description, &a.OwnerID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, &ledger.PersistenceError{Op: "scan account", Err: err}
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &ledger.PersistenceError{Op: "iterate accounts", Err: err}
	}
	return accounts, nil
}

// GetAccount retrieves a specific account
// @Summary Get account by ID
// @Description Retrieve one of the caller's accounts by its ID
// @Tags accounts
// @Produce json
// @Param accountId path int true "Account ID"
// @Success 200 {object} models.Account
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /accounts/{accountId} [get]
func (as *AccountService) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid account id", http.StatusBadRequest, nil)
		return
	}

	account, err := as.fetchAccount(r.Context(), userID, accountID)
	if err != nil {
		SendLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(account)
}

func (as *AccountService) fetchAccount(ctx context.Context, userID, accountID int64) (*models.Account, error) {
	var a models.Account
	err := as.db.QueryRowContext(ctx,
		"SELECT id, name, account_type, description, owner_id, created_at, updated_at FROM accounts WHERE id = $1 AND owner_id = $2",
		accountID, userID).Scan(&a.ID, &a.Name, &a.AccountType, &a.Description, &a.OwnerID, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, &ledger.PersistenceError{Op: "fetch account", Err: err}
	}
	return &a, nil
}

// GetAccountBalance derives an account's balance from its entries
// @Summary Get account balance
// @Description Balance derived from the account's current entry set; asset/expense are debit-normal, the rest credit-normal
// @Tags accounts
// @Produce json
// @Param accountId path int true "Account ID"
// @Success 200 {object} models.AccountBalance
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /accounts/{accountId}/balance [get]
func (as *AccountService) GetAccountBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid account id", http.StatusBadRequest, nil)
		return
	}

	account, err := as.fetchAccount(r.Context(), userID, accountID)
	if err != nil {
		SendLedgerError(w, err)
		return
	}

	var debitSum, creditSum decimal.Decimal
	err = as.db.QueryRowContext(r.Context(),
		"SELECT COALESCE(SUM(debit_amount), 0), COALESCE(SUM(credit_amount), 0) FROM transaction_entries WHERE account_id = $1",
		accountID).Scan(&debitSum, &creditSum)
	if err != nil {
		log.Printf("[ACCOUNT] Balance query failed for account %d: %v", accountID, err)
		SendLedgerError(w, &ledger.PersistenceError{Op: "sum entries", Err: err})
		return
	}

	balance := models.AccountBalance{
		AccountID:   account.ID,
		AccountName: account.Name,
		AccountType: account.AccountType,
		Balance:     ledger.BalanceFromSums(account.AccountType, debitSum, creditSum),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(balance)
}

// UpdateAccount renames an account or changes its description
// @Summary Update an account
// @Description Update name and description; the account type is immutable here
// @Tags accounts
// @Accept json
// @Produce json
// @Param accountId path int true "Account ID"
// @Param account body models.UpdateAccountRequest true "Account data"
// @Success 200 {object} models.Account
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /accounts/{accountId} [put]
func (as *AccountService) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid account id", http.StatusBadRequest, nil)
		return
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req models.UpdateAccountRequest
	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := as.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	account, err := as.updateAccount(r.Context(), userID, accountID, &req)
	if err != nil {
		log.Printf("[ACCOUNT] Update failed for account %d (user %d): %v", accountID, userID, err)
		SendLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(account)
}

func (as *AccountService) updateAccount(ctx context.Context, userID, accountID int64, req *models.UpdateAccountRequest) (*models.Account, error) {
	var a models.Account
	err := as.db.QueryRowContext(ctx,
		"UPDATE accounts SET name = $1, description = $2, updated_at = NOW() WHERE id = $3 AND owner_id = $4 RETURNING id, name, account_type, description, owner_id, created_at, updated_at",
		req.Name, req.Description, accountID, userID).
		Scan(&a.ID, &a.Name, &a.AccountType, &a.Description, &a.OwnerID, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ledger.ErrDuplicateAccountName
		}
		return nil, &ledger.PersistenceError{Op: "update account", Err: err}
	}
	return &a, nil
}

// ChangeAccountType re-types an account that has no entries
// @Summary Change an account's type
// @Description Explicit type change; rejected once any entry references the account, because the type decides the balance sign of history
// @Tags accounts
// @Accept json
// @Produce json
// @Param accountId path int true "Account ID"
// @Param account body models.ChangeAccountTypeRequest true "New account type"
// @Success 200 {object} models.Account
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /accounts/{accountId}/type [put]
func (as *AccountService) ChangeAccountType(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid account id", http.StatusBadRequest, nil)
		return
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req models.ChangeAccountTypeRequest
	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := as.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if !ledger.ValidAccountType(req.AccountType) {
		SendLedgerError(w, ledger.ErrInvalidAccountType)
		return
	}

	account, err := as.changeAccountType(r.Context(), userID, accountID, models.AccountType(req.AccountType))
	if err != nil {
		log.Printf("[ACCOUNT] Type change failed for account %d (user %d): %v", accountID, userID, err)
		SendLedgerError(w, err)
		return
	}

	log.Printf("[ACCOUNT] Account %d re-typed to %s by user %d", accountID, account.AccountType, userID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(account)
}

func (as *AccountService) changeAccountType(ctx context.Context, userID, accountID int64, accountType models.AccountType) (*models.Account, error) {
	dbTx, err := as.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &ledger.PersistenceError{Op: "begin transaction", Err: err}
	}
	defer dbTx.Rollback()

	var id int64
	err = dbTx.QueryRowContext(ctx,
		"SELECT id FROM accounts WHERE id = $1 AND owner_id = $2",
		accountID, userID).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, &ledger.PersistenceError{Op: "find account", Err: err}
	}

	var entryCount int64
	err = dbTx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transaction_entries WHERE account_id = $1",
		accountID).Scan(&entryCount)
	if err != nil {
		return nil, &ledger.PersistenceError{Op: "count entries", Err: err}
	}
	if entryCount > 0 {
		return nil, ledger.ErrAccountHasEntries
	}

	var a models.Account
	err = dbTx.QueryRowContext(ctx,
		"UPDATE accounts SET account_type = $1, updated_at = NOW() WHERE id = $2 RETURNING id, name, account_type, description, owner_id, created_at, updated_at",
		accountType, accountID).
		Scan(&a.ID, &a.Name, &a.AccountType, &a.Description, &a.OwnerID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, &ledger.PersistenceError{Op: "update account type", Err: err}
	}

	if err := dbTx.Commit(); err != nil {
		return nil, &ledger.PersistenceError{Op: "commit type change", Err: err}
	}
	return &a, nil
}

// DeleteAccount removes an account that has no entries
// @Summary Delete an account
// @Description Rejected while any transaction entry still references the account
// @Tags accounts
// @Param accountId path int true "Account ID"
// @Success 204 "No Content"
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /accounts/{accountId} [delete]
func (as *AccountService) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid account id", http.StatusBadRequest, nil)
		return
	}

	if err := as.deleteAccount(r.Context(), userID, accountID); err != nil {
		log.Printf("[ACCOUNT] Delete failed for account %d (user %d): %v", accountID, userID, err)
		SendLedgerError(w, err)
		return
	}

	log.Printf("[ACCOUNT] Account %d deleted by user %d", accountID, userID)
	w.WriteHeader(http.StatusNoContent)
}

func (as *AccountService) deleteAccount(ctx context.Context, userID, accountID int64) error {
	dbTx, err := as.db.BeginTx(ctx, nil)
	if err != nil {
		return &ledger.PersistenceError{Op: "begin transaction", Err: err}
	}
	defer dbTx.Rollback()

	var id int64
	err = dbTx.QueryRowContext(ctx,
		"SELECT id FROM accounts WHERE id = $1 AND owner_id = $2",
		accountID, userID).Scan(&id)
	if err == sql.ErrNoRows {
		return ledger.ErrNotFound
	}
	if err != nil {
		return &ledger.PersistenceError{Op: "find account", Err: err}
	}

	// Balance history must never vanish with an account.
	var entryCount int64
	err = dbTx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transaction_entries WHERE account_id = $1",
		accountID).Scan(&entryCount)
	if err != nil {
		return &ledger.PersistenceError{Op: "count entries", Err: err}
	}
	if entryCount > 0 {
		return ledger.ErrAccountHasEntries
	}

	if _, err := dbTx.ExecContext(ctx, "DELETE FROM accounts WHERE id = $1", accountID); err != nil {
		return &ledger.PersistenceError{Op: "delete account", Err: err}
	}

	if err := dbTx.Commit(); err != nil {
		return &ledger.PersistenceError{Op: "commit delete", Err: err}
	}
	return nil
}
