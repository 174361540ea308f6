package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"

	"github.com/Parv-gugnani/accounting-backend/internal/ledger"
	"github.com/Parv-gugnani/accounting-backend/internal/models"
)

// TransactionService is the ledger transaction manager: it owns atomic
// creation and atomic deletion of transactions with their entries. All writes
// happen inside a single database transaction; any failure rolls back fully.
type TransactionService struct {
	db        *sql.DB
	validator *ValidationHelper
}

func NewTransactionService(db *sql.DB) *TransactionService {
	return &TransactionService{
		db:        db,
		validator: NewValidationHelper(),
	}
}

// CreateTransaction handles transaction creation with double-entry checks
// @Summary Create a new transaction
// @Description Create a balanced transaction with at least two debit/credit entries
// @Tags transactions
// @Accept json
// @Produce json
// @Param transaction body models.CreateTransactionRequest true "Transaction data"
// @Success 201 {object} models.Transaction
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /transactions [post]
func (ts *TransactionService) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req models.CreateTransactionRequest
	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := ts.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	tx, err := ts.createTransaction(r.Context(), userID, &req)
	if err != nil {
		log.Printf("[TRANSACTION] Create failed for ref %s (user %d): %v", req.ReferenceNumber, userID, err)
		SendLedgerError(w, err)
		return
	}

	log.Printf("[TRANSACTION] Transaction %s created by user %d with %d entries",
		tx.ReferenceNumber, userID, len(tx.Entries))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(tx)
}

// createTransaction persists the header and all entries as one atomic unit.
// Either every row becomes visible or none do; the unique constraint on
// reference_number is the backstop for concurrent duplicates that slip past
// the fail-fast pre-check.
func (ts *TransactionService) createTransaction(ctx context.Context, userID int64, req *models.CreateTransactionRequest) (*models.Transaction, error) {
	dbTx, err := ts.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &ledger.PersistenceError{Op: "begin transaction", Err: err}
	}
	defer dbTx.Rollback()

	// Fail fast on a known duplicate reference; the storage constraint still
	// decides races at commit time.
	var existingID int64
	err = dbTx.QueryRowContext(ctx,
		"SELECT id FROM transactions WHERE reference_number = $1",
		req.ReferenceNumber).Scan(&existingID)
	if err == nil {
		return nil, ledger.ErrDuplicateReference
	}
	if err != sql.ErrNoRows {
		return nil, &ledger.PersistenceError{Op: "check reference number", Err: err}
	}

	owned, err := ts.ownedAccounts(ctx, dbTx, userID, req.Entries)
	if err != nil {
		return nil, err
	}

	if err := ledger.ValidateEntries(req.Entries, owned); err != nil {
		return nil, err
	}

	transactionDate := time.Now().UTC()
	if req.TransactionDate != nil {
		transactionDate = *req.TransactionDate
	}

	tx := &models.Transaction{
		ReferenceNumber: req.ReferenceNumber,
		Description:     req.Description,
		TransactionDate: transactionDate,
		CreatedByID:     userID,
	}

	err = dbTx.QueryRowContext(ctx,
		"INSERT INTO transactions (reference_number, description, transaction_date, created_by_id) VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at",
		tx.ReferenceNumber, tx.Description, tx.TransactionDate, tx.CreatedByID).
		Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ledger.ErrDuplicateReference
		}
		return nil, &ledger.PersistenceError{Op: "insert transaction", Err: err}
	}

	for _, spec := range req.Entries {
		entry := models.TransactionEntry{
			TransactionID: tx.ID,
			AccountID:     spec.AccountID,
			DebitAmount:   spec.DebitAmount,
			CreditAmount:  spec.CreditAmount,
			Description:   spec.Description,
		}
		err = dbTx.QueryRowContext(ctx,
			"INSERT INTO transaction_entries (transaction_id, account_id, debit_amount, credit_amount, description) VALUES ($1, $2, $3, $4, $5) RETURNING id",
			entry.TransactionID, entry.AccountID, entry.DebitAmount, entry.CreditAmount, entry.Description).
			Scan(&entry.ID)
		if err != nil {
			return nil, &ledger.PersistenceError{Op: "insert transaction entry", Err: err}
		}
		tx.Entries = append(tx.Entries, entry)
	}

	if err := dbTx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return nil, ledger.ErrDuplicateReference
		}
		return nil, &ledger.PersistenceError{Op: "commit transaction", Err: err}
	}

	return tx, nil
}

// ownedAccounts snapshots which of the referenced account ids belong to the
// user. Missing and foreign accounts are indistinguishable in the result.
func (ts *TransactionService) ownedAccounts(ctx context.Context, dbTx *sql.Tx, userID int64, entries []models.EntrySpec) (map[int64]bool, error) {
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.AccountID)
	}

	rows, err := dbTx.QueryContext(ctx,
		"SELECT id FROM accounts WHERE id = ANY($1) AND owner_id = $2",
		pq.Array(ids), userID)
	if err != nil {
		return nil, &ledger.PersistenceError{Op: "look up accounts", Err: err}
	}
	defer rows.Close()

	owned := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, &ledger.PersistenceError{Op: "scan account id", Err: err}
		}
		owned[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, &ledger.PersistenceError{Op: "iterate account ids", Err: err}
	}
	return owned, nil
}

// DeleteTransaction removes a transaction and all its entries atomically
// @Summary Delete a transaction
// @Description Delete a transaction and its entries; derived balances reflect the reversal on the next read
// @Tags transactions
// @Param txId path int true "Transaction ID"
// @Success 204 "No Content"
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /transactions/{txId} [delete]
func (ts *TransactionService) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	txID, err := strconv.ParseInt(chi.URLParam(r, "txId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid transaction id", http.StatusBadRequest, nil)
		return
	}

	if err := ts.deleteTransaction(r.Context(), userID, txID); err != nil {
		log.Printf("[TRANSACTION] Delete failed for transaction %d (user %d): %v", txID, userID, err)
		SendLedgerError(w, err)
		return
	}

	log.Printf("[TRANSACTION] Transaction %d deleted by user %d", txID, userID)
	w.WriteHeader(http.StatusNoContent)
}

// deleteTransaction deletes the header and its entries as one unit. The
// entry delete is explicit rather than a storage cascade so the atomicity
// contract is visible here, not hidden in the schema.
func (ts *TransactionService) deleteTransaction(ctx context.Context, userID, txID int64) error {
	dbTx, err := ts.db.BeginTx(ctx, nil)
	if err != nil {
		return &ledger.PersistenceError{Op: "begin transaction", Err: err}
	}
	defer dbTx.Rollback()

	var id int64
	err = dbTx.QueryRowContext(ctx,
		"SELECT id FROM transactions WHERE id = $1 AND created_by_id = $2",
		txID, userID).Scan(&id)
	if err == sql.ErrNoRows {
		return ledger.ErrNotFound
	}
	if err != nil {
		return &ledger.PersistenceError{Op: "find transaction", Err: err}
	}

	if _, err := dbTx.ExecContext(ctx,
		"DELETE FROM transaction_entries WHERE transaction_id = $1", txID); err != nil {
		return &ledger.PersistenceError{Op: "delete transaction entries", Err: err}
	}

	if _, err := dbTx.ExecContext(ctx,
		"DELETE FROM transactions WHERE id = $1", txID); err != nil {
		return &ledger.PersistenceError{Op: "delete transaction", Err: err}
	}

	if err := dbTx.Commit(); err != nil {
		return &ledger.PersistenceError{Op: "commit delete", Err: err}
	}
	return nil
}

// GetTransaction retrieves a specific transaction with its entries
// @Summary Get transaction by ID
// @Description Retrieve one of the caller's transactions by its ID
// @Tags transactions
// @Produce json
// @Param txId path int true "Transaction ID"
// @Success 200 {object} models.Transaction
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /transactions/{txId} [get]
func (ts *TransactionService) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	txID, err := strconv.ParseInt(chi.URLParam(r, "txId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid transaction id", http.StatusBadRequest, nil)
		return
	}

	tx, err := ts.fetchTransaction(r.Context(), userID, txID)
	if err != nil {
		SendLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tx)
}

// ListTransactions retrieves the caller's transactions, newest first
// @Summary List transactions
// @Description List the caller's transactions with optional date range filtering
// @Tags transactions
// @Produce json
// @Param skip query int false "Rows to skip (default 0)"
// @Param limit query int false "Max rows to return (default 100)"
// @Param start_date query string false "RFC 3339 lower bound on transaction_date"
// @Param end_date query string false "RFC 3339 upper bound on transaction_date"
// @Success 200 {object} object{transactions=[]models.Transaction,count=int}
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /transactions [get]
func (ts *TransactionService) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	skip, limit := parsePagination(r, 100)

	var startDate, endDate *time.Time
	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			SendErrorResponse(w, "Invalid start_date", http.StatusBadRequest, nil)
			return
		}
		startDate = &t
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			SendErrorResponse(w, "Invalid end_date", http.StatusBadRequest, nil)
			return
		}
		endDate = &t
	}

	transactions, err := ts.fetchTransactions(r.Context(), userID, skip, limit, startDate, endDate)
	if err != nil {
		log.Printf("[TRANSACTION] List failed for user %d: %v", userID, err)
		SendLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

func (ts *TransactionService) fetchTransaction(ctx context.Context, userID, txID int64) (*models.Transaction, error) {
	var tx models.Transaction
	err := ts.db.QueryRowContext(ctx,
		"SELECT id, reference_number, description, transaction_date, created_by_id, created_at, updated_at FROM transactions WHERE id = $1 AND created_by_id = $2",
		txID, userID).Scan(&tx.ID, &tx.ReferenceNumber, &tx.Description, &tx.TransactionDate,
		&tx.CreatedByID, &tx.CreatedAt, &tx.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, &ledger.PersistenceError{Op: "fetch transaction", Err: err}
	}

	entries, err := ts.fetchEntries(ctx, []int64{tx.ID})
	if err != nil {
		return nil, err
	}
	tx.Entries = entries[tx.ID]
	return &tx, nil
}

func (ts *TransactionService) fetchTransactions(ctx context.Context, userID int64, skip, limit int, startDate, endDate *time.Time) ([]models.Transaction, error) {
	query := "SELECT id, reference_number, description, transaction_date, created_by_id, created_at, updated_at FROM transactions WHERE created_by_id = $1"
	args := []interface{}{userID}

	if startDate != nil {
		args = append(args, *startDate)
		query += " AND transaction_date >= $" + strconv.Itoa(len(args))
	}
	if endDate != nil {
		args = append(args, *endDate)
		query += " AND transaction_date <= $" + strconv.Itoa(len(args))
	}

	args = append(args, limit)
	query += " ORDER BY transaction_date DESC LIMIT $" + strconv.Itoa(len(args))
	args = append(args, skip)
	query += " OFFSET $" + strconv.Itoa(len(args))

	rows, err := ts.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &ledger.PersistenceError{Op: "list transactions", Err: err}
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	ids := []int64{}
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(&tx.ID, &tx.ReferenceNumber, &tx.Description, &tx.TransactionDate,
			&tx.CreatedByID, &tx.CreatedAt, &tx.UpdatedAt); err != nil {
			return nil, &ledger.PersistenceError{Op: "scan transaction", Err: err}
		}
		transactions = append(transactions, tx)
		ids = append(ids, tx.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, &ledger.PersistenceError{Op: "iterate transactions", Err: err}
	}

	if len(ids) == 0 {
		return transactions, nil
	}

	entries, err := ts.fetchEntries(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range transactions {
		transactions[i].Entries = entries[transactions[i].ID]
	}
	return transactions, nil
}

// fetchEntries loads entries for a set of transactions in one query, keyed
// by transaction id.
func (ts *TransactionService) fetchEntries(ctx context.Context, txIDs []int64) (map[int64][]models.TransactionEntry, error) {
	rows, err := ts.db.QueryContext(ctx,
		"SELECT id, transaction_id, account_id, debit_amount, credit_amount, description FROM transaction_entries WHERE transaction_id = ANY($1) ORDER BY id",
		pq.Array(txIDs))
	if err != nil {
		return nil, &ledger.PersistenceError{Op: "fetch entries", Err: err}
	}
	defer rows.Close()

	entries := make(map[int64][]models.TransactionEntry, len(txIDs))
	for rows.Next() {
		var e models.TransactionEntry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.AccountID, &e.DebitAmount, &e.CreditAmount, &e.Description); err != nil {
			return nil, &ledger.PersistenceError{Op: "scan entry", Err: err}
		}
		entries[e.TransactionID] = append(entries[e.TransactionID], e)
	}
	if err := rows.Err(); err != nil {
		return nil, &ledger.PersistenceError{Op: "iterate entries", Err: err}
	}
	return entries, nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// userIDFromContext reads the owner identity resolved by the auth middleware.
func userIDFromContext(r *http.Request) (int64, bool) {
	raw, ok := r.Context().Value("userID").(string)
	if !ok || raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// parsePagination reads skip/limit query parameters with defaults.
func parsePagination(r *http.Request, defaultLimit int) (skip, limit int) {
	limit = defaultLimit
	if s := r.URL.Query().Get("skip"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			skip = v
		}
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}
	return skip, limit
}
