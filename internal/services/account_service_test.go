package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/Parv-gugnani/accounting-backend/internal/ledger"
	"github.com/Parv-gugnani/accounting-backend/internal/models"
)

func TestAccountService_createAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAccountService(db)
	userID := int64(7)

	t.Run("successful create", func(t *testing.T) {
		req := &models.CreateAccountRequest{
			Name:        "Cash",
			AccountType: "asset",
			Description: "Petty cash drawer",
		}

		mock.ExpectQuery("INSERT INTO accounts").
			WithArgs("Cash", models.AccountTypeAsset, "Petty cash drawer", userID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(1, time.Now(), time.Now()))

		account, err := service.createAccount(context.Background(), userID, req)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), account.ID)
		assert.Equal(t, models.AccountTypeAsset, account.AccountType)
		assert.Equal(t, userID, account.OwnerID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate name for the same owner", func(t *testing.T) {
		req := &models.CreateAccountRequest{Name: "Cash", AccountType: "asset"}

		mock.ExpectQuery("INSERT INTO accounts").
			WithArgs("Cash", models.AccountTypeAsset, "", userID).
			WillReturnError(&pq.Error{Code: "23505"})

		_, err := service.createAccount(context.Background(), userID, req)
		assert.ErrorIs(t, err, ledger.ErrDuplicateAccountName)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountService_fetchAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAccountService(db)
	userID := int64(7)

	t.Run("owned account", func(t *testing.T) {
		now := time.Now()

		mock.ExpectQuery("SELECT id, name, account_type, description, owner_id, created_at, updated_at FROM accounts WHERE id = \\$1 AND owner_id = \\$2").
			WithArgs(int64(1), userID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "account_type", "description", "owner_id", "created_at", "updated_at"}).
				AddRow(1, "Cash", "asset", "", userID, now, now))

		account, err := service.fetchAccount(context.Background(), userID, 1)
		assert.NoError(t, err)
		assert.Equal(t, "Cash", account.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("foreign account looks missing", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, account_type, description, owner_id, created_at, updated_at FROM accounts WHERE id = \\$1 AND owner_id = \\$2").
			WithArgs(int64(2), userID).
			WillReturnError(sql.ErrNoRows)

		_, err := service.fetchAccount(context.Background(), userID, 2)
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	})
}

func TestAccountService_changeAccountType(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAccountService(db)
	userID := int64(7)

	t.Run("re-types an empty account", func(t *testing.T) {
		now := time.Now()

		mock.ExpectBegin()

		mock.ExpectQuery("SELECT id FROM accounts WHERE id = \\$1 AND owner_id = \\$2").
			WithArgs(int64(1), userID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM transaction_entries WHERE account_id = \\$1").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		mock.ExpectQuery("UPDATE accounts SET account_type = \\$1").
			WithArgs(models.AccountTypeExpense, int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "account_type", "description", "owner_id", "created_at", "updated_at"}).
				AddRow(1, "Cash", "expense", "", userID, now, now))

		mock.ExpectCommit()

		account, err := service.changeAccountType(context.Background(), userID, 1, models.AccountTypeExpense)
		assert.NoError(t, err)
		assert.Equal(t, models.AccountTypeExpense, account.AccountType)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejected once entries exist", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT id FROM accounts WHERE id = \\$1 AND owner_id = \\$2").
			WithArgs(int64(1), userID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM transaction_entries WHERE account_id = \\$1").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

		mock.ExpectRollback()

		_, err := service.changeAccountType(context.Background(), userID, 1, models.AccountTypeExpense)
		assert.ErrorIs(t, err, ledger.ErrAccountHasEntries)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountService_deleteAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAccountService(db)
	userID := int64(7)

	t.Run("deletes an account with no entries", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT id FROM accounts WHERE id = \\$1 AND owner_id = \\$2").
			WithArgs(int64(1), userID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM transaction_entries WHERE account_id = \\$1").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		mock.ExpectExec("DELETE FROM accounts WHERE id = \\$1").
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectCommit()

		err := service.deleteAccount(context.Background(), userID, 1)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("refuses to delete balance history", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT id FROM accounts WHERE id = \\$1 AND owner_id = \\$2").
			WithArgs(int64(1), userID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM transaction_entries WHERE account_id = \\$1").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

		mock.ExpectRollback()

		err := service.deleteAccount(context.Background(), userID, 1)
		assert.ErrorIs(t, err, ledger.ErrAccountHasEntries)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing account", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT id FROM accounts WHERE id = \\$1 AND owner_id = \\$2").
			WithArgs(int64(404), userID).
			WillReturnError(sql.ErrNoRows)

		mock.ExpectRollback()

		err := service.deleteAccount(context.Background(), userID, 404)
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	})
}

func TestAccountService_fetchAccounts(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAccountService(db)
	userID := int64(7)

	t.Run("filters by account type", func(t *testing.T) {
		now := time.Now()

		mock.ExpectQuery("SELECT id, name, account_type, description, owner_id, created_at, updated_at FROM accounts WHERE owner_id = \\$1 AND account_type = \\$2").
			WithArgs(userID, "asset", 100, 0).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "account_type", "description", "owner_id", "created_at", "updated_at"}).
				AddRow(1, "Cash", "asset", "", userID, now, now).
				AddRow(2, "Bank", "asset", "", userID, now, now))

		accounts, err := service.fetchAccounts(context.Background(), userID, 0, 100, "asset")
		assert.NoError(t, err)
		assert.Len(t, accounts, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty result is an empty slice", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, account_type, description, owner_id, created_at, updated_at FROM accounts WHERE owner_id = \\$1").
			WithArgs(userID, 100, 0).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "account_type", "description", "owner_id", "created_at", "updated_at"}))

		accounts, err := service.fetchAccounts(context.Background(), userID, 0, 100, "")
		assert.NoError(t, err)
		assert.NotNil(t, accounts)
		assert.Len(t, accounts, 0)
	})
}

func TestAccountService_updateAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAccountService(db)
	userID := int64(7)

	t.Run("renames without touching the type", func(t *testing.T) {
		now := time.Now()
		req := &models.UpdateAccountRequest{Name: "Cash on hand", Description: "Renamed"}

		mock.ExpectQuery("UPDATE accounts SET name = \\$1, description = \\$2").
			WithArgs("Cash on hand", "Renamed", int64(1), userID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "account_type", "description", "owner_id", "created_at", "updated_at"}).
				AddRow(1, "Cash on hand", "asset", "Renamed", userID, now, now))

		account, err := service.updateAccount(context.Background(), userID, 1, req)
		assert.NoError(t, err)
		assert.Equal(t, "Cash on hand", account.Name)
		assert.Equal(t, models.AccountTypeAsset, account.AccountType)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rename collision", func(t *testing.T) {
		req := &models.UpdateAccountRequest{Name: "Bank"}

		mock.ExpectQuery("UPDATE accounts SET name = \\$1, description = \\$2").
			WithArgs("Bank", "", int64(1), userID).
			WillReturnError(&pq.Error{Code: "23505"})

		_, err := service.updateAccount(context.Background(), userID, 1, req)
		assert.ErrorIs(t, err, ledger.ErrDuplicateAccountName)
	})
}

func TestAccountService_GetAccountBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAccountService(db)
	now := time.Now()

	t.Run("asset balance is debits minus credits", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, account_type, description, owner_id, created_at, updated_at FROM accounts WHERE id = \\$1 AND owner_id = \\$2").
			WithArgs(int64(1), int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "account_type", "description", "owner_id", "created_at", "updated_at"}).
				AddRow(1, "Cash", "asset", "", 7, now, now))

		mock.ExpectQuery("SELECT COALESCE\\(SUM\\(debit_amount\\), 0\\), COALESCE\\(SUM\\(credit_amount\\), 0\\) FROM transaction_entries WHERE account_id = \\$1").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"debit_sum", "credit_sum"}).AddRow("500.00", "200.00"))

		r := httptest.NewRequest("GET", "/accounts/1/balance", nil)
		r = withUserID(withURLParam(r, "accountId", "1"), "7")
		w := httptest.NewRecorder()

		service.GetAccountBalance(w, r)

		assert.Equal(t, http.StatusOK, w.Code)

		var balance models.AccountBalance
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &balance))
		assert.Equal(t, "300.00", balance.Balance.StringFixed(2))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("revenue balance inverts the sign", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, account_type, description, owner_id, created_at, updated_at FROM accounts WHERE id = \\$1 AND owner_id = \\$2").
			WithArgs(int64(2), int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "account_type", "description", "owner_id", "created_at", "updated_at"}).
				AddRow(2, "Sales", "revenue", "", 7, now, now))

		mock.ExpectQuery("SELECT COALESCE\\(SUM\\(debit_amount\\), 0\\), COALESCE\\(SUM\\(credit_amount\\), 0\\) FROM transaction_entries WHERE account_id = \\$1").
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"debit_sum", "credit_sum"}).AddRow("0", "750.00"))

		r := httptest.NewRequest("GET", "/accounts/2/balance", nil)
		r = withUserID(withURLParam(r, "accountId", "2"), "7")
		w := httptest.NewRecorder()

		service.GetAccountBalance(w, r)

		assert.Equal(t, http.StatusOK, w.Code)

		var balance models.AccountBalance
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &balance))
		assert.Equal(t, "750.00", balance.Balance.StringFixed(2))
	})

	t.Run("account with no entries balances to zero", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, account_type, description, owner_id, created_at, updated_at FROM accounts WHERE id = \\$1 AND owner_id = \\$2").
			WithArgs(int64(3), int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "account_type", "description", "owner_id", "created_at", "updated_at"}).
				AddRow(3, "Equipment", "asset", "", 7, now, now))

		mock.ExpectQuery("SELECT COALESCE\\(SUM\\(debit_amount\\), 0\\), COALESCE\\(SUM\\(credit_amount\\), 0\\) FROM transaction_entries WHERE account_id = \\$1").
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"debit_sum", "credit_sum"}).AddRow("0", "0"))

		r := httptest.NewRequest("GET", "/accounts/3/balance", nil)
		r = withUserID(withURLParam(r, "accountId", "3"), "7")
		w := httptest.NewRecorder()

		service.GetAccountBalance(w, r)

		assert.Equal(t, http.StatusOK, w.Code)

		var balance models.AccountBalance
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &balance))
		assert.True(t, balance.Balance.IsZero())
	})

	t.Run("missing account", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, account_type, description, owner_id, created_at, updated_at FROM accounts WHERE id = \\$1 AND owner_id = \\$2").
			WithArgs(int64(404), int64(7)).
			WillReturnError(sql.ErrNoRows)

		r := httptest.NewRequest("GET", "/accounts/404/balance", nil)
		r = withUserID(withURLParam(r, "accountId", "404"), "7")
		w := httptest.NewRecorder()

		service.GetAccountBalance(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("plain error")))
	assert.False(t, isUniqueViolation(nil))
}
