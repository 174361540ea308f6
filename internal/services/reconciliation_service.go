package services

import (
	"context"
	"database/sql"

	log "github.com/sirupsen/logrus"

	"github.com/Parv-gugnani/accounting-backend/internal/config"
	"github.com/Parv-gugnani/accounting-backend/internal/ledger"
	"github.com/Parv-gugnani/accounting-backend/internal/models"
)

// ReconciliationService re-verifies the ledger invariants over persisted
// rows on a schedule: every transaction still closes at 2-decimal scale,
// every entry is debit XOR credit, and no transaction has fewer than two
// entries. It is a drift alarm, not a repair tool; findings are logged and
// counted, never auto-corrected.
type ReconciliationService struct {
	db  *sql.DB
	cfg *config.ReconcileConfig
}

// ReconcileReport summarises one sweep.
type ReconcileReport struct {
	TransactionsChecked int
	Unbalanced          int
	BadEntries          int
	Underfilled         int
}

func (r ReconcileReport) Clean() bool {
	return r.Unbalanced == 0 && r.BadEntries == 0 && r.Underfilled == 0
}

func NewReconciliationService(db *sql.DB, cfg *config.ReconcileConfig) *ReconciliationService {
	return &ReconciliationService{db: db, cfg: cfg}
}

// Run sweeps the whole ledger in batches ordered by transaction id.
func (s *ReconciliationService) Run(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{}
	afterID := int64(0)

	for {
		lastID, err := s.checkBatch(ctx, afterID, report)
		if err != nil {
			return report, err
		}
		if lastID == afterID {
			break
		}
		afterID = lastID

		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}
	}

	if report.Clean() {
		log.Printf("[RECONCILE] Sweep complete: %d transactions checked, ledger consistent", report.TransactionsChecked)
	} else {
		log.Printf("[RECONCILE] Sweep complete: %d transactions checked, %d unbalanced, %d bad entries, %d underfilled",
			report.TransactionsChecked, report.Unbalanced, report.BadEntries, report.Underfilled)
	}
	return report, nil
}

// checkBatch verifies one batch of transactions and returns the last id it
// saw, or afterID unchanged when the batch was empty. The id is a cursor,
// not an offset, so concurrent creates and deletes cannot shift rows
// between batches.
func (s *ReconciliationService) checkBatch(ctx context.Context, afterID int64, report *ReconcileReport) (int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, reference_number FROM transactions WHERE id > $1 ORDER BY id LIMIT $2",
		afterID, s.cfg.BatchSize)
	if err != nil {
		return afterID, &ledger.PersistenceError{Op: "list transactions", Err: err}
	}
	defer rows.Close()

	type txHead struct {
		id  int64
		ref string
	}
	heads := []txHead{}
	for rows.Next() {
		var h txHead
		if err := rows.Scan(&h.id, &h.ref); err != nil {
			return afterID, &ledger.PersistenceError{Op: "scan transaction", Err: err}
		}
		heads = append(heads, h)
	}
	if err := rows.Err(); err != nil {
		return afterID, &ledger.PersistenceError{Op: "iterate transactions", Err: err}
	}
	if len(heads) == 0 {
		return afterID, nil
	}

	for _, h := range heads {
		entries, err := s.fetchEntries(ctx, h.id)
		if err != nil {
			return afterID, err
		}
		report.TransactionsChecked++

		if len(entries) < 2 {
			report.Underfilled++
			log.Printf("[RECONCILE] Transaction %s (%d) has %d entries", h.ref, h.id, len(entries))
		}
		if !ledger.Balanced(entries) {
			report.Unbalanced++
			log.Printf("[RECONCILE] Transaction %s (%d) does not balance", h.ref, h.id)
		}
		for _, e := range entries {
			if !ledger.Exclusive(e) {
				report.BadEntries++
				log.Printf("[RECONCILE] Entry %d of transaction %s (%d) violates debit/credit exclusivity", e.ID, h.ref, h.id)
			}
		}
	}

	return heads[len(heads)-1].id, nil
}

func (s *ReconciliationService) fetchEntries(ctx context.Context, txID int64) ([]models.TransactionEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, transaction_id, account_id, debit_amount, credit_amount, description FROM transaction_entries WHERE transaction_id = $1 ORDER BY id",
		txID)
	if err != nil {
		return nil, &ledger.PersistenceError{Op: "fetch entries", Err: err}
	}
	defer rows.Close()

	entries := []models.TransactionEntry{}
	for rows.Next() {
		var e models.TransactionEntry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.AccountID, &e.DebitAmount, &e.CreditAmount, &e.Description); err != nil {
			return nil, &ledger.PersistenceError{Op: "scan entry", Err: err}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &ledger.PersistenceError{Op: "iterate entries", Err: err}
	}
	return entries, nil
}
