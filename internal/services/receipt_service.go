package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
	log "github.com/sirupsen/logrus"

	"github.com/Parv-gugnani/accounting-backend/internal/ledger"
)

// ReceiptService renders QR receipts for persisted transactions. The QR
// payload carries the reference number, date and totals plus a short-lived
// verification code held in Redis, so a scanned receipt can be checked
// against the ledger without exposing any other data.
type ReceiptService struct {
	db    *sql.DB
	redis *redis.Client
}

func NewReceiptService(db *sql.DB, redisClient *redis.Client) *ReceiptService {
	return &ReceiptService{
		db:    db,
		redis: redisClient,
	}
}

type receiptPayload struct {
	ReferenceNumber string          `json:"reference_number"`
	TransactionDate time.Time       `json:"transaction_date"`
	Total           decimal.Decimal `json:"total"`
	VerifyCode      string          `json:"verify_code,omitempty"`
}

// GetReceipt renders a QR receipt for one of the caller's transactions
// @Summary Get a transaction receipt QR code
// @Description Base64 PNG QR encoding the reference number, date and total, with a 24h verification code
// @Tags transactions
// @Produce json
// @Param txId path int true "Transaction ID"
// @Success 200 {object} object{receipt=object,qr_image=string}
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /transactions/{txId}/receipt [get]
func (s *ReceiptService) GetReceipt(w http.ResponseWriter, r *http.Request) {
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

	payload, err := s.buildReceipt(r.Context(), userID, txID)
	if err != nil {
		log.Printf("[RECEIPT] Receipt failed for transaction %d (user %d): %v", txID, userID, err)
		SendLedgerError(w, err)
		return
	}

	qrImage, err := renderQR(payload)
	if err != nil {
		log.Printf("[RECEIPT] QR render failed for transaction %d: %v", txID, err)
		SendErrorResponse(w, "Failed to render receipt", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"receipt":  payload,
		"qr_image": qrImage,
	})
}

func (s *ReceiptService) buildReceipt(ctx context.Context, userID, txID int64) (*receiptPayload, error) {
	var payload receiptPayload
	err := s.db.QueryRowContext(ctx,
		"SELECT reference_number, transaction_date FROM transactions WHERE id = $1 AND created_by_id = $2",
		txID, userID).Scan(&payload.ReferenceNumber, &payload.TransactionDate)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, &ledger.PersistenceError{Op: "fetch transaction", Err: err}
	}

	// The debit total equals the credit total for every persisted
	// transaction, so either side serves as the receipt total.
	err = s.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(debit_amount), 0) FROM transaction_entries WHERE transaction_id = $1",
		txID).Scan(&payload.Total)
	if err != nil {
		return nil, &ledger.PersistenceError{Op: "sum entries", Err: err}
	}

	if s.redis != nil {
		payload.VerifyCode = uuid.New().String()
		key := fmt.Sprintf("receipt:%s", payload.VerifyCode)
		if err := s.redis.Set(ctx, key, payload.ReferenceNumber, 24*time.Hour).Err(); err != nil {
			log.Printf("[RECEIPT] Failed to store verification code: %v", err)
			payload.VerifyCode = ""
		}
	}

	return &payload, nil
}

// VerifyReceipt resolves a scanned verification code
// @Summary Verify a receipt code
// @Description Resolve a receipt verification code to its reference number
// @Tags transactions
// @Produce json
// @Param code path string true "Verification code"
// @Success 200 {object} object{reference_number=string,valid=bool}
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /receipts/{code} [get]
func (s *ReceiptService) VerifyReceipt(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if s.redis == nil {
		SendErrorResponse(w, "Receipt verification unavailable", http.StatusServiceUnavailable, nil)
		return
	}

	key := fmt.Sprintf("receipt:%s", code)
	reference, err := s.redis.Get(r.Context(), key).Result()
	if err == redis.Nil {
		SendErrorResponse(w, "Invalid or expired receipt code", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		log.Printf("[RECEIPT] Verification lookup failed: %v", err)
		SendErrorResponse(w, "Failed to verify receipt", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"reference_number": reference,
		"valid":            true,
	})
}

func renderQR(payload *receiptPayload) (string, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	qr, err := qrcode.New(string(jsonData), qrcode.Medium)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
