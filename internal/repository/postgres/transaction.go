package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/repository"

	"github.com/google/uuid"
)

const transactionColumns = `id, booking_id, amount, rental_amount, deposit_amount, platform_fee, currency, status,
	COALESCE(payment_intent_id, ''), COALESCE(refund_amount, 0), COALESCE(refund_reason, ''), created_at, updated_at`

type transactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) repository.TransactionRepository {
	return &transactionRepository{db: db}
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(&t.ID, &t.BookingID, &t.Amount, &t.RentalAmount, &t.DepositAmount, &t.PlatformFee, &t.Currency, &t.Status,
		&t.PaymentIntentID, &t.RefundAmount, &t.RefundReason, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transactionRepository) Create(ctx context.Context, t *domain.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	query := `INSERT INTO transactions (id, booking_id, amount, rental_amount, deposit_amount, platform_fee, currency, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	logger.DatabaseCall("INSERT", "transactions", "bookingID", t.BookingID)
	_, err := r.db.ExecContext(ctx, query, t.ID, t.BookingID, t.Amount, t.RentalAmount, t.DepositAmount, t.PlatformFee, t.Currency, t.Status, now, now)
	logger.DatabaseResult("INSERT", 1, err, "transactionID", t.ID)
	return err
}

func (r *transactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "transaction", id)
	}
	return t, nil
}

func (r *transactionRepository) GetByPaymentIntent(ctx context.Context, intentID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE payment_intent_id = $1`
	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, intentID))
	if err != nil {
		return nil, notFound(err, "transaction for intent", intentID)
	}
	return t, nil
}

func (r *transactionRepository) SetPaymentIntent(ctx context.Context, id, intentID string) error {
	query := `UPDATE transactions SET payment_intent_id = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, intentID, time.Now().UTC(), id)
	return err
}

func (r *transactionRepository) MarkCompleted(ctx context.Context, intentID string) (*domain.Transaction, bool, error) {
	query := `UPDATE transactions SET status = 'completed', updated_at = $1
	          WHERE payment_intent_id = $2 AND status = 'pending'
	          RETURNING ` + transactionColumns
	logger.DatabaseCall("UPDATE", "transactions", "intentID", intentID, "to", "completed")
	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, time.Now().UTC(), intentID))
	if errors.Is(err, sql.ErrNoRows) {
		t, err = r.GetByPaymentIntent(ctx, intentID)
		return t, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

func (r *transactionRepository) MarkRefunded(ctx context.Context, id string, amount int64, reason string) (bool, error) {
	query := `UPDATE transactions SET status = 'refunded', refund_amount = $1, refund_reason = $2, updated_at = $3
	          WHERE id = $4 AND status = 'completed'`
	res, err := r.db.ExecContext(ctx, query, amount, reason, time.Now().UTC(), id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// BackfillIntent sets intentID on the booking's pending transactions that have none and
// returns any conflicting id already stored on a pending transaction.
func (r *transactionRepository) BackfillIntent(ctx context.Context, bookingID, intentID string) (string, error) {
	update := `UPDATE transactions SET payment_intent_id = $1, updated_at = $2
	           WHERE booking_id = $3 AND status = 'pending' AND (payment_intent_id IS NULL OR payment_intent_id = '')`
	if _, err := r.db.ExecContext(ctx, update, intentID, time.Now().UTC(), bookingID); err != nil {
		return "", err
	}
	var conflicting string
	query := `SELECT payment_intent_id FROM transactions
	          WHERE booking_id = $1 AND status = 'pending' AND payment_intent_id <> $2 LIMIT 1`
	err := r.db.QueryRowContext(ctx, query, bookingID, intentID).Scan(&conflicting)
	if errors.Is(err, sql.ErrNoRows) {
		return intentID, nil
	}
	if err != nil {
		return "", err
	}
	return conflicting, nil
}
