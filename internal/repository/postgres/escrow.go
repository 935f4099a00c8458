package postgres

import (
	"context"
	"database/sql"
	"time"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/repository"

	"github.com/google/uuid"
)

const escrowColumns = `id, booking_id, COALESCE(payment_intent_id, ''), COALESCE(client_secret, ''), rental_amount, deposit_amount,
	platform_fee, currency, escrow_status, COALESCE(owner_stripe_account_id, ''), COALESCE(release_type, ''),
	COALESCE(release_in_progress, ''), rental_released_at, COALESCE(rental_transfer_id, ''), COALESCE(transfer_id, ''),
	COALESCE(refund_id, ''), COALESCE(refund_amount, 0), COALESCE(refund_reason, ''), held_at, released_at, created_at, updated_at`

type escrowRepository struct {
	db *sql.DB
}

func NewEscrowRepository(db *sql.DB) repository.EscrowRepository {
	return &escrowRepository{db: db}
}

func scanEscrow(row rowScanner) (*domain.EscrowTransaction, error) {
	var t domain.EscrowTransaction
	err := row.Scan(&t.ID, &t.BookingID, &t.PaymentIntentID, &t.ClientSecret, &t.RentalAmount, &t.DepositAmount,
		&t.PlatformFee, &t.Currency, &t.EscrowStatus, &t.OwnerAccountID, &t.ReleaseType,
		&t.ReleaseInProgress, &t.RentalReleasedAt, &t.RentalTransferID, &t.TransferID,
		&t.RefundID, &t.RefundAmount, &t.RefundReason, &t.HeldAt, &t.ReleasedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *escrowRepository) Create(ctx context.Context, t *domain.EscrowTransaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	query := `INSERT INTO escrow_transactions (id, booking_id, rental_amount, deposit_amount, platform_fee, currency,
	          escrow_status, owner_stripe_account_id, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	logger.DatabaseCall("INSERT", "escrow_transactions", "bookingID", t.BookingID)
	_, err := r.db.ExecContext(ctx, query, t.ID, t.BookingID, t.RentalAmount, t.DepositAmount, t.PlatformFee, t.Currency,
		t.EscrowStatus, nullString(t.OwnerAccountID), now, now)
	logger.DatabaseResult("INSERT", 1, err, "escrowID", t.ID)
	return err
}

func (r *escrowRepository) GetByID(ctx context.Context, id string) (*domain.EscrowTransaction, error) {
	query := `SELECT ` + escrowColumns + ` FROM escrow_transactions WHERE id = $1`
	t, err := scanEscrow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "escrow transaction", id)
	}
	return t, nil
}

// GetByBooking returns the most recent escrow transaction of a booking.
func (r *escrowRepository) GetByBooking(ctx context.Context, bookingID string) (*domain.EscrowTransaction, error) {
	query := `SELECT ` + escrowColumns + ` FROM escrow_transactions WHERE booking_id = $1 ORDER BY created_at DESC LIMIT 1`
	t, err := scanEscrow(r.db.QueryRowContext(ctx, query, bookingID))
	if err != nil {
		return nil, notFound(err, "escrow transaction for booking", bookingID)
	}
	return t, nil
}

func (r *escrowRepository) GetByPaymentIntent(ctx context.Context, intentID string) (*domain.EscrowTransaction, error) {
	query := `SELECT ` + escrowColumns + ` FROM escrow_transactions WHERE payment_intent_id = $1`
	t, err := scanEscrow(r.db.QueryRowContext(ctx, query, intentID))
	if err != nil {
		return nil, notFound(err, "escrow transaction for intent", intentID)
	}
	return t, nil
}

func (r *escrowRepository) SetPaymentIntent(ctx context.Context, id, intentID, clientSecret string) error {
	query := `UPDATE escrow_transactions SET payment_intent_id = $1, client_secret = $2, updated_at = $3 WHERE id = $4`
	_, err := r.db.ExecContext(ctx, query, intentID, clientSecret, time.Now().UTC(), id)
	return err
}

func (r *escrowRepository) MarkHeld(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `UPDATE escrow_transactions SET escrow_status = 'held', held_at = $1, updated_at = $1
	          WHERE id = $2 AND escrow_status = 'pending'`
	logger.DatabaseCall("UPDATE", "escrow_transactions", "escrowID", id, "to", "held")
	res, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *escrowRepository) BeginRelease(ctx context.Context, id string, rt domain.ReleaseType, at time.Time, ttl time.Duration) (bool, error) {
	// a stale claim is only re-taken by its own release type, which replays the same idempotency keys
	query := `UPDATE escrow_transactions SET release_in_progress = $1, release_claimed_at = $2, updated_at = $2
	          WHERE id = $3 AND escrow_status = 'held'
	          AND (release_in_progress IS NULL OR (release_in_progress = $1 AND (release_claimed_at IS NULL OR release_claimed_at < $4)))`
	if rt == domain.ReleaseRental || rt == domain.ReleaseAutoRefund {
		query += ` AND rental_released_at IS NULL`
	}
	logger.DatabaseCall("UPDATE", "escrow_transactions", "escrowID", id, "claim", rt)
	res, err := r.db.ExecContext(ctx, query, rt, at, id, at.Add(-ttl))
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *escrowRepository) CompleteRelease(ctx context.Context, id string, plan domain.ReleasePlan, res domain.ReleaseResult) error {
	var (
		query string
		args  []any
	)
	if plan.Type == domain.ReleaseRental {
		query = `UPDATE escrow_transactions SET rental_released_at = $1, rental_transfer_id = $2, release_in_progress = NULL,
		         release_claimed_at = NULL, updated_at = $1
		         WHERE id = $3 AND release_in_progress = $4`
		args = []any{res.At, nullString(res.TransferID), id, plan.Type}
	} else {
		query = `UPDATE escrow_transactions SET escrow_status = $1, release_type = $2, transfer_id = $3, refund_id = $4,
		         refund_amount = $5, released_at = $6, release_in_progress = NULL, release_claimed_at = NULL, updated_at = $6
		         WHERE id = $7 AND release_in_progress = $8`
		args = []any{plan.FinalStatus, plan.Type, nullString(res.TransferID), nullString(res.RefundID),
			plan.RefundAmount, res.At, id, plan.Type}
	}
	logger.DatabaseCall("UPDATE", "escrow_transactions", "escrowID", id, "release", plan.Type)
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err, "escrowID", id)
		return err
	}
	ok, err := affected(result)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotHeld
	}
	return nil
}

func (r *escrowRepository) AbortRelease(ctx context.Context, id string, claimedAt time.Time) error {
	query := `UPDATE escrow_transactions SET release_in_progress = NULL, release_claimed_at = NULL, updated_at = $1
	          WHERE id = $2 AND release_claimed_at = $3`
	_, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id, claimedAt)
	return err
}

func (r *escrowRepository) MarkRefunded(ctx context.Context, id, refundID string, amount int64, reason string) (bool, error) {
	now := time.Now().UTC()
	query := `UPDATE escrow_transactions SET escrow_status = 'refunded', release_type = $1, refund_id = $2, refund_amount = $3,
	          refund_reason = $4, released_at = $5, release_in_progress = NULL, release_claimed_at = NULL, updated_at = $5
	          WHERE id = $6 AND escrow_status = 'held' AND release_in_progress = $1`
	res, err := r.db.ExecContext(ctx, query, domain.ReleaseManualRefund, refundID, amount, reason, now, id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *escrowRepository) BackfillIntent(ctx context.Context, bookingID, intentID string) (string, error) {
	update := `UPDATE escrow_transactions SET payment_intent_id = $1, updated_at = $2
	           WHERE booking_id = $3 AND (payment_intent_id IS NULL OR payment_intent_id = '')`
	if _, err := r.db.ExecContext(ctx, update, intentID, time.Now().UTC(), bookingID); err != nil {
		return "", err
	}
	var stored string
	query := `SELECT COALESCE(payment_intent_id, '') FROM escrow_transactions WHERE booking_id = $1 ORDER BY created_at DESC LIMIT 1`
	if err := r.db.QueryRowContext(ctx, query, bookingID).Scan(&stored); err != nil {
		return "", notFound(err, "escrow transaction for booking", bookingID)
	}
	return stored, nil
}
