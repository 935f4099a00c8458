package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/repository"

	"github.com/lib/pq"
)

// dependentDeletes holds the statement removing one dependent table's rows for a booking ($1).
var dependentDeletes = map[domain.Dependent]string{
	domain.DependentMessages:           `DELETE FROM messages WHERE conversation_id IN (SELECT id FROM conversations WHERE booking_id = $1)`,
	domain.DependentConversations:      `DELETE FROM conversations WHERE booking_id = $1`,
	domain.DependentClaims:             `DELETE FROM claims WHERE booking_id = $1`,
	domain.DependentHandoverPhotos:     `DELETE FROM handover_photos WHERE booking_id = $1`,
	domain.DependentEscrowTransactions: `DELETE FROM escrow_transactions WHERE booking_id = $1`,
	domain.DependentTransactions:       `DELETE FROM transactions WHERE booking_id = $1`,
	domain.DependentReviews:            `DELETE FROM reviews WHERE booking_id = $1`,
}

type cleanupRepository struct {
	db *sql.DB
}

func NewCleanupRepository(db *sql.DB) repository.CleanupRepository {
	return &cleanupRepository{db: db}
}

func (r *cleanupRepository) DeleteBooking(ctx context.Context, id string, guard domain.DeleteGuard, dependents []domain.Dependent) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	for _, dep := range dependents {
		stmt, ok := dependentDeletes[dep]
		if !ok {
			return false, fmt.Errorf("unknown dependent table %q", dep)
		}
		logger.DatabaseCall("DELETE", string(dep), "bookingID", id)
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return false, fmt.Errorf("delete %s: %w", dep, err)
		}
	}

	query := `DELETE FROM bookings WHERE id = $1 AND status = $2`
	args := []any{id, guard.Status}
	if !guard.CreatedBefore.IsZero() {
		args = append(args, guard.CreatedBefore)
		query += fmt.Sprintf(" AND created_at < $%d", len(args))
	}
	if !guard.UpdatedBefore.IsZero() {
		args = append(args, guard.UpdatedBefore)
		query += fmt.Sprintf(" AND updated_at < $%d", len(args))
	}
	logger.DatabaseCall("DELETE", "bookings", "bookingID", id, "status", guard.Status)
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete booking: %w", err)
	}
	deleted, err := affected(res)
	if err != nil {
		return false, err
	}
	if !deleted {
		// guard no longer matches; the deferred rollback restores dependents
		return false, nil
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *cleanupRepository) LogOperation(ctx context.Context, op domain.CleanupOperation) error {
	query := `SELECT log_cleanup_operation($1, $2, $3, $4, $5)`
	ids := op.BookingIDs
	if ids == nil {
		ids = []string{}
	}
	logger.DatabaseCall("RPC", "log_cleanup_operation", "operation", op.Operation, "deleted", op.DeletedCount)
	_, err := r.db.ExecContext(ctx, query, op.Operation, op.DeletedCount, op.Cutoff, pq.Array(ids), op.Duration.Milliseconds())
	return err
}

type rateLimitRepository struct {
	db *sql.DB
}

func NewRateLimitRepository(db *sql.DB) repository.RateLimitRepository {
	return &rateLimitRepository{db: db}
}

func (r *rateLimitRepository) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	var allowed bool
	query := `SELECT check_rate_limit($1, $2, $3)`
	err := r.db.QueryRowContext(ctx, query, key, limit, int(window.Seconds())).Scan(&allowed)
	return allowed, err
}
