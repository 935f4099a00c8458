package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupRepository_DeleteBooking(t *testing.T) {
	cutoff := time.Now().Add(-48 * time.Hour)
	guard := domain.DeleteGuard{Status: domain.BookingStatusPending, CreatedBefore: cutoff}
	deps := []domain.Dependent{domain.DependentMessages, domain.DependentConversations, domain.DependentClaims}

	t.Run("CommitsCascade", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("error opening mock database: %v", err)
		}
		defer db.Close()
		repo := postgres.NewCleanupRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM messages WHERE conversation_id IN").WithArgs("b1").WillReturnResult(sqlmock.NewResult(0, 4))
		mock.ExpectExec("DELETE FROM conversations WHERE booking_id = \\$1").WithArgs("b1").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("DELETE FROM claims WHERE booking_id = \\$1").WithArgs("b1").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("DELETE FROM bookings WHERE id = \\$1 AND status = \\$2 AND created_at < \\$3").
			WithArgs("b1", domain.BookingStatusPending, cutoff).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		deleted, err := repo.DeleteBooking(context.Background(), "b1", guard, deps)
		require.NoError(t, err)
		assert.True(t, deleted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("GuardMissRollsBack", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("error opening mock database: %v", err)
		}
		defer db.Close()
		repo := postgres.NewCleanupRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM messages").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("DELETE FROM conversations").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("DELETE FROM claims").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("DELETE FROM bookings").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		deleted, err := repo.DeleteBooking(context.Background(), "b1", guard, deps)
		require.NoError(t, err)
		assert.False(t, deleted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DependentFailureRollsBack", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("error opening mock database: %v", err)
		}
		defer db.Close()
		repo := postgres.NewCleanupRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM messages").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("DELETE FROM conversations").WillReturnError(errors.New("fk violation"))
		mock.ExpectRollback()

		deleted, err := repo.DeleteBooking(context.Background(), "b1", guard, deps)
		assert.Error(t, err)
		assert.False(t, deleted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCleanupRepository_LogOperation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()
	repo := postgres.NewCleanupRepository(db)

	cutoff := time.Now()
	mock.ExpectExec("SELECT log_cleanup_operation\\(\\$1, \\$2, \\$3, \\$4, \\$5\\)").
		WithArgs("cleanup_stale_bookings", 2, cutoff, sqlmock.AnyArg(), int64(1500)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.LogOperation(context.Background(), domain.CleanupOperation{
		Operation:    "cleanup_stale_bookings",
		DeletedCount: 2,
		Cutoff:       cutoff,
		BookingIDs:   []string{"b1", "b2"},
		Duration:     1500 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimitRepository_Allow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()
	repo := postgres.NewRateLimitRepository(db)

	mock.ExpectQuery("SELECT check_rate_limit").
		WithArgs("payment_intent:u1", 10, 3600).
		WillReturnRows(sqlmock.NewRows([]string{"check_rate_limit"}).AddRow(false))

	allowed, err := repo.Allow(context.Background(), "payment_intent:u1", 10, time.Hour)
	require.NoError(t, err)
	assert.False(t, allowed)
}
