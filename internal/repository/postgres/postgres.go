package postgres

import (
	"context"
	"database/sql"
	"errors"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.BookingRepository
	repository.EscrowRepository
	repository.TransactionRepository
	repository.ClaimRepository
	repository.AccountRepository
	repository.ProfileRepository
	repository.GearRepository
	repository.NotificationRepository
	repository.CleanupRepository
	repository.RateLimitRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                     db,
		BookingRepository:      NewBookingRepository(db),
		EscrowRepository:       NewEscrowRepository(db),
		TransactionRepository:  NewTransactionRepository(db),
		ClaimRepository:        NewClaimRepository(db),
		AccountRepository:      NewAccountRepository(db),
		ProfileRepository:      NewProfileRepository(db),
		GearRepository:         NewGearRepository(db),
		NotificationRepository: NewNotificationRepository(db),
		CleanupRepository:      NewCleanupRepository(db),
		RateLimitRepository:    NewRateLimitRepository(db),
	}
}

// PingContext reports database reachability for health checks.
func (s *Store) PingContext(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// notFound turns sql.ErrNoRows into a domain not-found error.
func notFound(err error, entity, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound(entity, id)
	}
	return err
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
