package repository

import (
	"context"
	"time"

	"gearshare-backend/internal/domain"
)

type BookingRepository interface {
	Create(ctx context.Context, b *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	// SetConfirmation sets one party's flag for a stage while the booking is in the stage's
	// starting status. Returns false when the flag was already set or the status moved on.
	SetConfirmation(ctx context.Context, id string, stage domain.ConfirmationStage, party domain.Party, at time.Time) (bool, error)
	// TransitionStatus moves the booking from -> to only if it is still in from.
	TransitionStatus(ctx context.Context, id string, from, to domain.BookingStatus) (bool, error)
	Patch(ctx context.Context, id string, patch domain.BookingPatch) error
	List(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error)
}

type EscrowRepository interface {
	Create(ctx context.Context, tx *domain.EscrowTransaction) error
	GetByID(ctx context.Context, id string) (*domain.EscrowTransaction, error)
	GetByBooking(ctx context.Context, bookingID string) (*domain.EscrowTransaction, error)
	GetByPaymentIntent(ctx context.Context, intentID string) (*domain.EscrowTransaction, error)
	SetPaymentIntent(ctx context.Context, id, intentID, clientSecret string) error
	// MarkHeld moves pending -> held. Returns false if the row was not pending.
	MarkHeld(ctx context.Context, id string, at time.Time) (bool, error)
	// BeginRelease claims the transaction for one release at the given time. Returns false
	// when another release is in flight or the escrow is no longer held. A claim of the
	// same release type older than ttl is taken over.
	BeginRelease(ctx context.Context, id string, rt domain.ReleaseType, at time.Time, ttl time.Duration) (bool, error)
	CompleteRelease(ctx context.Context, id string, plan domain.ReleasePlan, res domain.ReleaseResult) error
	// AbortRelease drops the claim taken at claimedAt. A claim that was taken over is left alone.
	AbortRelease(ctx context.Context, id string, claimedAt time.Time) error
	// MarkRefunded settles a manual refund claimed with BeginRelease(ReleaseManualRefund).
	MarkRefunded(ctx context.Context, id, refundID string, amount int64, reason string) (bool, error)
	// BackfillIntent stores intentID if none is recorded and returns the stored value.
	BackfillIntent(ctx context.Context, bookingID, intentID string) (string, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	GetByPaymentIntent(ctx context.Context, intentID string) (*domain.Transaction, error)
	SetPaymentIntent(ctx context.Context, id, intentID string) error
	// MarkCompleted completes the pending transaction of an intent. The bool is false
	// when the transaction had already left pending.
	MarkCompleted(ctx context.Context, intentID string) (*domain.Transaction, bool, error)
	MarkRefunded(ctx context.Context, id string, amount int64, reason string) (bool, error)
	BackfillIntent(ctx context.Context, bookingID, intentID string) (string, error)
}

type ClaimRepository interface {
	Create(ctx context.Context, c *domain.Claim) error
	GetByID(ctx context.Context, id string) (*domain.Claim, error)
	ListByBooking(ctx context.Context, bookingID string) ([]domain.Claim, error)
	// UpdateStatus changes status only while the claim is in one of from.
	UpdateStatus(ctx context.Context, c *domain.Claim, from []domain.ClaimStatus) (bool, error)
	HasOpen(ctx context.Context, bookingID string) (bool, error)
}

type AccountRepository interface {
	GetByOwner(ctx context.Context, ownerID string) (*domain.ConnectedAccount, error)
	GetByAccountID(ctx context.Context, accountID string) (*domain.ConnectedAccount, error)
	Create(ctx context.Context, a *domain.ConnectedAccount) error
	UpdateStatus(ctx context.Context, a *domain.ConnectedAccount) error
	ListForSync(ctx context.Context, limit int) ([]domain.ConnectedAccount, error)
}

type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
}

type GearRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Gear, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
}

type CleanupRepository interface {
	// DeleteBooking removes dependents then the booking in one transaction. It returns
	// false, rolling back, when the guard no longer matches.
	DeleteBooking(ctx context.Context, id string, guard domain.DeleteGuard, dependents []domain.Dependent) (bool, error)
	LogOperation(ctx context.Context, op domain.CleanupOperation) error
}

type RateLimitRepository interface {
	// Allow records a hit for key and reports whether it is within limit per window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Pinger is implemented by stores backed by a live connection.
type Pinger interface {
	PingContext(ctx context.Context) error
}
