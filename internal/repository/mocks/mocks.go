// Package mocks holds testify mocks of the repository interfaces.
package mocks

import (
	"context"
	"time"

	"gearshare-backend/internal/domain"

	"github.com/stretchr/testify/mock"
)

// BookingRepo
type BookingRepo struct {
	mock.Mock
}

func (m *BookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}
func (m *BookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}
func (m *BookingRepo) SetConfirmation(ctx context.Context, id string, stage domain.ConfirmationStage, party domain.Party, at time.Time) (bool, error) {
	args := m.Called(ctx, id, stage, party, at)
	return args.Bool(0), args.Error(1)
}
func (m *BookingRepo) TransitionStatus(ctx context.Context, id string, from, to domain.BookingStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}
func (m *BookingRepo) Patch(ctx context.Context, id string, patch domain.BookingPatch) error {
	args := m.Called(ctx, id, patch)
	return args.Error(0)
}
func (m *BookingRepo) List(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

// EscrowRepo
type EscrowRepo struct {
	mock.Mock
}

func (m *EscrowRepo) Create(ctx context.Context, t *domain.EscrowTransaction) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}
func (m *EscrowRepo) GetByID(ctx context.Context, id string) (*domain.EscrowTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EscrowTransaction), args.Error(1)
}
func (m *EscrowRepo) GetByBooking(ctx context.Context, bookingID string) (*domain.EscrowTransaction, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EscrowTransaction), args.Error(1)
}
func (m *EscrowRepo) GetByPaymentIntent(ctx context.Context, intentID string) (*domain.EscrowTransaction, error) {
	args := m.Called(ctx, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EscrowTransaction), args.Error(1)
}
func (m *EscrowRepo) SetPaymentIntent(ctx context.Context, id, intentID, clientSecret string) error {
	args := m.Called(ctx, id, intentID, clientSecret)
	return args.Error(0)
}
func (m *EscrowRepo) MarkHeld(ctx context.Context, id string, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}
func (m *EscrowRepo) BeginRelease(ctx context.Context, id string, rt domain.ReleaseType, at time.Time, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, id, rt, at, ttl)
	return args.Bool(0), args.Error(1)
}
func (m *EscrowRepo) CompleteRelease(ctx context.Context, id string, plan domain.ReleasePlan, res domain.ReleaseResult) error {
	args := m.Called(ctx, id, plan, res)
	return args.Error(0)
}
func (m *EscrowRepo) AbortRelease(ctx context.Context, id string, claimedAt time.Time) error {
	args := m.Called(ctx, id, claimedAt)
	return args.Error(0)
}
func (m *EscrowRepo) MarkRefunded(ctx context.Context, id, refundID string, amount int64, reason string) (bool, error) {
	args := m.Called(ctx, id, refundID, amount, reason)
	return args.Bool(0), args.Error(1)
}
func (m *EscrowRepo) BackfillIntent(ctx context.Context, bookingID, intentID string) (string, error) {
	args := m.Called(ctx, bookingID, intentID)
	return args.String(0), args.Error(1)
}

// TransactionRepo
type TransactionRepo struct {
	mock.Mock
}

func (m *TransactionRepo) Create(ctx context.Context, t *domain.Transaction) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}
func (m *TransactionRepo) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}
func (m *TransactionRepo) GetByPaymentIntent(ctx context.Context, intentID string) (*domain.Transaction, error) {
	args := m.Called(ctx, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}
func (m *TransactionRepo) SetPaymentIntent(ctx context.Context, id, intentID string) error {
	args := m.Called(ctx, id, intentID)
	return args.Error(0)
}
func (m *TransactionRepo) MarkCompleted(ctx context.Context, intentID string) (*domain.Transaction, bool, error) {
	args := m.Called(ctx, intentID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Transaction), args.Bool(1), args.Error(2)
}
func (m *TransactionRepo) MarkRefunded(ctx context.Context, id string, amount int64, reason string) (bool, error) {
	args := m.Called(ctx, id, amount, reason)
	return args.Bool(0), args.Error(1)
}
func (m *TransactionRepo) BackfillIntent(ctx context.Context, bookingID, intentID string) (string, error) {
	args := m.Called(ctx, bookingID, intentID)
	return args.String(0), args.Error(1)
}

// ClaimRepo
type ClaimRepo struct {
	mock.Mock
}

func (m *ClaimRepo) Create(ctx context.Context, c *domain.Claim) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}
func (m *ClaimRepo) GetByID(ctx context.Context, id string) (*domain.Claim, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Claim), args.Error(1)
}
func (m *ClaimRepo) ListByBooking(ctx context.Context, bookingID string) ([]domain.Claim, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Claim), args.Error(1)
}
func (m *ClaimRepo) UpdateStatus(ctx context.Context, c *domain.Claim, from []domain.ClaimStatus) (bool, error) {
	args := m.Called(ctx, c, from)
	return args.Bool(0), args.Error(1)
}
func (m *ClaimRepo) HasOpen(ctx context.Context, bookingID string) (bool, error) {
	args := m.Called(ctx, bookingID)
	return args.Bool(0), args.Error(1)
}

// AccountRepo
type AccountRepo struct {
	mock.Mock
}

func (m *AccountRepo) GetByOwner(ctx context.Context, ownerID string) (*domain.ConnectedAccount, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConnectedAccount), args.Error(1)
}
func (m *AccountRepo) GetByAccountID(ctx context.Context, accountID string) (*domain.ConnectedAccount, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConnectedAccount), args.Error(1)
}
func (m *AccountRepo) Create(ctx context.Context, a *domain.ConnectedAccount) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}
func (m *AccountRepo) UpdateStatus(ctx context.Context, a *domain.ConnectedAccount) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}
func (m *AccountRepo) ListForSync(ctx context.Context, limit int) ([]domain.ConnectedAccount, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ConnectedAccount), args.Error(1)
}

// GearRepo
type GearRepo struct {
	mock.Mock
}

func (m *GearRepo) GetByID(ctx context.Context, id string) (*domain.Gear, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Gear), args.Error(1)
}

// ProfileRepo
type ProfileRepo struct {
	mock.Mock
}

func (m *ProfileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

// NotificationRepo
type NotificationRepo struct {
	mock.Mock
}

func (m *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// CleanupRepo
type CleanupRepo struct {
	mock.Mock
}

func (m *CleanupRepo) DeleteBooking(ctx context.Context, id string, guard domain.DeleteGuard, deps []domain.Dependent) (bool, error) {
	args := m.Called(ctx, id, guard, deps)
	return args.Bool(0), args.Error(1)
}
func (m *CleanupRepo) LogOperation(ctx context.Context, op domain.CleanupOperation) error {
	args := m.Called(ctx, op)
	return args.Error(0)
}

// RateLimitRepo
type RateLimitRepo struct {
	mock.Mock
}

func (m *RateLimitRepo) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

// Notifier records notifications; it satisfies service.Notifier.
type Notifier struct {
	mock.Mock
}

func (m *Notifier) Notify(ctx context.Context, userID string, t domain.NotificationType, payload map[string]string) {
	m.Called(ctx, userID, t, payload)
}
