package http

import (
	"context"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/service"

	"github.com/stretchr/testify/mock"
)

type mockBookings struct {
	service.BookingService
	mock.Mock
}

func (m *mockBookings) CreateBooking(ctx context.Context, renterID string, req service.CreateBookingRequest) (*domain.Booking, error) {
	args := m.Called(ctx, renterID, req)
	return bookingOrNil(args.Get(0)), args.Error(1)
}

func (m *mockBookings) GetBooking(ctx context.Context, actor service.Actor, bookingID string) (*domain.Booking, error) {
	args := m.Called(ctx, actor, bookingID)
	return bookingOrNil(args.Get(0)), args.Error(1)
}

func (m *mockBookings) CancelBooking(ctx context.Context, actorID, bookingID, reason string) (*domain.Booking, error) {
	args := m.Called(ctx, actorID, bookingID, reason)
	return bookingOrNil(args.Get(0)), args.Error(1)
}

func bookingOrNil(v any) *domain.Booking {
	if v == nil {
		return nil
	}
	return v.(*domain.Booking)
}

type mockEscrow struct {
	service.EscrowService
	mock.Mock
}

func (m *mockEscrow) CreateHold(ctx context.Context, bookingID string, rentalAmount, depositAmount int64) (*service.HoldHandle, error) {
	args := m.Called(ctx, bookingID, rentalAmount, depositAmount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.HoldHandle), args.Error(1)
}

func (m *mockEscrow) ConfirmHeld(ctx context.Context, transactionID, intentID string) (*domain.EscrowTransaction, error) {
	args := m.Called(ctx, transactionID, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EscrowTransaction), args.Error(1)
}

func (m *mockEscrow) Release(ctx context.Context, bookingID string, rt domain.ReleaseType) (*domain.EscrowTransaction, error) {
	args := m.Called(ctx, bookingID, rt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EscrowTransaction), args.Error(1)
}

type mockClaims struct {
	service.ClaimService
	mock.Mock
}

func (m *mockClaims) ResolveClaim(ctx context.Context, adminID, claimID string, decision domain.ClaimDecision, notes string) (*domain.Claim, error) {
	args := m.Called(ctx, adminID, claimID, decision, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Claim), args.Error(1)
}

type mockPayments struct {
	service.PaymentService
	mock.Mock
}

func (m *mockPayments) ReconcileIntent(ctx context.Context, bookingID, sessionID string) (string, error) {
	args := m.Called(ctx, bookingID, sessionID)
	return args.String(0), args.Error(1)
}

func (m *mockPayments) MarkPaymentSucceeded(ctx context.Context, intentID string) error {
	return m.Called(ctx, intentID).Error(0)
}

type mockAccounts struct {
	service.AccountService
	mock.Mock
}

func (m *mockAccounts) SyncByAccountID(ctx context.Context, accountID string) (*domain.ConnectedAccount, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConnectedAccount), args.Error(1)
}

type mockSweeper struct {
	mock.Mock
}

func (m *mockSweeper) result(args mock.Arguments) (*domain.SweepResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SweepResult), args.Error(1)
}

func (m *mockSweeper) CleanupStaleBookings(ctx context.Context) (*domain.SweepResult, error) {
	return m.result(m.Called(ctx))
}

func (m *mockSweeper) CleanupCancelledBookings(ctx context.Context) (*domain.SweepResult, error) {
	return m.result(m.Called(ctx))
}

func (m *mockSweeper) AutoRefundOverduePickups(ctx context.Context) (*domain.SweepResult, error) {
	return m.result(m.Called(ctx))
}

type failingPinger struct{ err error }

func (p failingPinger) PingContext(ctx context.Context) error { return p.err }
