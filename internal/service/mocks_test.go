package service_test

import (
	"context"
	"time"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/repository/mocks"
	"gearshare-backend/internal/service"

	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

type MockEscrowService struct {
	mock.Mock
}

func (m *MockEscrowService) CreateHold(ctx context.Context, bookingID string, rentalAmount, depositAmount int64) (*service.HoldHandle, error) {
	args := m.Called(ctx, bookingID, rentalAmount, depositAmount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.HoldHandle), args.Error(1)
}

func (m *MockEscrowService) ConfirmHeld(ctx context.Context, transactionID, intentID string) (*domain.EscrowTransaction, error) {
	args := m.Called(ctx, transactionID, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EscrowTransaction), args.Error(1)
}

func (m *MockEscrowService) Release(ctx context.Context, bookingID string, rt domain.ReleaseType) (*domain.EscrowTransaction, error) {
	args := m.Called(ctx, bookingID, rt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EscrowTransaction), args.Error(1)
}

func (m *MockEscrowService) Refund(ctx context.Context, transactionID string, amount int64, reason string) error {
	args := m.Called(ctx, transactionID, amount, reason)
	return args.Error(0)
}

func (m *MockEscrowService) GetByBooking(ctx context.Context, bookingID string) (*domain.EscrowTransaction, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EscrowTransaction), args.Error(1)
}

// quietNotifier accepts any notification.
func quietNotifier() *mocks.Notifier {
	n := new(mocks.Notifier)
	n.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
	return n
}

func testBooking(status domain.BookingStatus) *domain.Booking {
	return &domain.Booking{
		ID:            "b1",
		GearID:        "g1",
		OwnerID:       "owner",
		RenterID:      "renter",
		StartDate:     testNow.Add(24 * time.Hour),
		EndDate:       testNow.Add(72 * time.Hour),
		TotalDays:     2,
		TotalAmount:   10000,
		DepositAmount: 5000,
		Status:        status,
		PaymentStatus: domain.PaymentStatusPending,
	}
}

func heldEscrow() *domain.EscrowTransaction {
	held := testNow.Add(-time.Hour)
	return &domain.EscrowTransaction{
		ID:              "esc1",
		BookingID:       "b1",
		PaymentIntentID: "pi_1",
		RentalAmount:    10000,
		DepositAmount:   5000,
		PlatformFee:     1300,
		Currency:        "ron",
		EscrowStatus:    domain.EscrowStatusHeld,
		OwnerAccountID:  "acct_owner",
		HeldAt:          &held,
	}
}
