package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/payment"
	"gearshare-backend/internal/repository/mocks"
	"gearshare-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type paymentFixture struct {
	bookings *mocks.BookingRepo
	txs      *mocks.TransactionRepo
	escrowDB *mocks.EscrowRepo
	rates    *mocks.RateLimitRepo
	escrow   *MockEscrowService
	proc     *payment.MockProcessor
	svc      service.PaymentService
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		bookings: new(mocks.BookingRepo),
		txs:      new(mocks.TransactionRepo),
		escrowDB: new(mocks.EscrowRepo),
		rates:    new(mocks.RateLimitRepo),
		escrow:   new(MockEscrowService),
		proc:     payment.NewMockProcessor(),
	}
	f.svc = service.NewPaymentService(f.bookings, f.txs, f.escrowDB, f.rates, f.escrow, f.proc, quietNotifier(), "ron", 10)
	return f
}

func TestPaymentService_CreatePaymentIntent(t *testing.T) {
	ctx := context.Background()
	req := service.PaymentIntentRequest{BookingID: "b1", RentalAmount: 10000, DepositAmount: 5000, PlatformFee: 1300}

	t.Run("Success", func(t *testing.T) {
		f := newPaymentFixture()
		f.rates.On("Allow", ctx, "payment_intent:renter", 10, time.Hour).Return(true, nil).Once()
		f.bookings.On("GetByID", ctx, "b1").Return(testBooking(domain.BookingStatusConfirmed), nil).Once()
		f.txs.On("Create", ctx, mock.MatchedBy(func(tx *domain.Transaction) bool {
			return tx.Amount == 16300 && tx.Currency == "ron" && tx.Status == domain.TransactionStatusPending
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Transaction).ID = "t1"
		}).Return(nil).Once()
		f.txs.On("SetPaymentIntent", ctx, "t1", mock.AnythingOfType("string")).Return(nil).Once()

		res, err := f.svc.CreatePaymentIntent(ctx, "renter", req)
		require.NoError(t, err)
		assert.Equal(t, "t1", res.TransactionID)
		assert.Equal(t, int64(16300), res.Amount)
		assert.NotEmpty(t, res.ClientSecret)
		f.txs.AssertExpectations(t)
	})

	t.Run("Fee off by one is accepted", func(t *testing.T) {
		f := newPaymentFixture()
		f.rates.On("Allow", ctx, mock.Anything, mock.Anything, mock.Anything).Return(true, nil).Once()
		f.bookings.On("GetByID", ctx, "b1").Return(testBooking(domain.BookingStatusConfirmed), nil).Once()
		f.txs.On("Create", ctx, mock.Anything).Return(nil).Once()
		f.txs.On("SetPaymentIntent", ctx, mock.Anything, mock.Anything).Return(nil).Once()

		off := req
		off.PlatformFee = 1301
		_, err := f.svc.CreatePaymentIntent(ctx, "renter", off)
		require.NoError(t, err)
	})

	t.Run("Fee mismatch", func(t *testing.T) {
		f := newPaymentFixture()
		bad := req
		bad.PlatformFee = 1000
		_, err := f.svc.CreatePaymentIntent(ctx, "renter", bad)
		assert.ErrorIs(t, err, domain.ErrValidation)
		f.rates.AssertNotCalled(t, "Allow", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Rate limited", func(t *testing.T) {
		f := newPaymentFixture()
		f.rates.On("Allow", ctx, "payment_intent:renter", 10, time.Hour).Return(false, nil).Once()

		_, err := f.svc.CreatePaymentIntent(ctx, "renter", req)
		assert.ErrorIs(t, err, domain.ErrRateLimited)
		f.bookings.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("Rate limiter failure allows the request", func(t *testing.T) {
		f := newPaymentFixture()
		f.rates.On("Allow", ctx, mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("db down")).Once()
		f.bookings.On("GetByID", ctx, "b1").Return(testBooking(domain.BookingStatusConfirmed), nil).Once()
		f.txs.On("Create", ctx, mock.Anything).Return(nil).Once()
		f.txs.On("SetPaymentIntent", ctx, mock.Anything, mock.Anything).Return(nil).Once()

		_, err := f.svc.CreatePaymentIntent(ctx, "renter", req)
		require.NoError(t, err)
	})

	t.Run("Only the renter pays", func(t *testing.T) {
		f := newPaymentFixture()
		f.rates.On("Allow", ctx, mock.Anything, mock.Anything, mock.Anything).Return(true, nil).Once()
		f.bookings.On("GetByID", ctx, "b1").Return(testBooking(domain.BookingStatusConfirmed), nil).Once()

		_, err := f.svc.CreatePaymentIntent(ctx, "owner", req)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("Processor failure leaves a pending row", func(t *testing.T) {
		f := newPaymentFixture()
		f.proc.FailNext("CreatePaymentIntent", errors.New("api down"))
		f.rates.On("Allow", ctx, mock.Anything, mock.Anything, mock.Anything).Return(true, nil).Once()
		f.bookings.On("GetByID", ctx, "b1").Return(testBooking(domain.BookingStatusConfirmed), nil).Once()
		f.txs.On("Create", ctx, mock.Anything).Return(nil).Once()

		_, err := f.svc.CreatePaymentIntent(ctx, "renter", req)
		assert.ErrorIs(t, err, domain.ErrExternalService)
		f.txs.AssertNotCalled(t, "SetPaymentIntent", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPaymentService_ReconcileIntent(t *testing.T) {
	ctx := context.Background()

	t.Run("Backfills both records", func(t *testing.T) {
		f := newPaymentFixture()
		f.proc.AddSession("cs_1", "pi_1")
		f.escrowDB.On("BackfillIntent", ctx, "b1", "pi_1").Return("pi_1", nil).Once()
		f.txs.On("BackfillIntent", ctx, "b1", "pi_1").Return("pi_1", nil).Once()

		id, err := f.svc.ReconcileIntent(ctx, "b1", "cs_1")
		require.NoError(t, err)
		assert.Equal(t, "pi_1", id)
	})

	t.Run("No escrow row", func(t *testing.T) {
		f := newPaymentFixture()
		f.proc.AddSession("cs_1", "pi_1")
		f.escrowDB.On("BackfillIntent", ctx, "b1", "pi_1").Return("", domain.NotFound("escrow transaction", "b1")).Once()
		f.txs.On("BackfillIntent", ctx, "b1", "pi_1").Return("pi_1", nil).Once()

		_, err := f.svc.ReconcileIntent(ctx, "b1", "cs_1")
		require.NoError(t, err)
	})

	t.Run("Different intent already recorded", func(t *testing.T) {
		f := newPaymentFixture()
		f.proc.AddSession("cs_1", "pi_1")
		f.escrowDB.On("BackfillIntent", ctx, "b1", "pi_1").Return("pi_other", nil).Once()

		_, err := f.svc.ReconcileIntent(ctx, "b1", "cs_1")
		assert.ErrorIs(t, err, domain.ErrIntentMismatch)
	})

	t.Run("Unknown session", func(t *testing.T) {
		f := newPaymentFixture()
		_, err := f.svc.ReconcileIntent(ctx, "b1", "cs_missing")
		assert.ErrorIs(t, err, domain.ErrExternalService)
	})
}

func TestPaymentService_MarkPaymentSucceeded(t *testing.T) {
	ctx := context.Background()

	t.Run("Simple transaction", func(t *testing.T) {
		f := newPaymentFixture()
		f.txs.On("MarkCompleted", ctx, "pi_1").Return(&domain.Transaction{ID: "t1", BookingID: "b1", Status: domain.TransactionStatusCompleted}, true, nil).Once()
		f.bookings.On("Patch", ctx, "b1", mock.MatchedBy(func(p domain.BookingPatch) bool {
			return *p.PaymentStatus == domain.PaymentStatusPaid
		})).Return(nil).Once()
		f.bookings.On("GetByID", ctx, "b1").Return(testBooking(domain.BookingStatusConfirmed), nil).Once()

		require.NoError(t, f.svc.MarkPaymentSucceeded(ctx, "pi_1"))
		f.bookings.AssertExpectations(t)
	})

	t.Run("Replayed webhook", func(t *testing.T) {
		f := newPaymentFixture()
		f.txs.On("MarkCompleted", ctx, "pi_1").Return(&domain.Transaction{ID: "t1", BookingID: "b1", Status: domain.TransactionStatusCompleted}, false, nil).Once()

		require.NoError(t, f.svc.MarkPaymentSucceeded(ctx, "pi_1"))
		f.bookings.AssertNotCalled(t, "Patch", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Escrow intent", func(t *testing.T) {
		f := newPaymentFixture()
		f.txs.On("MarkCompleted", ctx, "pi_1").Return(nil, false, domain.NotFound("transaction", "pi_1")).Once()
		f.escrowDB.On("GetByPaymentIntent", ctx, "pi_1").Return(heldEscrow(), nil).Once()
		f.escrow.On("ConfirmHeld", ctx, "esc1", "pi_1").Return(heldEscrow(), nil).Once()

		require.NoError(t, f.svc.MarkPaymentSucceeded(ctx, "pi_1"))
		f.escrow.AssertExpectations(t)
	})
}
