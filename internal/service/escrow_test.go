package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"gearshare-backend/internal/clock"
	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/payment"
	"gearshare-backend/internal/repository/mocks"
	"gearshare-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type escrowFixture struct {
	bookings *mocks.BookingRepo
	escrow   *mocks.EscrowRepo
	txs      *mocks.TransactionRepo
	accounts *mocks.AccountRepo
	proc     *payment.MockProcessor
	svc      service.EscrowService
}

func newEscrowFixture() *escrowFixture {
	f := &escrowFixture{
		bookings: new(mocks.BookingRepo),
		escrow:   new(mocks.EscrowRepo),
		txs:      new(mocks.TransactionRepo),
		accounts: new(mocks.AccountRepo),
		proc:     payment.NewMockProcessor(),
	}
	f.svc = service.NewEscrowService(f.bookings, f.escrow, f.txs, f.accounts, f.proc, quietNotifier(), clock.NewFixed(testNow), "ron")
	return f
}

func countCalls(calls []string, op string) int {
	n := 0
	for _, c := range calls {
		if c == op {
			n++
		}
	}
	return n
}

func TestEscrowService_Release(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name          string
		releaseType   domain.ReleaseType
		bookingStatus domain.BookingStatus
		transition    domain.BookingStatus
		transfer      int64
		refund        int64
		finalStatus   domain.EscrowStatus
	}{
		{"rental release", domain.ReleaseRental, domain.BookingStatusActive, "", 10000, 0, domain.EscrowStatusHeld},
		{"claim owner", domain.ReleaseClaimOwner, domain.BookingStatusActive, domain.BookingStatusCompleted, 15000, 0, domain.EscrowStatusReleased},
		{"claim renter", domain.ReleaseClaimRenter, domain.BookingStatusActive, domain.BookingStatusCompleted, 10000, 5000, domain.EscrowStatusRefunded},
		{"claim denied", domain.ReleaseClaimDenied, domain.BookingStatusActive, domain.BookingStatusCompleted, 10000, 5000, domain.EscrowStatusRefunded},
		{"return deposit", domain.ReleaseReturnDeposit, domain.BookingStatusCompleted, "", 10000, 5000, domain.EscrowStatusReleased},
		{"auto refund", domain.ReleaseAutoRefund, domain.BookingStatusConfirmed, domain.BookingStatusCancelled, 0, 16300, domain.EscrowStatusRefunded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEscrowFixture()
			f.escrow.On("GetByBooking", ctx, "b1").Return(heldEscrow(), nil).Once()
			f.escrow.On("BeginRelease", ctx, "esc1", tt.releaseType, testNow, mock.Anything).Return(true, nil).Once()
			f.escrow.On("GetByID", ctx, "esc1").Return(heldEscrow(), nil).Once()
			f.escrow.On("CompleteRelease", ctx, "esc1", mock.MatchedBy(func(p domain.ReleasePlan) bool {
				return p.Type == tt.releaseType && p.TransferAmount == tt.transfer && p.RefundAmount == tt.refund
			}), mock.MatchedBy(func(r domain.ReleaseResult) bool {
				return (r.TransferID != "") == (tt.transfer > 0) && (r.RefundID != "") == (tt.refund > 0)
			})).Return(nil).Once()

			b := testBooking(tt.bookingStatus)
			b.EscrowStatus = domain.EscrowStatusHeld
			f.bookings.On("GetByID", ctx, "b1").Return(b, nil).Once()
			if tt.releaseType != domain.ReleaseRental {
				f.bookings.On("Patch", ctx, "b1", mock.MatchedBy(func(p domain.BookingPatch) bool {
					if *p.EscrowStatus != tt.finalStatus {
						return false
					}
					if tt.releaseType == domain.ReleaseAutoRefund {
						return p.PaymentStatus != nil && *p.PaymentStatus == domain.PaymentStatusRefunded
					}
					return p.PaymentStatus == nil
				})).Return(nil).Once()
			}
			if tt.transition != "" {
				f.bookings.On("TransitionStatus", ctx, "b1", tt.bookingStatus, tt.transition).Return(true, nil).Once()
			}

			tx, err := f.svc.Release(ctx, "b1", tt.releaseType)
			require.NoError(t, err)
			assert.Equal(t, tt.finalStatus, tx.EscrowStatus)

			calls := f.proc.Calls()
			assert.Equal(t, boolToInt(tt.transfer > 0), countCalls(calls, "CreateTransfer"))
			assert.Equal(t, boolToInt(tt.refund > 0), countCalls(calls, "CreateRefund"))
			f.escrow.AssertExpectations(t)
			f.bookings.AssertExpectations(t)
			f.escrow.AssertNotCalled(t, "AbortRelease", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func TestEscrowService_Release_AfterRentalPaidOut(t *testing.T) {
	ctx := context.Background()
	f := newEscrowFixture()
	released := func() *domain.EscrowTransaction {
		tx := heldEscrow()
		at := testNow.Add(-24 * time.Hour)
		tx.RentalReleasedAt = &at
		tx.RentalTransferID = "tr_rental"
		return tx
	}

	t.Run("second rental release is not held", func(t *testing.T) {
		f.escrow.On("GetByBooking", ctx, "b1").Return(released(), nil).Once()
		_, err := f.svc.Release(ctx, "b1", domain.ReleaseRental)
		assert.ErrorIs(t, err, domain.ErrNotHeld)
		f.escrow.AssertNotCalled(t, "BeginRelease", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("claim owner pays only the deposit", func(t *testing.T) {
		f.escrow.On("GetByBooking", ctx, "b1").Return(released(), nil).Once()
		f.escrow.On("BeginRelease", ctx, "esc1", domain.ReleaseClaimOwner, testNow, mock.Anything).Return(true, nil).Once()
		f.escrow.On("GetByID", ctx, "esc1").Return(released(), nil).Once()
		f.escrow.On("CompleteRelease", ctx, "esc1", mock.MatchedBy(func(p domain.ReleasePlan) bool {
			return p.TransferAmount == 5000 && p.RefundAmount == 0
		}), mock.Anything).Return(nil).Once()
		f.bookings.On("GetByID", ctx, "b1").Return(testBooking(domain.BookingStatusActive), nil).Once()
		f.bookings.On("Patch", ctx, "b1", mock.Anything).Return(nil).Once()
		f.bookings.On("TransitionStatus", ctx, "b1", domain.BookingStatusActive, domain.BookingStatusCompleted).Return(true, nil).Once()

		_, err := f.svc.Release(ctx, "b1", domain.ReleaseClaimOwner)
		require.NoError(t, err)
		f.escrow.AssertExpectations(t)
	})

	t.Run("auto refund rejected", func(t *testing.T) {
		f.escrow.On("GetByBooking", ctx, "b1").Return(released(), nil).Once()
		_, err := f.svc.Release(ctx, "b1", domain.ReleaseAutoRefund)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestEscrowService_Release_LostRace(t *testing.T) {
	ctx := context.Background()
	f := newEscrowFixture()
	f.escrow.On("GetByBooking", ctx, "b1").Return(heldEscrow(), nil).Once()
	f.escrow.On("BeginRelease", ctx, "esc1", domain.ReleaseClaimOwner, testNow, mock.Anything).Return(false, nil).Once()

	_, err := f.svc.Release(ctx, "b1", domain.ReleaseClaimOwner)
	assert.ErrorIs(t, err, domain.ErrNotHeld)
	assert.Empty(t, f.proc.Calls())
	f.escrow.AssertExpectations(t)
}

func TestEscrowService_Release_NoEscrow(t *testing.T) {
	ctx := context.Background()
	f := newEscrowFixture()
	f.escrow.On("GetByBooking", ctx, "b1").Return(nil, domain.NotFound("escrow transaction", "b1")).Once()

	_, err := f.svc.Release(ctx, "b1", domain.ReleaseRental)
	assert.ErrorIs(t, err, domain.ErrNotHeld)
}

func TestEscrowService_Release_ProcessorFailureAborts(t *testing.T) {
	ctx := context.Background()
	f := newEscrowFixture()
	f.proc.FailNext("CreateRefund", errors.New("card_declined"))
	f.escrow.On("GetByBooking", ctx, "b1").Return(heldEscrow(), nil).Once()
	f.escrow.On("BeginRelease", ctx, "esc1", domain.ReleaseClaimRenter, testNow, mock.Anything).Return(true, nil).Once()
	f.escrow.On("GetByID", ctx, "esc1").Return(heldEscrow(), nil).Once()
	f.escrow.On("AbortRelease", ctx, "esc1", testNow).Return(nil).Once()

	_, err := f.svc.Release(ctx, "b1", domain.ReleaseClaimRenter)
	assert.ErrorIs(t, err, domain.ErrExternalService)
	f.escrow.AssertExpectations(t)
	f.escrow.AssertNotCalled(t, "CompleteRelease", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.bookings.AssertNotCalled(t, "Patch", mock.Anything, mock.Anything, mock.Anything)
}

func TestEscrowService_Release_RetryReusesIdempotencyKeys(t *testing.T) {
	ctx := context.Background()
	f := newEscrowFixture()
	f.escrow.On("GetByBooking", ctx, "b1").Return(heldEscrow(), nil).Twice()
	f.escrow.On("BeginRelease", ctx, "esc1", domain.ReleaseReturnDeposit, testNow, mock.Anything).Return(true, nil).Twice()
	f.escrow.On("GetByID", ctx, "esc1").Return(heldEscrow(), nil).Twice()
	f.escrow.On("AbortRelease", ctx, "esc1", testNow).Return(nil).Once()

	var transferIDs []string
	f.escrow.On("CompleteRelease", ctx, "esc1", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			transferIDs = append(transferIDs, args.Get(3).(domain.ReleaseResult).TransferID)
		}).Return(errors.New("connection reset")).Once()
	f.escrow.On("CompleteRelease", ctx, "esc1", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			transferIDs = append(transferIDs, args.Get(3).(domain.ReleaseResult).TransferID)
		}).Return(nil).Once()
	f.bookings.On("GetByID", ctx, "b1").Return(testBooking(domain.BookingStatusCompleted), nil).Once()
	f.bookings.On("Patch", ctx, "b1", mock.Anything).Return(nil).Once()

	_, err := f.svc.Release(ctx, "b1", domain.ReleaseReturnDeposit)
	require.Error(t, err)
	_, err = f.svc.Release(ctx, "b1", domain.ReleaseReturnDeposit)
	require.NoError(t, err)

	require.Len(t, transferIDs, 2)
	assert.Equal(t, transferIDs[0], transferIDs[1])
	f.escrow.AssertExpectations(t)
}

func TestEscrowService_Release_ClaimCarriesLease(t *testing.T) {
	ctx := context.Background()
	f := newEscrowFixture()
	f.escrow.On("GetByBooking", ctx, "b1").Return(heldEscrow(), nil).Once()
	f.escrow.On("BeginRelease", ctx, "esc1", domain.ReleaseClaimOwner, testNow, mock.MatchedBy(func(ttl time.Duration) bool {
		return ttl > 0 && ttl <= time.Hour
	})).Return(false, nil).Once()

	_, err := f.svc.Release(ctx, "b1", domain.ReleaseClaimOwner)
	assert.ErrorIs(t, err, domain.ErrNotHeld)
	f.escrow.AssertExpectations(t)
	assert.Empty(t, f.proc.Calls())
}

func TestEscrowService_CreateHold(t *testing.T) {
	ctx := context.Background()
	ready := &domain.ConnectedAccount{OwnerID: "owner", AccountID: "acct_owner", ChargesEnabled: true}

	t.Run("Success", func(t *testing.T) {
		f := newEscrowFixture()
		f.bookings.On("GetByID", ctx, "b1").Return(testBooking(domain.BookingStatusConfirmed), nil).Once()
		f.accounts.On("GetByOwner", ctx, "owner").Return(ready, nil).Once()
		f.escrow.On("GetByBooking", ctx, "b1").Return(nil, domain.NotFound("escrow transaction", "b1")).Once()
		f.escrow.On("Create", ctx, mock.MatchedBy(func(tx *domain.EscrowTransaction) bool {
			return tx.PlatformFee == 1300 && tx.OwnerAccountID == "acct_owner" && tx.EscrowStatus == domain.EscrowStatusPending
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.EscrowTransaction).ID = "esc1"
		}).Return(nil).Once()
		f.escrow.On("SetPaymentIntent", ctx, "esc1", mock.Anything, mock.Anything).Return(nil).Once()
		f.bookings.On("Patch", ctx, "b1", mock.Anything).Return(nil).Once()

		handle, err := f.svc.CreateHold(ctx, "b1", 10000, 5000)
		require.NoError(t, err)
		assert.NotEmpty(t, handle.ClientSecret)
		assert.Equal(t, int64(16300), handle.Transaction.TotalCharged())
		f.escrow.AssertExpectations(t)
	})

	t.Run("Owner not ready", func(t *testing.T) {
		f := newEscrowFixture()
		f.bookings.On("GetByID", ctx, "b1").Return(testBooking(domain.BookingStatusConfirmed), nil).Once()
		f.accounts.On("GetByOwner", ctx, "owner").Return(&domain.ConnectedAccount{OwnerID: "owner", AccountID: "acct_owner"}, nil).Once()

		_, err := f.svc.CreateHold(ctx, "b1", 10000, 5000)
		assert.ErrorIs(t, err, domain.ErrOwnerNotReady)
		assert.Empty(t, f.proc.Calls())
	})

	t.Run("No account", func(t *testing.T) {
		f := newEscrowFixture()
		f.bookings.On("GetByID", ctx, "b1").Return(testBooking(domain.BookingStatusConfirmed), nil).Once()
		f.accounts.On("GetByOwner", ctx, "owner").Return(nil, domain.NotFound("connected account", "owner")).Once()

		_, err := f.svc.CreateHold(ctx, "b1", 10000, 5000)
		assert.ErrorIs(t, err, domain.ErrOwnerNotReady)
	})

	t.Run("Existing pending hold is returned", func(t *testing.T) {
		f := newEscrowFixture()
		existing := heldEscrow()
		existing.EscrowStatus = domain.EscrowStatusPending
		existing.ClientSecret = "pi_1_secret"
		f.bookings.On("GetByID", ctx, "b1").Return(testBooking(domain.BookingStatusConfirmed), nil).Once()
		f.accounts.On("GetByOwner", ctx, "owner").Return(ready, nil).Once()
		f.escrow.On("GetByBooking", ctx, "b1").Return(existing, nil).Once()

		handle, err := f.svc.CreateHold(ctx, "b1", 10000, 5000)
		require.NoError(t, err)
		assert.Equal(t, "pi_1_secret", handle.ClientSecret)
		assert.Empty(t, f.proc.Calls())
	})

	t.Run("Invalid amounts", func(t *testing.T) {
		f := newEscrowFixture()
		_, err := f.svc.CreateHold(ctx, "b1", 0, 5000)
		assert.ErrorIs(t, err, domain.ErrValidation)
		_, err = f.svc.CreateHold(ctx, "b1", 100, -1)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Amounts must match the booking", func(t *testing.T) {
		for _, amounts := range [][2]int64{{1, 0}, {10000, 0}, {20000, 5000}} {
			f := newEscrowFixture()
			f.bookings.On("GetByID", ctx, "b1").Return(testBooking(domain.BookingStatusConfirmed), nil).Once()

			_, err := f.svc.CreateHold(ctx, "b1", amounts[0], amounts[1])
			assert.ErrorIs(t, err, domain.ErrValidation, "amounts %v", amounts)
			assert.Empty(t, f.proc.Calls())
			f.accounts.AssertNotCalled(t, "GetByOwner", mock.Anything, mock.Anything)
			f.escrow.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		}
	})
}

func TestEscrowService_ConfirmHeld(t *testing.T) {
	ctx := context.Background()
	pending := func() *domain.EscrowTransaction {
		tx := heldEscrow()
		tx.EscrowStatus = domain.EscrowStatusPending
		tx.HeldAt = nil
		return tx
	}

	t.Run("Success", func(t *testing.T) {
		f := newEscrowFixture()
		f.proc.SetIntent("pi_1", 16300, payment.IntentSucceeded)
		f.escrow.On("GetByID", ctx, "esc1").Return(pending(), nil).Once()
		f.escrow.On("MarkHeld", ctx, "esc1", testNow).Return(true, nil).Once()
		f.bookings.On("Patch", ctx, "b1", mock.MatchedBy(func(p domain.BookingPatch) bool {
			return *p.PaymentStatus == domain.PaymentStatusPaid && *p.EscrowStatus == domain.EscrowStatusHeld
		})).Return(nil).Once()
		f.bookings.On("GetByID", ctx, "b1").Return(testBooking(domain.BookingStatusConfirmed), nil).Once()

		tx, err := f.svc.ConfirmHeld(ctx, "esc1", "pi_1")
		require.NoError(t, err)
		assert.Equal(t, domain.EscrowStatusHeld, tx.EscrowStatus)
		f.escrow.AssertExpectations(t)
		f.bookings.AssertExpectations(t)
	})

	t.Run("Already held is a no-op", func(t *testing.T) {
		f := newEscrowFixture()
		f.escrow.On("GetByID", ctx, "esc1").Return(heldEscrow(), nil).Once()

		_, err := f.svc.ConfirmHeld(ctx, "esc1", "pi_1")
		require.NoError(t, err)
		f.escrow.AssertNotCalled(t, "MarkHeld", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Intent mismatch", func(t *testing.T) {
		f := newEscrowFixture()
		f.escrow.On("GetByID", ctx, "esc1").Return(pending(), nil).Once()

		_, err := f.svc.ConfirmHeld(ctx, "esc1", "pi_other")
		assert.ErrorIs(t, err, domain.ErrIntentMismatch)
	})

	t.Run("Missing intent is backfilled", func(t *testing.T) {
		f := newEscrowFixture()
		tx := pending()
		tx.PaymentIntentID = ""
		f.proc.SetIntent("pi_9", 16300, payment.IntentRequiresCapture)
		f.escrow.On("GetByID", ctx, "esc1").Return(tx, nil).Once()
		f.escrow.On("BackfillIntent", ctx, "b1", "pi_9").Return("pi_9", nil).Once()
		f.escrow.On("MarkHeld", ctx, "esc1", testNow).Return(true, nil).Once()
		f.bookings.On("Patch", ctx, "b1", mock.Anything).Return(nil).Once()
		f.bookings.On("GetByID", ctx, "b1").Return(testBooking(domain.BookingStatusConfirmed), nil).Once()

		got, err := f.svc.ConfirmHeld(ctx, "esc1", "pi_9")
		require.NoError(t, err)
		assert.Equal(t, "pi_9", got.PaymentIntentID)
	})

	t.Run("Unpaid intent is not marked held", func(t *testing.T) {
		f := newEscrowFixture()
		f.proc.SetIntent("pi_1", 16300, "requires_payment_method")
		f.escrow.On("GetByID", ctx, "esc1").Return(pending(), nil).Once()

		_, err := f.svc.ConfirmHeld(ctx, "esc1", "pi_1")
		assert.ErrorIs(t, err, domain.ErrValidation)
		f.escrow.AssertNotCalled(t, "MarkHeld", mock.Anything, mock.Anything, mock.Anything)
		f.bookings.AssertNotCalled(t, "Patch", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Paid amount must cover the escrow", func(t *testing.T) {
		f := newEscrowFixture()
		f.proc.SetIntent("pi_1", 100, payment.IntentSucceeded)
		f.escrow.On("GetByID", ctx, "esc1").Return(pending(), nil).Once()

		_, err := f.svc.ConfirmHeld(ctx, "esc1", "pi_1")
		assert.ErrorIs(t, err, domain.ErrIntentMismatch)
		f.escrow.AssertNotCalled(t, "MarkHeld", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Unverifiable intent is not backfilled", func(t *testing.T) {
		f := newEscrowFixture()
		tx := pending()
		tx.PaymentIntentID = ""
		f.escrow.On("GetByID", ctx, "esc1").Return(tx, nil).Once()

		_, err := f.svc.ConfirmHeld(ctx, "esc1", "pi_forged")
		assert.ErrorIs(t, err, domain.ErrExternalService)
		f.escrow.AssertNotCalled(t, "BackfillIntent", mock.Anything, mock.Anything, mock.Anything)
		f.escrow.AssertNotCalled(t, "MarkHeld", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestEscrowService_Refund(t *testing.T) {
	ctx := context.Background()
	notFound := domain.NotFound("transaction", "esc1")

	t.Run("Escrow refund above refundable is rejected before any processor call", func(t *testing.T) {
		f := newEscrowFixture()
		f.txs.On("GetByID", ctx, "esc1").Return(nil, notFound).Once()
		f.escrow.On("GetByID", ctx, "esc1").Return(heldEscrow(), nil).Once()

		err := f.svc.Refund(ctx, "esc1", 16301, "goodwill")
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Empty(t, f.proc.Calls())
	})

	t.Run("Escrow refund", func(t *testing.T) {
		f := newEscrowFixture()
		f.txs.On("GetByID", ctx, "esc1").Return(nil, notFound).Once()
		f.escrow.On("GetByID", ctx, "esc1").Return(heldEscrow(), nil).Once()
		f.escrow.On("BeginRelease", ctx, "esc1", domain.ReleaseManualRefund, testNow, mock.Anything).Return(true, nil).Once()
		f.escrow.On("MarkRefunded", ctx, "esc1", mock.Anything, int64(5000), "goodwill").Return(true, nil).Once()
		f.bookings.On("Patch", ctx, "b1", mock.Anything).Return(nil).Once()

		err := f.svc.Refund(ctx, "esc1", 5000, "goodwill")
		require.NoError(t, err)
		assert.Equal(t, []string{"CreateRefund"}, f.proc.Calls())
		f.escrow.AssertExpectations(t)
	})

	t.Run("Escrow refund in flight elsewhere", func(t *testing.T) {
		f := newEscrowFixture()
		f.txs.On("GetByID", ctx, "esc1").Return(nil, notFound).Once()
		f.escrow.On("GetByID", ctx, "esc1").Return(heldEscrow(), nil).Once()
		f.escrow.On("BeginRelease", ctx, "esc1", domain.ReleaseManualRefund, testNow, mock.Anything).Return(false, nil).Once()

		err := f.svc.Refund(ctx, "esc1", 5000, "goodwill")
		assert.ErrorIs(t, err, domain.ErrNotHeld)
		assert.Empty(t, f.proc.Calls())
	})

	t.Run("Simple transaction over original amount", func(t *testing.T) {
		f := newEscrowFixture()
		f.txs.On("GetByID", ctx, "t1").Return(&domain.Transaction{ID: "t1", BookingID: "b1", Amount: 11300, Status: domain.TransactionStatusCompleted, PaymentIntentID: "pi_1"}, nil).Once()

		err := f.svc.Refund(ctx, "t1", 20000, "too much")
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Empty(t, f.proc.Calls())
	})

	t.Run("Simple transaction not completed", func(t *testing.T) {
		f := newEscrowFixture()
		f.txs.On("GetByID", ctx, "t1").Return(&domain.Transaction{ID: "t1", BookingID: "b1", Amount: 11300, Status: domain.TransactionStatusPending}, nil).Once()

		err := f.svc.Refund(ctx, "t1", 100, "")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Simple transaction refund", func(t *testing.T) {
		f := newEscrowFixture()
		f.txs.On("GetByID", ctx, "t1").Return(&domain.Transaction{ID: "t1", BookingID: "b1", Amount: 11300, Status: domain.TransactionStatusCompleted, PaymentIntentID: "pi_1"}, nil).Once()
		f.txs.On("MarkRefunded", ctx, "t1", int64(11300), "cancelled").Return(true, nil).Once()
		f.bookings.On("Patch", ctx, "b1", mock.MatchedBy(func(p domain.BookingPatch) bool {
			return *p.PaymentStatus == domain.PaymentStatusRefunded
		})).Return(nil).Once()

		err := f.svc.Refund(ctx, "t1", 11300, "cancelled")
		require.NoError(t, err)
		f.txs.AssertExpectations(t)
	})

	t.Run("Unknown id", func(t *testing.T) {
		f := newEscrowFixture()
		f.txs.On("GetByID", ctx, "nope").Return(nil, domain.NotFound("transaction", "nope")).Once()
		f.escrow.On("GetByID", ctx, "nope").Return(nil, domain.NotFound("escrow transaction", "nope")).Once()

		err := f.svc.Refund(ctx, "nope", 100, "")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
