package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gearshare-backend/internal/clock"
	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/payment"
	"gearshare-backend/internal/repository"
)

type escrowService struct {
	bookingRepo repository.BookingRepository
	escrowRepo  repository.EscrowRepository
	txRepo      repository.TransactionRepository
	accountRepo repository.AccountRepository
	processor   payment.Processor
	notifier    Notifier
	clock       clock.Clock
	currency    string
}

func NewEscrowService(
	bookingRepo repository.BookingRepository,
	escrowRepo repository.EscrowRepository,
	txRepo repository.TransactionRepository,
	accountRepo repository.AccountRepository,
	processor payment.Processor,
	notifier Notifier,
	clk clock.Clock,
	currency string,
) EscrowService {
	return &escrowService{
		bookingRepo: bookingRepo,
		escrowRepo:  escrowRepo,
		txRepo:      txRepo,
		accountRepo: accountRepo,
		processor:   processor,
		notifier:    notifier,
		clock:       clk,
		currency:    currency,
	}
}

func (s *escrowService) GetByBooking(ctx context.Context, bookingID string) (*domain.EscrowTransaction, error) {
	return s.escrowRepo.GetByBooking(ctx, bookingID)
}

func (s *escrowService) CreateHold(ctx context.Context, bookingID string, rentalAmount, depositAmount int64) (*HoldHandle, error) {
	logger.EnterMethod("escrowService.CreateHold", "bookingID", bookingID, "rental", rentalAmount, "deposit", depositAmount)

	if rentalAmount <= 0 {
		return nil, domain.Invalid("rental amount must be positive")
	}
	if depositAmount < 0 {
		return nil, domain.Invalid("deposit amount must not be negative")
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status.IsTerminal() {
		return nil, domain.Invalid("booking is %s", booking.Status)
	}
	if rentalAmount != booking.TotalAmount || depositAmount != booking.DepositAmount {
		return nil, domain.Invalid("hold amounts %d/%d do not match booking amounts %d/%d",
			rentalAmount, depositAmount, booking.TotalAmount, booking.DepositAmount)
	}

	account, err := s.accountRepo.GetByOwner(ctx, booking.OwnerID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if !account.CanAcceptCharges() {
		return nil, domain.ErrOwnerNotReady
	}

	existing, err := s.escrowRepo.GetByBooking(ctx, bookingID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		existing = nil
	case err != nil:
		return nil, err
	case existing.EscrowStatus != domain.EscrowStatusPending:
		return nil, domain.Invalid("booking already has a %s escrow", existing.EscrowStatus)
	case existing.PaymentIntentID != "":
		logger.Info("Returning existing escrow hold", "bookingID", bookingID, "escrowID", existing.ID)
		return &HoldHandle{Transaction: existing, ClientSecret: existing.ClientSecret}, nil
	}

	tx := existing
	if tx == nil {
		tx = &domain.EscrowTransaction{
			BookingID:      bookingID,
			RentalAmount:   rentalAmount,
			DepositAmount:  depositAmount,
			PlatformFee:    domain.PlatformFee(rentalAmount),
			Currency:       s.currency,
			EscrowStatus:   domain.EscrowStatusPending,
			OwnerAccountID: account.AccountID,
		}
		if err := s.escrowRepo.Create(ctx, tx); err != nil {
			return nil, err
		}
	}

	intent, err := s.processor.CreatePaymentIntent(ctx, payment.IntentRequest{
		Amount:   tx.TotalCharged(),
		Currency: tx.Currency,
		Metadata: map[string]string{
			"booking_id":            bookingID,
			"escrow_transaction_id": tx.ID,
		},
		IdempotencyKey: tx.ID + ":hold",
	})
	if err != nil {
		logger.ExitMethodWithError("escrowService.CreateHold", err, "escrowID", tx.ID)
		return nil, domain.External("create payment intent", err)
	}
	if err := s.escrowRepo.SetPaymentIntent(ctx, tx.ID, intent.ID, intent.ClientSecret); err != nil {
		return nil, err
	}
	tx.PaymentIntentID, tx.ClientSecret = intent.ID, intent.ClientSecret

	pending := domain.EscrowStatusPending
	if err := s.bookingRepo.Patch(ctx, bookingID, domain.BookingPatch{EscrowStatus: &pending}); err != nil {
		logger.Warn("Failed to mirror escrow status on booking", "bookingID", bookingID, "error", err)
	}

	logger.ExitMethod("escrowService.CreateHold", "escrowID", tx.ID, "total", tx.TotalCharged())
	return &HoldHandle{Transaction: tx, ClientSecret: intent.ClientSecret}, nil
}

func (s *escrowService) ConfirmHeld(ctx context.Context, transactionID, intentID string) (*domain.EscrowTransaction, error) {
	tx, err := s.escrowRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	switch tx.EscrowStatus {
	case domain.EscrowStatusHeld:
		if tx.PaymentIntentID != intentID {
			return nil, domain.ErrIntentMismatch
		}
		return tx, nil
	case domain.EscrowStatusPending:
	default:
		return nil, domain.Invalid("escrow is already %s", tx.EscrowStatus)
	}
	if tx.PaymentIntentID != "" && tx.PaymentIntentID != intentID {
		return nil, domain.ErrIntentMismatch
	}

	// the processor is the only authority on whether the customer paid
	intent, err := s.processor.RetrievePaymentIntent(ctx, intentID)
	if err != nil {
		return nil, domain.External("retrieve payment intent", err)
	}
	if !intent.Paid() {
		return nil, domain.Invalid("payment intent %s is %s", intentID, intent.Status)
	}
	if intent.Amount != tx.TotalCharged() {
		logger.Warn("Payment intent amount differs from escrow",
			"escrowID", tx.ID, "intentID", intentID, "intentAmount", intent.Amount, "expected", tx.TotalCharged())
		return nil, domain.ErrIntentMismatch
	}

	if tx.PaymentIntentID == "" {
		stored, err := s.escrowRepo.BackfillIntent(ctx, tx.BookingID, intentID)
		if err != nil {
			return nil, err
		}
		tx.PaymentIntentID = stored
	}
	if tx.PaymentIntentID != intentID {
		return nil, domain.ErrIntentMismatch
	}

	now := s.clock.Now()
	moved, err := s.escrowRepo.MarkHeld(ctx, tx.ID, now)
	if err != nil {
		return nil, err
	}
	if !moved {
		// concurrent confirmation; accept it only if it recorded the same intent
		current, err := s.escrowRepo.GetByID(ctx, tx.ID)
		if err != nil {
			return nil, err
		}
		if current.EscrowStatus == domain.EscrowStatusHeld && current.PaymentIntentID == intentID {
			return current, nil
		}
		return nil, domain.Invalid("escrow is %s", current.EscrowStatus)
	}
	tx.EscrowStatus = domain.EscrowStatusHeld
	tx.HeldAt = &now

	paid := domain.PaymentStatusPaid
	held := domain.EscrowStatusHeld
	if err := s.bookingRepo.Patch(ctx, tx.BookingID, domain.BookingPatch{PaymentStatus: &paid, EscrowStatus: &held}); err != nil {
		return nil, err
	}

	if booking, err := s.bookingRepo.GetByID(ctx, tx.BookingID); err == nil {
		s.notifier.Notify(ctx, booking.OwnerID, domain.NotificationPaymentReceived, bookingPayload(booking, "escrow_transaction_id", tx.ID))
	}
	logger.Info("Escrow held", "bookingID", tx.BookingID, "escrowID", tx.ID, "intentID", intentID)
	return tx, nil
}

// releaseClaimTTL bounds how long a crashed release can hold the escrow.
const releaseClaimTTL = 15 * time.Minute

func idempotencyKey(bookingID string, rt domain.ReleaseType, leg string) string {
	return fmt.Sprintf("%s:%s:%s", bookingID, rt, leg)
}

func (s *escrowService) Release(ctx context.Context, bookingID string, releaseType domain.ReleaseType) (*domain.EscrowTransaction, error) {
	log := logger.WithBooking(bookingID).With("release_type", releaseType)
	log.Debug("→ Release requested")

	tx, err := s.escrowRepo.GetByBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotHeld
		}
		return nil, err
	}
	if _, err := domain.PlanRelease(tx, releaseType); err != nil {
		return nil, err
	}

	claimedAt := s.clock.Now()
	claimed, err := s.escrowRepo.BeginRelease(ctx, tx.ID, releaseType, claimedAt, releaseClaimTTL)
	if err != nil {
		return nil, err
	}
	if !claimed {
		log.Info("Release lost to a concurrent release")
		return nil, domain.ErrNotHeld
	}

	// plan against the row as it is now that the release is ours
	current, err := s.escrowRepo.GetByID(ctx, tx.ID)
	if err != nil {
		s.abort(ctx, bookingID, tx, claimedAt)
		return nil, err
	}
	tx = current
	plan, err := domain.PlanRelease(tx, releaseType)
	if err != nil {
		s.abort(ctx, bookingID, tx, claimedAt)
		return nil, err
	}

	res, err := s.move(ctx, tx, plan)
	if err != nil {
		log.Error("Escrow money movement failed", "error", err)
		s.abort(ctx, bookingID, tx, claimedAt)
		return nil, domain.External("escrow release", err)
	}

	if err := s.escrowRepo.CompleteRelease(ctx, tx.ID, plan, res); err != nil {
		// retrying replays the processor calls under the same idempotency keys
		log.Error("Failed to record completed release", "error", err, "transferID", res.TransferID, "refundID", res.RefundID)
		s.abort(ctx, bookingID, tx, claimedAt)
		return nil, err
	}
	tx.TransferID, tx.RefundID = res.TransferID, res.RefundID
	if plan.Type == domain.ReleaseRental {
		tx.RentalReleasedAt = &res.At
		tx.RentalTransferID = res.TransferID
	} else {
		tx.EscrowStatus = plan.FinalStatus
		tx.ReleaseType = plan.Type
		tx.RefundAmount = plan.RefundAmount
		tx.ReleasedAt = &res.At
	}

	booking, err := s.applyBookingEffects(ctx, bookingID, plan)
	if err != nil {
		log.Error("Escrow released but booking update failed", "error", err)
		return tx, nil
	}
	s.notifier.Notify(ctx, booking.OwnerID, domain.NotificationEscrowReleased, bookingPayload(booking, "release_type", string(plan.Type)))
	if plan.RefundAmount > 0 {
		s.notifier.Notify(ctx, booking.RenterID, domain.NotificationEscrowReleased, bookingPayload(booking, "release_type", string(plan.Type)))
	}

	log.Info("Escrow released", "transfer", plan.TransferAmount, "refund", plan.RefundAmount, "final_status", plan.FinalStatus)
	return tx, nil
}

func (s *escrowService) abort(ctx context.Context, bookingID string, tx *domain.EscrowTransaction, claimedAt time.Time) {
	if tx == nil {
		return
	}
	if err := s.escrowRepo.AbortRelease(ctx, tx.ID, claimedAt); err != nil {
		logger.Error("Failed to release escrow claim", "bookingID", bookingID, "escrowID", tx.ID, "error", err)
	}
}

// move performs the transfer and refund legs of plan.
func (s *escrowService) move(ctx context.Context, tx *domain.EscrowTransaction, plan domain.ReleasePlan) (domain.ReleaseResult, error) {
	var res domain.ReleaseResult
	if plan.TransferAmount > 0 {
		if tx.OwnerAccountID == "" {
			return res, errors.New("escrow has no payout destination")
		}
		t, err := s.processor.CreateTransfer(ctx, payment.TransferRequest{
			Amount:         plan.TransferAmount,
			Currency:       tx.Currency,
			Destination:    tx.OwnerAccountID,
			TransferGroup:  tx.BookingID,
			IdempotencyKey: idempotencyKey(tx.BookingID, plan.Type, "transfer"),
		})
		if err != nil {
			return res, fmt.Errorf("transfer: %w", err)
		}
		res.TransferID = t.ID
	}
	if plan.RefundAmount > 0 {
		r, err := s.processor.CreateRefund(ctx, payment.RefundRequest{
			PaymentIntentID: tx.PaymentIntentID,
			Amount:          plan.RefundAmount,
			Reason:          string(plan.Type),
			IdempotencyKey:  idempotencyKey(tx.BookingID, plan.Type, "refund"),
		})
		if err != nil {
			return res, fmt.Errorf("refund: %w", err)
		}
		res.RefundID = r.ID
	}
	res.At = s.clock.Now()
	return res, nil
}

// applyBookingEffects mirrors a release onto the booking row.
func (s *escrowService) applyBookingEffects(ctx context.Context, bookingID string, plan domain.ReleasePlan) (*domain.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if plan.Type == domain.ReleaseRental {
		return booking, nil
	}

	patch := domain.BookingPatch{EscrowStatus: &plan.FinalStatus}
	if plan.Type == domain.ReleaseAutoRefund {
		refunded := domain.PaymentStatusRefunded
		patch.PaymentStatus = &refunded
	}
	if err := s.bookingRepo.Patch(ctx, bookingID, patch); err != nil {
		return nil, err
	}
	booking.EscrowStatus = plan.FinalStatus

	var target domain.BookingStatus
	switch {
	case plan.Type == domain.ReleaseAutoRefund:
		target = domain.BookingStatusCancelled
	case plan.Type.IsClaimOutcome() && booking.Status == domain.BookingStatusActive:
		target = domain.BookingStatusCompleted
	case plan.Type.IsClaimOutcome() && booking.Status == domain.BookingStatusConfirmed:
		target = domain.BookingStatusCancelled
	}
	if target == "" || !booking.Status.CanTransitionTo(target) {
		return booking, nil
	}
	moved, err := s.bookingRepo.TransitionStatus(ctx, bookingID, booking.Status, target)
	if err != nil {
		return nil, err
	}
	if moved {
		booking.Status = target
	}
	return booking, nil
}

func (s *escrowService) Refund(ctx context.Context, transactionID string, amount int64, reason string) error {
	logger.EnterMethod("escrowService.Refund", "transactionID", transactionID, "amount", amount)
	if amount <= 0 {
		return domain.Invalid("refund amount must be positive")
	}

	simple, err := s.txRepo.GetByID(ctx, transactionID)
	switch {
	case err == nil:
		return s.refundTransaction(ctx, simple, amount, reason)
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}

	tx, err := s.escrowRepo.GetByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NotFound("transaction", transactionID)
		}
		return err
	}
	return s.refundEscrow(ctx, tx, amount, reason)
}

func (s *escrowService) refundTransaction(ctx context.Context, t *domain.Transaction, amount int64, reason string) error {
	if t.Status != domain.TransactionStatusCompleted {
		return domain.Invalid("transaction is %s, only completed payments can be refunded", t.Status)
	}
	if amount > t.Amount {
		return domain.Invalid("refund %d exceeds original amount %d", amount, t.Amount)
	}
	r, err := s.processor.CreateRefund(ctx, payment.RefundRequest{
		PaymentIntentID: t.PaymentIntentID,
		Amount:          amount,
		Reason:          reason,
		IdempotencyKey:  t.ID + ":refund",
	})
	if err != nil {
		return domain.External("refund payment", err)
	}
	ok, err := s.txRepo.MarkRefunded(ctx, t.ID, amount, reason)
	if err != nil {
		return err
	}
	if !ok {
		logger.Warn("Transaction changed during refund", "transactionID", t.ID, "refundID", r.ID)
	}
	refunded := domain.PaymentStatusRefunded
	if err := s.bookingRepo.Patch(ctx, t.BookingID, domain.BookingPatch{PaymentStatus: &refunded}); err != nil {
		logger.Warn("Failed to mark booking refunded", "bookingID", t.BookingID, "error", err)
	}
	logger.ExitMethod("escrowService.Refund", "transactionID", t.ID, "refundID", r.ID)
	return nil
}

func (s *escrowService) refundEscrow(ctx context.Context, tx *domain.EscrowTransaction, amount int64, reason string) error {
	if tx.EscrowStatus != domain.EscrowStatusHeld {
		return domain.ErrNotHeld
	}
	if amount > tx.Refundable() {
		return domain.Invalid("refund %d exceeds refundable amount %d", amount, tx.Refundable())
	}
	claimedAt := s.clock.Now()
	claimed, err := s.escrowRepo.BeginRelease(ctx, tx.ID, domain.ReleaseManualRefund, claimedAt, releaseClaimTTL)
	if err != nil {
		return err
	}
	if !claimed {
		return domain.ErrNotHeld
	}
	r, err := s.processor.CreateRefund(ctx, payment.RefundRequest{
		PaymentIntentID: tx.PaymentIntentID,
		Amount:          amount,
		Reason:          reason,
		IdempotencyKey:  idempotencyKey(tx.BookingID, domain.ReleaseManualRefund, "refund"),
	})
	if err != nil {
		s.abort(ctx, tx.BookingID, tx, claimedAt)
		return domain.External("refund escrow", err)
	}
	if _, err := s.escrowRepo.MarkRefunded(ctx, tx.ID, r.ID, amount, reason); err != nil {
		s.abort(ctx, tx.BookingID, tx, claimedAt)
		return err
	}

	refunded := domain.EscrowStatusRefunded
	refundedPayment := domain.PaymentStatusRefunded
	if err := s.bookingRepo.Patch(ctx, tx.BookingID, domain.BookingPatch{EscrowStatus: &refunded, PaymentStatus: &refundedPayment}); err != nil {
		logger.Warn("Failed to mirror refund on booking", "bookingID", tx.BookingID, "error", err)
	}
	logger.ExitMethod("escrowService.Refund", "escrowID", tx.ID, "refundID", r.ID)
	return nil
}
