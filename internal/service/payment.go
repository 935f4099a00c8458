package service

import (
	"context"
	"errors"
	"time"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/payment"
	"gearshare-backend/internal/repository"
)

type paymentService struct {
	bookingRepo    repository.BookingRepository
	txRepo         repository.TransactionRepository
	escrowRepo     repository.EscrowRepository
	rateRepo       repository.RateLimitRepository
	escrow         EscrowService
	processor      payment.Processor
	notifier       Notifier
	currency       string
	intentsPerHour int
}

func NewPaymentService(
	bookingRepo repository.BookingRepository,
	txRepo repository.TransactionRepository,
	escrowRepo repository.EscrowRepository,
	rateRepo repository.RateLimitRepository,
	escrow EscrowService,
	processor payment.Processor,
	notifier Notifier,
	currency string,
	intentsPerHour int,
) PaymentService {
	return &paymentService{
		bookingRepo:    bookingRepo,
		txRepo:         txRepo,
		escrowRepo:     escrowRepo,
		rateRepo:       rateRepo,
		escrow:         escrow,
		processor:      processor,
		notifier:       notifier,
		currency:       currency,
		intentsPerHour: intentsPerHour,
	}
}

func validateAmounts(req PaymentIntentRequest) error {
	if req.RentalAmount <= 0 {
		return domain.Invalid("rental amount must be positive")
	}
	if req.DepositAmount < 0 {
		return domain.Invalid("deposit amount must not be negative")
	}
	if req.PlatformFee < 0 {
		return domain.Invalid("platform fee must not be negative")
	}
	if !domain.FeeWithinTolerance(req.RentalAmount, req.PlatformFee) {
		return domain.Invalid("platform fee %d does not match %d%% of rental amount (expected %d)",
			req.PlatformFee, domain.PlatformFeePercent, domain.PlatformFee(req.RentalAmount))
	}
	return nil
}

func (s *paymentService) CreatePaymentIntent(ctx context.Context, userID string, req PaymentIntentRequest) (*PaymentIntentResult, error) {
	logger.EnterMethod("paymentService.CreatePaymentIntent", "userID", userID, "bookingID", req.BookingID)

	if err := validateAmounts(req); err != nil {
		return nil, err
	}

	if s.rateRepo != nil && s.intentsPerHour > 0 {
		allowed, err := s.rateRepo.Allow(ctx, "payment_intent:"+userID, s.intentsPerHour, time.Hour)
		if err != nil {
			logger.Warn("Rate limit check failed, allowing request", "userID", userID, "error", err)
		} else if !allowed {
			return nil, domain.ErrRateLimited
		}
	}

	b, err := s.bookingRepo.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if b.RenterID != userID {
		return nil, domain.ErrUnauthorized
	}
	if b.Status.IsTerminal() {
		return nil, domain.Invalid("booking is %s", b.Status)
	}

	currency := req.Currency
	if currency == "" {
		currency = s.currency
	}
	tx := &domain.Transaction{
		BookingID:     b.ID,
		Amount:        req.RentalAmount + req.DepositAmount + req.PlatformFee,
		RentalAmount:  req.RentalAmount,
		DepositAmount: req.DepositAmount,
		PlatformFee:   req.PlatformFee,
		Currency:      currency,
		Status:        domain.TransactionStatusPending,
	}
	if err := s.txRepo.Create(ctx, tx); err != nil {
		return nil, err
	}

	intent, err := s.processor.CreatePaymentIntent(ctx, payment.IntentRequest{
		Amount:   tx.Amount,
		Currency: currency,
		Metadata: map[string]string{
			"booking_id":     b.ID,
			"transaction_id": tx.ID,
		},
		IdempotencyKey: tx.ID,
	})
	if err != nil {
		// the transaction row stays pending for reconciliation
		logger.ExitMethodWithError("paymentService.CreatePaymentIntent", err, "transactionID", tx.ID)
		return nil, domain.External("create payment intent", err)
	}
	if err := s.txRepo.SetPaymentIntent(ctx, tx.ID, intent.ID); err != nil {
		return nil, err
	}

	logger.ExitMethod("paymentService.CreatePaymentIntent", "transactionID", tx.ID, "intentID", intent.ID)
	return &PaymentIntentResult{
		TransactionID:   tx.ID,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Amount:          tx.Amount,
	}, nil
}

func (s *paymentService) ReconcileIntent(ctx context.Context, bookingID, sessionID string) (string, error) {
	session, err := s.processor.RetrieveSession(ctx, sessionID)
	if err != nil {
		return "", domain.External("retrieve checkout session", err)
	}
	if session.PaymentIntentID == "" {
		return "", domain.Invalid("checkout session %s has no payment intent yet", sessionID)
	}
	if id := session.Metadata["booking_id"]; id != "" && id != bookingID {
		return "", domain.ErrIntentMismatch
	}
	intentID := session.PaymentIntentID

	stored, err := s.escrowRepo.BackfillIntent(ctx, bookingID, intentID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return "", err
	case stored != intentID:
		return "", domain.ErrIntentMismatch
	}

	stored, err = s.txRepo.BackfillIntent(ctx, bookingID, intentID)
	if err != nil {
		return "", err
	}
	if stored != intentID {
		return "", domain.ErrIntentMismatch
	}

	logger.Info("Payment intent reconciled", "bookingID", bookingID, "sessionID", sessionID, "intentID", intentID)
	return intentID, nil
}

func (s *paymentService) MarkPaymentSucceeded(ctx context.Context, intentID string) error {
	tx, completed, err := s.txRepo.MarkCompleted(ctx, intentID)
	if err == nil {
		if !completed {
			logger.Info("Payment success already recorded", "transactionID", tx.ID, "status", tx.Status)
			return nil
		}
		paid := domain.PaymentStatusPaid
		if err := s.bookingRepo.Patch(ctx, tx.BookingID, domain.BookingPatch{PaymentStatus: &paid}); err != nil {
			return err
		}
		if b, err := s.bookingRepo.GetByID(ctx, tx.BookingID); err == nil {
			s.notifier.Notify(ctx, b.OwnerID, domain.NotificationPaymentReceived, bookingPayload(b, "transaction_id", tx.ID))
		}
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	escrowTx, err := s.escrowRepo.GetByPaymentIntent(ctx, intentID)
	if err != nil {
		return err
	}
	_, err = s.escrow.ConfirmHeld(ctx, escrowTx.ID, intentID)
	return err
}
