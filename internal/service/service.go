package service

import (
	"context"
	"time"

	"gearshare-backend/internal/domain"
)

type BookingService interface {
	CreateBooking(ctx context.Context, renterID string, req CreateBookingRequest) (*domain.Booking, error)
	GetBooking(ctx context.Context, actor Actor, bookingID string) (*domain.Booking, error)
	AcceptBooking(ctx context.Context, ownerID, bookingID string) (*domain.Booking, error)
	RejectBooking(ctx context.Context, ownerID, bookingID, reason string) (*domain.Booking, error)
	CancelBooking(ctx context.Context, actorID, bookingID, reason string) (*domain.Booking, error)
	ConfirmPickup(ctx context.Context, actorID, bookingID string) (*domain.Booking, error)
	ConfirmReturn(ctx context.Context, actorID, bookingID string) (*domain.Booking, error)
	SetPickupLocation(ctx context.Context, ownerID, bookingID string, loc domain.Location) (*domain.Booking, error)
}

type EscrowService interface {
	CreateHold(ctx context.Context, bookingID string, rentalAmount, depositAmount int64) (*HoldHandle, error)
	ConfirmHeld(ctx context.Context, transactionID, intentID string) (*domain.EscrowTransaction, error)
	Release(ctx context.Context, bookingID string, releaseType domain.ReleaseType) (*domain.EscrowTransaction, error)
	Refund(ctx context.Context, transactionID string, amount int64, reason string) error
	GetByBooking(ctx context.Context, bookingID string) (*domain.EscrowTransaction, error)
}

type ClaimService interface {
	FileClaim(ctx context.Context, claimantID string, req FileClaimRequest) (*domain.Claim, error)
	ListClaims(ctx context.Context, actor Actor, bookingID string) ([]domain.Claim, error)
	MarkUnderReview(ctx context.Context, adminID, claimID string) (*domain.Claim, error)
	ResolveClaim(ctx context.Context, adminID, claimID string, decision domain.ClaimDecision, notes string) (*domain.Claim, error)
}

type PaymentService interface {
	CreatePaymentIntent(ctx context.Context, userID string, req PaymentIntentRequest) (*PaymentIntentResult, error)
	ReconcileIntent(ctx context.Context, bookingID, sessionID string) (string, error)
	MarkPaymentSucceeded(ctx context.Context, intentID string) error
}

type AccountService interface {
	SetupAccount(ctx context.Context, ownerID, email, country string) (*domain.ConnectedAccount, string, error)
	GetAccount(ctx context.Context, ownerID string) (*domain.ConnectedAccount, error)
	SyncAccount(ctx context.Context, ownerID string) (*domain.ConnectedAccount, error)
	SyncByAccountID(ctx context.Context, accountID string) (*domain.ConnectedAccount, error)
	SyncAll(ctx context.Context, limit int) (SyncSummary, error)
}

// Notifier delivers in-app notifications. Delivery is best effort and never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, userID string, t domain.NotificationType, payload map[string]string)
}

type EmailSender interface {
	Send(ctx context.Context, to, toName, subject, body string) error
}

// Actor is the authenticated caller of a read operation.
type Actor struct {
	UserID  string
	IsAdmin bool
}

type CreateBookingRequest struct {
	GearID         string           `json:"gear_id"`
	StartDate      time.Time        `json:"start_date"`
	EndDate        time.Time        `json:"end_date"`
	DepositAmount  *int64           `json:"deposit_amount,omitempty"`
	PickupLocation *domain.Location `json:"pickup_location,omitempty"`
	Notes          string           `json:"notes"`
}

// HoldHandle is what the renter's client needs to complete an escrow payment.
type HoldHandle struct {
	Transaction  *domain.EscrowTransaction `json:"transaction"`
	ClientSecret string                    `json:"client_secret"`
}

type FileClaimRequest struct {
	BookingID    string   `json:"booking_id"`
	ClaimType    string   `json:"claim_type"`
	Description  string   `json:"description"`
	EvidenceURLs []string `json:"evidence_urls"`
}

type PaymentIntentRequest struct {
	BookingID     string `json:"booking_id"`
	RentalAmount  int64  `json:"rental_amount"`
	DepositAmount int64  `json:"deposit_amount"`
	PlatformFee   int64  `json:"platform_fee"`
	Currency      string `json:"currency,omitempty"`
}

type PaymentIntentResult struct {
	TransactionID   string `json:"transaction_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
	Amount          int64  `json:"amount"`
}

// SyncSummary reports an account sync run.
type SyncSummary struct {
	Synced  int `json:"synced"`
	Changed int `json:"changed"`
	Failed  int `json:"failed"`
}
