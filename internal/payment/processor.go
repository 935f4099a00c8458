package payment

import (
	"context"
	"errors"

	"gearshare-backend/internal/domain"
)

var (
	// ErrAuthExpired is returned when the processor rejects the configured credential.
	ErrAuthExpired = errors.New("payment processor credential rejected")
	// ErrNoSuchAccount is returned when a connected account no longer exists.
	ErrNoSuchAccount = errors.New("no such connected account")
)

// Processor is the payment processor contract used by the escrow and payment services.
type Processor interface {
	CreateAccount(ctx context.Context, req AccountRequest) (string, error)
	CreateOnboardingLink(ctx context.Context, accountID string) (string, error)
	RetrieveAccount(ctx context.Context, accountID string) (domain.AccountState, error)
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	RetrievePaymentIntent(ctx context.Context, intentID string) (*Intent, error)
	RetrieveSession(ctx context.Context, sessionID string) (*Session, error)
	CreateRefund(ctx context.Context, req RefundRequest) (*Refund, error)
	CreateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error)
}

type AccountRequest struct {
	OwnerID string
	Email   string
	Country string
}

type IntentRequest struct {
	Amount         int64
	Currency       string
	Metadata       map[string]string
	IdempotencyKey string
}

// Intent statuses the escrow flow distinguishes.
const (
	IntentSucceeded       = "succeeded"
	IntentRequiresCapture = "requires_capture"
)

type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
	Currency     string
}

// Paid is true once the customer's funds are secured, captured or authorized.
func (i *Intent) Paid() bool {
	return i.Status == IntentSucceeded || i.Status == IntentRequiresCapture
}

// Session is the subset of a checkout session needed for reconciliation.
type Session struct {
	ID              string
	PaymentIntentID string
	PaymentStatus   string
	Metadata        map[string]string
}

type RefundRequest struct {
	PaymentIntentID string
	Amount          int64
	Reason          string
	IdempotencyKey  string
}

type Refund struct {
	ID     string
	Amount int64
	Status string
}

type TransferRequest struct {
	Amount         int64
	Currency       string
	Destination    string
	TransferGroup  string
	IdempotencyKey string
}

type Transfer struct {
	ID     string
	Amount int64
}
