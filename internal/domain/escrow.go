package domain

import "time"

// PlatformFeePercent is the surcharge the platform keeps on the rental amount.
const PlatformFeePercent = 13

type EscrowStatus string

const (
	EscrowStatusNone     EscrowStatus = ""
	EscrowStatusPending  EscrowStatus = "pending"
	EscrowStatusHeld     EscrowStatus = "held"
	EscrowStatusReleased EscrowStatus = "released"
	EscrowStatusRefunded EscrowStatus = "refunded"
)

func (s EscrowStatus) IsTerminal() bool {
	return s == EscrowStatusReleased || s == EscrowStatusRefunded
}

// CanTransitionTo enforces pending -> held -> {released, refunded}.
func (s EscrowStatus) CanTransitionTo(next EscrowStatus) bool {
	switch s {
	case EscrowStatusPending:
		return next == EscrowStatusHeld
	case EscrowStatusHeld:
		return next == EscrowStatusReleased || next == EscrowStatusRefunded
	}
	return false
}

type ReleaseType string

const (
	ReleaseRental        ReleaseType = "rental_release"
	ReleaseClaimOwner    ReleaseType = "claim_owner"
	ReleaseClaimRenter   ReleaseType = "claim_renter"
	ReleaseClaimDenied   ReleaseType = "claim_denied"
	ReleaseAutoRefund    ReleaseType = "auto_refund"
	ReleaseReturnDeposit ReleaseType = "return_deposit"

	// ReleaseManualRefund marks an admin refund in flight. It is not a release type callers may request.
	ReleaseManualRefund ReleaseType = "manual_refund"
)

func ParseReleaseType(s string) (ReleaseType, error) {
	switch rt := ReleaseType(s); rt {
	case ReleaseRental, ReleaseClaimOwner, ReleaseClaimRenter, ReleaseClaimDenied, ReleaseAutoRefund, ReleaseReturnDeposit:
		return rt, nil
	}
	return "", Invalid("unknown release type %q", s)
}

// IsClaimOutcome is true for release types produced by the claims resolver.
func (rt ReleaseType) IsClaimOutcome() bool {
	return rt == ReleaseClaimOwner || rt == ReleaseClaimRenter || rt == ReleaseClaimDenied
}

// PlatformFee is round(rental * 0.13) with halves rounded up. Never computed on the deposit.
func PlatformFee(rentalAmount int64) int64 {
	if rentalAmount <= 0 {
		return 0
	}
	return (rentalAmount*PlatformFeePercent + 50) / 100
}

// FeeWithinTolerance accepts a client computed fee that is off by at most one minor unit.
func FeeWithinTolerance(rentalAmount, fee int64) bool {
	d := fee - PlatformFee(rentalAmount)
	return d >= -1 && d <= 1
}

type EscrowTransaction struct {
	ID                string       `json:"id"`
	BookingID         string       `json:"booking_id"`
	PaymentIntentID   string       `json:"payment_intent_id,omitempty"`
	ClientSecret      string       `json:"-"`
	RentalAmount      int64        `json:"rental_amount"`
	DepositAmount     int64        `json:"deposit_amount"`
	PlatformFee       int64        `json:"platform_fee"`
	Currency          string       `json:"currency"`
	EscrowStatus      EscrowStatus `json:"escrow_status"`
	OwnerAccountID    string       `json:"owner_stripe_account_id"`
	ReleaseType       ReleaseType  `json:"release_type,omitempty"`
	ReleaseInProgress ReleaseType  `json:"-"`
	RentalReleasedAt  *time.Time   `json:"rental_released_at,omitempty"`
	RentalTransferID  string       `json:"rental_transfer_id,omitempty"`
	TransferID        string       `json:"transfer_id,omitempty"`
	RefundID          string       `json:"refund_id,omitempty"`
	RefundAmount      int64        `json:"refund_amount,omitempty"`
	RefundReason      string       `json:"refund_reason,omitempty"`
	HeldAt            *time.Time   `json:"held_at,omitempty"`
	ReleasedAt        *time.Time   `json:"released_at,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// TotalCharged is what the renter pays: rental, deposit and platform fee.
func (t *EscrowTransaction) TotalCharged() int64 {
	return t.RentalAmount + t.DepositAmount + t.PlatformFee
}

func (t *EscrowTransaction) RentalReleased() bool {
	return t.RentalReleasedAt != nil
}

// Refundable is the most a manual refund may return to the renter.
func (t *EscrowTransaction) Refundable() int64 {
	if t.RentalReleased() {
		return t.TotalCharged() - t.RentalAmount
	}
	return t.TotalCharged()
}

// ReleasePlan is the money movement a release performs.
type ReleasePlan struct {
	Type           ReleaseType
	TransferAmount int64 // to the owner's connected account
	RefundAmount   int64 // back to the renter
	FinalStatus    EscrowStatus
}

// PlanRelease decides the movement for rt against a held transaction.
func PlanRelease(tx *EscrowTransaction, rt ReleaseType) (ReleasePlan, error) {
	if tx.EscrowStatus != EscrowStatusHeld {
		return ReleasePlan{}, ErrNotHeld
	}
	rentalDue := tx.RentalAmount
	if tx.RentalReleased() {
		rentalDue = 0
	}
	plan := ReleasePlan{Type: rt}
	switch rt {
	case ReleaseRental:
		if tx.RentalReleased() {
			return ReleasePlan{}, ErrNotHeld
		}
		plan.TransferAmount = tx.RentalAmount
		plan.FinalStatus = EscrowStatusHeld
	case ReleaseClaimOwner:
		plan.TransferAmount = rentalDue + tx.DepositAmount
		plan.FinalStatus = EscrowStatusReleased
	case ReleaseClaimRenter, ReleaseClaimDenied:
		plan.TransferAmount = rentalDue
		plan.RefundAmount = tx.DepositAmount
		plan.FinalStatus = EscrowStatusRefunded
	case ReleaseReturnDeposit:
		plan.TransferAmount = rentalDue
		plan.RefundAmount = tx.DepositAmount
		plan.FinalStatus = EscrowStatusReleased
	case ReleaseAutoRefund:
		if tx.RentalReleased() {
			return ReleasePlan{}, Invalid("rental already paid out, full refund impossible")
		}
		plan.RefundAmount = tx.TotalCharged()
		plan.FinalStatus = EscrowStatusRefunded
	default:
		return ReleasePlan{}, Invalid("unknown release type %q", rt)
	}
	return plan, nil
}

// ReleaseResult carries processor references produced by a release.
type ReleaseResult struct {
	TransferID string
	RefundID   string
	At         time.Time
}

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusRefunded  TransactionStatus = "refunded"
)

// Transaction is a simple (pre-escrow) payment record tied to a processor intent.
type Transaction struct {
	ID              string            `json:"id"`
	BookingID       string            `json:"booking_id"`
	Amount          int64             `json:"amount"`
	RentalAmount    int64             `json:"rental_amount"`
	DepositAmount   int64             `json:"deposit_amount"`
	PlatformFee     int64             `json:"platform_fee"`
	Currency        string            `json:"currency"`
	Status          TransactionStatus `json:"status"`
	PaymentIntentID string            `json:"payment_intent_id,omitempty"`
	RefundAmount    int64             `json:"refund_amount,omitempty"`
	RefundReason    string            `json:"refund_reason,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}
