package domain

import "time"

type AccountStatus string

const (
	AccountStatusPending         AccountStatus = "pending"
	AccountStatusActive          AccountStatus = "active"
	AccountStatusRestricted      AccountStatus = "restricted"
	AccountStatusConnectRequired AccountStatus = "connect_required"
	AccountStatusInvalid         AccountStatus = "invalid"
)

// ConnectedAccount is an owner's payout destination at the payment processor.
type ConnectedAccount struct {
	OwnerID        string        `json:"owner_id"`
	AccountID      string        `json:"stripe_account_id"`
	Status         AccountStatus `json:"account_status"`
	ChargesEnabled bool          `json:"charges_enabled"`
	PayoutsEnabled bool          `json:"payouts_enabled"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// CanAcceptCharges gates escrow holds.
func (a *ConnectedAccount) CanAcceptCharges() bool {
	return a != nil && a.AccountID != "" && a.ChargesEnabled
}

// AccountState is what the processor reports for an account.
type AccountState struct {
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
	CurrentlyDue     []string
	DisabledReason   string
}

// DeriveAccountStatus maps processor state to the stored status.
func DeriveAccountStatus(s AccountState) AccountStatus {
	switch {
	case s.ChargesEnabled && s.PayoutsEnabled:
		return AccountStatusActive
	case s.DisabledReason != "":
		return AccountStatusRestricted
	case !s.DetailsSubmitted:
		return AccountStatusConnectRequired
	default:
		return AccountStatusPending
	}
}
