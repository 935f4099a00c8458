package domain

import "time"

type ClaimStatus string

const (
	ClaimStatusPending     ClaimStatus = "pending"
	ClaimStatusUnderReview ClaimStatus = "under_review"
	ClaimStatusApproved    ClaimStatus = "approved"
	ClaimStatusRejected    ClaimStatus = "rejected"
)

func (s ClaimStatus) IsOpen() bool {
	return s == ClaimStatusPending || s == ClaimStatusUnderReview
}

type ClaimDecision string

const (
	DecisionApprove ClaimDecision = "approve"
	DecisionReject  ClaimDecision = "reject"
)

func ParseClaimDecision(s string) (ClaimDecision, error) {
	switch d := ClaimDecision(s); d {
	case DecisionApprove, DecisionReject:
		return d, nil
	}
	return "", Invalid("decision must be approve or reject, got %q", s)
}

// Status is the claim status a decision leads to.
func (d ClaimDecision) Status() ClaimStatus {
	if d == DecisionApprove {
		return ClaimStatusApproved
	}
	return ClaimStatusRejected
}

type Claim struct {
	ID           string      `json:"id"`
	BookingID    string      `json:"booking_id"`
	ClaimantID   string      `json:"claimant_id"`
	OwnerID      string      `json:"owner_id,omitempty"`
	RenterID     string      `json:"renter_id,omitempty"`
	ClaimType    string      `json:"claim_type"`
	Description  string      `json:"description"`
	EvidenceURLs []string    `json:"evidence_urls"`
	Status       ClaimStatus `json:"claim_status"`
	ResolvedBy   string      `json:"resolved_by,omitempty"`
	AdminNotes   string      `json:"admin_notes,omitempty"`
	ResolvedAt   *time.Time  `json:"resolved_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// ClaimResolution is the outcome of applying an admin decision to a claim.
type ClaimResolution struct {
	ReleaseType ReleaseType
	// Fallback is set when the claimant matched neither party and the owner path was used.
	Fallback bool
}

// ResolveReleaseType maps claimant identity and decision to a release type.
//
//	owner claim,  approve -> claim_owner     owner claim,  reject -> claim_denied
//	renter claim, approve -> claim_renter    renter claim, reject -> claim_owner
//
// A claimant matching neither party follows the owner rows with Fallback set.
func ResolveReleaseType(claim *Claim, ownerID, renterID string, decision ClaimDecision) ClaimResolution {
	isOwnerClaim := claim.ClaimantID == ownerID
	isRenterClaim := claim.ClaimantID == renterID
	fallback := !isOwnerClaim && !isRenterClaim
	if fallback {
		isOwnerClaim = true
	}

	var rt ReleaseType
	switch {
	case decision == DecisionApprove && isOwnerClaim:
		rt = ReleaseClaimOwner
	case decision == DecisionApprove:
		rt = ReleaseClaimRenter
	case isOwnerClaim:
		rt = ReleaseClaimDenied
	default:
		rt = ReleaseClaimOwner
	}
	return ClaimResolution{ReleaseType: rt, Fallback: fallback}
}
