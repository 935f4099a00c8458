package domain

import "time"

// Dependent is a table whose rows hang off a booking and go before it.
type Dependent string

const (
	DependentMessages           Dependent = "messages"
	DependentConversations      Dependent = "conversations"
	DependentClaims             Dependent = "claims"
	DependentHandoverPhotos     Dependent = "handover_photos"
	DependentEscrowTransactions Dependent = "escrow_transactions"
	DependentTransactions       Dependent = "transactions"
	DependentReviews            Dependent = "reviews"
)

// DeleteGuard repeats the sweep's selection predicate on the booking delete.
type DeleteGuard struct {
	Status        BookingStatus
	CreatedBefore time.Time
	UpdatedBefore time.Time
}

// CleanupOperation is the audit row written after every sweep.
type CleanupOperation struct {
	Operation    string
	DeletedCount int
	Cutoff       time.Time
	BookingIDs   []string
	Duration     time.Duration
}

// SweepFailure is a booking a sweep could not process.
type SweepFailure struct {
	BookingID string `json:"bookingId"`
	Error     string `json:"error"`
}

// SweepResult is the JSON body returned by scheduled invocations.
type SweepResult struct {
	Success         bool           `json:"success"`
	Message         string         `json:"message"`
	DeletedCount    int            `json:"deletedCount"`
	CutoffTime      time.Time      `json:"cutoffTime"`
	DeletedBookings []string       `json:"deletedBookings,omitempty"`
	Failures        []SweepFailure `json:"failures,omitempty"`
}
