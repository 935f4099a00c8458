package domain

import (
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusActive    BookingStatus = "active"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// bookingStatusPickedUp is the legacy name clients still send for active.
const bookingStatusPickedUp = "picked_up"

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusActive, BookingStatusCancelled},
	BookingStatusActive:    {BookingStatusCompleted, BookingStatusCancelled},
	BookingStatusCompleted: nil,
	BookingStatusCancelled: nil,
}

// ParseBookingStatus maps a stored or client supplied value to a BookingStatus.
func ParseBookingStatus(s string) (BookingStatus, error) {
	if s == bookingStatusPickedUp {
		return BookingStatusActive, nil
	}
	st := BookingStatus(s)
	if _, ok := bookingTransitions[st]; !ok {
		return "", Invalid("unknown booking status %q", s)
	}
	return st, nil
}

func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ValidateTransition returns a *TransitionError when from -> to is not in the table.
func ValidateTransition(from, to BookingStatus) error {
	if !from.CanTransitionTo(to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusFailed   PaymentStatus = "failed"
)

// Party identifies which side of a booking an actor is on.
type Party string

const (
	PartyOwner  Party = "owner"
	PartyRenter Party = "renter"
)

// ConfirmationStage is the handover a confirmation flag belongs to.
type ConfirmationStage string

const (
	StagePickup ConfirmationStage = "pickup"
	StageReturn ConfirmationStage = "return"
)

// Transition returns the status a handover is confirmed in and the one it advances to.
func (s ConfirmationStage) Transition() (from, to BookingStatus) {
	if s == StageReturn {
		return BookingStatusActive, BookingStatusCompleted
	}
	return BookingStatusConfirmed, BookingStatusActive
}

// Confirmation holds both parties' flags for one handover.
type Confirmation struct {
	ByOwner    bool       `json:"confirmed_by_owner"`
	ByOwnerAt  *time.Time `json:"confirmed_by_owner_at,omitempty"`
	ByRenter   bool       `json:"confirmed_by_renter"`
	ByRenterAt *time.Time `json:"confirmed_by_renter_at,omitempty"`
}

// Complete reports whether both parties confirmed.
func (c Confirmation) Complete() bool {
	return c.ByOwner && c.ByRenter
}

func (c Confirmation) ConfirmedBy(p Party) bool {
	if p == PartyOwner {
		return c.ByOwner
	}
	return c.ByRenter
}

type Location struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

type Booking struct {
	ID             string        `json:"id"`
	GearID         string        `json:"gear_id"`
	OwnerID        string        `json:"owner_id"`
	RenterID       string        `json:"renter_id"`
	StartDate      time.Time     `json:"start_date"`
	EndDate        time.Time     `json:"end_date"`
	TotalDays      int           `json:"total_days"`
	TotalAmount    int64         `json:"total_amount"`
	DepositAmount  int64         `json:"deposit_amount"`
	Status         BookingStatus `json:"status"`
	PaymentStatus  PaymentStatus `json:"payment_status"`
	EscrowStatus   EscrowStatus  `json:"escrow_status,omitempty"`
	Pickup         Confirmation  `json:"pickup"`
	Return         Confirmation  `json:"return"`
	PickupLocation *Location     `json:"pickup_location,omitempty"`
	Notes          string        `json:"notes"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// PartyOf returns the side userID is on, or ErrUnauthorized.
func (b *Booking) PartyOf(userID string) (Party, error) {
	switch userID {
	case b.OwnerID:
		return PartyOwner, nil
	case b.RenterID:
		return PartyRenter, nil
	}
	return "", ErrUnauthorized
}

// Counterparty returns the user id on the other side of p.
func (b *Booking) Counterparty(p Party) string {
	if p == PartyOwner {
		return b.RenterID
	}
	return b.OwnerID
}

func (b *Booking) Confirmation(stage ConfirmationStage) Confirmation {
	if stage == StageReturn {
		return b.Return
	}
	return b.Pickup
}

// HasPickupCoordinates is false when the owner never set a pickup point.
func (b *Booking) HasPickupCoordinates() bool {
	return b.PickupLocation != nil
}

// WholeDays counts calendar days between start and end; end must be after start.
func WholeDays(start, end time.Time) (int, error) {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	if !s.Before(e) {
		return 0, Invalid("start date must be before end date")
	}
	return int(e.Sub(s).Hours() / 24), nil
}

// BookingPatch lists the fields that may change after creation. Nil means unchanged.
type BookingPatch struct {
	Notes          *string
	PickupLocation *Location
	PaymentStatus  *PaymentStatus
	EscrowStatus   *EscrowStatus
}

func (p BookingPatch) Empty() bool {
	return p.Notes == nil && p.PickupLocation == nil && p.PaymentStatus == nil && p.EscrowStatus == nil
}

// BookingFilter selects bookings by status and timestamp ranges. Zero values are ignored.
type BookingFilter struct {
	Status                   BookingStatus
	CreatedBefore            time.Time
	UpdatedBefore            time.Time
	StartBefore              time.Time
	MissingPickupCoordinates bool
	Limit                    int
}
