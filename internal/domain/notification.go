package domain

import "time"

type NotificationType string

const (
	NotificationBookingRequest   NotificationType = "booking_request"
	NotificationBookingConfirmed NotificationType = "booking_confirmed"
	NotificationBookingRejected  NotificationType = "booking_rejected"
	NotificationBookingCancelled NotificationType = "booking_cancelled"
	NotificationPickupConfirmed  NotificationType = "pickup_confirmed"
	NotificationBookingActive    NotificationType = "booking_active"
	NotificationReturnConfirmed  NotificationType = "return_confirmed"
	NotificationBookingCompleted NotificationType = "booking_completed"
	NotificationPaymentReceived  NotificationType = "payment_received"
	NotificationEscrowReleased   NotificationType = "escrow_released"
	NotificationClaimFiled       NotificationType = "claim_filed"
	NotificationClaimResolved    NotificationType = "claim_resolved"
	NotificationDisputeOpened    NotificationType = "dispute_opened"
)

type Notification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Type      NotificationType  `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	IsRead    bool              `json:"is_read"`
	Payload   map[string]string `json:"data"`
	CreatedAt time.Time         `json:"created_at"`
}

// Profile is the slice of a user profile notifications need.
type Profile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// Gear is the listing a booking rents.
type Gear struct {
	ID            string `json:"id"`
	OwnerID       string `json:"owner_id"`
	Title         string `json:"title"`
	PricePerDay   int64  `json:"price_per_day"`
	DepositAmount int64  `json:"deposit_amount"`
}
