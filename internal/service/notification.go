package service

import (
	"context"
	"fmt"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/repository"
)

type notificationTemplate struct {
	title   string
	message string
}

var notificationTemplates = map[domain.NotificationType]notificationTemplate{
	domain.NotificationBookingRequest:   {"New booking request", "You have a new booking request for %s."},
	domain.NotificationBookingConfirmed: {"Booking confirmed", "Your booking for %s was accepted."},
	domain.NotificationBookingRejected:  {"Booking declined", "Your booking for %s was declined."},
	domain.NotificationBookingCancelled: {"Booking cancelled", "The booking for %s was cancelled."},
	domain.NotificationPickupConfirmed:  {"Pickup confirmed", "The other party confirmed pickup of %s. Please confirm too."},
	domain.NotificationBookingActive:    {"Rental started", "Both parties confirmed pickup of %s."},
	domain.NotificationReturnConfirmed:  {"Return confirmed", "The other party confirmed the return of %s. Please confirm too."},
	domain.NotificationBookingCompleted: {"Rental completed", "The rental of %s is complete."},
	domain.NotificationPaymentReceived:  {"Payment received", "Payment for %s was received."},
	domain.NotificationEscrowReleased:   {"Funds released", "Escrowed funds for %s were released."},
	domain.NotificationClaimFiled:       {"Claim filed", "A claim was filed on the booking for %s."},
	domain.NotificationClaimResolved:    {"Claim resolved", "The claim on the booking for %s was resolved."},
	domain.NotificationDisputeOpened:    {"Pickup overdue", "The booking for %s was cancelled because pickup never happened."},
}

type notifier struct {
	noteRepo    repository.NotificationRepository
	profileRepo repository.ProfileRepository
	email       EmailSender // nil disables e-mail
}

func NewNotifier(noteRepo repository.NotificationRepository, profileRepo repository.ProfileRepository, email EmailSender) Notifier {
	return &notifier{noteRepo: noteRepo, profileRepo: profileRepo, email: email}
}

// Notify writes the in-app row and, when enabled, mails the user. Errors are logged only.
func (n *notifier) Notify(ctx context.Context, userID string, t domain.NotificationType, payload map[string]string) {
	if userID == "" {
		return
	}
	tmpl, ok := notificationTemplates[t]
	if !ok {
		tmpl = notificationTemplate{title: string(t), message: "%s"}
	}
	subject := payload["gear_title"]
	if subject == "" {
		subject = "your gear"
	}

	note := &domain.Notification{
		UserID:  userID,
		Type:    t,
		Title:   tmpl.title,
		Message: fmt.Sprintf(tmpl.message, subject),
		Payload: payload,
	}
	if err := n.noteRepo.Create(ctx, note); err != nil {
		logger.Warn("Failed to store notification", "userID", userID, "type", t, "error", err)
	}

	if n.email == nil {
		return
	}
	profile, err := n.profileRepo.GetByID(ctx, userID)
	if err != nil || profile.Email == "" {
		logger.Debug("Skipping notification e-mail", "userID", userID, "error", err)
		return
	}
	if err := n.email.Send(ctx, profile.Email, profile.FullName, note.Title, note.Message); err != nil {
		logger.Warn("Failed to send notification e-mail", "userID", userID, "type", t, "error", err)
	}
}

// notifyBoth sends the same notification to owner and renter of b.
func notifyBoth(ctx context.Context, n Notifier, b *domain.Booking, t domain.NotificationType, payload map[string]string) {
	n.Notify(ctx, b.OwnerID, t, payload)
	n.Notify(ctx, b.RenterID, t, payload)
}

func bookingPayload(b *domain.Booking, kv ...string) map[string]string {
	p := map[string]string{"booking_id": b.ID, "status": string(b.Status)}
	for i := 0; i+1 < len(kv); i += 2 {
		p[kv[i]] = kv[i+1]
	}
	return p
}
