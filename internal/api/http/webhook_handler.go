package http

import (
	"errors"
	"io"
	"net/http"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/payment"
)

// stripeWebhook acknowledges every verified event it can settle. Processing
// failures answer 500 so the processor redelivers.
func (h *handlers) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeKind(w, r, kindValidation, "unreadable body")
		return
	}
	event, err := payment.ParseWebhook(payload, r.Header.Get("Stripe-Signature"), h.deps.WebhookSecret)
	if err != nil {
		logger.Warn("Rejected webhook", "error", err)
		writeKind(w, r, kindValidation, "invalid signature")
		return
	}

	log := logger.Get().With("event_id", event.ID, "event_type", event.Type)
	if err := h.handleEvent(r, event); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Info("Webhook references unknown record", "error", err)
			writeJSON(w, http.StatusOK, map[string]bool{"received": true})
			return
		}
		log.Error("Webhook processing failed", "error", err)
		writeKind(w, r, kindInternal, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *handlers) handleEvent(r *http.Request, event *payment.WebhookEvent) error {
	ctx := r.Context()
	switch event.Type {
	case payment.EventPaymentIntentSucceeded:
		return h.deps.Payments.MarkPaymentSucceeded(ctx, event.PaymentIntentID)
	case payment.EventCheckoutCompleted:
		intentID := event.PaymentIntentID
		if event.BookingID != "" {
			id, err := h.deps.Payments.ReconcileIntent(ctx, event.BookingID, event.SessionID)
			if err != nil {
				return err
			}
			intentID = id
		}
		if intentID == "" {
			return nil
		}
		return h.deps.Payments.MarkPaymentSucceeded(ctx, intentID)
	case payment.EventAccountUpdated:
		_, err := h.deps.Accounts.SyncByAccountID(ctx, event.AccountID)
		return err
	case payment.EventPaymentIntentFailed:
		logger.Warn("Payment failed", "payment_intent_id", event.PaymentIntentID, "booking_id", event.BookingID)
	default:
		logger.Debug("Ignoring webhook event", "event_type", event.Type)
	}
	return nil
}
