package http

import (
	"net/http"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/service"

	"github.com/gorilla/mux"
)

type holdRequest struct {
	RentalAmount  int64 `json:"rental_amount"`
	DepositAmount int64 `json:"deposit_amount"`
}

type confirmHeldRequest struct {
	PaymentIntentID string `json:"payment_intent_id"`
}

type releaseRequest struct {
	ReleaseType string `json:"release_type"`
}

type refundRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

type reconcileRequest struct {
	SessionID string `json:"session_id"`
}

// createHold is only open to the renter of the booking.
func (h *handlers) createHold(w http.ResponseWriter, r *http.Request) {
	var req holdRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	actor := actorFromContext(r.Context())
	bookingID := mux.Vars(r)["id"]
	b, err := h.deps.Bookings.GetBooking(r.Context(), actor, bookingID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if b.RenterID != actor.UserID {
		writeError(w, r, domain.ErrUnauthorized)
		return
	}
	handle, err := h.deps.Escrow.CreateHold(r.Context(), bookingID, req.RentalAmount, req.DepositAmount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, handle)
}

func (h *handlers) confirmHeld(w http.ResponseWriter, r *http.Request) {
	var req confirmHeldRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := h.deps.Escrow.ConfirmHeld(r.Context(), mux.Vars(r)["id"], req.PaymentIntentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *handlers) releaseEscrow(w http.ResponseWriter, r *http.Request) {
	var req releaseRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rt, err := domain.ParseReleaseType(req.ReleaseType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := h.deps.Escrow.Release(r.Context(), mux.Vars(r)["id"], rt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *handlers) refund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.deps.Escrow.Refund(r.Context(), mux.Vars(r)["id"], req.Amount, req.Reason); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *handlers) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req service.PaymentIntentRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.deps.Payments.CreatePaymentIntent(r.Context(), actorFromContext(r.Context()).UserID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *handlers) reconcileIntent(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	intentID, err := h.deps.Payments.ReconcileIntent(r.Context(), mux.Vars(r)["id"], req.SessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"payment_intent_id": intentID})
}
