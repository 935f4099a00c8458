package http

import (
	"net/http"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/service"

	"github.com/gorilla/mux"
)

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var req service.CreateBookingRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.deps.Bookings.CreateBooking(r.Context(), actorFromContext(r.Context()).UserID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.deps.Bookings.GetBooking(r.Context(), actorFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *handlers) acceptBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.deps.Bookings.AcceptBooking(r.Context(), actorFromContext(r.Context()).UserID, mux.Vars(r)["id"])
	respondBooking(w, r, b, err)
}

func (h *handlers) rejectBooking(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := decodeOptional(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.deps.Bookings.RejectBooking(r.Context(), actorFromContext(r.Context()).UserID, mux.Vars(r)["id"], req.Reason)
	respondBooking(w, r, b, err)
}

func (h *handlers) cancelBooking(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := decodeOptional(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.deps.Bookings.CancelBooking(r.Context(), actorFromContext(r.Context()).UserID, mux.Vars(r)["id"], req.Reason)
	respondBooking(w, r, b, err)
}

func (h *handlers) confirmPickup(w http.ResponseWriter, r *http.Request) {
	b, err := h.deps.Bookings.ConfirmPickup(r.Context(), actorFromContext(r.Context()).UserID, mux.Vars(r)["id"])
	respondBooking(w, r, b, err)
}

func (h *handlers) confirmReturn(w http.ResponseWriter, r *http.Request) {
	b, err := h.deps.Bookings.ConfirmReturn(r.Context(), actorFromContext(r.Context()).UserID, mux.Vars(r)["id"])
	respondBooking(w, r, b, err)
}

func (h *handlers) setPickupLocation(w http.ResponseWriter, r *http.Request) {
	var loc domain.Location
	if err := decode(w, r, &loc); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.deps.Bookings.SetPickupLocation(r.Context(), actorFromContext(r.Context()).UserID, mux.Vars(r)["id"], loc)
	respondBooking(w, r, b, err)
}

func respondBooking(w http.ResponseWriter, r *http.Request, b *domain.Booking, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
