package http

import (
	"net/http"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/service"

	"github.com/gorilla/mux"
)

type resolveRequest struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes"`
}

func (h *handlers) fileClaim(w http.ResponseWriter, r *http.Request) {
	var req service.FileClaimRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.deps.Claims.FileClaim(r.Context(), actorFromContext(r.Context()).UserID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *handlers) listClaims(w http.ResponseWriter, r *http.Request) {
	claims, err := h.deps.Claims.ListClaims(r.Context(), actorFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	if claims == nil {
		claims = []domain.Claim{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"claims": claims})
}

func (h *handlers) markUnderReview(w http.ResponseWriter, r *http.Request) {
	c, err := h.deps.Claims.MarkUnderReview(r.Context(), actorFromContext(r.Context()).UserID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handlers) resolveClaim(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	decision, err := domain.ParseClaimDecision(req.Decision)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.deps.Claims.ResolveClaim(r.Context(), actorFromContext(r.Context()).UserID, mux.Vars(r)["id"], decision, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
