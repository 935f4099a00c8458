package http

import (
	"net/http"

	"gearshare-backend/internal/domain"
)

type setupAccountRequest struct {
	Email   string `json:"email"`
	Country string `json:"country"`
}

type setupAccountResponse struct {
	Account       *domain.ConnectedAccount `json:"account"`
	OnboardingURL string                   `json:"onboarding_url"`
}

func (h *handlers) setupAccount(w http.ResponseWriter, r *http.Request) {
	var req setupAccountRequest
	if err := decodeOptional(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	if req.Email == "" {
		if c, ok := ClaimsFromContext(ctx); ok {
			req.Email = c.Email
		}
	}
	acct, url, err := h.deps.Accounts.SetupAccount(ctx, actorFromContext(ctx).UserID, req.Email, req.Country)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, setupAccountResponse{Account: acct, OnboardingURL: url})
}

func (h *handlers) getAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := h.deps.Accounts.GetAccount(r.Context(), actorFromContext(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (h *handlers) syncAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := h.deps.Accounts.SyncAccount(r.Context(), actorFromContext(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}
