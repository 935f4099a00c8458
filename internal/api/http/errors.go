package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"
)

type errorKind struct {
	status int
	code   string
}

var (
	kindValidation   = errorKind{http.StatusBadRequest, "validation_error"}
	kindUnauthorized = errorKind{http.StatusForbidden, "unauthorized"}
	kindUnauthentic  = errorKind{http.StatusUnauthorized, "unauthenticated"}
	kindNotFound     = errorKind{http.StatusNotFound, "not_found"}
	kindTransition   = errorKind{http.StatusConflict, "invalid_transition"}
	kindNotHeld      = errorKind{http.StatusConflict, "escrow_not_held"}
	kindMismatch     = errorKind{http.StatusConflict, "intent_mismatch"}
	kindOwnerReady   = errorKind{http.StatusPreconditionFailed, "owner_not_ready"}
	kindRateLimited  = errorKind{http.StatusTooManyRequests, "rate_limited"}
	kindExternal     = errorKind{http.StatusBadGateway, "external_service_error"}
	kindInternal     = errorKind{http.StatusInternalServerError, "internal_error"}
)

// messages holds the client-facing text per code and language.
var messages = map[string]map[string]string{
	"en": {
		"validation_error":       "The request is invalid.",
		"unauthorized":           "You are not allowed to do this.",
		"unauthenticated":        "Sign in to continue.",
		"not_found":              "Not found.",
		"invalid_transition":     "This booking can no longer change to that status.",
		"escrow_not_held":        "No funds are held in escrow for this booking.",
		"intent_mismatch":        "The payment does not match this booking.",
		"owner_not_ready":        "The owner has not finished setting up payouts.",
		"rate_limited":           "Too many requests. Try again later.",
		"external_service_error": "The payment provider is unavailable. Try again shortly.",
		"internal_error":         "Something went wrong.",
	},
	"ro": {
		"validation_error":       "Cererea nu este validă.",
		"unauthorized":           "Nu aveți permisiunea pentru această acțiune.",
		"unauthenticated":        "Autentificați-vă pentru a continua.",
		"not_found":              "Nu a fost găsit.",
		"invalid_transition":     "Rezervarea nu mai poate trece în această stare.",
		"escrow_not_held":        "Nu există fonduri blocate pentru această rezervare.",
		"intent_mismatch":        "Plata nu corespunde acestei rezervări.",
		"owner_not_ready":        "Proprietarul nu a finalizat configurarea plăților.",
		"rate_limited":           "Prea multe cereri. Încercați mai târziu.",
		"external_service_error": "Procesatorul de plăți nu este disponibil. Încercați din nou.",
		"internal_error":         "A apărut o eroare.",
	},
}

func classify(err error) errorKind {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return kindValidation
	case errors.Is(err, domain.ErrUnauthorized):
		return kindUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return kindNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		return kindTransition
	case errors.Is(err, domain.ErrNotHeld):
		return kindNotHeld
	case errors.Is(err, domain.ErrIntentMismatch):
		return kindMismatch
	case errors.Is(err, domain.ErrOwnerNotReady):
		return kindOwnerReady
	case errors.Is(err, domain.ErrRateLimited):
		return kindRateLimited
	case errors.Is(err, domain.ErrExternalService):
		return kindExternal
	}
	return kindInternal
}

// language picks ro or en from Accept-Language.
func language(r *http.Request) string {
	for _, part := range strings.Split(r.Header.Get("Accept-Language"), ",") {
		tag := strings.ToLower(strings.TrimSpace(strings.SplitN(part, ";", 2)[0]))
		if tag == "" {
			continue
		}
		base := strings.SplitN(tag, "-", 2)[0]
		if _, ok := messages[base]; ok {
			return base
		}
	}
	return "en"
}

func message(r *http.Request, code string) string {
	return messages[language(r)][code]
}

type errorBody struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

func writeKind(w http.ResponseWriter, r *http.Request, k errorKind, detail string) {
	writeJSON(w, k.status, errorBody{Error: message(r, k.code), Code: k.code, Detail: detail})
}

// writeError maps err to a status and localized body. Validation and transition
// details are safe to echo; everything else is logged and hidden.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	k := classify(err)
	detail := ""
	switch k {
	case kindValidation, kindTransition:
		detail = err.Error()
	case kindInternal, kindExternal:
		logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeKind(w, r, k, detail)
}
