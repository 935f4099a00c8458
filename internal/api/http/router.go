package http

import (
	"context"
	"encoding/json"
	"net/http"

	"gearshare-backend/internal/config"
	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/repository"
	"gearshare-backend/internal/security"
	"gearshare-backend/internal/service"

	"github.com/gorilla/mux"
)

// Sweeper runs the reaper sweeps behind the scheduled functions.
type Sweeper interface {
	CleanupStaleBookings(ctx context.Context) (*domain.SweepResult, error)
	CleanupCancelledBookings(ctx context.Context) (*domain.SweepResult, error)
	AutoRefundOverduePickups(ctx context.Context) (*domain.SweepResult, error)
}

// Dependencies are the services the API delegates to.
type Dependencies struct {
	Bookings      service.BookingService
	Escrow        service.EscrowService
	Claims        service.ClaimService
	Payments      service.PaymentService
	Accounts      service.AccountService
	Sweeper       Sweeper
	DB            repository.Pinger
	WebhookSecret string
}

// NewRouter registers every route. Route names select the security level in
// config.EndpointSecurityConfig.
func NewRouter(deps Dependencies, tm security.TokenManager, limits config.RateLimitConfig) *mux.Router {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware, NewRateLimiter(limits).Handler, NewAuthMiddleware(tm).Handler)

	h := &handlers{deps: deps}
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet).Name("Health")
	r.HandleFunc("/webhooks/stripe", h.stripeWebhook).Methods(http.MethodPost).Name("StripeWebhook")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/bookings", h.createBooking).Methods(http.MethodPost).Name("CreateBooking")
	api.HandleFunc("/bookings/{id}", h.getBooking).Methods(http.MethodGet).Name("GetBooking")
	api.HandleFunc("/bookings/{id}/accept", h.acceptBooking).Methods(http.MethodPost).Name("AcceptBooking")
	api.HandleFunc("/bookings/{id}/reject", h.rejectBooking).Methods(http.MethodPost).Name("RejectBooking")
	api.HandleFunc("/bookings/{id}/cancel", h.cancelBooking).Methods(http.MethodPost).Name("CancelBooking")
	api.HandleFunc("/bookings/{id}/confirm-pickup", h.confirmPickup).Methods(http.MethodPost).Name("ConfirmPickup")
	api.HandleFunc("/bookings/{id}/confirm-return", h.confirmReturn).Methods(http.MethodPost).Name("ConfirmReturn")
	api.HandleFunc("/bookings/{id}/pickup-location", h.setPickupLocation).Methods(http.MethodPut).Name("SetPickupLocation")

	api.HandleFunc("/bookings/{id}/escrow/hold", h.createHold).Methods(http.MethodPost).Name("CreateHold")
	api.HandleFunc("/bookings/{id}/escrow/release", h.releaseEscrow).Methods(http.MethodPost).Name("ReleaseEscrow")
	api.HandleFunc("/escrow/{id}/confirm", h.confirmHeld).Methods(http.MethodPost).Name("ConfirmHeld")
	api.HandleFunc("/transactions/{id}/refund", h.refund).Methods(http.MethodPost).Name("Refund")
	api.HandleFunc("/payments/intents", h.createPaymentIntent).Methods(http.MethodPost).Name("CreatePaymentIntent")
	api.HandleFunc("/bookings/{id}/payments/reconcile", h.reconcileIntent).Methods(http.MethodPost).Name("ReconcileIntent")

	api.HandleFunc("/claims", h.fileClaim).Methods(http.MethodPost).Name("FileClaim")
	api.HandleFunc("/bookings/{id}/claims", h.listClaims).Methods(http.MethodGet).Name("ListClaims")
	api.HandleFunc("/claims/{id}/review", h.markUnderReview).Methods(http.MethodPost).Name("MarkClaimUnderReview")
	api.HandleFunc("/claims/{id}/resolve", h.resolveClaim).Methods(http.MethodPost).Name("ResolveClaim")

	api.HandleFunc("/accounts/me", h.setupAccount).Methods(http.MethodPost).Name("SetupAccount")
	api.HandleFunc("/accounts/me", h.getAccount).Methods(http.MethodGet).Name("GetAccount")
	api.HandleFunc("/accounts/me/sync", h.syncAccount).Methods(http.MethodPost).Name("SyncAccount")

	fn := r.PathPrefix("/functions/v1").Subrouter()
	fn.HandleFunc("/cleanup-stale-bookings", h.sweep(func(ctx context.Context) (*domain.SweepResult, error) {
		return deps.Sweeper.CleanupStaleBookings(ctx)
	})).Methods(http.MethodPost).Name("CleanupStaleBookings")
	fn.HandleFunc("/cleanup-cancelled-bookings", h.sweep(func(ctx context.Context) (*domain.SweepResult, error) {
		return deps.Sweeper.CleanupCancelledBookings(ctx)
	})).Methods(http.MethodPost).Name("CleanupCancelledBookings")
	fn.HandleFunc("/auto-refund-overdue-pickups", h.sweep(func(ctx context.Context) (*domain.SweepResult, error) {
		return deps.Sweeper.AutoRefundOverduePickups(ctx)
	})).Methods(http.MethodPost).Name("AutoRefundOverduePickups")

	return r
}

type handlers struct {
	deps Dependencies
}

// maxBody bounds JSON request bodies.
const maxBody = 1 << 20

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.Invalid("malformed request body: %v", err)
	}
	return nil
}

// decodeOptional accepts an empty body.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return nil
	}
	return decode(w, r, v)
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if h.deps.DB != nil {
		if err := h.deps.DB.PingContext(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) sweep(run func(ctx context.Context) (*domain.SweepResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := run(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, domain.SweepResult{Success: false, Message: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
