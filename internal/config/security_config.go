package config

type SecurityLevel int

const (
	SecurityPublic      SecurityLevel = iota // No authentication
	SecurityAccess                           // Any signed-in user
	SecurityAdmin                            // app_metadata.role = admin
	SecurityServiceRole                      // scheduler / backend callers
)

// EndpointSecurityConfig maps route names to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Public
	"Health":        SecurityPublic,
	"StripeWebhook": SecurityPublic, // verified by signature

	// Bookings
	"CreateBooking":     SecurityAccess,
	"GetBooking":        SecurityAccess,
	"AcceptBooking":     SecurityAccess,
	"RejectBooking":     SecurityAccess,
	"CancelBooking":     SecurityAccess,
	"ConfirmPickup":     SecurityAccess,
	"ConfirmReturn":     SecurityAccess,
	"SetPickupLocation": SecurityAccess,

	// Escrow and payments
	"CreateHold":          SecurityAccess,
	"ConfirmHeld":         SecurityAdmin, // the webhook is the normal path
	"CreatePaymentIntent": SecurityAccess,
	"ReleaseEscrow":       SecurityAdmin,
	"Refund":              SecurityAdmin,
	"ReconcileIntent":     SecurityAdmin,

	// Claims
	"FileClaim":            SecurityAccess,
	"ListClaims":           SecurityAccess,
	"MarkClaimUnderReview": SecurityAdmin,
	"ResolveClaim":         SecurityAdmin,

	// Connected accounts
	"SetupAccount": SecurityAccess,
	"SyncAccount":  SecurityAccess,
	"GetAccount":   SecurityAccess,

	// Scheduled functions
	"CleanupStaleBookings":     SecurityServiceRole,
	"CleanupCancelledBookings": SecurityServiceRole,
	"AutoRefundOverduePickups": SecurityServiceRole,
}

// GetSecurityLevel returns the security level for a given route
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityServiceRole
}
