package app

import (
	"os"
	"path/filepath"
	"testing"

	"gearshare-backend/internal/config"
	"gearshare-backend/internal/payment"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProcessor_Mock(t *testing.T) {
	p := NewProcessor(config.StripeConfig{Mode: "mock"})
	assert.IsType(t, &payment.MockProcessor{}, p)
}

func TestNewProcessor_LiveWithKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stripe_key")
	require.NoError(t, os.WriteFile(path, []byte("sk_test_from_file\n"), 0o600))

	p := NewProcessor(config.StripeConfig{Mode: "live", SecretKeyFile: path, ConnectCountry: "RO"})
	assert.IsType(t, &payment.RefreshingProcessor{}, p)
}

func TestNew_WiresEveryService(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg := &config.Config{
		Stripe:    config.StripeConfig{Mode: "mock", Currency: "ron", ConnectCountry: "RO"},
		RateLimit: config.RateLimitConfig{PaymentIntentsPerHour: 10},
	}
	a := New(cfg, db)

	assert.NotNil(t, a.Store)
	assert.NotNil(t, a.Bookings)
	assert.NotNil(t, a.Escrow)
	assert.NotNil(t, a.Claims)
	assert.NotNil(t, a.Payments)
	assert.NotNil(t, a.Accounts)
	assert.NotNil(t, a.Jobs)
	assert.Same(t, cfg, a.Jobs.Config())
}
