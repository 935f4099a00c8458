// Package app wires repositories, the payment processor and services from configuration.
package app

import (
	"context"
	"database/sql"

	"gearshare-backend/internal/clock"
	"gearshare-backend/internal/config"
	"gearshare-backend/internal/jobs"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/payment"
	"gearshare-backend/internal/repository/postgres"
	"gearshare-backend/internal/service"
)

// App holds every long-lived component of a process.
type App struct {
	Store     *postgres.Store
	Processor payment.Processor
	Notifier  service.Notifier
	Escrow    service.EscrowService
	Bookings  service.BookingService
	Claims    service.ClaimService
	Payments  service.PaymentService
	Accounts  service.AccountService
	Jobs      *jobs.JobRunner
}

// New builds the application on an open database handle.
func New(cfg *config.Config, db *sql.DB) *App {
	clk := clock.NewSystem()
	store := postgres.NewStore(db)
	processor := NewProcessor(cfg.Stripe)

	var email service.EmailSender
	if cfg.SendGrid.APIKey != "" {
		email = service.NewSendGridSender(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
		logger.Info("E-mail notifications enabled", "from", cfg.SendGrid.FromEmail)
	}
	notifier := service.NewNotifier(store.NotificationRepository, store.ProfileRepository, email)

	currency := cfg.Stripe.Currency
	escrow := service.NewEscrowService(
		store.BookingRepository,
		store.EscrowRepository,
		store.TransactionRepository,
		store.AccountRepository,
		processor,
		notifier,
		clk,
		currency,
	)
	accounts := service.NewAccountService(store.AccountRepository, processor, cfg.Stripe.ConnectCountry)

	a := &App{
		Store:     store,
		Processor: processor,
		Notifier:  notifier,
		Escrow:    escrow,
		Accounts:  accounts,
		Bookings: service.NewBookingService(
			store.BookingRepository,
			store.GearRepository,
			store.ClaimRepository,
			escrow,
			notifier,
			clk,
		),
		Claims: service.NewClaimService(
			store.ClaimRepository,
			store.BookingRepository,
			escrow,
			notifier,
			clk,
			cfg.Claims.StrictClaimant,
		),
		Payments: service.NewPaymentService(
			store.BookingRepository,
			store.TransactionRepository,
			store.EscrowRepository,
			store.RateLimitRepository,
			escrow,
			processor,
			notifier,
			currency,
			cfg.RateLimit.PaymentIntentsPerHour,
		),
	}
	a.Jobs = jobs.NewJobRunner(
		&jobs.Stores{
			Bookings: store.BookingRepository,
			Escrow:   store.EscrowRepository,
			Cleanup:  store.CleanupRepository,
		},
		&jobs.Services{
			Escrow:   escrow,
			Accounts: accounts,
			Notifier: notifier,
		},
		cfg,
		clk,
	)
	return a
}

// NewProcessor returns the in-memory processor in mock mode and the Stripe
// processor otherwise. A configured key file is re-read on authentication failures.
func NewProcessor(cfg config.StripeConfig) payment.Processor {
	if cfg.Mode == "mock" {
		logger.Info("Using mock payment processor")
		return payment.NewMockProcessor()
	}

	var keys payment.KeySource = payment.StaticKey(cfg.SecretKey)
	if cfg.SecretKeyFile != "" {
		keys = payment.FileKey(cfg.SecretKeyFile)
	}
	stripeCfg := payment.StripeConfig{
		SecretKey:      cfg.SecretKey,
		ConnectCountry: cfg.ConnectCountry,
		RefreshURL:     cfg.OnboardingRefreshURL,
		ReturnURL:      cfg.OnboardingReturnURL,
	}
	if stripeCfg.SecretKey == "" {
		if key, err := keys.Key(context.Background()); err == nil {
			stripeCfg.SecretKey = key
		} else {
			logger.Error("Failed to read processor key", "error", err)
		}
	}
	sp := payment.NewStripeProcessor(stripeCfg)
	logger.Info("Using Stripe payment processor", "refreshing_key", cfg.SecretKeyFile != "")
	return payment.NewRefreshingProcessor(sp, keys, sp)
}
