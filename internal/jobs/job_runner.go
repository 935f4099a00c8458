package jobs

import (
	"context"

	"gearshare-backend/internal/clock"
	"gearshare-backend/internal/config"
	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/repository"
	"gearshare-backend/internal/service"

	"golang.org/x/sync/errgroup"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	store    *Stores
	services *Services
	config   *config.Config
	clock    clock.Clock
}

// Stores holds the repositories the sweeps read and delete through
type Stores struct {
	Bookings repository.BookingRepository
	Escrow   repository.EscrowRepository
	Cleanup  repository.CleanupRepository
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Escrow   service.EscrowService
	Accounts service.AccountService
	Notifier service.Notifier
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(stores *Stores, services *Services, cfg *config.Config, clk clock.Clock) *JobRunner {
	return &JobRunner{
		store:    stores,
		services: services,
		config:   cfg,
		clock:    clk,
	}
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	log := logger.WithJob(jobName)
	log.Info("Starting job")
	if err := jobFunc(context.Background()); err != nil {
		log.Error("Job failed", "error", err)
		return
	}
	log.Info("Job completed")
}

// RunAllSweeps runs the three reaper sweeps concurrently (for manual execution).
// A sweep that fails outright cancels the others.
func (jr *JobRunner) RunAllSweeps(ctx context.Context) (map[string]*domain.SweepResult, error) {
	names := []string{JobCleanupStale, JobCleanupCancelled, JobOverduePickups}
	sweeps := []func(context.Context) (*domain.SweepResult, error){
		jr.CleanupStaleBookings,
		jr.CleanupCancelledBookings,
		jr.AutoRefundOverduePickups,
	}
	results := make([]*domain.SweepResult, len(sweeps))

	g, gctx := errgroup.WithContext(ctx)
	for i, sweep := range sweeps {
		i, sweep := i, sweep
		g.Go(func() error {
			res, err := sweep(gctx)
			results[i] = res
			return err
		})
	}
	err := g.Wait()

	out := make(map[string]*domain.SweepResult, len(names))
	for i, name := range names {
		if results[i] != nil {
			out[name] = results[i]
		}
	}
	return out, err
}
