package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"
)

const (
	JobCleanupStale     = "cleanup-stale-bookings"
	JobCleanupCancelled = "cleanup-cancelled-bookings"
	JobOverduePickups   = "auto-refund-overdue-pickups"
	JobSyncAccounts     = "sync-connected-accounts"
)

// Dependents are listed children first; messages hang off conversations.
var (
	staleDependents = []domain.Dependent{
		domain.DependentMessages,
		domain.DependentConversations,
		domain.DependentClaims,
		domain.DependentHandoverPhotos,
		domain.DependentEscrowTransactions,
	}
	cancelledDependents = []domain.Dependent{
		domain.DependentEscrowTransactions,
		domain.DependentTransactions,
		domain.DependentMessages,
		domain.DependentConversations,
		domain.DependentClaims,
		domain.DependentHandoverPhotos,
		domain.DependentReviews,
	}
)

// CleanupStaleBookings deletes pending bookings nobody acted on within the grace period.
func (jr *JobRunner) CleanupStaleBookings(ctx context.Context) (*domain.SweepResult, error) {
	began := time.Now()
	cutoff := jr.clock.Now().Add(-jr.config.Reaper.StalePendingAfter)
	log := logger.WithJob(JobCleanupStale)

	bookings, err := jr.store.Bookings.List(ctx, domain.BookingFilter{
		Status:        domain.BookingStatusPending,
		CreatedBefore: cutoff,
		Limit:         jr.config.Reaper.BatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("list stale bookings: %w", err)
	}

	res := &domain.SweepResult{CutoffTime: cutoff}
	guard := domain.DeleteGuard{Status: domain.BookingStatusPending, CreatedBefore: cutoff}
	for i := range bookings {
		b := &bookings[i]
		deleted, err := jr.store.Cleanup.DeleteBooking(ctx, b.ID, guard, staleDependents)
		if err != nil {
			log.Error("Failed to delete stale booking", "bookingID", b.ID, "error", err)
			res.Failures = append(res.Failures, domain.SweepFailure{BookingID: b.ID, Error: err.Error()})
			continue
		}
		if !deleted {
			log.Debug("Booking left pending state before delete", "bookingID", b.ID)
			continue
		}
		res.DeletedBookings = append(res.DeletedBookings, b.ID)
		payload := map[string]string{"booking_id": b.ID, "status": string(domain.BookingStatusCancelled), "reason": "expired"}
		jr.notifyParties(ctx, b, domain.NotificationBookingCancelled, payload)
	}

	jr.finish(ctx, JobCleanupStale, res, began, "stale pending bookings")
	return res, nil
}

// CleanupCancelledBookings removes cancelled bookings and everything hanging off them.
// Bookings whose escrow is still held are kept until the funds are settled.
func (jr *JobRunner) CleanupCancelledBookings(ctx context.Context) (*domain.SweepResult, error) {
	began := time.Now()
	cutoff := jr.clock.Now().Add(-jr.config.Reaper.CancelledAfter)
	log := logger.WithJob(JobCleanupCancelled)

	bookings, err := jr.store.Bookings.List(ctx, domain.BookingFilter{
		Status:        domain.BookingStatusCancelled,
		UpdatedBefore: cutoff,
		Limit:         jr.config.Reaper.BatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("list cancelled bookings: %w", err)
	}

	res := &domain.SweepResult{CutoffTime: cutoff}
	guard := domain.DeleteGuard{Status: domain.BookingStatusCancelled, UpdatedBefore: cutoff}
	for i := range bookings {
		b := &bookings[i]
		held, err := jr.escrowHeld(ctx, b)
		if err != nil {
			res.Failures = append(res.Failures, domain.SweepFailure{BookingID: b.ID, Error: err.Error()})
			continue
		}
		if held {
			log.Warn("Skipping cancelled booking with funds in escrow", "bookingID", b.ID)
			continue
		}

		deleted, err := jr.store.Cleanup.DeleteBooking(ctx, b.ID, guard, cancelledDependents)
		if err != nil {
			log.Error("Failed to delete cancelled booking", "bookingID", b.ID, "error", err)
			res.Failures = append(res.Failures, domain.SweepFailure{BookingID: b.ID, Error: err.Error()})
			continue
		}
		if deleted {
			res.DeletedBookings = append(res.DeletedBookings, b.ID)
		}
	}

	jr.finish(ctx, JobCleanupCancelled, res, began, "cancelled bookings")
	return res, nil
}

func (jr *JobRunner) escrowHeld(ctx context.Context, b *domain.Booking) (bool, error) {
	if b.EscrowStatus == domain.EscrowStatusHeld {
		return true, nil
	}
	tx, err := jr.store.Escrow.GetByBooking(ctx, b.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return tx.EscrowStatus == domain.EscrowStatusHeld, nil
}

// AutoRefundOverduePickups cancels confirmed bookings whose pickup never got a location
// long after the start date, refunding the renter in full when funds are held.
func (jr *JobRunner) AutoRefundOverduePickups(ctx context.Context) (*domain.SweepResult, error) {
	began := time.Now()
	cutoff := jr.clock.Now().Add(-jr.config.Reaper.OverduePickupAfter)
	log := logger.WithJob(JobOverduePickups)

	bookings, err := jr.store.Bookings.List(ctx, domain.BookingFilter{
		Status:                   domain.BookingStatusConfirmed,
		StartBefore:              cutoff,
		MissingPickupCoordinates: true,
		Limit:                    jr.config.Reaper.BatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("list overdue pickups: %w", err)
	}

	res := &domain.SweepResult{CutoffTime: cutoff}
	for i := range bookings {
		b := &bookings[i]
		cancelled, err := jr.cancelOverdue(ctx, b)
		if err != nil {
			log.Error("Failed to auto refund overdue pickup", "bookingID", b.ID, "error", err)
			res.Failures = append(res.Failures, domain.SweepFailure{BookingID: b.ID, Error: err.Error()})
			continue
		}
		if !cancelled {
			continue
		}
		res.DeletedBookings = append(res.DeletedBookings, b.ID)
		payload := map[string]string{"booking_id": b.ID, "status": string(domain.BookingStatusCancelled), "reason": "pickup_overdue"}
		jr.notifyParties(ctx, b, domain.NotificationDisputeOpened, payload)
	}

	jr.finish(ctx, JobOverduePickups, res, began, "overdue pickups")
	return res, nil
}

// cancelOverdue refunds held funds, which cancels the booking, or cancels it directly.
func (jr *JobRunner) cancelOverdue(ctx context.Context, b *domain.Booking) (bool, error) {
	if b.EscrowStatus == domain.EscrowStatusHeld {
		_, err := jr.services.Escrow.Release(ctx, b.ID, domain.ReleaseAutoRefund)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, domain.ErrNotHeld) {
			return false, err
		}
	}
	return jr.store.Bookings.TransitionStatus(ctx, b.ID, domain.BookingStatusConfirmed, domain.BookingStatusCancelled)
}

func (jr *JobRunner) notifyParties(ctx context.Context, b *domain.Booking, t domain.NotificationType, payload map[string]string) {
	if jr.services.Notifier == nil {
		return
	}
	jr.services.Notifier.Notify(ctx, b.OwnerID, t, payload)
	jr.services.Notifier.Notify(ctx, b.RenterID, t, payload)
}

// finish fills the summary fields and writes the audit row. Audit failures are logged only.
func (jr *JobRunner) finish(ctx context.Context, op string, res *domain.SweepResult, began time.Time, what string) {
	res.DeletedCount = len(res.DeletedBookings)
	res.Success = true
	res.Message = fmt.Sprintf("Processed %d %s", res.DeletedCount, what)
	if n := len(res.Failures); n > 0 {
		res.Message += fmt.Sprintf(", %d failed", n)
	}

	err := jr.store.Cleanup.LogOperation(ctx, domain.CleanupOperation{
		Operation:    op,
		DeletedCount: res.DeletedCount,
		Cutoff:       res.CutoffTime,
		BookingIDs:   res.DeletedBookings,
		Duration:     time.Since(began),
	})
	if err != nil {
		logger.Warn("Failed to log cleanup operation", "job", op, "error", err)
	}
	logger.Info("Sweep finished", "job", op, "count", res.DeletedCount, "failures", len(res.Failures), "cutoff", res.CutoffTime)
}

// Cron entry points.

func (jr *JobRunner) RunCleanupStale() {
	jr.runWithRecovery(JobCleanupStale, func(ctx context.Context) error {
		_, err := jr.CleanupStaleBookings(ctx)
		return err
	})
}

func (jr *JobRunner) RunCleanupCancelled() {
	jr.runWithRecovery(JobCleanupCancelled, func(ctx context.Context) error {
		_, err := jr.CleanupCancelledBookings(ctx)
		return err
	})
}

func (jr *JobRunner) RunOverduePickups() {
	jr.runWithRecovery(JobOverduePickups, func(ctx context.Context) error {
		_, err := jr.AutoRefundOverduePickups(ctx)
		return err
	})
}
