package jobs

import (
	"context"

	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/service"
)

// SyncConnectedAccounts refreshes stored payout account status from the processor.
func (jr *JobRunner) SyncConnectedAccounts(ctx context.Context) (service.SyncSummary, error) {
	summary, err := jr.services.Accounts.SyncAll(ctx, jr.config.Reaper.BatchSize)
	if err != nil {
		return summary, err
	}
	logger.Info("Connected accounts synced", "synced", summary.Synced, "changed", summary.Changed, "failed", summary.Failed)
	return summary, nil
}

func (jr *JobRunner) RunSyncAccounts() {
	jr.runWithRecovery(JobSyncAccounts, func(ctx context.Context) error {
		_, err := jr.SyncConnectedAccounts(ctx)
		return err
	})
}
