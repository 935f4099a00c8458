package service

import (
	"context"
	"errors"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/payment"
	"gearshare-backend/internal/repository"
)

type accountService struct {
	accountRepo repository.AccountRepository
	processor   payment.Processor
	country     string
}

func NewAccountService(accountRepo repository.AccountRepository, processor payment.Processor, country string) AccountService {
	return &accountService{accountRepo: accountRepo, processor: processor, country: country}
}

// SetupAccount creates the owner's connected account on first use and returns a fresh
// onboarding link.
func (s *accountService) SetupAccount(ctx context.Context, ownerID, email, country string) (*domain.ConnectedAccount, string, error) {
	acct, err := s.accountRepo.GetByOwner(ctx, ownerID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, "", err
	}
	if acct == nil {
		if country == "" {
			country = s.country
		}
		accountID, err := s.processor.CreateAccount(ctx, payment.AccountRequest{OwnerID: ownerID, Email: email, Country: country})
		if err != nil {
			return nil, "", domain.External("create connected account", err)
		}
		acct = &domain.ConnectedAccount{
			OwnerID:   ownerID,
			AccountID: accountID,
			Status:    domain.AccountStatusConnectRequired,
		}
		if err := s.accountRepo.Create(ctx, acct); err != nil {
			return nil, "", err
		}
		logger.Info("Connected account created", "ownerID", ownerID, "accountID", accountID)
	}

	link, err := s.processor.CreateOnboardingLink(ctx, acct.AccountID)
	if err != nil {
		return acct, "", domain.External("create onboarding link", err)
	}
	return acct, link, nil
}

func (s *accountService) GetAccount(ctx context.Context, ownerID string) (*domain.ConnectedAccount, error) {
	return s.accountRepo.GetByOwner(ctx, ownerID)
}

func (s *accountService) SyncAccount(ctx context.Context, ownerID string) (*domain.ConnectedAccount, error) {
	acct, err := s.accountRepo.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	_, err = s.sync(ctx, acct)
	return acct, err
}

func (s *accountService) SyncByAccountID(ctx context.Context, accountID string) (*domain.ConnectedAccount, error) {
	acct, err := s.accountRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	_, err = s.sync(ctx, acct)
	return acct, err
}

// sync refreshes acct from the processor and reports whether its status changed.
func (s *accountService) sync(ctx context.Context, acct *domain.ConnectedAccount) (bool, error) {
	state, err := s.processor.RetrieveAccount(ctx, acct.AccountID)
	status := domain.DeriveAccountStatus(state)
	switch {
	case errors.Is(err, payment.ErrNoSuchAccount):
		status = domain.AccountStatusInvalid
		state = domain.AccountState{}
	case err != nil:
		return false, domain.External("retrieve connected account", err)
	}

	changed := acct.Status != status || acct.ChargesEnabled != state.ChargesEnabled || acct.PayoutsEnabled != state.PayoutsEnabled
	acct.Status = status
	acct.ChargesEnabled = state.ChargesEnabled
	acct.PayoutsEnabled = state.PayoutsEnabled
	if err := s.accountRepo.UpdateStatus(ctx, acct); err != nil {
		return false, err
	}
	if changed {
		logger.Info("Connected account status changed", "ownerID", acct.OwnerID, "accountID", acct.AccountID, "status", status)
	}
	return changed, nil
}

func (s *accountService) SyncAll(ctx context.Context, limit int) (SyncSummary, error) {
	var summary SyncSummary
	accounts, err := s.accountRepo.ListForSync(ctx, limit)
	if err != nil {
		return summary, err
	}
	for i := range accounts {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		changed, err := s.sync(ctx, &accounts[i])
		if err != nil {
			summary.Failed++
			logger.Warn("Account sync failed", "ownerID", accounts[i].OwnerID, "error", err)
			continue
		}
		summary.Synced++
		if changed {
			summary.Changed++
		}
	}
	return summary, nil
}
