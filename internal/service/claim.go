package service

import (
	"context"
	"errors"
	"strings"

	"gearshare-backend/internal/clock"
	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/repository"
)

type claimService struct {
	claimRepo      repository.ClaimRepository
	bookingRepo    repository.BookingRepository
	escrow         EscrowService
	notifier       Notifier
	clock          clock.Clock
	strictClaimant bool
}

func NewClaimService(
	claimRepo repository.ClaimRepository,
	bookingRepo repository.BookingRepository,
	escrow EscrowService,
	notifier Notifier,
	clk clock.Clock,
	strictClaimant bool,
) ClaimService {
	return &claimService{
		claimRepo:      claimRepo,
		bookingRepo:    bookingRepo,
		escrow:         escrow,
		notifier:       notifier,
		clock:          clk,
		strictClaimant: strictClaimant,
	}
}

func (s *claimService) FileClaim(ctx context.Context, claimantID string, req FileClaimRequest) (*domain.Claim, error) {
	b, err := s.bookingRepo.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	party, err := b.PartyOf(claimantID)
	if err != nil {
		return nil, err
	}
	if b.PaymentStatus != domain.PaymentStatusPaid || b.EscrowStatus != domain.EscrowStatusHeld {
		return nil, domain.Invalid("claims require a paid booking with funds in escrow")
	}
	req.ClaimType = strings.TrimSpace(req.ClaimType)
	req.Description = strings.TrimSpace(req.Description)
	if req.ClaimType == "" || req.Description == "" {
		return nil, domain.Invalid("claim type and description are required")
	}

	c := &domain.Claim{
		BookingID:    b.ID,
		ClaimantID:   claimantID,
		OwnerID:      b.OwnerID,
		RenterID:     b.RenterID,
		ClaimType:    req.ClaimType,
		Description:  req.Description,
		EvidenceURLs: req.EvidenceURLs,
		Status:       domain.ClaimStatusPending,
	}
	if err := s.claimRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, b.Counterparty(party), domain.NotificationClaimFiled, bookingPayload(b, "claim_id", c.ID, "claim_type", c.ClaimType))
	logger.Info("Claim filed", "claimID", c.ID, "bookingID", b.ID, "claimant", party)
	return c, nil
}

func (s *claimService) ListClaims(ctx context.Context, actor Actor, bookingID string) ([]domain.Claim, error) {
	if !actor.IsAdmin {
		b, err := s.bookingRepo.GetByID(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		if _, err := b.PartyOf(actor.UserID); err != nil {
			return nil, err
		}
	}
	return s.claimRepo.ListByBooking(ctx, bookingID)
}

func (s *claimService) MarkUnderReview(ctx context.Context, adminID, claimID string) (*domain.Claim, error) {
	c, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c.Status == domain.ClaimStatusUnderReview {
		return c, nil
	}
	if c.Status != domain.ClaimStatusPending {
		return nil, domain.Invalid("claim is already %s", c.Status)
	}
	c.Status = domain.ClaimStatusUnderReview
	c.ResolvedBy = adminID
	ok, err := s.claimRepo.UpdateStatus(ctx, c, []domain.ClaimStatus{domain.ClaimStatusPending})
	if err != nil {
		return nil, err
	}
	if !ok {
		return s.claimRepo.GetByID(ctx, claimID)
	}
	return c, nil
}

// ResolveClaim records the decision, then releases escrow accordingly. The claim
// status is written first; resolving again with the same decision re-drives the
// release if it did not complete.
func (s *claimService) ResolveClaim(ctx context.Context, adminID, claimID string, decision domain.ClaimDecision, notes string) (*domain.Claim, error) {
	logger.EnterMethod("claimService.ResolveClaim", "claimID", claimID, "decision", decision)

	c, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	res := domain.ResolveReleaseType(c, c.OwnerID, c.RenterID, decision)
	if res.Fallback {
		if s.strictClaimant {
			return nil, domain.ErrUnauthorized
		}
		logger.Warn("Claimant is neither owner nor renter, resolving as owner claim",
			"claimID", c.ID, "claimantID", c.ClaimantID, "bookingID", c.BookingID)
	}

	target := decision.Status()
	redrive := false
	switch {
	case c.Status.IsOpen():
		now := s.clock.Now()
		c.Status = target
		c.ResolvedBy = adminID
		c.AdminNotes = notes
		c.ResolvedAt = &now
		ok, err := s.claimRepo.UpdateStatus(ctx, c, []domain.ClaimStatus{domain.ClaimStatusPending, domain.ClaimStatusUnderReview})
		if err != nil {
			return nil, err
		}
		if !ok {
			current, err := s.claimRepo.GetByID(ctx, claimID)
			if err != nil {
				return nil, err
			}
			if current.Status != target {
				return nil, domain.Invalid("claim was concurrently resolved as %s", current.Status)
			}
			c, redrive = current, true
		}
	case c.Status == target:
		redrive = true
		logger.Info("Re-driving release for resolved claim", "claimID", c.ID, "release_type", res.ReleaseType)
	default:
		return nil, domain.Invalid("claim is already %s", c.Status)
	}

	if _, err := s.escrow.Release(ctx, c.BookingID, res.ReleaseType); err != nil {
		if !(redrive && errors.Is(err, domain.ErrNotHeld) && s.escrowSettled(ctx, c, res.ReleaseType)) {
			logger.ExitMethodWithError("claimService.ResolveClaim", err, "claimID", c.ID)
			return c, err
		}
	}

	b, err := s.bookingRepo.GetByID(ctx, c.BookingID)
	if err != nil {
		logger.Warn("Claim resolved but booking lookup failed", "claimID", c.ID, "error", err)
		return c, nil
	}
	notifyBoth(ctx, s.notifier, b, domain.NotificationClaimResolved,
		bookingPayload(b, "claim_id", c.ID, "decision", string(decision), "release_type", string(res.ReleaseType)))

	logger.ExitMethod("claimService.ResolveClaim", "claimID", c.ID, "release_type", res.ReleaseType)
	return c, nil
}

// escrowSettled reports whether the booking's escrow already reached a terminal state,
// so a re-driven release has nothing left to move.
func (s *claimService) escrowSettled(ctx context.Context, c *domain.Claim, rt domain.ReleaseType) bool {
	tx, err := s.escrow.GetByBooking(ctx, c.BookingID)
	if err != nil {
		logger.Warn("Escrow lookup failed during re-drive", "claimID", c.ID, "error", err)
		return false
	}
	if !tx.EscrowStatus.IsTerminal() {
		return false
	}
	if tx.ReleaseType != rt {
		logger.Warn("Escrow settled by a different release", "claimID", c.ID, "want", rt, "got", tx.ReleaseType)
	}
	return true
}
