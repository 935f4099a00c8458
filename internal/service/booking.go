package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gearshare-backend/internal/clock"
	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/repository"
)

type bookingService struct {
	bookingRepo repository.BookingRepository
	gearRepo    repository.GearRepository
	claimRepo   repository.ClaimRepository
	escrow      EscrowService
	notifier    Notifier
	clock       clock.Clock
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	gearRepo repository.GearRepository,
	claimRepo repository.ClaimRepository,
	escrow EscrowService,
	notifier Notifier,
	clk clock.Clock,
) BookingService {
	return &bookingService{
		bookingRepo: bookingRepo,
		gearRepo:    gearRepo,
		claimRepo:   claimRepo,
		escrow:      escrow,
		notifier:    notifier,
		clock:       clk,
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, renterID string, req CreateBookingRequest) (*domain.Booking, error) {
	logger.EnterMethod("bookingService.CreateBooking", "renterID", renterID, "gearID", req.GearID)

	gear, err := s.gearRepo.GetByID(ctx, req.GearID)
	if err != nil {
		return nil, err
	}
	if gear.OwnerID == renterID {
		return nil, domain.Invalid("owners cannot book their own gear")
	}
	days, err := domain.WholeDays(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	today := s.clock.Now().Truncate(24 * time.Hour)
	if req.StartDate.Before(today) {
		return nil, domain.Invalid("start date is in the past")
	}
	deposit := gear.DepositAmount
	if req.DepositAmount != nil {
		if *req.DepositAmount < 0 {
			return nil, domain.Invalid("deposit amount must not be negative")
		}
		deposit = *req.DepositAmount
	}
	if req.PickupLocation != nil {
		if err := validateLocation(*req.PickupLocation); err != nil {
			return nil, err
		}
	}

	b := &domain.Booking{
		GearID:         gear.ID,
		OwnerID:        gear.OwnerID,
		RenterID:       renterID,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		TotalDays:      days,
		TotalAmount:    gear.PricePerDay * int64(days),
		DepositAmount:  deposit,
		Status:         domain.BookingStatusPending,
		PaymentStatus:  domain.PaymentStatusPending,
		PickupLocation: req.PickupLocation,
		Notes:          strings.TrimSpace(req.Notes),
	}
	if err := s.bookingRepo.Create(ctx, b); err != nil {
		logger.ExitMethodWithError("bookingService.CreateBooking", err)
		return nil, err
	}

	s.notifier.Notify(ctx, b.OwnerID, domain.NotificationBookingRequest, bookingPayload(b, "gear_title", gear.Title))
	logger.ExitMethod("bookingService.CreateBooking", "bookingID", b.ID, "total", b.TotalAmount)
	return b, nil
}

func (s *bookingService) GetBooking(ctx context.Context, actor Actor, bookingID string) (*domain.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin {
		if _, err := b.PartyOf(actor.UserID); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// loadAs fetches the booking and the side actorID is on.
func (s *bookingService) loadAs(ctx context.Context, actorID, bookingID string) (*domain.Booking, domain.Party, error) {
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, "", err
	}
	party, err := b.PartyOf(actorID)
	if err != nil {
		return nil, "", err
	}
	return b, party, nil
}

// transition validates and performs a conditional status change. When a concurrent
// writer got there first the reported error reflects the current status.
func (s *bookingService) transition(ctx context.Context, b *domain.Booking, to domain.BookingStatus) error {
	if err := domain.ValidateTransition(b.Status, to); err != nil {
		return err
	}
	moved, err := s.bookingRepo.TransitionStatus(ctx, b.ID, b.Status, to)
	if err != nil {
		return err
	}
	if !moved {
		current, err := s.bookingRepo.GetByID(ctx, b.ID)
		if err != nil {
			return err
		}
		return &domain.TransitionError{From: current.Status, To: to}
	}
	logger.Info("Booking status changed", "bookingID", b.ID, "from", b.Status, "to", to)
	b.Status = to
	return nil
}

func (s *bookingService) AcceptBooking(ctx context.Context, ownerID, bookingID string) (*domain.Booking, error) {
	b, party, err := s.loadAs(ctx, ownerID, bookingID)
	if err != nil {
		return nil, err
	}
	if party != domain.PartyOwner {
		return nil, domain.ErrUnauthorized
	}
	if err := s.transition(ctx, b, domain.BookingStatusConfirmed); err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, b.RenterID, domain.NotificationBookingConfirmed, bookingPayload(b))
	return b, nil
}

func (s *bookingService) RejectBooking(ctx context.Context, ownerID, bookingID, reason string) (*domain.Booking, error) {
	b, party, err := s.loadAs(ctx, ownerID, bookingID)
	if err != nil {
		return nil, err
	}
	if party != domain.PartyOwner {
		return nil, domain.ErrUnauthorized
	}
	if b.Status != domain.BookingStatusPending {
		return nil, &domain.TransitionError{From: b.Status, To: domain.BookingStatusCancelled}
	}
	if err := s.transition(ctx, b, domain.BookingStatusCancelled); err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, b.RenterID, domain.NotificationBookingRejected, bookingPayload(b, "reason", reason))
	return b, nil
}

func (s *bookingService) CancelBooking(ctx context.Context, actorID, bookingID, reason string) (*domain.Booking, error) {
	b, party, err := s.loadAs(ctx, actorID, bookingID)
	if err != nil {
		return nil, err
	}
	switch b.Status {
	case domain.BookingStatusPending, domain.BookingStatusConfirmed:
	case domain.BookingStatusActive:
		return nil, domain.Invalid("active bookings are settled through a claim")
	default:
		return nil, &domain.TransitionError{From: b.Status, To: domain.BookingStatusCancelled}
	}

	if b.EscrowStatus == domain.EscrowStatusHeld {
		// the auto refund cancels the booking
		if _, err := s.escrow.Release(ctx, b.ID, domain.ReleaseAutoRefund); err != nil {
			return nil, err
		}
		updated, err := s.bookingRepo.GetByID(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		b = updated
	} else if err := s.transition(ctx, b, domain.BookingStatusCancelled); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, b.Counterparty(party), domain.NotificationBookingCancelled, bookingPayload(b, "reason", reason, "cancelled_by", string(party)))
	return b, nil
}

func (s *bookingService) ConfirmPickup(ctx context.Context, actorID, bookingID string) (*domain.Booking, error) {
	return s.confirm(ctx, actorID, bookingID, domain.StagePickup)
}

func (s *bookingService) ConfirmReturn(ctx context.Context, actorID, bookingID string) (*domain.Booking, error) {
	return s.confirm(ctx, actorID, bookingID, domain.StageReturn)
}

// confirm records one party's handover confirmation and advances the booking once
// both flags are set.
func (s *bookingService) confirm(ctx context.Context, actorID, bookingID string, stage domain.ConfirmationStage) (*domain.Booking, error) {
	from, to := stage.Transition()
	waiting, advanced := domain.NotificationPickupConfirmed, domain.NotificationBookingActive
	if stage == domain.StageReturn {
		waiting, advanced = domain.NotificationReturnConfirmed, domain.NotificationBookingCompleted
	}

	b, party, err := s.loadAs(ctx, actorID, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != from {
		if b.Status == to && b.Confirmation(stage).ConfirmedBy(party) {
			return b, nil
		}
		return nil, &domain.TransitionError{From: b.Status, To: to}
	}

	changed, err := s.bookingRepo.SetConfirmation(ctx, b.ID, stage, party, s.clock.Now())
	if err != nil {
		return nil, err
	}

	// gate on a fresh read so both parties' writes are visible
	b, err = s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !changed && b.Status != from && !(b.Status == to && b.Confirmation(stage).ConfirmedBy(party)) {
		// cancelled or otherwise moved between the read and the write
		return nil, &domain.TransitionError{From: b.Status, To: to}
	}
	if !b.Confirmation(stage).Complete() {
		if changed {
			s.notifier.Notify(ctx, b.Counterparty(party), waiting, bookingPayload(b, "stage", string(stage)))
		}
		return b, nil
	}
	if b.Status != from {
		// the other party's request already advanced it
		return b, nil
	}

	moved, err := s.bookingRepo.TransitionStatus(ctx, b.ID, from, to)
	if err != nil {
		return nil, err
	}
	if !moved {
		return s.bookingRepo.GetByID(ctx, bookingID)
	}
	b.Status = to
	logger.Info("Booking status changed", "bookingID", b.ID, "from", from, "to", to, "stage", stage)
	notifyBoth(ctx, s.notifier, b, advanced, bookingPayload(b))

	if b.EscrowStatus != domain.EscrowStatusHeld {
		return b, nil
	}
	rt := domain.ReleaseRental
	if stage == domain.StageReturn {
		rt = domain.ReleaseReturnDeposit
		open, err := s.claimRepo.HasOpen(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		if open {
			logger.Info("Deposit kept in escrow pending claim", "bookingID", b.ID)
			return b, nil
		}
	}
	if _, err := s.escrow.Release(ctx, b.ID, rt); err != nil && !errors.Is(err, domain.ErrNotHeld) {
		// booking has advanced; the release can be re-driven by an admin
		logger.Error("Escrow release after confirmation failed", "bookingID", b.ID, "release_type", rt, "error", err)
	}
	return b, nil
}

func validateLocation(loc domain.Location) error {
	if loc.Lat < -90 || loc.Lat > 90 || loc.Lng < -180 || loc.Lng > 180 {
		return domain.Invalid("pickup coordinates out of range")
	}
	return nil
}

func (s *bookingService) SetPickupLocation(ctx context.Context, ownerID, bookingID string, loc domain.Location) (*domain.Booking, error) {
	b, party, err := s.loadAs(ctx, ownerID, bookingID)
	if err != nil {
		return nil, err
	}
	if party != domain.PartyOwner {
		return nil, domain.ErrUnauthorized
	}
	if b.Status.IsTerminal() {
		return nil, domain.Invalid("booking is %s", b.Status)
	}
	if err := validateLocation(loc); err != nil {
		return nil, err
	}
	if err := s.bookingRepo.Patch(ctx, b.ID, domain.BookingPatch{PickupLocation: &loc}); err != nil {
		return nil, err
	}
	b.PickupLocation = &loc
	return b, nil
}
