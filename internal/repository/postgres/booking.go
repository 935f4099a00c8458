package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/repository"

	"github.com/google/uuid"
)

const bookingColumns = `id, gear_id, owner_id, renter_id, start_date, end_date, total_days, total_amount, deposit_amount,
	status, payment_status, COALESCE(escrow_status, ''),
	pickup_confirmed_by_owner, pickup_confirmed_by_owner_at, pickup_confirmed_by_renter, pickup_confirmed_by_renter_at,
	return_confirmed_by_owner, return_confirmed_by_owner_at, return_confirmed_by_renter, return_confirmed_by_renter_at,
	COALESCE(pickup_location, ''), pickup_lat, pickup_lng, COALESCE(notes, ''), created_at, updated_at`

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) repository.BookingRepository {
	return &bookingRepository{db: db}
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var (
		b        domain.Booking
		address  string
		lat, lng sql.NullFloat64
	)
	err := row.Scan(&b.ID, &b.GearID, &b.OwnerID, &b.RenterID, &b.StartDate, &b.EndDate, &b.TotalDays, &b.TotalAmount, &b.DepositAmount,
		&b.Status, &b.PaymentStatus, &b.EscrowStatus,
		&b.Pickup.ByOwner, &b.Pickup.ByOwnerAt, &b.Pickup.ByRenter, &b.Pickup.ByRenterAt,
		&b.Return.ByOwner, &b.Return.ByOwnerAt, &b.Return.ByRenter, &b.Return.ByRenterAt,
		&address, &lat, &lng, &b.Notes, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lat.Valid && lng.Valid {
		b.PickupLocation = &domain.Location{Address: address, Lat: lat.Float64, Lng: lng.Float64}
	}
	return &b, nil
}

func (r *bookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now

	var address sql.NullString
	var lat, lng sql.NullFloat64
	if b.PickupLocation != nil {
		address = nullString(b.PickupLocation.Address)
		lat = sql.NullFloat64{Float64: b.PickupLocation.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: b.PickupLocation.Lng, Valid: true}
	}

	query := `INSERT INTO bookings (id, gear_id, owner_id, renter_id, start_date, end_date, total_days, total_amount, deposit_amount,
	          status, payment_status, pickup_location, pickup_lat, pickup_lng, notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	logger.DatabaseCall("INSERT", "bookings", "bookingID", b.ID)
	_, err := r.db.ExecContext(ctx, query, b.ID, b.GearID, b.OwnerID, b.RenterID, b.StartDate, b.EndDate, b.TotalDays, b.TotalAmount, b.DepositAmount,
		b.Status, b.PaymentStatus, address, lat, lng, b.Notes, now, now)
	logger.DatabaseResult("INSERT", 1, err, "bookingID", b.ID)
	return err
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	b, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "booking", id)
	}
	return b, nil
}

func confirmationColumn(stage domain.ConfirmationStage, party domain.Party) (string, error) {
	switch stage {
	case domain.StagePickup, domain.StageReturn:
	default:
		return "", fmt.Errorf("unknown confirmation stage %q", stage)
	}
	switch party {
	case domain.PartyOwner, domain.PartyRenter:
	default:
		return "", fmt.Errorf("unknown party %q", party)
	}
	return fmt.Sprintf("%s_confirmed_by_%s", stage, party), nil
}

func (r *bookingRepository) SetConfirmation(ctx context.Context, id string, stage domain.ConfirmationStage, party domain.Party, at time.Time) (bool, error) {
	col, err := confirmationColumn(stage, party)
	if err != nil {
		return false, err
	}
	from, _ := stage.Transition()
	query := fmt.Sprintf(`UPDATE bookings SET %[1]s = true, %[1]s_at = $1, updated_at = $1 WHERE id = $2 AND %[1]s = false AND status = $3`, col)
	logger.DatabaseCall("UPDATE", "bookings", "bookingID", id, "column", col, "status", from)
	res, err := r.db.ExecContext(ctx, query, at, id, from)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err, "bookingID", id)
		return false, err
	}
	return affected(res)
}

func (r *bookingRepository) TransitionStatus(ctx context.Context, id string, from, to domain.BookingStatus) (bool, error) {
	query := `UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	logger.DatabaseCall("UPDATE", "bookings", "bookingID", id, "from", from, "to", to)
	res, err := r.db.ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err, "bookingID", id)
		return false, err
	}
	return affected(res)
}

func (r *bookingRepository) Patch(ctx context.Context, id string, patch domain.BookingPatch) error {
	if patch.Empty() {
		return nil
	}
	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Notes != nil {
		add("notes", *patch.Notes)
	}
	if patch.PickupLocation != nil {
		add("pickup_location", patch.PickupLocation.Address)
		add("pickup_lat", patch.PickupLocation.Lat)
		add("pickup_lng", patch.PickupLocation.Lng)
	}
	if patch.PaymentStatus != nil {
		add("payment_status", *patch.PaymentStatus)
	}
	if patch.EscrowStatus != nil {
		add("escrow_status", *patch.EscrowStatus)
	}
	add("updated_at", time.Now().UTC())
	args = append(args, id)

	query := fmt.Sprintf("UPDATE bookings SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	logger.DatabaseCall("UPDATE", "bookings", "bookingID", id)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NotFound("booking", id)
	}
	return nil
}

func (r *bookingRepository) List(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE 1=1`
	var args []any
	cond := func(expr string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(" AND %s $%d", expr, len(args))
	}
	if f.Status != "" {
		cond("status =", f.Status)
	}
	if !f.CreatedBefore.IsZero() {
		cond("created_at <", f.CreatedBefore)
	}
	if !f.UpdatedBefore.IsZero() {
		cond("updated_at <", f.UpdatedBefore)
	}
	if !f.StartBefore.IsZero() {
		cond("start_date <", f.StartBefore)
	}
	if f.MissingPickupCoordinates {
		query += " AND (pickup_lat IS NULL OR pickup_lng IS NULL)"
	}
	query += " ORDER BY created_at"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	logger.DatabaseCall("SELECT", "bookings", "status", f.Status)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}
