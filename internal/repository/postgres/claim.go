package postgres

import (
	"context"
	"database/sql"
	"time"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const claimColumns = `c.id, c.booking_id, c.claimant_id, b.owner_id, b.renter_id, c.claim_type, COALESCE(c.description, ''),
	c.evidence_urls, c.claim_status, COALESCE(c.resolved_by, ''), COALESCE(c.admin_notes, ''), c.resolved_at, c.created_at, c.updated_at`

type claimRepository struct {
	db *sql.DB
}

func NewClaimRepository(db *sql.DB) repository.ClaimRepository {
	return &claimRepository{db: db}
}

func scanClaim(row rowScanner) (*domain.Claim, error) {
	var c domain.Claim
	err := row.Scan(&c.ID, &c.BookingID, &c.ClaimantID, &c.OwnerID, &c.RenterID, &c.ClaimType, &c.Description,
		pq.Array(&c.EvidenceURLs), &c.Status, &c.ResolvedBy, &c.AdminNotes, &c.ResolvedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *claimRepository) Create(ctx context.Context, c *domain.Claim) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	query := `INSERT INTO claims (id, booking_id, claimant_id, claim_type, description, evidence_urls, claim_status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	logger.DatabaseCall("INSERT", "claims", "bookingID", c.BookingID)
	_, err := r.db.ExecContext(ctx, query, c.ID, c.BookingID, c.ClaimantID, c.ClaimType, c.Description, pq.Array(c.EvidenceURLs), c.Status, now, now)
	logger.DatabaseResult("INSERT", 1, err, "claimID", c.ID)
	return err
}

func (r *claimRepository) GetByID(ctx context.Context, id string) (*domain.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims c JOIN bookings b ON b.id = c.booking_id WHERE c.id = $1`
	c, err := scanClaim(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "claim", id)
	}
	return c, nil
}

func (r *claimRepository) ListByBooking(ctx context.Context, bookingID string) ([]domain.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims c JOIN bookings b ON b.id = c.booking_id
	          WHERE c.booking_id = $1 ORDER BY c.created_at`
	rows, err := r.db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []domain.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, *c)
	}
	return claims, rows.Err()
}

func (r *claimRepository) UpdateStatus(ctx context.Context, c *domain.Claim, from []domain.ClaimStatus) (bool, error) {
	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}
	c.UpdatedAt = time.Now().UTC()
	query := `UPDATE claims SET claim_status = $1, resolved_by = $2, admin_notes = $3, resolved_at = $4, updated_at = $5
	          WHERE id = $6 AND claim_status = ANY($7)`
	logger.DatabaseCall("UPDATE", "claims", "claimID", c.ID, "to", c.Status)
	res, err := r.db.ExecContext(ctx, query, c.Status, nullString(c.ResolvedBy), nullString(c.AdminNotes), c.ResolvedAt, c.UpdatedAt, c.ID, pq.Array(statuses))
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *claimRepository) HasOpen(ctx context.Context, bookingID string) (bool, error) {
	var open bool
	query := `SELECT EXISTS (SELECT 1 FROM claims WHERE booking_id = $1 AND claim_status IN ('pending', 'under_review'))`
	err := r.db.QueryRowContext(ctx, query, bookingID).Scan(&open)
	return open, err
}
