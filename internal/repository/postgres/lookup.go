package postgres

import (
	"context"
	"database/sql"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/repository"
)

type profileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) repository.ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	p := &domain.Profile{}
	query := `SELECT id, COALESCE(email, ''), COALESCE(full_name, '') FROM profiles WHERE id = $1`
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Email, &p.FullName); err != nil {
		return nil, notFound(err, "profile", id)
	}
	return p, nil
}

type gearRepository struct {
	db *sql.DB
}

func NewGearRepository(db *sql.DB) repository.GearRepository {
	return &gearRepository{db: db}
}

func (r *gearRepository) GetByID(ctx context.Context, id string) (*domain.Gear, error) {
	g := &domain.Gear{}
	query := `SELECT id, owner_id, title, price_per_day, COALESCE(deposit_amount, 0) FROM gear WHERE id = $1`
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&g.ID, &g.OwnerID, &g.Title, &g.PricePerDay, &g.DepositAmount); err != nil {
		return nil, notFound(err, "gear", id)
	}
	return g, nil
}
