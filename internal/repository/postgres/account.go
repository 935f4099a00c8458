package postgres

import (
	"context"
	"database/sql"
	"time"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/repository"
)

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `owner_id, stripe_account_id, account_status, charges_enabled, payouts_enabled, created_at, updated_at`

func scanAccount(row rowScanner) (*domain.ConnectedAccount, error) {
	var a domain.ConnectedAccount
	if err := row.Scan(&a.OwnerID, &a.AccountID, &a.Status, &a.ChargesEnabled, &a.PayoutsEnabled, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *accountRepository) GetByOwner(ctx context.Context, ownerID string) (*domain.ConnectedAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM connected_accounts WHERE owner_id = $1`
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, ownerID))
	if err != nil {
		return nil, notFound(err, "connected account for owner", ownerID)
	}
	return a, nil
}

func (r *accountRepository) GetByAccountID(ctx context.Context, accountID string) (*domain.ConnectedAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM connected_accounts WHERE stripe_account_id = $1`
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, accountID))
	if err != nil {
		return nil, notFound(err, "connected account", accountID)
	}
	return a, nil
}

// Create inserts the owner's account. An owner has at most one.
func (r *accountRepository) Create(ctx context.Context, a *domain.ConnectedAccount) error {
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	query := `INSERT INTO connected_accounts (owner_id, stripe_account_id, account_status, charges_enabled, payouts_enabled, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (owner_id) DO NOTHING`
	logger.DatabaseCall("INSERT", "connected_accounts", "ownerID", a.OwnerID)
	res, err := r.db.ExecContext(ctx, query, a.OwnerID, a.AccountID, a.Status, a.ChargesEnabled, a.PayoutsEnabled, now, now)
	if err != nil {
		return err
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Invalid("owner %s already has a connected account", a.OwnerID)
	}
	return nil
}

func (r *accountRepository) UpdateStatus(ctx context.Context, a *domain.ConnectedAccount) error {
	a.UpdatedAt = time.Now().UTC()
	query := `UPDATE connected_accounts SET account_status = $1, charges_enabled = $2, payouts_enabled = $3, updated_at = $4
	          WHERE owner_id = $5`
	logger.DatabaseCall("UPDATE", "connected_accounts", "ownerID", a.OwnerID, "status", a.Status)
	_, err := r.db.ExecContext(ctx, query, a.Status, a.ChargesEnabled, a.PayoutsEnabled, a.UpdatedAt, a.OwnerID)
	return err
}

// ListForSync returns the least recently synced accounts that are not known invalid.
func (r *accountRepository) ListForSync(ctx context.Context, limit int) ([]domain.ConnectedAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM connected_accounts
	          WHERE account_status <> 'invalid' ORDER BY updated_at LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.ConnectedAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}
