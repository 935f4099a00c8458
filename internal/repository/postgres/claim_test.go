package postgres_test

import (
	"context"
	"testing"
	"time"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()
	repo := postgres.NewClaimRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "booking_id", "claimant_id", "owner_id", "renter_id", "claim_type", "description",
		"evidence_urls", "claim_status", "resolved_by", "admin_notes", "resolved_at", "created_at", "updated_at"}).
		AddRow("c1", "b1", "r1", "o1", "r1", "damage", "scratched lens", "{https://x/1.jpg,https://x/2.jpg}", "pending", "", "", nil, now, now)
	mock.ExpectQuery("SELECT (.+) FROM claims c JOIN bookings b ON b.id = c.booking_id WHERE c.id = \\$1").
		WithArgs("c1").
		WillReturnRows(rows)

	c, err := repo.GetByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "o1", c.OwnerID)
	assert.Equal(t, domain.ClaimStatusPending, c.Status)
	assert.Equal(t, []string{"https://x/1.jpg", "https://x/2.jpg"}, c.EvidenceURLs)
	assert.Nil(t, c.ResolvedAt)
}

func TestClaimRepository_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()
	repo := postgres.NewClaimRepository(db)

	at := time.Now()
	c := &domain.Claim{ID: "c1", Status: domain.ClaimStatusApproved, ResolvedBy: "admin1", ResolvedAt: &at}
	mock.ExpectExec("UPDATE claims SET claim_status = \\$1(.+) WHERE id = \\$6 AND claim_status = ANY\\(\\$7\\)").
		WithArgs(domain.ClaimStatusApproved, "admin1", nil, &at, sqlmock.AnyArg(), "c1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.UpdateStatus(context.Background(), c, []domain.ClaimStatus{domain.ClaimStatusPending, domain.ClaimStatusUnderReview})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimRepository_HasOpen(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()
	repo := postgres.NewClaimRepository(db)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	open, err := repo.HasOpen(context.Background(), "b1")
	require.NoError(t, err)
	assert.True(t, open)
}

func TestAccountRepository_CreateDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()
	repo := postgres.NewAccountRepository(db)

	mock.ExpectExec("INSERT INTO connected_accounts (.+) ON CONFLICT \\(owner_id\\) DO NOTHING").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.Create(context.Background(), &domain.ConnectedAccount{OwnerID: "o1", AccountID: "acct_1", Status: domain.AccountStatusPending})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
