package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wantam-ink/pledge-backend/models"
	"github.com/wantam-ink/pledge-backend/shared"
)

// openTestDB returns a migrated in-memory SQLite store.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	config := shared.NewDefaultUnifiedConfiguration().Database
	config.Driver = "sqlite"
	config.URL = ":memory:"

	db, dialect, err := Open(config)
	require.NoError(t, err)
	require.Equal(t, DialectSQLite, dialect)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(context.Background(), db, dialect))
	return db
}

func newPledge(transactionID, region string) *models.PledgeRecord {
	return &models.PledgeRecord{
		ID:            uuid.New(),
		Phone:         "254712345678",
		Region:        region,
		Amount:        decimal.RequireFromString("1.00"),
		TransactionID: transactionID,
		PaymentMethod: models.PaymentMethodMpesa,
		Verified:      true,
		CreatedAt:     time.Date(2024, 8, 8, 10, 30, 0, 123456000, time.UTC),
	}
}

func TestInsertAndGetByTransactionID(t *testing.T) {
	repo := NewPledgeRepository(openTestDB(t), DialectSQLite, nil)
	ctx := context.Background()

	pledge := newPledge("QHX1ABC", "Nairobi")
	inserted, err := repo.Insert(ctx, pledge)
	require.NoError(t, err)
	assert.True(t, inserted)

	got, err := repo.GetByTransactionID(ctx, "QHX1ABC")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, pledge.ID, got.ID)
	assert.Equal(t, "Nairobi", got.Region)
	assert.True(t, got.Amount.Equal(pledge.Amount))
	assert.True(t, got.Verified)
	assert.Equal(t, models.PaymentMethodMpesa, got.PaymentMethod)
	assert.True(t, got.CreatedAt.Equal(pledge.CreatedAt))

	missing, err := repo.GetByTransactionID(ctx, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Equal(t, int64(3), repo.Metrics().GetSnapshot().TotalQueries)
}

func TestInsertDuplicateTransactionIsNotAnError(t *testing.T) {
	repo := NewPledgeRepository(openTestDB(t), DialectSQLite, nil)
	ctx := context.Background()

	inserted, err := repo.Insert(ctx, newPledge("DUP1", "Mombasa"))
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = repo.Insert(ctx, newPledge("DUP1", "Kisumu"))
	require.NoError(t, err)
	assert.False(t, inserted)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := repo.GetByTransactionID(ctx, "DUP1")
	require.NoError(t, err)
	assert.Equal(t, "Mombasa", got.Region, "first writer wins")
}

func TestRegionCountsOrdering(t *testing.T) {
	repo := NewPledgeRepository(openTestDB(t), DialectSQLite, nil)
	ctx := context.Background()

	regions := []string{"Kisumu", "Nairobi", "Nairobi", "Nairobi", "Kiambu", "Kisumu", "Embu"}
	for i, region := range regions {
		_, err := repo.Insert(ctx, newPledge(fmt.Sprintf("TX%03d", i), region))
		require.NoError(t, err)
	}

	counts, err := repo.RegionCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.RegionAggregate{
		{Region: "Nairobi", Count: 3},
		{Region: "Kisumu", Count: 2},
		{Region: "Embu", Count: 1},
		{Region: "Kiambu", Count: 1},
	}, counts)
}

func TestRegionCountsEmptyStore(t *testing.T) {
	repo := NewPledgeRepository(openTestDB(t), DialectSQLite, nil)

	counts, err := repo.RegionCounts(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, counts)
	assert.Empty(t, counts)
}

func TestInsertIsAtMostOncePerTransactionID(t *testing.T) {
	repo := NewPledgeRepository(openTestDB(t), DialectSQLite, nil)
	ctx := context.Background()

	properties := gopter.NewProperties(nil)

	properties.Property("repeated inserts of one transaction ID store exactly one row", prop.ForAll(
		func(deliveries int) bool {
			transactionID := uuid.NewString()
			before, err := repo.Count(ctx)
			if err != nil {
				return false
			}

			insertedCount := 0
			for i := 0; i < deliveries; i++ {
				inserted, err := repo.Insert(ctx, newPledge(transactionID, "Nakuru"))
				if err != nil {
					return false
				}
				if inserted {
					insertedCount++
				}
			}

			after, err := repo.Count(ctx)
			return err == nil && insertedCount == 1 && after == before+1
		},
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}

func TestRebind(t *testing.T) {
	pg := &PledgeRepository{dialect: DialectPostgres}
	lite := &PledgeRepository{dialect: DialectSQLite}

	query := "SELECT * FROM pledges WHERE transaction_id = ? AND region = ?"
	assert.Equal(t, "SELECT * FROM pledges WHERE transaction_id = $1 AND region = $2", pg.rebind(query))
	assert.Equal(t, query, lite.rebind(query))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505", Constraint: transactionIDConstraint}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert pledge: %w",
		&pq.Error{Code: "23505", Constraint: transactionIDConstraint})))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23505", Constraint: "pledges_pkey"}))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: pledges.transaction_id")))
}

func TestPostgresRepository(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("Skipping PostgreSQL repository test - TEST_DATABASE_URL not set")
	}

	config := shared.NewDefaultUnifiedConfiguration().Database
	config.URL = dbURL
	db, dialect, err := Open(config)
	if err != nil {
		t.Skipf("Skipping PostgreSQL repository test - database not available: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, dialect))

	repo := NewPledgeRepository(db, dialect, nil)
	pledge := newPledge("PG-"+uuid.NewString(), "Machakos")

	inserted, err := repo.Insert(ctx, pledge)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Insert(ctx, newPledge(pledge.TransactionID, "Machakos"))
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := repo.GetByTransactionID(ctx, pledge.TransactionID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, pledge.ID, got.ID)
	assert.True(t, got.CreatedAt.Equal(pledge.CreatedAt))

	_, err = db.ExecContext(ctx, "DELETE FROM pledges WHERE transaction_id = $1", pledge.TransactionID)
	require.NoError(t, err)
}
