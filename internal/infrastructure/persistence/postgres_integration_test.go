package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/identity"
	"github.com/homestead/backend/internal/domain/sales"
	"github.com/homestead/backend/internal/infrastructure/migration"
	"github.com/homestead/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newPostgresDB starts a throwaway PostgreSQL and applies the embedded SQL
// migrations, so the schema under test is the one production runs.
func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in -short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("homestead_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	m, err := migration.New(sqlDB, migrations.FS, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	return db
}

func TestPostgres_TransactionRoundTrip(t *testing.T) {
	db := newPostgresDB(t)
	ctx := context.Background()

	customer, err := identity.NewUser("buyer@example.com", "Pat Buyer", "5555550100", identity.RoleCustomer, "correct-horse-battery")
	require.NoError(t, err)
	require.NoError(t, NewGormUserRepository(db).Save(ctx, customer))

	repo := NewGormTransactionRepository(db)
	tx := newTestTransaction(t, "EST-2026-00001", customer.ID)
	require.NoError(t, repo.Save(ctx, tx))

	loaded, err := repo.FindByNumber(ctx, "EST-2026-00001")
	require.NoError(t, err)
	require.Len(t, loaded.Lines, 2)
	assert.True(t, tx.Total.Equal(loaded.Total), "total %s vs %s", tx.Total, loaded.Total)
	assert.Equal(t, sales.StatusDraft, loaded.Status)

	home, _ := tx.HomeLine()
	referenced, err := repo.ReferencesCatalogItem(ctx, home.RefID)
	require.NoError(t, err)
	assert.True(t, referenced)

	referenced, err = repo.ReferencesCatalogItem(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, referenced)
}

func TestPostgres_NextSequenceIsUniqueUnderConcurrency(t *testing.T) {
	db := newPostgresDB(t)
	repo := NewGormTransactionRepository(db)
	ctx := context.Background()

	const callers = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int]bool)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := repo.NextSequence(ctx, 2026)
			assert.NoError(t, err)
			mu.Lock()
			seen[seq] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, callers)
	for i := 1; i <= callers; i++ {
		assert.True(t, seen[i], "missing sequence %d", i)
	}

	next, err := repo.NextSequence(ctx, 2027)
	require.NoError(t, err)
	assert.Equal(t, 1, next, "each year restarts at one")
}
