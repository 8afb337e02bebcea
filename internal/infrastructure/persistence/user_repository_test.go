package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/identity"
	"github.com/homestead/backend/internal/domain/pricing"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockUserRepository creates a GormUserRepository with a mocked SQL connection
func newMockUserRepository(t *testing.T) (*GormUserRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormUserRepository(gormDB), mock, mockDB
}

func TestGormUserRepository_FindByID_Mock(t *testing.T) {
	t.Run("finds existing user", func(t *testing.T) {
		repo, mock, mockDB := newMockUserRepository(t)
		defer mockDB.Close()

		userID := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "email", "full_name", "phone", "role", "password_hash", "active", "version"}).
			AddRow(userID, "jane@example.com", "Jane Buyer", "+15555550100", "customer", "hash", true, 1)

		mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(userID, 1).
			WillReturnRows(rows)

		user, err := repo.FindByID(context.Background(), userID)

		require.NoError(t, err)
		assert.Equal(t, userID, user.ID)
		assert.Equal(t, identity.RoleCustomer, user.Role)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps missing row to ErrNotFound", func(t *testing.T) {
		repo, mock, mockDB := newMockUserRepository(t)
		defer mockDB.Close()

		userID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(userID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		user, err := repo.FindByID(context.Background(), userID)

		assert.Nil(t, user)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func newTestUser(t *testing.T, email string, role identity.Role) *identity.User {
	t.Helper()
	u, err := identity.NewUser(email, "Test Person", "5555550100", role, "correct-horse-battery")
	require.NoError(t, err)
	return u
}

func TestGormUserRepository_SQLite(t *testing.T) {
	ctx := context.Background()

	t.Run("saves and loads by email case-insensitively", func(t *testing.T) {
		repo := NewGormUserRepository(newSQLiteDB(t))
		u := newTestUser(t, "Buyer@Example.com", identity.RoleCustomer)
		require.NoError(t, repo.Save(ctx, u))

		found, err := repo.FindByEmail(ctx, "BUYER@example.COM")
		require.NoError(t, err)
		assert.Equal(t, u.ID, found.ID)
		assert.True(t, found.VerifyPassword("correct-horse-battery"))

		exists, err := repo.ExistsByEmail(ctx, "buyer@example.com")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("saves the user with a markup tier", func(t *testing.T) {
		db := newSQLiteDB(t)
		repo := NewGormUserRepository(db)
		u := newTestUser(t, "tiered@example.com", identity.RoleCustomer)
		tier, err := pricing.NewMarkupTier(u.ID, decimal.NewFromInt(12), "", nil)
		require.NoError(t, err)

		require.NoError(t, repo.SaveWithMarkup(ctx, u, tier))

		saved, err := NewGormMarkupRepository(db).FindByUserID(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, saved.Percentage.Equal(decimal.NewFromInt(12)))
	})

	t.Run("a failed markup insert keeps no user row", func(t *testing.T) {
		db := newSQLiteDB(t)
		repo := NewGormUserRepository(db)
		markups := NewGormMarkupRepository(db)

		first := newTestUser(t, "first@example.com", identity.RoleCustomer)
		existing, err := pricing.NewMarkupTier(first.ID, decimal.NewFromInt(5), "", nil)
		require.NoError(t, err)
		require.NoError(t, repo.SaveWithMarkup(ctx, first, existing))

		second := newTestUser(t, "second@example.com", identity.RoleCustomer)
		clash, err := pricing.NewMarkupTier(second.ID, decimal.NewFromInt(8), "", nil)
		require.NoError(t, err)
		clash.ID = existing.ID

		err = repo.SaveWithMarkup(ctx, second, clash)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)

		exists, err := repo.ExistsByEmail(ctx, "second@example.com")
		require.NoError(t, err)
		assert.False(t, exists)
		_, err = markups.FindByUserID(ctx, second.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("duplicate email is ErrAlreadyExists", func(t *testing.T) {
		repo := NewGormUserRepository(newSQLiteDB(t))
		require.NoError(t, repo.Save(ctx, newTestUser(t, "dup@example.com", identity.RoleCustomer)))

		err := repo.Save(ctx, newTestUser(t, "dup@example.com", identity.RoleSales))
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("updates an existing user", func(t *testing.T) {
		repo := NewGormUserRepository(newSQLiteDB(t))
		u := newTestUser(t, "rep@example.com", identity.RoleCustomer)
		require.NoError(t, repo.Save(ctx, u))

		require.NoError(t, u.ChangeRole(identity.RoleSales))
		require.NoError(t, repo.Save(ctx, u))

		found, err := repo.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, identity.RoleSales, found.Role)

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("filters by role and search", func(t *testing.T) {
		repo := NewGormUserRepository(newSQLiteDB(t))
		require.NoError(t, repo.Save(ctx, newTestUser(t, "a@example.com", identity.RoleDriver)))
		require.NoError(t, repo.Save(ctx, newTestUser(t, "b@example.com", identity.RoleDriver)))
		require.NoError(t, repo.Save(ctx, newTestUser(t, "c@example.com", identity.RoleSales)))

		role := identity.RoleDriver
		users, total, err := repo.FindAll(ctx, identity.UserFilter{Filter: shared.DefaultFilter(), Role: &role})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, users, 2)

		f := shared.DefaultFilter()
		f.Search = "C@EXAMPLE"
		users, total, err = repo.FindAll(ctx, identity.UserFilter{Filter: f})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "c@example.com", users[0].Email)
	})

	t.Run("missing email is ErrNotFound", func(t *testing.T) {
		repo := NewGormUserRepository(newSQLiteDB(t))
		_, err := repo.FindByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
