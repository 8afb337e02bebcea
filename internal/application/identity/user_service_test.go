package identity

import (
	"context"
	"errors"
	"testing"
	"unicode"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/identity"
	"github.com/homestead/backend/internal/domain/pricing"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestUserService_CreateUser(t *testing.T) {
	ctx := context.Background()
	admin := uuid.New()

	t.Run("generates a temporary password and assigns markup", func(t *testing.T) {
		repo := new(MockUserRepository)
		events := &capturingPublisher{}
		pct := decimal.NewFromInt(12)
		repo.On("ExistsByEmail", ctx, "new@example.com").Return(false, nil)
		repo.On("SaveWithMarkup", ctx, mock.AnythingOfType("*identity.User"),
			mock.MatchedBy(func(tier *pricing.MarkupTier) bool {
				return tier.Percentage.Equal(pct) && tier.UpdatedBy != nil && *tier.UpdatedBy == admin
			})).Return(nil)

		svc := NewUserService(repo, nil, events, zap.NewNop())
		res, err := svc.CreateUser(ctx, CreateUserInput{
			Email:         "New@Example.com",
			FullName:      "New Customer",
			Phone:         "(555) 010-3000",
			Role:          "customer",
			MarkupPercent: &pct,
			CreatedBy:     admin,
		})
		require.NoError(t, err)
		assert.Equal(t, "new@example.com", res.User.Email)
		assert.Equal(t, "+15550103000", res.User.Phone)
		assert.Len(t, res.TemporaryPassword, tempPasswordLength)
		assert.Equal(t, []string{identity.EventTypeUserCreated}, events.types())
		repo.AssertExpectations(t)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("out-of-range markup is rejected before anything is stored", func(t *testing.T) {
		repo := new(MockUserRepository)
		events := &capturingPublisher{}
		pct := decimal.NewFromInt(150)

		svc := NewUserService(repo, nil, events, zap.NewNop())
		_, err := svc.CreateUser(ctx, CreateUserInput{
			Email:         "over@example.com",
			FullName:      "Over Markup",
			Role:          "customer",
			MarkupPercent: &pct,
			CreatedBy:     admin,
		})
		assertDomainCode(t, err, "INVALID_MARKUP")
		repo.AssertNotCalled(t, "ExistsByEmail", mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "SaveWithMarkup", mock.Anything, mock.Anything, mock.Anything)
		assert.Empty(t, events.types())
	})

	t.Run("a failed combined save publishes nothing", func(t *testing.T) {
		repo := new(MockUserRepository)
		events := &capturingPublisher{}
		pct := decimal.NewFromInt(10)
		repo.On("ExistsByEmail", ctx, "tx@example.com").Return(false, nil)
		repo.On("SaveWithMarkup", ctx, mock.Anything, mock.Anything).Return(errors.New("connection reset"))

		svc := NewUserService(repo, nil, events, zap.NewNop())
		_, err := svc.CreateUser(ctx, CreateUserInput{Email: "tx@example.com", FullName: "Tx", Role: "customer", MarkupPercent: &pct})
		require.Error(t, err)
		assert.Empty(t, events.types())
	})

	t.Run("explicit password is not echoed", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("ExistsByEmail", ctx, "rep@example.com").Return(false, nil)
		repo.On("Save", ctx, mock.Anything).Return(nil)
		svc := NewUserService(repo, nil, nil, zap.NewNop())

		res, err := svc.CreateUser(ctx, CreateUserInput{Email: "rep@example.com", FullName: "Rep", Role: "sales", Password: "s3cretpass"})
		require.NoError(t, err)
		assert.Empty(t, res.TemporaryPassword)
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("ExistsByEmail", ctx, "dup@example.com").Return(true, nil)
		svc := NewUserService(repo, nil, nil, zap.NewNop())

		_, err := svc.CreateUser(ctx, CreateUserInput{Email: "dup@example.com", FullName: "Dup", Role: "sales"})
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("invalid role", func(t *testing.T) {
		svc := NewUserService(new(MockUserRepository), nil, nil, zap.NewNop())
		_, err := svc.CreateUser(ctx, CreateUserInput{Email: "x@example.com", FullName: "X", Role: "owner"})
		assertDomainCode(t, err, "INVALID_ROLE")
	})

	t.Run("invalid email", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("ExistsByEmail", ctx, "not-an-email").Return(false, nil)
		svc := NewUserService(repo, nil, nil, zap.NewNop())
		_, err := svc.CreateUser(ctx, CreateUserInput{Email: "not-an-email", FullName: "X", Role: "sales"})
		assertDomainCode(t, err, "INVALID_EMAIL")
	})
}

func TestUserService_Deactivate(t *testing.T) {
	ctx := context.Background()
	user, err := identity.NewUser("driver@example.com", "Dee Driver", "", identity.RoleDriver, "truck1234")
	require.NoError(t, err)
	user.ClearDomainEvents()

	repo := new(MockUserRepository)
	revoker := new(MockRevoker)
	events := &capturingPublisher{}
	repo.On("FindByID", ctx, user.ID).Return(user, nil)
	repo.On("Save", ctx, user).Return(nil)
	revoker.On("RevokeUser", ctx, user.ID).Return(errors.New("redis down"))

	svc := NewUserService(repo, revoker, events, zap.NewNop())

	assertDomainCode(t, svc.Deactivate(ctx, user.ID, user.ID), "CANNOT_DEACTIVATE_SELF")

	require.NoError(t, svc.Deactivate(ctx, user.ID, uuid.New()), "revocation failure is logged only")
	assert.False(t, user.Active)
	assert.Equal(t, []string{identity.EventTypeUserDeactivated}, events.types())
	revoker.AssertExpectations(t)
}

func TestUserService_ListUsers(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	u, err := identity.NewUser("a@example.com", "A", "", identity.RoleSales, "passw0rdA")
	require.NoError(t, err)
	repo.On("FindAll", ctx, mock.MatchedBy(func(f identity.UserFilter) bool {
		return f.Role != nil && *f.Role == identity.RoleSales && f.Search == "a@" && f.Page == 2 && f.PageSize == 20
	})).Return([]*identity.User{u}, int64(21), nil)

	svc := NewUserService(repo, nil, nil, zap.NewNop())
	page, err := svc.ListUsers(ctx, ListUsersInput{Page: 2, Search: " a@ ", Role: "sales"})
	require.NoError(t, err)
	assert.Equal(t, int64(21), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)

	_, err = svc.ListUsers(ctx, ListUsersInput{Role: "boss"})
	assertDomainCode(t, err, "INVALID_ROLE")
}

func TestGenerateTemporaryPassword(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		p, err := GenerateTemporaryPassword()
		require.NoError(t, err)
		var letter, digit bool
		for _, r := range p {
			letter = letter || unicode.IsLetter(r)
			digit = digit || unicode.IsDigit(r)
		}
		assert.True(t, letter && digit, p)
		assert.False(t, seen[p])
		seen[p] = true
	}
}
