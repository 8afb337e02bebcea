package identity

import (
	"errors"
	"testing"

	"github.com/homestead/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	t.Run("creates active user with normalized fields", func(t *testing.T) {
		user, err := NewUser("  Jane.Doe@Example.COM ", " Jane Doe ", "(555) 123-4567", RoleCustomer, "Password123")

		require.NoError(t, err)
		assert.Equal(t, "jane.doe@example.com", user.Email)
		assert.Equal(t, "Jane Doe", user.FullName)
		assert.Equal(t, "+15551234567", user.Phone)
		assert.Equal(t, RoleCustomer, user.Role)
		assert.True(t, user.Active)
		assert.NotEmpty(t, user.PasswordHash)
		assert.True(t, user.VerifyPassword("Password123"))
		assert.False(t, user.VerifyPassword("wrong-pass1"))

		events := user.GetDomainEvents()
		require.Len(t, events, 1)
		created, ok := events[0].(*UserCreatedEvent)
		require.True(t, ok)
		assert.Equal(t, EventTypeUserCreated, created.EventType())
		assert.Equal(t, user.ID, created.AggregateID())
	})

	t.Run("allows empty phone", func(t *testing.T) {
		user, err := NewUser("a@b.co", "A B", "", RoleSales, "Password123")
		require.NoError(t, err)
		assert.Empty(t, user.Phone)
	})

	tests := []struct {
		name     string
		email    string
		fullName string
		phone    string
		role     Role
		password string
		code     string
	}{
		{"empty email", "", "A", "", RoleCustomer, "Password123", "INVALID_EMAIL"},
		{"bad email", "not-an-email", "A", "", RoleCustomer, "Password123", "INVALID_EMAIL"},
		{"empty name", "a@b.co", "  ", "", RoleCustomer, "Password123", "INVALID_NAME"},
		{"bad phone", "a@b.co", "A", "12ab", RoleCustomer, "Password123", "INVALID_PHONE"},
		{"short phone", "a@b.co", "A", "555123", RoleCustomer, "Password123", "INVALID_PHONE"},
		{"unknown role", "a@b.co", "A", "", Role("owner"), "Password123", "INVALID_ROLE"},
		{"short password", "a@b.co", "A", "", RoleCustomer, "Pass1", "INVALID_PASSWORD"},
		{"password without digits", "a@b.co", "A", "", RoleCustomer, "PasswordOnly", "INVALID_PASSWORD"},
	}
	for _, tt := range tests {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			_, err := NewUser(tt.email, tt.fullName, tt.phone, tt.role, tt.password)
			require.Error(t, err)
			var de *shared.DomainError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.code, de.Code)
		})
	}
}

func TestUser_ChangeRole(t *testing.T) {
	user, err := NewUser("rep@example.com", "Sales Rep", "", RoleCustomer, "Password123")
	require.NoError(t, err)
	user.ClearDomainEvents()
	version := user.Version

	require.NoError(t, user.ChangeRole(RoleSales))
	assert.Equal(t, RoleSales, user.Role)
	assert.Equal(t, version+1, user.Version)
	require.Len(t, user.GetDomainEvents(), 1)
	evt := user.GetDomainEvents()[0].(*UserRoleChangedEvent)
	assert.Equal(t, RoleCustomer, evt.OldRole)
	assert.Equal(t, RoleSales, evt.NewRole)

	t.Run("same role is a no-op", func(t *testing.T) {
		user.ClearDomainEvents()
		require.NoError(t, user.ChangeRole(RoleSales))
		assert.Empty(t, user.GetDomainEvents())
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		assert.Error(t, user.ChangeRole(Role("root")))
	})
}

func TestUser_Deactivate(t *testing.T) {
	user, err := NewUser("driver@example.com", "Driver", "", RoleDriver, "Password123")
	require.NoError(t, err)

	require.NoError(t, user.Deactivate())
	assert.False(t, user.CanAuthenticate())
	assert.Error(t, user.Deactivate())

	user.Activate()
	assert.True(t, user.CanAuthenticate())
}

func TestUser_RecordLogin(t *testing.T) {
	user, err := NewUser("c@example.com", "C", "", RoleCustomer, "Password123")
	require.NoError(t, err)
	assert.Nil(t, user.LastLoginAt)

	user.RecordLogin()
	assert.NotNil(t, user.LastLoginAt)
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"555-123-4567", "+15551234567"},
		{"1 (555) 123 4567", "+15551234567"},
		{"+44 20 7946 0958", "+442079460958"},
		{"", ""},
	}
	for _, tt := range tests {
		got, err := NormalizePhone(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := NormalizePhone("555+1234567")
	assert.Error(t, err)
}

func TestRole(t *testing.T) {
	assert.True(t, RoleAdmin.IsStaff())
	assert.True(t, RoleDriver.IsStaff())
	assert.False(t, RoleCustomer.IsStaff())
	assert.True(t, RoleSales.CanManageCatalog())
	assert.False(t, RoleDriver.CanManageCatalog())
	assert.True(t, RoleDriver.CanOperateDeliveries())
	assert.False(t, RoleSales.CanOperateDeliveries())

	r, ok := ParseRole("sales")
	assert.True(t, ok)
	assert.Equal(t, RoleSales, r)
	_, ok = ParseRole("boss")
	assert.False(t, ok)
}
