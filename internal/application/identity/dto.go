package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/identity"
	"github.com/shopspring/decimal"
)

// LoginInput contains the input for user login
type LoginInput struct {
	Email    string
	Password string
	ClientID string // X-Client-ID of the browser or app install; optional
}

// AuthResult is returned by login and refresh
type AuthResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
	User                  UserDTO
}

// RefreshInput contains the input for token refresh
type RefreshInput struct {
	RefreshToken string
	ClientID     string
}

// LogoutInput identifies what to revoke
type LogoutInput struct {
	AccessTokenJTI string
	AccessTokenTTL time.Duration
	RefreshToken   string
	ClientID       string
}

// UserDTO is the outward view of a user
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	Phone       string     `json:"phone,omitempty"`
	Role        string     `json:"role"`
	Active      bool       `json:"active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ToUserDTO converts a domain user
func ToUserDTO(u *identity.User) UserDTO {
	return UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		Phone:       u.Phone,
		Role:        u.Role.String(),
		Active:      u.Active,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// CreateUserInput is the create-user function payload
type CreateUserInput struct {
	Email         string
	FullName      string
	Phone         string
	Role          string
	Password      string           // empty generates a temporary password
	MarkupPercent *decimal.Decimal // optional markup tier for the new user
	CreatedBy     uuid.UUID
}

// CreateUserResult carries the generated password once, when one was generated
type CreateUserResult struct {
	User              UserDTO `json:"user"`
	TemporaryPassword string  `json:"temporary_password,omitempty"`
}

// ListUsersInput filters the user directory
type ListUsersInput struct {
	Page     int
	PageSize int
	Search   string
	Role     string
	Active   *bool
}
