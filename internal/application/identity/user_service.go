package identity

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/identity"
	"github.com/homestead/backend/internal/domain/pricing"
	"github.com/homestead/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const (
	tempPasswordLength   = 14
	tempPasswordAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// TokenRevoker invalidates every token of a user
type TokenRevoker interface {
	RevokeUser(ctx context.Context, userID uuid.UUID) error
}

// UserService handles user management operations
type UserService struct {
	users   identity.UserRepository
	revoker TokenRevoker
	events  shared.EventPublisher
	logger  *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(
	users identity.UserRepository,
	revoker TokenRevoker,
	events shared.EventPublisher,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		users:   users,
		revoker: revoker,
		events:  events,
		logger:  logger,
	}
}

// CreateUser creates an account on behalf of an admin. The welcome email is
// sent by the user.created handler; its failure never fails creation.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*CreateUserResult, error) {
	role, ok := identity.ParseRole(strings.TrimSpace(input.Role))
	if !ok {
		return nil, shared.NewDomainError("INVALID_ROLE", "Unknown role: "+input.Role)
	}
	if input.MarkupPercent != nil {
		if err := pricing.ValidatePercentage(*input.MarkupPercent); err != nil {
			return nil, err
		}
	}
	exists, err := s.users.ExistsByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "A user with this email already exists")
	}

	password := input.Password
	generated := ""
	if password == "" {
		if generated, err = GenerateTemporaryPassword(); err != nil {
			return nil, err
		}
		password = generated
	}

	user, err := identity.NewUser(input.Email, input.FullName, input.Phone, role, password)
	if err != nil {
		return nil, err
	}
	if input.MarkupPercent == nil {
		err = s.users.Save(ctx, user)
	} else {
		by := input.CreatedBy
		tier, terr := pricing.NewMarkupTier(user.ID, *input.MarkupPercent, "", &by)
		if terr != nil {
			return nil, terr
		}
		err = s.users.SaveWithMarkup(ctx, user, tier)
	}
	if err != nil {
		return nil, err
	}

	s.publish(ctx, user)
	s.logger.Info("User created",
		zap.String("user_id", user.ID.String()),
		zap.String("role", role.String()),
		zap.String("created_by", input.CreatedBy.String()))

	return &CreateUserResult{User: ToUserDTO(user), TemporaryPassword: generated}, nil
}

// GetUser returns one user
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := ToUserDTO(user)
	return &dto, nil
}

// ListUsers pages through users, searching name and email
func (s *UserService) ListUsers(ctx context.Context, input ListUsersInput) (shared.Paginated[UserDTO], error) {
	filter := identity.UserFilter{Filter: shared.DefaultFilter(), Active: input.Active}
	if input.Page > 0 {
		filter.Page = input.Page
	}
	if input.PageSize > 0 && input.PageSize <= 100 {
		filter.PageSize = input.PageSize
	}
	filter.Search = strings.TrimSpace(input.Search)
	if input.Role != "" {
		role, ok := identity.ParseRole(input.Role)
		if !ok {
			return shared.Paginated[UserDTO]{}, shared.NewDomainError("INVALID_ROLE", "Unknown role: "+input.Role)
		}
		filter.Role = &role
	}

	users, total, err := s.users.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[UserDTO]{}, err
	}
	items := make([]UserDTO, len(users))
	for i, u := range users {
		items[i] = ToUserDTO(u)
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// ChangeRole assigns a new role; it takes effect on the user's next refresh
func (s *UserService) ChangeRole(ctx context.Context, id uuid.UUID, roleName string) (*UserDTO, error) {
	role, ok := identity.ParseRole(roleName)
	if !ok {
		return nil, shared.NewDomainError("INVALID_ROLE", "Unknown role: "+roleName)
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := user.ChangeRole(role); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	s.publish(ctx, user)
	dto := ToUserDTO(user)
	return &dto, nil
}

// UpdateProfile changes a user's name and phone
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, fullName, phone string) (*UserDTO, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := user.UpdateProfile(fullName, phone); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	dto := ToUserDTO(user)
	return &dto, nil
}

// Deactivate blocks sign-in and revokes every outstanding token
func (s *UserService) Deactivate(ctx context.Context, id, actor uuid.UUID) error {
	if id == actor {
		return shared.NewDomainError("CANNOT_DEACTIVATE_SELF", "You cannot deactivate your own account")
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := user.Deactivate(); err != nil {
		return err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}
	if s.revoker != nil {
		if err := s.revoker.RevokeUser(ctx, id); err != nil {
			s.logger.Error("Failed to revoke tokens of deactivated user", zap.String("user_id", id.String()), zap.Error(err))
		}
	}
	s.publish(ctx, user)
	return nil
}

func (s *UserService) publish(ctx context.Context, user *identity.User) {
	events := user.GetDomainEvents()
	user.ClearDomainEvents()
	if s.events == nil || len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish user events", zap.Error(err))
	}
}

// GenerateTemporaryPassword returns a random password that satisfies the
// password rules
func GenerateTemporaryPassword() (string, error) {
	max := big.NewInt(int64(len(tempPasswordAlphabet)))
	for {
		b := make([]byte, tempPasswordLength)
		for i := range b {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				return "", err
			}
			b[i] = tempPasswordAlphabet[n.Int64()]
		}
		var letter, digit bool
		for _, r := range string(b) {
			letter = letter || unicode.IsLetter(r)
			digit = digit || unicode.IsDigit(r)
		}
		if letter && digit {
			return string(b), nil
		}
	}
}
