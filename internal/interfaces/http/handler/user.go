package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appidentity "github.com/homestead/backend/internal/application/identity"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// UserService is the user management surface used over HTTP
type UserService interface {
	CreateUser(ctx context.Context, input appidentity.CreateUserInput) (*appidentity.CreateUserResult, error)
	GetUser(ctx context.Context, id uuid.UUID) (*appidentity.UserDTO, error)
	ListUsers(ctx context.Context, input appidentity.ListUsersInput) (shared.Paginated[appidentity.UserDTO], error)
	ChangeRole(ctx context.Context, id uuid.UUID, roleName string) (*appidentity.UserDTO, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, fullName, phone string) (*appidentity.UserDTO, error)
	Deactivate(ctx context.Context, id, actor uuid.UUID) error
}

// UserHandler handles user administration and the caller's profile
type UserHandler struct {
	BaseHandler
	users UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{users: users}
}

// CreateUserRequest creates an account; an empty password generates a temporary one
type CreateUserRequest struct {
	Email         string           `json:"email" binding:"required,email,max=320" example:"jordan@example.com"`
	FullName      string           `json:"full_name" binding:"required,max=200" example:"Jordan Reyes"`
	Phone         string           `json:"phone" binding:"omitempty,e164" example:"+15125550123"`
	Role          string           `json:"role" binding:"required,role" example:"customer"`
	Password      string           `json:"password" binding:"omitempty,min=8,max=128"`
	MarkupPercent *decimal.Decimal `json:"markup_percent" binding:"omitempty,gte=0,lte=100" swaggertype:"number" example:"12.5"`
}

// ChangeRoleRequest assigns a new role
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required,role" example:"sales"`
}

// UpdateProfileRequest changes the display fields of a user
type UpdateProfileRequest struct {
	FullName string `json:"full_name" binding:"required,max=200" example:"Jordan Reyes"`
	Phone    string `json:"phone" binding:"omitempty,e164" example:"+15125550123"`
}

// Create godoc
// @ID           createUser
// @Summary      Create a user
// @Description  Admin only. Creates an account, optionally with a markup tier, and emails a welcome message.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body CreateUserRequest true "New user"
// @Success      201 {object} APIResponse[appidentity.CreateUserResult]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /functions/create-user [post]
func (h *UserHandler) Create(c *gin.Context) {
	who, ok := h.requireCaller(c)
	if !ok {
		return
	}
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.users.CreateUser(c.Request.Context(), appidentity.CreateUserInput{
		Email:         req.Email,
		FullName:      req.FullName,
		Phone:         req.Phone,
		Role:          req.Role,
		Password:      req.Password,
		MarkupPercent: req.MarkupPercent,
		CreatedBy:     who.UserID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// List godoc
// @ID           listUsers
// @Summary      List users
// @Tags         users
// @Produce      json
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        search query string false "Name or email"
// @Param        role query string false "Role" Enums(admin, sales, driver, customer)
// @Param        active query bool false "Active filter"
// @Success      200 {object} APIResponse[[]appidentity.UserDTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /users [get]
func (h *UserHandler) List(c *gin.Context) {
	req, ok := h.listRequest(c)
	if !ok {
		return
	}
	active, err := optionalBool(c.Query("active"))
	if err != nil {
		h.BadRequest(c, "Invalid active flag")
		return
	}

	page, err := h.users.ListUsers(c.Request.Context(), appidentity.ListUsersInput{
		Page:     req.Page,
		PageSize: req.PageSize,
		Search:   req.Search,
		Role:     c.Query("role"),
		Active:   active,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondPage(c, page)
}

// Get godoc
// @ID           getUser
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Success      200 {object} APIResponse[appidentity.UserDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	user, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// ChangeRole godoc
// @ID           changeUserRole
// @Summary      Change a user's role
// @Description  The new role is carried by the user's next refreshed token
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Param        request body ChangeRoleRequest true "Role"
// @Success      200 {object} APIResponse[appidentity.UserDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /users/{id}/role [put]
func (h *UserHandler) ChangeRole(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	user, err := h.users.ChangeRole(c.Request.Context(), id, req.Role)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// Deactivate godoc
// @ID           deactivateUser
// @Summary      Deactivate a user
// @Description  Blocks sign-in and revokes every token already issued
// @Tags         users
// @Param        id path string true "User ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /users/{id}/deactivate [post]
func (h *UserHandler) Deactivate(c *gin.Context) {
	who, ok := h.requireCaller(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.users.Deactivate(c.Request.Context(), id, who.UserID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Me godoc
// @ID           getCurrentUser
// @Summary      Get current user
// @Tags         auth
// @Produce      json
// @Success      200 {object} APIResponse[appidentity.UserDTO]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	who, ok := h.requireCaller(c)
	if !ok {
		return
	}
	user, err := h.users.GetUser(c.Request.Context(), who.UserID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// UpdateMe godoc
// @ID           updateCurrentUser
// @Summary      Update own profile
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body UpdateProfileRequest true "Profile"
// @Success      200 {object} APIResponse[appidentity.UserDTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /auth/me [put]
func (h *UserHandler) UpdateMe(c *gin.Context) {
	who, ok := h.requireCaller(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	user, err := h.users.UpdateProfile(c.Request.Context(), who.UserID, req.FullName, req.Phone)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}
