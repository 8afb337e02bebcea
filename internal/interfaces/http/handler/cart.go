package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/homestead/backend/internal/application/sales"
)

// CartService is the cart surface used over HTTP
type CartService interface {
	GetCart(ctx context.Context, customerID uuid.UUID) (*sales.CartView, error)
	AddItem(ctx context.Context, customerID uuid.UUID, in sales.AddItemInput) (*sales.CartView, error)
	UpdateQuantity(ctx context.Context, customerID, refID uuid.UUID, qty int) (*sales.CartView, error)
	RemoveItem(ctx context.Context, customerID, refID uuid.UUID) (*sales.CartView, error)
	Clear(ctx context.Context, customerID uuid.UUID) (*sales.CartView, error)
	SetDeliveryAddress(ctx context.Context, customerID uuid.UUID, address string) (*sales.CartView, error)
	Checkout(ctx context.Context, customerID uuid.UUID, in sales.CheckoutInput) (*sales.TransactionDTO, error)
}

// CartHandler serves the caller's cart at /cart and, for staff, any
// customer's cart at /customers/{customer_id}/cart.
type CartHandler struct {
	BaseHandler
	carts CartService
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(carts CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

// UpdateQuantityRequest sets a line quantity
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1,max=99" example:"2"`
}

// DeliveryAddressRequest sets where the home goes
type DeliveryAddressRequest struct {
	Address string `json:"address" binding:"max=500" example:"1200 Ranch Rd 12, Wimberley, TX 78676"`
}

// customerID resolves whose cart the request addresses
func (h *CartHandler) customerID(c *gin.Context) (uuid.UUID, bool) {
	if c.Param("customer_id") != "" {
		return h.pathUUID(c, "customer_id")
	}
	who, ok := h.requireCaller(c)
	if !ok {
		return uuid.Nil, false
	}
	return who.UserID, true
}

func (h *CartHandler) respond(c *gin.Context, view *sales.CartView, err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Get godoc
// @ID           getCart
// @Summary      Get the cart
// @Description  Priced with the customer's markup. Lines whose catalog entry was deactivated are flagged unavailable.
// @Tags         cart
// @Produce      json
// @Success      200 {object} APIResponse[sales.CartView]
// @Security     BearerAuth
// @Router       /cart [get]
func (h *CartHandler) Get(c *gin.Context) {
	customerID, ok := h.customerID(c)
	if !ok {
		return
	}
	view, err := h.carts.GetCart(c.Request.Context(), customerID)
	h.respond(c, view, err)
}

// AddItem godoc
// @ID           addCartItem
// @Summary      Add a home, option or service
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        request body sales.AddItemInput true "Item"
// @Success      200 {object} APIResponse[sales.CartView]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cart/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	customerID, ok := h.customerID(c)
	if !ok {
		return
	}
	var in sales.AddItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	view, err := h.carts.AddItem(c.Request.Context(), customerID, in)
	h.respond(c, view, err)
}

// UpdateQuantity godoc
// @ID           updateCartItem
// @Summary      Change a line quantity
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        ref_id path string true "Catalog entry ID" format(uuid)
// @Param        request body UpdateQuantityRequest true "Quantity"
// @Success      200 {object} APIResponse[sales.CartView]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cart/items/{ref_id} [put]
func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	customerID, ok := h.customerID(c)
	if !ok {
		return
	}
	refID, ok := h.pathUUID(c, "ref_id")
	if !ok {
		return
	}
	var req UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	view, err := h.carts.UpdateQuantity(c.Request.Context(), customerID, refID, req.Quantity)
	h.respond(c, view, err)
}

// RemoveItem godoc
// @ID           removeCartItem
// @Summary      Remove a line
// @Description  Removing the home also removes its options
// @Tags         cart
// @Produce      json
// @Param        ref_id path string true "Catalog entry ID" format(uuid)
// @Success      200 {object} APIResponse[sales.CartView]
// @Security     BearerAuth
// @Router       /cart/items/{ref_id} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	customerID, ok := h.customerID(c)
	if !ok {
		return
	}
	refID, ok := h.pathUUID(c, "ref_id")
	if !ok {
		return
	}
	view, err := h.carts.RemoveItem(c.Request.Context(), customerID, refID)
	h.respond(c, view, err)
}

// Clear godoc
// @ID           clearCart
// @Summary      Empty the cart
// @Tags         cart
// @Produce      json
// @Success      200 {object} APIResponse[sales.CartView]
// @Security     BearerAuth
// @Router       /cart [delete]
func (h *CartHandler) Clear(c *gin.Context) {
	customerID, ok := h.customerID(c)
	if !ok {
		return
	}
	view, err := h.carts.Clear(c.Request.Context(), customerID)
	h.respond(c, view, err)
}

// SetDeliveryAddress godoc
// @ID           setCartAddress
// @Summary      Set the delivery address
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        request body DeliveryAddressRequest true "Address"
// @Success      200 {object} APIResponse[sales.CartView]
// @Security     BearerAuth
// @Router       /cart/address [put]
func (h *CartHandler) SetDeliveryAddress(c *gin.Context) {
	customerID, ok := h.customerID(c)
	if !ok {
		return
	}
	var req DeliveryAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	view, err := h.carts.SetDeliveryAddress(c.Request.Context(), customerID, req.Address)
	h.respond(c, view, err)
}

// Checkout godoc
// @ID           checkoutCart
// @Summary      Turn the cart into a draft estimate
// @Description  Requires a home. With a delivery address a shipping quote becomes the delivery fee; a failed quote leaves it zero and is noted on the estimate.
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        request body sales.CheckoutInput false "Checkout"
// @Success      201 {object} APIResponse[sales.TransactionDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cart/checkout [post]
func (h *CartHandler) Checkout(c *gin.Context) {
	customerID, ok := h.customerID(c)
	if !ok {
		return
	}
	var in sales.CheckoutInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			h.BindError(c, err)
			return
		}
	}
	t, err := h.carts.Checkout(c.Request.Context(), customerID, in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, t)
}
