package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appcatalog "github.com/homestead/backend/internal/application/catalog"
	"github.com/homestead/backend/internal/domain/shared"
)

// CatalogService is the catalog surface used over HTTP
type CatalogService interface {
	CreateHome(ctx context.Context, in appcatalog.HomeInput) (*appcatalog.HomeDTO, error)
	UpdateHome(ctx context.Context, id uuid.UUID, in appcatalog.HomeInput) (*appcatalog.HomeDTO, error)
	GetHome(ctx context.Context, id uuid.UUID, v appcatalog.Viewer) (*appcatalog.HomeDTO, error)
	ListHomes(ctx context.Context, in appcatalog.ListInput, v appcatalog.Viewer) (shared.Paginated[appcatalog.HomeDTO], error)
	SetHomeActive(ctx context.Context, id uuid.UUID, active bool) error
	DeleteHome(ctx context.Context, id uuid.UUID) (appcatalog.RemoveResult, error)

	CreateOption(ctx context.Context, in appcatalog.OfferingInput) (*appcatalog.OfferingDTO, error)
	UpdateOption(ctx context.Context, id uuid.UUID, in appcatalog.OfferingInput) (*appcatalog.OfferingDTO, error)
	GetOption(ctx context.Context, id uuid.UUID, v appcatalog.Viewer) (*appcatalog.OfferingDTO, error)
	ListOptions(ctx context.Context, in appcatalog.ListInput, homeID *uuid.UUID, v appcatalog.Viewer) (shared.Paginated[appcatalog.OfferingDTO], error)
	SetOptionActive(ctx context.Context, id uuid.UUID, active bool) error
	DeleteOption(ctx context.Context, id uuid.UUID) (appcatalog.RemoveResult, error)

	CreateServiceOffering(ctx context.Context, in appcatalog.OfferingInput) (*appcatalog.OfferingDTO, error)
	UpdateServiceOffering(ctx context.Context, id uuid.UUID, in appcatalog.OfferingInput) (*appcatalog.OfferingDTO, error)
	GetServiceOffering(ctx context.Context, id uuid.UUID, v appcatalog.Viewer) (*appcatalog.OfferingDTO, error)
	ListServiceOfferings(ctx context.Context, in appcatalog.ListInput, v appcatalog.Viewer) (shared.Paginated[appcatalog.OfferingDTO], error)
	SetServiceOfferingActive(ctx context.Context, id uuid.UUID, active bool) error
	DeleteServiceOffering(ctx context.Context, id uuid.UUID) (appcatalog.RemoveResult, error)

	CreateFactory(ctx context.Context, in appcatalog.FactoryInput) (*appcatalog.FactoryDTO, error)
	UpdateFactory(ctx context.Context, id uuid.UUID, in appcatalog.FactoryInput) (*appcatalog.FactoryDTO, error)
	GetFactory(ctx context.Context, id uuid.UUID) (*appcatalog.FactoryDTO, error)
	ListFactories(ctx context.Context, in appcatalog.ListInput) (shared.Paginated[appcatalog.FactoryDTO], error)
	SetFactoryActive(ctx context.Context, id uuid.UUID, active bool) error
	DeleteFactory(ctx context.Context, id uuid.UUID) (appcatalog.RemoveResult, error)
}

// CatalogHandler serves homes, options, services and factories.
// Reads work anonymously; prices then carry the default markup.
type CatalogHandler struct {
	BaseHandler
	catalog CatalogService
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalog CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// SetActiveRequest toggles a catalog entry
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required" example:"false"`
}

func viewerOf(c *gin.Context) appcatalog.Viewer {
	who, ok := currentCaller(c)
	if !ok {
		return appcatalog.Viewer{}
	}
	return appcatalog.Viewer{UserID: who.UserID, Staff: who.Role.IsStaff()}
}

func (h *CatalogHandler) listInput(c *gin.Context) (appcatalog.ListInput, bool) {
	req, ok := h.listRequest(c)
	if !ok {
		return appcatalog.ListInput{}, false
	}
	active, err := optionalBool(c.Query("active"))
	if err != nil {
		h.BadRequest(c, "Invalid active flag")
		return appcatalog.ListInput{}, false
	}
	return appcatalog.ListInput{
		Page:     req.Page,
		PageSize: req.PageSize,
		Search:   req.Search,
		Active:   active,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
	}, true
}

// setActive binds a SetActiveRequest and applies it to the entry at :id
func (h *CatalogHandler) setActive(c *gin.Context, apply func(context.Context, uuid.UUID, bool) error) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	if err := apply(c.Request.Context(), id, *req.Active); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// remove deletes the entry at :id, or deactivates it when transactions reference it
func (h *CatalogHandler) remove(c *gin.Context, del func(context.Context, uuid.UUID) (appcatalog.RemoveResult, error)) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	res, err := del(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// ListHomes godoc
// @ID           listHomes
// @Summary      List mobile homes
// @Description  Storefront listing. Prices include the caller's markup; customers and anonymous callers only see active homes.
// @Tags         catalog
// @Produce      json
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        search query string false "Model, manufacturer or series"
// @Param        active query bool false "Active filter (staff)"
// @Param        order_by query string false "Sort column"
// @Param        order_dir query string false "asc or desc"
// @Success      200 {object} APIResponse[[]appcatalog.HomeDTO]
// @Router       /catalog/homes [get]
func (h *CatalogHandler) ListHomes(c *gin.Context) {
	in, ok := h.listInput(c)
	if !ok {
		return
	}
	page, err := h.catalog.ListHomes(c.Request.Context(), in, viewerOf(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondPage(c, page)
}

// GetHome godoc
// @ID           getHome
// @Summary      Get a mobile home
// @Tags         catalog
// @Produce      json
// @Param        id path string true "Home ID" format(uuid)
// @Success      200 {object} APIResponse[appcatalog.HomeDTO]
// @Failure      404 {object} ErrorResponse
// @Router       /catalog/homes/{id} [get]
func (h *CatalogHandler) GetHome(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	home, err := h.catalog.GetHome(c.Request.Context(), id, viewerOf(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, home)
}

// CreateHome godoc
// @ID           createHome
// @Summary      Create a mobile home
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        request body appcatalog.HomeInput true "Home"
// @Success      201 {object} APIResponse[appcatalog.HomeDTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/homes [post]
func (h *CatalogHandler) CreateHome(c *gin.Context) {
	var in appcatalog.HomeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	home, err := h.catalog.CreateHome(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, home)
}

// UpdateHome godoc
// @ID           updateHome
// @Summary      Update a mobile home
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        id path string true "Home ID" format(uuid)
// @Param        request body appcatalog.HomeInput true "Home"
// @Success      200 {object} APIResponse[appcatalog.HomeDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/homes/{id} [put]
func (h *CatalogHandler) UpdateHome(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var in appcatalog.HomeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	home, err := h.catalog.UpdateHome(c.Request.Context(), id, in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, home)
}

// SetHomeActive godoc
// @ID           setHomeActive
// @Summary      Activate or deactivate a home
// @Tags         catalog
// @Accept       json
// @Param        id path string true "Home ID" format(uuid)
// @Param        request body SetActiveRequest true "Flag"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/homes/{id}/active [put]
func (h *CatalogHandler) SetHomeActive(c *gin.Context) {
	h.setActive(c, h.catalog.SetHomeActive)
}

// DeleteHome godoc
// @ID           deleteHome
// @Summary      Delete a home
// @Description  Homes referenced by a transaction are deactivated instead
// @Tags         catalog
// @Produce      json
// @Param        id path string true "Home ID" format(uuid)
// @Success      200 {object} APIResponse[appcatalog.RemoveResult]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/homes/{id} [delete]
func (h *CatalogHandler) DeleteHome(c *gin.Context) {
	h.remove(c, h.catalog.DeleteHome)
}

// ListOptions godoc
// @ID           listOptions
// @Summary      List home options
// @Tags         catalog
// @Produce      json
// @Param        home_id query string false "Only options compatible with this home" format(uuid)
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        search query string false "Name"
// @Success      200 {object} APIResponse[[]appcatalog.OfferingDTO]
// @Failure      400 {object} ErrorResponse
// @Router       /catalog/options [get]
func (h *CatalogHandler) ListOptions(c *gin.Context) {
	in, ok := h.listInput(c)
	if !ok {
		return
	}
	homeID, err := optionalUUID(c.Query("home_id"))
	if err != nil {
		h.BadRequest(c, "Invalid home_id format")
		return
	}
	page, err := h.catalog.ListOptions(c.Request.Context(), in, homeID, viewerOf(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondPage(c, page)
}

// GetOption godoc
// @ID           getOption
// @Summary      Get a home option
// @Tags         catalog
// @Produce      json
// @Param        id path string true "Option ID" format(uuid)
// @Success      200 {object} APIResponse[appcatalog.OfferingDTO]
// @Failure      404 {object} ErrorResponse
// @Router       /catalog/options/{id} [get]
func (h *CatalogHandler) GetOption(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	opt, err := h.catalog.GetOption(c.Request.Context(), id, viewerOf(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, opt)
}

// CreateOption godoc
// @ID           createOption
// @Summary      Create a home option
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        request body appcatalog.OfferingInput true "Option"
// @Success      201 {object} APIResponse[appcatalog.OfferingDTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/options [post]
func (h *CatalogHandler) CreateOption(c *gin.Context) {
	var in appcatalog.OfferingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	opt, err := h.catalog.CreateOption(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, opt)
}

// UpdateOption godoc
// @ID           updateOption
// @Summary      Update a home option
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        id path string true "Option ID" format(uuid)
// @Param        request body appcatalog.OfferingInput true "Option"
// @Success      200 {object} APIResponse[appcatalog.OfferingDTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/options/{id} [put]
func (h *CatalogHandler) UpdateOption(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var in appcatalog.OfferingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	opt, err := h.catalog.UpdateOption(c.Request.Context(), id, in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, opt)
}

// SetOptionActive godoc
// @ID           setOptionActive
// @Summary      Activate or deactivate a home option
// @Tags         catalog
// @Accept       json
// @Param        id path string true "Option ID" format(uuid)
// @Param        request body SetActiveRequest true "Flag"
// @Success      204
// @Security     BearerAuth
// @Router       /catalog/options/{id}/active [put]
func (h *CatalogHandler) SetOptionActive(c *gin.Context) {
	h.setActive(c, h.catalog.SetOptionActive)
}

// DeleteOption godoc
// @ID           deleteOption
// @Summary      Delete a home option
// @Tags         catalog
// @Produce      json
// @Param        id path string true "Option ID" format(uuid)
// @Success      200 {object} APIResponse[appcatalog.RemoveResult]
// @Security     BearerAuth
// @Router       /catalog/options/{id} [delete]
func (h *CatalogHandler) DeleteOption(c *gin.Context) {
	h.remove(c, h.catalog.DeleteOption)
}

// ListServices godoc
// @ID           listServices
// @Summary      List services
// @Tags         catalog
// @Produce      json
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        search query string false "Name"
// @Success      200 {object} APIResponse[[]appcatalog.OfferingDTO]
// @Router       /catalog/services [get]
func (h *CatalogHandler) ListServices(c *gin.Context) {
	in, ok := h.listInput(c)
	if !ok {
		return
	}
	page, err := h.catalog.ListServiceOfferings(c.Request.Context(), in, viewerOf(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondPage(c, page)
}

// GetService godoc
// @ID           getService
// @Summary      Get a service
// @Tags         catalog
// @Produce      json
// @Param        id path string true "Service ID" format(uuid)
// @Success      200 {object} APIResponse[appcatalog.OfferingDTO]
// @Failure      404 {object} ErrorResponse
// @Router       /catalog/services/{id} [get]
func (h *CatalogHandler) GetService(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	svc, err := h.catalog.GetServiceOffering(c.Request.Context(), id, viewerOf(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, svc)
}

// CreateService godoc
// @ID           createService
// @Summary      Create a service
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        request body appcatalog.OfferingInput true "Service"
// @Success      201 {object} APIResponse[appcatalog.OfferingDTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/services [post]
func (h *CatalogHandler) CreateService(c *gin.Context) {
	var in appcatalog.OfferingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	svc, err := h.catalog.CreateServiceOffering(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, svc)
}

// UpdateService godoc
// @ID           updateService
// @Summary      Update a service
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        id path string true "Service ID" format(uuid)
// @Param        request body appcatalog.OfferingInput true "Service"
// @Success      200 {object} APIResponse[appcatalog.OfferingDTO]
// @Security     BearerAuth
// @Router       /catalog/services/{id} [put]
func (h *CatalogHandler) UpdateService(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var in appcatalog.OfferingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	svc, err := h.catalog.UpdateServiceOffering(c.Request.Context(), id, in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, svc)
}

// SetServiceActive godoc
// @ID           setServiceActive
// @Summary      Activate or deactivate a service
// @Tags         catalog
// @Accept       json
// @Param        id path string true "Service ID" format(uuid)
// @Param        request body SetActiveRequest true "Flag"
// @Success      204
// @Security     BearerAuth
// @Router       /catalog/services/{id}/active [put]
func (h *CatalogHandler) SetServiceActive(c *gin.Context) {
	h.setActive(c, h.catalog.SetServiceOfferingActive)
}

// DeleteService godoc
// @ID           deleteService
// @Summary      Delete a service
// @Tags         catalog
// @Produce      json
// @Param        id path string true "Service ID" format(uuid)
// @Success      200 {object} APIResponse[appcatalog.RemoveResult]
// @Security     BearerAuth
// @Router       /catalog/services/{id} [delete]
func (h *CatalogHandler) DeleteService(c *gin.Context) {
	h.remove(c, h.catalog.DeleteServiceOffering)
}

// ListFactories godoc
// @ID           listFactories
// @Summary      List factories
// @Tags         factories
// @Produce      json
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        search query string false "Name"
// @Success      200 {object} APIResponse[[]appcatalog.FactoryDTO]
// @Security     BearerAuth
// @Router       /factories [get]
func (h *CatalogHandler) ListFactories(c *gin.Context) {
	in, ok := h.listInput(c)
	if !ok {
		return
	}
	page, err := h.catalog.ListFactories(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondPage(c, page)
}

// GetFactory godoc
// @ID           getFactory
// @Summary      Get a factory
// @Tags         factories
// @Produce      json
// @Param        id path string true "Factory ID" format(uuid)
// @Success      200 {object} APIResponse[appcatalog.FactoryDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /factories/{id} [get]
func (h *CatalogHandler) GetFactory(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	f, err := h.catalog.GetFactory(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, f)
}

// CreateFactory godoc
// @ID           createFactory
// @Summary      Create a factory
// @Tags         factories
// @Accept       json
// @Produce      json
// @Param        request body appcatalog.FactoryInput true "Factory"
// @Success      201 {object} APIResponse[appcatalog.FactoryDTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /factories [post]
func (h *CatalogHandler) CreateFactory(c *gin.Context) {
	var in appcatalog.FactoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	f, err := h.catalog.CreateFactory(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, f)
}

// UpdateFactory godoc
// @ID           updateFactory
// @Summary      Update a factory
// @Tags         factories
// @Accept       json
// @Produce      json
// @Param        id path string true "Factory ID" format(uuid)
// @Param        request body appcatalog.FactoryInput true "Factory"
// @Success      200 {object} APIResponse[appcatalog.FactoryDTO]
// @Security     BearerAuth
// @Router       /factories/{id} [put]
func (h *CatalogHandler) UpdateFactory(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var in appcatalog.FactoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	f, err := h.catalog.UpdateFactory(c.Request.Context(), id, in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, f)
}

// SetFactoryActive godoc
// @ID           setFactoryActive
// @Summary      Activate or deactivate a factory
// @Tags         factories
// @Accept       json
// @Param        id path string true "Factory ID" format(uuid)
// @Param        request body SetActiveRequest true "Flag"
// @Success      204
// @Security     BearerAuth
// @Router       /factories/{id}/active [put]
func (h *CatalogHandler) SetFactoryActive(c *gin.Context) {
	h.setActive(c, h.catalog.SetFactoryActive)
}

// DeleteFactory godoc
// @ID           deleteFactory
// @Summary      Delete a factory
// @Description  Factories still referenced by homes are deactivated instead
// @Tags         factories
// @Produce      json
// @Param        id path string true "Factory ID" format(uuid)
// @Success      200 {object} APIResponse[appcatalog.RemoveResult]
// @Security     BearerAuth
// @Router       /factories/{id} [delete]
func (h *CatalogHandler) DeleteFactory(c *gin.Context) {
	h.remove(c, h.catalog.DeleteFactory)
}
