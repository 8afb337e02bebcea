package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/homestead/backend/internal/application/chat"
	"github.com/homestead/backend/internal/domain/shared"
)

// ChatService is the support chat surface
type ChatService interface {
	Start(ctx context.Context, in chat.StartInput, a chat.Actor) (*chat.SessionDTO, error)
	Get(ctx context.Context, id uuid.UUID, a chat.Actor) (*chat.SessionDTO, error)
	List(ctx context.Context, in chat.ListInput, a chat.Actor) (shared.Paginated[chat.SessionDTO], error)
	Assign(ctx context.Context, id uuid.UUID, in chat.AssignInput, a chat.Actor) (*chat.SessionDTO, error)
	PostMessage(ctx context.Context, id uuid.UUID, in chat.PostInput, a chat.Actor) (*chat.MessageDTO, error)
	ListMessages(ctx context.Context, id uuid.UUID, in chat.PageInput, a chat.Actor) (shared.Paginated[chat.MessageDTO], error)
	Close(ctx context.Context, id uuid.UUID, a chat.Actor) (*chat.SessionDTO, error)
	CanWatch(ctx context.Context, id uuid.UUID, a chat.Actor) bool
}

// ChatHandler handles chat sessions and their messages
type ChatHandler struct {
	BaseHandler
	chats ChatService
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(chats ChatService) *ChatHandler {
	return &ChatHandler{chats: chats}
}

func (h *ChatHandler) actor(c *gin.Context) (chat.Actor, bool) {
	who, ok := h.requireCaller(c)
	return chat.Actor{UserID: who.UserID, Role: who.Role}, ok
}

// session resolves the caller and :id
func (h *ChatHandler) session(c *gin.Context) (uuid.UUID, chat.Actor, bool) {
	a, ok := h.actor(c)
	if !ok {
		return uuid.Nil, a, false
	}
	id, ok := h.pathUUID(c, "id")
	return id, a, ok
}

func (h *ChatHandler) respond(c *gin.Context, s *chat.SessionDTO, err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, s)
}

// Start godoc
// @ID           startChat
// @Summary      Open a chat session
// @Description  Customers open their own; staff must name the customer
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        request body chat.StartInput false "Session"
// @Success      201 {object} APIResponse[chat.SessionDTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /chat/sessions [post]
func (h *ChatHandler) Start(c *gin.Context) {
	a, ok := h.actor(c)
	if !ok {
		return
	}
	var in chat.StartInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			h.BindError(c, err)
			return
		}
	}
	s, err := h.chats.Start(c.Request.Context(), in, a)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, s)
}

// List godoc
// @ID           listChats
// @Summary      List chat sessions
// @Tags         chat
// @Produce      json
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        status query string false "Status" Enums(open, closed)
// @Param        customer_id query string false "Customer" format(uuid)
// @Param        staff_id query string false "Assigned staff" format(uuid)
// @Success      200 {object} APIResponse[[]chat.SessionDTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /chat/sessions [get]
func (h *ChatHandler) List(c *gin.Context) {
	a, ok := h.actor(c)
	if !ok {
		return
	}
	req, ok := h.listRequest(c)
	if !ok {
		return
	}
	in := chat.ListInput{Page: req.Page, PageSize: req.PageSize, Status: c.Query("status")}
	if in.Status != "" && in.Status != "open" && in.Status != "closed" {
		h.BadRequest(c, "status must be open or closed")
		return
	}
	if !h.optionalUUIDs(c, map[string]**uuid.UUID{
		"customer_id": &in.CustomerID,
		"staff_id":    &in.StaffID,
	}) {
		return
	}
	page, err := h.chats.List(c.Request.Context(), in, a)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondPage(c, page)
}

// Get godoc
// @ID           getChat
// @Summary      Get a chat session
// @Tags         chat
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Success      200 {object} APIResponse[chat.SessionDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /chat/sessions/{id} [get]
func (h *ChatHandler) Get(c *gin.Context) {
	id, a, ok := h.session(c)
	if !ok {
		return
	}
	s, err := h.chats.Get(c.Request.Context(), id, a)
	h.respond(c, s, err)
}

// Assign godoc
// @ID           assignChat
// @Summary      Assign a chat session
// @Description  Without staff_id the caller takes the session
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Param        request body chat.AssignInput false "Assignee"
// @Success      200 {object} APIResponse[chat.SessionDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /chat/sessions/{id}/assign [post]
func (h *ChatHandler) Assign(c *gin.Context) {
	id, a, ok := h.session(c)
	if !ok {
		return
	}
	var in chat.AssignInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			h.BindError(c, err)
			return
		}
	}
	s, err := h.chats.Assign(c.Request.Context(), id, in, a)
	h.respond(c, s, err)
}

// PostMessage godoc
// @ID           postChatMessage
// @Summary      Send a message
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Param        request body chat.PostInput true "Message"
// @Success      201 {object} APIResponse[chat.MessageDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /chat/sessions/{id}/messages [post]
func (h *ChatHandler) PostMessage(c *gin.Context) {
	id, a, ok := h.session(c)
	if !ok {
		return
	}
	var in chat.PostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	m, err := h.chats.PostMessage(c.Request.Context(), id, in, a)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, m)
}

// ListMessages godoc
// @ID           listChatMessages
// @Summary      Page through a session's messages
// @Tags         chat
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(50)
// @Success      200 {object} APIResponse[[]chat.MessageDTO]
// @Security     BearerAuth
// @Router       /chat/sessions/{id}/messages [get]
func (h *ChatHandler) ListMessages(c *gin.Context) {
	id, a, ok := h.session(c)
	if !ok {
		return
	}
	var in chat.PageInput
	if err := c.ShouldBindQuery(&in); err != nil {
		h.BindError(c, err)
		return
	}
	page, err := h.chats.ListMessages(c.Request.Context(), id, in, a)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondPage(c, page)
}

// Close godoc
// @ID           closeChat
// @Summary      Close a chat session
// @Tags         chat
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Success      200 {object} APIResponse[chat.SessionDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /chat/sessions/{id}/close [post]
func (h *ChatHandler) Close(c *gin.Context) {
	id, a, ok := h.session(c)
	if !ok {
		return
	}
	s, err := h.chats.Close(c.Request.Context(), id, a)
	h.respond(c, s, err)
}
