package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/homestead/backend/internal/application/chat"
	"github.com/homestead/backend/internal/application/delivery"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/homestead/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

const maxTopicsPerSocket = 20

// SocketServer upgrades a request and streams the given topics
type SocketServer interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string, topics []string) error
}

// DeliveryWatch decides who may follow a delivery
type DeliveryWatch interface {
	CanWatch(ctx context.Context, id uuid.UUID, a delivery.Actor) bool
}

// ChatWatch decides who may follow a chat session
type ChatWatch interface {
	CanWatch(ctx context.Context, id uuid.UUID, a chat.Actor) bool
}

// RealtimeHandler authorizes topic subscriptions and hands the socket to the hub
type RealtimeHandler struct {
	BaseHandler
	hub        SocketServer
	deliveries DeliveryWatch
	chats      ChatWatch
	logger     *zap.Logger
}

// NewRealtimeHandler creates a new RealtimeHandler
func NewRealtimeHandler(hub SocketServer, deliveries DeliveryWatch, chats ChatWatch, logger *zap.Logger) *RealtimeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RealtimeHandler{hub: hub, deliveries: deliveries, chats: chats, logger: logger}
}

// Connect godoc
// @ID           realtimeConnect
// @Summary      Open a WebSocket for live updates
// @Description  topics is a comma separated list of notifications, delivery:<id>, session:<client_id> and chat:<id>. Every topic must be readable by the caller. Browsers pass the access token in the access_token query parameter.
// @Tags         realtime
// @Param        topics query string true "Topics" example(delivery:7b0c1d9e-5a7f-4f7e-9f0a-2c1b9e8d1a33)
// @Param        access_token query string false "Access token"
// @Success      101
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /realtime [get]
func (h *RealtimeHandler) Connect(c *gin.Context) {
	who, ok := h.requireCaller(c)
	if !ok {
		return
	}
	topics := splitTopics(c.Query("topics"))
	if len(topics) == 0 {
		h.BadRequest(c, "topics is required")
		return
	}
	if len(topics) > maxTopicsPerSocket {
		h.BadRequest(c, "too many topics")
		return
	}
	clientID := middleware.GetJWTClientID(c)
	for _, topic := range topics {
		allowed, known := h.authorize(c.Request.Context(), who, clientID, topic)
		if !known {
			h.BadRequest(c, "unknown topic: "+topic)
			return
		}
		if !allowed {
			h.Forbidden(c, "not allowed to follow "+topic)
			return
		}
	}
	if err := h.hub.Serve(c.Writer, c.Request, who.UserID.String(), topics); err != nil {
		// the upgrader has already answered the request
		h.logger.Debug("Realtime connection ended", zap.Error(err), zap.String("user_id", who.UserID.String()))
	}
}

// authorize checks one topic; known is false for topics no one can follow
func (h *RealtimeHandler) authorize(ctx context.Context, who caller, clientID, topic string) (allowed, known bool) {
	if topic == shared.TopicNotifications {
		return who.Role.CanManageSales(), true
	}
	kind, ref, found := strings.Cut(topic, ":")
	if !found || ref == "" {
		return false, false
	}
	switch kind {
	case "session":
		return clientID != "" && shared.SessionTopic(clientID) == topic, true
	case "delivery":
		id, err := uuid.Parse(ref)
		if err != nil || h.deliveries == nil {
			return false, err == nil
		}
		return h.deliveries.CanWatch(ctx, id, delivery.Actor{UserID: who.UserID, Role: who.Role}), true
	case "chat":
		id, err := uuid.Parse(ref)
		if err != nil || h.chats == nil {
			return false, err == nil
		}
		return h.chats.CanWatch(ctx, id, chat.Actor{UserID: who.UserID, Role: who.Role}), true
	}
	return false, false
}

// splitTopics trims, drops empties and dedupes a comma separated list
func splitTopics(raw string) []string {
	seen := make(map[string]struct{})
	var topics []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		topics = append(topics, t)
	}
	return topics
}
