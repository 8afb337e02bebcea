// Package chat runs support conversations between customers and the sales team.
package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/chat"
	"github.com/homestead/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Service manages chat sessions
type Service struct {
	repo     chat.Repository
	realtime shared.RealtimePublisher
	now      func() time.Time
	logger   *zap.Logger
}

// NewService creates a chat service
func NewService(repo chat.Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, now: time.Now, logger: logger}
}

// SetRealtime enables message pushes on chat topics
func (s *Service) SetRealtime(realtime shared.RealtimePublisher) {
	s.realtime = realtime
}

// Start opens a session, or returns the customer's open one
func (s *Service) Start(ctx context.Context, in StartInput, a Actor) (*SessionDTO, error) {
	customerID := a.UserID
	if !a.isCustomer() {
		if !a.isAgent() {
			return nil, shared.ErrForbidden
		}
		if in.CustomerID == nil {
			return nil, shared.NewDomainError("INVALID_CUSTOMER", "customer_id is required")
		}
		customerID = *in.CustomerID
	}

	existing, err := s.repo.FindOpenByCustomer(ctx, customerID)
	if err == nil {
		return toSessionDTO(existing), nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	session, err := chat.NewSession(customerID, in.Subject)
	if err != nil {
		return nil, err
	}
	if a.isAgent() {
		if err := session.Assign(a.UserID); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Save(ctx, session); err != nil {
		return nil, err
	}
	s.logger.Info("Chat session opened",
		zap.String("session_id", session.ID.String()),
		zap.String("customer_id", customerID.String()))
	return toSessionDTO(session), nil
}

// Get returns a session the actor may see
func (s *Service) Get(ctx context.Context, id uuid.UUID, a Actor) (*SessionDTO, error) {
	session, err := s.load(ctx, id, a)
	if err != nil {
		return nil, err
	}
	return toSessionDTO(session), nil
}

// List pages sessions; customers see only their own
func (s *Service) List(ctx context.Context, in ListInput, a Actor) (shared.Paginated[SessionDTO], error) {
	f := in.filter(a)
	rows, total, err := s.repo.FindAll(ctx, f)
	if err != nil {
		return shared.Paginated[SessionDTO]{}, err
	}
	items := make([]SessionDTO, len(rows))
	for i, session := range rows {
		items[i] = *toSessionDTO(session)
	}
	return shared.NewPaginated(items, total, f.Page, f.PageSize), nil
}

// Assign hands the session to a staff member
func (s *Service) Assign(ctx context.Context, id uuid.UUID, in AssignInput, a Actor) (*SessionDTO, error) {
	if !a.isAgent() {
		return nil, shared.ErrForbidden
	}
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	staffID := a.UserID
	if in.StaffID != nil {
		staffID = *in.StaffID
	}
	if err := session.Assign(staffID); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, session); err != nil {
		return nil, err
	}
	s.push(ctx, session.ID, "chat.assigned", toSessionDTO(session))
	s.logger.Info("Chat session assigned",
		zap.String("session_id", session.ID.String()),
		zap.String("staff_id", staffID.String()))
	return toSessionDTO(session), nil
}

// PostMessage adds a message. The first agent to answer an unassigned session takes it.
func (s *Service) PostMessage(ctx context.Context, id uuid.UUID, in PostInput, a Actor) (*MessageDTO, error) {
	session, err := s.load(ctx, id, a)
	if err != nil {
		return nil, err
	}
	if a.isAgent() && session.AssignedStaffID == nil {
		if err := session.Assign(a.UserID); err != nil {
			return nil, err
		}
	}
	msg, err := session.Post(a.UserID, in.Body, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.AddMessage(ctx, session, msg); err != nil {
		return nil, err
	}
	dto := toMessageDTO(msg)
	s.push(ctx, session.ID, "chat.message", dto)
	return &dto, nil
}

// ListMessages pages a session's messages, oldest first
func (s *Service) ListMessages(ctx context.Context, id uuid.UUID, in PageInput, a Actor) (shared.Paginated[MessageDTO], error) {
	if _, err := s.load(ctx, id, a); err != nil {
		return shared.Paginated[MessageDTO]{}, err
	}
	f := in.filter()
	rows, total, err := s.repo.ListMessages(ctx, id, f)
	if err != nil {
		return shared.Paginated[MessageDTO]{}, err
	}
	items := make([]MessageDTO, len(rows))
	for i, m := range rows {
		items[i] = toMessageDTO(m)
	}
	return shared.NewPaginated(items, total, f.Page, f.PageSize), nil
}

// Close ends the conversation
func (s *Service) Close(ctx context.Context, id uuid.UUID, a Actor) (*SessionDTO, error) {
	session, err := s.load(ctx, id, a)
	if err != nil {
		return nil, err
	}
	if err := session.Close(s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, session); err != nil {
		return nil, err
	}
	s.push(ctx, session.ID, "chat.closed", toSessionDTO(session))
	s.logger.Info("Chat session closed",
		zap.String("session_id", session.ID.String()),
		zap.String("closed_by", a.UserID.String()))
	return toSessionDTO(session), nil
}

// CanWatch reports whether the actor may subscribe to the session's topic
func (s *Service) CanWatch(ctx context.Context, id uuid.UUID, a Actor) bool {
	_, err := s.load(ctx, id, a)
	return err == nil
}

// load returns the session when the actor is a participant or an agent
func (s *Service) load(ctx context.Context, id uuid.UUID, a Actor) (*chat.Session, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.isAgent() || session.IsParticipant(a.UserID) {
		return session, nil
	}
	return nil, shared.ErrNotFound
}

func (s *Service) push(ctx context.Context, sessionID uuid.UUID, event string, payload any) {
	if s.realtime == nil {
		return
	}
	if err := s.realtime.Publish(ctx, shared.ChatTopic(sessionID.String()), event, payload); err != nil {
		s.logger.Warn("Failed to push chat event",
			zap.String("session_id", sessionID.String()),
			zap.String("event", event),
			zap.Error(err))
	}
}
