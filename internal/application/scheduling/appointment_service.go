// Package scheduling books appointments between customers and staff and
// mirrors them into the staff member's Google Calendar.
package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/identity"
	"github.com/homestead/backend/internal/domain/scheduling"
	"github.com/homestead/backend/internal/domain/shared"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrScheduleConflict is returned when the staff member is already booked
var ErrScheduleConflict = shared.NewDomainError("SCHEDULE_CONFLICT", "Staff member already has an appointment in that window")

// UserDirectory resolves participants
type UserDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

// Options tunes reminders
type Options struct {
	ReminderLead time.Duration
}

// Service manages appointments and their calendar mirror
type Service struct {
	repo        scheduling.AppointmentRepository
	connections scheduling.CalendarConnectionRepository
	users       UserDirectory
	opts        Options

	calendar       CalendarClient
	states         StateSigner
	eventPublisher shared.EventPublisher
	refreshes      singleflight.Group
	now            func() time.Time
	logger         *zap.Logger
}

// NewService creates an appointment service
func NewService(
	repo scheduling.AppointmentRepository,
	connections scheduling.CalendarConnectionRepository,
	users UserDirectory,
	opts Options,
	logger *zap.Logger,
) *Service {
	if opts.ReminderLead <= 0 {
		opts.ReminderLead = 24 * time.Hour
	}
	return &Service{
		repo:        repo,
		connections: connections,
		users:       users,
		opts:        opts,
		now:         time.Now,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetCalendar enables Google Calendar sync. states signs the OAuth round trip.
func (s *Service) SetCalendar(calendar CalendarClient, states StateSigner) {
	s.calendar = calendar
	s.states = states
}

// Create books an appointment and mirrors it to the staff calendar
func (s *Service) Create(ctx context.Context, in CreateInput, a Actor) (*DTO, error) {
	staffID := a.UserID
	if in.StaffID != nil {
		staffID = *in.StaffID
	}
	customer, err := s.users.FindByID(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer.Role != identity.RoleCustomer {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Appointments are booked for customers")
	}
	staff, err := s.users.FindByID(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if !staff.Role.IsStaff() || !staff.Active {
		return nil, shared.NewDomainError("INVALID_STAFF", "Appointments need an active staff member")
	}

	appt, err := scheduling.NewAppointment(customer.ID, staff.ID, scheduling.AppointmentType(in.Type), in.StartsAt, in.EndsAt, in.Location, in.Notes)
	if err != nil {
		return nil, err
	}
	if err := s.checkOverlap(ctx, appt.StaffID, appt.StartsAt, appt.EndsAt, uuid.Nil); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, appt); err != nil {
		return nil, err
	}
	s.publish(ctx, appt)
	s.logger.Info("Appointment scheduled",
		zap.String("appointment_id", appt.ID.String()),
		zap.String("staff_id", appt.StaffID.String()),
		zap.String("type", string(appt.Type)),
		zap.Time("starts_at", appt.StartsAt))

	s.syncQuietly(ctx, appt)
	return toDTO(appt), nil
}

// Get returns an appointment the actor may see
func (s *Service) Get(ctx context.Context, id uuid.UUID, a Actor) (*DTO, error) {
	appt, err := s.load(ctx, id, a)
	if err != nil {
		return nil, err
	}
	return toDTO(appt), nil
}

// List pages appointments; customers see only their own
func (s *Service) List(ctx context.Context, in ListInput, a Actor) (shared.Paginated[DTO], error) {
	f, err := in.filter(a)
	if err != nil {
		return shared.Paginated[DTO]{}, err
	}
	rows, total, err := s.repo.FindAll(ctx, f)
	if err != nil {
		return shared.Paginated[DTO]{}, err
	}
	items := make([]DTO, len(rows))
	for i, appt := range rows {
		items[i] = *toDTO(appt)
	}
	return shared.NewPaginated(items, total, f.Page, f.PageSize), nil
}

// Reschedule moves an open appointment to a free window
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, in RescheduleInput) (*DTO, error) {
	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkOverlap(ctx, appt.StaffID, in.StartsAt, in.EndsAt, appt.ID); err != nil {
		return nil, err
	}
	if err := appt.Reschedule(in.StartsAt, in.EndsAt); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, appt); err != nil {
		return nil, err
	}
	s.publish(ctx, appt)
	s.logger.Info("Appointment rescheduled",
		zap.String("appointment_id", appt.ID.String()),
		zap.Time("starts_at", appt.StartsAt))

	s.syncQuietly(ctx, appt)
	return toDTO(appt), nil
}

// Confirm records the customer's confirmation
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, a Actor) (*DTO, error) {
	appt, err := s.load(ctx, id, a)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, appt, appt.Confirm)
}

// Complete marks the meeting as held
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*DTO, error) {
	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, appt, appt.Complete)
}

// MarkNoShow records that the customer did not attend
func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*DTO, error) {
	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, appt, appt.MarkNoShow)
}

// Cancel cancels the meeting and removes the calendar event
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, a Actor) (*DTO, error) {
	appt, err := s.load(ctx, id, a)
	if err != nil {
		return nil, err
	}
	if _, err := s.transition(ctx, appt, appt.Cancel); err != nil {
		return nil, err
	}
	s.syncQuietly(ctx, appt)
	return toDTO(appt), nil
}

func (s *Service) transition(ctx context.Context, appt *scheduling.Appointment, fn func() error) (*DTO, error) {
	from := appt.Status
	if err := fn(); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, appt); err != nil {
		return nil, err
	}
	s.publish(ctx, appt)
	s.logger.Info("Appointment status changed",
		zap.String("appointment_id", appt.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(appt.Status)))
	return toDTO(appt), nil
}

// SendReminders raises the reminder event for appointments starting within
// the reminder lead and stamps them so each reminder goes out once.
func (s *Service) SendReminders(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.repo.FindNeedingReminder(ctx, now, now.Add(s.opts.ReminderLead))
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, appt := range due {
		if !appt.NeedsReminder(now, now.Add(s.opts.ReminderLead)) {
			continue
		}
		appt.MarkReminderSent(now)
		if err := s.repo.Save(ctx, appt); err != nil {
			s.logger.Error("Failed to stamp appointment reminder",
				zap.String("appointment_id", appt.ID.String()),
				zap.Error(err))
			appt.ClearDomainEvents()
			continue
		}
		s.publish(ctx, appt)
		sent++
	}
	if sent > 0 {
		s.logger.Info("Appointment reminders queued", zap.Int("count", sent))
	}
	return sent, nil
}

func (s *Service) checkOverlap(ctx context.Context, staffID uuid.UUID, start, end time.Time, exclude uuid.UUID) error {
	clashes, err := s.repo.FindOverlapping(ctx, staffID, start, end, exclude)
	if err != nil {
		return err
	}
	if len(clashes) > 0 {
		return ErrScheduleConflict
	}
	return nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID, a Actor) (*scheduling.Appointment, error) {
	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case a.isCustomer() && appt.CustomerID != a.UserID:
		return nil, shared.ErrNotFound
	case a.isDriver() && appt.StaffID != a.UserID:
		return nil, shared.ErrNotFound
	}
	return appt, nil
}

func (s *Service) publish(ctx context.Context, appt *scheduling.Appointment) {
	events := appt.GetDomainEvents()
	appt.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish appointment events",
			zap.String("appointment_id", appt.ID.String()),
			zap.Error(err))
	}
}
