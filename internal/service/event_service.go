package service

import (
	"context"
	"fmt"
	"strings"

	"concert-tickets/internal/model"
	"concert-tickets/internal/repository"
	apperrors "concert-tickets/pkg/app_errors"
	"concert-tickets/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventService interface {
	List(ctx context.Context) ([]*model.Event, error)
	GetByEventID(ctx context.Context, eventID uuid.UUID) (*model.Event, error)
	Create(ctx context.Context, event *model.Event) (*model.Event, error)
	UpdateByEventID(ctx context.Context, eventID uuid.UUID, params model.UpdateEventParams) (*model.Event, error)
	// SetTickets 為活動建立一批票券並放進庫存
	SetTickets(ctx context.Context, eventID uuid.UUID, params []model.CreateTicketParams) ([]*model.Ticket, error)
}

type EventServiceImpl struct {
	repo       repository.EventRepository
	ticketRepo repository.TicketRepository
}

func NewEventService(repo repository.EventRepository, ticketRepo repository.TicketRepository) EventService {
	return &EventServiceImpl{repo: repo, ticketRepo: ticketRepo}
}

func (s *EventServiceImpl) List(ctx context.Context) ([]*model.Event, error) {
	return s.repo.List(ctx)
}

func (s *EventServiceImpl) GetByEventID(ctx context.Context, eventID uuid.UUID) (*model.Event, error) {
	return s.repo.FindByEventID(ctx, eventID)
}

func (s *EventServiceImpl) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	if err := validateEvent(event.Date, event.Time, event.Venue); err != nil {
		return nil, err
	}
	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	return s.repo.Create(ctx, event)
}

func (s *EventServiceImpl) UpdateByEventID(ctx context.Context, eventID uuid.UUID, params model.UpdateEventParams) (*model.Event, error) {
	if err := validateEvent(params.Date, params.Time, params.Venue); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, eventID, params)
}

func (s *EventServiceImpl) SetTickets(ctx context.Context, eventID uuid.UUID, params []model.CreateTicketParams) ([]*model.Ticket, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("%w: tickets request cannot be empty", apperrors.ErrValidation)
	}
	if _, err := s.repo.FindByEventID(ctx, eventID); err != nil {
		return nil, err
	}

	tickets := make([]*model.Ticket, 0, len(params))
	for i, p := range params {
		if !p.Type.IsValid() {
			return nil, fmt.Errorf("%w: ticket %d has unknown type %q", apperrors.ErrValidation, i, p.Type)
		}
		if p.Price.IsNegative() {
			return nil, fmt.Errorf("%w: ticket %d has negative price", apperrors.ErrValidation, i)
		}
		tickets = append(tickets, model.NewTicket(eventID, p.Type, p.Price, p.Seat))
	}

	if err := s.ticketRepo.RegisterTickets(ctx, eventID, tickets); err != nil {
		return nil, err
	}
	logger.WithComponent("service").Info("tickets registered",
		zap.String("event_id", eventID.String()),
		zap.Int("count", len(tickets)),
	)
	return tickets, nil
}

func validateEvent(date, clock, venue string) error {
	if err := model.ValidateSchedule(date, clock); err != nil {
		return fmt.Errorf("%w: event date must be YYYY-MM-DD and time hh:mm", apperrors.ErrValidation)
	}
	if strings.TrimSpace(venue) == "" {
		return fmt.Errorf("%w: venue is required", apperrors.ErrValidation)
	}
	return nil
}
