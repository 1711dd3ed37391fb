package service

import (
	"context"
	"fmt"

	"concert-tickets/internal/cache"
	"concert-tickets/internal/model"
	"concert-tickets/internal/repository"
	apperrors "concert-tickets/pkg/app_errors"
	"concert-tickets/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TicketService interface {
	// 活動不存在時回傳 ErrEventNotFound
	ListAvailable(ctx context.Context, eventID uuid.UUID) ([]*model.Ticket, error)
	GetAvailable(ctx context.Context, ticketID, eventID uuid.UUID) (*model.Ticket, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Ticket, error)
	Reserve(ctx context.Context, userID, ticketID, eventID uuid.UUID) error
	CancelReservation(ctx context.Context, userID uuid.UUID)
	ReleaseTicket(ctx context.Context, userID, ticketID uuid.UUID) error
	GetCart(ctx context.Context, userID uuid.UUID) model.Cart
	BlockTickets(ctx context.Context, eventID uuid.UUID, ticketIDs []uuid.UUID) ([]uuid.UUID, error)
	UnblockTickets(ctx context.Context, eventID uuid.UUID, ticketIDs []uuid.UUID) ([]uuid.UUID, error)
}

type TicketServiceImpl struct {
	events  repository.EventRepository
	tickets repository.TicketRepository
	carts   cache.ShoppingCartManager
}

func NewTicketService(events repository.EventRepository, tickets repository.TicketRepository, carts cache.ShoppingCartManager) TicketService {
	return &TicketServiceImpl{events: events, tickets: tickets, carts: carts}
}

func (s *TicketServiceImpl) ListAvailable(ctx context.Context, eventID uuid.UUID) ([]*model.Ticket, error) {
	if _, err := s.events.FindByEventID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.tickets.ListAvailable(ctx, eventID)
}

func (s *TicketServiceImpl) GetAvailable(ctx context.Context, ticketID, eventID uuid.UUID) (*model.Ticket, error) {
	if _, err := s.events.FindByEventID(ctx, eventID); err != nil {
		return nil, err
	}
	ticket, ok := s.tickets.GetAvailable(ctx, ticketID, eventID)
	if !ok {
		return nil, apperrors.ErrTicketNotFound
	}
	return ticket, nil
}

func (s *TicketServiceImpl) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Ticket, error) {
	if _, err := s.events.FindByEventID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.tickets.ListByEvent(ctx, eventID)
}

func (s *TicketServiceImpl) Reserve(ctx context.Context, userID, ticketID, eventID uuid.UUID) error {
	if _, err := s.GetAvailable(ctx, ticketID, eventID); err != nil {
		return err
	}
	// 查詢到保留之間可能被別人搶走，由票券鎖決定勝負
	if !s.carts.Reserve(ctx, userID, ticketID, eventID) {
		return fmt.Errorf("unable to reserve ticket %s: %w", ticketID, apperrors.ErrTicketAlreadyReserved)
	}
	return nil
}

func (s *TicketServiceImpl) CancelReservation(ctx context.Context, userID uuid.UUID) {
	s.carts.Cancel(ctx, userID)
}

func (s *TicketServiceImpl) ReleaseTicket(ctx context.Context, userID, ticketID uuid.UUID) error {
	if !s.carts.ReleaseTicket(ctx, userID, ticketID) {
		return apperrors.ErrTicketNotFound
	}
	return nil
}

func (s *TicketServiceImpl) GetCart(ctx context.Context, userID uuid.UUID) model.Cart {
	return s.carts.GetCart(ctx, userID)
}

func (s *TicketServiceImpl) BlockTickets(ctx context.Context, eventID uuid.UUID, ticketIDs []uuid.UUID) ([]uuid.UUID, error) {
	if _, err := s.events.FindByEventID(ctx, eventID); err != nil {
		return nil, err
	}
	affected, err := s.tickets.BlockTickets(ctx, eventID, ticketIDs)
	if err != nil {
		return nil, err
	}
	logger.WithComponent("service").Info("tickets blocked",
		zap.String("event_id", eventID.String()),
		zap.Int("requested", len(ticketIDs)),
		zap.Int("affected", len(affected)),
	)
	return affected, nil
}

func (s *TicketServiceImpl) UnblockTickets(ctx context.Context, eventID uuid.UUID, ticketIDs []uuid.UUID) ([]uuid.UUID, error) {
	if _, err := s.events.FindByEventID(ctx, eventID); err != nil {
		return nil, err
	}
	affected, err := s.tickets.UnblockTickets(ctx, eventID, ticketIDs)
	if err != nil {
		return nil, err
	}
	logger.WithComponent("service").Info("tickets unblocked",
		zap.String("event_id", eventID.String()),
		zap.Int("requested", len(ticketIDs)),
		zap.Int("affected", len(affected)),
	)
	return affected, nil
}
