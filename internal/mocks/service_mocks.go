package mocks

import (
	"context"

	"concert-tickets/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type EventServiceMock struct {
	mock.Mock
}

func NewEventServiceMock() *EventServiceMock {
	return &EventServiceMock{}
}

func (m *EventServiceMock) List(ctx context.Context) ([]*model.Event, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Event), args.Error(1)
}

func (m *EventServiceMock) GetByEventID(ctx context.Context, eventID uuid.UUID) (*model.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *EventServiceMock) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *EventServiceMock) UpdateByEventID(ctx context.Context, eventID uuid.UUID, params model.UpdateEventParams) (*model.Event, error) {
	args := m.Called(ctx, eventID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *EventServiceMock) SetTickets(ctx context.Context, eventID uuid.UUID, params []model.CreateTicketParams) ([]*model.Ticket, error) {
	args := m.Called(ctx, eventID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Ticket), args.Error(1)
}

type TicketServiceMock struct {
	mock.Mock
}

func NewTicketServiceMock() *TicketServiceMock {
	return &TicketServiceMock{}
}

func (m *TicketServiceMock) ListAvailable(ctx context.Context, eventID uuid.UUID) ([]*model.Ticket, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Ticket), args.Error(1)
}

func (m *TicketServiceMock) GetAvailable(ctx context.Context, ticketID, eventID uuid.UUID) (*model.Ticket, error) {
	args := m.Called(ctx, ticketID, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *TicketServiceMock) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Ticket, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Ticket), args.Error(1)
}

func (m *TicketServiceMock) Reserve(ctx context.Context, userID, ticketID, eventID uuid.UUID) error {
	args := m.Called(ctx, userID, ticketID, eventID)
	return args.Error(0)
}

func (m *TicketServiceMock) CancelReservation(ctx context.Context, userID uuid.UUID) {
	m.Called(ctx, userID)
}

func (m *TicketServiceMock) ReleaseTicket(ctx context.Context, userID, ticketID uuid.UUID) error {
	args := m.Called(ctx, userID, ticketID)
	return args.Error(0)
}

func (m *TicketServiceMock) GetCart(ctx context.Context, userID uuid.UUID) model.Cart {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.Cart)
}

func (m *TicketServiceMock) BlockTickets(ctx context.Context, eventID uuid.UUID, ticketIDs []uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, eventID, ticketIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *TicketServiceMock) UnblockTickets(ctx context.Context, eventID uuid.UUID, ticketIDs []uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, eventID, ticketIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type PurchaseServiceMock struct {
	mock.Mock
}

func NewPurchaseServiceMock() *PurchaseServiceMock {
	return &PurchaseServiceMock{}
}

func (m *PurchaseServiceMock) Purchase(ctx context.Context, userID uuid.UUID, method model.PaymentMethod) (*model.PurchaseResult, error) {
	args := m.Called(ctx, userID, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PurchaseResult), args.Error(1)
}
