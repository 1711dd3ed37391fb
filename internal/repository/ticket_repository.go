package repository

import (
	"context"
	"fmt"
	"sync"

	"concert-tickets/internal/model"
	apperrors "concert-tickets/pkg/app_errors"

	"github.com/google/uuid"
)

// TicketRepository 以活動為單位保存所有票券 (庫存)
type TicketRepository interface {
	// 新增一批票券到活動；空批次、活動不一致、負價格或重複 id 回傳 ErrValidation
	RegisterTickets(ctx context.Context, eventID uuid.UUID, tickets []*model.Ticket) error
	// 列出活動中可購買的票券；未知活動回傳空清單
	ListAvailable(ctx context.Context, eventID uuid.UUID) ([]*model.Ticket, error)
	// 只有在票券可購買時才回傳 (ticket, true)
	GetAvailable(ctx context.Context, ticketID, eventID uuid.UUID) (*model.Ticket, bool)
	// 不經過可用性過濾的查詢
	FindByID(ctx context.Context, ticketID, eventID uuid.UUID) (*model.Ticket, bool)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Ticket, error)
	// 封鎖/解除封鎖；找不到的 id 直接略過，回傳實際處理的 id
	BlockTickets(ctx context.Context, eventID uuid.UUID, ticketIDs []uuid.UUID) ([]uuid.UUID, error)
	UnblockTickets(ctx context.Context, eventID uuid.UUID, ticketIDs []uuid.UUID) ([]uuid.UUID, error)
}

type eventTickets struct {
	mu      sync.RWMutex
	ordered []*model.Ticket
	byID    map[uuid.UUID]*model.Ticket
}

func (e *eventTickets) snapshot() []*model.Ticket {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*model.Ticket, len(e.ordered))
	copy(out, e.ordered)
	return out
}

func (e *eventTickets) find(ticketID uuid.UUID) (*model.Ticket, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.byID[ticketID]
	return t, ok
}

type TicketRepositoryImpl struct {
	mu     sync.RWMutex
	events map[uuid.UUID]*eventTickets
}

func NewTicketRepository() TicketRepository {
	return &TicketRepositoryImpl{
		events: make(map[uuid.UUID]*eventTickets),
	}
}

func (r *TicketRepositoryImpl) collection(eventID uuid.UUID) (*eventTickets, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.events[eventID]
	return c, ok
}

func (r *TicketRepositoryImpl) collectionOrCreate(eventID uuid.UUID) *eventTickets {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.events[eventID]
	if !ok {
		c = &eventTickets{byID: make(map[uuid.UUID]*model.Ticket)}
		r.events[eventID] = c
	}
	return c
}

func (r *TicketRepositoryImpl) RegisterTickets(ctx context.Context, eventID uuid.UUID, tickets []*model.Ticket) error {
	if len(tickets) == 0 {
		return fmt.Errorf("%w: empty ticket batch", apperrors.ErrValidation)
	}

	seen := make(map[uuid.UUID]struct{}, len(tickets))
	for _, t := range tickets {
		if t == nil {
			return fmt.Errorf("%w: nil ticket", apperrors.ErrValidation)
		}
		if t.EventID != eventID {
			return fmt.Errorf("%w: ticket %s belongs to event %s", apperrors.ErrValidation, t.ID, t.EventID)
		}
		if t.Price.IsNegative() {
			return fmt.Errorf("%w: ticket %s has negative price", apperrors.ErrValidation, t.ID)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("%w: duplicate ticket id %s", apperrors.ErrValidation, t.ID)
		}
		seen[t.ID] = struct{}{}
	}

	c := r.collectionOrCreate(eventID)
	c.mu.Lock()
	defer c.mu.Unlock()

	// 先全部檢查再寫入，避免寫到一半
	for _, t := range tickets {
		if _, exists := c.byID[t.ID]; exists {
			return fmt.Errorf("%w: ticket id %s already registered", apperrors.ErrValidation, t.ID)
		}
	}
	for _, t := range tickets {
		c.byID[t.ID] = t
		c.ordered = append(c.ordered, t)
	}
	return nil
}

func (r *TicketRepositoryImpl) ListAvailable(ctx context.Context, eventID uuid.UUID) ([]*model.Ticket, error) {
	c, ok := r.collection(eventID)
	if !ok {
		return []*model.Ticket{}, nil
	}

	available := make([]*model.Ticket, 0)
	for _, t := range c.snapshot() {
		if t.IsAvailable() {
			available = append(available, t)
		}
	}
	return available, nil
}

func (r *TicketRepositoryImpl) GetAvailable(ctx context.Context, ticketID, eventID uuid.UUID) (*model.Ticket, bool) {
	t, ok := r.FindByID(ctx, ticketID, eventID)
	if !ok || !t.IsAvailable() {
		return nil, false
	}
	return t, true
}

func (r *TicketRepositoryImpl) FindByID(ctx context.Context, ticketID, eventID uuid.UUID) (*model.Ticket, bool) {
	c, ok := r.collection(eventID)
	if !ok {
		return nil, false
	}
	t, ok := c.find(ticketID)
	if !ok || t.EventID != eventID {
		return nil, false
	}
	return t, true
}

func (r *TicketRepositoryImpl) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Ticket, error) {
	c, ok := r.collection(eventID)
	if !ok {
		return []*model.Ticket{}, nil
	}
	return c.snapshot(), nil
}

func (r *TicketRepositoryImpl) BlockTickets(ctx context.Context, eventID uuid.UUID, ticketIDs []uuid.UUID) ([]uuid.UUID, error) {
	return r.apply(eventID, ticketIDs, (*model.Ticket).Block)
}

func (r *TicketRepositoryImpl) UnblockTickets(ctx context.Context, eventID uuid.UUID, ticketIDs []uuid.UUID) ([]uuid.UUID, error) {
	return r.apply(eventID, ticketIDs, (*model.Ticket).Unblock)
}

func (r *TicketRepositoryImpl) apply(eventID uuid.UUID, ticketIDs []uuid.UUID, fn func(*model.Ticket)) ([]uuid.UUID, error) {
	if len(ticketIDs) == 0 {
		return nil, fmt.Errorf("%w: empty ticket id list", apperrors.ErrValidation)
	}

	affected := make([]uuid.UUID, 0, len(ticketIDs))
	c, ok := r.collection(eventID)
	if !ok {
		return affected, nil
	}
	for _, id := range ticketIDs {
		t, found := c.find(id)
		if !found {
			continue
		}
		fn(t)
		affected = append(affected, id)
	}
	return affected, nil
}
