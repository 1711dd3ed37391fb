package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"concert-tickets/internal/model"
	apperrors "concert-tickets/pkg/app_errors"

	"github.com/google/uuid"
)

type EventRepository interface {
	Create(ctx context.Context, event *model.Event) (*model.Event, error)
	List(ctx context.Context) ([]*model.Event, error)
	FindByEventID(ctx context.Context, eventID uuid.UUID) (*model.Event, error)
	Update(ctx context.Context, eventID uuid.UUID, params model.UpdateEventParams) (*model.Event, error)
}

// EventRepositoryImpl 記憶體版活動儲存；回傳的都是副本
type EventRepositoryImpl struct {
	mu     sync.RWMutex
	events map[uuid.UUID]model.Event
	now    func() time.Time
}

func NewEventRepository() EventRepository {
	return &EventRepositoryImpl{
		events: make(map[uuid.UUID]model.Event),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *EventRepositoryImpl) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	if event.EventID == uuid.Nil {
		return nil, apperrors.ErrValidation
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.events[event.EventID]; exists {
		return nil, apperrors.ErrValidation
	}
	now := r.now()
	stored := *event
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.events[stored.EventID] = stored

	created := stored
	return &created, nil
}

func (r *EventRepositoryImpl) List(ctx context.Context) ([]*model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]*model.Event, 0, len(r.events))
	for _, e := range r.events {
		event := e
		events = append(events, &event)
	}
	// 最新建立的活動在前
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	return events, nil
}

func (r *EventRepositoryImpl) FindByEventID(ctx context.Context, eventID uuid.UUID) (*model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.events[eventID]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	return &event, nil
}

func (r *EventRepositoryImpl) Update(ctx context.Context, eventID uuid.UUID, params model.UpdateEventParams) (*model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[eventID]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	event.Date = params.Date
	event.Time = params.Time
	event.Venue = params.Venue
	event.Description = params.Description
	event.UpdatedAt = r.now()
	r.events[eventID] = event

	updated := event
	return &updated, nil
}
