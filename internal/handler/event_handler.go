package handler

import (
	"context"
	"errors"
	"net/http"

	"concert-tickets/internal/middleware"
	"concert-tickets/internal/model"
	"concert-tickets/internal/service"
	apperrors "concert-tickets/pkg/app_errors"
	"concert-tickets/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type EventHandler struct {
	service       service.EventService
	ticketService service.TicketService
}

func NewEventHandler(service service.EventService, ticketService service.TicketService) *EventHandler {
	return &EventHandler{service: service, ticketService: ticketService}
}

// RegisterRoutes 讀取公開；新增、修改、設定票券與封鎖需要 admin
func (h *EventHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("events", h.List)
		router.GET("events/:uuid", h.GetByEventID)
	}
	admin := r.Group("/api/v1", middleware.RequireAdmin())
	{
		admin.POST("events", h.Create)
		admin.PUT("events/:uuid", h.UpdateByEventID)
		admin.POST("events/:uuid/settickets", h.SetTickets)
		admin.GET("events/:uuid/tickets", h.ListTickets)
		admin.PATCH("events/:uuid/blocktickets", h.BlockTickets)
		admin.PATCH("events/:uuid/unblocktickets", h.UnblockTickets)
	}
}

// CreateEventRequest 建立活動請求
type CreateEventRequest struct {
	Date        string `json:"event_date" binding:"required"`
	Time        string `json:"event_time" binding:"required"`
	Venue       string `json:"venue" binding:"required"`
	Description string `json:"description"`
}

// UpdateEventRequest 更新活動請求，整筆取代
type UpdateEventRequest struct {
	Date        string `json:"event_date" binding:"required"`
	Time        string `json:"event_time" binding:"required"`
	Venue       string `json:"venue" binding:"required"`
	Description string `json:"description"`
}

// TicketRequest 單張票券設定
type TicketRequest struct {
	Type         model.TicketType   `json:"type" binding:"required"`
	Price        decimal.Decimal    `json:"price"`
	SeatLocation model.SeatLocation `json:"seat_location"`
}

// SetTicketsRequest 設定活動票券請求
type SetTicketsRequest struct {
	Tickets []TicketRequest `json:"tickets" binding:"required,min=1,dive"`
}

// TicketIDsRequest 封鎖/解除封鎖請求
type TicketIDsRequest struct {
	TicketIDs []uuid.UUID `json:"ticket_ids" binding:"required,min=1"`
}

func (h *EventHandler) List(c *gin.Context) {
	events, err := h.service.List(c)
	if err != nil {
		h.handleError(c, err, "List")
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *EventHandler) GetByEventID(c *gin.Context) {
	eventID, ok := parseUUIDParam(c, "uuid", "event")
	if !ok {
		return
	}
	event, err := h.service.GetByEventID(c, eventID)
	if err != nil {
		h.handleError(c, err, "GetByEventID")
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) Create(c *gin.Context) {
	var req CreateEventRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	event := &model.Event{
		Date:        req.Date,
		Time:        req.Time,
		Venue:       req.Venue,
		Description: req.Description,
	}
	created, err := h.service.Create(c, event)
	if err != nil {
		h.handleError(c, err, "Create")
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *EventHandler) UpdateByEventID(c *gin.Context) {
	eventID, ok := parseUUIDParam(c, "uuid", "event")
	if !ok {
		return
	}
	var req UpdateEventRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	params := model.UpdateEventParams{
		Date:        req.Date,
		Time:        req.Time,
		Venue:       req.Venue,
		Description: req.Description,
	}
	updated, err := h.service.UpdateByEventID(c, eventID, params)
	if err != nil {
		h.handleError(c, err, "UpdateByEventID")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *EventHandler) SetTickets(c *gin.Context) {
	eventID, ok := parseUUIDParam(c, "uuid", "event")
	if !ok {
		return
	}
	var req SetTicketsRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	params := make([]model.CreateTicketParams, 0, len(req.Tickets))
	for _, t := range req.Tickets {
		params = append(params, model.CreateTicketParams{
			Seat:  t.SeatLocation,
			Price: t.Price,
			Type:  t.Type,
		})
	}
	tickets, err := h.service.SetTickets(c, eventID, params)
	if err != nil {
		h.handleError(c, err, "SetTickets")
		return
	}
	c.JSON(http.StatusCreated, model.ToTicketResponses(tickets))
}

// ListTickets 管理用：列出活動全部票券 (含已售出/保留/封鎖)
func (h *EventHandler) ListTickets(c *gin.Context) {
	eventID, ok := parseUUIDParam(c, "uuid", "event")
	if !ok {
		return
	}
	tickets, err := h.ticketService.ListByEvent(c, eventID)
	if err != nil {
		h.handleError(c, err, "ListTickets")
		return
	}
	c.JSON(http.StatusOK, model.ToTicketResponses(tickets))
}

func (h *EventHandler) BlockTickets(c *gin.Context) {
	h.changeBlocking(c, "BlockTickets", h.ticketService.BlockTickets)
}

func (h *EventHandler) UnblockTickets(c *gin.Context) {
	h.changeBlocking(c, "UnblockTickets", h.ticketService.UnblockTickets)
}

func (h *EventHandler) changeBlocking(c *gin.Context, operation string, apply func(ctx context.Context, eventID uuid.UUID, ticketIDs []uuid.UUID) ([]uuid.UUID, error)) {
	eventID, ok := parseUUIDParam(c, "uuid", "event")
	if !ok {
		return
	}
	var req TicketIDsRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	affected, err := apply(c, eventID, req.TicketIDs)
	if err != nil {
		h.handleError(c, err, operation)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"event_id":   eventID,
		"ticket_ids": affected,
	})
}

func (h *EventHandler) handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrEventNotFound):
		log.Warn("Event not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
	case errors.Is(err, apperrors.ErrValidation):
		log.Warn("Invalid input")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
