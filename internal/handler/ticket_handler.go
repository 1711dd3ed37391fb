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
	"go.uber.org/zap"
)

type TicketHandler struct {
	service  service.TicketService
	purchase service.PurchaseService
}

func NewTicketHandler(service service.TicketService, purchase service.PurchaseService) *TicketHandler {
	return &TicketHandler{service: service, purchase: purchase}
}

func (h *TicketHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("tickets/:eventId", h.ListAvailable)
	}
	user := r.Group("/api/v1", middleware.RequireUser())
	{
		user.POST("tickets/:ticketId/events/:eventId/reservation", h.Reserve)
		user.GET("tickets/reservation", h.GetReservation)
		user.DELETE("tickets/reservation", h.CancelReservation)
		user.DELETE("tickets/reservation/:ticketId", h.ReleaseTicket)
		user.POST("tickets/purchase", h.Purchase)
	}
}

// ListAvailable 沒有可購買的票券時回 404
func (h *TicketHandler) ListAvailable(c *gin.Context) {
	eventID, ok := parseUUIDParam(c, "eventId", "event")
	if !ok {
		return
	}
	tickets, err := h.service.ListAvailable(c, eventID)
	if err != nil {
		h.handleError(c, err, "ListAvailable")
		return
	}
	if len(tickets) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No available tickets for this event"})
		return
	}
	c.JSON(http.StatusOK, model.ToTicketResponses(tickets))
}

func (h *TicketHandler) Reserve(c *gin.Context) {
	ticketID, ok := parseUUIDParam(c, "ticketId", "ticket")
	if !ok {
		return
	}
	eventID, ok := parseUUIDParam(c, "eventId", "event")
	if !ok {
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.service.Reserve(c, userID, ticketID, eventID); err != nil {
		h.handleError(c, err, "Reserve")
		return
	}
	cart := h.service.GetCart(c, userID)
	c.JSON(http.StatusOK, cart.ToResponse())
}

func (h *TicketHandler) GetReservation(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	cart := h.service.GetCart(c, userID)
	c.JSON(http.StatusOK, cart.ToResponse())
}

func (h *TicketHandler) CancelReservation(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	h.service.CancelReservation(c, userID)
	c.Status(http.StatusNoContent)
}

func (h *TicketHandler) ReleaseTicket(c *gin.Context) {
	ticketID, ok := parseUUIDParam(c, "ticketId", "ticket")
	if !ok {
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.service.ReleaseTicket(c, userID, ticketID); err != nil {
		h.handleError(c, err, "ReleaseTicket")
		return
	}
	c.Status(http.StatusNoContent)
}

// Purchase 成功或失敗都回傳 PurchaseResult
func (h *TicketHandler) Purchase(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req model.PaymentMethod
	if err := BindJson(c, &req); err != nil {
		return
	}
	result, err := h.purchase.Purchase(c, userID, req)
	if err != nil {
		status := purchaseStatus(err)
		log := logger.WithComponent("handler").With(zap.String("operation", "Purchase"), zap.Error(err))
		if status == http.StatusInternalServerError {
			log.Error("Unexpected error")
		} else {
			log.Warn("Purchase failed")
		}
		c.JSON(status, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func purchaseStatus(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrEmptyCart):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrPaymentFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, apperrors.ErrPartialSale):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *TicketHandler) handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrEventNotFound):
		log.Warn("Event not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
	case errors.Is(err, apperrors.ErrTicketNotFound):
		log.Warn("Ticket not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
	case errors.Is(err, apperrors.ErrTicketAlreadyReserved), errors.Is(err, apperrors.ErrTicketAlreadySold):
		log.Warn("Ticket unavailable")
		c.JSON(http.StatusConflict, gin.H{"error": "Unable to reserve ticket"})
	case errors.Is(err, apperrors.ErrValidation):
		log.Warn("Invalid input")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
