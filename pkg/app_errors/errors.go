package apperrors

import "errors"

var (
	ErrEventNotFound         = errors.New("event not found")
	ErrTicketNotFound        = errors.New("ticket not found")
	ErrTicketAlreadySold     = errors.New("ticket is already sold")
	ErrTicketAlreadyReserved = errors.New("ticket is already reserved")
	ErrValidation            = errors.New("validation failed")
	ErrEmptyCart             = errors.New("shopping cart is empty")
	ErrPaymentFailed         = errors.New("payment failed")
	ErrPartialSale           = errors.New("unable to sell all tickets in cart")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("forbidden")
	ErrInternalServerError   = errors.New("internal server error")
)
