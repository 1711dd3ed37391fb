package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart 使用者目前保留中的票券與保留到期時間
type Cart struct {
	UserID    uuid.UUID
	Tickets   []*Ticket
	ExpiresAt time.Time
}

// IsExpired 檢查保留是否已到期
func (c *Cart) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// TotalPrice 所有保留票券的總價
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, t := range c.Tickets {
		total = total.Add(t.Price)
	}
	return total
}

func (c *Cart) TicketIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Tickets))
	for _, t := range c.Tickets {
		ids = append(ids, t.ID)
	}
	return ids
}

// CartResponse 購物車響應
type CartResponse struct {
	Tickets    []TicketResponse `json:"tickets"`
	TotalPrice decimal.Decimal  `json:"total_price"`
	ExpiresAt  *time.Time       `json:"expires_at,omitempty"`
}

// ToResponse 空購物車不帶到期時間
func (c *Cart) ToResponse() CartResponse {
	resp := CartResponse{
		Tickets:    ToTicketResponses(c.Tickets),
		TotalPrice: c.TotalPrice(),
	}
	if len(c.Tickets) > 0 {
		expiresAt := c.ExpiresAt
		resp.ExpiresAt = &expiresAt
	}
	return resp
}
