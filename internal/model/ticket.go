package model

import (
	"sync"
	"time"

	apperrors "concert-tickets/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultReservationHold 預設保留時間
const DefaultReservationHold = 10 * time.Minute

// TicketType 票種
type TicketType string

const (
	TicketTypeGeneralAdmission TicketType = "general_admission"
	TicketTypeEarlyBird        TicketType = "early_bird"
	TicketTypeVIP              TicketType = "vip"
	TicketTypeStudent          TicketType = "student"
)

// IsValid 驗證票種是否有效
func (t TicketType) IsValid() bool {
	switch t {
	case TicketTypeGeneralAdmission, TicketTypeEarlyBird, TicketTypeVIP, TicketTypeStudent:
		return true
	}
	return false
}

// SeatLocation 座位 (區、排、號)
type SeatLocation struct {
	Section    string `json:"section"`
	Row        string `json:"row"`
	SeatNumber int    `json:"seat_number"`
}

// Ticket 單一座位的票券。
// sold / reserved / blocked 三個旗標只能透過下列方法在 mu 保護下變更。
type Ticket struct {
	ID      uuid.UUID
	EventID uuid.UUID
	Seat    SeatLocation
	Price   decimal.Decimal
	Type    TicketType

	mu            sync.Mutex
	sold          bool
	reserved      bool
	blocked       bool
	reservedUntil time.Time
}

// NewTicket 建立一張可販售的新票券
func NewTicket(eventID uuid.UUID, ticketType TicketType, price decimal.Decimal, seat SeatLocation) *Ticket {
	return &Ticket{
		ID:      uuid.New(),
		EventID: eventID,
		Seat:    seat,
		Price:   price,
		Type:    ticketType,
	}
}

// TicketState 某一時間點的旗標快照
type TicketState struct {
	Sold          bool
	Reserved      bool
	Blocked       bool
	ReservedUntil time.Time
}

// Available 是否可保留或購買
func (s TicketState) Available() bool {
	return !s.Sold && !s.Reserved && !s.Blocked
}

// Snapshot 在鎖內讀取所有旗標
func (t *Ticket) Snapshot() TicketState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TicketState{
		Sold:          t.sold,
		Reserved:      t.reserved,
		Blocked:       t.blocked,
		ReservedUntil: t.reservedUntil,
	}
}

// IsAvailable 檢查票券是否可保留或購買
func (t *Ticket) IsAvailable() bool {
	return t.Snapshot().Available()
}

// Reserve 保留票券，到期時間為 now + hold
func (t *Ticket) Reserve(now time.Time, hold time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sold {
		return apperrors.ErrTicketAlreadySold
	}
	if t.reserved {
		return apperrors.ErrTicketAlreadyReserved
	}
	t.reserved = true
	t.reservedUntil = now.Add(hold)
	return nil
}

// Release 解除保留，可重複呼叫
func (t *Ticket) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reserved = false
	t.reservedUntil = time.Time{}
}

// Sell 標記為已售出並清除保留；重複售出必須回傳錯誤
func (t *Ticket) Sell() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sold {
		return apperrors.ErrTicketAlreadySold
	}
	t.sold = true
	t.reserved = false
	t.reservedUntil = time.Time{}
	return nil
}

// RevertSale 僅供購買失敗時的補償動作使用
func (t *Ticket) RevertSale() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sold = false
}

// ExtendReservation 購物車到期時間重設時一併更新保留到期；未保留則不動
func (t *Ticket) ExtendReservation(until time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.reserved {
		return
	}
	t.reservedUntil = until
}

// Block 保留給主辦方，不再出現在可購買清單；可重複呼叫
func (t *Ticket) Block() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.blocked = true
}

// Unblock 解除封鎖；已售出或保留中的狀態不受影響
func (t *Ticket) Unblock() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.blocked = false
}

// TicketResponse 票券響應
type TicketResponse struct {
	ID            uuid.UUID       `json:"id"`
	EventID       uuid.UUID       `json:"event_id"`
	Type          TicketType      `json:"type"`
	Price         decimal.Decimal `json:"price"`
	SeatLocation  SeatLocation    `json:"seat_location"`
	Sold          bool            `json:"sold"`
	Reserved      bool            `json:"reserved"`
	Blocked       bool            `json:"blocked"`
	ReservedUntil *time.Time      `json:"reserved_until,omitempty"`
}

// ToResponse 以快照組出響應，避免讀到轉換中的狀態
func (t *Ticket) ToResponse() TicketResponse {
	state := t.Snapshot()
	resp := TicketResponse{
		ID:           t.ID,
		EventID:      t.EventID,
		Type:         t.Type,
		Price:        t.Price,
		SeatLocation: t.Seat,
		Sold:         state.Sold,
		Reserved:     state.Reserved,
		Blocked:      state.Blocked,
	}
	if state.Reserved {
		until := state.ReservedUntil
		resp.ReservedUntil = &until
	}
	return resp
}

// ToTicketResponses 轉換多張票券
func ToTicketResponses(tickets []*Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, t.ToResponse())
	}
	return out
}

// CreateTicketParams 建立票券所需欄位
type CreateTicketParams struct {
	Seat  SeatLocation
	Price decimal.Decimal
	Type  TicketType
}
