package cache

import (
	"context"
	"sync"
	"time"

	"concert-tickets/internal/clock"
	"concert-tickets/internal/metrics"
	"concert-tickets/internal/model"
	"concert-tickets/internal/repository"
	"concert-tickets/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ShoppingCartManager interface {
	// 保留：查詢可購買的票券並保留，成功後加入使用者購物車並重設到期時間
	Reserve(ctx context.Context, userID, ticketID, eventID uuid.UUID) bool
	// 取消：釋放購物車內所有票券並清空購物車
	Cancel(ctx context.Context, userID uuid.UUID)
	// 取得購物車內容；過期視為空並立即釋放
	GetCart(ctx context.Context, userID uuid.UUID) model.Cart
	// 釋放購物車內單一票券
	ReleaseTicket(ctx context.Context, userID, ticketID uuid.UUID) bool
	// 結帳：將未過期的購物車整個取出，期間取消與清理都碰不到這些票券
	Checkout(ctx context.Context, userID uuid.UUID) (model.Cart, bool)
	// 付款失敗時放回購物車
	Restore(ctx context.Context, cart model.Cart)
	// 釋放所有已過期的購物車，回傳釋放的購物車數量
	ReleaseExpired(ctx context.Context) int
}

type ShoppingCartManagerImpl struct {
	tickets repository.TicketRepository
	clock   clock.Clock
	hold    time.Duration

	mu    sync.Mutex
	carts map[uuid.UUID]*model.Cart
}

func NewShoppingCartManager(tickets repository.TicketRepository, clk clock.Clock, hold time.Duration) ShoppingCartManager {
	if hold <= 0 {
		hold = model.DefaultReservationHold
	}
	return &ShoppingCartManagerImpl{
		tickets: tickets,
		clock:   clk,
		hold:    hold,
		carts:   make(map[uuid.UUID]*model.Cart),
	}
}

func (m *ShoppingCartManagerImpl) Reserve(ctx context.Context, userID, ticketID, eventID uuid.UUID) bool {
	log := logger.WithComponent("cart").With(
		zap.String("user_id", userID.String()),
		zap.String("ticket_id", ticketID.String()),
		zap.String("event_id", eventID.String()),
	)

	ticket, ok := m.tickets.GetAvailable(ctx, ticketID, eventID)
	if !ok {
		log.Info("ticket not found or unavailable")
		metrics.RecordReservation("unavailable")
		return false
	}

	now := m.clock.Now()
	// 票券本身的鎖決定誰搶到；購物車鎖只保護 map
	if err := ticket.Reserve(now, m.hold); err != nil {
		log.Info("reserve rejected", zap.Error(err))
		metrics.RecordReservation("conflict")
		return false
	}

	m.mu.Lock()
	expired := m.takeIfExpiredLocked(userID, now)
	cart, exists := m.carts[userID]
	if !exists {
		cart = &model.Cart{UserID: userID}
		m.carts[userID] = cart
	}
	cart.Tickets = append(cart.Tickets, ticket)
	cart.ExpiresAt = now.Add(m.hold)
	refreshHolds(cart)
	expiresAt := cart.ExpiresAt
	active := len(m.carts)
	m.mu.Unlock()

	releaseCart(expired, "expired")
	metrics.SetActiveCarts(active)
	metrics.RecordReservation("success")
	log.Info("ticket reserved", zap.Time("expires_at", expiresAt))
	return true
}

func (m *ShoppingCartManagerImpl) Cancel(ctx context.Context, userID uuid.UUID) {
	m.mu.Lock()
	cart, ok := m.carts[userID]
	if ok {
		delete(m.carts, userID)
	}
	active := len(m.carts)
	m.mu.Unlock()

	if !ok {
		return
	}
	releaseCart(cart, "cancelled")
	metrics.SetActiveCarts(active)
	logger.WithComponent("cart").Info("reservation cancelled",
		zap.String("user_id", userID.String()),
		zap.Int("tickets", len(cart.Tickets)),
	)
}

func (m *ShoppingCartManagerImpl) GetCart(ctx context.Context, userID uuid.UUID) model.Cart {
	m.mu.Lock()
	expired := m.takeIfExpiredLocked(userID, m.clock.Now())
	result := model.Cart{UserID: userID, Tickets: []*model.Ticket{}}
	if cart, ok := m.carts[userID]; ok {
		result.Tickets = append(result.Tickets, cart.Tickets...)
		result.ExpiresAt = cart.ExpiresAt
	}
	m.mu.Unlock()

	releaseCart(expired, "expired")
	return result
}

func (m *ShoppingCartManagerImpl) ReleaseTicket(ctx context.Context, userID, ticketID uuid.UUID) bool {
	m.mu.Lock()
	expired := m.takeIfExpiredLocked(userID, m.clock.Now())
	var released *model.Ticket
	if cart, ok := m.carts[userID]; ok {
		for i, t := range cart.Tickets {
			if t.ID != ticketID {
				continue
			}
			released = t
			cart.Tickets = append(cart.Tickets[:i:i], cart.Tickets[i+1:]...)
			break
		}
		if len(cart.Tickets) == 0 {
			delete(m.carts, userID)
		}
	}
	active := len(m.carts)
	m.mu.Unlock()

	releaseCart(expired, "expired")
	metrics.SetActiveCarts(active)
	if released == nil {
		return false
	}
	released.Release()
	metrics.RecordReleased("cancelled", 1)
	return true
}

func (m *ShoppingCartManagerImpl) Checkout(ctx context.Context, userID uuid.UUID) (model.Cart, bool) {
	m.mu.Lock()
	expired := m.takeIfExpiredLocked(userID, m.clock.Now())
	cart, ok := m.carts[userID]
	if ok {
		delete(m.carts, userID)
	}
	active := len(m.carts)
	m.mu.Unlock()

	releaseCart(expired, "expired")
	metrics.SetActiveCarts(active)
	if !ok || len(cart.Tickets) == 0 {
		return model.Cart{UserID: userID}, false
	}
	return *cart, true
}

func (m *ShoppingCartManagerImpl) Restore(ctx context.Context, cart model.Cart) {
	if len(cart.Tickets) == 0 {
		return
	}

	m.mu.Lock()
	existing, ok := m.carts[cart.UserID]
	if !ok {
		restored := cart
		m.carts[cart.UserID] = &restored
	} else {
		// 結帳期間又保留了新票券：合併，保留較晚的到期時間
		existing.Tickets = append(append([]*model.Ticket{}, cart.Tickets...), existing.Tickets...)
		if cart.ExpiresAt.After(existing.ExpiresAt) {
			existing.ExpiresAt = cart.ExpiresAt
		}
		refreshHolds(existing)
	}
	active := len(m.carts)
	m.mu.Unlock()

	metrics.SetActiveCarts(active)
}

func (m *ShoppingCartManagerImpl) ReleaseExpired(ctx context.Context) int {
	now := m.clock.Now()

	m.mu.Lock()
	expired := make([]*model.Cart, 0)
	for userID, cart := range m.carts {
		if cart.IsExpired(now) {
			expired = append(expired, cart)
			delete(m.carts, userID)
		}
	}
	active := len(m.carts)
	m.mu.Unlock()

	for _, cart := range expired {
		releaseCart(cart, "expired")
	}
	metrics.SetActiveCarts(active)
	return len(expired)
}

// takeIfExpiredLocked 呼叫者必須持有 m.mu；過期的購物車會從 map 移除並回傳，由呼叫者在鎖外釋放
func (m *ShoppingCartManagerImpl) takeIfExpiredLocked(userID uuid.UUID, now time.Time) *model.Cart {
	cart, ok := m.carts[userID]
	if !ok || !cart.IsExpired(now) {
		return nil
	}
	delete(m.carts, userID)
	return cart
}

// refreshHolds 讓每張票券的保留到期與購物車一致；呼叫者持有 m.mu
func refreshHolds(cart *model.Cart) {
	for _, t := range cart.Tickets {
		t.ExtendReservation(cart.ExpiresAt)
	}
}

func releaseCart(cart *model.Cart, reason string) {
	if cart == nil {
		return
	}
	for _, t := range cart.Tickets {
		t.Release()
	}
	metrics.RecordReleased(reason, len(cart.Tickets))
	if reason == "expired" {
		logger.WithComponent("cart").Info("expired reservation released",
			zap.String("user_id", cart.UserID.String()),
			zap.Int("tickets", len(cart.Tickets)),
		)
	}
}
