package service

import (
	"context"
	"fmt"
	"time"

	"concert-tickets/internal/cache"
	"concert-tickets/internal/clock"
	"concert-tickets/internal/metrics"
	"concert-tickets/internal/model"
	"concert-tickets/internal/payment"
	"concert-tickets/internal/queue"
	apperrors "concert-tickets/pkg/app_errors"
	"concert-tickets/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultRevertTimeout = 10 * time.Second

type PurchaseService interface {
	// Purchase 將使用者購物車內的票券一次買下。
	// 回傳的 PurchaseResult 一定不為 nil；失敗時 error 包含 ErrEmptyCart / ErrPaymentFailed / ErrPartialSale。
	Purchase(ctx context.Context, userID uuid.UUID, method model.PaymentMethod) (*model.PurchaseResult, error)
}

type PurchaseServiceImpl struct {
	carts         cache.ShoppingCartManager
	payments      payment.Processor
	receipts      queue.ReceiptQueue
	clock         clock.Clock
	revertTimeout time.Duration
}

type PurchaseServiceOption func(*PurchaseServiceImpl)

// WithRevertTimeout 設定補償退款的逾時
func WithRevertTimeout(d time.Duration) PurchaseServiceOption {
	return func(s *PurchaseServiceImpl) {
		if d > 0 {
			s.revertTimeout = d
		}
	}
}

func WithClock(clk clock.Clock) PurchaseServiceOption {
	return func(s *PurchaseServiceImpl) {
		if clk != nil {
			s.clock = clk
		}
	}
}

// NewPurchaseService receipts 可為 nil，代表不發送收據
func NewPurchaseService(carts cache.ShoppingCartManager, payments payment.Processor, receipts queue.ReceiptQueue, opts ...PurchaseServiceOption) PurchaseService {
	s := &PurchaseServiceImpl{
		carts:         carts,
		payments:      payments,
		receipts:      receipts,
		clock:         clock.NewSystem(),
		revertTimeout: defaultRevertTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PurchaseServiceImpl) Purchase(ctx context.Context, userID uuid.UUID, method model.PaymentMethod) (*model.PurchaseResult, error) {
	log := logger.WithComponent("service").With(zap.String("user_id", userID.String()))

	// 1. 尚未動到任何狀態前，尊重呼叫者的取消
	if err := ctx.Err(); err != nil {
		return failedResult(err, decimal.Zero), err
	}

	// 2. 取出購物車；結帳期間取消與過期清理都碰不到這些票券
	cart, ok := s.carts.Checkout(ctx, userID)
	if !ok {
		metrics.RecordPurchase("empty_cart", 0)
		return failedResult(apperrors.ErrEmptyCart, decimal.Zero), apperrors.ErrEmptyCart
	}
	total := cart.TotalPrice()

	if err := ctx.Err(); err != nil {
		s.carts.Restore(context.WithoutCancel(ctx), cart)
		return failedResult(err, total), err
	}

	// 3. 付款；失敗時票券保持保留並放回購物車
	txID, err := s.payments.Charge(ctx, total, method)
	if err != nil {
		s.carts.Restore(context.WithoutCancel(ctx), cart)
		wrapped := fmt.Errorf("%w: %w", apperrors.ErrPaymentFailed, err)
		log.Warn("payment failed", zap.Error(err))
		metrics.RecordPurchase("payment_failed", 0)
		return failedResult(wrapped, total), wrapped
	}

	// 4. 付款成功後不再理會取消，一路做到成功或補償完成
	sold := make([]*model.Ticket, 0, len(cart.Tickets))
	for i, t := range cart.Tickets {
		if err := t.Sell(); err != nil {
			wrapped := fmt.Errorf("%w: ticket %s: %w", apperrors.ErrPartialSale, t.ID, err)
			if revertErr := s.compensate(ctx, txID, sold, cart.Tickets[i+1:]); revertErr != nil {
				wrapped = fmt.Errorf("%w (payment revert failed: %v)", wrapped, revertErr)
			}
			log.Error("purchase rolled back",
				zap.String("transaction_id", txID),
				zap.String("ticket_id", t.ID.String()),
				zap.Int("reverted", len(sold)),
				zap.Error(err),
			)
			metrics.RecordPurchase("rolled_back", 0)
			return failedResult(wrapped, total), wrapped
		}
		sold = append(sold, t)
	}

	result := &model.PurchaseResult{
		Successful:    true,
		TransactionID: txID,
		TotalPrice:    total,
		Tickets:       cart.TicketIDs(),
	}
	metrics.RecordPurchase("success", len(sold))
	log.Info("purchase completed",
		zap.String("transaction_id", txID),
		zap.String("total_price", total.StringFixed(2)),
		zap.Int("tickets", len(sold)),
	)

	s.publishReceipt(ctx, userID, result)
	return result, nil
}

// compensate 退款並還原已售出的票券，其餘仍保留中的票券一併釋放
func (s *PurchaseServiceImpl) compensate(ctx context.Context, txID string, sold, untouched []*model.Ticket) error {
	revertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.revertTimeout)
	defer cancel()
	revertErr := s.payments.Revert(revertCtx, txID)
	if revertErr != nil {
		logger.WithComponent("service").Error("payment revert failed, manual reconciliation required",
			zap.String("transaction_id", txID),
			zap.Error(revertErr),
		)
	}

	for _, t := range sold {
		t.RevertSale()
	}
	for _, t := range untouched {
		t.Release()
	}
	metrics.RecordReleased("purchase_failed", len(sold)+len(untouched))
	return revertErr
}

// publishReceipt 收據發送失敗只記錄，不影響已完成的購買
func (s *PurchaseServiceImpl) publishReceipt(ctx context.Context, userID uuid.UUID, result *model.PurchaseResult) {
	if s.receipts == nil {
		return
	}
	receipt := &model.PurchaseReceipt{
		ReceiptID:     uuid.New(),
		UserID:        userID,
		TransactionID: result.TransactionID,
		TotalPrice:    result.TotalPrice,
		Tickets:       result.Tickets,
		PurchasedAt:   s.clock.Now(),
	}
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.revertTimeout)
	defer cancel()
	if err := s.receipts.PublishReceipt(publishCtx, receipt); err != nil {
		logger.WithComponent("service").Error("failed to publish receipt",
			zap.String("transaction_id", result.TransactionID),
			zap.Error(err),
		)
	}
}

func failedResult(err error, total decimal.Decimal) *model.PurchaseResult {
	return &model.PurchaseResult{
		Successful:   false,
		ErrorMessage: err.Error(),
		TotalPrice:   total,
		Tickets:      []uuid.UUID{},
	}
}
