package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"concert-tickets/internal/mocks"
	"concert-tickets/internal/model"
	"concert-tickets/internal/payment"
	"concert-tickets/internal/queue"
	"concert-tickets/internal/service"
	"concert-tickets/internal/testutil"
	apperrors "concert-tickets/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func reserveAll(t *testing.T, inv *inventory, userID uuid.UUID, tickets ...*model.Ticket) {
	t.Helper()
	for _, ticket := range tickets {
		require.True(t, inv.carts.Reserve(context.Background(), userID, ticket.ID, inv.event.EventID))
	}
}

func amountOf(v int64) interface{} {
	return mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(decimal.NewFromInt(v))
	})
}

func TestPurchaseService_Purchase(t *testing.T) {
	ctx := context.Background()
	method := testutil.ValidPaymentMethod()

	t.Run("Success - reserve one of two seats and buy it", func(t *testing.T) {
		inv := setupInventory(t, 100, 100)
		tickets := inv.ticketService()
		payments := payment.NewSimulatedProcessor(inv.clock)
		receipts := queue.NewReceiptQueue(1)
		svc := service.NewPurchaseService(inv.carts, payments, receipts, service.WithClock(inv.clock))
		userID := uuid.New()

		require.NoError(t, tickets.Reserve(ctx, userID, inv.seats[0].ID, inv.event.EventID))
		available, err := tickets.ListAvailable(ctx, inv.event.EventID)
		require.NoError(t, err)
		assert.Equal(t, []*model.Ticket{inv.seats[1]}, available)

		result, err := svc.Purchase(ctx, userID, method)
		require.NoError(t, err)
		assert.True(t, result.Successful)
		assert.Empty(t, result.ErrorMessage)
		assert.NotEmpty(t, result.TransactionID)
		assert.True(t, result.TotalPrice.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, []uuid.UUID{inv.seats[0].ID}, result.Tickets)

		assert.True(t, inv.seats[0].Snapshot().Sold)
		assert.True(t, inv.seats[1].IsAvailable())
		assert.Empty(t, tickets.GetCart(ctx, userID).Tickets)

		// 收據已送出
		msgs, err := receipts.SubscribeReceipts(ctx)
		require.NoError(t, err)
		d := <-msgs
		assert.Equal(t, result.TransactionID, d.Data.TransactionID)
		assert.Equal(t, userID, d.Data.UserID)
		assert.Equal(t, testutil.Epoch, d.Data.PurchasedAt)

		// 第二次購買：購物車已空
		second, err := svc.Purchase(ctx, userID, method)
		assert.ErrorIs(t, err, apperrors.ErrEmptyCart)
		require.NotNil(t, second)
		assert.False(t, second.Successful)
	})

	t.Run("Failed - empty cart never calls payment", func(t *testing.T) {
		inv := setupInventory(t, 100)
		payments := mocks.NewPaymentProcessorMock()
		svc := service.NewPurchaseService(inv.carts, payments, nil)

		result, err := svc.Purchase(ctx, uuid.New(), method)
		assert.ErrorIs(t, err, apperrors.ErrEmptyCart)
		assert.False(t, result.Successful)
		assert.Equal(t, apperrors.ErrEmptyCart.Error(), result.ErrorMessage)
		payments.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Failed - expired cart never calls payment", func(t *testing.T) {
		inv := setupInventory(t, 100)
		userID := uuid.New()
		reserveAll(t, inv, userID, inv.seats[0])
		inv.clock.Advance(model.DefaultReservationHold)

		payments := mocks.NewPaymentProcessorMock()
		svc := service.NewPurchaseService(inv.carts, payments, nil)

		_, err := svc.Purchase(ctx, userID, method)
		assert.ErrorIs(t, err, apperrors.ErrEmptyCart)
		assert.True(t, inv.seats[0].IsAvailable())
		payments.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Failed - payment declined keeps reservation", func(t *testing.T) {
		inv := setupInventory(t, 100, 50)
		userID := uuid.New()
		reserveAll(t, inv, userID, inv.seats...)

		payments := mocks.NewPaymentProcessorMock()
		payments.On("Charge", mock.Anything, amountOf(150), method).Return("", payment.ErrCardDeclined).Once()
		svc := service.NewPurchaseService(inv.carts, payments, nil)

		result, err := svc.Purchase(ctx, userID, method)
		assert.ErrorIs(t, err, apperrors.ErrPaymentFailed)
		assert.ErrorIs(t, err, payment.ErrCardDeclined)
		assert.False(t, result.Successful)
		assert.Contains(t, result.ErrorMessage, payment.ErrCardDeclined.Error())
		assert.Empty(t, result.Tickets)

		for _, ticket := range inv.seats {
			state := ticket.Snapshot()
			assert.False(t, state.Sold)
			assert.True(t, state.Reserved)
		}
		assert.Len(t, inv.carts.GetCart(ctx, userID).Tickets, 2)
		payments.AssertExpectations(t)
		payments.AssertNotCalled(t, "Revert", mock.Anything, mock.Anything)
	})

	t.Run("Failed - partial sale reverts payment and tickets", func(t *testing.T) {
		inv := setupInventory(t, 100, 200, 300)
		userID := uuid.New()
		reserveAll(t, inv, userID, inv.seats...)

		// 第二張票在購買前被賣掉，Sell 會失敗
		require.NoError(t, inv.seats[1].Sell())

		payments := mocks.NewPaymentProcessorMock()
		payments.On("Charge", mock.Anything, amountOf(600), method).Return("txn_partial", nil).Once()
		payments.On("Revert", mock.Anything, "txn_partial").Return(nil).Once()
		receipts := mocks.NewReceiptQueueMock()
		svc := service.NewPurchaseService(inv.carts, payments, receipts)

		result, err := svc.Purchase(ctx, userID, method)
		assert.ErrorIs(t, err, apperrors.ErrPartialSale)
		assert.ErrorIs(t, err, apperrors.ErrTicketAlreadySold)
		assert.False(t, result.Successful)
		assert.Contains(t, result.ErrorMessage, inv.seats[1].ID.String())

		assert.True(t, inv.seats[0].IsAvailable())
		assert.True(t, inv.seats[2].IsAvailable())
		assert.Empty(t, inv.carts.GetCart(ctx, userID).Tickets)
		payments.AssertExpectations(t)
		receipts.AssertNotCalled(t, "PublishReceipt", mock.Anything, mock.Anything)
	})

	t.Run("Failed - revert error is reported", func(t *testing.T) {
		inv := setupInventory(t, 100, 200)
		userID := uuid.New()
		reserveAll(t, inv, userID, inv.seats...)
		require.NoError(t, inv.seats[0].Sell())

		payments := mocks.NewPaymentProcessorMock()
		payments.On("Charge", mock.Anything, mock.Anything, method).Return("txn_revert", nil).Once()
		payments.On("Revert", mock.Anything, "txn_revert").Return(errors.New("gateway timeout")).Once()
		svc := service.NewPurchaseService(inv.carts, payments, nil)

		_, err := svc.Purchase(ctx, userID, method)
		assert.ErrorIs(t, err, apperrors.ErrPartialSale)
		assert.Contains(t, err.Error(), "gateway timeout")
		assert.True(t, inv.seats[1].IsAvailable())
		payments.AssertExpectations(t)
	})

	t.Run("Failed - cancelled before anything changes", func(t *testing.T) {
		inv := setupInventory(t, 100)
		userID := uuid.New()
		reserveAll(t, inv, userID, inv.seats[0])

		payments := mocks.NewPaymentProcessorMock()
		svc := service.NewPurchaseService(inv.carts, payments, nil)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		result, err := svc.Purchase(cancelled, userID, method)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, result.Successful)

		assert.Len(t, inv.carts.GetCart(ctx, userID).Tickets, 1)
		assert.False(t, inv.seats[0].Snapshot().Sold)
		payments.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Success - receipt publish failure does not undo purchase", func(t *testing.T) {
		inv := setupInventory(t, 100)
		userID := uuid.New()
		reserveAll(t, inv, userID, inv.seats[0])

		payments := mocks.NewPaymentProcessorMock()
		payments.On("Charge", mock.Anything, mock.Anything, method).Return("txn_ok", nil).Once()
		receipts := mocks.NewReceiptQueueMock()
		receipts.On("PublishReceipt", mock.Anything, mock.MatchedBy(func(r *model.PurchaseReceipt) bool {
			return r.TransactionID == "txn_ok" && r.UserID == userID
		})).Return(errors.New("queue full")).Once()
		svc := service.NewPurchaseService(inv.carts, payments, receipts)

		result, err := svc.Purchase(ctx, userID, method)
		require.NoError(t, err)
		assert.True(t, result.Successful)
		assert.True(t, inv.seats[0].Snapshot().Sold)
		receipts.AssertExpectations(t)
		payments.AssertNotCalled(t, "Revert", mock.Anything, mock.Anything)
	})
}

func TestPurchaseService_Concurrent(t *testing.T) {
	ctx := context.Background()
	method := testutil.ValidPaymentMethod()

	t.Run("Different users buy different seats", func(t *testing.T) {
		const users = 20
		prices := make([]int64, users)
		for i := range prices {
			prices[i] = 100
		}
		inv := setupInventory(t, prices...)
		svc := service.NewPurchaseService(inv.carts, payment.NewSimulatedProcessor(inv.clock), nil)

		userIDs := make([]uuid.UUID, users)
		for i := range userIDs {
			userIDs[i] = uuid.New()
			reserveAll(t, inv, userIDs[i], inv.seats[i])
		}

		var wg sync.WaitGroup
		var succeeded atomic.Int32
		for _, userID := range userIDs {
			wg.Add(1)
			go func(userID uuid.UUID) {
				defer wg.Done()
				if _, err := svc.Purchase(ctx, userID, method); err == nil {
					succeeded.Add(1)
				}
			}(userID)
		}
		wg.Wait()

		assert.Equal(t, int32(users), succeeded.Load())
		for _, ticket := range inv.seats {
			assert.True(t, ticket.Snapshot().Sold)
		}
	})

	t.Run("Same cart purchased twice at once", func(t *testing.T) {
		inv := setupInventory(t, 100, 100)
		userID := uuid.New()
		reserveAll(t, inv, userID, inv.seats...)
		svc := service.NewPurchaseService(inv.carts, payment.NewSimulatedProcessor(inv.clock), nil)

		const attempts = 10
		var wg sync.WaitGroup
		var succeeded, empty atomic.Int32
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.Purchase(ctx, userID, method)
				switch {
				case err == nil:
					succeeded.Add(1)
				case errors.Is(err, apperrors.ErrEmptyCart):
					empty.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), succeeded.Load())
		assert.Equal(t, int32(attempts-1), empty.Load())
	})
}
