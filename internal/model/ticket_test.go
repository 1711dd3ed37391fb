package model_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"concert-tickets/internal/model"
	apperrors "concert-tickets/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTicket() *model.Ticket {
	return model.NewTicket(uuid.New(), model.TicketTypeVIP, decimal.NewFromInt(100), model.SeatLocation{Section: "A", Row: "1", SeatNumber: 1})
}

var now = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

func TestTicket_Reserve(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		ticket := newTicket()
		require.NoError(t, ticket.Reserve(now, 10*time.Minute))

		state := ticket.Snapshot()
		assert.True(t, state.Reserved)
		assert.Equal(t, now.Add(10*time.Minute), state.ReservedUntil)
		assert.False(t, ticket.IsAvailable())
	})

	t.Run("AlreadyReserved", func(t *testing.T) {
		ticket := newTicket()
		require.NoError(t, ticket.Reserve(now, time.Minute))
		assert.ErrorIs(t, ticket.Reserve(now, time.Minute), apperrors.ErrTicketAlreadyReserved)
	})

	t.Run("AlreadySold", func(t *testing.T) {
		ticket := newTicket()
		require.NoError(t, ticket.Sell())
		assert.ErrorIs(t, ticket.Reserve(now, time.Minute), apperrors.ErrTicketAlreadySold)
	})
}

func TestTicket_Release(t *testing.T) {
	ticket := newTicket()
	require.NoError(t, ticket.Reserve(now, time.Minute))

	ticket.Release()
	ticket.Release()

	state := ticket.Snapshot()
	assert.False(t, state.Reserved)
	assert.True(t, state.ReservedUntil.IsZero())
	assert.True(t, ticket.IsAvailable())
}

func TestTicket_Sell(t *testing.T) {
	t.Run("ClearsReservation", func(t *testing.T) {
		ticket := newTicket()
		require.NoError(t, ticket.Reserve(now, time.Minute))
		require.NoError(t, ticket.Sell())

		state := ticket.Snapshot()
		assert.True(t, state.Sold)
		assert.False(t, state.Reserved)
		assert.True(t, state.ReservedUntil.IsZero())
	})

	t.Run("SecondSellFails", func(t *testing.T) {
		ticket := newTicket()
		require.NoError(t, ticket.Sell())
		assert.ErrorIs(t, ticket.Sell(), apperrors.ErrTicketAlreadySold)
	})

	t.Run("RevertSale", func(t *testing.T) {
		ticket := newTicket()
		require.NoError(t, ticket.Sell())
		ticket.RevertSale()
		assert.True(t, ticket.IsAvailable())
	})
}

func TestTicket_Block(t *testing.T) {
	ticket := newTicket()

	ticket.Block()
	ticket.Block()
	assert.False(t, ticket.IsAvailable())
	assert.True(t, ticket.Snapshot().Blocked)

	ticket.Unblock()
	assert.True(t, ticket.IsAvailable())

	// 保留中的票券被封鎖後解除封鎖，仍然是保留狀態
	require.NoError(t, ticket.Reserve(now, time.Minute))
	ticket.Block()
	ticket.Unblock()
	assert.False(t, ticket.IsAvailable())
	assert.True(t, ticket.Snapshot().Reserved)
}

func TestTicket_ExtendReservation(t *testing.T) {
	ticket := newTicket()

	// 未保留的票券不會被寫入到期時間
	ticket.ExtendReservation(now.Add(time.Hour))
	assert.True(t, ticket.Snapshot().ReservedUntil.IsZero())

	require.NoError(t, ticket.Reserve(now, time.Minute))
	ticket.ExtendReservation(now.Add(time.Hour))
	assert.Equal(t, now.Add(time.Hour), ticket.Snapshot().ReservedUntil)

	require.NoError(t, ticket.Sell())
	ticket.ExtendReservation(now.Add(2 * time.Hour))
	assert.True(t, ticket.Snapshot().ReservedUntil.IsZero())
}

func TestTicket_ConcurrentReserve(t *testing.T) {
	ticket := newTicket()

	const workers = 50
	var wg sync.WaitGroup
	var winners atomic.Int32
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if ticket.Reserve(now, time.Minute) == nil {
				winners.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func TestTicket_ConcurrentSell(t *testing.T) {
	ticket := newTicket()

	const workers = 50
	var wg sync.WaitGroup
	var sold, rejected atomic.Int32

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ticket.Sell(); err != nil {
				assert.ErrorIs(t, err, apperrors.ErrTicketAlreadySold)
				rejected.Add(1)
				return
			}
			sold.Add(1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), sold.Load())
	assert.Equal(t, int32(workers-1), rejected.Load())
}

func TestTicket_ToResponse(t *testing.T) {
	ticket := newTicket()
	resp := ticket.ToResponse()
	assert.Equal(t, ticket.ID, resp.ID)
	assert.Nil(t, resp.ReservedUntil)

	require.NoError(t, ticket.Reserve(now, time.Minute))
	resp = ticket.ToResponse()
	require.NotNil(t, resp.ReservedUntil)
	assert.Equal(t, now.Add(time.Minute), *resp.ReservedUntil)
}

func TestTicketType_IsValid(t *testing.T) {
	assert.True(t, model.TicketTypeEarlyBird.IsValid())
	assert.True(t, model.TicketTypeStudent.IsValid())
	assert.False(t, model.TicketType("backstage").IsValid())
}

func TestCart(t *testing.T) {
	a := newTicket()
	b := model.NewTicket(uuid.New(), model.TicketTypeStudent, decimal.RequireFromString("49.50"), model.SeatLocation{})
	cart := model.Cart{Tickets: []*model.Ticket{a, b}, ExpiresAt: now}

	assert.True(t, cart.TotalPrice().Equal(decimal.RequireFromString("149.50")))
	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, cart.TicketIDs())
	assert.True(t, cart.IsExpired(now))
	assert.False(t, cart.IsExpired(now.Add(-time.Second)))

	empty := model.Cart{}
	assert.Nil(t, empty.ToResponse().ExpiresAt)
	assert.True(t, empty.TotalPrice().IsZero())
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, model.ValidateSchedule("2025-06-20", "19:30"))
	assert.Error(t, model.ValidateSchedule("20/06/2025", "19:30"))
	assert.Error(t, model.ValidateSchedule("2025-06-20", "7pm"))
}
