package worker

import (
	"context"
	"time"

	"concert-tickets/internal/cache"
	"concert-tickets/pkg/logger"

	"go.uber.org/zap"
)

const defaultSweepInterval = 30 * time.Second

// ReservationSweeper 定期釋放過期的保留，確保沒人存取的購物車也會被清掉
type ReservationSweeper struct {
	carts    cache.ShoppingCartManager
	interval time.Duration
}

func NewReservationSweeper(carts cache.ShoppingCartManager, interval time.Duration) *ReservationSweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &ReservationSweeper{carts: carts, interval: interval}
}

// Start 在背景執行，ctx 結束時停止
func (s *ReservationSweeper) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *ReservationSweeper) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	log := logger.WithComponent("sweeper")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.SweepOnce(ctx); n > 0 {
				log.Info("released expired carts", zap.Int("carts", n))
			}
		}
	}
}

// SweepOnce 執行一次清理，回傳釋放的購物車數量
func (s *ReservationSweeper) SweepOnce(ctx context.Context) int {
	return s.carts.ReleaseExpired(ctx)
}
