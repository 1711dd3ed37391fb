package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"concert-tickets/config"
	"concert-tickets/internal/cache"
	"concert-tickets/internal/clock"
	"concert-tickets/internal/database"
	"concert-tickets/internal/handler"
	"concert-tickets/internal/middleware"
	"concert-tickets/internal/payment"
	"concert-tickets/internal/queue"
	"concert-tickets/internal/repository"
	"concert-tickets/internal/service"
	"concert-tickets/internal/worker"
	"concert-tickets/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()
	logger.SetLevel(cfg.Server.LogLevel)
	defer logger.L.Sync()
	log := logger.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.NewSystem()
	eventRepo := repository.NewEventRepository()
	ticketRepo := repository.NewTicketRepository()
	carts := cache.NewShoppingCartManager(ticketRepo, clk, cfg.Reservation.Hold)
	payments := payment.NewInstrumented(payment.NewSimulatedProcessor(clk))

	receipts, rdb, err := newReceiptQueue(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize receipt queue", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
	}

	eventService := service.NewEventService(eventRepo, ticketRepo)
	ticketService := service.NewTicketService(eventRepo, ticketRepo, carts)
	purchaseService := service.NewPurchaseService(carts, payments, receipts,
		service.WithClock(clk),
		service.WithRevertTimeout(cfg.Payment.RevertTimeout),
	)

	worker.NewReservationSweeper(carts, cfg.Reservation.SweepInterval).Start(ctx)
	if err := worker.NewReceiptWorker(receipts, worker.LogIssuedTickets).Start(ctx); err != nil {
		log.Fatal("Failed to start receipt worker", zap.Error(err))
	}

	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()
	// *gin.Context 的 Done/Err 跟隨 Request.Context()
	router.ContextWithFallback = true
	router.Use(gin.Recovery(), middleware.Identity([]byte(cfg.Auth.JWTSecret)))
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handler.NewEventHandler(eventService, ticketService).RegisterRoutes(router)
	handler.NewTicketHandler(ticketService, purchaseService).RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
}

// newReceiptQueue 依設定選擇記憶體或 Redis Stream；回傳的 client 由呼叫者關閉
func newReceiptQueue(ctx context.Context, cfg *config.Config) (queue.ReceiptQueue, *redis.Client, error) {
	if cfg.Queue.Driver != config.QueueDriverRedis {
		return queue.NewReceiptQueue(cfg.Queue.BufferSize), nil, nil
	}

	rdb, err := database.InitRedis(ctx, &cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	hostname, _ := os.Hostname()
	q, err := queue.NewRedisStreamReceiptQueue(ctx, rdb, hostname, queue.RedisStreamReceiptQueueConfig{
		MaxLen: cfg.Queue.MaxLen,
	})
	if err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	return q, rdb, nil
}
