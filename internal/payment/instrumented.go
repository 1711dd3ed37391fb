package payment

import (
	"context"
	"time"

	"concert-tickets/internal/metrics"
	"concert-tickets/internal/model"
	"concert-tickets/pkg/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Instrumented 為 Processor 加上日誌與耗時指標
type Instrumented struct {
	next Processor
}

func NewInstrumented(next Processor) Processor {
	return &Instrumented{next: next}
}

func (p *Instrumented) Charge(ctx context.Context, amount decimal.Decimal, method model.PaymentMethod) (string, error) {
	start := time.Now()
	txID, err := p.next.Charge(ctx, amount, method)
	metrics.ObservePayment("charge", err, time.Since(start).Seconds())

	log := logger.WithComponent("payment").With(zap.String("amount", amount.StringFixed(2)))
	if err != nil {
		log.Warn("charge failed", zap.Error(err))
		return "", err
	}
	log.Info("charge succeeded", zap.String("transaction_id", txID))
	return txID, nil
}

func (p *Instrumented) Revert(ctx context.Context, transactionID string) error {
	start := time.Now()
	err := p.next.Revert(ctx, transactionID)
	metrics.ObservePayment("revert", err, time.Since(start).Seconds())

	log := logger.WithComponent("payment").With(zap.String("transaction_id", transactionID))
	if err != nil {
		log.Error("revert failed", zap.Error(err))
		return err
	}
	log.Info("payment reverted")
	return nil
}
