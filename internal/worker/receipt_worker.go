package worker

import (
	"context"

	"concert-tickets/internal/metrics"
	"concert-tickets/internal/model"
	"concert-tickets/internal/queue"
	"concert-tickets/pkg/logger"

	"go.uber.org/zap"
)

// ReceiptHandler 實際出票的動作 (寄信、推播...)
type ReceiptHandler func(ctx context.Context, receipt *model.PurchaseReceipt) error

type ReceiptWorker interface {
	// 訂閱收據隊列，ctx 結束時停止
	Start(ctx context.Context) error
}

type ReceiptWorkerImpl struct {
	queue   queue.ReceiptQueue
	handler ReceiptHandler
}

func NewReceiptWorker(q queue.ReceiptQueue, handler ReceiptHandler) ReceiptWorker {
	if handler == nil {
		handler = LogIssuedTickets
	}
	return &ReceiptWorkerImpl{
		queue:   q,
		handler: handler,
	}
}

func (w *ReceiptWorkerImpl) Start(ctx context.Context) error {
	msgs, err := w.queue.SubscribeReceipts(ctx)
	if err != nil {
		return err
	}

	go func() {
		log := logger.WithComponent("receipt")
		for msg := range msgs {
			if err := w.handler(ctx, msg.Data); err != nil {
				log.Warn("issue tickets failed, will retry",
					zap.String("transaction_id", msg.Data.TransactionID),
					zap.Error(err),
				)
				msg.Nack(true)
				continue
			}
			metrics.RecordReceiptIssued()
			msg.Ack()
		}
	}()
	return nil
}

// LogIssuedTickets 預設的出票動作：只記錄日誌
func LogIssuedTickets(ctx context.Context, receipt *model.PurchaseReceipt) error {
	ids := make([]string, 0, len(receipt.Tickets))
	for _, id := range receipt.Tickets {
		ids = append(ids, id.String())
	}
	logger.WithComponent("receipt").Info("tickets issued",
		zap.String("receipt_id", receipt.ReceiptID.String()),
		zap.String("user_id", receipt.UserID.String()),
		zap.String("transaction_id", receipt.TransactionID),
		zap.String("total_price", receipt.TotalPrice.StringFixed(2)),
		zap.Strings("tickets", ids),
	)
	return nil
}
