package queue

import (
	"context"

	"concert-tickets/internal/model"
)

type Delivery struct {
	Data *model.PurchaseReceipt
	Ack  func()
	Nack func(requeue bool)
}

type ReceiptQueue interface {
	// 發送購買收據到隊列
	PublishReceipt(ctx context.Context, receipt *model.PurchaseReceipt) error
	// 訂閱收據隊列
	SubscribeReceipts(ctx context.Context) (<-chan Delivery, error)
}

type ReceiptQueueImpl struct {
	// 使用 Go channel 來模擬 MQ 隊列
	ch chan *model.PurchaseReceipt
}

func NewReceiptQueue(bufferSize int) ReceiptQueue {
	return &ReceiptQueueImpl{
		ch: make(chan *model.PurchaseReceipt, bufferSize),
	}
}

func (q *ReceiptQueueImpl) PublishReceipt(ctx context.Context, receipt *model.PurchaseReceipt) error {
	select {
	case q.ch <- receipt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *ReceiptQueueImpl) SubscribeReceipts(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case receipt, ok := <-q.ch:
				if !ok {
					return
				}

				d := Delivery{
					Data: receipt,
					Ack:  func() { /* 記憶體版不用做特別動作 */ },
					Nack: func(requeue bool) {
						if requeue {
							// 非阻塞重回隊列，buffer 滿時丟棄避免卡死 worker
							select {
							case q.ch <- receipt:
							default:
							}
						}
					},
				}
				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
