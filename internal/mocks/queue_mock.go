package mocks

import (
	"context"

	"concert-tickets/internal/model"
	"concert-tickets/internal/queue"

	"github.com/stretchr/testify/mock"
)

type ReceiptQueueMock struct {
	mock.Mock
}

func NewReceiptQueueMock() *ReceiptQueueMock {
	return &ReceiptQueueMock{}
}

func (m *ReceiptQueueMock) PublishReceipt(ctx context.Context, receipt *model.PurchaseReceipt) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}

func (m *ReceiptQueueMock) SubscribeReceipts(ctx context.Context) (<-chan queue.Delivery, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan queue.Delivery), args.Error(1)
}
