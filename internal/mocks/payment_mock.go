package mocks

import (
	"context"

	"concert-tickets/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type PaymentProcessorMock struct {
	mock.Mock
}

func NewPaymentProcessorMock() *PaymentProcessorMock {
	return &PaymentProcessorMock{}
}

func (m *PaymentProcessorMock) Charge(ctx context.Context, amount decimal.Decimal, method model.PaymentMethod) (string, error) {
	args := m.Called(ctx, amount, method)
	return args.String(0), args.Error(1)
}

func (m *PaymentProcessorMock) Revert(ctx context.Context, transactionID string) error {
	args := m.Called(ctx, transactionID)
	return args.Error(0)
}
