package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod 付款資訊 (信用卡)
type PaymentMethod struct {
	CardNumber     string `json:"card_number" binding:"required"`
	CardHolderName string `json:"card_holder_name" binding:"required"`
	ExpirationDate string `json:"expiration_date" binding:"required"` // MM/YY
	CVV            string `json:"cvv" binding:"required"`
	BillingAddress string `json:"billing_address"`
}

// PurchaseResult 購買結果；失敗時 ErrorMessage 說明原因
type PurchaseResult struct {
	Successful    bool            `json:"is_successful"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Tickets       []uuid.UUID     `json:"tickets"`
}

// PurchaseReceipt 購買成功後送進佇列，供出票 worker 使用
type PurchaseReceipt struct {
	ReceiptID     uuid.UUID       `json:"receipt_id"`
	UserID        uuid.UUID       `json:"user_id"`
	TransactionID string          `json:"transaction_id"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Tickets       []uuid.UUID     `json:"tickets"`
	PurchasedAt   time.Time       `json:"purchased_at"`
}
