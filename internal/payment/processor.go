package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"concert-tickets/internal/clock"
	"concert-tickets/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount       = errors.New("payment amount must be greater than zero")
	ErrInvalidCard         = errors.New("invalid card details")
	ErrCardExpired         = errors.New("card is expired")
	ErrCardDeclined        = errors.New("card declined")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// DeclinedTestCard 模擬銀行一律拒絕的測試卡號
const DeclinedTestCard = "4000000000000002"

// Processor 外部付款服務；兩個呼叫都可能失敗
type Processor interface {
	Charge(ctx context.Context, amount decimal.Decimal, method model.PaymentMethod) (string, error)
	Revert(ctx context.Context, transactionID string) error
}

type transaction struct {
	amount   decimal.Decimal
	reverted bool
}

// SimulatedProcessor 不連外的付款模擬，交易記錄保存在記憶體
type SimulatedProcessor struct {
	clock clock.Clock

	mu           sync.Mutex
	transactions map[string]*transaction
}

func NewSimulatedProcessor(clk clock.Clock) *SimulatedProcessor {
	return &SimulatedProcessor{
		clock:        clk,
		transactions: make(map[string]*transaction),
	}
}

func (p *SimulatedProcessor) Charge(ctx context.Context, amount decimal.Decimal, method model.PaymentMethod) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !amount.IsPositive() {
		return "", ErrInvalidAmount
	}
	if err := p.validateCard(method); err != nil {
		return "", err
	}

	txID := fmt.Sprintf("txn_%s", uuid.New().String())
	p.mu.Lock()
	p.transactions[txID] = &transaction{amount: amount}
	p.mu.Unlock()
	return txID, nil
}

func (p *SimulatedProcessor) Revert(ctx context.Context, transactionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	tx, ok := p.transactions[transactionID]
	if !ok {
		return ErrTransactionNotFound
	}
	tx.reverted = true
	return nil
}

// IsReverted 查詢交易是否已退款
func (p *SimulatedProcessor) IsReverted(transactionID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tx, ok := p.transactions[transactionID]
	if !ok {
		return false, ErrTransactionNotFound
	}
	return tx.reverted, nil
}

func (p *SimulatedProcessor) validateCard(method model.PaymentMethod) error {
	number := strings.ReplaceAll(method.CardNumber, " ", "")
	if len(number) < 12 || len(number) > 19 || !luhnValid(number) {
		return ErrInvalidCard
	}
	if strings.TrimSpace(method.CardHolderName) == "" {
		return ErrInvalidCard
	}
	if len(method.CVV) < 3 || len(method.CVV) > 4 || !allDigits(method.CVV) {
		return ErrInvalidCard
	}
	exp, err := time.Parse("01/06", method.ExpirationDate)
	if err != nil {
		return ErrInvalidCard
	}
	// 卡片在到期月份的最後一天仍有效
	if !p.clock.Now().Before(exp.AddDate(0, 1, 0)) {
		return ErrCardExpired
	}
	if number == DeclinedTestCard {
		return ErrCardDeclined
	}
	return nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func luhnValid(number string) bool {
	if !allDigits(number) {
		return false
	}
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
