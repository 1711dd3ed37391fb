package testutil

import (
	"context"
	"testing"
	"time"

	"concert-tickets/internal/model"
	"concert-tickets/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// ValidCard 通過 Luhn 檢查的測試卡號
const ValidCard = "4242424242424242"

// Epoch 測試用固定時間，早於 PaymentMethod 的到期日
var Epoch = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

// CreateTestEvent 建立一筆活動
func CreateTestEvent(t *testing.T, events repository.EventRepository) *model.Event {
	t.Helper()
	event, err := events.Create(context.Background(), &model.Event{
		EventID:     uuid.New(),
		Date:        "2025-06-20",
		Time:        "19:30",
		Venue:       "Taipei Arena",
		Description: "Test Concert",
	})
	require.NoError(t, err)
	return event
}

// CreateTestTickets 依價格建立票券並放進庫存，回傳順序與 prices 相同
func CreateTestTickets(t *testing.T, tickets repository.TicketRepository, eventID uuid.UUID, prices ...int64) []*model.Ticket {
	t.Helper()
	out := make([]*model.Ticket, 0, len(prices))
	for i, p := range prices {
		out = append(out, model.NewTicket(eventID, model.TicketTypeGeneralAdmission, decimal.NewFromInt(p), model.SeatLocation{
			Section:    "A",
			Row:        "1",
			SeatNumber: i + 1,
		}))
	}
	require.NoError(t, tickets.RegisterTickets(context.Background(), eventID, out))
	return out
}

func ValidPaymentMethod() model.PaymentMethod {
	return model.PaymentMethod{
		CardNumber:     ValidCard,
		CardHolderName: "Test User",
		ExpirationDate: "12/30",
		CVV:            "123",
		BillingAddress: "1 Test Road",
	}
}

// Token 簽發 HS256 token，admin 為 true 時帶 admin claim
func Token(t *testing.T, secret []byte, userID uuid.UUID, admin bool) string {
	t.Helper()
	claims := jwt.MapClaims{
		"userid": userID.String(),
		"exp":    time.Now().Add(time.Hour).Unix(),
	}
	if admin {
		claims["admin"] = true
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return signed
}
