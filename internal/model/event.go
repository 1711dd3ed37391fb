package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventDateLayout = "2006-01-02"
	EventTimeLayout = "15:04"
)

// Event 演唱會活動
type Event struct {
	EventID     uuid.UUID `json:"event_id"`
	Date        string    `json:"event_date"`
	Time        string    `json:"event_time"`
	Venue       string    `json:"venue"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UpdateEventParams 更新時整筆取代所有可變欄位
type UpdateEventParams struct {
	Date        string
	Time        string
	Venue       string
	Description string
}

// ValidateSchedule 檢查日期 (YYYY-MM-DD) 與時間 (HH:MM) 格式
func ValidateSchedule(date, clock string) error {
	if _, err := time.Parse(EventDateLayout, date); err != nil {
		return err
	}
	if _, err := time.Parse(EventTimeLayout, clock); err != nil {
		return err
	}
	return nil
}
