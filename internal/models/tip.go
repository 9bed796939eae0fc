package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TipRecord struct {
	ID          uint            `gorm:"primaryKey"`
	SenderID    int64           `gorm:"not null;index"`
	RecipientID int64           `gorm:"not null;index"`
	Amount      decimal.Decimal `gorm:"type:numeric(30,9);not null"`
	Fee         decimal.Decimal `gorm:"type:numeric(30,9);not null"`
	CreatedAt   time.Time
}
