package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type WithdrawalRecord struct {
	ID        uint            `gorm:"primaryKey"`
	UserID    int64           `gorm:"not null;index"`
	Address   string          `gorm:"size:64;not null"`
	Amount    decimal.Decimal `gorm:"type:numeric(30,9);not null"`
	Fee       decimal.Decimal `gorm:"type:numeric(30,9);not null"`
	ChainTxID string          `gorm:"size:128"`
	Status    string          `gorm:"size:16;default:'pending'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
