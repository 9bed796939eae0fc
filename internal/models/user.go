package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID             uint            `gorm:"primaryKey"`
	PlatformID     int64           `gorm:"uniqueIndex;not null"`
	Username       string          `gorm:"size:255"`
	Balance        decimal.Decimal `gorm:"type:numeric(30,9);default:0"`
	DepositAddress string          `gorm:"size:64;index"`
	Welcomed       bool            `gorm:"default:false;index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
