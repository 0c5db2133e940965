package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Recipient is a buyer contact with its pricing profile.
type Recipient struct {
	ID                      uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OwnerID                 uuid.UUID       `gorm:"type:uuid;not null"`
	Email                   string          `gorm:"type:text;not null"`
	Company                 string          `gorm:"type:text;not null"`
	ContactName             *string         `gorm:"type:text"`
	GlobalAdjustmentPercent decimal.Decimal `gorm:"type:numeric(7,3);not null;default:0"`
	CreatedAt               time.Time       `gorm:"type:timestamptz;not null"`
	UpdatedAt               time.Time       `gorm:"type:timestamptz;not null"`

	ProductAdjustments []RecipientProductAdjustment `gorm:"foreignKey:RecipientID"`
}

// RecipientProductAdjustment overrides the global percentage for one product key.
type RecipientProductAdjustment struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	RecipientID       uuid.UUID       `gorm:"type:uuid;not null"`
	ProductKey        string          `gorm:"type:text;not null"`
	AdjustmentPercent decimal.Decimal `gorm:"type:numeric(7,3);not null"`
}
