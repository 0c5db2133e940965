package models

import (
	"time"

	"github.com/angelmondragon/pricesheets-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OverrideValue is the stored form of a line item override: exactly one of
// Price or Comment is set.
type OverrideValue struct {
	Price   *decimal.Decimal `json:"price,omitempty"`
	Comment *string          `json:"comment,omitempty"`
}

// ProfileSnapshot is the recipient's percentage adjustments as they stood at send time.
type ProfileSnapshot struct {
	GlobalPercent   decimal.Decimal            `json:"globalPercent"`
	ProductPercents map[string]decimal.Decimal `json:"productPercents,omitempty"`
}

// SendRecord is the append-only record of one document delivered to one recipient.
type SendRecord struct {
	ID              uuid.UUID                `gorm:"type:uuid;primaryKey"`
	OwnerID         uuid.UUID                `gorm:"type:uuid;not null"`
	DocumentID      uuid.UUID                `gorm:"type:uuid;not null"`
	RecipientID     uuid.UUID                `gorm:"type:uuid;not null"`
	Token           string                   `gorm:"type:text;not null;uniqueIndex"`
	Nonce           string                   `gorm:"type:text;not null"`
	Overrides       map[string]OverrideValue `gorm:"type:jsonb;serializer:json"`
	ProfileSnapshot *ProfileSnapshot         `gorm:"type:jsonb;serializer:json"`
	PriceBasis      *enums.PriceBasis        `gorm:"type:price_basis"`
	Subject         string                   `gorm:"type:text;not null"`
	CreatedAt       time.Time                `gorm:"type:timestamptz;not null"`
}
