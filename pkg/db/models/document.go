package models

import (
	"time"

	"github.com/angelmondragon/pricesheets-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Document is an owner's price sheet.
type Document struct {
	ID           uuid.UUID            `gorm:"type:uuid;primaryKey"`
	OwnerID      uuid.UUID            `gorm:"type:uuid;not null"`
	Title        string               `gorm:"type:text;not null"`
	Notes        *string              `gorm:"type:text"`
	Status       enums.DocumentStatus `gorm:"type:document_status;not null;default:'draft'"`
	PriceBasis   enums.PriceBasis     `gorm:"type:price_basis;not null;default:'FOB'"`
	RecipientIDs []uuid.UUID          `gorm:"type:jsonb;serializer:json;not null"`
	LastSentAt   *time.Time           `gorm:"type:timestamptz"`
	CreatedAt    time.Time            `gorm:"type:timestamptz;not null"`
	UpdatedAt    time.Time            `gorm:"type:timestamptz;not null"`

	LineItems []LineItem `gorm:"foreignKey:DocumentID"`
}

// LineItem is a denormalized copy of one catalog entry on a document.
// A nil BasePrice means the owner withheld the price.
type LineItem struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey"`
	DocumentID   uuid.UUID        `gorm:"type:uuid;not null"`
	Position     int              `gorm:"not null"`
	Commodity    string           `gorm:"type:text;not null"`
	Variety      string           `gorm:"type:text;not null;default:''"`
	Package      string           `gorm:"type:text;not null;default:''"`
	Grade        string           `gorm:"type:text;not null;default:''"`
	BasePrice    *decimal.Decimal `gorm:"type:numeric(12,4)"`
	Availability *string          `gorm:"type:text"`
}

func (LineItem) TableName() string {
	return "document_line_items"
}
