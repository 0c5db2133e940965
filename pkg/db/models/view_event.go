package models

import (
	"time"

	"github.com/google/uuid"
)

// ViewEvent is one open of a shared document. A nil SendRecordID marks an
// anonymous view.
type ViewEvent struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OwnerID      uuid.UUID  `gorm:"type:uuid;not null"`
	DocumentID   uuid.UUID  `gorm:"type:uuid;not null"`
	SendRecordID *uuid.UUID `gorm:"type:uuid"`
	Token        *string    `gorm:"type:text"`
	RecipientID  *uuid.UUID `gorm:"type:uuid"`
	ViewedAt     time.Time  `gorm:"type:timestamptz;not null"`
	IPAddress    *string    `gorm:"type:text"`
	UserAgent    *string    `gorm:"type:text"`
	Referer      *string    `gorm:"type:text"`
}

// Anonymous reports whether the view came without a resolvable token.
func (v ViewEvent) Anonymous() bool {
	return v.SendRecordID == nil
}
