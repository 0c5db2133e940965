package models

import (
	"time"

	"github.com/angelmondragon/pricesheets-backend/pkg/enums"
	"github.com/google/uuid"
)

// Notification stores in-app notifications scoped to owners.
type Notification struct {
	ID           uuid.UUID              `gorm:"type:uuid;primaryKey"`
	OwnerID      uuid.UUID              `gorm:"type:uuid;not null"`
	Type         enums.NotificationType `gorm:"type:notification_type;not null"`
	Title        string                 `gorm:"type:text;not null"`
	Message      string                 `gorm:"type:text;not null"`
	Link         *string                `gorm:"type:text"`
	SendRecordID *uuid.UUID             `gorm:"type:uuid"`
	ReadAt       *time.Time             `gorm:"type:timestamptz"`
	CreatedAt    time.Time              `gorm:"type:timestamptz;not null"`
}
