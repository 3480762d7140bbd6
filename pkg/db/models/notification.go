package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/campusfindz/campusfindz-backend/pkg/enums"
)

// Notification is addressed to exactly one user. Only that user may read or
// flip is_read; admins get no override here.
type Notification struct {
	ID        uuid.UUID              `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Type      enums.NotificationType `gorm:"type:text;not null" json:"type"`
	Title     string                 `gorm:"type:text;not null" json:"title"`
	Message   string                 `gorm:"type:text;not null" json:"message"`
	Link      *string                `gorm:"type:text" json:"link,omitempty"`
	IsRead    bool                   `gorm:"column:is_read;not null;default:false" json:"is_read"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
