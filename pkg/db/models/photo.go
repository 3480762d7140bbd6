package models

import (
	"time"

	"github.com/google/uuid"
)

// Photo records an uploaded image; the bytes live on disk under the uploads
// directory and StoragePath points at them.
type Photo struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null" json:"user_id"`
	Filename    string    `gorm:"type:text;not null" json:"filename"`
	ContentType string    `gorm:"column:content_type;type:text;not null" json:"content_type"`
	SizeBytes   int64     `gorm:"column:size_bytes;not null" json:"size_bytes"`
	StoragePath string    `gorm:"column:storage_path;type:text;not null" json:"-"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
