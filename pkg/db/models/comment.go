package models

import (
	"time"

	"github.com/google/uuid"
)

// Comment belongs to exactly one post and cannot outlive it.
type Comment struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	PostID    uuid.UUID  `gorm:"column:post_id;type:uuid;not null;index" json:"post_id"`
	UserID    *uuid.UUID `gorm:"column:user_id" json:"user_id,omitempty"`
	Content   string     `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
